package urls

// Project documentation lives at https://github.com/cephinstaller/envstep

// ProjectHome is the repository front page, also shown in the wizard header.
const ProjectHome = "https://github.com/cephinstaller/envstep"

// ISOInstallGuide covers copying an ISO to the install host and setting
// its SELinux context so the install service can read it.
const ISOInstallGuide = "https://github.com/cephinstaller/envstep/blob/main/docs/iso-install.md"

// RegistryCredentials explains which RHN account is needed for the
// Red Hat container registry.
const RegistryCredentials = "https://access.redhat.com/RegistryAuthentication"

// InstallServiceSetup describes running the ansible-runner-service and
// advertising it over mDNS.
const InstallServiceSetup = "https://github.com/cephinstaller/envstep/blob/main/docs/install-service.md"

// TroubleshootingGuide lists the common environment check failures.
const TroubleshootingGuide = "https://github.com/cephinstaller/envstep/blob/main/docs/troubleshooting.md"

// CephReleases is the upstream release index, used to match versions to codenames.
const CephReleases = "https://docs.ceph.com/en/latest/releases/"
