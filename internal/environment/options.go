package environment

// Field names a configurable field of the environment step.
type Field string

const (
	FieldSourceType    Field = "sourceType"
	FieldTargetVersion Field = "targetVersion"
	FieldClusterType   Field = "clusterType"
	FieldOSDType       Field = "osdType"
	FieldNetworkType   Field = "networkType"
	FieldOSDMode       Field = "osdMode"
	FieldInstallType   Field = "installType"
	FieldFlashUsage    Field = "flashUsage"
	FieldUsername      Field = "username"
	FieldPassword      Field = "password"
)

// Installation sources.
const (
	SourceRedHat       = "Red Hat"
	SourceISO          = "ISO"
	SourceCommunity    = "Community"
	SourceDistribution = "Distribution"
)

// Option values for the independent fields.
const (
	ClusterProduction  = "Production"
	ClusterDevelopment = "Development/POC"

	OSDBluestore = "Bluestore"
	OSDFilestore = "Filestore"

	NetworkIPv4 = "ipv4"

	OSDModeNone      = "None"
	OSDModeEncrypted = "Encrypted"

	InstallContainer = "Container"
	InstallRPM       = "RPM"

	FlashJournals = "Journals/Logs"
	FlashOSDData  = "OSD Data"
)

// DefaultImageDir is where the install service expects ISO images.
const DefaultImageDir = "/usr/share/ansible-runner-service/iso"

// MaxUsernameLength matches the RHN user name input limit.
const MaxUsernameLength = 20

// FieldOption describes one enumerated field: its label, allowed values and
// the help text shown next to it.
type FieldOption struct {
	Field       Field
	Label       string
	Options     []string
	Info        string
	Tooltip     string
	Horizontal  bool
	Description string
}

// Sources lists the installation sources in display order.
var Sources = []string{SourceRedHat, SourceISO, SourceCommunity, SourceDistribution}

// SourceOption is the installation source selector.
var SourceOption = FieldOption{
	Field:   FieldSourceType,
	Label:   "Installation Source",
	Options: Sources,
	Tooltip: "For an ISO install, the image must be in " + DefaultImageDir + "\nand have container_file_t SELINUX context",
}

// SimpleFields describes the fields without cross-field effects, in display order.
var SimpleFields = []FieldOption{
	{
		Field:   FieldClusterType,
		Label:   "Cluster Type",
		Options: []string{ClusterProduction, ClusterDevelopment},
		Tooltip: "Production mode applies strict configuration rules. To relax rules for\na developer or POC, use Development/POC mode",
	},
	{
		Field:      FieldNetworkType,
		Label:      "Network connectivity",
		Options:    []string{NetworkIPv4},
		Horizontal: true,
	},
	{
		Field:      FieldOSDType,
		Label:      "OSD type",
		Options:    []string{OSDBluestore, OSDFilestore},
		Tooltip:    "Bluestore is the default OSD type, offering more features and improved\nperformance. Filestore is supported as a legacy option only",
		Horizontal: true,
	},
	{
		Field:      FieldFlashUsage,
		Label:      "Flash Configuration",
		Options:    []string{FlashJournals, FlashOSDData},
		Info:       "Flash media (SSD or NVMe) can be used for all data, or as journal devices to improve the performance of slower devices (HDDs)",
		Tooltip:    "In Journal 'mode', the installation process will check HDD:Flash media\nratios against best practice",
		Horizontal: true,
	},
	{
		Field:      FieldOSDMode,
		Label:      "Encryption",
		Options:    []string{OSDModeNone, OSDModeEncrypted},
		Info:       "For added security, you may use at-rest encryption for your storage devices",
		Tooltip:    "Data encryption uses the Linux dmcrypt subsystem (LUKS1)",
		Horizontal: true,
	},
	{
		Field:      FieldInstallType,
		Label:      "Installation type",
		Options:    []string{InstallContainer, InstallRPM},
		Info:       "Ceph can be installed as lightweight container images, or as rpm packages. Container deployments offer service isolation enabling improved collocation and hardware utilization",
		Tooltip:    "Ceph containers are managed by systemd, and use CPU and RAM limits to optimize collocation",
		Horizontal: true,
	},
}

// CredentialsTooltip explains why RHN credentials are requested.
const CredentialsTooltip = "RHN credentials are needed to authenticate against\nthe Red Hat container registry"

// LookupSimpleField returns the option descriptor for an independent field.
func LookupSimpleField(f Field) (FieldOption, bool) {
	for _, opt := range SimpleFields {
		if opt.Field == f {
			return opt, true
		}
	}
	return FieldOption{}, false
}

// IsSimpleField reports whether f is one of the independent enumerated fields.
func IsSimpleField(f Field) bool {
	_, ok := LookupSimpleField(f)
	return ok
}

// Allows reports whether value is one of the option values.
func (o FieldOption) Allows(value string) bool {
	return contains(o.Options, value)
}

// RequiresCredentials reports whether a source needs RHN credentials.
func RequiresCredentials(source string) bool {
	return source == SourceRedHat || source == SourceISO
}

// Defaults holds the caller-supplied initial selections for a step.
// With the ISO source, TargetVersion names an image file; it is selected once
// the image directory listing contains it, otherwise the first image is used.
type Defaults struct {
	SourceType    string `yaml:"source_type" mapstructure:"source_type"`
	TargetVersion string `yaml:"target_version" mapstructure:"target_version"`
	ClusterType   string `yaml:"cluster_type" mapstructure:"cluster_type"`
	OSDType       string `yaml:"osd_type" mapstructure:"osd_type"`
	NetworkType   string `yaml:"network_type" mapstructure:"network_type"`
	OSDMode       string `yaml:"osd_mode" mapstructure:"osd_mode"`
	InstallType   string `yaml:"install_type" mapstructure:"install_type"`
	FlashUsage    string `yaml:"flash_usage" mapstructure:"flash_usage"`
}

// DefaultSelections returns the built-in defaults.
func DefaultSelections() Defaults {
	return Defaults{
		SourceType:    SourceRedHat,
		TargetVersion: "RHCS 4",
		ClusterType:   ClusterProduction,
		OSDType:       OSDBluestore,
		NetworkType:   NetworkIPv4,
		OSDMode:       OSDModeNone,
		InstallType:   InstallContainer,
		FlashUsage:    FlashJournals,
	}
}

// withFallbacks fills empty values from the built-in defaults.
func (d Defaults) withFallbacks() Defaults {
	base := DefaultSelections()
	pick := func(v, fallback string) string {
		if v == "" {
			return fallback
		}
		return v
	}
	return Defaults{
		SourceType:    pick(d.SourceType, base.SourceType),
		TargetVersion: d.TargetVersion,
		ClusterType:   pick(d.ClusterType, base.ClusterType),
		OSDType:       pick(d.OSDType, base.OSDType),
		NetworkType:   pick(d.NetworkType, base.NetworkType),
		OSDMode:       pick(d.OSDMode, base.OSDMode),
		InstallType:   pick(d.InstallType, base.InstallType),
		FlashUsage:    pick(d.FlashUsage, base.FlashUsage),
	}
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
