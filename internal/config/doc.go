// Package config provides configuration management for ceph-env.
//
// Settings hold the caller-supplied defaults for the environment step, the
// ISO image directory and the artifact backend (local filesystem, install
// service HTTP API or S3-compatible object storage). The configuration
// follows OS-specific conventions for storage location.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/ceph-env/config.yaml or $HOME/.config/ceph-env/config.yaml
//   - macOS: $HOME/.config/ceph-env/config.yaml
//   - Windows: %LOCALAPPDATA%\ceph-env\config.yaml
//
// # Precedence
//
// Load uses viper: CEPH_ENV_* environment variables override the file, which
// overrides the built-in defaults. Nested keys use underscores, so
// defaults.source_type is CEPH_ENV_DEFAULTS_SOURCE_TYPE.
//
// # Security
//
// IMPORTANT: RHN credentials are never part of Settings. The install service
// password and the S3 secret key are read from the environment only and are
// excluded when the file is written.
//
// # Usage Example
//
//	settings, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	settings.Backend = config.BackendHTTP
//	settings.Service.URL = "http://installer:5001"
//	if err := settings.Save(""); err != nil {
//	    log.Fatal(err)
//	}
package config
