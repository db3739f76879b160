package config

import (
	"fmt"
	"time"

	"github.com/cephinstaller/envstep/internal/artifact"
	"github.com/cephinstaller/envstep/internal/environment"
)

// Artifact backends.
const (
	BackendLocal = "local"
	BackendHTTP  = "http"
	BackendS3    = "s3"
)

// CurrentVersion is the settings file format version.
const CurrentVersion = 1

// Settings represents the entire ceph-env configuration file.
type Settings struct {
	Version   int                  `mapstructure:"version" yaml:"version"`
	ImageDir  string               `mapstructure:"image_dir" yaml:"image_dir"`
	Backend   string               `mapstructure:"backend" yaml:"backend"` // local, http or s3
	Defaults  environment.Defaults `mapstructure:"defaults" yaml:"defaults"`
	Local     LocalSettings        `mapstructure:"local" yaml:"local"`
	Service   ServiceSettings      `mapstructure:"service" yaml:"service"`
	S3        S3Settings           `mapstructure:"s3" yaml:"s3"`
	Server    ServerSettings       `mapstructure:"server" yaml:"server"`
	Discovery DiscoverySettings    `mapstructure:"discovery" yaml:"discovery"`
	Log       LogSettings          `mapstructure:"log" yaml:"log"`
}

// LocalSettings configures the local filesystem backend.
type LocalSettings struct {
	ListCommand []string `mapstructure:"list_command" yaml:"list_command,omitempty"` // "{path}" is the image path
}

// ServiceSettings configures the install service HTTP backend.
// Password is read from CEPH_ENV_SERVICE_PASSWORD only and never written to disk.
type ServiceSettings struct {
	URL        string        `mapstructure:"url" yaml:"url,omitempty"`
	Username   string        `mapstructure:"username" yaml:"username,omitempty"`
	Password   string        `mapstructure:"password" yaml:"-"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// S3Settings configures the object storage backend.
// SecretKey is read from CEPH_ENV_S3_SECRET_KEY only and never written to disk.
type S3Settings struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket,omitempty"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	Region    string `mapstructure:"region" yaml:"region,omitempty"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key,omitempty"`
	SecretKey string `mapstructure:"secret_key" yaml:"-"`
	PathStyle bool   `mapstructure:"path_style" yaml:"path_style"`
}

// ServerSettings configures the websocket server.
type ServerSettings struct {
	Address string `mapstructure:"address" yaml:"address"`
}

// DiscoverySettings configures mDNS discovery of install services.
type DiscoverySettings struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// LogSettings configures logging. Empty level keeps logging silent.
type LogSettings struct {
	Level string `mapstructure:"level" yaml:"level,omitempty"`
	File  string `mapstructure:"file" yaml:"file,omitempty"`
}

// NewSettings creates Settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Version:  CurrentVersion,
		ImageDir: environment.DefaultImageDir,
		Backend:  BackendLocal,
		Defaults: environment.DefaultSelections(),
		Local: LocalSettings{
			ListCommand: append([]string(nil), artifact.DefaultListCommand...),
		},
		Service: ServiceSettings{
			Timeout:    artifact.DefaultTimeout,
			MaxRetries: artifact.DefaultMaxRetries,
			CacheTTL:   artifact.DefaultCacheDuration,
		},
		Server: ServerSettings{
			Address: ":8080",
		},
		Discovery: DiscoverySettings{
			Timeout: 5 * time.Second,
		},
	}
}

// Validate checks the settings for values the step cannot run with.
func (s *Settings) Validate() error {
	if s.Version != CurrentVersion {
		return fmt.Errorf("unsupported config version: %d (expected %d)", s.Version, CurrentVersion)
	}
	if s.ImageDir == "" {
		return fmt.Errorf("image_dir must not be empty")
	}

	switch s.Backend {
	case BackendLocal:
	case BackendHTTP:
		if s.Service.URL == "" {
			return fmt.Errorf("backend %q requires service.url (or run 'ceph-env discover')", s.Backend)
		}
	case BackendS3:
		if s.S3.Bucket == "" {
			return fmt.Errorf("backend %q requires s3.bucket", s.Backend)
		}
	default:
		return fmt.Errorf("unknown backend %q (valid: %s, %s, %s)", s.Backend, BackendLocal, BackendHTTP, BackendS3)
	}

	if _, err := environment.NewState(nil, s.Defaults); err != nil {
		return fmt.Errorf("invalid defaults: %w", err)
	}
	return nil
}
