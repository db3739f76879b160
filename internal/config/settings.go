package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	appName    = "ceph-env"
	configFile = "config.yaml"

	// EnvPrefix prefixes every environment variable override, e.g. CEPH_ENV_BACKEND
	EnvPrefix = "CEPH_ENV"
)

// Mutex for thread-safe file operations
var fileMutex sync.Mutex

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/ceph-env or $HOME/.config/ceph-env
//   - macOS: $HOME/.config/ceph-env (following XDG convention on macOS)
//   - Windows: %LOCALAPPDATA%\ceph-env
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetConfigPath returns the full path to the configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// Load reads settings with precedence: CEPH_ENV_* environment variables >
// config file > defaults. An empty path uses GetConfigPath; a missing file is
// not an error.
func Load(path string) (*Settings, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, NewSettings())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets never come from the file, so they have no default to bind through
	for _, key := range []string{"service.password", "s3.secret_key"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s env: %w", key, err)
		}
	}

	if fileExists(path) {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

func setDefaults(v *viper.Viper, s *Settings) {
	v.SetDefault("version", s.Version)
	v.SetDefault("image_dir", s.ImageDir)
	v.SetDefault("backend", s.Backend)

	v.SetDefault("defaults.source_type", s.Defaults.SourceType)
	v.SetDefault("defaults.target_version", s.Defaults.TargetVersion)
	v.SetDefault("defaults.cluster_type", s.Defaults.ClusterType)
	v.SetDefault("defaults.osd_type", s.Defaults.OSDType)
	v.SetDefault("defaults.network_type", s.Defaults.NetworkType)
	v.SetDefault("defaults.osd_mode", s.Defaults.OSDMode)
	v.SetDefault("defaults.install_type", s.Defaults.InstallType)
	v.SetDefault("defaults.flash_usage", s.Defaults.FlashUsage)

	v.SetDefault("local.list_command", s.Local.ListCommand)

	v.SetDefault("service.url", "")
	v.SetDefault("service.username", "")
	v.SetDefault("service.timeout", s.Service.Timeout)
	v.SetDefault("service.max_retries", s.Service.MaxRetries)
	v.SetDefault("service.cache_ttl", s.Service.CacheTTL)

	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.path_style", false)

	v.SetDefault("server.address", s.Server.Address)
	v.SetDefault("discovery.timeout", s.Discovery.Timeout)
	v.SetDefault("log.level", "")
	v.SetDefault("log.file", "")
}

// Save writes the settings to path (GetConfigPath when empty).
// Performs an atomic write to prevent corruption on crash.
func (s *Settings) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	// Create directory with user-only permissions (0700)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# ceph-env Configuration File
# Defaults and artifact source settings for the environment step.
#
# Security Note: RHN credentials, the install service password and the
# object storage secret key are NEVER stored in this file. Set them through
# CEPH_ENV_SERVICE_PASSWORD and CEPH_ENV_S3_SECRET_KEY or enter them when asked.
#
# Location: ` + path + `

`)
	data = append(header, data...)

	// Write to temporary file first (atomic write)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}

// CreateDefaultConfig writes a default configuration file to path unless one
// already exists. It returns the path written.
func CreateDefaultConfig(path string, force bool) (string, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return "", fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}
	if fileExists(path) && !force {
		return path, fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
	}
	return path, NewSettings().Save(path)
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
