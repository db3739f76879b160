package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Service represents an install service discovered on the network
type Service struct {
	// Instance is the advertised instance name (e.g., "ceph-installer on admin01")
	Instance string `json:"instance" yaml:"instance"`

	// Hostname is the mDNS hostname (e.g., "admin01.local.")
	Hostname string `json:"hostname" yaml:"hostname"`

	// IP is the service address, IPv4 preferred
	IP string `json:"ip" yaml:"ip"`

	// Port is the HTTP port (5001 unless advertised otherwise)
	Port int `json:"port" yaml:"port"`

	// Metadata contains the mDNS TXT record data
	// Known keys: "scheme=https", "version=1.4.0", "imagedir=/usr/share/..."
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// DiscoveredAt is when the service was discovered
	DiscoveredAt time.Time `json:"discoveredAt" yaml:"discovered_at"`
}

// String returns a human-readable string representation of the service
func (s *Service) String() string {
	return fmt.Sprintf("Install service %q (%s) at %s", s.Instance, s.Hostname, s.BaseURL())
}

// BaseURL returns the HTTP base URL for the artifact client
func (s *Service) BaseURL() string {
	scheme := s.GetMetadata("scheme")
	if scheme == "" {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(s.IP, strconv.Itoa(s.Port)))
}

// ImageDir returns the image directory advertised by the service, if any
func (s *Service) ImageDir() string {
	return s.GetMetadata("imagedir")
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (s *Service) GetMetadata(key string) string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata[key]
}
