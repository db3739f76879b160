package discovery

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

// fakeBrowser replays entries the way zeroconf delivers them
type fakeBrowser struct {
	entries []*zeroconf.ServiceEntry
	err     error
	service string
}

func (f *fakeBrowser) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	f.service = service
	if f.err != nil {
		return f.err
	}
	go func() {
		defer close(entries)
		for _, e := range f.entries {
			select {
			case entries <- e:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return nil
}

func scannerWith(b *fakeBrowser, timeout time.Duration) *Scanner {
	return &Scanner{
		Timeout:    timeout,
		NewBrowser: func() (Browser, error) { return b, nil },
	}
}

func entry(host string, port int, ip string, txt ...string) *zeroconf.ServiceEntry {
	e := zeroconf.NewServiceEntry("ceph-installer on "+host, ServiceType, ServiceDomain)
	e.HostName = host
	e.Port = port
	if ip != "" {
		e.AddrIPv4 = []net.IP{net.ParseIP(ip)}
	}
	e.Text = txt
	return e
}

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
		wantURL  string
	}{
		{
			name:     "IPv4 with port",
			entry:    entry("admin01.local.", 5001, "192.168.4.16"),
			wantIP:   "192.168.4.16",
			wantPort: 5001,
			wantURL:  "http://192.168.4.16:5001",
		},
		{
			name:     "no port specified (should default to 5001)",
			entry:    entry("admin02.local.", 0, "10.0.0.5"),
			wantIP:   "10.0.0.5",
			wantPort: DefaultPort,
			wantURL:  "http://10.0.0.5:5001",
		},
		{
			name:     "https advertised",
			entry:    entry("admin03.local.", 8443, "10.0.0.6", "scheme=https"),
			wantIP:   "10.0.0.6",
			wantPort: 8443,
			wantURL:  "https://10.0.0.6:8443",
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				HostName: "admin04.local.",
				Port:     5001,
				AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
			},
			wantIP:   "fe80::1",
			wantPort: 5001,
			wantURL:  "http://[fe80::1]:5001",
		},
		{
			name: "both families (should prefer IPv4)",
			entry: &zeroconf.ServiceEntry{
				HostName: "admin05.local.",
				Port:     5001,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.50")},
				AddrIPv6: []net.IP{net.ParseIP("fe80::2")},
			},
			wantIP:   "192.168.1.50",
			wantPort: 5001,
			wantURL:  "http://192.168.1.50:5001",
		},
		{
			name:    "empty hostname",
			entry:   entry("", 5001, "192.168.1.1"),
			wantNil: true,
		},
		{
			name:    "no IP address",
			entry:   entry("admin06.local.", 5001, ""),
			wantNil: true,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := parseServiceEntry(tt.entry)

			if tt.wantNil {
				if svc != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", svc)
				}
				return
			}
			if svc == nil {
				t.Fatal("parseServiceEntry() = nil, want service")
			}
			if svc.IP != tt.wantIP {
				t.Errorf("IP = %v, want %v", svc.IP, tt.wantIP)
			}
			if svc.Port != tt.wantPort {
				t.Errorf("Port = %v, want %v", svc.Port, tt.wantPort)
			}
			if svc.BaseURL() != tt.wantURL {
				t.Errorf("BaseURL() = %v, want %v", svc.BaseURL(), tt.wantURL)
			}
			if svc.Hostname != tt.entry.HostName {
				t.Errorf("Hostname = %v, want %v", svc.Hostname, tt.entry.HostName)
			}
			if time.Since(svc.DiscoveredAt) > time.Second {
				t.Errorf("DiscoveredAt is not recent: %v", svc.DiscoveredAt)
			}
		})
	}
}

func TestParseServiceEntry_Metadata(t *testing.T) {
	svc := parseServiceEntry(entry("admin01.local.", 5001, "192.168.4.16",
		"version=1.4.0", "imagedir=/srv/iso", "flag"))
	if svc == nil {
		t.Fatal("parseServiceEntry() = nil")
	}

	expected := map[string]string{
		"version":  "1.4.0",
		"imagedir": "/srv/iso",
		"flag":     "",
	}
	if len(svc.Metadata) != len(expected) {
		t.Errorf("Metadata has %d entries, want %d", len(svc.Metadata), len(expected))
	}
	for key, want := range expected {
		if got, ok := svc.Metadata[key]; !ok || got != want {
			t.Errorf("Metadata[%q] = %q (present %v), want %q", key, got, ok, want)
		}
	}
	if svc.ImageDir() != "/srv/iso" {
		t.Errorf("ImageDir() = %q", svc.ImageDir())
	}
	if (&Service{}).GetMetadata("anything") != "" {
		t.Error("GetMetadata() with nil map should be empty")
	}
}

func TestService_String(t *testing.T) {
	svc := &Service{Instance: "ceph-installer", Hostname: "admin01.local.", IP: "10.0.0.1", Port: 5001}
	want := `Install service "ceph-installer" (admin01.local.) at http://10.0.0.1:5001`
	if svc.String() != want {
		t.Errorf("String() = %v, want %v", svc.String(), want)
	}
}

func TestScanner_Scan(t *testing.T) {
	b := &fakeBrowser{entries: []*zeroconf.ServiceEntry{
		entry("admin01.local.", 5001, "10.0.0.1"),
		entry("printer.local.", 631, ""),
		entry("admin01.local.", 5001, "10.0.0.1"), // repeated announcement
		entry("admin02.local.", 5001, "10.0.0.2"),
	}}

	services, err := scannerWith(b, 200*time.Millisecond).Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if b.service != ServiceType {
		t.Errorf("browsed %q, want %q", b.service, ServiceType)
	}
	if len(services) != 2 {
		t.Fatalf("Scan() found %d services, want 2", len(services))
	}
	if services[0].IP != "10.0.0.1" || services[1].IP != "10.0.0.2" {
		t.Errorf("Scan() = %v, %v", services[0], services[1])
	}
}

func TestScanner_ScanBrowseError(t *testing.T) {
	b := &fakeBrowser{err: errors.New("no multicast interface")}
	if _, err := scannerWith(b, 50*time.Millisecond).Scan(context.Background()); err == nil {
		t.Error("Scan() expected error")
	}
}

func TestScanner_First(t *testing.T) {
	b := &fakeBrowser{entries: []*zeroconf.ServiceEntry{
		entry("", 5001, "10.0.0.9"),
		entry("admin01.local.", 5001, "10.0.0.1"),
		entry("admin02.local.", 5001, "10.0.0.2"),
	}}

	start := time.Now()
	svc, err := scannerWith(b, 5*time.Second).First(context.Background())
	if err != nil {
		t.Fatalf("First() error = %v", err)
	}
	if svc.IP != "10.0.0.1" {
		t.Errorf("First() = %v, want admin01", svc)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("First() should return as soon as a service answers")
	}
}

func TestScanner_FirstTimeout(t *testing.T) {
	b := &fakeBrowser{}
	if _, err := scannerWith(b, 50*time.Millisecond).First(context.Background()); err == nil {
		t.Error("First() expected timeout error")
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("NewScanner().Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}
