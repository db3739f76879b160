// Package discovery finds ceph-installer services on the local network over mDNS.
//
// Install services advertise themselves as "_ceph-installer._tcp". A discovered
// Service carries the address and TXT metadata needed to build the base URL
// of the artifact HTTP client, and optionally the image directory the service
// serves.
//
// # Usage Example
//
//	svc, err := discovery.NewScanner().First(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := artifact.NewClient(svc.BaseURL())
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - The install service must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
