// Package urls provides centralized constants for the documentation URLs
// shown in command help and failure hints.
//
// Usage:
//
//	import "github.com/cephinstaller/envstep/internal/urls"
//
//	fmt.Printf("For more information, see: %s\n", urls.ISOInstallGuide)
package urls
