package environment

import (
	"path"
	"strings"
)

// NoImagesSentinel is the single ISO catalog entry when no image was found.
const NoImagesSentinel = "No ISO images found"

// Catalog maps each installation source to its ordered list of versions.
// A Catalog is never modified after construction; WithImages returns a copy.
type Catalog struct {
	versions map[string][]string
}

// NewCatalog returns the static catalog with the ISO entry set to the sentinel.
func NewCatalog() *Catalog {
	return &Catalog{
		versions: map[string][]string{
			SourceRedHat:       {"RHCS 4"},
			SourceISO:          {NoImagesSentinel},
			SourceCommunity:    {"14 (Nautilus)", "13 (Mimic)", "12 (Luminous)"},
			SourceDistribution: {"13 (Mimic)", "12 (Luminous)"},
		},
	}
}

// Versions returns a copy of the version list for a source.
func (c *Catalog) Versions(source string) []string {
	list := c.versions[source]
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// First returns the first version listed for a source.
func (c *Catalog) First(source string) string {
	list := c.versions[source]
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

// Contains reports whether version is listed for source.
func (c *Catalog) Contains(source, version string) bool {
	return contains(c.versions[source], version)
}

// HasImages reports whether at least one ISO image is available.
func (c *Catalog) HasImages() bool {
	return c.First(SourceISO) != NoImagesSentinel
}

// WithImages returns a copy of the catalog whose ISO entry lists images.
// An empty list stores the sentinel.
func (c *Catalog) WithImages(images []string) *Catalog {
	next := &Catalog{versions: make(map[string][]string, len(c.versions))}
	for k, v := range c.versions {
		next.versions[k] = v
	}
	if len(images) == 0 {
		next.versions[SourceISO] = []string{NoImagesSentinel}
	} else {
		list := make([]string, len(images))
		copy(list, images)
		next.versions[SourceISO] = list
	}
	return next
}

// ParseImageListing extracts ISO file names from a whitespace-separated list
// of paths. Only names ending in .iso (any case) are kept, in listing order,
// reduced to their final path component.
func ParseImageListing(listing string) []string {
	var images []string
	for _, p := range strings.Fields(listing) {
		if !strings.HasSuffix(strings.ToUpper(p), ".ISO") {
			continue
		}
		name := path.Base(strings.ReplaceAll(p, "\\", "/"))
		if name == "" || name == "." || name == "/" {
			continue
		}
		images = append(images, name)
	}
	return images
}
