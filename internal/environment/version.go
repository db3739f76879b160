package environment

import (
	"strings"
	"unicode"
)

// PackageMarker identifies the package whose file name carries the Ceph version.
const PackageMarker = "ceph-common"

// productAliases maps product release labels to the Ceph major version they ship.
var productAliases = map[string]string{
	"RHCS 4": "14",
}

// ExtractVersionToken maps a version label to its numeric version token.
//
//	"14 (Nautilus)" -> "14"
//	"RHCS 4"        -> "14"
//	"15.2.4"        -> "15.2.4"
//
// Product aliases are resolved first. Otherwise the parenthetical codename is
// dropped and the first token starting with a digit is returned, cut at the
// first character that is neither a digit nor a dot. Returns "" when the label
// holds no numeric token.
func ExtractVersionToken(label string) string {
	label = strings.TrimSpace(label)
	if alias, ok := productAliases[label]; ok {
		return alias
	}
	if i := strings.Index(label, "("); i >= 0 {
		label = label[:i]
	}
	for _, tok := range strings.Fields(label) {
		if !unicode.IsDigit(rune(tok[0])) {
			continue
		}
		end := strings.IndexFunc(tok, func(r rune) bool {
			return !unicode.IsDigit(r) && r != '.'
		})
		if end >= 0 {
			tok = tok[:end]
		}
		return strings.TrimRight(tok, ".")
	}
	return ""
}

// ExtractPackageVersion scans an image content listing for the ceph-common
// package and returns the version segment of its file name.
//
//	20178948 /Tools/ceph-common-14.2.2-16.ga7a380a.1.el8cp.x86_64.rpm -> "14"
//
// Lines are scanned in listing order and only the first line containing the
// marker is used. The file name is the text after the last '/' or '\'. The
// version is whatever follows the first "ceph-common-" up to the first '.'.
// A file name without "ceph-common-" or an empty result is reported as no match.
func ExtractPackageVersion(listing string) (string, bool) {
	for _, line := range strings.Split(listing, "\n") {
		if !strings.Contains(line, PackageMarker) {
			continue
		}
		name := strings.TrimSpace(line)
		if i := strings.LastIndexAny(name, `/\`); i >= 0 {
			name = name[i+1:]
		}
		i := strings.Index(name, PackageMarker+"-")
		if i < 0 {
			return "", false
		}
		name = name[i+len(PackageMarker)+1:]
		if i := strings.Index(name, "."); i >= 0 {
			name = name[:i]
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return "", false
		}
		return name, true
	}
	return "", false
}
