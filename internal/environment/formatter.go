package environment

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output formats accepted by Format.
const (
	FormatDetailed = "detailed"
	FormatCompact  = "compact"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
)

// Summary returns a one-line summary of the snapshot
func (snap Snapshot) Summary() string {
	version := snap.CephVersion
	if version == "" {
		version = "unresolved"
	}
	return fmt.Sprintf("%s %s -> Ceph %s (%s, %s)",
		snap.SourceType, snap.TargetVersion, version, snap.InstallType, snap.ClusterType)
}

// FormatSource returns the installation source section
func (snap Snapshot) FormatSource() string {
	var b strings.Builder

	b.WriteString("=== Installation Source ===\n")
	b.WriteString(fmt.Sprintf("Source:         %s\n", snap.SourceType))
	b.WriteString(fmt.Sprintf("Target Version: %s\n", snap.TargetVersion))
	if snap.CephVersion != "" {
		b.WriteString(fmt.Sprintf("Ceph Version:   %s\n", snap.CephVersion))
	} else {
		b.WriteString("Ceph Version:   (not resolved)\n")
	}
	if RequiresCredentials(snap.SourceType) {
		b.WriteString(fmt.Sprintf("RHN User:       %s\n", orNone(snap.Credentials.Username)))
		b.WriteString(fmt.Sprintf("RHN Password:   %s\n", orNone(snap.Credentials.Password)))
	}

	return b.String()
}

// FormatCluster returns the cluster options section
func (snap Snapshot) FormatCluster() string {
	var b strings.Builder

	b.WriteString("=== Cluster Options ===\n")
	b.WriteString(fmt.Sprintf("Cluster Type:   %s\n", snap.ClusterType))
	b.WriteString(fmt.Sprintf("Network:        %s\n", snap.NetworkType))
	b.WriteString(fmt.Sprintf("OSD Type:       %s\n", snap.OSDType))
	b.WriteString(fmt.Sprintf("Flash Usage:    %s\n", snap.FlashUsage))
	b.WriteString(fmt.Sprintf("Encryption:     %s\n", snap.OSDMode))
	b.WriteString(fmt.Sprintf("Install Type:   %s\n", snap.InstallType))

	return b.String()
}

// FormatCompact returns a compact multi-line format suitable for terminal display
func (snap Snapshot) FormatCompact() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Source:  %s %s\n", snap.SourceType, snap.TargetVersion))
	b.WriteString(fmt.Sprintf("Ceph:    %s\n", orNone(snap.CephVersion)))
	b.WriteString(fmt.Sprintf("Cluster: %s, %s, %s\n", snap.ClusterType, snap.OSDType, snap.NetworkType))
	b.WriteString(fmt.Sprintf("Install: %s [flash: %s] [encryption: %s]\n", snap.InstallType, snap.FlashUsage, snap.OSDMode))
	if snap.StatusLevel == StatusError {
		b.WriteString(fmt.Sprintf("Error:   %s\n", snap.StatusMessage))
	}

	return b.String()
}

// FormatDetailed returns every section of the snapshot
func (snap Snapshot) FormatDetailed() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString("╔════════════════════════════════════════════════════════════════╗\n")
	b.WriteString("║              CEPH CLUSTER ENVIRONMENT                          ║\n")
	b.WriteString("╚════════════════════════════════════════════════════════════════╝\n")
	b.WriteString("\n")

	b.WriteString(snap.FormatSource())
	b.WriteString("\n")
	b.WriteString(snap.FormatCluster())
	if snap.StatusLevel == StatusError {
		b.WriteString("\n")
		b.WriteString("=== Status ===\n")
		b.WriteString(snap.StatusMessage + "\n")
	}

	return b.String()
}

// Format renders the snapshot in one of the output formats. The password is
// always masked.
func (snap Snapshot) Format(format string) (string, error) {
	snap = snap.Redacted()
	switch format {
	case FormatDetailed, "":
		return snap.FormatDetailed(), nil
	case FormatCompact:
		return snap.FormatCompact(), nil
	case FormatJSON:
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode snapshot: %w", err)
		}
		return string(data) + "\n", nil
	case FormatYAML:
		data, err := yaml.Marshal(snap)
		if err != nil {
			return "", fmt.Errorf("failed to encode snapshot: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unknown format %q (valid: %s, %s, %s, %s)",
			format, FormatDetailed, FormatCompact, FormatJSON, FormatYAML)
	}
}

// FormatOptions lists every field with its accepted values and help text
func FormatOptions() string {
	var b strings.Builder

	write := func(opt FieldOption) {
		b.WriteString(fmt.Sprintf("%s (%s): %s\n", opt.Label, opt.Field, strings.Join(opt.Options, ", ")))
		if opt.Info != "" {
			b.WriteString("  " + opt.Info + "\n")
		}
		if opt.Tooltip != "" {
			b.WriteString("  " + strings.ReplaceAll(opt.Tooltip, "\n", " ") + "\n")
		}
	}

	write(SourceOption)
	for _, opt := range SimpleFields {
		write(opt)
	}

	return b.String()
}

func orNone(v string) string {
	if v == "" {
		return "(none)"
	}
	return v
}
