// Ceph-env runs the environment step of a Ceph cluster deployment.
//
// It collects the installation source, target version, registry credentials
// and cluster options, checks that the selection can be installed (including
// reading the Ceph version from an ISO image) and prints the resulting
// environment snapshot for the next deployment step.
//
// Usage:
//
//	ceph-env [command] [flags]
//
// Running without arguments launches the interactive wizard.
// See 'ceph-env --help' for available commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cephinstaller/envstep/internal/config"
	"github.com/cephinstaller/envstep/internal/logging"
	"github.com/cephinstaller/envstep/internal/urls"
	"github.com/cephinstaller/envstep/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// skipSettings marks commands that run without loading the settings file
const skipSettings = "skip-settings"

// Global flags
var (
	configPath  string
	logLevel    string
	logFile     string
	backendFlag string
	serviceURL  string
	imageDir    string
)

// settings is loaded once before any command that needs it runs
var settings *config.Settings

var rootCmd = &cobra.Command{
	Use:   "ceph-env",
	Short: "Ceph cluster environment step",
	Long: `Select and validate the environment of a Ceph cluster deployment.

Chooses the installation source (Red Hat, ISO, Community or Distribution),
the Ceph version, registry credentials and cluster options, then checks that
the selection is ready to install. For ISO installs the Ceph version is read
from the ceph-common package on the image.

If no command is specified, the interactive wizard will launch automatically.

Documentation: ` + urls.ProjectHome,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipSettings] == "true" {
			return logging.Initialize(logLevel, logFile)
		}
		return loadSettings(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: run wizard when no subcommand provided
		return runWizard(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Settings file (default $XDG_CONFIG_HOME/ceph-env/config.yaml)")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")
	pf.StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")
	pf.StringVar(&backendFlag, "backend", "", "Artifact backend (local, http, s3)")
	pf.StringVar(&serviceURL, "url", "", "Install service URL, implies --backend http")
	pf.StringVar(&imageDir, "image-dir", "", "Directory holding ISO images")

	rootCmd.AddCommand(versionCmd)
}

// loadSettings reads the settings file, applies flag overrides and starts logging
func loadSettings(cmd *cobra.Command) error {
	s, err := config.Load(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("image-dir") {
		s.ImageDir = imageDir
	}
	if flags.Changed("url") {
		s.Backend = config.BackendHTTP
		s.Service.URL = serviceURL
	}
	if flags.Changed("backend") {
		s.Backend = backendFlag
	}
	if err := s.Validate(); err != nil {
		return err
	}

	level, file := s.Log.Level, s.Log.File
	if logLevel != "" {
		level = logLevel
	}
	if logFile != "" {
		file = logFile
	}
	if err := logging.Initialize(level, file); err != nil {
		return err
	}

	settings = s
	return nil
}

var versionFormat string

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print version information",
	Annotations: map[string]string{skipSettings: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionFormat == "text" {
			fmt.Printf("ceph-env %s\n", version.Full())
			return nil
		}
		out, err := encode(version.Get(), versionFormat)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "text", "Output format (text, json, yaml)")
}
