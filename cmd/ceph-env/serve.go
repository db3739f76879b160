package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cephinstaller/envstep/internal/config"
	"github.com/cephinstaller/envstep/internal/logging"
	"github.com/cephinstaller/envstep/internal/server"
)

var (
	listenAddr  string
	forceConfig bool
)

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address (default from settings, :8080)")

	configInitCmd.Flags().BoolVar(&forceConfig, "force", false, "Overwrite an existing settings file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

// serveCmd runs environment steps for web front ends
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the environment step over websockets",
	Long: `Serve the environment step to web front ends.

Each websocket connection on /ws gets its own step. Clients send field edits
and advance requests as JSON and receive the step state after every event,
then the completed environment once. Metrics are on /metrics and a health
check on /healthz.`,
	Example: `  # Serve with the configured backend
  ceph-env serve

  # Serve on another port with debug logs
  ceph-env serve --addr :9090 --log-level debug`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := settings.Server.Address
	if listenAddr != "" {
		addr = listenAddr
	}

	src, name, err := newSource(cmd.Context(), settings)
	if err != nil {
		return err
	}

	srv, err := server.New(&server.Config{
		Address:  addr,
		ImageDir: settings.ImageDir,
		Defaults: settings.Defaults,
		Source:   src,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logging.Info("Serving environment step",
		zap.String("addr", addr),
		zap.String("source", name),
	)
	fmt.Printf("Serving environment step on %s (images: %s %s)\n", addr, name, settings.ImageDir)
	return srv.Start()
}

// configCmd groups the settings file commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the settings file",
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write a settings file with default values",
	Annotations: map[string]string{skipSettings: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.CreateDefaultConfig(configPath, forceConfig)
		if err != nil {
			return err
		}
		fmt.Printf("Settings written to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Long: `Print the settings after defaults, the settings file, CEPH_ENV_*
environment variables and flags are applied. Secrets are never printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(settings)
		if err != nil {
			return fmt.Errorf("failed to marshal settings: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Print the settings file location",
	Annotations: map[string]string{skipSettings: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			var err error
			if path, err = config.GetConfigPath(); err != nil {
				return err
			}
		}
		fmt.Println(path)
		return nil
	},
}
