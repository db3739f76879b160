package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/spf13/cobra"

	"github.com/cephinstaller/envstep/internal/artifact"
	"github.com/cephinstaller/envstep/internal/config"
	"github.com/cephinstaller/envstep/internal/discovery"
	"github.com/cephinstaller/envstep/internal/environment"
	"github.com/cephinstaller/envstep/internal/ui"
	"github.com/cephinstaller/envstep/internal/urls"
)

var (
	imagesFormat   string
	readContents   bool
	discoverFormat string
	discoverWait   time.Duration
	saveService    bool
)

func init() {
	imagesCmd.Flags().StringVar(&imagesFormat, "format", "detailed", "Output format (detailed, json, yaml)")
	imagesCmd.Flags().BoolVar(&readContents, "contents", false, "Read each image and report its Ceph version")

	discoverCmd.Flags().StringVar(&discoverFormat, "format", "detailed", "Output format (detailed, json, yaml)")
	discoverCmd.Flags().DurationVar(&discoverWait, "timeout", 0, "Scan timeout (default from settings)")
	discoverCmd.Flags().BoolVar(&saveService, "save", false, "Save the first service found as the http backend")

	rootCmd.AddCommand(imagesCmd)
	rootCmd.AddCommand(discoverCmd)
}

// imagesCmd lists the ISO images the step would offer
var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "List the ISO images in the image directory",
	Long: `List the ISO images the environment step offers for an ISO install.

Only .iso files are shown. With --contents each image is read and the Ceph
version of its ceph-common package reported.`,
	Example: `  # List images with the configured backend
  ceph-env images

  # Include the Ceph version of each image
  ceph-env images --contents

  # Images offered by an install service, as JSON
  ceph-env images --url http://192.168.122.10:5001 --format json`,
	RunE: runImages,
}

// imageInfo describes one ISO image
type imageInfo struct {
	Name        string `json:"name" yaml:"name"`
	Path        string `json:"path" yaml:"path"`
	CephVersion string `json:"cephVersion,omitempty" yaml:"ceph_version,omitempty"`
	Error       string `json:"error,omitempty" yaml:"error,omitempty"`
}

func runImages(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	src, name, err := newSource(ctx, settings)
	if err != nil {
		return err
	}

	images, err := listImages(ctx, src, settings.ImageDir, readContents)
	if err != nil {
		p := ui.NewPrinter(os.Stderr)
		p.PrintError("Listing images failed", err, append(
			[]string{artifact.GetTroubleshootingHint(err)},
			"ISO setup: "+urls.ISOInstallGuide,
		))
		return fmt.Errorf("%w: %v", errReported, err)
	}

	if imagesFormat != "detailed" {
		out, err := encode(images, imagesFormat)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}

	p := ui.NewPrinter(os.Stdout)
	p.PrintHeader("ISO Images", "ceph-env images", []ui.Detail{
		{Key: "Source", Value: name},
		{Key: "Directory", Value: settings.ImageDir},
	})
	p.Newline()

	if len(images) == 0 {
		p.PrintWarning(environment.NoImagesSentinel, []ui.Detail{
			{Key: "Hint", Value: environment.GetTroubleshootingHint(environment.KindNoImages)},
		})
		return nil
	}

	details := make([]ui.Detail, 0, len(images))
	for _, img := range images {
		value := img.Path
		switch {
		case img.Error != "":
			value += "  (" + img.Error + ")"
		case img.CephVersion != "":
			value += "  (Ceph " + img.CephVersion + ")"
		}
		details = append(details, ui.Detail{Key: img.Name, Value: value})
	}
	p.PrintSuccess(fmt.Sprintf("Found %d image(s)", len(images)), details)
	return nil
}

// listImages lists the images in dir and, if withContents, reads each one
func listImages(ctx context.Context, src environment.Source, dir string, withContents bool) ([]imageInfo, error) {
	listing, err := src.ListDirectory(ctx, dir)
	if err != nil {
		return nil, err
	}

	names := environment.ParseImageListing(listing)
	images := make([]imageInfo, 0, len(names))
	for _, name := range names {
		img := imageInfo{Name: name, Path: path.Join(dir, name)}
		if withContents {
			content, err := src.ReadContents(ctx, img.Path)
			switch {
			case err != nil:
				img.Error = artifact.GetShortErrorMessage(err)
			default:
				if v, ok := environment.ExtractPackageVersion(content); ok {
					img.CephVersion = v
				} else {
					img.Error = "no ceph-common package"
				}
			}
		}
		images = append(images, img)
	}
	return images, nil
}

// discoverCmd finds install services over mDNS
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find install services on the local network",
	Long: `Find install services advertising ` + discovery.ServiceType + ` over mDNS.

With --save the first service found becomes the http backend in the
settings file. Set up a service: ` + urls.InstallServiceSetup,
	Example: `  # Scan with the default timeout
  ceph-env discover

  # Longer scan, then use the service found
  ceph-env discover --timeout 15s --save`,
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	timeout := settings.Discovery.Timeout
	if discoverWait > 0 {
		timeout = discoverWait
	}

	if discoverFormat == "detailed" {
		fmt.Printf("Scanning for install services (timeout: %s)...\n\n", timeout)
	}

	services, err := discovery.DiscoverServices(cmd.Context(), timeout)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if discoverFormat != "detailed" {
		out, err := encode(services, discoverFormat)
		if err != nil {
			return err
		}
		fmt.Print(out)
	} else {
		printServices(services)
	}

	if !saveService || len(services) == 0 {
		return nil
	}

	svc := services[0]
	if ui.IsTerminal(os.Stdin) {
		ok, err := ui.Confirm(cmd.Context(),
			"Use "+svc.BaseURL()+" as the install service?",
			"The http backend in the settings file will point at this service.")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Settings unchanged.")
			return nil
		}
	}
	return saveServiceSettings(settings, svc, configPath)
}

func printServices(services []*discovery.Service) {
	if len(services) == 0 {
		fmt.Println("No install services found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Check the install service is running on the admin host")
		fmt.Println("  - Multicast DNS must be allowed between this machine and the host")
		fmt.Println("  - Try increasing --timeout for slower networks")
		fmt.Println("  - Use --url to give the service address directly")
		return
	}

	fmt.Printf("Found %d service(s):\n\n", len(services))
	for i, svc := range services {
		fmt.Printf("%d. %s\n", i+1, svc.Instance)
		fmt.Printf("   Host:    %s\n", svc.Hostname)
		fmt.Printf("   URL:     %s\n", svc.BaseURL())
		if dir := svc.ImageDir(); dir != "" {
			fmt.Printf("   Images:  %s\n", dir)
		}
		fmt.Println()
	}
	fmt.Println("Use 'ceph-env --url <url>' to run the wizard against a service")
}

// saveServiceSettings makes svc the http backend and writes the settings file
func saveServiceSettings(s *config.Settings, svc *discovery.Service, path string) error {
	s.Backend = config.BackendHTTP
	s.Service.URL = svc.BaseURL()
	if dir := svc.ImageDir(); dir != "" {
		s.ImageDir = dir
	}
	if err := s.Save(path); err != nil {
		return err
	}
	fmt.Printf("Saved %s as the install service\n", s.Service.URL)
	return nil
}
