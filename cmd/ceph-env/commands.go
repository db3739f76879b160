package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cephinstaller/envstep/internal/artifact"
	"github.com/cephinstaller/envstep/internal/discovery"
	"github.com/cephinstaller/envstep/internal/environment"
	"github.com/cephinstaller/envstep/internal/ui"
	"github.com/cephinstaller/envstep/internal/urls"
	"github.com/cephinstaller/envstep/internal/wizard/tui"
)

// errReported marks failures already shown to the user in a result box
var errReported = errors.New("reported")

// passwordEnvVar supplies the RHN password to non-interactive checks
const passwordEnvVar = "CEPH_ENV_RHN_PASSWORD"

// Command flags
var (
	outputFormat   string
	wizardDiscover bool
	noPrompt       bool
	quiet          bool

	sourceFlag   string
	versionFlag  string
	usernameFlag string
	passwordFlag string
	fieldFlags   = make(map[environment.Field]*string)
)

func init() {
	rootCmd.Flags().BoolVar(&wizardDiscover, "discover", false, "Find the install service over mDNS before starting")
	rootCmd.Flags().StringVar(&outputFormat, "format", environment.FormatDetailed, "Output format (detailed, compact, json, yaml)")

	wizardCmd.Flags().BoolVar(&wizardDiscover, "discover", false, "Find the install service over mDNS before starting")
	wizardCmd.Flags().StringVar(&outputFormat, "format", environment.FormatDetailed, "Output format (detailed, compact, json, yaml)")

	f := checkCmd.Flags()
	f.StringVar(&outputFormat, "format", environment.FormatDetailed, "Output format (detailed, compact, json, yaml)")
	f.StringVar(&sourceFlag, "source", "", "Installation source ("+strings.Join(environment.Sources, ", ")+")")
	f.StringVar(&versionFlag, "version", "", "Target version (a catalog label, or the ISO file name)")
	f.StringVar(&usernameFlag, "username", "", "RHN user name")
	f.StringVar(&passwordFlag, "password", "", "RHN password (or set "+passwordEnvVar+")")
	f.BoolVar(&noPrompt, "no-prompt", false, "Never prompt for missing credentials")
	f.BoolVarP(&quiet, "quiet", "q", false, "Print only the result")
	for _, opt := range environment.SimpleFields {
		value := new(string)
		fieldFlags[opt.Field] = value
		f.StringVar(value, flagName(opt.Field), "", fmt.Sprintf("%s (%s)", opt.Label, strings.Join(opt.Options, ", ")))
	}

	rootCmd.AddCommand(wizardCmd)
	rootCmd.AddCommand(checkCmd)
}

// flagName turns a field name like "osdType" into "osd-type"
func flagName(f environment.Field) string {
	var b strings.Builder
	for _, r := range string(f) {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('-')
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// wizardCmd launches the interactive TUI wizard
var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Launch the interactive environment wizard",
	Long: `Launch an interactive TUI for the environment step.

The wizard lists the ISO images, lets you pick the installation source,
version, registry credentials and cluster options, and validates the
selection when you press Next. The completed environment is printed when
the wizard closes.`,
	Example: `  # Launch wizard with the configured backend
  ceph-env wizard
  # Or simply (wizard is default):
  ceph-env

  # Find the install service on the local network first
  ceph-env wizard --discover

  # Use a specific install service
  ceph-env --url http://192.168.122.10:5001`,
	RunE: runWizard,
}

func runWizard(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg := tui.AppConfig{
		Options: environment.Options{
			Defaults: settings.Defaults,
			ImageDir: settings.ImageDir,
		},
	}

	if wizardDiscover {
		scanner := discovery.NewScanner()
		scanner.Timeout = settings.Discovery.Timeout
		cfg.Scan = scanner.Scan
		cfg.Connect = connectService(ctx, settings.Service)
	} else {
		src, name, err := newSource(ctx, settings)
		if err != nil {
			return err
		}
		cfg.Options.Source = src
		cfg.SourceName = name
	}

	snap, err := tui.Run(ctx, cfg)
	if errors.Is(err, tui.ErrAborted) {
		fmt.Println("Wizard closed before the environment was completed.")
		return nil
	}
	if err != nil {
		return err
	}

	out, err := snap.Format(outputFormat)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

// checkCmd validates an environment selection without the TUI
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate an environment selection",
	Long: `Validate an environment selection non-interactively.

Starts from the configured defaults, applies the selections given as flags
in the same way the wizard does, and runs the readiness check. For an ISO
source the image is read and the Ceph version taken from its ceph-common
package. Release codenames: ` + urls.CephReleases + `

Red Hat and ISO sources need RHN credentials. When they are not given and
the terminal is interactive you are asked for them.`,
	Example: `  # Check the configured defaults
  ceph-env check --username admin

  # ISO install from the image directory
  ceph-env check --source ISO --version rhceph-4.0-x86_64.iso --username admin

  # Community packages, JSON output for scripting
  ceph-env check --source Community --version "13 (Mimic)" --format json`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if _, err := (environment.Snapshot{}).Format(outputFormat); err != nil {
		return err
	}

	sel := selectionsFromFlags()
	if err := promptMissingCredentials(ctx, &sel); err != nil {
		return err
	}

	src, name, err := newSource(ctx, settings)
	if err != nil {
		return err
	}
	rec := &recordingSource{Source: src}

	// Machine-readable output keeps stdout for the snapshot
	machine := outputFormat == environment.FormatJSON || outputFormat == environment.FormatYAML
	var progressOut io.Writer = os.Stdout
	if machine {
		progressOut = os.Stderr
	}

	source := sel.Source
	if source == "" {
		source = settings.Defaults.SourceType
	}
	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   "Environment Check",
		Command: "ceph-env check",
		Params: []ui.Detail{
			{Key: "Source", Value: source},
			{Key: "Images", Value: name + " " + settings.ImageDir},
		},
		StepNames: checkStepNames,
		Output:    progressOut,
		Quiet:     quiet || machine,
	})

	var snap *environment.Snapshot
	opts := environment.Options{
		Defaults: settings.Defaults,
		ImageDir: settings.ImageDir,
		Source:   rec,
	}
	err = runner.Run(func(onStep ui.StepCallback) ([]ui.Detail, error) {
		var err error
		snap, err = checkEnvironment(ctx, opts, sel, onStep)
		if err != nil {
			return nil, err
		}
		return snapshotDetails(*snap), nil
	}, checkHints(rec))
	if err != nil {
		return fmt.Errorf("%w: %v", errReported, err)
	}

	out, err := snap.Format(outputFormat)
	if err != nil {
		return err
	}
	if !machine && quiet {
		return nil
	}
	fmt.Print(out)
	return nil
}

// selections are the field values requested on the command line
type selections struct {
	Source      string
	Version     string
	Fields      map[environment.Field]string
	Credentials environment.Credentials
}

func selectionsFromFlags() selections {
	sel := selections{
		Source:  sourceFlag,
		Version: versionFlag,
		Fields:  make(map[environment.Field]string),
		Credentials: environment.Credentials{
			Username: usernameFlag,
			Password: passwordFlag,
		},
	}
	if sel.Credentials.Password == "" {
		sel.Credentials.Password = os.Getenv(passwordEnvVar)
	}
	for f, v := range fieldFlags {
		if *v != "" {
			sel.Fields[f] = *v
		}
	}
	return sel
}

// events returns the edits that apply the selections, in the order the
// wizard would make them: source first, since it resets the version.
func (s selections) events() []environment.Event {
	var evs []environment.Event
	if s.Source != "" {
		evs = append(evs, environment.SourceChanged{Source: s.Source})
	}
	if s.Version != "" {
		evs = append(evs, environment.VersionChanged{Version: s.Version})
	}
	for _, opt := range environment.SimpleFields {
		if v, ok := s.Fields[opt.Field]; ok {
			evs = append(evs, environment.FieldChanged{Field: opt.Field, Value: v})
		}
	}
	if s.Credentials.Username != "" {
		evs = append(evs, environment.CredentialChanged{Field: environment.FieldUsername, Value: s.Credentials.Username})
	}
	if s.Credentials.Password != "" {
		evs = append(evs, environment.CredentialChanged{Field: environment.FieldPassword, Value: s.Credentials.Password})
	}
	return evs
}

// promptMissingCredentials asks for RHN credentials on a terminal when the
// selected source needs them and they were not given
func promptMissingCredentials(ctx context.Context, sel *selections) error {
	source := sel.Source
	if source == "" {
		source = settings.Defaults.SourceType
	}
	if !environment.RequiresCredentials(source) || sel.Credentials.Complete() {
		return nil
	}
	if noPrompt || !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	if err := ui.PromptCredentials(ctx, &sel.Credentials); err != nil {
		return fmt.Errorf("credentials prompt: %w", err)
	}
	return nil
}

var checkStepNames = []string{
	"Load defaults",
	"List ISO images",
	"Apply selections",
	"Check readiness",
}

// checkEnvironment runs one step from defaults to a readiness decision,
// reporting progress through onStep
func checkEnvironment(ctx context.Context, opts environment.Options, sel selections, onStep ui.StepCallback) (*environment.Snapshot, error) {
	var snap *environment.Snapshot
	opts.OnComplete = func(s environment.Snapshot) { snap = &s }

	onStep(1, ui.StepRunning, "")
	step, err := environment.NewStep(opts)
	if err != nil {
		onStep(1, ui.StepFailed, "")
		return nil, err
	}
	defer step.Close()
	onStep(1, ui.StepComplete, step.State().Get(environment.FieldSourceType))

	onStep(2, ui.StepRunning, "")
	if err := environment.Drive(ctx, step, step.Init()); err != nil {
		onStep(2, ui.StepFailed, "")
		return nil, err
	}
	onStep(2, ui.StepComplete, imageCount(step.State()))

	onStep(3, ui.StepRunning, "")
	evs := sel.events()
	for _, ev := range evs {
		if err := applyEdit(ctx, step, ev); err != nil {
			onStep(3, ui.StepFailed, "")
			return nil, err
		}
	}
	if len(evs) == 0 {
		onStep(3, ui.StepSkipped, "defaults")
	} else {
		onStep(3, ui.StepComplete, fmt.Sprintf("%d changes", len(evs)))
	}

	onStep(4, ui.StepRunning, "")
	if err := environment.Drive(ctx, step, step.Update(environment.AdvanceRequested{})); err != nil {
		onStep(4, ui.StepFailed, "")
		return nil, err
	}
	if snap == nil {
		state := step.State()
		_, msg := state.Status()
		onStep(4, ui.StepFailed, state.ErrorKind().String())
		return nil, &environment.StepError{Kind: state.ErrorKind(), Message: msg}
	}
	onStep(4, ui.StepComplete, "Ceph "+snap.CephVersion)
	return snap, nil
}

// applyEdit checks an edit against the current state, applies it and
// confirms the step kept the value
func applyEdit(ctx context.Context, step *environment.Step, ev environment.Event) error {
	f, value := editTarget(ev)
	if _, err := step.State().Set(f, value); err != nil {
		return err
	}
	if err := environment.Drive(ctx, step, step.Update(ev)); err != nil {
		return err
	}
	if got := step.State().Get(f); got != value {
		return &environment.StepError{
			Kind:    environment.KindInvalidField,
			Field:   f,
			Message: fmt.Sprintf("%s %q was not accepted with source %q", f, value, step.State().Get(environment.FieldSourceType)),
		}
	}
	return nil
}

func editTarget(ev environment.Event) (environment.Field, string) {
	switch e := ev.(type) {
	case environment.SourceChanged:
		return environment.FieldSourceType, e.Source
	case environment.VersionChanged:
		return environment.FieldTargetVersion, e.Version
	case environment.CredentialChanged:
		return e.Field, e.Value
	case environment.FieldChanged:
		return e.Field, e.Value
	}
	return "", ""
}

func imageCount(state environment.State) string {
	if !state.Catalog().HasImages() {
		return "none found"
	}
	n := len(state.Catalog().Versions(environment.SourceISO))
	if n == 1 {
		return "1 image"
	}
	return fmt.Sprintf("%d images", n)
}

// snapshotDetails returns the success box lines for a snapshot
func snapshotDetails(snap environment.Snapshot) []ui.Detail {
	details := []ui.Detail{
		{Key: "Source", Value: snap.SourceType},
		{Key: "Version", Value: snap.TargetVersion},
		{Key: "Ceph", Value: snap.CephVersion},
		{Key: "Install type", Value: snap.InstallType},
		{Key: "Cluster", Value: snap.ClusterType},
	}
	if snap.Credentials.Username != "" {
		details = append(details, ui.Detail{Key: "RHN user", Value: snap.Credentials.Username})
	}
	return details
}

// checkHints returns troubleshooting tips for a failed check
func checkHints(rec *recordingSource) ui.FailureHints {
	return func(err error) []string {
		var tips []string
		kind := environment.KindOf(err)
		if hint := environment.GetTroubleshootingHint(kind); hint != "" {
			tips = append(tips, hint)
		}
		if srcErr := rec.LastError(); srcErr != nil {
			tips = append(tips, strings.Split(artifact.GetTroubleshootingHint(srcErr), "\n")...)
		}

		switch kind {
		case environment.KindNoImages, environment.KindPackageMissing, environment.KindImageUnreadable:
			tips = append(tips, "ISO setup: "+urls.ISOInstallGuide)
		case environment.KindCredentialsMissing:
			tips = append(tips, "Pass --username and --password, or set "+passwordEnvVar,
				"Registry accounts: "+urls.RegistryCredentials)
		default:
			tips = append(tips, "See "+urls.TroubleshootingGuide)
		}
		return tips
	}
}
