package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/cephinstaller/envstep/internal/discovery"
	"github.com/cephinstaller/envstep/internal/environment"
	"github.com/cephinstaller/envstep/internal/logging"
)

// Screen represents the current active screen in the application
type Screen string

const (
	ScreenDiscovery   Screen = "discovery"
	ScreenEnvironment Screen = "environment"
	ScreenComplete    Screen = "complete"
)

// ConnectFunc builds the artifact source for a selected install service
type ConnectFunc func(svc *discovery.Service) (environment.Source, error)

// AppConfig configures the wizard
type AppConfig struct {
	// Options for the environment step. When Options.Source is nil the
	// wizard starts on the discovery screen and Connect builds the source.
	Options environment.Options

	// SourceName describes Options.Source on the step screen
	SourceName string

	Scan    ScanFunc
	Connect ConnectFunc
}

// completeKeyMap defines key bindings for the complete screen
type completeKeyMap struct {
	Quit key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k completeKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k completeKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Quit}}
}

// AppModel is the top-level coordinator model that manages screen transitions
type AppModel struct {
	CurrentScreen Screen

	// Screen models
	DiscoveryModel DiscoveryModel
	StepModel      StepModel

	// Shared application state
	SelectedService *discovery.Service
	Snapshot        *environment.Snapshot
	LastError       error

	// UI state
	Width  int
	Height int

	Help         help.Model
	CompleteKeys completeKeyMap

	ctx    context.Context
	config AppConfig
}

// NewAppModel creates the wizard. It starts on the step screen when a source
// is configured and on the discovery screen otherwise.
func NewAppModel(ctx context.Context, config AppConfig) (AppModel, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	m := AppModel{
		ctx:    ctx,
		config: config,
		Help:   help.New(),
		CompleteKeys: completeKeyMap{
			Quit: key.NewBinding(
				key.WithKeys("q", "enter", "esc"),
				key.WithHelp("enter/q", "exit"),
			),
		},
	}

	if config.Options.Source != nil {
		step, err := NewStepModel(ctx, config.Options, config.SourceName)
		if err != nil {
			return AppModel{}, err
		}
		m.CurrentScreen = ScreenEnvironment
		m.StepModel = step
		return m, nil
	}

	if config.Connect == nil {
		return AppModel{}, environment.ErrNoSource
	}
	m.CurrentScreen = ScreenDiscovery
	m.DiscoveryModel = NewDiscoveryModel(ctx, config.Scan)
	return m, nil
}

// Init initializes the current screen
func (m AppModel) Init() tea.Cmd {
	switch m.CurrentScreen {
	case ScreenDiscovery:
		return m.DiscoveryModel.Init()
	case ScreenEnvironment:
		return m.StepModel.Init()
	default:
		return nil
	}
}

// Result returns the completed snapshot, or nil if the wizard was left early
func (m AppModel) Result() *environment.Snapshot {
	return m.Snapshot
}

// Close disposes the step, if one was created
func (m AppModel) Close() {
	if m.StepModel.Step != nil {
		m.StepModel.Close()
	}
}

// Update handles all messages and routes them to the appropriate screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		// Propagate to all screens
		if m.DiscoveryModel.scan != nil {
			d, _ := m.DiscoveryModel.Update(msg)
			m.DiscoveryModel = d.(DiscoveryModel)
		}
		if m.StepModel.Step != nil {
			s, _ := m.StepModel.Update(msg)
			m.StepModel = s.(StepModel)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	return m.updateCurrentScreen(msg)
}

// updateCurrentScreen routes updates to the currently active screen
func (m AppModel) updateCurrentScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.CurrentScreen {
	case ScreenDiscovery:
		if _, ok := msg.(tea.KeyMsg); ok {
			m.LastError = nil
		}
		updated, cmd := m.DiscoveryModel.Update(msg)
		m.DiscoveryModel = updated.(DiscoveryModel)

		if svc := m.DiscoveryModel.GetSelectedService(); svc != nil {
			return m.connect(svc)
		}
		return m, cmd

	case ScreenEnvironment:
		updated, cmd := m.StepModel.Update(msg)
		m.StepModel = updated.(StepModel)

		if snap, ok := m.StepModel.Completed(); ok {
			m.Snapshot = &snap
			m.CurrentScreen = ScreenComplete
			return m, nil
		}
		return m, cmd

	case ScreenComplete:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && key.Matches(keyMsg, m.CompleteKeys.Quit) {
			return m, tea.Quit
		}
	}

	return m, nil
}

// connect builds the source for svc and moves to the step screen
func (m AppModel) connect(svc *discovery.Service) (tea.Model, tea.Cmd) {
	m.DiscoveryModel.Selected = false

	src, err := m.config.Connect(svc)
	if err != nil {
		logging.Error("Failed to connect to install service",
			zap.String("url", svc.BaseURL()),
			zap.Error(err),
		)
		m.LastError = err
		return m, nil
	}
	m.LastError = nil
	m.SelectedService = svc

	opts := m.config.Options
	opts.Source = src
	if dir := svc.ImageDir(); dir != "" {
		opts.ImageDir = dir
	}

	step, err := NewStepModel(m.ctx, opts, svc.BaseURL())
	if err != nil {
		m.LastError = err
		return m, nil
	}
	step.Width = m.Width
	step.Height = m.Height

	m.StepModel = step
	m.CurrentScreen = ScreenEnvironment
	return m, m.StepModel.Init()
}

// View renders the current screen
func (m AppModel) View() string {
	switch m.CurrentScreen {
	case ScreenDiscovery:
		if m.LastError != nil {
			return m.renderConnectError()
		}
		return m.DiscoveryModel.View()
	case ScreenEnvironment:
		return m.StepModel.View()
	case ScreenComplete:
		return RenderApplicationContainer(m.buildCompleteContent(), m.Help.View(m.CompleteKeys), m.Width, m.Height)
	default:
		return "Unknown screen"
	}
}

// renderConnectError shows the discovery screen with the connection error on top
func (m AppModel) renderConnectError() string {
	d := m.DiscoveryModel
	d.Err = fmt.Errorf("could not use %s: %w", m.selectedURL(), m.LastError)
	return d.View()
}

func (m AppModel) selectedURL() string {
	if item, ok := m.DiscoveryModel.ServiceList.SelectedItem().(serviceItem); ok {
		return item.service.BaseURL()
	}
	return "install service"
}

// buildCompleteContent builds the complete screen content
func (m AppModel) buildCompleteContent() string {
	if m.Snapshot == nil {
		return RenderError("No configuration was completed")
	}
	snap := m.Snapshot.Redacted()

	lines := []string{
		RenderTitle("✓ Environment Ready"),
		SuccessBoxStyle.Render("Configuration passed to the next step:"),
		"",
	}
	for _, line := range strings.Split(strings.TrimRight(snap.FormatCompact(), "\n"), "\n") {
		lines = append(lines, "  "+line)
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// ErrAborted is returned by Run when the user leaves before the step completes
var ErrAborted = errors.New("wizard closed before the environment step completed")

// Run runs the wizard full screen and returns the completed snapshot
func Run(ctx context.Context, config AppConfig, opts ...tea.ProgramOption) (environment.Snapshot, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := NewAppModel(ctx, config)
	if err != nil {
		return environment.Snapshot{}, err
	}

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	final, err := tea.NewProgram(app, opts...).Run()
	if err != nil {
		return environment.Snapshot{}, fmt.Errorf("wizard failed: %w", err)
	}

	result := final.(AppModel)
	result.Close()
	if snap := result.Result(); snap != nil {
		return *snap, nil
	}
	return environment.Snapshot{}, ErrAborted
}
