package tui

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cephinstaller/envstep/internal/discovery"
)

// scanCompleteMsg carries the result of a network scan
type scanCompleteMsg struct {
	services []*discovery.Service
	err      error
}

// ScanFunc looks for install services on the network
type ScanFunc func(ctx context.Context) ([]*discovery.Service, error)

// discoveryKeyMap defines key bindings for the discovery screen
type discoveryKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Rescan key.Binding
	Manual key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k discoveryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Rescan, k.Manual, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k discoveryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter},
		{k.Rescan, k.Manual, k.Quit},
	}
}

// emptyScreenKeyMap defines key bindings for scanning and empty results
type emptyScreenKeyMap struct {
	Rescan key.Binding
	Manual key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (e emptyScreenKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{e.Rescan, e.Manual, e.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (e emptyScreenKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{e.Rescan, e.Manual, e.Quit},
	}
}

// serviceItem wraps a Service for use with bubbles/list
type serviceItem struct {
	service *discovery.Service
}

// FilterValue implements list.Item
func (s serviceItem) FilterValue() string {
	return s.service.Instance + " " + s.service.IP + " " + s.service.Hostname
}

// Title returns the service name for list display
func (s serviceItem) Title() string {
	if s.service.Instance == "" {
		return "Manual: " + s.service.BaseURL()
	}
	return s.service.Instance
}

// Description returns service details for list display
func (s serviceItem) Description() string {
	return s.service.BaseURL()
}

// serviceDelegate renders services as cards
type serviceDelegate struct {
	width int
}

func (d serviceDelegate) Height() int { return 7 } // Card height including borders

func (d serviceDelegate) Spacing() int { return 1 }

func (d serviceDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d serviceDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	si, ok := item.(serviceItem)
	if !ok {
		return
	}
	svc := si.service
	selected := index == m.Index()

	imageDir := svc.ImageDir()
	if imageDir == "" {
		imageDir = "(default)"
	}
	ver := svc.GetMetadata("version")
	if ver == "" {
		ver = "Unknown"
	}

	var content strings.Builder
	if selected {
		content.WriteString(SelectedMenuItemStyle.Render("→ " + si.Title()))
	} else {
		content.WriteString("  " + si.Title())
	}
	content.WriteString("\n\n")
	content.WriteString(fmt.Sprintf("  URL:       %s\n", svc.BaseURL()))
	content.WriteString(fmt.Sprintf("  Images:    %s\n", imageDir))
	content.WriteString(fmt.Sprintf("  Version:   %s", ver))

	cardWidth := d.width - 6 // 2 for margin-left, 4 for border + padding
	if cardWidth < MinTerminalWidth-6 {
		cardWidth = MinTerminalWidth - 6
	}
	if cardWidth > MaxContentWidth-6 {
		cardWidth = MaxContentWidth - 6
	}

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 2).
		MarginLeft(2).
		Width(cardWidth)
	if selected {
		cardStyle = cardStyle.BorderForeground(HighlightColor)
	}

	fmt.Fprint(w, cardStyle.Render(content.String()))
}

// DiscoveryModel is the install service discovery screen
type DiscoveryModel struct {
	// Discovery state
	Scanning    bool
	ServiceList list.Model
	Selected    bool
	Err         error

	// Manual URL entry state
	ManualMode bool
	URLInput   textinput.Model
	InputErr   error

	// UI state
	Width         int
	Height        int
	Spinner       spinner.Model
	ProgressBar   progress.Model
	ScanStartTime time.Time
	ScanTimeout   time.Duration
	Help          help.Model
	Keys          discoveryKeyMap
	ManualKeys    editKeyMap
	EmptyKeys     emptyScreenKeyMap

	ctx  context.Context
	scan ScanFunc
}

// NewDiscoveryModel creates the discovery screen. A nil scan uses an mDNS
// scanner with the default timeout.
func NewDiscoveryModel(ctx context.Context, scan ScanFunc) DiscoveryModel {
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := discovery.DefaultScanTimeout
	if scan == nil {
		scanner := discovery.NewScanner()
		timeout = scanner.Timeout
		scan = scanner.Scan
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	urlInput := textinput.New()
	urlInput.Placeholder = "http://192.168.1.10:5001"
	urlInput.CharLimit = 253
	urlInput.Width = 40

	progressBar := progress.New(progress.WithDefaultGradient())
	progressBar.Width = 40

	serviceList := list.New([]list.Item{}, serviceDelegate{width: MinTerminalWidth}, 0, 0)
	serviceList.Title = "Install Services"
	serviceList.SetShowStatusBar(false)
	serviceList.SetFilteringEnabled(false)
	serviceList.SetShowHelp(false)
	serviceList.Styles.Title = SectionTitleStyle

	keys := discoveryKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "select"),
		),
		Rescan: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
		Manual: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "enter URL"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "quit"),
		),
	}

	return DiscoveryModel{
		Scanning:      true,
		ScanStartTime: time.Now(),
		ServiceList:   serviceList,
		URLInput:      urlInput,
		Spinner:       s,
		ProgressBar:   progressBar,
		ScanTimeout:   timeout,
		Help:          help.New(),
		Keys:          keys,
		ManualKeys: editKeyMap{
			Confirm: key.NewBinding(
				key.WithKeys("enter"),
				key.WithHelp("enter", "confirm"),
			),
			Cancel: key.NewBinding(
				key.WithKeys("esc"),
				key.WithHelp("esc", "cancel"),
			),
		},
		EmptyKeys: emptyScreenKeyMap{
			Rescan: keys.Rescan,
			Manual: keys.Manual,
			Quit:   keys.Quit,
		},
		ctx:  ctx,
		scan: scan,
	}
}

// Init starts the scan NewDiscoveryModel marked as running
func (m DiscoveryModel) Init() tea.Cmd {
	return m.startScan()
}

func (m DiscoveryModel) startScan() tea.Cmd {
	ctx, scan := m.ctx, m.scan
	return tea.Batch(
		func() tea.Msg {
			services, err := scan(ctx)
			return scanCompleteMsg{services: services, err: err}
		},
		m.Spinner.Tick,
	)
}

// Update handles messages and updates the model
func (m DiscoveryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.ManualMode {
			return m.updateManualMode(msg)
		}
		return m.updateNormalMode(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.ServiceList.SetDelegate(serviceDelegate{width: msg.Width - 4})
		m.ServiceList.SetWidth(msg.Width - 4)
		m.ServiceList.SetHeight(msg.Height - 8) // Leave room for header/footer
		return m, nil

	case scanCompleteMsg:
		m.Scanning = false
		m.Err = msg.err
		items := make([]list.Item, len(msg.services))
		for i, svc := range msg.services {
			items[i] = serviceItem{service: svc}
		}
		return m, m.ServiceList.SetItems(items)

	case spinner.TickMsg:
		if !m.Scanning {
			return m, nil
		}
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	if m.ManualMode {
		m.URLInput, cmd = m.URLInput.Update(msg)
	}
	return m, cmd
}

// updateNormalMode handles keyboard input in the service list
func (m DiscoveryModel) updateNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Manual):
		m.ManualMode = true
		m.InputErr = nil
		m.URLInput.SetValue("")
		return m, m.URLInput.Focus()

	case m.Scanning:
		// Nothing to select or rescan yet
		return m, nil

	case key.Matches(msg, m.Keys.Enter):
		if m.ServiceList.SelectedItem() != nil {
			m.Selected = true
		}
		return m, nil

	case key.Matches(msg, m.Keys.Rescan):
		m.ServiceList.SetItems(nil)
		m.Err = nil
		m.Scanning = true
		m.ScanStartTime = time.Now()
		return m, m.startScan()
	}

	// Let the list handle up/down navigation
	var cmd tea.Cmd
	m.ServiceList, cmd = m.ServiceList.Update(msg)
	return m, cmd
}

// updateManualMode handles keyboard input in manual URL entry mode
func (m DiscoveryModel) updateManualMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch {
	case key.Matches(msg, m.ManualKeys.Cancel):
		m.ManualMode = false
		m.URLInput.Blur()
		return m, nil

	case key.Matches(msg, m.ManualKeys.Confirm):
		svc, err := ParseServiceURL(m.URLInput.Value())
		if err != nil {
			m.InputErr = err
			return m, nil
		}
		items := append([]list.Item{serviceItem{service: svc}}, m.ServiceList.Items()...)
		cmd = m.ServiceList.SetItems(items)
		m.ServiceList.Select(0)
		m.ManualMode = false
		m.URLInput.Blur()
		m.Selected = true
		return m, cmd
	}

	m.URLInput, cmd = m.URLInput.Update(msg)
	return m, cmd
}

// ParseServiceURL builds a Service from a base URL typed by the user. A
// missing scheme defaults to http and a missing port to DefaultPort.
func ParseServiceURL(raw string) (*discovery.Service, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("URL has no host")
	}

	port := discovery.DefaultPort
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid port %q", p)
		}
	}

	return &discovery.Service{
		Hostname:     host,
		IP:           host,
		Port:         port,
		Metadata:     map[string]string{"scheme": u.Scheme},
		DiscoveredAt: time.Now(),
	}, nil
}

// View renders the discovery screen
func (m DiscoveryModel) View() string {
	var content, helpText string
	switch {
	case m.ManualMode:
		content = m.renderManualEntry()
		helpText = m.Help.View(m.ManualKeys)
	case m.Scanning:
		content = m.renderScanning()
		helpText = m.Help.View(m.EmptyKeys)
	case len(m.ServiceList.Items()) > 0:
		content = m.renderServiceResults()
		helpText = m.Help.View(m.Keys)
	default:
		content = m.renderServiceResults()
		helpText = m.Help.View(m.EmptyKeys)
	}

	return RenderApplicationContainer(content, helpText, m.Width, m.Height)
}

// renderScanning renders a centered scanning progress display
func (m DiscoveryModel) renderScanning() string {
	width := m.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	elapsed := time.Since(m.ScanStartTime)
	percent := 0.0
	if m.ScanTimeout > 0 {
		percent = elapsed.Seconds() / m.ScanTimeout.Seconds()
	}
	if percent > 1 {
		percent = 1
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		TitleStyle.Render(m.Spinner.View()+" SEARCHING FOR INSTALL SERVICES"),
		SubtitleStyle.Render("Browsing "+discovery.ServiceType+" on the local network..."),
		"",
		m.ProgressBar.ViewAs(percent),
		"",
		SubtitleStyle.Render(fmt.Sprintf("Elapsed: %ds", int(elapsed.Seconds()))),
		"",
	)

	return lipgloss.Place(width-4, 0, lipgloss.Center, lipgloss.Top, content)
}

// renderServiceResults renders the service list or a "none found" message
func (m DiscoveryModel) renderServiceResults() string {
	var b strings.Builder
	b.WriteString("\n")

	switch {
	case m.Err != nil:
		b.WriteString(RenderError(fmt.Sprintf("Scan failed: %v", m.Err)))
		b.WriteString("\n\n")
		b.WriteString(troubleshootingText)

	case len(m.ServiceList.Items()) == 0:
		b.WriteString("  ")
		b.WriteString(WarningTextStyle.Render("⚠ No install services found on your network"))
		b.WriteString("\n\n")
		b.WriteString(troubleshootingText)

	default:
		b.WriteString(m.ServiceList.View())
	}

	return b.String()
}

const troubleshootingText = `  Troubleshooting:
    • Check the install service is running on the admin host
    • Multicast DNS must be allowed between this machine and the host
    • Press 'm' to enter the service URL by hand
`

// renderManualEntry renders the manual URL entry dialog
func (m DiscoveryModel) renderManualEntry() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(RenderSubtitle("Enter the install service URL"))
	b.WriteString("\n\n")
	b.WriteString("  URL: ")
	b.WriteString(m.URLInput.View())
	b.WriteString("\n\n")
	if m.InputErr != nil {
		b.WriteString(RenderError(m.InputErr.Error()))
		b.WriteString("\n")
	}

	return b.String()
}

// GetSelectedService returns the selected service (if any)
func (m DiscoveryModel) GetSelectedService() *discovery.Service {
	if !m.Selected {
		return nil
	}
	if item, ok := m.ServiceList.SelectedItem().(serviceItem); ok {
		return item.service
	}
	return nil
}

