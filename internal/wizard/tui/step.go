package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cephinstaller/envstep/internal/environment"
)

// stepEventMsg carries the result of a collaborator read back into Update
type stepEventMsg struct {
	event environment.Event
}

// rowKind identifies what a focusable row on the step screen edits
type rowKind int

const (
	rowSelect rowKind = iota // Enumerated field, changed with ←/→ or the picker
	rowText                  // RHN credential input
	rowNext                  // Advance button
)

type row struct {
	kind  rowKind
	field environment.Field
}

// stepKeyMap defines key bindings for the step screen
type stepKeyMap struct {
	Up    key.Binding
	Down  key.Binding
	Prev  key.Binding
	Next  key.Binding
	Enter key.Binding
	Apply key.Binding
	Help  key.Binding
	Quit  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k stepKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Prev, k.Next, k.Enter, k.Apply, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k stepKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Prev, k.Next},
		{k.Enter, k.Apply, k.Help, k.Quit},
	}
}

// editKeyMap defines key bindings while an inline editor is open
type editKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k editKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

// FullHelp returns keybindings for the expanded help view
func (k editKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Confirm, k.Cancel}}
}

// validatingKeyMap defines key bindings while an image is being scanned
type validatingKeyMap struct {
	Quit key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k validatingKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k validatingKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Quit}}
}

// stepResult is shared by every copy of a StepModel so the completion
// callback can reach the copy bubbletea currently holds.
type stepResult struct {
	snapshot *environment.Snapshot
}

// StepModel is the environment step screen. It owns one environment.Step and
// runs the step's reads as tea.Cmds.
type StepModel struct {
	Step   *environment.Step
	Source string // Where images come from, shown above the form

	ctx    context.Context
	result *stepResult

	// Navigation
	Cursor      int
	Editing     bool // Inline editor open for the focused row
	Picker      int  // Highlighted option in the inline picker
	ShowingHelp bool

	// Inputs
	UserInput     textinput.Model
	PasswordInput textinput.Model
	Spinner       spinner.Model

	// UI state
	Width  int
	Height int

	// Help
	Help           help.Model
	Keys           stepKeyMap
	EditKeys       editKeyMap
	ValidatingKeys validatingKeyMap
}

// NewStepModel creates the step screen. opts.OnComplete, if set, is still
// called when the step completes. source describes the artifact source.
func NewStepModel(ctx context.Context, opts environment.Options, source string) (StepModel, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result := &stepResult{}
	next := opts.OnComplete
	opts.OnComplete = func(snap environment.Snapshot) {
		result.snapshot = &snap
		if next != nil {
			next(snap)
		}
	}

	step, err := environment.NewStep(opts)
	if err != nil {
		return StepModel{}, err
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	userInput := textinput.New()
	userInput.Placeholder = "RHN user name"
	userInput.CharLimit = environment.MaxUsernameLength
	userInput.Width = 30

	passwordInput := textinput.New()
	passwordInput.Placeholder = "RHN password"
	passwordInput.EchoMode = textinput.EchoPassword
	passwordInput.EchoCharacter = '•'
	passwordInput.Width = 30

	keys := stepKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j", "tab"),
			key.WithHelp("↓/j", "down"),
		),
		Prev: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "previous value"),
		),
		Next: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next value"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "edit"),
		),
		Apply: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next step"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}

	editKeys := editKeyMap{
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}

	return StepModel{
		Step:          step,
		Source:        source,
		ctx:           ctx,
		result:        result,
		UserInput:     userInput,
		PasswordInput: passwordInput,
		Spinner:       s,
		Help:          help.New(),
		Keys:          keys,
		EditKeys:      editKeys,
		ValidatingKeys: validatingKeyMap{
			Quit: key.NewBinding(
				key.WithKeys("ctrl+c"),
				key.WithHelp("ctrl+c", "quit"),
			),
		},
	}, nil
}

// Init lists the image directory
func (m StepModel) Init() tea.Cmd {
	return m.run(m.Step.Init())
}

// Completed returns the snapshot once the step is ready
func (m StepModel) Completed() (environment.Snapshot, bool) {
	if m.result == nil || m.result.snapshot == nil {
		return environment.Snapshot{}, false
	}
	return *m.result.snapshot, true
}

// Close disposes the step; reads still in flight are dropped
func (m StepModel) Close() {
	m.Step.Close()
}

// Update handles messages and updates the model
func (m StepModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case stepEventMsg:
		return m.apply(msg.event)

	case spinner.TickMsg:
		if m.Step.Phase() != environment.PhaseValidating {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.ShowingHelp {
			// Any key closes the help modal
			m.ShowingHelp = false
			return m, nil
		}
		if m.Step.Phase() != environment.PhaseEditing {
			return m, nil
		}
		if m.Editing {
			return m.updateEditor(msg)
		}
		return m.updateNormalMode(msg)
	}

	if m.Editing {
		return m.updateInputs(msg)
	}
	return m, nil
}

// updateNormalMode handles navigation when no editor is open
func (m StepModel) updateNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.rows()
	current := rows[m.Cursor]

	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Up):
		m.Cursor--
		if m.Cursor < 0 {
			m.Cursor = len(rows) - 1
		}

	case key.Matches(msg, m.Keys.Down):
		m.Cursor++
		if m.Cursor >= len(rows) {
			m.Cursor = 0
		}

	case key.Matches(msg, m.Keys.Prev):
		if current.kind == rowSelect {
			return m.cycle(current.field, -1)
		}

	case key.Matches(msg, m.Keys.Next):
		if current.kind == rowSelect {
			return m.cycle(current.field, 1)
		}

	case key.Matches(msg, m.Keys.Apply):
		return m.apply(environment.AdvanceRequested{})

	case key.Matches(msg, m.Keys.Help):
		m.ShowingHelp = true

	case key.Matches(msg, m.Keys.Enter):
		return m.startEditing(current)
	}

	return m, nil
}

// startEditing opens the inline editor for a row, or advances on the button
func (m StepModel) startEditing(r row) (tea.Model, tea.Cmd) {
	state := m.Step.State()
	switch r.kind {
	case rowNext:
		return m.apply(environment.AdvanceRequested{})

	case rowSelect:
		m.Editing = true
		m.Picker = indexOf(m.options(r.field), state.Get(r.field))
		return m, nil

	case rowText:
		m.Editing = true
		input := m.input(r.field)
		input.SetValue(state.Get(r.field))
		input.CursorEnd()
		cmd := input.Focus()
		m.setInput(r.field, *input)
		return m, cmd
	}
	return m, nil
}

// updateEditor handles keys while the inline picker or an input is open
func (m StepModel) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	r := m.rows()[m.Cursor]

	switch {
	case key.Matches(msg, m.EditKeys.Cancel):
		return m.stopEditing(r), nil

	case key.Matches(msg, m.EditKeys.Confirm):
		m = m.stopEditing(r)
		if r.kind == rowText {
			value := m.input(r.field).Value()
			return m.apply(environment.CredentialChanged{Field: r.field, Value: value})
		}
		options := m.options(r.field)
		if m.Picker < 0 || m.Picker >= len(options) {
			return m, nil
		}
		return m.apply(changeEvent(r.field, options[m.Picker]))
	}

	if r.kind == rowSelect {
		options := m.options(r.field)
		switch {
		case key.Matches(msg, m.Keys.Up):
			if m.Picker > 0 {
				m.Picker--
			}
		case key.Matches(msg, m.Keys.Down):
			if m.Picker < len(options)-1 {
				m.Picker++
			}
		}
		return m, nil
	}

	return m.updateInputs(msg)
}

// updateInputs forwards a message to the focused text input
func (m StepModel) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	r := m.rows()[m.Cursor]
	switch r.field {
	case environment.FieldUsername:
		m.UserInput, cmd = m.UserInput.Update(msg)
	case environment.FieldPassword:
		m.PasswordInput, cmd = m.PasswordInput.Update(msg)
	}
	return m, cmd
}

func (m StepModel) stopEditing(r row) StepModel {
	m.Editing = false
	if r.kind == rowText {
		input := m.input(r.field)
		input.Blur()
		m.setInput(r.field, *input)
	}
	return m
}

// cycle selects the previous or next option of an enumerated field
func (m StepModel) cycle(f environment.Field, delta int) (tea.Model, tea.Cmd) {
	options := m.options(f)
	if len(options) < 2 {
		return m, nil
	}
	i := indexOf(options, m.Step.State().Get(f))
	i = (i + delta + len(options)) % len(options)
	return m.apply(changeEvent(f, options[i]))
}

// apply feeds an event to the step and schedules the read it asks for
func (m StepModel) apply(ev environment.Event) (tea.Model, tea.Cmd) {
	before := m.Step.Phase()
	cmd := m.run(m.Step.Update(ev))

	// Rows come and go with the credentials requirement
	if rows := m.rows(); m.Cursor >= len(rows) {
		m.Cursor = len(rows) - 1
	}

	if before != environment.PhaseValidating && m.Step.Phase() == environment.PhaseValidating {
		cmd = tea.Batch(cmd, m.Spinner.Tick)
	}
	return m, cmd
}

// run wraps a step command so its event comes back as a stepEventMsg
func (m StepModel) run(cmd environment.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		return stepEventMsg{event: cmd(ctx)}
	}
}

// rows returns the focusable rows in display order
func (m StepModel) rows() []row {
	rows := []row{
		{kind: rowSelect, field: environment.FieldSourceType},
		{kind: rowSelect, field: environment.FieldTargetVersion},
	}
	if m.Step.State().CredentialsRequired() {
		rows = append(rows,
			row{kind: rowText, field: environment.FieldUsername},
			row{kind: rowText, field: environment.FieldPassword},
		)
	}
	for _, opt := range environment.SimpleFields {
		rows = append(rows, row{kind: rowSelect, field: opt.Field})
	}
	return append(rows, row{kind: rowNext})
}

// options returns the values an enumerated field accepts right now
func (m StepModel) options(f environment.Field) []string {
	switch f {
	case environment.FieldSourceType:
		return environment.Sources
	case environment.FieldTargetVersion:
		return m.Step.State().Versions()
	}
	if opt, ok := environment.LookupSimpleField(f); ok {
		return opt.Options
	}
	return nil
}

func (m StepModel) input(f environment.Field) *textinput.Model {
	if f == environment.FieldPassword {
		return &m.PasswordInput
	}
	return &m.UserInput
}

func (m *StepModel) setInput(f environment.Field, in textinput.Model) {
	if f == environment.FieldPassword {
		m.PasswordInput = in
		return
	}
	m.UserInput = in
}

// changeEvent builds the event that selects value for an enumerated field
func changeEvent(f environment.Field, value string) environment.Event {
	switch f {
	case environment.FieldSourceType:
		return environment.SourceChanged{Source: value}
	case environment.FieldTargetVersion:
		return environment.VersionChanged{Version: value}
	default:
		return environment.FieldChanged{Field: f, Value: value}
	}
}

func indexOf(list []string, value string) int {
	for i, v := range list {
		if v == value {
			return i
		}
	}
	return 0
}

// View renders the step screen
func (m StepModel) View() string {
	if m.ShowingHelp {
		return RenderModal(m.renderHelpModalContent(), m.Width, m.Height)
	}

	var helpText string
	switch {
	case m.Step.Phase() == environment.PhaseValidating:
		helpText = m.Help.View(m.ValidatingKeys)
	case m.Editing:
		helpText = m.Help.View(m.EditKeys)
	default:
		helpText = m.Help.View(m.Keys)
	}

	return RenderApplicationContainer(m.renderContent(), helpText, m.Width, m.Height)
}

// renderContent renders the form, the focused field's help and the status line
func (m StepModel) renderContent() string {
	state := m.Step.State()
	rows := m.rows()

	sourceLine := SubtitleStyle.Render("Images: " + m.Source + " • " + m.Step.ImageDir())
	divider := lipgloss.NewStyle().
		Foreground(BorderColor).
		Render(strings.Repeat("─", 60))

	var software, cluster []string
	for i, r := range rows {
		line := m.renderRow(r, i)
		if i == m.Cursor && m.Editing && r.kind == rowSelect {
			line = lipgloss.JoinVertical(lipgloss.Left, line, m.renderPicker(r.field))
		}
		switch {
		case r.kind == rowNext:
		case environment.IsSimpleField(r.field):
			cluster = append(cluster, line)
		default:
			software = append(software, line)
		}
	}

	parts := []string{
		sourceLine,
		divider,
		"",
		SectionTitleStyle.Render("Software"),
	}
	parts = append(parts, software...)
	parts = append(parts, "", SectionTitleStyle.Render("Cluster"))
	parts = append(parts, cluster...)
	parts = append(parts, "", m.renderRow(rows[len(rows)-1], len(rows)-1))

	if tip := m.renderTooltip(rows[m.Cursor]); tip != "" {
		parts = append(parts, "", tip)
	}
	parts = append(parts, "", m.renderStatus(state))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderRow renders one field as "→ Label          Value ◀ ▶"
func (m StepModel) renderRow(r row, idx int) string {
	selected := m.Cursor == idx

	if r.kind == rowNext {
		label := "[ Next ]"
		if m.Step.Phase() == environment.PhaseValidating {
			label = "[ " + m.Spinner.View() + " Checking ISO ]"
		}
		if selected {
			return SelectedMenuItemStyle.Render("→ " + label)
		}
		return MenuItemStyle.Render(label)
	}

	labelStyle := lipgloss.NewStyle().Width(LabelWidth).Foreground(SubtleColor)
	valueStyle := lipgloss.NewStyle()
	if selected {
		labelStyle = labelStyle.Foreground(HighlightColor).Bold(true)
		valueStyle = valueStyle.Foreground(HighlightColor).Bold(true)
	}

	var value string
	switch {
	case r.kind == rowText && selected && m.Editing:
		value = m.input(r.field).View()
	case r.field == environment.FieldPassword:
		value = strings.Repeat("•", len(m.Step.State().Get(r.field)))
	default:
		value = m.Step.State().Get(r.field)
	}
	if value == "" {
		value = SubtitleStyle.Render("(not set)")
	}
	if r.kind == rowSelect && len(m.options(r.field)) > 1 {
		value += " ◀ ▶"
	}

	arrow := "  "
	if selected {
		arrow = "→ "
	}

	return lipgloss.JoinHorizontal(lipgloss.Left,
		arrow,
		labelStyle.Render(fieldLabel(r.field)),
		valueStyle.Render(value),
	)
}

// renderPicker renders the inline option list for an enumerated field
func (m StepModel) renderPicker(f environment.Field) string {
	options := m.options(f)
	lines := make([]string, 0, len(options))
	for i, opt := range options {
		lines = append(lines, RenderMenuItem(opt, i == m.Picker))
	}
	if len(lines) == 0 {
		lines = append(lines, SubtitleStyle.Render("No options available"))
	}
	return InlineEditorStyle().Render(strings.Join(lines, "\n"))
}

// renderTooltip renders the info and tooltip text for the focused row
func (m StepModel) renderTooltip(r row) string {
	var text []string
	switch {
	case r.field == environment.FieldSourceType:
		text = append(text, environment.SourceOption.Tooltip)
	case r.kind == rowText:
		text = append(text, environment.CredentialsTooltip)
	default:
		if opt, ok := environment.LookupSimpleField(r.field); ok {
			if opt.Info != "" {
				text = append(text, opt.Info)
			}
			if opt.Tooltip != "" {
				text = append(text, opt.Tooltip)
			}
		}
	}
	if len(text) == 0 {
		return ""
	}
	return TooltipStyle.Render(strings.Join(text, "\n"))
}

// renderStatus renders the step's feedback message
func (m StepModel) renderStatus(state environment.State) string {
	switch m.Step.Phase() {
	case environment.PhaseValidating:
		return SpinnerStyle.Render(fmt.Sprintf("%s Reading %s...", m.Spinner.View(), state.Get(environment.FieldTargetVersion)))
	case environment.PhaseReady:
		return SuccessBoxStyle.Render("✓ Environment ready")
	}

	level, msg := state.Status()
	if level == environment.StatusError && msg != "" {
		lines := []string{msg}
		if hint := environment.GetTroubleshootingHint(state.ErrorKind()); hint != "" {
			lines = append(lines, "", "Hint: "+hint)
		}
		return RenderError(strings.Join(lines, "\n"))
	}
	if msg != "" {
		return RenderInfo(msg)
	}
	return ""
}

// renderHelpModalContent renders every field's accepted values and help text
func (m StepModel) renderHelpModalContent() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		SectionTitleStyle.Render("ENVIRONMENT OPTIONS"),
		"",
		environment.FormatOptions(),
		"Press any key to close this help screen",
	)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Padding(1, 2).
		Width(SafeModalWidth(90, m.Width)).
		Render(content)
}

// fieldLabel returns the display label of a field
func fieldLabel(f environment.Field) string {
	switch f {
	case environment.FieldSourceType:
		return environment.SourceOption.Label
	case environment.FieldTargetVersion:
		return "Target Version"
	case environment.FieldUsername:
		return "RHN User"
	case environment.FieldPassword:
		return "RHN Password"
	}
	if opt, ok := environment.LookupSimpleField(f); ok {
		return opt.Label
	}
	return string(f)
}

// SafeModalWidth returns the smaller of requestedWidth and the terminal width
// less a margin for borders. An unknown terminal width returns requestedWidth.
func SafeModalWidth(requestedWidth, terminalWidth int) int {
	if terminalWidth <= 0 {
		return requestedWidth
	}
	maxWidth := terminalWidth - 4
	if maxWidth < 40 {
		maxWidth = 40
	}
	if requestedWidth < maxWidth {
		return requestedWidth
	}
	return maxWidth
}
