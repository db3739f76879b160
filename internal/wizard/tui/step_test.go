package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cephinstaller/envstep/internal/environment"
)

const isoContents = `/Packages/ceph-base-14.2.4-125.el8cp.x86_64.rpm
/Packages/ceph-common-14.2.4-125.el8cp.x86_64.rpm
`

type fakeSource struct {
	mu       sync.Mutex
	listing  string
	contents map[string]string
	reads    []string
}

func (f *fakeSource) ListDirectory(ctx context.Context, path string) (string, error) {
	return f.listing, nil
}

func (f *fakeSource) ReadContents(ctx context.Context, path string) (string, error) {
	f.mu.Lock()
	f.reads = append(f.reads, path)
	f.mu.Unlock()
	c, ok := f.contents[path]
	if !ok {
		return "", errors.New("no such image")
	}
	return c, nil
}

func isoSource() *fakeSource {
	return &fakeSource{
		listing:  "/iso/rhceph-4.0-x86_64.iso /iso/notes.txt",
		contents: map[string]string{"/iso/rhceph-4.0-x86_64.iso": isoContents},
	}
}

func newStepModel(t *testing.T, src environment.Source) StepModel {
	t.Helper()
	m, err := NewStepModel(context.Background(), environment.Options{
		Defaults: environment.DefaultSelections(),
		ImageDir: "/iso",
		Source:   src,
	}, "test")
	require.NoError(t, err)
	return runCmds(m, m.Init())
}

// runCmds executes cmd and every step command it leads to, feeding the step
// events back through Update. Other messages (spinner ticks, cursor blinks)
// are dropped.
func runCmds(m StepModel, cmd tea.Cmd) StepModel {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			for _, sub := range msg {
				if sub != nil {
					queue = append(queue, sub)
				}
			}
		case stepEventMsg:
			updated, next := m.Update(msg)
			m = updated.(StepModel)
			queue = append(queue, next)
		}
	}
	return m
}

func press(m StepModel, keys ...tea.KeyMsg) (StepModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var updated tea.Model
		updated, cmd = m.Update(k)
		m = updated.(StepModel)
	}
	return m, cmd
}

var (
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyRight = tea.KeyMsg{Type: tea.KeyRight}
	keyLeft  = tea.KeyMsg{Type: tea.KeyLeft}
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyNext  = runes("n")
	keyHelp  = runes("?")
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// enterCredentials fills the user name and password rows, which sit below
// the source and version rows.
func enterCredentials(m StepModel) StepModel {
	m.Cursor = 2
	m, _ = press(m, keyEnter, runes("admin"), keyEnter)
	m.Cursor = 3
	m, _ = press(m, keyEnter, runes("s3cret"), keyEnter)
	return m
}

func TestNewStepModel_RequiresSource(t *testing.T) {
	_, err := NewStepModel(context.Background(), environment.Options{}, "")
	assert.ErrorIs(t, err, environment.ErrNoSource)
}

func TestStepModel_Rows(t *testing.T) {
	m := newStepModel(t, &fakeSource{})

	rows := m.rows()
	require.Len(t, rows, 2+2+len(environment.SimpleFields)+1)
	assert.Equal(t, environment.FieldSourceType, rows[0].field)
	assert.Equal(t, environment.FieldUsername, rows[2].field)
	assert.Equal(t, rowText, rows[3].kind)
	assert.Equal(t, rowNext, rows[len(rows)-1].kind)
}

func TestStepModel_CycleSourceToISO(t *testing.T) {
	m := newStepModel(t, isoSource())

	m, cmd := press(m, keyRight)
	m = runCmds(m, cmd)

	state := m.Step.State()
	assert.Equal(t, environment.SourceISO, state.Get(environment.FieldSourceType))
	assert.Equal(t, "rhceph-4.0-x86_64.iso", state.Get(environment.FieldTargetVersion))
	assert.Equal(t, environment.InstallRPM, state.Get(environment.FieldInstallType))

	m, cmd = press(m, keyLeft)
	m = runCmds(m, cmd)
	assert.Equal(t, environment.SourceRedHat, m.Step.State().Get(environment.FieldSourceType))
}

func TestStepModel_CommunityHidesCredentials(t *testing.T) {
	m := newStepModel(t, &fakeSource{})

	// Red Hat -> ISO -> Community
	m, _ = press(m, keyRight, keyRight)
	require.Equal(t, environment.SourceCommunity, m.Step.State().Get(environment.FieldSourceType))
	assert.Len(t, m.rows(), 2+len(environment.SimpleFields)+1)
	assert.Equal(t, environment.FieldClusterType, m.rows()[2].field)
}

func TestStepModel_CursorClampedWhenRowsShrink(t *testing.T) {
	m := newStepModel(t, &fakeSource{})
	m.Cursor = len(m.rows()) - 1

	updated, _ := m.apply(environment.SourceChanged{Source: environment.SourceCommunity})
	m = updated.(StepModel)

	assert.Equal(t, len(m.rows())-1, m.Cursor)
	assert.Equal(t, rowNext, m.rows()[m.Cursor].kind)
}

func TestStepModel_EnterCredentials(t *testing.T) {
	m := newStepModel(t, &fakeSource{})
	m = enterCredentials(m)

	creds := m.Step.State().Credentials()
	assert.Equal(t, "admin", creds.Username)
	assert.Equal(t, "s3cret", creds.Password)
	assert.False(t, m.Editing)

	view := m.View()
	assert.Contains(t, view, "admin")
	assert.NotContains(t, view, "s3cret", "password is masked")
}

func TestStepModel_EscCancelsEdit(t *testing.T) {
	m := newStepModel(t, &fakeSource{})
	m.Cursor = 2
	m, _ = press(m, keyEnter, runes("admin"), keyEsc)

	assert.False(t, m.Editing)
	assert.Empty(t, m.Step.State().Credentials().Username)
}

func TestStepModel_Picker(t *testing.T) {
	m := newStepModel(t, &fakeSource{})

	idx := -1
	for i, r := range m.rows() {
		if r.field == environment.FieldOSDType {
			idx = i
		}
	}
	require.NotEqual(t, -1, idx)
	m.Cursor = idx

	m, _ = press(m, keyEnter)
	require.True(t, m.Editing)
	assert.Contains(t, m.View(), environment.OSDFilestore)

	m, _ = press(m, keyDown, keyEnter)
	assert.False(t, m.Editing)
	assert.Equal(t, environment.OSDFilestore, m.Step.State().Get(environment.FieldOSDType))
}

func TestStepModel_BlockedAdvance(t *testing.T) {
	m := newStepModel(t, &fakeSource{})

	m, cmd := press(m, keyNext)
	assert.Nil(t, cmd)
	assert.Equal(t, environment.PhaseEditing, m.Step.Phase())
	assert.Equal(t, environment.KindCredentialsMissing, m.Step.State().ErrorKind())

	_, ok := m.Completed()
	assert.False(t, ok)
	assert.Contains(t, m.View(), "RHN username/password")
}

func TestStepModel_RedHatCompletes(t *testing.T) {
	var got *environment.Snapshot
	m, err := NewStepModel(context.Background(), environment.Options{
		Source:     &fakeSource{},
		OnComplete: func(s environment.Snapshot) { got = &s },
	}, "test")
	require.NoError(t, err)
	m = enterCredentials(m)

	m.Cursor = len(m.rows()) - 1
	m, _ = press(m, keyEnter)

	snap, ok := m.Completed()
	require.True(t, ok)
	assert.Equal(t, "14", snap.CephVersion)
	require.NotNil(t, got, "caller's OnComplete still runs")
	assert.Equal(t, snap, *got)
	assert.Equal(t, environment.PhaseReady, m.Step.Phase())
}

func TestStepModel_ISOAdvanceScansImage(t *testing.T) {
	src := isoSource()
	m := newStepModel(t, src)

	m, cmd := press(m, keyRight)
	m = runCmds(m, cmd)
	m = enterCredentials(m)

	m, cmd = press(m, keyNext)
	require.Equal(t, environment.PhaseValidating, m.Step.Phase())
	assert.Contains(t, m.View(), "Checking ISO")

	// The form is locked while the image is read
	locked, _ := press(m, keyRight)
	assert.Equal(t, environment.SourceISO, locked.Step.State().Get(environment.FieldSourceType))

	m = runCmds(m, cmd)
	snap, ok := m.Completed()
	require.True(t, ok)
	assert.Equal(t, "14", snap.CephVersion)
	assert.Equal(t, "rhceph-4.0-x86_64.iso", snap.TargetVersion)

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Equal(t, []string{"/iso/rhceph-4.0-x86_64.iso"}, src.reads)
}

func TestStepModel_HelpModal(t *testing.T) {
	m := newStepModel(t, &fakeSource{})

	m, _ = press(m, keyHelp)
	require.True(t, m.ShowingHelp)
	assert.Contains(t, m.View(), "ENVIRONMENT OPTIONS")

	m, _ = press(m, keyRight)
	assert.False(t, m.ShowingHelp)
	assert.Equal(t, environment.SourceRedHat, m.Step.State().Get(environment.FieldSourceType),
		"the key closing help is not applied")
}

func TestStepModel_Tooltip(t *testing.T) {
	m := newStepModel(t, &fakeSource{})
	for i, r := range m.rows() {
		if r.field == environment.FieldOSDMode {
			m.Cursor = i
		}
	}
	assert.Contains(t, m.View(), "dmcrypt")
}

func TestFieldLabel(t *testing.T) {
	assert.Equal(t, "Installation Source", fieldLabel(environment.FieldSourceType))
	assert.Equal(t, "RHN User", fieldLabel(environment.FieldUsername))
	assert.Equal(t, "OSD type", fieldLabel(environment.FieldOSDType))
	assert.Equal(t, "bogus", fieldLabel(environment.Field("bogus")))
}

func TestSafeModalWidth(t *testing.T) {
	assert.Equal(t, 90, SafeModalWidth(90, 0))
	assert.Equal(t, 76, SafeModalWidth(90, 80))
	assert.Equal(t, 40, SafeModalWidth(90, 20))
	assert.Equal(t, 50, SafeModalWidth(50, 120))
}

func TestRenderApplicationContainer(t *testing.T) {
	out := RenderApplicationContainer("body", "help", 0, 0)
	assert.True(t, strings.Contains(out, AppName))
	assert.Contains(t, out, "body")
	assert.Contains(t, out, "help")
}
