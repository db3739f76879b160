package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cephinstaller/envstep/internal/discovery"
	"github.com/cephinstaller/envstep/internal/environment"
)

func TestParseServiceURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "host only", raw: "10.0.0.5", want: "http://10.0.0.5:5001"},
		{name: "host and port", raw: "installer.lab:8443", want: "http://installer.lab:8443"},
		{name: "https", raw: "https://installer.lab", want: "https://installer.lab:5001"},
		{name: "surrounding spaces", raw: "  http://10.0.0.5:80  ", want: "http://10.0.0.5:80"},
		{name: "ipv6", raw: "http://[fe80::1]:5001", want: "http://[fe80::1]:5001"},
		{name: "empty", raw: "", wantErr: true},
		{name: "bad scheme", raw: "ftp://10.0.0.5", wantErr: true},
		{name: "bad port", raw: "10.0.0.5:99999", wantErr: true},
		{name: "no host", raw: "http://:5001", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := ParseServiceURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, svc.BaseURL())
		})
	}
}

func fakeScan(services ...*discovery.Service) ScanFunc {
	return func(ctx context.Context) ([]*discovery.Service, error) {
		return services, nil
	}
}

func labService() *discovery.Service {
	return &discovery.Service{
		Instance: "lab",
		Hostname: "installer.local",
		IP:       "192.168.1.10",
		Port:     5001,
		Metadata: map[string]string{"imagedir": "/iso"},
	}
}

// runScan runs the model's initial commands and delivers the scan result
func runScan(t *testing.T, m DiscoveryModel) DiscoveryModel {
	t.Helper()
	batch, ok := m.Init()().(tea.BatchMsg)
	require.True(t, ok)
	for _, cmd := range batch {
		if cmd == nil {
			continue
		}
		if msg, ok := cmd().(scanCompleteMsg); ok {
			updated, _ := m.Update(msg)
			m = updated.(DiscoveryModel)
		}
	}
	return m
}

func TestDiscoveryModel_ScanAndSelect(t *testing.T) {
	m := NewDiscoveryModel(context.Background(), fakeScan(labService()))
	assert.True(t, m.Scanning)
	assert.Contains(t, m.View(), "SEARCHING FOR INSTALL SERVICES")

	// Selection is ignored until the scan finishes
	updated, _ := m.Update(keyEnter)
	assert.Nil(t, updated.(DiscoveryModel).GetSelectedService())

	m = runScan(t, m)
	assert.False(t, m.Scanning)
	require.Len(t, m.ServiceList.Items(), 1)

	updated, _ = m.Update(keyEnter)
	svc := updated.(DiscoveryModel).GetSelectedService()
	require.NotNil(t, svc)
	assert.Equal(t, "http://192.168.1.10:5001", svc.BaseURL())
}

func TestDiscoveryModel_ScanError(t *testing.T) {
	m := NewDiscoveryModel(context.Background(), func(ctx context.Context) ([]*discovery.Service, error) {
		return nil, errors.New("no multicast route")
	})
	m = runScan(t, m)

	assert.False(t, m.Scanning)
	assert.EqualError(t, m.Err, "no multicast route")
	assert.Contains(t, m.View(), "no multicast route")
}

func TestDiscoveryModel_ManualEntry(t *testing.T) {
	m := runScan(t, NewDiscoveryModel(context.Background(), fakeScan()))

	updated, _ := m.Update(runes("m"))
	m = updated.(DiscoveryModel)
	require.True(t, m.ManualMode)

	updated, _ = m.Update(runes("ftp://x"))
	updated, _ = updated.Update(keyEnter)
	m = updated.(DiscoveryModel)
	assert.Error(t, m.InputErr)
	assert.True(t, m.ManualMode)

	m.URLInput.SetValue("10.0.0.7:6000")
	updated, _ = m.Update(keyEnter)
	m = updated.(DiscoveryModel)

	assert.False(t, m.ManualMode)
	svc := m.GetSelectedService()
	require.NotNil(t, svc)
	assert.Equal(t, "http://10.0.0.7:6000", svc.BaseURL())
}

func TestNewAppModel_NeedsSourceOrConnect(t *testing.T) {
	_, err := NewAppModel(context.Background(), AppConfig{})
	assert.ErrorIs(t, err, environment.ErrNoSource)
}

func TestNewAppModel_WithSourceStartsOnStep(t *testing.T) {
	app, err := NewAppModel(context.Background(), AppConfig{
		Options:    environment.Options{Source: &fakeSource{}},
		SourceName: "local",
	})
	require.NoError(t, err)
	assert.Equal(t, ScreenEnvironment, app.CurrentScreen)
	assert.NotNil(t, app.Init())
}

func TestAppModel_DiscoveryToComplete(t *testing.T) {
	src := isoSource()
	var connected *discovery.Service

	app, err := NewAppModel(context.Background(), AppConfig{
		Scan: fakeScan(labService()),
		Connect: func(svc *discovery.Service) (environment.Source, error) {
			connected = svc
			return src, nil
		},
	})
	require.NoError(t, err)
	require.Equal(t, ScreenDiscovery, app.CurrentScreen)

	app.DiscoveryModel = runScan(t, app.DiscoveryModel)

	model, cmd := app.Update(keyEnter)
	app = model.(AppModel)
	require.Equal(t, ScreenEnvironment, app.CurrentScreen)
	require.NotNil(t, connected)
	assert.Equal(t, "/iso", app.StepModel.Step.ImageDir())
	assert.Contains(t, app.View(), "http://192.168.1.10:5001")

	app.StepModel = runCmds(app.StepModel, cmd)
	assert.Equal(t, []string{"rhceph-4.0-x86_64.iso"},
		app.StepModel.Step.State().Catalog().Versions(environment.SourceISO))

	step := enterCredentials(app.StepModel)
	step.Cursor = len(step.rows()) - 1
	app.StepModel = step

	model, _ = app.Update(keyEnter)
	app = model.(AppModel)
	require.Equal(t, ScreenComplete, app.CurrentScreen)
	require.NotNil(t, app.Result())
	assert.Equal(t, "14", app.Result().CephVersion)

	view := app.View()
	assert.Contains(t, view, "Environment Ready")
	assert.NotContains(t, view, "s3cret")

	_, cmd = app.Update(keyEnter)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestAppModel_ConnectFailure(t *testing.T) {
	app, err := NewAppModel(context.Background(), AppConfig{
		Scan: fakeScan(labService()),
		Connect: func(svc *discovery.Service) (environment.Source, error) {
			return nil, errors.New("connection refused")
		},
	})
	require.NoError(t, err)
	app.DiscoveryModel = runScan(t, app.DiscoveryModel)

	model, _ := app.Update(keyEnter)
	app = model.(AppModel)

	assert.Equal(t, ScreenDiscovery, app.CurrentScreen)
	assert.EqualError(t, app.LastError, "connection refused")
	assert.Contains(t, app.View(), "could not use")
	assert.Nil(t, app.DiscoveryModel.GetSelectedService())

	// The next key press clears the error
	model, _ = app.Update(keyDown)
	assert.NoError(t, model.(AppModel).LastError)
}

func TestAppModel_CtrlCQuits(t *testing.T) {
	app, err := NewAppModel(context.Background(), AppConfig{
		Options: environment.Options{Source: &fakeSource{}},
	})
	require.NoError(t, err)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
