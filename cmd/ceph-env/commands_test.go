package main

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cephinstaller/envstep/internal/artifact"
	"github.com/cephinstaller/envstep/internal/config"
	"github.com/cephinstaller/envstep/internal/discovery"
	"github.com/cephinstaller/envstep/internal/environment"
	"github.com/cephinstaller/envstep/internal/ui"
	"github.com/cephinstaller/envstep/internal/urls"
)

type fakeSource struct {
	listing  string
	listErr  error
	contents map[string]string
}

func (f *fakeSource) ListDirectory(ctx context.Context, path string) (string, error) {
	return f.listing, f.listErr
}

func (f *fakeSource) ReadContents(ctx context.Context, path string) (string, error) {
	c, ok := f.contents[path]
	if !ok {
		return "", artifact.ClassifyFileError(path, errors.New("no such file or directory"))
	}
	return c, nil
}

func isoFixture() *fakeSource {
	return &fakeSource{
		listing: "/iso/rhceph-4.0-x86_64.iso /iso/rhceph-3.3-x86_64.iso /iso/README",
		contents: map[string]string{
			"/iso/rhceph-4.0-x86_64.iso": "/Tools/ceph-common-14.2.2-16.el8cp.x86_64.rpm\n",
		},
	}
}

type stepRecord struct {
	status  ui.StepStatus
	message string
}

// recorder collects the last status reported for each check step
func recorder() (map[int]stepRecord, ui.StepCallback) {
	got := make(map[int]stepRecord)
	return got, func(n int, status ui.StepStatus, message string) {
		got[n] = stepRecord{status: status, message: message}
	}
}

func testOptions(src environment.Source) environment.Options {
	return environment.Options{
		Defaults: environment.DefaultSelections(),
		ImageDir: "/iso",
		Source:   src,
	}
}

var rhn = environment.Credentials{Username: "admin", Password: "s3cret"}

func TestCheckEnvironment_ISO(t *testing.T) {
	steps, onStep := recorder()
	sel := selections{Source: environment.SourceISO, Credentials: rhn}

	snap, err := checkEnvironment(context.Background(), testOptions(isoFixture()), sel, onStep)
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Equal(t, environment.SourceISO, snap.SourceType)
	assert.Equal(t, "rhceph-4.0-x86_64.iso", snap.TargetVersion)
	assert.Equal(t, environment.InstallRPM, snap.InstallType)
	assert.Equal(t, "14", snap.CephVersion)

	assert.Equal(t, stepRecord{ui.StepComplete, "2 images"}, steps[2])
	assert.Equal(t, stepRecord{ui.StepComplete, "3 changes"}, steps[3])
	assert.Equal(t, stepRecord{ui.StepComplete, "Ceph 14"}, steps[4])
}

func TestCheckEnvironment_ISOImageUnreadable(t *testing.T) {
	steps, onStep := recorder()
	sel := selections{
		Source:      environment.SourceISO,
		Version:     "rhceph-3.3-x86_64.iso",
		Credentials: rhn,
	}

	_, err := checkEnvironment(context.Background(), testOptions(isoFixture()), sel, onStep)
	require.Error(t, err)
	assert.Equal(t, environment.KindImageUnreadable, environment.KindOf(err))
	assert.Contains(t, err.Error(), environment.MsgImageUnreadable)
	assert.Equal(t, ui.StepFailed, steps[4].status)
}

func TestCheckEnvironment_DefaultsNeedCredentials(t *testing.T) {
	steps, onStep := recorder()

	_, err := checkEnvironment(context.Background(), testOptions(&fakeSource{}), selections{}, onStep)
	require.Error(t, err)
	assert.Equal(t, environment.KindCredentialsMissing, environment.KindOf(err))
	assert.Equal(t, stepRecord{ui.StepComplete, "none found"}, steps[2])
	assert.Equal(t, ui.StepSkipped, steps[3].status)
}

func TestCheckEnvironment_Community(t *testing.T) {
	_, onStep := recorder()
	sel := selections{
		Source:  environment.SourceCommunity,
		Version: "13 (Mimic)",
		Fields: map[environment.Field]string{
			environment.FieldOSDType:    environment.OSDFilestore,
			environment.FieldOSDMode:    environment.OSDModeEncrypted,
			environment.FieldFlashUsage: environment.FlashOSDData,
		},
	}

	snap, err := checkEnvironment(context.Background(), testOptions(&fakeSource{}), sel, onStep)
	require.NoError(t, err)
	assert.Equal(t, "13", snap.CephVersion)
	assert.Equal(t, environment.OSDFilestore, snap.OSDType)
	assert.Equal(t, environment.OSDModeEncrypted, snap.OSDMode)
	assert.Equal(t, environment.FlashOSDData, snap.FlashUsage)
}

func TestCheckEnvironment_RejectedEdits(t *testing.T) {
	tests := []struct {
		name string
		sel  selections
	}{
		{
			name: "unknown source",
			sel:  selections{Source: "Tarball"},
		},
		{
			name: "version from another source",
			sel:  selections{Source: environment.SourceDistribution, Version: "14 (Nautilus)"},
		},
		{
			name: "container install from ISO",
			sel: selections{
				Source: environment.SourceISO,
				Fields: map[environment.Field]string{environment.FieldInstallType: environment.InstallContainer},
			},
		},
		{
			name: "user name too long",
			sel: selections{
				Credentials: environment.Credentials{Username: strings.Repeat("u", environment.MaxUsernameLength+1)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps, onStep := recorder()
			_, err := checkEnvironment(context.Background(), testOptions(isoFixture()), tt.sel, onStep)
			require.Error(t, err)
			assert.Equal(t, environment.KindInvalidField, environment.KindOf(err))
			assert.Equal(t, ui.StepFailed, steps[3].status)
		})
	}
}

func TestSelectionsEvents_Order(t *testing.T) {
	sel := selections{
		Source:  environment.SourceCommunity,
		Version: "12 (Luminous)",
		Fields: map[environment.Field]string{
			environment.FieldInstallType: environment.InstallRPM,
			environment.FieldClusterType: environment.ClusterDevelopment,
		},
		Credentials: environment.Credentials{Username: "admin"},
	}

	evs := sel.events()
	require.Len(t, evs, 5)
	assert.Equal(t, environment.SourceChanged{Source: environment.SourceCommunity}, evs[0])
	assert.Equal(t, environment.VersionChanged{Version: "12 (Luminous)"}, evs[1])
	assert.Equal(t, environment.FieldChanged{Field: environment.FieldClusterType, Value: environment.ClusterDevelopment}, evs[2])
	assert.Equal(t, environment.FieldChanged{Field: environment.FieldInstallType, Value: environment.InstallRPM}, evs[3])
	assert.Equal(t, environment.CredentialChanged{Field: environment.FieldUsername, Value: "admin"}, evs[4])
}

func TestFlagName(t *testing.T) {
	assert.Equal(t, "osd-type", flagName(environment.FieldOSDType))
	assert.Equal(t, "cluster-type", flagName(environment.FieldClusterType))
	assert.Equal(t, "flash-usage", flagName(environment.FieldFlashUsage))
}

func TestCheckHints(t *testing.T) {
	rec := &recordingSource{Source: &fakeSource{listErr: artifact.NewCommandError("/iso/x.iso", nil, errors.New("exit status 1"))}}
	_, _ = rec.ListDirectory(context.Background(), "/iso")

	tips := checkHints(rec)(&environment.StepError{Kind: environment.KindNoImages, Message: environment.MsgNoImages})
	assert.Contains(t, tips, environment.GetTroubleshootingHint(environment.KindNoImages))
	assert.Contains(t, tips, "The ISO contents could not be listed.")
	assert.Contains(t, tips, "ISO setup: "+urls.ISOInstallGuide)

	tips = checkHints(&recordingSource{Source: &fakeSource{}})(errors.New("boom"))
	assert.Equal(t, []string{"See " + urls.TroubleshootingGuide}, tips)
}

func TestListImages(t *testing.T) {
	images, err := listImages(context.Background(), isoFixture(), "/iso", true)
	require.NoError(t, err)
	require.Len(t, images, 2)

	assert.Equal(t, imageInfo{
		Name:        "rhceph-4.0-x86_64.iso",
		Path:        "/iso/rhceph-4.0-x86_64.iso",
		CephVersion: "14",
	}, images[0])
	assert.Equal(t, "rhceph-3.3-x86_64.iso", images[1].Name)
	assert.NotEmpty(t, images[1].Error)

	_, err = listImages(context.Background(), &fakeSource{listErr: errors.New("denied")}, "/iso", false)
	assert.EqualError(t, err, "denied")
}

func TestEncode(t *testing.T) {
	out, err := encode(imageInfo{Name: "a.iso", Path: "/iso/a.iso"}, "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"a.iso","path":"/iso/a.iso"}`, out)

	out, err = encode(imageInfo{Name: "a.iso", Path: "/iso/a.iso"}, "yaml")
	require.NoError(t, err)
	assert.Equal(t, "name: a.iso\npath: /iso/a.iso\n", out)

	_, err = encode(nil, "xml")
	assert.Error(t, err)
}

func TestNewSource(t *testing.T) {
	s := config.NewSettings()

	src, name, err := newSource(context.Background(), s)
	require.NoError(t, err)
	assert.IsType(t, &artifact.LocalSource{}, src)
	assert.Equal(t, "local filesystem", name)

	s.Backend = config.BackendHTTP
	s.Service.URL = "http://installer:5001/"
	s.Service.Username = "runner"
	src, name, err = newSource(context.Background(), s)
	require.NoError(t, err)
	client, ok := src.(*artifact.Client)
	require.True(t, ok)
	assert.Equal(t, "http://installer:5001", client.BaseURL)
	assert.Equal(t, "runner", client.Username)
	assert.Equal(t, s.Service.CacheTTL, client.CacheDuration)
	assert.Equal(t, "http://installer:5001/", name)

	s.Backend = "ftp"
	_, _, err = newSource(context.Background(), s)
	assert.Error(t, err)
}

func TestSaveServiceSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	s := config.NewSettings()
	svc := &discovery.Service{
		IP:       "192.168.122.10",
		Port:     5001,
		Metadata: map[string]string{"imagedir": "/srv/iso"},
	}

	require.NoError(t, saveServiceSettings(s, svc, path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.BackendHTTP, loaded.Backend)
	assert.Equal(t, "http://192.168.122.10:5001", loaded.Service.URL)
	assert.Equal(t, "/srv/iso", loaded.ImageDir)
}
