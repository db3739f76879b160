package environment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewState_Defaults(t *testing.T) {
	s, err := NewState(nil, Defaults{})
	require.NoError(t, err)

	assert.Equal(t, SourceRedHat, s.Get(FieldSourceType))
	assert.Equal(t, "RHCS 4", s.Get(FieldTargetVersion))
	assert.Equal(t, ClusterProduction, s.Get(FieldClusterType))
	assert.Equal(t, OSDBluestore, s.Get(FieldOSDType))
	assert.Equal(t, NetworkIPv4, s.Get(FieldNetworkType))
	assert.Equal(t, OSDModeNone, s.Get(FieldOSDMode))
	assert.Equal(t, InstallContainer, s.Get(FieldInstallType))
	assert.Equal(t, FlashJournals, s.Get(FieldFlashUsage))

	level, msg := s.Status()
	assert.Equal(t, StatusInfo, level)
	assert.Empty(t, msg)
	assert.True(t, s.CredentialsRequired())
	assert.Empty(t, s.ResolvedVersion())
}

func TestNewState_CallerDefaults(t *testing.T) {
	s, err := NewState(nil, Defaults{
		SourceType:    SourceCommunity,
		TargetVersion: "13 (Mimic)",
		OSDMode:       OSDModeEncrypted,
	})
	require.NoError(t, err)

	assert.Equal(t, SourceCommunity, s.Get(FieldSourceType))
	assert.Equal(t, "13 (Mimic)", s.Get(FieldTargetVersion))
	assert.Equal(t, OSDModeEncrypted, s.Get(FieldOSDMode))
	assert.False(t, s.CredentialsRequired())
}

func TestNewState_UnlistedVersionFallsBackToFirst(t *testing.T) {
	s, err := NewState(nil, Defaults{SourceType: SourceDistribution, TargetVersion: "14 (Nautilus)"})
	require.NoError(t, err)
	assert.Equal(t, "13 (Mimic)", s.Get(FieldTargetVersion))
}

func TestNewState_ISOForcesRPM(t *testing.T) {
	s, err := NewState(nil, Defaults{SourceType: SourceISO, InstallType: InstallContainer})
	require.NoError(t, err)
	assert.Equal(t, InstallRPM, s.Get(FieldInstallType))
	assert.Equal(t, NoImagesSentinel, s.Get(FieldTargetVersion))
}

func TestNewState_InvalidDefaults(t *testing.T) {
	tests := []struct {
		name     string
		defaults Defaults
		field    Field
	}{
		{"Unknown source", Defaults{SourceType: "Debian"}, FieldSourceType},
		{"Unknown OSD type", Defaults{OSDType: "Seastore"}, FieldOSDType},
		{"Unknown network", Defaults{NetworkType: "ipv6"}, FieldNetworkType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewState(nil, tt.defaults)
			require.Error(t, err)
			assert.Equal(t, KindInvalidField, KindOf(err))

			var se *StepError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.field, se.Field)
		})
	}
}

func TestState_SetSourceResetsVersion(t *testing.T) {
	s, err := NewState(nil, Defaults{})
	require.NoError(t, err)

	for _, source := range Sources {
		t.Run(source, func(t *testing.T) {
			next, err := s.Set(FieldSourceType, source)
			require.NoError(t, err)
			assert.Equal(t, source, next.Get(FieldSourceType))
			assert.Equal(t, s.Catalog().First(source), next.Get(FieldTargetVersion))
			assert.True(t, next.Catalog().Contains(source, next.Get(FieldTargetVersion)))
		})
	}
}

func TestState_SetIsValueSemantics(t *testing.T) {
	s, err := NewState(nil, Defaults{})
	require.NoError(t, err)

	next, err := s.Set(FieldOSDType, OSDFilestore)
	require.NoError(t, err)

	assert.Equal(t, OSDBluestore, s.Get(FieldOSDType))
	assert.Equal(t, OSDFilestore, next.Get(FieldOSDType))
}

func TestState_SetRejectsInvalid(t *testing.T) {
	s, err := NewState(nil, Defaults{SourceType: SourceCommunity})
	require.NoError(t, err)

	tests := []struct {
		name  string
		field Field
		value string
	}{
		{"Version of another source", FieldTargetVersion, "RHCS 4"},
		{"Unknown source", FieldSourceType, "Fedora"},
		{"Unknown cluster type", FieldClusterType, "Staging"},
		{"Unknown field", Field("colour"), "blue"},
		{"User name too long", FieldUsername, "abcdefghijklmnopqrstuvwxyz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := s.Set(tt.field, tt.value)
			require.Error(t, err)
			assert.Equal(t, KindInvalidField, KindOf(err))
			assert.Equal(t, s.Snapshot(), next.Snapshot())
		})
	}
}

func TestState_Credentials(t *testing.T) {
	s, err := NewState(nil, Defaults{})
	require.NoError(t, err)

	s, err = s.Set(FieldUsername, "admin")
	require.NoError(t, err)
	assert.False(t, s.Credentials().Complete())

	s, err = s.Set(FieldPassword, "secret")
	require.NoError(t, err)
	assert.True(t, s.Credentials().Complete())
	assert.Equal(t, "admin", s.Get(FieldUsername))
	assert.Equal(t, "secret", s.Get(FieldPassword))
}

func TestState_SnapshotIsCopy(t *testing.T) {
	s, err := NewState(nil, Defaults{})
	require.NoError(t, err)
	s, err = s.Set(FieldPassword, "secret")
	require.NoError(t, err)

	snap := s.Snapshot()
	snap.SourceType = SourceISO
	snap.Credentials.Password = "changed"

	assert.Equal(t, SourceRedHat, s.Get(FieldSourceType))
	assert.Equal(t, "secret", s.Get(FieldPassword))
}

func TestSnapshot_Redacted(t *testing.T) {
	snap := Snapshot{Credentials: Credentials{Username: "admin", Password: "secret"}}
	red := snap.Redacted()

	assert.Equal(t, "admin", red.Credentials.Username)
	assert.Equal(t, "********", red.Credentials.Password)
	assert.Equal(t, "secret", snap.Credentials.Password)
	assert.Empty(t, Snapshot{}.Redacted().Credentials.Password)
}

func TestCatalog_WithImages(t *testing.T) {
	c := NewCatalog()
	assert.False(t, c.HasImages())
	assert.Equal(t, []string{NoImagesSentinel}, c.Versions(SourceISO))

	next := c.WithImages([]string{"a.iso", "b.iso"})
	assert.True(t, next.HasImages())
	assert.Equal(t, []string{"a.iso", "b.iso"}, next.Versions(SourceISO))
	assert.Equal(t, c.Versions(SourceCommunity), next.Versions(SourceCommunity))

	// original untouched
	assert.False(t, c.HasImages())

	empty := next.WithImages(nil)
	assert.False(t, empty.HasImages())
}

func TestCatalog_VersionsIsCopy(t *testing.T) {
	c := NewCatalog()
	v := c.Versions(SourceCommunity)
	v[0] = "changed"
	assert.Equal(t, "14 (Nautilus)", c.First(SourceCommunity))
}
