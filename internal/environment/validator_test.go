package environment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const referenceListing = "20178948 /Tools/ceph-common-14.2.2-16.ga7a380a.1.el8cp.x86_64.rpm\n"

func credentialed(t *testing.T, s State) State {
	t.Helper()
	s, err := s.Set(FieldUsername, "admin")
	require.NoError(t, err)
	s, err = s.Set(FieldPassword, "secret")
	require.NoError(t, err)
	return s
}

func TestValidator_CommunityResolvesSynchronously(t *testing.T) {
	v := NewValidator("", zap.NewNop())
	s := newTestState(t, Defaults{SourceType: SourceCommunity, TargetVersion: "14 (Nautilus)"})

	adv := v.Begin(s)

	assert.Nil(t, adv.Scan)
	require.NotNil(t, adv.Snapshot)
	assert.Equal(t, "14", adv.Snapshot.CephVersion)
	assert.Equal(t, "14", adv.State.ResolvedVersion())
	assert.Equal(t, SourceCommunity, adv.Snapshot.SourceType)
}

func TestValidator_RedHatNeedsCredentials(t *testing.T) {
	v := NewValidator("", zap.NewNop())
	s := newTestState(t, Defaults{})

	adv := v.Begin(s)
	assert.Nil(t, adv.Snapshot)
	assert.Nil(t, adv.Scan)
	assert.Equal(t, KindCredentialsMissing, adv.State.ErrorKind())
	_, msg := adv.State.Status()
	assert.Equal(t, MsgCredentialsMissing, msg)

	adv = v.Begin(credentialed(t, s))
	require.NotNil(t, adv.Snapshot)
	assert.Equal(t, "14", adv.Snapshot.CephVersion)
	assert.Equal(t, "admin", adv.Snapshot.Credentials.Username)
}

func TestValidator_PartialCredentials(t *testing.T) {
	v := NewValidator("", zap.NewNop())
	s := newTestState(t, Defaults{})
	s, err := s.Set(FieldUsername, "admin")
	require.NoError(t, err)

	adv := v.Begin(s)
	assert.Nil(t, adv.Snapshot)
	assert.Equal(t, KindCredentialsMissing, adv.State.ErrorKind())
}

func TestValidator_ExistingErrorBlocks(t *testing.T) {
	v := NewValidator("", zap.NewNop())
	s := newTestState(t, Defaults{SourceType: SourceCommunity}).withError(KindNoImages, MsgNoImages)

	adv := v.Begin(s)

	assert.Nil(t, adv.Snapshot)
	assert.Nil(t, adv.Scan)
	assert.Equal(t, s.Snapshot(), adv.State.Snapshot())
}

func TestValidator_ISOScan(t *testing.T) {
	v := NewValidator("/srv/iso", zap.NewNop())
	r := NewResolver(zap.NewNop())
	s := withImages(newTestState(t, Defaults{}), "rhceph-4.1.iso")
	s = credentialed(t, r.OnSourceChange(s, SourceISO))

	adv := v.Begin(s)
	require.NotNil(t, adv.Scan)
	assert.Nil(t, adv.Snapshot)
	assert.Equal(t, "/srv/iso/rhceph-4.1.iso", adv.Scan.Path)

	t.Run("Package found", func(t *testing.T) {
		done := v.Complete(*adv.Scan, referenceListing, nil)
		require.NotNil(t, done.Snapshot)
		assert.Equal(t, "14", done.Snapshot.CephVersion)
		assert.Equal(t, InstallRPM, done.Snapshot.InstallType)
		assert.Equal(t, "rhceph-4.1.iso", done.Snapshot.TargetVersion)
	})

	t.Run("Package missing", func(t *testing.T) {
		done := v.Complete(*adv.Scan, "1 /Tools/librados2-14.2.2.rpm\n", nil)
		assert.Nil(t, done.Snapshot)
		assert.Equal(t, KindPackageMissing, done.State.ErrorKind())
		_, msg := done.State.Status()
		assert.Equal(t, MsgPackageMissing, msg)
		assert.Empty(t, done.State.ResolvedVersion())
	})

	t.Run("Read failure", func(t *testing.T) {
		done := v.Complete(*adv.Scan, "", errors.New("isoinfo: exit status 1"))
		assert.Nil(t, done.Snapshot)
		assert.Equal(t, KindImageUnreadable, done.State.ErrorKind())
		_, msg := done.State.Status()
		assert.Equal(t, MsgImageUnreadable, msg)
	})
}

func TestValidator_ISOWithoutImages(t *testing.T) {
	v := NewValidator("", zap.NewNop())
	s := credentialed(t, newTestState(t, Defaults{SourceType: SourceISO}))

	adv := v.Begin(s)

	assert.Nil(t, adv.Scan)
	assert.Equal(t, KindNoImages, adv.State.ErrorKind())
}

func TestValidator_CompleteUsesCapturedState(t *testing.T) {
	v := NewValidator("", zap.NewNop())
	r := NewResolver(zap.NewNop())
	s := withImages(newTestState(t, Defaults{}), "a.iso")
	s = credentialed(t, r.OnSourceChange(s, SourceISO))

	adv := v.Begin(s)
	require.NotNil(t, adv.Scan)

	// a later edit to a copy of the state does not reach the scan result
	_ = r.OnSourceChange(s, SourceCommunity)

	done := v.Complete(*adv.Scan, referenceListing, nil)
	require.NotNil(t, done.Snapshot)
	assert.Equal(t, SourceISO, done.Snapshot.SourceType)
}

func TestValidator_ImagePath(t *testing.T) {
	assert.Equal(t, DefaultImageDir+"/x.iso", NewValidator("", zap.NewNop()).ImagePath("x.iso"))
	assert.Equal(t, "/data/x.iso", NewValidator("/data/", zap.NewNop()).ImagePath("x.iso"))
}
