package environment

import (
	"path"

	"go.uber.org/zap"

	"github.com/cephinstaller/envstep/internal/logging"
)

// Outcome values reported by LogAdvance.
const (
	OutcomeBlocked  = "blocked"
	OutcomeRejected = "rejected"
	OutcomeScanning = "scanning"
	OutcomeReady    = "ready"
)

// ScanRequest is an outstanding read of an image's contents. It carries the
// state captured when the advance began; the read result is validated against
// that state, never against live edits.
type ScanRequest struct {
	ID    uint64
	Path  string
	state State
}

// Advance is the result of starting an advance attempt. Exactly one of Scan
// and Snapshot is set when the attempt did not stop on an error.
type Advance struct {
	State    State
	Scan     *ScanRequest
	Snapshot *Snapshot
}

// Validator gates advancement of the step.
type Validator struct {
	imageDir string
	logger   *zap.Logger
}

// NewValidator creates a validator reading images below imageDir.
// An empty imageDir uses DefaultImageDir; a nil logger uses the global logger.
func NewValidator(imageDir string, logger *zap.Logger) *Validator {
	if imageDir == "" {
		imageDir = DefaultImageDir
	}
	if logger == nil {
		logger = logging.Named("validator")
	}
	return &Validator{imageDir: imageDir, logger: logger}
}

// ImageDir returns the directory holding ISO images.
func (v *Validator) ImageDir() string {
	return v.imageDir
}

// ImagePath returns the path of an image in the image directory.
func (v *Validator) ImagePath(image string) string {
	return path.Join(v.imageDir, image)
}

// Begin runs the synchronous part of an advance attempt.
//
// An existing error aborts without changes. Missing credentials for Red Hat
// or ISO set the credentials error. An ISO source returns a ScanRequest for
// the selected image; any other source resolves its version from the target
// version label and returns the snapshot.
func (v *Validator) Begin(s State) Advance {
	source, version := s.sourceType, s.targetVersion

	if s.HasError() {
		logging.LogAdvance(v.logger, source, version, OutcomeBlocked)
		return Advance{State: s}
	}

	if RequiresCredentials(source) && !s.credentials.Complete() {
		logging.LogAdvance(v.logger, source, version, OutcomeRejected)
		return Advance{State: s.withError(KindCredentialsMissing, MsgCredentialsMissing)}
	}

	if source == SourceISO {
		if !s.catalog.HasImages() {
			logging.LogAdvance(v.logger, source, version, OutcomeRejected)
			return Advance{State: s.withError(KindNoImages, MsgNoImages)}
		}
		logging.LogAdvance(v.logger, source, version, OutcomeScanning)
		return Advance{
			State: s,
			Scan:  &ScanRequest{Path: v.ImagePath(version), state: s},
		}
	}

	return v.finish(s, ExtractVersionToken(version))
}

// Complete validates the result of a ScanRequest. A read failure sets the
// unreadable error and a listing without ceph-common sets the package error.
// Otherwise the extracted version is resolved and the snapshot returned.
func (v *Validator) Complete(req ScanRequest, content string, err error) Advance {
	s := req.state
	if err != nil {
		logging.LogCollaboratorFailure(v.logger, "read-contents", req.Path, err)
		logging.LogAdvance(v.logger, s.sourceType, s.targetVersion, OutcomeRejected)
		return Advance{State: s.withError(KindImageUnreadable, MsgImageUnreadable)}
	}

	version, ok := ExtractPackageVersion(content)
	if !ok {
		v.logger.Warn("Image does not contain the ceph-common package",
			zap.String("path", req.Path),
		)
		logging.LogAdvance(v.logger, s.sourceType, s.targetVersion, OutcomeRejected)
		return Advance{State: s.withError(KindPackageMissing, MsgPackageMissing)}
	}

	v.logger.Info("ceph-common package found on image",
		zap.String("path", req.Path),
		zap.String("ceph_version", version),
	)
	return v.finish(s, version)
}

func (v *Validator) finish(s State, version string) Advance {
	s = s.withResolvedVersion(version)
	snap := s.Snapshot()
	logging.LogAdvance(v.logger, s.sourceType, s.targetVersion, OutcomeReady)
	return Advance{State: s, Snapshot: &snap}
}
