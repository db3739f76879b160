package environment

import (
	"go.uber.org/zap"

	"github.com/cephinstaller/envstep/internal/logging"
)

// Resolver applies the cross-field rules triggered by a single field change.
// It holds no state of its own; every method maps a State to a new State.
type Resolver struct {
	logger *zap.Logger
}

// NewResolver creates a resolver. A nil logger uses the global logger.
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = logging.Named("resolver")
	}
	return &Resolver{logger: logger}
}

// Reduce applies one field event to s. Events that are not field edits
// (AdvanceRequested, ImageScanned) leave s unchanged; the Step routes those
// to the Validator. Any accepted edit drops a previously resolved version.
func (r *Resolver) Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case SourceChanged:
		return r.OnSourceChange(s, e.Source)
	case VersionChanged:
		return r.OnVersionChange(s, e.Version)
	case CredentialChanged:
		return r.OnCredentialChange(s, e.Field, e.Value)
	case FieldChanged:
		return r.OnSimpleFieldChange(s, e.Field, e.Value)
	case ImagesListed:
		return r.OnImagesListed(s, e)
	default:
		return s
	}
}

// OnSourceChange selects a new source. Choosing ISO without any image sets
// the no-images error and keeps ISO selected. Choosing ISO with images forces
// the RPM installation type. Otherwise the error is cleared and the target
// version moves to the source's first version.
func (r *Resolver) OnSourceChange(s State, source string) State {
	next, err := s.Set(FieldSourceType, source)
	if err != nil {
		r.reject(FieldSourceType, source, err)
		return s
	}
	next = next.withResolvedVersion("")
	logging.LogFieldChange(r.logger, string(FieldSourceType), source)

	if source == SourceISO {
		if !next.catalog.HasImages() {
			r.logger.Warn("ISO source selected with no images available")
			return next.withError(KindNoImages, MsgNoImages)
		}
		next.installType = InstallRPM
	}
	return next.clearError()
}

// OnVersionChange selects a version for the current source. An error from
// scanning the previously selected image is cleared; the new image is read
// on the next advance.
func (r *Resolver) OnVersionChange(s State, version string) State {
	next, err := s.Set(FieldTargetVersion, version)
	if err != nil {
		r.reject(FieldTargetVersion, version, err)
		return s
	}
	logging.LogFieldChange(r.logger, string(FieldTargetVersion), version)
	next = next.withResolvedVersion("")
	if next.errorKind == KindPackageMissing || next.errorKind == KindImageUnreadable {
		next = next.clearError()
	}
	return next
}

// OnCredentialChange sets the user name or password. A credentials-missing
// error is cleared straight away; the credentials are checked again on advance.
func (r *Resolver) OnCredentialChange(s State, f Field, value string) State {
	if f != FieldUsername && f != FieldPassword {
		r.reject(f, value, newInvalidField(f, "%q is not a credential field", f))
		return s
	}
	next, err := s.Set(f, value)
	if err != nil {
		r.reject(f, value, err)
		return s
	}
	logging.LogFieldChange(r.logger, string(f), value)
	next = next.withResolvedVersion("")
	if next.errorKind == KindCredentialsMissing {
		next = next.clearError()
	}
	return next
}

// OnSimpleFieldChange sets one of the independent enumerated fields.
// The container installation type is refused while ISO is the source.
func (r *Resolver) OnSimpleFieldChange(s State, f Field, value string) State {
	if !IsSimpleField(f) {
		r.reject(f, value, newInvalidField(f, "unknown field %q", f))
		return s
	}
	if f == FieldInstallType && s.sourceType == SourceISO && value != InstallRPM {
		r.reject(f, value, newInvalidField(f, "ISO installations only support %s", InstallRPM))
		return s
	}
	next, err := s.Set(f, value)
	if err != nil {
		r.reject(f, value, err)
		return s
	}
	logging.LogFieldChange(r.logger, string(f), value)
	return next.withResolvedVersion("")
}

// OnImagesListed replaces the ISO catalog entry from a directory listing.
// A failed listing leaves the "no images" entry in place. When ISO is already
// the selected source the source rules are applied again against the new list.
func (r *Resolver) OnImagesListed(s State, ev ImagesListed) State {
	if ev.Err != nil {
		logging.LogCollaboratorFailure(r.logger, "list-directory", ev.Path, ev.Err)
		return s
	}
	images := ParseImageListing(ev.Listing)
	r.logger.Info("Image directory listed",
		zap.String("path", ev.Path),
		zap.Int("images", len(images)),
	)
	next := s.withCatalog(s.catalog.WithImages(images))
	if next.sourceType == SourceISO {
		return r.OnSourceChange(next, SourceISO)
	}
	return next
}

func (r *Resolver) reject(f Field, value string, err error) {
	if f == FieldPassword || f == FieldUsername {
		value = ""
	}
	r.logger.Warn("Field update rejected",
		zap.String("field", string(f)),
		zap.String("value", value),
		zap.Error(err),
	)
}
