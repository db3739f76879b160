package environment

import "context"

// Event is a single input to the step. The set of events is closed: only
// the types in this file implement it.
type Event interface {
	event()
}

// SourceChanged selects a new installation source.
type SourceChanged struct {
	Source string
}

// VersionChanged selects a version from the current source's catalog entry.
type VersionChanged struct {
	Version string
}

// CredentialChanged updates the RHN user name or password.
type CredentialChanged struct {
	Field Field
	Value string
}

// FieldChanged updates one of the independent enumerated fields.
type FieldChanged struct {
	Field Field
	Value string
}

// ImagesListed carries the result of the initial image directory listing.
type ImagesListed struct {
	Path    string
	Listing string
	Err     error
}

// AdvanceRequested asks the step to validate and complete.
type AdvanceRequested struct{}

// ImageScanned carries the result of reading the selected image's contents.
type ImageScanned struct {
	ID      uint64
	Path    string
	Content string
	Err     error
}

func (SourceChanged) event()     {}
func (VersionChanged) event()    {}
func (CredentialChanged) event() {}
func (FieldChanged) event()      {}
func (ImagesListed) event()      {}
func (AdvanceRequested) event()  {}
func (ImageScanned) event()      {}

// Cmd is a deferred read against an external collaborator. Running it blocks
// until the read finishes and returns the resulting event, which the owner
// feeds back through Step.Update.
type Cmd func(ctx context.Context) Event

// Source is the external collaborator that lists the image directory and
// reads image contents.
type Source interface {
	// ListDirectory returns a whitespace-separated list of file paths.
	ListDirectory(ctx context.Context, path string) (string, error)
	// ReadContents returns the newline-separated content listing of an image.
	ReadContents(ctx context.Context, path string) (string, error)
}
