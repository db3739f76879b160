package environment

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cephinstaller/envstep/internal/logging"
)

// Phase is the lifecycle position of a step.
type Phase int

const (
	// PhaseEditing accepts field edits and advance requests
	PhaseEditing Phase = iota
	// PhaseValidating waits for an image scan; edits are rejected
	PhaseValidating
	// PhaseReady has emitted its snapshot and accepts nothing further
	PhaseReady
)

// String returns the phase name
func (p Phase) String() string {
	switch p {
	case PhaseEditing:
		return "editing"
	case PhaseValidating:
		return "validating"
	case PhaseReady:
		return "ready"
	default:
		return fmt.Sprintf("Phase(%d)", p)
	}
}

// ErrNoSource is returned by NewStep when no collaborator is configured.
var ErrNoSource = errors.New("environment: no artifact source configured")

// Options configures a Step.
type Options struct {
	Defaults   Defaults
	ImageDir   string
	Source     Source
	OnComplete func(Snapshot)
	Logger     *zap.Logger
}

// Step is one instance of the environment step. It owns its State and is
// driven by a single goroutine: events go in through Update and any returned
// Cmd is run by the owner, its event fed back through Update.
type Step struct {
	state     State
	phase     Phase
	resolver  *Resolver
	validator *Validator
	source    Source
	logger    *zap.Logger

	onComplete func(Snapshot)
	completed  bool

	nextID  uint64
	pending *ScanRequest

	listed   bool
	deferred *ImagesListed
	disposed bool

	// preferredImage is the configured ISO image, selectable only once listed
	preferredImage string
}

// NewStep creates a step in the editing phase.
func NewStep(opts Options) (*Step, error) {
	if opts.Source == nil {
		return nil, ErrNoSource
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Named("environment")
	}
	state, err := NewState(NewCatalog(), opts.Defaults)
	if err != nil {
		return nil, fmt.Errorf("invalid defaults: %w", err)
	}
	step := &Step{
		state:      state,
		phase:      PhaseEditing,
		resolver:   NewResolver(logger.Named("resolver")),
		validator:  NewValidator(opts.ImageDir, logger.Named("validator")),
		source:     opts.Source,
		logger:     logger,
		onComplete: opts.OnComplete,
	}
	if opts.Defaults.SourceType == SourceISO {
		step.preferredImage = opts.Defaults.TargetVersion
	}
	return step, nil
}

// State returns a copy of the current state.
func (s *Step) State() State {
	return s.state
}

// Phase returns the current phase.
func (s *Step) Phase() Phase {
	return s.phase
}

// ImageDir returns the directory scanned for ISO images.
func (s *Step) ImageDir() string {
	return s.validator.ImageDir()
}

// Close disposes the step. Results of reads still in flight are dropped.
func (s *Step) Close() {
	if s.disposed {
		return
	}
	s.disposed = true
	s.pending = nil
	s.logger.Debug("Step disposed", zap.Stringer("phase", s.phase))
}

// Disposed reports whether Close has been called.
func (s *Step) Disposed() bool {
	return s.disposed
}

// Init returns the command that lists the image directory. It is meant to be
// run once when the step is entered.
func (s *Step) Init() Cmd {
	dir := s.validator.ImageDir()
	src := s.source
	return func(ctx context.Context) Event {
		listing, err := src.ListDirectory(ctx, dir)
		return ImagesListed{Path: dir, Listing: listing, Err: err}
	}
}

// Update applies an event and returns the next command to run, if any.
func (s *Step) Update(ev Event) Cmd {
	if s.disposed {
		s.drop(ev, "step disposed")
		return nil
	}

	switch e := ev.(type) {
	case ImagesListed:
		return s.handleListing(e)
	case SourceChanged, VersionChanged, CredentialChanged, FieldChanged:
		if s.phase != PhaseEditing {
			s.drop(ev, "edit while "+s.phase.String())
			return nil
		}
		s.state = s.resolver.Reduce(s.state, ev)
		return nil
	case AdvanceRequested:
		return s.handleAdvance()
	case ImageScanned:
		return s.handleScan(e)
	default:
		s.drop(ev, "unknown event")
		return nil
	}
}

func (s *Step) handleListing(e ImagesListed) Cmd {
	if s.listed {
		s.drop(e, "image directory already listed")
		return nil
	}
	s.listed = true
	if s.phase == PhaseValidating {
		s.deferred = &e
		return nil
	}
	s.applyListing(e)
	return nil
}

// applyListing updates the ISO catalog and, while ISO is still selected,
// moves to the configured image if the listing contains it.
func (s *Step) applyListing(e ImagesListed) {
	s.state = s.resolver.Reduce(s.state, e)
	img := s.preferredImage
	if img == "" || s.state.sourceType != SourceISO || !s.state.catalog.Contains(SourceISO, img) {
		return
	}
	s.state = s.resolver.OnVersionChange(s.state, img)
}

func (s *Step) handleAdvance() Cmd {
	if s.phase != PhaseEditing {
		s.drop(AdvanceRequested{}, "advance while "+s.phase.String())
		return nil
	}

	adv := s.validator.Begin(s.state)
	s.state = adv.State
	switch {
	case adv.Snapshot != nil:
		s.complete(*adv.Snapshot)
		return nil
	case adv.Scan != nil:
		s.nextID++
		req := *adv.Scan
		req.ID = s.nextID
		s.pending = &req
		s.phase = PhaseValidating
		return s.scanCmd(req.ID, req.Path)
	default:
		return nil
	}
}

func (s *Step) scanCmd(id uint64, path string) Cmd {
	src := s.source
	return func(ctx context.Context) Event {
		content, err := src.ReadContents(ctx, path)
		return ImageScanned{ID: id, Path: path, Content: content, Err: err}
	}
}

func (s *Step) handleScan(e ImageScanned) Cmd {
	if s.phase != PhaseValidating || s.pending == nil || e.ID != s.pending.ID {
		s.drop(e, "stale image scan")
		return nil
	}
	req := *s.pending
	s.pending = nil

	adv := s.validator.Complete(req, e.Content, e.Err)
	s.state = adv.State
	if adv.Snapshot != nil {
		s.complete(*adv.Snapshot)
		return nil
	}

	s.phase = PhaseEditing
	if s.deferred != nil {
		listing := *s.deferred
		s.deferred = nil
		s.applyListing(listing)
	}
	return nil
}

func (s *Step) complete(snap Snapshot) {
	s.phase = PhaseReady
	if s.completed {
		return
	}
	s.completed = true
	s.logger.Info("Environment step complete",
		zap.String("source", snap.SourceType),
		zap.String("ceph_version", snap.CephVersion),
	)
	if s.onComplete != nil {
		s.onComplete(snap)
	}
}

func (s *Step) drop(ev Event, reason string) {
	s.logger.Warn("Event dropped",
		zap.String("event", fmt.Sprintf("%T", ev)),
		zap.String("reason", reason),
	)
}

// Drive runs cmd and feeds each resulting event back into step until no
// command remains or ctx is done.
func Drive(ctx context.Context, step *Step, cmd Cmd) error {
	for cmd != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		cmd = step.Update(cmd(ctx))
	}
	return nil
}
