package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/photo-filter-mcp/internal/filter"
	"github.com/ironsheep/photo-filter-mcp/internal/imaging"
	"github.com/ironsheep/photo-filter-mcp/internal/logging"
)

// DefaultMaxDimension bounds the longer side of the working image.
const DefaultMaxDimension = 1024

var (
	// ErrSuperseded is returned to a request whose result was discarded
	// because a newer request replaced it.
	ErrSuperseded = errors.New("request superseded")

	// ErrClosed is returned once the session has been closed.
	ErrClosed = errors.New("session closed")
)

// NoSelection is the Snapshot.Selected value when no filter is selected.
const NoSelection = -1

// Snapshot is a consistent view of the session state.
type Snapshot struct {
	// Working is the scaled working image.
	Working *imaging.Buffer

	// Selected is the selected registry index, or NoSelection.
	Selected int

	// Preview is Working with the selected filter applied, or Working
	// itself when nothing is selected.
	Preview *imaging.Buffer

	// Degraded is true when the engine failed to render the selected
	// filter and Preview holds the unfiltered image instead.
	Degraded bool

	// Version increments each time a change is applied.
	Version uint64
}

// HasSelection reports whether a filter is selected.
func (s Snapshot) HasSelection() bool { return s.Selected != NoSelection }

// Options configures a Session.
type Options struct {
	// MaxDimension bounds the working image; DefaultMaxDimension when zero.
	MaxDimension int

	// Logger receives worker diagnostics. Discarded when nil.
	Logger *logrus.Logger

	// OnUpdate, when set, is called on the worker after every applied
	// change. It must not call back into the session's blocking methods.
	OnUpdate func(Snapshot)
}

type jobKind int

const (
	jobSetImage jobKind = iota
	jobSelect
)

type result struct {
	snap Snapshot
	err  error
}

type job struct {
	kind  jobKind
	gen   uint64
	raw   *imaging.Buffer
	index int
	reply chan result
}

// resolve delivers the outcome. reply is buffered so the worker never blocks.
func (j *job) resolve(snap Snapshot, err error) {
	j.reply <- result{snap: snap, err: err}
}

// Pending is the eventual outcome of an asynchronous request.
type Pending struct {
	reply chan result
	once  sync.Once
	res   result
}

func resolved(err error) *Pending {
	p := &Pending{reply: make(chan result, 1)}
	p.reply <- result{err: err}
	return p
}

// Wait blocks until the request is applied, superseded or fails, or ctx ends.
//
// On success the returned Snapshot is the state right after this request was
// applied. Wait may be called more than once.
func (p *Pending) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case r, ok := <-p.reply:
		if ok {
			p.once.Do(func() {
				p.res = r
				close(p.reply)
			})
		}
		return p.res.snap, p.res.err
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Session is an edit session over one working image.
//
// The working image and selection are only changed by the background worker;
// readers observe them through accessor methods that return immutable Buffers.
type Session struct {
	registry *filter.Registry
	maxDim   int
	log      *logrus.Entry
	onUpdate func(Snapshot)

	mu       sync.Mutex
	working  *imaging.Buffer
	selected int
	preview  *imaging.Buffer
	degraded bool
	version  uint64
	closed   bool

	// imageGen advances on every image request; selectGen advances on every
	// image or select request. A result is applied only if its generation
	// is still current.
	imageGen  uint64
	selectGen uint64

	nextImage  *job
	nextSelect *job

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New starts a session showing initial, unfiltered.
//
// initial is scaled to fit synchronously; a resize failure is returned.
func New(registry *filter.Registry, initial *imaging.Buffer, opts Options) (*Session, error) {
	if registry == nil {
		return nil, errors.New("session requires a filter registry")
	}
	maxDim := opts.MaxDimension
	if maxDim == 0 {
		maxDim = DefaultMaxDimension
	}
	if maxDim < 0 {
		return nil, fmt.Errorf("invalid max dimension %d", maxDim)
	}

	working, err := imaging.ScaleToFit(initial, maxDim)
	if err != nil {
		return nil, fmt.Errorf("initial image: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		registry: registry,
		maxDim:   maxDim,
		log:      logging.Component(opts.Logger, "session"),
		onUpdate: opts.OnUpdate,
		working:  working,
		selected: NoSelection,
		wake:     make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}

	s.wg.Add(1)
	go s.run()
	return s, nil
}

// SetWorkingImageAsync queues raw as the new working image.
//
// The image is scaled to fit on the worker. Once applied, the selection is
// cleared. Any queued or running request issued earlier is superseded.
// On resize failure the prior working image is kept and the error wraps
// imaging.ErrResize.
func (s *Session) SetWorkingImageAsync(raw *imaging.Buffer) *Pending {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return resolved(ErrClosed)
	}

	s.imageGen++
	s.selectGen++
	s.supersede(&s.nextImage, ErrSuperseded)
	s.supersede(&s.nextSelect, ErrSuperseded)

	j := &job{kind: jobSetImage, gen: s.imageGen, raw: raw, reply: make(chan result, 1)}
	s.nextImage = j
	s.signal()
	return &Pending{reply: j.reply}
}

// SelectAsync queues selection of the filter at index.
//
// An index outside the registry fails immediately with filter.ErrOutOfRange
// and leaves the session unchanged. Otherwise any earlier select request is
// superseded. A select issued after a pending image request renders against
// that new image.
func (s *Session) SelectAsync(index int) *Pending {
	if err := s.registry.Check(index); err != nil {
		return resolved(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return resolved(ErrClosed)
	}

	s.selectGen++
	s.supersede(&s.nextSelect, ErrSuperseded)

	j := &job{kind: jobSelect, gen: s.selectGen, index: index, reply: make(chan result, 1)}
	s.nextSelect = j
	s.signal()
	return &Pending{reply: j.reply}
}

// SetWorkingImage replaces the working image and waits for the result.
func (s *Session) SetWorkingImage(ctx context.Context, raw *imaging.Buffer) (Snapshot, error) {
	return s.SetWorkingImageAsync(raw).Wait(ctx)
}

// Select selects the filter at index and waits for the rendered preview.
func (s *Session) Select(ctx context.Context, index int) (Snapshot, error) {
	return s.SelectAsync(index).Wait(ctx)
}

// WorkingImage returns the current working image.
func (s *Session) WorkingImage() *imaging.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.working
}

// Selected returns the selected index and whether a filter is selected.
func (s *Session) Selected() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.selected != NoSelection
}

// CurrentPreview returns the working image with the selected filter applied,
// or the working image itself when nothing is selected.
func (s *Session) CurrentPreview() *imaging.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPreviewLocked()
}

// Commit returns the image to hand to persistence. It does not change state.
func (s *Session) Commit() *imaging.Buffer {
	return s.CurrentPreview()
}

// Snapshot returns the full session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close stops the worker. Queued requests resolve with ErrClosed, and a
// request already running is discarded once the engine returns.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.supersede(&s.nextImage, ErrClosed)
	s.supersede(&s.nextSelect, ErrClosed)
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	return nil
}

func (s *Session) currentPreviewLocked() *imaging.Buffer {
	if s.selected == NoSelection || s.preview == nil {
		return s.working
	}
	return s.preview
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		Working:  s.working,
		Selected: s.selected,
		Preview:  s.currentPreviewLocked(),
		Degraded: s.degraded,
		Version:  s.version,
	}
}

// supersede resolves and clears a queued job slot. Caller holds s.mu.
func (s *Session) supersede(slot **job, err error) {
	if *slot != nil {
		(*slot).resolve(Snapshot{}, err)
		*slot = nil
	}
}

func (s *Session) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// take pops the next job. Image requests run before selects so that a
// select queued behind an import renders against the imported image.
func (s *Session) take() *job {
	s.mu.Lock()
	defer s.mu.Unlock()

	if j := s.nextImage; j != nil {
		s.nextImage = nil
		return j
	}
	if j := s.nextSelect; j != nil {
		s.nextSelect = nil
		return j
	}
	return nil
}

func (s *Session) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
		}

		for j := s.take(); j != nil; j = s.take() {
			switch j.kind {
			case jobSetImage:
				s.runSetImage(j)
			case jobSelect:
				s.runSelect(j)
			}
		}
	}
}

func (s *Session) runSetImage(j *job) {
	scaled, err := imaging.ScaleToFit(j.raw, s.maxDim)

	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		j.resolve(Snapshot{}, ErrClosed)
		return
	case j.gen != s.imageGen:
		s.mu.Unlock()
		s.log.WithField("generation", j.gen).Debug("discarding superseded image")
		j.resolve(Snapshot{}, ErrSuperseded)
		return
	case err != nil:
		s.mu.Unlock()
		s.log.WithError(err).Warn("working image rejected, keeping prior image")
		j.resolve(Snapshot{}, err)
		return
	}

	s.working = scaled
	s.selected = NoSelection
	s.preview = nil
	s.degraded = false
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"source":  j.raw.String(),
		"working": scaled.String(),
	}).Debug("working image replaced")
	s.publish(snap)
	j.resolve(snap, nil)
}

func (s *Session) runSelect(j *job) {
	s.mu.Lock()
	working := s.working
	s.mu.Unlock()

	// Check passed at enqueue time and the registry never changes.
	t, _ := s.registry.Get(j.index)
	out, renderErr := t.ApplyOrOriginal(working)

	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		j.resolve(Snapshot{}, ErrClosed)
		return
	case j.gen != s.selectGen:
		s.mu.Unlock()
		s.log.WithFields(logrus.Fields{
			"generation": j.gen,
			"filter":     t.DisplayName(),
		}).Debug("discarding superseded preview")
		j.resolve(Snapshot{}, ErrSuperseded)
		return
	}

	s.selected = j.index
	s.preview = out
	s.degraded = renderErr != nil
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if renderErr != nil {
		s.log.WithError(renderErr).WithField("filter", t.DisplayName()).
			Warn("filter unavailable, showing unfiltered image")
	}
	s.publish(snap)
	j.resolve(snap, nil)
}

func (s *Session) publish(snap Snapshot) {
	if s.onUpdate != nil {
		s.onUpdate(snap)
	}
}
