package measurement

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/SomeOppaiBoy/true-scale/internal/anchor"
	"github.com/SomeOppaiBoy/true-scale/internal/ar"
	"github.com/SomeOppaiBoy/true-scale/internal/confidence"
	"github.com/SomeOppaiBoy/true-scale/internal/config"
	"github.com/SomeOppaiBoy/true-scale/internal/metrics"
	"github.com/SomeOppaiBoy/true-scale/internal/monitoring"
	"github.com/SomeOppaiBoy/true-scale/internal/registrar"
	"github.com/SomeOppaiBoy/true-scale/internal/timeutil"
	"github.com/SomeOppaiBoy/true-scale/pkg/geometry"
	"github.com/SomeOppaiBoy/true-scale/pkg/units"
)

// Engine is the measurement state machine for one AR session.
//
// It is driven from a single goroutine: one OnFrameTick per rendered frame,
// with taps serialized against frame delivery by the caller. Engine methods
// are not safe for concurrent use.
type Engine struct {
	cfg       *config.EngineConfig
	anchors   ar.AnchorFactory
	ledger    *anchor.Ledger
	registrar *registrar.Registrar
	scorer    *confidence.Scorer
	smoother  *confidence.DistanceSmoother
	clock     timeutil.Clock
	observer  func(Eviction)
	threshold float32

	mode         Mode
	phase        Phase
	pendingStart *Point
	current      *Measurement
	history      *History
	useMetric    bool
	tracking     ar.TrackingState
}

// Option configures an Engine
type Option func(*Engine)

// WithConfig sets the engine tuning. Nil keeps the built-in defaults.
func WithConfig(cfg *config.EngineConfig) Option {
	return func(e *Engine) {
		if cfg != nil {
			e.cfg = cfg
		}
	}
}

// WithClock sets the clock used to timestamp points
func WithClock(c timeutil.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithScorer replaces the confidence scorer
func WithScorer(s *confidence.Scorer) Option {
	return func(e *Engine) {
		e.scorer = s
	}
}

// WithRegistrar replaces the surface registrar, overriding configured jitter offsets
func WithRegistrar(r *registrar.Registrar) Option {
	return func(e *Engine) {
		e.registrar = r
	}
}

// WithEvictionObserver registers a callback for capacity evictions
func WithEvictionObserver(fn func(Eviction)) Option {
	return func(e *Engine) {
		e.observer = fn
	}
}

// NewEngine creates an idle engine in Distance mode that creates anchors through factory
func NewEngine(factory ar.AnchorFactory, opts ...Option) *Engine {
	e := &Engine{
		cfg:      &config.EngineConfig{},
		anchors:  factory,
		clock:    timeutil.RealClock{},
		mode:     Distance,
		phase:    Idle,
		tracking: ar.TrackingUnknown,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.registrar == nil {
		e.registrar = registrar.New(registrar.OffsetsFromPairs(e.cfg.GetJitterOffsets()))
	}
	if e.scorer == nil {
		e.scorer = confidence.NewScorer()
	}
	e.threshold = e.cfg.GetConfidenceThreshold()
	e.ledger = anchor.NewLedger(e.cfg.GetMaxAnchors())
	e.history = NewHistory(e.cfg.GetHistoryCapacity())
	e.smoother = confidence.NewDistanceSmoother(e.cfg.GetSmoothingWindow())
	e.useMetric = e.cfg.GetUseMetric()
	return e
}

// OnTap tries to register a measurement endpoint at screen point (x, y).
// Rejections leave the engine state and the anchor ledger untouched.
func (e *Engine) OnTap(x, y float32, frame ar.Frame) TapOutcome {
	e.tracking = frame.TrackingState()
	if e.tracking != ar.Tracking {
		return e.reject(fmt.Errorf("%w: frame is %s", ErrTrackingNotReady, e.tracking))
	}

	reg, err := e.registrar.Register(frame, x, y)
	if err != nil {
		return e.reject(err)
	}
	metrics.ObserveRegistration(reg.Attempts)

	position := reg.Candidate.Pose.Position
	score := e.score(frame, reg.Candidate)
	if score < e.threshold {
		return e.reject(fmt.Errorf("%w: %.2f below %.2f", ErrLowConfidence, score, e.threshold))
	}

	// The only fallible step runs before anything visible changes.
	handle, err := e.anchors.CreateAnchor(reg.Candidate.Pose)
	if err != nil {
		return e.reject(fmt.Errorf("%w: %w", ErrAnchorCreationFailed, err))
	}

	anchorID, evictedAnchors := e.ledger.Insert(handle)
	point := Point{
		ID:         uuid.New(),
		Position:   position,
		AnchorID:   anchorID,
		Confidence: score,
		Timestamp:  e.clock.Now(),
		Offset:     reg.Offset,
	}
	evictions := e.releaseAnchors(evictedAnchors)

	var outcome TapOutcome
	if e.phase == AwaitingSecondPoint && e.pendingStart != nil {
		outcome = e.complete(point)
	} else {
		outcome = e.start(point)
	}
	outcome.Evictions = append(evictions, outcome.Evictions...)

	for _, ev := range outcome.Evictions {
		e.notify(ev)
	}
	metrics.SetLiveAnchors(e.ledger.Len())
	metrics.ObserveTap(outcome.Kind.String(), "")
	return outcome
}

func (e *Engine) start(p Point) TapOutcome {
	e.current = nil
	e.pendingStart = &p
	e.phase = AwaitingSecondPoint
	e.smoother.Reset()

	pc := p
	return TapOutcome{Kind: Registered, Point: &pc}
}

func (e *Engine) complete(end Point) TapOutcome {
	m := Measurement{
		ID:    uuid.New(),
		Start: *e.pendingStart,
		End:   end,
		Mode:  e.mode,
	}

	var evictions []Eviction
	for _, old := range e.history.Push(m) {
		e.ledger.Remove(old.Start.AnchorID)
		e.ledger.Remove(old.End.AnchorID)
		evictions = append(evictions, Eviction{Kind: EvictedFromHistory, Measurement: old})
	}

	e.current = &m
	e.pendingStart = nil
	e.phase = Idle
	e.smoother.Reset()

	mc := m
	pc := end
	return TapOutcome{Kind: Completed, Point: &pc, Measurement: &mc, Evictions: evictions}
}

// releaseAnchors drops whatever owned anchors the ledger evicted for space.
// A measurement that lost one anchor leaves the engine entirely and its other
// anchor is detached with it.
func (e *Engine) releaseAnchors(evicted []uuid.UUID) []Eviction {
	if len(evicted) == 0 {
		return nil
	}
	gone := make(map[uuid.UUID]bool, len(evicted))
	for _, id := range evicted {
		gone[id] = true
	}

	if e.pendingStart != nil && gone[e.pendingStart.AnchorID] {
		monitoring.Logf("measurement: pending start %s lost its anchor to the ledger limit", e.pendingStart.ID)
		e.pendingStart = nil
		e.phase = Idle
	}

	var evictions []Eviction
	removed := e.history.RemoveWhere(func(m Measurement) bool {
		return gone[m.Start.AnchorID] || gone[m.End.AnchorID]
	})
	for _, m := range removed {
		e.ledger.Remove(m.Start.AnchorID)
		e.ledger.Remove(m.End.AnchorID)
		if e.current != nil && e.current.ID == m.ID {
			e.current = nil
		}
		evictions = append(evictions, Eviction{Kind: EvictedByAnchorLimit, Measurement: m})
	}
	return evictions
}

func (e *Engine) score(frame ar.Frame, hit ar.HitCandidate) float32 {
	camera := frame.CameraPose().Position
	return e.scorer.Score(confidence.Input{
		Tracking:         frame.TrackingState(),
		Trackable:        hit.Trackable,
		DepthAvailable:   frame.DepthAvailable(),
		DistanceToCamera: geometry.Distance(camera, hit.Pose.Position),
	})
}

func (e *Engine) reject(err error) TapOutcome {
	reason := reasonLabel(err)
	monitoring.Logf("measurement: tap rejected (%s): %v", reason, err)
	metrics.ObserveTap(Rejected.String(), reason)
	return TapOutcome{Kind: Rejected, Err: err}
}

func (e *Engine) notify(ev Eviction) {
	monitoring.Logf("measurement: evicted %s measurement %s (%s)", ev.Measurement.Mode, ev.Measurement.ID, ev.Kind)
	metrics.ObserveEviction(ev.Kind)
	if e.observer != nil {
		e.observer(ev)
	}
}

// OnFrameTick computes a live preview endpoint at (x, y) while a start point
// is pending. It creates no anchors and leaves the mode, points and history
// alone; only the frame's tracking state and the preview smoothing window are
// refreshed. ok is false when there is nothing usable to preview.
func (e *Engine) OnFrameTick(x, y float32, frame ar.Frame) (preview Preview, ok bool) {
	e.tracking = frame.TrackingState()
	if e.phase != AwaitingSecondPoint || e.pendingStart == nil || e.tracking != ar.Tracking {
		return Preview{}, false
	}

	reg, err := e.registrar.Register(frame, x, y)
	if err != nil {
		return Preview{}, false
	}
	score := e.score(frame, reg.Candidate)
	if score < e.threshold {
		return Preview{}, false
	}

	position := reg.Candidate.Pose.Position
	value := valueBetween(e.pendingStart.Position, position, e.mode)
	return Preview{
		Position:   position,
		Confidence: score,
		Value:      value,
		Smoothed:   e.smoother.Add(value),
		Attempts:   reg.Attempts,
	}, true
}

// SetMode switches the measurement mode. Changing mode clears the pending
// start point and the current measurement; history is kept.
func (e *Engine) SetMode(mode Mode) {
	if mode == e.mode {
		return
	}
	e.mode = mode
	e.ClearMeasurements()
}

// CycleMode advances to the next mode and returns it
func (e *Engine) CycleMode() Mode {
	e.SetMode(e.mode.Next())
	return e.mode
}

// ClearMeasurements drops the pending start point, detaching its anchor, and
// clears the current measurement. History is never touched, so the current
// measurement's anchors stay alive through its history entry.
func (e *Engine) ClearMeasurements() {
	if e.pendingStart != nil {
		e.ledger.Remove(e.pendingStart.AnchorID)
		e.pendingStart = nil
	}
	e.current = nil
	e.phase = Idle
	e.smoother.Reset()
	metrics.SetLiveAnchors(e.ledger.Len())
}

// ToggleUnits flips between metric and imperial display and returns the new setting
func (e *Engine) ToggleUnits() bool {
	e.useMetric = !e.useMetric
	return e.useMetric
}

// SetUseMetric selects metric (true) or imperial (false) display
func (e *Engine) SetUseMetric(useMetric bool) {
	e.useMetric = useMetric
}

// Dispose ends the session: pending start, current measurement and history
// are cleared and every anchor is detached. Calling it again is a no-op.
func (e *Engine) Dispose() {
	e.pendingStart = nil
	e.current = nil
	e.phase = Idle
	e.history.Clear()
	e.smoother.Reset()
	if n := e.ledger.Clear(); n > 0 {
		monitoring.Logf("measurement: disposed session, detached %d anchors", n)
	}
	metrics.SetLiveAnchors(0)
}

// Mode returns the active measurement mode
func (e *Engine) Mode() Mode { return e.mode }

// Phase returns the point-collection state
func (e *Engine) Phase() Phase { return e.phase }

// UseMetric reports whether readings are shown in metric units
func (e *Engine) UseMetric() bool { return e.useMetric }

// UnitSystem returns the display unit system
func (e *Engine) UnitSystem() units.System { return units.SystemFor(e.useMetric) }

// TrackingState returns the tracking state of the last frame seen
func (e *Engine) TrackingState() ar.TrackingState { return e.tracking }

// PendingStart returns the start point awaiting its pair
func (e *Engine) PendingStart() (Point, bool) {
	if e.pendingStart == nil {
		return Point{}, false
	}
	return *e.pendingStart, true
}

// CurrentMeasurement returns the most recently finished measurement, if not cleared
func (e *Engine) CurrentMeasurement() (Measurement, bool) {
	if e.current == nil {
		return Measurement{}, false
	}
	return *e.current, true
}

// History returns finished measurements, oldest first
func (e *Engine) History() []Measurement {
	return e.history.Items()
}

// LiveAnchors returns the number of anchors the engine currently owns
func (e *Engine) LiveAnchors() int {
	return e.ledger.Len()
}

// OwnsAnchor reports whether the anchor ledger still holds id
func (e *Engine) OwnsAnchor(id uuid.UUID) bool {
	return e.ledger.Contains(id)
}

// FormatMeasurement renders m in the engine's current mode and units
func (e *Engine) FormatMeasurement(m Measurement) string {
	return FormattedValue(m, e.mode, e.UnitSystem())
}
