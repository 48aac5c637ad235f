package measurement

import (
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SomeOppaiBoy/true-scale/internal/ar"
	"github.com/SomeOppaiBoy/true-scale/internal/ar/sim"
	"github.com/SomeOppaiBoy/true-scale/internal/config"
	"github.com/SomeOppaiBoy/true-scale/internal/monitoring"
	"github.com/SomeOppaiBoy/true-scale/internal/timeutil"
	"github.com/SomeOppaiBoy/true-scale/pkg/geometry"
	"github.com/SomeOppaiBoy/true-scale/pkg/units"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

var sessionStart = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type testScene struct {
	frame   *sim.Frame
	floor   *sim.Plane
	runtime *sim.Runtime
	clock   *timeutil.MockClock
}

func newScene() *testScene {
	return &testScene{
		frame:   sim.NewFrame(geometry.NewVector3(0, 1.5, 0)),
		floor:   sim.NewHorizontalPlane("floor", geometry.NewVector3(0, 0, 0), 20, 20),
		runtime: sim.NewRuntime(),
		clock:   timeutil.NewMockClock(sessionStart),
	}
}

// hit makes an exact tap at (x, y) land on the floor at pos.
func (s *testScene) hit(x, y float32, pos geometry.Vector3) {
	s.frame.AddHit(sim.Rect{X0: x, Y0: y, X1: x, Y1: y}, s.floor, pos)
}

func (s *testScene) engine(opts ...Option) *Engine {
	return NewEngine(s.runtime, append([]Option{WithClock(s.clock)}, opts...)...)
}

// measure places a start/end pair at fresh screen points and returns the completing outcome.
func (s *testScene) measure(t *testing.T, e *Engine, i int, start, end geometry.Vector3) TapOutcome {
	t.Helper()
	x := float32(1000 + i*200)
	s.hit(x, 0, start)
	s.hit(x, 100, end)

	first := e.OnTap(x, 0, s.frame)
	require.Equal(t, Registered, first.Kind, first.Message())
	second := e.OnTap(x, 100, s.frame)
	require.Equal(t, Completed, second.Kind, second.Message())
	return second
}

func withCapacity(history, anchors int) Option {
	cfg := config.Default()
	cfg.HistoryCapacity = &history
	cfg.MaxAnchors = &anchors
	return WithConfig(cfg)
}

func TestInitialState(t *testing.T) {
	e := newScene().engine()

	assert.Equal(t, Idle, e.Phase())
	assert.Equal(t, Distance, e.Mode())
	assert.True(t, e.UseMetric())
	assert.Equal(t, ar.TrackingUnknown, e.TrackingState())
	assert.Empty(t, e.History())
	assert.Zero(t, e.LiveAnchors())

	_, ok := e.CurrentMeasurement()
	assert.False(t, ok)
}

func TestTwoTapDistanceMeasurement(t *testing.T) {
	s := newScene()
	e := s.engine()
	s.hit(100, 200, geometry.NewVector3(0, 0, 0))
	s.hit(110, 205, geometry.NewVector3(1.5, 0, 0))

	first := e.OnTap(100, 200, s.frame)
	require.Equal(t, Registered, first.Kind)
	require.NotNil(t, first.Point)
	assert.GreaterOrEqual(t, first.Point.Confidence, float32(0.9))
	assert.Equal(t, sessionStart, first.Point.Timestamp)
	assert.Equal(t, AwaitingSecondPoint, e.Phase())
	assert.Equal(t, ar.Tracking, e.TrackingState())
	assert.Equal(t, 1, e.LiveAnchors())

	s.clock.Advance(400 * time.Millisecond)
	second := e.OnTap(110, 205, s.frame)
	require.Equal(t, Completed, second.Kind)
	require.NotNil(t, second.Measurement)
	assert.Empty(t, second.Evictions)

	m := *second.Measurement
	assert.Equal(t, geometry.NewVector3(0, 0, 0), m.Start.Position)
	assert.Equal(t, geometry.NewVector3(1.5, 0, 0), m.End.Position)
	assert.Equal(t, sessionStart.Add(400*time.Millisecond), m.End.Timestamp)
	assert.Equal(t, "1.50 m", FormattedValue(m, Distance, units.Metric))

	assert.Equal(t, Idle, e.Phase())
	_, pending := e.PendingStart()
	assert.False(t, pending)
	current, ok := e.CurrentMeasurement()
	require.True(t, ok)
	assert.Equal(t, m.ID, current.ID)
	assert.Len(t, e.History(), 1)
	assert.Equal(t, 2, e.LiveAnchors())
	assert.Equal(t, 2, s.runtime.LiveAnchors())
	assert.True(t, e.OwnsAnchor(m.Start.AnchorID))
	assert.True(t, e.OwnsAnchor(m.End.AnchorID))
}

func TestTapRejectedWhenNotTracking(t *testing.T) {
	for _, state := range []ar.TrackingState{ar.Paused, ar.Stopped, ar.TrackingUnknown} {
		t.Run(state.String(), func(t *testing.T) {
			s := newScene()
			e := s.engine()
			s.hit(100, 200, geometry.NewVector3(0, 0, 0))
			s.frame.State = state

			outcome := e.OnTap(100, 200, s.frame)

			assert.Equal(t, Rejected, outcome.Kind)
			assert.ErrorIs(t, outcome.Err, ErrTrackingNotReady)
			assert.Equal(t, Idle, e.Phase())
			assert.Zero(t, e.LiveAnchors())
			assert.Zero(t, s.runtime.CreatedAnchors())
			assert.Empty(t, s.frame.Queries(), "no hit test without tracking")
			assert.Equal(t, state, e.TrackingState())
		})
	}
}

func TestTapRejectedWhilePendingLeavesStateAlone(t *testing.T) {
	s := newScene()
	e := s.engine()
	s.hit(100, 200, geometry.NewVector3(0, 0, 0))
	require.Equal(t, Registered, e.OnTap(100, 200, s.frame).Kind)
	before, _ := e.PendingStart()

	s.frame.State = ar.Paused
	outcome := e.OnTap(100, 200, s.frame)
	require.Equal(t, Rejected, outcome.Kind)

	after, ok := e.PendingStart()
	require.True(t, ok)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("pending start changed (-before +after):\n%s", diff)
	}
	assert.Equal(t, 1, e.LiveAnchors())
}

func TestTapNoUsableHit(t *testing.T) {
	s := newScene()
	e := s.engine()

	outcome := e.OnTap(500, 500, s.frame)

	assert.Equal(t, Rejected, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, ErrNoUsableHit)
	assert.Contains(t, outcome.Message(), "no surface detected")
	assert.Equal(t, Idle, e.Phase())
	assert.Zero(t, e.LiveAnchors())
}

func TestTapUsesJitteredHit(t *testing.T) {
	s := newScene()
	e := s.engine()
	s.hit(70, 100, geometry.NewVector3(0.2, 0, 0.3))

	outcome := e.OnTap(100, 100, s.frame)

	require.Equal(t, Registered, outcome.Kind)
	assert.Equal(t, ar.ScreenOffset{DX: -30}, outcome.Point.Offset)
	assert.Equal(t, geometry.NewVector3(0.2, 0, 0.3), outcome.Point.Position)
}

func TestTapLowConfidence(t *testing.T) {
	s := newScene()
	cfg := config.Default()
	threshold := 0.9
	cfg.ConfidenceThreshold = &threshold
	e := s.engine(WithConfig(cfg))

	// A tracking "other" trackable far from the camera scores 0.8.
	s.frame.AddHit(sim.Rect{X0: 10, Y0: 10, X1: 10, Y1: 10}, &sim.Other{State: ar.Tracking}, geometry.NewVector3(0, 0, 10))
	outcome := e.OnTap(10, 10, s.frame)

	assert.Equal(t, Rejected, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, ErrLowConfidence)
	assert.Equal(t, "Surface not reliable enough, move closer and try again", outcome.Message())
	assert.Zero(t, s.runtime.CreatedAnchors())
	assert.Equal(t, Idle, e.Phase())
}

func TestTapAnchorCreationFailed(t *testing.T) {
	s := newScene()
	e := s.engine()
	s.hit(100, 200, geometry.NewVector3(0, 0, 0))
	s.hit(300, 200, geometry.NewVector3(1, 0, 0))

	s.runtime.FailNextAnchors(1)
	outcome := e.OnTap(100, 200, s.frame)
	assert.Equal(t, Rejected, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, ErrAnchorCreationFailed)
	assert.ErrorIs(t, outcome.Err, sim.ErrAnchorRefused)
	assert.Equal(t, Idle, e.Phase())
	assert.Zero(t, e.LiveAnchors())

	require.Equal(t, Registered, e.OnTap(100, 200, s.frame).Kind)
	s.runtime.FailNextAnchors(1)
	outcome = e.OnTap(300, 200, s.frame)
	assert.Equal(t, Rejected, outcome.Kind)
	assert.Equal(t, AwaitingSecondPoint, e.Phase())
	assert.Empty(t, e.History())
	assert.Equal(t, 1, e.LiveAnchors())
}

func TestStartingNewPointClearsCurrentButKeepsHistory(t *testing.T) {
	s := newScene()
	e := s.engine()
	done := s.measure(t, e, 0, geometry.NewVector3(0, 0, 0), geometry.NewVector3(1, 0, 0))

	s.hit(50, 50, geometry.NewVector3(2, 0, 2))
	require.Equal(t, Registered, e.OnTap(50, 50, s.frame).Kind)

	_, ok := e.CurrentMeasurement()
	assert.False(t, ok)
	require.Len(t, e.History(), 1)
	assert.Equal(t, done.Measurement.ID, e.History()[0].ID)
	assert.Equal(t, 3, e.LiveAnchors())
}

func TestSetModeClearsPendingStart(t *testing.T) {
	s := newScene()
	e := s.engine()
	s.measure(t, e, 0, geometry.NewVector3(0, 0, 0), geometry.NewVector3(1, 0, 0))
	s.hit(50, 50, geometry.NewVector3(2, 0, 2))
	pending := e.OnTap(50, 50, s.frame)
	require.Equal(t, Registered, pending.Kind)
	require.Equal(t, 3, e.LiveAnchors())

	e.SetMode(Height)

	assert.Equal(t, Height, e.Mode())
	assert.Equal(t, Idle, e.Phase())
	assert.Equal(t, 2, e.LiveAnchors(), "ledger shrinks by the pending anchor")
	assert.False(t, e.OwnsAnchor(pending.Point.AnchorID))
	assert.True(t, s.runtime.Anchors()[2].Detached())
	assert.Len(t, e.History(), 1, "history survives a mode change")
}

func TestSetModeClearsCurrent(t *testing.T) {
	s := newScene()
	e := s.engine()
	s.measure(t, e, 0, geometry.NewVector3(0, 0, 0), geometry.NewVector3(1, 0, 0))

	e.SetMode(Area)

	_, ok := e.CurrentMeasurement()
	assert.False(t, ok)
	assert.Len(t, e.History(), 1)
	assert.Equal(t, 2, e.LiveAnchors(), "current's anchors live on through history")
}

func TestSetSameModeIsNoop(t *testing.T) {
	s := newScene()
	e := s.engine()
	s.hit(50, 50, geometry.NewVector3(2, 0, 2))
	require.Equal(t, Registered, e.OnTap(50, 50, s.frame).Kind)

	e.SetMode(Distance)

	assert.Equal(t, AwaitingSecondPoint, e.Phase())
	assert.Equal(t, 1, e.LiveAnchors())
}

func TestCycleMode(t *testing.T) {
	e := newScene().engine()

	var seen []Mode
	for i := 0; i < 5; i++ {
		seen = append(seen, e.CycleMode())
	}
	assert.Equal(t, []Mode{Height, Area, Volume, Distance, Height}, seen)
}

func TestHistoryCapacityEvictsOldest(t *testing.T) {
	s := newScene()
	var evictions []Eviction
	e := s.engine(withCapacity(10, 32), WithEvictionObserver(func(ev Eviction) {
		evictions = append(evictions, ev)
	}))

	var first Measurement
	for i := 0; i < 10; i++ {
		out := s.measure(t, e, i, geometry.NewVector3(float32(i), 0, 0), geometry.NewVector3(float32(i), 1, 0))
		if i == 0 {
			first = *out.Measurement
		}
	}
	require.Len(t, e.History(), 10)
	require.Empty(t, evictions)

	eleventh := s.measure(t, e, 10, geometry.NewVector3(5, 0, 5), geometry.NewVector3(6, 0, 5))

	assert.Len(t, e.History(), 10)
	assert.NotEqual(t, first.ID, e.History()[0].ID)
	assert.Equal(t, eleventh.Measurement.ID, e.History()[9].ID)
	require.Len(t, eleventh.Evictions, 1)
	assert.Equal(t, EvictedFromHistory, eleventh.Evictions[0].Kind)
	assert.Equal(t, first.ID, eleventh.Evictions[0].Measurement.ID)
	require.Len(t, evictions, 1)

	anchors := s.runtime.Anchors()
	assert.True(t, anchors[0].Detached())
	assert.True(t, anchors[1].Detached())
	assert.False(t, anchors[2].Detached())
	assert.False(t, e.OwnsAnchor(first.Start.AnchorID))
	assert.False(t, e.OwnsAnchor(first.End.AnchorID))
	assert.Equal(t, 20, e.LiveAnchors())
	assert.Zero(t, s.runtime.DoubleDetaches())
}

func TestAnchorLimitDropsWholeMeasurements(t *testing.T) {
	s := newScene()
	e := s.engine()

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		out := s.measure(t, e, i, geometry.NewVector3(float32(i), 0, 0), geometry.NewVector3(float32(i), 0, 1))
		ids = append(ids, out.Measurement.ID)
	}
	require.Equal(t, 10, e.LiveAnchors())

	s.hit(50, 50, geometry.NewVector3(8, 0, 8))
	start := e.OnTap(50, 50, s.frame)
	require.Equal(t, Registered, start.Kind)
	require.Len(t, start.Evictions, 1)
	assert.Equal(t, EvictedByAnchorLimit, start.Evictions[0].Kind)
	assert.Equal(t, ids[0], start.Evictions[0].Measurement.ID)

	history := e.History()
	require.Len(t, history, 4)
	assert.Equal(t, ids[1], history[0].ID)
	assert.Equal(t, 9, e.LiveAnchors())
	assert.Equal(t, 9, s.runtime.LiveAnchors())
	assert.Zero(t, s.runtime.DoubleDetaches())
}

func TestAnchorLimitClearsCurrent(t *testing.T) {
	s := newScene()
	e := s.engine(withCapacity(10, 2))
	s.measure(t, e, 0, geometry.NewVector3(0, 0, 0), geometry.NewVector3(1, 0, 0))

	s.hit(50, 50, geometry.NewVector3(2, 0, 2))
	out := e.OnTap(50, 50, s.frame)

	require.Equal(t, Registered, out.Kind)
	require.Len(t, out.Evictions, 1)
	assert.Empty(t, e.History())
	assert.Equal(t, 1, e.LiveAnchors())
	assert.Equal(t, AwaitingSecondPoint, e.Phase())
}

func TestClearMeasurementsKeepsHistory(t *testing.T) {
	s := newScene()
	e := s.engine()
	s.measure(t, e, 0, geometry.NewVector3(0, 0, 0), geometry.NewVector3(1, 0, 0))
	s.hit(50, 50, geometry.NewVector3(2, 0, 2))
	require.Equal(t, Registered, e.OnTap(50, 50, s.frame).Kind)

	e.ClearMeasurements()

	_, pending := e.PendingStart()
	assert.False(t, pending)
	_, current := e.CurrentMeasurement()
	assert.False(t, current)
	assert.Len(t, e.History(), 1)
	assert.Equal(t, 2, e.LiveAnchors())
}

func TestDispose(t *testing.T) {
	s := newScene()
	e := s.engine()
	for i := 0; i < 3; i++ {
		s.measure(t, e, i, geometry.NewVector3(0, 0, float32(i)), geometry.NewVector3(1, 0, float32(i)))
	}
	s.hit(50, 50, geometry.NewVector3(2, 0, 2))
	require.Equal(t, Registered, e.OnTap(50, 50, s.frame).Kind)
	require.Equal(t, 7, s.runtime.LiveAnchors())

	e.Dispose()
	e.Dispose()

	assert.Zero(t, e.LiveAnchors())
	assert.Zero(t, s.runtime.LiveAnchors())
	assert.Zero(t, s.runtime.DoubleDetaches())
	assert.Empty(t, e.History())
	assert.Equal(t, Idle, e.Phase())
	_, ok := e.CurrentMeasurement()
	assert.False(t, ok)
}

func TestUnits(t *testing.T) {
	s := newScene()
	e := s.engine()
	out := s.measure(t, e, 0, geometry.NewVector3(0, 0, 0), geometry.NewVector3(1, 0, 0))

	assert.Equal(t, "1.00 m", e.FormatMeasurement(*out.Measurement))
	assert.False(t, e.ToggleUnits())
	assert.Equal(t, units.Imperial, e.UnitSystem())
	assert.Equal(t, "3.28 ft", e.FormatMeasurement(*out.Measurement))

	e.SetUseMetric(true)
	assert.True(t, e.UseMetric())
	assert.Len(t, e.History(), 1, "unit changes have no geometry side effects")
	assert.Equal(t, 2, e.LiveAnchors())
}

func TestConfiguredImperialStart(t *testing.T) {
	cfg := config.Default()
	metric := false
	cfg.UseMetric = &metric

	e := newScene().engine(WithConfig(cfg))
	assert.False(t, e.UseMetric())
}

func TestMeasurementValues(t *testing.T) {
	m := Measurement{
		Start: Point{Position: geometry.NewVector3(0, 0, 0)},
		End:   Point{Position: geometry.NewVector3(2, 1.5, 0.5)},
	}

	tests := []struct {
		mode     Mode
		value    float32
		rendered string
	}{
		{Distance, 2.5495098, "2.55 m"},
		{Height, 1.5, "1.50 m"},
		{Area, 1, "1.00 m²"},
		{Volume, 1.5, "1.500 m³"},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			assert.InDelta(t, tt.value, m.Value(tt.mode), 1e-5)
			assert.Equal(t, tt.rendered, FormattedValue(m, tt.mode, units.Metric))
		})
	}
	assert.InDelta(t, 2.5495098, m.Distance(), 1e-5)
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		parsed, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}
	parsed, err := ParseMode(" Volume ")
	require.NoError(t, err)
	assert.Equal(t, Volume, parsed)

	_, err = ParseMode("perimeter")
	assert.Error(t, err)
}

func TestModeNextWraps(t *testing.T) {
	assert.Equal(t, Height, Distance.Next())
	assert.Equal(t, Distance, Volume.Next())
}

func TestOnFrameTickPreview(t *testing.T) {
	s := newScene()
	e := s.engine()
	s.hit(100, 100, geometry.NewVector3(0, 0, 0))
	s.hit(200, 100, geometry.NewVector3(1, 0, 0))
	s.hit(300, 100, geometry.NewVector3(3, 0, 0))

	_, ok := e.OnFrameTick(200, 100, s.frame)
	assert.False(t, ok, "no preview while idle")

	require.Equal(t, Registered, e.OnTap(100, 100, s.frame).Kind)
	created := s.runtime.CreatedAnchors()
	pending, _ := e.PendingStart()

	p, ok := e.OnFrameTick(200, 100, s.frame)
	require.True(t, ok)
	assert.Equal(t, geometry.NewVector3(1, 0, 0), p.Position)
	assert.InDelta(t, 1.0, p.Value, 1e-6)
	assert.InDelta(t, 1.0, p.Smoothed, 1e-6)
	assert.Equal(t, "1.00 m", FormatValue(p.Value, e.Mode(), e.UnitSystem()))

	p, ok = e.OnFrameTick(300, 100, s.frame)
	require.True(t, ok)
	assert.InDelta(t, 3.0, p.Value, 1e-6)
	assert.InDelta(t, 2.0, p.Smoothed, 1e-6)

	_, ok = e.OnFrameTick(900, 900, s.frame)
	assert.False(t, ok, "no preview without a usable hit")

	assert.Equal(t, created, s.runtime.CreatedAnchors(), "previews never create anchors")
	after, _ := e.PendingStart()
	assert.Equal(t, pending, after)
	assert.Equal(t, AwaitingSecondPoint, e.Phase())
	assert.Empty(t, e.History())

	s.frame.State = ar.Paused
	_, ok = e.OnFrameTick(200, 100, s.frame)
	assert.False(t, ok)
	assert.Equal(t, ar.Paused, e.TrackingState())
}

func TestOutcomeMessages(t *testing.T) {
	assert.Equal(t, "Start point placed, tap to place the end point", TapOutcome{Kind: Registered}.Message())
	assert.Equal(t, "Measurement complete", TapOutcome{Kind: Completed}.Message())
	assert.Equal(t, "Tracking not ready, move the device slowly", TapOutcome{Kind: Rejected, Err: ErrTrackingNotReady}.Message())
	assert.Equal(t, "Could not place anchor, try again", TapOutcome{Kind: Rejected, Err: ErrAnchorCreationFailed}.Message())
	assert.Equal(t, "Tap rejected", TapOutcome{Kind: Rejected}.Message())
}

// checkInvariants asserts the ownership rules that must hold between any two calls.
func checkInvariants(t *testing.T, e *Engine, rt *sim.Runtime) {
	t.Helper()

	pending, hasPending := e.PendingStart()
	current, hasCurrent := e.CurrentMeasurement()
	require.False(t, hasPending && hasCurrent, "pending start and current measurement both set")
	require.Equal(t, hasPending, e.Phase() == AwaitingSecondPoint)

	reachable := make(map[uuid.UUID]bool)
	if hasPending {
		reachable[pending.AnchorID] = true
	}
	inHistory := false
	for _, m := range e.History() {
		reachable[m.Start.AnchorID] = true
		reachable[m.End.AnchorID] = true
		if hasCurrent && m.ID == current.ID {
			inHistory = true
		}
	}
	if hasCurrent {
		require.True(t, inHistory, "current measurement missing from history")
	}

	require.Len(t, reachable, e.LiveAnchors())
	for id := range reachable {
		require.True(t, e.OwnsAnchor(id))
	}
	require.Equal(t, e.LiveAnchors(), rt.LiveAnchors())
	require.Zero(t, rt.DoubleDetaches())
	require.LessOrEqual(t, len(e.History()), config.DefaultHistoryCapacity)
}

func TestInvariantsUnderRandomOperations(t *testing.T) {
	for _, anchors := range []int{10, 32} {
		s := newScene()
		e := s.engine(withCapacity(10, anchors))
		rng := rand.New(rand.NewSource(42))

		for i := 0; i < 400; i++ {
			x := float32(i * 100)
			switch op := rng.Intn(10); op {
			case 0:
				s.frame.State = ar.Paused
				e.OnTap(x, 0, s.frame)
				s.frame.State = ar.Tracking
			case 1:
				e.OnTap(x, 0, s.frame) // nothing there
			case 2:
				s.hit(x, 0, geometry.NewVector3(rng.Float32(), 0, rng.Float32()))
				s.runtime.FailNextAnchors(1)
				e.OnTap(x, 0, s.frame)
				s.runtime.FailNextAnchors(0)
			case 3:
				e.SetMode(Modes[rng.Intn(len(Modes))])
			case 4:
				e.ClearMeasurements()
			case 5:
				e.OnFrameTick(x, 0, s.frame)
			case 6:
				if rng.Intn(20) == 0 {
					e.Dispose()
				}
			default:
				s.hit(x, 0, geometry.NewVector3(rng.Float32()*4, 0, rng.Float32()*4))
				e.OnTap(x, 0, s.frame)
			}
			checkInvariants(t, e, s.runtime)
		}

		e.Dispose()
		assert.Zero(t, s.runtime.LiveAnchors())
		assert.Zero(t, s.runtime.DoubleDetaches())
	}
}
