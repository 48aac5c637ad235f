package sim

import (
	"errors"
	"fmt"
	"iter"
	"sync"

	"github.com/SomeOppaiBoy/true-scale/internal/ar"
	"github.com/SomeOppaiBoy/true-scale/pkg/geometry"
)

// ErrAnchorRefused is returned by CreateAnchor when the runtime was told to fail
var ErrAnchorRefused = errors.New("runtime refused to create anchor")

// Rect is an inclusive screen-space rectangle in pixels
type Rect struct {
	X0, Y0, X1, Y1 float32
}

// Contains reports whether (x, y) lies inside the rectangle
func (r Rect) Contains(x, y float32) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

// HitRegion maps a screen rectangle to a world-space hit on a trackable
type HitRegion struct {
	Rect      Rect
	Trackable ar.Trackable
	Position  geometry.Vector3
}

// Frame is a scripted frame. Hit tests return a candidate for every region
// containing the screen point, in region order.
type Frame struct {
	State   ar.TrackingState
	Camera  geometry.Pose
	Depth   bool
	Regions []HitRegion

	mu      sync.Mutex
	queries []geometry.Vector3
}

var _ ar.Frame = (*Frame)(nil)

// NewFrame creates a tracking frame with the camera at the given position
func NewFrame(camera geometry.Vector3) *Frame {
	return &Frame{State: ar.Tracking, Camera: geometry.NewPose(camera)}
}

// AddHit registers a hit region and returns the frame for chaining
func (f *Frame) AddHit(rect Rect, trackable ar.Trackable, position geometry.Vector3) *Frame {
	f.Regions = append(f.Regions, HitRegion{Rect: rect, Trackable: trackable, Position: position})
	return f
}

func (f *Frame) TrackingState() ar.TrackingState { return f.State }

func (f *Frame) CameraPose() geometry.Pose { return f.Camera }

func (f *Frame) DepthAvailable() bool { return f.Depth }

func (f *Frame) HitTest(x, y float32) iter.Seq[ar.HitCandidate] {
	f.mu.Lock()
	f.queries = append(f.queries, geometry.NewVector3(x, y, 0))
	f.mu.Unlock()

	return func(yield func(ar.HitCandidate) bool) {
		for _, region := range f.Regions {
			if !region.Rect.Contains(x, y) {
				continue
			}
			candidate := ar.HitCandidate{
				Trackable: region.Trackable,
				Pose:      geometry.NewPose(region.Position),
			}
			if !yield(candidate) {
				return
			}
		}
	}
}

// Queries returns the screen points hit-tested so far as (x, y, 0) vectors
func (f *Frame) Queries() []geometry.Vector3 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]geometry.Vector3, len(f.queries))
	copy(out, f.queries)
	return out
}

// Anchor is a runtime anchor that counts its detach calls
type Anchor struct {
	ID      int
	Pose    geometry.Pose
	runtime *Runtime
	detachN int
}

// Detach releases the anchor in the runtime
func (a *Anchor) Detach() {
	a.runtime.mu.Lock()
	defer a.runtime.mu.Unlock()
	a.detachN++
	if a.detachN == 1 {
		a.runtime.live--
	} else {
		a.runtime.doubleDetach++
	}
}

// Detached reports whether Detach has been called at least once
func (a *Anchor) Detached() bool {
	a.runtime.mu.Lock()
	defer a.runtime.mu.Unlock()
	return a.detachN > 0
}

// Runtime is a scripted anchor factory that keeps books on anchor lifetimes
type Runtime struct {
	mu           sync.Mutex
	nextID       int
	anchors      []*Anchor
	live         int
	doubleDetach int
	failNext     int
}

var _ ar.AnchorFactory = (*Runtime)(nil)

// NewRuntime creates an empty runtime
func NewRuntime() *Runtime {
	return &Runtime{}
}

// FailNextAnchors makes the next n CreateAnchor calls fail
func (r *Runtime) FailNextAnchors(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failNext = n
}

func (r *Runtime) CreateAnchor(pose geometry.Pose) (ar.Anchor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failNext > 0 {
		r.failNext--
		return nil, fmt.Errorf("anchor at %v: %w", pose.Position, ErrAnchorRefused)
	}

	r.nextID++
	anchor := &Anchor{ID: r.nextID, Pose: pose, runtime: r}
	r.anchors = append(r.anchors, anchor)
	r.live++
	return anchor, nil
}

// LiveAnchors returns the number of created anchors not yet detached
func (r *Runtime) LiveAnchors() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

// CreatedAnchors returns the total number of anchors ever created
func (r *Runtime) CreatedAnchors() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.anchors)
}

// DoubleDetaches returns how many Detach calls hit an already detached anchor
func (r *Runtime) DoubleDetaches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doubleDetach
}

// Anchors returns every anchor created so far, in creation order
func (r *Runtime) Anchors() []*Anchor {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Anchor, len(r.anchors))
	copy(out, r.anchors)
	return out
}
