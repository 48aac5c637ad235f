// Package registrar turns a screen tap into a usable surface hit, retrying
// with small screen-space offsets when the direct ray misses.
package registrar

import (
	"errors"
	"fmt"

	"github.com/SomeOppaiBoy/true-scale/internal/ar"
)

// ErrNoUsableHit matches every registration failure.
var ErrNoUsableHit = errors.New("no usable surface hit")

// DefaultOffsets are tried, in order, after the direct hit test.
var DefaultOffsets = []ar.ScreenOffset{
	{DX: -30, DY: 0},
	{DX: 30, DY: 0},
	{DX: 0, DY: -30},
	{DX: 0, DY: 30},
	{DX: -20, DY: -20},
	{DX: 20, DY: 20},
}

// NoUsableHitError reports that neither the direct ray nor any jittered ray
// found a usable trackable. It is an expected outcome, not a fault.
type NoUsableHitError struct {
	Reason   string
	Attempts int
}

func (e *NoUsableHitError) Error() string {
	return fmt.Sprintf("%s after %d hit tests: %s", ErrNoUsableHit, e.Attempts, e.Reason)
}

func (e *NoUsableHitError) Unwrap() error {
	return ErrNoUsableHit
}

// Registration is an accepted hit plus how it was found.
type Registration struct {
	Candidate ar.HitCandidate
	// Offset is the jitter that produced the hit; zero for the direct attempt.
	// Diagnostic only.
	Offset   ar.ScreenOffset
	Attempts int
}

// Registrar finds usable surface hits.
type Registrar struct {
	offsets []ar.ScreenOffset
}

// New creates a registrar that retries with the given offsets. A nil slice
// selects DefaultOffsets; an empty non-nil slice disables retries.
func New(offsets []ar.ScreenOffset) *Registrar {
	if offsets == nil {
		offsets = DefaultOffsets
	}
	cp := make([]ar.ScreenOffset, len(offsets))
	copy(cp, offsets)
	return &Registrar{offsets: cp}
}

// OffsetsFromPairs converts [dx, dy] pairs from configuration into offsets.
func OffsetsFromPairs(pairs [][2]float32) []ar.ScreenOffset {
	offsets := make([]ar.ScreenOffset, len(pairs))
	for i, p := range pairs {
		offsets[i] = ar.ScreenOffset{DX: p[0], DY: p[1]}
	}
	return offsets
}

// Offsets returns the retry offsets in the order they are tried.
func (r *Registrar) Offsets() []ar.ScreenOffset {
	out := make([]ar.ScreenOffset, len(r.offsets))
	copy(out, r.offsets)
	return out
}

// Register hit-tests (x, y) and then each jitter offset until a candidate
// passes Usable. Failure returns a *NoUsableHitError.
func (r *Registrar) Register(tester ar.HitTester, x, y float32) (Registration, error) {
	var stats attemptStats

	attempts := 0
	for _, offset := range r.attemptOffsets() {
		attempts++
		candidate, ok := firstUsable(tester, x+offset.DX, y+offset.DY, &stats)
		if !ok {
			continue
		}
		candidate.ScreenOffset = offset
		return Registration{Candidate: candidate, Offset: offset, Attempts: attempts}, nil
	}

	return Registration{}, &NoUsableHitError{Reason: stats.reason(), Attempts: attempts}
}

func (r *Registrar) attemptOffsets() []ar.ScreenOffset {
	all := make([]ar.ScreenOffset, 0, len(r.offsets)+1)
	all = append(all, ar.ScreenOffset{})
	return append(all, r.offsets...)
}

func firstUsable(tester ar.HitTester, x, y float32, stats *attemptStats) (ar.HitCandidate, bool) {
	for candidate := range tester.HitTest(x, y) {
		stats.seen++
		if Usable(candidate) {
			return candidate, true
		}
	}
	return ar.HitCandidate{}, false
}

// Usable reports whether a candidate may become a measurement endpoint.
//
// Planes must be tracking, not subsumed, and contain the hit pose in their
// polygon. Points must be tracking and carry an estimated surface normal.
// Anything else only needs to be tracking.
func Usable(candidate ar.HitCandidate) bool {
	switch t := candidate.Trackable.(type) {
	case nil:
		return false
	case ar.Plane:
		return t.TrackingState() == ar.Tracking &&
			t.SubsumedBy() == nil &&
			t.IsPoseInPolygon(candidate.Pose)
	case ar.Point:
		return t.TrackingState() == ar.Tracking &&
			t.OrientationMode() == ar.EstimatedSurfaceNormal
	default:
		return t.TrackingState() == ar.Tracking
	}
}

type attemptStats struct {
	seen int
}

func (s attemptStats) reason() string {
	if s.seen == 0 {
		return "no surface detected here, move the device slowly to scan the area"
	}
	return fmt.Sprintf("%d surface hits found but none were stable enough, aim at a tracked surface", s.seen)
}
