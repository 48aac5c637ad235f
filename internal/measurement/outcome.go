package measurement

import (
	"errors"

	"github.com/SomeOppaiBoy/true-scale/internal/registrar"
	"github.com/SomeOppaiBoy/true-scale/pkg/geometry"
)

// OutcomeKind says what a tap did
type OutcomeKind int

const (
	// Registered means the tap set a new start point
	Registered OutcomeKind = iota
	// Completed means the tap finished a measurement
	Completed
	// Rejected means nothing changed; Err says why
	Rejected
)

func (k OutcomeKind) String() string {
	switch k {
	case Registered:
		return "registered"
	case Completed:
		return "completed"
	default:
		return "rejected"
	}
}

// Eviction kinds
const (
	// EvictedFromHistory is reported when history capacity pushed out the oldest measurement
	EvictedFromHistory = "history"
	// EvictedByAnchorLimit is reported when the anchor ledger ran out of room
	EvictedByAnchorLimit = "anchor"
)

// Eviction is an informational capacity event. It is never an error.
type Eviction struct {
	Kind        string
	Measurement Measurement
}

// TapOutcome is the typed result of OnTap
type TapOutcome struct {
	Kind        OutcomeKind
	Point       *Point
	Measurement *Measurement
	Err         error
	Evictions   []Eviction
}

// Message returns a short user-facing description of the outcome
func (o TapOutcome) Message() string {
	switch o.Kind {
	case Registered:
		return "Start point placed, tap to place the end point"
	case Completed:
		return "Measurement complete"
	}

	var nuh *registrar.NoUsableHitError
	switch {
	case errors.Is(o.Err, ErrTrackingNotReady):
		return "Tracking not ready, move the device slowly"
	case errors.As(o.Err, &nuh):
		return nuh.Reason
	case errors.Is(o.Err, ErrLowConfidence):
		return "Surface not reliable enough, move closer and try again"
	case errors.Is(o.Err, ErrAnchorCreationFailed):
		return "Could not place anchor, try again"
	case o.Err != nil:
		return o.Err.Error()
	default:
		return "Tap rejected"
	}
}

// Preview is a live, uncommitted endpoint for rendering while the engine
// awaits the second point
type Preview struct {
	Position   geometry.Vector3
	Confidence float32
	// Value is the current mode's quantity from the pending start to Position.
	Value float32
	// Smoothed is Value averaged over recent frames with outliers dropped.
	Smoothed float32
	Attempts int
}
