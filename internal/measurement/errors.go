package measurement

import (
	"errors"

	"github.com/SomeOppaiBoy/true-scale/internal/registrar"
)

var (
	// ErrTrackingNotReady is returned when the frame is not tracking. Retry on the next tap.
	ErrTrackingNotReady = errors.New("tracking not ready")

	// ErrNoUsableHit is returned when no usable surface was found near the tap.
	ErrNoUsableHit = registrar.ErrNoUsableHit

	// ErrLowConfidence is returned when the best hit scored below the acceptance threshold.
	ErrLowConfidence = errors.New("surface hit confidence too low")

	// ErrAnchorCreationFailed is returned when the runtime could not create an anchor.
	ErrAnchorCreationFailed = errors.New("anchor creation failed")
)

// Metric labels for rejection reasons
const (
	reasonTrackingNotReady = "tracking_not_ready"
	reasonNoUsableHit      = "no_usable_hit"
	reasonLowConfidence    = "low_confidence"
	reasonAnchorFailed     = "anchor_creation_failed"
	reasonOther            = "other"
)

func reasonLabel(err error) string {
	switch {
	case errors.Is(err, ErrTrackingNotReady):
		return reasonTrackingNotReady
	case errors.Is(err, ErrNoUsableHit):
		return reasonNoUsableHit
	case errors.Is(err, ErrLowConfidence):
		return reasonLowConfidence
	case errors.Is(err, ErrAnchorCreationFailed):
		return reasonAnchorFailed
	default:
		return reasonOther
	}
}
