// Package confidence scores how trustworthy a surface hit is and smooths
// noisy per-frame distance readings.
package confidence

import (
	"math"

	"github.com/SomeOppaiBoy/true-scale/internal/ar"
)

// Ladder weights. The bonuses can sum past 1.0; only the final score is clamped.
const (
	BaseScore            = 0.5
	TrackingBonus        = 0.3
	PlaneBonus           = 0.4
	UpwardPlaneBonus     = 0.2
	OrientedPointBonus   = 0.2
	DepthBonus           = 0.1
	MaxProximityBonus    = 0.2
	ProximityRangeMeters = 2.0
)

// Input is everything the scorer looks at for one candidate hit.
type Input struct {
	Tracking         ar.TrackingState
	Trackable        ar.Trackable
	DepthAvailable   bool
	DistanceToCamera float32
}

// Scorer computes a [0,1] trust score for a candidate hit.
// It applies no acceptance policy; callers pick their own threshold.
type Scorer struct{}

// NewScorer creates a scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score returns the clamped confidence for in. It is deterministic and never fails.
func (s *Scorer) Score(in Input) float32 {
	score := float32(BaseScore)

	if in.Tracking == ar.Tracking {
		score += TrackingBonus
	}

	switch t := in.Trackable.(type) {
	case ar.Plane:
		score += PlaneBonus
		if t.Orientation() == ar.HorizontalUp {
			score += UpwardPlaneBonus
		}
	case ar.Point:
		if t.OrientationMode() == ar.EstimatedSurfaceNormal {
			score += OrientedPointBonus
		}
	}

	if in.DepthAvailable {
		score += DepthBonus
	}

	score += ProximityBonus(in.DistanceToCamera)

	return clamp01(score)
}

// ProximityBonus grows linearly from 0 at 2 m to MaxProximityBonus at 0 m.
// NaN distances earn nothing.
func ProximityBonus(distance float32) float32 {
	d := float64(distance)
	if math.IsNaN(d) {
		return 0
	}
	d = math.Max(d, 0)
	d = math.Min(d, ProximityRangeMeters)
	return float32(MaxProximityBonus * (1 - d/ProximityRangeMeters))
}

func clamp01(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
