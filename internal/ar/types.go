package ar

import (
	"fmt"
	"iter"

	"github.com/SomeOppaiBoy/true-scale/pkg/geometry"
)

// TrackingState is reported by the runtime for frames and trackables.
type TrackingState int

const (
	TrackingUnknown TrackingState = iota
	Tracking
	Paused
	Stopped
)

func (s TrackingState) String() string {
	switch s {
	case Tracking:
		return "tracking"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ParseTrackingState converts a state name to a TrackingState
func ParseTrackingState(name string) (TrackingState, error) {
	switch name {
	case "tracking":
		return Tracking, nil
	case "paused":
		return Paused, nil
	case "stopped":
		return Stopped, nil
	case "unknown", "":
		return TrackingUnknown, nil
	default:
		return TrackingUnknown, fmt.Errorf("invalid tracking state %q", name)
	}
}

// PlaneOrientation is the facing of a detected plane.
type PlaneOrientation int

const (
	HorizontalUp PlaneOrientation = iota
	HorizontalDown
	Vertical
)

func (o PlaneOrientation) String() string {
	switch o {
	case HorizontalUp:
		return "horizontal-up"
	case HorizontalDown:
		return "horizontal-down"
	case Vertical:
		return "vertical"
	default:
		return fmt.Sprintf("PlaneOrientation(%d)", int(o))
	}
}

// PointOrientation says whether a feature point carries a surface normal estimate.
type PointOrientation int

const (
	OrientationInitializedToIdentity PointOrientation = iota
	EstimatedSurfaceNormal
)

// Trackable is a real-world feature the runtime can hit-test against.
// Implementations that are neither Plane nor Point are treated as "other".
type Trackable interface {
	TrackingState() TrackingState
}

// Plane is a detected planar surface.
type Plane interface {
	Trackable
	// Extents returns the plane's size along its local X and Z axes.
	Extents() (x, z float32)
	// SubsumedBy returns the plane this one was merged into, or nil.
	SubsumedBy() Plane
	Orientation() PlaneOrientation
	// IsPoseInPolygon reports whether pose lies inside the plane's boundary polygon.
	IsPoseInPolygon(pose geometry.Pose) bool
}

// Point is a tracked feature point.
type Point interface {
	Trackable
	OrientationMode() PointOrientation
}

// ScreenOffset is a jitter applied to the tapped screen coordinate, in pixels.
type ScreenOffset struct {
	DX, DY float32
}

// IsZero reports whether the offset is the direct (unjittered) attempt
func (o ScreenOffset) IsZero() bool {
	return o.DX == 0 && o.DY == 0
}

func (o ScreenOffset) String() string {
	return fmt.Sprintf("(%+.0f,%+.0f)", o.DX, o.DY)
}

// HitCandidate is a raw hit-test result.
type HitCandidate struct {
	Trackable    Trackable
	Pose         geometry.Pose
	ScreenOffset ScreenOffset
}

// HitTester casts rays from screen coordinates into the tracked scene.
// Candidates are yielded in the runtime's own ranking order.
type HitTester interface {
	HitTest(x, y float32) iter.Seq[HitCandidate]
}

// Frame is the per-frame view of the AR session.
type Frame interface {
	HitTester
	TrackingState() TrackingState
	// CameraPose is the observer pose; only its position is used.
	CameraPose() geometry.Pose
	DepthAvailable() bool
}

// Anchor is an opaque runtime handle that pins a pose across frames.
type Anchor interface {
	Detach()
}

// AnchorFactory creates anchors in the runtime.
type AnchorFactory interface {
	CreateAnchor(pose geometry.Pose) (Anchor, error)
}
