// Package sim is a scripted, in-memory AR runtime. It stands in for the
// device runtime in tests and in the replay command.
package sim

import (
	"github.com/SomeOppaiBoy/true-scale/internal/ar"
	"github.com/SomeOppaiBoy/true-scale/pkg/geometry"
)

// Plane is a rectangular plane centered on Center.
// Horizontal planes span X/Z, vertical planes span X/Y.
type Plane struct {
	Name       string
	State      ar.TrackingState
	Center     geometry.Vector3
	ExtentX    float32
	ExtentZ    float32
	Facing     ar.PlaneOrientation
	MergedInto *Plane
}

var _ ar.Plane = (*Plane)(nil)

// NewHorizontalPlane creates a tracking, upward-facing plane
func NewHorizontalPlane(name string, center geometry.Vector3, extentX, extentZ float32) *Plane {
	return &Plane{
		Name:    name,
		State:   ar.Tracking,
		Center:  center,
		ExtentX: extentX,
		ExtentZ: extentZ,
		Facing:  ar.HorizontalUp,
	}
}

func (p *Plane) TrackingState() ar.TrackingState { return p.State }

func (p *Plane) Extents() (float32, float32) { return p.ExtentX, p.ExtentZ }

func (p *Plane) Orientation() ar.PlaneOrientation { return p.Facing }

// SubsumedBy returns nil as an interface value when the plane was never merged.
func (p *Plane) SubsumedBy() ar.Plane {
	if p.MergedInto == nil {
		return nil
	}
	return p.MergedInto
}

func (p *Plane) IsPoseInPolygon(pose geometry.Pose) bool {
	d := pose.Position.Sub(p.Center).Abs()
	halfX, halfZ := p.ExtentX/2, p.ExtentZ/2
	if p.Facing == ar.Vertical {
		return d.X <= halfX && d.Y <= halfZ
	}
	return d.X <= halfX && d.Z <= halfZ
}

// Point is a feature point
type Point struct {
	Name      string
	State     ar.TrackingState
	HasNormal bool
}

var _ ar.Point = (*Point)(nil)

func (p *Point) TrackingState() ar.TrackingState { return p.State }

func (p *Point) OrientationMode() ar.PointOrientation {
	if p.HasNormal {
		return ar.EstimatedSurfaceNormal
	}
	return ar.OrientationInitializedToIdentity
}

// Other is a trackable that is neither a plane nor a point, such as an augmented image
type Other struct {
	Name  string
	State ar.TrackingState
}

func (o *Other) TrackingState() ar.TrackingState { return o.State }
