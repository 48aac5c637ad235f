package geometry

import "math"

// Distance returns the straight-line distance between two points
func Distance(a, b Vector3) float32 {
	return a.Distance(b)
}

// HorizontalDistance returns the distance between two points ignoring the vertical (Y) axis
func HorizontalDistance(a, b Vector3) float32 {
	d := a.Sub(b)
	d.Y = 0
	return d.Length()
}

// Height returns the vertical separation between two points
func Height(bottom, top Vector3) float32 {
	return abs32(top.Y - bottom.Y)
}

// RectangleArea returns the ground-plane area of the rectangle spanned by two opposite corners
func RectangleArea(c1, c2 Vector3) float32 {
	return BoundingBoxFromCorners(c1, c2).FootprintArea()
}

// BoxVolume returns the volume of the axis-aligned box spanned by two opposite corners
func BoxVolume(c1, c2 Vector3) float32 {
	return BoundingBoxFromCorners(c1, c2).Volume()
}

// AngleDegrees returns the angle between two vectors in degrees.
// A zero-length input normalizes to the zero vector, which yields 90 degrees
// just like any other pair with a zero dot product.
func AngleDegrees(v1, v2 Vector3) float32 {
	dot := float64(v1.Normalize().Dot(v2.Normalize()))
	if dot > 1 {
		dot = 1
	} else if dot < -1 {
		dot = -1
	}
	return float32(math.Acos(dot) * 180 / math.Pi)
}
