package geometry

import "math"

// BoundingBox represents an axis-aligned bounding box
type BoundingBox struct {
	Min Vector3
	Max Vector3
}

// NewBoundingBox creates an empty bounding box that the first Extend will collapse onto
func NewBoundingBox() BoundingBox {
	return BoundingBox{
		Min: Vector3{X: math.MaxFloat32, Y: math.MaxFloat32, Z: math.MaxFloat32},
		Max: Vector3{X: -math.MaxFloat32, Y: -math.MaxFloat32, Z: -math.MaxFloat32},
	}
}

// BoundingBoxFromCorners creates the box spanned by two opposite corners
func BoundingBoxFromCorners(c1, c2 Vector3) BoundingBox {
	return BoundingBox{Min: c1.Min(c2), Max: c1.Max(c2)}
}

// Extend expands the bounding box to include a point
func (b *BoundingBox) Extend(point Vector3) {
	b.Min = b.Min.Min(point)
	b.Max = b.Max.Max(point)
}

// Size returns the dimensions of the bounding box
func (b BoundingBox) Size() Vector3 {
	return b.Max.Sub(b.Min)
}

// Center returns the center point of the bounding box
func (b BoundingBox) Center() Vector3 {
	return Vector3{
		X: (b.Min.X + b.Max.X) / 2.0,
		Y: (b.Min.Y + b.Max.Y) / 2.0,
		Z: (b.Min.Z + b.Max.Z) / 2.0,
	}
}

// Diagonal returns the length of the bounding box diagonal
func (b BoundingBox) Diagonal() float32 {
	return b.Size().Length()
}

// FootprintArea returns the area of the box projected onto the ground (XZ) plane
func (b BoundingBox) FootprintArea() float32 {
	size := b.Size()
	return size.X * size.Z
}

// Volume returns the volume of the bounding box
func (b BoundingBox) Volume() float32 {
	size := b.Size()
	return size.X * size.Y * size.Z
}
