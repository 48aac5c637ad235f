package geometry

import "math"

// normalizeEpsilon is the length below which Normalize gives up and returns the zero vector
const normalizeEpsilon = 1e-6

// Vector3 represents a 3D point or vector in world space (meters)
type Vector3 struct {
	X, Y, Z float32
}

// NewVector3 creates a new 3D vector
func NewVector3(x, y, z float32) Vector3 {
	return Vector3{X: x, Y: y, Z: z}
}

// Add returns the sum of two vectors
func (v Vector3) Add(other Vector3) Vector3 {
	return Vector3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Sub returns the difference between two vectors
func (v Vector3) Sub(other Vector3) Vector3 {
	return Vector3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}

// Mul multiplies the vector by a scalar
func (v Vector3) Mul(scalar float32) Vector3 {
	return Vector3{
		X: v.X * scalar,
		Y: v.Y * scalar,
		Z: v.Z * scalar,
	}
}

// Dot returns the dot product of two vectors
func (v Vector3) Dot(other Vector3) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns the cross product of two vectors
func (v Vector3) Cross(other Vector3) Vector3 {
	return Vector3{
		X: v.Y*other.Z - v.Z*other.Y,
		Y: v.Z*other.X - v.X*other.Z,
		Z: v.X*other.Y - v.Y*other.X,
	}
}

// Length returns the magnitude of the vector
func (v Vector3) Length() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z)))
}

// Distance returns the distance between two points
func (v Vector3) Distance(other Vector3) float32 {
	return v.Sub(other).Length()
}

// Normalize returns a unit vector in the same direction.
// Vectors shorter than 1e-6 normalize to the zero vector.
func (v Vector3) Normalize() Vector3 {
	length := v.Length()
	if length < normalizeEpsilon {
		return Vector3{}
	}
	return v.Mul(1.0 / length)
}

// Abs returns a vector with the absolute value of each component
func (v Vector3) Abs() Vector3 {
	return Vector3{
		X: abs32(v.X),
		Y: abs32(v.Y),
		Z: abs32(v.Z),
	}
}

// Min returns a vector with the minimum components of two vectors
func (v Vector3) Min(other Vector3) Vector3 {
	return Vector3{
		X: min(v.X, other.X),
		Y: min(v.Y, other.Y),
		Z: min(v.Z, other.Z),
	}
}

// Max returns a vector with the maximum components of two vectors
func (v Vector3) Max(other Vector3) Vector3 {
	return Vector3{
		X: max(v.X, other.X),
		Y: max(v.Y, other.Y),
		Z: max(v.Z, other.Z),
	}
}

// IsFinite reports whether every component is neither NaN nor infinite
func (v Vector3) IsFinite() bool {
	return isFinite32(v.X) && isFinite32(v.Y) && isFinite32(v.Z)
}

func abs32(f float32) float32 {
	return float32(math.Abs(float64(f)))
}

func isFinite32(f float32) bool {
	return !math.IsNaN(float64(f)) && !math.IsInf(float64(f), 0)
}
