package geometry

// Quaternion is a rotation in x, y, z, w order
type Quaternion struct {
	X, Y, Z, W float32
}

// IdentityQuaternion is the rotation that leaves vectors unchanged
var IdentityQuaternion = Quaternion{W: 1}

// Pose is a rigid transform reported by the AR runtime.
// Only the translation is interpreted by the measurement code.
type Pose struct {
	Position Vector3
	Rotation Quaternion
}

// NewPose creates a pose at the given position with identity rotation
func NewPose(position Vector3) Pose {
	return Pose{Position: position, Rotation: IdentityQuaternion}
}

// Translate returns a copy of the pose moved by offset
func (p Pose) Translate(offset Vector3) Pose {
	return Pose{Position: p.Position.Add(offset), Rotation: p.Rotation}
}
