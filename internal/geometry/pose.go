package geometry

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Quaternion is an orientation in x, y, z, w order. The zero value is
// treated as the identity rotation.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// IdentityQuaternion returns the no-rotation quaternion.
func IdentityQuaternion() Quaternion {
	return Quaternion{W: 1}
}

// QuaternionFromYaw returns a rotation of yaw radians about +Z.
func QuaternionFromYaw(yaw float64) Quaternion {
	return fromNumber(quat.Number(r3.NewRotation(yaw, r3.Vec{Z: 1})))
}

func fromNumber(n quat.Number) Quaternion {
	return Quaternion{X: n.Imag, Y: n.Jmag, Z: n.Kmag, W: n.Real}
}

func (q Quaternion) number() quat.Number {
	return quat.Number{Real: q.W, Imag: q.X, Jmag: q.Y, Kmag: q.Z}
}

// Normalized returns q scaled to unit length, or the identity when q has
// zero length.
func (q Quaternion) Normalized() Quaternion {
	n := q.number()
	abs := quat.Abs(n)
	if abs == 0 || math.IsNaN(abs) {
		return IdentityQuaternion()
	}
	return fromNumber(quat.Scale(1/abs, n))
}

// Conjugate returns the inverse rotation of a unit quaternion.
func (q Quaternion) Conjugate() Quaternion {
	return fromNumber(quat.Conj(q.Normalized().number()))
}

// Mul composes q then r (Hamilton product q*r).
func (q Quaternion) Mul(r Quaternion) Quaternion {
	return fromNumber(quat.Mul(q.number(), r.number()))
}

// Rotate applies the rotation to p.
func (q Quaternion) Rotate(p Point3D) Point3D {
	rot := r3.Rotation(q.Normalized().number())
	return fromVec(rot.Rotate(p.vec()))
}

// Yaw extracts the heading about +Z.
func (q Quaternion) Yaw() float64 {
	n := q.Normalized()
	return math.Atan2(2*(n.W*n.Z+n.X*n.Y), 1-2*(n.Y*n.Y+n.Z*n.Z))
}

// Pose is a position plus orientation in the world frame.
type Pose struct {
	Position    Point3D    `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

// IdentityPose sits at the world origin with no rotation.
func IdentityPose() Pose {
	return Pose{Orientation: IdentityQuaternion()}
}

// NewPose2D builds a pose on the ground plane from x, y and yaw.
func NewPose2D(x, y, yaw float64) Pose {
	return Pose{Position: Point3D{X: x, Y: y}, Orientation: QuaternionFromYaw(yaw)}
}

// Apply maps a point expressed in the pose's local frame into the frame the
// pose itself is expressed in.
func (p Pose) Apply(local Point3D) Point3D {
	return p.Orientation.Rotate(local).Add(p.Position)
}

// Inverse maps a point from the pose's parent frame into its local frame.
func (p Pose) Inverse(point Point3D) Point3D {
	return p.Orientation.Conjugate().Rotate(point.Sub(p.Position))
}
