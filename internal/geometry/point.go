package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Point2D is a planar point.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point3D is a point in space. Only X and Y take part in intersection tests.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// NewPoint returns a point on the z=0 plane.
func NewPoint(x, y float64) Point3D {
	return Point3D{X: x, Y: y}
}

// To2D drops the Z component.
func (p Point3D) To2D() Point2D {
	return Point2D{X: p.X, Y: p.Y}
}

// To3D lifts the point onto the z=0 plane.
func (p Point2D) To3D() Point3D {
	return Point3D{X: p.X, Y: p.Y}
}

func (p Point3D) vec() r3.Vec { return r3.Vec{X: p.X, Y: p.Y, Z: p.Z} }

func (p Point3D) vec2() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

func fromVec(v r3.Vec) Point3D { return Point3D{X: v.X, Y: v.Y, Z: v.Z} }

// Add returns p+q.
func (p Point3D) Add(q Point3D) Point3D { return fromVec(r3.Add(p.vec(), q.vec())) }

// Sub returns p-q.
func (p Point3D) Sub(q Point3D) Point3D { return fromVec(r3.Sub(p.vec(), q.vec())) }

// Distance2D is the planar distance between p and q.
func (p Point3D) Distance2D(q Point3D) float64 {
	return r2.Norm(r2.Sub(p.vec2(), q.vec2()))
}

// IsNaN reports whether p is the undefined point returned for coincident
// segments. It must be used instead of comparing against a NaN literal.
func (p Point3D) IsNaN() bool {
	return math.IsNaN(p.X) && math.IsNaN(p.Y)
}

// NaNPoint is the undefined point: both planar coordinates are NaN.
func NaNPoint() Point3D {
	return Point3D{X: math.NaN(), Y: math.NaN(), Z: math.NaN()}
}
