package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// LineSegment is the ordered pair Start->End.
type LineSegment struct {
	Start Point3D `json:"start"`
	End   Point3D `json:"end"`
}

// NewLineSegment returns the segment start->end.
func NewLineSegment(start, end Point3D) LineSegment {
	return LineSegment{Start: start, End: end}
}

// NewRay returns a segment of the given length starting at start and
// heading along direction in the XY plane. Z is held at start.Z. A zero
// direction yields a zero-length segment at start.
func NewRay(start Point3D, direction r2.Vec, length float64) LineSegment {
	n := r2.Norm(direction)
	if n == 0 || math.IsNaN(n) {
		return LineSegment{Start: start, End: start}
	}
	d := r2.Scale(length/n, direction)
	return LineSegment{
		Start: start,
		End:   Point3D{X: start.X + d.X, Y: start.Y + d.Y, Z: start.Z},
	}
}

// Vector2D is End-Start in the XY plane.
func (s LineSegment) Vector2D() r2.Vec {
	return r2.Sub(s.End.vec2(), s.Start.vec2())
}

// Length2D is the planar length of the segment.
func (s LineSegment) Length2D() float64 {
	return r2.Norm(s.Vector2D())
}

// IsVertical reports whether the segment has no X extent, in which case
// Slope and Intercept are undefined.
func (s LineSegment) IsVertical() bool {
	return s.End.X == s.Start.X
}

// Slope is dy/dx. It is ±Inf or NaN for vertical segments; check
// IsVertical first.
func (s LineSegment) Slope() float64 {
	v := s.Vector2D()
	return v.Y / v.X
}

// Intercept is the y value of the supporting line at x=0. Undefined for
// vertical segments.
func (s LineSegment) Intercept() float64 {
	return s.Start.Y - s.Slope()*s.Start.X
}

// Reversed swaps Start and End.
func (s LineSegment) Reversed() LineSegment {
	return LineSegment{Start: s.End, End: s.Start}
}

// Map applies f to both endpoints.
func (s LineSegment) Map(f func(Point3D) Point3D) LineSegment {
	return LineSegment{Start: f(s.Start), End: f(s.End)}
}

// LineSegments returns the edges joining consecutive points. When closed
// is set and there are at least three points, the last point is joined
// back to the first. Fewer than two points yield no edges.
func LineSegments(points []Point3D, closed bool) []LineSegment {
	if len(points) < 2 {
		return nil
	}
	segs := make([]LineSegment, 0, len(points))
	for i := 0; i+1 < len(points); i++ {
		segs = append(segs, LineSegment{Start: points[i], End: points[i+1]})
	}
	if closed && len(points) > 2 {
		segs = append(segs, LineSegment{Start: points[len(points)-1], End: points[0]})
	}
	return segs
}
