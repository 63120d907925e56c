package geometry

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r2"
)

// Epsilon is the absolute tolerance used for the parallel test and for the
// segment parameter bounds.
const Epsilon = 1e-10

// CrossingKind classifies the result of intersecting two segments.
type CrossingKind int

const (
	// NoIntersection: the segments share no point.
	NoIntersection CrossingKind = iota
	// PointIntersection: the segments share exactly one point.
	PointIntersection
	// Coincident: the segments overlap along a stretch, so no single
	// intersection point exists.
	Coincident
)

func (k CrossingKind) String() string {
	switch k {
	case NoIntersection:
		return "none"
	case PointIntersection:
		return "point"
	case Coincident:
		return "coincident"
	default:
		return "unknown"
	}
}

// Crossing is the tagged result of Cross. Point is only meaningful when
// Kind is PointIntersection.
type Crossing struct {
	Kind  CrossingKind
	Point Point3D
}

// Cross intersects a and b in the XY plane.
//
// With a = p + t*r and b = q + u*s the crossing is found from the 2x2
// system solved by cross products. A near-zero r×s means the segments are
// parallel: they either miss each other or are collinear, in which case the
// overlap of their parameter intervals decides between a single touching
// point and a coincident stretch.
func Cross(a, b LineSegment) Crossing {
	p, q := a.Start.vec2(), b.Start.vec2()
	r, s := a.Vector2D(), b.Vector2D()
	qp := r2.Sub(q, p)
	denom := r2.Cross(r, s)

	if !scalar.EqualWithinAbs(denom, 0, Epsilon) {
		t := r2.Cross(qp, s) / denom
		u := r2.Cross(qp, r) / denom
		if !inUnit(t) || !inUnit(u) {
			return Crossing{Kind: NoIntersection}
		}
		return Crossing{Kind: PointIntersection, Point: a.at(clampUnit(t))}
	}

	if !scalar.EqualWithinAbs(r2.Cross(qp, r), 0, Epsilon) ||
		!scalar.EqualWithinAbs(r2.Cross(qp, s), 0, Epsilon) {
		return Crossing{Kind: NoIntersection}
	}
	return collinear(a, b)
}

// collinear handles segments lying on a common line, including the
// zero-length cases.
func collinear(a, b LineSegment) Crossing {
	r, s := a.Vector2D(), b.Vector2D()
	rr, ss := r2.Dot(r, r), r2.Dot(s, s)

	switch {
	case rr == 0 && ss == 0:
		if a.Start.Distance2D(b.Start) <= Epsilon {
			return Crossing{Kind: PointIntersection, Point: a.Start}
		}
		return Crossing{Kind: NoIntersection}
	case rr == 0:
		return pointOnSegment(a.Start, b)
	case ss == 0:
		return pointOnSegment(b.Start, a)
	}

	// Project b's endpoints onto a's parameter line.
	t0 := r2.Dot(r2.Sub(b.Start.vec2(), a.Start.vec2()), r) / rr
	t1 := t0 + r2.Dot(s, r)/rr
	lo, hi := math.Min(t0, t1), math.Max(t0, t1)
	lo, hi = math.Max(lo, 0), math.Min(hi, 1)
	tol := Epsilon / math.Sqrt(rr)
	switch {
	case hi < lo-tol:
		return Crossing{Kind: NoIntersection}
	case hi-lo <= tol:
		return Crossing{Kind: PointIntersection, Point: a.at(clampUnit(lo))}
	default:
		return Crossing{Kind: Coincident, Point: NaNPoint()}
	}
}

func pointOnSegment(pt Point3D, seg LineSegment) Crossing {
	v := seg.Vector2D()
	vv := r2.Dot(v, v)
	t := r2.Dot(r2.Sub(pt.vec2(), seg.Start.vec2()), v) / vv
	if !inUnit(t) {
		return Crossing{Kind: NoIntersection}
	}
	if seg.at(clampUnit(t)).Distance2D(pt) > Epsilon {
		return Crossing{Kind: NoIntersection}
	}
	return Crossing{Kind: PointIntersection, Point: pt}
}

// at returns the point at parameter t, interpolating Z as well.
func (s LineSegment) at(t float64) Point3D {
	return Point3D{
		X: s.Start.X + t*(s.End.X-s.Start.X),
		Y: s.Start.Y + t*(s.End.Y-s.Start.Y),
		Z: s.Start.Z + t*(s.End.Z-s.Start.Z),
	}
}

func inUnit(t float64) bool {
	return t >= -Epsilon && t <= 1+Epsilon
}

func clampUnit(t float64) float64 {
	return math.Max(0, math.Min(1, t))
}

// Intersects reports whether a and b share at least one point. Identical
// segments intersect.
func Intersects(a, b LineSegment) bool {
	return Cross(a, b).Kind != NoIntersection
}

// Intersection returns the point where a and b meet.
//
// The second result is false when the segments are disjoint. When they
// overlap along a stretch (identical segments included) the result is
// present but both coordinates are NaN; test it with Point3D.IsNaN. This
// NaN form is kept for callers written against the older untagged API;
// new code should call Cross and switch on Kind.
func Intersection(a, b LineSegment) (Point3D, bool) {
	c := Cross(a, b)
	switch c.Kind {
	case PointIntersection:
		return c.Point, true
	case Coincident:
		return NaNPoint(), true
	default:
		return Point3D{}, false
	}
}

// IntersectsAny reports whether any two distinct entries of segs
// intersect. A segment repeated in the slice counts as an intersecting
// pair. Empty and single-element slices never intersect.
func IntersectsAny(segs []LineSegment) bool {
	for i := 0; i < len(segs); i++ {
		for j := i + 1; j < len(segs); j++ {
			if Intersects(segs[i], segs[j]) {
				return true
			}
		}
	}
	return false
}

// IntersectionAll returns one point for every intersecting pair in segs,
// in pair order (i<j). Coincident pairs contribute a NaN point. The result
// is empty, never nil, for inputs without intersections.
func IntersectionAll(segs []LineSegment) []Point3D {
	points := []Point3D{}
	for i := 0; i < len(segs); i++ {
		for j := i + 1; j < len(segs); j++ {
			if p, ok := Intersection(segs[i], segs[j]); ok {
				points = append(points, p)
			}
		}
	}
	return points
}
