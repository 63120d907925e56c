package geometry

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"
)

// ConvexHull2D returns the convex hull of points projected onto the XY
// plane, counter-clockwise, without repeating the first point. Collinear
// and duplicate points are dropped, so a degenerate input collapses to one
// or two points.
func ConvexHull2D(points []Point3D) []Point3D {
	if len(points) < 2 {
		return slices.Clone(points)
	}
	sorted := slices.Clone(points)
	slices.SortFunc(sorted, func(a, b Point3D) int {
		if c := cmp.Compare(a.X, b.X); c != 0 {
			return c
		}
		return cmp.Compare(a.Y, b.Y)
	})
	sorted = slices.CompactFunc(sorted, func(a, b Point3D) bool {
		return a.X == b.X && a.Y == b.Y
	})
	if len(sorted) < 3 {
		return sorted
	}

	hull := make([]Point3D, 0, 2*len(sorted))
	// Lower chain.
	for _, p := range sorted {
		for len(hull) >= 2 && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	// Upper chain.
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// turn is positive for a counter-clockwise a->b->c.
func turn(a, b, c Point3D) float64 {
	return r2.Cross(r2.Sub(b.vec2(), a.vec2()), r2.Sub(c.vec2(), a.vec2()))
}
