package occgrid

import (
	"math"

	"github.com/banshee-data/sensorsim/internal/geometry"
)

// DiagonalLength is the longest distance between two points of the grid,
// enough for a ray from any interior point to leave it.
func (g *Grid) DiagonalLength() float64 {
	return math.Hypot(float64(g.Width), float64(g.Height)) * g.Resolution
}

// invisibleRay is the shadow edge cast behind a hull vertex: it starts at
// the vertex and heads away from the sensor.
func (g *Grid) invisibleRay(vertex geometry.Point3D) geometry.LineSegment {
	dir := geometry.NewLineSegment(g.origin.Position, vertex).Vector2D()
	return geometry.NewRay(vertex, dir, g.DiagonalLength())
}

func (g *Grid) invisibleRays(hull []geometry.Point3D) []geometry.LineSegment {
	rays := make([]geometry.LineSegment, 0, len(hull))
	for _, v := range hull {
		rays = append(rays, g.invisibleRay(v))
	}
	return rays
}

// cornerRays runs from the sensor to each grid corner in world space. The
// corners are taken at (±Width, ±Height)*Resolution/2 in the grid frame.
func (g *Grid) cornerRays() []geometry.LineSegment {
	hx := float64(g.Width) * g.Resolution * 0.5
	hy := float64(g.Height) * g.Resolution * 0.5
	frame := g.Frame()
	corners := []geometry.Point3D{
		frame.ToWorld(geometry.Point3D{X: hx, Y: hy}),
		frame.ToWorld(geometry.Point3D{X: hx, Y: -hy}),
		frame.ToWorld(geometry.Point3D{X: -hx, Y: -hy}),
		frame.ToWorld(geometry.Point3D{X: -hx, Y: hy}),
	}
	rays := make([]geometry.LineSegment, 0, len(corners))
	for _, c := range corners {
		rays = append(rays, geometry.NewLineSegment(g.origin.Position, c))
	}
	return rays
}

// cornerCrossingRays continues every corner ray that crosses a hull edge
// from the crossing point outwards. Corner rays that run along an edge
// have no single crossing point and are skipped.
func (g *Grid) cornerCrossingRays(edges []geometry.LineSegment) []geometry.LineSegment {
	var rays []geometry.LineSegment
	for _, ray := range g.cornerRays() {
		for _, edge := range edges {
			c := geometry.Cross(ray, edge)
			if c.Kind != geometry.PointIntersection {
				continue
			}
			rays = append(rays, geometry.NewRay(c.Point, ray.Vector2D(), g.DiagonalLength()))
		}
	}
	return rays
}
