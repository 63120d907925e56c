// Package primitives provides the object shapes a sensor can see. Each one
// exposes its 2D convex footprint in world coordinates, which is all the
// occupancy grid needs.
package primitives

import (
	"fmt"

	"github.com/banshee-data/sensorsim/internal/geometry"
)

// Primitive is an object shape with a name for logs and a world position
// used for range filtering.
type Primitive interface {
	Name() string
	Center() geometry.Point3D
	ConvexHull2D() []geometry.Point3D
}

// Box is an oriented cuboid. Depth runs along the pose's local x axis,
// Width along y and Height along z, all centred on the pose.
type Box struct {
	ID     string
	Pose   geometry.Pose
	Depth  float64
	Width  float64
	Height float64
}

// NewBox returns a named box.
func NewBox(id string, pose geometry.Pose, depth, width, height float64) *Box {
	return &Box{ID: id, Pose: pose, Depth: depth, Width: width, Height: height}
}

func (b *Box) Name() string { return b.ID }

// Center is the box pose position.
func (b *Box) Center() geometry.Point3D { return b.Pose.Position }

// Corners returns the eight box corners in world coordinates.
func (b *Box) Corners() []geometry.Point3D {
	dx, dy, dz := b.Depth/2, b.Width/2, b.Height/2
	corners := make([]geometry.Point3D, 0, 8)
	for _, sx := range []float64{-1, 1} {
		for _, sy := range []float64{-1, 1} {
			for _, sz := range []float64{-1, 1} {
				local := geometry.Point3D{X: sx * dx, Y: sy * dy, Z: sz * dz}
				corners = append(corners, b.Pose.Apply(local))
			}
		}
	}
	return corners
}

// ConvexHull2D projects the corners onto the ground plane and returns their
// hull. A box with zero depth or width collapses to a segment or a point.
func (b *Box) ConvexHull2D() []geometry.Point3D {
	return geometry.ConvexHull2D(b.Corners())
}

func (b *Box) String() string {
	return fmt.Sprintf("box %q at (%.2f, %.2f) %.2fx%.2f", b.ID, b.Pose.Position.X, b.Pose.Position.Y, b.Depth, b.Width)
}

// Polygon is a footprint given directly as world points, in any order.
type Polygon struct {
	ID     string
	Points []geometry.Point3D
}

// NewPolygon returns a named polygon over a copy of points.
func NewPolygon(id string, points []geometry.Point3D) *Polygon {
	return &Polygon{ID: id, Points: append([]geometry.Point3D(nil), points...)}
}

func (p *Polygon) Name() string { return p.ID }

// Center is the mean of the points, or the origin for an empty polygon.
func (p *Polygon) Center() geometry.Point3D {
	var c geometry.Point3D
	if len(p.Points) == 0 {
		return c
	}
	for _, pt := range p.Points {
		c = c.Add(pt)
	}
	n := float64(len(p.Points))
	return geometry.Point3D{X: c.X / n, Y: c.Y / n, Z: c.Z / n}
}

// ConvexHull2D returns the hull of the points. Concave outlines are
// replaced by their hull.
func (p *Polygon) ConvexHull2D() []geometry.Point3D {
	return geometry.ConvexHull2D(p.Points)
}
