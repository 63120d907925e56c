package occgrid

import (
	"errors"

	"github.com/banshee-data/sensorsim/internal/geometry"
)

// ErrNotReset is returned by AddPrimitive before the first Reset, when the
// grid has no origin to project from.
var ErrNotReset = errors.New("occgrid: AddPrimitive called before Reset")

// HullProvider is anything with a 2D convex footprint in world coordinates.
// Fewer than two points means there is nothing to draw.
type HullProvider interface {
	ConvexHull2D() []geometry.Point3D
}

// Grid is a fixed-size cost grid centred on the sensor.
//
// Each cell holds 0, OccupiedCost or InvisibleCost. Reset starts a tick,
// AddPrimitive paints one object and its shadow, Data exposes the result.
type Grid struct {
	Resolution    float64
	Height        int
	Width         int
	OccupiedCost  int8
	InvisibleCost int8

	origin geometry.Pose
	ready  bool
	cells  Cells
}

// New allocates a height*width grid of the given cell size. All cells start
// free and the grid rejects primitives until Reset is called.
func New(resolution float64, height, width int, occupiedCost, invisibleCost int8) *Grid {
	cells := NewCells(height, width)
	return &Grid{
		Resolution:    resolution,
		Height:        cells.height,
		Width:         cells.width,
		OccupiedCost:  occupiedCost,
		InvisibleCost: invisibleCost,
		cells:         cells,
	}
}

// Reset records the sensor pose for this tick and clears every cell.
func (g *Grid) Reset(origin geometry.Pose) {
	g.origin = origin
	g.ready = true
	g.cells.Fill(0)
}

// Origin is the pose passed to the last Reset.
func (g *Grid) Origin() geometry.Pose {
	return g.origin
}

// Frame returns the transforms for the current origin.
func (g *Grid) Frame() Frame {
	return Frame{Origin: g.origin, Resolution: g.Resolution, Height: g.Height, Width: g.Width}
}

// AddPrimitive paints the region hidden behind p with InvisibleCost and
// then p's own footprint with OccupiedCost, so the footprint wins where
// the two overlap. Cells written by earlier primitives in the same tick
// are overwritten, not blended.
func (g *Grid) AddPrimitive(p HullProvider) error {
	if !g.ready {
		return ErrNotReset
	}
	hull := p.ConvexHull2D()
	edges := geometry.LineSegments(hull, true)
	if len(edges) == 0 {
		return nil
	}

	occlusion := make([]geometry.LineSegment, 0, 2*len(edges)+len(hull))
	occlusion = append(occlusion, edges...)
	occlusion = append(occlusion, g.invisibleRays(hull)...)
	occlusion = append(occlusion, g.cornerCrossingRays(edges)...)
	g.fillEnclosed(g.fillAlongAll(occlusion, g.InvisibleCost), g.InvisibleCost)

	g.fillEnclosed(g.fillAlongAll(edges, g.OccupiedCost), g.OccupiedCost)
	return nil
}

// Data is the cost array in Cells storage order, length Height*Width. The
// slice is owned by the grid and is overwritten by the next Reset; copy it
// before handing it to another goroutine.
func (g *Grid) Data() []int8 {
	return g.cells.Values()
}

// At returns the cost at (row, col).
func (g *Grid) At(row, col int) (int8, bool) {
	return g.cells.At(row, col)
}

// Count returns how many cells currently hold v.
func (g *Grid) Count(v int8) int {
	n := 0
	for _, c := range g.cells.Values() {
		if c == v {
			n++
		}
	}
	return n
}
