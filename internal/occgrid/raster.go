package occgrid

import (
	"cmp"
	"math"
	"slices"

	"github.com/banshee-data/sensorsim/internal/geometry"
)

// floorIndex floors a pixel coordinate, saturating far outside any grid so
// the int conversion never overflows.
func floorIndex(v float64) int {
	const limit = 1 << 30
	switch {
	case math.IsNaN(v):
		return -limit
	case v < -limit:
		return -limit
	case v > limit:
		return limit
	}
	return int(math.Floor(v))
}

// fillAlong writes cost into every cell the world segment passes through
// and returns the in-bounds cells it wrote, sorted and unique.
//
// Axis-aligned segments (same floored row or column at both ends) mark the
// run of cells between the ends. Otherwise two passes run: one over rows,
// computing the column from slope and intercept, and one over columns,
// computing the row from the inverse relation. Each pass also marks the
// neighbour one step back along the scan axis, except at the last step, so
// the union is 8-connected without a parametric stepper.
func (g *Grid) fillAlong(segment geometry.LineSegment, cost int8) []Cell {
	px := g.Frame().WorldToPixel(segment)
	startRow, startCol := floorIndex(px.Start.X), floorIndex(px.Start.Y)
	endRow, endCol := floorIndex(px.End.X), floorIndex(px.End.Y)

	var filled []Cell
	set := func(row, col int) {
		if g.cells.Set(row, col, cost) {
			filled = append(filled, Cell{Row: row, Col: col})
		}
	}

	switch {
	case startRow == endRow:
		lo, hi := min(startCol, endCol), max(startCol, endCol)
		for col := max(lo, 0); col <= min(hi, g.Height-1); col++ {
			set(startRow, col)
		}
		return sortCells(filled)
	case startCol == endCol:
		lo, hi := min(startRow, endRow), max(startRow, endRow)
		for row := max(lo, 0); row <= min(hi, g.Width-1); row++ {
			set(row, startCol)
		}
		return sortCells(filled)
	}

	// Both extents are non-zero here, so slope is finite and non-zero.
	slope, intercept := px.Slope(), px.Intercept()

	lastRow := max(startRow, endRow)
	for row := max(min(startRow, endRow)+1, 0); row <= min(lastRow, g.Width); row++ {
		col := floorIndex(slope*float64(row) + intercept)
		set(row, col)
		if row != lastRow {
			set(row-1, col)
		}
	}

	lastCol := max(startCol, endCol)
	for col := max(min(startCol, endCol)+1, 0); col <= min(lastCol, g.Height); col++ {
		row := floorIndex((float64(col) - intercept) / slope)
		set(row, col)
		if col != lastCol {
			set(row, col-1)
		}
	}
	return sortCells(filled)
}

// fillAlongAll rasterises each segment and concatenates the touched cells.
func (g *Grid) fillAlongAll(segments []geometry.LineSegment, cost int8) []Cell {
	var filled []Cell
	for _, s := range segments {
		filled = append(filled, g.fillAlong(s, cost)...)
	}
	return filled
}

// fillEnclosed spans cost between the outermost boundary cells of each row
// holding at least two boundary entries, then does the same per column.
//
// This is only a polygon fill for boundaries that are star-shaped along
// both scan axes. Convex hulls and the occlusion fans cast from them
// satisfy that; a concave outline would be over-filled across its notches.
func (g *Grid) fillEnclosed(boundary []Cell, cost int8) {
	type span struct {
		lo, hi, n int
	}
	extend := func(m map[int]*span, key, v int) {
		if s, ok := m[key]; ok {
			s.lo, s.hi, s.n = min(s.lo, v), max(s.hi, v), s.n+1
			return
		}
		m[key] = &span{lo: v, hi: v, n: 1}
	}

	rows := make(map[int]*span)
	cols := make(map[int]*span)
	for _, c := range boundary {
		extend(rows, c.Row, c.Col)
		extend(cols, c.Col, c.Row)
	}

	for row, s := range rows {
		if s.n < 2 {
			continue
		}
		for col := s.lo; col <= s.hi; col++ {
			g.cells.Set(row, col, cost)
		}
	}
	for col, s := range cols {
		if s.n < 2 {
			continue
		}
		for row := s.lo; row <= s.hi; row++ {
			g.cells.Set(row, col, cost)
		}
	}
}

func sortCells(cells []Cell) []Cell {
	slices.SortFunc(cells, func(a, b Cell) int {
		if c := cmp.Compare(a.Row, b.Row); c != 0 {
			return c
		}
		return cmp.Compare(a.Col, b.Col)
	})
	return slices.Compact(cells)
}
