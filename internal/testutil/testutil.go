// Package testutil provides shared test utilities and fixtures.
//
// It centralises the hull fixtures and grid dumps used by the occupancy
// grid, sensor and rendering tests.
package testutil

import (
	"strings"
	"testing"

	"github.com/banshee-data/sensorsim/internal/geometry"
)

// Hull is a fixed convex footprint. It satisfies occgrid.HullProvider.
type Hull []geometry.Point3D

// ConvexHull2D returns the points as given.
func (h Hull) ConvexHull2D() []geometry.Point3D {
	return h
}

// Rect is the axis-aligned rectangle [x0,x1]x[y0,y1], counter-clockwise.
func Rect(x0, y0, x1, y1 float64) Hull {
	return Hull{
		geometry.NewPoint(x0, y0),
		geometry.NewPoint(x1, y0),
		geometry.NewPoint(x1, y1),
		geometry.NewPoint(x0, y1),
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// RenderASCII draws cost data laid out as Width*col+row, one text line per
// column from the top, so failing grid tests can print what they saw.
// Free cells are '.', occupied '#', invisible '~', anything else '?'.
func RenderASCII(data []int8, width, height int, occupied, invisible int8) string {
	var b strings.Builder
	for col := height - 1; col >= 0; col-- {
		for row := 0; row < width; row++ {
			idx := width*col + row
			if idx >= len(data) {
				b.WriteByte(' ')
				continue
			}
			switch data[idx] {
			case 0:
				b.WriteByte('.')
			case occupied:
				b.WriteByte('#')
			case invisible:
				b.WriteByte('~')
			default:
				b.WriteByte('?')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Cell is a (row, col) grid address.
type Cell struct{ Row, Col int }

// CellsWith lists the cells holding v in row-major scan order of the
// Width*col+row layout.
func CellsWith(data []int8, width int, v int8) []Cell {
	var out []Cell
	for i, c := range data {
		if c == v {
			out = append(out, Cell{Row: i % width, Col: i / width})
		}
	}
	return out
}
