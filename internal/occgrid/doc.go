// Package occgrid owns the occupancy grid of the simulated sensor.
//
// Responsibilities: frame transforms (world, grid, pixel), occlusion ray
// casting, line rasterisation and span filling into a fixed-size cost
// array. Key types: Grid, Cells, Frame.
//
// A Grid is not safe for concurrent use. The sensor update loop owns it
// and calls Reset, AddPrimitive and Data from a single goroutine.
//
// Axis convention: pixel x indexes rows and spans Width cells, pixel y
// indexes columns and spans Height cells, while ToPixel offsets x by
// Height and y by Width. Consumers of Data must use the same mapping; see
// Cells.
package occgrid
