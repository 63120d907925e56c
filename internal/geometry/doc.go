// Package geometry holds the planar primitives the occupancy grid is built
// on: points, poses, line segments and exact segment intersection.
//
// All intersection queries are 2D: the Z component of a point is carried
// along but never participates in a test. Degenerate inputs (parallel,
// identical or zero-length segments, vertical slopes) never produce an
// error. They are reported as an absent result or as a NaN point.
package geometry
