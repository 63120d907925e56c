package occgrid

import "github.com/banshee-data/sensorsim/internal/geometry"

// ToGrid expresses a world point in the sensor-local frame of origin:
// rotate by the inverse orientation after removing the origin translation.
func ToGrid(p geometry.Point3D, origin geometry.Pose) geometry.Point3D {
	return origin.Inverse(p)
}

// ToWorld is the inverse of ToGrid.
func ToWorld(p geometry.Point3D, origin geometry.Pose) geometry.Point3D {
	return origin.Apply(p)
}

// ToPixel maps a sensor-local point to continuous pixel coordinates.
//
// The x offset uses height and the y offset uses width. That pairing is
// what the row/column layout in Cells expects and must not be "fixed"
// without changing every consumer of Grid.Data.
func ToPixel(p geometry.Point3D, resolution float64, height, width int) geometry.Point3D {
	return geometry.Point3D{
		X: (p.X + float64(height)*resolution*0.5) / resolution,
		Y: (p.Y + float64(width)*resolution*0.5) / resolution,
	}
}

// Frame bundles an origin pose with the grid geometry so the transforms
// can be applied without repeating parameters.
type Frame struct {
	Origin     geometry.Pose
	Resolution float64
	Height     int
	Width      int
}

// ToGrid maps a world point into the sensor-local frame.
func (f Frame) ToGrid(p geometry.Point3D) geometry.Point3D {
	return ToGrid(p, f.Origin)
}

// ToWorld maps a sensor-local point into the world frame.
func (f Frame) ToWorld(p geometry.Point3D) geometry.Point3D {
	return ToWorld(p, f.Origin)
}

// ToPixel maps a sensor-local point into pixel space.
func (f Frame) ToPixel(p geometry.Point3D) geometry.Point3D {
	return ToPixel(p, f.Resolution, f.Height, f.Width)
}

// SegmentToGrid maps both endpoints with ToGrid.
func (f Frame) SegmentToGrid(s geometry.LineSegment) geometry.LineSegment {
	return s.Map(f.ToGrid)
}

// SegmentToWorld maps both endpoints with ToWorld.
func (f Frame) SegmentToWorld(s geometry.LineSegment) geometry.LineSegment {
	return s.Map(f.ToWorld)
}

// SegmentToPixel maps both endpoints with ToPixel.
func (f Frame) SegmentToPixel(s geometry.LineSegment) geometry.LineSegment {
	return s.Map(f.ToPixel)
}

// WorldToPixel is SegmentToPixel(SegmentToGrid(s)).
func (f Frame) WorldToPixel(s geometry.LineSegment) geometry.LineSegment {
	return s.Map(func(p geometry.Point3D) geometry.Point3D {
		return f.ToPixel(f.ToGrid(p))
	})
}

// PixelOrigin is the world position of pixel (0, 0).
func (f Frame) PixelOrigin() geometry.Point3D {
	return f.ToWorld(geometry.Point3D{
		X: -float64(f.Height) * f.Resolution * 0.5,
		Y: -float64(f.Width) * f.Resolution * 0.5,
	})
}
