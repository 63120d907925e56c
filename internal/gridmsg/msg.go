// Package gridmsg defines the occupancy grid message handed to consumers
// and its protobuf wire encoding.
//
// The layout follows nav_msgs/OccupancyGrid with this module's axis
// convention: Data[Info.Width*col+row], where row runs along the sensor's
// forward axis and Info.Width counts rows.
package gridmsg

import (
	"time"

	"github.com/banshee-data/sensorsim/internal/geometry"
	"github.com/banshee-data/sensorsim/internal/occgrid"
)

// Header stamps a message with its time and frame.
type Header struct {
	Stamp   time.Time
	FrameID string
}

// MapMetaData describes the cell layout.
type MapMetaData struct {
	MapLoadTime time.Time
	Resolution  float64
	Width       uint32
	Height      uint32
	// Origin is the world pose of cell (0, 0)'s outer corner.
	Origin geometry.Pose
}

// OccupancyGrid is one published snapshot of a grid.
type OccupancyGrid struct {
	Header Header
	Info   MapMetaData
	Data   []int8
}

// FromGrid snapshots g. The data is copied, so g can be reset while the
// message is still in flight.
func FromGrid(g *occgrid.Grid, stamp time.Time, frameID string) *OccupancyGrid {
	frame := g.Frame()
	return &OccupancyGrid{
		Header: Header{Stamp: stamp, FrameID: frameID},
		Info: MapMetaData{
			MapLoadTime: stamp,
			Resolution:  g.Resolution,
			Width:       uint32(g.Width),
			Height:      uint32(g.Height),
			Origin: geometry.Pose{
				Position:    frame.PixelOrigin(),
				Orientation: frame.Origin.Orientation,
			},
		},
		Data: append([]int8(nil), g.Data()...),
	}
}

// At returns the value at (row, col) using the grid axis convention.
func (m *OccupancyGrid) At(row, col int) (int8, bool) {
	w, h := int(m.Info.Width), int(m.Info.Height)
	if row < 0 || col < 0 || row >= w || col >= h || w*col+row >= len(m.Data) {
		return 0, false
	}
	return m.Data[w*col+row], true
}

// Count returns how many cells hold v.
func (m *OccupancyGrid) Count(v int8) int {
	n := 0
	for _, c := range m.Data {
		if c == v {
			n++
		}
	}
	return n
}

// Clone returns a deep copy.
func (m *OccupancyGrid) Clone() *OccupancyGrid {
	c := *m
	c.Data = append([]int8(nil), m.Data...)
	return &c
}

// SubscribeRequest asks for the grids of one sensor. An empty SensorID
// matches every sensor.
type SubscribeRequest struct {
	SensorID string
}
