// Package sensorsim drives an occupancy grid sensor through a scripted
// world and hands each published grid to its sinks.
package sensorsim

import (
	"time"

	"github.com/banshee-data/sensorsim/internal/config"
	"github.com/banshee-data/sensorsim/internal/geometry"
	"github.com/banshee-data/sensorsim/internal/gridmsg"
	"github.com/banshee-data/sensorsim/internal/monitoring"
	"github.com/banshee-data/sensorsim/internal/occgrid"
	"github.com/banshee-data/sensorsim/internal/primitives"
)

var logf = monitoring.Component("sensorsim")

// periodTolerance lets a grid through when it arrives this much early.
// Ticker deliveries jitter around the period and would otherwise be
// skipped.
const periodTolerance = 2 * time.Millisecond

// OccupancyGridSensor publishes a grid at most once per update period.
// It is not safe for concurrent use.
type OccupancyGridSensor struct {
	id      string
	frameID string
	period  time.Duration
	rangeM  float64
	grid    *occgrid.Grid

	last      time.Time
	published bool
	skipped   int
}

// NewOccupancyGridSensor builds a sensor from cfg. cfg is assumed valid.
func NewOccupancyGridSensor(cfg *config.SensorConfig) *OccupancyGridSensor {
	return &OccupancyGridSensor{
		id:      cfg.GetSensorID(),
		frameID: cfg.GetFrameID(),
		period:  cfg.GetUpdateDuration(),
		rangeM:  cfg.GetRange(),
		grid: occgrid.New(cfg.GetResolution(), cfg.GetHeight(), cfg.GetWidth(),
			cfg.GetOccupiedCost(), cfg.GetInvisibleCost()),
	}
}

// ID is the sensor id.
func (s *OccupancyGridSensor) ID() string { return s.id }

// Period is the minimum time between published grids.
func (s *OccupancyGridSensor) Period() time.Duration { return s.period }

// Grid exposes the working grid. It is overwritten by every Update.
func (s *OccupancyGridSensor) Grid() *occgrid.Grid { return s.grid }

// Update rebuilds the grid around ego and returns it as a message, unless
// less than one period (minus periodTolerance) has passed since the last
// published grid. Objects
// whose centre is farther than the sensor range from ego are skipped.
func (s *OccupancyGridSensor) Update(now time.Time, ego geometry.Pose, objects []primitives.Primitive) (*gridmsg.OccupancyGrid, bool) {
	if s.published && now.Sub(s.last) < s.period-periodTolerance {
		return nil, false
	}
	s.last, s.published = now, true

	s.grid.Reset(ego)
	s.skipped = 0
	for _, o := range objects {
		if o.Center().Distance2D(ego.Position) > s.rangeM {
			s.skipped++
			continue
		}
		if err := s.grid.AddPrimitive(o); err != nil {
			logf("add %s: %v", o.Name(), err)
		}
	}
	return gridmsg.FromGrid(s.grid, now, s.frameID), true
}

// Skipped is how many objects the last Update left out as out of range.
func (s *OccupancyGridSensor) Skipped() int { return s.skipped }
