package sensorsim

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/banshee-data/sensorsim/internal/gridmsg"
	"github.com/banshee-data/sensorsim/internal/posenoise"
	"github.com/banshee-data/sensorsim/internal/timeutil"
)

// Sink receives every published grid. Consume is called from the
// simulation goroutine and must not retain msg.Data for writing.
type Sink interface {
	Consume(ctx context.Context, msg *gridmsg.OccupancyGrid) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, msg *gridmsg.OccupancyGrid) error

// Consume calls f.
func (f SinkFunc) Consume(ctx context.Context, msg *gridmsg.OccupancyGrid) error {
	return f(ctx, msg)
}

// Config assembles a Simulator.
type Config struct {
	World  World
	Sensor *OccupancyGridSensor

	// Clock drives the tick loop. Defaults to timeutil.RealClock.
	Clock timeutil.Clock

	// Noise perturbs the ego pose before it reaches the sensor. Nil
	// disables noise.
	Noise *posenoise.Source

	// Sinks receive each grid in order.
	Sinks []Sink

	// Duration ends Run once this much simulated time has passed. Zero
	// runs until cancelled or MaxGrids is reached.
	Duration time.Duration

	// MaxGrids ends Run after this many published grids. Zero means no
	// limit.
	MaxGrids int
}

// Simulator ticks the world forward at the sensor period.
type Simulator struct {
	cfg    Config
	start  time.Time
	latest atomic.Pointer[gridmsg.OccupancyGrid]

	ticks      atomic.Uint64
	published  atomic.Uint64
	sinkErrors atomic.Uint64
}

// New returns a Simulator for cfg.
func New(cfg Config) (*Simulator, error) {
	if cfg.World == nil {
		return nil, errors.New("sensorsim: nil world")
	}
	if cfg.Sensor == nil {
		return nil, errors.New("sensorsim: nil sensor")
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &Simulator{cfg: cfg}, nil
}

// Step advances the simulation to now. It returns the published grid, or
// nil when the sensor was not due. Sink failures are logged and joined
// into the returned error; every sink is still called.
func (s *Simulator) Step(ctx context.Context, now time.Time) (*gridmsg.OccupancyGrid, error) {
	if s.start.IsZero() {
		s.start = now
	}
	s.ticks.Add(1)
	elapsed := now.Sub(s.start)

	ego := s.cfg.World.EgoPose(elapsed)
	if s.cfg.Noise != nil {
		ego = s.cfg.Noise.Apply(ego)
	}
	msg, ok := s.cfg.Sensor.Update(now, ego, s.cfg.World.Objects(elapsed))
	if !ok {
		return nil, nil
	}
	s.latest.Store(msg)
	s.published.Add(1)

	var errs []error
	for i, sink := range s.cfg.Sinks {
		if err := sink.Consume(ctx, msg); err != nil {
			s.sinkErrors.Add(1)
			logf("sink %d failed at t=%s: %v", i, elapsed, err)
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return msg, errors.Join(errs...)
}

// Run publishes one grid immediately and then one per sensor period until
// ctx is cancelled, Duration has elapsed, or MaxGrids grids have been
// published. Sink errors do not stop the loop. Run returns ctx.Err() on
// cancellation and nil when a limit is reached.
func (s *Simulator) Run(ctx context.Context) error {
	clock := s.cfg.Clock
	ticker := clock.NewTicker(s.cfg.Sensor.Period())
	defer ticker.Stop()

	logf("running sensor %q every %s", s.cfg.Sensor.ID(), s.cfg.Sensor.Period())
	s.Step(ctx, clock.Now())
	for !s.done(clock.Now()) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C():
			s.Step(ctx, now)
		}
	}
	st := s.Stats()
	logf("finished after %d ticks: published=%d sink_errors=%d", st.Ticks, st.Published, st.SinkErrors)
	return nil
}

func (s *Simulator) done(now time.Time) bool {
	if s.cfg.MaxGrids > 0 && s.published.Load() >= uint64(s.cfg.MaxGrids) {
		return true
	}
	return s.cfg.Duration > 0 && now.Sub(s.start) >= s.cfg.Duration
}

// Latest returns the last published grid, or nil. Safe from any goroutine.
func (s *Simulator) Latest() *gridmsg.OccupancyGrid {
	return s.latest.Load()
}

// Stats reports loop counters. Safe from any goroutine.
func (s *Simulator) Stats() Stats {
	return Stats{
		Ticks:      s.ticks.Load(),
		Published:  s.published.Load(),
		SinkErrors: s.sinkErrors.Load(),
	}
}

// Stats contains simulator counters.
type Stats struct {
	Ticks      uint64
	Published  uint64
	SinkErrors uint64
}
