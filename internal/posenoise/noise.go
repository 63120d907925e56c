// Package posenoise perturbs the sensor pose the way a localisation stack
// drifts: small offsets that hold for many ticks and occasionally jump.
package posenoise

import (
	"math/rand/v2"
	"sync"

	"github.com/banshee-data/sensorsim/internal/geometry"
	"gonum.org/v1/gonum/stat/distuv"
)

// Config sets the noise model. Each of the x, y and yaw offsets is redrawn
// independently with probability UpdateProbability per Apply call, from a
// zero-mean normal with the matching standard deviation.
type Config struct {
	Seed              uint64
	UpdateProbability float64
	StdDevX           float64
	StdDevY           float64
	StdDevYaw         float64
}

// DefaultConfig matches a VLP-16 class localiser.
func DefaultConfig() Config {
	return Config{
		Seed:              1,
		UpdateProbability: 0.01,
		StdDevX:           0.03,
		StdDevY:           0.008,
	}
}

// Source holds the current offsets. It is safe for concurrent use.
type Source struct {
	mu     sync.Mutex
	p      float64
	draw   distuv.Uniform
	x      distuv.Normal
	y      distuv.Normal
	yaw    distuv.Normal
	offset [3]float64
}

// New returns a Source whose sequence is fully determined by cfg.Seed.
// Offsets start at zero.
func New(cfg Config) *Source {
	src := rand.NewPCG(cfg.Seed, cfg.Seed)
	return &Source{
		p:    cfg.UpdateProbability,
		draw: distuv.Uniform{Min: 0, Max: 1, Src: src},
		x:    distuv.Normal{Mu: 0, Sigma: cfg.StdDevX, Src: src},
		y:    distuv.Normal{Mu: 0, Sigma: cfg.StdDevY, Src: src},
		yaw:  distuv.Normal{Mu: 0, Sigma: cfg.StdDevYaw, Src: src},
	}
}

// Apply refreshes the offsets and returns pose shifted by them. The yaw
// offset is composed on the right, as a rotation about the pose's own +Z.
func (s *Source) Apply(pose geometry.Pose) geometry.Pose {
	s.mu.Lock()
	for i, d := range []*distuv.Normal{&s.x, &s.y, &s.yaw} {
		if s.draw.Rand() < s.p {
			s.offset[i] = d.Rand()
		}
	}
	dx, dy, dyaw := s.offset[0], s.offset[1], s.offset[2]
	s.mu.Unlock()

	pose.Position.X += dx
	pose.Position.Y += dy
	pose.Orientation = pose.Orientation.Normalized().Mul(geometry.QuaternionFromYaw(dyaw))
	return pose
}

// Offsets returns the x, y and yaw offsets the last Apply used.
func (s *Source) Offsets() (x, y, yaw float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset[0], s.offset[1], s.offset[2]
}
