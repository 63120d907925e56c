package config

import (
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/sensorsim/internal/posenoise"
)

// DefaultSensorConfigPath is the checked-in defaults file.
const DefaultSensorConfigPath = "config/sensor.defaults.json"

// SensorConfig configures one occupancy grid sensor.
type SensorConfig struct {
	SensorID       *string  `json:"sensor_id,omitempty"`
	FrameID        *string  `json:"frame_id,omitempty"`
	Resolution     *float64 `json:"resolution,omitempty"`
	Height         *int     `json:"height,omitempty"`
	Width          *int     `json:"width,omitempty"`
	OccupiedCost   *int     `json:"occupied_cost,omitempty"`
	InvisibleCost  *int     `json:"invisible_cost,omitempty"`
	UpdateDuration *string  `json:"update_duration,omitempty"` // duration string like "100ms"
	Range          *float64 `json:"range,omitempty"`           // metres; farther objects are skipped

	PoseNoise *PoseNoiseConfig `json:"pose_noise,omitempty"`
}

// PoseNoiseConfig configures the localisation noise applied to the ego
// pose before it becomes the grid origin.
type PoseNoiseConfig struct {
	Enabled           *bool    `json:"enabled,omitempty"`
	Seed              *uint64  `json:"seed,omitempty"`
	UpdateProbability *float64 `json:"update_probability,omitempty"`
	StdDevX           *float64 `json:"stddev_x,omitempty"`
	StdDevY           *float64 `json:"stddev_y,omitempty"`
	StdDevYaw         *float64 `json:"stddev_yaw,omitempty"`
}

// EmptySensorConfig returns a config with every field unset, so every
// accessor returns its default.
func EmptySensorConfig() *SensorConfig {
	return &SensorConfig{}
}

// LoadSensorConfig loads a SensorConfig from a JSON file. Omitted fields
// keep their defaults.
func LoadSensorConfig(path string) (*SensorConfig, error) {
	cfg := EmptySensorConfig()
	if err := loadJSON(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *SensorConfig) Validate() error {
	if c.Resolution != nil && !(*c.Resolution > 0) {
		return fmt.Errorf("resolution must be positive, got %f", *c.Resolution)
	}
	if c.Height != nil && *c.Height <= 0 {
		return fmt.Errorf("height must be positive, got %d", *c.Height)
	}
	if c.Width != nil && *c.Width <= 0 {
		return fmt.Errorf("width must be positive, got %d", *c.Width)
	}
	occupied, invisible := c.GetOccupiedCost(), c.GetInvisibleCost()
	for name, v := range map[string]*int{"occupied_cost": c.OccupiedCost, "invisible_cost": c.InvisibleCost} {
		if v != nil && (*v < 1 || *v > math.MaxInt8) {
			return fmt.Errorf("%s must be between 1 and %d, got %d", name, math.MaxInt8, *v)
		}
	}
	if occupied == invisible {
		return fmt.Errorf("occupied_cost and invisible_cost must differ, both are %d", occupied)
	}
	if c.UpdateDuration != nil && *c.UpdateDuration != "" {
		d, err := time.ParseDuration(*c.UpdateDuration)
		if err != nil {
			return fmt.Errorf("invalid update_duration '%s': %w", *c.UpdateDuration, err)
		}
		if d <= 0 {
			return fmt.Errorf("update_duration must be positive, got %s", d)
		}
	}
	if c.Range != nil && *c.Range < 0 {
		return fmt.Errorf("range must be non-negative, got %f", *c.Range)
	}
	if n := c.PoseNoise; n != nil {
		if n.UpdateProbability != nil && (*n.UpdateProbability < 0 || *n.UpdateProbability > 1) {
			return fmt.Errorf("pose_noise.update_probability must be between 0 and 1, got %f", *n.UpdateProbability)
		}
		for name, v := range map[string]*float64{"stddev_x": n.StdDevX, "stddev_y": n.StdDevY, "stddev_yaw": n.StdDevYaw} {
			if v != nil && *v < 0 {
				return fmt.Errorf("pose_noise.%s must be non-negative, got %f", name, *v)
			}
		}
	}
	return nil
}

// GetSensorID returns the sensor_id value or the default.
func (c *SensorConfig) GetSensorID() string {
	if c.SensorID == nil || *c.SensorID == "" {
		return "occupancy_grid"
	}
	return *c.SensorID
}

// GetFrameID returns the frame_id value or the default.
func (c *SensorConfig) GetFrameID() string {
	if c.FrameID == nil || *c.FrameID == "" {
		return "base_link"
	}
	return *c.FrameID
}

// GetResolution returns the cell size in metres.
func (c *SensorConfig) GetResolution() float64 {
	if c.Resolution == nil {
		return 0.5
	}
	return *c.Resolution
}

// GetHeight returns the height value or the default.
func (c *SensorConfig) GetHeight() int {
	if c.Height == nil {
		return 200
	}
	return *c.Height
}

// GetWidth returns the width value or the default.
func (c *SensorConfig) GetWidth() int {
	if c.Width == nil {
		return 200
	}
	return *c.Width
}

// GetOccupiedCost returns the occupied_cost value or the default.
func (c *SensorConfig) GetOccupiedCost() int8 {
	if c.OccupiedCost == nil {
		return 100
	}
	return int8(*c.OccupiedCost)
}

// GetInvisibleCost returns the invisible_cost value or the default.
func (c *SensorConfig) GetInvisibleCost() int8 {
	if c.InvisibleCost == nil {
		return 50
	}
	return int8(*c.InvisibleCost)
}

// GetUpdateDuration parses and returns the publish period.
func (c *SensorConfig) GetUpdateDuration() time.Duration {
	if c.UpdateDuration == nil || *c.UpdateDuration == "" {
		return 100 * time.Millisecond
	}
	d, err := time.ParseDuration(*c.UpdateDuration)
	if err != nil {
		return 100 * time.Millisecond
	}
	return d
}

// GetRange returns the range value or the default.
func (c *SensorConfig) GetRange() float64 {
	if c.Range == nil {
		return 300
	}
	return *c.Range
}

// GetPoseNoiseEnabled reports whether noise is applied. Defaults to true.
func (c *SensorConfig) GetPoseNoiseEnabled() bool {
	if c.PoseNoise == nil || c.PoseNoise.Enabled == nil {
		return true
	}
	return *c.PoseNoise.Enabled
}

// GetPoseNoise returns the noise model with defaults filled in.
func (c *SensorConfig) GetPoseNoise() posenoise.Config {
	cfg := posenoise.DefaultConfig()
	n := c.PoseNoise
	if n == nil {
		return cfg
	}
	if n.Seed != nil {
		cfg.Seed = *n.Seed
	}
	if n.UpdateProbability != nil {
		cfg.UpdateProbability = *n.UpdateProbability
	}
	if n.StdDevX != nil {
		cfg.StdDevX = *n.StdDevX
	}
	if n.StdDevY != nil {
		cfg.StdDevY = *n.StdDevY
	}
	if n.StdDevYaw != nil {
		cfg.StdDevYaw = *n.StdDevYaw
	}
	return cfg
}
