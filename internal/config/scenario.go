package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownPrimitive is returned for an object type other than "box" or
// "polygon".
var ErrUnknownPrimitive = errors.New("unknown primitive type")

// Primitive type names accepted in ObjectConfig.Type.
const (
	PrimitiveBox     = "box"
	PrimitivePolygon = "polygon"
)

// Scenario is a scripted world: the ego vehicle's trajectory and the
// objects around it.
type Scenario struct {
	Name     *string        `json:"name,omitempty"`
	Duration *string        `json:"duration,omitempty"` // defaults to the last ego waypoint
	Ego      []Waypoint     `json:"ego"`
	Objects  []ObjectConfig `json:"objects,omitempty"`
}

// Waypoint is a timed 2D pose. Poses between waypoints are interpolated;
// before the first and after the last they are held.
type Waypoint struct {
	T   string  `json:"t"` // offset from scenario start, duration string like "1.5s"
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Z   float64 `json:"z,omitempty"`
	Yaw float64 `json:"yaw,omitempty"`
}

// Offset parses T. Validate guarantees it succeeds for loaded scenarios.
func (w Waypoint) Offset() time.Duration {
	d, _ := time.ParseDuration(w.T)
	return d
}

// ObjectConfig is one object. Boxes use Dimensions with either Pose or
// Trajectory; polygons use Points and are static.
type ObjectConfig struct {
	Name       string       `json:"name"`
	Type       string       `json:"type"`
	Pose       *Waypoint    `json:"pose,omitempty"`
	Trajectory []Waypoint   `json:"trajectory,omitempty"`
	Dimensions *Dimensions  `json:"dimensions,omitempty"`
	Points     [][2]float64 `json:"points,omitempty"`
}

// Dimensions of a box in its own frame.
type Dimensions struct {
	Depth  float64 `json:"depth"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// LoadScenario loads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	s := &Scenario{}
	if err := loadJSON(path, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks waypoint ordering and object shapes.
func (s *Scenario) Validate() error {
	if len(s.Ego) == 0 {
		return errors.New("ego trajectory needs at least one waypoint")
	}
	if err := validateTrajectory("ego", s.Ego); err != nil {
		return err
	}
	if s.Duration != nil && *s.Duration != "" {
		if _, err := time.ParseDuration(*s.Duration); err != nil {
			return fmt.Errorf("invalid duration '%s': %w", *s.Duration, err)
		}
	}
	for i, o := range s.Objects {
		if err := o.validate(); err != nil {
			return fmt.Errorf("object %d (%q): %w", i, o.Name, err)
		}
	}
	return nil
}

func (o ObjectConfig) validate() error {
	switch o.Type {
	case PrimitiveBox:
		if o.Dimensions == nil {
			return errors.New("box needs dimensions")
		}
		if d := o.Dimensions; d.Depth < 0 || d.Width < 0 || d.Height < 0 {
			return fmt.Errorf("dimensions must be non-negative, got %+v", *d)
		}
		if o.Pose == nil && len(o.Trajectory) == 0 {
			return errors.New("box needs a pose or a trajectory")
		}
		if o.Pose != nil && len(o.Trajectory) > 0 {
			return errors.New("box has both pose and trajectory")
		}
		if o.Pose != nil {
			return validateTrajectory("pose", []Waypoint{*o.Pose})
		}
		return validateTrajectory("trajectory", o.Trajectory)
	case PrimitivePolygon:
		if len(o.Points) < 2 {
			return fmt.Errorf("polygon needs at least 2 points, got %d", len(o.Points))
		}
		return nil
	}
	return fmt.Errorf("%w %q", ErrUnknownPrimitive, o.Type)
}

// validateTrajectory requires parseable, strictly increasing offsets. An
// empty T is allowed for a single static pose.
func validateTrajectory(name string, wps []Waypoint) error {
	var prev time.Duration
	for i, w := range wps {
		if w.T == "" && len(wps) == 1 {
			continue
		}
		d, err := time.ParseDuration(w.T)
		if err != nil {
			return fmt.Errorf("%s waypoint %d: invalid t '%s': %w", name, i, w.T, err)
		}
		if i > 0 && d <= prev {
			return fmt.Errorf("%s waypoint %d: t %s is not after %s", name, i, d, prev)
		}
		prev = d
	}
	return nil
}

// GetName returns the scenario name or "unnamed".
func (s *Scenario) GetName() string {
	if s.Name == nil || *s.Name == "" {
		return "unnamed"
	}
	return *s.Name
}

// GetDuration returns the configured duration, or the offset of the last
// ego waypoint.
func (s *Scenario) GetDuration() time.Duration {
	if s.Duration != nil && *s.Duration != "" {
		if d, err := time.ParseDuration(*s.Duration); err == nil {
			return d
		}
	}
	if len(s.Ego) == 0 {
		return 0
	}
	return s.Ego[len(s.Ego)-1].Offset()
}
