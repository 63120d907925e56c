package sensorsim

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/banshee-data/sensorsim/internal/config"
	"github.com/banshee-data/sensorsim/internal/geometry"
	"github.com/banshee-data/sensorsim/internal/primitives"
)

// World answers where the ego is and what surrounds it at a time offset
// from the start of the run.
type World interface {
	EgoPose(t time.Duration) geometry.Pose
	Objects(t time.Duration) []primitives.Primitive
}

// ScenarioWorld is a World scripted by a config.Scenario.
type ScenarioWorld struct {
	ego     []keyframe
	static  []primitives.Primitive
	movers  []mover
	horizon time.Duration
}

type keyframe struct {
	t    time.Duration
	x, y float64
	z    float64
	yaw  float64
}

type mover struct {
	name string
	dims config.Dimensions
	path []keyframe
}

// NewScenarioWorld converts s into primitives. s should already be
// validated; an unknown object type still fails with
// config.ErrUnknownPrimitive.
func NewScenarioWorld(s *config.Scenario) (*ScenarioWorld, error) {
	w := &ScenarioWorld{ego: keyframes(s.Ego), horizon: s.GetDuration()}
	for _, o := range s.Objects {
		switch o.Type {
		case config.PrimitiveBox:
			if o.Dimensions == nil {
				return nil, fmt.Errorf("object %q: box needs dimensions", o.Name)
			}
			if o.Pose != nil {
				p := keyframes([]config.Waypoint{*o.Pose})[0].pose()
				w.static = append(w.static, primitives.NewBox(o.Name, p, o.Dimensions.Depth, o.Dimensions.Width, o.Dimensions.Height))
				continue
			}
			w.movers = append(w.movers, mover{name: o.Name, dims: *o.Dimensions, path: keyframes(o.Trajectory)})
		case config.PrimitivePolygon:
			pts := make([]geometry.Point3D, len(o.Points))
			for i, p := range o.Points {
				pts[i] = geometry.NewPoint(p[0], p[1])
			}
			w.static = append(w.static, primitives.NewPolygon(o.Name, pts))
		default:
			return nil, fmt.Errorf("object %q: %w %q", o.Name, config.ErrUnknownPrimitive, o.Type)
		}
	}
	return w, nil
}

// Horizon is the scenario duration.
func (w *ScenarioWorld) Horizon() time.Duration { return w.horizon }

// EgoPose interpolates the ego trajectory.
func (w *ScenarioWorld) EgoPose(t time.Duration) geometry.Pose {
	return interpolate(w.ego, t)
}

// Objects returns the static primitives followed by the moving boxes
// placed at t.
func (w *ScenarioWorld) Objects(t time.Duration) []primitives.Primitive {
	objs := slices.Clone(w.static)
	for _, m := range w.movers {
		objs = append(objs, primitives.NewBox(m.name, interpolate(m.path, t), m.dims.Depth, m.dims.Width, m.dims.Height))
	}
	return objs
}

func keyframes(wps []config.Waypoint) []keyframe {
	kfs := make([]keyframe, len(wps))
	for i, wp := range wps {
		kfs[i] = keyframe{t: wp.Offset(), x: wp.X, y: wp.Y, z: wp.Z, yaw: wp.Yaw}
	}
	return kfs
}

func (k keyframe) pose() geometry.Pose {
	p := geometry.NewPose2D(k.x, k.y, k.yaw)
	p.Position.Z = k.z
	return p
}

// interpolate holds the end poses outside the trajectory and blends
// linearly between keyframes, turning through the smaller yaw angle.
func interpolate(kfs []keyframe, t time.Duration) geometry.Pose {
	switch {
	case len(kfs) == 0:
		return geometry.IdentityPose()
	case t <= kfs[0].t:
		return kfs[0].pose()
	case t >= kfs[len(kfs)-1].t:
		return kfs[len(kfs)-1].pose()
	}
	i, _ := slices.BinarySearchFunc(kfs, t, func(k keyframe, t time.Duration) int {
		return cmp.Compare(k.t, t)
	})
	// kfs[i-1].t < t <= kfs[i].t
	a, b := kfs[i-1], kfs[i]
	f := float64(t-a.t) / float64(b.t-a.t)
	lerp := func(u, v float64) float64 { return u + (v-u)*f }
	return keyframe{
		x:   lerp(a.x, b.x),
		y:   lerp(a.y, b.y),
		z:   lerp(a.z, b.z),
		yaw: a.yaw + wrapAngle(b.yaw-a.yaw)*f,
	}.pose()
}

// wrapAngle maps a to (-pi, pi].
func wrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
