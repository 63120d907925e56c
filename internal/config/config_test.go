package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/banshee-data/sensorsim/internal/posenoise"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestSensorConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := EmptySensorConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "occupancy_grid", cfg.GetSensorID())
	assert.Equal(t, "base_link", cfg.GetFrameID())
	assert.Equal(t, 0.5, cfg.GetResolution())
	assert.Equal(t, 200, cfg.GetHeight())
	assert.Equal(t, 200, cfg.GetWidth())
	assert.Equal(t, int8(100), cfg.GetOccupiedCost())
	assert.Equal(t, int8(50), cfg.GetInvisibleCost())
	assert.Equal(t, 100*time.Millisecond, cfg.GetUpdateDuration())
	assert.Equal(t, 300.0, cfg.GetRange())
	assert.True(t, cfg.GetPoseNoiseEnabled())
	assert.Equal(t, posenoise.DefaultConfig(), cfg.GetPoseNoise())
}

func TestLoadSensorConfig(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "sensor.json", `{
  "resolution": 0.25,
  "width": 80,
  "update_duration": "50ms",
  "pose_noise": {"enabled": false, "seed": 9, "stddev_yaw": 0.01}
}`)
	cfg, err := LoadSensorConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.25, cfg.GetResolution())
	assert.Equal(t, 80, cfg.GetWidth())
	assert.Equal(t, 200, cfg.GetHeight(), "omitted fields keep defaults")
	assert.Equal(t, 50*time.Millisecond, cfg.GetUpdateDuration())
	assert.False(t, cfg.GetPoseNoiseEnabled())

	noise := cfg.GetPoseNoise()
	assert.Equal(t, uint64(9), noise.Seed)
	assert.Equal(t, 0.01, noise.StdDevYaw)
	assert.Equal(t, 0.03, noise.StdDevX)
}

func TestLoadCheckedInDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadSensorConfig(filepath.Join("..", "..", DefaultSensorConfigPath))
	require.NoError(t, err)
	assert.Equal(t, EmptySensorConfig().GetPoseNoise(), cfg.GetPoseNoise())
	assert.Equal(t, EmptySensorConfig().GetUpdateDuration(), cfg.GetUpdateDuration())
}

func TestSensorConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  SensorConfig
		want string
	}{
		{"zero resolution", SensorConfig{Resolution: ptrFloat64(0)}, "resolution"},
		{"negative width", SensorConfig{Width: ptrInt(-1)}, "width"},
		{"zero height", SensorConfig{Height: ptrInt(0)}, "height"},
		{"cost too big", SensorConfig{OccupiedCost: ptrInt(200)}, "occupied_cost"},
		{"cost zero", SensorConfig{InvisibleCost: ptrInt(0)}, "invisible_cost"},
		{"same costs", SensorConfig{OccupiedCost: ptrInt(50)}, "must differ"},
		{"bad duration", SensorConfig{UpdateDuration: ptrString("soon")}, "update_duration"},
		{"negative duration", SensorConfig{UpdateDuration: ptrString("-1s")}, "update_duration"},
		{"negative range", SensorConfig{Range: ptrFloat64(-3)}, "range"},
		{"probability", SensorConfig{PoseNoise: &PoseNoiseConfig{UpdateProbability: ptrFloat64(1.5)}}, "update_probability"},
		{"stddev", SensorConfig{PoseNoise: &PoseNoiseConfig{StdDevY: ptrFloat64(-0.1)}}, "stddev_y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	ok := SensorConfig{PoseNoise: &PoseNoiseConfig{Enabled: ptrBool(true)}, Range: ptrFloat64(0)}
	assert.NoError(t, ok.Validate())
}

func TestLoadJSONGuards(t *testing.T) {
	t.Parallel()

	_, err := LoadSensorConfig(writeFile(t, "sensor.yaml", `{}`))
	assert.ErrorContains(t, err, ".json extension")

	_, err = LoadSensorConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "stat")

	_, err = LoadSensorConfig(writeFile(t, "broken.json", `{"resolution": `))
	assert.ErrorContains(t, err, "parse")

	_, err = LoadSensorConfig(writeFile(t, "huge.json", `{"sensor_id": "`+strings.Repeat("x", maxFileSize)+`"}`))
	assert.ErrorContains(t, err, "too large")

	_, err = LoadSensorConfig(writeFile(t, "invalid.json", `{"width": -4}`))
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestLoadScenario(t *testing.T) {
	t.Parallel()

	s, err := LoadScenario(filepath.Join("..", "..", "config", "scenarios", "crossing.json"))
	require.NoError(t, err)
	assert.Equal(t, "crossing", s.GetName())
	assert.Equal(t, 10*time.Second, s.GetDuration())
	require.Len(t, s.Objects, 3)
	assert.Equal(t, PrimitiveBox, s.Objects[0].Type)
	assert.Len(t, s.Objects[1].Trajectory, 2)
	assert.Len(t, s.Objects[2].Points, 4)
}

func TestScenarioValidate(t *testing.T) {
	t.Parallel()

	ego := []Waypoint{{T: "0s"}, {T: "1s", X: 1}}
	box := func(o ObjectConfig) *Scenario {
		if o.Type == "" {
			o.Type = PrimitiveBox
		}
		return &Scenario{Ego: ego, Objects: []ObjectConfig{o}}
	}
	dims := &Dimensions{Depth: 1, Width: 1, Height: 1}

	tests := []struct {
		name string
		s    *Scenario
		want string
	}{
		{"no ego", &Scenario{}, "at least one waypoint"},
		{"bad t", &Scenario{Ego: []Waypoint{{T: "x"}, {T: "1s"}}}, "invalid t"},
		{"unordered", &Scenario{Ego: []Waypoint{{T: "2s"}, {T: "1s"}}}, "not after"},
		{"bad duration", &Scenario{Ego: ego, Duration: ptrString("long")}, "invalid duration"},
		{"box no dims", box(ObjectConfig{Pose: &Waypoint{}}), "dimensions"},
		{"box no pose", box(ObjectConfig{Dimensions: dims}), "pose or a trajectory"},
		{"box both", box(ObjectConfig{Dimensions: dims, Pose: &Waypoint{}, Trajectory: ego}), "both"},
		{"negative dims", box(ObjectConfig{Dimensions: &Dimensions{Depth: -1}, Pose: &Waypoint{}}), "non-negative"},
		{"polygon short", box(ObjectConfig{Type: PrimitivePolygon, Points: [][2]float64{{0, 0}}}), "at least 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	err := box(ObjectConfig{Type: "cylinder", Name: "drum"}).Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownPrimitive))
	assert.Contains(t, err.Error(), `"drum"`)

	static := &Scenario{Ego: []Waypoint{{X: 3}}}
	require.NoError(t, static.Validate())
	assert.Zero(t, static.GetDuration())
	assert.Equal(t, "unnamed", static.GetName())
}
