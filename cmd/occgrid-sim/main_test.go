package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/sensorsim/internal/config"
	"github.com/banshee-data/sensorsim/internal/gridmsg"
	"github.com/banshee-data/sensorsim/internal/occgrid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct{ msg *gridmsg.OccupancyGrid }

func (s staticSource) Latest() *gridmsg.OccupancyGrid { return s.msg }

func TestFlagDefaults(t *testing.T) {
	assert.Equal(t, config.DefaultSensorConfigPath, *configPath)
	assert.Equal(t, 0, *maxGrids)
	assert.Empty(t, *grpcAddr)
	assert.Empty(t, *dbPath)
	assert.Empty(t, *listen)
	assert.False(t, *noNoise)
}

func TestWritePNG(t *testing.T) {
	t.Parallel()

	g := occgrid.New(1, 8, 8, 100, 50)
	path := filepath.Join(t.TempDir(), "grid.png")
	require.NoError(t, writePNG(path, staticSource{gridmsg.FromGrid(g, time.Unix(0, 0), "base_link")}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("\x89PNG")))
}

func TestWritePNGNoGrid(t *testing.T) {
	t.Parallel()

	assert.Error(t, writePNG(filepath.Join(t.TempDir(), "grid.png"), staticSource{}))
}
