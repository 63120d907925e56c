package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/banshee-data/sensorsim/internal/geometry"
	"github.com/banshee-data/sensorsim/internal/gridmsg"
	"github.com/banshee-data/sensorsim/internal/occgrid"
	"github.com/banshee-data/sensorsim/internal/storage/sqlite"
	"github.com/banshee-data/sensorsim/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"
)

type fixedSource struct{ msg *gridmsg.OccupancyGrid }

func (f fixedSource) Latest() *gridmsg.OccupancyGrid { return f.msg }

func sampleGrid(t *testing.T) *gridmsg.OccupancyGrid {
	t.Helper()
	g := occgrid.New(0.5, 40, 40, 100, 50)
	g.Reset(geometry.IdentityPose())
	require.NoError(t, g.AddPrimitive(testutil.Rect(3, -1, 5, 1)))
	return gridmsg.FromGrid(g, time.Unix(1700000000, 0), "base_link")
}

func TestRenderPNG(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, RenderPNG(&buf, sampleGrid(t), 3*vg.Inch))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")), "missing PNG signature")
}

func TestRenderPNGUniformGrid(t *testing.T) {
	t.Parallel()

	g := occgrid.New(1, 4, 4, 100, 50)
	msg := gridmsg.FromGrid(g, time.Time{}, "base_link")
	var buf bytes.Buffer
	require.NoError(t, RenderPNG(&buf, msg, 2*vg.Inch))
	assert.NotZero(t, buf.Len())
}

func TestRenderErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	assert.ErrorIs(t, RenderPNG(&buf, nil, vg.Inch), ErrNoGrid)
	assert.ErrorIs(t, RenderHTML(&buf, nil), ErrNoGrid)

	short := &gridmsg.OccupancyGrid{Info: gridmsg.MapMetaData{Width: 4, Height: 4, Resolution: 1}, Data: make([]int8, 3)}
	assert.Error(t, RenderPNG(&buf, short, vg.Inch))
}

func TestRenderHTML(t *testing.T) {
	t.Parallel()

	msg := sampleGrid(t)
	var buf bytes.Buffer
	require.NoError(t, RenderHTML(&buf, msg))
	out := buf.String()
	assert.Contains(t, out, "Occupancy Grid")
	assert.Contains(t, out, "frame=base_link")
	assert.Contains(t, out, "echarts")
}

func TestValueRange(t *testing.T) {
	t.Parallel()

	lo, hi := valueRange(nil)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)

	lo, hi = valueRange([]int8{50, 50})
	assert.Equal(t, 50.0, lo)
	assert.Equal(t, 51.0, hi)

	lo, hi = valueRange([]int8{0, 100, 50})
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 100.0, hi)
}

func TestGridXYZCentersCells(t *testing.T) {
	t.Parallel()

	g := gridXYZ{&gridmsg.OccupancyGrid{Info: gridmsg.MapMetaData{Width: 4, Height: 2, Resolution: 0.5}}}
	c, r := g.Dims()
	assert.Equal(t, 4, c)
	assert.Equal(t, 2, r)
	assert.InDelta(t, -0.25, g.X(0), 1e-12)
	assert.InDelta(t, 1.25, g.X(3), 1e-12)
	assert.InDelta(t, -0.75, g.Y(0), 1e-12)
	assert.InDelta(t, -0.25, g.Y(1), 1e-12)
}

func TestHandlers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		handler     http.Handler
		wantCode    int
		contentType string
	}{
		{"png", PNGHandler(fixedSource{sampleGrid(t)}), http.StatusOK, "image/png"},
		{"html", HTMLHandler(fixedSource{sampleGrid(t)}), http.StatusOK, "text/html; charset=utf-8"},
		{"png no grid", PNGHandler(fixedSource{}), http.StatusServiceUnavailable, ""},
		{"html no grid", HTMLHandler(fixedSource{}), http.StatusServiceUnavailable, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			tt.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.contentType != "" {
				assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestAttachDebugRoutes(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	require.NoError(t, AttachDebugRoutes(mux, fixedSource{sampleGrid(t)}, nil))

	for _, path := range []string{"/debug/", "/debug/grid.png", "/debug/grid.html"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "127.0.0.1:40000"
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		// tsweb may refuse non-local callers, so only check the route exists.
		assert.NotEqual(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestAttachDebugRoutesWithDB(t *testing.T) {
	t.Parallel()

	rec, err := sqlite.Open(filepath.Join(t.TempDir(), "grids.db"))
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	mux := http.NewServeMux()
	require.NoError(t, AttachDebugRoutes(mux, fixedSource{}, rec.DB()))

	req := httptest.NewRequest(http.MethodGet, "/debug/tailsql/", nil)
	req.RemoteAddr = "127.0.0.1:40000"
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.NotEqual(t, http.StatusNotFound, w.Code)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	msg := sampleGrid(t)
	s := Summarize(msg)
	assert.Equal(t, "base_link", s.FrameID)
	assert.Equal(t, uint32(40), s.Width)
	assert.Equal(t, msg.Count(100), s.Cells["100"])
	assert.Equal(t, msg.Count(50), s.Cells["50"])
	assert.Equal(t, len(msg.Data), s.Cells["0"]+s.Cells["50"]+s.Cells["100"])
}

func TestAPIGrid(t *testing.T) {
	t.Parallel()

	msg := sampleGrid(t)
	mux := http.NewServeMux()
	AttachAPIRoutes(mux, fixedSource{msg}, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/grid", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got GridSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 0.5, got.Resolution)
	assert.Equal(t, msg.Count(100), got.Cells["100"])

	// Run routes are absent without a store.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	empty := http.NewServeMux()
	AttachAPIRoutes(empty, fixedSource{}, nil)
	rec = httptest.NewRecorder()
	empty.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/grid", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPIRuns(t *testing.T) {
	t.Parallel()

	store, err := sqlite.Open(filepath.Join(t.TempDir(), "grids.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	runID, err := store.StartRun(ctx, "occupancy_grid", time.Unix(1700000000, 0))
	require.NoError(t, err)
	emptyID, err := store.StartRun(ctx, "occupancy_grid", time.Unix(1700000100, 0))
	require.NoError(t, err)
	require.NoError(t, store.Record(ctx, runID, sampleGrid(t)))

	mux := http.NewServeMux()
	AttachAPIRoutes(mux, fixedSource{}, store)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/api/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []runJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, emptyID, runs[0].ID)
	assert.Equal(t, 0, runs[0].Frames)
	assert.Equal(t, 1, runs[1].Frames)

	rec = get("/api/runs/" + runID + "/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	var s GridSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, "base_link", s.FrameID)

	rec = get("/api/runs/" + runID + "/latest.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	assert.Equal(t, http.StatusNotFound, get("/api/runs/"+emptyID+"/latest").Code)
}

type brokenStore struct{}

func (brokenStore) Runs(context.Context) ([]sqlite.Run, error) { return nil, nil }

func (brokenStore) LatestFrame(context.Context, string) (*gridmsg.OccupancyGrid, error) {
	// Header says 4x4 but only three cells survived.
	return &gridmsg.OccupancyGrid{Info: gridmsg.MapMetaData{Width: 4, Height: 4, Resolution: 1}, Data: make([]int8, 3)}, nil
}

func TestAPIRunPNGRenderFailure(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	AttachAPIRoutes(mux, fixedSource{}, brokenStore{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/abc/latest.png", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.False(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}
