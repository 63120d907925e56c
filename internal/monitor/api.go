package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/sensorsim/internal/gridmsg"
	"github.com/banshee-data/sensorsim/internal/monitoring"
	"github.com/banshee-data/sensorsim/internal/storage/sqlite"
	"gonum.org/v1/plot/vg"
)

// RunStore is the read side of the recorder.
type RunStore interface {
	Runs(ctx context.Context) ([]sqlite.Run, error)
	LatestFrame(ctx context.Context, runID string) (*gridmsg.OccupancyGrid, error)
}

// GridSummary is the JSON view of a grid without its cell data.
type GridSummary struct {
	FrameID    string         `json:"frame_id"`
	Stamp      time.Time      `json:"stamp"`
	Resolution float64        `json:"resolution"`
	Width      uint32         `json:"width"`
	Height     uint32         `json:"height"`
	OriginX    float64        `json:"origin_x"`
	OriginY    float64        `json:"origin_y"`
	Cells      map[string]int `json:"cells"`
}

// Summarize counts cells by value.
func Summarize(msg *gridmsg.OccupancyGrid) GridSummary {
	counts := make(map[string]int)
	for _, v := range msg.Data {
		counts[strconv.Itoa(int(v))]++
	}
	return GridSummary{
		FrameID:    msg.Header.FrameID,
		Stamp:      msg.Header.Stamp,
		Resolution: msg.Info.Resolution,
		Width:      msg.Info.Width,
		Height:     msg.Info.Height,
		OriginX:    msg.Info.Origin.Position.X,
		OriginY:    msg.Info.Origin.Position.Y,
		Cells:      counts,
	}
}

type runJSON struct {
	ID       string    `json:"id"`
	SensorID string    `json:"sensor_id"`
	Started  time.Time `json:"started"`
	Frames   int       `json:"frames"`
}

// AttachAPIRoutes mounts the JSON endpoints:
//
//	GET /api/grid                    summary of the latest grid
//	GET /api/runs                    recorded runs, newest first
//	GET /api/runs/{id}/latest        summary of a run's last frame
//	GET /api/runs/{id}/latest.png    that frame rendered
//
// The run endpoints are only mounted when store is non-nil.
func AttachAPIRoutes(mux *http.ServeMux, src Source, store RunStore) {
	mux.HandleFunc("GET /api/grid", func(w http.ResponseWriter, r *http.Request) {
		msg := src.Latest()
		if msg == nil {
			writeJSONError(w, http.StatusServiceUnavailable, ErrNoGrid.Error())
			return
		}
		writeJSON(w, http.StatusOK, Summarize(msg))
	})
	if store == nil {
		return
	}

	mux.HandleFunc("GET /api/runs", func(w http.ResponseWriter, r *http.Request) {
		runs, err := store.Runs(r.Context())
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		out := make([]runJSON, 0, len(runs))
		for _, run := range runs {
			out = append(out, runJSON{ID: run.ID, SensorID: run.SensorID, Started: run.Started, Frames: run.Frames})
		}
		writeJSON(w, http.StatusOK, out)
	})
	mux.HandleFunc("GET /api/runs/{id}/latest", func(w http.ResponseWriter, r *http.Request) {
		msg, ok := latestFrame(w, r, store)
		if ok {
			writeJSON(w, http.StatusOK, Summarize(msg))
		}
	})
	mux.HandleFunc("GET /api/runs/{id}/latest.png", func(w http.ResponseWriter, r *http.Request) {
		msg, ok := latestFrame(w, r, store)
		if !ok {
			return
		}
		var buf bytes.Buffer
		if err := RenderPNG(&buf, msg, 8*vg.Inch); err != nil {
			monitoring.Logf("[monitor] failed to render run %s: %v", r.PathValue("id"), err)
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	})
}

func latestFrame(w http.ResponseWriter, r *http.Request, store RunStore) (*gridmsg.OccupancyGrid, bool) {
	msg, err := store.LatestFrame(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, sqlite.ErrNoFrames):
		writeJSONError(w, http.StatusNotFound, err.Error())
		return nil, false
	case err != nil:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return msg, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		monitoring.Logf("[monitor] failed to encode json response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
