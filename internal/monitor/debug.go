package monitor

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/banshee-data/sensorsim/internal/gridmsg"
	"github.com/tailscale/tailsql/server/tailsql"
	"gonum.org/v1/plot/vg"
	"tailscale.com/tsweb"
)

// Source provides the grid to show. Both the simulator and the stream
// publisher satisfy it.
type Source interface {
	Latest() *gridmsg.OccupancyGrid
}

// AttachDebugRoutes mounts the grid pages on mux under /debug/. When db is
// non-nil the recordings are also browsable through tailsql.
func AttachDebugRoutes(mux *http.ServeMux, src Source, db *sql.DB) error {
	debug := tsweb.Debugger(mux)
	debug.KVFunc("Latest grid", func() any {
		if m := src.Latest(); m != nil {
			return fmt.Sprintf("%s %dx%d @ %s", m.Header.FrameID, m.Info.Width, m.Info.Height, m.Header.Stamp)
		}
		return "none"
	})
	debug.Handle("grid.png", "Latest occupancy grid (PNG)", PNGHandler(src))
	debug.Handle("grid.html", "Latest occupancy grid (interactive)", HTMLHandler(src))

	if db == nil {
		return nil
	}
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://grids.db", db, &tailsql.DBOptions{
		Label: "Grid recordings",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
	return nil
}

// PNGHandler serves the latest grid as a PNG heat map.
func PNGHandler(src Source) http.Handler {
	return renderHandler(src, "image/png", func(buf *bytes.Buffer, m *gridmsg.OccupancyGrid) error {
		return RenderPNG(buf, m, 8*vg.Inch)
	})
}

// HTMLHandler serves the latest grid as an echarts page.
func HTMLHandler(src Source) http.Handler {
	return renderHandler(src, "text/html; charset=utf-8", func(buf *bytes.Buffer, m *gridmsg.OccupancyGrid) error {
		return RenderHTML(buf, m)
	})
}

func renderHandler(src Source, contentType string, render func(*bytes.Buffer, *gridmsg.OccupancyGrid) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		err := render(&buf, src.Latest())
		switch {
		case errors.Is(err, ErrNoGrid):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		case err != nil:
			http.Error(w, fmt.Sprintf("failed to render grid: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(buf.Bytes())
	})
}
