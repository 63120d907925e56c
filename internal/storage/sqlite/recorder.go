// Package sqlite records published occupancy grids to a SQLite database so
// runs can be replayed and inspected after the fact.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/sensorsim/internal/gridmsg"
	"github.com/banshee-data/sensorsim/internal/monitoring"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var logf = monitoring.Component("recorder")

// ErrNoFrames is returned by LatestFrame for a run with nothing recorded.
var ErrNoFrames = errors.New("no frames recorded")

// Recorder stores grids grouped into runs.
type Recorder struct {
	db *sql.DB
}

// Run describes one recording session.
type Run struct {
	ID       string
	SensorID string
	Started  time.Time
	Frames   int
}

// Open opens or creates the database at path and migrates it.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	r := &Recorder{db: db}
	if err := r.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// Close closes the database.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// DB exposes the handle for read-only debug tooling.
func (r *Recorder) DB() *sql.DB {
	return r.db
}

// StartRun opens a new run for sensorID and returns its id.
func (r *Recorder) StartRun(ctx context.Context, sensorID string, started time.Time) (string, error) {
	id := uuid.New().String()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO grid_runs (run_id, sensor_id, started_ns) VALUES (?, ?, ?)`,
		id, sensorID, started.UnixNano())
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	logf("started run %s for sensor %q", id, sensorID)
	return id, nil
}

// Record appends msg to runID.
func (r *Recorder) Record(ctx context.Context, runID string, msg *gridmsg.OccupancyGrid) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO grid_frames
			(run_id, seq, stamp_ns, frame_id, width, height, resolution, nonzero_cells, payload)
		VALUES
			(?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM grid_frames WHERE run_id = ?), ?, ?, ?, ?, ?, ?, ?)`,
		runID, runID,
		msg.Header.Stamp.UnixNano(),
		msg.Header.FrameID,
		msg.Info.Width,
		msg.Info.Height,
		msg.Info.Resolution,
		len(msg.Data)-msg.Count(0),
		gridmsg.Marshal(msg),
	)
	if err != nil {
		return fmt.Errorf("insert frame: %w", err)
	}
	return nil
}

// Frames returns every grid of runID in recording order.
func (r *Recorder) Frames(ctx context.Context, runID string) ([]*gridmsg.OccupancyGrid, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT payload FROM grid_frames WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var frames []*gridmsg.OccupancyGrid
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		msg, err := gridmsg.Unmarshal(payload)
		if err != nil {
			return nil, fmt.Errorf("decode frame: %w", err)
		}
		frames = append(frames, msg)
	}
	return frames, rows.Err()
}

// LatestFrame returns the last grid recorded for runID.
func (r *Recorder) LatestFrame(ctx context.Context, runID string) (*gridmsg.OccupancyGrid, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM grid_frames WHERE run_id = ? ORDER BY seq DESC LIMIT 1`, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoFrames
	}
	if err != nil {
		return nil, fmt.Errorf("query latest frame: %w", err)
	}
	msg, err := gridmsg.Unmarshal(payload)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return msg, nil
}

// Runs lists recorded runs, newest first.
func (r *Recorder) Runs(ctx context.Context) ([]Run, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.run_id, r.sensor_id, r.started_ns, COUNT(f.seq)
		FROM grid_runs r LEFT JOIN grid_frames f ON f.run_id = r.run_id
		GROUP BY r.run_id
		ORDER BY r.started_ns DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run     Run
			started int64
		)
		if err := rows.Scan(&run.ID, &run.SensorID, &started, &run.Frames); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Started = time.Unix(0, started).UTC()
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunSink records every consumed grid into one run.
type RunSink struct {
	r     *Recorder
	runID string
}

// Sink returns a RunSink bound to runID.
func (r *Recorder) Sink(runID string) *RunSink {
	return &RunSink{r: r, runID: runID}
}

// RunID is the run this sink writes to.
func (s *RunSink) RunID() string { return s.runID }

// Consume records msg.
func (s *RunSink) Consume(ctx context.Context, msg *gridmsg.OccupancyGrid) error {
	return s.r.Record(ctx, s.runID, msg)
}
