package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chenBenjamin97/traffic-counter/pkg/counter"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//ErrNotFound is returned when a run does not exist
var ErrNotFound = errors.New("run not found")

type Store struct {
	*sql.DB
}

//Run is one counting pass over a video. Counts is nil until the run finished.
type Run struct {
	RunID       string          `json:"run_id"`
	VideoName   string          `json:"video_name"`
	FrameWidth  int             `json:"frame_width"`
	FrameHeight int             `json:"frame_height"`
	Frames      int             `json:"frames"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
	Cancelled   bool            `json:"cancelled"`
	Counts      *counter.Counts `json:"counts,omitempty"`
}

//NewStore opens (or creates) the sqlite database at path
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	//sqlite allows one writer, the counting loops and the API share it
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id            TEXT PRIMARY KEY,
			video_name        TEXT NOT NULL,
			frame_width       INTEGER,
			frame_height      INTEGER,
			frames            INTEGER DEFAULT 0,
			started_at        BIGINT,
			finished_at       BIGINT,
			cancelled         INTEGER DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS crossings (
			run_id            TEXT NOT NULL,
			frame             INTEGER,
			vehicle_id        INTEGER,
			zone              TEXT,
			class             INTEGER,
			confidence        DOUBLE,
			center_x          INTEGER,
			center_y          INTEGER,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
		CREATE TABLE IF NOT EXISTS run_counts (
			run_id            TEXT NOT NULL,
			tally             TEXT,
			class             INTEGER,
			count             INTEGER,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
		CREATE INDEX IF NOT EXISTS idx_runs_video ON runs(video_name, started_at);
		CREATE INDEX IF NOT EXISTS idx_crossings_run ON crossings(run_id);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db}, nil
}

//StartRun registers a new run and returns its id
func (s *Store) StartRun(ctx context.Context, videoName string, frameWidth, frameHeight int) (string, error) {
	runID := uuid.New().String()
	_, err := s.ExecContext(ctx,
		`INSERT INTO runs (run_id, video_name, frame_width, frame_height, started_at) VALUES (?, ?, ?, ?, ?)`,
		runID, videoName, frameWidth, frameHeight, time.Now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return runID, nil
}

//RecordCrossings stores the new counts of one frame
func (s *Store) RecordCrossings(ctx context.Context, runID string, frame int, crossings []counter.Crossing) error {
	if len(crossings) == 0 {
		return nil
	}

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO crossings (run_id, frame, vehicle_id, zone, class, confidence, center_x, center_y) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range crossings {
		center := c.Center()
		if _, err := stmt.ExecContext(ctx, runID, frame, c.VehicleID, c.Zone, int(c.Class), c.Confidence, center.X, center.Y); err != nil {
			return fmt.Errorf("failed to insert crossing: %w", err)
		}
	}

	return tx.Commit()
}

//FinishRun stores the final tallies of a run
func (s *Store) FinishRun(ctx context.Context, runID string, frames int, counts counter.Counts, cancelled bool) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE runs SET frames = ?, finished_at = ?, cancelled = ? WHERE run_id = ?`,
		frames, time.Now().UnixNano(), cancelled, runID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_counts WHERE run_id = ?`, runID); err != nil {
		return err
	}

	tallies := map[string]map[counter.VehicleClass]int{
		"live":               counts.Live,
		counter.ZoneIncoming: counts.Incoming,
		counter.ZoneOutgoing: counts.Outgoing,
	}
	for tally, m := range tallies {
		for class, n := range m {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO run_counts (run_id, tally, class, count) VALUES (?, ?, ?, ?)`,
				runID, tally, int(class), n); err != nil {
				return fmt.Errorf("failed to insert count: %w", err)
			}
		}
	}

	return tx.Commit()
}

const runColumns = `run_id, video_name, frame_width, frame_height, frames, started_at, finished_at, cancelled`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var (
		r          Run
		startedAt  int64
		finishedAt sql.NullInt64
	)
	if err := row.Scan(&r.RunID, &r.VideoName, &r.FrameWidth, &r.FrameHeight, &r.Frames, &startedAt, &finishedAt, &r.Cancelled); err != nil {
		return nil, err
	}
	r.StartedAt = time.Unix(0, startedAt).UTC()
	if finishedAt.Valid {
		t := time.Unix(0, finishedAt.Int64).UTC()
		r.FinishedAt = &t
	}
	return &r, nil
}

func (s *Store) loadCounts(ctx context.Context, r *Run) error {
	if r.FinishedAt == nil {
		return nil
	}

	rows, err := s.QueryContext(ctx, `SELECT tally, class, count FROM run_counts WHERE run_id = ?`, r.RunID)
	if err != nil {
		return err
	}
	defer rows.Close()

	counts := counter.NewCounts()
	for rows.Next() {
		var (
			tally string
			class int
			n     int
		)
		if err := rows.Scan(&tally, &class, &n); err != nil {
			return err
		}
		switch tally {
		case "live":
			counts.Live[counter.VehicleClass(class)] = n
		case counter.ZoneIncoming:
			counts.Incoming[counter.VehicleClass(class)] = n
		case counter.ZoneOutgoing:
			counts.Outgoing[counter.VehicleClass(class)] = n
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	r.Counts = &counts
	return nil
}

//Run returns a single run with its final tallies
func (s *Store) Run(ctx context.Context, runID string) (*Run, error) {
	r, err := scanRun(s.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, s.loadCounts(ctx, r)
}

//LatestRun returns the most recently started run of given video
func (s *Store) LatestRun(ctx context.Context, videoName string) (*Run, error) {
	r, err := scanRun(s.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE video_name = ? ORDER BY started_at DESC, rowid DESC LIMIT 1`, videoName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, s.loadCounts(ctx, r)
}

//ListRuns returns every run, newest first
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}

	runs := make([]Run, 0)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		runs = append(runs, *r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	//counts are loaded after rows is closed, the pool holds a single connection
	for i := range runs {
		if err := s.loadCounts(ctx, &runs[i]); err != nil {
			return nil, err
		}
	}

	return runs, nil
}

//CrossingTally recounts the stored crossing events of a run per zone and class
func (s *Store) CrossingTally(ctx context.Context, runID string) (map[string]map[counter.VehicleClass]int, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT zone, class, COUNT(*) FROM crossings WHERE run_id = ? GROUP BY zone, class`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := map[string]map[counter.VehicleClass]int{
		counter.ZoneIncoming: make(map[counter.VehicleClass]int),
		counter.ZoneOutgoing: make(map[counter.VehicleClass]int),
	}
	for rows.Next() {
		var (
			zone  string
			class int
			n     int
		)
		if err := rows.Scan(&zone, &class, &n); err != nil {
			return nil, err
		}
		if _, ok := res[zone]; !ok {
			res[zone] = make(map[counter.VehicleClass]int)
		}
		res[zone][counter.VehicleClass(class)] = n
	}

	return res, rows.Err()
}
