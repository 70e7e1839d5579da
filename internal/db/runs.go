package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// Timing statuses.
const (
	StatusOK         = "ok"
	StatusFailed     = "failed"
	StatusTimedOut   = "timed_out"
	StatusParseError = "parse_error"
)

// RunCounts summarises the outcome of a run.
type RunCounts struct {
	Volumes   int
	Succeeded int
	Failed    int
	Skipped   int
}

// RunInfo describes one benchmark pass over a mode directory.
type RunInfo struct {
	ID         string
	Mode       string
	Task       string
	Timer      string
	Replicates int
	Workers    int
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Counts     RunCounts
}

// TimingRow is one observation in the ledger. LogSeconds is only stored
// when HasLog is set.
type TimingRow struct {
	RunID      string
	Name       string
	Scaling    float64
	Replicate  int
	Status     string
	Seconds    float64
	LogSeconds float64
	HasLog     bool
	Error      string
	Output     string
}

// StartRun inserts a run and returns its id. A new UUID is assigned when
// info.ID is empty.
func (db *DB) StartRun(info RunInfo) (string, error) {
	if info.ID == "" {
		info.ID = uuid.NewString()
	}
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now()
	}
	_, err := db.Exec(`
		INSERT INTO runs (run_id, mode, task, timer, replicates, workers, started_unix_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		info.ID, info.Mode, info.Task, info.Timer, info.Replicates, info.Workers, info.StartedAt.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return info.ID, nil
}

// FinishRun stamps the end time and outcome counts of a run.
func (db *DB) FinishRun(id string, finished time.Time, counts RunCounts) error {
	res, err := db.Exec(`
		UPDATE runs SET finished_unix_ns = ?, volumes = ?, succeeded = ?, failed = ?, skipped = ?
		WHERE run_id = ?`,
		finished.UnixNano(), counts.Volumes, counts.Succeeded, counts.Failed, counts.Skipped, id,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// Run returns a single run.
func (db *DB) Run(id string) (RunInfo, error) {
	row := db.QueryRow(runSelect+` WHERE run_id = ?`, id)
	info, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return info, err
}

// Runs lists runs, most recent first. limit <= 0 returns all.
func (db *DB) Runs(limit int) ([]RunInfo, error) {
	q := runSelect + ` ORDER BY started_unix_ns DESC`
	args := []interface{}{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		info, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

const runSelect = `
	SELECT run_id, mode, task, timer, replicates, workers, started_unix_ns, finished_unix_ns,
	       volumes, succeeded, failed, skipped
	FROM runs`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (RunInfo, error) {
	var info RunInfo
	var started int64
	var finished sql.NullInt64
	err := s.Scan(&info.ID, &info.Mode, &info.Task, &info.Timer, &info.Replicates, &info.Workers,
		&started, &finished,
		&info.Counts.Volumes, &info.Counts.Succeeded, &info.Counts.Failed, &info.Counts.Skipped)
	if err != nil {
		return RunInfo{}, err
	}
	info.StartedAt = time.Unix(0, started)
	if finished.Valid {
		info.FinishedAt = time.Unix(0, finished.Int64)
	}
	return info, nil
}

// RecordTiming appends an observation to the ledger.
func (db *DB) RecordTiming(t TimingRow) error {
	var logSeconds sql.NullFloat64
	if t.HasLog {
		logSeconds = sql.NullFloat64{Float64: t.LogSeconds, Valid: true}
	}
	var runtime sql.NullFloat64
	if t.Status == StatusOK {
		runtime = sql.NullFloat64{Float64: t.Seconds, Valid: true}
	}
	_, err := db.Exec(`
		INSERT INTO timings (run_id, name, scaling, replicate, status, runtime_seconds, log_seconds, error, output)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.RunID, t.Name, t.Scaling, t.Replicate, t.Status, runtime, logSeconds,
		nullString(t.Error), nullString(t.Output),
	)
	if err != nil {
		return fmt.Errorf("record timing %s r%d: %w", t.Name, t.Replicate, err)
	}
	return nil
}

// Timings returns the observations of a run in insertion order.
func (db *DB) Timings(runID string) ([]TimingRow, error) {
	rows, err := db.Query(`
		SELECT name, scaling, replicate, status, runtime_seconds, log_seconds, error, output
		FROM timings WHERE run_id = ? ORDER BY timing_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query timings: %w", err)
	}
	defer rows.Close()

	var out []TimingRow
	for rows.Next() {
		t := TimingRow{RunID: runID}
		var runtime, logSeconds sql.NullFloat64
		var errText, output sql.NullString
		if err := rows.Scan(&t.Name, &t.Scaling, &t.Replicate, &t.Status, &runtime, &logSeconds, &errText, &output); err != nil {
			return nil, err
		}
		t.Seconds = runtime.Float64
		t.LogSeconds, t.HasLog = logSeconds.Float64, logSeconds.Valid
		t.Error, t.Output = errText.String, output.String
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
