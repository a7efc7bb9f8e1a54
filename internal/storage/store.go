// Package storage persists simulation runs: recorded signals as CSV,
// run metadata as JSON, and a SQLite index for listing and lookup.
package storage

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/san-kum/flowsim/internal/fixture"
)

// Store writes each run into its own directory under baseDir and keeps a
// queryable index in baseDir/runs.db.
type Store struct {
	baseDir string
	db      *sql.DB
}

// RunMetadata describes one stored run.
type RunMetadata struct {
	ID       string             `json:"id"`
	Diagram  string             `json:"diagram"`
	Scheme   string             `json:"scheme"`
	Dt       float64            `json:"dt"`
	Duration float64            `json:"duration"`
	Points   int                `json:"points"`
	Created  time.Time          `json:"created"`
	Labels   []string           `json:"labels"`
	Params   map[string]float64 `json:"params,omitempty"`
}

// Open creates the base directory if needed and opens the run index.
func Open(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", filepath.Join(baseDir, "runs.db"))
	if err != nil {
		return nil, fmt.Errorf("storage: open index: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		diagram TEXT NOT NULL,
		scheme TEXT NOT NULL,
		dt REAL NOT NULL,
		duration REAL NOT NULL,
		points INTEGER NOT NULL,
		created DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_diagram ON runs(diagram);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migrate index: %w", err)
	}

	return &Store{baseDir: baseDir, db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes one run and indexes it, returning the run ID. Labels fixes
// the signal column order; every label must exist in signals with a series
// parallel to times.
func (s *Store) Save(meta RunMetadata, labels []string, times []float64, signals map[string][]float64) (string, error) {
	for _, label := range labels {
		series, ok := signals[label]
		if !ok {
			return "", fmt.Errorf("storage: no series for label %q", label)
		}
		if len(series) != len(times) {
			return "", fmt.Errorf("storage: series %q has %d points, time has %d", label, len(series), len(times))
		}
	}

	meta.ID = fmt.Sprintf("%s_%s", meta.Diagram, uuid.NewString()[:8])
	meta.Created = time.Now().UTC()
	meta.Points = len(times)
	meta.Labels = append([]string(nil), labels...)

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeMetadata(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeSignals(filepath.Join(runDir, "signals.csv"), labels, times, signals); err != nil {
		return "", err
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (id, diagram, scheme, dt, duration, points, created) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Diagram, meta.Scheme, meta.Dt, meta.Duration, meta.Points, meta.Created,
	)
	if err != nil {
		return "", fmt.Errorf("storage: index run: %w", err)
	}
	return meta.ID, nil
}

func writeMetadata(path string, meta RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func writeSignals(path string, labels []string, times []float64, signals map[string][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := append([]string{"time"}, labels...)
	if err := w.Write(header); err != nil {
		return err
	}

	for i := range times {
		row := make([]string, 0, len(header))
		row = append(row, strconv.FormatFloat(times[i], 'g', -1, 64))
		for _, label := range labels {
			row = append(row, strconv.FormatFloat(signals[label][i], 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

// List returns the indexed runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	rows, err := s.db.Query(
		`SELECT id, diagram, scheme, dt, duration, points, created FROM runs ORDER BY created DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunMetadata
	for rows.Next() {
		var m RunMetadata
		if err := rows.Scan(&m.ID, &m.Diagram, &m.Scheme, &m.Dt, &m.Duration, &m.Points, &m.Created); err != nil {
			return nil, err
		}
		runs = append(runs, m)
	}
	return runs, rows.Err()
}

// Load reads a stored run back.
func (s *Store) Load(runID string) (*RunMetadata, []float64, map[string][]float64, error) {
	runDir := filepath.Join(s.baseDir, runID)

	data, err := os.ReadFile(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("storage: run %s: %w", runID, err)
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, nil, nil, err
	}

	f, err := os.Open(filepath.Join(runDir, "signals.csv"))
	if err != nil {
		return nil, nil, nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, nil, err
	}
	if len(records) < 1 {
		return nil, nil, nil, fmt.Errorf("storage: run %s: empty signals file", runID)
	}

	header := records[0]
	times := make([]float64, 0, len(records)-1)
	signals := make(map[string][]float64, len(header)-1)
	for _, label := range header[1:] {
		signals[label] = make([]float64, 0, len(records)-1)
	}

	for _, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, nil, nil, fmt.Errorf("storage: run %s: ragged csv row", runID)
		}
		t, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, nil, nil, err
		}
		times = append(times, t)
		for col, label := range header[1:] {
			v, err := strconv.ParseFloat(rec[col+1], 64)
			if err != nil {
				return nil, nil, nil, err
			}
			signals[label] = append(signals[label], v)
		}
	}
	return &meta, times, signals, nil
}

// ExportFixture writes a stored run in the regression-fixture format, so a
// recorded trajectory can serve as a reference for later runs.
func (s *Store) ExportFixture(runID, path string) error {
	meta, times, signals, err := s.Load(runID)
	if err != nil {
		return err
	}

	params := map[string]float64{"dt": meta.Dt, "duration": meta.Duration}
	for k, v := range meta.Params {
		params[k] = v
	}

	return fixture.Save(path, &fixture.Fixture{
		Test:       meta.Diagram,
		Parameters: params,
		Results: fixture.Results{
			Time:      times,
			Signals:   signals,
			NumPoints: len(times),
		},
	})
}
