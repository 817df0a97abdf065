package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/wishart/internal/timeutil"
	"github.com/banshee-data/wishart/internal/version"
	"github.com/banshee-data/wishart/internal/wishart"
)

// ErrRunNotFound is returned by GetRun for an unknown run id.
var ErrRunNotFound = errors.New("classification run not found")

// Run is one persisted classification.
type Run struct {
	RunID         string          `json:"run_id"`
	Classifier    string          `json:"classifier"`
	AppVersion    string          `json:"app_version"`
	SourcePath    string          `json:"source_path"`
	Width         int             `json:"width"`
	Height        int             `json:"height"`
	WindowSize    int             `json:"window_size"`
	ConfigJSON    json.RawMessage `json:"config_json,omitempty"`
	NumClasses    int             `json:"num_classes"`
	Passes        int             `json:"passes"`
	Converged     bool            `json:"converged"`
	FinalDrift    float64         `json:"final_drift"`
	TotalDistance float64         `json:"total_distance"`
	NoDataPixels  int             `json:"no_data_pixels"`
	DurationMs    int64           `json:"duration_ms"`
	CreatedAt     int64           `json:"created_at"` // unix nanoseconds

	Classes []RunClass `json:"classes,omitempty"`
}

// RunClass is one legend row of a run.
type RunClass struct {
	Index     int     `json:"class_index"`
	Label     string  `json:"label"`
	Category  string  `json:"category"`
	Zone      int     `json:"zone"`
	Size      int     `json:"cluster_size"`
	MeanPower float64 `json:"mean_power"`
}

// NewRunFromResult builds a Run from a classification result. The caller
// fills SourcePath, WindowSize, ConfigJSON and DurationMs.
func NewRunFromResult(res *wishart.Result) *Run {
	run := &Run{
		Classifier: res.Kind.String(),
		AppVersion: version.Version,
		Width:      res.Width,
		Height:     res.Height,
		NumClasses: res.NumClasses(),
		Passes:     len(res.Passes),
		Converged:  res.Converged,
	}
	if n := len(res.Passes); n > 0 {
		run.FinalDrift = res.Passes[n-1].Drift
		run.TotalDistance = res.Passes[n-1].TotalDistance
	}
	if res.Assignment != nil {
		run.NoDataPixels = res.Assignment.NoData()
	}
	for _, e := range res.Legend {
		run.Classes = append(run.Classes, RunClass{
			Index:     int(e.Index),
			Label:     e.Label,
			Category:  e.Category.String(),
			Zone:      e.Zone,
			Size:      e.Size,
			MeanPower: e.MeanPower,
		})
	}
	return run
}

// RunStore persists classification runs and their legends.
type RunStore struct {
	db    *DB
	clock timeutil.Clock
}

// NewRunStore creates a RunStore using the real clock.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db, clock: timeutil.RealClock{}}
}

// NewRunStoreWithClock creates a RunStore with an injected clock for tests.
func NewRunStoreWithClock(db *DB, clock timeutil.Clock) *RunStore {
	return &RunStore{db: db, clock: clock}
}

// InsertRun stores run and its classes in one transaction. If RunID is empty
// a UUID is generated; if CreatedAt is zero the store clock is used.
func (s *RunStore) InsertRun(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAt == 0 {
		run.CreatedAt = s.clock.Now().UnixNano()
	}
	var configStr interface{}
	if len(run.ConfigJSON) > 0 {
		configStr = string(run.ConfigJSON)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin run insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO classification_runs (
			run_id, classifier, app_version, source_path, width, height, window_size,
			config_json, num_classes, passes, converged, final_drift,
			total_distance, no_data_pixels, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Classifier, run.AppVersion, run.SourcePath, run.Width, run.Height, run.WindowSize,
		configStr, run.NumClasses, run.Passes, run.Converged, run.FinalDrift,
		run.TotalDistance, run.NoDataPixels, run.DurationMs, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO classification_classes (
			run_id, class_index, label, category, zone, cluster_size, mean_power
		) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare class insert: %w", err)
	}
	defer stmt.Close()
	for _, c := range run.Classes {
		if _, err := stmt.Exec(run.RunID, c.Index, c.Label, c.Category, c.Zone, c.Size, c.MeanPower); err != nil {
			return fmt.Errorf("insert class %d of run %s: %w", c.Index, run.RunID, err)
		}
	}
	return tx.Commit()
}

const runColumns = `run_id, classifier, app_version, source_path, width, height, window_size,
	config_json, num_classes, passes, converged, final_drift,
	total_distance, no_data_pixels, duration_ms, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var configStr sql.NullString
	var drift, total sql.NullFloat64
	if err := row.Scan(
		&r.RunID, &r.Classifier, &r.AppVersion, &r.SourcePath, &r.Width, &r.Height, &r.WindowSize,
		&configStr, &r.NumClasses, &r.Passes, &r.Converged, &drift,
		&total, &r.NoDataPixels, &r.DurationMs, &r.CreatedAt,
	); err != nil {
		return nil, err
	}
	if configStr.Valid {
		r.ConfigJSON = json.RawMessage(configStr.String)
	}
	r.FinalDrift = drift.Float64
	r.TotalDistance = total.Float64
	return &r, nil
}

// GetRun returns a run with its classes.
func (s *RunStore) GetRun(runID string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM classification_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	classes, err := s.ListClasses(runID)
	if err != nil {
		return nil, err
	}
	r.Classes = classes
	return r, nil
}

// ListClasses returns the legend of a run ordered by class index.
func (s *RunStore) ListClasses(runID string) ([]RunClass, error) {
	rows, err := s.db.Query(`
		SELECT class_index, label, category, zone, cluster_size, mean_power
		FROM classification_classes
		WHERE run_id = ?
		ORDER BY class_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("query classes: %w", err)
	}
	defer rows.Close()

	var classes []RunClass
	for rows.Next() {
		var c RunClass
		if err := rows.Scan(&c.Index, &c.Label, &c.Category, &c.Zone, &c.Size, &c.MeanPower); err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// ListRuns returns up to limit runs, newest first, without their classes.
// A limit of zero or less returns every run.
func (s *RunStore) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM classification_runs
		ORDER BY created_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run; its classes go with it.
func (s *RunStore) DeleteRun(runID string) error {
	result, err := s.db.Exec(`DELETE FROM classification_runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}
