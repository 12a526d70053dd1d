package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/nic-ch/naive-supervised/internal/domain/training"
)

// Journal records training runs and their aggregate-rank improvements in
// SQLite. It is bookkeeping for humans: it never stores optimizer state
// beyond what the progress log already shows.
type Journal struct {
	mu     sync.Mutex
	db     *sql.DB
	runID  string
	closed bool
}

// RunSummary is one recorded training run.
type RunSummary struct {
	ID             string
	StartedAt      time.Time
	MaxCycles      int64
	Threads        int
	Groups         string
	State          string
	Cycles         int64
	FinalAggregate int
	WeightsFile    string
	Improvements   int
}

// OpenJournal opens (or creates) the journal database at path. The
// ":memory:" path is honoured for tests.
func OpenJournal(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal '%s': %w", path, err)
	}
	// One connection only: the journal is sequential, and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)

	j := &Journal{db: db}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			max_cycles INTEGER NOT NULL,
			threads INTEGER NOT NULL,
			groups TEXT NOT NULL,
			state TEXT NOT NULL DEFAULT 'running',
			cycles INTEGER NOT NULL DEFAULT 0,
			final_aggregate INTEGER NOT NULL DEFAULT 0,
			weights_file TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS improvements (
			run_id TEXT NOT NULL,
			cycle INTEGER NOT NULL,
			aggregate INTEGER NOT NULL,
			at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_improvements_run ON improvements(run_id, cycle);
	`

	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("initializing journal schema: %w", err)
	}
	return nil
}

// BeginRun opens a new run record and returns its ID.
func (j *Journal) BeginRun(maxCycles int64, threads int, groups []string) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return "", fmt.Errorf("journal is closed")
	}

	id := uuid.New().String()
	_, err := j.db.Exec(
		`INSERT INTO runs (id, started_at, max_cycles, threads, groups) VALUES (?, ?, ?, ?, ?)`,
		id, time.Now().Unix(), maxCycles, threads, strings.Join(groups, ", "))
	if err != nil {
		return "", fmt.Errorf("recording run start: %w", err)
	}

	j.runID = id
	return id, nil
}

// RecordImprovement logs one strictly-lower aggregate rank.
func (j *Journal) RecordImprovement(cycle int64, aggregate int) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed || j.runID == "" {
		return fmt.Errorf("no open run")
	}

	_, err := j.db.Exec(
		`INSERT INTO improvements (run_id, cycle, aggregate, at) VALUES (?, ?, ?, ?)`,
		j.runID, cycle, aggregate, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("recording improvement: %w", err)
	}
	return nil
}

// RecordFinal closes out the current run record.
func (j *Journal) RecordFinal(state training.State, cycles int64, aggregate int, weightsFile string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed || j.runID == "" {
		return fmt.Errorf("no open run")
	}

	_, err := j.db.Exec(
		`UPDATE runs SET state = ?, cycles = ?, final_aggregate = ?, weights_file = ? WHERE id = ?`,
		string(state), cycles, aggregate, weightsFile, j.runID)
	if err != nil {
		return fmt.Errorf("recording run end: %w", err)
	}
	return nil
}

// Runs returns every recorded run, most recent first.
func (j *Journal) Runs() ([]RunSummary, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil, fmt.Errorf("journal is closed")
	}

	rows, err := j.db.Query(`
		SELECT r.id, r.started_at, r.max_cycles, r.threads, r.groups,
		       r.state, r.cycles, r.final_aggregate, r.weights_file,
		       (SELECT COUNT(*) FROM improvements i WHERE i.run_id = r.id)
		FROM runs r
		ORDER BY r.started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var run RunSummary
		var started int64
		if err := rows.Scan(&run.ID, &started, &run.MaxCycles, &run.Threads, &run.Groups,
			&run.State, &run.Cycles, &run.FinalAggregate, &run.WeightsFile, &run.Improvements); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.StartedAt = time.Unix(started, 0)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close closes the database. Idempotent.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}
