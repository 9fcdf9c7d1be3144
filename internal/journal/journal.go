// Package journal persists per-run step outcomes and the pre-change
// network snapshot. Uses SQLite with WAL mode for durability.
//
// The journal exists for the operator re-run model: if a run dies while
// the network sequence is mid-flight, the snapshot survives the crash and
// the next invocation can restore the interface instead of leaving it
// addressless. Journal failures are never fatal — provisioning proceeds
// without durability rather than aborting.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/osiriscare/provision/internal/platform"
)

// Journal records step outcomes and the network snapshot for one host.
type Journal struct {
	db *sql.DB
	mu sync.Mutex
}

// StepRecord is one persisted step outcome.
type StepRecord struct {
	ID        int64
	Step      string
	OK        bool
	Detail    string
	CreatedAt time.Time
}

// Open creates or opens the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS steps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			step TEXT NOT NULL,
			ok INTEGER NOT NULL,
			detail TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create steps table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshot (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			payload BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create snapshot table: %w", err)
	}

	return &Journal{db: db}, nil
}

// Record appends a step outcome.
func (j *Journal) Record(step string, ok bool, detail string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	okInt := 0
	if ok {
		okInt = 1
	}
	_, err := j.db.Exec(
		"INSERT INTO steps (step, ok, detail) VALUES (?, ?, ?)",
		step, okInt, detail,
	)
	if err != nil {
		return fmt.Errorf("record step %s: %w", step, err)
	}
	return nil
}

// Steps returns recorded outcomes, oldest first, up to limit.
func (j *Journal) Steps(limit int) ([]StepRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(`
		SELECT id, step, ok, detail, created_at FROM steps
		ORDER BY id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []StepRecord
	for rows.Next() {
		var r StepRecord
		var okInt int
		if err := rows.Scan(&r.ID, &r.Step, &okInt, &r.Detail, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.OK = okInt == 1
		records = append(records, r)
	}
	return records, rows.Err()
}

// SaveSnapshot persists the pre-change address state, replacing any
// previous snapshot.
func (j *Journal) SaveSnapshot(state *platform.AddressState) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = j.db.Exec(`
		INSERT INTO snapshot (id, payload) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, created_at = CURRENT_TIMESTAMP
	`, payload)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the persisted snapshot, or (nil, nil) when none
// exists.
func (j *Journal) LoadSnapshot() (*platform.AddressState, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var payload []byte
	err := j.db.QueryRow("SELECT payload FROM snapshot WHERE id = 1").Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var state platform.AddressState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &state, nil
}

// ClearSnapshot removes the persisted snapshot once the address sequence
// has committed.
func (j *Journal) ClearSnapshot() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec("DELETE FROM snapshot WHERE id = 1")
	if err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
