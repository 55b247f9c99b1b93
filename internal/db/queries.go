package db

import (
	"database/sql"
	stderrors "errors"
	"os"
	"time"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/errors"
)

// SlotRow is one persisted slot value.
type SlotRow struct {
	Name      string
	ValueJSON []byte
	UpdatedAt int64
}

// GetSlot returns the stored value for name. found is false when the slot was never written.
func GetSlot(db *sql.DB, name string) (data []byte, found bool, err error) {
	var value string
	err = db.QueryRow(`SELECT value_json FROM slots WHERE name = ?`, name).Scan(&value)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.NewInternal(err)
	}
	return []byte(value), true, nil
}

// PutSlot writes (or replaces) the value for name.
func PutSlot(db *sql.DB, name string, data []byte, updatedAt int64) error {
	query := `
		INSERT INTO slots (name, value_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value_json = excluded.value_json, updated_at = excluded.updated_at
	`
	if _, err := db.Exec(query, name, string(data), updatedAt); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// PutSlots writes several slots in one transaction. Either all are written or none.
func PutSlots(db *sql.DB, values map[string][]byte, updatedAt int64) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(`
		INSERT INTO slots (name, value_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET value_json = excluded.value_json, updated_at = excluded.updated_at
	`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	for name, data := range values {
		if _, err := stmt.Exec(name, string(data), updatedAt); err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListSlots returns every stored slot ordered by name.
func ListSlots(db *sql.DB) ([]SlotRow, error) {
	rows, err := db.Query(`SELECT name, value_json, updated_at FROM slots ORDER BY name`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []SlotRow
	for rows.Next() {
		var (
			r     SlotRow
			value string
		)
		if err := rows.Scan(&r.Name, &value, &r.UpdatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		r.ValueJSON = []byte(value)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// SlotStore persists workspace slots in the slots table. Writes are refused
// while another process holds a live server lease.
type SlotStore struct {
	DB  *sql.DB
	Now func() time.Time
	PID int
}

// NewSlotStore returns a SlotStore for the current process stamping rows with
// the wall clock.
func NewSlotStore(db *sql.DB) *SlotStore {
	return &SlotStore{DB: db, Now: time.Now, PID: os.Getpid()}
}

// Load returns the stored value for name.
func (s *SlotStore) Load(name string) ([]byte, bool, error) {
	return GetSlot(s.DB, name)
}

// Save replaces the stored value for name.
func (s *SlotStore) Save(name string, data []byte) error {
	if err := s.checkLease(); err != nil {
		return err
	}
	return PutSlot(s.DB, name, data, s.Now().Unix())
}

// SaveAll replaces several slots atomically.
func (s *SlotStore) SaveAll(values map[string][]byte) error {
	if err := s.checkLease(); err != nil {
		return err
	}
	return PutSlots(s.DB, values, s.Now().Unix())
}

func (s *SlotStore) checkLease() error {
	lease, ok, err := ActiveServerLease(s.DB, s.Now())
	if err != nil {
		return err
	}
	if ok && lease.PID != s.PID {
		return errors.NewServerRunning(lease.Addr, lease.PID)
	}
	return nil
}

// LeaseTTL is how long a server lease stays live without a heartbeat.
const LeaseTTL = 30 * time.Second

// ServerLease marks the process serving the data directory. That process keeps
// its workspace in memory, so writes from any other process would be lost.
type ServerLease struct {
	PID         int    `json:"pid"`
	Addr        string `json:"addr"`
	HeartbeatAt int64  `json:"heartbeat_at"`
}

// RenewServerLease takes or refreshes the lease for l.PID. It fails with
// SERVER_RUNNING when a different process holds a live lease.
func RenewServerLease(db *sql.DB, l ServerLease, now time.Time) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	var cur ServerLease
	err = tx.QueryRow(`SELECT pid, addr, heartbeat_at FROM server_lease WHERE id = 1`).
		Scan(&cur.PID, &cur.Addr, &cur.HeartbeatAt)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
	case err != nil:
		return errors.NewInternal(err)
	case cur.PID != l.PID && leaseLive(cur, now):
		return errors.NewServerRunning(cur.Addr, cur.PID)
	}

	l.HeartbeatAt = now.Unix()
	if _, err := tx.Exec(`
		INSERT INTO server_lease (id, pid, addr, heartbeat_at) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET pid = excluded.pid, addr = excluded.addr, heartbeat_at = excluded.heartbeat_at
	`, l.PID, l.Addr, l.HeartbeatAt); err != nil {
		return errors.NewInternal(err)
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ReleaseServerLease drops the lease if pid holds it.
func ReleaseServerLease(db *sql.DB, pid int) error {
	if _, err := db.Exec(`DELETE FROM server_lease WHERE id = 1 AND pid = ?`, pid); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ActiveServerLease returns the lease when one is live at now.
func ActiveServerLease(db *sql.DB, now time.Time) (ServerLease, bool, error) {
	var l ServerLease
	err := db.QueryRow(`SELECT pid, addr, heartbeat_at FROM server_lease WHERE id = 1`).
		Scan(&l.PID, &l.Addr, &l.HeartbeatAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return ServerLease{}, false, nil
	}
	if err != nil {
		return ServerLease{}, false, errors.NewInternal(err)
	}
	return l, leaseLive(l, now), nil
}

func leaseLive(l ServerLease, now time.Time) bool {
	return now.Sub(time.Unix(l.HeartbeatAt, 0)) < LeaseTTL
}

// AutomationRun records one execution of a scheduled job.
type AutomationRun struct {
	ID         string `json:"id"`
	Job        string `json:"job"`
	StartedAt  int64  `json:"started_at"`
	FinishedAt int64  `json:"finished_at"`
	Affected   int    `json:"affected"`
	Error      string `json:"error,omitempty"`
}

// InsertAutomationRun stores a finished run.
func InsertAutomationRun(db *sql.DB, r *AutomationRun) error {
	query := `
		INSERT INTO automation_runs (id, job, started_at, finished_at, affected, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	var errText sql.NullString
	if r.Error != "" {
		errText = sql.NullString{String: r.Error, Valid: true}
	}
	if _, err := db.Exec(query, r.ID, r.Job, r.StartedAt, r.FinishedAt, r.Affected, errText); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListAutomationRuns returns the most recent runs of job, newest first.
// An empty job lists every job.
func ListAutomationRuns(db *sql.DB, job string, limit int) ([]AutomationRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, job, started_at, finished_at, affected, error
		FROM automation_runs
		WHERE (? = '' OR job = ?)
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`
	rows, err := db.Query(query, job, job, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	runs := make([]AutomationRun, 0)
	for rows.Next() {
		var (
			r       AutomationRun
			errText sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Job, &r.StartedAt, &r.FinishedAt, &r.Affected, &errText); err != nil {
			return nil, errors.NewInternal(err)
		}
		if errText.Valid {
			r.Error = errText.String
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return runs, nil
}
