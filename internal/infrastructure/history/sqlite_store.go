// Package history persists healing runs and their executed actions.
package history

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mendtool/mend/internal/domain"
	"github.com/mendtool/mend/internal/pkg/filesystem"
	"github.com/mendtool/mend/internal/ports"
)

// SQLiteStore persists run history in a SQLite database. When the database
// cannot be opened it degrades to the jsonl file store.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// NewSQLiteStore creates (or opens) the ~/.mend/history/history.db database.
func NewSQLiteStore() *SQLiteStore {
	path := filepath.Join(filesystem.UserHome(), ".mend", "history", "history.db")
	_ = os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return &SQLiteStore{path: path}
	}
	store := &SQLiteStore{db: db, path: path}
	if err := store.init(); err != nil {
		return &SQLiteStore{path: path}
	}
	return store
}

func (s *SQLiteStore) init() error {
	if s.db == nil {
		return os.ErrInvalid
	}
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		timestamp TEXT,
		project TEXT,
		language TEXT,
		test_command TEXT,
		success INTEGER,
		attempts INTEGER,
		hard_blocker TEXT,
		last_error TEXT,
		issue_count INTEGER,
		action_count INTEGER,
		duration_ms INTEGER
	)`); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS actions (
		id TEXT PRIMARY KEY,
		run_id TEXT,
		timestamp TEXT,
		project TEXT,
		path TEXT,
		command TEXT,
		description TEXT,
		success INTEGER
	)`)
	return err
}

func (s *SQLiteStore) fallback() *FileStore {
	return &FileStore{path: strings.TrimSuffix(s.path, ".db") + ".jsonl"}
}

// SaveRun inserts one completed healing run.
func (s *SQLiteStore) SaveRun(record domain.RunRecord) error {
	if s.db == nil {
		return s.fallback().SaveRun(record)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT OR REPLACE INTO runs
		(run_id, timestamp, project, language, test_command, success, attempts, hard_blocker, last_error, issue_count, action_count, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RunID,
		record.Timestamp.Format(time.RFC3339),
		record.Project,
		record.Language,
		record.TestCommand,
		boolToInt(record.Success),
		record.Attempts,
		record.HardBlocker,
		record.LastError,
		record.IssueCount,
		record.ActionCount,
		record.DurationMS,
	)
	return err
}

// SaveAction inserts one executed auto-fix action keyed to its run.
func (s *SQLiteStore) SaveAction(runID string, action domain.AutoFixAction) error {
	if s.db == nil {
		return s.fallback().SaveAction(runID, action)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT OR REPLACE INTO actions
		(id, run_id, timestamp, project, path, command, description, success)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		action.ID,
		runID,
		action.Timestamp.Format(time.RFC3339),
		action.Project,
		action.Path,
		action.Command,
		action.Description,
		boolToInt(action.Success),
	)
	return err
}

// Runs returns history entries, newest first (limit/search optional).
func (s *SQLiteStore) Runs(limit int, search string) ([]domain.RunRecord, error) {
	if s.db == nil {
		return s.fallback().Runs(limit, search)
	}
	builder := strings.Builder{}
	builder.WriteString("SELECT run_id, timestamp, project, language, test_command, success, attempts, hard_blocker, last_error, issue_count, action_count, duration_ms FROM runs")
	var args []interface{}
	if search != "" {
		builder.WriteString(" WHERE project LIKE ? OR test_command LIKE ? OR hard_blocker LIKE ?")
		args = append(args, "%"+search+"%", "%"+search+"%", "%"+search+"%")
	}
	builder.WriteString(" ORDER BY datetime(timestamp) DESC")
	if limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, limit)
	}
	rows, err := s.db.Query(builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []domain.RunRecord
	for rows.Next() {
		var rec domain.RunRecord
		var ts string
		var success int
		if err := rows.Scan(&rec.RunID, &ts, &rec.Project, &rec.Language, &rec.TestCommand, &success, &rec.Attempts, &rec.HardBlocker, &rec.LastError, &rec.IssueCount, &rec.ActionCount, &rec.DurationMS); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			rec.Timestamp = t
		}
		rec.Success = success == 1
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Clear deletes all runs and actions.
func (s *SQLiteStore) Clear() error {
	if s.db == nil {
		return s.fallback().Clear()
	}
	if _, err := s.db.Exec("DELETE FROM actions"); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM runs")
	return err
}

// ExportJSON writes the run table to a jsonl file.
func (s *SQLiteStore) ExportJSON(dest string) error {
	records, err := s.Runs(0, "")
	if err != nil {
		return err
	}
	file, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer file.Close()
	for _, rec := range records {
		b, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if _, err := file.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// PruneOlderThan removes runs (and their actions) older than the cutoff.
func (s *SQLiteStore) PruneOlderThan(days int) error {
	if s.db == nil {
		return s.fallback().PruneOlderThan(days)
	}
	if days <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -days).Format(time.RFC3339)
	if _, err := s.db.Exec(`DELETE FROM actions WHERE run_id IN (SELECT run_id FROM runs WHERE datetime(timestamp) < datetime(?))`, cutoff); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM runs WHERE datetime(timestamp) < datetime(?)`, cutoff)
	return err
}

// Path returns the sqlite database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ ports.RunRepository = (*SQLiteStore)(nil)
