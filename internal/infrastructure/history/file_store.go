package history

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mendtool/mend/internal/domain"
	"github.com/mendtool/mend/internal/pkg/filesystem"
	"github.com/mendtool/mend/internal/ports"
)

// FileStore appends run records to a jsonl file. Actions are stored in a
// sibling file keyed by run id.
type FileStore struct {
	path string
	mu   sync.Mutex
}

type actionLine struct {
	RunID  string               `json:"run_id"`
	Action domain.AutoFixAction `json:"action"`
}

// NewFileStore creates a run store under ~/.mend/history/history.jsonl.
func NewFileStore() *FileStore {
	return &FileStore{
		path: filepath.Join(filesystem.UserHome(), ".mend", "history", "history.jsonl"),
	}
}

// NewFileStoreAt creates a run store backed by an explicit path.
func NewFileStoreAt(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) actionsPath() string {
	return strings.TrimSuffix(f.path, ".jsonl") + ".actions.jsonl"
}

// SaveRun implements ports.RunRepository.
func (f *FileStore) SaveRun(record domain.RunRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return appendLine(f.path, record)
}

// SaveAction implements ports.RunRepository.
func (f *FileStore) SaveAction(runID string, action domain.AutoFixAction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return appendLine(f.actionsPath(), actionLine{RunID: runID, Action: action})
}

// Runs loads records newest first, filtered and truncated (best-effort).
func (f *FileStore) Runs(limit int, search string) ([]domain.RunRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var records []domain.RunRecord
	for _, line := range bytes.Split(bytes.TrimSpace(data), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var rec domain.RunRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if search != "" && !matchesSearch(rec, search) {
			continue
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Clear removes the backing files.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, path := range []string{f.path, f.actionsPath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// ExportJSON copies the run records to a jsonl file at dest.
func (f *FileStore) ExportJSON(dest string) error {
	records, err := f.Runs(0, "")
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

// PruneOlderThan rewrites the run file keeping only records within the
// retention window.
func (f *FileStore) PruneOlderThan(days int) error {
	if days <= 0 {
		return nil
	}
	records, err := f.Runs(0, "")
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -days)
	var buf bytes.Buffer
	for _, rec := range records {
		if rec.Timestamp.Before(cutoff) {
			continue
		}
		b, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		buf.Write(b)
		buf.WriteByte('\n')
	}
	if err := os.MkdirAll(filepath.Dir(f.path), domain.DirectoryPermissions); err != nil {
		return err
	}
	return os.WriteFile(f.path, buf.Bytes(), 0o644)
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

func matchesSearch(rec domain.RunRecord, search string) bool {
	needle := strings.ToLower(search)
	for _, hay := range []string{rec.Project, rec.TestCommand, rec.HardBlocker, rec.LastError} {
		if strings.Contains(strings.ToLower(hay), needle) {
			return true
		}
	}
	return false
}

func appendLine(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = file.Write(data)
	return err
}

var _ ports.RunRepository = (*FileStore)(nil)
