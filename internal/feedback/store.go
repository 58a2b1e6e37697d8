package feedback

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store-level errors.
var (
	ErrReportNotFound = errors.New("feedback report not found")
	ErrIndexCorrupted = errors.New("feedback index corrupted")
	ErrSidecarCorrupt = errors.New("feedback summary sidecar corrupt")
	ErrPersistence    = errors.New("feedback report could not be written")
)

// Report is the persisted summary of one incident. Reports are
// write-once: never edited after creation, only deleted by retention
// cleanup or an explicit delete.
type Report struct {
	ReportID    string    `json:"report_id"`
	CreatedAt   time.Time `json:"created_at"`
	Tool        string    `json:"tool"`
	Dimension   string    `json:"dimension"`
	FilePath    string    `json:"file_path"`
	SummaryPath string    `json:"summary_path"`
}

// IndexEntry is one line of the reports index.
type IndexEntry struct {
	ReportID  string    `json:"report_id"`
	Timestamp time.Time `json:"timestamp"`
	Tool      string    `json:"tool"`
	FilePath  string    `json:"file_path"`
}

// ListFilter narrows List output. Zero values match everything.
type ListFilter struct {
	Tool  string
	Since time.Time
}

// Store persists incident reports under a fixed directory: one
// rendered document and one JSON summary sidecar per report, plus an
// index file. A single orchestrator process is the assumed sole
// writer; concurrent processes targeting the same directory may race
// on the index.
type Store struct {
	mu        sync.RWMutex
	dir       string
	indexPath string
	retention time.Duration
	entries   []IndexEntry
	log       *zap.Logger
}

// NewStore opens (creating if needed) the report store at dir.
func NewStore(dir string, retentionDays int, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", ErrPersistence, dir, err)
	}

	s := &Store{
		dir:       dir,
		indexPath: filepath.Join(dir, "index.json"),
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		log:       log,
	}

	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewReportID generates a report identifier.
func NewReportID() string {
	return uuid.New().String()
}

// Save persists a rendered incident document under the given report id
// with its summary sidecar, and appends an index entry. The report is
// immutable once written.
func (s *Store) Save(id, doc, tool, dimension string) (*Report, error) {
	if id == "" {
		id = NewReportID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	report := &Report{
		ReportID:    id,
		CreatedAt:   now,
		Tool:        tool,
		Dimension:   dimension,
		FilePath:    filepath.Join(s.dir, id+".md"),
		SummaryPath: filepath.Join(s.dir, id+".json"),
	}

	if err := os.WriteFile(report.FilePath, []byte(doc), 0600); err != nil {
		return nil, fmt.Errorf("%w: document: %v", ErrPersistence, err)
	}

	sidecar, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: encoding sidecar: %v", ErrPersistence, err)
	}
	if err := os.WriteFile(report.SummaryPath, sidecar, 0600); err != nil {
		return nil, fmt.Errorf("%w: sidecar: %v", ErrPersistence, err)
	}

	s.entries = append(s.entries, IndexEntry{
		ReportID:  id,
		Timestamp: now,
		Tool:      tool,
		FilePath:  report.FilePath,
	})
	if err := s.saveIndex(); err != nil {
		return nil, err
	}

	if s.log != nil {
		s.log.Info("feedback report persisted",
			zap.String("report_id", id), zap.String("tool", tool))
	}
	return report, nil
}

// List returns index entries matching the filter, newest first.
func (s *Store) List(filter ListFilter) []IndexEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []IndexEntry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if filter.Tool != "" && e.Tool != filter.Tool {
			continue
		}
		if !filter.Since.IsZero() && e.Timestamp.Before(filter.Since) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Get loads a report's summary sidecar and rendered document. An
// absent sidecar is ErrReportNotFound; an unreadable one is
// ErrSidecarCorrupt — the two are distinct conditions.
func (s *Store) Get(id string) (*Report, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaryPath := filepath.Join(s.dir, id+".json")
	data, err := os.ReadFile(summaryPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%w: %s", ErrReportNotFound, id)
		}
		return nil, "", fmt.Errorf("reading sidecar %s: %w", summaryPath, err)
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrSidecarCorrupt, id, err)
	}

	doc, err := os.ReadFile(report.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			// Sidecar without document: report the inconsistency rather
			// than silently returning an empty body.
			return &report, "", fmt.Errorf("%w: document missing for %s", ErrSidecarCorrupt, id)
		}
		return nil, "", fmt.Errorf("reading document %s: %w", report.FilePath, err)
	}

	return &report, string(doc), nil
}

// Delete removes a report's files and prunes its index entry.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(id)
}

func (s *Store) deleteLocked(id string) error {
	found := false
	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.ReportID == id {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	s.entries = kept

	for _, path := range []string{
		filepath.Join(s.dir, id+".md"),
		filepath.Join(s.dir, id+".json"),
	} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}

	return s.saveIndex()
}

// CleanupOld deletes every report whose own creation timestamp is
// older than the retention window relative to now, and only those.
// Returns the number deleted.
func (s *Store) CleanupOld() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-s.retention)

	var stale []string
	for _, e := range s.entries {
		if e.Timestamp.Before(cutoff) {
			stale = append(stale, e.ReportID)
		}
	}

	for _, id := range stale {
		if err := s.deleteLocked(id); err != nil {
			return 0, fmt.Errorf("cleanup of %s: %w", id, err)
		}
	}

	if s.log != nil && len(stale) > 0 {
		s.log.Info("feedback retention cleanup",
			zap.Int("deleted", len(stale)), zap.Time("cutoff", cutoff))
	}
	return len(stale), nil
}

// loadIndex reads the index file. Absence is a fresh store; a corrupt
// index is an error, not something to silently rebuild over.
func (s *Store) loadIndex() error {
	data, err := os.ReadFile(s.indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading index: %w", err)
	}

	if err := json.Unmarshal(data, &s.entries); err != nil {
		return fmt.Errorf("%w: %v", ErrIndexCorrupted, err)
	}
	return nil
}

// saveIndex writes the index atomically (tmp + rename).
func (s *Store) saveIndex() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding index: %v", ErrPersistence, err)
	}

	tmp := s.indexPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("%w: index: %v", ErrPersistence, err)
	}
	if err := os.Rename(tmp, s.indexPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: index rename: %v", ErrPersistence, err)
	}
	return nil
}
