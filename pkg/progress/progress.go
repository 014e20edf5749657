// Package progress persists per-company download bookkeeping so an
// interrupted run can resume without re-downloading documents.
//
// The record lives at download_progress.json inside the company
// directory. Every save goes through write-temp-then-rename, so a crash
// mid-write leaves the previous valid record intact. One manager owns
// one company's record; concurrent runs against the same directory are
// out of contract.
package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Thisiswallz/tool-companies-house-api/pkg/logger"
)

// FileName is the progress record's filename inside a company directory
const FileName = "download_progress.json"

// Failure records one failed download attempt
type Failure struct {
	DocumentID string    `json:"doc_id"`
	Error      string    `json:"error"`
	Timestamp  time.Time `json:"timestamp"`
}

// Record is the persisted download state for one company.
// Completed never holds duplicate document IDs, and Downloaded always
// equals len(Completed) after an update.
type Record struct {
	CompanyNumber  string    `json:"company_number"`
	Started        time.Time `json:"started"`
	Completed      []string  `json:"completed"`
	Failed         []Failure `json:"failed"`
	TotalDocuments int       `json:"total_documents"`
	Downloaded     int       `json:"downloaded"`
	LastUpdated    time.Time `json:"last_updated"`
}

// Manager loads, mutates and saves one company's progress record
type Manager struct {
	path   string
	record *Record
	logger logger.Logger

	now func() time.Time
}

// NewManager creates a progress manager for the given company
// directory. Call Load before reading or updating the record.
func NewManager(companyDir, companyNumber string, log logger.Logger) *Manager {
	return &Manager{
		path: filepath.Join(companyDir, FileName),
		record: &Record{
			CompanyNumber: companyNumber,
			Completed:     []string{},
			Failed:        []Failure{},
		},
		logger: log,
		now:    time.Now,
	}
}

// Load reads the persisted record if one exists. A missing file is not
// an error: the record starts fresh and the start time is set on the
// first update. A corrupt file is surfaced so the caller can decide
// whether to discard it.
func (m *Manager) Load() error {
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read progress record: %w", err)
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("failed to parse progress record %s: %w", m.path, err)
	}

	if record.Completed == nil {
		record.Completed = []string{}
	}
	if record.Failed == nil {
		record.Failed = []Failure{}
	}
	m.record = &record

	m.logger.DebugWithFields("loaded progress record", map[string]interface{}{
		"company":   record.CompanyNumber,
		"completed": len(record.Completed),
		"failed":    len(record.Failed),
	})
	return nil
}

// Record returns the current in-memory record
func (m *Manager) Record() *Record {
	return m.record
}

// IsCompleted reports whether the document is already marked complete
func (m *Manager) IsCompleted(docID string) bool {
	for _, id := range m.record.Completed {
		if id == docID {
			return true
		}
	}
	return false
}

// CompletedSet returns the completed document IDs as a set
func (m *Manager) CompletedSet() map[string]bool {
	set := make(map[string]bool, len(m.record.Completed))
	for _, id := range m.record.Completed {
		set[id] = true
	}
	return set
}

// Update records the outcome of one download attempt and saves the
// record. Marking an already-completed document again is a no-op for
// the completed list, keeping it duplicate-free.
func (m *Manager) Update(docID string, success bool, errMsg string) error {
	now := m.now()

	if m.record.Started.IsZero() {
		m.record.Started = now
	}

	if success {
		if !m.IsCompleted(docID) {
			m.record.Completed = append(m.record.Completed, docID)
		}
	} else {
		m.record.Failed = append(m.record.Failed, Failure{
			DocumentID: docID,
			Error:      errMsg,
			Timestamp:  now,
		})
	}

	m.record.Downloaded = len(m.record.Completed)
	m.record.LastUpdated = now

	return m.save()
}

// save writes the record crash-safely: marshal to a temp file in the
// same directory, fsync, then rename over the target.
func (m *Manager) save() error {
	data, err := json.MarshalIndent(m.record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal progress record: %w", err)
	}

	dir := filepath.Dir(m.path)
	tmp, err := os.CreateTemp(dir, ".progress-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp progress file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write progress record: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync progress record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp progress file: %w", err)
	}

	if err := os.Rename(tmpName, m.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace progress record: %w", err)
	}
	return nil
}

// ValidateOnResume re-verifies the completed list against the archive:
// each document ID must still appear as a fragment of some PDF filename
// under one of the category directories. Entries whose file has been
// deleted out-of-band are dropped from the in-memory completed set.
// The pruned record is not saved; the next Update persists it.
func (m *Manager) ValidateOnResume(companyDir string, categories []string) {
	verified := make([]string, 0, len(m.record.Completed))

	for _, docID := range m.record.Completed {
		if documentFileExists(companyDir, categories, docID) {
			verified = append(verified, docID)
		} else {
			m.logger.WarnWithFields("completed document missing from archive, will re-download", map[string]interface{}{
				"company":  m.record.CompanyNumber,
				"document": docID,
			})
		}
	}

	m.record.Completed = verified
	m.record.Downloaded = len(verified)
}

// documentFileExists scans the category directories for a PDF whose
// filename contains the document ID.
func documentFileExists(companyDir string, categories []string, docID string) bool {
	for _, category := range categories {
		entries, err := os.ReadDir(filepath.Join(companyDir, category))
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			if strings.HasSuffix(name, ".pdf") && strings.Contains(name, docID) {
				return true
			}
		}
	}
	return false
}
