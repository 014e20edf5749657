// Package storage manages the on-disk archive layout: one directory per
// company holding JSON snapshots of the structured collections plus the
// per-category document subdirectories.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Thisiswallz/tool-companies-house-api/pkg/companieshouse"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/logger"
)

// Snapshot filenames inside a company directory, one per collection.
const (
	ProfileFile          = "profile.json"
	FilingHistoryFile    = "filing_history.json"
	OfficersFile         = "officers.json"
	ChargesFile          = "charges.json"
	PSCFile              = "psc.json"
	UKEstablishmentsFile = "uk_establishments.json"
	InsolvencyFile       = "insolvency.json"
	ExemptionsFile       = "exemptions.json"
	SummaryFile          = "summary.txt"
)

// Archive manages company directories under a base output directory
type Archive struct {
	baseDir string
	logger  logger.Logger
}

// NewArchive creates an archive rooted at baseDir
func NewArchive(baseDir string, log logger.Logger) *Archive {
	return &Archive{
		baseDir: baseDir,
		logger:  log,
	}
}

// BaseDir returns the archive's root directory
func (a *Archive) BaseDir() string {
	return a.baseDir
}

// CompanyDir returns the directory for one company. The company number
// must already be normalized.
func (a *Archive) CompanyDir(companyNumber string) string {
	return filepath.Join(a.baseDir, companyNumber)
}

// EnsureCompanyLayout creates the company directory and its category
// subdirectories, returning the company directory path.
func (a *Archive) EnsureCompanyLayout(companyNumber string, categories []string) (string, error) {
	companyDir := a.CompanyDir(companyNumber)

	for _, category := range categories {
		dir := filepath.Join(companyDir, category)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return companyDir, nil
}

// HasCachedData reports whether a company already has a profile
// snapshot on disk. The profile is the one collection every successful
// fetch persists, so its presence marks the cache as usable.
func (a *Archive) HasCachedData(companyNumber string) bool {
	_, err := os.Stat(filepath.Join(a.CompanyDir(companyNumber), ProfileFile))
	return err == nil
}

// SaveCollections persists each non-empty collection as a JSON snapshot
// in the company directory. Collections that were not fetched (nil) are
// skipped, leaving any previous snapshot in place.
func (a *Archive) SaveCollections(companyDir string, data *companieshouse.CompanyData) error {
	saves := []struct {
		file    string
		value   interface{}
		present bool
	}{
		{ProfileFile, data.Profile, len(data.Profile) > 0},
		{FilingHistoryFile, data.FilingHistory, data.FilingHistory != nil},
		{OfficersFile, data.Officers, data.Officers != nil},
		{ChargesFile, data.Charges, data.Charges != nil},
		{PSCFile, data.PSC, data.PSC != nil},
		{UKEstablishmentsFile, data.UKEstablishments, data.UKEstablishments != nil},
		{InsolvencyFile, data.Insolvency, len(data.Insolvency) > 0},
		{ExemptionsFile, data.Exemptions, len(data.Exemptions) > 0},
	}

	for _, s := range saves {
		if !s.present {
			continue
		}
		if err := SaveJSON(filepath.Join(companyDir, s.file), s.value); err != nil {
			return err
		}
		a.logger.DebugWithFields("saved collection snapshot", map[string]interface{}{
			"company": data.CompanyNumber,
			"file":    s.file,
		})
	}

	return nil
}

// LoadCollections reads the persisted snapshots for a company back into
// a data bundle. Missing snapshot files are left nil, mirroring a fetch
// where that collection was absent.
func (a *Archive) LoadCollections(companyNumber string) (*companieshouse.CompanyData, error) {
	companyDir := a.CompanyDir(companyNumber)
	data := &companieshouse.CompanyData{
		CompanyNumber: companyNumber,
		Errors:        make(map[string]string),
	}

	if raw, err := loadRaw(filepath.Join(companyDir, ProfileFile)); err == nil {
		data.Profile = raw
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	if raw, err := loadRaw(filepath.Join(companyDir, InsolvencyFile)); err == nil {
		data.Insolvency = raw
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	if raw, err := loadRaw(filepath.Join(companyDir, ExemptionsFile)); err == nil {
		data.Exemptions = raw
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	paged := []struct {
		file   string
		target **companieshouse.PagedResponse
	}{
		{FilingHistoryFile, &data.FilingHistory},
		{OfficersFile, &data.Officers},
		{ChargesFile, &data.Charges},
		{PSCFile, &data.PSC},
		{UKEstablishmentsFile, &data.UKEstablishments},
	}
	for _, p := range paged {
		var response companieshouse.PagedResponse
		err := LoadJSON(filepath.Join(companyDir, p.file), &response)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		*p.target = &response
	}

	return data, nil
}

// SaveJSON writes a value as indented JSON. Snapshots are plain writes
// with no atomicity guarantee; a truncated snapshot is rebuilt by the
// next forced fetch.
func SaveJSON(path string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// LoadJSON reads a JSON file into target
func LoadJSON(path string, target interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func loadRaw(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
