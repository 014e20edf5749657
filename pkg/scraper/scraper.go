// Package scraper orchestrates a full company scrape: structured data
// fetch (or cache load), snapshot persistence, document extraction and
// the download loop with progress tracking.
//
// One company is processed end to end at a time; batch runs repeat the
// per-company flow sequentially and never abort on a single failure.
package scraper

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/Thisiswallz/tool-companies-house-api/pkg/companieshouse"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/downloader"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/logger"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/progress"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/storage"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/validate"
)

// Status is the terminal state of one company scrape
type Status string

const (
	StatusSuccess Status = "success"
	StatusDryRun  Status = "dry_run"
	StatusError   Status = "error"
)

// Options controls one scrape run
type Options struct {
	// Force refetches structured data and re-downloads documents even
	// when valid copies exist.
	Force bool
	// DryRun previews the would-download list without side effects
	// beyond reads.
	DryRun bool
	// Resume validates a previous progress record against the archive
	// and skips its verified completed set.
	Resume bool
	// Types restricts downloads to the named categories. Empty means
	// all categories.
	Types []string
}

// Result is the outcome of one company scrape
type Result struct {
	CompanyNumber  string
	Status         Status
	Error          string
	Stats          *downloader.Stats
	TotalDocuments int
	Elapsed        time.Duration
}

// Scraper drives the per-company state machine
type Scraper struct {
	client     *companieshouse.Client
	downloader *downloader.Downloader
	archive    *storage.Archive
	logger     logger.Logger
}

// New creates a scraper from its collaborators
func New(client *companieshouse.Client, dl *downloader.Downloader, archive *storage.Archive, log logger.Logger) *Scraper {
	return &Scraper{
		client:     client,
		downloader: dl,
		archive:    archive,
		logger:     log,
	}
}

// ScrapeCompany runs the full flow for one company. Errors end up in
// the result, never as a panic or a partial return: a batch caller can
// always keep going.
func (s *Scraper) ScrapeCompany(companyNumber string, opts Options) Result {
	start := time.Now()

	normalized, err := validate.CompanyNumber(companyNumber)
	if err != nil {
		return Result{CompanyNumber: companyNumber, Status: StatusError, Error: err.Error()}
	}

	log := s.logger.WithField("company", normalized)
	log.Info("processing company")

	companyDir, err := s.archive.EnsureCompanyLayout(normalized, downloader.CategoryNames())
	if err != nil {
		return s.errorResult(normalized, err, start)
	}

	data, err := s.companyData(normalized, companyDir, opts, log)
	if err != nil {
		return s.errorResult(normalized, err, start)
	}

	refs := downloader.ExtractDocumentRefs(data.FilingHistory)
	log.WithField("documents", len(refs)).Info("extracted document references")

	if len(opts.Types) > 0 {
		refs = filterByCategory(refs, opts.Types)
		log.WithField("documents", len(refs)).Info("filtered documents by category")
	}

	if opts.DryRun {
		s.previewDownloads(refs, log)
		return Result{
			CompanyNumber:  normalized,
			Status:         StatusDryRun,
			TotalDocuments: len(refs),
			Elapsed:        time.Since(start),
		}
	}

	stats, err := s.downloadAll(refs, companyDir, normalized, opts, log)
	if err != nil {
		return s.errorResult(normalized, err, start)
	}

	if err := s.downloader.WriteSummary(companyDir, data, stats); err != nil {
		log.WithError(err).Warn("failed to write summary")
	}

	elapsed := time.Since(start)
	log.InfoWithFields("company completed", map[string]interface{}{
		"downloaded": stats.Success,
		"skipped":    stats.Skipped,
		"failed":     stats.Failed,
		"elapsed":    elapsed,
	})

	return Result{
		CompanyNumber:  normalized,
		Status:         StatusSuccess,
		Stats:          stats,
		TotalDocuments: len(refs),
		Elapsed:        elapsed,
	}
}

// companyData loads the structured collections from cache when present,
// otherwise fetches them from the API and persists the snapshots. A
// missing profile means the company does not exist.
func (s *Scraper) companyData(companyNumber, companyDir string, opts Options, log logger.Logger) (*companieshouse.CompanyData, error) {
	if s.archive.HasCachedData(companyNumber) && !opts.Force {
		log.Info("using cached company data (use --force to refresh)")
		return s.archive.LoadCollections(companyNumber)
	}

	log.Info("fetching company data")
	data := s.client.GetAllData(companyNumber)

	if len(data.Profile) == 0 {
		return nil, fmt.Errorf("company not found: %s", companyNumber)
	}

	if err := s.archive.SaveCollections(companyDir, data); err != nil {
		return nil, err
	}
	return data, nil
}

// previewDownloads logs the first ten would-download documents
func (s *Scraper) previewDownloads(refs []downloader.DocumentRef, log logger.Logger) {
	log.Info("[DRY RUN] would download the following documents:")

	limit := len(refs)
	if limit > 10 {
		limit = 10
	}
	for i, ref := range refs[:limit] {
		description := ref.Description
		if runes := []rune(description); len(runes) > 50 {
			description = string(runes[:50])
		}
		log.Info(fmt.Sprintf("  %d. %s - %s - %s", i+1, ref.Date, ref.Type, description))
	}
	if len(refs) > 10 {
		log.Info(fmt.Sprintf("  ... and %d more", len(refs)-10))
	}
	log.WithField("total", len(refs)).Info("dry run complete")
}

// downloadAll runs the sequential download loop over the references,
// updating the progress record after every terminal attempt.
func (s *Scraper) downloadAll(refs []downloader.DocumentRef, companyDir, companyNumber string, opts Options, log logger.Logger) (*downloader.Stats, error) {
	stats := downloader.NewStats()

	tracker := progress.NewManager(companyDir, companyNumber, s.logger)
	if err := tracker.Load(); err != nil {
		return nil, err
	}

	completed := map[string]bool{}
	if opts.Resume {
		log.Info("resuming previous download")
		tracker.ValidateOnResume(companyDir, downloader.CategoryNames())
		completed = tracker.CompletedSet()
		log.WithField("already_downloaded", len(completed)).Info("verified completed documents")
	}

	var remaining []downloader.DocumentRef
	for _, ref := range refs {
		if !completed[ref.DocID] {
			remaining = append(remaining, ref)
		}
	}

	if len(remaining) == 0 {
		log.Info("all documents already downloaded")
		return stats, nil
	}
	log.WithField("count", len(remaining)).Info("downloading documents")

	for idx, ref := range remaining {
		category := downloader.Categorize(ref.Type)
		categoryDir := filepath.Join(companyDir, category)

		log.DebugWithFields("downloading document", map[string]interface{}{
			"index":    idx + 1,
			"total":    len(remaining),
			"document": ref.DocID,
			"category": category,
		})

		ok, reason := s.downloader.DownloadOne(ref, categoryDir, companyNumber, !opts.Force)
		if ok {
			if reason == downloader.ReasonAlreadyExists {
				stats.Skipped++
			} else {
				stats.Success++
				stats.ByCategory[category]++
			}
			if err := tracker.Update(ref.DocID, true, ""); err != nil {
				return nil, err
			}
		} else {
			stats.Failed++
			stats.FailedItems = append(stats.FailedItems, fmt.Sprintf("%s: %s", ref.DocID, reason))
			log.WarnWithFields("document download failed", map[string]interface{}{
				"document": ref.DocID,
				"reason":   reason,
			})
			if err := tracker.Update(ref.DocID, false, reason); err != nil {
				return nil, err
			}
		}
	}

	return stats, nil
}

func (s *Scraper) errorResult(companyNumber string, err error, start time.Time) Result {
	s.logger.WithField("company", companyNumber).WithError(err).Error("company scrape failed")
	return Result{
		CompanyNumber: companyNumber,
		Status:        StatusError,
		Error:         err.Error(),
		Elapsed:       time.Since(start),
	}
}

func filterByCategory(refs []downloader.DocumentRef, categories []string) []downloader.DocumentRef {
	allowed := make(map[string]bool, len(categories))
	for _, category := range categories {
		allowed[category] = true
	}

	var filtered []downloader.DocumentRef
	for _, ref := range refs {
		if allowed[downloader.Categorize(ref.Type)] {
			filtered = append(filtered, ref)
		}
	}
	return filtered
}

// ScrapeAll processes multiple companies sequentially. One company's
// failure never aborts the batch; the caller gets every result.
func (s *Scraper) ScrapeAll(companyNumbers []string, opts Options) []Result {
	results := make([]Result, 0, len(companyNumbers))
	for _, companyNumber := range companyNumbers {
		results = append(results, s.ScrapeCompany(companyNumber, opts))
	}

	if len(companyNumbers) > 1 {
		s.logBatchSummary(results)
	}
	return results
}

func (s *Scraper) logBatchSummary(results []Result) {
	var success, failed int
	for _, result := range results {
		switch result.Status {
		case StatusError:
			failed++
		case StatusSuccess, StatusDryRun:
			success++
		}
	}

	s.logger.InfoWithFields("bulk processing summary", map[string]interface{}{
		"total":   len(results),
		"success": success,
		"errors":  failed,
	})

	for _, result := range results {
		if result.Status == StatusError {
			s.logger.ErrorWithFields("company failed", map[string]interface{}{
				"company": result.CompanyNumber,
				"error":   result.Error,
			})
		}
	}
}
