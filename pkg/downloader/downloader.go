// Package downloader turns filing history records into organized,
// validated PDF artifacts on disk.
//
// Each filing with a document link becomes a PDF in a category
// subdirectory, a JSON metadata sidecar next to it, and optionally an
// XBRL file when the remote advertises one. Document identity lives in
// the sidecar's document_id, never in the filename, which makes re-runs
// idempotent: an existing valid file for the same document is skipped.
package downloader

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Thisiswallz/tool-companies-house-api/pkg/companieshouse"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/config"
	apierrors "github.com/Thisiswallz/tool-companies-house-api/pkg/errors"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/logger"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/validate"
)

// ReasonAlreadyExists is the success reason reported when a valid copy
// of the document was already on disk and no network I/O happened.
const ReasonAlreadyExists = "already_exists"

var pdfMagic = []byte("%PDF")

// DocumentRef is one downloadable document extracted from filing history
type DocumentRef struct {
	DocID       string
	Date        string
	Description string
	Type        string
	Category    string
}

// Sidecar is the metadata file written next to each downloaded PDF
type Sidecar struct {
	FilingDate        string          `json:"filing_date"`
	FilingType        string          `json:"filing_type"`
	Description       string          `json:"description"`
	Category          string          `json:"category"`
	CompanyNumber     string          `json:"company_number"`
	DownloadTimestamp string          `json:"download_timestamp"`
	DocumentID        string          `json:"document_id"`
	APIMetadata       json.RawMessage `json:"api_metadata"`
}

// Stats aggregates download outcomes for one company
type Stats struct {
	Success     int
	Failed      int
	Skipped     int
	ByCategory  map[string]int
	FailedItems []string
	XBRLCount   int
}

// NewStats returns an empty stats accumulator
func NewStats() *Stats {
	return &Stats{ByCategory: make(map[string]int)}
}

// Downloader fetches, validates and persists filing documents
type Downloader struct {
	client  *companieshouse.Client
	logger  logger.Logger
	maxSize int64

	now func() time.Time
}

// NewDownloader creates a document downloader
func NewDownloader(client *companieshouse.Client, cfg *config.Config, log logger.Logger) *Downloader {
	return &Downloader{
		client:  client,
		logger:  log,
		maxSize: int64(cfg.Download.MaxFileSizeMB) * 1024 * 1024,
		now:     time.Now,
	}
}

// ExtractDocumentRefs pulls document references out of a filing history
// collection. Filings without a document_metadata link have no document
// and are skipped. The doc ID is the trailing path segment of the link.
func ExtractDocumentRefs(filingHistory *companieshouse.PagedResponse) []DocumentRef {
	if filingHistory == nil {
		return nil
	}

	var refs []DocumentRef
	for _, raw := range filingHistory.Items {
		var item companieshouse.FilingItem
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		if item.Links.DocumentMetadata == "" {
			continue
		}

		link := strings.TrimSuffix(item.Links.DocumentMetadata, "/")
		docID := link[strings.LastIndex(link, "/")+1:]
		if docID == "" {
			continue
		}

		refs = append(refs, DocumentRef{
			DocID:       docID,
			Date:        orUnknown(item.Date),
			Description: orUnknown(item.Description),
			Type:        orUnknown(item.Type),
			Category:    orUnknown(item.Category),
		})
	}
	return refs
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// DocumentExists looks for a valid existing copy of the document in the
// category directory. Identity comes from the metadata sidecar's
// document_id; the PDF itself must be non-empty and start with the PDF
// signature, so a truncated artifact from a crashed run never counts.
// Returns the PDF path when found.
func (d *Downloader) DocumentExists(docID, categoryDir string) (string, bool) {
	entries, err := os.ReadDir(categoryDir)
	if err != nil {
		return "", false
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".pdf") {
			continue
		}
		pdfPath := filepath.Join(categoryDir, entry.Name())

		var sidecar Sidecar
		data, err := os.ReadFile(sidecarPath(pdfPath))
		if err != nil || json.Unmarshal(data, &sidecar) != nil {
			continue
		}
		if sidecar.DocumentID != docID {
			continue
		}
		if validPDF(pdfPath) {
			return pdfPath, true
		}
	}
	return "", false
}

func validPDF(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	magic := make([]byte, len(pdfMagic))
	n, err := io.ReadFull(f, magic)
	if err != nil || n < len(pdfMagic) {
		return false
	}
	return string(magic) == string(pdfMagic)
}

func sidecarPath(pdfPath string) string {
	return strings.TrimSuffix(pdfPath, ".pdf") + ".meta.json"
}

// DownloadOne fetches one document into the category directory.
// Returns (success, reason): a skipped existing file succeeds with
// reason "already_exists", a rejected or failed download returns false
// with a human-readable reason.
func (d *Downloader) DownloadOne(ref DocumentRef, categoryDir, companyNumber string, skipExisting bool) (bool, string) {
	if skipExisting {
		if existing, ok := d.DocumentExists(ref.DocID, categoryDir); ok {
			d.logger.DebugWithFields("skipping existing document", map[string]interface{}{
				"document": ref.DocID,
				"file":     filepath.Base(existing),
			})
			return true, ReasonAlreadyExists
		}
	}

	meta, err := d.client.GetDocumentMetadata(ref.DocID)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, "document not found (404)"
		}
		return false, fmt.Sprintf("metadata fetch failed: %v", err)
	}

	pdfPath, err := d.uniquePath(categoryDir, d.filenameBase(ref), ".pdf")
	if err != nil {
		return false, fmt.Sprintf("invalid output path: %v", err)
	}

	if ok, reason := d.downloadPDF(ref.DocID, pdfPath); !ok {
		return false, reason
	}

	if err := d.writeSidecar(pdfPath, ref, companyNumber, meta.Raw); err != nil {
		d.logger.WithError(err).Warn("failed to write metadata sidecar")
	}

	if meta.HasXBRL() {
		d.downloadXBRL(ref.DocID, pdfPath)
	}

	return true, ""
}

// filenameBase builds the document's filename stem from its filing
// date, type and description, capped and sanitized.
func (d *Downloader) filenameBase(ref DocumentRef) string {
	date := strings.ReplaceAll(ref.Date, "-", "")
	description := ref.Description
	if runes := []rune(description); len(runes) > 50 {
		description = string(runes[:50])
	}
	return validate.SanitizeFilename(fmt.Sprintf("%s_%s_%s", date, ref.Type, description))
}

// uniquePath returns base+ext in dir, appending _2, _3, ... on
// collision. The name is resolved through the traversal guard so a
// crafted base can never place the file outside the category directory.
func (d *Downloader) uniquePath(dir, base, ext string) (string, error) {
	target, err := validate.SafeOutputPath(dir, base+ext)
	if err != nil {
		return "", err
	}
	if _, statErr := os.Stat(target); os.IsNotExist(statErr) {
		return target, nil
	}

	for counter := 2; ; counter++ {
		candidate := filepath.Join(filepath.Dir(target), fmt.Sprintf("%s_%d%s", base, counter, ext))
		if _, statErr := os.Stat(candidate); os.IsNotExist(statErr) {
			return candidate, nil
		}
	}
}

// downloadPDF streams the document content to disk with validation:
// content-type must contain application/pdf, declared and observed size
// must stay under the cap, and the file must start with the PDF
// signature. A rejected file is deleted, never left behind.
func (d *Downloader) downloadPDF(docID, pdfPath string) (bool, string) {
	resp, err := d.client.GetDocumentContent(docID, companieshouse.ContentTypePDF)
	if err != nil {
		return false, fmt.Sprintf("content fetch failed: %v", err)
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, companieshouse.ContentTypePDF) {
		// Wrong content type usually means an HTML error page.
		return false, fmt.Sprintf("unexpected content type %q", contentType)
	}

	if resp.ContentLength > d.maxSize {
		return false, fmt.Sprintf("file too large: %.1fMB declared", float64(resp.ContentLength)/1024/1024)
	}

	f, err := os.Create(pdfPath)
	if err != nil {
		return false, fmt.Sprintf("failed to create file: %v", err)
	}

	written, err := io.Copy(f, io.LimitReader(resp.Body, d.maxSize+1))
	closeErr := f.Close()

	switch {
	case err != nil:
		os.Remove(pdfPath)
		return false, fmt.Sprintf("download failed: %v", err)
	case closeErr != nil:
		os.Remove(pdfPath)
		return false, fmt.Sprintf("failed to write file: %v", closeErr)
	case written > d.maxSize:
		os.Remove(pdfPath)
		return false, fmt.Sprintf("file too large: exceeded %dMB limit", d.maxSize/1024/1024)
	}

	if !validPDF(pdfPath) {
		os.Remove(pdfPath)
		return false, "invalid PDF content (bad magic bytes)"
	}

	return true, ""
}

// downloadXBRL fetches the alternate XBRL representation next to the
// PDF. Best-effort: failures are logged at debug and never fail the
// document.
func (d *Downloader) downloadXBRL(docID, pdfPath string) {
	xbrlPath := strings.TrimSuffix(pdfPath, ".pdf") + ".xbrl"

	resp, err := d.client.GetDocumentContent(docID, companieshouse.ContentTypeXHTML)
	if err != nil {
		d.logger.WithError(err).Debug("XBRL not available")
		return
	}
	defer resp.Body.Close()

	f, err := os.Create(xbrlPath)
	if err != nil {
		d.logger.WithError(err).Debug("failed to create XBRL file")
		return
	}

	_, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(xbrlPath)
		d.logger.Debug("XBRL download failed")
		return
	}

	d.logger.DebugWithFields("downloaded XBRL", map[string]interface{}{
		"file": filepath.Base(xbrlPath),
	})
}

func (d *Downloader) writeSidecar(pdfPath string, ref DocumentRef, companyNumber string, apiMetadata json.RawMessage) error {
	sidecar := Sidecar{
		FilingDate:        ref.Date,
		FilingType:        ref.Type,
		Description:       ref.Description,
		Category:          ref.Category,
		CompanyNumber:     companyNumber,
		DownloadTimestamp: d.now().Format(time.RFC3339),
		DocumentID:        ref.DocID,
		APIMetadata:       apiMetadata,
	}

	data, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sidecar: %w", err)
	}
	return os.WriteFile(sidecarPath(pdfPath), data, 0644)
}
