package downloader

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thisiswallz/tool-companies-house-api/pkg/companieshouse"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/config"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/logger"
)

const pdfBody = "%PDF-1.4 test document body"

// docServer serves document metadata and content for tests and counts
// content requests so idempotency can be asserted.
type docServer struct {
	contentRequests atomic.Int64
	withXBRL        bool
	contentType     string
	body            string
	status          int
}

func (s *docServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/content") {
			s.contentRequests.Add(1)
			if s.status != 0 {
				w.WriteHeader(s.status)
				return
			}
			if s.withXBRL && r.Header.Get("Accept") == companieshouse.ContentTypeXHTML {
				w.Header().Set("Content-Type", companieshouse.ContentTypeXHTML)
				w.Write([]byte("<html>xbrl</html>"))
				return
			}
			w.Header().Set("Content-Type", s.contentType)
			w.Write([]byte(s.body))
			return
		}

		resources := map[string]interface{}{
			companieshouse.ContentTypePDF: map[string]int{"content_length": len(s.body)},
		}
		if s.withXBRL {
			resources[companieshouse.ContentTypeXHTML] = map[string]int{"content_length": 17}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"resources": resources})
	})
}

func newTestDownloader(t *testing.T, handler http.Handler) *Downloader {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.DefaultConfig()
	cfg.API.Key = "test-key-abcdefghijklmnopqrst"
	cfg.API.DataBaseURL = server.URL
	cfg.API.DocumentBaseURL = server.URL

	log, err := logger.New(&config.LoggingConfig{Level: "disabled"})
	require.NoError(t, err)

	client, err := companieshouse.NewClient(cfg, log)
	require.NoError(t, err)

	return NewDownloader(client, cfg, log)
}

func testRef() DocumentRef {
	return DocumentRef{
		DocID:       "docABC",
		Date:        "2023-01-15",
		Description: "annual accounts made up to 2022",
		Type:        "AA",
		Category:    "accounts",
	}
}

func TestExtractDocumentRefs(t *testing.T) {
	history := &companieshouse.PagedResponse{
		Items: []json.RawMessage{
			json.RawMessage(`{
				"date": "2023-01-15", "type": "AA", "description": "accounts",
				"category": "accounts",
				"links": {"document_metadata": "https://doc-api.example/document/docA"}
			}`),
			json.RawMessage(`{"date": "2023-02-01", "type": "CS01", "links": {}}`),
			json.RawMessage(`{
				"type": "MR01",
				"links": {"document_metadata": "https://doc-api.example/document/docB/"}
			}`),
		},
		TotalResults: 3,
	}

	refs := ExtractDocumentRefs(history)
	require.Len(t, refs, 2)

	assert.Equal(t, "docA", refs[0].DocID)
	assert.Equal(t, "2023-01-15", refs[0].Date)
	assert.Equal(t, "AA", refs[0].Type)

	// Trailing slash stripped, missing fields default to "unknown".
	assert.Equal(t, "docB", refs[1].DocID)
	assert.Equal(t, "unknown", refs[1].Date)
	assert.Equal(t, "unknown", refs[1].Description)

	assert.Nil(t, ExtractDocumentRefs(nil))
}

func TestDownloadOneWritesArtifacts(t *testing.T) {
	server := &docServer{contentType: companieshouse.ContentTypePDF, body: pdfBody}
	d := newTestDownloader(t, server.handler())
	dir := t.TempDir()

	ok, reason := d.DownloadOne(testRef(), dir, "00000006", true)
	require.True(t, ok, reason)
	assert.Empty(t, reason)

	pdfs, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	require.NoError(t, err)
	require.Len(t, pdfs, 1)
	assert.Contains(t, filepath.Base(pdfs[0]), "20230115_AA_annual accounts")

	content, err := os.ReadFile(pdfs[0])
	require.NoError(t, err)
	assert.Equal(t, pdfBody, string(content))

	var sidecar Sidecar
	data, err := os.ReadFile(sidecarPath(pdfs[0]))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &sidecar))

	assert.Equal(t, "docABC", sidecar.DocumentID)
	assert.Equal(t, "2023-01-15", sidecar.FilingDate)
	assert.Equal(t, "AA", sidecar.FilingType)
	assert.Equal(t, "00000006", sidecar.CompanyNumber)
	assert.NotEmpty(t, sidecar.DownloadTimestamp)
	assert.Contains(t, string(sidecar.APIMetadata), "resources")
}

func TestDownloadOneSkipsExisting(t *testing.T) {
	server := &docServer{contentType: companieshouse.ContentTypePDF, body: pdfBody}
	d := newTestDownloader(t, server.handler())
	dir := t.TempDir()

	ok, _ := d.DownloadOne(testRef(), dir, "00000006", true)
	require.True(t, ok)
	firstRequests := server.contentRequests.Load()

	// Second run finds the valid file via its sidecar and stays offline.
	ok, reason := d.DownloadOne(testRef(), dir, "00000006", true)
	require.True(t, ok)
	assert.Equal(t, ReasonAlreadyExists, reason)
	assert.Equal(t, firstRequests, server.contentRequests.Load())

	pdfs, _ := filepath.Glob(filepath.Join(dir, "*.pdf"))
	assert.Len(t, pdfs, 1)
}

func TestDownloadOneForceCreatesCollisionSuffix(t *testing.T) {
	server := &docServer{contentType: companieshouse.ContentTypePDF, body: pdfBody}
	d := newTestDownloader(t, server.handler())
	dir := t.TempDir()

	ok, _ := d.DownloadOne(testRef(), dir, "00000006", false)
	require.True(t, ok)
	ok, _ = d.DownloadOne(testRef(), dir, "00000006", false)
	require.True(t, ok)

	pdfs, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	require.NoError(t, err)
	require.Len(t, pdfs, 2)

	var suffixed bool
	for _, pdf := range pdfs {
		if strings.HasSuffix(pdf, "_2.pdf") {
			suffixed = true
		}
	}
	assert.True(t, suffixed, "expected a _2 collision suffix, got %v", pdfs)
}

func TestDownloadOneRejectsWrongContentType(t *testing.T) {
	server := &docServer{contentType: "text/html", body: "<html>error page</html>"}
	d := newTestDownloader(t, server.handler())
	dir := t.TempDir()

	ok, reason := d.DownloadOne(testRef(), dir, "00000006", true)
	assert.False(t, ok)
	assert.Contains(t, reason, "content type")

	pdfs, _ := filepath.Glob(filepath.Join(dir, "*.pdf"))
	assert.Empty(t, pdfs)
}

func TestDownloadOneRejectsBadMagicBytes(t *testing.T) {
	server := &docServer{contentType: companieshouse.ContentTypePDF, body: "not a pdf at all"}
	d := newTestDownloader(t, server.handler())
	dir := t.TempDir()

	ok, reason := d.DownloadOne(testRef(), dir, "00000006", true)
	assert.False(t, ok)
	assert.Contains(t, reason, "magic")

	// The rejected file must be deleted, not left truncated.
	pdfs, _ := filepath.Glob(filepath.Join(dir, "*.pdf"))
	assert.Empty(t, pdfs)
}

func TestDownloadOneRejectsOversizeBody(t *testing.T) {
	server := &docServer{
		contentType: companieshouse.ContentTypePDF,
		body:        "%PDF-1.4 " + strings.Repeat("x", 100),
	}
	d := newTestDownloader(t, server.handler())
	d.maxSize = 20
	dir := t.TempDir()

	ok, reason := d.DownloadOne(testRef(), dir, "00000006", true)
	assert.False(t, ok)
	assert.Contains(t, reason, "too large")

	pdfs, _ := filepath.Glob(filepath.Join(dir, "*.pdf"))
	assert.Empty(t, pdfs)
}

func TestDownloadOneDocumentNotFound(t *testing.T) {
	d := newTestDownloader(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	ok, reason := d.DownloadOne(testRef(), t.TempDir(), "00000006", true)
	assert.False(t, ok)
	assert.Contains(t, reason, "not found")
}

func TestDownloadOneFetchesXBRLWhenAdvertised(t *testing.T) {
	server := &docServer{contentType: companieshouse.ContentTypePDF, body: pdfBody, withXBRL: true}
	d := newTestDownloader(t, server.handler())
	dir := t.TempDir()

	ok, _ := d.DownloadOne(testRef(), dir, "00000006", true)
	require.True(t, ok)

	xbrls, err := filepath.Glob(filepath.Join(dir, "*.xbrl"))
	require.NoError(t, err)
	require.Len(t, xbrls, 1)

	content, err := os.ReadFile(xbrls[0])
	require.NoError(t, err)
	assert.Equal(t, "<html>xbrl</html>", string(content))
}

func TestDocumentExists(t *testing.T) {
	server := &docServer{contentType: companieshouse.ContentTypePDF, body: pdfBody}
	d := newTestDownloader(t, server.handler())
	dir := t.TempDir()

	writeDoc := func(name, docID, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".pdf"), []byte(body), 0644))
		sidecar, _ := json.Marshal(Sidecar{DocumentID: docID})
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".meta.json"), sidecar, 0644))
	}

	writeDoc("valid", "docA", pdfBody)
	writeDoc("truncated", "docB", "")
	writeDoc("corrupt", "docC", "HTML garbage")

	path, ok := d.DocumentExists("docA", dir)
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "valid.pdf"), path)

	// Identity comes from the sidecar, so an unrelated doc ID misses
	// even with files present.
	_, ok = d.DocumentExists("docZ", dir)
	assert.False(t, ok)

	// Empty or non-PDF files never count as existing.
	_, ok = d.DocumentExists("docB", dir)
	assert.False(t, ok)
	_, ok = d.DocumentExists("docC", dir)
	assert.False(t, ok)

	_, ok = d.DocumentExists("docA", filepath.Join(dir, "missing"))
	assert.False(t, ok)
}

func TestWriteSummary(t *testing.T) {
	server := &docServer{contentType: companieshouse.ContentTypePDF, body: pdfBody}
	d := newTestDownloader(t, server.handler())
	dir := t.TempDir()

	data := &companieshouse.CompanyData{
		CompanyNumber: "00000006",
		Profile: json.RawMessage(`{
			"company_name": "TEST LTD",
			"company_number": "00000006",
			"company_status": "active",
			"type": "ltd",
			"date_of_creation": "1990-05-01",
			"jurisdiction": "england-wales",
			"registered_office_address": {
				"address_line_1": "1 Test Street",
				"locality": "London",
				"postal_code": "EC1A 1AA"
			}
		}`),
		Officers: &companieshouse.PagedResponse{
			Items: []json.RawMessage{json.RawMessage(`{}`), json.RawMessage(`{}`)},
		},
		FilingHistory: &companieshouse.PagedResponse{
			Items: []json.RawMessage{json.RawMessage(`{}`)},
		},
		Insolvency: json.RawMessage(`{"cases": [{}]}`),
	}

	stats := NewStats()
	stats.Success = 3
	stats.ByCategory["accounts"] = 2
	stats.ByCategory["other"] = 1
	stats.XBRLCount = 1

	require.NoError(t, d.WriteSummary(dir, data, stats))

	content, err := os.ReadFile(filepath.Join(dir, "summary.txt"))
	require.NoError(t, err)
	text := string(content)

	assert.Contains(t, text, "COMPANY OVERVIEW")
	assert.Contains(t, text, "Name: TEST LTD\n")
	assert.Contains(t, text, "Number: 00000006\n")
	assert.Contains(t, text, "Status: active\n")
	assert.Contains(t, text, "1 Test Street\nLondon\nEC1A 1AA\n")
	assert.Contains(t, text, "Officers: 2 found\n")
	assert.Contains(t, text, "Charges: 0 found\n")
	assert.Contains(t, text, "Filing History: 1 records\n")
	assert.Contains(t, text, "Insolvency: Yes\n")
	assert.Contains(t, text, "Accounts: 2 PDFs\n")
	assert.Contains(t, text, "Total Documents: 3 PDFs, 1 XBRL\n")
	assert.Contains(t, text, "Generated: ")
}

func TestFilenameBaseTruncatesDescription(t *testing.T) {
	server := &docServer{contentType: companieshouse.ContentTypePDF, body: pdfBody}
	d := newTestDownloader(t, server.handler())

	ref := testRef()
	ref.Description = strings.Repeat("long description ", 20)

	base := d.filenameBase(ref)
	assert.True(t, strings.HasPrefix(base, "20230115_AA_"))
	assert.LessOrEqual(t, len(base), len("20230115_AA_")+50)
}

func TestUniquePath(t *testing.T) {
	server := &docServer{contentType: companieshouse.ContentTypePDF, body: pdfBody}
	d := newTestDownloader(t, server.handler())
	dir := t.TempDir()

	first, err := d.uniquePath(dir, "doc", ".pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "doc.pdf"), first)

	require.NoError(t, os.WriteFile(first, []byte("x"), 0644))
	second, err := d.uniquePath(dir, "doc", ".pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "doc_2.pdf"), second)

	require.NoError(t, os.WriteFile(second, []byte("x"), 0644))
	third, err := d.uniquePath(dir, "doc", ".pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "doc_3.pdf"), third)
}

func TestUniquePathRejectsEscapingName(t *testing.T) {
	server := &docServer{contentType: companieshouse.ContentTypePDF, body: pdfBody}
	d := newTestDownloader(t, server.handler())
	dir := t.TempDir()

	_, err := d.uniquePath(dir, "../escape", ".pdf")
	require.Error(t, err)

	_, err = d.uniquePath(dir, "../../etc/passwd", "")
	require.Error(t, err)
}
