package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thisiswallz/tool-companies-house-api/pkg/companieshouse"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/config"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/logger"
)

func testArchive(t *testing.T) *Archive {
	t.Helper()
	log, err := logger.New(&config.LoggingConfig{Level: "disabled"})
	require.NoError(t, err)
	return NewArchive(t.TempDir(), log)
}

func TestEnsureCompanyLayout(t *testing.T) {
	archive := testArchive(t)
	categories := []string{"accounts", "confirmations", "other"}

	companyDir, err := archive.EnsureCompanyLayout("00000006", categories)
	require.NoError(t, err)
	assert.Equal(t, archive.CompanyDir("00000006"), companyDir)

	for _, category := range categories {
		info, err := os.Stat(filepath.Join(companyDir, category))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	// Idempotent: a second call over existing directories succeeds.
	_, err = archive.EnsureCompanyLayout("00000006", categories)
	require.NoError(t, err)
}

func TestSaveAndLoadCollections(t *testing.T) {
	archive := testArchive(t)
	companyDir, err := archive.EnsureCompanyLayout("00000006", []string{"other"})
	require.NoError(t, err)

	data := &companieshouse.CompanyData{
		CompanyNumber: "00000006",
		Profile:       json.RawMessage(`{"company_name": "TEST LTD"}`),
		FilingHistory: &companieshouse.PagedResponse{
			Items:        []json.RawMessage{json.RawMessage(`{"type": "AA"}`)},
			TotalResults: 1,
		},
		Insolvency: json.RawMessage(`{"cases": []}`),
	}

	require.NoError(t, archive.SaveCollections(companyDir, data))

	// Unfetched collections must not leave snapshot files behind.
	_, err = os.Stat(filepath.Join(companyDir, OfficersFile))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(companyDir, ExemptionsFile))
	assert.True(t, os.IsNotExist(err))

	loaded, err := archive.LoadCollections("00000006")
	require.NoError(t, err)

	assert.JSONEq(t, string(data.Profile), string(loaded.Profile))
	require.NotNil(t, loaded.FilingHistory)
	assert.Equal(t, 1, loaded.FilingHistory.TotalResults)
	assert.JSONEq(t, `{"type": "AA"}`, string(loaded.FilingHistory.Items[0]))
	assert.JSONEq(t, `{"cases": []}`, string(loaded.Insolvency))
	assert.Nil(t, loaded.Officers)
	assert.Nil(t, loaded.Exemptions)
}

func TestHasCachedData(t *testing.T) {
	archive := testArchive(t)
	companyDir, err := archive.EnsureCompanyLayout("00000006", []string{"other"})
	require.NoError(t, err)

	assert.False(t, archive.HasCachedData("00000006"))

	data := &companieshouse.CompanyData{
		CompanyNumber: "00000006",
		Profile:       json.RawMessage(`{"company_number": "00000006"}`),
	}
	require.NoError(t, archive.SaveCollections(companyDir, data))

	assert.True(t, archive.HasCachedData("00000006"))
	assert.False(t, archive.HasCachedData("SC123456"))
}

func TestLoadCollectionsCorruptSnapshot(t *testing.T) {
	archive := testArchive(t)
	companyDir, err := archive.EnsureCompanyLayout("00000006", []string{"other"})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(companyDir, FilingHistoryFile), []byte("{broken"), 0644))

	_, err = archive.LoadCollections("00000006")
	assert.Error(t, err)
}

func TestSaveJSONAndLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "value.json")

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, SaveJSON(path, payload{Name: "x", Count: 3}))

	var got payload
	require.NoError(t, LoadJSON(path, &got))
	assert.Equal(t, payload{Name: "x", Count: 3}, got)
}
