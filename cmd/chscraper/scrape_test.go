package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestRunScrapeWithoutAPIKeyReturnsError(t *testing.T) {
	keyring.MockInit()
	t.Setenv("COMPANIES_HOUSE_API_KEY", "")
	t.Setenv("CHSCRAPER_PASSPHRASE", "test-passphrase")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	err := runScrape(scrapeCmd, []string{"00000006"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth login")
}

func TestGatherCompaniesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "companies.txt")
	content := "# header comment\n\n00000006\nSC123456\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	companiesFile = path
	t.Cleanup(func() { companiesFile = "" })

	companies, err := gatherCompanies([]string{"OC111111"})
	require.NoError(t, err)
	assert.Equal(t, []string{"00000006", "SC123456", "OC111111"}, companies)
}
