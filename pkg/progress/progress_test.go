package progress

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thisiswallz/tool-companies-house-api/pkg/config"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/logger"
)

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.New(&config.LoggingConfig{Level: "disabled"})
	require.NoError(t, err)
	return log
}

func TestUpdateSuccess(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, "00000006", testLogger(t))
	require.NoError(t, m.Load())

	require.NoError(t, m.Update("docA", true, ""))

	record := m.Record()
	assert.Equal(t, []string{"docA"}, record.Completed)
	assert.Equal(t, 1, record.Downloaded)
	assert.False(t, record.Started.IsZero())
	assert.False(t, record.LastUpdated.IsZero())

	// The record must be on disk immediately.
	_, err := os.Stat(filepath.Join(dir, FileName))
	require.NoError(t, err)
}

func TestCompletedListStaysDeduplicated(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, "00000006", testLogger(t))
	require.NoError(t, m.Load())

	require.NoError(t, m.Update("docA", true, ""))
	require.NoError(t, m.Update("docA", true, ""))
	require.NoError(t, m.Update("docB", true, ""))

	record := m.Record()
	assert.Equal(t, []string{"docA", "docB"}, record.Completed)
	assert.Equal(t, len(record.Completed), record.Downloaded)
}

func TestUpdateFailure(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, "00000006", testLogger(t))
	require.NoError(t, m.Load())

	require.NoError(t, m.Update("docA", false, "content-type mismatch"))

	record := m.Record()
	assert.Empty(t, record.Completed)
	assert.Equal(t, 0, record.Downloaded)
	require.Len(t, record.Failed, 1)
	assert.Equal(t, "docA", record.Failed[0].DocumentID)
	assert.Equal(t, "content-type mismatch", record.Failed[0].Error)
	assert.False(t, record.Failed[0].Timestamp.IsZero())
}

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	m1 := NewManager(dir, "00000006", testLogger(t))
	require.NoError(t, m1.Load())
	require.NoError(t, m1.Update("docA", true, ""))
	require.NoError(t, m1.Update("docB", false, "server error"))

	m2 := NewManager(dir, "00000006", testLogger(t))
	require.NoError(t, m2.Load())

	record := m2.Record()
	assert.Equal(t, "00000006", record.CompanyNumber)
	assert.Equal(t, []string{"docA"}, record.Completed)
	require.Len(t, record.Failed, 1)
	assert.True(t, m2.IsCompleted("docA"))
	assert.False(t, m2.IsCompleted("docB"))
}

func TestStartedSetOnceAcrossRuns(t *testing.T) {
	dir := t.TempDir()

	m1 := NewManager(dir, "00000006", testLogger(t))
	require.NoError(t, m1.Load())
	require.NoError(t, m1.Update("docA", true, ""))
	started := m1.Record().Started

	m2 := NewManager(dir, "00000006", testLogger(t))
	require.NoError(t, m2.Load())
	m2.now = func() time.Time { return started.Add(time.Hour) }
	require.NoError(t, m2.Update("docB", true, ""))

	assert.True(t, m2.Record().Started.Equal(started))
	assert.True(t, m2.Record().LastUpdated.After(started))
}

func TestLoadCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0644))

	m := NewManager(dir, "00000006", testLogger(t))
	assert.Error(t, m.Load())
}

func TestStrayTempFileDoesNotCorruptRecord(t *testing.T) {
	// A crash between temp-write and rename leaves a stray temp file and
	// the previous record untouched.
	dir := t.TempDir()

	m1 := NewManager(dir, "00000006", testLogger(t))
	require.NoError(t, m1.Load())
	require.NoError(t, m1.Update("docA", true, ""))

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".progress-crash.tmp"), []byte(`{"half`), 0644))

	m2 := NewManager(dir, "00000006", testLogger(t))
	require.NoError(t, m2.Load())
	assert.Equal(t, []string{"docA"}, m2.Record().Completed)
}

func TestSavedRecordIsValidJSON(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, "00000006", testLogger(t))
	require.NoError(t, m.Load())
	require.NoError(t, m.Update("docA", true, ""))

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)

	var record Record
	require.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, 1, record.Downloaded)
}

func TestValidateOnResumeDropsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	categories := []string{"accounts", "other"}

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "accounts"), 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "accounts", "2023-01-01_AA_accounts_docA.pdf"),
		[]byte("%PDF-1.4"), 0644))

	m := NewManager(dir, "00000006", testLogger(t))
	require.NoError(t, m.Load())
	require.NoError(t, m.Update("docA", true, ""))
	require.NoError(t, m.Update("docB", true, ""))

	m.ValidateOnResume(dir, categories)

	record := m.Record()
	assert.Equal(t, []string{"docA"}, record.Completed)
	assert.Equal(t, 1, record.Downloaded)

	// Pruning is in-memory only until the next update saves it.
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	var onDisk Record
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Len(t, onDisk.Completed, 2)
}
