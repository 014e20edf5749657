package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid key", "abcdefghij1234567890_-xyz", false},
		{"exactly 20 chars", "abcdefghij1234567890", false},
		{"empty", "", true},
		{"too short", "shortkey", true},
		{"invalid characters", "abcdefghij1234567890!@#$", true},
		{"contains space", "abcdefghij 1234567890abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := APIKey(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCompanyNumber(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"numeric padded", "123", "00000123", false},
		{"full numeric", "12345678", "12345678", false},
		{"lowercase prefix", "oc123456", "OC123456", false},
		{"scottish", "SC123456", "SC123456", false},
		{"single digit", "6", "00000006", false},
		{"whitespace trimmed", "  123  ", "00000123", false},
		{"too long", "toolongid123", "", true},
		{"nine chars", "123456789", "", true},
		{"empty", "", "", true},
		{"invalid characters", "AB-12345", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CompanyNumber(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"invalid chars replaced", "file:name?.pdf", "file_name_.pdf"},
		{"slashes replaced", "a/b\\c.pdf", "a_b_c.pdf"},
		{"leading dot stripped", " .hidden ", "hidden"},
		{"empty input", "", "unnamed"},
		{"all invalid", "???", "___"},
		{"dots only", "...", "unnamed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.input))
		})
	}
}

func TestSanitizeFilenamePreservesExtension(t *testing.T) {
	long := strings.Repeat("a", 300) + ".pdf"
	got := SanitizeFilenameWithLimit(long, 255)

	assert.LessOrEqual(t, len(got), 255)
	assert.True(t, strings.HasSuffix(got, ".pdf"), "extension must survive truncation")
}

func TestSafeOutputPath(t *testing.T) {
	base := t.TempDir()

	path, err := SafeOutputPath(base, "file.pdf")
	assert.NoError(t, err)
	assert.Contains(t, path, "file.pdf")

	_, err = SafeOutputPath(base, "../escape.pdf")
	assert.Error(t, err)

	_, err = SafeOutputPath(base, "../../etc/passwd")
	assert.Error(t, err)
}
