// Package validate provides input validation and sanitization for the
// Companies House scraper: API key format checks, company number
// normalization, and filesystem-safe filenames.
//
// All validators return descriptive errors on invalid input and never
// perform network I/O.
package validate

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	apierrors "github.com/Thisiswallz/tool-companies-house-api/pkg/errors"
)

const (
	// MinAPIKeyLength is the minimum plausible length of a Companies House API key
	MinAPIKeyLength = 20

	// MaxFilenameLength is the default filename length limit (most filesystems)
	MaxFilenameLength = 255
)

var (
	apiKeyPattern        = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	companyNumberPattern = regexp.MustCompile(`^[A-Z0-9]{1,8}$`)
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
)

// APIKey validates API key format. It does NOT test actual API
// authentication - only that the key plausibly looks like one.
func APIKey(apiKey string) error {
	if apiKey == "" {
		return apierrors.New(apierrors.ErrorTypeValidation,
			"API key is required - set COMPANIES_HOUSE_API_KEY environment variable")
	}
	if len(apiKey) < MinAPIKeyLength {
		return apierrors.New(apierrors.ErrorTypeValidation, "API key appears invalid (too short)")
	}
	if !apiKeyPattern.MatchString(apiKey) {
		return apierrors.New(apierrors.ErrorTypeValidation, "API key contains invalid characters")
	}
	return nil
}

// CompanyNumber validates and normalizes a company number.
//
// The normalized form is upper-case, 1-8 alphanumeric characters, and
// zero-padded to 8 digits when purely numeric:
//
//	CompanyNumber("123")      // "00000123"
//	CompanyNumber("oc123456") // "OC123456"
func CompanyNumber(number string) (string, error) {
	number = strings.ToUpper(strings.TrimSpace(number))

	if number == "" {
		return "", apierrors.New(apierrors.ErrorTypeValidation,
			"company number must be a non-empty string")
	}
	if !companyNumberPattern.MatchString(number) {
		return "", apierrors.New(apierrors.ErrorTypeValidation,
			fmt.Sprintf("invalid company number format: %s", number))
	}

	if isAllDigits(number) {
		number = strings.Repeat("0", 8-len(number)) + number
	}

	return number, nil
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// SanitizeFilename removes invalid filesystem characters and enforces the
// length limit while preserving the file extension. An empty or
// all-invalid input yields "unnamed", never an empty string.
func SanitizeFilename(filename string) string {
	return SanitizeFilenameWithLimit(filename, MaxFilenameLength)
}

// SanitizeFilenameWithLimit is SanitizeFilename with an explicit length limit.
func SanitizeFilenameWithLimit(filename string, maxLength int) string {
	filename = invalidFilenameChars.ReplaceAllString(filename, "_")
	filename = strings.Trim(filename, ". ")

	if len(filename) > maxLength {
		ext := ""
		name := filename
		if idx := strings.LastIndex(filename, "."); idx >= 0 {
			name = filename[:idx]
			ext = filename[idx+1:]
		}
		if ext != "" {
			keep := maxLength - len(ext) - 1
			if keep < 0 {
				keep = 0
			}
			filename = name[:keep] + "." + ext
		} else {
			filename = name[:maxLength]
		}
	}

	if filename == "" {
		return "unnamed"
	}
	return filename
}

// SafeOutputPath resolves filename under baseDir and rejects any result
// that would escape baseDir (path traversal guard).
func SafeOutputPath(baseDir, filename string) (string, error) {
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}

	target := filepath.Clean(filepath.Join(absBase, filename))
	if target != absBase && !strings.HasPrefix(target, absBase+string(filepath.Separator)) {
		return "", apierrors.New(apierrors.ErrorTypeValidation,
			fmt.Sprintf("path traversal detected: %s", filename))
	}

	return target, nil
}
