package logger

import "regexp"

// RedactionPlaceholder replaces anything that looks like an API key.
const RedactionPlaceholder = "***REDACTED***"

// Any run of 20+ key-ish characters is treated as a potential credential.
// This intentionally also catches long document IDs in log lines; that is
// the price of never writing a key to a persistent log.
var sensitiveTokenPattern = regexp.MustCompile(`[A-Za-z0-9_-]{20,}`)

// Redact masks token-like substrings in s before it reaches any log output.
// It is a pure string transform, independent of logger state.
func Redact(s string) string {
	return sensitiveTokenPattern.ReplaceAllString(s, RedactionPlaceholder)
}
