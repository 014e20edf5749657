package downloader

import "strings"

// CategoryOther is the catch-all for filings no rule matches
const CategoryOther = "other"

// categoryRules maps filing types to archive categories. Order matters:
// the first rule with a matching keyword wins.
var categoryRules = []struct {
	name     string
	keywords []string
}{
	{"accounts", []string{"AA", "AC", "Annual Return", "Annual Accounts", "accounts"}},
	{"confirmations", []string{"CS01", "Confirmation Statement", "confirmation"}},
	{"incorporation", []string{"IN01", "incorporation", "articles", "certificate"}},
	{"changes", []string{"CH01", "CH02", "CH03", "TM01", "TM02", "AP01", "change"}},
	{"mortgages", []string{"MR01", "MR02", "MR04", "mortgage", "charge"}},
	{"dissolutions", []string{"DS01", "DS02", "dissolution"}},
}

// CategoryNames returns the category directory names in their fixed
// order, ending with the catch-all.
func CategoryNames() []string {
	names := make([]string, 0, len(categoryRules)+1)
	for _, rule := range categoryRules {
		names = append(names, rule.name)
	}
	return append(names, CategoryOther)
}

// Categorize maps a filing type code or description to its archive
// category via case-insensitive substring match against the keyword
// table. Unmatched filings land in "other".
func Categorize(filingType string) string {
	lower := strings.ToLower(filingType)

	for _, rule := range categoryRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, strings.ToLower(keyword)) {
				return rule.name
			}
		}
	}

	return CategoryOther
}
