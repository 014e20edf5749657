package downloader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Thisiswallz/tool-companies-house-api/pkg/companieshouse"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/storage"
)

// WriteSummary renders the plain-text company overview into
// summary.txt in the company directory. stats may be nil when no
// download phase ran (dry run, cached-only).
func (d *Downloader) WriteSummary(companyDir string, data *companieshouse.CompanyData, stats *Stats) error {
	var b strings.Builder
	rule := strings.Repeat("=", 60)
	profile := data.ProfileInfo()

	b.WriteString("COMPANY OVERVIEW\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Name: %s\n", orNA(profile.CompanyName))
	fmt.Fprintf(&b, "Number: %s\n", orNA(profile.CompanyNumber))
	fmt.Fprintf(&b, "Status: %s\n", orNA(profile.CompanyStatus))
	fmt.Fprintf(&b, "Type: %s\n", orNA(profile.Type))
	fmt.Fprintf(&b, "Incorporated: %s\n", orNA(profile.DateOfCreation))
	fmt.Fprintf(&b, "Jurisdiction: %s\n\n", orNA(profile.Jurisdiction))

	b.WriteString("REGISTERED ADDRESS\n")
	b.WriteString(rule + "\n")
	lines := profile.RegisteredOfficeAddress.Lines()
	if len(lines) == 0 {
		b.WriteString("N/A\n")
	} else {
		for _, line := range lines {
			b.WriteString(line + "\n")
		}
	}
	b.WriteString("\n")

	b.WriteString("DATA COLLECTED\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Officers: %d found\n", itemCount(data.Officers))
	fmt.Fprintf(&b, "Charges: %d found\n", itemCount(data.Charges))
	fmt.Fprintf(&b, "PSC: %d found\n", itemCount(data.PSC))
	fmt.Fprintf(&b, "Filing History: %d records\n", itemCount(data.FilingHistory))
	fmt.Fprintf(&b, "UK Establishments: %d found\n", itemCount(data.UKEstablishments))
	fmt.Fprintf(&b, "Insolvency: %s\n\n", yesNo(len(data.Insolvency) > 0))

	if stats != nil {
		b.WriteString("DOCUMENTS DOWNLOADED\n")
		b.WriteString(rule + "\n")

		categories := make([]string, 0, len(stats.ByCategory))
		for category := range stats.ByCategory {
			categories = append(categories, category)
		}
		sort.Strings(categories)
		for _, category := range categories {
			fmt.Fprintf(&b, "%s: %d PDFs\n", titleCase(category), stats.ByCategory[category])
		}

		fmt.Fprintf(&b, "\nTotal Documents: %d PDFs", stats.Success)
		if stats.XBRLCount > 0 {
			fmt.Fprintf(&b, ", %d XBRL", stats.XBRLCount)
		}
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "Generated: %s\n", d.now().Format("2006-01-02 15:04:05"))

	path := filepath.Join(companyDir, storage.SummaryFile)
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}

	d.logger.WithField("path", path).Info("summary written")
	return nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func itemCount(response *companieshouse.PagedResponse) int {
	if response == nil {
		return 0
	}
	return len(response.Items)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
