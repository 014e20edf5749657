package companieshouse

import "encoding/json"

// Collection names, in the order the composite fetch runs them.
const (
	CollectionProfile          = "profile"
	CollectionOfficers         = "officers"
	CollectionFilingHistory    = "filing_history"
	CollectionCharges          = "charges"
	CollectionInsolvency       = "insolvency"
	CollectionPSC              = "psc"
	CollectionUKEstablishments = "uk_establishments"
	CollectionExemptions       = "exemptions"
)

// PagedResponse is the fully materialized result of a paginated
// collection: every page's items concatenated in order. Items stay raw
// so endpoint snapshots round-trip byte-for-byte; callers that need
// structure decode individual items (see FilingItem).
type PagedResponse struct {
	Items        []json.RawMessage `json:"items"`
	TotalResults int               `json:"total_results"`
}

// FilingItem is the typed view of one filing history item. Only the
// fields the download pipeline needs are decoded.
type FilingItem struct {
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Type        string      `json:"type"`
	Category    string      `json:"category"`
	Links       FilingLinks `json:"links"`
}

// FilingLinks holds the links block of a filing item. DocumentMetadata,
// when present, points at the Document API resource for the filing's
// downloadable document.
type FilingLinks struct {
	DocumentMetadata string `json:"document_metadata"`
}

// CompanyProfile is the typed view of the company profile collection,
// decoded from the raw snapshot for summary rendering.
type CompanyProfile struct {
	CompanyName             string                  `json:"company_name"`
	CompanyNumber           string                  `json:"company_number"`
	CompanyStatus           string                  `json:"company_status"`
	Type                    string                  `json:"type"`
	DateOfCreation          string                  `json:"date_of_creation"`
	Jurisdiction            string                  `json:"jurisdiction"`
	RegisteredOfficeAddress RegisteredOfficeAddress `json:"registered_office_address"`
}

// RegisteredOfficeAddress is a company's registered address
type RegisteredOfficeAddress struct {
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2"`
	Locality     string `json:"locality"`
	Region       string `json:"region"`
	PostalCode   string `json:"postal_code"`
}

// Lines returns the non-empty address lines in display order
func (a RegisteredOfficeAddress) Lines() []string {
	var lines []string
	for _, l := range []string{a.AddressLine1, a.AddressLine2, a.Locality, a.Region, a.PostalCode} {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// DocumentMetadata describes one document held by the Document API.
// Raw carries the full untouched response body for the sidecar file.
type DocumentMetadata struct {
	Resources map[string]DocumentResource `json:"resources"`

	Raw json.RawMessage `json:"-"`
}

// DocumentResource describes one available representation of a document
type DocumentResource struct {
	ContentLength int64 `json:"content_length"`
}

// HasXBRL reports whether the document advertises a machine-readable
// XBRL (xhtml) representation alongside the PDF.
func (m *DocumentMetadata) HasXBRL() bool {
	_, ok := m.Resources[ContentTypeXHTML]
	return ok
}

// CompanyData bundles the result of the composite fetch: one field per
// collection (nil when the fetch failed or the collection is absent)
// plus an error map keyed by collection name. Partial success is a
// normal outcome, not a failure of the whole operation.
type CompanyData struct {
	CompanyNumber    string            `json:"company_number"`
	Profile          json.RawMessage   `json:"profile,omitempty"`
	Officers         *PagedResponse    `json:"officers,omitempty"`
	FilingHistory    *PagedResponse    `json:"filing_history,omitempty"`
	Charges          *PagedResponse    `json:"charges,omitempty"`
	Insolvency       json.RawMessage   `json:"insolvency,omitempty"`
	PSC              *PagedResponse    `json:"psc,omitempty"`
	UKEstablishments *PagedResponse    `json:"uk_establishments,omitempty"`
	Exemptions       json.RawMessage   `json:"exemptions,omitempty"`
	Errors           map[string]string `json:"errors"`
}

// ProfileInfo decodes the raw profile snapshot into its typed view.
// Returns the zero value when no profile was fetched.
func (d *CompanyData) ProfileInfo() CompanyProfile {
	var profile CompanyProfile
	if len(d.Profile) > 0 {
		_ = json.Unmarshal(d.Profile, &profile)
	}
	return profile
}
