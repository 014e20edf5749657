package companieshouse

import "fmt"

// Content types advertised by the Document API.
const (
	ContentTypePDF   = "application/pdf"
	ContentTypeXHTML = "application/xhtml+xml"
)

func companyPath(companyNumber string) string {
	return fmt.Sprintf("/company/%s", companyNumber)
}

func officersPath(companyNumber string) string {
	return fmt.Sprintf("/company/%s/officers", companyNumber)
}

func filingHistoryPath(companyNumber string) string {
	return fmt.Sprintf("/company/%s/filing-history", companyNumber)
}

func chargesPath(companyNumber string) string {
	return fmt.Sprintf("/company/%s/charges", companyNumber)
}

func insolvencyPath(companyNumber string) string {
	return fmt.Sprintf("/company/%s/insolvency", companyNumber)
}

func pscPath(companyNumber string) string {
	return fmt.Sprintf("/company/%s/persons-with-significant-control", companyNumber)
}

func ukEstablishmentsPath(companyNumber string) string {
	return fmt.Sprintf("/company/%s/uk-establishments", companyNumber)
}

func exemptionsPath(companyNumber string) string {
	return fmt.Sprintf("/company/%s/exemptions", companyNumber)
}

func documentMetadataPath(documentID string) string {
	return fmt.Sprintf("/document/%s", documentID)
}

func documentContentPath(documentID string) string {
	return fmt.Sprintf("/document/%s/content", documentID)
}
