package companieshouse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Thisiswallz/tool-companies-house-api/pkg/config"
	apierrors "github.com/Thisiswallz/tool-companies-house-api/pkg/errors"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/logger"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/ratelimit"
	"github.com/Thisiswallz/tool-companies-house-api/pkg/validate"
)

// Client talks to the Companies House Data API and Document API. A
// single rate limiter gates every outbound request to either service.
type Client struct {
	httpClient  *http.Client
	rateLimiter ratelimit.Limiter
	logger      logger.Logger

	apiKey       string
	dataBaseURL  string
	docBaseURL   string
	userAgent    string
	itemsPerPage int
	maxPages     int
}

// NewClient creates a Companies House API client from the configuration.
// The API key is validated up front so a bad key fails before the first
// request rather than as a mid-run 401.
func NewClient(cfg *config.Config, log logger.Logger) (*Client, error) {
	if err := validate.APIKey(cfg.API.Key); err != nil {
		return nil, err
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.HTTP.Timeout,
		},
		rateLimiter:  ratelimit.NewSlidingWindow(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window),
		logger:       log,
		apiKey:       cfg.API.Key,
		dataBaseURL:  cfg.API.DataBaseURL,
		docBaseURL:   cfg.API.DocumentBaseURL,
		userAgent:    cfg.API.UserAgent,
		itemsPerPage: cfg.HTTP.ItemsPerPage,
		maxPages:     cfg.HTTP.MaxPageIterations,
	}, nil
}

// get performs one rate-limited GET against the given base URL.
// Every request, data or document, passes through the shared limiter.
func (c *Client) get(baseURL, path string, query url.Values, accept string) (*http.Response, error) {
	c.rateLimiter.WaitIfNeeded()

	u := baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, apierrors.New(apierrors.ErrorTypeNetwork,
			fmt.Sprintf("failed to create request for %s: %v", path, err))
	}

	// HTTP basic auth: key as username, empty password
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("User-Agent", c.userAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierrors.New(apierrors.ErrorTypeNetwork,
			fmt.Sprintf("request to %s failed: %v", path, err))
	}

	c.logger.DebugWithFields("API request", map[string]interface{}{
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	return resp, nil
}

// dataGet performs a GET against the Data API
func (c *Client) dataGet(path string, query url.Values) (*http.Response, error) {
	return c.get(c.dataBaseURL, path, query, "")
}

// checkStatus maps a non-2xx response to a typed error. The body is
// drained and closed on error so the connection can be reused.
func (c *Client) checkStatus(resp *http.Response, path string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return apierrors.NewWithCode(apierrors.ErrorTypeAuth, resp.StatusCode,
			fmt.Sprintf("authentication failed for %s: check your API key", path))
	case resp.StatusCode == http.StatusNotFound:
		return apierrors.NewWithCode(apierrors.ErrorTypeNotFound, resp.StatusCode,
			fmt.Sprintf("resource not found: %s", path))
	case resp.StatusCode == http.StatusTooManyRequests:
		return apierrors.NewWithCode(apierrors.ErrorTypeRateLimit, resp.StatusCode,
			fmt.Sprintf("rate limit exceeded despite rate limiter on %s", path))
	case resp.StatusCode >= 500:
		return apierrors.NewWithCode(apierrors.ErrorTypeServerError, resp.StatusCode,
			fmt.Sprintf("server error on %s", path))
	default:
		return apierrors.NewWithCode(apierrors.ErrorTypeUnknown, resp.StatusCode,
			fmt.Sprintf("unexpected status %d on %s", resp.StatusCode, path))
	}
}

// dataGetBytes fetches a Data API resource and returns the raw body
func (c *Client) dataGetBytes(path string, query url.Values) ([]byte, error) {
	resp, err := c.dataGet(path, query)
	if err != nil {
		return nil, err
	}
	if err := c.checkStatus(resp, path); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierrors.New(apierrors.ErrorTypeNetwork,
			fmt.Sprintf("failed to read response body from %s: %v", path, err))
	}
	return body, nil
}

// GetCompanyProfile fetches the company profile. The body is returned
// raw so the on-disk snapshot matches the API byte-for-byte.
func (c *Client) GetCompanyProfile(companyNumber string) (json.RawMessage, error) {
	number, err := validate.CompanyNumber(companyNumber)
	if err != nil {
		return nil, err
	}
	return c.dataGetBytes(companyPath(number), nil)
}

// GetOfficers fetches every page of the company's officers
func (c *Client) GetOfficers(companyNumber string) (*PagedResponse, error) {
	number, err := validate.CompanyNumber(companyNumber)
	if err != nil {
		return nil, err
	}
	return c.paginatedGet(officersPath(number))
}

// GetFilingHistory fetches every page of the company's filing history
func (c *Client) GetFilingHistory(companyNumber string) (*PagedResponse, error) {
	number, err := validate.CompanyNumber(companyNumber)
	if err != nil {
		return nil, err
	}
	return c.paginatedGet(filingHistoryPath(number))
}

// GetCharges fetches every page of the company's charges
func (c *Client) GetCharges(companyNumber string) (*PagedResponse, error) {
	number, err := validate.CompanyNumber(companyNumber)
	if err != nil {
		return nil, err
	}
	return c.paginatedGet(chargesPath(number))
}

// GetPSC fetches every page of the company's persons with significant
// control.
func (c *Client) GetPSC(companyNumber string) (*PagedResponse, error) {
	number, err := validate.CompanyNumber(companyNumber)
	if err != nil {
		return nil, err
	}
	return c.paginatedGet(pscPath(number))
}

// GetInsolvency fetches the company's insolvency details. Most
// companies have none; a 404 here means "no insolvency history" and is
// returned as (nil, nil) rather than an error.
func (c *Client) GetInsolvency(companyNumber string) (json.RawMessage, error) {
	number, err := validate.CompanyNumber(companyNumber)
	if err != nil {
		return nil, err
	}
	body, err := c.dataGetBytes(insolvencyPath(number), nil)
	if apierrors.IsNotFound(err) {
		return nil, nil
	}
	return body, err
}

// GetExemptions fetches the company's exemptions. As with insolvency,
// 404 means the company has none and is absorbed.
func (c *Client) GetExemptions(companyNumber string) (json.RawMessage, error) {
	number, err := validate.CompanyNumber(companyNumber)
	if err != nil {
		return nil, err
	}
	body, err := c.dataGetBytes(exemptionsPath(number), nil)
	if apierrors.IsNotFound(err) {
		return nil, nil
	}
	return body, err
}

// GetUKEstablishments fetches the company's UK establishments. Only
// overseas companies have any; a 404 is absorbed as an empty list.
func (c *Client) GetUKEstablishments(companyNumber string) (*PagedResponse, error) {
	number, err := validate.CompanyNumber(companyNumber)
	if err != nil {
		return nil, err
	}
	result, err := c.paginatedGet(ukEstablishmentsPath(number))
	if apierrors.IsNotFound(err) {
		return &PagedResponse{Items: []json.RawMessage{}}, nil
	}
	return result, err
}

// GetAllData fetches all eight collections for a company in a fixed
// order. A failing collection is recorded in Errors under its name and
// the fetch continues; the caller decides how much partial data is
// enough.
func (c *Client) GetAllData(companyNumber string) *CompanyData {
	// The bundle carries the normalized id. An invalid id is left as
	// given; every collection fetch then records its validation error.
	if number, err := validate.CompanyNumber(companyNumber); err == nil {
		companyNumber = number
	}

	data := &CompanyData{
		CompanyNumber: companyNumber,
		Errors:        make(map[string]string),
	}

	fetches := []struct {
		name  string
		fetch func() error
	}{
		{CollectionProfile, func() error {
			body, err := c.GetCompanyProfile(companyNumber)
			data.Profile = body
			return err
		}},
		{CollectionOfficers, func() error {
			result, err := c.GetOfficers(companyNumber)
			data.Officers = result
			return err
		}},
		{CollectionFilingHistory, func() error {
			result, err := c.GetFilingHistory(companyNumber)
			data.FilingHistory = result
			return err
		}},
		{CollectionCharges, func() error {
			result, err := c.GetCharges(companyNumber)
			data.Charges = result
			return err
		}},
		{CollectionInsolvency, func() error {
			body, err := c.GetInsolvency(companyNumber)
			data.Insolvency = body
			return err
		}},
		{CollectionPSC, func() error {
			result, err := c.GetPSC(companyNumber)
			data.PSC = result
			return err
		}},
		{CollectionUKEstablishments, func() error {
			result, err := c.GetUKEstablishments(companyNumber)
			data.UKEstablishments = result
			return err
		}},
		{CollectionExemptions, func() error {
			body, err := c.GetExemptions(companyNumber)
			data.Exemptions = body
			return err
		}},
	}

	for _, f := range fetches {
		if err := f.fetch(); err != nil {
			c.logger.WarnWithFields("collection fetch failed", map[string]interface{}{
				"company":    companyNumber,
				"collection": f.name,
				"error":      err.Error(),
			})
			data.Errors[f.name] = err.Error()
		}
	}

	return data
}

// GetDocumentMetadata fetches a document's metadata from the Document
// API. Raw holds the untouched body for the sidecar file.
func (c *Client) GetDocumentMetadata(documentID string) (*DocumentMetadata, error) {
	path := documentMetadataPath(documentID)
	resp, err := c.get(c.docBaseURL, path, nil, "")
	if err != nil {
		return nil, err
	}
	if err := c.checkStatus(resp, path); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierrors.New(apierrors.ErrorTypeNetwork,
			fmt.Sprintf("failed to read document metadata %s: %v", documentID, err))
	}

	var meta DocumentMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, apierrors.New(apierrors.ErrorTypeParsing,
			fmt.Sprintf("failed to parse document metadata %s: %v", documentID, err))
	}
	meta.Raw = body

	return &meta, nil
}

// GetDocumentContent fetches a document's content from the Document
// API. The Accept header selects the representation (PDF or XBRL); the
// response body is returned unread so the caller can stream it to disk.
// The caller owns the body and must close it.
func (c *Client) GetDocumentContent(documentID, accept string) (*http.Response, error) {
	path := documentContentPath(documentID)
	resp, err := c.get(c.docBaseURL, path, nil, accept)
	if err != nil {
		return nil, err
	}
	if err := c.checkStatus(resp, path); err != nil {
		return nil, err
	}
	return resp, nil
}
