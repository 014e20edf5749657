// Package companieshouse provides a client for the Companies House Data
// API and Document API.
//
// The Data API serves structured JSON about a company across eight
// collections (profile, officers, filing history, charges, insolvency,
// persons with significant control, UK establishments, exemptions); the
// Document API serves filing document metadata and content (PDF/XBRL).
//
// Both APIs authenticate with the same key via HTTP basic auth and share
// a single rate limiter (600 requests per 5 minutes across the two).
// Every collection operation validates and normalizes the company number
// before any request goes out, so an unnormalized id never reaches the
// wire. Paginated collections are fetched to completion automatically.
//
// The client never retries on its own: 401 and 429 are fatal, 5xx is
// surfaced to the caller, and 404 is either absorbed as an empty result
// (insolvency, exemptions, UK establishments) or propagated as a
// not-found error depending on the collection.
package companieshouse
