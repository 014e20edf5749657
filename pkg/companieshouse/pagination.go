package companieshouse

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	apierrors "github.com/Thisiswallz/tool-companies-house-api/pkg/errors"
)

// page is the wire shape of one paginated Data API response. Different
// collections report their total under different keys: officers and
// filing history use total_count, others use total_results.
type page struct {
	Items        []json.RawMessage `json:"items"`
	TotalCount   int               `json:"total_count"`
	TotalResults int               `json:"total_results"`
}

func (p *page) total() int {
	if p.TotalCount > 0 {
		return p.TotalCount
	}
	return p.TotalResults
}

// paginatedGet fetches every page of a collection and returns the
// concatenated items. Pages advance by start_index until the server
// reports no more items, a partial page arrives, or the accumulated
// count reaches the advertised total.
//
// The page loop is capped so a server that keeps returning full pages
// cannot spin forever; hitting the cap returns what was collected so
// far with a warning rather than an error.
func (c *Client) paginatedGet(path string) (*PagedResponse, error) {
	var allItems []json.RawMessage
	startIndex := 0
	completed := false

	for i := 0; i < c.maxPages; i++ {
		query := url.Values{
			"items_per_page": {strconv.Itoa(c.itemsPerPage)},
			"start_index":    {strconv.Itoa(startIndex)},
		}

		body, err := c.dataGetBytes(path, query)
		if err != nil {
			return nil, err
		}

		var p page
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, apierrors.New(apierrors.ErrorTypeParsing,
				fmt.Sprintf("failed to parse page at %s (start_index %d): %v", path, startIndex, err))
		}

		if len(p.Items) == 0 {
			completed = true
			break
		}

		allItems = append(allItems, p.Items...)

		if len(p.Items) < c.itemsPerPage {
			completed = true
			break
		}
		if total := p.total(); total > 0 && len(allItems) >= total {
			completed = true
			break
		}

		startIndex += c.itemsPerPage
	}

	if !completed {
		c.logger.WarnWithFields("pagination stopped at iteration cap, results may be incomplete", map[string]interface{}{
			"path":      path,
			"items":     len(allItems),
			"max_pages": c.maxPages,
		})
	}

	return &PagedResponse{
		Items:        allItems,
		TotalResults: len(allItems),
	}, nil
}
