package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// QueryResponse is one page of a cursor-paginated query result.
type QueryResponse struct {
	TotalSize      int               `json:"totalSize"`
	Done           bool              `json:"done"`
	NextRecordsURL string            `json:"nextRecordsUrl"`
	Records        []json.RawMessage `json:"records"`
}

// Query runs a SOQL query and drains every page into one slice, in
// arrival order. The first page is fetched with the query itself;
// subsequent pages follow the returned continuation path until the
// upstream reports done. Any failure discards pages already fetched: the
// caller gets the complete result set or an error, never a partial one.
func (c *Client) Query(ctx context.Context, soql string) ([]json.RawMessage, error) {
	soql = strings.TrimSpace(soql)
	if soql == "" {
		return nil, fmt.Errorf("salesforce: query is required")
	}

	path := fmt.Sprintf("/services/data/%s/query?q=%s", c.Config.apiVersion(), url.QueryEscape(soql))

	var records []json.RawMessage
	for {
		res, err := c.Do(ctx, http.MethodGet, path)
		if err != nil {
			return nil, err
		}

		var page QueryResponse
		if err := json.Unmarshal(res.Body, &page); err != nil {
			return nil, &APIError{
				Kind:       KindMalformed,
				StatusCode: res.StatusCode,
				Message:    fmt.Sprintf("decode query response: %v", err),
				Body:       res.Body,
			}
		}

		records = append(records, page.Records...)

		if page.Done {
			return records, nil
		}
		if strings.TrimSpace(page.NextRecordsURL) == "" {
			return nil, &APIError{
				Kind:    KindMalformed,
				Message: "query page not done but missing nextRecordsUrl",
			}
		}
		path = c.continuationPath(page.NextRecordsURL)
	}
}

// continuationPath turns the upstream's absolute nextRecordsUrl into a
// path relative to the configured instance.
func (c *Client) continuationPath(next string) string {
	base := strings.TrimRight(c.Config.InstanceURL, "/")
	if base != "" && strings.HasPrefix(next, base) {
		next = strings.TrimPrefix(next, base)
	}
	if !strings.HasPrefix(next, "/") {
		next = "/" + next
	}
	return next
}
