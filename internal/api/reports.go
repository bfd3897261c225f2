package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	apperrors "pengaduan/internal/errors"
	"pengaduan/internal/model"
)

// GetReport fetches a single report together with its action record.
//
// This is the explicit refetch the workflow engine uses to resynchronise
// after a successful mutation.
func (c *Client) GetReport(ctx context.Context, id string) (*model.Report, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "GET", "/reports/"+url.PathEscape(id), nil, &raw); err != nil {
		return nil, err
	}

	var report model.Report
	if err := decodeEnveloped(raw, &report, "data", "report"); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// ListReports fetches one page of the report listing.
//
// The backend answers either with a paginated envelope
// ({"data": [...], "page": 1, ...}) or with a bare array; both are returned
// as a ReportPage.
func (c *Client) ListReports(ctx context.Context, page, limit int) (*model.ReportPage, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(page))
	q.Set("limit", fmt.Sprint(limit))

	var raw json.RawMessage
	if err := c.do(ctx, "GET", "/reports?"+q.Encode(), nil, &raw); err != nil {
		return nil, err
	}

	var result model.ReportPage
	if err := json.Unmarshal(raw, &result.Data); err == nil {
		result.Page = page
		result.Limit = limit
		result.TotalCount = len(result.Data)
		result.TotalPages = page
		if len(result.Data) == limit {
			result.TotalPages = page + 1
		}
		return &result, nil
	}

	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to parse report listing: %w", err)
	}
	if result.Page == 0 {
		result.Page = page
	}
	return &result, nil
}

// SetMode toggles a named operating mode of the dashboard backend
// (for example automatic verification).
//
// API Details:
//   - Endpoint: PUT /mode/{name}
//   - Body: {"active": true|false}
//
// Mode toggles pass the strict mode limiter before the general one.
func (c *Client) SetMode(ctx context.Context, name string, active bool) error {
	path := "/mode/" + url.PathEscape(name)

	if c.modeGate != nil {
		key := RequestKey("PUT", modePath(c.baseURL, path))
		if !c.modeGate.IsAllowed(key) {
			return apperrors.NewRateLimitError(key)
		}
	}

	return c.do(ctx, "PUT", path, map[string]bool{"active": active}, nil)
}

// modePath returns the URL path a request to path will carry, so the mode
// limiter keys match the transport's keys.
func modePath(baseURL, path string) string {
	u, err := url.Parse(baseURL + path)
	if err != nil {
		return path
	}
	return u.Path
}
