package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"

	"pengaduan/internal/model"
)

// UpdateTindakan replaces the action record of a report.
//
// API Details:
//   - Endpoint: PUT /tindakan/{reportId}
//   - Body: the complete action record
//   - Response: the stored record (bare or wrapped in {"data": ...})
func (c *Client) UpdateTindakan(ctx context.Context, reportID string, t *model.Tindakan) (*model.Tindakan, error) {
	path := "/tindakan/" + url.PathEscape(reportID)
	log.Printf("  → Saving tindakan of report %s (status %q)...", reportID, t.Status)

	var raw json.RawMessage
	if err := c.do(ctx, "PUT", path, t, &raw); err != nil {
		return nil, err
	}

	var stored model.Tindakan
	if len(raw) > 0 {
		if err := decodeEnveloped(raw, &stored, "data", "tindakan"); err != nil {
			return nil, fmt.Errorf("failed to parse stored tindakan: %w", err)
		}
	}

	log.Printf("  ✓ Tindakan of report %s saved", reportID)
	return &stored, nil
}

// UpdateProcessedBy records which admin processed a report.
//
// API Details:
//   - Endpoint: PATCH /tindakan/{reportId}/processed-by
//   - Body: {"userLoginId": "<admin ObjectId>"}
func (c *Client) UpdateProcessedBy(ctx context.Context, reportID, userLoginID string) error {
	path := "/tindakan/" + url.PathEscape(reportID) + "/processed-by"
	body := map[string]string{"userLoginId": userLoginID}
	return c.do(ctx, "PATCH", path, body, nil)
}

type kesimpulanRequest struct {
	Text string `json:"text"`
}

// AddKesimpulan appends a follow-up note and returns the server's list.
//
// API Details:
//   - Endpoint: POST /tindakan/{actionId}/kesimpulan
func (c *Client) AddKesimpulan(ctx context.Context, actionID, text string) ([]model.Kesimpulan, error) {
	path := "/tindakan/" + url.PathEscape(actionID) + "/kesimpulan"
	return c.kesimpulanCall(ctx, "POST", path, &kesimpulanRequest{Text: text})
}

// EditKesimpulan rewrites the note at index and returns the server's list.
//
// API Details:
//   - Endpoint: PUT /tindakan/{actionId}/kesimpulan/{index}
func (c *Client) EditKesimpulan(ctx context.Context, actionID string, index int, text string) ([]model.Kesimpulan, error) {
	path := fmt.Sprintf("/tindakan/%s/kesimpulan/%d", url.PathEscape(actionID), index)
	return c.kesimpulanCall(ctx, "PUT", path, &kesimpulanRequest{Text: text})
}

// DeleteKesimpulan removes the note at index and returns the server's list.
//
// API Details:
//   - Endpoint: DELETE /tindakan/{actionId}/kesimpulan/{index}
func (c *Client) DeleteKesimpulan(ctx context.Context, actionID string, index int) ([]model.Kesimpulan, error) {
	path := fmt.Sprintf("/tindakan/%s/kesimpulan/%d", url.PathEscape(actionID), index)
	return c.kesimpulanCall(ctx, "DELETE", path, nil)
}

func (c *Client) kesimpulanCall(ctx context.Context, method, path string, body interface{}) ([]model.Kesimpulan, error) {
	var raw json.RawMessage
	if err := c.do(ctx, method, path, body, &raw); err != nil {
		return nil, err
	}

	list := []model.Kesimpulan{}
	if len(raw) == 0 {
		return list, nil
	}
	if err := decodeEnveloped(raw, &list, "kesimpulan", "data"); err != nil {
		return nil, fmt.Errorf("failed to parse kesimpulan list: %w", err)
	}
	return list, nil
}

// decodeEnveloped decodes raw into out, first unwrapping the first of keys
// that is present when raw is an envelope object. Nested envelopes such as
// {"data": {"kesimpulan": [...]}} are unwrapped as well.
func decodeEnveloped(raw json.RawMessage, out interface{}, keys ...string) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, key := range keys {
			if inner, ok := obj[key]; ok {
				return decodeEnveloped(inner, out, keys...)
			}
		}
	}
	return json.Unmarshal(raw, out)
}
