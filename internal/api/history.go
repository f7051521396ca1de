package api

import (
	"context"
	"encoding/json"
	"fmt"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	apierrors "github.com/Memphis465/nova/internal/errors"
	"github.com/Memphis465/nova/internal/history"
	"github.com/Memphis465/nova/internal/models"
)

// History fetches the conversation history. The raw history array is
// mirrored into the snapshot store so the offline fallback has data.
func (c *Client) History(ctx context.Context) ([]models.HistoryEntry, error) {
	resp, err := c.do(ctx, http.MethodGet, models.EndpointHistory, "", nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, apierrors.NewAPIError(resp.status, models.EndpointHistory, serverError(resp.body))
	}
	if !gjson.ValidBytes(resp.body) {
		return nil, fmt.Errorf("%w: history reply is not JSON", apierrors.ErrInvalidResponse)
	}

	raw := gjson.GetBytes(resp.body, "history")
	if !raw.Exists() {
		return []models.HistoryEntry{}, nil
	}
	if !raw.IsArray() {
		return nil, fmt.Errorf("%w: history is not an array", apierrors.ErrInvalidResponse)
	}

	var entries []models.HistoryEntry
	if err := json.Unmarshal([]byte(raw.Raw), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", apierrors.ErrInvalidResponse, err)
	}

	if c.snapshots != nil {
		if err := history.SaveRaw(c.snapshots, raw.Raw); err != nil {
			c.logger.Warn("failed to save history snapshot", "error", err)
		}
	}
	return entries, nil
}

// ExportHistory returns the export document verbatim
func (c *Client) ExportHistory(ctx context.Context) ([]byte, error) {
	resp, err := c.do(ctx, http.MethodGet, models.EndpointHistoryExport, "", nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, apierrors.NewAPIError(resp.status, models.EndpointHistoryExport, serverError(resp.body))
	}
	return resp.body, nil
}

// ClearHistory deletes the server-side history and the local snapshot
func (c *Client) ClearHistory(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodDelete, models.EndpointHistory, "", nil)
	if err != nil {
		return err
	}
	if !resp.ok() {
		return apierrors.NewAPIError(resp.status, models.EndpointHistory, serverError(resp.body))
	}

	if c.snapshots != nil {
		if err := history.ClearSnapshot(c.snapshots); err != nil {
			c.logger.Warn("failed to clear history snapshot", "error", err)
		}
	}
	return nil
}

// serverError extracts {"error": ...} from a body, if present
func serverError(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	return gjson.GetBytes(body, "error").String()
}
