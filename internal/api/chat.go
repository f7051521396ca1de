package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	http "github.com/bogdanfinn/fhttp"
	"github.com/tidwall/gjson"

	apierrors "github.com/Memphis465/nova/internal/errors"
	"github.com/Memphis465/nova/internal/models"
)

// Chat posts a message, optionally referencing an uploaded file.
// A server-reported {"error": ...} comes back in the response; a transport
// failure or an undecodable body is returned as an error.
func (c *Client) Chat(ctx context.Context, message, filePath string) (models.ChatResponse, error) {
	payload, err := json.Marshal(models.ChatRequest{Message: message, FilePath: filePath})
	if err != nil {
		return models.ChatResponse{}, fmt.Errorf("failed to encode chat request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, models.EndpointChat, "application/json", payload)
	if err != nil {
		return models.ChatResponse{}, err
	}

	return parseChatResponse(resp)
}

func parseChatResponse(resp *response) (models.ChatResponse, error) {
	if !gjson.ValidBytes(resp.body) {
		if !resp.ok() {
			return models.ChatResponse{}, apierrors.NewAPIError(resp.status, models.EndpointChat, strings.TrimSpace(string(resp.body)))
		}
		return models.ChatResponse{}, fmt.Errorf("%w: chat reply is not JSON", apierrors.ErrInvalidResponse)
	}

	parsed := gjson.ParseBytes(resp.body)
	if msg := parsed.Get("error"); msg.Exists() && msg.String() != "" {
		return models.ChatResponse{Error: msg.String()}, nil
	}
	if !resp.ok() {
		return models.ChatResponse{}, apierrors.NewAPIError(resp.status, models.EndpointChat, "")
	}

	return models.ChatResponse{Response: parsed.Get("response").String()}, nil
}
