package api

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"

	http "github.com/bogdanfinn/fhttp"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	apierrors "github.com/Memphis465/nova/internal/errors"
	"github.com/Memphis465/nova/internal/models"
)

// MaxUploadSize caps the bytes read from an upload source
const MaxUploadSize = 50 * 1024 * 1024 // 50MB

// UploadFile sends the content of r as the multipart field "file" and
// returns the server path. Every failure, local or remote, collapses to
// models.UploadFailed() unless the server names its own error. No retry.
func (c *Client) UploadFile(ctx context.Context, name string, r io.Reader) models.UploadResult {
	body, contentType, err := buildUploadBody(name, r)
	if err != nil {
		c.logger.Warn("failed to prepare upload", "file", name, "error", err)
		return models.UploadFailed()
	}

	resp, err := c.do(ctx, http.MethodPost, models.EndpointUpload, contentType, body)
	if err != nil {
		c.logger.Warn("upload request failed", "file", name, "error", err)
		return models.UploadFailed()
	}

	result := parseUploadResponse(resp)
	if result.Failed() {
		c.logger.Warn("upload rejected", "file", name, "status", resp.status, "error", result.Error)
	}
	return result
}

func buildUploadBody(name string, r io.Reader) ([]byte, string, error) {
	if r == nil {
		return nil, "", apierrors.NewUploadError(name, "no content")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.SetBoundary("nova-" + uuid.NewString()); err != nil {
		return nil, "", err
	}

	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, "", err
	}
	n, err := io.Copy(part, io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, "", err
	}
	if n > MaxUploadSize {
		return nil, "", apierrors.NewUploadError(name, "file exceeds maximum upload size")
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return body.Bytes(), writer.FormDataContentType(), nil
}

func parseUploadResponse(resp *response) models.UploadResult {
	if !gjson.ValidBytes(resp.body) {
		return models.UploadFailed()
	}

	parsed := gjson.ParseBytes(resp.body)
	if msg := parsed.Get("error").String(); msg != "" {
		return models.UploadResult{Error: msg}
	}
	path := parsed.Get("file_path").String()
	if !resp.ok() || path == "" {
		return models.UploadFailed()
	}
	return models.UploadResult{FilePath: path}
}
