// Package errors provides custom error types for the Nova client.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrOffline         = errors.New("offline")
	ErrEmptyMessage    = errors.New("message and file are both empty")
	ErrInvalidResponse = errors.New("invalid response format")
	ErrCacheMiss       = errors.New("no cached response")
	ErrUploadFailed    = errors.New("upload failed")
	ErrUnsupported     = errors.New("not supported on this system")
)

// APIError represents a non-successful response from the backend
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error [%d] at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("API error at %s: %s", e.Endpoint, e.Message)
}

// NewAPIError creates a new APIError
func NewAPIError(statusCode int, endpoint, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Message:    message,
	}
}

// NetworkError represents a transport failure: the request never produced a response
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("network error at %s", e.Endpoint)
	}
	return fmt.Sprintf("network error at %s: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is allows comparison with sentinel errors
func (e *NetworkError) Is(target error) bool {
	if target == ErrOffline {
		return true
	}
	_, ok := target.(*NetworkError)
	return ok
}

// NewNetworkError creates a new NetworkError
func NewNetworkError(endpoint string, err error) *NetworkError {
	return &NetworkError{Endpoint: endpoint, Err: err}
}

// UploadError represents an upload that did not yield a file path
type UploadError struct {
	FileName string
	Message  string
}

func (e *UploadError) Error() string {
	if e.FileName == "" {
		return fmt.Sprintf("upload failed: %s", e.Message)
	}
	return fmt.Sprintf("upload of %s failed: %s", e.FileName, e.Message)
}

// Is allows comparison with sentinel errors
func (e *UploadError) Is(target error) bool {
	if target == ErrUploadFailed {
		return true
	}
	_, ok := target.(*UploadError)
	return ok
}

// NewUploadError creates a new UploadError
func NewUploadError(fileName, message string) *UploadError {
	return &UploadError{FileName: fileName, Message: message}
}

// CacheError represents a failure of the offline cache storage
type CacheError struct {
	Op    string
	Cache string
	Err   error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s %q: %v", e.Op, e.Cache, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// NewCacheError creates a new CacheError
func NewCacheError(op, cache string, err error) *CacheError {
	return &CacheError{Op: op, Cache: cache, Err: err}
}

// IsNetworkError reports whether err is (or wraps) a transport failure
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsUploadError reports whether err is (or wraps) an upload failure
func IsUploadError(err error) bool {
	return errors.Is(err, ErrUploadFailed)
}

// IsCacheMiss reports whether err signals a missing cache entry
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// GetHTTPStatus returns the HTTP status carried by err, or 0
func GetHTTPStatus(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// GetEndpoint returns the endpoint carried by err, or ""
func GetEndpoint(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Endpoint
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Endpoint
	}
	return ""
}
