package models

// ChatRequest is the JSON body posted to the chat endpoint
type ChatRequest struct {
	Message  string `json:"message"`
	FilePath string `json:"file_path,omitempty"`
}

// ChatResponse is the decoded reply of the chat endpoint.
// Exactly one of Response or Error is meaningful.
type ChatResponse struct {
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Failed reports whether the server reported an error
func (r ChatResponse) Failed() bool {
	return r.Error != ""
}

// UploadResult is the outcome of an upload: a server path or an error
type UploadResult struct {
	FilePath string `json:"file_path,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Failed reports whether the upload produced an error
func (r UploadResult) Failed() bool {
	return r.Error != ""
}

// UploadFailed returns the result every transport failure collapses to
func UploadFailed() UploadResult {
	return UploadResult{Error: UploadFailedMessage}
}

// HistoryEntry is one record returned by the history endpoint
type HistoryEntry struct {
	Role    string `json:"role"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

// HistoryResponse is the body of GET /api/history
type HistoryResponse struct {
	History []HistoryEntry `json:"history"`
}
