package api

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"sync"
	"testing"

	http "github.com/bogdanfinn/fhttp"

	apierrors "github.com/Memphis465/nova/internal/errors"
	"github.com/Memphis465/nova/internal/models"
)

// fakeDoer records requests and answers them with handler
type fakeDoer struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   [][]byte
	handler  func(req *http.Request, body []byte) (*http.Response, error)
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.bodies = append(f.bodies, body)
	f.mu.Unlock()
	return f.handler(req, body)
}

func (f *fakeDoer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func reply(status int, body string) func(*http.Request, []byte) (*http.Response, error) {
	return func(req *http.Request, _ []byte) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Header:     http.Header{"Content-Type": {"application/json"}},
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    req,
		}, nil
	}
}

func fail(err error) func(*http.Request, []byte) (*http.Response, error) {
	return func(*http.Request, []byte) (*http.Response, error) {
		return nil, err
	}
}

func newTestClient(t *testing.T, doer *fakeDoer, opts ...ClientOption) *Client {
	t.Helper()
	opts = append([]ClientOption{WithHTTPClient(doer)}, opts...)
	client, err := NewClient("http://nova.test/", opts...)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

type memStore map[string]string

func (m memStore) Get(key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m memStore) Set(key, value string) error {
	m[key] = value
	return nil
}

func (m memStore) Remove(key string) error {
	delete(m, key)
	return nil
}

func TestNewClient(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Error("NewClient(\"\") should fail")
	}

	client := newTestClient(t, &fakeDoer{})
	if client.BaseURL() != "http://nova.test" {
		t.Errorf("BaseURL() = %q, want trailing slash trimmed", client.BaseURL())
	}
	if got := client.URL(models.EndpointChat); got != "http://nova.test/api/chat" {
		t.Errorf("URL() = %q", got)
	}
}

func TestChat(t *testing.T) {
	tests := []struct {
		name      string
		handler   func(*http.Request, []byte) (*http.Response, error)
		want      models.ChatResponse
		wantErr   bool
		isNetwork bool
		status    int
	}{
		{
			name:    "reply",
			handler: reply(200, `{"response":"Hello there","extra":1}`),
			want:    models.ChatResponse{Response: "Hello there"},
		},
		{
			name:    "server error field",
			handler: reply(200, `{"error":"model overloaded"}`),
			want:    models.ChatResponse{Error: "model overloaded"},
		},
		{
			name:    "error field on failure status",
			handler: reply(503, `{"error":"offline"}`),
			want:    models.ChatResponse{Error: "offline"},
		},
		{
			name:    "failure status without error field",
			handler: reply(500, `{}`),
			wantErr: true,
			status:  500,
		},
		{
			name:    "html error page",
			handler: reply(502, `<html>bad gateway</html>`),
			wantErr: true,
			status:  502,
		},
		{
			name:    "non json success",
			handler: reply(200, `not json`),
			wantErr: true,
		},
		{
			name:      "transport failure",
			handler:   fail(errors.New("connection refused")),
			wantErr:   true,
			isNetwork: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, &fakeDoer{handler: tt.handler})

			got, err := client.Chat(context.Background(), "hi", "")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Chat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Chat() = %+v, want %+v", got, tt.want)
			}
			if tt.isNetwork && !apierrors.IsNetworkError(err) {
				t.Errorf("expected a network error, got %v", err)
			}
			if tt.status != 0 && apierrors.GetHTTPStatus(err) != tt.status {
				t.Errorf("GetHTTPStatus() = %d, want %d", apierrors.GetHTTPStatus(err), tt.status)
			}
		})
	}
}

func TestChat_RequestBody(t *testing.T) {
	doer := &fakeDoer{handler: reply(200, `{"response":"ok"}`)}
	client := newTestClient(t, doer)

	if _, err := client.Chat(context.Background(), "describe", "/uploads/a.png"); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if _, err := client.Chat(context.Background(), "plain", ""); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	req := doer.requests[0]
	if req.Method != http.MethodPost || req.URL.Path != models.EndpointChat {
		t.Errorf("request = %s %s", req.Method, req.URL.Path)
	}
	if ct := req.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if req.Header.Get("X-Request-Id") == "" {
		t.Error("missing X-Request-Id")
	}
	if got := string(doer.bodies[0]); got != `{"message":"describe","file_path":"/uploads/a.png"}` {
		t.Errorf("body = %s", got)
	}
	if got := string(doer.bodies[1]); got != `{"message":"plain"}` {
		t.Errorf("body without file = %s", got)
	}
}

func TestUploadFile(t *testing.T) {
	tests := []struct {
		name    string
		handler func(*http.Request, []byte) (*http.Response, error)
		want    models.UploadResult
	}{
		{"success", reply(200, `{"file_path":"/uploads/notes.txt"}`), models.UploadResult{FilePath: "/uploads/notes.txt"}},
		{"server error", reply(400, `{"error":"unsupported type"}`), models.UploadResult{Error: "unsupported type"}},
		{"transport failure", fail(errors.New("reset")), models.UploadFailed()},
		{"non json body", reply(200, `<html/>`), models.UploadFailed()},
		{"missing path", reply(200, `{}`), models.UploadFailed()},
		{"failure status without error", reply(500, `{"file_path":"/x"}`), models.UploadFailed()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, &fakeDoer{handler: tt.handler})
			got := client.UploadFile(context.Background(), "notes.txt", strings.NewReader("hello"))
			if got != tt.want {
				t.Errorf("UploadFile() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestUploadFile_Multipart(t *testing.T) {
	doer := &fakeDoer{handler: reply(200, `{"file_path":"/uploads/notes.txt"}`)}
	client := newTestClient(t, doer)

	client.UploadFile(context.Background(), "notes.txt", strings.NewReader("file content"))

	req := doer.requests[0]
	if req.URL.Path != models.EndpointUpload {
		t.Errorf("path = %s", req.URL.Path)
	}
	mediaType, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		t.Fatalf("Content-Type = %q (%v)", req.Header.Get("Content-Type"), err)
	}

	reader := multipart.NewReader(strings.NewReader(string(doer.bodies[0])), params["boundary"])
	part, err := reader.NextPart()
	if err != nil {
		t.Fatalf("NextPart() error = %v", err)
	}
	if part.FormName() != "file" || part.FileName() != "notes.txt" {
		t.Errorf("part = %s/%s, want file/notes.txt", part.FormName(), part.FileName())
	}
	data, _ := io.ReadAll(part)
	if string(data) != "file content" {
		t.Errorf("content = %q", data)
	}
}

func TestUploadFile_NilReader(t *testing.T) {
	doer := &fakeDoer{handler: reply(200, `{"file_path":"/x"}`)}
	client := newTestClient(t, doer)

	if got := client.UploadFile(context.Background(), "x", nil); got != models.UploadFailed() {
		t.Errorf("UploadFile(nil) = %+v", got)
	}
	if doer.count() != 0 {
		t.Error("nothing should be sent without content")
	}
}

func TestHistory_MirrorsSnapshot(t *testing.T) {
	body := `{"history":[{"role":"user","type":"text","message":"hi"},{"role":"assistant","type":"text","message":"hello"}]}`
	store := memStore{}
	client := newTestClient(t, &fakeDoer{handler: reply(200, body)}, WithSnapshotStore(store))

	entries, err := client.History(context.Background())
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 2 || entries[1].Message != "hello" || entries[0].Role != "user" {
		t.Errorf("History() = %+v", entries)
	}

	want := `[{"role":"user","type":"text","message":"hi"},{"role":"assistant","type":"text","message":"hello"}]`
	if store[models.StorageKeyHistory] != want {
		t.Errorf("snapshot = %s", store[models.StorageKeyHistory])
	}
}

func TestHistory_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler func(*http.Request, []byte) (*http.Response, error)
	}{
		{"server error", reply(500, `{"error":"db down"}`)},
		{"not json", reply(200, `oops`)},
		{"history not array", reply(200, `{"history":"nope"}`)},
		{"transport", fail(errors.New("refused"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memStore{models.StorageKeyHistory: `[{"role":"user","message":"kept"}]`}
			client := newTestClient(t, &fakeDoer{handler: tt.handler}, WithSnapshotStore(store))

			if _, err := client.History(context.Background()); err == nil {
				t.Error("History() should fail")
			}
			if store[models.StorageKeyHistory] != `[{"role":"user","message":"kept"}]` {
				t.Error("a failed fetch must not overwrite the snapshot")
			}
		})
	}
}

func TestHistory_MissingField(t *testing.T) {
	client := newTestClient(t, &fakeDoer{handler: reply(200, `{}`)})
	entries, err := client.History(context.Background())
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("History() = %+v, want empty", entries)
	}
}

func TestExportHistory(t *testing.T) {
	doc := `{"exported_at":"2024-01-01","items":[1,2,3]}`
	doer := &fakeDoer{handler: reply(200, doc)}
	client := newTestClient(t, doer)

	data, err := client.ExportHistory(context.Background())
	if err != nil {
		t.Fatalf("ExportHistory() error = %v", err)
	}
	if string(data) != doc {
		t.Errorf("ExportHistory() = %s", data)
	}
	if doer.requests[0].URL.Path != models.EndpointHistoryExport {
		t.Errorf("path = %s", doer.requests[0].URL.Path)
	}

	client = newTestClient(t, &fakeDoer{handler: reply(404, `{"error":"not found"}`)})
	if _, err := client.ExportHistory(context.Background()); apierrors.GetHTTPStatus(err) != 404 {
		t.Errorf("ExportHistory() error = %v, want status 404", err)
	}
}

func TestClearHistory(t *testing.T) {
	store := memStore{models.StorageKeyHistory: `[]`}
	doer := &fakeDoer{handler: reply(204, ``)}
	client := newTestClient(t, doer, WithSnapshotStore(store))

	if err := client.ClearHistory(context.Background()); err != nil {
		t.Fatalf("ClearHistory() error = %v", err)
	}
	if doer.requests[0].Method != http.MethodDelete {
		t.Errorf("method = %s", doer.requests[0].Method)
	}
	if _, ok := store[models.StorageKeyHistory]; ok {
		t.Error("snapshot should be removed")
	}

	client = newTestClient(t, &fakeDoer{handler: fail(errors.New("refused"))})
	if err := client.ClearHistory(context.Background()); !apierrors.IsNetworkError(err) {
		t.Errorf("ClearHistory() error = %v, want network error", err)
	}
}
