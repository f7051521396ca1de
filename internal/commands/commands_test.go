package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	http "github.com/bogdanfinn/fhttp"

	"github.com/Memphis465/nova/internal/chat"
	"github.com/Memphis465/nova/internal/config"
	"github.com/Memphis465/nova/internal/localstore"
	"github.com/Memphis465/nova/internal/models"
	"github.com/Memphis465/nova/internal/sw"
	"github.com/Memphis465/nova/internal/tui"
)

type recordedRequest struct {
	method string
	path   string
	body   string
	header http.Header
}

// fakeNetwork answers backend requests by "METHOD /path" and can go offline
type fakeNetwork struct {
	mu       sync.Mutex
	routes   map[string]string
	statuses map[string]int
	offline  bool
	requests []recordedRequest
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{
		routes: map[string]string{
			"GET /":                     "<html>nova</html>",
			"GET /static/app.js":        "// app",
			"GET /static/index.html":    "<html>index</html>",
			"GET /static/manifest.json": `{"name":"Nova"}`,
			"GET /static/sw.js":         "// sw",
			"POST /api/chat":            `{"response":"Hello there"}`,
			"POST /api/upload":          `{"file_path":"/uploads/notes.txt"}`,
			"GET /api/history":          `{"history":[{"role":"user","type":"text","message":"what is go"},{"role":"assistant","type":"text","message":"Go is a language"}]}`,
			"GET /api/history/export":   `{"exported":true}`,
			"DELETE /api/history":       `{"status":"cleared"}`,
		},
		statuses: map[string]int{},
	}
}

func (f *fakeNetwork) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, recordedRequest{
		method: req.Method,
		path:   req.URL.Path,
		body:   string(body),
		header: req.Header.Clone(),
	})
	if f.offline {
		return nil, io.ErrUnexpectedEOF
	}

	key := req.Method + " " + req.URL.Path
	payload, ok := f.routes[key]
	status := http.StatusOK
	if !ok {
		payload, status = "not found", http.StatusNotFound
	}
	if s, ok := f.statuses[key]; ok {
		status = s
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(payload)),
		Request:    req,
	}, nil
}

func (f *fakeNetwork) set(key, payload string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[key] = payload
	f.statuses[key] = status
}

func (f *fakeNetwork) setOffline(offline bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offline = offline
}

func (f *fakeNetwork) find(method, path string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedRequest
	for _, r := range f.requests {
		if r.method == method && r.path == path {
			out = append(out, r)
		}
	}
	return out
}

// fakeTUI records the chat screen it was asked to run
type fakeTUI struct {
	called  bool
	model   tui.Model
	watcher tui.ThemeWatcher
}

func (f *fakeTUI) RunChat(_ context.Context, m tui.Model, watcher tui.ThemeWatcher) (chat.State, error) {
	f.called = true
	f.model = m
	f.watcher = watcher
	return m.State(), nil
}

type testEnv struct {
	deps    *Dependencies
	network *fakeNetwork
	storage *sw.MemoryStorage
	store   *localstore.Store
	tui     *fakeTUI
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigDir, dir)
	t.Setenv(config.EnvBaseURL, "http://nova.test")

	store, err := localstore.New(filepath.Join(dir, localstore.FileName))
	if err != nil {
		t.Fatalf("localstore.New() error = %v", err)
	}

	env := &testEnv{
		network: newFakeNetwork(),
		storage: sw.NewMemoryStorage(64),
		store:   store,
		tui:     &fakeTUI{},
	}
	env.deps = &Dependencies{
		Network: env.network,
		Store:   store,
		Storage: env.storage,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		TUI:     env.tui,
	}
	return env
}

func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd(e.deps)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand_Structure(t *testing.T) {
	cmd := NewRootCmd(nil)
	if cmd.Use != "nova [message]" {
		t.Errorf("Expected use 'nova [message]', got %s", cmd.Use)
	}
	if cmd.Short == "" || cmd.Long == "" {
		t.Error("descriptions should not be empty")
	}

	expected := []string{"chat", "history", "cache", "config", "theme", "proxy"}
	for _, name := range expected {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Subcommand %s not found", name)
		}
	}
}

func TestRootCommand_Version(t *testing.T) {
	env := newTestEnv(t)

	for _, flag := range []string{"-v", "--version"} {
		t.Run(flag, func(t *testing.T) {
			out, _, err := env.run(t, "", flag)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if !strings.Contains(out, "nova "+Version) {
				t.Errorf("output = %q, want version", out)
			}
		})
	}
}

func TestRootCommand_NoInputShowsHelp(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run(t, "")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out, "Usage:") {
		t.Errorf("expected help output, got %q", out)
	}
	if got := env.network.find("POST", models.EndpointChat); len(got) != 0 {
		t.Errorf("no message should be sent, got %d chat requests", len(got))
	}
}

func TestQuery_SendsMessage(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run(t, "", "what is go")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out != "Hello there\n" {
		t.Errorf("output = %q, want reply text", out)
	}

	chats := env.network.find("POST", models.EndpointChat)
	if len(chats) != 1 {
		t.Fatalf("chat requests = %d, want 1", len(chats))
	}
	var req models.ChatRequest
	if err := json.Unmarshal([]byte(chats[0].body), &req); err != nil {
		t.Fatalf("chat body is not JSON: %v", err)
	}
	if req.Message != "what is go" || req.FilePath != "" {
		t.Errorf("chat request = %+v", req)
	}
	if len(env.network.find("POST", models.EndpointUpload)) != 0 {
		t.Error("no upload expected without a file")
	}
}

func TestQuery_RegistersWorker(t *testing.T) {
	env := newTestEnv(t)

	if _, _, err := env.run(t, "", "hi"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	ok, err := env.storage.Has(context.Background(), models.DefaultCacheName)
	if err != nil || !ok {
		t.Fatalf("cache %s should be installed (ok=%v, err=%v)", models.DefaultCacheName, ok, err)
	}
	for _, asset := range models.StaticAssets() {
		if len(env.network.find("GET", asset)) == 0 {
			t.Errorf("asset %s was not pre-cached", asset)
		}
	}
}

func TestQuery_ReadsStdin(t *testing.T) {
	env := newTestEnv(t)

	if _, _, err := env.run(t, "piped message\n"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	chats := env.network.find("POST", models.EndpointChat)
	if len(chats) != 1 || !strings.Contains(chats[0].body, "piped message") {
		t.Fatalf("chat requests = %+v", chats)
	}
}

func TestQuery_WithFile(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("some notes"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, _, err := env.run(t, "", "summarize", "-f", path)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if strings.TrimSpace(out) != "Hello there" {
		t.Errorf("output = %q", out)
	}

	uploads := env.network.find("POST", models.EndpointUpload)
	if len(uploads) != 1 {
		t.Fatalf("upload requests = %d, want 1", len(uploads))
	}
	if !strings.Contains(uploads[0].body, "some notes") || !strings.Contains(uploads[0].body, `filename="notes.txt"`) {
		t.Errorf("upload body does not carry the file: %q", uploads[0].body)
	}

	chats := env.network.find("POST", models.EndpointChat)
	if len(chats) != 1 {
		t.Fatalf("chat requests = %d, want 1", len(chats))
	}
	var req models.ChatRequest
	_ = json.Unmarshal([]byte(chats[0].body), &req)
	if req.Message != "summarize" || req.FilePath != "/uploads/notes.txt" {
		t.Errorf("chat request = %+v", req)
	}
}

func TestQuery_FileOnly(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "photo.png")
	if err := os.WriteFile(path, []byte("png"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, _, err := env.run(t, "", "-f", path); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(env.network.find("POST", models.EndpointUpload)) != 1 {
		t.Error("file-only send should upload")
	}
}

func TestQuery_MissingFile(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run(t, "", "hi", "-f", filepath.Join(t.TempDir(), "missing.txt"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if len(env.network.requests) != 0 {
		t.Error("nothing should be sent when the file is missing")
	}
}

func TestQuery_Failures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(n *fakeNetwork)
		wantErr string
	}{
		{
			name:    "network down",
			setup:   func(n *fakeNetwork) { n.setOffline(true) },
			wantErr: models.ServerErrorPrefix + models.OfflineMessage,
		},
		{
			name: "server error",
			setup: func(n *fakeNetwork) {
				n.set("POST "+models.EndpointChat, `{"error":"model overloaded"}`, http.StatusInternalServerError)
			},
			wantErr: "Error: model overloaded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			tt.setup(env.network)

			out, _, err := env.run(t, "", "hi")
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != tt.wantErr {
				t.Errorf("error = %q, want %q", err.Error(), tt.wantErr)
			}
			if out != "" {
				t.Errorf("nothing should be printed on failure, got %q", out)
			}
		})
	}
}

func TestQuery_OutputFile(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(t.TempDir(), "reply.md")

	out, _, err := env.run(t, "", "hi", "-o", path)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out != "" {
		t.Errorf("stdout = %q, want empty", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("output file: %v", err)
	}
	if string(data) != "Hello there" {
		t.Errorf("output file = %q", data)
	}
}

func TestQuery_ReplyLookingLikeErrorSucceeds(t *testing.T) {
	env := newTestEnv(t)
	env.network.set("POST "+models.EndpointChat, `{"response":"Error: 404 means not found"}`, http.StatusOK)

	out, _, err := env.run(t, "", "what is a 404")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out != "Error: 404 means not found\n" {
		t.Errorf("output = %q", out)
	}
}

func TestSpinnerLifecycle(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(&buf, "Sending")
	s.start()
	time.Sleep(100 * time.Millisecond)
	s.stopWithSuccess("done")
	s.stopWithError() // second stop must not panic

	if !strings.Contains(buf.String(), "done") {
		t.Errorf("spinner output = %q, want success message", buf.String())
	}
}

func TestReadStdin(t *testing.T) {
	got, err := readStdin(strings.NewReader("hello"))
	if err != nil || got != "hello" {
		t.Errorf("readStdin() = %q, %v", got, err)
	}
}
