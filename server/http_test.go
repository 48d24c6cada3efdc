package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"runtime"
	"strings"
	"testing"

	"github.com/mcp-noble/shellgate/pkg/config"
	"github.com/mcp-noble/shellgate/pkg/gate"
	"github.com/mcp-noble/shellgate/pkg/history"
)

func newHandler(t *testing.T, allowed string, ratePerMinute int) http.Handler {
	t.Helper()
	cfg := &config.Config{
		AllowedCommands:       allowed,
		CommandTimeoutSeconds: 30,
		MaxOutputSize:         config.DefaultMaxOutputSize,
		MaxConcurrent:         config.DefaultMaxConcurrent,
		HistoryLimit:          10,
		WorkDir:               t.TempDir(),
	}
	return New(gate.New(cfg, nil, nil), ratePerMinute, nil).Handler()
}

func postExecute(t *testing.T, h http.Handler, command string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"command": {command}}
	req := httptest.NewRequest(http.MethodPost, "/api/execute", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeExecute(t *testing.T, rec *httptest.ResponseRecorder) executeResponse {
	t.Helper()
	var resp executeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestExecuteAllowed(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses echo(1)")
	}
	h := newHandler(t, "echo", 0)
	rec := postExecute(t, h, "echo hello")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
	resp := decodeExecute(t, rec)
	if !resp.Success || resp.ExitCode != 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !strings.Contains(resp.Output, "hello") {
		t.Fatalf("output = %q", resp.Output)
	}
}

func TestExecuteDenied(t *testing.T) {
	h := newHandler(t, "ls", 0)
	rec := postExecute(t, h, "rm -rf /")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	resp := decodeExecute(t, rec)
	if resp.Success || resp.ExitCode != -1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !strings.Contains(resp.Error, "not allowed") {
		t.Fatalf("error = %q", resp.Error)
	}
}

func TestExecuteEmptyCommand(t *testing.T) {
	h := newHandler(t, "ls", 0)
	for _, command := range []string{"", "   "} {
		rec := postExecute(t, h, command)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("command %q: status = %d, want 400", command, rec.Code)
		}
	}
}

func TestExecuteRateLimited(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses pwd(1)")
	}
	h := newHandler(t, "pwd", 1)
	if rec := postExecute(t, h, "pwd"); rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", rec.Code)
	}
	if rec := postExecute(t, h, "pwd"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", rec.Code)
	}
}

func TestExecuteRequiresPost(t *testing.T) {
	h := newHandler(t, "ls", 0)
	req := httptest.NewRequest(http.MethodGet, "/api/execute", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestConfigEndpoint(t *testing.T) {
	h := newHandler(t, "ls,pwd", 0)
	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		AllowedCommands []string `json:"allowed_commands"`
		Count           int      `json:"count"`
		Unrestricted    bool     `json:"unrestricted"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 || resp.Unrestricted {
		t.Fatalf("unexpected config: %+v", resp)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	h := newHandler(t, "ls", 0)
	postExecute(t, h, "rm /")

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var entries []history.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || !entries[0].Denied {
		t.Fatalf("unexpected history: %+v", entries)
	}
}

func TestHealthEndpoint(t *testing.T) {
	h := newHandler(t, "ls", 0)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Fatalf("body = %q", rec.Body.String())
	}
}
