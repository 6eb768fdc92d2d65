package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/gogo/relay/config"
	"github.com/xiaot623/gogo/relay/policy"
	"github.com/xiaot623/gogo/relay/retrywrap"
	"github.com/xiaot623/gogo/relay/session"
	"github.com/xiaot623/gogo/relay/store"
	"github.com/xiaot623/gogo/relay/stream"
	"github.com/xiaot623/gogo/relay/textstream"
	"github.com/xiaot623/gogo/relay/voicestream"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	cfg := config.Load()
	cfg.UseMock = true

	audit, err := store.NewSQLiteStore("file:" + filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { audit.Close() })

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.New()
	orch := &stream.Orchestrator{
		Text:         textstream.NewMockSource(""),
		Voice:        voicestream.NewMockSynthesizer(),
		Sessions:     sessions,
		Retry:        retrywrap.DefaultPolicy(),
		PersistReply: true,
		TTSSource:    config.TTSSourceInput,
		Logger:       logger,
	}
	return NewHandler(cfg, logger, sessions, audit, engine, orch)
}

type sseEvent struct {
	Name string
	Data map[string]any
}

// parseSSE splits a recorded text/event-stream body into events.
func parseSSE(t *testing.T, body *bytes.Buffer) []sseEvent {
	t.Helper()
	var events []sseEvent
	var cur sseEvent
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur = sseEvent{Name: strings.TrimPrefix(line, "event: ")}
		case strings.HasPrefix(line, "data: "):
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &cur.Data); err != nil {
				t.Fatalf("bad data line %q: %v", line, err)
			}
		case line == "":
			if cur.Name != "" {
				events = append(events, cur)
				cur = sseEvent{}
			}
		}
	}
	return events
}

func TestHealthz(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	if err := h.Healthz(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Fatalf("unexpected body: %+v", resp)
	}
}

func TestListPromptsIncludesDefault(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/prompts", nil)
	rec := httptest.NewRecorder()
	if err := h.ListPrompts(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Prompts []struct {
			Name    string `json:"name"`
			Preview string `json:"preview"`
		} `json:"prompts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	found := false
	for _, p := range resp.Prompts {
		if p.Name == "default" {
			found = true
			if p.Preview == "" {
				t.Fatal("expected non-empty preview for default")
			}
		}
	}
	if !found {
		t.Fatalf("default template missing: %+v", resp.Prompts)
	}
}

func TestGetPromptNotFound(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/prompts/nope", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("name")
	c.SetParamValues("nope")

	if err := h.GetPrompt(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] != "prompt not found" {
		t.Fatalf("unexpected body: %+v", resp)
	}
}
