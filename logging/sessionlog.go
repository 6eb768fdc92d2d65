package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SessionWriter appends per-session events to
// <baseDir>/<sessionId>/<sessionId>.log, one line per event. A nil
// SessionWriter is a no-op; failures never affect the request path.
type SessionWriter struct {
	baseDir string
}

// NewSessionWriter returns a writer rooted at baseDir, or nil when the
// feature is disabled.
func NewSessionWriter(enabled bool, baseDir string) *SessionWriter {
	if !enabled {
		return nil
	}
	return &SessionWriter{baseDir: baseDir}
}

// Write appends one event line for the session. Errors are swallowed.
func (w *SessionWriter) Write(sessionID, level, message string, payload map[string]any) {
	if w == nil || sessionID == "" {
		return
	}
	dir := filepath.Join(w.baseDir, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(filepath.Join(dir, sessionID+".log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	ctx, err := json.Marshal(payload)
	if err != nil {
		return
	}
	ts := time.Now().Format("2006-01-02T15:04:05-0700")
	fmt.Fprintf(f, "%s %s %s | %s\n", ts, level, message, ctx)
}
