// Package lineout relays completed sentences to the voice-clone line
// service, or to local files when running without one.
package lineout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Relay posts one line per completed sentence to
// POST {base}/api/line/stream, or appends to <dir>/<sessionId>.lines in
// mock mode.
type Relay struct {
	baseURL    string
	useMock    bool
	dir        string
	httpClient *http.Client
}

// New creates a line relay. An empty baseURL forces mock mode.
func New(baseURL string, useMock bool, dir string) *Relay {
	return &Relay{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		useMock:    useMock || baseURL == "",
		dir:        dir,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type linePayload struct {
	SessionID string `json:"session_id"`
	Line      string `json:"line"`
}

// SendLine delivers one sentence for the session. Empty sessions or lines
// are ignored.
func (r *Relay) SendLine(sessionID, line string) error {
	if sessionID == "" || line == "" {
		return nil
	}
	if r.useMock {
		return r.appendLocal(sessionID, line)
	}

	body, err := json.Marshal(linePayload{SessionID: sessionID, Line: line})
	if err != nil {
		return fmt.Errorf("failed to marshal line: %w", err)
	}
	resp, err := r.httpClient.Post(r.baseURL+"/api/line/stream", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to send line: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("line service error [%d]", resp.StatusCode)
	}
	return nil
}

func (r *Relay) appendLocal(sessionID, line string) error {
	dir := filepath.Join(r.dir, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, sessionID+".lines"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	return err
}
