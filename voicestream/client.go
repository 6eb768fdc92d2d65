package voicestream

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// previewLimit bounds how much of an unexpected body is carried in a
// diagnostic error.
const previewLimit = 256

// readChunkSize is the read window for the live audio body; each filled
// window is base64-encoded independently, with no re-buffering across
// chunks.
const readChunkSize = 4096

// httpSynthesizer streams audio from an external synthesis endpoint.
type httpSynthesizer struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPSynthesizer creates a live synthesizer against the TTS service at
// baseURL.
func NewHTTPSynthesizer(baseURL, apiKey string) Synthesizer {
	return &httpSynthesizer{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

type synthesisRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id"`
	VoiceType string `json:"voice_type,omitempty"`
}

func (s *httpSynthesizer) Open(ctx context.Context, text, sessionID, voiceID string) (Stream, error) {
	body, err := json.Marshal(synthesisRequest{Text: text, SessionID: sessionID, VoiceType: voiceID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/tts/stream", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/octet-stream")
	if s.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		preview := bodyPreview(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("TTS error [%d]: %s", resp.StatusCode, preview)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "audio/") {
		preview := bodyPreview(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("TTS responded non-audio content-type: %s, status=%d, preview=%s", ct, resp.StatusCode, preview)
	}

	return &httpStream{body: resp.Body}, nil
}

func bodyPreview(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, previewLimit))
	if err != nil {
		return ""
	}
	return string(raw)
}

type httpStream struct {
	body io.ReadCloser
	done bool
}

func (s *httpStream) Next() (Chunk, error) {
	if s.done {
		return Chunk{}, io.EOF
	}
	buf := make([]byte, readChunkSize)
	for {
		n, err := s.body.Read(buf)
		if n > 0 {
			if err == io.EOF {
				s.done = true
			}
			return Chunk{B64: base64.StdEncoding.EncodeToString(buf[:n])}, nil
		}
		if err == io.EOF {
			s.done = true
			return Chunk{}, io.EOF
		}
		if err != nil {
			return Chunk{}, fmt.Errorf("failed to read audio stream: %w", err)
		}
	}
}

func (s *httpStream) Close() error {
	return s.body.Close()
}
