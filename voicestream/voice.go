// Package voicestream wraps the text-to-speech backend behind a chunk
// stream of base64-encoded audio.
package voicestream

import (
	"context"
	"encoding/base64"
	"io"
)

// Chunk is one base64-encoded slice of synthesized audio.
type Chunk struct {
	B64 string `json:"b64"`
}

// Stream iterates synthesized audio chunks. Next returns io.EOF at
// exhaustion; mid-stream errors are terminal.
type Stream interface {
	Next() (Chunk, error)
	Close() error
}

// Synthesizer opens synthesis streams. Establishment retries are applied by
// the caller, never inside the synthesizer.
type Synthesizer interface {
	Open(ctx context.Context, text, sessionID, voiceID string) (Stream, error)
}

// mockChunkSize is the byte window the simulated synthesizer slices text
// into.
const mockChunkSize = 10

type mockSynthesizer struct {
	chunkSize int
}

// NewMockSynthesizer returns a synthesizer that base64-encodes fixed-size
// windows of the input text's UTF-8 bytes, simulating an audio stream.
func NewMockSynthesizer() Synthesizer {
	return &mockSynthesizer{chunkSize: mockChunkSize}
}

func (m *mockSynthesizer) Open(ctx context.Context, text, _, _ string) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data := []byte(text)
	var chunks []Chunk
	for i := 0; i < len(data); i += m.chunkSize {
		end := i + m.chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, Chunk{B64: base64.StdEncoding.EncodeToString(data[i:end])})
	}
	return &mockStream{chunks: chunks}, nil
}

type mockStream struct {
	chunks []Chunk
	next   int
}

func (s *mockStream) Next() (Chunk, error) {
	if s.next >= len(s.chunks) {
		return Chunk{}, io.EOF
	}
	c := s.chunks[s.next]
	s.next++
	return c, nil
}

func (s *mockStream) Close() error { return nil }
