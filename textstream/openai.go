package textstream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xiaot623/gogo/relay/domain"
)

// openAISource adapts an OpenAI-compatible chat-completions backend to the
// Source contract.
type openAISource struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewOpenAISource creates a live text source against an OpenAI-compatible
// endpoint.
func NewOpenAISource(baseURL, apiKey, model string, timeout time.Duration) Source {
	return &openAISource{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type streamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason,omitempty"`
	} `json:"choices"`
	Usage map[string]any `json:"usage,omitempty"`
}

type errorResponse struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// flatten converts rich-content messages to the flat chat-completions shape.
func flatten(conversation []domain.Message) []chatMessage {
	msgs := make([]chatMessage, 0, len(conversation))
	for _, m := range conversation {
		msgs = append(msgs, chatMessage{Role: string(m.Role), Content: m.Text()})
	}
	return msgs
}

func (s *openAISource) Open(ctx context.Context, conversation []domain.Message, temperature float64) (Stream, error) {
	payload := chatCompletionRequest{
		Model:       s.model,
		Messages:    flatten(conversation),
		Temperature: temperature,
		Stream:      true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		var errResp errorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
			return nil, fmt.Errorf("LLM API error [%d]: %s (type: %s)", resp.StatusCode, errResp.Error.Message, errResp.Error.Type)
		}
		return nil, fmt.Errorf("LLM API error [%d]: %s", resp.StatusCode, string(respBody))
	}

	return &openAIStream{
		body:   resp.Body,
		reader: bufio.NewReader(resp.Body),
		ctx:    ctx,
	}, nil
}

type streamPhase int

const (
	phaseStart streamPhase = iota
	phaseDeltas
	phaseUsage
	phaseCompleted
	phaseDone
)

// openAIStream reads the backend SSE body and emits tagged raw events. It
// buffers delta fragments so Final can reconstruct the full text and
// approximate usage when the backend reports none.
type openAIStream struct {
	body   io.ReadCloser
	reader *bufio.Reader
	ctx    context.Context

	phase   streamPhase
	buffer  strings.Builder
	usage   map[string]any
	readErr error
}

func (s *openAIStream) Next() (domain.RawEvent, error) {
	switch s.phase {
	case phaseStart:
		s.phase = phaseDeltas
		return domain.RawEvent{Kind: domain.KindMessageStart, Type: "message.start"}, nil
	case phaseDeltas:
		delta, err := s.nextDelta()
		if err == nil {
			s.buffer.WriteString(delta)
			return domain.RawEvent{Kind: domain.KindContentDelta, Type: "content.delta", Delta: delta}, nil
		}
		if err != io.EOF {
			s.readErr = err
			s.phase = phaseDone
			return domain.RawEvent{}, err
		}
		s.phase = phaseUsage
		return domain.RawEvent{Kind: domain.KindMessageStop, Type: "message.stop"}, nil
	case phaseUsage:
		s.phase = phaseCompleted
		final, _ := s.Final()
		return domain.RawEvent{Kind: domain.KindUsage, Type: "response.usage", Data: final.Usage}, nil
	case phaseCompleted:
		s.phase = phaseDone
		return domain.RawEvent{Kind: domain.KindCompleted, Type: "response.completed"}, nil
	default:
		return domain.RawEvent{}, io.EOF
	}
}

// nextDelta reads SSE lines until it finds a chunk carrying delta text.
// io.EOF means the stream is exhausted, via [DONE] or transport EOF.
func (s *openAIStream) nextDelta() (string, error) {
	for {
		select {
		case <-s.ctx.Done():
			return "", s.ctx.Err()
		default:
		}

		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return "", io.EOF
			}
			return "", fmt.Errorf("failed to read stream: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return "", io.EOF
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Skip malformed chunks
			continue
		}
		if chunk.Usage != nil {
			s.usage = chunk.Usage
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
}

func (s *openAIStream) Final() (domain.FinalResponse, error) {
	if s.readErr != nil {
		return domain.FinalResponse{}, s.readErr
	}
	text := s.buffer.String()
	usage := s.usage
	if usage == nil {
		// Character count stands in for token count when the backend
		// reports no usage.
		usage = map[string]any{
			"input_tokens":  0,
			"output_tokens": len([]rune(text)),
			"total_tokens":  len([]rune(text)),
		}
	}
	return domain.FinalResponse{Text: text, Usage: usage}, nil
}

func (s *openAIStream) Close() error {
	return s.body.Close()
}
