package textstream

import (
	"context"
	"io"

	"github.com/xiaot623/gogo/relay/domain"
)

// MockReply is the canned reply the simulated source streams rune by rune.
const MockReply = "这是一个模拟流式回复，用于本地验证SSE。"

type mockSource struct {
	reply string
}

// NewMockSource returns a deterministic source for offline use: it emits
// the lifecycle markers, one content delta per rune of reply, and a
// synthetic usage summary counting output runes.
func NewMockSource(reply string) Source {
	if reply == "" {
		reply = MockReply
	}
	return &mockSource{reply: reply}
}

func (s *mockSource) Open(ctx context.Context, _ []domain.Message, _ float64) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	runes := []rune(s.reply)
	events := make([]domain.RawEvent, 0, len(runes)+5)
	events = append(events,
		domain.RawEvent{Kind: domain.KindCreated, Type: "response.created", Data: map[string]any{"id": "mock-001"}},
		domain.RawEvent{Kind: domain.KindMessageStart, Type: "message.start"},
	)
	for _, r := range runes {
		events = append(events, domain.RawEvent{
			Kind:  domain.KindContentDelta,
			Type:  "content.delta",
			Delta: string(r),
		})
	}
	usage := mockUsage(len(runes))
	events = append(events,
		domain.RawEvent{Kind: domain.KindMessageStop, Type: "message.stop"},
		domain.RawEvent{Kind: domain.KindUsage, Type: "response.usage", Data: usage},
		domain.RawEvent{Kind: domain.KindCompleted, Type: "response.completed"},
	)
	return &mockStream{events: events, reply: s.reply, usage: usage}, nil
}

type mockStream struct {
	events []domain.RawEvent
	next   int
	reply  string
	usage  map[string]any
}

func (s *mockStream) Next() (domain.RawEvent, error) {
	if s.next >= len(s.events) {
		return domain.RawEvent{}, io.EOF
	}
	ev := s.events[s.next]
	s.next++
	return ev, nil
}

func (s *mockStream) Final() (domain.FinalResponse, error) {
	return domain.FinalResponse{Text: s.reply, Usage: s.usage}, nil
}

func (s *mockStream) Close() error { return nil }

func mockUsage(outputTokens int) map[string]any {
	return map[string]any{
		"input_tokens":  0,
		"output_tokens": outputTokens,
		"total_tokens":  outputTokens,
	}
}
