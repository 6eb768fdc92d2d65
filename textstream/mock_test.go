package textstream

import (
	"context"
	"io"
	"testing"

	"github.com/xiaot623/gogo/relay/domain"
)

func drain(t *testing.T, s Stream) []domain.RawEvent {
	t.Helper()
	var events []domain.RawEvent
	for {
		ev, err := s.Next()
		if err == io.EOF {
			return events
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		events = append(events, ev)
	}
}

func TestMockStreamsReplyRuneByRune(t *testing.T) {
	src := NewMockSource("")
	stream, err := src.Open(context.Background(), nil, 0.7)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer stream.Close()

	events := drain(t, stream)

	var text string
	deltas := 0
	for _, ev := range events {
		if ev.Kind == domain.KindContentDelta {
			deltas++
			if got := len([]rune(ev.Delta)); got != 1 {
				t.Fatalf("expected single-rune delta, got %q", ev.Delta)
			}
			text += ev.Delta
		}
	}
	if text != MockReply {
		t.Fatalf("concatenated deltas = %q, want %q", text, MockReply)
	}
	if deltas != len([]rune(MockReply)) {
		t.Fatalf("expected %d deltas, got %d", len([]rune(MockReply)), deltas)
	}

	if events[0].Kind != domain.KindCreated {
		t.Fatalf("first event kind = %v, want created", events[0].Kind)
	}
	if last := events[len(events)-1]; last.Kind != domain.KindCompleted {
		t.Fatalf("last event kind = %v, want completed", last.Kind)
	}
}

func TestMockFinalReportsUsage(t *testing.T) {
	src := NewMockSource("hello")
	stream, _ := src.Open(context.Background(), nil, 0.7)
	drain(t, stream)

	final, err := stream.Final()
	if err != nil {
		t.Fatalf("Final failed: %v", err)
	}
	if final.Text != "hello" {
		t.Fatalf("final text = %q", final.Text)
	}
	if got := final.Usage["output_tokens"]; got != 5 {
		t.Fatalf("output_tokens = %v, want 5", got)
	}
}

func TestMockOpenHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewMockSource("").Open(ctx, nil, 0.7); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
