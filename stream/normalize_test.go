package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xiaot623/gogo/relay/domain"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		raw     domain.RawEvent
		want    domain.WireEvent
		dropped bool
	}{
		{
			name: "delta from pre-extracted field",
			raw:  domain.RawEvent{Kind: domain.KindContentDelta, Delta: "你"},
			want: domain.WireEvent{Event: domain.EventContentDelta, Data: map[string]any{"text": "你"}},
		},
		{
			name: "delta from payload delta key",
			raw:  domain.RawEvent{Type: "response.output_text.delta", Data: map[string]any{"delta": "a"}},
			want: domain.WireEvent{Event: domain.EventContentDelta, Data: map[string]any{"text": "a"}},
		},
		{
			name: "delta from payload text key",
			raw:  domain.RawEvent{Type: "content.delta", Data: map[string]any{"text": "b"}},
			want: domain.WireEvent{Event: domain.EventContentDelta, Data: map[string]any{"text": "b"}},
		},
		{
			name:    "delta with no usable text dropped",
			raw:     domain.RawEvent{Type: "content.delta", Data: map[string]any{"other": 1}},
			dropped: true,
		},
		{
			name: "message start passthrough with empty payload",
			raw:  domain.RawEvent{Kind: domain.KindMessageStart, Type: "message.start"},
			want: domain.WireEvent{Event: domain.EventMessageStart, Data: map[string]any{}},
		},
		{
			name: "message stop passthrough keeps payload",
			raw:  domain.RawEvent{Type: "message.stop", Data: map[string]any{"reason": "stop"}},
			want: domain.WireEvent{Event: domain.EventMessageStop, Data: map[string]any{"reason": "stop"}},
		},
		{
			name: "usage passthrough",
			raw:  domain.RawEvent{Type: "response.usage", Data: map[string]any{"total_tokens": 3}},
			want: domain.WireEvent{Event: domain.EventUsage, Data: map[string]any{"total_tokens": 3}},
		},
		{
			name:    "upstream created consumed",
			raw:     domain.RawEvent{Kind: domain.KindCreated, Type: "response.created", Data: map[string]any{"id": "x"}},
			dropped: true,
		},
		{
			name:    "upstream completed consumed",
			raw:     domain.RawEvent{Type: "response.completed"},
			dropped: true,
		},
		{
			name:    "unknown event dropped",
			raw:     domain.RawEvent{Type: "provider.keepalive", Data: map[string]any{"x": 1}},
			dropped: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.raw)
			if tt.dropped {
				assert.False(t, ok)
				return
			}
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
