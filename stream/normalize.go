// Package stream contains the event normalizer and the orchestrator that
// sequences upstream text and audio streams onto one ordered SSE stream.
package stream

import (
	"strings"

	"github.com/xiaot623/gogo/relay/domain"
)

// Normalize maps one raw upstream event onto the wire vocabulary. The
// second return is false when the event carries nothing for the client:
// deltas with no usable text, upstream created/completed markers (the
// orchestrator owns both bookends), and unrecognized events are all dropped
// silently rather than surfaced as errors.
func Normalize(ev domain.RawEvent) (domain.WireEvent, bool) {
	switch classify(ev) {
	case domain.KindContentDelta:
		delta := extractDelta(ev)
		if delta == "" {
			return domain.WireEvent{}, false
		}
		return domain.WireEvent{
			Event: domain.EventContentDelta,
			Data:  map[string]any{"text": delta},
		}, true
	case domain.KindMessageStart:
		return domain.WireEvent{Event: domain.EventMessageStart, Data: payloadOrEmpty(ev)}, true
	case domain.KindMessageStop:
		return domain.WireEvent{Event: domain.EventMessageStop, Data: payloadOrEmpty(ev)}, true
	case domain.KindUsage:
		return domain.WireEvent{Event: domain.EventUsage, Data: payloadOrEmpty(ev)}, true
	default:
		return domain.WireEvent{}, false
	}
}

// classify resolves the event kind, falling back to type-tag inspection for
// sources that only set the tag.
func classify(ev domain.RawEvent) domain.RawEventKind {
	if ev.Kind != domain.KindUnknown {
		return ev.Kind
	}
	switch {
	case strings.Contains(ev.Type, "delta"):
		return domain.KindContentDelta
	case ev.Type == "message.start":
		return domain.KindMessageStart
	case ev.Type == "message.stop":
		return domain.KindMessageStop
	case strings.Contains(ev.Type, "usage"):
		return domain.KindUsage
	case strings.HasSuffix(ev.Type, "completed"):
		return domain.KindCompleted
	case strings.HasSuffix(ev.Type, "created"):
		return domain.KindCreated
	default:
		return domain.KindUnknown
	}
}

// extractDelta pulls delta text from the pre-extracted field or from the
// payload's delta/text keys.
func extractDelta(ev domain.RawEvent) string {
	if ev.Delta != "" {
		return ev.Delta
	}
	if ev.Data == nil {
		return ""
	}
	if v, ok := ev.Data["delta"].(string); ok && v != "" {
		return v
	}
	if v, ok := ev.Data["text"].(string); ok && v != "" {
		return v
	}
	return ""
}

func payloadOrEmpty(ev domain.RawEvent) map[string]any {
	if ev.Data == nil {
		return map[string]any{}
	}
	return ev.Data
}
