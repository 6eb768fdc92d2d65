package domain

// Wire event names emitted on the SSE stream, in the order a client can
// observe them. Exactly one EventCreated opens a stream and exactly one of
// EventCompleted or EventError terminates it.
const (
	EventCreated        = "response.created"
	EventMessageStart   = "message.start"
	EventContentDelta   = "content.delta"
	EventMessageStop    = "message.stop"
	EventUsage          = "response.usage"
	EventAudioChunk     = "audio.chunk"
	EventAudioCompleted = "audio.completed"
	EventCompleted      = "response.completed"
	EventError          = "response.error"
)

// WireEvent is a single named event with a JSON-object payload.
type WireEvent struct {
	Event string
	Data  map[string]any
}

// CreatedData is the payload of response.created.
type CreatedData struct {
	RequestID string  `json:"requestId"`
	SessionID *string `json:"sessionId"`
}

// DeltaData is the payload of content.delta.
type DeltaData struct {
	Text string `json:"text"`
}

// AudioChunkData is the payload of audio.chunk.
type AudioChunkData struct {
	B64 string `json:"b64"`
}

// AudioCompletedData is the payload of audio.completed.
type AudioCompletedData struct {
	VoiceID   string `json:"voiceId"`
	SessionID string `json:"sessionId"`
}

// ErrorData is the payload of response.error.
type ErrorData struct {
	Message string `json:"message"`
}

// RawEventKind tags the known upstream event shapes. Anything a source
// cannot classify is KindUnknown and gets dropped by the normalizer.
type RawEventKind int

const (
	KindUnknown RawEventKind = iota
	KindCreated
	KindMessageStart
	KindContentDelta
	KindMessageStop
	KindUsage
	KindCompleted
)

// RawEvent is a provider event after shape dispatch but before
// normalization. Delta carries extracted delta text when the source already
// knows it; otherwise the normalizer probes Data.
type RawEvent struct {
	Kind  RawEventKind
	Type  string
	Delta string
	Data  map[string]any
}

// FinalResponse is the aggregate a text stream can report after exhaustion.
type FinalResponse struct {
	Text  string
	Usage map[string]any
}
