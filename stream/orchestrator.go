package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/xiaot623/gogo/relay/config"
	"github.com/xiaot623/gogo/relay/domain"
	"github.com/xiaot623/gogo/relay/retrywrap"
	"github.com/xiaot623/gogo/relay/segment"
	"github.com/xiaot623/gogo/relay/session"
	"github.com/xiaot623/gogo/relay/textstream"
	"github.com/xiaot623/gogo/relay/voicestream"
)

// Placeholder persisted as the assistant turn when PersistReply is off.
const replyPlaceholder = "(流式回复已发送)"

// EmitFunc delivers one wire event to the client. A non-nil return aborts
// upstream consumption; the orchestrator pulls the next upstream element
// only after the previous emit returned, so a slow transport suspends
// consumption instead of buffering.
type EmitFunc func(domain.WireEvent) error

// sinkError marks a failure writing to the client. It aborts consumption
// like any other error but is never translated into a response.error
// emission, since there is no one left to read it.
type sinkError struct {
	cause error
}

func (e *sinkError) Error() string { return e.cause.Error() }
func (e *sinkError) Unwrap() error { return e.cause }

// LineSink receives completed sentences when the line relay is configured.
type LineSink interface {
	SendLine(sessionID, line string) error
}

// Request carries the per-request inputs the orchestrator needs.
type Request struct {
	RequestID    string
	SessionID    string // caller-supplied, may be empty
	SessionKey   string // SessionID, or RequestID when absent
	Input        string
	VoiceID      string // empty suppresses the audio stage
	Temperature  float64
	Conversation []domain.Message
}

// Orchestrator runs the relay state machine for one request at a time:
// Init -> TextStreaming -> (AudioStreaming)? -> Completed, with Errored
// absorbing from any non-terminal state.
type Orchestrator struct {
	Text         textstream.Source
	Voice        voicestream.Synthesizer
	Sessions     *session.Store
	Retry        retrywrap.Policy
	PersistReply bool
	TTSSource    config.TTSSource
	Lines        LineSink // optional
	Logger       *slog.Logger
}

// Run executes the state machine, emitting events in generation order. The
// returned error is the fatal upstream or transport error, already
// translated into a response.error event where the transport allowed it;
// nil means the stream terminated with response.completed.
func (o *Orchestrator) Run(ctx context.Context, req Request, emit EmitFunc) error {
	logger := o.logger().With(
		slog.String("requestId", req.RequestID),
		slog.String("sessionKey", req.SessionKey),
	)

	if err := emit(domain.WireEvent{
		Event: domain.EventCreated,
		Data:  createdPayload(req),
	}); err != nil {
		return err
	}

	reply, err := o.runTextStage(ctx, req, emit, logger)
	if err != nil {
		return o.fail(emit, logger, err)
	}

	if req.VoiceID != "" {
		if err := o.runAudioStage(ctx, req, reply, emit); err != nil {
			return o.fail(emit, logger, err)
		}
	}

	if err := emit(domain.WireEvent{Event: domain.EventCompleted, Data: map[string]any{}}); err != nil {
		return err
	}

	o.persistAssistantTurn(req, reply)
	return nil
}

// runTextStage consumes the text source and returns the reconstructed
// reply text.
func (o *Orchestrator) runTextStage(ctx context.Context, req Request, emit EmitFunc, logger *slog.Logger) (string, error) {
	var src textstream.Stream
	err := o.Retry.Do(ctx, func() error {
		var openErr error
		src, openErr = o.Text.Open(ctx, req.Conversation, req.Temperature)
		return openErr
	})
	if err != nil {
		return "", err
	}
	defer src.Close()

	var reply strings.Builder
	var seg *segment.Segmenter
	if o.Lines != nil {
		seg = segment.New()
	}

	for {
		raw, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return reply.String(), err
		}
		ev, ok := Normalize(raw)
		if !ok {
			continue
		}
		if ev.Event == domain.EventContentDelta {
			delta := ev.Data["text"].(string)
			reply.WriteString(delta)
			if seg != nil {
				o.relayLines(seg.Feed(delta), req.SessionKey, logger)
			}
		}
		if err := emit(ev); err != nil {
			return reply.String(), &sinkError{cause: err}
		}
	}
	if seg != nil {
		o.relayLines(seg.Flush(), req.SessionKey, logger)
	}

	// Finalize is best effort: its failure is logged and deliberately not
	// propagated, so the stream still reaches Completed.
	final, err := src.Final()
	if err != nil {
		logger.Warn("text stream finalize failed", slog.String("error", err.Error()))
		return reply.String(), nil
	}
	if final.Usage != nil {
		if err := emit(domain.WireEvent{Event: domain.EventUsage, Data: final.Usage}); err != nil {
			return reply.String(), &sinkError{cause: err}
		}
	}
	if final.Text != "" {
		return final.Text, nil
	}
	return reply.String(), nil
}

// runAudioStage synthesizes and forwards the audio chunks, then the single
// audio.completed marker.
func (o *Orchestrator) runAudioStage(ctx context.Context, req Request, reply string, emit EmitFunc) error {
	text := req.Input
	if o.TTSSource == config.TTSSourceReply && reply != "" {
		text = reply
	}

	var src voicestream.Stream
	err := o.Retry.Do(ctx, func() error {
		var openErr error
		src, openErr = o.Voice.Open(ctx, text, req.SessionKey, req.VoiceID)
		return openErr
	})
	if err != nil {
		return err
	}
	defer src.Close()

	for {
		chunk, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := emit(domain.WireEvent{
			Event: domain.EventAudioChunk,
			Data:  map[string]any{"b64": chunk.B64},
		}); err != nil {
			return &sinkError{cause: err}
		}
	}

	if err := emit(domain.WireEvent{
		Event: domain.EventAudioCompleted,
		Data: map[string]any{
			"voiceId":   req.VoiceID,
			"sessionId": req.SessionKey,
		},
	}); err != nil {
		return &sinkError{cause: err}
	}
	return nil
}

// fail translates a fatal error into the single response.error emission.
// response.error and response.completed are mutually exclusive terminals,
// so nothing is emitted after this. Sink failures are returned as-is: the
// client is gone and cannot read an error event.
func (o *Orchestrator) fail(emit EmitFunc, logger *slog.Logger, cause error) error {
	var sinkErr *sinkError
	if errors.As(cause, &sinkErr) {
		logger.Warn("client write failed, abandoning stream", slog.String("error", cause.Error()))
		return cause
	}
	logger.Error("stream failed", slog.String("error", cause.Error()))
	_ = emit(domain.WireEvent{
		Event: domain.EventError,
		Data:  map[string]any{"message": cause.Error()},
	})
	return cause
}

// persistAssistantTurn records the assistant turn on the success path only.
func (o *Orchestrator) persistAssistantTurn(req Request, reply string) {
	if o.Sessions == nil {
		return
	}
	text := replyPlaceholder
	if o.PersistReply && reply != "" {
		text = reply
	}
	o.Sessions.Append(req.SessionKey, domain.NewTextMessage(domain.RoleAssistant, text))
}

func (o *Orchestrator) relayLines(lines []string, sessionKey string, logger *slog.Logger) {
	if o.Lines == nil {
		return
	}
	for _, line := range lines {
		if err := o.Lines.SendLine(sessionKey, line); err != nil {
			logger.Warn("line relay failed", slog.String("error", err.Error()))
		}
	}
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func createdPayload(req Request) map[string]any {
	var sessionID any
	if req.SessionID != "" {
		sessionID = req.SessionID
	}
	return map[string]any{
		"requestId": req.RequestID,
		"sessionId": sessionID,
	}
}
