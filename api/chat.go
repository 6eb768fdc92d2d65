package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/xiaot623/gogo/relay/domain"
	"github.com/xiaot623/gogo/relay/logging"
	"github.com/xiaot623/gogo/relay/policy"
	"github.com/xiaot623/gogo/relay/prompts"
	"github.com/xiaot623/gogo/relay/store"
	"github.com/xiaot623/gogo/relay/stream"
)

// ChatStreamPost handles the SSE chat entry point.
// POST /chat/stream
func (h *Handler) ChatStreamPost(c echo.Context) error {
	var req domain.ChatStreamRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	return h.streamChat(c, &req)
}

// ChatStreamGet is the EventSource-friendly entry point: the request body
// fields map onto query parameters.
// GET /chat/stream
func (h *Handler) ChatStreamGet(c echo.Context) error {
	req := domain.ChatStreamRequest{
		Model:            c.QueryParam("model"),
		Input:            c.QueryParam("input"),
		SessionID:        c.QueryParam("sessionId"),
		System:           c.QueryParam("system"),
		SystemPromptName: c.QueryParam("systemPromptName"),
	}
	if raw := c.QueryParam("temperature"); raw != "" {
		if t, err := strconv.ParseFloat(raw, 64); err == nil {
			req.Temperature = &t
		}
	}
	return h.streamChat(c, &req)
}

// streamChat runs the shared admission + streaming flow for both verbs.
func (h *Handler) streamChat(c echo.Context, req *domain.ChatStreamRequest) error {
	ctx := c.Request().Context()

	if req.Input == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "input is required"})
	}

	requestID := "req_" + uuid.New().String()[:8]
	voiceID := c.Request().Header.Get("X-Voice-Id")
	if voiceID == "" {
		voiceID = c.QueryParam("voiceId")
	}

	if blocked := h.admit(ctx, req, requestID, voiceID); blocked {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "request blocked by policy"})
	}

	sessionKey := req.SessionID
	if sessionKey == "" {
		sessionKey = requestID
	}

	// Inline messages replace the cached history; otherwise resume from it.
	var history []domain.Message
	if len(req.Messages) > 0 {
		h.sessions.Set(sessionKey, req.Messages)
		history = req.Messages
	} else {
		history = h.sessions.Get(sessionKey)
	}

	orchReq := stream.Request{
		RequestID:    requestID,
		SessionID:    req.SessionID,
		SessionKey:   sessionKey,
		Input:        req.Input,
		VoiceID:      voiceID,
		Temperature:  req.ResolvedTemperature(),
		Conversation: domain.BuildConversation(h.systemText(req), history, req.Input),
	}

	logger := h.logger.With(
		slog.String("requestId", requestID),
		slog.String("sessionId", req.SessionID),
	)
	h.logRequestStart(logger, req, requestID)
	h.auditStart(ctx, req, requestID, voiceID)

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
	}

	var replyLen int
	emit := func(ev domain.WireEvent) error {
		data, err := json.Marshal(ev.Data)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Response().Writer, "event: %s\ndata: %s\n\n", ev.Event, data); err != nil {
			return err
		}
		flusher.Flush()
		if ev.Event == domain.EventContentDelta {
			if text, ok := ev.Data["text"].(string); ok {
				replyLen += len([]rune(text))
				h.logDelta(logger, text)
			}
		}
		return nil
	}

	runErr := h.orch.Run(ctx, orchReq, emit)

	h.logRequestEnd(logger, requestID, replyLen, runErr)
	h.auditFinish(requestID, runErr)
	h.sessionLog.Write(req.SessionID, "INFO", "request.end", map[string]any{
		"requestId": requestID,
		"replyLen":  replyLen,
	})
	return nil
}

// admit evaluates the admission policy. Evaluation failures are logged and
// fail open so a broken policy never takes the service down.
func (h *Handler) admit(ctx context.Context, req *domain.ChatStreamRequest, requestID, voiceID string) bool {
	if h.policy == nil {
		return false
	}
	decision, err := h.policy.Evaluate(ctx, policy.Input{
		Model:      req.Model,
		SessionID:  req.SessionID,
		VoiceID:    voiceID,
		InputChars: len([]rune(req.Input)),
	})
	if err != nil {
		h.logger.Warn("policy evaluation failed, allowing request",
			slog.String("requestId", requestID),
			slog.String("error", err.Error()))
		return false
	}
	return decision == policy.DecisionBlock
}

// systemText resolves the system prompt: an explicit override wins, then
// the named template, then the default template. An unknown template name
// yields no system message.
func (h *Handler) systemText(req *domain.ChatStreamRequest) string {
	if req.System != "" {
		return req.System
	}
	name := req.SystemPromptName
	if name == "" {
		name = "default"
	}
	text, _ := prompts.Get(name)
	return text
}

func (h *Handler) logRequestStart(logger *slog.Logger, req *domain.ChatStreamRequest, requestID string) {
	attrs := []any{slog.String("path", "/chat/stream")}
	if h.cfg.LogIncludeInput {
		p := logging.BuildPreview(req.Input, h.cfg.LogContentMaxChars, h.cfg.LogRedactEnabled)
		attrs = append(attrs, slog.Int("inputLen", p.TextLen), slog.String("inputPreview", p.Preview))
	}
	logger.Info("request.start", attrs...)
	h.sessionLog.Write(req.SessionID, "INFO", "request.start", map[string]any{"requestId": requestID})
}

func (h *Handler) logDelta(logger *slog.Logger, text string) {
	if h.cfg.LogIncludeOutput != "delta" && h.cfg.LogIncludeOutput != "both" {
		return
	}
	p := logging.BuildPreview(text, h.cfg.LogContentMaxChars, h.cfg.LogRedactEnabled)
	logger.Debug("content.delta", slog.String("preview", p.Preview))
}

func (h *Handler) logRequestEnd(logger *slog.Logger, requestID string, replyLen int, runErr error) {
	if runErr != nil {
		logger.Info("request.end", slog.String("outcome", store.OutcomeError), slog.String("error", runErr.Error()))
		return
	}
	attrs := []any{slog.String("outcome", store.OutcomeCompleted)}
	if h.cfg.LogIncludeOutput == "final" || h.cfg.LogIncludeOutput == "both" {
		attrs = append(attrs, slog.Int("replyLen", replyLen))
	}
	logger.Info("request.end", attrs...)
}

// auditStart records the request row plus its request.start event. Audit
// failures are logged and never block the stream.
func (h *Handler) auditStart(ctx context.Context, req *domain.ChatStreamRequest, requestID, voiceID string) {
	if h.audit == nil {
		return
	}
	if err := h.audit.CreateRequest(ctx, &store.Request{
		RequestID: requestID,
		SessionID: req.SessionID,
		Model:     req.Model,
		VoiceID:   voiceID,
		StartedAt: time.Now(),
	}); err != nil {
		h.logger.Warn("audit create failed", slog.String("error", err.Error()))
		return
	}
	h.recordEvent(ctx, requestID, "request.start", map[string]any{"sessionId": req.SessionID})
}

// auditFinish closes the audit row after the stream terminates. The
// request context may already be cancelled by a departed client, so the
// write uses a short background context.
func (h *Handler) auditFinish(requestID string, runErr error) {
	if h.audit == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	outcome := store.OutcomeCompleted
	errMsg := ""
	if runErr != nil {
		outcome = store.OutcomeError
		errMsg = runErr.Error()
	}
	if err := h.audit.FinishRequest(ctx, requestID, outcome, errMsg); err != nil {
		h.logger.Warn("audit finish failed", slog.String("error", err.Error()))
		return
	}
	h.recordEvent(ctx, requestID, "request.end", map[string]any{"outcome": outcome})
}

func (h *Handler) recordEvent(ctx context.Context, requestID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	event := &store.Event{
		EventID:   "evt_" + uuid.New().String()[:8],
		RequestID: requestID,
		Ts:        time.Now().UnixMilli(),
		Type:      eventType,
		Payload:   data,
	}
	if err := h.audit.CreateEvent(ctx, event); err != nil {
		h.logger.Warn("audit event failed", slog.String("error", err.Error()))
	}
}
