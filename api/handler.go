// Package api exposes the relay's HTTP surface.
package api

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/gogo/relay/config"
	"github.com/xiaot623/gogo/relay/logging"
	"github.com/xiaot623/gogo/relay/policy"
	"github.com/xiaot623/gogo/relay/prompts"
	"github.com/xiaot623/gogo/relay/session"
	"github.com/xiaot623/gogo/relay/store"
	"github.com/xiaot623/gogo/relay/stream"
)

// Handler handles relay HTTP requests.
type Handler struct {
	cfg        *config.Config
	logger     *slog.Logger
	sessions   *session.Store
	audit      store.Store
	policy     *policy.Engine
	orch       *stream.Orchestrator
	sessionLog *logging.SessionWriter
}

// NewHandler wires the handler's collaborators.
func NewHandler(cfg *config.Config, logger *slog.Logger, sessions *session.Store, audit store.Store, policyEngine *policy.Engine, orch *stream.Orchestrator) *Handler {
	return &Handler{
		cfg:        cfg,
		logger:     logger,
		sessions:   sessions,
		audit:      audit,
		policy:     policyEngine,
		orch:       orch,
		sessionLog: logging.NewSessionWriter(cfg.SessionLogEnabled, cfg.SessionLogBaseDir),
	}
}

// RegisterRoutes registers the relay routes.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	e.GET("/prompts", h.ListPrompts)
	e.GET("/prompts/:name", h.GetPrompt)
	e.POST("/chat/stream", h.ChatStreamPost)
	e.GET("/chat/stream", h.ChatStreamGet)
}

// Healthz is the liveness probe.
// GET /healthz
func (h *Handler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type promptEntry struct {
	Name    string `json:"name"`
	Preview string `json:"preview"`
}

// ListPrompts lists the template names with a short preview.
// GET /prompts
func (h *Handler) ListPrompts(c echo.Context) error {
	entries := make([]promptEntry, 0)
	for _, name := range prompts.Names() {
		entries = append(entries, promptEntry{Name: name, Preview: prompts.Preview(name)})
	}
	return c.JSON(http.StatusOK, map[string]any{"prompts": entries})
}

// GetPrompt returns one template's full text.
// GET /prompts/:name
func (h *Handler) GetPrompt(c echo.Context) error {
	name := c.Param("name")
	text, ok := prompts.Get(name)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "prompt not found"})
	}
	return c.JSON(http.StatusOK, map[string]string{"name": name, "text": text})
}
