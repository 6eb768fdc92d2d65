package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/gogo/relay/api"
	"github.com/xiaot623/gogo/relay/config"
	"github.com/xiaot623/gogo/relay/lineout"
	"github.com/xiaot623/gogo/relay/logging"
	"github.com/xiaot623/gogo/relay/policy"
	"github.com/xiaot623/gogo/relay/retrywrap"
	"github.com/xiaot623/gogo/relay/session"
	"github.com/xiaot623/gogo/relay/store"
	"github.com/xiaot623/gogo/relay/stream"
	"github.com/xiaot623/gogo/relay/textstream"
	"github.com/xiaot623/gogo/relay/voicestream"
)

func main() {
	cfg := config.Load()
	logger := logging.Setup(cfg)

	logger.Info("starting chat relay",
		slog.Int("port", cfg.HTTPPort),
		slog.Bool("textMock", cfg.TextMockMode()),
		slog.Bool("voiceMock", cfg.VoiceMockMode()))

	audit, err := store.NewSQLiteStore(cfg.AuditDB)
	if err != nil {
		logger.Error("failed to open audit store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer audit.Close()

	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		logger.Error("failed to prepare admission policy", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var textSource textstream.Source
	if cfg.TextMockMode() {
		textSource = textstream.NewMockSource("")
	} else {
		textSource = textstream.NewOpenAISource(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.LLMTimeout)
	}

	var synth voicestream.Synthesizer
	if cfg.VoiceMockMode() {
		synth = voicestream.NewMockSynthesizer()
	} else {
		synth = voicestream.NewHTTPSynthesizer(cfg.VoiceBaseURL, cfg.VoiceAPIKey)
	}

	sessions := session.New(
		session.WithTTL(cfg.SessionTTL),
		session.WithMaxRounds(cfg.SessionMaxRounds),
	)

	orch := &stream.Orchestrator{
		Text:         textSource,
		Voice:        synth,
		Sessions:     sessions,
		Retry:        retrywrap.Policy{MaxAttempts: cfg.RetryMaxAttempts, BaseDelay: cfg.RetryBaseDelay},
		PersistReply: cfg.PersistReply,
		TTSSource:    cfg.TTSSource,
		Logger:       logger,
	}
	if cfg.VoiceLineBaseURL != "" || cfg.VoiceLineUseMock {
		orch.Lines = lineout.New(cfg.VoiceLineBaseURL, cfg.VoiceLineUseMock, cfg.VoiceLineDir)
	}

	h := api.NewHandler(cfg, logger, sessions, audit, policyEngine, orch)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, "X-Voice-Id"},
		AllowCredentials: true,
	}))
	h.RegisterRoutes(e)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()
	logger.Info("relay listening", slog.Int("port", cfg.HTTPPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down relay")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown was not clean", slog.String("error", err.Error()))
	}
	logger.Info("relay stopped")
}
