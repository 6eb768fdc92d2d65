// Package config provides configuration for the relay.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// TTSSource selects which text the audio stage synthesizes.
type TTSSource string

const (
	// TTSSourceInput synthesizes the original user input (legacy behavior).
	TTSSourceInput TTSSource = "input"
	// TTSSourceReply synthesizes the generated assistant reply.
	TTSSourceReply TTSSource = "reply"
)

// Config holds the relay configuration.
type Config struct {
	// Server settings
	HTTPPort       int
	AllowedOrigins []string

	// Text backend
	UseMock       bool
	OpenAIBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string
	LLMTimeout    time.Duration

	// Audio backend
	VoiceBaseURL string
	VoiceAPIKey  string
	VoiceUseMock bool

	// Orchestration choices
	PersistReply bool
	TTSSource    TTSSource

	// Session cache
	SessionTTL       time.Duration
	SessionMaxRounds int

	// Retry (stream establishment only)
	RetryMaxAttempts uint
	RetryBaseDelay   time.Duration

	// Audit store
	AuditDB string

	// Logging
	LogLevel           string
	LogToFile          bool
	LogFilePath        string
	LogMaxSizeMB       int
	LogBackupCount     int
	LogIncludeInput    bool
	LogIncludeOutput   string // none|delta|final|both
	LogContentMaxChars int
	LogRedactEnabled   bool
	SessionLogEnabled  bool
	SessionLogBaseDir  string

	// Optional per-sentence line relay
	VoiceLineBaseURL string
	VoiceLineUseMock bool
	VoiceLineDir     string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:       getEnvInt("PORT", 8080),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),

		UseMock:       getEnvBool("USE_MOCK", false),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		LLMTimeout:    time.Duration(getEnvInt("LLM_TIMEOUT_MS", 300000)) * time.Millisecond,

		VoiceBaseURL: getEnv("VOICE_CLONE_BASE_URL", ""),
		VoiceAPIKey:  getEnv("VOICE_CLONE_API_KEY", ""),
		VoiceUseMock: getEnvBool("VOICE_USE_MOCK", false),

		PersistReply: getEnvBool("PERSIST_REPLY", true),
		TTSSource:    TTSSourceInput,

		SessionTTL:       time.Duration(getEnvInt("SESSION_TTL_SECONDS", 7200)) * time.Second,
		SessionMaxRounds: getEnvInt("SESSION_MAX_ROUNDS", 10),

		RetryMaxAttempts: uint(getEnvInt("RETRY_MAX_ATTEMPTS", 3)),
		RetryBaseDelay:   time.Duration(getEnvInt("RETRY_BASE_DELAY_MS", 200)) * time.Millisecond,

		AuditDB: getEnv("AUDIT_DB", "file:relay.db?cache=shared&mode=rwc"),

		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogToFile:          getEnvBool("LOG_TO_FILE", false),
		LogFilePath:        getEnv("LOG_FILE_PATH", "logs/relay.log"),
		LogMaxSizeMB:       getEnvInt("LOG_MAX_SIZE_MB", 10),
		LogBackupCount:     getEnvInt("LOG_BACKUP_COUNT", 5),
		LogIncludeInput:    getEnvBool("LOG_INCLUDE_INPUT", false),
		LogIncludeOutput:   getEnv("LOG_INCLUDE_OUTPUT", "none"),
		LogContentMaxChars: getEnvInt("LOG_CONTENT_MAX_CHARS", 1000),
		LogRedactEnabled:   getEnvBool("LOG_REDACT_ENABLED", false),
		SessionLogEnabled:  getEnvBool("SESSION_LOG_ENABLED", false),
		SessionLogBaseDir:  getEnv("SESSION_LOG_BASE_DIR", "logs/sessions"),

		VoiceLineBaseURL: getEnv("VOICE_LINE_BASE_URL", ""),
		VoiceLineUseMock: getEnvBool("VOICE_LINE_USE_MOCK", false),
		VoiceLineDir:     getEnv("VOICE_LINE_DIR", "logs/lines"),
	}

	if TTSSource(getEnv("TTS_SOURCE", "input")) == TTSSourceReply {
		cfg.TTSSource = TTSSourceReply
	}
	switch cfg.LogIncludeOutput {
	case "none", "delta", "final", "both":
	default:
		cfg.LogIncludeOutput = "none"
	}
	return cfg
}

// TextMockMode reports whether the simulated text source should be used.
// An absent API key forces mock mode so the service stays usable offline.
func (c *Config) TextMockMode() bool {
	return c.UseMock || c.OpenAIAPIKey == ""
}

// VoiceMockMode reports whether the simulated audio source should be used.
func (c *Config) VoiceMockMode() bool {
	return c.VoiceUseMock || c.UseMock || c.VoiceBaseURL == ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return defaultVal
}
