package policy

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	assert.NoError(t, err)

	tests := []struct {
		name  string
		input Input
		want  string
	}{
		{"normal request", Input{Model: "gpt-4o-mini", InputChars: 20}, DecisionAllow},
		{"oversized input", Input{Model: "gpt-4o-mini", InputChars: 20000}, DecisionBlock},
		{"internal model", Input{Model: "internal-eval", InputChars: 5}, DecisionBlock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Evaluate(ctx, tt.input)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCustomPolicyRejectsVoice(t *testing.T) {
	custom := strings.Replace(DefaultPolicy, "startswith(input.model, \"internal-\")",
		"input.voice_id == \"banned-voice\"", 1)
	ctx := context.Background()
	engine, err := NewEngine(ctx, custom)
	assert.NoError(t, err)

	got, err := engine.Evaluate(ctx, Input{Model: "gpt-4o-mini", VoiceID: "banned-voice"})
	assert.NoError(t, err)
	assert.Equal(t, DecisionBlock, got)
}

func TestNewEngineRejectsBadModule(t *testing.T) {
	_, err := NewEngine(context.Background(), "package broken\ndecision :=")
	assert.Error(t, err)
}
