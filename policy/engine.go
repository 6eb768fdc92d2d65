// Package policy evaluates the request-admission policy in front of the
// paid upstreams.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decision values a policy can return.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Input is the view of a chat request the policy sees.
type Input struct {
	Model      string `json:"model"`
	SessionID  string `json:"session_id"`
	VoiceID    string `json:"voice_id"`
	InputChars int    `json:"input_chars"`
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a policy engine from the given rego module.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.chat_policy.decision"),
		rego.Module("chat_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate returns the policy decision for one request. A policy that
// yields nothing defaults to allow.
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, nil
	}
	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return DecisionAllow, nil
}

// DefaultPolicy is the built-in admission policy: everything is allowed
// except oversized inputs and models reserved for internal use.
const DefaultPolicy = `
package chat_policy

default decision = "allow"

decision = "block" {
	input.input_chars > 16000
}

decision = "block" {
	startswith(input.model, "internal-")
}
`
