package domain

// ChatStreamRequest is the body of POST /chat/stream. The GET variant maps
// query parameters onto the same shape.
type ChatStreamRequest struct {
	Model            string    `json:"model,omitempty"`
	Input            string    `json:"input"`
	SessionID        string    `json:"sessionId,omitempty"`
	System           string    `json:"system,omitempty"`
	SystemPromptName string    `json:"systemPromptName,omitempty"`
	Temperature      *float64  `json:"temperature,omitempty"`
	Messages         []Message `json:"messages,omitempty"`
}

// ResolvedTemperature applies the default sampling temperature.
func (r *ChatStreamRequest) ResolvedTemperature() float64 {
	if r.Temperature == nil {
		return 0.7
	}
	return *r.Temperature
}
