// Package domain defines the data model shared across the relay.
package domain

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentPart is one element of a message's rich content.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Message is a single conversation turn in the provider-agnostic format
// used both on the wire to the text backend and in the session cache.
type Message struct {
	Role    Role          `json:"role"`
	Content []ContentPart `json:"content"`
}

// NewTextMessage builds a message with a single text content part.
func NewTextMessage(role Role, text string) Message {
	return Message{
		Role:    role,
		Content: []ContentPart{{Type: "text", Text: text}},
	}
}

// Text concatenates the text parts of a message.
func (m Message) Text() string {
	var out string
	for _, p := range m.Content {
		if p.Type == "text" {
			out += p.Text
		}
	}
	return out
}

// BuildConversation assembles the per-request message list:
// [system?] + history + current user input. The returned slice is owned by
// the caller for the request's lifetime.
func BuildConversation(systemText string, history []Message, userInput string) []Message {
	msgs := make([]Message, 0, len(history)+2)
	if systemText != "" {
		msgs = append(msgs, NewTextMessage(RoleSystem, systemText))
	}
	msgs = append(msgs, history...)
	msgs = append(msgs, NewTextMessage(RoleUser, userInput))
	return msgs
}
