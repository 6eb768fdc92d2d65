// Package prompts holds the built-in system prompt templates.
package prompts

import "sort"

var templates = map[string]string{
	"default":   "你是一个可靠的中文助手。请用简洁、准确的中文回答用户问题，并在合适时提供分点说明。",
	"assistant": "你是一位友好的助手，优先理解用户意图，提供清晰的下一步建议。",
	"coder":     "你是一名资深工程师，回答中优先给出可执行的代码、命令和步骤。",
}

// PreviewLen is the number of runes included in a template preview.
const PreviewLen = 40

// Get returns the template text for name.
func Get(name string) (string, bool) {
	text, ok := templates[name]
	return text, ok
}

// Names returns the template names in sorted order.
func Names() []string {
	names := make([]string, 0, len(templates))
	for name := range templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preview returns the first PreviewLen runes of the template text.
func Preview(name string) string {
	text := templates[name]
	runes := []rune(text)
	if len(runes) > PreviewLen {
		return string(runes[:PreviewLen])
	}
	return text
}
