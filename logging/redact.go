package logging

import (
	"regexp"
	"strings"
)

var (
	emailPattern  = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phonePattern  = regexp.MustCompile(`\b(\+?\d[\d\- ]{7,}\d)\b`)
	secretPattern = regexp.MustCompile(`(?i)\b(api[_-]?key|token|secret|password)\b\s*[:=]\s*([A-Za-z0-9\-_/]{8,})`)
)

// Redact masks emails, phone-like digit runs, and secret-looking key=value
// pairs in text.
func Redact(text string) string {
	text = emailPattern.ReplaceAllStringFunc(text, maskEmail)
	text = phonePattern.ReplaceAllStringFunc(text, func(m string) string {
		return m[:3] + "***" + m[len(m)-2:]
	})
	text = secretPattern.ReplaceAllString(text, "$1=***")
	return text
}

// maskEmail keeps the first character of the user name and domain.
func maskEmail(v string) string {
	at := strings.Index(v, "@")
	if at <= 0 {
		return "***@***"
	}
	name := v[:at]
	domain := v[at+1:]
	maskedName := name[:1] + "***"
	maskedDomain := "***"
	if first, _, ok := strings.Cut(domain, "."); ok && first != "" {
		maskedDomain = first[:1] + "***"
	}
	return maskedName + "@" + maskedDomain
}

// truncationMark flags previews cut at the configured limit.
const truncationMark = "…(截断)"

// Preview is a length-bounded, optionally redacted view of content for
// logging.
type Preview struct {
	TextLen int    `json:"text_len"`
	Preview string `json:"preview"`
}

// BuildPreview produces the loggable preview of text: redacted when asked,
// truncated to maxChars runes with a marker.
func BuildPreview(text string, maxChars int, redact bool) Preview {
	if text == "" {
		return Preview{}
	}
	src := text
	if redact {
		src = Redact(src)
	}
	runes := []rune(src)
	if len(runes) > maxChars {
		return Preview{TextLen: len([]rune(text)), Preview: string(runes[:maxChars]) + truncationMark}
	}
	return Preview{TextLen: len([]rune(text)), Preview: src}
}
