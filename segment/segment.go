// Package segment splits streamed text increments into complete sentences
// on common Chinese and English terminators.
package segment

import "strings"

// terminators end a sentence; the terminator stays attached to it.
const terminators = "。！？!?；;\n"

// Segmenter buffers incomplete text between Feed calls.
type Segmenter struct {
	buffer []rune
}

// New returns an empty segmenter.
func New() *Segmenter {
	return &Segmenter{}
}

// Feed appends delta to the buffer and returns any sentences completed by
// it, trimmed of surrounding whitespace. Whitespace-only segments are
// skipped.
func (s *Segmenter) Feed(delta string) []string {
	s.buffer = append(s.buffer, []rune(delta)...)

	var out []string
	start := 0
	for i, r := range s.buffer {
		if !strings.ContainsRune(terminators, r) {
			continue
		}
		sent := strings.TrimSpace(string(s.buffer[start : i+1]))
		if sent != "" {
			out = append(out, sent)
		}
		start = i + 1
	}
	s.buffer = s.buffer[start:]
	return out
}

// Flush returns the residual buffer as a final sentence, if any, and
// resets the segmenter.
func (s *Segmenter) Flush() []string {
	residual := strings.TrimSpace(string(s.buffer))
	s.buffer = nil
	if residual == "" {
		return nil
	}
	return []string{residual}
}
