// Package prompt renders conversation history and selector-driven system
// prompts into the text blocks sent to the completion provider. Everything
// here is a pure function: same inputs, byte-identical output.
package prompt

import (
	"strings"

	"github.com/antoniostano/instagroq/internal/memory"
)

// Markers of the rendered wrapper. LastUserSegment relies on these to detect
// a prompt blob that was accidentally passed back in as raw text.
const (
	headerMarker    = "Conversation:"
	userLabel       = "User: "
	assistantLabel  = "Assistant: "
	assistantMarker = "Assistant:"
	emptyHistory    = "(empty)"
)

// Render assembles the block sent to the completion provider: each prior turn
// labeled by role, then the new utterance, then an open marker for the reply.
func Render(history []memory.Turn, userText string) string {
	var b strings.Builder
	b.WriteString(headerMarker)
	b.WriteByte('\n')
	if len(history) == 0 {
		b.WriteString(emptyHistory)
		b.WriteByte('\n')
	} else {
		for _, t := range history {
			if t.Role == memory.RoleUser {
				b.WriteString(userLabel)
			} else {
				b.WriteString(assistantLabel)
			}
			b.WriteString(t.Text)
			b.WriteByte('\n')
		}
	}
	b.WriteByte('\n')
	b.WriteString(userLabel)
	b.WriteString(userText)
	b.WriteByte('\n')
	b.WriteString(assistantMarker)
	return b.String()
}

// LastUserSegment returns the final user utterance from a rendered prompt
// blob, or the input unchanged when it does not look like one. It exists so
// memory-less callers that pass a full prompt back in do not get it wrapped a
// second time (audit lines, mostly).
func LastUserSegment(blob string) string {
	if !strings.HasPrefix(blob, headerMarker) {
		return blob
	}
	idx := strings.LastIndex(blob, "\n"+userLabel)
	if idx < 0 {
		return blob
	}
	seg := blob[idx+1+len(userLabel):]
	if end := strings.Index(seg, "\n"+assistantMarker); end >= 0 {
		seg = seg[:end]
	}
	return strings.TrimSpace(seg)
}
