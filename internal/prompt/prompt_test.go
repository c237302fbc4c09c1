package prompt

import (
	"strings"
	"testing"

	"github.com/antoniostano/instagroq/internal/memory"
)

func TestRenderFormat(t *testing.T) {
	history := []memory.Turn{
		{Role: memory.RoleUser, Text: "hi"},
		{Role: memory.RoleAssistant, Text: "hello!"},
	}
	got := Render(history, "how are you?")
	want := "Conversation:\n" +
		"User: hi\n" +
		"Assistant: hello!\n" +
		"\n" +
		"User: how are you?\n" +
		"Assistant:"
	if got != want {
		t.Fatalf("Render = %q, want %q", got, want)
	}
}

func TestRenderEmptyHistory(t *testing.T) {
	got := Render(nil, "hello")
	want := "Conversation:\n(empty)\n\nUser: hello\nAssistant:"
	if got != want {
		t.Fatalf("Render = %q, want %q", got, want)
	}
}

func TestRenderDeterministic(t *testing.T) {
	history := []memory.Turn{
		{Role: memory.RoleUser, Text: "a"},
		{Role: memory.RoleAssistant, Text: "b"},
		{Role: memory.RoleUser, Text: "c"},
	}
	first := Render(history, "again")
	second := Render(history, "again")
	if first != second {
		t.Fatalf("Render not deterministic:\n%q\n%q", first, second)
	}
}

func TestLastUserSegmentUnwraps(t *testing.T) {
	blob := Render([]memory.Turn{
		{Role: memory.RoleUser, Text: "earlier"},
		{Role: memory.RoleAssistant, Text: "reply"},
	}, "the actual question")
	if got := LastUserSegment(blob); got != "the actual question" {
		t.Fatalf("LastUserSegment = %q, want %q", got, "the actual question")
	}
}

func TestLastUserSegmentPassThrough(t *testing.T) {
	for _, in := range []string{
		"just a plain message",
		"User: looks labeled but has no header",
		"",
	} {
		if got := LastUserSegment(in); got != in {
			t.Fatalf("LastUserSegment(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestSystemSelectors(t *testing.T) {
	s := System("en", "short", "strict")
	if !strings.Contains(s, "Always reply in English") {
		t.Fatalf("system prompt missing language rule: %q", s)
	}
	if !strings.Contains(s, "Answer concisely") {
		t.Fatalf("system prompt missing style rule: %q", s)
	}
	if !strings.Contains(s, "businesslike and direct") {
		t.Fatalf("system prompt missing persona rule: %q", s)
	}

	// Unknown selectors fall back to defaults.
	d := System("xx", "", "")
	if !strings.Contains(d, "Always reply in Russian") {
		t.Fatalf("default language not Russian: %q", d)
	}
	if !strings.Contains(d, "warm, human, supportive") {
		t.Fatalf("default persona missing: %q", d)
	}
}

func TestNormalizeLang(t *testing.T) {
	if got := NormalizeLang(" EN "); got != "en" {
		t.Fatalf("NormalizeLang = %q, want en", got)
	}
	if got := NormalizeLang("zz"); got != "ru" {
		t.Fatalf("NormalizeLang fallback = %q, want ru", got)
	}
}
