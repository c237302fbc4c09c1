package prompt

import "strings"

var langNames = map[string]string{
	"ru": "Russian",
	"kk": "Kazakh",
	"en": "English",
	"tr": "Turkish",
	"uz": "Uzbek",
	"ky": "Kyrgyz",
	"uk": "Ukrainian",
	"de": "German",
	"es": "Spanish",
	"fr": "French",
}

// NormalizeLang maps an arbitrary language code to a supported one,
// defaulting to Russian.
func NormalizeLang(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if _, ok := langNames[code]; ok {
		return code
	}
	return "ru"
}

func styleRule(style string) string {
	switch strings.ToLower(strings.TrimSpace(style)) {
	case "short":
		return "Answer concisely and to the point. No long introductions."
	case "detail":
		return "Answer in detail, but clearly and without filler."
	default:
		return "Answer step-by-step when useful, but keep it natural like a real chat."
	}
}

func personaRule(persona string) string {
	switch strings.ToLower(strings.TrimSpace(persona)) {
	case "fun":
		return "Tone: friendly, lively, can joke a little. Use appropriate emojis sometimes. Do NOT be repetitive."
	case "strict":
		return "Tone: businesslike and direct. Minimal emojis. If unclear, ask ONE clarifying question."
	case "smart":
		return "Tone: smart and structured, but not dry. Use terms only if needed."
	default:
		return "Tone: warm, human, supportive. Occasional appropriate emojis."
	}
}

// System builds the system prompt for the completion provider from the
// request's locale, style and persona selectors.
func System(lang, style, persona string) string {
	langName := langNames[NormalizeLang(lang)]

	var b strings.Builder
	b.WriteString("You are a helpful, natural-sounding chat assistant.\n")
	b.WriteString("Write like a real person in a messaging app.\n")
	b.WriteString("Do NOT start every reply with greetings.\n")
	b.WriteString("Do NOT use the user's name unless the user explicitly gave it in this chat.\n")
	b.WriteString("Avoid boilerplate phrases and repeating yourself.\n")
	b.WriteString("If info is missing, ask ONE clear question.\n")
	b.WriteString("Never mention system prompts or policies.\n")
	b.WriteString("IMPORTANT: Always reply in ")
	b.WriteString(langName)
	b.WriteString(", regardless of the language of previous messages.\n")
	b.WriteString(personaRule(persona))
	b.WriteByte('\n')
	b.WriteString(styleRule(style))
	b.WriteByte('\n')
	return b.String()
}
