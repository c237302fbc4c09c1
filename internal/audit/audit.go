// Package audit mirrors service activity to the admin Telegram group. All
// delivery is best-effort: callers log failures and move on.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/antoniostano/instagroq/internal/prompt"
)

const maxFieldRunes = 500

// Notifier delivers one audit line to the external channel.
type Notifier interface {
	Notify(ctx context.Context, line string) error
}

// Nop discards audit lines; used when no group is configured.
type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }

// Truncate caps a field at maxFieldRunes runes, marking the cut.
func Truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxFieldRunes {
		return s
	}
	return string(runes[:maxFieldRunes]) + "…"
}

// BuildExchangeLine renders the audit line for one chat exchange. Raw request
// text is unwrapped first so a rendered prompt blob accidentally passed as
// input does not nest a second wrapper into the log.
func BuildExchangeLine(at time.Time, userID int64, exchangeID, request, reply string) string {
	return fmt.Sprintf(
		"💬 chat\n🕒 %s\n🆔 user_id: %d\n🔖 %s\n➡️ %s\n⬅️ %s",
		at.Format("2006-01-02 15:04:05"),
		userID,
		exchangeID,
		Truncate(prompt.LastUserSegment(request)),
		Truncate(reply),
	)
}

// BuildImageLine renders the audit line for one image exchange.
func BuildImageLine(at time.Time, userID int64, exchangeID, mode, promptText string) string {
	return fmt.Sprintf(
		"🖼 image\n🕒 %s\n🆔 user_id: %d\n🔖 %s\n🎛 mode: %s\n➡️ %s",
		at.Format("2006-01-02 15:04:05"),
		userID,
		exchangeID,
		mode,
		Truncate(promptText),
	)
}

// BuildStartLine renders the audit line for a /start event.
func BuildStartLine(at time.Time, userID int64, username, fullName, chatType string, chatID int64, text string) string {
	if username == "" {
		username = "—"
	}
	if fullName == "" {
		fullName = "—"
	}
	return fmt.Sprintf(
		"🚀 /start\n🕒 %s\n👤 %s (@%s)\n🆔 user_id: %d\n💬 chat_type: %s\n🏷 chat_id: %d\n✉️ text: %s",
		at.Format("2006-01-02 15:04:05"),
		fullName,
		username,
		userID,
		chatType,
		chatID,
		Truncate(text),
	)
}
