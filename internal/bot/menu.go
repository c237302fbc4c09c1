package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/antoniostano/instagroq/internal/access"
)

// mainMenu builds the inline keyboard shown under every menu message. The
// Mini App button appears only for users with active access and a configured
// URL.
func mainMenu(miniAppURL string, rec access.Record, authorized bool) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	if authorized && !rec.IsBlocked {
		if miniAppURL != "" {
			rows = append(rows, []tgbotapi.InlineKeyboardButton{{
				Text:   "🚀 Open Mini App",
				WebApp: &tgbotapi.WebAppInfo{URL: miniAppURL},
			}})
		} else {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🚀 Open Mini App", "miniapp_not_set"),
			))
		}
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⭐ Buy pack", "buy_pack"),
	))
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⚙️ Settings", "settings"),
		tgbotapi.NewInlineKeyboardButtonData("❓ Help", "help"),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func menuText(rec access.Record, authorized bool) string {
	switch {
	case rec.IsBlocked:
		return "⛔ Access is restricted. Contact the administrator."
	case authorized:
		return "✅ Access is active. Tap the button below 👇"
	default:
		return "⭐ To open the Mini App, buy a pack (or ask the admin for FREE access)."
	}
}
