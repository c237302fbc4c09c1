// Package bot runs the Telegram front end: the user menu and the admin
// commands that manage entitlement, mirroring activity to the admin group.
package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/antoniostano/instagroq/internal/access"
	"github.com/antoniostano/instagroq/internal/audit"
)

// Config carries the bot's runtime settings.
type Config struct {
	AdminUserID  int64
	AdminGroupID int64
	MiniAppURL   string
}

// Bot is the long-polling Telegram front end.
type Bot struct {
	api         *tgbotapi.BotAPI
	cfg         Config
	accessStore access.Store
	notifier    audit.Notifier
	now         func() time.Time
}

func New(api *tgbotapi.BotAPI, cfg Config, accessStore access.Store, notifier audit.Notifier) *Bot {
	if notifier == nil {
		notifier = audit.Nop{}
	}
	return &Bot{
		api:         api,
		cfg:         cfg,
		accessStore: accessStore,
		notifier:    notifier,
		now:         time.Now,
	}
}

// Run consumes updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	log.Printf("bot: listening as @%s", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "whoami":
		if b.isAdmin(msg) {
			b.reply(msg, fmt.Sprintf("✅ you are admin\nuser_id: %d", msg.From.ID))
		}
	case "free":
		b.handleAdminGrant(ctx, msg, "free")
	case "paid":
		b.handleAdminGrant(ctx, msg, "paid")
	case "block":
		b.handleAdminGrant(ctx, msg, "block")
	case "unblock":
		b.handleAdminGrant(ctx, msg, "unblock")
	case "status":
		b.handleAdminStatus(ctx, msg)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From != nil {
		username, fullName := identity(msg.From)
		line := audit.BuildStartLine(b.now(), msg.From.ID, username, fullName, msg.Chat.Type, msg.Chat.ID, msg.Text)
		if err := b.notifier.Notify(ctx, line); err != nil {
			log.Printf("bot: start audit failed: %v", err)
		}
	}

	var rec access.Record
	authorized := false
	if msg.From != nil {
		rec = b.accessStore.Get(ctx, msg.From.ID)
		authorized = rec.AuthorizedAt(b.now())
	}

	out := tgbotapi.NewMessage(msg.Chat.ID, "🤖 InstaGroq AI\n\nPick an action with the buttons below 👇")
	out.ReplyMarkup = mainMenu(b.cfg.MiniAppURL, rec, authorized)
	if _, err := b.api.Send(out); err != nil {
		log.Printf("bot: send start menu failed: %v", err)
	}
}

func (b *Bot) handleCallback(cq *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		log.Printf("bot: answer callback failed: %v", err)
	}
	if cq.Message == nil {
		return
	}

	var text string
	switch cq.Data {
	case "miniapp_not_set":
		text = "⚠️ MINIAPP_URL is not configured.\n\nSet MINIAPP_URL to your Mini App address."
	case "buy_pack":
		text = "⭐ Message packs (example):\n• 100 messages — 99₽\n• 500 messages — 399₽\n• 2000 messages — 999₽\n\nPayments will be wired up later."
	case "settings":
		text = "⚙️ Settings are coming soon."
	case "help":
		text = "❓ Tap \"Open Mini App\" and chat inside the Mini App."
	default:
		return
	}
	if _, err := b.api.Send(tgbotapi.NewMessage(cq.Message.Chat.ID, text)); err != nil {
		log.Printf("bot: send callback reply failed: %v", err)
	}
}

// handleAdminGrant serves /free /paid /block /unblock.
func (b *Bot) handleAdminGrant(ctx context.Context, msg *tgbotapi.Message, action string) {
	if !b.isAdmin(msg) {
		return
	}
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		b.reply(msg, fmt.Sprintf("Usage: /%s <user_id> [days|forever]", action))
		return
	}
	uid := parseUserID(args[0])
	if uid == 0 {
		b.reply(msg, "❌ Cannot read user_id. A number is required.")
		return
	}

	until, ok := int64(0), true
	if len(args) > 1 {
		until, ok = parseExpiry(args[1], b.now())
		if !ok {
			b.reply(msg, "❌ Cannot read the duration. Use a number of days or \"forever\".")
			return
		}
	}

	var (
		err  error
		head string
	)
	switch action {
	case "free":
		if until != 0 {
			err = b.accessStore.SetFreeUntil(ctx, uid, until)
		} else {
			err = b.accessStore.SetFree(ctx, uid, true)
		}
		head = fmt.Sprintf("✅ FREE enabled for %d", uid)
	case "paid":
		err = b.accessStore.SetPaid(ctx, uid, true)
		head = fmt.Sprintf("✅ PAID enabled for %d", uid)
	case "block":
		if until != 0 {
			err = b.accessStore.SetBlockedUntil(ctx, uid, until)
		} else {
			err = b.accessStore.SetBlocked(ctx, uid, true)
		}
		head = fmt.Sprintf("⛔ Blocked %d", uid)
	case "unblock":
		err = b.accessStore.SetBlocked(ctx, uid, false)
		head = fmt.Sprintf("✅ Unblocked %d", uid)
	}
	if err != nil {
		b.reply(msg, fmt.Sprintf("⚠️ Storage error: %v", err))
		return
	}

	rec := b.accessStore.Get(ctx, uid)
	b.reply(msg, fmt.Sprintf("%s\n%s", head, formatRecord(rec)))

	// Push the refreshed menu to the user right away; failure is reported
	// to the admin, not fatal.
	if err := b.pushUserMenu(ctx, uid); err != nil {
		b.reply(msg, fmt.Sprintf("⚠️ Could not send the menu to the user: %v", err))
	}
}

func (b *Bot) handleAdminStatus(ctx context.Context, msg *tgbotapi.Message) {
	if !b.isAdmin(msg) {
		return
	}
	uid := parseUserID(msg.CommandArguments())
	if uid == 0 {
		b.reply(msg, "Usage: /status <user_id>")
		return
	}
	rec := b.accessStore.Get(ctx, uid)
	b.reply(msg, fmt.Sprintf("ℹ️ Status %d\n%s", uid, formatRecord(rec)))
}

func (b *Bot) pushUserMenu(ctx context.Context, uid int64) error {
	rec := b.accessStore.Get(ctx, uid)
	authorized := rec.AuthorizedAt(b.now())
	out := tgbotapi.NewMessage(uid, menuText(rec, authorized))
	out.ReplyMarkup = mainMenu(b.cfg.MiniAppURL, rec, authorized)
	_, err := b.api.Send(out)
	return err
}

// isAdmin gates admin commands to the configured admin user and, when set,
// the admin group chat.
func (b *Bot) isAdmin(msg *tgbotapi.Message) bool {
	if msg.From == nil {
		return false
	}
	if b.cfg.AdminUserID != 0 && msg.From.ID != b.cfg.AdminUserID {
		return false
	}
	if b.cfg.AdminGroupID != 0 && msg.Chat.ID != b.cfg.AdminGroupID {
		return false
	}
	return true
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	out := tgbotapi.NewMessage(msg.Chat.ID, text)
	out.ReplyToMessageID = msg.MessageID
	if _, err := b.api.Send(out); err != nil {
		log.Printf("bot: reply failed: %v", err)
	}
}

// parseExpiry turns an optional grant duration argument into an expiry in
// epoch seconds. "forever" maps to the never-expires sentinel.
func parseExpiry(arg string, now time.Time) (int64, bool) {
	arg = strings.ToLower(strings.TrimSpace(arg))
	if arg == "forever" {
		return access.Forever, true
	}
	days, err := strconv.Atoi(arg)
	if err != nil || days <= 0 {
		return 0, false
	}
	return now.Add(time.Duration(days) * 24 * time.Hour).Unix(), true
}

// parseUserID extracts a numeric user id from an admin command argument,
// tolerating pasted decorations around the digits.
func parseUserID(arg string) int64 {
	var sb strings.Builder
	for _, r := range strings.TrimSpace(arg) {
		if r >= '0' && r <= '9' || r == '-' {
			sb.WriteRune(r)
		}
	}
	n, err := strconv.ParseInt(sb.String(), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func identity(u *tgbotapi.User) (username, fullName string) {
	username = u.UserName
	fullName = strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	return username, fullName
}

func formatRecord(r access.Record) string {
	return fmt.Sprintf("free=%t paid=%t blocked=%t", r.IsFree, r.IsPaid, r.IsBlocked)
}
