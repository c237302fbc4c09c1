package bot

import (
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/antoniostano/instagroq/internal/access"
)

func TestParseUserID(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"42", 42},
		{"  42  ", 42},
		{"id: 42", 42},
		{"user_id=12345", 12345},
		{"-1001234567890", -1001234567890},
		{"abc", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := parseUserID(tt.in); got != tt.want {
			t.Fatalf("parseUserID(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseExpiry(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	until, ok := parseExpiry("forever", now)
	if !ok || until != access.Forever {
		t.Fatalf("parseExpiry(forever) = %d, %t", until, ok)
	}

	until, ok = parseExpiry("7", now)
	if !ok || until != now.Add(7*24*time.Hour).Unix() {
		t.Fatalf("parseExpiry(7) = %d, %t", until, ok)
	}

	for _, bad := range []string{"", "0", "-3", "soon"} {
		if _, ok := parseExpiry(bad, now); ok {
			t.Fatalf("parseExpiry(%q) accepted", bad)
		}
	}
}

func TestIsAdmin(t *testing.T) {
	b := New(nil, Config{AdminUserID: 7, AdminGroupID: -100}, access.NewInMemoryStore(), nil)

	msg := func(from int64, chat int64) *tgbotapi.Message {
		return &tgbotapi.Message{
			From: &tgbotapi.User{ID: from},
			Chat: &tgbotapi.Chat{ID: chat},
		}
	}

	if !b.isAdmin(msg(7, -100)) {
		t.Fatalf("admin in admin group should pass")
	}
	if b.isAdmin(msg(8, -100)) {
		t.Fatalf("non-admin user should be rejected")
	}
	if b.isAdmin(msg(7, 7)) {
		t.Fatalf("admin outside the admin group should be rejected")
	}
	if b.isAdmin(&tgbotapi.Message{Chat: &tgbotapi.Chat{ID: -100}}) {
		t.Fatalf("message without sender should be rejected")
	}

	open := New(nil, Config{AdminUserID: 7}, access.NewInMemoryStore(), nil)
	if !open.isAdmin(msg(7, 7)) {
		t.Fatalf("without a group restriction any chat should pass")
	}
}

func TestMainMenuMiniAppButton(t *testing.T) {
	rec := access.Record{UserID: 42, IsFree: true}
	authorized := rec.AuthorizedAt(time.Now())

	menu := mainMenu("https://example.com/app", rec, authorized)
	first := menu.InlineKeyboard[0][0]
	if first.WebApp == nil || first.WebApp.URL != "https://example.com/app" {
		t.Fatalf("first button = %+v, want WebApp button", first)
	}

	menu = mainMenu("", rec, authorized)
	first = menu.InlineKeyboard[0][0]
	if first.CallbackData == nil || *first.CallbackData != "miniapp_not_set" {
		t.Fatalf("first button = %+v, want miniapp_not_set fallback", first)
	}

	menu = mainMenu("https://example.com/app", access.Record{UserID: 42}, false)
	for _, row := range menu.InlineKeyboard {
		for _, btn := range row {
			if btn.WebApp != nil {
				t.Fatalf("unauthorized menu must not carry a WebApp button")
			}
		}
	}
}

func TestMenuText(t *testing.T) {
	if got := menuText(access.Record{IsBlocked: true}, false); !strings.Contains(got, "restricted") {
		t.Fatalf("blocked text = %q", got)
	}
	active := menuText(access.Record{IsFree: true}, true)
	idle := menuText(access.Record{}, false)
	if active == idle {
		t.Fatalf("active and idle menu texts must differ")
	}
}
