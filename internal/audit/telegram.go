package audit

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier sends audit lines to the admin group chat.
type TelegramNotifier struct {
	bot     *tgbotapi.BotAPI
	groupID int64
	timeout time.Duration
}

func NewTelegramNotifier(bot *tgbotapi.BotAPI, groupID int64) *TelegramNotifier {
	return &TelegramNotifier{
		bot:     bot,
		groupID: groupID,
		timeout: 12 * time.Second,
	}
}

func (n *TelegramNotifier) Notify(ctx context.Context, line string) error {
	if n.bot == nil || n.groupID == 0 {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := n.bot.Send(tgbotapi.NewMessage(n.groupID, line))
		done <- err
	}()

	timer := time.NewTimer(n.timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("audit send timed out after %s", n.timeout)
	case err := <-done:
		if err != nil {
			return fmt.Errorf("audit send: %w", err)
		}
		return nil
	}
}
