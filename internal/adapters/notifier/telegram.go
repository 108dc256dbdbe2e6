package notifier

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"aegis-intel/internal/domain"
	"aegis-intel/internal/infra/metrics"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram отправляет оповещения в чат.
type Telegram struct {
	bot    sender
	chatID int64
	now    domain.Clock
}

// NewTelegram создаёт оповещатель для чата chatID.
func NewTelegram(bot sender, chatID int64) *Telegram {
	return &Telegram{bot: bot, chatID: chatID, now: time.Now}
}

// Name возвращает имя канала доставки.
func (t *Telegram) Name() string { return "telegram" }

// Notify отправляет одно сообщение, при необходимости разбитое на части.
func (t *Telegram) Notify(ctx context.Context, records []domain.IntelRecord) error {
	text := FormatAlert(records, t.now())
	for _, part := range splitMessage(text, telegramMessageLimit) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(t.chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		start := time.Now()
		_, err := t.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram", "send_message", strconv.FormatInt(t.chatID, 10), start, err)
		if err != nil {
			return fmt.Errorf("telegram: send: %w", err)
		}
	}
	return nil
}
