package webhook

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/region23/bookingbot/internal/storage/models"
	"github.com/region23/bookingbot/pkg/logger"
	"github.com/region23/bookingbot/pkg/metrics"
)

// ProcessedTTL сколько помнить обработанные события
const ProcessedTTL = 24 * time.Hour

// Dedup отмечает обработанные события
type Dedup interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

// Messenger отправляет сообщения администраторам
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// MailHandler пересылает события почтового провайдера администраторам
type MailHandler struct {
	dedup     Dedup
	messenger Messenger
	admins    []int64
	log       *logger.Logger
}

// NewMailHandler создает обработчик
func NewMailHandler(dedup Dedup, messenger Messenger, admins []int64, log *logger.Logger) *MailHandler {
	return &MailHandler{dedup: dedup, messenger: messenger, admins: admins, log: log}
}

// Handle обрабатывает событие. Возвращает количество администраторов, получивших сообщение.
func (h *MailHandler) Handle(ctx context.Context, event models.MailWebhookEvent) (int, error) {
	delivery := event.Payload
	fresh, err := h.dedup.SetNX(ctx, models.MailWebhookKey(delivery.Message.ID), "1", ProcessedTTL)
	if err != nil {
		return 0, fmt.Errorf("failed to mark mail event: %w", err)
	}
	if !fresh {
		h.log.Debug("Mail event already processed", logger.Int64("message_id", delivery.Message.ID))
		metrics.RecordWebhookEvent("mail", event.Event, "duplicate")
		return 0, nil
	}

	text := FormatMailEvent(delivery)

	sent := 0
	for _, chatID := range h.admins {
		if err := h.messenger.SendMessage(ctx, chatID, text); err != nil {
			h.log.Error("Failed to forward mail event",
				logger.Int64("chat_id", chatID),
				logger.Int64("message_id", delivery.Message.ID),
				logger.Error(err),
			)
			continue
		}
		sent++
	}

	metrics.RecordWebhookEvent("mail", event.Event, "ok")
	return sent, nil
}

// FormatMailEvent текст сообщения о доставке письма
func FormatMailEvent(d models.MailDelivery) string {
	return fmt.Sprintf("Mail webhook event:\n\n<b>To:</b> %s\n<b>Status:</b> %s\n<b>Output:</b> %s",
		html.EscapeString(d.Message.To),
		html.EscapeString(d.Status),
		html.EscapeString(d.Output),
	)
}
