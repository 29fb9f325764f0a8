package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/region23/bookingbot/internal/meeting"
	"github.com/region23/bookingbot/internal/notification"
	"github.com/region23/bookingbot/internal/storage/models"
	apperrors "github.com/region23/bookingbot/pkg/errors"
	"github.com/region23/bookingbot/pkg/logger"
	"github.com/region23/bookingbot/pkg/metrics"
)

// MeetNotifiedTTL время, в течение которого повторный вход клиента не уведомляется
const MeetNotifiedTTL = 2 * time.Hour

// HandleMeetWebhook уведомляет организатора о первом входе клиента в комнату
func (o *Orchestrator) HandleMeetWebhook(ctx context.Context, event models.MeetWebhookEvent) error {
	if event.EventType != models.MeetEventJoined {
		metrics.RecordWebhookEvent("meet", string(event.EventType), "ignored")
		return nil
	}

	claims, err := meeting.ReadUnverified(event.JWT)
	if err != nil {
		metrics.RecordWebhookEvent("meet", string(event.EventType), "invalid")
		return apperrors.ErrInvalidToken.WithError(err)
	}
	if claims.Context.User.Role != string(models.RoleClient) || claims.Room == "" {
		metrics.RecordWebhookEvent("meet", string(event.EventType), "ignored")
		return nil
	}

	log := o.log.WithFields(logger.String("room", claims.Room))
	key := models.MeetNotifiedKey(claims.Room)

	// Ключ занимается до отправки и освобождается, если отправить не удалось
	claimed, err := o.keys.SetNX(ctx, key, "1", MeetNotifiedTTL)
	if err != nil {
		return fmt.Errorf("failed to claim %s: %w", key, err)
	}
	if !claimed {
		log.Info("Client join already notified")
		metrics.RecordWebhookEvent("meet", string(event.EventType), "duplicate")
		return nil
	}

	b, err := o.store.GetBooking(ctx, claims.Room)
	if err != nil || b == nil {
		o.release(ctx, log, key)
		if err != nil {
			return fmt.Errorf("failed to load booking %s: %w", claims.Room, err)
		}
		log.Warn("Booking for room not found")
		metrics.RecordWebhookEvent("meet", string(event.EventType), "not_found")
		return nil
	}

	d := o.notifier.NotifyOrganizerTelegram(ctx, &b.Organizer, b, models.TriggerMeetClientJoined, b.VideoCallURL())
	if d.Status == notification.StatusFailed {
		o.release(ctx, log, key)
		metrics.RecordWebhookEvent("meet", string(event.EventType), "error")
		return d.Err
	}

	metrics.RecordWebhookEvent("meet", string(event.EventType), "ok")
	return nil
}

func (o *Orchestrator) release(ctx context.Context, log *logger.Logger, key string) {
	if err := o.keys.Delete(ctx, key); err != nil {
		log.Warn("Failed to release dedup key", logger.String("key", key), logger.Error(err))
	}
}
