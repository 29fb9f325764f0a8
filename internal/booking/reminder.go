package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/region23/bookingbot/internal/storage/models"
	"github.com/region23/bookingbot/pkg/logger"
	"github.com/region23/bookingbot/pkg/metrics"
)

// HandleBookingReminder рассылает клиентам напоминания о встречах,
// начинающихся в окне [now+fromHours, now+toHours]. Каждое бронирование
// получает напоминание не больше одного раза за время жизни процесса.
func (o *Orchestrator) HandleBookingReminder(ctx context.Context, fromHours, toHours int) (int, error) {
	if fromHours < 0 || toHours < fromHours {
		return 0, fmt.Errorf("invalid reminder window [%d, %d]", fromHours, toHours)
	}

	now := o.now()
	from := now.Add(time.Duration(fromHours) * time.Hour)
	to := now.Add(time.Duration(toHours) * time.Hour)

	bookings, err := o.store.GetBookingsInWindow(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to load bookings: %w", err)
	}

	sent := 0
	for _, b := range bookings {
		if !o.markReminded(b.UID) {
			continue
		}

		url := o.clientMeetingURL(ctx, b)
		report := o.notifier.NotifyClient(ctx, b, models.TriggerBookingReminder, url)
		if err := report.Err(); err != nil {
			o.log.Warn("Reminder delivery failed", logger.String("uid", b.UID), logger.Error(err))
		}
		metrics.RecordReminder()
		sent++
	}

	o.log.Info("Reminder sweep finished",
		logger.Int("found", len(bookings)),
		logger.Int("sent", sent),
	)
	return sent, nil
}

// markReminded добавляет uid в множество; false если напоминание уже было
func (o *Orchestrator) markReminded(uid string) bool {
	o.remindedMu.Lock()
	defer o.remindedMu.Unlock()
	if _, ok := o.reminded[uid]; ok {
		return false
	}
	o.reminded[uid] = struct{}{}
	return true
}

// clientMeetingURL ссылка клиента: облачная встреча платформы или короткая ссылка
func (o *Orchestrator) clientMeetingURL(ctx context.Context, b *models.Booking) string {
	if b.HasCloudMeeting() {
		return b.VideoCallURL()
	}

	url, err := o.meetings.GetMeetingURL(ctx, b.UID, models.ClientPrefix)
	if err != nil {
		o.log.Warn("Failed to get client meeting link", logger.String("uid", b.UID), logger.Error(err))
	}
	if url == "" {
		return b.VideoCallURL()
	}
	return url
}
