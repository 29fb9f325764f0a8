package booking

import (
	"context"
	"strconv"

	"github.com/region23/bookingbot/internal/notification"
	"github.com/region23/bookingbot/internal/storage/models"
	apperrors "github.com/region23/bookingbot/pkg/errors"
	"github.com/region23/bookingbot/pkg/logger"
)

func (o *Orchestrator) runFlow(ctx context.Context, log *logger.Logger, trigger models.TriggerEvent, uid string) error {
	switch trigger {
	case models.TriggerBookingCreated:
		return o.handleScheduled(ctx, log, uid, trigger, false)
	case models.TriggerBookingRescheduled:
		return o.handleScheduled(ctx, log, uid, trigger, true)
	case models.TriggerBookingPaymentInitiated:
		return o.handleReassigned(ctx, log, uid)
	case models.TriggerBookingCancelled:
		return o.handleCancelled(ctx, log, uid)
	default:
		log.Warn("Unknown trigger event")
		return nil
	}
}

// loadBooking обязательный шаг: без бронирования сценарий прерывается
func (o *Orchestrator) loadBooking(ctx context.Context, uid string) (*models.Booking, error) {
	b, err := o.store.GetBooking(ctx, uid)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, apperrors.ErrBookingNotFound.WithContext(uid)
	}
	return b, nil
}

func organizerParticipantID(b *models.Booking) string {
	return strconv.FormatInt(b.Organizer.ID, 10)
}

// handleScheduled создание и перенос: чат, ссылки, уведомления
func (o *Orchestrator) handleScheduled(ctx context.Context, log *logger.Logger, uid string, trigger models.TriggerEvent, isUpdate bool) error {
	b, err := o.loadBooking(ctx, uid)
	if err != nil {
		return err
	}

	if err := o.chat.CreateChat(ctx, b.UID, organizerParticipantID(b), b.Client.Email); err != nil {
		log.Warn("Failed to create chat", logger.Error(err))
	}

	if b.FromReschedule != "" {
		o.attachPredecessor(ctx, log, b)
	}

	organizerURL := o.meetingURL(ctx, log, b, organizerParticipantID(b), b.Organizer.Name, isUpdate, true, "")
	o.logReport(log, "organizer", o.notifier.NotifyOrganizer(ctx, &b.Organizer, b, trigger, organizerURL))

	clientURL := o.meetingURL(ctx, log, b, b.Client.Email, b.Client.Name, isUpdate, false, models.ClientPrefix)
	o.logReport(log, "client", o.notifier.NotifyClient(ctx, b, trigger, clientURL))

	return nil
}

// attachPredecessor подгружает исходное бронирование и удаляет его чат
func (o *Orchestrator) attachPredecessor(ctx context.Context, log *logger.Logger, b *models.Booking) {
	prev, err := o.store.GetBooking(ctx, b.FromReschedule)
	if err != nil {
		log.Warn("Failed to load previous booking",
			logger.String("previous_uid", b.FromReschedule),
			logger.Error(err),
		)
		return
	}
	if prev == nil {
		log.Info("Previous booking not found", logger.String("previous_uid", b.FromReschedule))
		return
	}
	b.PreviousBooking = prev

	if err := o.chat.DeleteChat(ctx, prev.UID); err != nil {
		log.Warn("Failed to delete previous chat",
			logger.String("previous_uid", prev.UID),
			logger.Error(err),
		)
	}
}

// handleReassigned смена организатора
func (o *Orchestrator) handleReassigned(ctx context.Context, log *logger.Logger, uid string) error {
	b, err := o.loadBooking(ctx, uid)
	if err != nil {
		return err
	}

	o.notifyPreviousOrganizer(ctx, log, b)

	if err := o.chat.DeleteChat(ctx, b.UID); err != nil {
		log.Warn("Failed to delete chat", logger.Error(err))
	}
	if err := o.chat.CreateChat(ctx, b.UID, organizerParticipantID(b), b.Client.Email); err != nil {
		log.Warn("Failed to recreate chat", logger.Error(err))
	}

	// Ссылка организатора перепривязывается к тому же uid
	b.FromReschedule = ""
	organizerURL := o.meetingURL(ctx, log, b, organizerParticipantID(b), b.Organizer.Name, true, true, "")
	o.logReport(log, "organizer", o.notifier.NotifyOrganizer(ctx, &b.Organizer, b, models.TriggerBookingCreated, organizerURL))

	return nil
}

func (o *Orchestrator) notifyPreviousOrganizer(ctx context.Context, log *logger.Logger, b *models.Booking) {
	if b.ReassignByID == nil {
		log.Warn("Reassigned booking has no previous organizer")
		return
	}

	prev, err := o.store.GetUserByID(ctx, *b.ReassignByID)
	if err != nil {
		log.Warn("Failed to load previous organizer",
			logger.Int64("user_id", *b.ReassignByID),
			logger.Error(err),
		)
		return
	}
	if prev == nil {
		log.Warn("Previous organizer not found", logger.Int64("user_id", *b.ReassignByID))
		return
	}

	o.logReport(log, "previous_organizer", o.notifier.NotifyOrganizer(ctx, prev, b, models.TriggerBookingCancelled, ""))
}

// handleCancelled уведомления, удаление чата и обеих ссылок
func (o *Orchestrator) handleCancelled(ctx context.Context, log *logger.Logger, uid string) error {
	b, err := o.loadBooking(ctx, uid)
	if err != nil {
		return err
	}

	o.logReport(log, "organizer", o.notifier.NotifyOrganizer(ctx, &b.Organizer, b, models.TriggerBookingCancelled, ""))
	o.logReport(log, "client", o.notifier.NotifyClient(ctx, b, models.TriggerBookingCancelled, ""))

	if err := o.chat.DeleteChat(ctx, b.UID); err != nil {
		log.Warn("Failed to delete chat", logger.Error(err))
	}

	for _, prefix := range []string{"", models.ClientPrefix} {
		if err := o.meetings.DeleteMeetingURL(ctx, b.UID, prefix); err != nil {
			log.Warn("Failed to delete meeting link",
				logger.String("external_id", prefix+b.UID),
				logger.Error(err),
			)
		}
	}

	return nil
}

// meetingURL создает ссылку; ошибка записи в metadata не отменяет отправку ссылки
func (o *Orchestrator) meetingURL(ctx context.Context, log *logger.Logger, b *models.Booking, participantID, participantName string, isUpdate, isUpdateInDB bool, prefix string) string {
	url, err := o.meetings.CreateMeetingURL(ctx, b, participantID, participantName, isUpdate, isUpdateInDB, prefix)
	if err != nil {
		log.Error("Failed to set up meeting link",
			logger.String("role", string(models.RoleForPrefix(prefix))),
			logger.Error(err),
		)
	}
	return url
}

func (o *Orchestrator) logReport(log *logger.Logger, recipient string, report notification.Report) {
	if err := report.Err(); err != nil {
		log.Warn("Notification delivered partially",
			logger.String("recipient", recipient),
			logger.Int("sent", report.Sent()),
			logger.Error(err),
		)
		return
	}
	log.Debug("Notification processed",
		logger.String("recipient", recipient),
		logger.Int("sent", report.Sent()),
	)
}
