package validation

import (
	"regexp"

	"github.com/region23/bookingbot/internal/storage/models"
	"github.com/region23/bookingbot/pkg/errors"
)

// maxReminderHours верхняя граница окна напоминаний
const maxReminderHours = 24 * 14

var uidRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidateUID проверяет идентификатор бронирования
func ValidateUID(uid string) error {
	if uid == "" {
		return errors.ErrInvalidPayload.WithContext("uid бронирования не может быть пустым")
	}
	if !uidRegex.MatchString(uid) {
		return errors.ErrInvalidPayload.WithContext(map[string]interface{}{
			"uid":    uid,
			"reason": "uid содержит недопустимые символы",
		})
	}
	return nil
}

// ValidateBookingEvent проверяет событие платформы бронирования.
// Неизвестный триггер не считается ошибкой, его отбрасывает сценарий.
func ValidateBookingEvent(event models.BookingEvent) error {
	if event.TriggerEvent == "" {
		return errors.ErrInvalidPayload.WithContext("triggerEvent не может быть пустым")
	}
	return ValidateUID(event.Payload.UID)
}

// ValidateReminderWindow проверяет окно напоминаний в часах
func ValidateReminderWindow(fromHours, toHours int) error {
	if fromHours < 0 || toHours > maxReminderHours {
		return errors.ErrInvalidPayload.WithContext(map[string]interface{}{
			"from_hours": fromHours,
			"to_hours":   toHours,
			"reason":     "окно вне допустимого диапазона",
		})
	}
	if toHours <= fromHours {
		return errors.ErrInvalidPayload.WithContext(map[string]interface{}{
			"from_hours": fromHours,
			"to_hours":   toHours,
			"reason":     "to_hours должен быть больше from_hours",
		})
	}
	return nil
}

// ValidateMailEvent проверяет событие почтового провайдера
func ValidateMailEvent(event models.MailWebhookEvent) error {
	if event.Payload.Message.ID <= 0 {
		return errors.ErrInvalidPayload.WithContext("id письма должен быть положительным")
	}
	return nil
}
