package models

import (
	"strconv"
	"strings"
	"time"
)

// TriggerEvent тип события жизненного цикла бронирования
type TriggerEvent string

const (
	TriggerBookingCreated          TriggerEvent = "BOOKING_CREATED"
	TriggerBookingRescheduled      TriggerEvent = "BOOKING_RESCHEDULED"
	TriggerBookingCancelled        TriggerEvent = "BOOKING_CANCELLED"
	TriggerBookingPaymentInitiated TriggerEvent = "BOOKING_PAYMENT_INITIATED"
	TriggerBookingReminder         TriggerEvent = "BOOKING_REMINDER"
	TriggerMeetClientJoined        TriggerEvent = "MEET_CLIENT_JOINED"
	TriggerPing                    TriggerEvent = "PING"
)

// Valid проверяет, входит ли событие в известный набор
func (t TriggerEvent) Valid() bool {
	switch t {
	case TriggerBookingCreated, TriggerBookingRescheduled, TriggerBookingCancelled,
		TriggerBookingPaymentInitiated, TriggerBookingReminder, TriggerMeetClientJoined, TriggerPing:
		return true
	}
	return false
}

// Role роль участника встречи
type Role string

const (
	RoleOrganizer Role = "organizer"
	RoleClient    Role = "client"
)

// ClientPrefix префикс внешнего идентификатора ссылки клиента
const ClientPrefix = "client_"

// RoleForPrefix возвращает роль по префиксу внешнего идентификатора
func RoleForPrefix(prefix string) Role {
	if prefix == "" {
		return RoleOrganizer
	}
	return RoleClient
}

// LeadWindow запас времени до начала и после конца встречи
const LeadWindow = 5 * time.Minute

// Ключи метаданных бронирования
const (
	MetadataVideoCallURL = "videoCallUrl"
)

// StatusAccepted статус подтвержденного бронирования
const StatusAccepted = "accepted"

// User представляет организатора (пользователя платформы)
type User struct {
	ID             int64  `json:"id" db:"id"`
	Name           string `json:"name" db:"name"`
	Email          string `json:"email" db:"email"`
	Locked         bool   `json:"locked" db:"locked"`
	TimeZone       string `json:"time_zone" db:"timeZone"`
	TelegramChatID *int64 `json:"telegram_chat_id,omitempty" db:"telegram_chat_id"`
	TelegramToken  string `json:"-" db:"telegram_token"`
}

// HasTelegram проверяет, привязан ли Telegram
func (u *User) HasTelegram() bool {
	return u.TelegramChatID != nil
}

// Client представляет клиента бронирования (без аккаунта)
type Client struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	TimeZone string `json:"time_zone"`
}

// Booking представляет бронирование
type Booking struct {
	ID                 int64          `json:"id" db:"id"`
	UID                string         `json:"uid" db:"uid"`
	StartTime          time.Time      `json:"start_time" db:"startTime"`
	EndTime            time.Time      `json:"end_time" db:"endTime"`
	Organizer          User           `json:"organizer"`
	Client             Client         `json:"client"`
	Status             string         `json:"status" db:"status"`
	FromReschedule     string         `json:"from_reschedule,omitempty" db:"fromReschedule"`
	ReassignByID       *int64         `json:"reassign_by_id,omitempty" db:"reassignById"`
	CancellationReason string         `json:"cancellation_reason,omitempty" db:"cancellationReason"`
	Location           string         `json:"location,omitempty" db:"location"`
	Metadata           map[string]any `json:"metadata,omitempty" db:"metadata"`

	// PreviousBooking заполняется только внутри одного сценария
	PreviousBooking *Booking `json:"-"`
}

// VideoCallURL возвращает ссылку на встречу из метаданных
func (b *Booking) VideoCallURL() string {
	if b.Metadata == nil {
		return ""
	}
	v, _ := b.Metadata[MetadataVideoCallURL].(string)
	return v
}

// HasCloudMeeting сообщает, что встреча создана облачной интеграцией платформы
func (b *Booking) HasCloudMeeting() bool {
	return strings.HasPrefix(b.Location, "integrations:")
}

// Duration возвращает длительность бронирования
func (b *Booking) Duration() time.Duration {
	return b.EndTime.Sub(b.StartTime)
}

// PreviousUIDOrCurrent возвращает uid предыдущего бронирования или текущий
func (b *Booking) PreviousUIDOrCurrent() string {
	if b.FromReschedule != "" {
		return b.FromReschedule
	}
	return b.UID
}

// BookingEvent входящее событие платформы бронирования
type BookingEvent struct {
	TriggerEvent TriggerEvent `json:"triggerEvent"`
	CreatedAt    string       `json:"createdAt,omitempty"`
	Payload      struct {
		UID string `json:"uid"`
	} `json:"payload"`
}

// MeetEventType тип события видеосервиса
type MeetEventType string

const (
	MeetEventAPIReady MeetEventType = "handleApiReady"
	MeetEventJoined   MeetEventType = "videoConferenceJoined"
	MeetEventLeft     MeetEventType = "videoConferenceLeft"
)

// MeetNotifiedKey ключ дедупликации уведомления о входе клиента
func MeetNotifiedKey(room string) string {
	return "meet_notified:" + room
}

// MeetWebhookEvent событие вебхука видеосервиса
type MeetWebhookEvent struct {
	EventType MeetEventType  `json:"eventType"`
	JWT       string         `json:"jwt"`
	Data      map[string]any `json:"data,omitempty"`
}

// MailMessage письмо в событии почтового провайдера
type MailMessage struct {
	ID      int64  `json:"id"`
	To      string `json:"to"`
	Subject string `json:"subject,omitempty"`
}

// MailDelivery результат доставки письма
type MailDelivery struct {
	Message MailMessage `json:"message"`
	Status  string      `json:"status"`
	Output  string      `json:"output"`
}

// MailWebhookEvent событие вебхука почтового провайдера
type MailWebhookEvent struct {
	Event   string       `json:"event"`
	Payload MailDelivery `json:"payload"`
}

// MailWebhookKey ключ дедупликации события почтового провайдера
func MailWebhookKey(messageID int64) string {
	return "mail_webhook:" + strconv.FormatInt(messageID, 10)
}
