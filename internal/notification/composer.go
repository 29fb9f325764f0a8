package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/region23/bookingbot/internal/email"
	"github.com/region23/bookingbot/internal/storage/models"
	"github.com/region23/bookingbot/pkg/logger"
	"github.com/region23/bookingbot/pkg/metrics"
)

// ChatIDLookup ищет чат Telegram организатора
type ChatIDLookup interface {
	GetOrganizerChatID(ctx context.Context, email string) (*int64, error)
}

// Messenger отправляет HTML сообщения в Telegram
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Settings параметры оформления уведомлений
type Settings struct {
	BookingHostURL string
	SupportEmail   string
	From           email.Address
	ReplyTo        *email.Address
}

// Каналы доставки
const (
	ChannelTelegram = "telegram"
	ChannelEmail    = "email"
)

// Status итог доставки по каналу
type Status string

const (
	StatusSent    Status = "sent"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Delivery результат отправки в один канал
type Delivery struct {
	Channel string
	Status  Status
	Err     error
}

// Report результаты отправок одного уведомления
type Report []Delivery

// Sent возвращает количество успешных отправок
func (r Report) Sent() int {
	n := 0
	for _, d := range r {
		if d.Status == StatusSent {
			n++
		}
	}
	return n
}

// Err возвращает первую ошибку доставки
func (r Report) Err() error {
	for _, d := range r {
		if d.Err != nil {
			return d.Err
		}
	}
	return nil
}

// Composer рендерит и рассылает уведомления участникам
type Composer struct {
	renderer  *Renderer
	users     ChatIDLookup
	messenger Messenger
	mailer    email.Sender
	settings  Settings
	log       *logger.Logger
}

// NewComposer создает композитор уведомлений
func NewComposer(users ChatIDLookup, messenger Messenger, mailer email.Sender, settings Settings, log *logger.Logger) (*Composer, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	settings.BookingHostURL = strings.TrimRight(settings.BookingHostURL, "/")
	return &Composer{
		renderer:  renderer,
		users:     users,
		messenger: messenger,
		mailer:    mailer,
		settings:  settings,
		log:       log,
	}, nil
}

type telegramData struct {
	StartTime         string
	PreviousStartTime string
	City              string
	MeetingURL        string
	BookingURL        string
}

type emailData struct {
	Subject            string
	OrganizerName      string
	ClientName         string
	Duration           string
	TimeZone           string
	MeetingURL         string
	CancellationReason string
	StartTime          string
	PreviousStartTime  string
	CancelLink         string
	SupportEmail       string
}

// NotifyOrganizer отправляет организатору сообщение в Telegram, затем письмо
func (c *Composer) NotifyOrganizer(ctx context.Context, user *models.User, booking *models.Booking, event models.TriggerEvent, meetingURL string) Report {
	report := Report{c.NotifyOrganizerTelegram(ctx, user, booking, event, meetingURL)}

	et, ok := organizerEmails[event]
	if !ok {
		c.log.Warn("No organizer email template for event", logger.String("event", string(event)))
		return append(report, Delivery{Channel: ChannelEmail, Status: StatusSkipped})
	}
	data := c.emailData(booking, et.Subject, user.Name, user.TimeZone, meetingURL)
	return append(report, c.sendEmail(ctx, user.Email, models.RoleOrganizer, et, data))
}

// NotifyClient отправляет письмо клиенту
func (c *Composer) NotifyClient(ctx context.Context, booking *models.Booking, event models.TriggerEvent, meetingURL string) Report {
	et, ok := clientEmails[event]
	if !ok {
		c.log.Warn("No client email template for event", logger.String("event", string(event)))
		return Report{{Channel: ChannelEmail, Status: StatusSkipped}}
	}
	data := c.emailData(booking, et.Subject, booking.Organizer.Name, booking.Client.TimeZone, meetingURL)
	return Report{c.sendEmail(ctx, booking.Client.Email, models.RoleClient, et, data)}
}

// NotifyOrganizerTelegram отправляет только сообщение в Telegram
func (c *Composer) NotifyOrganizerTelegram(ctx context.Context, user *models.User, booking *models.Booking, event models.TriggerEvent, meetingURL string) Delivery {
	name, ok := organizerTelegram[event]
	if !ok {
		c.log.Warn("No telegram template for event", logger.String("event", string(event)))
		return c.record(models.RoleOrganizer, Delivery{Channel: ChannelTelegram, Status: StatusSkipped})
	}

	chatID, err := c.users.GetOrganizerChatID(ctx, user.Email)
	if err != nil {
		c.log.Error("Failed to look up organizer chat",
			logger.String("email", user.Email),
			logger.Error(err),
		)
		return c.record(models.RoleOrganizer, Delivery{Channel: ChannelTelegram, Status: StatusFailed, Err: err})
	}
	if chatID == nil {
		c.log.Warn("Organizer has no linked telegram chat",
			logger.String("email", user.Email),
			logger.String("uid", booking.UID),
		)
		return c.record(models.RoleOrganizer, Delivery{Channel: ChannelTelegram, Status: StatusSkipped})
	}

	data := telegramData{
		StartTime:  FormatTime(booking.StartTime, user.TimeZone),
		City:       CityName(user.TimeZone),
		MeetingURL: meetingURL,
		BookingURL: c.bookingURL(booking.UID),
	}
	if booking.PreviousBooking != nil {
		data.PreviousStartTime = FormatTime(booking.PreviousBooking.StartTime, user.TimeZone)
	}

	text, err := c.renderer.RenderTelegram(name, data)
	if err != nil {
		c.log.Error("Failed to render telegram message", logger.String("template", name), logger.Error(err))
		return c.record(models.RoleOrganizer, Delivery{Channel: ChannelTelegram, Status: StatusFailed, Err: err})
	}

	if err := c.messenger.SendMessage(ctx, *chatID, text); err != nil {
		c.log.Error("Failed to send telegram message",
			logger.Int64("chat_id", *chatID),
			logger.String("uid", booking.UID),
			logger.Error(err),
		)
		return c.record(models.RoleOrganizer, Delivery{Channel: ChannelTelegram, Status: StatusFailed, Err: err})
	}

	c.log.Info("Telegram notification sent",
		logger.String("event", string(event)),
		logger.String("uid", booking.UID),
	)
	return c.record(models.RoleOrganizer, Delivery{Channel: ChannelTelegram, Status: StatusSent})
}

func (c *Composer) emailData(booking *models.Booking, subject, organizerName, tz, meetingURL string) emailData {
	data := emailData{
		Subject:            subject,
		OrganizerName:      organizerName,
		ClientName:         booking.Client.Name,
		Duration:           FormatDuration(booking),
		TimeZone:           CityName(tz),
		MeetingURL:         meetingURL,
		CancellationReason: booking.CancellationReason,
		StartTime:          FormatTime(booking.StartTime, tz),
		CancelLink:         c.bookingURL(booking.UID),
		SupportEmail:       c.settings.SupportEmail,
	}
	if booking.PreviousBooking != nil {
		data.PreviousStartTime = FormatTime(booking.PreviousBooking.StartTime, tz)
	}
	return data
}

func (c *Composer) sendEmail(ctx context.Context, to string, role models.Role, et emailTemplate, data emailData) Delivery {
	if to == "" {
		c.log.Warn("Recipient has no email", logger.String("role", string(role)))
		return c.record(role, Delivery{Channel: ChannelEmail, Status: StatusSkipped})
	}

	html, err := c.renderer.RenderEmail(et.File, data)
	if err != nil {
		c.log.Error("Failed to render email", logger.String("template", et.File), logger.Error(err))
		return c.record(role, Delivery{Channel: ChannelEmail, Status: StatusFailed, Err: err})
	}

	msg := email.Message{
		To:      to,
		From:    c.settings.From,
		ReplyTo: c.settings.ReplyTo,
		Subject: et.Subject,
		HTML:    html,
	}
	if err := c.mailer.Send(ctx, msg); err != nil {
		c.log.Error("Failed to send email",
			logger.String("to", to),
			logger.String("template", et.File),
			logger.Error(err),
		)
		return c.record(role, Delivery{Channel: ChannelEmail, Status: StatusFailed, Err: fmt.Errorf("email to %s: %w", to, err)})
	}

	c.log.Info("Email sent", logger.String("to", to), logger.String("template", et.File))
	return c.record(role, Delivery{Channel: ChannelEmail, Status: StatusSent})
}

func (c *Composer) bookingURL(uid string) string {
	return c.settings.BookingHostURL + "/booking/" + uid
}

func (c *Composer) record(role models.Role, d Delivery) Delivery {
	metrics.RecordNotification(d.Channel, string(role), string(d.Status))
	return d
}
