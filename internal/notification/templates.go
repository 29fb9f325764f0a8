package notification

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"path"

	"github.com/region23/bookingbot/internal/storage/models"
	apperrors "github.com/region23/bookingbot/pkg/errors"
)

//go:embed templates
var templateFS embed.FS

// emailTemplate файл шаблона письма и тема
type emailTemplate struct {
	File    string
	Subject string
}

var organizerEmails = map[models.TriggerEvent]emailTemplate{
	models.TriggerBookingCreated:     {File: "organizer/confirmation.html", Subject: "✅Новая запись"},
	models.TriggerBookingRescheduled: {File: "organizer/reschedule.html", Subject: "↻Встреча перенесена"},
	models.TriggerBookingCancelled:   {File: "organizer/cancellation.html", Subject: "❌Встреча отменена"},
}

var clientEmails = map[models.TriggerEvent]emailTemplate{
	models.TriggerBookingCreated:     {File: "client/confirmation.html", Subject: "✅Новая запись"},
	models.TriggerBookingRescheduled: {File: "client/reschedule.html", Subject: "↻Встреча перенесена"},
	models.TriggerBookingCancelled:   {File: "client/cancellation.html", Subject: "❌Ваша встреча отменена"},
	models.TriggerBookingReminder:    {File: "client/reminder.html", Subject: "📝Напоминание о встречи с волонтером"},
}

var organizerTelegram = map[models.TriggerEvent]string{
	models.TriggerBookingCreated:     "created.tmpl",
	models.TriggerBookingRescheduled: "rescheduled.tmpl",
	models.TriggerBookingCancelled:   "cancelled.tmpl",
	models.TriggerMeetClientJoined:   "client_joined.tmpl",
}

// Renderer рендерит встроенные шаблоны писем и сообщений
type Renderer struct {
	email    map[string]*template.Template
	telegram *template.Template
}

// NewRenderer разбирает все шаблоны из таблиц
func NewRenderer() (*Renderer, error) {
	r := &Renderer{email: make(map[string]*template.Template)}

	for _, table := range []map[models.TriggerEvent]emailTemplate{organizerEmails, clientEmails} {
		for _, et := range table {
			if _, ok := r.email[et.File]; ok {
				continue
			}
			tmpl, err := template.New(path.Base(et.File)).ParseFS(templateFS,
				"templates/email/base.html",
				"templates/email/"+et.File,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to parse email template %s: %w", et.File, err)
			}
			r.email[et.File] = tmpl
		}
	}

	tg, err := template.ParseFS(templateFS, "templates/telegram/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse telegram templates: %w", err)
	}
	r.telegram = tg

	return r, nil
}

// RenderEmail рендерит письмо по имени файла шаблона
func (r *Renderer) RenderEmail(name string, data any) (string, error) {
	tmpl, ok := r.email[name]
	if !ok {
		return "", apperrors.ErrTemplateMissing.WithContext(name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

// RenderTelegram рендерит сообщение Telegram
func (r *Renderer) RenderTelegram(name string, data any) (string, error) {
	if r.telegram.Lookup(name) == nil {
		return "", apperrors.ErrTemplateMissing.WithContext(name)
	}
	var buf bytes.Buffer
	if err := r.telegram.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}
