package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/region23/bookingbot/internal/storage/models"
	"github.com/region23/bookingbot/internal/validation"
	"github.com/region23/bookingbot/pkg/logger"
	"github.com/region23/bookingbot/pkg/metrics"
)

const updateTimeout = 30 * time.Second

// handleBooking принимает событие платформы и сразу отвечает
func (s *Server) handleBooking(c *gin.Context) {
	body, _ := c.Get(rawBodyKey)
	raw, _ := body.([]byte)

	var event models.BookingEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		s.securityLogger.LogValidationError(c, "booking_webhook", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := validation.ValidateBookingEvent(event); err != nil {
		s.securityLogger.LogValidationError(c, "booking_webhook", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !event.TriggerEvent.Valid() {
		s.logger.Warn("Unknown booking trigger", logger.String("trigger", string(event.TriggerEvent)))
	}
	metrics.RecordWebhookEvent("booking", string(event.TriggerEvent), "accepted")

	info := s.deps.Bookings.HandleBooking(event)
	c.JSON(http.StatusOK, gin.H{"status": "accepted", "flow_id": info.ID})
}

// handleReminder запускает рассылку напоминаний
func (s *Server) handleReminder(c *gin.Context) {
	from, err := queryInt(c, "from_hours", s.config.Reminder.FromHours)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from_hours must be an integer"})
		return
	}
	to, err := queryInt(c, "to_hours", s.config.Reminder.ToHours)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to_hours must be an integer"})
		return
	}

	if err := validation.ValidateReminderWindow(from, to); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sent, err := s.deps.Bookings.HandleBookingReminder(c.Request.Context(), from, to)
	if err != nil {
		s.logger.Error("Reminder sweep failed", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": sent})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// handleMeetWebhook события видеосервиса; ошибки обработки не возвращаются вызывающему
func (s *Server) handleMeetWebhook(c *gin.Context) {
	var event models.MeetWebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		s.securityLogger.LogValidationError(c, "meet_webhook", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := s.deps.Bookings.HandleMeetWebhook(c.Request.Context(), event); err != nil {
		s.logger.Error("Meet webhook processing failed",
			logger.String("event", string(event.EventType)),
			logger.Error(err),
		)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleMailWebhook события почтового провайдера
func (s *Server) handleMailWebhook(c *gin.Context) {
	var event models.MailWebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		s.securityLogger.LogValidationError(c, "mail_webhook", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := validation.ValidateMailEvent(event); err != nil {
		s.securityLogger.LogValidationError(c, "mail_webhook", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := s.deps.Mail.Handle(c.Request.Context(), event); err != nil {
		s.logger.Error("Mail webhook processing failed",
			logger.Int64("message_id", event.Payload.Message.ID),
			logger.Error(err),
		)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleTelegram обрабатывает Telegram webhook
func (s *Server) handleTelegram(c *gin.Context) {
	start := time.Now()

	var update tgmodels.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		s.securityLogger.LogValidationError(c, "telegram_webhook", err)
		c.Status(http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), updateTimeout)
	defer cancel()

	s.deps.Updates.HandleUpdate(ctx, &update)

	s.logger.Debug("Telegram update processed",
		logger.Int64("update_id", update.ID),
		logger.Int64("processing_time_ms", time.Since(start).Milliseconds()),
	)
	c.Status(http.StatusOK)
}
