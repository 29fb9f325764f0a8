package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot/models"

	botservice "github.com/region23/bookingbot/internal/bot/service"
)

// DefaultHandler обрабатывает обычные сообщения
type DefaultHandler struct {
	service *botservice.Service
}

// NewDefaultHandler создает новый обработчик по умолчанию
func NewDefaultHandler(service *botservice.Service) *DefaultHandler {
	return &DefaultHandler{service: service}
}

// Handle отвечает на ping, остальное игнорирует
func (h *DefaultHandler) Handle(ctx context.Context, update *models.Update) {
	if strings.TrimSpace(update.Message.Text) == "ping" {
		h.service.Reply(ctx, update.Message.Chat.ID, botservice.MsgPong)
	}
}
