package handlers

import (
	"context"

	"github.com/go-telegram/bot/models"

	botservice "github.com/region23/bookingbot/internal/bot/service"
)

// IDHandler отвечает идентификаторами пользователя и чата
type IDHandler struct {
	service *botservice.Service
}

// NewIDHandler создает обработчик /id
func NewIDHandler(service *botservice.Service) *IDHandler {
	return &IDHandler{service: service}
}

// Handle обрабатывает /id
func (h *IDHandler) Handle(ctx context.Context, update *models.Update) {
	var userID int64
	if update.Message.From != nil {
		userID = update.Message.From.ID
	}
	chatID := update.Message.Chat.ID
	h.service.Reply(ctx, chatID, botservice.IDMessage(userID, chatID))
}
