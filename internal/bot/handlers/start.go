package handlers

import (
	"context"

	"github.com/go-telegram/bot/models"

	botservice "github.com/region23/bookingbot/internal/bot/service"
	"github.com/region23/bookingbot/pkg/logger"
)

// StartHandler обрабатывает команду /start с deep link
type StartHandler struct {
	service *botservice.Service
	log     *logger.Logger
}

// NewStartHandler создает новый обработчик команды /start
func NewStartHandler(service *botservice.Service, log *logger.Logger) *StartHandler {
	return &StartHandler{service: service, log: log}
}

// Handle обрабатывает команду /start
func (h *StartHandler) Handle(ctx context.Context, update *models.Update, payload string) {
	chatID := update.Message.Chat.ID

	result, user, err := h.service.Register(ctx, payload, chatID)
	switch result {
	case botservice.RegistrationDone:
		h.log.Info("Telegram linked", logger.Int64("user_id", user.ID), logger.Int64("chat_id", chatID))
		h.service.Reply(ctx, chatID, botservice.WelcomeMessage(user.Name))
	case botservice.RegistrationExists:
		h.service.Reply(ctx, chatID, botservice.MsgAlreadyRegistered)
	default:
		h.log.Warn("Registration rejected",
			logger.Int64("chat_id", chatID),
			logger.String("payload", payload),
			logger.Error(err),
		)
		h.service.Reply(ctx, chatID, botservice.MsgRegistrationError)
	}
}
