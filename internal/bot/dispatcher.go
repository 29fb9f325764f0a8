package bot

import (
	"context"

	"github.com/go-telegram/bot/models"

	"github.com/region23/bookingbot/internal/bot/handlers"
	"github.com/region23/bookingbot/internal/bot/service"
	"github.com/region23/bookingbot/pkg/logger"
)

// Dispatcher управляет обработкой входящих обновлений от Telegram
type Dispatcher struct {
	startHandler   *handlers.StartHandler
	idHandler      *handlers.IDHandler
	defaultHandler *handlers.DefaultHandler
	log            *logger.Logger
}

// NewDispatcher создает новый диспетчер обновлений
func NewDispatcher(svc *service.Service, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		startHandler:   handlers.NewStartHandler(svc, log),
		idHandler:      handlers.NewIDHandler(svc),
		defaultHandler: handlers.NewDefaultHandler(svc),
		log:            log,
	}
}

// HandleUpdate обрабатывает входящее обновление от Telegram
func (d *Dispatcher) HandleUpdate(ctx context.Context, update *models.Update) {
	if update.Message == nil {
		d.log.Debug("Skipping non-message update", logger.Int64("update_id", update.ID))
		return
	}

	d.log.Debug("Received message",
		logger.Int64("chat_id", update.Message.Chat.ID),
		logger.String("text", update.Message.Text),
	)

	cmd, args := handlers.ParseCommand(update.Message.Text)
	switch cmd {
	case "/start":
		d.startHandler.Handle(ctx, update, args)
	case "/id":
		d.idHandler.Handle(ctx, update)
	default:
		d.defaultHandler.Handle(ctx, update)
	}
}
