package telegram

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/region23/bookingbot/pkg/logger"
)

// PPIDKey ключ родительского pid последней регистрации вебхука
const PPIDKey = "tg_bot_ppid"

// WebhookAPI часть Bot API для регистрации вебхука
type WebhookAPI interface {
	SetWebhook(ctx context.Context, params *tgbot.SetWebhookParams) (bool, error)
	SetMyCommands(ctx context.Context, params *tgbot.SetMyCommandsParams) (bool, error)
}

// PIDStore хранит маркер первого запуска
type PIDStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// WebhookOptions параметры регистрации
type WebhookOptions struct {
	URL           string
	SecretToken   string
	CheckFirstRun bool
}

// Commands список команд бота
var Commands = []tgmodels.BotCommand{
	{Command: "start", Description: "Привязать Telegram к аккаунту"},
	{Command: "id", Description: "Показать идентификаторы чата"},
}

// SetupWebhook регистрирует вебхук и команды. При CheckFirstRun регистрация
// выполняется только если родительский pid изменился с прошлого запуска.
// Возвращает false, если регистрация пропущена.
func SetupWebhook(ctx context.Context, api WebhookAPI, store PIDStore, opts WebhookOptions, log *logger.Logger) (bool, error) {
	if opts.URL == "" {
		log.Warn("Webhook URL is not configured, skipping registration")
		return false, nil
	}

	ppid := strconv.Itoa(os.Getppid())
	if opts.CheckFirstRun {
		stored, ok, err := store.Get(ctx, PPIDKey)
		if err != nil {
			return false, fmt.Errorf("failed to read %s: %w", PPIDKey, err)
		}
		if ok && stored == ppid {
			log.Info("Webhook already registered by this parent process", logger.String("ppid", ppid))
			return false, nil
		}
	}

	if _, err := api.SetWebhook(ctx, &tgbot.SetWebhookParams{
		URL:                opts.URL,
		SecretToken:        opts.SecretToken,
		DropPendingUpdates: true,
	}); err != nil {
		return false, fmt.Errorf("failed to set webhook: %w", err)
	}

	if _, err := api.SetMyCommands(ctx, &tgbot.SetMyCommandsParams{Commands: Commands}); err != nil {
		log.Warn("Failed to set bot commands", logger.Error(err))
	}

	if opts.CheckFirstRun {
		if err := store.Set(ctx, PPIDKey, ppid, 0); err != nil {
			log.Warn("Failed to store parent pid", logger.Error(err))
		}
	}

	log.Info("Webhook configured", logger.String("url", opts.URL))
	return true, nil
}
