package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/region23/bookingbot/internal/booking"
	"github.com/region23/bookingbot/internal/bot"
	botservice "github.com/region23/bookingbot/internal/bot/service"
	"github.com/region23/bookingbot/internal/chat"
	"github.com/region23/bookingbot/internal/config"
	"github.com/region23/bookingbot/internal/email"
	"github.com/region23/bookingbot/internal/meeting"
	"github.com/region23/bookingbot/internal/notification"
	"github.com/region23/bookingbot/internal/scheduler"
	"github.com/region23/bookingbot/internal/server"
	"github.com/region23/bookingbot/internal/shortener"
	"github.com/region23/bookingbot/internal/storage"
	"github.com/region23/bookingbot/internal/storage/postgres"
	"github.com/region23/bookingbot/internal/storage/redisstore"
	"github.com/region23/bookingbot/internal/storage/sqlite"
	"github.com/region23/bookingbot/internal/telegram"
	"github.com/region23/bookingbot/internal/webhook"
	"github.com/region23/bookingbot/pkg/logger"
)

var version = "dev"

const (
	purgeSchedule = "@every 1h"
	stopTimeout   = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{Console: true}).Fatal("Failed to load config", logger.Error(err))
	}

	log := logger.New(logger.Options{Level: cfg.Logging.Level, Console: cfg.Logging.Console})
	log.Info("Starting booking notification service", logger.String("version", version))

	if err := run(cfg, log); err != nil {
		log.Fatal("Service stopped with error", logger.Error(err))
	}
	log.Info("Service stopped gracefully")
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Хранилища
	store, err := postgres.New(ctx, cfg.Database.PostgresDSN, cfg.Database.MaxConnections, cfg.Database.ConnTimeout)
	if err != nil {
		return err
	}
	defer store.Close()
	log.Info("Connected to booking database")

	keys, err := openKeyStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := keys.Close(); err != nil {
			log.Error("Error closing key store", logger.Error(err))
		}
	}()

	// Telegram
	api, err := tgbot.New(cfg.Telegram.Token, tgbot.WithSkipGetMe())
	if err != nil {
		return err
	}
	sender := telegram.NewSender(api, cfg.Telegram.SendRatePerSec, log)

	registered, err := telegram.SetupWebhook(ctx, api, keys, telegram.WebhookOptions{
		URL:           cfg.Telegram.WebhookURL(),
		SecretToken:   cfg.Telegram.SecretToken,
		CheckFirstRun: cfg.Telegram.CheckFirstRun,
	}, log)
	if err != nil {
		// Сервис продолжает принимать события платформы без вебхука бота
		log.Error("Failed to register Telegram webhook", logger.Error(err))
	} else if registered {
		log.Info("Telegram webhook registered", logger.String("url", cfg.Telegram.WebhookURL()))
	}

	// Внешние сервисы
	links := shortener.New(cfg.Shortener.BaseURL, cfg.Shortener.APIKey, cfg.Shortener.Timeout, log)

	chats, err := newChatManager(cfg.Chat, log)
	if err != nil {
		return err
	}

	mailer, err := newMailer(cfg.Email, log)
	if err != nil {
		return err
	}

	settings := notification.Settings{
		BookingHostURL: cfg.Meeting.BookingHostURL,
		SupportEmail:   cfg.Email.SupportEmail,
		From:           email.Address{Email: cfg.Email.FromEmail, Name: cfg.Email.FromName},
	}
	if cfg.Email.ReplyToEmail != "" {
		settings.ReplyTo = &email.Address{Email: cfg.Email.ReplyToEmail, Name: cfg.Email.ReplyToName}
	}
	composer, err := notification.NewComposer(store, sender, mailer, settings, log)
	if err != nil {
		return err
	}

	signer := meeting.NewSigner(cfg.Meeting.JWTSecret, cfg.Meeting.JWTAudience, cfg.Meeting.JWTIssuer)
	meetings := meeting.NewManager(cfg.Meeting.HostURL, signer, links, chats, store, log,
		meeting.WithSyncDelay(cfg.Meeting.SyncDelay))

	orchestrator := booking.New(store, chats, meetings, composer, keys, log)

	// Бот и вебхуки
	dispatcher := bot.NewDispatcher(botservice.NewService(store, sender, log), log)
	mail := webhook.NewMailHandler(keys, sender, cfg.Telegram.AdminChatIDs, log)

	// Планировщик
	cron, err := scheduler.New(cfg.Reminder.Location, log)
	if err != nil {
		return err
	}
	if err := cron.Add("booking_reminder", cfg.Reminder.Schedule,
		scheduler.ReminderJob(orchestrator, cfg.Reminder.FromHours, cfg.Reminder.ToHours, log)); err != nil {
		return err
	}
	if purger, ok := keys.(scheduler.KeyPurger); ok {
		if err := cron.Add("purge_expired_keys", purgeSchedule, scheduler.PurgeJob(purger, log)); err != nil {
			return err
		}
	}
	if err := cron.Start(); err != nil {
		return err
	}

	srv := server.New(cfg, server.Deps{
		Bookings: orchestrator,
		Mail:     mail,
		Updates:  dispatcher,
		Checks: map[string]server.Pinger{
			"postgres": store,
			"keystore": keys,
		},
		Version: version,
	}, log)

	// Start блокируется до сигнала
	serveErr := srv.Start(ctx)
	if serveErr != nil {
		log.Error("HTTP server failed", logger.Error(serveErr))
	}

	// Порядок остановки: планировщик, сценарии, хранилища (defer)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := cron.Stop(shutdownCtx); err != nil {
		log.Warn("Scheduler did not stop in time", logger.Error(err))
	}
	if err := orchestrator.Shutdown(shutdownCtx); err != nil {
		log.Warn("Booking flows did not finish in time",
			logger.Int("in_flight", len(orchestrator.InFlight())),
			logger.Error(err))
	}

	return serveErr
}

// openKeyStore выбирает Redis, если он настроен, иначе локальный SQLite
func openKeyStore(ctx context.Context, cfg config.DatabaseConfig) (storage.KeyStore, error) {
	if cfg.RedisURL != "" {
		store, err := redisstore.New(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := sqlite.New(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func newChatManager(cfg config.ChatConfig, log *logger.Logger) (*chat.Manager, error) {
	if !cfg.Enabled() {
		log.Warn("Chat provider is not configured, chats are disabled")
		return chat.NewManager(nil, nil, "", log), nil
	}

	codec, err := chat.NewAESCodec(cfg.UserIDSecret)
	if err != nil {
		return nil, err
	}
	client := chat.NewStreamClient(cfg.BaseURL, cfg.APIKey, cfg.APISecret, log)
	return chat.NewManager(client, codec, cfg.APISecret, log), nil
}

func newMailer(cfg config.EmailConfig, log *logger.Logger) (email.Sender, error) {
	providers := make(map[string]email.Sender)
	if cfg.APIKey != "" {
		providers["unisender"] = email.NewUnisenderClient(cfg.APIURL, cfg.APIKey, cfg.Timeout, log)
	}
	if cfg.PostalKey != "" {
		providers["postal"] = email.NewPostalClient(cfg.PostalURL, cfg.PostalKey, cfg.Timeout, log)
	}
	if cfg.SMTPHost != "" {
		smtpClient, err := email.NewSMTPClient(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		providers["smtp"] = smtpClient
	}
	if len(providers) == 0 {
		return nil, errors.New("no email provider is configured")
	}
	router, err := email.NewRouter(providers, cfg.DomainRoutes, cfg.DefaultProvider)
	if err != nil {
		return nil, err
	}
	return router, nil
}
