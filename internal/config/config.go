package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	apperrors "github.com/region23/bookingbot/pkg/errors"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Telegram  TelegramConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Meeting   MeetingConfig
	Chat      ChatConfig
	Shortener ShortenerConfig
	Email     EmailConfig
	Reminder  ReminderConfig
	Logging   LoggingConfig
}

// TelegramConfig содержит настройки Telegram бота
type TelegramConfig struct {
	Token          string  `envconfig:"BOT_TOKEN"`
	SecretToken    string  `envconfig:"TELEGRAM_SECRET_TOKEN"`
	BaseWebhookURL string  `envconfig:"BASE_WEBHOOK_URL"`
	WebhookPath    string  `envconfig:"WEBHOOK_PATH" default:"/telegram"`
	CheckFirstRun  bool    `envconfig:"IS_CHECK_FIRST_RUN" default:"false"`
	AdminChatIDs   []int64 `envconfig:"ADMIN_CHAT_IDS"`
	SendRatePerSec float64 `envconfig:"TELEGRAM_SEND_RATE" default:"25"`
}

// WebhookURL возвращает полный адрес вебхука Telegram
func (t TelegramConfig) WebhookURL() string {
	if t.BaseWebhookURL == "" {
		return ""
	}
	return strings.TrimRight(t.BaseWebhookURL, "/") + t.WebhookPath
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port          string        `envconfig:"PORT" default:"8080"`
	ReadTimeout   time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout  time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout   time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"120s"`
	CalSignature  string        `envconfig:"CAL_SIGNATURE"`
	AdminAPIToken string        `envconfig:"ADMIN_API_TOKEN"`
	RateLimit     float64       `envconfig:"RATE_LIMIT_RPS" default:"20"`
	RateBurst     int           `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Debug         bool          `envconfig:"DEBUG" default:"false"`
}

// DatabaseConfig содержит настройки хранилищ
type DatabaseConfig struct {
	PostgresDSN    string        `envconfig:"POSTGRES_DSN"`
	MaxConnections int32         `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	ConnTimeout    time.Duration `envconfig:"DB_CONN_TIMEOUT" default:"5s"`
	SQLitePath     string        `envconfig:"SQLITE_PATH" default:"bookingbot.db"`
	RedisURL       string        `envconfig:"REDIS_URL"`
}

// MeetingConfig содержит настройки видеовстреч
type MeetingConfig struct {
	HostURL        string        `envconfig:"MEETING_HOST_URL"`
	JWTSecret      string        `envconfig:"JITSI_JWT_TOKEN"`
	JWTAudience    string        `envconfig:"MEETING_JWT_AUD" default:"jitsi"`
	JWTIssuer      string        `envconfig:"MEETING_JWT_ISS"`
	BookingHostURL string        `envconfig:"BOOKING_HOST_URL"`
	SyncDelay      time.Duration `envconfig:"MEETING_SYNC_DELAY" default:"5s"`
}

// ChatConfig содержит настройки чат-провайдера
type ChatConfig struct {
	BaseURL      string `envconfig:"GETSTREAM_BASE_URL" default:"https://chat.stream-io-api.com"`
	APIKey       string `envconfig:"GETSTREAM_API_KEY"`
	APISecret    string `envconfig:"GETSTREAM_API_SECRET"`
	UserIDSecret string `envconfig:"GETSTREAM_USER_ID_SECRET"`
}

// Enabled сообщает, настроен ли чат-провайдер
func (c ChatConfig) Enabled() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// ShortenerConfig содержит настройки сервиса коротких ссылок
type ShortenerConfig struct {
	BaseURL string        `envconfig:"SHORTNER_URL"`
	APIKey  string        `envconfig:"SHORTIFY_API_KEY"`
	Timeout time.Duration `envconfig:"SHORTENER_TIMEOUT" default:"10s"`
}

// EmailConfig содержит настройки почтовых провайдеров
type EmailConfig struct {
	DefaultProvider string            `envconfig:"EMAIL_PROVIDER" default:"unisender"`
	DomainRoutes    map[string]string `envconfig:"EMAIL_DOMAIN_ROUTES"`
	APIURL          string            `envconfig:"EMAIL_API_URL"`
	APIKey          string            `envconfig:"EMAIL_API_KEY"`
	PostalURL       string            `envconfig:"POSTAL_API_URL"`
	PostalKey       string            `envconfig:"POSTAL_API_KEY"`
	SMTPHost        string            `envconfig:"SMTP_HOST"`
	SMTPPort        int               `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser        string            `envconfig:"SMTP_USER"`
	SMTPPassword    string            `envconfig:"SMTP_PASSWORD"`
	FromEmail       string            `envconfig:"FROM_EMAIL"`
	FromName        string            `envconfig:"FROM_EMAIL_NAME"`
	ReplyToEmail    string            `envconfig:"REPLY_TO_EMAIL"`
	ReplyToName     string            `envconfig:"REPLY_TO_EMAIL_NAME"`
	SupportEmail    string            `envconfig:"SUPPORT_EMAIL"`
	Timeout         time.Duration     `envconfig:"EMAIL_TIMEOUT" default:"15s"`
}

// ReminderConfig содержит настройки напоминаний
type ReminderConfig struct {
	Schedule  string `envconfig:"REMINDER_SCHEDULE" default:"*/10 * * * *"`
	FromHours int    `envconfig:"REMINDER_FROM_HOURS" default:"23"`
	ToHours   int    `envconfig:"REMINDER_TO_HOURS" default:"24"`
	Location  string `envconfig:"REMINDER_TZ" default:"UTC"`
}

// LoggingConfig содержит настройки логирования
type LoggingConfig struct {
	Level   string `envconfig:"LOG_LEVEL" default:"info"`
	Console bool   `envconfig:"LOG_CONSOLE" default:"false"`
}

// Load загружает конфигурацию из .env и переменных окружения
func Load() (*Config, error) {
	// .env необязателен, в контейнере переменные приходят из окружения
	_ = godotenv.Load()

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, apperrors.ErrConfigurationInvalid.WithError(fmt.Errorf("read environment: %w", err))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return apperrors.ErrConfigurationInvalid.WithError(err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	if c.Database.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required")
	}
	if c.Meeting.HostURL == "" {
		return fmt.Errorf("MEETING_HOST_URL is required")
	}
	if _, err := url.ParseRequestURI(c.Meeting.HostURL); err != nil {
		return fmt.Errorf("invalid MEETING_HOST_URL: %w", err)
	}
	if c.Meeting.JWTSecret == "" {
		return fmt.Errorf("JITSI_JWT_TOKEN is required")
	}
	if c.Telegram.BaseWebhookURL != "" {
		if _, err := url.ParseRequestURI(c.Telegram.BaseWebhookURL); err != nil {
			return fmt.Errorf("invalid BASE_WEBHOOK_URL: %w", err)
		}
		if !strings.HasPrefix(c.Telegram.WebhookPath, "/") {
			return fmt.Errorf("WEBHOOK_PATH must start with /")
		}
	}
	if c.Chat.Enabled() && c.Chat.UserIDSecret == "" {
		return fmt.Errorf("GETSTREAM_USER_ID_SECRET is required when chat is enabled")
	}

	// Проверка окна напоминаний
	if c.Reminder.FromHours < 0 || c.Reminder.ToHours <= c.Reminder.FromHours {
		return fmt.Errorf("REMINDER_TO_HOURS must be greater than REMINDER_FROM_HOURS")
	}
	if _, err := time.LoadLocation(c.Reminder.Location); err != nil {
		return fmt.Errorf("invalid REMINDER_TZ: %w", err)
	}

	if c.Server.RateLimit <= 0 || c.Server.RateBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	return nil
}
