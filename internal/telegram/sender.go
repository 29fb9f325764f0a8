package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"

	apperrors "github.com/region23/bookingbot/pkg/errors"
	"github.com/region23/bookingbot/pkg/logger"
	"github.com/region23/bookingbot/pkg/metrics"
)

// MessageAPI часть Bot API, нужная для отправки сообщений
type MessageAPI interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*tgmodels.Message, error)
}

const (
	// Telegram допускает около одного сообщения в секунду в один чат
	perChatInterval = time.Second
	chatIdleTTL     = 10 * time.Minute
	maxFloodRetries = 2
)

// Sender отправляет HTML сообщения с глобальным и per-chat ограничением скорости
type Sender struct {
	api          MessageAPI
	global       *rate.Limiter
	chatInterval time.Duration
	log          *logger.Logger

	mu         sync.Mutex
	chats      map[int64]*rate.Limiter
	lastAccess map[int64]time.Time
}

// NewSender создает отправителя; ratePerSec ограничивает общий поток сообщений
func NewSender(api MessageAPI, ratePerSec float64, log *logger.Logger) *Sender {
	burst := int(ratePerSec)
	if burst < 1 {
		burst = 1
	}
	return &Sender{
		api:          api,
		global:       rate.NewLimiter(rate.Limit(ratePerSec), burst),
		chatInterval: perChatInterval,
		log:          log,
		chats:        make(map[int64]*rate.Limiter),
		lastAccess:   make(map[int64]time.Time),
	}
}

// SendMessage отправляет сообщение без превью ссылок
func (s *Sender) SendMessage(ctx context.Context, chatID int64, text string) error {
	params := &tgbot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeHTML,
		LinkPreviewOptions: &tgmodels.LinkPreviewOptions{
			IsDisabled: tgbot.True(),
		},
	}

	for attempt := 0; ; attempt++ {
		if err := s.wait(ctx, chatID); err != nil {
			return err
		}

		_, err := s.api.SendMessage(ctx, params)
		if err == nil {
			metrics.RecordExternalCall("telegram", "ok")
			return nil
		}

		var flood *tgbot.TooManyRequestsError
		if errors.As(err, &flood) && attempt < maxFloodRetries {
			metrics.RecordExternalCall("telegram", "429")
			wait := time.Duration(flood.RetryAfter) * time.Second
			s.log.Warn("Telegram flood control, waiting",
				logger.Int64("chat_id", chatID),
				logger.Duration("retry_after", wait),
			)
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		metrics.RecordExternalCall("telegram", "error")
		return apperrors.ErrTelegramAPI.WithError(fmt.Errorf("send to %d: %w", chatID, err))
	}
}

func (s *Sender) wait(ctx context.Context, chatID int64) error {
	if err := s.global.Wait(ctx); err != nil {
		return err
	}
	return s.chatLimiter(chatID).Wait(ctx)
}

// chatLimiter возвращает ограничитель чата и удаляет давно не использованные
func (s *Sender) chatLimiter(chatID int64) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, last := range s.lastAccess {
		if now.Sub(last) > chatIdleTTL {
			delete(s.chats, id)
			delete(s.lastAccess, id)
		}
	}

	l, ok := s.chats[chatID]
	if !ok {
		l = rate.NewLimiter(rate.Every(s.chatInterval), 1)
		s.chats[chatID] = l
	}
	s.lastAccess[chatID] = now
	return l
}
