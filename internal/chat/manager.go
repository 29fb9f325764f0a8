package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/region23/bookingbot/pkg/errors"
	"github.com/region23/bookingbot/pkg/logger"
	"github.com/region23/bookingbot/pkg/retry"
)

// Manager управляет каналами переписки между организатором и клиентом
type Manager struct {
	provider Provider
	codec    IDCodec
	secret   []byte
	policy   retry.Policy
	logger   *logger.Logger
}

// Option настраивает Manager
type Option func(*Manager)

// WithRetryPolicy подменяет политику повторов
func WithRetryPolicy(p retry.Policy) Option {
	return func(m *Manager) {
		m.policy = p
	}
}

// NewManager создает менеджер. provider может быть nil, тогда каналы не создаются.
func NewManager(provider Provider, codec IDCodec, apiSecret string, log *logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		provider: provider,
		codec:    codec,
		secret:   []byte(apiSecret),
		policy:   retry.ChatPolicy,
		logger:   log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) retry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := retry.Do(ctx, m.policy, fn, func(err error, wait time.Duration) {
		m.logger.Warn("Retrying chat provider call",
			logger.String("operation", op),
			logger.Duration("wait", wait),
			logger.Error(err))
	})
	if err != nil {
		return apperrors.ErrChatProvider.WithError(fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

// CreateChat создает участников и канал с id channelID
func (m *Manager) CreateChat(ctx context.Context, channelID, organizerID, clientID string) error {
	if m.provider == nil {
		m.logger.Debug("Chat provider not configured, skipping channel creation", logger.String("channel_id", channelID))
		return nil
	}

	organizer, err := m.codec.Encode(organizerID)
	if err != nil {
		return err
	}
	client, err := m.codec.Encode(clientID)
	if err != nil {
		return err
	}

	return m.retry(ctx, "create_chat", func(ctx context.Context) error {
		if err := m.provider.UpsertUsers(ctx, organizer, client); err != nil {
			return err
		}
		return m.provider.CreateChannel(ctx, ChannelType, channelID, []string{organizer, client}, organizer)
	})
}

// DeleteChat удаляет канал
func (m *Manager) DeleteChat(ctx context.Context, channelID string) error {
	if m.provider == nil {
		return nil
	}

	return m.retry(ctx, "delete_chat", func(ctx context.Context) error {
		return m.provider.DeleteChannel(ctx, ChannelType, channelID)
	})
}

// CreateToken выдает токен доступа пользователя к чату
func (m *Manager) CreateToken(userID, name string, expiresAt time.Time) (string, error) {
	if m.codec == nil {
		return "", nil
	}
	encoded, err := m.codec.Encode(userID)
	if err != nil {
		return "", err
	}

	claims := jwt.MapClaims{
		"user_id": encoded,
		"name":    name,
		"exp":     expiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign chat token: %w", err)
	}
	return token, nil
}
