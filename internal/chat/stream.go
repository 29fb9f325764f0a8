package chat

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/region23/bookingbot/internal/clients"
	"github.com/region23/bookingbot/pkg/logger"
	"github.com/region23/bookingbot/pkg/retry"
)

// ChannelType тип канала для переписки организатора и клиента
const ChannelType = "messaging"

// Provider REST API чат-провайдера
type Provider interface {
	UpsertUsers(ctx context.Context, userIDs ...string) error
	CreateChannel(ctx context.Context, channelType, channelID string, members []string, createdBy string) error
	DeleteChannel(ctx context.Context, channelType, channelID string) error
}

// StreamClient клиент GetStream Chat REST API
type StreamClient struct {
	base   *clients.BaseClient
	apiKey string
	secret []byte
}

var _ Provider = (*StreamClient)(nil)

// NewStreamClient создает клиент. Повторы делает Manager, поэтому базовый клиент делает одну попытку.
func NewStreamClient(baseURL, apiKey, apiSecret string, log *logger.Logger, opts ...clients.BaseOption) *StreamClient {
	opts = append([]clients.BaseOption{
		clients.WithRetryPolicy(retry.Policy{Attempts: 1}),
		clients.WithHeader("Stream-Auth-Type", "jwt"),
	}, opts...)

	return &StreamClient{
		base:   clients.NewBaseClient("getstream", baseURL, 10*time.Second, log, opts...),
		apiKey: apiKey,
		secret: []byte(apiSecret),
	}
}

// serverToken подписывает серверный токен провайдера
func (c *StreamClient) serverToken() (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"server": true})
	return token.SignedString(c.secret)
}

func (c *StreamClient) call(ctx context.Context, method, path string, body any) error {
	token, err := c.serverToken()
	if err != nil {
		return fmt.Errorf("failed to sign server token: %w", err)
	}

	return c.base.Do(ctx, method, path, map[string]string{"api_key": c.apiKey}, body, nil,
		http.Header{"Authorization": []string{token}})
}

// UpsertUsers создает или обновляет пользователей
func (c *StreamClient) UpsertUsers(ctx context.Context, userIDs ...string) error {
	users := make(map[string]map[string]string, len(userIDs))
	for _, id := range userIDs {
		users[id] = map[string]string{"id": id}
	}
	return c.call(ctx, http.MethodPost, "/users", map[string]any{"users": users})
}

// CreateChannel создает канал с участниками
func (c *StreamClient) CreateChannel(ctx context.Context, channelType, channelID string, members []string, createdBy string) error {
	body := map[string]any{
		"data": map[string]any{
			"members":       members,
			"created_by_id": createdBy,
		},
		"state": false,
	}
	path := fmt.Sprintf("/channels/%s/%s/query", url.PathEscape(channelType), url.PathEscape(channelID))
	return c.call(ctx, http.MethodPost, path, body)
}

// DeleteChannel удаляет канал
func (c *StreamClient) DeleteChannel(ctx context.Context, channelType, channelID string) error {
	path := fmt.Sprintf("/channels/%s/%s", url.PathEscape(channelType), url.PathEscape(channelID))
	return c.call(ctx, http.MethodDelete, path, nil)
}
