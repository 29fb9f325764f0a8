package shortener

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/region23/bookingbot/internal/clients"
	apperrors "github.com/region23/bookingbot/pkg/errors"
	"github.com/region23/bookingbot/pkg/logger"
)

// Shortener сервис коротких ссылок с внешними идентификаторами.
// Пустая строка без ошибки значит, что сервис ничего не вернул.
type Shortener interface {
	Create(ctx context.Context, longURL string, expiresAt time.Time, externalID string) (string, error)
	Get(ctx context.Context, externalID string) (string, error)
	Update(ctx context.Context, longURL string, expiresAt time.Time, oldExternalID, newExternalID string) (string, error)
	Delete(ctx context.Context, externalID string) error
}

type shortenRequest struct {
	URL        string  `json:"url"`
	ExpiresAt  float64 `json:"expires_at"`
	ExternalID string  `json:"external_id"`
}

type shortenResponse struct {
	Ident string `json:"ident"`
}

// Client REST клиент сервиса коротких ссылок
type Client struct {
	base    *clients.BaseClient
	enabled bool
	logger  *logger.Logger
}

var _ Shortener = (*Client)(nil)

// New создает клиент. Без api key клиент ничего не делает и возвращает пустые ссылки.
func New(baseURL, apiKey string, timeout time.Duration, log *logger.Logger, opts ...clients.BaseOption) *Client {
	opts = append([]clients.BaseOption{clients.WithHeader("api-key", apiKey)}, opts...)
	return &Client{
		base:    clients.NewBaseClient("shortener", baseURL, timeout, log, opts...),
		enabled: apiKey != "",
		logger:  log,
	}
}

func (c *Client) checkAPIKey() bool {
	if !c.enabled {
		c.logger.Warn("Shortener API key is not set")
	}
	return c.enabled
}

func (c *Client) shortURL(ident string) string {
	if ident == "" {
		return ""
	}
	return c.base.BaseURL() + "/" + ident
}

func externalPath(externalID string) string {
	return "/api/v1/urls/external/" + url.PathEscape(externalID)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// Create регистрирует длинную ссылку под внешним идентификатором
func (c *Client) Create(ctx context.Context, longURL string, expiresAt time.Time, externalID string) (string, error) {
	if !c.checkAPIKey() {
		return "", nil
	}

	var resp shortenResponse
	req := shortenRequest{URL: longURL, ExpiresAt: unixSeconds(expiresAt), ExternalID: externalID}
	if err := c.base.Do(ctx, http.MethodPost, "/api/v1/urls/shorten", nil, req, &resp); err != nil {
		return "", apperrors.ErrShortener.WithError(err)
	}

	return c.shortURL(resp.Ident), nil
}

// Get возвращает короткую ссылку по внешнему идентификатору
func (c *Client) Get(ctx context.Context, externalID string) (string, error) {
	if !c.checkAPIKey() {
		return "", nil
	}

	var resp shortenResponse
	if err := c.base.Do(ctx, http.MethodGet, externalPath(externalID), nil, nil, &resp); err != nil {
		return "", apperrors.ErrShortener.WithError(err)
	}

	return c.shortURL(resp.Ident), nil
}

// Update перенаправляет ссылку старого идентификатора на новый идентификатор и новую длинную ссылку
func (c *Client) Update(ctx context.Context, longURL string, expiresAt time.Time, oldExternalID, newExternalID string) (string, error) {
	if !c.checkAPIKey() {
		return "", nil
	}

	var resp shortenResponse
	req := shortenRequest{URL: longURL, ExpiresAt: unixSeconds(expiresAt), ExternalID: newExternalID}
	if err := c.base.Do(ctx, http.MethodPatch, externalPath(oldExternalID), nil, req, &resp); err != nil {
		return "", apperrors.ErrShortener.WithError(err)
	}

	return c.shortURL(resp.Ident), nil
}

// Delete удаляет ссылку по внешнему идентификатору
func (c *Client) Delete(ctx context.Context, externalID string) error {
	if !c.checkAPIKey() {
		return nil
	}

	if err := c.base.Do(ctx, http.MethodDelete, externalPath(externalID), nil, nil, nil); err != nil {
		return apperrors.ErrShortener.WithError(err)
	}

	c.logger.Info("Short link deleted", logger.String("external_id", externalID))
	return nil
}
