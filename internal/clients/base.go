package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/region23/bookingbot/pkg/logger"
	"github.com/region23/bookingbot/pkg/metrics"
	"github.com/region23/bookingbot/pkg/retry"
)

// StatusError ответ внешнего сервиса с неуспешным статусом
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Service, e.StatusCode, e.Body)
}

// Retryable сообщает, имеет ли смысл повторить запрос
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// BaseClient общий JSON клиент для REST интеграций
type BaseClient struct {
	service string
	baseURL string
	headers http.Header
	http    *http.Client
	policy  retry.Policy
	logger  *logger.Logger
}

// BaseOption настраивает BaseClient
type BaseOption func(*BaseClient)

// WithHTTPClient подменяет http.Client
func WithHTTPClient(c *http.Client) BaseOption {
	return func(b *BaseClient) {
		b.http = c
	}
}

// WithRetryPolicy подменяет политику повторов
func WithRetryPolicy(p retry.Policy) BaseOption {
	return func(b *BaseClient) {
		b.policy = p
	}
}

// WithHeader добавляет заголовок ко всем запросам
func WithHeader(key, value string) BaseOption {
	return func(b *BaseClient) {
		b.headers.Set(key, value)
	}
}

// NewBaseClient создает клиент для сервиса service с базовым адресом baseURL
func NewBaseClient(service, baseURL string, timeout time.Duration, log *logger.Logger, opts ...BaseOption) *BaseClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b := &BaseClient{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: make(http.Header),
		http:    &http.Client{Timeout: timeout},
		policy:  retry.HTTPPolicy,
		logger:  log,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BaseURL возвращает базовый адрес сервиса
func (b *BaseClient) BaseURL() string {
	return b.baseURL
}

// Do выполняет JSON запрос с повторами на сетевых ошибках, 429 и 5xx.
// Ответ декодируется в out, если out не nil и тело не пустое.
func (b *BaseClient) Do(ctx context.Context, method, path string, query map[string]string, body, out any, headers ...http.Header) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", b.service, err)
		}
	}

	err := retry.Do(ctx, b.policy, func(ctx context.Context) error {
		return b.do(ctx, method, path, query, payload, out, headers)
	}, func(err error, wait time.Duration) {
		b.logger.Warn("Retrying external service request",
			logger.String("service", b.service),
			logger.String("path", path),
			logger.Duration("wait", wait),
			logger.Error(err))
	})

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordExternalCall(b.service, status)

	return err
}

func (b *BaseClient) do(ctx context.Context, method, path string, query map[string]string, payload []byte, out any, headers []http.Header) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return retry.Permanent(fmt.Errorf("%s: failed to build request: %w", b.service, err))
	}

	if len(query) > 0 {
		q := req.URL.Query()
		for k, v := range query {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vals := range b.headers {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	for _, h := range headers {
		for k, vals := range h {
			req.Header.Del(k)
			for _, v := range vals {
				req.Header.Add(k, v)
			}
		}
	}

	resp, err := b.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return retry.Permanent(err)
		}
		return fmt.Errorf("%s: request failed: %w", b.service, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", b.service, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Service: b.service, StatusCode: resp.StatusCode, Body: string(data)}
		if statusErr.Retryable() {
			return statusErr
		}
		return retry.Permanent(statusErr)
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return retry.Permanent(fmt.Errorf("%s: failed to decode response: %w", b.service, err))
		}
	}

	return nil
}
