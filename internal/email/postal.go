package email

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/region23/bookingbot/internal/clients"
	"github.com/region23/bookingbot/pkg/logger"
)

// PostalClient клиент Postal
type PostalClient struct {
	base *clients.BaseClient
}

var _ Sender = (*PostalClient)(nil)

// NewPostalClient создает клиент Postal
func NewPostalClient(apiURL, apiKey string, timeout time.Duration, log *logger.Logger, opts ...clients.BaseOption) *PostalClient {
	opts = append([]clients.BaseOption{clients.WithHeader("X-Server-API-Key", apiKey)}, opts...)
	return &PostalClient{base: clients.NewBaseClient("postal", apiURL, timeout, log, opts...)}
}

type postalMessage struct {
	To       []string `json:"to"`
	From     string   `json:"from"`
	ReplyTo  string   `json:"reply_to,omitempty"`
	Subject  string   `json:"subject"`
	HTMLBody string   `json:"html_body"`
}

type postalResponse struct {
	Status string `json:"status"`
	Data   struct {
		MessageID string `json:"message_id"`
	} `json:"data"`
}

// Send отправляет письмо
func (c *PostalClient) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	m := postalMessage{
		To:       []string{msg.To},
		From:     msg.From.String(),
		Subject:  msg.Subject,
		HTMLBody: msg.HTML,
	}
	if msg.ReplyTo != nil {
		m.ReplyTo = msg.ReplyTo.String()
	}

	var resp postalResponse
	if err := c.base.Do(ctx, http.MethodPost, "/api/v1/send/message", nil, m, &resp); err != nil {
		return err
	}
	if resp.Status != "success" {
		return fmt.Errorf("postal: send status %q", resp.Status)
	}
	return nil
}
