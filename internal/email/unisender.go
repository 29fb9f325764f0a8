package email

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/region23/bookingbot/internal/clients"
	"github.com/region23/bookingbot/pkg/logger"
)

// UnisenderClient клиент Unisender Go
type UnisenderClient struct {
	base *clients.BaseClient
}

var _ Sender = (*UnisenderClient)(nil)

// NewUnisenderClient создает клиент Unisender Go
func NewUnisenderClient(apiURL, apiKey string, timeout time.Duration, log *logger.Logger, opts ...clients.BaseOption) *UnisenderClient {
	opts = append([]clients.BaseOption{clients.WithHeader("X-API-KEY", apiKey)}, opts...)
	return &UnisenderClient{base: clients.NewBaseClient("unisender", apiURL, timeout, log, opts...)}
}

type unisenderRecipient struct {
	Email string `json:"email"`
}

type unisenderMessage struct {
	Recipients  []unisenderRecipient `json:"recipients"`
	Body        map[string]string    `json:"body"`
	Subject     string               `json:"subject"`
	FromEmail   string               `json:"from_email"`
	FromName    string               `json:"from_name,omitempty"`
	ReplyTo     string               `json:"reply_to,omitempty"`
	ReplyToName string               `json:"reply_to_name,omitempty"`
	TrackLinks  int                  `json:"track_links"`
	TrackRead   int                  `json:"track_read"`
}

type unisenderResponse struct {
	Status string `json:"status"`
	JobID  string `json:"job_id"`
}

// Send отправляет письмо
func (c *UnisenderClient) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	m := unisenderMessage{
		Recipients: []unisenderRecipient{{Email: msg.To}},
		Body:       map[string]string{"html": msg.HTML},
		Subject:    msg.Subject,
		FromEmail:  msg.From.Email,
		FromName:   msg.From.Name,
	}
	if msg.ReplyTo != nil {
		m.ReplyTo = msg.ReplyTo.Email
		m.ReplyToName = msg.ReplyTo.Name
	}

	var resp unisenderResponse
	if err := c.base.Do(ctx, http.MethodPost, "/email/send.json", nil, map[string]any{"message": m}, &resp); err != nil {
		return err
	}
	if resp.Status != "" && resp.Status != "success" {
		return fmt.Errorf("unisender: send status %q", resp.Status)
	}
	return nil
}
