package email

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/region23/bookingbot/pkg/errors"
)

// Router выбирает провайдера по домену получателя, иначе использует провайдера по умолчанию
type Router struct {
	providers map[string]Sender
	routes    map[string]string
	fallback  string
}

var _ Sender = (*Router)(nil)

// NewRouter создает маршрутизатор. routes: домен -> имя провайдера.
func NewRouter(providers map[string]Sender, routes map[string]string, fallback string) (*Router, error) {
	if _, ok := providers[fallback]; !ok {
		return nil, apperrors.ErrConfigurationInvalid.WithError(fmt.Errorf("default email provider %q is not configured", fallback))
	}

	normalized := make(map[string]string, len(routes))
	for domain, name := range routes {
		if _, ok := providers[name]; !ok {
			return nil, apperrors.ErrConfigurationInvalid.WithError(fmt.Errorf("email provider %q for domain %q is not configured", name, domain))
		}
		normalized[strings.ToLower(strings.TrimSpace(domain))] = name
	}

	return &Router{providers: providers, routes: normalized, fallback: fallback}, nil
}

// ProviderFor возвращает имя провайдера для адреса
func (r *Router) ProviderFor(address string) string {
	at := strings.LastIndex(address, "@")
	if at >= 0 {
		if name, ok := r.routes[strings.ToLower(address[at+1:])]; ok {
			return name
		}
	}
	return r.fallback
}

// Send отправляет письмо через выбранного провайдера
func (r *Router) Send(ctx context.Context, msg Message) error {
	name := r.ProviderFor(msg.To)
	if err := r.providers[name].Send(ctx, msg); err != nil {
		return apperrors.ErrEmailDelivery.WithError(fmt.Errorf("%s: %w", name, err))
	}
	return nil
}
