package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy описывает ограниченный повтор с экспоненциальной задержкой
type Policy struct {
	Attempts   int
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// ChatPolicy используется для вызовов чат-провайдера
var ChatPolicy = Policy{
	Attempts:   5,
	Initial:    2 * time.Second,
	Max:        10 * time.Second,
	Multiplier: 2,
}

// HTTPPolicy используется базовым REST клиентом
var HTTPPolicy = Policy{
	Attempts:   3,
	Initial:    500 * time.Millisecond,
	Max:        5 * time.Second,
	Multiplier: 2,
}

// Permanent помечает ошибку как неповторяемую
func Permanent(err error) error {
	return backoff.Permanent(err)
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.Initial
	exp.MaxInterval = p.Max
	exp.Multiplier = p.Multiplier
	if exp.Multiplier <= 0 {
		exp.Multiplier = 2
	}
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0

	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

// Do выполняет fn, пока она не вернет nil, постоянную ошибку или не кончатся попытки.
// onRetry вызывается перед каждой задержкой и может быть nil.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error, onRetry func(err error, wait time.Duration)) error {
	op := func() error {
		return fn(ctx)
	}

	var notify backoff.Notify
	if onRetry != nil {
		notify = func(err error, wait time.Duration) {
			onRetry(err, wait)
		}
	}

	return backoff.RetryNotify(op, p.backOff(ctx), notify)
}
