package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestAppError_IsMatchesByCode(t *testing.T) {
	cause := stderrors.New("dial tcp: connection refused")

	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same sentinel", ErrShortener, ErrShortener, true},
		{"with error", ErrShortener.WithError(cause), ErrShortener, true},
		{"with context", ErrUserNotFound.WithContext(int64(3)), ErrUserNotFound, true},
		{"wrapped by fmt", fmt.Errorf("flow: %w", ErrBookingNotFound.WithContext("uid-1")), ErrBookingNotFound, true},
		{"other code", ErrShortener.WithError(cause), ErrEmailDelivery, false},
		{"underlying cause", ErrDatabaseConnection.WithError(cause), cause, true},
		{"plain error", cause, ErrShortener, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.target); got != tt.want {
				t.Errorf("Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.want)
			}
		})
	}
}

func TestAppError_WithErrorKeepsSentinel(t *testing.T) {
	err := ErrEmailDelivery.WithError(stderrors.New("smtp: timeout"))

	if ErrEmailDelivery.Err != nil {
		t.Fatal("WithError must not modify the sentinel")
	}
	want := "EMAIL_DELIVERY: ошибка отправки письма: smtp: timeout"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"sentinel", ErrInvalidSignature, "INVALID_SIGNATURE"},
		{"wrapped", fmt.Errorf("auth: %w", ErrInvalidToken.WithError(stderrors.New("expired"))), "INVALID_TOKEN"},
		{"plain", stderrors.New("boom"), "INTERNAL"},
		{"nil", nil, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Code(tt.err); got != tt.want {
				t.Errorf("Code() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetAppError(t *testing.T) {
	appErr, ok := GetAppError(fmt.Errorf("config: %w", ErrConfigurationInvalid.WithContext("BOT_TOKEN")))
	if !ok {
		t.Fatal("expected AppError in chain")
	}
	if appErr.Context != "BOT_TOKEN" {
		t.Errorf("context = %v", appErr.Context)
	}
}
