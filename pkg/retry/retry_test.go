package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var fast = Policy{Attempts: 5, Initial: time.Millisecond, Max: 2 * time.Millisecond, Multiplier: 2}

func TestDo_StopsAfterAttempts(t *testing.T) {
	calls := 0
	retries := 0
	err := Do(context.Background(), fast, func(context.Context) error {
		calls++
		return errors.New("provider unavailable")
	}, func(error, time.Duration) { retries++ })

	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 5 {
		t.Errorf("expected 5 calls, got %d", calls)
	}
	if retries != 4 {
		t.Errorf("expected 4 retry notifications, got %d", retries)
	}
}

func TestDo_SucceedsAfterTransientErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fast, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("timeout")
		}
		return nil
	}, nil)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_PermanentErrorIsNotRetried(t *testing.T) {
	calls := 0
	bad := errors.New("bad request")
	err := Do(context.Background(), fast, func(context.Context) error {
		calls++
		return Permanent(bad)
	}, nil)

	if !errors.Is(err, bad) {
		t.Fatalf("expected wrapped bad request error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected single call, got %d", calls)
	}
}
