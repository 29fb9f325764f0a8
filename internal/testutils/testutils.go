package testutils

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/region23/bookingbot/internal/storage/sqlite"
	"github.com/region23/bookingbot/pkg/logger"
)

// SetupTestKeyStore создает in-memory SQLite хранилище ключей для тестов
func SetupTestKeyStore(t *testing.T, opts ...sqlite.Option) *sqlite.KeyStore {
	t.Helper()

	store, err := sqlite.New(":memory:", opts...)
	if err != nil {
		t.Fatalf("failed to create test key store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// SetupTestLogger создает тестовый логгер
func SetupTestLogger() *logger.Logger {
	return logger.Nop()
}

// TestContext создает контекст для тестов
func TestContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// AssertEqual сравнивает ожидаемое и фактическое значения
func AssertEqual(t *testing.T, expected, actual interface{}, msg string) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Errorf("%s: expected %v (%T), got %v (%T)", msg, expected, expected, actual, actual)
	}
}

// AssertNoError проверяет отсутствие ошибки
func AssertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", msg, err)
	}
}

// AssertError проверяет наличие ошибки
func AssertError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Errorf("%s: expected error, got nil", msg)
	}
}

// AssertTrue проверяет истинность условия
func AssertTrue(t *testing.T, cond bool, msg string) {
	t.Helper()
	if !cond {
		t.Errorf("%s: expected true", msg)
	}
}

// AssertFalse проверяет ложность условия
func AssertFalse(t *testing.T, cond bool, msg string) {
	t.Helper()
	if cond {
		t.Errorf("%s: expected false", msg)
	}
}

// AssertContains проверяет вхождение подстроки
func AssertContains(t *testing.T, s, substr, msg string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("%s: %q does not contain %q", msg, s, substr)
	}
}
