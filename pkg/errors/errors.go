package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError представляет ошибку сервиса с кодом и контекстом
type AppError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
	Context interface{} `json:"context,omitempty"`
}

// Error реализует интерфейс error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap позволяет использовать errors.Is и errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is сравнивает ошибки по коду, чтобы копии из WithError/WithContext совпадали с исходной
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithContext добавляет контекст к ошибке
func (e *AppError) WithContext(ctx interface{}) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Context: ctx,
	}
}

// WithError добавляет underlying ошибку
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
		Context: e.Context,
	}
}

// Предопределенные ошибки
var (
	// Ошибки входящих данных
	ErrInvalidPayload = &AppError{
		Code:    "INVALID_PAYLOAD",
		Message: "некорректное тело запроса",
	}

	ErrInvalidSignature = &AppError{
		Code:    "INVALID_SIGNATURE",
		Message: "неверная подпись запроса",
	}

	ErrUnauthorized = &AppError{
		Code:    "UNAUTHORIZED",
		Message: "доступ запрещен",
	}

	ErrInvalidToken = &AppError{
		Code:    "INVALID_TOKEN",
		Message: "некорректный токен",
	}

	// Ошибки данных
	ErrBookingNotFound = &AppError{
		Code:    "BOOKING_NOT_FOUND",
		Message: "бронирование не найдено",
	}

	ErrUserNotFound = &AppError{
		Code:    "USER_NOT_FOUND",
		Message: "пользователь не найден",
	}

	ErrTemplateMissing = &AppError{
		Code:    "TEMPLATE_MISSING",
		Message: "шаблон уведомления не найден",
	}

	// Ошибки внешних сервисов
	ErrShortener = &AppError{
		Code:    "SHORTENER",
		Message: "ошибка сервиса коротких ссылок",
	}

	ErrChatProvider = &AppError{
		Code:    "CHAT_PROVIDER",
		Message: "ошибка чат-провайдера",
	}

	ErrTelegramAPI = &AppError{
		Code:    "TELEGRAM_API",
		Message: "ошибка Telegram API",
	}

	ErrEmailDelivery = &AppError{
		Code:    "EMAIL_DELIVERY",
		Message: "ошибка отправки письма",
	}

	// Системные ошибки
	ErrDatabaseConnection = &AppError{
		Code:    "DATABASE_CONNECTION",
		Message: "ошибка подключения к базе данных",
	}

	ErrConfigurationInvalid = &AppError{
		Code:    "CONFIGURATION_INVALID",
		Message: "некорректная конфигурация",
	}
)

// GetAppError извлекает AppError из цепочки ошибок
func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}

// Is прокидывает errors.Is, чтобы не импортировать оба пакета
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// Code возвращает код ошибки или "INTERNAL"
func Code(err error) string {
	if appErr, ok := GetAppError(err); ok {
		return appErr.Code
	}
	return "INTERNAL"
}
