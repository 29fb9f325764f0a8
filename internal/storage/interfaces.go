package storage

import (
	"context"
	"time"

	"github.com/region23/bookingbot/internal/storage/models"
)

// BookingRepository определяет доступ к бронированиям платформы
type BookingRepository interface {
	// GetBooking возвращает nil, nil если бронирование не найдено
	GetBooking(ctx context.Context, uid string) (*models.Booking, error)
	UpdateBookingVideoURL(ctx context.Context, uid, url string) error
	GetBookingsInWindow(ctx context.Context, from, to time.Time) ([]*models.Booking, error)
}

// UserRepository определяет доступ к организаторам
type UserRepository interface {
	// GetUserByID возвращает nil, nil если пользователь не найден
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	// GetOrganizerChatID ищет только разблокированных пользователей с привязанным Telegram
	GetOrganizerChatID(ctx context.Context, email string) (*int64, error)
	SetTelegramChatID(ctx context.Context, userID, chatID int64) error
}

// BookingStore объединяет репозитории платформы бронирования
type BookingStore interface {
	BookingRepository
	UserRepository
	Close()
	Ping(ctx context.Context) error
}

// KeyStore хранит ключи с TTL: дедупликация вебхуков и служебные маркеры
type KeyStore interface {
	// SetNX записывает ключ, если его нет или он истек; возвращает true при записи
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	Close() error
	Ping(ctx context.Context) error
}
