package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/region23/bookingbot/internal/storage"
	"github.com/region23/bookingbot/internal/storage/models"
	apperrors "github.com/region23/bookingbot/pkg/errors"
)

var _ storage.BookingStore = (*Store)(nil)

// pool общая часть *pgxpool.Pool и pgxmock
type pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// Store реализует доступ к базе платформы бронирования (схема cal.com)
type Store struct {
	pool pool
}

// New создает пул подключений к PostgreSQL
func New(ctx context.Context, dsn string, maxConns int32, connTimeout time.Duration) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, apperrors.ErrDatabaseConnection.WithError(fmt.Errorf("parse dsn: %w", err))
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if connTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = connTimeout
	}

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, apperrors.ErrDatabaseConnection.WithError(err)
	}

	return &Store{pool: p}, nil
}

// Close закрывает пул
func (s *Store) Close() {
	s.pool.Close()
}

// Ping проверяет подключение к базе данных
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const bookingSelect = `
	SELECT b.id, b.uid, b."startTime", b."endTime", b.status::text,
	       COALESCE(b."fromReschedule", ''), b."reassignById",
	       COALESCE(b."cancellationReason", ''), COALESCE(b.location, ''), b.metadata,
	       u.id, COALESCE(u.name, ''), u.email, u.locked, COALESCE(u."timeZone", 'UTC'),
	       u.telegram_chat_id, COALESCE(u.telegram_token, ''),
	       COALESCE(a.name, ''), COALESCE(a.email, ''), COALESCE(a."timeZone", 'UTC')
	FROM public."Booking" b
	JOIN users u ON u.id = b."userId"
	LEFT JOIN LATERAL (
		SELECT name, email, "timeZone" FROM public."Attendee"
		WHERE "bookingId" = b.id ORDER BY id LIMIT 1
	) a ON TRUE`

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var (
		b            models.Booking
		reassignByID *int32
	)

	err := row.Scan(
		&b.ID, &b.UID, &b.StartTime, &b.EndTime, &b.Status,
		&b.FromReschedule, &reassignByID,
		&b.CancellationReason, &b.Location, &b.Metadata,
		&b.Organizer.ID, &b.Organizer.Name, &b.Organizer.Email, &b.Organizer.Locked, &b.Organizer.TimeZone,
		&b.Organizer.TelegramChatID, &b.Organizer.TelegramToken,
		&b.Client.Name, &b.Client.Email, &b.Client.TimeZone,
	)
	if err != nil {
		return nil, err
	}

	if reassignByID != nil {
		id := int64(*reassignByID)
		b.ReassignByID = &id
	}
	b.StartTime = b.StartTime.UTC()
	b.EndTime = b.EndTime.UTC()

	return &b, nil
}

// GetBooking получает бронирование по uid
func (s *Store) GetBooking(ctx context.Context, uid string) (*models.Booking, error) {
	booking, err := scanBooking(s.pool.QueryRow(ctx, bookingSelect+` WHERE b.uid = $1`, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	return booking, nil
}

// GetBookingsInWindow получает подтвержденные бронирования с началом в [from, to]
func (s *Store) GetBookingsInWindow(ctx context.Context, from, to time.Time) ([]*models.Booking, error) {
	query := bookingSelect + `
	WHERE b.status = $1 AND b."startTime" >= $2 AND b."startTime" <= $3
	ORDER BY b."startTime"`

	rows, err := s.pool.Query(ctx, query, models.StatusAccepted, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings in window: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookings: %w", err)
	}

	return bookings, nil
}

// UpdateBookingVideoURL записывает ссылку на встречу в metadata.videoCallUrl
func (s *Store) UpdateBookingVideoURL(ctx context.Context, uid, url string) error {
	query := `UPDATE public."Booking"
	          SET metadata = COALESCE(metadata, '{}'::jsonb) || jsonb_build_object('videoCallUrl', $1::text)
	          WHERE uid = $2`

	if _, err := s.pool.Exec(ctx, query, url, uid); err != nil {
		return fmt.Errorf("failed to update booking video url: %w", err)
	}
	return nil
}

const userSelect = `
	SELECT id, COALESCE(name, ''), email, locked, COALESCE("timeZone", 'UTC'),
	       telegram_chat_id, COALESCE(telegram_token, '')
	FROM users`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Locked, &u.TimeZone, &u.TelegramChatID, &u.TelegramToken)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByID получает пользователя по id
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := scanUser(s.pool.QueryRow(ctx, userSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetOrganizerChatID возвращает chat id разблокированного организатора с привязанным Telegram
func (s *Store) GetOrganizerChatID(ctx context.Context, email string) (*int64, error) {
	var chatID int64
	query := `SELECT telegram_chat_id FROM users
	          WHERE locked = FALSE AND email = $1 AND telegram_chat_id IS NOT NULL`

	err := s.pool.QueryRow(ctx, query, email).Scan(&chatID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get organizer chat id: %w", err)
	}

	return &chatID, nil
}

// SetTelegramChatID привязывает Telegram к пользователю
func (s *Store) SetTelegramChatID(ctx context.Context, userID, chatID int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET telegram_chat_id = $1 WHERE id = $2`, chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to set telegram chat id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound.WithContext(userID)
	}
	return nil
}
