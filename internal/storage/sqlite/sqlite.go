package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/region23/bookingbot/internal/storage"

	_ "modernc.org/sqlite"
)

var _ storage.KeyStore = (*KeyStore)(nil)

// KeyStore реализует storage.KeyStore поверх SQLite
type KeyStore struct {
	db  *sql.DB
	now func() time.Time
}

// Option настраивает KeyStore
type Option func(*KeyStore)

// WithClock подменяет источник времени (для тестов)
func WithClock(now func() time.Time) Option {
	return func(s *KeyStore) {
		s.now = now
	}
}

// New создает новое подключение к SQLite базе данных
func New(dbPath string, opts ...Option) (*KeyStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка подключения
	db.SetMaxOpenConns(1) // SQLite поддерживает только одно write-подключение
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0) // :memory: живет, пока живо соединение

	store := &KeyStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(store)
	}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return store, nil
}

// migrate выполняет миграции базы данных
func (s *KeyStore) migrate() error {
	// Включаем WAL mode для лучшей конкурентности
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return fmt.Errorf("failed to set WAL mode: %w", err)
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			expires_at INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_kv_expires_at ON kv(expires_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration query: %w", err)
		}
	}

	return nil
}

// Close закрывает подключение к базе данных
func (s *KeyStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping проверяет подключение к базе данных
func (s *KeyStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// expiresAt переводит TTL в момент истечения в миллисекундах, 0 значит без срока
func (s *KeyStore) expiresAt(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return s.now().Add(ttl).UnixMilli()
}

// SetNX записывает ключ, только если его нет или он истек
func (s *KeyStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	query := `INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
			  ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
			  WHERE kv.expires_at != 0 AND kv.expires_at <= ?`

	result, err := s.db.ExecContext(ctx, query, key, value, s.expiresAt(ttl), s.now().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("failed to set key: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows > 0, nil
}

// Set записывает ключ безусловно
func (s *KeyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	query := `INSERT INTO kv (key, value, expires_at) VALUES (?, ?, ?)
			  ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`

	if _, err := s.db.ExecContext(ctx, query, key, value, s.expiresAt(ttl)); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

// Get возвращает значение живого ключа
func (s *KeyStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	query := `SELECT value FROM kv WHERE key = ? AND (expires_at = 0 OR expires_at > ?)`

	err := s.db.QueryRowContext(ctx, query, key, s.now().UnixMilli()).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get key: %w", err)
	}

	return value, true, nil
}

// Exists проверяет наличие живого ключа
func (s *KeyStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

// Delete удаляет ключ
func (s *KeyStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// PurgeExpired удаляет истекшие ключи и возвращает их количество
func (s *KeyStore) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM kv WHERE expires_at != 0 AND expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired keys: %w", err)
	}

	return result.RowsAffected()
}
