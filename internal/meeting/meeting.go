package meeting

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/region23/bookingbot/internal/shortener"
	"github.com/region23/bookingbot/internal/storage/models"
	"github.com/region23/bookingbot/pkg/logger"
	"github.com/region23/bookingbot/pkg/metrics"
)

// ChatTokenIssuer выдает токен доступа к чату встречи
type ChatTokenIssuer interface {
	CreateToken(userID, name string, expiresAt time.Time) (string, error)
}

// BookingStore часть хранилища, нужная для синхронизации ссылки
type BookingStore interface {
	GetBooking(ctx context.Context, uid string) (*models.Booking, error)
	UpdateBookingVideoURL(ctx context.Context, uid, url string) error
}

// DefaultSyncDelay задержка перед записью ссылки в metadata
const DefaultSyncDelay = 5 * time.Second

// Manager создает ссылки на видеовстречи
type Manager struct {
	hostURL   string
	signer    *Signer
	shortener shortener.Shortener
	chat      ChatTokenIssuer
	store     BookingStore
	syncDelay time.Duration
	now       func() time.Time
	logger    *logger.Logger
}

// Option настраивает Manager
type Option func(*Manager)

// WithSyncDelay подменяет задержку синхронизации metadata
func WithSyncDelay(d time.Duration) Option {
	return func(m *Manager) {
		m.syncDelay = d
	}
}

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager создает менеджер ссылок
func NewManager(hostURL string, signer *Signer, sh shortener.Shortener, chat ChatTokenIssuer, store BookingStore, log *logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		hostURL:   strings.TrimRight(hostURL, "/"),
		signer:    signer,
		shortener: sh,
		chat:      chat,
		store:     store,
		syncDelay: DefaultSyncDelay,
		now:       time.Now,
		logger:    log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateMeetingURL выдает ссылку участника. При isUpdate существующая короткая ссылка
// предыдущего бронирования перенаправляется на новый идентификатор.
// Ошибки сервиса коротких ссылок не прерывают создание: возвращается длинная ссылка.
func (m *Manager) CreateMeetingURL(ctx context.Context, booking *models.Booking, participantID, participantName string, isUpdate, isUpdateInDB bool, prefix string) (string, error) {
	role := models.RoleForPrefix(prefix)
	log := m.logger.WithFields(
		logger.String("booking_uid", booking.UID),
		logger.String("role", string(role)),
	)

	videoToken, expiresAt, err := m.signer.Sign(booking, participantName, role, m.now())
	if err != nil {
		metrics.RecordMeetingLink("sign", "error")
		return "", err
	}

	longURL := m.longURL(booking.UID, videoToken, m.chatToken(log, participantID, participantName, expiresAt))
	meetingURL := m.shorten(ctx, log, booking, longURL, expiresAt, isUpdate, prefix)

	if isUpdateInDB {
		if err := m.syncMetadata(ctx, log, booking.UID, meetingURL); err != nil {
			return meetingURL, err
		}
	}

	return meetingURL, nil
}

func (m *Manager) chatToken(log *logger.Logger, participantID, participantName string, expiresAt time.Time) string {
	if m.chat == nil {
		return ""
	}
	token, err := m.chat.CreateToken(participantID, participantName, expiresAt)
	if err != nil {
		log.Warn("Failed to issue chat token", logger.Error(err))
		return ""
	}
	return token
}

func (m *Manager) longURL(uid, videoToken, chatToken string) string {
	long := fmt.Sprintf("%s/%s?jwt_video=%s", m.hostURL, url.PathEscape(uid), url.QueryEscape(videoToken))
	if chatToken != "" {
		long += "&jwt_chat=" + url.QueryEscape(chatToken)
	}
	return long
}

func (m *Manager) shorten(ctx context.Context, log *logger.Logger, booking *models.Booking, longURL string, expiresAt time.Time, isUpdate bool, prefix string) string {
	newID := prefix + booking.UID

	var (
		short     string
		err       error
		operation = "create"
	)
	if isUpdate {
		operation = "update"
		oldID := prefix + booking.PreviousUIDOrCurrent()
		short, err = m.shortener.Update(ctx, longURL, expiresAt, oldID, newID)
	} else {
		short, err = m.shortener.Create(ctx, longURL, expiresAt, newID)
	}

	if err != nil {
		log.Warn("Shortener unavailable, falling back to long url",
			logger.String("operation", operation), logger.Error(err))
		metrics.RecordMeetingLink(operation, "fallback")
		return longURL
	}
	if short == "" {
		log.Warn("Shortener returned no link, falling back to long url",
			logger.String("operation", operation))
		metrics.RecordMeetingLink(operation, "fallback")
		return longURL
	}

	metrics.RecordMeetingLink(operation, "ok")
	return short
}

// syncMetadata ждет, пока платформа допишет metadata, и записывает ссылку
func (m *Manager) syncMetadata(ctx context.Context, log *logger.Logger, uid, meetingURL string) error {
	if m.syncDelay > 0 {
		timer := time.NewTimer(m.syncDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	current, err := m.store.GetBooking(ctx, uid)
	switch {
	case err != nil:
		log.Warn("Failed to reload booking metadata", logger.Error(err))
	case current == nil:
		log.Warn("Booking disappeared before link was persisted")
	case current.VideoCallURL() != "" && current.VideoCallURL() != meetingURL:
		log.Debug("Replacing meeting url in metadata", logger.String("previous_url", current.VideoCallURL()))
	}

	if err := m.store.UpdateBookingVideoURL(ctx, uid, meetingURL); err != nil {
		metrics.RecordMeetingLink("persist", "error")
		return fmt.Errorf("failed to persist meeting url: %w", err)
	}
	metrics.RecordMeetingLink("persist", "ok")
	return nil
}

// GetMeetingURL возвращает короткую ссылку участника
func (m *Manager) GetMeetingURL(ctx context.Context, uid, prefix string) (string, error) {
	return m.shortener.Get(ctx, prefix+uid)
}

// DeleteMeetingURL удаляет короткую ссылку участника
func (m *Manager) DeleteMeetingURL(ctx context.Context, uid, prefix string) error {
	if err := m.shortener.Delete(ctx, prefix+uid); err != nil {
		metrics.RecordMeetingLink("delete", "error")
		return err
	}
	metrics.RecordMeetingLink("delete", "ok")
	return nil
}
