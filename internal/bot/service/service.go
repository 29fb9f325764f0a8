package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/region23/bookingbot/internal/storage/models"
	apperrors "github.com/region23/bookingbot/pkg/errors"
	"github.com/region23/bookingbot/pkg/logger"
)

// Ответы бота
const (
	MsgRegistrationError = "Ошибка регистрации. Обратитесь к администратору"
	MsgAlreadyRegistered = "Ваш email уже зарегистрирован"
	MsgPong              = "pong"
)

// UserStore доступ к пользователям платформы
type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	SetTelegramChatID(ctx context.Context, userID, chatID int64) error
}

// Replier отправляет ответы в чат
type Replier interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Registration итог привязки Telegram
type Registration int

const (
	RegistrationRejected Registration = iota
	RegistrationDone
	RegistrationExists
)

// Service представляет основной сервис Telegram бота
type Service struct {
	users   UserStore
	replier Replier
	log     *logger.Logger
}

// NewService создает новый экземпляр сервиса бота
func NewService(users UserStore, replier Replier, log *logger.Logger) *Service {
	return &Service{users: users, replier: replier, log: log}
}

// DecodeStartPayload разбирает deep link вида base64url("user_id@token")
func DecodeStartPayload(payload string) (int64, string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return 0, "", apperrors.ErrInvalidPayload.WithContext("empty start payload")
	}
	if m := len(payload) % 4; m != 0 {
		payload += strings.Repeat("=", 4-m)
	}

	raw, err := base64.URLEncoding.DecodeString(payload)
	if err != nil {
		return 0, "", apperrors.ErrInvalidPayload.WithError(err)
	}

	idPart, token, ok := strings.Cut(string(raw), "@")
	if !ok || token == "" {
		return 0, "", apperrors.ErrInvalidPayload.WithContext("payload must be user_id@token")
	}
	userID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, "", apperrors.ErrInvalidPayload.WithError(err)
	}
	return userID, token, nil
}

// EncodeStartPayload формирует payload ссылки регистрации
func EncodeStartPayload(userID int64, token string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf("%d@%s", userID, token)))
}

// Register привязывает чат к пользователю по payload из /start
func (s *Service) Register(ctx context.Context, payload string, chatID int64) (Registration, *models.User, error) {
	userID, token, err := DecodeStartPayload(payload)
	if err != nil {
		return RegistrationRejected, nil, err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return RegistrationRejected, nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	if user == nil || user.Locked {
		return RegistrationRejected, nil, apperrors.ErrUserNotFound.WithContext(userID)
	}
	if user.HasTelegram() {
		return RegistrationExists, user, nil
	}
	if user.TelegramToken == "" || user.TelegramToken != token {
		return RegistrationRejected, user, apperrors.ErrInvalidToken.WithContext(userID)
	}

	if err := s.users.SetTelegramChatID(ctx, user.ID, chatID); err != nil {
		return RegistrationRejected, user, fmt.Errorf("failed to link chat: %w", err)
	}
	return RegistrationDone, user, nil
}

// WelcomeMessage приветствие после привязки
func WelcomeMessage(name string) string {
	return "Добро пожаловать, <b>" + html.EscapeString(name) + "</b>"
}

// IDMessage ответ на /id
func IDMessage(userID, chatID int64) string {
	return fmt.Sprintf("Your ID: %d\nYour chat ID: %d", userID, chatID)
}

// Reply отправляет ответ и логирует ошибку
func (s *Service) Reply(ctx context.Context, chatID int64, text string) {
	if err := s.replier.SendMessage(ctx, chatID, text); err != nil {
		s.log.Error("Failed to reply", logger.Int64("chat_id", chatID), logger.Error(err))
	}
}
