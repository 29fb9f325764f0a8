package meeting

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/region23/bookingbot/internal/storage/models"
)

// UserContext данные участника внутри токена комнаты
type UserContext struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// RoomContext контекст токена комнаты
type RoomContext struct {
	User UserContext `json:"user"`
}

// RoomClaims claims токена видеокомнаты
type RoomClaims struct {
	Room    string      `json:"room"`
	Context RoomContext `json:"context"`
	jwt.RegisteredClaims
}

// Signer подписывает токены видеокомнат
type Signer struct {
	secret   []byte
	audience string
	issuer   string
}

// NewSigner создает подписчика токенов
func NewSigner(secret, audience, issuer string) *Signer {
	return &Signer{secret: []byte(secret), audience: audience, issuer: issuer}
}

// Sign выдает токен участника на комнату uid в окне [start-5m, end+5m]
func (s *Signer) Sign(booking *models.Booking, participantName string, role models.Role, now time.Time) (string, time.Time, error) {
	expiresAt := booking.EndTime.Add(models.LeadWindow)

	claims := RoomClaims{
		Room: booking.UID,
		Context: RoomContext{
			User: UserContext{Name: participantName, Role: string(role)},
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{s.audience},
			Issuer:    s.issuer,
			Subject:   "*",
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(booking.StartTime.Add(-models.LeadWindow)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign room token: %w", err)
	}
	return signed, expiresAt, nil
}

// ReadUnverified читает claims токена без проверки подписи.
// Вебхук видеосервиса присылает токен участника, секрет для проверки у сервиса не запрашивается.
func ReadUnverified(token string) (*RoomClaims, error) {
	claims := &RoomClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to read room token: %w", err)
	}
	return claims, nil
}
