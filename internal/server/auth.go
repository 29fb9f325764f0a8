package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/region23/bookingbot/pkg/errors"
)

// Заголовки подписи входящих вебхуков
const (
	HeaderCalSignature   = "X-Cal-Signature-256"
	HeaderTelegramSecret = "X-Telegram-Bot-Api-Secret-Token"
)

const rawBodyKey = "raw_body"

// ComputeSignature вычисляет HMAC-SHA256 тела в hex
func ComputeSignature(body []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// verifySignature сравнивает подпись из заголовка с ожидаемой
func verifySignature(body []byte, secret, provided string) bool {
	provided = strings.TrimPrefix(strings.TrimSpace(provided), "sha256=")
	expected, _ := hex.DecodeString(ComputeSignature(body, secret))
	got, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

// abortWithError прерывает запрос с текстом и кодом ошибки сервиса
func abortWithError(c *gin.Context, status int, err error, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message, "code": apperrors.Code(err)})
}

// calSignatureMiddleware проверяет подпись вебхука платформы бронирования.
// Тело сохраняется в контексте для обработчика.
func (s *Server) calSignatureMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			s.securityLogger.LogValidationError(c, "booking_webhook", err)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
			return
		}

		if secret := s.config.Server.CalSignature; secret != "" {
			if !verifySignature(body, secret, c.GetHeader(HeaderCalSignature)) {
				s.securityLogger.LogFailedAuth(c, "invalid booking webhook signature")
				abortWithError(c, http.StatusUnauthorized, apperrors.ErrInvalidSignature, "invalid signature")
				return
			}
		}

		c.Set(rawBodyKey, body)
		c.Next()
	}
}

// telegramSecretMiddleware проверяет секретный токен вебхука Telegram
func (s *Server) telegramSecretMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := s.config.Telegram.SecretToken
		if secret != "" {
			provided := c.GetHeader(HeaderTelegramSecret)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				s.securityLogger.LogFailedAuth(c, "invalid telegram secret token")
				c.AbortWithStatus(http.StatusUnauthorized)
				return
			}
		}
		c.Next()
	}
}

// adminAuthMiddleware пускает запросы со статическим токеном администратора
// или с HS256 JWT, подписанным этим токеном
func (s *Server) adminAuthMiddleware() gin.HandlerFunc {
	token := s.config.Server.AdminAPIToken

	return func(c *gin.Context) {
		if token == "" {
			s.securityLogger.LogFailedAuth(c, "admin token is not configured")
			abortWithError(c, http.StatusForbidden, apperrors.ErrUnauthorized, "admin api disabled")
			return
		}

		parts := strings.Fields(c.GetHeader("Authorization"))
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			s.securityLogger.LogFailedAuth(c, "missing bearer token")
			abortWithError(c, http.StatusUnauthorized, apperrors.ErrUnauthorized, "missing authorization")
			return
		}
		provided := parts[1]

		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) == 1 {
			c.Next()
			return
		}

		_, err := jwt.Parse(provided, func(t *jwt.Token) (interface{}, error) {
			return []byte(token), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(5*time.Second))
		if err == nil {
			c.Next()
			return
		}

		s.securityLogger.LogFailedAuth(c, "invalid admin token")
		abortWithError(c, http.StatusUnauthorized, apperrors.ErrInvalidToken.WithError(err), "invalid token")
	}
}
