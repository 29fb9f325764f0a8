package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/region23/bookingbot/internal/booking"
	"github.com/region23/bookingbot/internal/config"
	"github.com/region23/bookingbot/internal/middleware"
	"github.com/region23/bookingbot/internal/storage/models"
	"github.com/region23/bookingbot/pkg/logger"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 30 * time.Second
)

// BookingHandler обработчик событий бронирования
type BookingHandler interface {
	HandleBooking(event models.BookingEvent) booking.FlowInfo
	HandleBookingReminder(ctx context.Context, fromHours, toHours int) (int, error)
	HandleMeetWebhook(ctx context.Context, event models.MeetWebhookEvent) error
	InFlight() []booking.FlowInfo
}

// MailHandler обработчик событий почтового провайдера
type MailHandler interface {
	Handle(ctx context.Context, event models.MailWebhookEvent) (int, error)
}

// UpdateHandler обработчик обновлений Telegram
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update *tgmodels.Update)
}

// Deps зависимости HTTP сервера
type Deps struct {
	Bookings BookingHandler
	Mail     MailHandler
	Updates  UpdateHandler
	Checks   map[string]Pinger
	Version  string
}

// Server представляет HTTP сервер с middleware
type Server struct {
	httpServer     *http.Server
	engine         *gin.Engine
	config         *config.Config
	logger         *logger.Logger
	rateLimiter    *middleware.RateLimiter
	securityLogger *SecurityLogger
	healthChecker  *HealthChecker
	deps           Deps
}

// New создает новый HTTP сервер
func New(cfg *config.Config, deps Deps, log *logger.Logger) *Server {
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	flows := func() int { return 0 }
	if deps.Bookings != nil {
		flows = func() int { return len(deps.Bookings.InFlight()) }
	}

	s := &Server{
		config:         cfg,
		logger:         log,
		rateLimiter:    middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst, log),
		securityLogger: NewSecurityLogger(log),
		healthChecker:  NewHealthChecker(deps.Checks, flows, deps.Version),
		deps:           deps,
	}
	s.engine = s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           ":" + cfg.Server.Port,
		Handler:        s.engine,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	return s
}

// Handler возвращает корневой обработчик
func (s *Server) Handler() http.Handler {
	return s.engine
}

// setupRoutes настраивает маршруты с middleware
func (s *Server) setupRoutes() *gin.Engine {
	r := gin.New()

	// Порядок: recovery снаружи, затем заголовки, логирование, метрики, лимиты
	r.Use(
		s.recoveryMiddleware(),
		s.securityHeadersMiddleware(),
		s.loggingMiddleware(),
		middleware.Prometheus(),
		middleware.RateLimit(s.rateLimiter),
		bodyLimitMiddleware(maxBodyBytes),
	)

	r.GET("/health", s.healthChecker.Handler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/booking", s.calSignatureMiddleware(), s.handleBooking)
	r.POST("/booking/reminder", s.adminAuthMiddleware(), s.handleReminder)
	r.POST("/meet/webhook", s.handleMeetWebhook)
	r.POST("/mail/webhook", s.handleMailWebhook)
	r.POST(s.config.Telegram.WebhookPath, s.telegramSecretMiddleware(), s.handleTelegram)

	return r
}

// Start запускает сервер и блокируется до отмены ctx
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", logger.String("addr", s.httpServer.Addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed to start: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown корректно завершает работу сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	s.securityLogger.LogSystemEvent("server_shutdown")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	s.rateLimiter.Close()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Error during server shutdown", logger.Error(err))
		return err
	}

	s.logger.Info("HTTP server shut down successfully")
	return nil
}
