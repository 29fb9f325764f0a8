package booking

import (
	"context"
	"sync"
	"time"

	"github.com/region23/bookingbot/internal/notification"
	"github.com/region23/bookingbot/internal/storage"
	"github.com/region23/bookingbot/internal/storage/models"
	"github.com/region23/bookingbot/pkg/logger"
)

// Store часть хранилища платформы, нужная сценариям
type Store interface {
	GetBooking(ctx context.Context, uid string) (*models.Booking, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetBookingsInWindow(ctx context.Context, from, to time.Time) ([]*models.Booking, error)
}

// ChatManager управляет чатом встречи
type ChatManager interface {
	CreateChat(ctx context.Context, channelID, organizerID, clientID string) error
	DeleteChat(ctx context.Context, channelID string) error
}

// MeetingManager управляет ссылками на встречу
type MeetingManager interface {
	CreateMeetingURL(ctx context.Context, booking *models.Booking, participantID, participantName string, isUpdate, isUpdateInDB bool, prefix string) (string, error)
	GetMeetingURL(ctx context.Context, uid, prefix string) (string, error)
	DeleteMeetingURL(ctx context.Context, uid, prefix string) error
}

// Notifier рассылает уведомления участникам
type Notifier interface {
	NotifyOrganizer(ctx context.Context, user *models.User, booking *models.Booking, event models.TriggerEvent, meetingURL string) notification.Report
	NotifyClient(ctx context.Context, booking *models.Booking, event models.TriggerEvent, meetingURL string) notification.Report
	NotifyOrganizerTelegram(ctx context.Context, user *models.User, booking *models.Booking, event models.TriggerEvent, meetingURL string) notification.Delivery
}

// Option настраивает оркестратор
type Option func(*Orchestrator)

// WithClock подменяет источник времени
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator выполняет сценарии событий бронирования
type Orchestrator struct {
	store    Store
	chat     ChatManager
	meetings MeetingManager
	notifier Notifier
	keys     storage.KeyStore
	log      *logger.Logger

	now func() time.Time

	baseCtx context.Context
	cancel  context.CancelFunc
	flows   *tracker
	locks   *keyedMutex

	remindedMu sync.Mutex
	reminded   map[string]struct{}
}

// New создает оркестратор
func New(store Store, chat ChatManager, meetings MeetingManager, notifier Notifier, keys storage.KeyStore, log *logger.Logger, opts ...Option) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		store:    store,
		chat:     chat,
		meetings: meetings,
		notifier: notifier,
		keys:     keys,
		log:      log,
		now:      time.Now,
		baseCtx:  ctx,
		cancel:   cancel,
		flows:    newTracker(log),
		locks:    newKeyedMutex(),
		reminded: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// HandleBooking передает событие в фоновый сценарий и сразу возвращает управление
func (o *Orchestrator) HandleBooking(event models.BookingEvent) FlowInfo {
	uid := event.Payload.UID
	return o.flows.Go(event.TriggerEvent, uid, func(info FlowInfo) error {
		unlock := o.locks.Lock(uid)
		defer unlock()

		// Сценарий ограничен только таймаутами внешних вызовов и Shutdown
		ctx := o.baseCtx

		log := o.log.WithFields(
			logger.String("flow_id", info.ID),
			logger.String("uid", uid),
			logger.String("trigger", string(event.TriggerEvent)),
		)
		log.Info("Processing booking event")
		return o.runFlow(ctx, log, event.TriggerEvent, uid)
	})
}

// InFlight возвращает выполняющиеся сценарии
func (o *Orchestrator) InFlight() []FlowInfo {
	return o.flows.InFlight()
}

// Shutdown ждет завершения сценариев; по истечении ctx отменяет оставшиеся
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.flows.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.cancel()
		return nil
	case <-ctx.Done():
		o.log.Warn("Cancelling unfinished booking flows", logger.Int("count", len(o.flows.InFlight())))
		o.cancel()
		<-done
		return ctx.Err()
	}
}
