package booking

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/region23/bookingbot/internal/storage/models"
	apperrors "github.com/region23/bookingbot/pkg/errors"
	"github.com/region23/bookingbot/pkg/logger"
	"github.com/region23/bookingbot/pkg/metrics"
)

// FlowInfo описание выполняющегося сценария
type FlowInfo struct {
	ID        string
	Trigger   models.TriggerEvent
	UID       string
	StartedAt time.Time
}

// tracker отслеживает фоновые сценарии и перехватывает паники
type tracker struct {
	wg  sync.WaitGroup
	log *logger.Logger

	mu       sync.Mutex
	inflight map[string]FlowInfo
}

func newTracker(log *logger.Logger) *tracker {
	return &tracker{log: log, inflight: make(map[string]FlowInfo)}
}

// Go запускает fn в отслеживаемой горутине
func (t *tracker) Go(trigger models.TriggerEvent, uid string, fn func(info FlowInfo) error) FlowInfo {
	info := FlowInfo{
		ID:        uuid.NewString(),
		Trigger:   trigger,
		UID:       uid,
		StartedAt: time.Now(),
	}

	t.mu.Lock()
	t.inflight[info.ID] = info
	t.mu.Unlock()
	t.wg.Add(1)
	metrics.FlowsInFlight.Inc()

	go func() {
		defer func() {
			t.mu.Lock()
			delete(t.inflight, info.ID)
			t.mu.Unlock()
			metrics.FlowsInFlight.Dec()
			t.wg.Done()
		}()

		err := t.run(info, fn)
		result := "ok"
		switch {
		case err == nil:
		case apperrors.Is(err, apperrors.ErrBookingNotFound):
			// Событие для удаленного бронирования ожидаемо, сценарий просто пропускается
			result = "skipped"
			t.log.Warn("Booking not found, flow skipped",
				logger.String("flow_id", info.ID),
				logger.String("trigger", string(trigger)),
				logger.String("uid", uid),
			)
		default:
			result = "error"
			t.log.Error("Booking flow failed",
				logger.String("flow_id", info.ID),
				logger.String("trigger", string(trigger)),
				logger.String("uid", uid),
				logger.Error(err),
			)
		}
		metrics.RecordFlow(string(trigger), result, time.Since(info.StartedAt))
	}()

	return info
}

func (t *tracker) run(info FlowInfo, fn func(info FlowInfo) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordError("booking", "panic")
			err = fmt.Errorf("flow panicked: %v", r)
		}
	}()
	return fn(info)
}

// Wait ждет завершения всех сценариев
func (t *tracker) Wait() {
	t.wg.Wait()
}

// InFlight возвращает снимок выполняющихся сценариев
func (t *tracker) InFlight() []FlowInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]FlowInfo, 0, len(t.inflight))
	for _, info := range t.inflight {
		out = append(out, info)
	}
	return out
}
