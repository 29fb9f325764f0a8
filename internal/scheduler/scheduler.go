package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/region23/bookingbot/pkg/logger"
	"github.com/region23/bookingbot/pkg/metrics"
)

const defaultJobTimeout = 5 * time.Minute

// ErrStopped возвращается при работе с остановленным планировщиком
var ErrStopped = errors.New("scheduler is stopped")

// Job периодическая задача
type Job func(ctx context.Context) error

// Scheduler запускает периодические задачи по cron-расписанию
type Scheduler struct {
	mu       sync.Mutex
	cron     *cron.Cron
	parser   cron.Parser
	logger   *logger.Logger
	timeout  time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	stopped  bool
	stopOnce sync.Once
}

// New создает планировщик в указанной временной зоне
func New(location string, log *logger.Logger) (*Scheduler, error) {
	loc := time.UTC
	if location != "" {
		l, err := time.LoadLocation(location)
		if err != nil {
			return nil, fmt.Errorf("invalid scheduler location %q: %w", location, err)
		}
		loc = l
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:    cron.New(cron.WithParser(parser), cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		parser:  parser,
		logger:  log,
		timeout: defaultJobTimeout,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Add регистрирует задачу; expr в формате cron из пяти полей или дескриптор (@every 10m)
func (s *Scheduler) Add(name, expr string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}

	schedule, err := s.parser.Parse(expr)
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", expr, name, err)
	}

	s.cron.Schedule(schedule, cron.FuncJob(func() { s.run(name, job) }))
	s.logger.Info("Job scheduled", logger.String("job", name), logger.String("schedule", expr))
	return nil
}

// run выполняет задачу с таймаутом и перехватом паники
func (s *Scheduler) run(name string, job Job) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return job(ctx)
	}()

	if err != nil {
		metrics.RecordError("scheduler", name)
		s.logger.Error("Scheduled job failed",
			logger.String("job", name),
			logger.Duration("duration", time.Since(start)),
			logger.Error(err),
		)
		return
	}
	s.logger.Debug("Scheduled job completed",
		logger.String("job", name),
		logger.Duration("duration", time.Since(start)),
	)
}

// Start запускает планировщик
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if !s.started {
		s.cron.Start()
		s.started = true
	}
	return nil
}

// Stop останавливает планировщик и ждет завершения выполняющихся задач
func (s *Scheduler) Stop(ctx context.Context) error {
	var done context.Context
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()

		done = s.cron.Stop()
	})
	if done == nil {
		return nil
	}

	select {
	case <-done.Done():
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

// ReminderJob задача рассылки напоминаний
func ReminderJob(sweeper ReminderSweeper, fromHours, toHours int, log *logger.Logger) Job {
	return func(ctx context.Context) error {
		sent, err := sweeper.HandleBookingReminder(ctx, fromHours, toHours)
		if err != nil {
			return err
		}
		if sent > 0 {
			log.Info("Reminders sent", logger.Int("count", sent))
		}
		return nil
	}
}

// PurgeJob задача очистки истекших ключей
func PurgeJob(purger KeyPurger, log *logger.Logger) Job {
	return func(ctx context.Context) error {
		n, err := purger.PurgeExpired(ctx)
		if err != nil {
			return err
		}
		log.Debug("Expired keys purged", logger.Int64("count", n))
		return nil
	}
}
