package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики сервиса уведомлений о бронированиях
var (
	// Метрики сценариев
	FlowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_notifier_flows_total",
			Help: "Количество обработанных событий бронирования",
		},
		[]string{"trigger", "result"},
	)

	FlowDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booking_notifier_flow_duration_seconds",
			Help:    "Время выполнения сценария в секундах",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"trigger"},
	)

	FlowsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "booking_notifier_flows_in_flight",
			Help: "Количество выполняющихся сценариев",
		},
	)

	// Метрики уведомлений
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_notifier_notifications_total",
			Help: "Количество уведомлений по каналам",
		},
		[]string{"channel", "role", "status"},
	)

	RemindersSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_notifier_reminders_sent_total",
			Help: "Количество отправленных напоминаний",
		},
	)

	// Метрики ссылок на встречи
	MeetingLinks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_notifier_meeting_links_total",
			Help: "Операции со ссылками на встречи",
		},
		[]string{"operation", "result"},
	)

	// Метрики вебхуков
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_notifier_webhook_events_total",
			Help: "Количество входящих событий вебхуков",
		},
		[]string{"source", "event", "result"},
	)

	// Метрики внешних вызовов
	ExternalCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_notifier_external_calls_total",
			Help: "Вызовы внешних сервисов",
		},
		[]string{"service", "status"},
	)

	// Метрики ошибок
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_notifier_errors_total",
			Help: "Общее количество ошибок",
		},
		[]string{"component", "error_type"},
	)

	// Метрики HTTP сервера
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_notifier_http_requests_total",
			Help: "Общее количество HTTP запросов",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "booking_notifier_http_request_duration_seconds",
			Help:    "Время обработки HTTP запросов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_notifier_rate_limit_hits_total",
			Help: "Количество запросов, отклоненных ограничителем",
		},
		[]string{"endpoint"},
	)
)

// RecordFlow записывает результат сценария
func RecordFlow(trigger, result string, duration time.Duration) {
	FlowsTotal.WithLabelValues(trigger, result).Inc()
	FlowDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

// RecordNotification записывает метрику отправки уведомления
func RecordNotification(channel, role, status string) {
	NotificationsSent.WithLabelValues(channel, role, status).Inc()
}

// RecordReminder записывает метрику отправленного напоминания
func RecordReminder() {
	RemindersSent.Inc()
}

// RecordMeetingLink записывает операцию со ссылкой на встречу
func RecordMeetingLink(operation, result string) {
	MeetingLinks.WithLabelValues(operation, result).Inc()
}

// RecordWebhookEvent записывает входящее событие вебхука
func RecordWebhookEvent(source, event, result string) {
	WebhookEvents.WithLabelValues(source, event, result).Inc()
}

// RecordExternalCall записывает вызов внешнего сервиса
func RecordExternalCall(service, status string) {
	ExternalCalls.WithLabelValues(service, status).Inc()
}

// RecordError записывает метрику ошибки
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordHTTPRequest записывает метрику HTTP запроса
func RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRateLimitHit записывает отклоненный запрос
func RecordRateLimitHit(endpoint string) {
	RateLimitHits.WithLabelValues(endpoint).Inc()
}
