package scheduler

import "context"

// ReminderSweeper рассылает напоминания о бронированиях в окне [from, to] часов
type ReminderSweeper interface {
	HandleBookingReminder(ctx context.Context, fromHours, toHours int) (int, error)
}

// KeyPurger удаляет истекшие ключи дедупликации
type KeyPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}
