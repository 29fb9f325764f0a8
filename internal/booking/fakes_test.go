package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/region23/bookingbot/internal/notification"
	"github.com/region23/bookingbot/internal/storage/models"
)

// recorder собирает шаги сценария в порядке выполнения
type recorder struct {
	mu    sync.Mutex
	steps []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, fmt.Sprintf(format, args...))
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.steps...)
}

type fakeStore struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
	users    map[int64]*models.User
	window   []*models.Booking
	err      error

	// hadDeadline фиксирует, был ли у контекста сценария дедлайн
	hadDeadline bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{bookings: map[string]*models.Booking{}, users: map[int64]*models.User{}}
}

func (f *fakeStore) GetBooking(ctx context.Context, uid string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := ctx.Deadline(); ok {
		f.hadDeadline = true
	}
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.bookings[uid]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (f *fakeStore) GetBookingsInWindow(ctx context.Context, from, to time.Time) ([]*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Booking
	for _, b := range f.window {
		if !b.StartTime.Before(from) && !b.StartTime.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeChat struct {
	rec       *recorder
	createErr error
	block     chan struct{}
	entered   chan struct{}
}

func (f *fakeChat) CreateChat(ctx context.Context, channelID, organizerID, clientID string) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.rec.add("chat.create %s %s %s", channelID, organizerID, clientID)
	return f.createErr
}

func (f *fakeChat) DeleteChat(ctx context.Context, channelID string) error {
	f.rec.add("chat.delete %s", channelID)
	return nil
}

type fakeMeetings struct {
	rec      *recorder
	links    map[string]string
	getErr   error
	lastBook *models.Booking
}

func (f *fakeMeetings) CreateMeetingURL(ctx context.Context, b *models.Booking, participantID, participantName string, isUpdate, isUpdateInDB bool, prefix string) (string, error) {
	f.rec.add("meeting.create %s%s id=%s update=%t db=%t from=%s", prefix, b.UID, participantID, isUpdate, isUpdateInDB, b.FromReschedule)
	f.lastBook = b
	return "https://s.test/" + prefix + b.UID, nil
}

func (f *fakeMeetings) GetMeetingURL(ctx context.Context, uid, prefix string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.links[prefix+uid], nil
}

func (f *fakeMeetings) DeleteMeetingURL(ctx context.Context, uid, prefix string) error {
	f.rec.add("meeting.delete %s%s", prefix, uid)
	return nil
}

type notice struct {
	recipient string
	event     models.TriggerEvent
	url       string
	previous  string
}

type fakeNotifier struct {
	rec     *recorder
	mu      sync.Mutex
	notices []notice
	tgFail  bool
	panicOn models.TriggerEvent
}

func (f *fakeNotifier) push(n notice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, n)
}

func (f *fakeNotifier) all() []notice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notice(nil), f.notices...)
}

func previousUID(b *models.Booking) string {
	if b.PreviousBooking == nil {
		return ""
	}
	return b.PreviousBooking.UID
}

func (f *fakeNotifier) NotifyOrganizer(ctx context.Context, user *models.User, b *models.Booking, event models.TriggerEvent, url string) notification.Report {
	if f.panicOn != "" && event == f.panicOn {
		panic("template exploded")
	}
	f.rec.add("notify.organizer %s %s", user.Email, event)
	f.push(notice{recipient: user.Email, event: event, url: url, previous: previousUID(b)})
	return notification.Report{{Channel: notification.ChannelEmail, Status: notification.StatusSent}}
}

func (f *fakeNotifier) NotifyClient(ctx context.Context, b *models.Booking, event models.TriggerEvent, url string) notification.Report {
	f.rec.add("notify.client %s %s", b.Client.Email, event)
	f.push(notice{recipient: b.Client.Email, event: event, url: url, previous: previousUID(b)})
	return notification.Report{{Channel: notification.ChannelEmail, Status: notification.StatusSent}}
}

func (f *fakeNotifier) NotifyOrganizerTelegram(ctx context.Context, user *models.User, b *models.Booking, event models.TriggerEvent, url string) notification.Delivery {
	f.rec.add("notify.telegram %s %s", user.Email, event)
	if f.tgFail {
		return notification.Delivery{Channel: notification.ChannelTelegram, Status: notification.StatusFailed, Err: errors.New("telegram down")}
	}
	f.push(notice{recipient: user.Email, event: event, url: url})
	return notification.Delivery{Channel: notification.ChannelTelegram, Status: notification.StatusSent}
}

// testClock управляемые часы
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
