package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/region23/bookingbot/internal/testutils"
	apperrors "github.com/region23/bookingbot/pkg/errors"
)

type fakeAPI struct {
	mu       sync.Mutex
	calls    []*tgbot.SendMessageParams
	failures []error
}

func (f *fakeAPI) SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*tgmodels.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, params)
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return nil, err
	}
	return &tgmodels.Message{ID: len(f.calls)}, nil
}

func newTestSender(api MessageAPI) *Sender {
	s := NewSender(api, 100, testutils.SetupTestLogger())
	s.chatInterval = 0
	return s
}

func TestSender_SendMessage(t *testing.T) {
	api := &fakeAPI{}
	s := newTestSender(api)

	err := s.SendMessage(context.Background(), 42, "<b>hi</b>")

	testutils.AssertNoError(t, err, "send should succeed")
	testutils.AssertEqual(t, 1, len(api.calls), "one call")
	p := api.calls[0]
	testutils.AssertEqual(t, int64(42), p.ChatID, "chat id")
	testutils.AssertEqual(t, tgmodels.ParseModeHTML, p.ParseMode, "html parse mode")
	testutils.AssertTrue(t, p.LinkPreviewOptions != nil && *p.LinkPreviewOptions.IsDisabled, "link preview disabled")
}

func TestSender_RetriesFloodControl(t *testing.T) {
	api := &fakeAPI{failures: []error{&tgbot.TooManyRequestsError{Message: "flood", RetryAfter: 0}}}
	s := newTestSender(api)

	err := s.SendMessage(context.Background(), 1, "text")

	testutils.AssertNoError(t, err, "second attempt should succeed")
	testutils.AssertEqual(t, 2, len(api.calls), "retried once")
}

func TestSender_WrapsAPIError(t *testing.T) {
	api := &fakeAPI{failures: []error{errors.New("forbidden: bot was blocked by the user")}}
	s := newTestSender(api)

	err := s.SendMessage(context.Background(), 1, "text")

	testutils.AssertError(t, err, "error expected")
	testutils.AssertTrue(t, apperrors.Is(err, apperrors.ErrTelegramAPI), "telegram error code")
	testutils.AssertContains(t, err.Error(), "blocked", "cause kept")
	testutils.AssertEqual(t, 1, len(api.calls), "no retry for plain errors")
}

func TestSender_ContextCancelled(t *testing.T) {
	api := &fakeAPI{}
	s := NewSender(api, 100, testutils.SetupTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	testutils.AssertNoError(t, s.SendMessage(ctx, 7, "first"), "first send")
	cancel()

	err := s.SendMessage(ctx, 7, "second")
	testutils.AssertError(t, err, "cancelled context should stop waiting")
	testutils.AssertEqual(t, 1, len(api.calls), "second message not sent")
}

func TestSender_ChatLimiterCleanup(t *testing.T) {
	s := newTestSender(&fakeAPI{})
	s.chatLimiter(1)
	s.lastAccess[1] = time.Now().Add(-2 * chatIdleTTL)

	s.chatLimiter(2)

	_, ok := s.chats[1]
	testutils.AssertFalse(t, ok, "idle chat limiter removed")
	testutils.AssertEqual(t, 1, len(s.chats), "only active chat left")
}
