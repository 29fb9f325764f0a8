package bot

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/go-telegram/bot/models"

	"github.com/region23/bookingbot/internal/bot/service"
	storagemodels "github.com/region23/bookingbot/internal/storage/models"
	"github.com/region23/bookingbot/internal/testutils"
)

type fakeUsers struct {
	users  map[int64]*storagemodels.User
	linked map[int64]int64
}

func (f *fakeUsers) GetUserByID(ctx context.Context, id int64) (*storagemodels.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (f *fakeUsers) SetTelegramChatID(ctx context.Context, userID, chatID int64) error {
	f.linked[userID] = chatID
	return nil
}

type fakeReplier struct {
	replies map[int64][]string
}

func (f *fakeReplier) SendMessage(ctx context.Context, chatID int64, text string) error {
	f.replies[chatID] = append(f.replies[chatID], text)
	return nil
}

func newTestDispatcher() (*Dispatcher, *fakeUsers, *fakeReplier) {
	chat := int64(900)
	users := &fakeUsers{
		users: map[int64]*storagemodels.User{
			1: {ID: 1, Name: "Анна <admin>", TelegramToken: "tok"},
			2: {ID: 2, Name: "Олег", TelegramToken: "tok2", TelegramChatID: &chat},
			3: {ID: 3, Name: "Блок", TelegramToken: "tok3", Locked: true},
		},
		linked: map[int64]int64{},
	}
	replier := &fakeReplier{replies: map[int64][]string{}}
	log := testutils.SetupTestLogger()
	return NewDispatcher(service.NewService(users, replier, log), log), users, replier
}

func message(chatID, userID int64, text string) *models.Update {
	return &models.Update{
		ID: 1,
		Message: &models.Message{
			Chat: models.Chat{ID: chatID},
			From: &models.User{ID: userID},
			Text: text,
		},
	}
}

func TestDispatcher_ID(t *testing.T) {
	d, _, replier := newTestDispatcher()

	d.HandleUpdate(context.Background(), message(-100, 42, "/id"))

	testutils.AssertEqual(t, []string{"Your ID: 42\nYour chat ID: -100"}, replier.replies[-100], "id reply")
}

func TestDispatcher_Start(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		reply   string
		linked  bool
	}{
		{"registers user", service.EncodeStartPayload(1, "tok"), "Добро пожаловать, <b>Анна &lt;admin&gt;</b>", true},
		{"padded payload", base64.URLEncoding.EncodeToString([]byte("1@tok")), "Добро пожаловать, <b>Анна &lt;admin&gt;</b>", true},
		{"already linked", service.EncodeStartPayload(2, "tok2"), service.MsgAlreadyRegistered, false},
		{"wrong token", service.EncodeStartPayload(1, "nope"), service.MsgRegistrationError, false},
		{"locked user", service.EncodeStartPayload(3, "tok3"), service.MsgRegistrationError, false},
		{"unknown user", service.EncodeStartPayload(99, "tok"), service.MsgRegistrationError, false},
		{"garbage payload", "!!!", service.MsgRegistrationError, false},
		{"no separator", base64.RawURLEncoding.EncodeToString([]byte("1tok")), service.MsgRegistrationError, false},
		{"no payload", "", service.MsgRegistrationError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, users, replier := newTestDispatcher()

			d.HandleUpdate(context.Background(), message(555, 1, "/start "+tt.payload))

			testutils.AssertEqual(t, []string{tt.reply}, replier.replies[555], "reply")
			_, linked := users.linked[1]
			testutils.AssertEqual(t, tt.linked, linked, "chat linked")
			if tt.linked {
				testutils.AssertEqual(t, int64(555), users.linked[1], "linked chat id")
			}
		})
	}
}

func TestDispatcher_Ping(t *testing.T) {
	d, _, replier := newTestDispatcher()

	d.HandleUpdate(context.Background(), message(7, 7, "ping"))
	d.HandleUpdate(context.Background(), message(7, 7, "hello"))
	d.HandleUpdate(context.Background(), &models.Update{ID: 2})

	testutils.AssertEqual(t, []string{"pong"}, replier.replies[7], "only ping answered")
}
