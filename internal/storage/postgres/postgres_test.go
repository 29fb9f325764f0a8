package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/region23/bookingbot/internal/storage/models"
	"github.com/region23/bookingbot/internal/testutils"
	apperrors "github.com/region23/bookingbot/pkg/errors"
)

var bookingColumns = []string{
	"id", "uid", "startTime", "endTime", "status",
	"fromReschedule", "reassignById",
	"cancellationReason", "location", "metadata",
	"user_id", "user_name", "email", "locked", "timeZone",
	"telegram_chat_id", "telegram_token",
	"attendee_name", "attendee_email", "attendee_timeZone",
}

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	testutils.AssertNoError(t, err, "create pgx mock")
	t.Cleanup(mock.Close)
	return &Store{pool: mock}, mock
}

func ptr[T any](v T) *T { return &v }

func bookingRow(uid string, start time.Time, reassignBy *int32, chatID *int64) []any {
	return []any{
		int64(10), uid, start, start.Add(30 * time.Minute), "accepted",
		"", reassignBy,
		"", "integrations:daily", map[string]any{"videoCallUrl": "https://meet.example.com/old"},
		int64(3), "Анна", "anna@example.com", false, "Europe/Moscow",
		chatID, "token",
		"Клиент", "client@example.com", "Asia/Yekaterinburg",
	}
}

func TestStore_GetBooking(t *testing.T) {
	start := time.Date(2024, 6, 1, 13, 0, 0, 0, time.FixedZone("MSK", 3*3600))

	tests := []struct {
		name         string
		row          []any
		wantNil      bool
		wantReassign *int64
		wantChat     *int64
	}{
		{
			name:    "not found",
			wantNil: true,
		},
		{
			name: "without reassign and telegram",
			row:  bookingRow("uid-1", start, nil, nil),
		},
		{
			name:         "reassigned organizer with telegram",
			row:          bookingRow("uid-1", start, ptr(int32(7)), ptr(int64(555))),
			wantReassign: ptr(int64(7)),
			wantChat:     ptr(int64(555)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)

			rows := pgxmock.NewRows(bookingColumns)
			if tt.row != nil {
				rows.AddRow(tt.row...)
			}
			mock.ExpectQuery(regexp.QuoteMeta(`FROM public."Booking" b`) + `.*` + regexp.QuoteMeta(`WHERE b.uid = $1`)).
				WithArgs("uid-1").
				WillReturnRows(rows)

			booking, err := store.GetBooking(context.Background(), "uid-1")
			testutils.AssertNoError(t, err, "GetBooking")
			testutils.AssertNoError(t, mock.ExpectationsWereMet(), "expectations")

			if tt.wantNil {
				testutils.AssertTrue(t, booking == nil, "missing booking should be nil")
				return
			}

			testutils.AssertEqual(t, "uid-1", booking.UID, "uid")
			testutils.AssertEqual(t, time.UTC, booking.StartTime.Location(), "start time should be normalized to UTC")
			testutils.AssertTrue(t, booking.StartTime.Equal(start), "start time")
			testutils.AssertEqual(t, "https://meet.example.com/old", booking.VideoCallURL(), "metadata")
			testutils.AssertEqual(t, "anna@example.com", booking.Organizer.Email, "organizer email")
			testutils.AssertEqual(t, "client@example.com", booking.Client.Email, "client email")

			if tt.wantReassign == nil {
				testutils.AssertTrue(t, booking.ReassignByID == nil, "reassignById should be nil")
			} else {
				testutils.AssertTrue(t, booking.ReassignByID != nil, "reassignById should be set")
				testutils.AssertEqual(t, *tt.wantReassign, *booking.ReassignByID, "reassignById")
			}
			if tt.wantChat == nil {
				testutils.AssertFalse(t, booking.Organizer.HasTelegram(), "organizer without telegram")
			} else {
				testutils.AssertEqual(t, *tt.wantChat, *booking.Organizer.TelegramChatID, "telegram chat id")
			}
		})
	}
}

func TestStore_GetBookingQueryError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE b.uid = $1`)).
		WithArgs("uid-1").
		WillReturnError(errors.New("connection refused"))

	_, err := store.GetBooking(context.Background(), "uid-1")
	testutils.AssertError(t, err, "query error should propagate")
	testutils.AssertContains(t, err.Error(), "connection refused", "wrapped error")
}

func TestStore_GetBookingsInWindow(t *testing.T) {
	store, mock := newMockStore(t)
	from := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	to := from.Add(15 * time.Minute)

	rows := pgxmock.NewRows(bookingColumns).
		AddRow(bookingRow("uid-1", from.Add(5*time.Minute), nil, nil)...).
		AddRow(bookingRow("uid-2", from.Add(10*time.Minute), nil, ptr(int64(1)))...)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE b.status = $1 AND b."startTime" >= $2 AND b."startTime" <= $3`)).
		WithArgs(models.StatusAccepted, from, to).
		WillReturnRows(rows)

	bookings, err := store.GetBookingsInWindow(context.Background(), from, to)
	testutils.AssertNoError(t, err, "GetBookingsInWindow")
	testutils.AssertNoError(t, mock.ExpectationsWereMet(), "expectations")
	testutils.AssertEqual(t, 2, len(bookings), "bookings count")
	testutils.AssertEqual(t, "uid-1", bookings[0].UID, "first booking")
	testutils.AssertEqual(t, "uid-2", bookings[1].UID, "second booking")
}

func TestStore_GetBookingsInWindowRowError(t *testing.T) {
	store, mock := newMockStore(t)
	from := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	to := from.Add(15 * time.Minute)

	rows := pgxmock.NewRows(bookingColumns).
		AddRow(bookingRow("uid-1", from, nil, nil)...).
		RowError(0, errors.New("broken row"))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE b.status = $1`)).
		WithArgs(models.StatusAccepted, from, to).
		WillReturnRows(rows)

	_, err := store.GetBookingsInWindow(context.Background(), from, to)
	testutils.AssertError(t, err, "row error should fail the query")
	testutils.AssertContains(t, err.Error(), "broken row", "row error")
}

func TestStore_UpdateBookingVideoURL(t *testing.T) {
	tests := []struct {
		name    string
		execErr error
		wantErr bool
	}{
		{name: "merges url into metadata"},
		{name: "database error", execErr: errors.New("deadlock detected"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)

			exec := mock.ExpectExec(regexp.QuoteMeta(
				`SET metadata = COALESCE(metadata, '{}'::jsonb) || jsonb_build_object('videoCallUrl', $1::text) WHERE uid = $2`)).
				WithArgs("https://meet.example.com/new", "uid-1")
			if tt.execErr != nil {
				exec.WillReturnError(tt.execErr)
			} else {
				exec.WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			}

			err := store.UpdateBookingVideoURL(context.Background(), "uid-1", "https://meet.example.com/new")
			testutils.AssertNoError(t, mock.ExpectationsWereMet(), "expectations")
			if tt.wantErr {
				testutils.AssertError(t, err, "UpdateBookingVideoURL")
				return
			}
			testutils.AssertNoError(t, err, "UpdateBookingVideoURL")
		})
	}
}

func TestStore_SetTelegramChatIDUnknownUser(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET telegram_chat_id = $1 WHERE id = $2`)).
		WithArgs(int64(555), int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.SetTelegramChatID(context.Background(), 3, 555)
	testutils.AssertTrue(t, apperrors.Is(err, apperrors.ErrUserNotFound), "unknown user error")
}

func TestStore_GetOrganizerChatID(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE locked = FALSE AND email = $1`)).
		WithArgs("anna@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"telegram_chat_id"}).AddRow(int64(555)))
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE locked = FALSE AND email = $1`)).
		WithArgs("nobody@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"telegram_chat_id"}))

	chatID, err := store.GetOrganizerChatID(context.Background(), "anna@example.com")
	testutils.AssertNoError(t, err, "GetOrganizerChatID")
	testutils.AssertEqual(t, int64(555), *chatID, "chat id")

	chatID, err = store.GetOrganizerChatID(context.Background(), "nobody@example.com")
	testutils.AssertNoError(t, err, "GetOrganizerChatID for unknown email")
	testutils.AssertTrue(t, chatID == nil, "unknown organizer should have no chat id")
	testutils.AssertNoError(t, mock.ExpectationsWereMet(), "expectations")
}
