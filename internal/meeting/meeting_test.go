package meeting

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/region23/bookingbot/internal/storage/models"
	"github.com/region23/bookingbot/internal/testutils"
	"github.com/region23/bookingbot/pkg/metrics"
)

// fakeShortener хранит ссылки по внешнему идентификатору
type fakeShortener struct {
	mu      sync.Mutex
	links   map[string]string
	err     error
	noIdent bool
	updates [][2]string
	deletes []string
}

func newFakeShortener() *fakeShortener {
	return &fakeShortener{links: map[string]string{}}
}

func (f *fakeShortener) Create(ctx context.Context, longURL string, expiresAt time.Time, externalID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.noIdent {
		return "", nil
	}
	f.links[externalID] = longURL
	return "https://s.test/" + externalID, nil
}

func (f *fakeShortener) Get(ctx context.Context, externalID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.links[externalID]; !ok {
		return "", nil
	}
	return "https://s.test/" + externalID, nil
}

func (f *fakeShortener) Update(ctx context.Context, longURL string, expiresAt time.Time, oldID, newID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.updates = append(f.updates, [2]string{oldID, newID})
	delete(f.links, oldID)
	f.links[newID] = longURL
	return "https://s.test/" + newID, nil
}

func (f *fakeShortener) Delete(ctx context.Context, externalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, externalID)
	delete(f.links, externalID)
	return nil
}

type fakeStore struct {
	mu      sync.Mutex
	reads   int
	updates map[string]string
}

func (s *fakeStore) GetBooking(ctx context.Context, uid string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	return &models.Booking{UID: uid, Metadata: map[string]any{}}, nil
}

func (s *fakeStore) UpdateBookingVideoURL(ctx context.Context, uid, u string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updates == nil {
		s.updates = map[string]string{}
	}
	s.updates[uid] = u
	return nil
}

type fakeChat struct{}

func (fakeChat) CreateToken(userID, name string, expiresAt time.Time) (string, error) {
	return "chat-token-" + name, nil
}

var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func testBooking() *models.Booking {
	return &models.Booking{
		UID:       "uid-new",
		StartTime: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC),
	}
}

func newTestManager(sh *fakeShortener, store *fakeStore) *Manager {
	return NewManager("https://meet.test/", NewSigner("jitsi-secret", "jitsi", "booking"), sh, fakeChat{}, store,
		testutils.SetupTestLogger(), WithSyncDelay(0), WithClock(func() time.Time { return testNow }))
}

func videoToken(t *testing.T, meetingURL string) *RoomClaims {
	t.Helper()
	u, err := url.Parse(meetingURL)
	testutils.AssertNoError(t, err, "parse meeting url")

	claims := &RoomClaims{}
	_, err = jwt.ParseWithClaims(u.Query().Get("jwt_video"), claims, func(*jwt.Token) (interface{}, error) {
		return []byte("jitsi-secret"), nil
	}, jwt.WithTimeFunc(func() time.Time { return time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC) }))
	testutils.AssertNoError(t, err, "video token should verify")
	return claims
}

func TestSigner_Claims(t *testing.T) {
	booking := testBooking()
	token, exp, err := NewSigner("jitsi-secret", "jitsi", "booking").Sign(booking, "Анна", models.RoleClient, testNow)
	testutils.AssertNoError(t, err, "Sign")
	testutils.AssertEqual(t, booking.EndTime.Add(5*time.Minute), exp, "expiry is end + lead window")

	claims, err := ReadUnverified(token)
	testutils.AssertNoError(t, err, "ReadUnverified")
	testutils.AssertEqual(t, "uid-new", claims.Room, "room")
	testutils.AssertEqual(t, "*", claims.Subject, "subject")
	testutils.AssertEqual(t, "booking", claims.Issuer, "issuer")
	testutils.AssertEqual(t, jwt.ClaimStrings{"jitsi"}, claims.Audience, "audience")
	testutils.AssertEqual(t, "client", claims.Context.User.Role, "role")
	testutils.AssertEqual(t, "Анна", claims.Context.User.Name, "name")
	testutils.AssertTrue(t, booking.StartTime.Add(-5*time.Minute).Equal(claims.NotBefore.Time), "not before is start - lead window")
	testutils.AssertTrue(t, testNow.Equal(claims.IssuedAt.Time), "issued at is now")
	testutils.AssertTrue(t, exp.Equal(claims.ExpiresAt.Time), "exp claim matches expiry")
}

func TestManager_CreateRegistersExternalID(t *testing.T) {
	sh := newFakeShortener()
	m := newTestManager(sh, &fakeStore{})

	got, err := m.CreateMeetingURL(context.Background(), testBooking(), "org@example.com", "Ольга", false, false, "")
	testutils.AssertNoError(t, err, "CreateMeetingURL")
	testutils.AssertEqual(t, "https://s.test/uid-new", got, "short url")

	long := sh.links["uid-new"]
	testutils.AssertTrue(t, strings.HasPrefix(long, "https://meet.test/uid-new?jwt_video="), "long url shape")
	testutils.AssertContains(t, long, "&jwt_chat=chat-token-", "chat token is embedded")
	testutils.AssertEqual(t, "organizer", videoToken(t, long).Context.User.Role, "organizer role without prefix")
}

func TestManager_UpdateRepointsPreviousExternalID(t *testing.T) {
	sh := newFakeShortener()
	sh.links["client_uid-old"] = "https://meet.test/uid-old?jwt_video=old"
	m := newTestManager(sh, &fakeStore{})

	booking := testBooking()
	booking.FromReschedule = "uid-old"

	got, err := m.CreateMeetingURL(context.Background(), booking, "client@example.com", "Анна", true, false, models.ClientPrefix)
	testutils.AssertNoError(t, err, "CreateMeetingURL")

	testutils.AssertEqual(t, [][2]string{{"client_uid-old", "client_uid-new"}}, sh.updates, "repoint ids")
	testutils.AssertEqual(t, "https://s.test/client_uid-new", got, "new short url")

	old, _ := sh.Get(context.Background(), "client_uid-old")
	testutils.AssertEqual(t, "", old, "old external id no longer resolves")

	claims := videoToken(t, sh.links["client_uid-new"])
	testutils.AssertEqual(t, "uid-new", claims.Room, "new id resolves to a token for the new room")
	testutils.AssertEqual(t, "client", claims.Context.User.Role, "client role")
}

func TestManager_UpdateWithoutPredecessorUsesCurrentUID(t *testing.T) {
	sh := newFakeShortener()
	m := newTestManager(sh, &fakeStore{})

	_, err := m.CreateMeetingURL(context.Background(), testBooking(), "org@example.com", "Ольга", true, false, "")
	testutils.AssertNoError(t, err, "CreateMeetingURL")
	testutils.AssertEqual(t, [][2]string{{"uid-new", "uid-new"}}, sh.updates, "same id is repointed")
}

func TestManager_FallsBackToLongURL(t *testing.T) {
	tests := []struct {
		name string
		sh   *fakeShortener
	}{
		{name: "shortener error", sh: &fakeShortener{links: map[string]string{}, err: errors.New("connection refused")}},
		{name: "no ident", sh: &fakeShortener{links: map[string]string{}, noIdent: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(tt.sh, &fakeStore{})

			got, err := m.CreateMeetingURL(context.Background(), testBooking(), "org@example.com", "Ольга", false, false, "")
			testutils.AssertNoError(t, err, "shortener problems must not fail link creation")
			testutils.AssertTrue(t, strings.HasPrefix(got, "https://meet.test/uid-new?jwt_video="), "long url returned")
			testutils.AssertEqual(t, "uid-new", videoToken(t, got).Room, "long url carries a valid token")
		})
	}
}

func TestManager_UpdateInDBPersistsURL(t *testing.T) {
	sh := newFakeShortener()
	store := &fakeStore{}
	m := newTestManager(sh, store)

	got, err := m.CreateMeetingURL(context.Background(), testBooking(), "org@example.com", "Ольга", false, true, "")
	testutils.AssertNoError(t, err, "CreateMeetingURL")
	testutils.AssertEqual(t, 1, store.reads, "metadata is re-read once")
	testutils.AssertEqual(t, got, store.updates["uid-new"], "url persisted to metadata")
}

func TestManager_SyncWaitHonoursContext(t *testing.T) {
	m := NewManager("https://meet.test", NewSigner("s", "a", "i"), newFakeShortener(), nil, &fakeStore{},
		testutils.SetupTestLogger(), WithSyncDelay(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.CreateMeetingURL(ctx, testBooking(), "org@example.com", "Ольга", false, true, "")
	testutils.AssertTrue(t, errors.Is(err, context.Canceled), "cancelled context stops the sync wait")
}

func TestManager_GetAndDelete(t *testing.T) {
	sh := newFakeShortener()
	sh.links["client_uid-1"] = "long"
	m := newTestManager(sh, &fakeStore{})
	ctx := context.Background()

	got, err := m.GetMeetingURL(ctx, "uid-1", models.ClientPrefix)
	testutils.AssertNoError(t, err, "GetMeetingURL")
	testutils.AssertEqual(t, "https://s.test/client_uid-1", got, "short url")

	testutils.AssertNoError(t, m.DeleteMeetingURL(ctx, "uid-1", ""), "delete organizer")
	testutils.AssertNoError(t, m.DeleteMeetingURL(ctx, "uid-1", models.ClientPrefix), "delete client")
	testutils.AssertEqual(t, []string{"uid-1", "client_uid-1"}, sh.deletes, "deleted ids")
}

func TestManager_LinkMetricsRecordedOnce(t *testing.T) {
	sh := newFakeShortener()
	m := newTestManager(sh, &fakeStore{})
	ctx := context.Background()

	created := testutil.ToFloat64(metrics.MeetingLinks.WithLabelValues("create", "ok"))
	deleted := testutil.ToFloat64(metrics.MeetingLinks.WithLabelValues("delete", "ok"))

	_, err := m.CreateMeetingURL(ctx, testBooking(), "org@example.com", "Ольга", false, false, "")
	testutils.AssertNoError(t, err, "CreateMeetingURL")
	testutils.AssertNoError(t, m.DeleteMeetingURL(ctx, "uid-new", ""), "DeleteMeetingURL")

	testutils.AssertEqual(t, created+1, testutil.ToFloat64(metrics.MeetingLinks.WithLabelValues("create", "ok")), "one create counted")
	testutils.AssertEqual(t, deleted+1, testutil.ToFloat64(metrics.MeetingLinks.WithLabelValues("delete", "ok")), "one delete counted")
}
