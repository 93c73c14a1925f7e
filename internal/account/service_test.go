package account

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-forum-core/internal/account/entity"
	accountrepo "github.com/ovaphlow/pitchfork/service-forum-core/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/economy"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/notify"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/token"
)

type captureNotifier struct {
	mu      sync.Mutex
	notices []notify.ResetNotice
	err     error
}

func (c *captureNotifier) NotifyPasswordReset(ctx context.Context, n notify.ResetNotice) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.notices = append(c.notices, n)
	return nil
}

func (c *captureNotifier) last(t *testing.T) notify.ResetNotice {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.notices)
	return c.notices[len(c.notices)-1]
}

type fixture struct {
	svc      *Service
	store    *accountrepo.MemoryRepo
	tokens   *token.Service
	notifier *captureNotifier
	clock    *clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC))
	store := accountrepo.NewMemoryRepo(clock)
	tokens, err := token.NewService([]byte("test-signing-key"), "forum-core", time.Hour, clock)
	require.NoError(t, err)
	notifier := &captureNotifier{}
	var seq atomic.Int64
	newID := func() string { return strconv.FormatInt(seq.Add(1), 10) }
	svc := NewService(store, BcryptHasher{Cost: bcrypt.MinCost}, tokens, notifier, clock, newID)
	return &fixture{svc: svc, store: store, tokens: tokens, notifier: notifier, clock: clock}
}

func TestRegister_Defaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Register(ctx, "  alice ", "A@X.com", "pw1")
	require.NoError(t, err)

	assert.Equal(t, "1", a.ID)
	assert.Equal(t, "alice", a.Username)
	assert.Equal(t, "a@x.com", a.Email)
	assert.Equal(t, int64(0), a.Points)
	assert.Equal(t, int64(1), a.Level)
	assert.False(t, a.IsOnline)
	assert.Nil(t, a.LastCheckin)
	assert.Nil(t, a.ResetToken)
	assert.Nil(t, a.ResetTokenExpiry)
	assert.NotEqual(t, "pw1", a.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte("pw1")))

	stored, err := f.store.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, a.ID, stored.ID)
}

func TestRegister_Conflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "alice", "a@x.com", "pw1")
	require.NoError(t, err)

	_, err = f.svc.Register(ctx, "alice", "other@x.com", "pw2")
	assert.ErrorIs(t, err, apperr.ErrConflict, "username collision")

	_, err = f.svc.Register(ctx, "bob", "A@x.com", "pw2")
	assert.ErrorIs(t, err, apperr.ErrConflict, "email collision, case-insensitive")

	_, err = f.svc.Register(ctx, "alice", "a@x.com", "pw1")
	assert.ErrorIs(t, err, apperr.ErrConflict, "both collide")
}

type racingStore struct {
	*accountrepo.MemoryRepo
}

// GetByUsername/GetByEmail always report absence so the pre-check passes and
// the unique constraint in Create has to catch the duplicate.
func (r racingStore) GetByUsername(context.Context, string) (*entity.Account, error) {
	return nil, accountrepo.ErrNotFound
}

func (r racingStore) GetByEmail(context.Context, string) (*entity.Account, error) {
	return nil, accountrepo.ErrNotFound
}

func TestRegister_ConflictFromStoreConstraint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "alice", "a@x.com", "pw1")
	require.NoError(t, err)

	svc := NewService(racingStore{f.store}, BcryptHasher{Cost: bcrypt.MinCost}, f.tokens, f.notifier, f.clock, func() string { return "99" })
	_, err = svc.Register(ctx, "alice", "new@x.com", "pw")
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestRegister_InvalidArguments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct{ name, username, email, password string }{
		{"empty username", "  ", "a@x.com", "pw"},
		{"long username", strings.Repeat("u", 65), "a@x.com", "pw"},
		{"empty email", "alice", "", "pw"},
		{"bad email", "alice", "not-an-email", "pw"},
		{"display name email", "alice", "Alice <a@x.com>", "pw"},
		{"empty password", "alice", "a@x.com", ""},
		{"long password", "alice", "a@x.com", strings.Repeat("p", 73)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(ctx, tc.username, tc.email, tc.password)
			assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
		})
	}
}

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, "alice", "a@x.com", "pw1")
	require.NoError(t, err)

	a, tok, err := f.svc.Login(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.True(t, a.IsOnline)
	assert.Equal(t, int64(0), a.Points)
	assert.Equal(t, int64(1), a.Level)

	id, err := f.tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, reg.ID, id)

	stored, err := f.store.GetByID(ctx, reg.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsOnline)
}

func TestLogin_NoEnumeration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "alice", "a@x.com", "pw1")
	require.NoError(t, err)

	_, _, wrongPw := f.svc.Login(ctx, "alice", "nope")
	_, _, unknown := f.svc.Login(ctx, "mallory", "pw1")

	require.Error(t, wrongPw)
	require.Error(t, unknown)
	assert.ErrorIs(t, wrongPw, apperr.ErrInvalidCredentials)
	assert.ErrorIs(t, unknown, apperr.ErrInvalidCredentials)
	assert.Equal(t, wrongPw.Error(), unknown.Error())

	stored, err := f.store.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, stored.IsOnline)
}

func TestPasswordReset_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, "alice", "a@x.com", "pw1")
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "A@x.com"))
	notice := f.notifier.last(t)
	assert.Equal(t, reg.ID, notice.AccountID)
	assert.Equal(t, "a@x.com", notice.Email)
	assert.Len(t, notice.Token, 72)
	assert.True(t, f.clock.Now().Add(time.Hour).Equal(notice.ExpiresAt))

	stored, err := f.store.GetByID(ctx, reg.ID)
	require.NoError(t, err)
	require.NoError(t, stored.Validate())
	require.NotNil(t, stored.ResetToken)

	f.clock.Advance(59 * time.Minute)
	require.NoError(t, f.svc.RedeemPasswordReset(ctx, notice.Token, "pw2"))

	_, _, err = f.svc.Login(ctx, "alice", "pw1")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	_, _, err = f.svc.Login(ctx, "alice", "pw2")
	require.NoError(t, err)

	err = f.svc.RedeemPasswordReset(ctx, notice.Token, "pw3")
	assert.ErrorIs(t, err, apperr.ErrInvalidOrExpiredToken)

	stored, err = f.store.GetByID(ctx, reg.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ResetToken)
	assert.Nil(t, stored.ResetTokenExpiry)
}

func TestPasswordReset_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "alice", "a@x.com", "pw1")
	require.NoError(t, err)
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "a@x.com"))
	notice := f.notifier.last(t)

	f.clock.Advance(time.Hour)
	err = f.svc.RedeemPasswordReset(ctx, notice.Token, "pw2")
	assert.ErrorIs(t, err, apperr.ErrInvalidOrExpiredToken)

	_, _, err = f.svc.Login(ctx, "alice", "pw1")
	require.NoError(t, err)
}

func TestPasswordReset_NewRequestReplacesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "alice", "a@x.com", "pw1")
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "a@x.com"))
	first := f.notifier.last(t)
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "a@x.com"))
	second := f.notifier.last(t)
	assert.NotEqual(t, first.Token, second.Token)

	assert.ErrorIs(t, f.svc.RedeemPasswordReset(ctx, first.Token, "pw2"), apperr.ErrInvalidOrExpiredToken)
	assert.NoError(t, f.svc.RedeemPasswordReset(ctx, second.Token, "pw2"))
}

func TestPasswordReset_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.RequestPasswordReset(ctx, "ghost@x.com"), apperr.ErrNotFound)
	assert.ErrorIs(t, f.svc.RedeemPasswordReset(ctx, "unknown", "pw"), apperr.ErrInvalidOrExpiredToken)
	assert.ErrorIs(t, f.svc.RedeemPasswordReset(ctx, "", "pw"), apperr.ErrInvalidOrExpiredToken)
	assert.ErrorIs(t, f.svc.RedeemPasswordReset(ctx, "unknown", ""), apperr.ErrInvalidArgument)
}

func TestPasswordReset_NotifierFailureIsReturned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "alice", "a@x.com", "pw1")
	require.NoError(t, err)

	f.notifier.err = errors.New("broker unavailable")
	err = f.svc.RequestPasswordReset(ctx, "a@x.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")

	stored, err := f.store.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Nil(t, stored.ResetToken, "undelivered token must not stay redeemable")
	assert.Nil(t, stored.ResetTokenExpiry)
	require.NoError(t, stored.Validate())
}

func TestPasswordReset_FailedRequestLeavesNoRedeemableToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "alice", "a@x.com", "pw1")
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "a@x.com"))
	delivered := f.notifier.last(t).Token

	f.notifier.err = errors.New("broker unavailable")
	require.Error(t, f.svc.RequestPasswordReset(ctx, "a@x.com"))

	// the failed request replaced the delivered token before it was cleared
	assert.ErrorIs(t, f.svc.RedeemPasswordReset(ctx, delivered, "pw2"), apperr.ErrInvalidOrExpiredToken)
	_, _, err = f.svc.Login(ctx, "alice", "pw1")
	require.NoError(t, err)
}

func TestPasswordReset_ConcurrentRedeemSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, "alice", "a@x.com", "pw1")
	require.NoError(t, err)
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "a@x.com"))
	tok := f.notifier.last(t).Token

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if f.svc.RedeemPasswordReset(ctx, tok, "new-"+strconv.Itoa(i)) == nil {
				ok.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), ok.Load())
}

func TestProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, "alice", "a@x.com", "pw1")
	require.NoError(t, err)

	a, err := f.svc.Profile(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", a.Username)

	_, err = f.svc.Profile(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// register alice -> login -> check in -> check in again -> upgrade -> upgrade
func TestAliceScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	econ := economy.NewService(f.store, f.clock)

	_, err := f.svc.Register(ctx, "alice", "a@x.com", "pw1")
	require.NoError(t, err)

	a, tok, err := f.svc.Login(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), a.Points)
	assert.Equal(t, int64(1), a.Level)

	id, err := f.tokens.Verify(tok)
	require.NoError(t, err)

	points, err := econ.CheckIn(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(10), points)

	_, err = econ.CheckIn(ctx, id)
	assert.ErrorIs(t, err, apperr.ErrAlreadyCheckedIn)

	level, points, err := econ.Upgrade(ctx, id, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), level)
	assert.Equal(t, int64(0), points)

	_, _, err = econ.Upgrade(ctx, id, 1)
	assert.ErrorIs(t, err, apperr.ErrInsufficientPoints)
}
