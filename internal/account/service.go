package account

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ovaphlow/pitchfork/service-forum-core/internal/account/entity"
	accountrepo "github.com/ovaphlow/pitchfork/service-forum-core/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/notify"
)

const (
	// ResetTokenTTL is how long a password reset token stays redeemable.
	ResetTokenTTL = time.Hour
	// resetTokenBytes random bytes, hex encoded to 72 characters.
	resetTokenBytes = 36
)

// Store is the credential store the account lifecycle needs.
type Store interface {
	Create(ctx context.Context, a *entity.Account) error
	GetByID(ctx context.Context, id string) (*entity.Account, error)
	GetByUsername(ctx context.Context, username string) (*entity.Account, error)
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)
	GetByResetToken(ctx context.Context, token string) (*entity.Account, error)
	Update(ctx context.Context, id string, fn accountrepo.UpdateFunc) (*entity.Account, error)
}

// TokenIssuer signs bearer tokens for authenticated accounts.
type TokenIssuer interface {
	Issue(accountID string) (string, error)
}

// ResetNotifier delivers reset tokens to the account owner.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, notice notify.ResetNotice) error
}

// Service orchestrates registration, login and the password reset flow.
type Service struct {
	store    Store
	hasher   PasswordHasher
	tokens   TokenIssuer
	notifier ResetNotifier
	clock    clockwork.Clock
	newID    func() string

	dummyOnce sync.Once
	dummyHash string
}

// NewService wires the account lifecycle. A nil hasher defaults to bcrypt
// cost 12 and a nil clock to the real clock.
func NewService(store Store, hasher PasswordHasher, tokens TokenIssuer, notifier ResetNotifier, clock clockwork.Clock, newID func() string) *Service {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		notifier: notifier,
		clock:    clock,
		newID:    newID,
	}
}

// Register creates an account. Username and email must both be unused.
func (s *Service) Register(ctx context.Context, username, email, password string) (*entity.Account, error) {
	username = normalizeUsername(username)
	email = normalizeEmail(email)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	if err := s.ensureUnused(ctx, username, email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	a := entity.NewAccount(s.newID(), username, email, hash, s.clock.Now().UTC())
	if err := s.store.Create(ctx, a); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, accountrepo.ErrDuplicate) {
			return nil, apperr.ErrConflict
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	return a, nil
}

func (s *Service) ensureUnused(ctx context.Context, username, email string) error {
	if _, err := s.store.GetByUsername(ctx, username); err == nil {
		return apperr.ErrConflict
	} else if !errors.Is(err, accountrepo.ErrNotFound) {
		return fmt.Errorf("lookup username: %w", err)
	}
	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return apperr.ErrConflict
	} else if !errors.Is(err, accountrepo.ErrNotFound) {
		return fmt.Errorf("lookup email: %w", err)
	}
	return nil
}

// Login checks the password, marks the account online and issues a token.
// Unknown username and wrong password both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (*entity.Account, string, error) {
	username = normalizeUsername(username)
	if username == "" || password == "" {
		return nil, "", apperr.ErrInvalidCredentials
	}

	a, err := s.store.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, accountrepo.ErrNotFound) {
			// burn a comparable amount of time so absent users are not detectable
			s.hasher.Verify(s.dummy(), password)
			return nil, "", apperr.ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("lookup account: %w", err)
	}
	if !s.hasher.Verify(a.PasswordHash, password) {
		return nil, "", apperr.ErrInvalidCredentials
	}

	a, err = s.store.Update(ctx, a.ID, func(acc *entity.Account) error {
		acc.IsOnline = true
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("mark online: %w", err)
	}

	tok, err := s.tokens.Issue(a.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return a, tok, nil
}

// RequestPasswordReset stores a fresh single-use reset token valid for
// ResetTokenTTL and hands it to the notifier.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperr.ErrNotFound
	}
	a, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, accountrepo.ErrNotFound) {
			return apperr.ErrNotFound
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	tok, err := newResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	expiry := s.clock.Now().UTC().Add(ResetTokenTTL)

	if _, err := s.store.Update(ctx, a.ID, func(acc *entity.Account) error {
		acc.SetResetToken(tok, expiry)
		return nil
	}); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if err := s.notifier.NotifyPasswordReset(ctx, notify.ResetNotice{
		AccountID: a.ID,
		Email:     a.Email,
		Token:     tok,
		ExpiresAt: expiry,
	}); err != nil {
		// nobody received the token, so it must not stay redeemable
		if _, cerr := s.store.Update(ctx, a.ID, func(acc *entity.Account) error {
			if acc.ResetToken != nil && *acc.ResetToken == tok {
				acc.ClearResetToken()
			}
			return nil
		}); cerr != nil {
			return fmt.Errorf("notify reset: %w (clearing token: %v)", err, cerr)
		}
		return fmt.Errorf("notify reset: %w", err)
	}
	return nil
}

// RedeemPasswordReset replaces the password of the account holding token and
// clears the token so it cannot be replayed.
func (s *Service) RedeemPasswordReset(ctx context.Context, token, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if token == "" {
		return apperr.ErrInvalidOrExpiredToken
	}

	a, err := s.store.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, accountrepo.ErrNotFound) {
			return apperr.ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}
	if !a.ResetTokenValid(token, s.clock.Now()) {
		return apperr.ErrInvalidOrExpiredToken
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	_, err = s.store.Update(ctx, a.ID, func(acc *entity.Account) error {
		// re-check under the lock: a concurrent redeem may have consumed it
		if !acc.ResetTokenValid(token, s.clock.Now()) {
			return apperr.ErrInvalidOrExpiredToken
		}
		acc.PasswordHash = hash
		acc.ClearResetToken()
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidOrExpiredToken) {
			return err
		}
		return fmt.Errorf("store new password: %w", err)
	}
	return nil
}

// Profile resolves an account id (e.g. from a verified token) to the account.
func (s *Service) Profile(ctx context.Context, accountID string) (*entity.Account, error) {
	a, err := s.store.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, accountrepo.ErrNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return a, nil
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		if h, err := s.hasher.Hash("dummy-password-for-timing"); err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func newResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
