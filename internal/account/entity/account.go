package entity

import (
	"errors"
	"strings"
	"time"
)

const (
	InitialPoints int64 = 0
	InitialLevel  int64 = 1
)

// Account represents a row in the `accounts` table: identity plus the
// points/level economy state.
type Account struct {
	ID               string     `db:"id"`
	Username         string     `db:"username"`
	Email            string     `db:"email"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	IsOnline         bool       `db:"is_online"`
	Points           int64      `db:"points"`
	Level            int64      `db:"level"`
	LastCheckin      *time.Time `db:"last_checkin"`
	ResetToken       *string    `db:"reset_token" json:"-"`
	ResetTokenExpiry *time.Time `db:"reset_token_expiry" json:"-"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

// NewAccount builds a freshly registered account with the default economy state.
func NewAccount(id, username, email, passwordHash string, now time.Time) *Account {
	return &Account{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Points:       InitialPoints,
		Level:        InitialLevel,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

var (
	ErrMissingIdentity   = errors.New("account id, username and email are required")
	ErrMissingHash       = errors.New("password hash is required")
	ErrNegativePoints    = errors.New("points must not be negative")
	ErrInvalidLevel      = errors.New("level must be at least 1")
	ErrResetTokenPairing = errors.New("reset token and expiry must be set together")
)

// Validate checks the record invariants. Stores call it before every write.
func (a *Account) Validate() error {
	if a.ID == "" || strings.TrimSpace(a.Username) == "" || strings.TrimSpace(a.Email) == "" {
		return ErrMissingIdentity
	}
	if a.PasswordHash == "" {
		return ErrMissingHash
	}
	if a.Points < 0 {
		return ErrNegativePoints
	}
	if a.Level < 1 {
		return ErrInvalidLevel
	}
	if (a.ResetToken == nil) != (a.ResetTokenExpiry == nil) {
		return ErrResetTokenPairing
	}
	return nil
}

// ResetTokenValid reports whether token matches the stored reset token and
// has not expired at now.
func (a *Account) ResetTokenValid(token string, now time.Time) bool {
	if a.ResetToken == nil || a.ResetTokenExpiry == nil || token == "" {
		return false
	}
	if *a.ResetToken != token {
		return false
	}
	return now.Before(*a.ResetTokenExpiry)
}

// SetResetToken stores a reset token and its expiry.
func (a *Account) SetResetToken(token string, expiry time.Time) {
	a.ResetToken = &token
	a.ResetTokenExpiry = &expiry
}

// ClearResetToken drops both reset fields.
func (a *Account) ClearResetToken() {
	a.ResetToken = nil
	a.ResetTokenExpiry = nil
}

// Clone returns a deep copy so callers cannot alias stored state.
func (a *Account) Clone() *Account {
	c := *a
	if a.LastCheckin != nil {
		t := *a.LastCheckin
		c.LastCheckin = &t
	}
	if a.ResetToken != nil {
		s := *a.ResetToken
		c.ResetToken = &s
	}
	if a.ResetTokenExpiry != nil {
		t := *a.ResetTokenExpiry
		c.ResetTokenExpiry = &t
	}
	return &c
}

// Profile is the outward projection of an account. It never carries the
// password hash or reset token.
type Profile struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	IsOnline    bool       `json:"is_online"`
	Points      int64      `json:"points"`
	Level       int64      `json:"level"`
	LastCheckin *time.Time `json:"last_checkin"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Profile returns the outward view of the account.
func (a *Account) Profile() Profile {
	return Profile{
		ID:          a.ID,
		Username:    a.Username,
		Email:       a.Email,
		IsOnline:    a.IsOnline,
		Points:      a.Points,
		Level:       a.Level,
		LastCheckin: a.LastCheckin,
		CreatedAt:   a.CreatedAt,
	}
}
