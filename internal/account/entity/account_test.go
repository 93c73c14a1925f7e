package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validAccount() *Account {
	return NewAccount("1", "alice", "a@x.com", "$2a$04$hash", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestNewAccount_Defaults(t *testing.T) {
	a := validAccount()

	assert.Equal(t, int64(0), a.Points)
	assert.Equal(t, int64(1), a.Level)
	assert.False(t, a.IsOnline)
	assert.Nil(t, a.LastCheckin)
	assert.Nil(t, a.ResetToken)
	assert.Nil(t, a.ResetTokenExpiry)
	assert.NoError(t, a.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *Account)
		want   error
	}{
		{"missing id", func(a *Account) { a.ID = "" }, ErrMissingIdentity},
		{"blank username", func(a *Account) { a.Username = "  " }, ErrMissingIdentity},
		{"missing email", func(a *Account) { a.Email = "" }, ErrMissingIdentity},
		{"missing hash", func(a *Account) { a.PasswordHash = "" }, ErrMissingHash},
		{"negative points", func(a *Account) { a.Points = -1 }, ErrNegativePoints},
		{"zero level", func(a *Account) { a.Level = 0 }, ErrInvalidLevel},
		{"token without expiry", func(a *Account) {
			tok := "t"
			a.ResetToken = &tok
		}, ErrResetTokenPairing},
		{"expiry without token", func(a *Account) {
			exp := time.Now()
			a.ResetTokenExpiry = &exp
		}, ErrResetTokenPairing},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := validAccount()
			tc.mutate(a)
			assert.ErrorIs(t, a.Validate(), tc.want)
		})
	}
}

func TestResetTokenValid(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a := validAccount()

	assert.False(t, a.ResetTokenValid("abc", now), "no token set")

	a.SetResetToken("abc", now.Add(time.Hour))
	require.NoError(t, a.Validate())

	assert.True(t, a.ResetTokenValid("abc", now))
	assert.False(t, a.ResetTokenValid("abd", now))
	assert.False(t, a.ResetTokenValid("", now))
	assert.False(t, a.ResetTokenValid("abc", now.Add(time.Hour)), "expiry equal to now is invalid")
	assert.False(t, a.ResetTokenValid("abc", now.Add(2*time.Hour)))

	a.ClearResetToken()
	assert.Nil(t, a.ResetToken)
	assert.Nil(t, a.ResetTokenExpiry)
}

func TestClone_DoesNotAlias(t *testing.T) {
	now := time.Now()
	a := validAccount()
	a.LastCheckin = &now
	a.SetResetToken("abc", now)

	c := a.Clone()
	*c.LastCheckin = now.Add(time.Hour)
	*c.ResetToken = "changed"
	c.Points = 50

	assert.Equal(t, now, *a.LastCheckin)
	assert.Equal(t, "abc", *a.ResetToken)
	assert.Equal(t, int64(0), a.Points)
}

func TestProfile_HidesSecrets(t *testing.T) {
	a := validAccount()
	a.SetResetToken("secret-reset", time.Now())

	out, err := json.Marshal(a.Profile())
	require.NoError(t, err)
	assert.NotContains(t, string(out), "hash")
	assert.NotContains(t, string(out), "secret-reset")
	assert.Contains(t, string(out), `"username":"alice"`)

	raw, err := json.Marshal(a)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "$2a$04$hash")
	assert.NotContains(t, string(raw), "secret-reset")
}
