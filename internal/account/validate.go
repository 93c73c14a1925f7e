package account

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/ovaphlow/pitchfork/service-forum-core/internal/apperr"
)

const (
	maxUsernameLen = 64
	// bcrypt ignores everything past 72 bytes, so longer passwords are refused.
	maxPasswordBytes = 72
)

func normalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateUsername(username string) error {
	if username == "" {
		return apperr.InvalidArgument("username is required")
	}
	if utf8.RuneCountInString(username) > maxUsernameLen {
		return apperr.InvalidArgument("username is too long")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return apperr.InvalidArgument("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperr.InvalidArgument("email is invalid")
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return apperr.InvalidArgument("password is required")
	}
	if len(password) > maxPasswordBytes {
		return apperr.InvalidArgument("password is too long")
	}
	return nil
}
