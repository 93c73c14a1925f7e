// Package notify hands password-reset tokens to whatever delivers them to the
// account owner. Rendering and sending the email is someone else's job.
package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.uber.org/zap"
)

// ResetNotice is the payload published when a password reset is requested.
type ResetNotice struct {
	AccountID string    `json:"account_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CommentNotice is the payload published when someone comments on a post.
type CommentNotice struct {
	PostID      string    `json:"post_id"`
	PostAuthor  string    `json:"post_author_id"`
	CommentID   string    `json:"comment_id"`
	CommenterID string    `json:"commenter_id"`
	Excerpt     string    `json:"excerpt"`
	CreatedAt   time.Time `json:"created_at"`
}

// LogNotifier writes reset notices to the service log. Intended for local
// development where no broker is configured. Only a fingerprint of the
// token is logged, never the token itself.
type LogNotifier struct {
	logger *zap.SugaredLogger
}

func NewLogNotifier(logger *zap.SugaredLogger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyPasswordReset(ctx context.Context, notice ResetNotice) error {
	n.logger.Infow("password reset requested",
		"account_id", notice.AccountID,
		"email", notice.Email,
		"expires_at", notice.ExpiresAt,
		"token_fingerprint", Fingerprint(notice.Token),
	)
	return nil
}

func (n *LogNotifier) NotifyComment(ctx context.Context, notice CommentNotice) error {
	n.logger.Infow("post commented",
		"post_id", notice.PostID,
		"post_author_id", notice.PostAuthor,
		"comment_id", notice.CommentID,
		"commenter_id", notice.CommenterID,
	)
	return nil
}

// Fingerprint identifies a reset token in logs without making it redeemable.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:6])
}
