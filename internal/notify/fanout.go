package notify

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ResetNotifier receives password reset notices.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, notice ResetNotice) error
}

// CommentNotifier receives new-comment notices.
type CommentNotifier interface {
	NotifyComment(ctx context.Context, notice CommentNotice) error
}

// Notifier handles every event this service emits.
type Notifier interface {
	ResetNotifier
	CommentNotifier
}

// Fanout delivers each notice to every notifier in order and joins the
// failures. One failing notifier does not stop the others.
type Fanout []Notifier

func (f Fanout) NotifyPasswordReset(ctx context.Context, notice ResetNotice) error {
	var err error
	for _, n := range f {
		err = multierr.Append(err, n.NotifyPasswordReset(ctx, notice))
	}
	return err
}

func (f Fanout) NotifyComment(ctx context.Context, notice CommentNotice) error {
	var err error
	for _, n := range f {
		err = multierr.Append(err, n.NotifyComment(ctx, notice))
	}
	return err
}

// BestEffort logs failures of next instead of returning them. Use it for
// secondary channels whose failure must not fail the request.
func BestEffort(next Notifier, logger *zap.SugaredLogger) Notifier {
	return bestEffort{next: next, logger: logger}
}

type bestEffort struct {
	next   Notifier
	logger *zap.SugaredLogger
}

func (b bestEffort) NotifyPasswordReset(ctx context.Context, notice ResetNotice) error {
	if err := b.next.NotifyPasswordReset(ctx, notice); err != nil {
		b.logger.Warnw("password reset notice dropped", "account_id", notice.AccountID, "err", err)
	}
	return nil
}

func (b bestEffort) NotifyComment(ctx context.Context, notice CommentNotice) error {
	if err := b.next.NotifyComment(ctx, notice); err != nil {
		b.logger.Warnw("comment notice dropped", "post_id", notice.PostID, "err", err)
	}
	return nil
}
