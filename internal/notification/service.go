// Package notification keeps the in-app notification list of each account.
// It receives the same notices as the external notifiers in package notify.
package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ovaphlow/pitchfork/service-forum-core/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/notification/entity"
	notificationrepo "github.com/ovaphlow/pitchfork/service-forum-core/internal/notification/repo"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/notify"
	"github.com/ovaphlow/pitchfork/service-forum-core/pkg/utilities"
)

const excerptRunes = 80

var errNotFound = apperr.New(apperr.CodeNotFound, "notification not found")

type Store interface {
	Create(ctx context.Context, n *entity.Notification) error
	List(ctx context.Context, f notificationrepo.Filter) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, accountID, id string, at time.Time) error
	MarkAllRead(ctx context.Context, accountID string, at time.Time) (int64, error)
}

type Service struct {
	store Store
	clock clockwork.Clock
	newID func() string
}

func NewService(store Store, clock clockwork.Clock, newID func() string) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{store: store, clock: clock, newID: newID}
}

// NotifyPasswordReset records that a reset was requested. The token is not
// stored: whoever can read this list is already signed in.
func (s *Service) NotifyPasswordReset(ctx context.Context, notice notify.ResetNotice) error {
	content := fmt.Sprintf("A password reset was requested for your account. It expires at %s.",
		notice.ExpiresAt.UTC().Format(time.RFC3339))
	return s.push(ctx, notice.AccountID, entity.KindPasswordReset, content, "")
}

// NotifyComment tells a post author about a new comment.
func (s *Service) NotifyComment(ctx context.Context, notice notify.CommentNotice) error {
	content := "New comment on your post"
	if notice.Excerpt != "" {
		content += ": " + utilities.Excerpt(notice.Excerpt, excerptRunes)
	}
	return s.push(ctx, notice.PostAuthor, entity.KindComment, content, notice.PostID)
}

func (s *Service) push(ctx context.Context, accountID string, kind entity.Kind, content, refID string) error {
	n := entity.New(s.newID(), accountID, kind, content, refID, s.clock.Now().UTC())
	if err := s.store.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	return nil
}

// List returns the notifications of accountID, newest first.
func (s *Service) List(ctx context.Context, accountID string, unreadOnly bool, page utilities.Page) ([]*entity.Notification, error) {
	out, err := s.store.List(ctx, notificationrepo.Filter{
		AccountID:  accountID,
		UnreadOnly: unreadOnly,
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

// MarkRead flags one of accountID's notifications as read.
func (s *Service) MarkRead(ctx context.Context, accountID, id string) error {
	if err := s.store.MarkRead(ctx, accountID, id, s.clock.Now().UTC()); err != nil {
		if errors.Is(err, notificationrepo.ErrNotFound) {
			return errNotFound
		}
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

// MarkAllRead flags every unread notification of accountID.
func (s *Service) MarkAllRead(ctx context.Context, accountID string) (int64, error) {
	n, err := s.store.MarkAllRead(ctx, accountID, s.clock.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return n, nil
}
