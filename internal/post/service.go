// Package post holds forum posts and their comments.
package post

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-forum-core/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/notify"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/post/entity"
	postrepo "github.com/ovaphlow/pitchfork/service-forum-core/internal/post/repo"
	"github.com/ovaphlow/pitchfork/service-forum-core/pkg/utilities"
)

var errPostNotFound = apperr.New(apperr.CodeNotFound, "post not found")

type Store interface {
	CreatePost(ctx context.Context, p *entity.Post) error
	GetPost(ctx context.Context, id string) (*entity.Post, error)
	ListPosts(ctx context.Context, f postrepo.Filter) ([]*entity.Post, error)
	CreateComment(ctx context.Context, c *entity.Comment) error
}

type Service struct {
	store    Store
	notifier notify.CommentNotifier
	clock    clockwork.Clock
	newID    func() string
	logger   *zap.SugaredLogger
}

func NewService(store Store, notifier notify.CommentNotifier, clock clockwork.Clock, newID func() string, logger *zap.SugaredLogger) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{store: store, notifier: notifier, clock: clock, newID: newID, logger: logger}
}

// Create publishes a post by authorID.
func (s *Service) Create(ctx context.Context, authorID, title, content string) (*entity.Post, error) {
	p := entity.NewPost(s.newID(), authorID, title, content, s.clock.Now().UTC())
	if err := s.store.CreatePost(ctx, p); err != nil {
		return nil, mapErr(err, "create post", apperr.ErrNotFound)
	}
	return p, nil
}

// Get returns a post with its comments.
func (s *Service) Get(ctx context.Context, id string) (*entity.Post, error) {
	p, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, mapErr(err, "get post", errPostNotFound)
	}
	return p, nil
}

// List returns posts newest first. An empty authorID lists everyone's.
func (s *Service) List(ctx context.Context, authorID string, page utilities.Page) ([]*entity.Post, error) {
	out, err := s.store.ListPosts(ctx, postrepo.Filter{AuthorID: authorID, Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return out, nil
}

// Comment adds a comment to postID and tells the post author. The comment
// stands even if the notice cannot be delivered.
func (s *Service) Comment(ctx context.Context, postID, authorID, content string) (*entity.Comment, error) {
	p, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, mapErr(err, "get post", errPostNotFound)
	}
	c := entity.NewComment(s.newID(), postID, authorID, content, s.clock.Now().UTC())
	if err := s.store.CreateComment(ctx, c); err != nil {
		return nil, mapErr(err, "create comment", errPostNotFound)
	}

	if p.AuthorID == authorID || s.notifier == nil {
		return c, nil
	}
	if err := s.notifier.NotifyComment(ctx, notify.CommentNotice{
		PostID:      p.ID,
		PostAuthor:  p.AuthorID,
		CommentID:   c.ID,
		CommenterID: authorID,
		Excerpt:     c.Content,
		CreatedAt:   c.CreatedAt,
	}); err != nil {
		s.logger.Warnw("comment notice not delivered", "post_id", p.ID, "comment_id", c.ID, "err", err)
	}
	return c, nil
}

func mapErr(err error, op string, notFound error) error {
	switch {
	case errors.Is(err, postrepo.ErrNotFound):
		return notFound
	case errors.Is(err, entity.ErrEmptyContent), errors.Is(err, entity.ErrContentTooLong),
		errors.Is(err, entity.ErrTitleTooLong), errors.Is(err, entity.ErrMissingAuthor):
		return apperr.InvalidArgument(err.Error())
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
