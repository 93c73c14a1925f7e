package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-forum-core/internal/post/entity"
)

var ErrNotFound = errors.New("post not found")

const foreignKeyViolation = "23503"

// Filter narrows a post listing. Zero values mean no constraint.
type Filter struct {
	AuthorID string
	Limit    int
	Offset   int
}

const (
	postColumns    = `id, author_id, title, content, created_at`
	commentColumns = `id, post_id, author_id, content, created_at`
)

// PostRepo provides data access for the posts and comments tables.
type PostRepo struct {
	db *sqlx.DB
}

func NewPostRepo(db *sqlx.DB) *PostRepo { return &PostRepo{db: db} }

// CreatePost inserts p. An unknown author surfaces as ErrNotFound.
func (r *PostRepo) CreatePost(ctx context.Context, p *entity.Post) error {
	if err := p.Validate(); err != nil {
		return err
	}
	const q = `INSERT INTO posts (` + postColumns + `) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, q, p.ID, p.AuthorID, p.Title, p.Content, p.CreatedAt); err != nil {
		return mapErr(err)
	}
	return nil
}

// GetPost returns the post with its comments in posting order.
func (r *PostRepo) GetPost(ctx context.Context, id string) (*entity.Post, error) {
	var p entity.Post
	q := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	if err := r.db.GetContext(ctx, &p, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	posts := []*entity.Post{&p}
	if err := r.attachComments(ctx, posts); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPosts returns posts newest first, each with its comments.
func (r *PostRepo) ListPosts(ctx context.Context, f Filter) ([]*entity.Post, error) {
	where := []string{}
	args := []any{}
	if f.AuthorID != "" {
		args = append(args, f.AuthorID)
		where = append(where, fmt.Sprintf("author_id = $%d", len(args)))
	}
	q := `SELECT ` + postColumns + ` FROM posts`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	q += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	posts := []*entity.Post{}
	if err := r.db.SelectContext(ctx, &posts, q, args...); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := r.attachComments(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// attachComments loads the comments of every post in one query.
func (r *PostRepo) attachComments(ctx context.Context, posts []*entity.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, len(posts))
	byID := make(map[string]*entity.Post, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		p.Comments = []*entity.Comment{}
		byID[p.ID] = p
	}
	q := `SELECT ` + commentColumns + ` FROM comments WHERE post_id = ANY($1) ORDER BY created_at, id`
	comments := []*entity.Comment{}
	if err := r.db.SelectContext(ctx, &comments, q, pq.Array(ids)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	for _, c := range comments {
		if p, ok := byID[c.PostID]; ok {
			p.Comments = append(p.Comments, c)
		}
	}
	return nil
}

// CreateComment inserts c. A missing post surfaces as ErrNotFound.
func (r *PostRepo) CreateComment(ctx context.Context, c *entity.Comment) error {
	if err := c.Validate(); err != nil {
		return err
	}
	const q = `INSERT INTO comments (` + commentColumns + `) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, q, c.ID, c.PostID, c.AuthorID, c.Content, c.CreatedAt); err != nil {
		return mapErr(err)
	}
	return nil
}

func mapErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
		return ErrNotFound
	}
	return fmt.Errorf("db error: %w", err)
}
