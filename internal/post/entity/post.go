package entity

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxTitleRunes   = 200
	MaxContentRunes = 10000
	MaxCommentRunes = 2000
)

var (
	ErrEmptyContent   = errors.New("content must not be empty")
	ErrContentTooLong = errors.New("content is too long")
	ErrTitleTooLong   = errors.New("title is too long")
	ErrMissingAuthor  = errors.New("author is required")
)

// Post is a forum thread starter. Comments are loaded separately and are
// not a column.
type Post struct {
	ID        string     `db:"id" json:"id"`
	AuthorID  string     `db:"author_id" json:"user_id"`
	Title     string     `db:"title" json:"title,omitempty"`
	Content   string     `db:"content" json:"content"`
	CreatedAt time.Time  `db:"created_at" json:"date_posted"`
	Comments  []*Comment `db:"-" json:"comments"`
}

// Comment is a reply to a post.
type Comment struct {
	ID        string    `db:"id" json:"id"`
	PostID    string    `db:"post_id" json:"post_id"`
	AuthorID  string    `db:"author_id" json:"user_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"date_posted"`
}

func NewPost(id, authorID, title, content string, now time.Time) *Post {
	return &Post{
		ID:        id,
		AuthorID:  authorID,
		Title:     strings.TrimSpace(title),
		Content:   strings.TrimSpace(content),
		CreatedAt: now,
		Comments:  []*Comment{},
	}
}

func NewComment(id, postID, authorID, content string, now time.Time) *Comment {
	return &Comment{
		ID:        id,
		PostID:    postID,
		AuthorID:  authorID,
		Content:   strings.TrimSpace(content),
		CreatedAt: now,
	}
}

func (p *Post) Validate() error {
	if p.AuthorID == "" {
		return ErrMissingAuthor
	}
	if utf8.RuneCountInString(p.Title) > MaxTitleRunes {
		return ErrTitleTooLong
	}
	return checkContent(p.Content, MaxContentRunes)
}

func (c *Comment) Validate() error {
	if c.AuthorID == "" {
		return ErrMissingAuthor
	}
	return checkContent(c.Content, MaxCommentRunes)
}

func checkContent(s string, max int) error {
	if s == "" {
		return ErrEmptyContent
	}
	if utf8.RuneCountInString(s) > max {
		return ErrContentTooLong
	}
	return nil
}
