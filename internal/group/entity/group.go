package entity

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxNameRunes        = 64
	MaxDescriptionRunes = 500
)

var (
	ErrEmptyName          = errors.New("group name must not be empty")
	ErrNameTooLong        = errors.New("group name is too long")
	ErrDescriptionTooLong = errors.New("group description is too long")
	ErrMissingCreator     = errors.New("group creator is required")
)

// Group is a named set of accounts.
type Group struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreatorID   string    `db:"creator_id" json:"creator_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	MemberCount int       `db:"member_count" json:"member_count"`
	Members     []*Member `db:"-" json:"members,omitempty"`
}

// Member records that an account joined a group.
type Member struct {
	GroupID   string    `db:"group_id" json:"group_id"`
	AccountID string    `db:"account_id" json:"user_id"`
	JoinedAt  time.Time `db:"joined_at" json:"joined_at"`
}

func NewGroup(id, name, description, creatorID string, now time.Time) *Group {
	return &Group{
		ID:          id,
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		CreatorID:   creatorID,
		CreatedAt:   now,
	}
}

func (g *Group) Validate() error {
	if g.CreatorID == "" {
		return ErrMissingCreator
	}
	if g.Name == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(g.Name) > MaxNameRunes {
		return ErrNameTooLong
	}
	if utf8.RuneCountInString(g.Description) > MaxDescriptionRunes {
		return ErrDescriptionTooLong
	}
	return nil
}

// NameKey is the case-insensitive form used for uniqueness.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
