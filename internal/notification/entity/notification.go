package entity

import (
	"errors"
	"time"
)

// Kind names what a notification is about.
type Kind string

const (
	KindPasswordReset Kind = "password_reset"
	KindComment       Kind = "comment"
)

var (
	ErrMissingRecipient = errors.New("notification needs a recipient")
	ErrMissingContent   = errors.New("notification needs content")
)

// Notification is an in-app message for one account.
type Notification struct {
	ID        string     `db:"id" json:"id"`
	AccountID string     `db:"account_id" json:"account_id"`
	Kind      Kind       `db:"kind" json:"kind"`
	Content   string     `db:"content" json:"content"`
	RefID     string     `db:"ref_id" json:"ref_id,omitempty"`
	IsRead    bool       `db:"is_read" json:"is_read"`
	CreatedAt time.Time  `db:"created_at" json:"date_sent"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
}

func New(id, accountID string, kind Kind, content, refID string, now time.Time) *Notification {
	return &Notification{
		ID:        id,
		AccountID: accountID,
		Kind:      kind,
		Content:   content,
		RefID:     refID,
		CreatedAt: now,
	}
}

func (n *Notification) Validate() error {
	if n.ID == "" || n.AccountID == "" {
		return ErrMissingRecipient
	}
	if n.Content == "" {
		return ErrMissingContent
	}
	return nil
}
