package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-forum-core/internal/notification/entity"
)

var ErrNotFound = errors.New("notification not found")

// Filter selects notifications of one account, newest first.
type Filter struct {
	AccountID  string
	UnreadOnly bool
	Limit      int
	Offset     int
}

const notificationColumns = `id, account_id, kind, content, ref_id, is_read, created_at, read_at`

// NotificationRepo provides data access for the notifications table.
type NotificationRepo struct {
	db *sqlx.DB
}

func NewNotificationRepo(db *sqlx.DB) *NotificationRepo { return &NotificationRepo{db: db} }

func (r *NotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	const q = `INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := r.db.ExecContext(ctx, q,
		n.ID, n.AccountID, n.Kind, n.Content, n.RefID, n.IsRead, n.CreatedAt, n.ReadAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// List returns the notifications matching f.
func (r *NotificationRepo) List(ctx context.Context, f Filter) ([]*entity.Notification, error) {
	where := []string{"account_id = $1"}
	args := []any{f.AccountID}
	if f.UnreadOnly {
		where = append(where, "is_read = FALSE")
	}
	args = append(args, f.Limit, f.Offset)
	q := fmt.Sprintf(`SELECT `+notificationColumns+` FROM notifications WHERE %s
		ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		strings.Join(where, " AND "), len(args)-1, len(args))

	out := []*entity.Notification{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// MarkRead flags one notification of accountID as read. Marking an already
// read notification is a no-op; another account's notification is ErrNotFound.
func (r *NotificationRepo) MarkRead(ctx context.Context, accountID, id string, at time.Time) error {
	const q = `UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND account_id = $2`
	res, err := r.db.ExecContext(ctx, q, id, accountID, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead flags every unread notification of accountID and returns how
// many changed.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, accountID string, at time.Time) (int64, error) {
	const q = `UPDATE notifications SET is_read = TRUE, read_at = $2
		WHERE account_id = $1 AND is_read = FALSE`
	res, err := r.db.ExecContext(ctx, q, accountID, at)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
