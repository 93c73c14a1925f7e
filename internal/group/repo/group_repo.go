package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-forum-core/internal/group/entity"
)

var (
	ErrNotFound  = errors.New("group not found")
	ErrDuplicate = errors.New("group or membership already exists")
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Filter narrows a group listing. MemberID limits it to groups that
// account belongs to.
type Filter struct {
	MemberID string
	Limit    int
	Offset   int
}

const groupSelect = `SELECT g.id, g.name, g.description, g.creator_id, g.created_at,
	(SELECT COUNT(*) FROM group_members m WHERE m.group_id = g.id) AS member_count
	FROM forum_groups g`

// GroupRepo provides data access for forum_groups and group_members.
type GroupRepo struct {
	db *sqlx.DB
}

func NewGroupRepo(db *sqlx.DB) *GroupRepo { return &GroupRepo{db: db} }

// Create inserts g and the creator's membership in one transaction. A name
// already in use, ignoring case, surfaces as ErrDuplicate.
func (r *GroupRepo) Create(ctx context.Context, g *entity.Group) error {
	if err := g.Validate(); err != nil {
		return err
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO forum_groups (id, name, description, creator_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
		g.ID, g.Name, g.Description, g.CreatorID, g.CreatedAt); err != nil {
		return mapErr(err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO group_members (group_id, account_id, joined_at) VALUES ($1, $2, $3)`,
		g.ID, g.CreatorID, g.CreatedAt); err != nil {
		return mapErr(err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	g.MemberCount = 1
	return nil
}

func (r *GroupRepo) GetByID(ctx context.Context, id string) (*entity.Group, error) {
	var g entity.Group
	if err := r.db.GetContext(ctx, &g, groupSelect+` WHERE g.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &g, nil
}

// List returns groups ordered by name.
func (r *GroupRepo) List(ctx context.Context, f Filter) ([]*entity.Group, error) {
	where := []string{}
	args := []any{}
	if f.MemberID != "" {
		args = append(args, f.MemberID)
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM group_members x WHERE x.group_id = g.id AND x.account_id = $%d)", len(args)))
	}
	q := groupSelect
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	q += fmt.Sprintf(" ORDER BY g.name, g.id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	out := []*entity.Group{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// ListMembers returns the members of groupID in joining order.
func (r *GroupRepo) ListMembers(ctx context.Context, groupID string) ([]*entity.Member, error) {
	const q = `SELECT group_id, account_id, joined_at FROM group_members
		WHERE group_id = $1 ORDER BY joined_at, account_id`
	out := []*entity.Member{}
	if err := r.db.SelectContext(ctx, &out, q, groupID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// AddMember inserts a membership. An existing membership is ErrDuplicate and
// an unknown group or account is ErrNotFound.
func (r *GroupRepo) AddMember(ctx context.Context, m *entity.Member) error {
	const q = `INSERT INTO group_members (group_id, account_id, joined_at) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, q, m.GroupID, m.AccountID, m.JoinedAt); err != nil {
		return mapErr(err)
	}
	return nil
}

// RemoveMember deletes a membership, or returns ErrNotFound if there was none.
func (r *GroupRepo) RemoveMember(ctx context.Context, groupID, accountID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = $1 AND account_id = $2`, groupID, accountID)
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

func mapErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolation:
			return ErrDuplicate
		case foreignKeyViolation:
			return ErrNotFound
		}
	}
	return fmt.Errorf("db error: %w", err)
}
