package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-forum-core/internal/account/entity"
)

var (
	ErrNotFound  = errors.New("account not found")
	ErrDuplicate = errors.New("account already exists")
	// ErrImmutable is returned when an update tries to change id, username or email.
	ErrImmutable = errors.New("account identity is immutable")
)

// UpdateFunc mutates an account inside an atomic read-modify-write.
// Returning an error aborts the update and nothing is written.
type UpdateFunc func(a *entity.Account) error

const uniqueViolation = "23505"

const accountColumns = `id, username, email, password_hash, is_online, points, level,
	last_checkin, reset_token, reset_token_expiry, created_at, updated_at`

// AccountRepo provides data access for the accounts table using sqlx.
type AccountRepo struct {
	db *sqlx.DB
}

func NewAccountRepo(db *sqlx.DB) *AccountRepo { return &AccountRepo{db: db} }

// Create inserts a new account row. Unique violations on username or email
// surface as ErrDuplicate.
func (r *AccountRepo) Create(ctx context.Context, a *entity.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	const q = `INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.ExecContext(ctx, q,
		a.ID, a.Username, a.Email, a.PasswordHash, a.IsOnline, a.Points, a.Level,
		a.LastCheckin, a.ResetToken, a.ResetTokenExpiry, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID fetches an account by id.
func (r *AccountRepo) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

// GetByUsername fetches an account by username.
func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*entity.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
}

// GetByEmail fetches an account by (lower-cased) email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email)
}

// GetByResetToken fetches the account holding the given reset token, expired or not.
func (r *AccountRepo) GetByResetToken(ctx context.Context, token string) (*entity.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE reset_token = $1`, token)
}

func (r *AccountRepo) getOne(ctx context.Context, q string, arg any) (*entity.Account, error) {
	var row entity.Account
	if err := r.db.GetContext(ctx, &row, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &row, nil
}

// Update locks the row with SELECT ... FOR UPDATE, applies fn and writes the
// result back in the same transaction. Two concurrent updates of one account
// are serialized by the row lock.
func (r *AccountRepo) Update(ctx context.Context, id string, fn UpdateFunc) (*entity.Account, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var row entity.Account
	if err := tx.GetContext(ctx, &row, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	before := row.Clone()
	if err := fn(&row); err != nil {
		return nil, err
	}
	if row.ID != before.ID || row.Username != before.Username || row.Email != before.Email {
		return nil, ErrImmutable
	}
	if err := row.Validate(); err != nil {
		return nil, err
	}

	const q = `UPDATE accounts SET password_hash=$2, is_online=$3, points=$4, level=$5,
		last_checkin=$6, reset_token=$7, reset_token_expiry=$8, updated_at=NOW()
		WHERE id=$1 RETURNING updated_at`
	if err := tx.GetContext(ctx, &row.UpdatedAt, q,
		row.ID, row.PasswordHash, row.IsOnline, row.Points, row.Level,
		row.LastCheckin, row.ResetToken, row.ResetTokenExpiry); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &row, nil
}
