package repo

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/ovaphlow/pitchfork/service-forum-core/internal/account/entity"
)

// MemoryRepo is an in-process account store. A single mutex guards every
// read and every read-modify-write, which gives the same per-account
// atomicity as the row lock in AccountRepo.
type MemoryRepo struct {
	mu         sync.Mutex
	clock      clockwork.Clock
	byID       map[string]*entity.Account
	byUsername map[string]string
	byEmail    map[string]string
}

func NewMemoryRepo(clock clockwork.Clock) *MemoryRepo {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryRepo{
		clock:      clock,
		byID:       make(map[string]*entity.Account),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, a *entity.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[a.ID]; ok {
		return ErrDuplicate
	}
	if _, ok := r.byUsername[a.Username]; ok {
		return ErrDuplicate
	}
	if _, ok := r.byEmail[a.Email]; ok {
		return ErrDuplicate
	}
	r.byID[a.ID] = a.Clone()
	r.byUsername[a.Username] = a.ID
	r.byEmail[a.Email] = a.ID
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a.Clone(), nil
}

func (r *MemoryRepo) GetByUsername(ctx context.Context, username string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookup(r.byUsername, username)
}

func (r *MemoryRepo) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookup(r.byEmail, email)
}

func (r *MemoryRepo) GetByResetToken(ctx context.Context, token string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.ResetToken != nil && *a.ResetToken == token {
			return a.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepo) lookup(index map[string]string, key string) (*entity.Account, error) {
	id, ok := index[key]
	if !ok {
		return nil, ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

// Update applies fn to a copy of the stored account and swaps it in only if
// fn succeeds and the result is valid.
func (r *MemoryRepo) Update(ctx context.Context, id string, fn UpdateFunc) (*entity.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if next.ID != cur.ID || next.Username != cur.Username || next.Email != cur.Email {
		return nil, ErrImmutable
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	next.UpdatedAt = r.clock.Now().UTC()
	r.byID[id] = next
	return next.Clone(), nil
}
