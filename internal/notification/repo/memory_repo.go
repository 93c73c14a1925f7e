package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ovaphlow/pitchfork/service-forum-core/internal/notification/entity"
)

// MemoryRepo is an in-process notification store.
type MemoryRepo struct {
	mu   sync.Mutex
	byID map[string]*entity.Notification
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]*entity.Notification)}
}

func (r *MemoryRepo) Create(ctx context.Context, n *entity.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *n
	r.byID[n.ID] = &c
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, f Filter) ([]*entity.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := []*entity.Notification{}
	for _, n := range r.byID {
		if n.AccountID != f.AccountID || (f.UnreadOnly && n.IsRead) {
			continue
		}
		c := *n
		matched = append(matched, &c)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	start := min(f.Offset, len(matched))
	end := len(matched)
	if f.Limit > 0 && start+f.Limit < end {
		end = start + f.Limit
	}
	return matched[start:end], nil
}

func (r *MemoryRepo) MarkRead(ctx context.Context, accountID, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	if !ok || n.AccountID != accountID {
		return ErrNotFound
	}
	if !n.IsRead {
		n.IsRead = true
		n.ReadAt = &at
	}
	return nil
}

func (r *MemoryRepo) MarkAllRead(ctx context.Context, accountID string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var changed int64
	for _, n := range r.byID {
		if n.AccountID == accountID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &at
			changed++
		}
	}
	return changed, nil
}
