package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/ovaphlow/pitchfork/service-forum-core/internal/group/entity"
)

// MemoryRepo is an in-process group store.
type MemoryRepo struct {
	mu      sync.RWMutex
	groups  map[string]*entity.Group
	byName  map[string]string
	members map[string][]*entity.Member
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		groups:  make(map[string]*entity.Group),
		byName:  make(map[string]string),
		members: make(map[string][]*entity.Member),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, g *entity.Group) error {
	if err := g.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := entity.NameKey(g.Name)
	if _, ok := r.byName[key]; ok {
		return ErrDuplicate
	}
	if _, ok := r.groups[g.ID]; ok {
		return ErrDuplicate
	}
	c := *g
	c.Members = nil
	r.groups[g.ID] = &c
	r.byName[key] = g.ID
	r.members[g.ID] = []*entity.Member{{GroupID: g.ID, AccountID: g.CreatorID, JoinedAt: g.CreatedAt}}
	g.MemberCount = 1
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (*entity.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.groups[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.snapshot(g), nil
}

func (r *MemoryRepo) List(ctx context.Context, f Filter) ([]*entity.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*entity.Group{}
	for id, g := range r.groups {
		if f.MemberID != "" && r.indexOf(id, f.MemberID) < 0 {
			continue
		}
		matched = append(matched, r.snapshot(g))
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID < matched[j].ID
	})
	start := min(f.Offset, len(matched))
	end := len(matched)
	if f.Limit > 0 && start+f.Limit < end {
		end = start + f.Limit
	}
	return matched[start:end], nil
}

func (r *MemoryRepo) ListMembers(ctx context.Context, groupID string) ([]*entity.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.Member, 0, len(r.members[groupID]))
	for _, m := range r.members[groupID] {
		c := *m
		out = append(out, &c)
	}
	return out, nil
}

func (r *MemoryRepo) AddMember(ctx context.Context, m *entity.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.groups[m.GroupID]; !ok {
		return ErrNotFound
	}
	if r.indexOf(m.GroupID, m.AccountID) >= 0 {
		return ErrDuplicate
	}
	c := *m
	r.members[m.GroupID] = append(r.members[m.GroupID], &c)
	return nil
}

func (r *MemoryRepo) RemoveMember(ctx context.Context, groupID, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(groupID, accountID)
	if i < 0 {
		return ErrNotFound
	}
	ms := r.members[groupID]
	r.members[groupID] = append(ms[:i:i], ms[i+1:]...)
	return nil
}

// callers hold the lock
func (r *MemoryRepo) indexOf(groupID, accountID string) int {
	for i, m := range r.members[groupID] {
		if m.AccountID == accountID {
			return i
		}
	}
	return -1
}

func (r *MemoryRepo) snapshot(g *entity.Group) *entity.Group {
	c := *g
	c.MemberCount = len(r.members[g.ID])
	return &c
}
