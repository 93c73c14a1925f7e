package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/ovaphlow/pitchfork/service-forum-core/internal/post/entity"
)

// MemoryRepo is an in-process post store.
type MemoryRepo struct {
	mu       sync.RWMutex
	posts    map[string]*entity.Post
	comments map[string][]*entity.Comment
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		posts:    make(map[string]*entity.Post),
		comments: make(map[string][]*entity.Comment),
	}
}

func (r *MemoryRepo) CreatePost(ctx context.Context, p *entity.Post) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *p
	c.Comments = nil
	r.posts[p.ID] = &c
	return nil
}

func (r *MemoryRepo) GetPost(ctx context.Context, id string) (*entity.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.withComments(p), nil
}

func (r *MemoryRepo) ListPosts(ctx context.Context, f Filter) ([]*entity.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*entity.Post{}
	for _, p := range r.posts {
		if f.AuthorID != "" && p.AuthorID != f.AuthorID {
			continue
		}
		matched = append(matched, p)
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
	out := make([]*entity.Post, 0, end-start)
	for _, p := range matched[start:end] {
		out = append(out, r.withComments(p))
	}
	return out, nil
}

func (r *MemoryRepo) CreateComment(ctx context.Context, c *entity.Comment) error {
	if err := c.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[c.PostID]; !ok {
		return ErrNotFound
	}
	cc := *c
	r.comments[c.PostID] = append(r.comments[c.PostID], &cc)
	return nil
}

// withComments copies p and its comments; callers hold the lock.
func (r *MemoryRepo) withComments(p *entity.Post) *entity.Post {
	c := *p
	c.Comments = make([]*entity.Comment, 0, len(r.comments[p.ID]))
	for _, cm := range r.comments[p.ID] {
		cc := *cm
		c.Comments = append(c.Comments, &cc)
	}
	return &c
}
