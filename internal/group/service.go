// Package group manages forum groups and their memberships.
package group

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/ovaphlow/pitchfork/service-forum-core/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/group/entity"
	grouprepo "github.com/ovaphlow/pitchfork/service-forum-core/internal/group/repo"
	"github.com/ovaphlow/pitchfork/service-forum-core/pkg/utilities"
)

var (
	errGroupNotFound = apperr.New(apperr.CodeNotFound, "group not found")
	errNotMember     = apperr.New(apperr.CodeNotFound, "not a member of this group")
	errNameTaken     = apperr.New(apperr.CodeConflict, "group name already taken")
	errAlreadyMember = apperr.New(apperr.CodeConflict, "already a member of this group")
)

type Store interface {
	Create(ctx context.Context, g *entity.Group) error
	GetByID(ctx context.Context, id string) (*entity.Group, error)
	List(ctx context.Context, f grouprepo.Filter) ([]*entity.Group, error)
	ListMembers(ctx context.Context, groupID string) ([]*entity.Member, error)
	AddMember(ctx context.Context, m *entity.Member) error
	RemoveMember(ctx context.Context, groupID, accountID string) error
}

type Service struct {
	store Store
	clock clockwork.Clock
	newID func() string
}

func NewService(store Store, clock clockwork.Clock, newID func() string) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{store: store, clock: clock, newID: newID}
}

// Create makes a group with creatorID as its first member.
func (s *Service) Create(ctx context.Context, creatorID, name, description string) (*entity.Group, error) {
	g := entity.NewGroup(s.newID(), name, description, creatorID, s.clock.Now().UTC())
	if err := s.store.Create(ctx, g); err != nil {
		switch {
		case errors.Is(err, grouprepo.ErrDuplicate):
			return nil, errNameTaken
		case errors.Is(err, grouprepo.ErrNotFound):
			return nil, apperr.ErrNotFound
		case isValidation(err):
			return nil, apperr.InvalidArgument(err.Error())
		}
		return nil, fmt.Errorf("create group: %w", err)
	}
	return s.Get(ctx, g.ID)
}

// Get returns a group with its members.
func (s *Service) Get(ctx context.Context, id string) (*entity.Group, error) {
	g, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, grouprepo.ErrNotFound) {
			return nil, errGroupNotFound
		}
		return nil, fmt.Errorf("get group: %w", err)
	}
	if g.Members, err = s.store.ListMembers(ctx, id); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return g, nil
}

// List returns groups by name. A non-empty memberID keeps only the groups
// that account belongs to.
func (s *Service) List(ctx context.Context, memberID string, page utilities.Page) ([]*entity.Group, error) {
	out, err := s.store.List(ctx, grouprepo.Filter{MemberID: memberID, Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return out, nil
}

// Join adds accountID to groupID.
func (s *Service) Join(ctx context.Context, groupID, accountID string) (*entity.Group, error) {
	if _, err := s.store.GetByID(ctx, groupID); err != nil {
		if errors.Is(err, grouprepo.ErrNotFound) {
			return nil, errGroupNotFound
		}
		return nil, fmt.Errorf("get group: %w", err)
	}
	err := s.store.AddMember(ctx, &entity.Member{GroupID: groupID, AccountID: accountID, JoinedAt: s.clock.Now().UTC()})
	switch {
	case errors.Is(err, grouprepo.ErrDuplicate):
		return nil, errAlreadyMember
	case errors.Is(err, grouprepo.ErrNotFound):
		return nil, errGroupNotFound
	case err != nil:
		return nil, fmt.Errorf("join group: %w", err)
	}
	return s.Get(ctx, groupID)
}

// Leave removes accountID from groupID. Groups persist with no members.
func (s *Service) Leave(ctx context.Context, groupID, accountID string) error {
	if _, err := s.store.GetByID(ctx, groupID); err != nil {
		if errors.Is(err, grouprepo.ErrNotFound) {
			return errGroupNotFound
		}
		return fmt.Errorf("get group: %w", err)
	}
	if err := s.store.RemoveMember(ctx, groupID, accountID); err != nil {
		if errors.Is(err, grouprepo.ErrNotFound) {
			return errNotMember
		}
		return fmt.Errorf("leave group: %w", err)
	}
	return nil
}

func isValidation(err error) bool {
	return errors.Is(err, entity.ErrEmptyName) || errors.Is(err, entity.ErrNameTooLong) ||
		errors.Is(err, entity.ErrDescriptionTooLong) || errors.Is(err, entity.ErrMissingCreator)
}
