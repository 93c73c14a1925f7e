// Package economy implements the daily check-in reward and the
// points-for-level upgrade.
//
// Check-in eligibility uses a rolling window: an account may check in again
// once CheckInWindow has elapsed since its previous check-in, regardless of
// calendar day boundaries.
package economy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ovaphlow/pitchfork/service-forum-core/internal/account/entity"
	accountrepo "github.com/ovaphlow/pitchfork/service-forum-core/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/apperr"
)

const (
	CheckInReward int64 = 10
	CheckInWindow       = 24 * time.Hour
)

// Store is the atomic read-modify-write the economy needs.
type Store interface {
	Update(ctx context.Context, id string, fn accountrepo.UpdateFunc) (*entity.Account, error)
}

type Service struct {
	store Store
	clock clockwork.Clock
}

func NewService(store Store, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{store: store, clock: clock}
}

// CanCheckIn reports whether a check-in at now is allowed after last.
func CanCheckIn(last *time.Time, now time.Time) bool {
	if last == nil {
		return true
	}
	return !now.Before(last.Add(CheckInWindow))
}

// CheckIn credits CheckInReward points and returns the new balance, or
// ErrAlreadyCheckedIn if the window since the last check-in is still open.
func (s *Service) CheckIn(ctx context.Context, accountID string) (int64, error) {
	now := s.clock.Now().UTC()
	a, err := s.store.Update(ctx, accountID, func(acc *entity.Account) error {
		if !CanCheckIn(acc.LastCheckin, now) {
			return apperr.ErrAlreadyCheckedIn
		}
		acc.Points += CheckInReward
		acc.LastCheckin = &now
		return nil
	})
	if err != nil {
		return 0, mapErr(err, "check in")
	}
	return a.Points, nil
}

// Upgrade spends cost points for exactly one level.
func (s *Service) Upgrade(ctx context.Context, accountID string, cost int64) (level int64, points int64, err error) {
	if cost < 0 {
		return 0, 0, apperr.InvalidArgument("cost must be a non-negative integer")
	}
	a, err := s.store.Update(ctx, accountID, func(acc *entity.Account) error {
		if acc.Points < cost {
			return apperr.ErrInsufficientPoints
		}
		acc.Points -= cost
		acc.Level++
		return nil
	})
	if err != nil {
		return 0, 0, mapErr(err, "upgrade")
	}
	return a.Level, a.Points, nil
}

func mapErr(err error, op string) error {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, accountrepo.ErrNotFound):
		return apperr.ErrNotFound
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
