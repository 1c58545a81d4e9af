// README: Courier profile operations: availability toggles and soft deactivation.
package courier

import (
	"context"

	"kedai/internal/fault"
	"kedai/internal/types"
)

type Store interface {
	Courier(ctx context.Context, id int64) (*Courier, error)
	UpdateCourier(ctx context.Context, c *Courier) error
	ActiveOrderCount(ctx context.Context, courierID int64) (int, error)

	// LeaseCourier runs fn with the courier row locked. Check-then-write
	// sequences on a courier must live inside the lease so they cannot
	// interleave with claim bindings or other profile writes.
	LeaseCourier(ctx context.Context, courierID int64, fn func(ctx context.Context, uow UnitOfWork) error) error
}

// UnitOfWork is the write scope inside a courier lease.
type UnitOfWork interface {
	Courier() *Courier
	UpdateCourier(ctx context.Context, c *Courier) error
	ActiveOrderCount(ctx context.Context, courierID int64) (int, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

type Profile struct {
	Courier      Courier
	ActiveOrders int
}

func (s *Service) Profile(ctx context.Context, actor types.Principal, courierID int64) (*Profile, error) {
	if actor.Role != types.RoleAdmin && !(actor.Role == types.RoleCourier && actor.ID == courierID) {
		return nil, fault.New(fault.Forbidden, "not your courier profile")
	}
	c, err := s.store.Courier(ctx, courierID)
	if err != nil {
		return nil, err
	}
	n, err := s.store.ActiveOrderCount(ctx, courierID)
	if err != nil {
		return nil, err
	}
	return &Profile{Courier: *c, ActiveOrders: n}, nil
}

// SetAvailability lets a courier go available or offline. Busy is managed by
// the dispatch engine and cannot be requested directly.
func (s *Service) SetAvailability(ctx context.Context, actor types.Principal, target Availability) error {
	if actor.Role != types.RoleCourier {
		return fault.New(fault.Forbidden, "only couriers set their availability")
	}
	if target != Available && target != Offline {
		return fault.Newf(fault.PreconditionFailed, "availability %q cannot be requested", target)
	}
	return s.store.LeaseCourier(ctx, actor.ID, func(ctx context.Context, uow UnitOfWork) error {
		c := uow.Courier()
		if !c.Active {
			return fault.New(fault.PreconditionFailed, "courier account is inactive")
		}
		c.Availability = target
		return uow.UpdateCourier(ctx, c)
	})
}

// Deactivate soft-disables a courier account. Refused while the courier
// still holds active orders.
func (s *Service) Deactivate(ctx context.Context, actor types.Principal, courierID int64) error {
	if actor.Role != types.RoleAdmin {
		return fault.New(fault.Forbidden, "only admins deactivate couriers")
	}
	return s.store.LeaseCourier(ctx, courierID, func(ctx context.Context, uow UnitOfWork) error {
		n, err := uow.ActiveOrderCount(ctx, courierID)
		if err != nil {
			return err
		}
		if n > 0 {
			return fault.Newf(fault.PreconditionFailed, "courier has %d active orders", n)
		}
		c := uow.Courier()
		c.Active = false
		c.Availability = Offline
		return uow.UpdateCourier(ctx, c)
	})
}
