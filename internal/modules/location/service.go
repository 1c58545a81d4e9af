// README: Location reporter: periodic GPS upsert keyed by courier id,
// consumed for display only.
package location

import (
	"context"

	"kedai/internal/fault"
	"kedai/internal/types"
)

type Positions interface {
	Upsert(ctx context.Context, courierID int64, p types.Point) error
	Position(ctx context.Context, courierID int64) (types.Point, bool, error)
	Remove(ctx context.Context, courierID int64) error
}

type Service struct {
	positions Positions
}

func NewService(positions Positions) *Service {
	return &Service{positions: positions}
}

func (s *Service) Report(ctx context.Context, actor types.Principal, p types.Point) error {
	if actor.Role != types.RoleCourier {
		return fault.New(fault.Forbidden, "only couriers report their position")
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return fault.New(fault.PreconditionFailed, "coordinates out of range")
	}
	return s.positions.Upsert(ctx, actor.ID, p)
}

// Clear removes the caller's published position, e.g. at the end of a shift.
func (s *Service) Clear(ctx context.Context, actor types.Principal) error {
	if actor.Role != types.RoleCourier {
		return fault.New(fault.Forbidden, "only couriers clear their position")
	}
	return s.positions.Remove(ctx, actor.ID)
}

func (s *Service) Locate(ctx context.Context, actor types.Principal, courierID int64) (types.Point, bool, error) {
	if actor.Role != types.RoleAdmin && actor.Role != types.RoleCustomer {
		if !(actor.Role == types.RoleCourier && actor.ID == courierID) {
			return types.Point{}, false, fault.New(fault.Forbidden, "cannot read this courier position")
		}
	}
	return s.positions.Position(ctx, courierID)
}
