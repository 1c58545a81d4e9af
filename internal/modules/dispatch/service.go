// README: Claim coordinator and admin assignment path. All arbitration
// happens under the order lease so two racing claimants cannot both win.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"kedai/internal/config"
	"kedai/internal/fault"
	"kedai/internal/metrics"
	"kedai/internal/modules/courier"
	"kedai/internal/modules/notification"
	"kedai/internal/modules/order"
	"kedai/internal/types"
)

type Service struct {
	store  order.Store
	orders *order.Service
	cfg    config.DispatchConfig
	log    *zap.SugaredLogger
}

func NewService(store order.Store, orders *order.Service, cfg config.DispatchConfig, log *zap.SugaredLogger) *Service {
	return &Service{store: store, orders: orders, cfg: cfg, log: log}
}

type ClaimCommand struct {
	OrderID int64
	Actor   types.Principal
}

// Claim is courier self-assignment. Every precondition is checked with the
// order row leased; a precondition failure aborts the whole unit of work,
// so the losing claimant of a race observes the already-assigned row and
// nothing else changes.
func (s *Service) Claim(ctx context.Context, cmd ClaimCommand) error {
	if cmd.Actor.Role != types.RoleCourier {
		return fault.New(fault.Forbidden, "only couriers claim orders")
	}
	err := s.store.Lease(ctx, cmd.OrderID, func(ctx context.Context, uow order.UnitOfWork) error {
		c, err := uow.Courier(ctx, cmd.Actor.ID)
		if err != nil {
			return err
		}
		if !c.Active {
			return fault.New(fault.PreconditionFailed, "courier account is inactive")
		}
		active, err := uow.ActiveOrderCount(ctx, c.ID)
		if err != nil {
			return err
		}
		if active >= s.cfg.MaxActiveOrders {
			return fault.Newf(fault.PreconditionFailed, "active order limit reached (%d of %d)", active, s.cfg.MaxActiveOrders)
		}

		o := uow.Order()
		if o.CourierID != nil {
			return fault.New(fault.PreconditionFailed, "already claimed")
		}
		if o.PaymentStatus != order.Paid {
			return fault.New(fault.PreconditionFailed, "order is not paid yet")
		}
		if o.DeliveryMethod != order.Delivery {
			return fault.New(fault.PreconditionFailed, "order is for pickup, not delivery")
		}
		if o.PaymentMethod == order.PaymentCOD {
			return fault.New(fault.PreconditionFailed, "cash on delivery orders are assigned by admin")
		}
		if !o.Status.Claimable() {
			return fault.Newf(fault.PreconditionFailed, "order in %s cannot be claimed", o.Status)
		}

		now := time.Now()
		courierID := c.ID
		o.CourierID = &courierID
		o.AssignedAt = &now
		if err := uow.UpdateOrder(ctx, o); err != nil {
			return err
		}
		if err := uow.Notify(ctx, &notification.Notification{
			Recipient:   notification.ToCustomer,
			RecipientID: o.CustomerID,
			Type:        notification.TypeCourierAssigned,
			Message:     fmt.Sprintf("%s is handling order %s", c.Name, o.Number),
			Payload: map[string]any{
				"order_id":     o.ID,
				"order_number": o.Number,
				"courier_id":   c.ID,
			},
			CreatedAt: now,
		}); err != nil {
			return err
		}
		if active+1 >= s.cfg.BusyThreshold && c.Availability != courier.Busy {
			c.Availability = courier.Busy
			if err := uow.UpdateCourier(ctx, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		metrics.ClaimsTotal.WithLabelValues("rejected").Inc()
		return err
	}
	metrics.ClaimsTotal.WithLabelValues("won").Inc()
	s.log.Infow("order claimed", "order_id", cmd.OrderID, "courier_id", cmd.Actor.ID)
	return nil
}

type AssignCommand struct {
	OrderID   int64
	CourierID int64
	Actor     types.Principal
}

// Assign is the privileged dispatch path for cash-on-delivery orders and
// manual overrides. It binds the courier and advances the order one step
// forward, logged with the admin actor. The self-service cap is consulted
// only when AdminAssignEnforcesCap is set.
func (s *Service) Assign(ctx context.Context, cmd AssignCommand) error {
	if cmd.Actor.Role != types.RoleAdmin {
		return fault.New(fault.Forbidden, "only admins assign couriers")
	}
	err := s.store.Lease(ctx, cmd.OrderID, func(ctx context.Context, uow order.UnitOfWork) error {
		c, err := uow.Courier(ctx, cmd.CourierID)
		if err != nil {
			return err
		}
		if !c.Active {
			return fault.New(fault.PreconditionFailed, "courier account is inactive")
		}
		if c.Availability != courier.Available {
			return fault.Newf(fault.PreconditionFailed, "courier is %s", c.Availability)
		}
		if s.cfg.AdminAssignEnforcesCap {
			active, err := uow.ActiveOrderCount(ctx, c.ID)
			if err != nil {
				return err
			}
			if active >= s.cfg.MaxActiveOrders {
				return fault.Newf(fault.PreconditionFailed, "active order limit reached (%d of %d)", active, s.cfg.MaxActiveOrders)
			}
		}

		o := uow.Order()
		next, ok := order.ForwardSuccessor(o.Status)
		if !ok || !o.Status.Claimable() {
			return fault.Newf(fault.PreconditionFailed, "order in %s cannot be dispatched", o.Status)
		}
		if o.DeliveryMethod != order.Delivery {
			return fault.New(fault.PreconditionFailed, "order is for pickup, not delivery")
		}

		now := time.Now()
		courierID := c.ID
		o.CourierID = &courierID
		o.AssignedAt = &now
		if err := uow.UpdateOrder(ctx, o); err != nil {
			return err
		}
		if err := s.orders.Apply(ctx, uow, next, cmd.Actor, "assigned by admin", map[string]any{"courier_id": c.ID}); err != nil {
			return err
		}
		if c.Availability != courier.Busy {
			c.Availability = courier.Busy
			if err := uow.UpdateCourier(ctx, c); err != nil {
				return err
			}
		}
		return uow.Notify(ctx, &notification.Notification{
			Recipient:   notification.ToCourier,
			RecipientID: c.ID,
			Type:        notification.TypeCourierAssigned,
			Message:     fmt.Sprintf("You were assigned order %s", o.Number),
			Payload: map[string]any{
				"order_id":     o.ID,
				"order_number": o.Number,
			},
			CreatedAt: now,
		})
	})
	if err != nil {
		return err
	}
	s.log.Infow("order assigned", "order_id", cmd.OrderID, "courier_id", cmd.CourierID, "admin_id", cmd.Actor.ID)
	return nil
}
