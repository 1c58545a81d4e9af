// README: Order service: the single transition primitive, its guards, and
// the side-effect dispatcher every entry point funnels through.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kedai/internal/config"
	"kedai/internal/fault"
	"kedai/internal/metrics"
	"kedai/internal/modules/courier"
	"kedai/internal/modules/notification"
	"kedai/internal/types"
)

type Service struct {
	store   Store
	files   FileStore
	loyalty config.LoyaltyConfig
	photo   config.PhotoConfig
	log     *zap.SugaredLogger
}

func NewService(store Store, files FileStore, loyalty config.LoyaltyConfig, photo config.PhotoConfig, log *zap.SugaredLogger) *Service {
	return &Service{store: store, files: files, loyalty: loyalty, photo: photo, log: log}
}

type CreateCommand struct {
	Actor          types.Principal
	PaymentMethod  PaymentMethod
	DeliveryMethod DeliveryMethod
}

// Create opens an order from checkout. Non-COD orders start in
// pending_payment and wait for the payment collaborator; COD orders are
// collected at the door, so they start in waiting_confirmation and go
// through the verification gate instead.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Order, error) {
	if cmd.Actor.Role != types.RoleCustomer {
		return nil, fault.New(fault.Forbidden, "only customers create orders")
	}
	if !cmd.PaymentMethod.Valid() {
		return nil, fault.Newf(fault.PreconditionFailed, "unknown payment method %q", cmd.PaymentMethod)
	}
	if !cmd.DeliveryMethod.Valid() {
		return nil, fault.Newf(fault.PreconditionFailed, "unknown delivery method %q", cmd.DeliveryMethod)
	}

	now := time.Now()
	initial := StatusPendingPayment
	if cmd.PaymentMethod == PaymentCOD {
		initial = StatusWaitingConfirmation
	}
	o := &Order{
		Number:         newOrderNumber(now),
		CustomerID:     cmd.Actor.ID,
		Status:         initial,
		PaymentMethod:  cmd.PaymentMethod,
		PaymentStatus:  Unpaid,
		DeliveryMethod: cmd.DeliveryMethod,
		CreatedAt:      now,
	}
	actorID := cmd.Actor.ID
	opening := &TransitionLog{
		FromStatus: StatusNone,
		ToStatus:   initial,
		ActorRole:  types.RoleCustomer,
		ActorID:    &actorID,
		Note:       "order created",
		CreatedAt:  now,
	}
	if err := s.store.CreateOrder(ctx, o, opening); err != nil {
		return nil, err
	}
	return o, nil
}

// MarkPaid records the payment collaborator's verdict and admits the order
// into waiting_confirmation. COD orders are paid at the door, not here.
func (s *Service) MarkPaid(ctx context.Context, orderID int64, actor types.Principal) error {
	if actor.Role != types.RoleAdmin && actor.Role != types.RoleSystem {
		return fault.New(fault.Forbidden, "only admins mark orders paid")
	}
	return s.store.Lease(ctx, orderID, func(ctx context.Context, uow UnitOfWork) error {
		o := uow.Order()
		if o.PaymentMethod == PaymentCOD {
			return fault.New(fault.PreconditionFailed, "cash on delivery orders are paid at the door")
		}
		if o.PaymentStatus == Paid {
			return fault.New(fault.PreconditionFailed, "order already paid")
		}
		now := time.Now()
		o.PaymentStatus = Paid
		o.PaidAt = &now
		return s.Apply(ctx, uow, StatusWaitingConfirmation, actor, "payment received", nil)
	})
}

type TransitionCommand struct {
	OrderID  int64
	Target   Status
	Actor    types.Principal
	Note     string
	Metadata map[string]any
}

// Transition requests a status change under a fresh order lease. Claim,
// admin assignment, verification, and photo uploads share the same
// primitive through Apply.
func (s *Service) Transition(ctx context.Context, cmd TransitionCommand) error {
	return s.store.Lease(ctx, cmd.OrderID, func(ctx context.Context, uow UnitOfWork) error {
		return s.Apply(ctx, uow, cmd.Target, cmd.Actor, cmd.Note, cmd.Metadata)
	})
}

// Apply performs one transition inside an already-held lease: legality
// table, role guard, order mutation, audit log, side effects. It is the
// only code path that moves an order between statuses.
func (s *Service) Apply(ctx context.Context, uow UnitOfWork, target Status, actor types.Principal, note string, meta map[string]any) error {
	o := uow.Order()
	from := o.Status
	if !CanTransition(from, target) {
		return fault.Newf(fault.InvalidTransition, "cannot move order from %s to %s", from, target)
	}
	if err := authorize(o, from, target, actor); err != nil {
		return err
	}

	now := time.Now()
	o.Status = target
	switch target {
	case StatusDelivering:
		o.PickedUpAt = &now
	case StatusCompleted:
		o.DeliveredAt = &now
		o.CompletedAt = &now
		if o.PickedUpAt != nil {
			d := now.Sub(*o.PickedUpAt)
			o.DeliveryDuration = &d
		}
		if o.PaymentMethod == PaymentCOD {
			o.PaymentStatus = Paid
			o.PaidAt = &now
		}
	case StatusCancelled:
		o.CancelledAt = &now
		if note != "" {
			reason := note
			o.CancelReason = &reason
		}
	}

	if err := uow.UpdateOrder(ctx, o); err != nil {
		return err
	}
	var actorID *int64
	if actor.ID != 0 {
		id := actor.ID
		actorID = &id
	}
	if err := uow.AppendLog(ctx, &TransitionLog{
		OrderID:    o.ID,
		FromStatus: from,
		ToStatus:   target,
		ActorRole:  actor.Role,
		ActorID:    actorID,
		Note:       note,
		Metadata:   meta,
		CreatedAt:  now,
	}); err != nil {
		return err
	}
	if err := s.sideEffects(ctx, uow, o, target, actor); err != nil {
		return err
	}
	metrics.TransitionsTotal.WithLabelValues(string(target)).Inc()
	return nil
}

// authorize enforces the role constraints of the state table.
func authorize(o *Order, from, target Status, actor types.Principal) error {
	switch actor.Role {
	case types.RoleAdmin, types.RoleSystem:
		return nil
	case types.RoleCustomer:
		if target != StatusCancelled {
			return fault.New(fault.Forbidden, "customers may only cancel orders")
		}
		if o.CustomerID != actor.ID {
			return fault.New(fault.NotOwner, "not your order")
		}
		if from != StatusPendingPayment && from != StatusWaitingConfirmation {
			return fault.Newf(fault.Forbidden, "order in %s can no longer be cancelled by the customer", from)
		}
		return nil
	case types.RoleCourier:
		if target == StatusCancelled {
			return fault.New(fault.Forbidden, "couriers cannot cancel orders")
		}
		if o.CourierID == nil || *o.CourierID != actor.ID {
			return fault.New(fault.NotOwner, "not your order")
		}
		if target == StatusDelivering && o.DeparturePhoto == nil {
			return fault.New(fault.PreconditionFailed, "departure photo required before delivering")
		}
		if target == StatusCompleted && o.ArrivalPhoto == nil {
			return fault.New(fault.PreconditionFailed, "arrival photo required before completion")
		}
		return nil
	}
	return fault.New(fault.Forbidden, "unknown role")
}

// sideEffects fans out the per-transition writes: notifications, courier
// load and lifetime stats, loyalty credit. Same transaction as the
// transition itself.
func (s *Service) sideEffects(ctx context.Context, uow UnitOfWork, o *Order, target Status, actor types.Principal) error {
	switch target {
	case StatusDelivering:
		if o.CourierID != nil {
			c, err := uow.Courier(ctx, *o.CourierID)
			if err != nil {
				return err
			}
			if c.Availability != courier.Busy {
				c.Availability = courier.Busy
				if err := uow.UpdateCourier(ctx, c); err != nil {
					return err
				}
			}
		}
		return s.notify(ctx, uow, o, notification.ToCustomer, o.CustomerID,
			notification.TypeOrderDelivering, fmt.Sprintf("Order %s is on the way", o.Number), target)

	case StatusCompleted:
		if o.CourierID != nil {
			c, err := uow.Courier(ctx, *o.CourierID)
			if err != nil {
				return err
			}
			c.Deliveries++
			remaining, err := uow.ActiveOrderCount(ctx, c.ID)
			if err != nil {
				return err
			}
			if remaining == 0 && c.Availability == courier.Busy {
				c.Availability = courier.Available
			}
			if err := uow.UpdateCourier(ctx, c); err != nil {
				return err
			}
		}
		cust, err := uow.Customer(ctx, o.CustomerID)
		if err != nil {
			return err
		}
		cust.LoyaltyPoints += s.loyalty.PointsPerOrder
		cust.CompletedOrders++
		if err := uow.UpdateCustomer(ctx, cust); err != nil {
			return err
		}
		return s.notify(ctx, uow, o, notification.ToCustomer, o.CustomerID,
			notification.TypeOrderCompleted, fmt.Sprintf("Order %s completed, enjoy your coffee", o.Number), target)

	case StatusCancelled:
		if actor.Role == types.RoleCustomer {
			return nil
		}
		msg := fmt.Sprintf("Order %s was cancelled", o.Number)
		if o.CancelReason != nil {
			msg = fmt.Sprintf("Order %s was cancelled: %s", o.Number, *o.CancelReason)
		}
		return s.notify(ctx, uow, o, notification.ToCustomer, o.CustomerID,
			notification.TypeOrderCancelled, msg, target)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, uow UnitOfWork, o *Order, rec notification.Recipient, recipientID int64, t notification.Type, msg string, status Status) error {
	err := uow.Notify(ctx, &notification.Notification{
		Recipient:   rec,
		RecipientID: recipientID,
		Type:        t,
		Message:     msg,
		Payload: map[string]any{
			"order_id":     o.ID,
			"order_number": o.Number,
			"status":       string(status),
		},
		CreatedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	metrics.NotificationsTotal.Inc()
	return nil
}

// Get returns order detail to the owner customer, the assigned courier, or
// an admin.
func (s *Service) Get(ctx context.Context, orderID int64, actor types.Principal) (*Order, error) {
	o, err := s.store.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := canRead(o, actor); err != nil {
		return nil, err
	}
	return o, nil
}

// Timeline returns the transition log in insert order, same access rule as Get.
func (s *Service) Timeline(ctx context.Context, orderID int64, actor types.Principal) ([]TransitionLog, error) {
	o, err := s.store.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := canRead(o, actor); err != nil {
		return nil, err
	}
	return s.store.Timeline(ctx, orderID)
}

// ListClaimable exposes the assignable pool to couriers.
func (s *Service) ListClaimable(ctx context.Context, actor types.Principal) ([]Order, error) {
	if actor.Role != types.RoleCourier && actor.Role != types.RoleAdmin {
		return nil, fault.New(fault.Forbidden, "claimable orders are courier-facing")
	}
	return s.store.ListClaimable(ctx)
}

func canRead(o *Order, actor types.Principal) error {
	switch actor.Role {
	case types.RoleAdmin, types.RoleSystem:
		return nil
	case types.RoleCustomer:
		if o.CustomerID == actor.ID {
			return nil
		}
	case types.RoleCourier:
		if o.CourierID != nil && *o.CourierID == actor.ID {
			return nil
		}
	}
	return fault.New(fault.NotOwner, "not your order")
}

func newOrderNumber(now time.Time) string {
	return fmt.Sprintf("KD-%s-%s", now.Format("20060102"), uuid.NewString()[:8])
}
