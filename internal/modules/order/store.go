// README: Storage contracts for the order lifecycle engine.
package order

import (
	"context"
	"io"

	"kedai/internal/modules/courier"
	"kedai/internal/modules/customer"
	"kedai/internal/modules/notification"
)

// Store is the order-centric storage boundary. Lease acquires an exclusive
// lease on one order row for the duration of fn: the relational backend
// implements it as SELECT ... FOR UPDATE inside a transaction, and every
// write issued through the UnitOfWork commits or rolls back atomically
// with it. A store with different locking primitives (optimistic version
// counters plus a retry loop) can satisfy the same contract.
type Store interface {
	Order(ctx context.Context, id int64) (*Order, error)
	// CreateOrder persists the order and its opening transition-log row in
	// one atomic unit; an order is never visible without its audit trail.
	CreateOrder(ctx context.Context, o *Order, opening *TransitionLog) error
	Timeline(ctx context.Context, orderID int64) ([]TransitionLog, error)
	// ListClaimable returns unassigned, paid delivery orders sitting in the
	// assignable pool, excluding cash-on-delivery (admin-dispatched) ones.
	ListClaimable(ctx context.Context) ([]Order, error)
	Lease(ctx context.Context, orderID int64, fn func(ctx context.Context, uow UnitOfWork) error) error
}

// UnitOfWork is the write surface available while holding an order lease.
// Courier, customer, verification, and notification writes ride the same
// transaction so no partial state is ever visible.
type UnitOfWork interface {
	// Order returns the leased row; mutations are persisted by UpdateOrder.
	Order() *Order
	UpdateOrder(ctx context.Context, o *Order) error
	AppendLog(ctx context.Context, l *TransitionLog) error

	Courier(ctx context.Context, id int64) (*courier.Courier, error)
	UpdateCourier(ctx context.Context, c *courier.Courier) error
	// ActiveOrderCount counts the courier's orders in active statuses,
	// observing writes already staged in this unit of work.
	ActiveOrderCount(ctx context.Context, courierID int64) (int, error)

	Customer(ctx context.Context, id int64) (*customer.Customer, error)
	UpdateCustomer(ctx context.Context, c *customer.Customer) error

	// VerificationRecord returns the live OTP record for the leased order,
	// or nil when none was ever issued.
	VerificationRecord(ctx context.Context) (*VerificationRecord, error)
	PutVerificationRecord(ctx context.Context, r *VerificationRecord) error

	Notify(ctx context.Context, n *notification.Notification) error
}

// FileStore persists uploaded delivery photos and returns the relative
// path recorded on the order.
type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Remove(ctx context.Context, path string) error
}
