// README: Transaction-scoped unit of work for the Postgres store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"kedai/internal/fault"
	"kedai/internal/modules/courier"
	"kedai/internal/modules/customer"
	"kedai/internal/modules/notification"
	"kedai/internal/modules/order"
)

type unitOfWork struct {
	tx    pgx.Tx
	order *order.Order
}

func (u *unitOfWork) Order() *order.Order { return u.order }

func (u *unitOfWork) UpdateOrder(ctx context.Context, o *order.Order) error {
	u.order = o
	return updateOrder(ctx, u.tx, o)
}

func (u *unitOfWork) AppendLog(ctx context.Context, l *order.TransitionLog) error {
	return appendLog(ctx, u.tx, l)
}

func appendLog(ctx context.Context, q querier, l *order.TransitionLog) error {
	meta, err := marshalJSON(l.Metadata)
	if err != nil {
		return fault.Wrap(err)
	}
	_, err = q.Exec(ctx, `
		INSERT INTO order_transitions (order_id, from_status, to_status, actor_role, actor_id, note, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		l.OrderID, string(l.FromStatus), string(l.ToStatus), string(l.ActorRole), l.ActorID, l.Note, meta, l.CreatedAt)
	if err != nil {
		return fault.Wrap(err)
	}
	return nil
}

// Courier locks the courier row inside the order lease so claim bindings
// serialize against LeaseCourier writes.
func (u *unitOfWork) Courier(ctx context.Context, id int64) (*courier.Courier, error) {
	return lockCourier(ctx, u.tx, id)
}

func (u *unitOfWork) UpdateCourier(ctx context.Context, c *courier.Courier) error {
	return updateCourier(ctx, u.tx, c)
}

func (u *unitOfWork) ActiveOrderCount(ctx context.Context, courierID int64) (int, error) {
	return countActive(ctx, u.tx, courierID)
}

func (u *unitOfWork) Customer(ctx context.Context, id int64) (*customer.Customer, error) {
	return fetchCustomer(ctx, u.tx, id)
}

func (u *unitOfWork) UpdateCustomer(ctx context.Context, c *customer.Customer) error {
	_, err := u.tx.Exec(ctx, `
		UPDATE customers SET loyalty_points = $1, completed_orders = $2
		WHERE id = $3`,
		c.LoyaltyPoints, c.CompletedOrders, c.ID)
	if err != nil {
		return fault.Wrap(err)
	}
	return nil
}

func (u *unitOfWork) VerificationRecord(ctx context.Context) (*order.VerificationRecord, error) {
	var r order.VerificationRecord
	err := u.tx.QueryRow(ctx, `
		SELECT order_id, code, expires_at, attempts, verified, trusted, created_at
		FROM order_verifications WHERE order_id = $1`, u.order.ID,
	).Scan(&r.OrderID, &r.Code, &r.ExpiresAt, &r.Attempts, &r.Verified, &r.Trusted, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fault.Wrap(err)
	}
	return &r, nil
}

func (u *unitOfWork) PutVerificationRecord(ctx context.Context, r *order.VerificationRecord) error {
	_, err := u.tx.Exec(ctx, `
		INSERT INTO order_verifications (order_id, code, expires_at, attempts, verified, trusted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (order_id) DO UPDATE SET
			code = EXCLUDED.code, expires_at = EXCLUDED.expires_at,
			attempts = EXCLUDED.attempts, verified = EXCLUDED.verified,
			trusted = EXCLUDED.trusted, created_at = EXCLUDED.created_at`,
		r.OrderID, r.Code, r.ExpiresAt, r.Attempts, r.Verified, r.Trusted, r.CreatedAt)
	if err != nil {
		return fault.Wrap(err)
	}
	return nil
}

func (u *unitOfWork) Notify(ctx context.Context, n *notification.Notification) error {
	payload, err := marshalJSON(n.Payload)
	if err != nil {
		return fault.Wrap(err)
	}
	_, err = u.tx.Exec(ctx, `
		INSERT INTO notifications (recipient, recipient_id, type, message, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(n.Recipient), n.RecipientID, string(n.Type), n.Message, payload, n.CreatedAt)
	if err != nil {
		return fault.Wrap(err)
	}
	return nil
}

func marshalJSON(m map[string]any) (*string, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

// courierUnitOfWork is the write scope handed to courier.Store.LeaseCourier.
// The courier row is locked for the lifetime of the transaction.
type courierUnitOfWork struct {
	tx      pgx.Tx
	courier *courier.Courier
}

func (u *courierUnitOfWork) Courier() *courier.Courier {
	return u.courier
}

func (u *courierUnitOfWork) UpdateCourier(ctx context.Context, c *courier.Courier) error {
	return updateCourier(ctx, u.tx, c)
}

func (u *courierUnitOfWork) ActiveOrderCount(ctx context.Context, courierID int64) (int, error) {
	return countActive(ctx, u.tx, courierID)
}
