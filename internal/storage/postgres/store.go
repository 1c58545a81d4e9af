// README: Postgres store. The order lease is a transaction holding
// SELECT ... FOR UPDATE on the order row; every unit-of-work write rides
// that transaction, so a failed step rolls the whole operation back.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"kedai/internal/fault"
	"kedai/internal/modules/courier"
	"kedai/internal/modules/customer"
	"kedai/internal/modules/notification"
	"kedai/internal/modules/order"
)

type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const orderColumns = `
	id, number, customer_id, courier_id, status,
	payment_method, payment_status, delivery_method,
	departure_photo, arrival_photo, cancel_reason, delivery_duration_secs,
	created_at, paid_at, assigned_at, picked_up_at, delivered_at, completed_at, cancelled_at`

func (s *Store) Order(ctx context.Context, id int64) (*order.Order, error) {
	return fetchOrder(ctx, s.db, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func fetchOrder(ctx context.Context, q querier, sql string, args ...any) (*order.Order, error) {
	row := q.QueryRow(ctx, sql, args...)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.New(fault.NotFound, "order not found")
	}
	if err != nil {
		return nil, fault.Wrap(err)
	}
	return o, nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o            order.Order
		durationSecs *int64
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.CustomerID, &o.CourierID, &o.Status,
		&o.PaymentMethod, &o.PaymentStatus, &o.DeliveryMethod,
		&o.DeparturePhoto, &o.ArrivalPhoto, &o.CancelReason, &durationSecs,
		&o.CreatedAt, &o.PaidAt, &o.AssignedAt, &o.PickedUpAt, &o.DeliveredAt, &o.CompletedAt, &o.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	if durationSecs != nil {
		d := time.Duration(*durationSecs) * time.Second
		o.DeliveryDuration = &d
	}
	return &o, nil
}

// CreateOrder inserts the order row and its opening transition in one
// transaction.
func (s *Store) CreateOrder(ctx context.Context, o *order.Order, opening *order.TransitionLog) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fault.Wrap(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (
			number, customer_id, status, payment_method, payment_status,
			delivery_method, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		o.Number, o.CustomerID, string(o.Status), string(o.PaymentMethod),
		string(o.PaymentStatus), string(o.DeliveryMethod), o.CreatedAt,
	).Scan(&o.ID)
	if err != nil {
		return fault.Wrap(err)
	}
	opening.OrderID = o.ID
	if err := appendLog(ctx, tx, opening); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fault.Wrap(err)
	}
	return nil
}

func updateOrder(ctx context.Context, q querier, o *order.Order) error {
	var durationSecs *int64
	if o.DeliveryDuration != nil {
		secs := int64(o.DeliveryDuration.Seconds())
		durationSecs = &secs
	}
	_, err := q.Exec(ctx, `
		UPDATE orders SET
			courier_id = $1, status = $2, payment_status = $3,
			departure_photo = $4, arrival_photo = $5, cancel_reason = $6,
			delivery_duration_secs = $7,
			paid_at = $8, assigned_at = $9, picked_up_at = $10,
			delivered_at = $11, completed_at = $12, cancelled_at = $13
		WHERE id = $14`,
		o.CourierID, string(o.Status), string(o.PaymentStatus),
		o.DeparturePhoto, o.ArrivalPhoto, o.CancelReason,
		durationSecs,
		o.PaidAt, o.AssignedAt, o.PickedUpAt,
		o.DeliveredAt, o.CompletedAt, o.CancelledAt,
		o.ID,
	)
	if err != nil {
		return fault.Wrap(err)
	}
	return nil
}

func (s *Store) Timeline(ctx context.Context, orderID int64) ([]order.TransitionLog, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, order_id, from_status, to_status, actor_role, actor_id, note, metadata, created_at
		FROM order_transitions
		WHERE order_id = $1
		ORDER BY id`, orderID)
	if err != nil {
		return nil, fault.Wrap(err)
	}
	defer rows.Close()

	var out []order.TransitionLog
	for rows.Next() {
		var (
			l    order.TransitionLog
			meta []byte
		)
		if err := rows.Scan(&l.ID, &l.OrderID, &l.FromStatus, &l.ToStatus, &l.ActorRole, &l.ActorID, &l.Note, &meta, &l.CreatedAt); err != nil {
			return nil, fault.Wrap(err)
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &l.Metadata)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(err)
	}
	return out, nil
}

func (s *Store) ListClaimable(ctx context.Context) ([]order.Order, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE courier_id IS NULL
		  AND payment_status = 'paid'
		  AND delivery_method = 'delivery'
		  AND payment_method <> 'cod'
		  AND status IN ('confirmed', 'processing', 'ready')
		ORDER BY id`)
	if err != nil {
		return nil, fault.Wrap(err)
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fault.Wrap(err)
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(err)
	}
	return out, nil
}

func (s *Store) Lease(ctx context.Context, orderID int64, fn func(ctx context.Context, uow order.UnitOfWork) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fault.Wrap(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := fetchOrder(ctx, tx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID)
	if err != nil {
		return err
	}
	if err := fn(ctx, &unitOfWork{tx: tx, order: o}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fault.Wrap(err)
	}
	return nil
}

// courier.Store

const courierColumns = `id, name, phone, availability, active, rating, deliveries, created_at`

func (s *Store) Courier(ctx context.Context, id int64) (*courier.Courier, error) {
	return fetchCourier(ctx, s.db, `SELECT `+courierColumns+` FROM couriers WHERE id = $1`, id)
}

// lockCourier takes the courier row lock; every write path touching a
// courier goes through it, so availability flips and deactivation cannot
// interleave with a claim binding that courier.
func lockCourier(ctx context.Context, q querier, id int64) (*courier.Courier, error) {
	return fetchCourier(ctx, q, `SELECT `+courierColumns+` FROM couriers WHERE id = $1 FOR UPDATE`, id)
}

func fetchCourier(ctx context.Context, q querier, sql string, id int64) (*courier.Courier, error) {
	var c courier.Courier
	err := q.QueryRow(ctx, sql, id).
		Scan(&c.ID, &c.Name, &c.Phone, &c.Availability, &c.Active, &c.Rating, &c.Deliveries, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.New(fault.NotFound, "courier not found")
	}
	if err != nil {
		return nil, fault.Wrap(err)
	}
	return &c, nil
}

// LeaseCourier is the courier-row counterpart of Lease: a transaction
// holding SELECT ... FOR UPDATE on the courier for the duration of fn.
func (s *Store) LeaseCourier(ctx context.Context, courierID int64, fn func(ctx context.Context, uow courier.UnitOfWork) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fault.Wrap(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	c, err := lockCourier(ctx, tx, courierID)
	if err != nil {
		return err
	}
	if err := fn(ctx, &courierUnitOfWork{tx: tx, courier: c}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fault.Wrap(err)
	}
	return nil
}

func updateCourier(ctx context.Context, q querier, c *courier.Courier) error {
	_, err := q.Exec(ctx, `
		UPDATE couriers SET availability = $1, active = $2, rating = $3, deliveries = $4
		WHERE id = $5`,
		string(c.Availability), c.Active, c.Rating, c.Deliveries, c.ID)
	if err != nil {
		return fault.Wrap(err)
	}
	return nil
}

func (s *Store) UpdateCourier(ctx context.Context, c *courier.Courier) error {
	return updateCourier(ctx, s.db, c)
}

func countActive(ctx context.Context, q querier, courierID int64) (int, error) {
	var n int
	err := q.QueryRow(ctx, `
		SELECT count(*) FROM orders
		WHERE courier_id = $1
		  AND status IN ('confirmed', 'processing', 'ready', 'delivering')`, courierID,
	).Scan(&n)
	if err != nil {
		return 0, fault.Wrap(err)
	}
	return n, nil
}

func (s *Store) ActiveOrderCount(ctx context.Context, courierID int64) (int, error) {
	return countActive(ctx, s.db, courierID)
}

func (s *Store) Customer(ctx context.Context, id int64) (*customer.Customer, error) {
	return fetchCustomer(ctx, s.db, id)
}

func fetchCustomer(ctx context.Context, q querier, id int64) (*customer.Customer, error) {
	var c customer.Customer
	err := q.QueryRow(ctx, `
		SELECT id, name, loyalty_points, completed_orders, created_at
		FROM customers WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.LoyaltyPoints, &c.CompletedOrders, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.New(fault.NotFound, "customer not found")
	}
	if err != nil {
		return nil, fault.Wrap(err)
	}
	return &c, nil
}

// notification.Store

func (s *Store) Notifications(ctx context.Context, rec notification.Recipient, recipientID int64) ([]notification.Notification, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, recipient, recipient_id, type, message, payload, created_at, read_at
		FROM notifications
		WHERE recipient = $1 AND recipient_id = $2
		ORDER BY id DESC`, string(rec), recipientID)
	if err != nil {
		return nil, fault.Wrap(err)
	}
	defer rows.Close()

	var out []notification.Notification
	for rows.Next() {
		var (
			n       notification.Notification
			payload []byte
		)
		if err := rows.Scan(&n.ID, &n.Recipient, &n.RecipientID, &n.Type, &n.Message, &payload, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, fault.Wrap(err)
		}
		if len(payload) > 0 {
			_ = json.Unmarshal(payload, &n.Payload)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(err)
	}
	return out, nil
}
