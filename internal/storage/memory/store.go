// README: In-memory store implementing the same lease contract as the
// Postgres store. Used by the service test suites; a store-wide mutex held
// for the whole lease gives the same exactly-one-winner arbitration as the
// row lock.
package memory

import (
	"context"
	"sort"
	"sync"

	"kedai/internal/fault"
	"kedai/internal/modules/courier"
	"kedai/internal/modules/customer"
	"kedai/internal/modules/notification"
	"kedai/internal/modules/order"
)

type Store struct {
	mu sync.Mutex

	nextOrderID int64
	nextLogID   int64
	nextNoteID  int64

	orders    map[int64]*order.Order
	logs      map[int64][]order.TransitionLog
	couriers  map[int64]*courier.Courier
	customers map[int64]*customer.Customer
	records   map[int64]*order.VerificationRecord
	notes     []notification.Notification
}

func New() *Store {
	return &Store{
		orders:    make(map[int64]*order.Order),
		logs:      make(map[int64][]order.TransitionLog),
		couriers:  make(map[int64]*courier.Courier),
		customers: make(map[int64]*customer.Customer),
		records:   make(map[int64]*order.VerificationRecord),
	}
}

func (s *Store) Order(ctx context.Context, id int64) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, fault.New(fault.NotFound, "order not found")
	}
	return cloneOrder(o), nil
}

func (s *Store) CreateOrder(ctx context.Context, o *order.Order, opening *order.TransitionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextOrderID++
	o.ID = s.nextOrderID
	s.orders[o.ID] = cloneOrder(o)
	lc := *opening
	lc.OrderID = o.ID
	s.nextLogID++
	lc.ID = s.nextLogID
	s.logs[o.ID] = append(s.logs[o.ID], lc)
	return nil
}

func (s *Store) Timeline(ctx context.Context, orderID int64) ([]order.TransitionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]order.TransitionLog, len(s.logs[orderID]))
	copy(out, s.logs[orderID])
	return out, nil
}

func (s *Store) ListClaimable(ctx context.Context) ([]order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []order.Order
	for _, o := range s.orders {
		if o.CourierID == nil && o.PaymentStatus == order.Paid &&
			o.DeliveryMethod == order.Delivery && o.PaymentMethod != order.PaymentCOD &&
			o.Status.Claimable() {
			out = append(out, *cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Lease holds the store mutex for the duration of fn, staging every write
// in the unit of work and applying it only when fn succeeds.
func (s *Store) Lease(ctx context.Context, orderID int64, fn func(ctx context.Context, uow order.UnitOfWork) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return fault.New(fault.NotFound, "order not found")
	}
	uow := &unitOfWork{store: s, order: cloneOrder(o)}
	if err := fn(ctx, uow); err != nil {
		return err
	}
	uow.commit()
	return nil
}

// courier.Store

func (s *Store) Courier(ctx context.Context, id int64) (*courier.Courier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.couriers[id]
	if !ok {
		return nil, fault.New(fault.NotFound, "courier not found")
	}
	cp := *c
	return &cp, nil
}

func (s *Store) UpdateCourier(ctx context.Context, c *courier.Courier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.couriers[c.ID]; !ok {
		return fault.New(fault.NotFound, "courier not found")
	}
	cp := *c
	s.couriers[c.ID] = &cp
	return nil
}

func (s *Store) ActiveOrderCount(ctx context.Context, courierID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countActiveLocked(courierID, nil), nil
}

// LeaseCourier holds the store mutex for the duration of fn, the same
// serialization an order lease gets. A check inside the lease cannot race
// a claim binding.
func (s *Store) LeaseCourier(ctx context.Context, courierID int64, fn func(ctx context.Context, uow courier.UnitOfWork) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.couriers[courierID]
	if !ok {
		return fault.New(fault.NotFound, "courier not found")
	}
	cp := *c
	uow := &courierUnitOfWork{store: s, courier: &cp}
	if err := fn(ctx, uow); err != nil {
		return err
	}
	if uow.updated != nil {
		s.couriers[uow.updated.ID] = uow.updated
	}
	return nil
}

func (s *Store) countActiveLocked(courierID int64, overlay *order.Order) int {
	n := 0
	for id, o := range s.orders {
		if overlay != nil && id == overlay.ID {
			o = overlay
		}
		if o.CourierID != nil && *o.CourierID == courierID && o.Status.Active() {
			n++
		}
	}
	return n
}

func (s *Store) Customer(ctx context.Context, id int64) (*customer.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[id]
	if !ok {
		return nil, fault.New(fault.NotFound, "customer not found")
	}
	cp := *c
	return &cp, nil
}

// notification.Store

func (s *Store) Notifications(ctx context.Context, rec notification.Recipient, recipientID int64) ([]notification.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notification.Notification
	for _, n := range s.notes {
		if n.Recipient == rec && n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	return out, nil
}

// Seed and inspection helpers for tests.

func (s *Store) PutCourier(c *courier.Courier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.couriers[c.ID] = &cp
}

func (s *Store) PutCustomer(c *customer.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.customers[c.ID] = &cp
}

func (s *Store) PutRecord(r *order.VerificationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.records[r.OrderID] = &cp
}

func (s *Store) Record(orderID int64) *order.VerificationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[orderID]
	if !ok {
		return nil
	}
	cp := *r
	return &cp
}

func cloneOrder(o *order.Order) *order.Order {
	cp := *o
	cp.CourierID = cloneInt64(o.CourierID)
	cp.DeparturePhoto = cloneString(o.DeparturePhoto)
	cp.ArrivalPhoto = cloneString(o.ArrivalPhoto)
	cp.CancelReason = cloneString(o.CancelReason)
	if o.DeliveryDuration != nil {
		d := *o.DeliveryDuration
		cp.DeliveryDuration = &d
	}
	cp.PaidAt = cloneTimePtr(o.PaidAt)
	cp.AssignedAt = cloneTimePtr(o.AssignedAt)
	cp.PickedUpAt = cloneTimePtr(o.PickedUpAt)
	cp.DeliveredAt = cloneTimePtr(o.DeliveredAt)
	cp.CompletedAt = cloneTimePtr(o.CompletedAt)
	cp.CancelledAt = cloneTimePtr(o.CancelledAt)
	return &cp
}
