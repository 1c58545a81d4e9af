// README: Staged unit of work for the in-memory store.
package memory

import (
	"context"
	"time"

	"kedai/internal/fault"
	"kedai/internal/modules/courier"
	"kedai/internal/modules/customer"
	"kedai/internal/modules/notification"
	"kedai/internal/modules/order"
)

// unitOfWork runs with the store mutex already held by Lease. Reads see
// staged writes; nothing touches the store maps until commit.
type unitOfWork struct {
	store *Store
	order *order.Order

	couriers  map[int64]*courier.Courier
	customers map[int64]*customer.Customer
	record    *order.VerificationRecord
	recordSet bool
	logs      []order.TransitionLog
	notes     []notification.Notification
}

func (u *unitOfWork) Order() *order.Order { return u.order }

func (u *unitOfWork) UpdateOrder(ctx context.Context, o *order.Order) error {
	u.order = o
	return nil
}

func (u *unitOfWork) AppendLog(ctx context.Context, l *order.TransitionLog) error {
	u.logs = append(u.logs, *l)
	return nil
}

func (u *unitOfWork) Courier(ctx context.Context, id int64) (*courier.Courier, error) {
	if c, ok := u.couriers[id]; ok {
		return c, nil
	}
	c, ok := u.store.couriers[id]
	if !ok {
		return nil, fault.New(fault.NotFound, "courier not found")
	}
	cp := *c
	return &cp, nil
}

func (u *unitOfWork) UpdateCourier(ctx context.Context, c *courier.Courier) error {
	if u.couriers == nil {
		u.couriers = make(map[int64]*courier.Courier)
	}
	cp := *c
	u.couriers[c.ID] = &cp
	return nil
}

func (u *unitOfWork) ActiveOrderCount(ctx context.Context, courierID int64) (int, error) {
	return u.store.countActiveLocked(courierID, u.order), nil
}

func (u *unitOfWork) Customer(ctx context.Context, id int64) (*customer.Customer, error) {
	if c, ok := u.customers[id]; ok {
		return c, nil
	}
	c, ok := u.store.customers[id]
	if !ok {
		return nil, fault.New(fault.NotFound, "customer not found")
	}
	cp := *c
	return &cp, nil
}

func (u *unitOfWork) UpdateCustomer(ctx context.Context, c *customer.Customer) error {
	if u.customers == nil {
		u.customers = make(map[int64]*customer.Customer)
	}
	cp := *c
	u.customers[c.ID] = &cp
	return nil
}

func (u *unitOfWork) VerificationRecord(ctx context.Context) (*order.VerificationRecord, error) {
	if u.recordSet {
		cp := *u.record
		return &cp, nil
	}
	r, ok := u.store.records[u.order.ID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (u *unitOfWork) PutVerificationRecord(ctx context.Context, r *order.VerificationRecord) error {
	cp := *r
	u.record = &cp
	u.recordSet = true
	return nil
}

func (u *unitOfWork) Notify(ctx context.Context, n *notification.Notification) error {
	u.notes = append(u.notes, *n)
	return nil
}

func (u *unitOfWork) commit() {
	s := u.store
	s.orders[u.order.ID] = cloneOrder(u.order)
	for id, c := range u.couriers {
		s.couriers[id] = c
	}
	for id, c := range u.customers {
		s.customers[id] = c
	}
	if u.recordSet {
		s.records[u.record.OrderID] = u.record
	}
	for _, l := range u.logs {
		s.nextLogID++
		l.ID = s.nextLogID
		s.logs[l.OrderID] = append(s.logs[l.OrderID], l)
	}
	for _, n := range u.notes {
		s.nextNoteID++
		n.ID = s.nextNoteID
		s.notes = append(s.notes, n)
	}
}

// courierUnitOfWork runs with the store mutex already held by LeaseCourier.
// The updated courier is staged and applied only when fn succeeds.
type courierUnitOfWork struct {
	store   *Store
	courier *courier.Courier
	updated *courier.Courier
}

func (u *courierUnitOfWork) Courier() *courier.Courier { return u.courier }

func (u *courierUnitOfWork) UpdateCourier(ctx context.Context, c *courier.Courier) error {
	cp := *c
	u.updated = &cp
	return nil
}

func (u *courierUnitOfWork) ActiveOrderCount(ctx context.Context, courierID int64) (int, error) {
	return u.store.countActiveLocked(courierID, nil), nil
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func cloneTimePtr(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := *v
	return &t
}
