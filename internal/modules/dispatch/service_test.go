// README: Claim coordinator tests (preconditions + admin assignment).
package dispatch_test

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"kedai/internal/config"
	"kedai/internal/fault"
	"kedai/internal/modules/courier"
	"kedai/internal/modules/customer"
	"kedai/internal/modules/dispatch"
	"kedai/internal/modules/order"
	"kedai/internal/storage/memory"
	"kedai/internal/types"
)

var (
	admin     = types.Principal{ID: 1, Role: types.RoleAdmin}
	customer1 = types.Principal{ID: 1, Role: types.RoleCustomer}
	courier1  = types.Principal{ID: 1, Role: types.RoleCourier}
)

type fixture struct {
	store    *memory.Store
	orders   *order.Service
	dispatch *dispatch.Service
}

func newFixture(t *testing.T, cfg config.DispatchConfig) *fixture {
	t.Helper()
	store := memory.New()
	store.PutCustomer(&customer.Customer{ID: customer1.ID, Name: "Ana"})
	store.PutCourier(&courier.Courier{ID: courier1.ID, Name: "Dimas", Active: true, Availability: courier.Available})
	orders := order.NewService(store, nil,
		config.LoyaltyConfig{PointsPerOrder: 10},
		config.PhotoConfig{MaxBytes: 1 << 20},
		zap.NewNop().Sugar())
	return &fixture{
		store:    store,
		orders:   orders,
		dispatch: dispatch.NewService(store, orders, cfg, zap.NewNop().Sugar()),
	}
}

func defaultConfig() config.DispatchConfig {
	return config.DispatchConfig{MaxActiveOrders: 5, BusyThreshold: 3}
}

// confirmedOrder creates a paid card delivery order in the assignable pool.
func (f *fixture) confirmedOrder(t *testing.T) *order.Order {
	t.Helper()
	ctx := context.Background()
	o, err := f.orders.Create(ctx, order.CreateCommand{
		Actor:          customer1,
		PaymentMethod:  order.PaymentCard,
		DeliveryMethod: order.Delivery,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if err := f.orders.MarkPaid(ctx, o.ID, admin); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	err = f.orders.Transition(ctx, order.TransitionCommand{OrderID: o.ID, Target: order.StatusConfirmed, Actor: admin})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	return o
}

func TestClaim(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()
	o := f.confirmedOrder(t)

	if err := f.dispatch.Claim(ctx, dispatch.ClaimCommand{OrderID: o.ID, Actor: courier1}); err != nil {
		t.Fatalf("claim: %v", err)
	}

	got, _ := f.orders.Get(ctx, o.ID, admin)
	if got.CourierID == nil || *got.CourierID != courier1.ID {
		t.Fatal("courier not bound")
	}
	if got.AssignedAt == nil {
		t.Fatal("AssignedAt not set")
	}
	// Claiming does not advance the status.
	if got.Status != order.StatusConfirmed {
		t.Fatalf("status = %s, want confirmed", got.Status)
	}

	notes, _ := f.store.Notifications(ctx, "customer", customer1.ID)
	if len(notes) != 1 || notes[0].Type != "courier_assigned" {
		t.Fatalf("expected assignment notification, got %v", notes)
	}
}

func TestClaimSecondCourierRejected(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()
	o := f.confirmedOrder(t)

	other := types.Principal{ID: 2, Role: types.RoleCourier}
	f.store.PutCourier(&courier.Courier{ID: other.ID, Active: true, Availability: courier.Available})

	if err := f.dispatch.Claim(ctx, dispatch.ClaimCommand{OrderID: o.ID, Actor: courier1}); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	err := f.dispatch.Claim(ctx, dispatch.ClaimCommand{OrderID: o.ID, Actor: other})
	if !fault.Is(err, fault.PreconditionFailed) {
		t.Fatalf("second claim: expected precondition failure, got %v", err)
	}

	got, _ := f.orders.Get(ctx, o.ID, admin)
	if *got.CourierID != courier1.ID {
		t.Fatal("winner overwritten")
	}
}

func TestClaimPreconditions(t *testing.T) {
	ctx := context.Background()

	t.Run("unpaid", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		o, _ := f.orders.Create(ctx, order.CreateCommand{
			Actor: customer1, PaymentMethod: order.PaymentCard, DeliveryMethod: order.Delivery,
		})
		err := f.dispatch.Claim(ctx, dispatch.ClaimCommand{OrderID: o.ID, Actor: courier1})
		if !fault.Is(err, fault.PreconditionFailed) {
			t.Fatalf("expected precondition failure, got %v", err)
		}
	})

	t.Run("cash on delivery", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		o, _ := f.orders.Create(ctx, order.CreateCommand{
			Actor: customer1, PaymentMethod: order.PaymentCOD, DeliveryMethod: order.Delivery,
		})
		err := f.orders.Transition(ctx, order.TransitionCommand{OrderID: o.ID, Target: order.StatusConfirmed, Actor: admin})
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		err = f.dispatch.Claim(ctx, dispatch.ClaimCommand{OrderID: o.ID, Actor: courier1})
		if !fault.Is(err, fault.PreconditionFailed) {
			t.Fatalf("expected precondition failure, got %v", err)
		}
	})

	t.Run("pickup order", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		o, _ := f.orders.Create(ctx, order.CreateCommand{
			Actor: customer1, PaymentMethod: order.PaymentCard, DeliveryMethod: order.Pickup,
		})
		if err := f.orders.MarkPaid(ctx, o.ID, admin); err != nil {
			t.Fatalf("mark paid: %v", err)
		}
		err := f.orders.Transition(ctx, order.TransitionCommand{OrderID: o.ID, Target: order.StatusConfirmed, Actor: admin})
		if err != nil {
			t.Fatalf("confirm: %v", err)
		}
		err = f.dispatch.Claim(ctx, dispatch.ClaimCommand{OrderID: o.ID, Actor: courier1})
		if !fault.Is(err, fault.PreconditionFailed) {
			t.Fatalf("expected precondition failure, got %v", err)
		}
	})

	t.Run("inactive courier", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		f.store.PutCourier(&courier.Courier{ID: courier1.ID, Active: false})
		o := f.confirmedOrder(t)
		err := f.dispatch.Claim(ctx, dispatch.ClaimCommand{OrderID: o.ID, Actor: courier1})
		if !fault.Is(err, fault.PreconditionFailed) {
			t.Fatalf("expected precondition failure, got %v", err)
		}
	})

	t.Run("non-courier caller", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		o := f.confirmedOrder(t)
		err := f.dispatch.Claim(ctx, dispatch.ClaimCommand{OrderID: o.ID, Actor: customer1})
		if !fault.Is(err, fault.Forbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})
}

func TestClaimCap(t *testing.T) {
	f := newFixture(t, config.DispatchConfig{MaxActiveOrders: 2, BusyThreshold: 3})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		o := f.confirmedOrder(t)
		if err := f.dispatch.Claim(ctx, dispatch.ClaimCommand{OrderID: o.ID, Actor: courier1}); err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
	}
	o := f.confirmedOrder(t)
	err := f.dispatch.Claim(ctx, dispatch.ClaimCommand{OrderID: o.ID, Actor: courier1})
	if !fault.Is(err, fault.PreconditionFailed) {
		t.Fatalf("expected cap rejection, got %v", err)
	}
	got, _ := f.orders.Get(ctx, o.ID, admin)
	if got.CourierID != nil {
		t.Fatal("capped claim still bound the courier")
	}
}

func TestClaimBusyThreshold(t *testing.T) {
	f := newFixture(t, config.DispatchConfig{MaxActiveOrders: 5, BusyThreshold: 2})
	ctx := context.Background()

	o1 := f.confirmedOrder(t)
	if err := f.dispatch.Claim(ctx, dispatch.ClaimCommand{OrderID: o1.ID, Actor: courier1}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	c, _ := f.store.Courier(ctx, courier1.ID)
	if c.Availability != courier.Available {
		t.Fatalf("availability after 1 order = %s", c.Availability)
	}

	o2 := f.confirmedOrder(t)
	if err := f.dispatch.Claim(ctx, dispatch.ClaimCommand{OrderID: o2.ID, Actor: courier1}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	c, _ = f.store.Courier(ctx, courier1.ID)
	if c.Availability != courier.Busy {
		t.Fatalf("availability after 2 orders = %s, want busy", c.Availability)
	}
}

func TestListClaimable(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()

	visible := f.confirmedOrder(t)
	claimed := f.confirmedOrder(t)
	if err := f.dispatch.Claim(ctx, dispatch.ClaimCommand{OrderID: claimed.ID, Actor: courier1}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	// COD orders never reach the self-service pool.
	cod, _ := f.orders.Create(ctx, order.CreateCommand{
		Actor: customer1, PaymentMethod: order.PaymentCOD, DeliveryMethod: order.Delivery,
	})
	_ = f.orders.Transition(ctx, order.TransitionCommand{OrderID: cod.ID, Target: order.StatusConfirmed, Actor: admin})

	pool, err := f.orders.ListClaimable(ctx, courier1)
	if err != nil {
		t.Fatalf("list claimable: %v", err)
	}
	if len(pool) != 1 || pool[0].ID != visible.ID {
		t.Fatalf("pool = %v, want only order %d", pool, visible.ID)
	}

	if _, err := f.orders.ListClaimable(ctx, customer1); !fault.Is(err, fault.Forbidden) {
		t.Fatalf("customer pool read: expected forbidden, got %v", err)
	}
}

func TestAssign(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()

	// Admin dispatch is the COD path: no self-service claim possible.
	o, _ := f.orders.Create(ctx, order.CreateCommand{
		Actor: customer1, PaymentMethod: order.PaymentCOD, DeliveryMethod: order.Delivery,
	})
	err := f.orders.Transition(ctx, order.TransitionCommand{OrderID: o.ID, Target: order.StatusConfirmed, Actor: admin})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}

	err = f.dispatch.Assign(ctx, dispatch.AssignCommand{OrderID: o.ID, CourierID: courier1.ID, Actor: admin})
	if err != nil {
		t.Fatalf("assign: %v", err)
	}

	got, _ := f.orders.Get(ctx, o.ID, admin)
	if got.CourierID == nil || *got.CourierID != courier1.ID {
		t.Fatal("courier not bound")
	}
	// Assignment advances the order one step.
	if got.Status != order.StatusProcessing {
		t.Fatalf("status = %s, want processing", got.Status)
	}
	c, _ := f.store.Courier(ctx, courier1.ID)
	if c.Availability != courier.Busy {
		t.Fatalf("courier availability = %s, want busy", c.Availability)
	}
	notes, _ := f.store.Notifications(ctx, "courier", courier1.ID)
	if len(notes) != 1 || notes[0].Type != "courier_assigned" {
		t.Fatalf("expected courier notification, got %v", notes)
	}
}

func TestAssignGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("courier caller", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		o := f.confirmedOrder(t)
		err := f.dispatch.Assign(ctx, dispatch.AssignCommand{OrderID: o.ID, CourierID: courier1.ID, Actor: courier1})
		if !fault.Is(err, fault.Forbidden) {
			t.Fatalf("expected forbidden, got %v", err)
		}
	})

	t.Run("offline courier", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		f.store.PutCourier(&courier.Courier{ID: courier1.ID, Active: true, Availability: courier.Offline})
		o := f.confirmedOrder(t)
		err := f.dispatch.Assign(ctx, dispatch.AssignCommand{OrderID: o.ID, CourierID: courier1.ID, Actor: admin})
		if !fault.Is(err, fault.PreconditionFailed) {
			t.Fatalf("expected precondition failure, got %v", err)
		}
	})

	t.Run("delivering order", func(t *testing.T) {
		f := newFixture(t, defaultConfig())
		o := f.confirmedOrder(t)
		if err := f.dispatch.Assign(ctx, dispatch.AssignCommand{OrderID: o.ID, CourierID: courier1.ID, Actor: admin}); err != nil {
			t.Fatalf("assign: %v", err)
		}
		for _, target := range []order.Status{order.StatusReady, order.StatusDelivering} {
			err := f.orders.Transition(ctx, order.TransitionCommand{OrderID: o.ID, Target: target, Actor: admin})
			if err != nil {
				t.Fatalf("transition to %s: %v", target, err)
			}
		}
		err := f.dispatch.Assign(ctx, dispatch.AssignCommand{OrderID: o.ID, CourierID: courier1.ID, Actor: admin})
		if !fault.Is(err, fault.PreconditionFailed) {
			t.Fatalf("expected precondition failure, got %v", err)
		}
	})

	t.Run("cap enforced when configured", func(t *testing.T) {
		f := newFixture(t, config.DispatchConfig{MaxActiveOrders: 1, BusyThreshold: 5, AdminAssignEnforcesCap: true})
		first := f.confirmedOrder(t)
		if err := f.dispatch.Claim(ctx, dispatch.ClaimCommand{OrderID: first.ID, Actor: courier1}); err != nil {
			t.Fatalf("claim: %v", err)
		}
		o := f.confirmedOrder(t)
		err := f.dispatch.Assign(ctx, dispatch.AssignCommand{OrderID: o.ID, CourierID: courier1.ID, Actor: admin})
		if !fault.Is(err, fault.PreconditionFailed) {
			t.Fatalf("expected cap rejection, got %v", err)
		}
	})
}

func TestAssignRebindOverridesClaim(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()
	o := f.confirmedOrder(t)

	if err := f.dispatch.Claim(ctx, dispatch.ClaimCommand{OrderID: o.ID, Actor: courier1}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	other := int64(2)
	f.store.PutCourier(&courier.Courier{ID: other, Active: true, Availability: courier.Available})

	err := f.dispatch.Assign(ctx, dispatch.AssignCommand{OrderID: o.ID, CourierID: other, Actor: admin})
	if err != nil {
		t.Fatalf("admin rebind: %v", err)
	}
	got, _ := f.orders.Get(ctx, o.ID, admin)
	if got.CourierID == nil || *got.CourierID != other {
		t.Fatal("rebind did not take effect")
	}
}
