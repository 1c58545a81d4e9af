// README: Concurrency tests for claim arbitration (run with -race).
package dispatch_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"kedai/internal/fault"
	"kedai/internal/modules/courier"
	"kedai/internal/modules/dispatch"
	"kedai/internal/modules/order"
	"kedai/internal/types"
)

func TestConcurrentClaimSameOrder(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()
	o := f.confirmedOrder(t)

	const claimants = 8
	for i := int64(1); i <= claimants; i++ {
		f.store.PutCourier(&courier.Courier{
			ID: i, Name: fmt.Sprintf("c%d", i), Active: true, Availability: courier.Available,
		})
	}

	var wg sync.WaitGroup
	errs := make(chan error, claimants)
	for i := int64(1); i <= claimants; i++ {
		wg.Add(1)
		go func(courierID int64) {
			defer wg.Done()
			errs <- f.dispatch.Claim(ctx, dispatch.ClaimCommand{
				OrderID: o.ID,
				Actor:   types.Principal{ID: courierID, Role: types.RoleCourier},
			})
		}(i)
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !fault.Is(err, fault.PreconditionFailed) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 successful claim, got %d", success)
	}

	got, err := f.orders.Get(ctx, o.ID, admin)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.CourierID == nil {
		t.Fatal("no courier bound after the race")
	}

	notes, _ := f.store.Notifications(ctx, "customer", customer1.ID)
	if len(notes) != 1 {
		t.Fatalf("expected a single assignment notification, got %d", len(notes))
	}
}

func TestConcurrentClaimVsCancel(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()
	o := f.confirmedOrder(t)

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- f.dispatch.Claim(ctx, dispatch.ClaimCommand{OrderID: o.ID, Actor: courier1})
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- f.orders.Transition(ctx, order.TransitionCommand{
			OrderID: o.ID, Target: order.StatusCancelled, Actor: admin, Note: "closing time",
		})
	}()
	wg.Wait()
	close(errs)

	for err := range errs {
		if err == nil {
			continue
		}
		if !fault.Is(err, fault.PreconditionFailed) && !fault.Is(err, fault.InvalidTransition) {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Whatever the interleaving, the final state is coherent: either the
	// order is cancelled, or it is claimed and still confirmed.
	got, _ := f.orders.Get(ctx, o.ID, admin)
	switch {
	case got.Status == order.StatusCancelled:
		// claim may or may not have landed first
	case got.CourierID != nil && *got.CourierID == courier1.ID:
	default:
		t.Fatalf("incoherent final state: status=%s courier=%v", got.Status, got.CourierID)
	}
}
