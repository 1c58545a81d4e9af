// README: Photo-gated transition tests covering the full delivery flow.
package order_test

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"kedai/internal/config"
	"kedai/internal/fault"
	"kedai/internal/modules/courier"
	"kedai/internal/modules/dispatch"
	"kedai/internal/modules/order"
	"kedai/internal/storage/memory"
	"kedai/internal/types"
)

// claimedOrder brings a paid card order to the given status with courier1
// bound to it.
func claimedOrder(t *testing.T, svc *order.Service, store *memory.Store, status order.Status) *order.Order {
	t.Helper()
	ctx := context.Background()
	store.PutCourier(&courier.Courier{ID: courier1.ID, Name: "Dimas", Active: true, Availability: courier.Available})

	o := mustCreate(t, svc, customer1, order.PaymentCard, order.Delivery)
	if err := svc.MarkPaid(ctx, o.ID, admin); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	mustTransition(t, svc, o.ID, order.StatusConfirmed)

	d := dispatch.NewService(store, svc, config.DispatchConfig{MaxActiveOrders: 5, BusyThreshold: 3}, zap.NewNop().Sugar())
	if err := d.Claim(ctx, dispatch.ClaimCommand{OrderID: o.ID, Actor: courier1}); err != nil {
		t.Fatalf("claim: %v", err)
	}

	cur := order.StatusConfirmed
	for cur != status {
		next, ok := order.ForwardSuccessor(cur)
		if !ok {
			t.Fatalf("cannot walk from %s to %s", cur, status)
		}
		mustTransition(t, svc, o.ID, next)
		cur = next
	}
	got, err := svc.Get(ctx, o.ID, admin)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	return got
}

func submitPhoto(svc *order.Service, orderID int64, actor types.Principal, kind order.PhotoKind, filename string, size int64) error {
	return svc.SubmitPhoto(context.Background(), order.PhotoCommand{
		OrderID:  orderID,
		Actor:    actor,
		Kind:     kind,
		Filename: filename,
		Size:     size,
		File:     photoBody(),
	})
}

func TestDeliveryFlowWithPhotos(t *testing.T) {
	svc, store, files := newTestService(t)
	ctx := context.Background()
	o := claimedOrder(t, svc, store, order.StatusReady)

	if err := submitPhoto(svc, o.ID, courier1, order.PhotoDeparture, "door.jpg", 128); err != nil {
		t.Fatalf("departure photo: %v", err)
	}
	got, _ := svc.Get(ctx, o.ID, admin)
	if got.Status != order.StatusDelivering {
		t.Fatalf("after departure photo: status = %s", got.Status)
	}
	if got.DeparturePhoto == nil || got.PickedUpAt == nil {
		t.Fatal("departure photo or pickup time not recorded")
	}

	c, _ := store.Courier(ctx, courier1.ID)
	if c.Availability != courier.Busy {
		t.Fatalf("courier availability = %s, want busy", c.Availability)
	}

	if err := submitPhoto(svc, o.ID, courier1, order.PhotoArrival, "door.png", 128); err != nil {
		t.Fatalf("arrival photo: %v", err)
	}
	got, _ = svc.Get(ctx, o.ID, admin)
	if got.Status != order.StatusCompleted {
		t.Fatalf("after arrival photo: status = %s", got.Status)
	}
	if got.ArrivalPhoto == nil || got.DeliveredAt == nil || got.CompletedAt == nil {
		t.Fatal("completion fields not recorded")
	}
	if got.DeliveryDuration == nil {
		t.Fatal("delivery duration not computed")
	}

	// Side effects of completion.
	c, _ = store.Courier(ctx, courier1.ID)
	if c.Deliveries != 1 {
		t.Fatalf("courier deliveries = %d, want 1", c.Deliveries)
	}
	if c.Availability != courier.Available {
		t.Fatalf("courier availability = %s, want available again", c.Availability)
	}
	cust, _ := store.Customer(ctx, customer1.ID)
	if cust.LoyaltyPoints != 10 || cust.CompletedOrders != 1 {
		t.Fatalf("customer stats = %d points, %d completed", cust.LoyaltyPoints, cust.CompletedOrders)
	}

	if len(files.removed) != 0 {
		t.Fatalf("unexpected photo removals: %v", files.removed)
	}

	notes, _ := store.Notifications(ctx, "customer", customer1.ID)
	if len(notes) != 3 {
		t.Fatalf("expected assigned+delivering+completed notifications, got %d", len(notes))
	}
}

func TestDeparturePhotoWhileProcessing(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	o := claimedOrder(t, svc, store, order.StatusProcessing)

	if err := submitPhoto(svc, o.ID, courier1, order.PhotoDeparture, "door.jpg", 128); err != nil {
		t.Fatalf("departure photo from processing: %v", err)
	}
	got, _ := svc.Get(ctx, o.ID, admin)
	if got.Status != order.StatusDelivering {
		t.Fatalf("status = %s, want delivering", got.Status)
	}

	// Both hops are on the timeline.
	logs, _ := svc.Timeline(ctx, o.ID, admin)
	last, prev := logs[len(logs)-1], logs[len(logs)-2]
	if prev.FromStatus != order.StatusProcessing || prev.ToStatus != order.StatusReady {
		t.Fatalf("expected processing->ready hop, got %s->%s", prev.FromStatus, prev.ToStatus)
	}
	if last.FromStatus != order.StatusReady || last.ToStatus != order.StatusDelivering {
		t.Fatalf("expected ready->delivering hop, got %s->%s", last.FromStatus, last.ToStatus)
	}
}

func TestPhotoRejectedOutOfPhase(t *testing.T) {
	svc, store, files := newTestService(t)
	ctx := context.Background()
	o := claimedOrder(t, svc, store, order.StatusReady)

	// Arrival before departure: nothing may change.
	err := submitPhoto(svc, o.ID, courier1, order.PhotoArrival, "early.jpg", 128)
	if !fault.Is(err, fault.PreconditionFailed) {
		t.Fatalf("expected precondition failure, got %v", err)
	}
	got, _ := svc.Get(ctx, o.ID, admin)
	if got.Status != order.StatusReady || got.ArrivalPhoto != nil {
		t.Fatalf("rejected photo mutated the order: status=%s", got.Status)
	}
	if len(files.removed) != 1 {
		t.Fatalf("stored file not cleaned up after rejection, removals = %v", files.removed)
	}
}

func TestPhotoRejectedFromWrongCourier(t *testing.T) {
	svc, store, _ := newTestService(t)
	o := claimedOrder(t, svc, store, order.StatusReady)

	other := types.Principal{ID: 77, Role: types.RoleCourier}
	store.PutCourier(&courier.Courier{ID: other.ID, Active: true, Availability: courier.Available})
	err := submitPhoto(svc, o.ID, other, order.PhotoDeparture, "door.jpg", 128)
	if !fault.Is(err, fault.NotOwner) {
		t.Fatalf("expected not-owner, got %v", err)
	}
}

func TestPhotoValidation(t *testing.T) {
	svc, store, _ := newTestService(t)
	o := claimedOrder(t, svc, store, order.StatusReady)

	if err := submitPhoto(svc, o.ID, courier1, order.PhotoDeparture, "door.gif", 128); !fault.Is(err, fault.PreconditionFailed) {
		t.Fatalf("gif: expected precondition failure, got %v", err)
	}
	if err := submitPhoto(svc, o.ID, courier1, order.PhotoDeparture, "door.jpg", 10<<20); !fault.Is(err, fault.PreconditionFailed) {
		t.Fatalf("oversized: expected precondition failure, got %v", err)
	}
	if err := submitPhoto(svc, o.ID, customer1, order.PhotoDeparture, "door.jpg", 128); !fault.Is(err, fault.Forbidden) {
		t.Fatalf("customer upload: expected forbidden, got %v", err)
	}
	if err := submitPhoto(svc, o.ID, courier1, "selfie", "door.jpg", 128); !fault.Is(err, fault.PreconditionFailed) {
		t.Fatalf("unknown kind: expected precondition failure, got %v", err)
	}
}

func TestManualTransitionToDeliveringRequiresPhoto(t *testing.T) {
	svc, store, _ := newTestService(t)
	o := claimedOrder(t, svc, store, order.StatusReady)

	err := svc.Transition(context.Background(), order.TransitionCommand{
		OrderID: o.ID, Target: order.StatusDelivering, Actor: courier1,
	})
	if !fault.Is(err, fault.PreconditionFailed) {
		t.Fatalf("expected precondition failure without photo, got %v", err)
	}
}

func TestCODPaidOnCompletion(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	store.PutCourier(&courier.Courier{ID: courier1.ID, Active: true, Availability: courier.Available})

	o := mustCreate(t, svc, customer1, order.PaymentCOD, order.Delivery)
	mustTransition(t, svc, o.ID, order.StatusConfirmed)

	d := dispatch.NewService(store, svc, config.DispatchConfig{MaxActiveOrders: 5, BusyThreshold: 3}, zap.NewNop().Sugar())
	if err := d.Assign(ctx, dispatch.AssignCommand{OrderID: o.ID, CourierID: courier1.ID, Actor: admin}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	mustTransition(t, svc, o.ID, order.StatusReady)

	if err := submitPhoto(svc, o.ID, courier1, order.PhotoDeparture, "door.jpg", 128); err != nil {
		t.Fatalf("departure: %v", err)
	}
	if err := submitPhoto(svc, o.ID, courier1, order.PhotoArrival, "door.jpg", 128); err != nil {
		t.Fatalf("arrival: %v", err)
	}

	got, _ := svc.Get(ctx, o.ID, admin)
	if got.PaymentStatus != order.Paid || got.PaidAt == nil {
		t.Fatalf("cod order not settled at completion: payment=%s", got.PaymentStatus)
	}
}
