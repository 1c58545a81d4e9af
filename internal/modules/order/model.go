// README: Order aggregate, status table, and audit log definitions.
package order

import (
	"time"

	"kedai/internal/types"
)

type Status string

const (
	StatusNone                Status = "none"
	StatusPendingPayment      Status = "pending_payment"
	StatusWaitingConfirmation Status = "waiting_confirmation"
	// StatusConfirmed is the assignable pool ("queueing" in the storefront UI).
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusDelivering Status = "delivering"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// AllowedTransitions is the exhaustive state table. Terminal statuses have
// no entry; any transition absent here fails with InvalidTransition.
var AllowedTransitions = map[Status][]Status{
	StatusPendingPayment:      {StatusWaitingConfirmation, StatusCancelled},
	StatusWaitingConfirmation: {StatusConfirmed, StatusCancelled},
	StatusConfirmed:           {StatusProcessing, StatusCancelled},
	StatusProcessing:          {StatusReady, StatusCancelled},
	StatusReady:               {StatusDelivering, StatusCancelled},
	StatusDelivering:          {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// ForwardSuccessor returns the single non-cancel continuation of a status.
func ForwardSuccessor(s Status) (Status, bool) {
	for _, next := range AllowedTransitions[s] {
		if next != StatusCancelled {
			return next, true
		}
	}
	return StatusNone, false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Active reports whether an order in this status counts against the
// courier's concurrent-order cap.
func (s Status) Active() bool {
	switch s {
	case StatusConfirmed, StatusProcessing, StatusReady, StatusDelivering:
		return true
	}
	return false
}

// Claimable reports whether a courier may self-assign in this status.
func (s Status) Claimable() bool {
	switch s {
	case StatusConfirmed, StatusProcessing, StatusReady:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCOD  PaymentMethod = "cod"
	PaymentCard PaymentMethod = "card"
	PaymentQRIS PaymentMethod = "qris"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCOD, PaymentCard, PaymentQRIS:
		return true
	}
	return false
}

type PaymentStatus string

const (
	Unpaid PaymentStatus = "unpaid"
	Paid   PaymentStatus = "paid"
)

type DeliveryMethod string

const (
	Delivery DeliveryMethod = "delivery"
	Pickup   DeliveryMethod = "pickup"
)

func (m DeliveryMethod) Valid() bool {
	return m == Delivery || m == Pickup
}

type Order struct {
	ID     int64
	Number string

	CustomerID int64
	// CourierID is non-nil iff a courier owns the delivery; at most one
	// courier ever holds this reference at a time.
	CourierID *int64

	Status         Status
	PaymentMethod  PaymentMethod
	PaymentStatus  PaymentStatus
	DeliveryMethod DeliveryMethod

	DeparturePhoto *string
	ArrivalPhoto   *string
	CancelReason   *string

	// DeliveryDuration is computed from PickedUpAt when the arrival photo
	// lands and the order completes.
	DeliveryDuration *time.Duration

	CreatedAt   time.Time
	PaidAt      *time.Time
	AssignedAt  *time.Time
	PickedUpAt  *time.Time
	DeliveredAt *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
}

// TransitionLog is the append-only audit trail; one row per accepted
// transition, written in the same unit of work as the order mutation.
type TransitionLog struct {
	ID         int64
	OrderID    int64
	FromStatus Status
	ToStatus   Status
	ActorRole  types.Role
	ActorID    *int64
	Note       string
	Metadata   map[string]any
	CreatedAt  time.Time
}

// VerificationRecord is the live COD OTP state for an order. At most one
// record exists per order; regeneration replaces it.
type VerificationRecord struct {
	OrderID   int64
	Code      string
	ExpiresAt time.Time
	Attempts  int
	Verified  bool
	// Trusted marks the ≥N-completed-orders bypass: admitted without ever
	// presenting a code.
	Trusted   bool
	CreatedAt time.Time
}
