// README: Notification records written by the side-effect dispatcher.
// Delivery transport (push/SSE) is a separate consumer of these rows.
package notification

import (
	"context"
	"time"
)

type Recipient string

const (
	ToCustomer Recipient = "customer"
	ToCourier  Recipient = "courier"
)

type Type string

const (
	TypeCourierAssigned Type = "courier_assigned"
	TypeOrderDelivering Type = "order_delivering"
	TypeOrderCompleted  Type = "order_completed"
	TypeOrderCancelled  Type = "order_cancelled"
)

type Notification struct {
	ID          int64
	Recipient   Recipient
	RecipientID int64
	Type        Type
	Message     string
	// Payload carries structured context for the feed UI: order id and
	// number, plus the status that triggered the write.
	Payload   map[string]any
	CreatedAt time.Time
	ReadAt    *time.Time
}

// Store is the read side used by the feed endpoint; inserts happen inside
// the fulfillment unit of work.
type Store interface {
	Notifications(ctx context.Context, rec Recipient, recipientID int64) ([]Notification, error)
}
