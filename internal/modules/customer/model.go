// README: Customer entity with loyalty counters.
package customer

import "time"

type Customer struct {
	ID   int64
	Name string
	// LoyaltyPoints is credited by the side-effect dispatcher on completion.
	LoyaltyPoints int64
	// CompletedOrders is the lifetime successful-order counter; it also
	// feeds the trusted-customer heuristic in the verification gate.
	CompletedOrders int64
	CreatedAt       time.Time
}
