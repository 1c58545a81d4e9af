// README: Courier entity and availability definitions.
package courier

import "time"

type Availability string

const (
	Available Availability = "available"
	Busy      Availability = "busy"
	Offline   Availability = "offline"
)

func (a Availability) Valid() bool {
	switch a {
	case Available, Busy, Offline:
		return true
	}
	return false
}

type Courier struct {
	ID           int64
	Name         string
	Phone        string
	Availability Availability
	// Active is a soft flag; deactivation is refused while the courier
	// holds active orders, and couriers are never physically deleted.
	Active     bool
	Rating     float64
	Deliveries int64
	CreatedAt  time.Time
}
