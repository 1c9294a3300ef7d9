package fulfillment

import "time"

// DealerVerdict is the eligibility oracle's answer for one customer
type DealerVerdict struct {
	IsDealer  bool      `json:"is_dealer"`
	IsActive  bool      `json:"is_active"`
	Status    string    `json:"status"`
	CheckedAt time.Time `json:"checked_at"`
}

// VerdictStatusUnknown marks a verdict that did not come from the oracle
const VerdictStatusUnknown = "unknown"

// DefaultVerdict is used when no verdict is known. failOpen decides whether
// an unknown customer may order.
func DefaultVerdict(failOpen bool) DealerVerdict {
	return DealerVerdict{IsActive: failOpen, Status: VerdictStatusUnknown}
}
