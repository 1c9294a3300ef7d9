package fulfillment

import (
	"fmt"
	"strings"
	"time"
)

const (
	orderIDTimeLayout = "20060102150405"
	previewPrefix     = "PREVIEW_"
)

// NewBaseOrderID derives the checkout id from the confirmation time and the
// last four digits of the customer id.
func NewBaseOrderID(now time.Time, userID int64) string {
	if userID < 0 {
		userID = -userID
	}
	return fmt.Sprintf("%s%04d", now.Format(orderIDTimeLayout), userID%10000)
}

// SubOrderID builds the id of the part-th sub-order (1-based)
func SubOrderID(baseID string, part int) string {
	return fmt.Sprintf("%s_%d", baseID, part)
}

// BaseIDOf strips the part suffix from a sub-order id
func BaseIDOf(subOrderID string) string {
	if i := strings.LastIndex(subOrderID, "_"); i > 0 && !strings.HasPrefix(subOrderID, previewPrefix) {
		return subOrderID[:i]
	}
	return subOrderID
}

// NewPreviewID labels the draft document shown before the customer signs
func NewPreviewID(now time.Time, userID int64) string {
	return previewPrefix + NewBaseOrderID(now, userID)
}
