package checkout

import (
	"sync"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/shopspring/decimal"
)

// Preview is an enriched cart waiting for the customer's signature
type Preview struct {
	ID        string
	UserID    int64
	Items     []fulfillment.OrderItem
	Total     decimal.Decimal
	Document  []byte
	CreatedAt time.Time
}

// ItemCount returns the number of cart lines
func (p *Preview) ItemCount() int {
	return len(p.Items)
}

// pendingPreviews keeps the last preview of every customer until it is
// signed or expires
type pendingPreviews struct {
	mu    sync.Mutex
	byUID map[int64]*Preview
	ttl   time.Duration
}

func newPendingPreviews(ttl time.Duration) *pendingPreviews {
	return &pendingPreviews{byUID: make(map[int64]*Preview), ttl: ttl}
}

func (p *pendingPreviews) put(pr *Preview) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byUID[pr.UserID] = pr
}

func (p *pendingPreviews) get(userID int64, now time.Time) (*Preview, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pr, ok := p.byUID[userID]
	if !ok {
		return nil, false
	}
	if p.ttl > 0 && now.Sub(pr.CreatedAt) > p.ttl {
		delete(p.byUID, userID)
		return nil, false
	}
	return pr, true
}

// take removes the preview only if it is still the one that was loaded, so
// a newer preview submitted meanwhile survives
func (p *pendingPreviews) take(pr *Preview) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cur, ok := p.byUID[pr.UserID]; ok && cur == pr {
		delete(p.byUID, pr.UserID)
	}
}

func (p *pendingPreviews) drop(userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.byUID, userID)
}
