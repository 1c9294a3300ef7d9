package fulfillment

import "github.com/shopspring/decimal"

// Product is a catalog record as of the last cache refresh
type Product struct {
	ID       int64
	Name     string
	Price    decimal.Decimal
	Weight   decimal.Decimal
	Cube     decimal.Decimal
	Image    string
	Category string
}

// CartItem is what the customer submits: a product id and a quantity
type CartItem struct {
	ProductID int64
	Qty       int64
}

// ItemID implements ItemRef
func (c CartItem) ItemID() int64 {
	return c.ProductID
}

// OrderItem is the item snapshot taken at submission time. It is never
// re-read from the live catalog after the sub-order is created.
type OrderItem struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Qty      int64           `json:"qty"`
	Weight   decimal.Decimal `json:"weight"`
	Cube     decimal.Decimal `json:"cube"`
	Image    string          `json:"image,omitempty"`
	Category Category        `json:"category"`
}

// ItemID implements ItemRef
func (i OrderItem) ItemID() int64 {
	return i.ID
}

// Subtotal returns price multiplied by quantity
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(i.Qty))
}

// NewOrderItem snapshots a catalog product for the given quantity
func NewOrderItem(p Product, qty int64) OrderItem {
	cat, _ := Classify(p.ID)
	return OrderItem{
		ID:       p.ID,
		Name:     p.Name,
		Price:    p.Price,
		Qty:      qty,
		Weight:   p.Weight,
		Cube:     p.Cube,
		Image:    p.Image,
		Category: cat,
	}
}

// SumItems totals a list of item snapshots
func SumItems(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}
