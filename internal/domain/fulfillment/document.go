package fulfillment

import "github.com/shopspring/decimal"

// OrderSheet is everything printed on one order document
type OrderSheet struct {
	OrderID    string
	ClientName string
	Items      []OrderItem
	Total      decimal.Decimal
	Approved   bool
	Category   Category
	Latitude   *float64
	Longitude  *float64
	// Images maps an item image URL to a preloaded data URL. Items whose
	// image is missing here are printed with the original URL.
	Images map[string]string
}

// SheetFor builds the document of a sub-order for the given customer
func SheetFor(o *SubOrder, u *User, approved bool) OrderSheet {
	sheet := OrderSheet{
		OrderID:    o.ID,
		ClientName: o.ClientName,
		Items:      o.Items,
		Total:      o.Total,
		Approved:   approved,
		Category:   o.Category,
	}
	if u != nil {
		sheet.Latitude = u.Latitude
		sheet.Longitude = u.Longitude
	}
	return sheet
}

// ImageURLs lists the distinct item image URLs of the sheet
func (s OrderSheet) ImageURLs() []string {
	seen := make(map[string]struct{}, len(s.Items))
	urls := make([]string, 0, len(s.Items))
	for _, it := range s.Items {
		if it.Image == "" {
			continue
		}
		if _, ok := seen[it.Image]; ok {
			continue
		}
		seen[it.Image] = struct{}{}
		urls = append(urls, it.Image)
	}
	return urls
}
