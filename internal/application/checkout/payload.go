// Package checkout turns a web-app cart into a signed, split set of
// sub-orders.
package checkout

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/go-playground/validator/v10"
)

// Limits of a cart submission
const (
	MaxItems    = 200
	MaxQuantity = 1_000_000_000
	MaxPrice    = 10_000_000_000
	MaxTotal    = 1_000_000_000_000
)

// quantityFields are the accepted names of the quantity field, in lookup
// order
var quantityFields = []string{"qty", "quantity", "count", "amount"}

// Amount is a submitted money value. It accepts JSON numbers and numeric
// strings.
type Amount float64

var errNotNumber = errors.New("not a number")

// UnmarshalJSON decodes a number or a numeric string
func (a *Amount) UnmarshalJSON(b []byte) error {
	v, err := parseNumber(b)
	if err != nil {
		return errNotNumber
	}
	*a = Amount(v)
	return nil
}

// Float64 returns the amount as a float64
func (a Amount) Float64() float64 {
	return float64(a)
}

// PayloadItem is one submitted cart line. Price is informational; checkout
// prices items from the catalog.
type PayloadItem struct {
	ID    int64   `json:"id" validate:"gt=0"`
	Qty   int64   `json:"qty" validate:"gt=0,lte=1000000000"`
	Price *Amount `json:"price" validate:"required,gte=0,lte=10000000000"`
	Name  string  `json:"name"`
}

// Payload is the structured cart a customer submits from the web app
type Payload struct {
	Items  []PayloadItem `json:"items" validate:"required,min=1,max=200,dive"`
	Total  *Amount       `json:"total" validate:"required,gte=0,lte=1000000000000"`
	UserID int64         `json:"user_id"`
}

// CartItems returns the product ids and quantities of the payload
func (p *Payload) CartItems() []fulfillment.CartItem {
	items := make([]fulfillment.CartItem, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, fulfillment.CartItem{ProductID: it.ID, Qty: it.Qty})
	}
	return items
}

// UnmarshalJSON accepts the quantity under any of its synonyms and integers
// written as strings
func (i *PayloadItem) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("item must be an object")
	}

	id, ok := raw["id"]
	if !ok {
		return fmt.Errorf("id is missing")
	}
	v, err := parseInteger(id)
	if err != nil {
		return fmt.Errorf("id must be an integer")
	}
	i.ID = v

	found := false
	for _, field := range quantityFields {
		q, ok := raw[field]
		if !ok {
			continue
		}
		v, err := parseInteger(q)
		if err != nil {
			return fmt.Errorf("%s must be an integer", field)
		}
		i.Qty = v
		found = true
		break
	}
	if !found {
		return fmt.Errorf("quantity is missing (qty/quantity/count/amount)")
	}

	if p, ok := raw["price"]; ok && !isNull(p) {
		var price Amount
		if err := price.UnmarshalJSON(p); err != nil {
			return fmt.Errorf("price must be a number")
		}
		i.Price = &price
	}
	if n, ok := raw["name"]; ok && !isNull(n) {
		_ = json.Unmarshal(n, &i.Name)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func parseInteger(raw json.RawMessage) (int64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	return n.Int64()
}

func parseNumber(raw json.RawMessage) (float64, error) {
	var v float64
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, err
		}
		v = f
	} else {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, err
		}
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		v = f
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("not a finite number")
	}
	return v, nil
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func payloadValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ValidatePayload decodes and validates a raw cart submission. Malformed
// input is a validation error whose message can be shown to the customer.
func ValidatePayload(raw []byte) (*Payload, error) {
	var p Payload
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&p); err != nil {
		return nil, shared.NewValidationError(fmt.Sprintf("Invalid order data: %s", decodeMessage(err)))
	}
	if err := payloadValidator().Struct(&p); err != nil {
		return nil, shared.NewValidationError(validationMessage(err))
	}
	return &p, nil
}

func decodeMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.Is(err, errNotNumber):
		return "total must be a number"
	case errors.As(err, &typeErr):
		return fmt.Sprintf("field %s has the wrong type", typeErr.Field)
	case errors.As(err, &syntaxErr):
		return "malformed JSON"
	default:
		return err.Error()
	}
}

func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "Invalid order data"
	}
	e := verrs[0]
	field := strings.TrimPrefix(e.Namespace(), "Payload.")
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return "Order cannot be empty"
	case "max":
		return fmt.Sprintf("Too many items (at most %d)", MaxItems)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
