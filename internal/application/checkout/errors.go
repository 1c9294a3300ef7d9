package checkout

import (
	"errors"
	"fmt"

	"github.com/erp/fulfillment/internal/domain/shared"
)

// Reason tells the chat layer which localized refusal to show
type Reason int

const (
	ReasonSessionExpired Reason = iota + 1
	ReasonProfileIncomplete
	ReasonNotDealer
	ReasonCooldown
	ReasonCatalogUnavailable
	ReasonUnknownProduct
	ReasonNoPendingOrder
	ReasonEmptySignature
	ReasonSignatureMismatch
	ReasonNothingToOrder
)

// Rejection is a refused checkout step. It unwraps to the domain error that
// classifies it.
type Rejection struct {
	Reason Reason
	// Seconds left on the cooldown
	Seconds int
	// Status reported by the eligibility oracle
	Status string
	// ProductID that was not found in the catalog
	ProductID int64
	// Expected is the registered full name for a signature mismatch
	Expected string

	err *shared.DomainError
}

func (r *Rejection) Error() string {
	if r.err == nil {
		return fmt.Sprintf("checkout rejected (reason %d)", r.Reason)
	}
	return r.err.Error()
}

func (r *Rejection) Unwrap() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

// AsRejection extracts a Rejection from err
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

func sessionExpired() error {
	return &Rejection{Reason: ReasonSessionExpired, err: shared.NewValidationError("Order session expired")}
}

func profileIncomplete() error {
	return &Rejection{Reason: ReasonProfileIncomplete, err: shared.NewValidationError("Registration is not complete")}
}

func notDealer(status string) error {
	return &Rejection{
		Reason: ReasonNotDealer,
		Status: status,
		err:    shared.NewAuthorizationError(fmt.Sprintf("Customer is not an active dealer (%s)", status)),
	}
}

func cooldown(seconds int) error {
	return &Rejection{
		Reason:  ReasonCooldown,
		Seconds: seconds,
		err:     shared.NewDomainError(shared.CodeRateLimited, fmt.Sprintf("Wait %d seconds before the next order", seconds)),
	}
}

func catalogUnavailable() error {
	return &Rejection{Reason: ReasonCatalogUnavailable, err: shared.NewUpstreamError("Catalog is temporarily unavailable", nil)}
}

func unknownProduct(id int64) error {
	return &Rejection{
		Reason:    ReasonUnknownProduct,
		ProductID: id,
		err:       shared.NewValidationError(fmt.Sprintf("Product %d not found in catalog", id)),
	}
}

func noPendingOrder() error {
	return &Rejection{Reason: ReasonNoPendingOrder, err: shared.NewNotFoundError("No order is waiting for a signature")}
}

func emptySignature() error {
	return &Rejection{Reason: ReasonEmptySignature, err: shared.NewValidationError("Signature is empty")}
}

func signatureMismatch(expected string) error {
	return &Rejection{
		Reason:   ReasonSignatureMismatch,
		Expected: expected,
		err:      shared.NewValidationError("Signature does not match the registered name"),
	}
}

func nothingToOrder() error {
	return &Rejection{Reason: ReasonNothingToOrder, err: shared.NewValidationError("No item belongs to a known category")}
}
