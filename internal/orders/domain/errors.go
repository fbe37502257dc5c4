package domain

import "errors"

// Error kinds. Every specific error below wraps exactly one of these so the
// boundary layer can pick a response code with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrAuthorization   = errors.New("not authorized")
	ErrExternalService = errors.New("external service failure")
)

var (
	ErrOrderNotFound    = newKindError(ErrNotFound, "order not found")
	ErrPaymentNotFound  = newKindError(ErrNotFound, "payment not found")
	ErrTrackingNotFound = newKindError(ErrNotFound, "tracking not found")
	ErrProductNotFound  = newKindError(ErrNotFound, "product not found")

	ErrInvalidProduct         = newKindError(ErrValidation, "invalid product")
	ErrVendorMismatch         = newKindError(ErrValidation, "product does not belong to vendor")
	ErrInsufficientStock      = newKindError(ErrValidation, "insufficient stock")
	ErrEmptyOrder             = newKindError(ErrValidation, "order must have at least one item")
	ErrInvalidQuantity        = newKindError(ErrValidation, "quantity must be positive")
	ErrInvalidTransition      = newKindError(ErrValidation, "invalid order status transition")
	ErrInvalidOrderStatus     = newKindError(ErrValidation, "unknown order status")
	ErrInvalidShipmentStatus  = newKindError(ErrValidation, "unknown shipment status")
	ErrPaymentNotCompleted    = newKindError(ErrValidation, "payment not completed")
	ErrOrderNotPayable        = newKindError(ErrValidation, "order is not awaiting payment")
	ErrInvalidPaymentAmount   = newKindError(ErrValidation, "payment amount must be positive")
	ErrMissingDeliveryAddress = newKindError(ErrValidation, "delivery_address is required")

	ErrPaymentInitiationFailed   = newKindError(ErrExternalService, "failed to initialize payment")
	ErrPaymentVerificationFailed = newKindError(ErrExternalService, "failed to verify payment")
	ErrCarrierUnavailable        = newKindError(ErrExternalService, "carrier registration failed")
)

type kindError struct {
	kind error
	msg  string
}

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// IsNotFound reports whether err is of the not-found kind.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
