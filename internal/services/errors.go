package services

import "errors"

var (
	ErrNoSession         = errors.New("no active session")
	ErrMalformedSession  = errors.New("backend reported success without a user record")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrItemNotFound      = errors.New("cart item not found")
	ErrNoCheckout        = errors.New("no checkout in progress")
	ErrInvalidTransition = errors.New("invalid checkout transition")
	ErrTermsNotAccepted  = errors.New("terms and conditions must be accepted")
	ErrOrderMismatch     = errors.New("payment does not belong to the pending order")
	ErrSuperseded        = errors.New("superseded by a newer query")
	ErrUnknownPolicy     = errors.New("unknown policy")
)
