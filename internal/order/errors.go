package order

import "errors"

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrIllegalTransition       = errors.New("illegal order status transition")
	ErrUnauthorizedActor       = errors.New("actor is not allowed to perform this operation")
	ErrPaymentAlreadyProcessed = errors.New("payment has already been processed")
	ErrAlreadyReleased         = errors.New("payment has already been released")
	ErrMissingTrackingInfo     = errors.New("tracking number and carrier are required")
	ErrNotShipped              = errors.New("order has not been shipped yet")
)
