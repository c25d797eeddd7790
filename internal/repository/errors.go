// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and the inventory ledger to distinguish between different
// failure scenarios. For example, ErrForbidden indicates that the
// current user is not authorized to perform an operation on a resource
// owned by someone else, while ErrTrainNotFound signals that a train
// referenced by a request does not exist.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own, such as cancelling another user's
// booking. Handlers should translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrTrainNotFound is returned when a train lookup by ID or train
// number matches no row. Handlers should translate this into an
// HTTP 404 response.
var ErrTrainNotFound = errors.New("train not found")

// ErrBookingNotFound is returned when a booking lookup by internal ID
// or public booking code matches no row.
var ErrBookingNotFound = errors.New("booking not found")

// ErrPaymentNotFound is returned when no payment record exists for a
// gateway reference. Reconciliation must not mutate any state when
// this occurs.
var ErrPaymentNotFound = errors.New("payment not found")

// ErrEmailExists is returned by the user repository when registration
// collides with an existing email address.
var ErrEmailExists = errors.New("email already exists")
