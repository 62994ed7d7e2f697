// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as services
// and handlers to distinguish between different failure scenarios without
// inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a lookup by key matches no row.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when signup uses an email that is already
// registered.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicateOrder is returned when an order with the same contact name,
// date, time and attraction already exists.
var ErrDuplicateOrder = errors.New("duplicate order")

// ErrMemberHasPendingOrder is returned when the member already has an order
// waiting on the payment gateway.
var ErrMemberHasPendingOrder = errors.New("member has an order awaiting payment")

// ErrInvalidTransition is returned when an order is not in the status a
// transition requires (e.g. confirming an order that was already rejected).
var ErrInvalidTransition = errors.New("invalid order status transition")
