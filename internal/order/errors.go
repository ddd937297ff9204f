package order

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"restaurant-ops/internal/domain"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")

	// errStatusChanged signals that an order's status moved between the
	// service's read and the guarded update; the caller re-reads and
	// re-validates instead of blindly retrying.
	errStatusChanged = errors.New("order status changed concurrently")
)

// InvalidTransitionError reports a (from, to) pair with no edge in the state
// graph. Carries both ends so callers can render a precise message.
type InvalidTransitionError struct {
	From domain.OrderStatus
	To   domain.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("no transition from %q to %q", e.From, e.To)
}

// TerminalError reports a transition attempt on a delivered or cancelled
// order.
type TerminalError struct {
	Status domain.OrderStatus
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("order is %s and can no longer change status", e.Status)
}

// ForbiddenError reports a legal transition requested by a role outside its
// allowed set.
type ForbiddenError struct {
	Role domain.Role
	From domain.OrderStatus
	To   domain.OrderStatus
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("role %q may not move an order from %q to %q", e.Role, e.From, e.To)
}

// InsufficientStockError names the offending product and the shortfall.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d",
		e.Name, e.Requested, e.Available)
}

type InvalidDiscountError struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
}

func (e *InvalidDiscountError) Error() string {
	return fmt.Sprintf("discount %s is invalid for subtotal %s",
		e.Discount.StringFixed(2), e.Subtotal.StringFixed(2))
}
