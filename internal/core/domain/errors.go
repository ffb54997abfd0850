package domain

import "fmt"

// NotFoundError reports that a referenced entity is absent or soft-deleted.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ValidationError reports malformed input: a negative quantity, an
// unrecognized status token, an inverted date range.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidOperationError reports an operation not permitted in the
// entity's current state, e.g. cancelling a delivered order.
type InvalidOperationError struct {
	Op      string
	OrderID string
	Reason  string
}

func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("cannot %s order %s: %s", e.Op, e.OrderID, e.Reason)
}

// InvalidTransitionError reports a status change attempted on a
// cancelled order. Cancellation locks the status permanently.
type InvalidTransitionError struct {
	OrderID string
	From    Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s: no transition allowed from %s", e.OrderID, e.From)
}
