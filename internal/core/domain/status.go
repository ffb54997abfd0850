package domain

import "strings"

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusReturned   Status = "RETURNED"
)

// ParseStatus maps a free-form token to a recognized status. Matching is
// case-insensitive; unknown tokens fail with a ValidationError naming the
// offending value.
func ParseStatus(token string) (Status, error) {
	switch s := Status(strings.ToUpper(token)); s {
	case StatusPending, StatusInProgress, StatusShipped, StatusDelivered,
		StatusCompleted, StatusCancelled, StatusReturned:
		return s, nil
	default:
		return "", &ValidationError{Field: "status", Reason: "unrecognized status " + token}
	}
}
