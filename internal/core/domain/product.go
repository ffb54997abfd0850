package domain

import "github.com/shopspring/decimal"

// Product is an external collaborator: the core validates references
// against it but never owns its lifecycle.
type Product struct {
	ID       string
	Name     string
	Category string
	Price    decimal.Decimal
}
