package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog entry of one manager. Orders reference products only
// to snapshot their name and price onto line items.
type Product struct {
	ID        string
	ManagerID string
	Name      string
	Price     decimal.Decimal
}

// Repository defines read operations for the product catalog.
type Repository interface {
	// GetByIDs returns the products of managerID among ids. Unknown ids are
	// omitted from the result.
	GetByIDs(ctx context.Context, managerID string, ids []string) ([]Product, error)
}
