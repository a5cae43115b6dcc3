package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned by repositories when an order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrStatusChanged is returned by conditional updates when the stored
	// status no longer matches the expected one.
	ErrStatusChanged = errors.New("order status changed concurrently")
)

// Order is a customer order owned by a manager and optionally one of their
// agents.
type Order struct {
	ID          string
	ManagerID   string
	AgentID     string
	CustomerID  string
	Items       []Item
	Status      Status
	Total       decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// Item is a line item with name and price captured when it was added.
type Item struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Amount returns quantity times unit price.
func (i Item) Amount() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Repository defines persistence operations for orders. Every mutating
// method is a single transactional unit.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	// AddItems appends items and increases the total by added, provided the
	// order is still CREATED. Returns ErrStatusChanged otherwise.
	AddItems(ctx context.Context, id string, items []Item, added decimal.Decimal, now time.Time) error
	// UpdateStatus moves the order from one status to another. Returns
	// ErrStatusChanged when the stored status is not from.
	UpdateStatus(ctx context.Context, id string, from, to Status, now time.Time) error
	// BulkExpireEmptyOrders marks every CREATED order without items created
	// before cutoff as EXPIRED with updated_at = now, and returns the number
	// of affected orders.
	BulkExpireEmptyOrders(ctx context.Context, cutoff, now time.Time) (int64, error)
}
