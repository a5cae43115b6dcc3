package customer

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested customer does not exist.
var ErrNotFound = errors.New("customer not found")

// Customer is a buyer registered by a manager or one of their agents.
type Customer struct {
	ID        string
	ManagerID string
	AgentID   string
	Name      string
	Email     string
	Phone     string
	BirthDate *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateRequest holds the input for registering a customer.
type CreateRequest struct {
	Name      string
	Email     string
	Phone     string
	BirthDate *time.Time
}

// UpdateRequest holds the replacement contact details of a customer.
type UpdateRequest struct {
	Name      string
	Email     string
	Phone     string
	BirthDate *time.Time
}

// Repository defines persistence operations for customers.
type Repository interface {
	Get(ctx context.Context, id string) (*Customer, error)
	// CreateCapped counts the customers owned by (c.ManagerID, c.AgentID),
	// hands the count to guard and inserts c only when guard returns nil.
	// Count and insert run in one transaction serialized per owner.
	CreateCapped(ctx context.Context, c *Customer, guard func(count int) error) error
	Update(ctx context.Context, c *Customer) error
	// CountFor counts customers owned by the manager directly when agentID
	// is empty, or by the given agent otherwise.
	CountFor(ctx context.Context, managerID, agentID string) (int, error)
}
