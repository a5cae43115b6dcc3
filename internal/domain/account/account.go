// Package account covers tenant onboarding: a business, its manager and the
// manager's agents.
package account

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrEmailTaken is returned by repositories when a manager or agent email is
// already registered.
var ErrEmailTaken = errors.New("email already registered")

// Business is the legal entity a manager operates.
type Business struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	TaxID     string
	FoundedOn time.Time
	CreatedAt time.Time
}

// Manager owns a business and every record created under it.
type Manager struct {
	ID           string
	BusinessID   string
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	PasswordHash string
	CreatedAt    time.Time
}

// Agent acts on behalf of a manager.
type Agent struct {
	ID        string
	ManagerID string
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
}

// CreateBusinessRequest holds the business half of a registration.
type CreateBusinessRequest struct {
	Name      string
	Email     string
	Phone     string
	TaxID     string
	FoundedOn time.Time
}

// CreateManagerRequest holds the manager half of a registration.
type CreateManagerRequest struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Password  string
}

// CreateAgentRequest holds the input for adding an agent.
type CreateAgentRequest struct {
	Name  string
	Email string
	Phone string
}

// Repository defines persistence operations for accounts.
type Repository interface {
	// CreateBusiness stores the business and its manager in one transaction.
	CreateBusiness(ctx context.Context, b *Business, m *Manager) error
	CreateAgent(ctx context.Context, a *Agent) error
}
