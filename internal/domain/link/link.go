// Package link manages shareable ordering links that managers and agents
// hand out to customers.
package link

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/orderdesk/internal/domain/auth"
	"github.com/xenking/orderdesk/internal/domain/customer"
	"github.com/xenking/orderdesk/internal/domain/failure"
	"github.com/xenking/orderdesk/internal/validate"
)

// Link is an ordering link issued for one customer.
type Link struct {
	ID         string
	ManagerID  string
	AgentID    string
	CustomerID string
	Token      string
	CreatedAt  time.Time
}

// Repository defines persistence operations for links.
type Repository interface {
	Create(ctx context.Context, l *Link) error
}

// Customers resolves the customer a link is issued for.
type Customers interface {
	Get(ctx context.Context, id string) (*customer.Customer, error)
}

// Service issues links.
type Service struct {
	links     Repository
	customers Customers
	now       func() time.Time
}

// NewService creates a link Service.
func NewService(links Repository, customers Customers) *Service {
	return &Service{links: links, customers: customers, now: time.Now}
}

// Create issues a link for a customer visible to the caller.
func (s *Service) Create(ctx context.Context, who auth.Identity, customerID string) (*Link, error) {
	if err := validate.NonEmpty(customerID, "customer id"); err != nil {
		return nil, err
	}
	c, err := s.customers.Get(ctx, customerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, failure.New(failure.ReasonCustomerNotFound, customerID)
		}
		return nil, errors.Wrap(err, "get customer")
	}
	if !who.Owns(c.ManagerID, c.AgentID) {
		return nil, failure.New(failure.ReasonCustomerNotFound, customerID)
	}

	l := &Link{
		ID:         uuid.New().String(),
		ManagerID:  who.ManagerID,
		AgentID:    who.AgentID,
		CustomerID: c.ID,
		Token:      uuid.New().String(),
		CreatedAt:  s.now(),
	}
	if err := s.links.Create(ctx, l); err != nil {
		return nil, errors.Wrap(err, "create link")
	}
	return l, nil
}

