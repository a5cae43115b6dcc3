package customer

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/orderdesk/internal/domain/auth"
	"github.com/xenking/orderdesk/internal/domain/failure"
)

// Capacity reports how many customers an owner has against the cap.
type Capacity struct {
	Count int
	Max   int
}

// Service encapsulates customer registration rules.
type Service struct {
	customers Repository
	now       func() time.Time
}

// NewService creates a customer Service.
func NewService(customers Repository) *Service {
	return &Service{customers: customers, now: time.Now}
}

// Create validates req, enforces the per-owner cap and persists the customer
// on behalf of the caller.
func (s *Service) Create(ctx context.Context, who auth.Identity, req CreateRequest) (*Customer, error) {
	now := s.now()
	if err := ValidateCreate(req, now); err != nil {
		return nil, err
	}

	c := &Customer{
		ID:        uuid.New().String(),
		ManagerID: who.ManagerID,
		AgentID:   who.AgentID,
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Phone:     req.Phone,
		BirthDate: req.BirthDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	guard := func(count int) error {
		return ValidateCustomersCap(count, who.ManagerID, who.AgentID)
	}
	if err := s.customers.CreateCapped(ctx, c, guard); err != nil {
		if _, ok := failure.From(err); ok {
			return nil, err
		}
		return nil, errors.Wrap(err, "create customer")
	}
	return c, nil
}

// Update replaces the contact details of a customer visible to the caller.
func (s *Service) Update(ctx context.Context, who auth.Identity, id string, req UpdateRequest) (*Customer, error) {
	now := s.now()
	if err := ValidateUpdate(req, now); err != nil {
		return nil, err
	}

	c, err := s.Get(ctx, who, id)
	if err != nil {
		return nil, err
	}

	c.Name = strings.TrimSpace(req.Name)
	c.Email = strings.TrimSpace(req.Email)
	c.Phone = req.Phone
	c.BirthDate = req.BirthDate
	c.UpdatedAt = now
	if err := s.customers.Update(ctx, c); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, failure.New(failure.ReasonCustomerNotFound, id)
		}
		return nil, errors.Wrap(err, "update customer")
	}
	return c, nil
}

// Get returns a customer visible to the caller.
func (s *Service) Get(ctx context.Context, who auth.Identity, id string) (*Customer, error) {
	c, err := s.customers.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, failure.New(failure.ReasonCustomerNotFound, id)
		}
		return nil, errors.Wrap(err, "get customer")
	}
	if !who.Owns(c.ManagerID, c.AgentID) {
		return nil, failure.New(failure.ReasonCustomerNotFound, id)
	}
	return c, nil
}

// Capacity returns the caller's current customer count and the cap.
func (s *Service) Capacity(ctx context.Context, who auth.Identity) (Capacity, error) {
	n, err := s.customers.CountFor(ctx, who.ManagerID, who.AgentID)
	if err != nil {
		return Capacity{}, errors.Wrap(err, "count customers")
	}
	return Capacity{Count: n, Max: MaxCustomerCap}, nil
}
