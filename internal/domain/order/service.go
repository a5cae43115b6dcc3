package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/orderdesk/internal/domain/auth"
	"github.com/xenking/orderdesk/internal/domain/customer"
	"github.com/xenking/orderdesk/internal/domain/failure"
	"github.com/xenking/orderdesk/internal/domain/product"
)

// Customers resolves the customer an order belongs to.
type Customers interface {
	Get(ctx context.Context, id string) (*customer.Customer, error)
}

// CreateRequest holds the input for opening an order.
type CreateRequest struct {
	CustomerID string
}

// ItemRequest is a product and quantity to add to an order.
type ItemRequest struct {
	ProductID string
	Quantity  int
}

// Service applies the order state machine to persisted orders.
type Service struct {
	orders    Repository
	products  product.Repository
	customers Customers
	notifier  Notifier
	lg        *zap.Logger
	now       func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	orders Repository,
	products product.Repository,
	customers Customers,
	notifier Notifier,
	lg *zap.Logger,
) *Service {
	return &Service{
		orders:    orders,
		products:  products,
		customers: customers,
		notifier:  notifier,
		lg:        lg,
		now:       time.Now,
	}
}

// Create opens an empty order for a customer visible to the caller.
func (s *Service) Create(ctx context.Context, who auth.Identity, req CreateRequest) (*Order, error) {
	c, err := s.customer(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if !who.Owns(c.ManagerID, c.AgentID) {
		return nil, failure.New(failure.ReasonCustomerNotFound, req.CustomerID)
	}

	now := s.now()
	o := &Order{
		ID:         uuid.New().String(),
		ManagerID:  who.ManagerID,
		AgentID:    who.AgentID,
		CustomerID: c.ID,
		Status:     StatusCreated,
		Total:      decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// Get returns an order visible to the caller.
func (s *Service) Get(ctx context.Context, who auth.Identity, id string) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, failure.New(failure.ReasonOrderNotFound, id)
		}
		return nil, errors.Wrap(err, "get order")
	}
	if !who.Owns(o.ManagerID, o.AgentID) {
		return nil, failure.New(failure.ReasonOrderNotFound, id)
	}
	return o, nil
}

// AddItems validates quantities, resolves products in a single batch and
// appends the items to a CREATED order.
func (s *Service) AddItems(ctx context.Context, who auth.Identity, id string, reqs []ItemRequest) (*Order, error) {
	if len(reqs) == 0 {
		return nil, failure.New(failure.ReasonFieldEmpty, "items")
	}
	ids := make([]string, len(reqs))
	for i, r := range reqs {
		if r.Quantity <= 0 {
			return nil, failure.New(failure.ReasonInvalidQuantity, r.Quantity, r.ProductID)
		}
		ids[i] = r.ProductID
	}

	o, err := s.Get(ctx, who, id)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusCreated {
		return nil, failure.New(failure.ReasonOrderNotOpen, o.ID, o.Status)
	}

	fetched, err := s.products.GetByIDs(ctx, o.ManagerID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	items := make([]Item, len(reqs))
	added := decimal.Zero
	for i, r := range reqs {
		p, ok := byID[r.ProductID]
		if !ok {
			return nil, failure.New(failure.ReasonProductNotFound, r.ProductID)
		}
		items[i] = Item{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  r.Quantity,
			UnitPrice: p.Price,
		}
		added = added.Add(items[i].Amount())
	}

	now := s.now()
	if err := s.orders.AddItems(ctx, o.ID, items, added, now); err != nil {
		if errors.Is(err, ErrStatusChanged) {
			return nil, failure.New(failure.ReasonOrderNotOpen, o.ID, "a non-CREATED")
		}
		return nil, errors.Wrap(err, "add order items")
	}

	o.Items = append(o.Items, items...)
	o.Total = o.Total.Add(added)
	o.UpdatedAt = now
	return o, nil
}

// Place moves a CREATED order with items and a reachable customer to PLACED.
func (s *Service) Place(ctx context.Context, who auth.Identity, id string) (*Order, error) {
	o, err := s.Get(ctx, who, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := CheckTransition(o, StatusPlaced, now, 0); err != nil {
		return nil, err
	}
	recipient, err := s.recipient(ctx, o)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, o, StatusPlaced, now); err != nil {
		return nil, err
	}
	s.notify(ctx, o, recipient)
	return o, nil
}

// Complete moves a PLACED order to DONE.
func (s *Service) Complete(ctx context.Context, who auth.Identity, id string) (*Order, error) {
	return s.close(ctx, who, id, StatusDone)
}

// Cancel moves a CREATED or PLACED order to CANCELLED.
func (s *Service) Cancel(ctx context.Context, who auth.Identity, id string) (*Order, error) {
	return s.close(ctx, who, id, StatusCancelled)
}

// NotificationRecipient returns the email a notification about the order
// may be sent to. Only PLACED orders of customers with an email qualify.
func (s *Service) NotificationRecipient(ctx context.Context, who auth.Identity, id string) (string, error) {
	o, err := s.Get(ctx, who, id)
	if err != nil {
		return "", err
	}
	if o.Status != StatusPlaced {
		return "", failure.New(failure.ReasonOrderEmailNotAvailable, o.ID, o.Status)
	}
	return s.recipient(ctx, o)
}

func (s *Service) close(ctx context.Context, who auth.Identity, id string, target Status) (*Order, error) {
	o, err := s.Get(ctx, who, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := CheckTransition(o, target, now, 0); err != nil {
		return nil, err
	}

	if err := s.apply(ctx, o, target, now); err != nil {
		return nil, err
	}
	recipient, err := s.recipient(ctx, o)
	if err != nil {
		s.lg.Warn("Skipping order notification",
			zap.String("order_id", o.ID),
			zap.Stringer("status", o.Status),
			zap.Error(err),
		)
		return o, nil
	}
	s.notify(ctx, o, recipient)
	return o, nil
}

// apply persists o.Status -> target as a compare-and-set and updates o.
func (s *Service) apply(ctx context.Context, o *Order, target Status, now time.Time) error {
	from := o.Status
	if err := s.orders.UpdateStatus(ctx, o.ID, from, target, now); err != nil {
		if errors.Is(err, ErrStatusChanged) {
			return failure.New(failure.ReasonIllegalTransition, o.ID, from, target)
		}
		if errors.Is(err, ErrNotFound) {
			return failure.New(failure.ReasonOrderNotFound, o.ID)
		}
		return errors.Wrap(err, "update order status")
	}
	o.Status = target
	o.UpdatedAt = now
	if target == StatusDone {
		o.CompletedAt = &now
	}
	return nil
}

func (s *Service) recipient(ctx context.Context, o *Order) (string, error) {
	c, err := s.customers.Get(ctx, o.CustomerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return "", failure.New(failure.ReasonOrderEmailNotAvailable, o.ID, o.Status)
		}
		return "", errors.Wrap(err, "get order customer")
	}
	if c.Email == "" {
		return "", failure.New(failure.ReasonOrderEmailNotAvailable, o.ID, o.Status)
	}
	return c.Email, nil
}

func (s *Service) customer(ctx context.Context, id string) (*customer.Customer, error) {
	c, err := s.customers.Get(ctx, id)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, failure.New(failure.ReasonCustomerNotFound, id)
		}
		return nil, errors.Wrap(err, "get customer")
	}
	return c, nil
}

func (s *Service) notify(ctx context.Context, o *Order, recipient string) {
	n := Notification{
		OrderID:   o.ID,
		Status:    o.Status,
		Recipient: recipient,
		Total:     o.Total,
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.lg.Error("Order notification failed",
			zap.String("order_id", o.ID),
			zap.Stringer("status", o.Status),
			zap.Error(err),
		)
	}
}
