// Package handler exposes the order desk over HTTP with JSON bodies.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/xenking/orderdesk/internal/domain/account"
	"github.com/xenking/orderdesk/internal/domain/auth"
	"github.com/xenking/orderdesk/internal/domain/customer"
	"github.com/xenking/orderdesk/internal/domain/link"
	"github.com/xenking/orderdesk/internal/domain/order"
	"github.com/xenking/orderdesk/internal/domain/stats"
)

// AccountService registers businesses and agents.
type AccountService interface {
	Register(ctx context.Context, b account.CreateBusinessRequest, m account.CreateManagerRequest) (*account.Registration, error)
	AddAgent(ctx context.Context, who auth.Identity, req account.CreateAgentRequest) (*account.Agent, error)
}

// CustomerService registers and edits customers.
type CustomerService interface {
	Create(ctx context.Context, who auth.Identity, req customer.CreateRequest) (*customer.Customer, error)
	Update(ctx context.Context, who auth.Identity, id string, req customer.UpdateRequest) (*customer.Customer, error)
	Capacity(ctx context.Context, who auth.Identity) (customer.Capacity, error)
}

// LinkService issues ordering links.
type LinkService interface {
	Create(ctx context.Context, who auth.Identity, customerID string) (*link.Link, error)
}

// OrderService drives the order lifecycle.
type OrderService interface {
	Create(ctx context.Context, who auth.Identity, req order.CreateRequest) (*order.Order, error)
	Get(ctx context.Context, who auth.Identity, id string) (*order.Order, error)
	AddItems(ctx context.Context, who auth.Identity, id string, items []order.ItemRequest) (*order.Order, error)
	Place(ctx context.Context, who auth.Identity, id string) (*order.Order, error)
	Complete(ctx context.Context, who auth.Identity, id string) (*order.Order, error)
	Cancel(ctx context.Context, who auth.Identity, id string) (*order.Order, error)
	NotificationRecipient(ctx context.Context, who auth.Identity, id string) (string, error)
}

// StatsService builds dashboard snapshots.
type StatsService interface {
	Build(ctx context.Context, scope stats.Scope, now time.Time) (*stats.Snapshot, error)
}

var (
	_ AccountService  = (*account.Service)(nil)
	_ CustomerService = (*customer.Service)(nil)
	_ LinkService     = (*link.Service)(nil)
	_ OrderService    = (*order.Service)(nil)
	_ StatsService    = (*stats.Aggregator)(nil)
)

// Services groups the domain services the handler delegates to.
type Services struct {
	Accounts  AccountService
	Customers CustomerService
	Links     LinkService
	Orders    OrderService
	Stats     StatsService
}

// Handler maps HTTP requests onto domain services.
type Handler struct {
	svc Services
	now func() time.Time
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(svc Services) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

// Routes registers every API route on a new mux. All routes except business
// registration require an API key.
func (h *Handler) Routes(sec *SecurityHandler) *http.ServeMux {
	mux := http.NewServeMux()
	protected := func(pattern string, fn func(http.ResponseWriter, *http.Request, auth.Identity)) {
		mux.Handle(pattern, sec.Require(withIdentity(fn)))
	}

	mux.HandleFunc("POST /api/businesses", h.RegisterBusiness)

	protected("POST /api/agents", h.CreateAgent)

	protected("POST /api/customers", h.CreateCustomer)
	protected("PUT /api/customers/{id}", h.UpdateCustomer)
	protected("GET /api/customers/capacity", h.CustomerCapacity)

	protected("POST /api/links", h.CreateLink)

	protected("POST /api/orders", h.CreateOrder)
	protected("GET /api/orders/{id}", h.GetOrder)
	protected("POST /api/orders/{id}/items", h.AddOrderItems)
	protected("POST /api/orders/{id}/place", h.PlaceOrder)
	protected("POST /api/orders/{id}/complete", h.CompleteOrder)
	protected("POST /api/orders/{id}/cancel", h.CancelOrder)
	protected("GET /api/orders/{id}/recipient", h.OrderRecipient)

	protected("GET /api/stats", h.Stats)

	return mux
}

func withIdentity(fn func(http.ResponseWriter, *http.Request, auth.Identity)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		who, ok := auth.FromContext(r.Context())
		if !ok {
			writeError(w, r, errNoIdentity)
			return
		}
		fn(w, r, who)
	})
}
