package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/orderdesk/internal/domain/auth"
	"github.com/xenking/orderdesk/internal/domain/customer"
	"github.com/xenking/orderdesk/internal/domain/failure"
	"github.com/xenking/orderdesk/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID   map[string]product.Product
	getErr error
}

func (m *mockProductRepo) GetByIDs(_ context.Context, managerID string, ids []string) ([]product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok && p.ManagerID == managerID {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockCustomers struct {
	byID map[string]*customer.Customer
}

func (m *mockCustomers) Get(_ context.Context, id string) (*customer.Customer, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, customer.ErrNotFound
	}
	return c, nil
}

type mockOrderRepo struct {
	mu        sync.Mutex
	byID      map[string]*Order
	createErr error
	// racer, when set, runs before UpdateStatus compares the status.
	racer func(o *Order)
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{byID: make(map[string]*Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *o
	m.byID[o.ID] = &cp
	return nil
}

func (m *mockOrderRepo) Get(_ context.Context, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	return &cp, nil
}

func (m *mockOrderRepo) AddItems(_ context.Context, id string, items []Item, added decimal.Decimal, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	if o.Status != StatusCreated {
		return ErrStatusChanged
	}
	o.Items = append(o.Items, items...)
	o.Total = o.Total.Add(added)
	o.UpdatedAt = now
	return nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, from, to Status, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	if m.racer != nil {
		m.racer(o)
	}
	if o.Status != from {
		return ErrStatusChanged
	}
	o.Status = to
	o.UpdatedAt = now
	if to == StatusDone {
		o.CompletedAt = &now
	}
	return nil
}

func (m *mockOrderRepo) BulkExpireEmptyOrders(_ context.Context, cutoff, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.byID {
		if o.Status == StatusCreated && len(o.Items) == 0 && o.CreatedAt.Before(cutoff) {
			o.Status = StatusExpired
			o.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

type recordingNotifier struct {
	sent []Notification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) error {
	r.sent = append(r.sent, n)
	return r.err
}

// --- Helpers ---

var (
	fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	manager  = auth.Identity{ManagerID: "m-1"}
	agent    = auth.Identity{ManagerID: "m-1", AgentID: "a-1"}
)

type fixture struct {
	svc      *Service
	orders   *mockOrderRepo
	notifier *recordingNotifier
	products *mockProductRepo
}

func newFixture() *fixture {
	products := &mockProductRepo{byID: map[string]product.Product{
		"p1": {ID: "p1", ManagerID: "m-1", Name: "Widget", Price: decimal.RequireFromString("10.00")},
		"p2": {ID: "p2", ManagerID: "m-1", Name: "Gadget", Price: decimal.RequireFromString("20.00")},
		"px": {ID: "px", ManagerID: "m-2", Name: "Foreign", Price: decimal.RequireFromString("1.00")},
	}}
	customers := &mockCustomers{byID: map[string]*customer.Customer{
		"c-1":      {ID: "c-1", ManagerID: "m-1", AgentID: "a-1", Name: "Ann", Email: "ann@example.com"},
		"c-silent": {ID: "c-silent", ManagerID: "m-1", Name: "Bob"},
		"c-other":  {ID: "c-other", ManagerID: "m-2", Name: "Eve", Email: "eve@example.com"},
	}}
	orders := newMockOrderRepo()
	notifier := &recordingNotifier{}

	svc := NewService(orders, products, customers, notifier, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }

	return &fixture{svc: svc, orders: orders, notifier: notifier, products: products}
}

func (f *fixture) placedOrder(t *testing.T, customerID string) *Order {
	t.Helper()
	ctx := context.Background()
	o, err := f.svc.Create(ctx, agent, CreateRequest{CustomerID: customerID})
	require.NoError(t, err)
	_, err = f.svc.AddItems(ctx, agent, o.ID, []ItemRequest{{ProductID: "p1", Quantity: 1}})
	require.NoError(t, err)
	o, err = f.svc.Place(ctx, agent, o.ID)
	require.NoError(t, err)
	return o
}

func requireReason(t *testing.T, err error, reason failure.Reason) {
	t.Helper()
	f, ok := failure.From(err)
	require.True(t, ok, "expected failure, got %v", err)
	assert.Equal(t, reason, f.Reason())
}

// --- Tests ---

func TestCreate(t *testing.T) {
	f := newFixture()

	o, err := f.svc.Create(context.Background(), agent, CreateRequest{CustomerID: "c-1"})

	require.NoError(t, err)
	assert.Equal(t, StatusCreated, o.Status)
	assert.Equal(t, "m-1", o.ManagerID)
	assert.Equal(t, "a-1", o.AgentID)
	assert.True(t, decimal.Zero.Equal(o.Total))
	assert.Equal(t, fixedNow, o.CreatedAt)
	assert.Contains(t, f.orders.byID, o.ID)
}

func TestCreate_ForeignCustomer(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), agent, CreateRequest{CustomerID: "c-other"})
	requireReason(t, err, failure.ReasonCustomerNotFound)

	_, err = f.svc.Create(context.Background(), agent, CreateRequest{CustomerID: "missing"})
	requireReason(t, err, failure.ReasonCustomerNotFound)
}

func TestCreate_CustomerOfAnotherOwner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	otherAgent := auth.Identity{ManagerID: "m-1", AgentID: "a-2"}

	_, err := f.svc.Create(ctx, otherAgent, CreateRequest{CustomerID: "c-1"})
	requireReason(t, err, failure.ReasonCustomerNotFound)

	_, err = f.svc.Create(ctx, agent, CreateRequest{CustomerID: "c-silent"})
	requireReason(t, err, failure.ReasonCustomerNotFound)

	assert.Empty(t, f.orders.byID)

	o, err := f.svc.Create(ctx, manager, CreateRequest{CustomerID: "c-1"})
	require.NoError(t, err)
	assert.Empty(t, o.AgentID)
}

func TestCreate_RepositoryError(t *testing.T) {
	f := newFixture()
	f.orders.createErr = errors.New("db write failed")

	_, err := f.svc.Create(context.Background(), agent, CreateRequest{CustomerID: "c-1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}

func TestAddItems(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o, err := f.svc.Create(ctx, agent, CreateRequest{CustomerID: "c-1"})
	require.NoError(t, err)

	o, err = f.svc.AddItems(ctx, agent, o.ID, []ItemRequest{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
	})

	require.NoError(t, err)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "Widget", o.Items[0].Name)
	assert.True(t, decimal.RequireFromString("40.00").Equal(o.Total))

	stored := f.orders.byID[o.ID]
	assert.True(t, decimal.RequireFromString("40.00").Equal(stored.Total))
}

func TestAddItems_Rejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o, err := f.svc.Create(ctx, agent, CreateRequest{CustomerID: "c-1"})
	require.NoError(t, err)

	_, err = f.svc.AddItems(ctx, agent, o.ID, nil)
	requireReason(t, err, failure.ReasonFieldEmpty)

	_, err = f.svc.AddItems(ctx, agent, o.ID, []ItemRequest{{ProductID: "p1", Quantity: 0}})
	requireReason(t, err, failure.ReasonInvalidQuantity)

	_, err = f.svc.AddItems(ctx, agent, o.ID, []ItemRequest{{ProductID: "missing", Quantity: 1}})
	requireReason(t, err, failure.ReasonProductNotFound)

	// Products of other tenants are invisible.
	_, err = f.svc.AddItems(ctx, agent, o.ID, []ItemRequest{{ProductID: "px", Quantity: 1}})
	requireReason(t, err, failure.ReasonProductNotFound)

	f.orders.byID[o.ID].Status = StatusExpired
	_, err = f.svc.AddItems(ctx, agent, o.ID, []ItemRequest{{ProductID: "p1", Quantity: 1}})
	requireReason(t, err, failure.ReasonOrderNotOpen)
}

func TestAddItems_ProductLookupError(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o, err := f.svc.Create(ctx, agent, CreateRequest{CustomerID: "c-1"})
	require.NoError(t, err)
	f.products.getErr = errors.New("connection reset")

	_, err = f.svc.AddItems(ctx, agent, o.ID, []ItemRequest{{ProductID: "p1", Quantity: 1}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "get products")
}

func TestPlace(t *testing.T) {
	f := newFixture()

	o := f.placedOrder(t, "c-1")

	assert.Equal(t, StatusPlaced, o.Status)
	assert.Equal(t, StatusPlaced, f.orders.byID[o.ID].Status)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, Notification{
		OrderID:   o.ID,
		Status:    StatusPlaced,
		Recipient: "ann@example.com",
		Total:     o.Total,
	}, f.notifier.sent[0])
}

func TestPlace_NoItems(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o, err := f.svc.Create(ctx, agent, CreateRequest{CustomerID: "c-1"})
	require.NoError(t, err)

	_, err = f.svc.Place(ctx, agent, o.ID)

	requireReason(t, err, failure.ReasonOrderHasNoItems)
	assert.Equal(t, StatusCreated, f.orders.byID[o.ID].Status)
}

func TestPlace_NoRecipient(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o, err := f.svc.Create(ctx, manager, CreateRequest{CustomerID: "c-silent"})
	require.NoError(t, err)
	_, err = f.svc.AddItems(ctx, manager, o.ID, []ItemRequest{{ProductID: "p1", Quantity: 1}})
	require.NoError(t, err)

	_, err = f.svc.Place(ctx, manager, o.ID)

	requireReason(t, err, failure.ReasonOrderEmailNotAvailable)
	assert.Equal(t, StatusCreated, f.orders.byID[o.ID].Status)
	assert.Empty(t, f.notifier.sent)
}

func TestPlace_LosesRaceWithSweep(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o, err := f.svc.Create(ctx, agent, CreateRequest{CustomerID: "c-1"})
	require.NoError(t, err)
	_, err = f.svc.AddItems(ctx, agent, o.ID, []ItemRequest{{ProductID: "p1", Quantity: 1}})
	require.NoError(t, err)

	f.orders.racer = func(o *Order) { o.Status = StatusExpired }
	_, err = f.svc.Place(ctx, agent, o.ID)

	requireReason(t, err, failure.ReasonIllegalTransition)
	assert.Empty(t, f.notifier.sent)
}

func TestComplete(t *testing.T) {
	f := newFixture()
	o := f.placedOrder(t, "c-1")

	done, err := f.svc.Complete(context.Background(), manager, o.ID)

	require.NoError(t, err)
	assert.Equal(t, StatusDone, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, fixedNow, *done.CompletedAt)
	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, StatusDone, f.notifier.sent[1].Status)
}

func TestComplete_FromCreated(t *testing.T) {
	f := newFixture()
	o, err := f.svc.Create(context.Background(), agent, CreateRequest{CustomerID: "c-1"})
	require.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), agent, o.ID)

	fl, ok := failure.From(err)
	require.True(t, ok)
	assert.Equal(t, failure.KindIllegalStateTransition, fl.Kind())
	assert.Equal(t, failure.ReasonOrderNotPlaced, fl.Reason())
}

func TestComplete_Terminal(t *testing.T) {
	f := newFixture()
	o := f.placedOrder(t, "c-1")
	_, err := f.svc.Complete(context.Background(), agent, o.ID)
	require.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), agent, o.ID)
	requireReason(t, err, failure.ReasonOrderNotPlaced)

	_, err = f.svc.Cancel(context.Background(), agent, o.ID)
	requireReason(t, err, failure.ReasonOrderNotPlaced)
}

func TestCancel(t *testing.T) {
	f := newFixture()
	placed := f.placedOrder(t, "c-1")

	placed, err := f.svc.Cancel(context.Background(), agent, placed.ID)

	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, placed.Status)
	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, StatusCancelled, f.notifier.sent[1].Status)
}

func TestCancel_FromCreated(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	draft, err := f.svc.Create(ctx, agent, CreateRequest{CustomerID: "c-1"})
	require.NoError(t, err)
	_, err = f.svc.AddItems(ctx, agent, draft.ID, []ItemRequest{{ProductID: "p1", Quantity: 1}})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, agent, draft.ID)

	fl, ok := failure.From(err)
	require.True(t, ok, "expected failure, got %v", err)
	assert.Equal(t, failure.KindIllegalStateTransition, fl.Kind())
	assert.Equal(t, failure.ReasonOrderNotPlaced, fl.Reason())
	assert.Equal(t, StatusCreated, f.orders.byID[draft.ID].Status)
	assert.Empty(t, f.notifier.sent)
}

func TestCancel_NotifierErrorIsNotReturned(t *testing.T) {
	f := newFixture()
	o := f.placedOrder(t, "c-1")
	f.notifier.err = errors.New("smtp down")

	_, err := f.svc.Cancel(context.Background(), agent, o.ID)

	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, f.orders.byID[o.ID].Status)
}

func TestGet_Visibility(t *testing.T) {
	f := newFixture()
	o := f.placedOrder(t, "c-1")
	ctx := context.Background()

	_, err := f.svc.Get(ctx, manager, o.ID)
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, auth.Identity{ManagerID: "m-1", AgentID: "a-2"}, o.ID)
	requireReason(t, err, failure.ReasonOrderNotFound)

	_, err = f.svc.Get(ctx, auth.Identity{ManagerID: "m-2"}, o.ID)
	requireReason(t, err, failure.ReasonOrderNotFound)

	_, err = f.svc.Get(ctx, manager, "missing")
	requireReason(t, err, failure.ReasonOrderNotFound)
}

func TestNotificationRecipient(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	o := f.placedOrder(t, "c-1")
	email, err := f.svc.NotificationRecipient(ctx, agent, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", email)

	draft, err := f.svc.Create(ctx, agent, CreateRequest{CustomerID: "c-1"})
	require.NoError(t, err)
	_, err = f.svc.NotificationRecipient(ctx, agent, draft.ID)
	requireReason(t, err, failure.ReasonOrderEmailNotAvailable)

	_, err = f.svc.Complete(ctx, agent, o.ID)
	require.NoError(t, err)
	_, err = f.svc.NotificationRecipient(ctx, agent, o.ID)
	requireReason(t, err, failure.ReasonOrderEmailNotAvailable)
}
