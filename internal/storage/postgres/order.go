package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/orderdesk/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, manager_id, agent_id, customer_id, status, total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	getOrderSQL = `SELECT id, manager_id, agent_id, customer_id, status, total, created_at, updated_at, completed_at
		FROM orders WHERE id = $1`

	getOrderItemsSQL = `SELECT product_id, name, quantity, unit_price
		FROM order_items WHERE order_id = $1 ORDER BY position`

	// The row lock taken here serializes item appends with transitions and
	// the sweep.
	bumpOrderItemsSQL = `UPDATE orders
		SET item_count = item_count + $2, total = total + $3, updated_at = $4
		WHERE id = $1 AND status = 'CREATED'
		RETURNING item_count - $2`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`

	updateOrderStatusSQL = `UPDATE orders
		SET status = $3, updated_at = $4,
			completed_at = CASE WHEN $3 = 'DONE' THEN $4 ELSE completed_at END
		WHERE id = $1 AND status = $2`

	bulkExpireSQL = `UPDATE orders
		SET status = 'EXPIRED', updated_at = $2
		WHERE status = 'CREATED' AND item_count = 0 AND created_at < $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new, empty order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.ManagerID, nullable(o.AgentID), o.CustomerID, string(o.Status),
		o.Total, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// Get returns an order with its items.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	var (
		o       order.Order
		agentID *string
		status  string
	)
	err := r.pool.QueryRow(ctx, getOrderSQL, id).Scan(
		&o.ID, &o.ManagerID, &agentID, &o.CustomerID, &status,
		&o.Total, &o.CreatedAt, &o.UpdatedAt, &o.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o.AgentID = deref(agentID)
	o.Status = order.Status(status)

	rows, err := r.pool.Query(ctx, getOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting items of order %q: %w", id, err)
	}
	o.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Item, error) {
		var it order.Item
		err := row.Scan(&it.ProductID, &it.Name, &it.Quantity, &it.UnitPrice)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning items of order %q: %w", id, err)
	}
	return &o, nil
}

// AddItems appends items to a CREATED order and increases its total.
func (r *OrderRepository) AddItems(ctx context.Context, id string, items []order.Item, added decimal.Decimal, now time.Time) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var prev int
		err := tx.QueryRow(ctx, bumpOrderItemsSQL, id, len(items), added, now).Scan(&prev)
		if errors.Is(err, pgx.ErrNoRows) {
			return r.missingOrChanged(ctx, tx, id)
		}
		if err != nil {
			return fmt.Errorf("updating order %q: %w", id, err)
		}

		rows := make([][]any, len(items))
		for i, it := range items {
			rows[i] = []any{id, prev + i + 1, it.ProductID, it.Name, it.Quantity, it.UnitPrice}
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"order_items"},
			[]string{"order_id", "position", "product_id", "name", "quantity", "unit_price"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("inserting items of order %q: %w", id, err)
		}
		return nil
	})
}

// UpdateStatus moves the order from one status to another as a single
// conditional update.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status, now time.Time) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(from), string(to), now)
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrChanged(ctx, r.pool, id)
	}
	return nil
}

// BulkExpireEmptyOrders expires every stale empty CREATED order in one
// transactional statement.
func (r *OrderRepository) BulkExpireEmptyOrders(ctx context.Context, cutoff, now time.Time) (int64, error) {
	var n int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, bulkExpireSQL, cutoff, now)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("expiring empty orders: %w", err)
	}
	return n, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *OrderRepository) missingOrChanged(ctx context.Context, q querier, id string) error {
	var exists bool
	if err := q.QueryRow(ctx, orderExistsSQL, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking order %q: %w", id, err)
	}
	if !exists {
		return order.ErrNotFound
	}
	return order.ErrStatusChanged
}
