package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/orderdesk/internal/domain/order"
	"github.com/xenking/orderdesk/internal/domain/stats"
)

// A NULL $2 selects the whole tenant of $1.
const (
	countOrdersByStatusSQL = `SELECT status, count(*) FROM orders
		WHERE manager_id = $1 AND ($2::text IS NULL OR agent_id = $2)
		GROUP BY status`

	findCompletedOrdersSQL = `SELECT completed_at, total FROM orders
		WHERE manager_id = $1 AND ($2::text IS NULL OR agent_id = $2)
			AND status = 'DONE' AND completed_at >= $3 AND completed_at < $4`

	findLinksSQL = `SELECT l.agent_id, COALESCE(a.name, ''), l.created_at
		FROM links l
		LEFT JOIN agents a ON a.id = l.agent_id
		WHERE l.manager_id = $1 AND ($2::text IS NULL OR l.agent_id = $2)
			AND l.created_at >= $3 AND l.created_at < $4`
)

var _ stats.Repository = (*StatsRepository)(nil)

// StatsRepository implements stats.Repository backed by PostgreSQL.
type StatsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository returns a StatsRepository that uses the given pool.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

// CountOrdersByStatus counts the scope's orders per status.
func (r *StatsRepository) CountOrdersByStatus(ctx context.Context, scope stats.Scope) (map[order.Status]int, error) {
	rows, err := r.pool.Query(ctx, countOrdersByStatusSQL, scope.ManagerID, nullable(scope.AgentID))
	if err != nil {
		return nil, fmt.Errorf("counting orders by status: %w", err)
	}
	defer rows.Close()

	out := make(map[order.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning order count: %w", err)
		}
		out[order.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("counting orders by status: %w", err)
	}
	return out, nil
}

// FindCompletedOrders returns the scope's DONE orders completed in [from, to).
func (r *StatsRepository) FindCompletedOrders(ctx context.Context, scope stats.Scope, from, to time.Time) ([]stats.CompletedOrder, error) {
	rows, err := r.pool.Query(ctx, findCompletedOrdersSQL, scope.ManagerID, nullable(scope.AgentID), from, to)
	if err != nil {
		return nil, fmt.Errorf("finding completed orders: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (stats.CompletedOrder, error) {
		var o stats.CompletedOrder
		err := row.Scan(&o.CompletedAt, &o.Total)
		return o, err
	})
}

// FindLinks returns the scope's links created in [from, to) with the name of
// the creating agent.
func (r *StatsRepository) FindLinks(ctx context.Context, scope stats.Scope, from, to time.Time) ([]stats.LinkRecord, error) {
	rows, err := r.pool.Query(ctx, findLinksSQL, scope.ManagerID, nullable(scope.AgentID), from, to)
	if err != nil {
		return nil, fmt.Errorf("finding links: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (stats.LinkRecord, error) {
		var (
			l       stats.LinkRecord
			agentID *string
		)
		err := row.Scan(&agentID, &l.AgentName, &l.CreatedAt)
		l.AgentID = deref(agentID)
		return l, err
	})
}
