package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/orderdesk/internal/domain/link"
)

const (
	createLinkSQL = `INSERT INTO links (id, manager_id, agent_id, customer_id, token, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	createLinkStagingSQL = `CREATE TEMP TABLE links_staging
		(LIKE links INCLUDING DEFAULTS) ON COMMIT DROP`

	// Rows pointing at unknown customers or duplicating a token are skipped.
	mergeLinkStagingSQL = `INSERT INTO links (id, manager_id, agent_id, customer_id, token, created_at)
		SELECT s.id, s.manager_id, s.agent_id, s.customer_id, s.token, s.created_at
		FROM links_staging s
		JOIN customers c ON c.id = s.customer_id AND c.manager_id = s.manager_id
		ON CONFLICT DO NOTHING`
)

var linkColumns = []string{"id", "manager_id", "agent_id", "customer_id", "token", "created_at"}

var _ link.Repository = (*LinkRepository)(nil)

// LinkRepository implements link.Repository backed by PostgreSQL.
type LinkRepository struct {
	pool *pgxpool.Pool
}

// NewLinkRepository returns a LinkRepository that uses the given pool.
func NewLinkRepository(pool *pgxpool.Pool) *LinkRepository {
	return &LinkRepository{pool: pool}
}

// Create persists a link.
func (r *LinkRepository) Create(ctx context.Context, l *link.Link) error {
	_, err := r.pool.Exec(ctx, createLinkSQL,
		l.ID, l.ManagerID, nullable(l.AgentID), l.CustomerID, l.Token, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating link %q: %w", l.ID, err)
	}
	return nil
}

// Import bulk-loads links through a staging table and returns the number of
// rows actually inserted.
func (r *LinkRepository) Import(ctx context.Context, links []link.Link) (int64, error) {
	var inserted int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, createLinkStagingSQL); err != nil {
			return fmt.Errorf("creating staging table: %w", err)
		}

		_, err := tx.CopyFrom(ctx, pgx.Identifier{"links_staging"}, linkColumns,
			pgx.CopyFromSlice(len(links), func(i int) ([]any, error) {
				l := links[i]
				return []any{l.ID, l.ManagerID, nullable(l.AgentID), l.CustomerID, l.Token, l.CreatedAt}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copying links: %w", err)
		}

		tag, err := tx.Exec(ctx, mergeLinkStagingSQL)
		if err != nil {
			return fmt.Errorf("merging links: %w", err)
		}
		inserted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
