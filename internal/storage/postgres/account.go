package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/orderdesk/internal/domain/account"
)

const (
	createBusinessSQL = `INSERT INTO businesses (id, name, email, phone, tax_id, founded_on, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	createManagerSQL = `INSERT INTO managers (id, business_id, first_name, last_name, email, phone, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	createAgentSQL = `INSERT INTO agents (id, manager_id, name, email, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	findManagerIDSQL = `SELECT id FROM managers WHERE email = $1`
	findAgentIDSQL   = `SELECT id FROM agents WHERE manager_id = $1 AND email = $2`
)

var _ account.Repository = (*AccountRepository)(nil)

// AccountRepository implements account.Repository backed by PostgreSQL.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns an AccountRepository that uses the given pool.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// CreateBusiness inserts the business and its manager in one transaction.
func (r *AccountRepository) CreateBusiness(ctx context.Context, b *account.Business, m *account.Manager) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, createBusinessSQL,
			b.ID, b.Name, b.Email, b.Phone, b.TaxID, b.FoundedOn, b.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("creating business %q: %w", b.ID, err)
		}

		_, err = tx.Exec(ctx, createManagerSQL,
			m.ID, m.BusinessID, m.FirstName, m.LastName, m.Email, m.Phone, m.PasswordHash, m.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err, "managers_email_key") {
				return account.ErrEmailTaken
			}
			return fmt.Errorf("creating manager %q: %w", m.ID, err)
		}
		return nil
	})
}

// CreateAgent inserts an agent.
func (r *AccountRepository) CreateAgent(ctx context.Context, a *account.Agent) error {
	_, err := r.pool.Exec(ctx, createAgentSQL,
		a.ID, a.ManagerID, a.Name, a.Email, a.Phone, a.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "agents_email_key") {
			return account.ErrEmailTaken
		}
		return fmt.Errorf("creating agent %q: %w", a.ID, err)
	}
	return nil
}

// FindManagerID returns the id of the manager registered with email, or ""
// when there is none.
func (r *AccountRepository) FindManagerID(ctx context.Context, email string) (string, error) {
	return r.findID(ctx, findManagerIDSQL, email)
}

// FindAgentID returns the id of the manager's agent registered with email, or
// "" when there is none.
func (r *AccountRepository) FindAgentID(ctx context.Context, managerID, email string) (string, error) {
	return r.findID(ctx, findAgentIDSQL, managerID, email)
}

func (r *AccountRepository) findID(ctx context.Context, query string, args ...any) (string, error) {
	var id string
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("finding account id: %w", err)
	}
	return id, nil
}
