package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/orderdesk/internal/domain/customer"
)

const (
	getCustomerSQL = `SELECT id, manager_id, agent_id, name, email, phone, birth_date, created_at, updated_at
		FROM customers WHERE id = $1`

	// Serializes capped inserts per owner for the rest of the transaction.
	lockCustomerOwnerSQL = `SELECT pg_advisory_xact_lock(hashtext($1))`

	countCustomersSQL = `SELECT count(*) FROM customers
		WHERE manager_id = $1 AND agent_id IS NOT DISTINCT FROM $2`

	createCustomerSQL = `INSERT INTO customers (id, manager_id, agent_id, name, email, phone, birth_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	updateCustomerSQL = `UPDATE customers
		SET name = $2, email = $3, phone = $4, birth_date = $5, updated_at = $6
		WHERE id = $1`
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// Get returns a customer by id.
func (r *CustomerRepository) Get(ctx context.Context, id string) (*customer.Customer, error) {
	var (
		c       customer.Customer
		agentID *string
	)
	err := r.pool.QueryRow(ctx, getCustomerSQL, id).Scan(
		&c.ID, &c.ManagerID, &agentID, &c.Name, &c.Email, &c.Phone,
		&c.BirthDate, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}
	c.AgentID = deref(agentID)
	return &c, nil
}

// CreateCapped counts the owner's customers under a per-owner advisory lock,
// runs guard and inserts c in the same transaction.
func (r *CustomerRepository) CreateCapped(ctx context.Context, c *customer.Customer, guard func(count int) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, lockCustomerOwnerSQL, c.ManagerID+"/"+c.AgentID); err != nil {
			return fmt.Errorf("locking customer owner: %w", err)
		}

		var count int
		if err := tx.QueryRow(ctx, countCustomersSQL, c.ManagerID, nullable(c.AgentID)).Scan(&count); err != nil {
			return fmt.Errorf("counting customers: %w", err)
		}
		if err := guard(count); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, createCustomerSQL,
			c.ID, c.ManagerID, nullable(c.AgentID), c.Name, c.Email, c.Phone,
			c.BirthDate, c.CreatedAt, c.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("creating customer %q: %w", c.ID, err)
		}
		return nil
	})
}

// Update replaces the contact details of a customer.
func (r *CustomerRepository) Update(ctx context.Context, c *customer.Customer) error {
	tag, err := r.pool.Exec(ctx, updateCustomerSQL,
		c.ID, c.Name, c.Email, c.Phone, c.BirthDate, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating customer %q: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return customer.ErrNotFound
	}
	return nil
}

// CountFor counts the customers owned by (managerID, agentID).
func (r *CustomerRepository) CountFor(ctx context.Context, managerID, agentID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countCustomersSQL, managerID, nullable(agentID)).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting customers: %w", err)
	}
	return n, nil
}
