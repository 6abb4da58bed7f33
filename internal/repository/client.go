package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/backoffice/internal/domain/client"
)

const (
	listClientsSQL = `SELECT id, name, capital, address FROM clients ORDER BY id`

	searchClientsSQL = `SELECT id, name, capital, address FROM clients
		WHERE name ILIKE '%' || $1 || '%' ORDER BY id`

	getClientByIDSQL = `SELECT id, name, capital, address FROM clients WHERE id = $1`

	createClientSQL = `INSERT INTO clients (name, capital, address)
		VALUES ($1, $2, $3) RETURNING id`

	updateClientSQL = `UPDATE clients SET name = $2, capital = $3, address = $4 WHERE id = $1`

	deleteClientSQL = `DELETE FROM clients WHERE id = $1`
)

var _ client.Repository = (*ClientRepository)(nil)

// ClientRepository implements client.Repository backed by PostgreSQL.
type ClientRepository struct {
	pool *pgxpool.Pool
}

// NewClientRepository returns a ClientRepository that uses the given pool.
func NewClientRepository(pool *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{pool: pool}
}

// List returns all clients ordered by ID.
func (r *ClientRepository) List(ctx context.Context) ([]client.Client, error) {
	rows, err := r.pool.Query(ctx, listClientsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing clients: %w", err)
	}
	return pgx.CollectRows(rows, scanClient)
}

// Search returns clients whose name contains the term, case-insensitively.
func (r *ClientRepository) Search(ctx context.Context, term string) ([]client.Client, error) {
	rows, err := r.pool.Query(ctx, searchClientsSQL, term)
	if err != nil {
		return nil, fmt.Errorf("searching clients: %w", err)
	}
	return pgx.CollectRows(rows, scanClient)
}

// GetByID returns a single client by its identifier.
func (r *ClientRepository) GetByID(ctx context.Context, id int64) (*client.Client, error) {
	rows, err := r.pool.Query(ctx, getClientByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting client %d: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanClient)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, client.ErrNotFound
		}
		return nil, fmt.Errorf("getting client %d: %w", id, err)
	}
	return &c, nil
}

// Create persists a new client and fills in the store-assigned ID.
func (r *ClientRepository) Create(ctx context.Context, c *client.Client) error {
	err := r.pool.QueryRow(ctx, createClientSQL, c.Name, c.Capital, c.Address).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("creating client %q: %w", c.Name, err)
	}
	return nil
}

// Update overwrites the client's attributes.
func (r *ClientRepository) Update(ctx context.Context, c *client.Client) error {
	ct, err := r.pool.Exec(ctx, updateClientSQL, c.ID, c.Name, c.Capital, c.Address)
	if err != nil {
		return fmt.Errorf("updating client %d: %w", c.ID, err)
	}
	if ct.RowsAffected() == 0 {
		return client.ErrNotFound
	}
	return nil
}

// Delete removes a client. Clients referenced by orders cannot be deleted and
// produce ErrInUse.
func (r *ClientRepository) Delete(ctx context.Context, id int64) error {
	ct, err := r.pool.Exec(ctx, deleteClientSQL, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return client.ErrInUse
		}
		return fmt.Errorf("deleting client %d: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return client.ErrNotFound
	}
	return nil
}

func scanClient(row pgx.CollectableRow) (client.Client, error) {
	var c client.Client
	err := row.Scan(&c.ID, &c.Name, &c.Capital, &c.Address)
	return c, err
}

// isForeignKeyViolation reports whether err is a PostgreSQL foreign key
// violation (SQLSTATE 23503).
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
