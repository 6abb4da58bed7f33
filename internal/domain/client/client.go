package client

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for client operations.
var (
	// ErrNotFound is returned when a requested client does not exist.
	ErrNotFound = errors.New("client not found")
	// ErrInUse is returned when deleting a client that still has orders.
	ErrInUse = errors.New("client is referenced by existing orders")
)

// Client represents a commercial customer account.
type Client struct {
	ID      int64
	Name    string
	Capital decimal.Decimal
	Address string
}

// Validate checks the required-field invariants for create and update.
func (c *Client) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(c.Address) == "" {
		return errors.New("address is required")
	}
	if c.Capital.IsNegative() {
		return errors.New("capital cannot be negative")
	}
	return nil
}

// Repository defines persistence operations for clients.
type Repository interface {
	List(ctx context.Context) ([]Client, error)
	Search(ctx context.Context, term string) ([]Client, error)
	GetByID(ctx context.Context, id int64) (*Client, error)
	Create(ctx context.Context, c *Client) error
	Update(ctx context.Context, c *Client) error
	Delete(ctx context.Context, id int64) error
}
