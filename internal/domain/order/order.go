package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for order assembly and commit.
var (
	// ErrNotFound is returned when a requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrInvalidQuantity is returned when a line quantity is not positive.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	// ErrIncompleteOrder is returned when committing a draft without a client
	// or without any lines.
	ErrIncompleteOrder = errors.New("order requires a client and at least one line")
)

// InsufficientStockError indicates a requested quantity exceeds the available
// stock for a product.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// ProductNotFoundError indicates a drafted line references a product that no
// longer exists in the catalog.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

// CommitFailedError wraps an infrastructure failure during the commit
// transaction. The transaction is rolled back before this is returned.
type CommitFailedError struct {
	Cause error
}

func (e *CommitFailedError) Error() string {
	return fmt.Sprintf("order commit failed: %v", e.Cause)
}

func (e *CommitFailedError) Unwrap() error { return e.Cause }

// Line is one (product, quantity) entry within an order. UnitPrice and
// Subtotal are captured when the line is added to a draft and never recomputed
// from the current catalog price, so historical orders keep their value.
type Line struct {
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// Order is the committed aggregate: a header plus its ordered lines.
// Invariant: Total equals the exact sum of line subtotals.
type Order struct {
	ID       int64
	ClientID int64
	Date     time.Time
	Lines    []Line
	Total    decimal.Decimal
}

// Repository defines persistence for the order aggregate. Create, Update and
// Delete are atomic: the header, its lines and the corresponding stock
// adjustments succeed or fail as one unit. Implementations return
// *InsufficientStockError when a stock decrement cannot be satisfied.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Update(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	SearchByClientName(ctx context.Context, term string) ([]Order, error)
}
