package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/backoffice/internal/domain/client"
	"github.com/xenking/backoffice/internal/domain/product"
)

// ClientNotFoundError indicates the draft references a client that does not
// exist.
type ClientNotFoundError struct {
	ClientID int64
}

func (e *ClientNotFoundError) Error() string {
	return fmt.Sprintf("client %d not found", e.ClientID)
}

// Service is the order commit engine. It turns a finished draft into a
// persisted order and applies the stock decrements as one atomic unit.
//
// The pre-commit stock validation here reads current stock and rejects early,
// but the authoritative guard against concurrent commits is the conditional
// decrement performed inside the repository transaction: stock is only ever
// reduced where the remaining quantity covers the request, so two commits
// racing for the last units serialize at the store and the loser fails with
// InsufficientStockError rather than driving stock negative.
type Service struct {
	products product.Repository
	clients  client.Repository
	orders   Repository
}

// NewService creates the commit engine with its storage dependencies.
func NewService(products product.Repository, clients client.Repository, orders Repository) *Service {
	return &Service{
		products: products,
		clients:  clients,
		orders:   orders,
	}
}

// Commit validates the draft against current stock, persists the aggregate
// with its stock decrements atomically, and resets the draft. On any failure
// nothing is persisted and no stock is touched.
func (s *Service) Commit(ctx context.Context, d *Draft) (*Order, error) {
	o, err := s.prepare(ctx, d, nil)
	if err != nil {
		return nil, err
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, commitError(err)
	}

	d.Reset()
	return o, nil
}

// Replace edits an existing order by retracting its previous stock effect and
// re-running the full commit protocol with the draft's lines. The retraction
// and the re-application happen in the same repository transaction.
func (s *Service) Replace(ctx context.Context, id int64, d *Draft) (*Order, error) {
	prev, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, commitError(err)
	}

	// Quantities held by the order being edited return to the pool when the
	// transaction retracts them, so the pre-check counts them as available.
	held := make(map[int64]int, len(prev.Lines))
	for _, l := range prev.Lines {
		held[l.ProductID] += l.Quantity
	}

	o, err := s.prepare(ctx, d, held)
	if err != nil {
		return nil, err
	}
	o.ID = id

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, commitError(err)
	}

	d.Reset()
	return o, nil
}

// Delete removes an order and restores the stock its lines had consumed.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.orders.Delete(ctx, id); err != nil {
		return commitError(err)
	}
	return nil
}

// prepare checks preconditions and re-validates every line against current
// stock, returning the aggregate ready for persistence. held carries
// per-product quantities an edit is about to retract; they count as
// available on top of the stored stock.
func (s *Service) prepare(ctx context.Context, d *Draft, held map[int64]int) (*Order, error) {
	lines := d.Lines()
	if d.ClientID() == 0 || len(lines) == 0 {
		return nil, ErrIncompleteOrder
	}

	if _, err := s.clients.GetByID(ctx, d.ClientID()); err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return nil, &ClientNotFoundError{ClientID: d.ClientID()}
		}
		return nil, errors.Wrap(err, "get client")
	}

	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}

	// Fetch fresh stock in one batch. Time has passed since the lines were
	// added and a concurrent order may have consumed stock in between.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[int64]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	for _, l := range lines {
		p, ok := byID[l.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: l.ProductID}
		}
		if err := CheckStock(l.ProductID, l.Quantity, p.Stock+held[l.ProductID]); err != nil {
			return nil, err
		}
	}

	return &Order{
		ClientID: d.ClientID(),
		Date:     d.Date(),
		Lines:    lines,
		Total:    d.Total(),
	}, nil
}

// commitError passes business failures through unchanged and wraps anything
// else as a CommitFailedError.
func commitError(err error) error {
	var (
		stockErr  *InsufficientStockError
		notFound  *ProductNotFoundError
		commitErr *CommitFailedError
	)
	switch {
	case errors.As(err, &stockErr), errors.As(err, &notFound), errors.As(err, &commitErr):
		return err
	case errors.Is(err, ErrNotFound):
		return err
	default:
		return &CommitFailedError{Cause: err}
	}
}
