package order

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/backoffice/internal/domain/product"
)

// ErrLineIndex is returned when removing a line at an index that does not exist.
var ErrLineIndex = errors.New("line index out of range")

// Draft accumulates an order prior to commit. Each caller owns its own Draft
// value; nothing about it is shared or global. A Draft is not safe for
// concurrent use by multiple goroutines.
//
// Line subtotals are captured from the product's price at add-time. The total
// is recomputed from scratch on every mutation rather than adjusted
// incrementally, so repeated add/remove cycles cannot accumulate drift.
type Draft struct {
	clientID int64
	date     time.Time
	lines    []Line
	total    decimal.Decimal
}

// NewDraft returns an empty draft: no client, no lines, total zero.
func NewDraft() *Draft {
	return &Draft{date: time.Now(), total: decimal.Zero}
}

// SetClient attaches a client reference to the draft. Existence of the client
// is enforced at commit time, not here.
func (d *Draft) SetClient(id int64) { d.clientID = id }

// ClientID returns the attached client reference, zero if none.
func (d *Draft) ClientID() int64 { return d.clientID }

// SetDate sets the order date.
func (d *Draft) SetDate(t time.Time) { d.date = t }

// Date returns the order date.
func (d *Draft) Date() time.Time { return d.date }

// AddLine appends a line for the given product, capturing the unit price as it
// is now. Returns ErrInvalidQuantity when quantity is not positive.
func (d *Draft) AddLine(p product.Product, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	subtotal := p.Price.Mul(decimal.NewFromInt(int64(quantity)))
	d.lines = append(d.lines, Line{
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    quantity,
		UnitPrice:   p.Price,
		Subtotal:    subtotal,
	})
	d.recompute()
	return nil
}

// RemoveLine removes the line at the given zero-based index.
func (d *Draft) RemoveLine(index int) error {
	if index < 0 || index >= len(d.lines) {
		return ErrLineIndex
	}
	d.lines = append(d.lines[:index], d.lines[index+1:]...)
	d.recompute()
	return nil
}

// Lines returns a copy of the drafted lines in insertion order.
func (d *Draft) Lines() []Line {
	out := make([]Line, len(d.lines))
	copy(out, d.lines)
	return out
}

// Total returns the current draft total, always equal to the sum of line
// subtotals.
func (d *Draft) Total() decimal.Decimal { return d.total }

// Reset discards all draft state, equivalent to starting a new order.
func (d *Draft) Reset() {
	d.clientID = 0
	d.date = time.Now()
	d.lines = nil
	d.total = decimal.Zero
}

func (d *Draft) recompute() {
	total := decimal.Zero
	for _, l := range d.lines {
		total = total.Add(l.Subtotal)
	}
	d.total = total
}
