package importer

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/backoffice/internal/domain/client"
	"github.com/xenking/backoffice/internal/domain/product"
)

// dateLayout is the fixed order-date format: YYYY-MM-DD.
const dateLayout = "2006-01-02"

// rowParser validates one record's fields and builds a value. The returned
// RowError has its Row filled in by the parse loop.
type rowParser[T any] func(fields []string, raw string) (T, *RowError)

// Clients validates a CSV source of client rows: Name,Capital,Address.
func Clients(r io.Reader, header bool) *Result[client.Client] {
	return parse(r, header, parseClientRow)
}

// Products validates a CSV source of product rows: Name,Price,Stock.
func Products(r io.Reader, header bool) *Result[product.Product] {
	return parse(r, header, parseProductRow)
}

// OrderDates validates a CSV source of order rows carrying only a date.
func OrderDates(r io.Reader, header bool) *Result[time.Time] {
	return parse(r, header, parseOrderDateRow)
}

// parse runs the shared row loop: scan a record, validate it, record either
// the value or a single RowError, and continue. A failing row never aborts
// the batch. Row numbering is 1-based from the first data row.
func parse[T any](r io.Reader, header bool, parseRow rowParser[T]) *Result[T] {
	result := &Result[T]{}
	sc := newRecordScanner(r)

	if header {
		if _, err := sc.scan(); err != nil {
			return result
		}
	}

	row := 0
	for {
		fields, err := sc.scan()
		if err == io.EOF {
			return result
		}

		row++
		result.TotalRows++
		raw := strings.Join(fields, ",")

		if err != nil {
			if err == errUnterminatedQuote {
				result.Errors = append(result.Errors, RowError{
					Row: row, Field: "row", Value: raw, Reason: "Unterminated quoted field",
				})
				return result
			}
			result.Errors = append(result.Errors, RowError{
				Row: row, Field: "file", Value: "", Reason: "Failed to read: " + err.Error(),
			})
			return result
		}

		value, rowErr := parseRow(fields, raw)
		if rowErr != nil {
			rowErr.Row = row
			result.Errors = append(result.Errors, *rowErr)
			continue
		}
		result.Records = append(result.Records, value)
	}
}

// parseClientRow validates Name,Capital,Address. The first failing field wins;
// later fields on the row are not checked.
func parseClientRow(fields []string, raw string) (client.Client, *RowError) {
	var c client.Client

	if len(fields) < 3 {
		return c, &RowError{Field: "row", Value: raw, Reason: "Insufficient fields. Expected: Name, Capital, Address"}
	}

	name := fields[0]
	if name == "" {
		return c, &RowError{Field: "Name", Value: name, Reason: "Name is required"}
	}

	capital, err := decimal.NewFromString(fields[1])
	if err != nil {
		return c, &RowError{Field: "Capital", Value: fields[1], Reason: "Invalid number format"}
	}
	if capital.IsNegative() {
		return c, &RowError{Field: "Capital", Value: fields[1], Reason: "Capital cannot be negative"}
	}

	address := fields[2]
	if address == "" {
		return c, &RowError{Field: "Address", Value: address, Reason: "Address is required"}
	}

	c.Name = name
	c.Capital = capital
	c.Address = address
	return c, nil
}

// parseProductRow validates Name,Price,Stock.
func parseProductRow(fields []string, raw string) (product.Product, *RowError) {
	var p product.Product

	if len(fields) < 3 {
		return p, &RowError{Field: "row", Value: raw, Reason: "Insufficient fields. Expected: Name, Price, Stock"}
	}

	name := fields[0]
	if name == "" {
		return p, &RowError{Field: "Name", Value: name, Reason: "Name is required"}
	}

	price, err := decimal.NewFromString(fields[1])
	if err != nil {
		return p, &RowError{Field: "Price", Value: fields[1], Reason: "Invalid number format"}
	}
	if price.IsNegative() {
		return p, &RowError{Field: "Price", Value: fields[1], Reason: "Price cannot be negative"}
	}

	stock, err := strconv.Atoi(fields[2])
	if err != nil {
		return p, &RowError{Field: "Stock", Value: fields[2], Reason: "Invalid integer format"}
	}
	if stock < 0 {
		return p, &RowError{Field: "Stock", Value: fields[2], Reason: "Stock cannot be negative"}
	}

	p.Name = name
	p.Price = price
	p.Stock = stock
	return p, nil
}

// parseOrderDateRow validates a single Date field.
func parseOrderDateRow(fields []string, raw string) (time.Time, *RowError) {
	if len(fields) < 1 {
		return time.Time{}, &RowError{Field: "row", Value: raw, Reason: "Insufficient fields. Expected: Date"}
	}

	date, err := time.Parse(dateLayout, fields[0])
	if err != nil {
		return time.Time{}, &RowError{Field: "Date", Value: fields[0], Reason: "Invalid date format. Expected: YYYY-MM-DD"}
	}
	return date, nil
}
