package importer

import (
	"bufio"
	"io"
	"strings"

	"github.com/go-faster/errors"
)

// errUnterminatedQuote is returned by the scanner when the input ends inside
// a quoted field. The truncated record is still returned so the offending row
// can be reported instead of silently absorbing the rest of the file.
var errUnterminatedQuote = errors.New("unterminated quoted field")

// recordScanner reads comma-separated records. Fields may be wrapped in
// double quotes; a quoted field may contain commas and newlines, and a doubled
// quote inside a quoted field stands for one literal quote. Stray quotes in
// the middle of a field are tolerated rather than rejected. Each field is
// trimmed of surrounding whitespace.
type recordScanner struct {
	r *bufio.Reader
}

func newRecordScanner(r io.Reader) *recordScanner {
	return &recordScanner{r: bufio.NewReader(r)}
}

// scan returns the fields of the next record. It returns io.EOF when the
// input is exhausted, and errUnterminatedQuote (with the partial record) when
// the input ends inside a quote.
func (s *recordScanner) scan() ([]string, error) {
	var (
		fields   []string
		field    strings.Builder
		inQuotes bool
		consumed bool
	)

	flush := func() {
		fields = append(fields, strings.TrimSpace(field.String()))
		field.Reset()
	}

	for {
		c, _, err := s.r.ReadRune()
		if err != nil {
			if err != io.EOF {
				return nil, err
			}
			if !consumed {
				return nil, io.EOF
			}
			flush()
			if inQuotes {
				return fields, errUnterminatedQuote
			}
			return fields, nil
		}
		consumed = true

		switch {
		case c == '"':
			if inQuotes {
				next, _, err := s.r.ReadRune()
				if err == nil && next == '"' {
					field.WriteRune('"')
					continue
				}
				if err == nil {
					_ = s.r.UnreadRune()
				}
				inQuotes = false
			} else {
				inQuotes = true
			}

		case c == ',' && !inQuotes:
			flush()

		case c == '\n' && !inQuotes:
			flush()
			return fields, nil

		case c == '\r' && !inQuotes:
			// Swallow the \n of a \r\n pair; a lone \r also ends the record.
			next, _, err := s.r.ReadRune()
			if err == nil && next != '\n' {
				_ = s.r.UnreadRune()
			}
			flush()
			return fields, nil

		default:
			field.WriteRune(c)
		}
	}
}
