package loadgen

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// LiteralColumns hold Python literals ("['a', 'b']", "{'net': 1}") in exported CSVs
var LiteralColumns = []string{
	"hs_codes", "marks_and_nos", "packages", "descriptions", "quantities", "rates", "weights",
}

// RowError is a CSV row that could not be turned into a payload. The run goes on.
type RowError struct {
	Row int // 1-basis, header excluded
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// CSVRows reads a header CSV one payload at a time
type CSVRows struct {
	r      *csv.Reader
	header []string
	row    int
}

func NewCSVRows(src io.Reader) (*CSVRows, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1 // short rows leave columns empty
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv: missing header")
		}
		return nil, fmt.Errorf("csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	return &CSVRows{r: r, header: header}, nil
}

// Next returns the next row number and its JSON-ready payload.
// io.EOF at the end; a *RowError for a row that does not parse.
func (c *CSVRows) Next() (int, map[string]any, error) {
	fields, err := c.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil, io.EOF
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			c.row++
			return c.row, nil, &RowError{Row: c.row, Err: err}
		}
		return 0, nil, err
	}
	c.row++
	payload := make(map[string]any, len(c.header))
	for i, name := range c.header {
		if i < len(fields) {
			payload[name] = fields[i]
		} else {
			payload[name] = ""
		}
	}
	for _, name := range LiteralColumns {
		cell, ok := payload[name].(string)
		if !ok {
			continue
		}
		v, err := ParseLiteral(cell)
		if err != nil {
			return c.row, nil, &RowError{Row: c.row, Err: fmt.Errorf("%s: %w", name, err)}
		}
		payload[name] = v
	}
	return c.row, payload, nil
}
