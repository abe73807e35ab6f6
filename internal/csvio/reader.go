// Package csvio reads and writes tables as CSV files.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-sod/sod/internal/table"
)

var ErrNoRows = errors.New("csv input has no data rows")

type Option func(*options)

type options struct {
	hasHeader   bool
	comma       rune
	categorical map[string]struct{}
}

// WithHeader indicates the first row names the columns. Without a header the
// columns are named c0..cN.
func WithHeader(has bool) Option {
	return func(o *options) {
		o.hasHeader = has
	}
}

func WithComma(r rune) Option {
	return func(o *options) {
		o.comma = r
	}
}

// WithCategorical forces columns to be categorical even when every value
// parses as a number.
func WithCategorical(names ...string) Option {
	return func(o *options) {
		for _, name := range names {
			o.categorical[name] = struct{}{}
		}
	}
}

func ReadFile(filename string, opts ...Option) (*table.Table, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("unable open csv file: %w", err)
	}
	defer f.Close()
	return Read(f, opts...)
}

// Read loads every row of r. A column is numeric when each of its non-empty
// cells parses as a float; empty numeric cells become NaN. Other columns are
// categorical. Column order within each kind follows the input.
func Read(r io.Reader, opts ...Option) (*table.Table, error) {
	o := &options{hasHeader: true, comma: ',', categorical: map[string]struct{}{}}
	for _, f := range opts {
		f(o)
	}

	reader := csv.NewReader(r)
	reader.Comma = o.comma
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("unable read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoRows
	}

	var headers []string
	if o.hasHeader {
		headers, records = records[0], records[1:]
	} else {
		headers = make([]string, len(records[0]))
		for i := range headers {
			headers[i] = "c" + strconv.Itoa(i)
		}
	}
	if len(records) == 0 {
		return nil, ErrNoRows
	}

	isNumeric := make([]bool, len(headers))
	var numeric, categorical []string
	for c, name := range headers {
		_, forced := o.categorical[name]
		isNumeric[c] = !forced && numericColumn(records, c)
		if isNumeric[c] {
			numeric = append(numeric, name)
		} else {
			categorical = append(categorical, name)
		}
	}

	t := table.New(table.NewSchema(numeric, categorical))
	for _, record := range records {
		nums := make([]float64, 0, len(numeric))
		cats := make([]string, 0, len(categorical))
		for c, cell := range record {
			if !isNumeric[c] {
				cats = append(cats, cell)
				continue
			}
			v, err := parseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("unable parse numeric cell %q: %w", cell, err)
			}
			nums = append(nums, v)
		}
		t.AddRow(nums, cats)
	}
	return t, nil
}

func numericColumn(records [][]string, c int) bool {
	seen := false
	for _, record := range records {
		cell := strings.TrimSpace(record[c])
		if cell == "" {
			continue
		}
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}

func parseCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}
