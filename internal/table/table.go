// Package table holds the in-memory tabular batch scored by the detectors.
//
// A Table is an ordered collection of Records sharing one Schema. Records carry
// numeric and categorical attribute cells plus mutable target (label) cells.
// Snapshot is the only way to copy either value; detectors snapshot their input
// so that a fitted model never aliases the caller's table.
package table

import (
	"fmt"
)

// Schema fixes the numeric and categorical attribute names of a table.
type Schema struct {
	numeric     []string
	categorical []string
	numIdx      map[string]int
	catIdx      map[string]int
}

func NewSchema(numeric, categorical []string) *Schema {
	s := &Schema{
		numeric:     append([]string(nil), numeric...),
		categorical: append([]string(nil), categorical...),
		numIdx:      make(map[string]int, len(numeric)),
		catIdx:      make(map[string]int, len(categorical)),
	}
	for i, name := range s.numeric {
		s.numIdx[name] = i
	}
	for i, name := range s.categorical {
		s.catIdx[name] = i
	}
	return s
}

// NumericColumnNames returns a copy of the numeric attribute names in column order.
func (s *Schema) NumericColumnNames() []string {
	return append([]string(nil), s.numeric...)
}

// CategoricalColumnNames returns a copy of the categorical attribute names in column order.
func (s *Schema) CategoricalColumnNames() []string {
	return append([]string(nil), s.categorical...)
}

func (s *Schema) NumericCount() int { return len(s.numeric) }

func (s *Schema) CategoricalCount() int { return len(s.categorical) }

// Table is an ordered, indexed collection of records sharing a schema.
type Table struct {
	schema *Schema
	rows   []*Record
}

func New(schema *Schema) *Table {
	if schema == nil {
		schema = NewSchema(nil, nil)
	}
	return &Table{schema: schema}
}

// FromPoints builds a numeric-only table with columns named x0..xN.
func FromPoints(points [][]float64) *Table {
	dim := 0
	for i := range points {
		if len(points[i]) > dim {
			dim = len(points[i])
		}
	}
	names := make([]string, dim)
	for i := range names {
		names[i] = fmt.Sprintf("x%d", i)
	}
	t := New(NewSchema(names, nil))
	for i := range points {
		t.AddRow(points[i], nil)
	}
	return t
}

func (t *Table) Schema() *Schema { return t.schema }

// Len returns the row count.
func (t *Table) Len() int { return len(t.rows) }

// Row returns the record at position i. The record is owned by the table.
func (t *Table) Row(i int) *Record { return t.rows[i] }

// AddRow appends a record built from the given cells and returns it. Missing
// trailing cells are left at their zero value, extra cells are dropped.
func (t *Table) AddRow(numeric []float64, categorical []string) *Record {
	r := newRecord(t.schema)
	copy(r.numeric, numeric)
	copy(r.categorical, categorical)
	t.rows = append(t.rows, r)
	return r
}

// Snapshot returns a deep copy of the table. Rows of the copy share nothing
// mutable with the original.
func (t *Table) Snapshot() *Table {
	c := &Table{schema: t.schema, rows: make([]*Record, len(t.rows))}
	for i, r := range t.rows {
		c.rows[i] = r.Snapshot()
	}
	return c
}
