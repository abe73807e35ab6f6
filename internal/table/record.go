package table

// Record is a single row: numeric and categorical attribute cells plus
// target cells written by the detectors.
type Record struct {
	schema      *Schema
	numeric     []float64
	categorical []string

	targets    map[string]float64
	catTargets map[string]string
}

func newRecord(schema *Schema) *Record {
	return &Record{
		schema:      schema,
		numeric:     make([]float64, schema.NumericCount()),
		categorical: make([]string, schema.CategoricalCount()),
	}
}

// NewRecord creates a detached record for the schema, e.g. a query to score
// against a fitted model.
func NewRecord(schema *Schema, numeric []float64, categorical []string) *Record {
	r := newRecord(schema)
	copy(r.numeric, numeric)
	copy(r.categorical, categorical)
	return r
}

func (r *Record) Schema() *Schema { return r.schema }

// Values returns the numeric attribute vector. The slice is owned by the
// record and must not be modified.
func (r *Record) Values() []float64 { return r.numeric }

// ToArray returns a copy of the numeric attribute vector.
func (r *Record) ToArray() []float64 {
	return append([]float64(nil), r.numeric...)
}

func (r *Record) Numeric(name string) (float64, bool) {
	i, ok := r.schema.numIdx[name]
	if !ok {
		return 0, false
	}
	return r.numeric[i], true
}

func (r *Record) SetNumeric(name string, v float64) bool {
	i, ok := r.schema.numIdx[name]
	if !ok {
		return false
	}
	r.numeric[i] = v
	return true
}

// Categorical returns the categorical cell value, empty when the column is unknown.
func (r *Record) Categorical(name string) string {
	i, ok := r.schema.catIdx[name]
	if !ok {
		return ""
	}
	return r.categorical[i]
}

func (r *Record) SetCategorical(name, v string) bool {
	i, ok := r.schema.catIdx[name]
	if !ok {
		return false
	}
	r.categorical[i] = v
	return true
}

// CategoricalColumnNames enumerates the categorical attributes of the row.
func (r *Record) CategoricalColumnNames() []string {
	return r.schema.categorical
}

// Target returns a numeric target cell.
func (r *Record) Target(name string) (float64, bool) {
	v, ok := r.targets[name]
	return v, ok
}

func (r *Record) SetTarget(name string, v float64) {
	if r.targets == nil {
		r.targets = map[string]float64{}
	}
	r.targets[name] = v
}

// CategoricalTarget returns a categorical target cell.
func (r *Record) CategoricalTarget(name string) (string, bool) {
	v, ok := r.catTargets[name]
	return v, ok
}

func (r *Record) SetCategoricalTarget(name, v string) {
	if r.catTargets == nil {
		r.catTargets = map[string]string{}
	}
	r.catTargets[name] = v
}

// Snapshot returns a deep copy of the record bound to the same schema.
func (r *Record) Snapshot() *Record {
	c := &Record{
		schema:      r.schema,
		numeric:     append([]float64(nil), r.numeric...),
		categorical: append([]string(nil), r.categorical...),
	}
	if r.targets != nil {
		c.targets = make(map[string]float64, len(r.targets))
		for k, v := range r.targets {
			c.targets[k] = v
		}
	}
	if r.catTargets != nil {
		c.catTargets = make(map[string]string, len(r.catTargets))
		for k, v := range r.catTargets {
			c.catTargets[k] = v
		}
	}
	return c
}
