package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/go-sod/sod/internal/predictor"
	"github.com/go-sod/sod/internal/table"
)

// Result column names appended by WriteScores.
const (
	ColumnScore   = "score"
	ColumnOutlier = "outlier"
)

// WritePoints writes a header and one row per point.
func WritePoints(w io.Writer, header []string, points [][]float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("unable write csv header: %w", err)
	}
	for _, p := range points {
		row := make([]string, len(p))
		for i, v := range p {
			row[i] = formatFloat(v)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("unable write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteScores writes the batch back with the score and outlier flag of every
// row. Numeric columns come first, then categorical ones.
func WriteScores(w io.Writer, batch *table.Table, result *predictor.Result) error {
	if result.Len() != batch.Len() {
		return fmt.Errorf("result has %d rows, batch has %d", result.Len(), batch.Len())
	}
	schema := batch.Schema()
	header := append(schema.NumericColumnNames(), schema.CategoricalColumnNames()...)
	header = append(header, ColumnScore, ColumnOutlier)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("unable write csv header: %w", err)
	}
	for i := 0; i < batch.Len(); i++ {
		rec := batch.Row(i)
		row := make([]string, 0, len(header))
		for _, v := range rec.Values() {
			row = append(row, formatFloat(v))
		}
		for _, name := range rec.CategoricalColumnNames() {
			row = append(row, rec.Categorical(name))
		}
		row = append(row, formatFloat(result.Scores[i]), strconv.FormatBool(result.Outliers[i]))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("unable write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
