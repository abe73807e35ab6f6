package model

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/go-sod/sod/internal/predictor"
)

// NewRun records the outcome of one fit.
func NewRun(algorithm, source string, result *predictor.Result) Run {
	rows := make([]Row, result.Len())
	for i := range rows {
		rows[i] = Row{Index: i, Score: Score(result.Scores[i]), Outlier: result.Outliers[i]}
	}
	return Run{
		ID:        uuid.New(),
		Algorithm: algorithm,
		Source:    source,
		CreatedAt: time.Now().UTC(),
		Threshold: Score(result.Threshold),
		Rows:      rows,
	}
}

type Run struct {
	ID        uuid.UUID `json:"id"`
	Algorithm string    `json:"algorithm"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
	Threshold Score     `json:"threshold"`
	Rows      []Row     `json:"rows"`
}

type Row struct {
	Index   int   `json:"index"`
	Score   Score `json:"score"`
	Outlier bool  `json:"outlier"`
}

// Outliers returns the flagged rows in row order.
func (r Run) Outliers() []Row {
	var rows []Row
	for _, row := range r.Rows {
		if row.Outlier {
			rows = append(rows, row)
		}
	}
	return rows
}

// Score is a float that survives JSON encoding when it is NaN or infinite.
type Score float64

func (s Score) MarshalJSON() ([]byte, error) {
	v := float64(s)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return json.Marshal(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return json.Marshal(v)
}

func (s *Score) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*s = Score(v)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	v, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return err
	}
	*s = Score(v)
	return nil
}
