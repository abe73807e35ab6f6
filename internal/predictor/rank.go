package predictor

import (
	"math"

	"github.com/go-sod/sod/pkg/pqueue"
)

// RankDesc returns the positions of scores ordered by descending score. Equal
// scores keep their original order. NaN scores are left out.
func RankDesc(scores []float64) []int {
	pq := pqueue.New[int](pqueue.WithOrderDesc(), pqueue.WithCap(uint(len(scores))))
	for i, s := range scores {
		if math.IsNaN(s) {
			continue
		}
		pq.Push(i, s)
	}
	return pq.PopAll()
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
