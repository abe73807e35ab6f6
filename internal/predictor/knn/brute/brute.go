// Package brute selects the k nearest rows of a table by scanning every
// candidate once and draining a binary heap.
package brute

import (
	"github.com/go-sod/sod/internal/geom"
	"github.com/go-sod/sod/internal/table"
	"github.com/go-sod/sod/pkg/pqueue"
)

// NoExclusion keeps every row of the candidate table eligible.
const NoExclusion = -1

// Neighbor is a candidate row index and its distance to the query.
type Neighbor struct {
	Index    int
	Distance float64
}

// KNN returns the k candidates closest to query in ascending distance order.
// The row at position exclude is skipped, which is how a fitted row avoids
// being its own neighbor; pass NoExclusion for a detached query. Equal
// distances keep row order. When fewer than k rows are eligible all of them
// are returned.
func KNN(candidates *table.Table, query *table.Record, exclude, k int, distFn geom.DistanceFn) []Neighbor {
	n := candidates.Len()
	if k <= 0 || n == 0 {
		return nil
	}
	pq := pqueue.New[int](pqueue.WithCap(uint(n)))
	for i := 0; i < n; i++ {
		if i == exclude {
			continue
		}
		pq.Push(i, geom.Distance(query, candidates.Row(i), distFn))
	}

	if k > pq.Len() {
		k = pq.Len()
	}
	knn := make([]Neighbor, 0, k)
	for len(knn) < k {
		idx, distance, _ := pq.Pop()
		knn = append(knn, Neighbor{Index: idx, Distance: distance})
	}
	return knn
}

// KDistance is the distance to the farthest member of a neighbor list.
func KDistance(nn []Neighbor) float64 {
	if len(nn) == 0 {
		return 0
	}
	return nn[len(nn)-1].Distance
}
