// Package pqueue implements a binary heap priority queue keyed by a float64
// priority. Items with equal priority leave the queue in insertion order.
package pqueue

import (
	"container/heap"
)

func WithOrderAsc() Option {
	return func(o *options) {
		o.order = orderAsc
	}
}

func WithOrderDesc() Option {
	return func(o *options) {
		o.order = orderDesc
	}
}

// WithCap preallocates room for size items. It does not bound the queue.
func WithCap(size uint) Option {
	return func(o *options) {
		o.cap = int(size)
	}
}

type Option func(*options)

type options struct {
	order order
	cap   int
}

type order uint8

const (
	orderAsc order = iota
	orderDesc
)

type item[T any] struct {
	value T
	prior float64
	seq   uint64
}

// New returns an empty queue. The default order is ascending, so Pop yields
// the minimum priority first.
func New[T any](opts ...Option) *Queue[T] {
	o := options{order: orderAsc}
	for _, opt := range opts {
		opt(&o)
	}
	return &Queue[T]{h: items[T]{order: o.order, list: make([]item[T], 0, o.cap)}}
}

type Queue[T any] struct {
	h   items[T]
	seq uint64
}

func (q *Queue[T]) Push(val T, priority float64) {
	heap.Push(&q.h, item[T]{value: val, prior: priority, seq: q.seq})
	q.seq++
}

// Pop removes the head of the queue. ok is false when the queue is empty.
func (q *Queue[T]) Pop() (val T, priority float64, ok bool) {
	if len(q.h.list) == 0 {
		return val, 0, false
	}
	x := heap.Pop(&q.h).(item[T])
	return x.value, x.prior, true
}

// Head returns the head of the queue without removing it.
func (q *Queue[T]) Head() (val T, priority float64, ok bool) {
	if len(q.h.list) == 0 {
		return val, 0, false
	}
	return q.h.list[0].value, q.h.list[0].prior, true
}

// PopAll drains the queue in priority order.
func (q *Queue[T]) PopAll() []T {
	pulled := make([]T, 0, len(q.h.list))
	for len(q.h.list) > 0 {
		x := heap.Pop(&q.h).(item[T])
		pulled = append(pulled, x.value)
	}
	return pulled
}

func (q *Queue[T]) Len() int { return len(q.h.list) }

type items[T any] struct {
	order order
	list  []item[T]
}

func (h items[T]) Len() int { return len(h.list) }

func (h items[T]) Less(i, j int) bool {
	a, b := h.list[i], h.list[j]
	if a.prior == b.prior {
		return a.seq < b.seq
	}
	if h.order == orderAsc {
		return a.prior < b.prior
	}
	return a.prior > b.prior
}

func (h items[T]) Swap(i, j int) { h.list[i], h.list[j] = h.list[j], h.list[i] }

func (h *items[T]) Push(x any) { h.list = append(h.list, x.(item[T])) }

func (h *items[T]) Pop() any {
	n := len(h.list)
	x := h.list[n-1]
	var zero item[T]
	h.list[n-1] = zero
	h.list = h.list[:n-1]
	return x
}
