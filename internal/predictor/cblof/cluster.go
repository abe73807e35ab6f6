package cblof

import (
	"github.com/go-sod/sod/internal/table"
)

// Cluster accumulates the categorical value supports of its members.
type Cluster struct {
	index  int
	size   int
	events map[string]int
	attrs  map[string]int
}

func newCluster(rec *table.Record) *Cluster {
	c := &Cluster{events: map[string]int{}, attrs: map[string]int{}}
	c.Add(rec)
	return c
}

func eventName(attr, value string) string {
	return attr + "=" + value
}

// Add counts every categorical cell of rec into the cluster.
func (c *Cluster) Add(rec *table.Record) {
	for _, name := range rec.CategoricalColumnNames() {
		c.events[eventName(name, rec.Categorical(name))]++
		c.attrs[name]++
	}
	c.size++
}

// Index is the rank of the cluster by descending size.
func (c *Cluster) Index() int { return c.index }

func (c *Cluster) Size() int { return c.size }

// Support returns how many members have value in attr.
func (c *Cluster) Support(attr, value string) int {
	return c.events[eventName(attr, value)]
}

// Similarity is the mean, over the categorical attributes of rec, of the
// share of members that carry the same value. A record without categorical
// attributes has similarity 0.
func (c *Cluster) Similarity(rec *table.Record) float64 {
	names := rec.CategoricalColumnNames()
	if len(names) == 0 {
		return 0
	}
	var similarity float64
	for _, name := range names {
		total := c.attrs[name]
		if total == 0 {
			continue
		}
		similarity += float64(c.events[eventName(name, rec.Categorical(name))]) / float64(total)
	}
	return similarity / float64(len(names))
}

func (c *Cluster) Distance(rec *table.Record) float64 {
	return 1 - c.Similarity(rec)
}

func (c *Cluster) Snapshot() *Cluster {
	s := &Cluster{
		index:  c.index,
		size:   c.size,
		events: make(map[string]int, len(c.events)),
		attrs:  make(map[string]int, len(c.attrs)),
	}
	for k, v := range c.events {
		s.events[k] = v
	}
	for k, v := range c.attrs {
		s.attrs[k] = v
	}
	return s
}
