package exit

import (
	"shards.io/shards/pkg/meta"
)

// Collector accumulates the exit operations a logical operation needs
// and threads the concatenated partial results through them in the
// mandated order: the aggregate merge when the aggregate is the whole
// query, otherwise distinct, then order-by, then offset, then limit.
// The limit is never applied before the ordering.
type Collector struct {
	projection  meta.Projection
	orders      []InMemoryOrderBy
	firstResult int
	maxResults  int
}

// NewCollector returns an empty collector
func NewCollector() *Collector {
	return &Collector{
		maxResults: -1,
	}
}

// SetProjection records the projection kind of the operation
func (c *Collector) SetProjection(projection meta.Projection) {
	c.projection = projection
}

// AddOrder records an in-memory ordering
func (c *Collector) AddOrder(order InMemoryOrderBy) {
	c.orders = append(c.orders, order)
}

// SetFirstResult records the offset of the first returned row
func (c *Collector) SetFirstResult(first int) {
	c.firstResult = first
}

// SetMaxResults records the max count of returned rows
func (c *Collector) SetMaxResults(max int) {
	c.maxResults = max
}

// Empty returns true if no merge work is recorded
func (c *Collector) Empty() bool {
	return c.projection.Kind == meta.ProjectionNone &&
		len(c.orders) == 0 &&
		c.firstResult == 0 &&
		c.maxResults < 0
}

// Apply merges the concatenated per-shard rows
func (c *Collector) Apply(rows []interface{}) ([]interface{}, error) {
	if c.projection.IsAggregate() {
		var op Operation
		if c.projection.Kind == meta.ProjectionAvg {
			op = NewAvgOperation()
		} else {
			aggregate, err := NewAggregateOperation(c.projection)
			if err != nil {
				return nil, err
			}
			op = aggregate
		}

		return op.Apply(rows)
	}

	var ops []Operation
	if c.projection.Kind == meta.ProjectionDistinct {
		ops = append(ops, NewDistinctOperation())
	}

	if len(c.orders) > 0 {
		ops = append(ops, NewOrderOperation(c.orders...))
	}

	if c.firstResult > 0 {
		ops = append(ops, NewFirstResultOperation(c.firstResult))
	}

	if c.maxResults >= 0 {
		ops = append(ops, NewMaxResultsOperation(c.maxResults))
	}

	var err error
	for _, op := range ops {
		rows, err = op.Apply(rows)
		if err != nil {
			return nil, err
		}
	}

	return rows, nil
}
