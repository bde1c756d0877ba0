package exit

import (
	"sort"

	"shards.io/shards/pkg/meta"
)

// InMemoryOrderBy an ordering applied in memory after the per-shard
// partial sequences are concatenated. Per-shard order alone never
// yields global order.
type InMemoryOrderBy struct {
	expression string
	ascending  bool
}

// NewInMemoryOrderBy returns the in-memory ordering for the order,
// resolving the sort key against the nested parent path when present.
// An empty combined expression sorts rows by their own value.
func NewInMemoryOrderBy(parentPath string, order meta.Order) InMemoryOrderBy {
	expression := order.Property
	if parentPath != "" {
		expression = parentPath + "." + order.Property
	}

	return InMemoryOrderBy{
		expression: expression,
		ascending:  order.Ascending,
	}
}

// Expression returns the combined sort key path
func (o InMemoryOrderBy) Expression() string {
	return o.expression
}

// IsAscending returns true for an ascending ordering
func (o InMemoryOrderBy) IsAscending() bool {
	return o.ascending
}

func (o InMemoryOrderBy) key(row interface{}) interface{} {
	if o.expression == "" {
		return row
	}

	return meta.PropertyValue(row, o.expression)
}

// OrderOperation applies a stable in-memory sort over the concatenated
// rows
type OrderOperation struct {
	orders []InMemoryOrderBy
}

// NewOrderOperation returns the ordering merge
func NewOrderOperation(orders ...InMemoryOrderBy) *OrderOperation {
	return &OrderOperation{orders: orders}
}

// Apply sorts a copy of the rows, nulls first on ascending order
func (op *OrderOperation) Apply(rows []interface{}) ([]interface{}, error) {
	sorted := make([]interface{}, len(rows))
	copy(sorted, rows)

	var sortErr error
	sort.SliceStable(sorted, func(i, j int) bool {
		for _, order := range op.orders {
			c, err := meta.CompareNullable(order.key(sorted[i]), order.key(sorted[j]))
			if err != nil {
				if sortErr == nil {
					sortErr = err
				}
				return false
			}

			if c == 0 {
				continue
			}

			if order.IsAscending() {
				return c < 0
			}

			return c > 0
		}

		return false
	})

	if sortErr != nil {
		return nil, sortErr
	}

	return sorted, nil
}
