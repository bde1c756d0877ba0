package exit

import (
	"fmt"
	"math/big"

	"shards.io/shards/pkg/meta"
)

// AggregateOperation merges per-shard SUM/MIN/MAX/COUNT rows into the
// single row a unsharded store would return
type AggregateOperation struct {
	projection meta.Projection
}

// NewAggregateOperation returns the aggregate merge for the projection,
// fails for projections outside {sum, min, max, count}
func NewAggregateOperation(projection meta.Projection) (*AggregateOperation, error) {
	switch projection.Kind {
	case meta.ProjectionSum, meta.ProjectionMin,
		meta.ProjectionMax, meta.ProjectionRowCount:
		return &AggregateOperation{projection: projection}, nil
	}

	return nil, fmt.Errorf("%w: %s",
		meta.ErrUnsupportedAggregate,
		projection.Name())
}

// Apply merges the non-null per-shard aggregate rows
func (op *AggregateOperation) Apply(rows []interface{}) ([]interface{}, error) {
	values := nonNull(rows)

	switch op.projection.Kind {
	case meta.ProjectionSum:
		return sumValues(values)
	case meta.ProjectionRowCount:
		return countValues(values)
	case meta.ProjectionMin:
		return extremeValue(values, true)
	case meta.ProjectionMax:
		return extremeValue(values, false)
	}

	return nil, fmt.Errorf("%w: %s",
		meta.ErrUnsupportedAggregate,
		op.projection.Name())
}

// sumValues accumulates exactly. Summing no values yields an exact zero
// row, matching SUM over an empty result set reported by the reference
// backends after null stripping.
func sumValues(values []interface{}) ([]interface{}, error) {
	sum := new(big.Rat)
	for _, value := range values {
		rat, ok := meta.RatValue(value)
		if !ok {
			return nil, fmt.Errorf("%w: sum over %T",
				meta.ErrMalformedPartialResult,
				value)
		}

		sum.Add(sum, rat)
	}

	return []interface{}{sum}, nil
}

func countValues(values []interface{}) ([]interface{}, error) {
	total := int64(0)
	for _, value := range values {
		rat, ok := meta.RatValue(value)
		if !ok || !rat.IsInt() {
			return nil, fmt.Errorf("%w: count over %T",
				meta.ErrMalformedPartialResult,
				value)
		}

		total += rat.Num().Int64()
	}

	return []interface{}{total}, nil
}

func extremeValue(values []interface{}, min bool) ([]interface{}, error) {
	var best interface{}
	for _, value := range values {
		if best == nil {
			best = value
			continue
		}

		c, err := meta.Compare(value, best)
		if err != nil {
			return nil, err
		}

		if (min && c < 0) || (!min && c > 0) {
			best = value
		}
	}

	return []interface{}{best}, nil
}
