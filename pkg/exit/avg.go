package exit

import (
	"fmt"

	"shards.io/shards/pkg/meta"
)

// AvgOperation merges per-shard [avg, count] pair rows into the true
// weighted mean. A naive mean of per-shard means would be wrong as soon
// as shard row counts differ.
type AvgOperation struct {
}

// NewAvgOperation returns the average merge
func NewAvgOperation() *AvgOperation {
	return &AvgOperation{}
}

// Apply merges the pair rows. Shards contributing zero rows are
// excluded from both numerator and denominator, if every shard
// contributed zero rows the result is a single null row. The numeric
// kind of the result follows the first non-null shard average.
func (op *AvgOperation) Apply(rows []interface{}) ([]interface{}, error) {
	total := float64(0)
	count := int64(0)
	integral := false
	sawValue := false

	for _, row := range nonNull(rows) {
		avg, n, err := resultPair(row)
		if err != nil {
			return nil, err
		}

		if avg == nil || n == 0 {
			// no rows on this shard, it does not go into the
			// calculation, consistent with single-node avg
			continue
		}

		rat, ok := meta.RatValue(avg)
		if !ok {
			return nil, fmt.Errorf("%w: avg value %T",
				meta.ErrMalformedPartialResult,
				avg)
		}

		if !sawValue {
			sawValue = true
			integral = meta.IsIntegral(avg)
		}

		value, _ := rat.Float64()
		total += value * float64(n)
		count += n
	}

	if count == 0 {
		return []interface{}{nil}, nil
	}

	if integral {
		return []interface{}{int64(total / float64(count))}, nil
	}

	return []interface{}{total / float64(count)}, nil
}

// resultPair splits a per-shard row into its average and row count, the
// row must be a 2 element tuple
func resultPair(row interface{}) (interface{}, int64, error) {
	pair, ok := row.([]interface{})
	if !ok {
		return nil, 0, fmt.Errorf("%w: avg row is %T, expected a pair",
			meta.ErrMalformedPartialResult,
			row)
	}

	if len(pair) != 2 {
		return nil, 0, fmt.Errorf("%w: avg row has %d elements, expected 2",
			meta.ErrMalformedPartialResult,
			len(pair))
	}

	if pair[1] == nil {
		return pair[0], 0, nil
	}

	rat, ok := meta.RatValue(pair[1])
	if !ok || !rat.IsInt() {
		return nil, 0, fmt.Errorf("%w: avg row count is %T",
			meta.ErrMalformedPartialResult,
			pair[1])
	}

	return pair[0], rat.Num().Int64(), nil
}
