package backend

import (
	"fmt"
	"math/big"
	"sort"

	"shards.io/shards/pkg/meta"
)

// Evaluation evaluates criteria against in-process entities with
// single-node store semantics, shared by the reference backends.
type Evaluation struct {
	Criterions  []meta.Criterion
	Orders      []meta.Order
	Projection  meta.Projection
	FirstResult int
	MaxResults  int
}

// NewEvaluation returns an evaluation with no restrictions
func NewEvaluation() *Evaluation {
	return &Evaluation{
		MaxResults: -1,
	}
}

// Apply filters, orders, pages and projects the entities
func (e *Evaluation) Apply(entities []interface{}) ([]interface{}, error) {
	var matched []interface{}
	for _, entity := range entities {
		ok, err := e.matches(entity)
		if err != nil {
			return nil, err
		}

		if ok {
			matched = append(matched, entity)
		}
	}

	if len(e.Orders) > 0 {
		if err := sortEntities(matched, e.Orders); err != nil {
			return nil, err
		}
	}

	matched = page(matched, e.FirstResult, e.MaxResults)
	return e.project(matched)
}

func (e *Evaluation) matches(entity interface{}) (bool, error) {
	for _, criterion := range e.Criterions {
		value := meta.PropertyValue(entity, criterion.Property)
		if value == nil {
			// comparisons against a missing value never match
			return false, nil
		}

		c, err := meta.Compare(value, criterion.Value)
		if err != nil {
			return false, err
		}

		ok := false
		switch criterion.Op {
		case meta.OpEq:
			ok = c == 0
		case meta.OpNe:
			ok = c != 0
		case meta.OpGt:
			ok = c > 0
		case meta.OpGe:
			ok = c >= 0
		case meta.OpLt:
			ok = c < 0
		case meta.OpLe:
			ok = c <= 0
		}

		if !ok {
			return false, nil
		}
	}

	return true, nil
}

func sortEntities(entities []interface{}, orders []meta.Order) error {
	var sortErr error
	sort.SliceStable(entities, func(i, j int) bool {
		for _, order := range orders {
			a := meta.PropertyValue(entities[i], order.Property)
			b := meta.PropertyValue(entities[j], order.Property)
			c, err := meta.CompareNullable(a, b)
			if err != nil {
				if sortErr == nil {
					sortErr = err
				}
				return false
			}

			if c == 0 {
				continue
			}

			if order.Ascending {
				return c < 0
			}

			return c > 0
		}

		return false
	})

	return sortErr
}

func page(entities []interface{}, first, max int) []interface{} {
	if first > 0 {
		if first >= len(entities) {
			return nil
		}

		entities = entities[first:]
	}

	if max >= 0 && max < len(entities) {
		entities = entities[:max]
	}

	return entities
}

func (e *Evaluation) project(entities []interface{}) ([]interface{}, error) {
	switch e.Projection.Kind {
	case meta.ProjectionNone:
		return entities, nil
	case meta.ProjectionProperty:
		return propertyValues(entities, e.Projection.Property), nil
	case meta.ProjectionRowCount:
		return []interface{}{int64(len(entities))}, nil
	case meta.ProjectionSum:
		return sumRows(propertyValues(entities, e.Projection.Property))
	case meta.ProjectionMin:
		return extremeRows(propertyValues(entities, e.Projection.Property), true)
	case meta.ProjectionMax:
		return extremeRows(propertyValues(entities, e.Projection.Property), false)
	case meta.ProjectionAvg:
		return avgRows(propertyValues(entities, e.Projection.Property))
	case meta.ProjectionDistinct:
		return distinctRows(propertyValues(entities, e.Projection.Property)), nil
	}

	return nil, fmt.Errorf("%w: projection %s",
		meta.ErrUnsupportedAggregate,
		e.Projection.Name())
}

func propertyValues(entities []interface{}, property string) []interface{} {
	values := make([]interface{}, 0, len(entities))
	for _, entity := range entities {
		values = append(values, meta.PropertyValue(entity, property))
	}

	return values
}

func sumRows(values []interface{}) ([]interface{}, error) {
	sum := new(big.Rat)
	integral := true

	n := 0
	for _, value := range values {
		if value == nil {
			continue
		}

		rat, ok := meta.RatValue(value)
		if !ok {
			return nil, fmt.Errorf("%w: sum over %T",
				meta.ErrMalformedPartialResult,
				value)
		}

		if !meta.IsIntegral(value) {
			integral = false
		}

		sum.Add(sum, rat)
		n++
	}

	if n == 0 {
		return []interface{}{nil}, nil
	}

	if integral {
		return []interface{}{sum.Num().Int64()}, nil
	}

	f, _ := sum.Float64()
	return []interface{}{f}, nil
}

func extremeRows(values []interface{}, min bool) ([]interface{}, error) {
	var best interface{}
	for _, value := range values {
		if value == nil {
			continue
		}

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

// avgRows returns the [avg, count] pair row the cross-shard average
// merge expects. A shard with no rows contributes [nil, 0].
func avgRows(values []interface{}) ([]interface{}, error) {
	var sum float64
	integral := true

	n := int64(0)
	for _, value := range values {
		if value == nil {
			continue
		}

		rat, ok := meta.RatValue(value)
		if !ok {
			return nil, fmt.Errorf("%w: avg over %T",
				meta.ErrMalformedPartialResult,
				value)
		}

		if !meta.IsIntegral(value) {
			integral = false
		}

		f, _ := rat.Float64()
		sum += f
		n++
	}

	if n == 0 {
		return []interface{}{[]interface{}{nil, int64(0)}}, nil
	}

	var avg interface{}
	if integral {
		avg = int64(sum / float64(n))
	} else {
		avg = sum / float64(n)
	}

	return []interface{}{[]interface{}{avg, n}}, nil
}

func distinctRows(values []interface{}) []interface{} {
	seen := make(map[string]struct{}, len(values))
	var distinct []interface{}
	for _, value := range values {
		key := fmt.Sprintf("%T:%v", value, value)
		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}
		distinct = append(distinct, value)
	}

	return distinct
}
