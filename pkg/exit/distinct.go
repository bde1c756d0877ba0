package exit

import (
	"fmt"
)

// DistinctOperation drops duplicate rows after concatenation, keeping
// the first occurrence
type DistinctOperation struct {
}

// NewDistinctOperation returns the dedup merge
func NewDistinctOperation() *DistinctOperation {
	return &DistinctOperation{}
}

// Apply drops duplicates
func (op *DistinctOperation) Apply(rows []interface{}) ([]interface{}, error) {
	seen := make(map[string]struct{}, len(rows))
	var distinct []interface{}
	for _, row := range rows {
		key := fmt.Sprintf("%T:%v", row, row)
		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}
		distinct = append(distinct, row)
	}

	return distinct, nil
}
