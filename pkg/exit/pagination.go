package exit

// FirstResultOperation drops the rows before the offset, applied once
// after the cross-shard ordering. An offset beyond the result size
// yields an empty result, not an error.
type FirstResultOperation struct {
	first int
}

// NewFirstResultOperation returns the offset merge
func NewFirstResultOperation(first int) *FirstResultOperation {
	return &FirstResultOperation{first: first}
}

// Apply drops the leading rows
func (op *FirstResultOperation) Apply(rows []interface{}) ([]interface{}, error) {
	if op.first >= len(rows) {
		return nil, nil
	}

	return rows[op.first:], nil
}

// MaxResultsOperation truncates the rows to the max count, applied once
// after the cross-shard ordering, never pushed down per shard
type MaxResultsOperation struct {
	max int
}

// NewMaxResultsOperation returns the truncation merge
func NewMaxResultsOperation(max int) *MaxResultsOperation {
	return &MaxResultsOperation{max: max}
}

// Apply truncates the rows
func (op *MaxResultsOperation) Apply(rows []interface{}) ([]interface{}, error) {
	if op.max < len(rows) {
		return rows[:op.max], nil
	}

	return rows, nil
}
