package exit

// Operation a pure, stateless transform merging the concatenated
// per-shard partial results into one logical result
type Operation interface {
	Apply(rows []interface{}) ([]interface{}, error)
}

// nonNull strips nil rows, nulls are data and are skipped silently
func nonNull(rows []interface{}) []interface{} {
	values := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			values = append(values, row)
		}
	}

	return values
}
