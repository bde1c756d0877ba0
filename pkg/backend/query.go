package backend

import (
	"fmt"
	"strconv"
	"strings"

	"shards.io/shards/pkg/meta"
)

// Statement a parsed statement. The reference backends share one minimal
// grammar: `from <Kind> [where <prop> <op> <value> [and ...]]` for reads
// and `delete from <Kind> [where ...]` for removals. Values are literals
// or `:name` parameter references.
type Statement struct {
	Delete     bool
	Kind       string
	Conditions []Condition
}

// Condition a single restriction of a statement
type Condition struct {
	Property string
	Op       meta.CompareOp
	Param    string
	Value    interface{}
}

var compareOps = map[string]meta.CompareOp{
	"=":  meta.OpEq,
	"!=": meta.OpNe,
	"<>": meta.OpNe,
	">":  meta.OpGt,
	">=": meta.OpGe,
	"<":  meta.OpLt,
	"<=": meta.OpLe,
}

// ParseStatement parses the statement
func ParseStatement(stmt string) (*Statement, error) {
	tokens := strings.Fields(stmt)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: empty statement", meta.ErrInvalidArgument)
	}

	s := &Statement{}
	idx := 0
	if strings.EqualFold(tokens[idx], "delete") {
		s.Delete = true
		idx++
	}

	if idx >= len(tokens) || !strings.EqualFold(tokens[idx], "from") {
		return nil, fmt.Errorf("%w: expected `from` in %q",
			meta.ErrInvalidArgument,
			stmt)
	}
	idx++

	if idx >= len(tokens) {
		return nil, fmt.Errorf("%w: missing kind in %q",
			meta.ErrInvalidArgument,
			stmt)
	}
	s.Kind = tokens[idx]
	idx++

	if idx == len(tokens) {
		return s, nil
	}

	if !strings.EqualFold(tokens[idx], "where") {
		return nil, fmt.Errorf("%w: expected `where` in %q",
			meta.ErrInvalidArgument,
			stmt)
	}
	idx++

	for idx < len(tokens) {
		if idx+3 > len(tokens) {
			return nil, fmt.Errorf("%w: incomplete condition in %q",
				meta.ErrInvalidArgument,
				stmt)
		}

		op, ok := compareOps[tokens[idx+1]]
		if !ok {
			return nil, fmt.Errorf("%w: unknown operator %q",
				meta.ErrInvalidArgument,
				tokens[idx+1])
		}

		cond := Condition{
			Property: tokens[idx],
			Op:       op,
		}

		value := tokens[idx+2]
		if strings.HasPrefix(value, ":") {
			cond.Param = value[1:]
		} else {
			cond.Value = parseLiteral(value)
		}

		s.Conditions = append(s.Conditions, cond)
		idx += 3

		if idx < len(tokens) {
			if !strings.EqualFold(tokens[idx], "and") {
				return nil, fmt.Errorf("%w: expected `and` in %q",
					meta.ErrInvalidArgument,
					stmt)
			}
			idx++
		}
	}

	return s, nil
}

func parseLiteral(value string) interface{} {
	if strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'") {
		return strings.Trim(value, "'")
	}

	if v, err := strconv.ParseInt(value, 10, 64); err == nil {
		return v
	}

	if v, err := strconv.ParseFloat(value, 64); err == nil {
		return v
	}

	if v, err := strconv.ParseBool(value); err == nil {
		return v
	}

	return value
}

// Criterions resolves the statement conditions against the bound
// parameters, fails on an unbound parameter reference
func (s *Statement) Criterions(params map[string]interface{}) ([]meta.Criterion, error) {
	var criterions []meta.Criterion
	for _, cond := range s.Conditions {
		value := cond.Value
		if cond.Param != "" {
			bound, ok := params[cond.Param]
			if !ok {
				return nil, fmt.Errorf("%w: unbound parameter %q",
					meta.ErrInvalidArgument,
					cond.Param)
			}
			value = bound
		}

		criterions = append(criterions, meta.Criterion{
			Property: cond.Property,
			Op:       cond.Op,
			Value:    value,
		})
	}

	return criterions, nil
}
