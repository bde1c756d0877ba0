package meta

// CompareOp the comparison operator of a criterion
type CompareOp int

const (
	// OpEq equals
	OpEq = CompareOp(0)
	// OpNe not equals
	OpNe = CompareOp(1)
	// OpGt greater than
	OpGt = CompareOp(2)
	// OpGe greater than or equals
	OpGe = CompareOp(3)
	// OpLt less than
	OpLt = CompareOp(4)
	// OpLe less than or equals
	OpLe = CompareOp(5)
)

// Criterion a restriction on a queried property
type Criterion struct {
	Property string
	Op       CompareOp
	Value    interface{}
}

// Eq returns a equals criterion
func Eq(property string, value interface{}) Criterion {
	return Criterion{Property: property, Op: OpEq, Value: value}
}

// Ne returns a not-equals criterion
func Ne(property string, value interface{}) Criterion {
	return Criterion{Property: property, Op: OpNe, Value: value}
}

// Gt returns a greater-than criterion
func Gt(property string, value interface{}) Criterion {
	return Criterion{Property: property, Op: OpGt, Value: value}
}

// Ge returns a greater-than-or-equals criterion
func Ge(property string, value interface{}) Criterion {
	return Criterion{Property: property, Op: OpGe, Value: value}
}

// Lt returns a less-than criterion
func Lt(property string, value interface{}) Criterion {
	return Criterion{Property: property, Op: OpLt, Value: value}
}

// Le returns a less-than-or-equals criterion
func Le(property string, value interface{}) Criterion {
	return Criterion{Property: property, Op: OpLe, Value: value}
}

// Order an ordering on a queried property
type Order struct {
	Property  string
	Ascending bool
}

// Asc returns an ascending order on property
func Asc(property string) Order {
	return Order{Property: property, Ascending: true}
}

// Desc returns a descending order on property
func Desc(property string) Order {
	return Order{Property: property, Ascending: false}
}

// ProjectionKind the kind of a projection
type ProjectionKind int

const (
	// ProjectionNone no projection, entities are returned as-is
	ProjectionNone = ProjectionKind(0)
	// ProjectionRowCount count of matched rows
	ProjectionRowCount = ProjectionKind(1)
	// ProjectionSum sum of the projected property
	ProjectionSum = ProjectionKind(2)
	// ProjectionMin minimum of the projected property
	ProjectionMin = ProjectionKind(3)
	// ProjectionMax maximum of the projected property
	ProjectionMax = ProjectionKind(4)
	// ProjectionAvg average of the projected property, each shard
	// returns a [avg, count] pair row
	ProjectionAvg = ProjectionKind(5)
	// ProjectionDistinct distinct values of the projected property
	ProjectionDistinct = ProjectionKind(6)
	// ProjectionProperty plain values of the projected property
	ProjectionProperty = ProjectionKind(7)
)

// Projection a projection applied to a query or criteria
type Projection struct {
	Kind     ProjectionKind
	Property string
}

// IsAggregate returns true if the projection merges to a single row
func (p Projection) IsAggregate() bool {
	switch p.Kind {
	case ProjectionSum, ProjectionMin, ProjectionMax, ProjectionAvg, ProjectionRowCount:
		return true
	}

	return false
}

// Name returns the aggregate function name of the projection
func (p Projection) Name() string {
	switch p.Kind {
	case ProjectionRowCount:
		return "count"
	case ProjectionSum:
		return "sum"
	case ProjectionMin:
		return "min"
	case ProjectionMax:
		return "max"
	case ProjectionAvg:
		return "avg"
	case ProjectionDistinct:
		return "distinct"
	case ProjectionProperty:
		return "property"
	}

	return "none"
}
