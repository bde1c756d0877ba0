package backend

import (
	"fmt"

	"shards.io/shards/pkg/meta"
)

// EvalCriteria a Criteria over a snapshot loader, shared by the
// reference backends. The loader returns the shard's entities of the
// criteria kind, evaluation happens in process.
type EvalCriteria struct {
	eval *Evaluation
	load func() ([]interface{}, error)
}

// NewEvalCriteria returns a criteria over the snapshot loader
func NewEvalCriteria(load func() ([]interface{}, error)) *EvalCriteria {
	return &EvalCriteria{
		eval: NewEvaluation(),
		load: load,
	}
}

// Add adds a restriction
func (c *EvalCriteria) Add(criterion meta.Criterion) {
	c.eval.Criterions = append(c.eval.Criterions, criterion)
}

// AddOrder adds an ordering
func (c *EvalCriteria) AddOrder(order meta.Order) {
	c.eval.Orders = append(c.eval.Orders, order)
}

// SetProjection sets the projection
func (c *EvalCriteria) SetProjection(projection meta.Projection) {
	c.eval.Projection = projection
}

// SetFirstResult sets the offset of the first returned row
func (c *EvalCriteria) SetFirstResult(first int) {
	c.eval.FirstResult = first
}

// SetMaxResults sets the max count of returned rows
func (c *EvalCriteria) SetMaxResults(max int) {
	c.eval.MaxResults = max
}

// CreateSubCriteria returns a criteria scoped to the nested path
func (c *EvalCriteria) CreateSubCriteria(path string) Criteria {
	return &subCriteria{
		parent: c,
		path:   path,
	}
}

// List executes the criteria and returns the matched rows
func (c *EvalCriteria) List() ([]interface{}, error) {
	entities, err := c.load()
	if err != nil {
		return nil, err
	}

	return c.eval.Apply(entities)
}

// UniqueResult executes the criteria and returns the single row
func (c *EvalCriteria) UniqueResult() (interface{}, error) {
	rows, err := c.List()
	if err != nil {
		return nil, err
	}

	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return rows[0], nil
	}

	return nil, fmt.Errorf("unique result expected, got %d rows", len(rows))
}

type subCriteria struct {
	parent Criteria
	path   string
}

func (c *subCriteria) Add(criterion meta.Criterion) {
	criterion.Property = c.path + "." + criterion.Property
	c.parent.Add(criterion)
}

func (c *subCriteria) AddOrder(order meta.Order) {
	order.Property = c.path + "." + order.Property
	c.parent.AddOrder(order)
}

func (c *subCriteria) SetProjection(projection meta.Projection) {
	if projection.Property != "" {
		projection.Property = c.path + "." + projection.Property
	}
	c.parent.SetProjection(projection)
}

func (c *subCriteria) SetFirstResult(first int) {
	c.parent.SetFirstResult(first)
}

func (c *subCriteria) SetMaxResults(max int) {
	c.parent.SetMaxResults(max)
}

func (c *subCriteria) CreateSubCriteria(path string) Criteria {
	return &subCriteria{
		parent: c.parent,
		path:   c.path + "." + path,
	}
}

func (c *subCriteria) List() ([]interface{}, error) {
	return c.parent.List()
}

func (c *subCriteria) UniqueResult() (interface{}, error) {
	return c.parent.UniqueResult()
}

// EvalQuery a Query over a snapshot loader and a removal callback,
// shared by the reference backends
type EvalQuery struct {
	stmt   *Statement
	params map[string]interface{}
	load   func(kind string) ([]interface{}, error)
	remove func(kind string, entities []interface{}) (int, error)
}

// NewEvalQuery returns a query over the loader and removal callback
func NewEvalQuery(
	stmt *Statement,
	load func(kind string) ([]interface{}, error),
	remove func(kind string, entities []interface{}) (int, error)) *EvalQuery {

	return &EvalQuery{
		stmt:   stmt,
		params: make(map[string]interface{}),
		load:   load,
		remove: remove,
	}
}

// SetParameter binds a named parameter
func (q *EvalQuery) SetParameter(name string, value interface{}) {
	q.params[name] = value
}

// List executes the query and returns the matched rows
func (q *EvalQuery) List() ([]interface{}, error) {
	if q.stmt.Delete {
		return nil, fmt.Errorf("%w: list on a delete statement",
			meta.ErrInvalidArgument)
	}

	return q.matched()
}

// ExecuteUpdate executes the delete statement, returns the count of
// removed rows
func (q *EvalQuery) ExecuteUpdate() (int, error) {
	if !q.stmt.Delete {
		return 0, fmt.Errorf("%w: execute update on a read statement",
			meta.ErrInvalidArgument)
	}

	entities, err := q.matched()
	if err != nil {
		return 0, err
	}

	return q.remove(q.stmt.Kind, entities)
}

func (q *EvalQuery) matched() ([]interface{}, error) {
	criterions, err := q.stmt.Criterions(q.params)
	if err != nil {
		return nil, err
	}

	entities, err := q.load(q.stmt.Kind)
	if err != nil {
		return nil, err
	}

	eval := NewEvaluation()
	eval.Criterions = criterions
	return eval.Apply(entities)
}
