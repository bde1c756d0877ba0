package shard

import (
	"shards.io/shards/pkg/backend"
	"shards.io/shards/pkg/meta"
)

// CriteriaID the handle of a criteria pending against shards, valid
// before the backend criteria object exists
type CriteriaID uint64

// QueryID the handle of a query pending against shards, valid before
// the backend query object exists
type QueryID uint64

// OpenSessionEvent a deferred action replayed exactly once when the
// shard's session is first established
type OpenSessionEvent interface {
	OnOpenSession(session backend.Session)
}

// CriteriaEvent a deferred action replayed exactly once when the
// handle's backend criteria is first established
type CriteriaEvent interface {
	OnEvent(criteria backend.Criteria)
}

// QueryEvent a deferred action replayed exactly once when the handle's
// backend query is first established
type QueryEvent interface {
	OnEvent(query backend.Query)
}

// OpenSessionEventFunc adapts a function to an OpenSessionEvent
type OpenSessionEventFunc func(session backend.Session)

// OnOpenSession calls the function
func (f OpenSessionEventFunc) OnOpenSession(session backend.Session) {
	f(session)
}

// CriteriaEventFunc adapts a function to a CriteriaEvent
type CriteriaEventFunc func(criteria backend.Criteria)

// OnEvent calls the function
func (f CriteriaEventFunc) OnEvent(criteria backend.Criteria) {
	f(criteria)
}

// QueryEventFunc adapts a function to a QueryEvent
type QueryEventFunc func(query backend.Query)

// OnEvent calls the function
func (f QueryEventFunc) OnEvent(query backend.Query) {
	f(query)
}

// SetReadOnlyOpenSessionEvent sets the entity's read-only flag once the
// session is opened
type SetReadOnlyOpenSessionEvent struct {
	Entity   interface{}
	ReadOnly bool
}

// OnOpenSession sets the read-only flag
func (e SetReadOnlyOpenSessionEvent) OnOpenSession(session backend.Session) {
	session.SetReadOnly(e.Entity, e.ReadOnly)
}

// AddCriterionEvent adds a criterion to the criteria once it exists
type AddCriterionEvent struct {
	Criterion meta.Criterion
}

// OnEvent adds the criterion
func (e AddCriterionEvent) OnEvent(criteria backend.Criteria) {
	criteria.Add(e.Criterion)
}

// AddOrderEvent adds an ordering to the criteria once it exists
type AddOrderEvent struct {
	Order meta.Order
}

// OnEvent adds the ordering
func (e AddOrderEvent) OnEvent(criteria backend.Criteria) {
	criteria.AddOrder(e.Order)
}

// SetProjectionEvent sets the projection on the criteria once it exists
type SetProjectionEvent struct {
	Projection meta.Projection
}

// OnEvent sets the projection
func (e SetProjectionEvent) OnEvent(criteria backend.Criteria) {
	criteria.SetProjection(e.Projection)
}

// SetFirstResultEvent sets the first-result offset on the criteria once
// it exists
type SetFirstResultEvent struct {
	First int
}

// OnEvent sets the first-result offset
func (e SetFirstResultEvent) OnEvent(criteria backend.Criteria) {
	criteria.SetFirstResult(e.First)
}

// SetMaxResultsEvent sets the max-results count on the criteria once it
// exists
type SetMaxResultsEvent struct {
	Max int
}

// OnEvent sets the max-results count
func (e SetMaxResultsEvent) OnEvent(criteria backend.Criteria) {
	criteria.SetMaxResults(e.Max)
}

// CreateSubCriteriaEvent creates a sub-criteria once the parent criteria
// exists, notifying OnCreate with the created sub-criteria
type CreateSubCriteriaEvent struct {
	Path     string
	OnCreate func(criteria backend.Criteria)
}

// OnEvent creates the sub-criteria
func (e CreateSubCriteriaEvent) OnEvent(criteria backend.Criteria) {
	sub := criteria.CreateSubCriteria(e.Path)
	if e.OnCreate != nil {
		e.OnCreate(sub)
	}
}

// SetParameterEvent binds a named parameter on the query once it exists
type SetParameterEvent struct {
	Name  string
	Value interface{}
}

// OnEvent binds the parameter
func (e SetParameterEvent) OnEvent(query backend.Query) {
	query.SetParameter(e.Name, e.Value)
}
