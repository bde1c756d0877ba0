package backend

import (
	"shards.io/shards/pkg/meta"
)

// Interceptor receives a callback when a session is opened, captured at
// shard construction time and passed to the factory on first establishment
type Interceptor interface {
	// OnOpen called once, right after the session is opened
	OnOpen(session Session)
}

// Session a connection to the storage engine backing a single shard
type Session interface {
	// Save persists a new entity on this shard
	Save(entity interface{}) error
	// SetReadOnly marks the entity read-only on this session
	SetReadOnly(entity interface{}, readOnly bool)
	// CreateCriteria returns a criteria over entities of the kind
	CreateCriteria(kind string) (Criteria, error)
	// CreateQuery returns a query for the statement
	CreateQuery(stmt string) (Query, error)
	// CreateSQLQuery returns a raw-statement query
	CreateSQLQuery(stmt string) (Query, error)
	// Close release the session resources
	Close() error
}

// SessionFactory opens sessions against one physical shard
type SessionFactory interface {
	// OpenSession returns a new session
	OpenSession() (Session, error)
	// OpenSessionWithInterceptor returns a new session, notifying the
	// interceptor right after it is opened
	OpenSessionWithInterceptor(interceptor Interceptor) (Session, error)
	// Close release the factory resources
	Close() error
}

// Criteria a query-by-criteria over one shard
type Criteria interface {
	// Add adds a restriction
	Add(criterion meta.Criterion)
	// AddOrder adds an ordering
	AddOrder(order meta.Order)
	// SetProjection sets the projection
	SetProjection(projection meta.Projection)
	// SetFirstResult sets the offset of the first returned row
	SetFirstResult(first int)
	// SetMaxResults sets the max count of returned rows
	SetMaxResults(max int)
	// CreateSubCriteria returns a criteria scoped to the nested path,
	// restrictions added to it apply to the parent criteria
	CreateSubCriteria(path string) Criteria
	// List executes the criteria and returns the matched rows
	List() ([]interface{}, error)
	// UniqueResult executes the criteria and returns the single row,
	// nil if there is no match
	UniqueResult() (interface{}, error)
}

// Query a statement-based query over one shard
type Query interface {
	// SetParameter binds a named parameter
	SetParameter(name string, value interface{})
	// List executes the query and returns the matched rows
	List() ([]interface{}, error)
	// ExecuteUpdate executes the mutating query, returns the count of
	// affected rows
	ExecuteUpdate() (int, error)
}

// CriteriaFactory creates the backend criteria object once the shard's
// session exists
type CriteriaFactory interface {
	// CreateCriteria returns a criteria attached to the session
	CreateCriteria(session Session) (Criteria, error)
}

// QueryFactory creates the backend query object once the shard's
// session exists
type QueryFactory interface {
	// CreateQuery returns a query attached to the session
	CreateQuery(session Session) (Query, error)
	// CreateSQLQuery returns a raw-statement query attached to the session
	CreateSQLQuery(session Session) (Query, error)
}

type criteriaFactory struct {
	kind string
}

// NewCriteriaFactory returns a criteria factory for entities of the kind
func NewCriteriaFactory(kind string) CriteriaFactory {
	return &criteriaFactory{kind: kind}
}

func (f *criteriaFactory) CreateCriteria(session Session) (Criteria, error) {
	return session.CreateCriteria(f.kind)
}

type queryFactory struct {
	stmt string
}

// NewQueryFactory returns a query factory for the statement
func NewQueryFactory(stmt string) QueryFactory {
	return &queryFactory{stmt: stmt}
}

func (f *queryFactory) CreateQuery(session Session) (Query, error) {
	return session.CreateQuery(f.stmt)
}

func (f *queryFactory) CreateSQLQuery(session Session) (Query, error) {
	return session.CreateSQLQuery(f.stmt)
}
