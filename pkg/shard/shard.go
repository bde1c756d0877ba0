package shard

import (
	"fmt"
	"sort"
	"strings"

	"shards.io/shards/pkg/backend"
	"shards.io/shards/pkg/meta"
)

// Shard owns exactly one lazily-created backend session, the backend
// criteria/query objects realized against it, and the deferred events
// still pending for each of those. The shard id set is immutable after
// construction and alone defines shard identity.
//
// A Shard is not safe for concurrent mutation, the lazy establishment
// protocol requires one logical operation in flight per shard at a time.
// Different shards are fully independent.
type Shard struct {
	shardIDs    []meta.ShardID
	key         string
	factory     backend.SessionFactory
	interceptor backend.Interceptor

	session backend.Session

	openSessionEvents []OpenSessionEvent
	criteriaByID      map[CriteriaID]backend.Criteria
	queryByID         map[QueryID]backend.Query
	criteriaEvents    map[CriteriaID][]CriteriaEvent
	queryEvents       map[QueryID][]QueryEvent
}

// NewShard returns a shard owning the given virtual shard ids, opening
// its session from factory on first use. The interceptor can be nil.
func NewShard(shardIDs []meta.ShardID, factory backend.SessionFactory, interceptor backend.Interceptor) (*Shard, error) {
	if len(shardIDs) == 0 || factory == nil {
		return nil, meta.ErrInvalidArgument
	}

	ids := make([]meta.ShardID, 0, len(shardIDs))
	seen := make(map[meta.ShardID]struct{}, len(shardIDs))
	for _, id := range shardIDs {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i] < ids[j]
	})

	return &Shard{
		shardIDs:       ids,
		key:            shardKey(ids),
		factory:        factory,
		interceptor:    interceptor,
		criteriaByID:   make(map[CriteriaID]backend.Criteria),
		queryByID:      make(map[QueryID]backend.Query),
		criteriaEvents: make(map[CriteriaID][]CriteriaEvent),
		queryEvents:    make(map[QueryID][]QueryEvent),
	}, nil
}

func shardKey(ids []meta.ShardID) string {
	values := make([]string, 0, len(ids))
	for _, id := range ids {
		values = append(values, fmt.Sprintf("%d", id))
	}

	return strings.Join(values, ",")
}

// ShardIDs returns the virtual shard ids mapped to this shard
func (s *Shard) ShardIDs() []meta.ShardID {
	return s.shardIDs
}

// Key returns the canonical identity of the shard, defined by its
// shard id set only. Shards are used as map keys before their sessions
// exist, so identity must not depend on the session.
func (s *Shard) Key() string {
	return s.key
}

// Equal returns true if the other shard owns the same shard id set
func (s *Shard) Equal(other *Shard) bool {
	return other != nil && s.key == other.key
}

// Session returns the session, nil until the first EstablishSession
func (s *Shard) Session() backend.Session {
	return s.session
}

// AddOpenSessionEvent appends the event to the session event queue. If
// the session is already established the event fires immediately,
// preserving ordering relative to the already-fired events.
func (s *Shard) AddOpenSessionEvent(event OpenSessionEvent) error {
	if event == nil {
		return meta.ErrInvalidArgument
	}

	if s.session != nil {
		event.OnOpenSession(s.session)
		return nil
	}

	s.openSessionEvents = append(s.openSessionEvents, event)
	return nil
}

// EstablishSession returns the session, creating it on first call and
// replaying every queued session event in FIFO order exactly once.
// Establishment failures propagate unchanged and the shard must be
// discarded, not retried.
func (s *Shard) EstablishSession() (backend.Session, error) {
	if s.session != nil {
		return s.session, nil
	}

	var session backend.Session
	var err error
	if s.interceptor == nil {
		session, err = s.factory.OpenSession()
	} else {
		session, err = s.factory.OpenSessionWithInterceptor(s.interceptor)
	}
	if err != nil {
		return nil, err
	}

	// record before replay, events may establish recursively
	s.session = session
	for i := 0; i < len(s.openSessionEvents); i++ {
		s.openSessionEvents[i].OnOpenSession(session)
	}
	s.openSessionEvents = nil

	return session, nil
}

// CriteriaByID returns the realized criteria of the handle, nil if the
// handle has not been established on this shard
func (s *Shard) CriteriaByID(id CriteriaID) backend.Criteria {
	return s.criteriaByID[id]
}

// AddCriteriaEvent appends the event to the handle's queue, firing
// immediately if the handle is already realized
func (s *Shard) AddCriteriaEvent(id CriteriaID, event CriteriaEvent) error {
	if event == nil {
		return meta.ErrInvalidArgument
	}

	if criteria, ok := s.criteriaByID[id]; ok {
		event.OnEvent(criteria)
		return nil
	}

	s.criteriaEvents[id] = append(s.criteriaEvents[id], event)
	return nil
}

// EstablishCriteria returns the handle's criteria, creating it on first
// call for the handle and replaying that handle's queued events in FIFO
// order exactly once. The criteria is recorded in the handle map before
// any event fires so that re-entrant lookups during replay succeed.
func (s *Shard) EstablishCriteria(id CriteriaID, factory backend.CriteriaFactory) (backend.Criteria, error) {
	if criteria, ok := s.criteriaByID[id]; ok {
		return criteria, nil
	}

	if factory == nil {
		return nil, meta.ErrInvalidArgument
	}

	session, err := s.EstablishSession()
	if err != nil {
		return nil, err
	}

	criteria, err := factory.CreateCriteria(session)
	if err != nil {
		return nil, err
	}

	// map write must precede replay, events are allowed to look the
	// criteria up by handle and to queue further events for it
	s.criteriaByID[id] = criteria
	for i := 0; i < len(s.criteriaEvents[id]); i++ {
		s.criteriaEvents[id][i].OnEvent(criteria)
	}
	delete(s.criteriaEvents, id)

	return criteria, nil
}

// QueryByID returns the realized query of the handle, nil if the handle
// has not been established on this shard
func (s *Shard) QueryByID(id QueryID) backend.Query {
	return s.queryByID[id]
}

// AddQueryEvent appends the event to the handle's queue, firing
// immediately if the handle is already realized
func (s *Shard) AddQueryEvent(id QueryID, event QueryEvent) error {
	if event == nil {
		return meta.ErrInvalidArgument
	}

	if query, ok := s.queryByID[id]; ok {
		event.OnEvent(query)
		return nil
	}

	s.queryEvents[id] = append(s.queryEvents[id], event)
	return nil
}

// EstablishQuery returns the handle's query, creating it on first call
// with the construction method selected by raw, and replaying that
// handle's queued events in FIFO order exactly once
func (s *Shard) EstablishQuery(id QueryID, factory backend.QueryFactory, raw bool) (backend.Query, error) {
	if query, ok := s.queryByID[id]; ok {
		return query, nil
	}

	if factory == nil {
		return nil, meta.ErrInvalidArgument
	}

	session, err := s.EstablishSession()
	if err != nil {
		return nil, err
	}

	var query backend.Query
	if raw {
		query, err = factory.CreateSQLQuery(session)
	} else {
		query, err = factory.CreateQuery(session)
	}
	if err != nil {
		return nil, err
	}

	s.queryByID[id] = query
	for i := 0; i < len(s.queryEvents[id]); i++ {
		s.queryEvents[id][i].OnEvent(query)
	}
	delete(s.queryEvents, id)

	return query, nil
}

// List executes the handle's established criteria
func (s *Shard) List(id CriteriaID) ([]interface{}, error) {
	criteria, ok := s.criteriaByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: criteria %d not established",
			meta.ErrInvalidArgument,
			id)
	}

	return criteria.List()
}

// UniqueResult executes the handle's established criteria, returning
// the single row
func (s *Shard) UniqueResult(id CriteriaID) (interface{}, error) {
	criteria, ok := s.criteriaByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: criteria %d not established",
			meta.ErrInvalidArgument,
			id)
	}

	return criteria.UniqueResult()
}

// ListQuery executes the handle's established query
func (s *Shard) ListQuery(id QueryID) ([]interface{}, error) {
	query, ok := s.queryByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: query %d not established",
			meta.ErrInvalidArgument,
			id)
	}

	return query.List()
}

// ExecuteUpdate executes the handle's established mutating query
func (s *Shard) ExecuteUpdate(id QueryID) (int, error) {
	query, ok := s.queryByID[id]
	if !ok {
		return 0, fmt.Errorf("%w: query %d not established",
			meta.ErrInvalidArgument,
			id)
	}

	return query.ExecuteUpdate()
}

// Close closes the established session, a shard with no session closes
// cleanly
func (s *Shard) Close() error {
	if s.session == nil {
		return nil
	}

	return s.session.Close()
}
