package mem

import (
	"fmt"
	"reflect"
	"sync"

	"shards.io/shards/pkg/backend"
	"shards.io/shards/pkg/meta"
)

// Store entity storage using memory, just for testing and as the
// reference backend implementation. Entities are grouped by kind.
type Store struct {
	lock sync.RWMutex

	entities map[string][]interface{}
}

// NewStore returns an empty memory store
func NewStore() *Store {
	return &Store{
		entities: make(map[string][]interface{}),
	}
}

// Put puts the entity into the store
func (s *Store) Put(kind string, entity interface{}) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.entities[kind] = append(s.entities[kind], entity)
}

// Snapshot returns a copy of the stored entities of the kind
func (s *Store) Snapshot(kind string) ([]interface{}, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	values := s.entities[kind]
	snapshot := make([]interface{}, len(values))
	copy(snapshot, values)
	return snapshot, nil
}

// RemoveMatched removes the given entities of the kind, returns the
// count of removed entities
func (s *Store) RemoveMatched(kind string, entities []interface{}) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	removed := 0
	var kept []interface{}
	for _, value := range s.entities[kind] {
		matched := false
		for _, entity := range entities {
			if reflect.DeepEqual(value, entity) {
				matched = true
				break
			}
		}

		if matched {
			removed++
		} else {
			kept = append(kept, value)
		}
	}

	s.entities[kind] = kept
	return removed, nil
}

// Count returns the count of the stored entities of the kind
func (s *Store) Count(kind string) int {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return len(s.entities[kind])
}

// Factory a session factory over one memory store
type Factory struct {
	store *Store
}

// NewFactory returns a session factory over a fresh memory store
func NewFactory() *Factory {
	return &Factory{
		store: NewStore(),
	}
}

// NewFactoryWithStore returns a session factory over the store
func NewFactoryWithStore(store *Store) *Factory {
	return &Factory{
		store: store,
	}
}

// Store returns the underlying store
func (f *Factory) Store() *Store {
	return f.store
}

// OpenSession returns a new session
func (f *Factory) OpenSession() (backend.Session, error) {
	return &session{
		store:    f.store,
		readOnly: make(map[uintptr]bool),
	}, nil
}

// OpenSessionWithInterceptor returns a new session, notifying the
// interceptor right after it is opened
func (f *Factory) OpenSessionWithInterceptor(interceptor backend.Interceptor) (backend.Session, error) {
	s, err := f.OpenSession()
	if err != nil {
		return nil, err
	}

	if interceptor != nil {
		interceptor.OnOpen(s)
	}

	return s, nil
}

// Close release the factory resources
func (f *Factory) Close() error {
	return nil
}

type session struct {
	store *Store

	// read-only tracking applies to pointer entities
	readOnly map[uintptr]bool
}

func (s *session) Save(entity interface{}) error {
	if entity == nil {
		return meta.ErrInvalidArgument
	}

	if ptr, ok := entityPtr(entity); ok && s.readOnly[ptr] {
		return fmt.Errorf("%w: save of a read-only entity",
			meta.ErrInvalidArgument)
	}

	kind, err := entityKind(entity)
	if err != nil {
		return err
	}

	s.store.Put(kind, entity)
	return nil
}

func (s *session) SetReadOnly(entity interface{}, readOnly bool) {
	if ptr, ok := entityPtr(entity); ok {
		s.readOnly[ptr] = readOnly
	}
}

func (s *session) CreateCriteria(kind string) (backend.Criteria, error) {
	return backend.NewEvalCriteria(func() ([]interface{}, error) {
		return s.store.Snapshot(kind)
	}), nil
}

func (s *session) CreateQuery(stmt string) (backend.Query, error) {
	parsed, err := backend.ParseStatement(stmt)
	if err != nil {
		return nil, err
	}

	return backend.NewEvalQuery(parsed, s.store.Snapshot, s.store.RemoveMatched), nil
}

func (s *session) CreateSQLQuery(stmt string) (backend.Query, error) {
	// the reference backend has a single statement grammar
	return s.CreateQuery(stmt)
}

func (s *session) Close() error {
	return nil
}

func entityKind(entity interface{}) (string, error) {
	t := reflect.TypeOf(entity)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct || t.Name() == "" {
		return "", fmt.Errorf("%w: entity must be a named struct, got %T",
			meta.ErrInvalidArgument,
			entity)
	}

	return t.Name(), nil
}

func entityPtr(entity interface{}) (uintptr, bool) {
	rv := reflect.ValueOf(entity)
	if rv.Kind() == reflect.Ptr {
		return rv.Pointer(), true
	}

	return 0, false
}
