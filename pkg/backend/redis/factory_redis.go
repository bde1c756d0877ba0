package redis

import (
	"fmt"
	"reflect"

	"github.com/fagongzi/util/json"
	"github.com/garyburd/redigo/redis"
	"shards.io/shards/pkg/backend"
	"shards.io/shards/pkg/meta"
)

// Factory a session factory storing entities as JSON in redis hashes,
// one hash per entity kind
type Factory struct {
	opts options
	pool *Pool
}

// NewFactory returns a session factory over redis with opts
func NewFactory(opts ...Option) *Factory {
	f := &Factory{}
	for _, opt := range opts {
		opt(&f.opts)
	}
	f.opts.adjust()
	f.pool = NewPool(opts...)

	return f
}

// OpenSession returns a new session
func (f *Factory) OpenSession() (backend.Session, error) {
	return &session{
		opts:     f.opts,
		pool:     f.pool,
		readOnly: make(map[string]bool),
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

// Close release the underlying pools
func (f *Factory) Close() error {
	return f.pool.Close()
}

type session struct {
	opts     options
	pool     *Pool
	readOnly map[string]bool
}

func (s *session) Save(entity interface{}) error {
	if entity == nil {
		return meta.ErrInvalidArgument
	}

	kind, err := entityKind(entity)
	if err != nil {
		return err
	}

	id := meta.PropertyValue(entity, "id")
	if id == nil {
		return fmt.Errorf("%w: entity without id property",
			meta.ErrInvalidArgument)
	}

	field := fmt.Sprintf("%v", id)
	if s.readOnly[kind+"/"+field] {
		return fmt.Errorf("%w: save of a read-only entity",
			meta.ErrInvalidArgument)
	}

	key := entityKey(s.opts.keyPrefix, kind)
	return s.doWithRetry(func(conn redis.Conn) error {
		_, err := conn.Do("HSET", key, field, json.MustMarshal(entity))
		return err
	})
}

func (s *session) SetReadOnly(entity interface{}, readOnly bool) {
	kind, err := entityKind(entity)
	if err != nil {
		return
	}

	id := meta.PropertyValue(entity, "id")
	if id == nil {
		return
	}

	s.readOnly[kind+"/"+fmt.Sprintf("%v", id)] = readOnly
}

func (s *session) CreateCriteria(kind string) (backend.Criteria, error) {
	return backend.NewEvalCriteria(func() ([]interface{}, error) {
		return s.loadKind(kind)
	}), nil
}

func (s *session) CreateQuery(stmt string) (backend.Query, error) {
	parsed, err := backend.ParseStatement(stmt)
	if err != nil {
		return nil, err
	}

	return backend.NewEvalQuery(parsed, s.loadKind, s.removeMatched), nil
}

func (s *session) CreateSQLQuery(stmt string) (backend.Query, error) {
	// the reference backend has a single statement grammar
	return s.CreateQuery(stmt)
}

func (s *session) Close() error {
	return nil
}

// loadKind returns all stored entities of the kind, decoded as generic
// maps so that property paths resolve case-insensitively
func (s *session) loadKind(kind string) ([]interface{}, error) {
	key := entityKey(s.opts.keyPrefix, kind)

	var entities []interface{}
	err := s.doWithRetry(func(conn redis.Conn) error {
		values, err := redis.StringMap(conn.Do("HGETALL", key))
		if err != nil {
			return err
		}

		entities = entities[:0]
		for _, value := range values {
			entity := make(map[string]interface{})
			json.MustUnmarshal(&entity, []byte(value))
			entities = append(entities, entity)
		}

		return nil
	})

	return entities, err
}

func (s *session) removeMatched(kind string, entities []interface{}) (int, error) {
	if len(entities) == 0 {
		return 0, nil
	}

	key := entityKey(s.opts.keyPrefix, kind)
	args := []interface{}{key}
	for _, entity := range entities {
		id := meta.PropertyValue(entity, "id")
		if id == nil {
			return 0, fmt.Errorf("%w: stored entity without id property",
				meta.ErrMalformedPartialResult)
		}

		args = append(args, fmt.Sprintf("%v", id))
	}

	removed := 0
	err := s.doWithRetry(func(conn redis.Conn) error {
		n, err := redis.Int(conn.Do("HDEL", args...))
		removed = n
		return err
	})

	return removed, err
}

func (s *session) doWithRetry(fn func(redis.Conn) error) error {
	times := 0
	for {
		conn := s.pool.Get()
		err := fn(conn)
		conn.Close()
		if err == nil {
			return nil
		}

		times++
		if times >= s.opts.maxRetryTimes {
			return err
		}
	}
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
