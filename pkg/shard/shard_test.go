package shard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
	"shards.io/shards/pkg/backend"
	"shards.io/shards/pkg/backend/mem"
	"shards.io/shards/pkg/meta"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingFactory struct {
	factory *mem.Factory
	opened  int
	failing bool
}

func newCountingFactory() *countingFactory {
	return &countingFactory{
		factory: mem.NewFactory(),
	}
}

func (f *countingFactory) OpenSession() (backend.Session, error) {
	if f.failing {
		return nil, errors.New("backend down")
	}

	f.opened++
	return f.factory.OpenSession()
}

func (f *countingFactory) OpenSessionWithInterceptor(interceptor backend.Interceptor) (backend.Session, error) {
	if f.failing {
		return nil, errors.New("backend down")
	}

	f.opened++
	return f.factory.OpenSessionWithInterceptor(interceptor)
}

func (f *countingFactory) Close() error {
	return f.factory.Close()
}

func TestNewShardValidation(t *testing.T) {
	_, err := NewShard(nil, newCountingFactory(), nil)
	assert.Equal(t, meta.ErrInvalidArgument, err, "check shard failed")

	_, err = NewShard([]meta.ShardID{1}, nil, nil)
	assert.Equal(t, meta.ErrInvalidArgument, err, "check shard failed")
}

func TestEstablishSessionReplaysInOrderExactlyOnce(t *testing.T) {
	f := newCountingFactory()
	s, err := NewShard([]meta.ShardID{1}, f, nil)
	assert.Nilf(t, err, "check shard failed with %+v", err)
	assert.Nil(t, s.Session(), "check shard failed")

	var fired []string
	for _, name := range []string{"e1", "e2", "e3"} {
		event := name
		err = s.AddOpenSessionEvent(OpenSessionEventFunc(func(backend.Session) {
			fired = append(fired, event)
		}))
		assert.Nilf(t, err, "check shard failed with %+v", err)
	}

	session, err := s.EstablishSession()
	assert.Nilf(t, err, "check shard failed with %+v", err)
	assert.Equal(t, []string{"e1", "e2", "e3"}, fired, "check shard failed")

	again, err := s.EstablishSession()
	assert.Nilf(t, err, "check shard failed with %+v", err)
	assert.Equal(t, session, again, "check shard failed")
	assert.Equal(t, []string{"e1", "e2", "e3"}, fired, "check shard failed")
	assert.Equal(t, 1, f.opened, "check shard failed")
}

func TestAddOpenSessionEventNil(t *testing.T) {
	s, err := NewShard([]meta.ShardID{1}, newCountingFactory(), nil)
	assert.Nilf(t, err, "check shard failed with %+v", err)

	err = s.AddOpenSessionEvent(nil)
	assert.Equal(t, meta.ErrInvalidArgument, err, "check shard failed")
}

func TestAddOpenSessionEventAfterEstablish(t *testing.T) {
	s, err := NewShard([]meta.ShardID{1}, newCountingFactory(), nil)
	assert.Nilf(t, err, "check shard failed with %+v", err)

	_, err = s.EstablishSession()
	assert.Nilf(t, err, "check shard failed with %+v", err)

	fired := false
	err = s.AddOpenSessionEvent(OpenSessionEventFunc(func(backend.Session) {
		fired = true
	}))
	assert.Nilf(t, err, "check shard failed with %+v", err)
	assert.True(t, fired, "check shard failed")
}

func TestEstablishSessionFailure(t *testing.T) {
	f := newCountingFactory()
	f.failing = true
	s, err := NewShard([]meta.ShardID{1}, f, nil)
	assert.Nilf(t, err, "check shard failed with %+v", err)

	_, err = s.EstablishSession()
	assert.NotNil(t, err, "check shard failed")
	assert.Nil(t, s.Session(), "check shard failed")
}

func TestEstablishCriteriaIdempotent(t *testing.T) {
	s, err := NewShard([]meta.ShardID{1}, newCountingFactory(), nil)
	assert.Nilf(t, err, "check shard failed with %+v", err)

	id := CriteriaID(7)
	fired := 0
	err = s.AddCriteriaEvent(id, CriteriaEventFunc(func(backend.Criteria) {
		fired++
	}))
	assert.Nilf(t, err, "check shard failed with %+v", err)

	criteria, err := s.EstablishCriteria(id, backend.NewCriteriaFactory("Account"))
	assert.Nilf(t, err, "check shard failed with %+v", err)
	assert.Equal(t, 1, fired, "check shard failed")

	again, err := s.EstablishCriteria(id, backend.NewCriteriaFactory("Account"))
	assert.Nilf(t, err, "check shard failed with %+v", err)
	assert.Equal(t, criteria, again, "check shard failed")
	assert.Equal(t, 1, fired, "check shard failed")
}

func TestCriteriaEventReentrancy(t *testing.T) {
	s, err := NewShard([]meta.ShardID{1}, newCountingFactory(), nil)
	assert.Nilf(t, err, "check shard failed with %+v", err)

	id := CriteriaID(7)
	var seen backend.Criteria
	nested := false

	// the first event looks the criteria up by handle and queues a
	// further event for the same handle, both must fire during the
	// single establishment
	err = s.AddCriteriaEvent(id, CriteriaEventFunc(func(backend.Criteria) {
		seen = s.CriteriaByID(id)
		s.AddCriteriaEvent(id, CriteriaEventFunc(func(backend.Criteria) {
			nested = true
		}))
	}))
	assert.Nilf(t, err, "check shard failed with %+v", err)

	criteria, err := s.EstablishCriteria(id, backend.NewCriteriaFactory("Account"))
	assert.Nilf(t, err, "check shard failed with %+v", err)
	assert.Equal(t, criteria, seen, "check shard failed")
	assert.True(t, nested, "check shard failed")
}

func TestAddCriteriaEventAfterEstablish(t *testing.T) {
	s, err := NewShard([]meta.ShardID{1}, newCountingFactory(), nil)
	assert.Nilf(t, err, "check shard failed with %+v", err)

	id := CriteriaID(7)
	_, err = s.EstablishCriteria(id, backend.NewCriteriaFactory("Account"))
	assert.Nilf(t, err, "check shard failed with %+v", err)

	fired := false
	err = s.AddCriteriaEvent(id, CriteriaEventFunc(func(backend.Criteria) {
		fired = true
	}))
	assert.Nilf(t, err, "check shard failed with %+v", err)
	assert.True(t, fired, "check shard failed")
}

type recordingQueryFactory struct {
	plain int
	raw   int
}

func (f *recordingQueryFactory) CreateQuery(session backend.Session) (backend.Query, error) {
	f.plain++
	return session.CreateQuery("from Account")
}

func (f *recordingQueryFactory) CreateSQLQuery(session backend.Session) (backend.Query, error) {
	f.raw++
	return session.CreateSQLQuery("from Account")
}

func TestEstablishQueryKindSelection(t *testing.T) {
	s, err := NewShard([]meta.ShardID{1}, newCountingFactory(), nil)
	assert.Nilf(t, err, "check shard failed with %+v", err)

	f := &recordingQueryFactory{}
	_, err = s.EstablishQuery(QueryID(1), f, false)
	assert.Nilf(t, err, "check shard failed with %+v", err)
	assert.Equal(t, 1, f.plain, "check shard failed")
	assert.Equal(t, 0, f.raw, "check shard failed")

	_, err = s.EstablishQuery(QueryID(2), f, true)
	assert.Nilf(t, err, "check shard failed with %+v", err)
	assert.Equal(t, 1, f.raw, "check shard failed")
}

func TestQueryEventsReplayOnce(t *testing.T) {
	s, err := NewShard([]meta.ShardID{1}, newCountingFactory(), nil)
	assert.Nilf(t, err, "check shard failed with %+v", err)

	id := QueryID(3)
	fired := 0
	err = s.AddQueryEvent(id, SetParameterEvent{Name: "min", Value: 1})
	assert.Nilf(t, err, "check shard failed with %+v", err)
	err = s.AddQueryEvent(id, QueryEventFunc(func(backend.Query) {
		fired++
	}))
	assert.Nilf(t, err, "check shard failed with %+v", err)

	_, err = s.EstablishQuery(id, &recordingQueryFactory{}, false)
	assert.Nilf(t, err, "check shard failed with %+v", err)
	assert.Equal(t, 1, fired, "check shard failed")

	_, err = s.EstablishQuery(id, &recordingQueryFactory{}, false)
	assert.Nilf(t, err, "check shard failed with %+v", err)
	assert.Equal(t, 1, fired, "check shard failed")
}

func TestShardEquality(t *testing.T) {
	f := newCountingFactory()
	s1, err := NewShard([]meta.ShardID{2, 1}, f, nil)
	assert.Nilf(t, err, "check shard failed with %+v", err)
	s2, err := NewShard([]meta.ShardID{1, 2}, newCountingFactory(), nil)
	assert.Nilf(t, err, "check shard failed with %+v", err)
	s3, err := NewShard([]meta.ShardID{1, 3}, f, nil)
	assert.Nilf(t, err, "check shard failed with %+v", err)

	// identity is the shard id set, with or without a session
	_, err = s1.EstablishSession()
	assert.Nilf(t, err, "check shard failed with %+v", err)

	assert.True(t, s1.Equal(s2), "check shard failed")
	assert.Equal(t, s1.Key(), s2.Key(), "check shard failed")
	assert.False(t, s1.Equal(s3), "check shard failed")
}

func TestListRequiresEstablishedCriteria(t *testing.T) {
	s, err := NewShard([]meta.ShardID{1}, newCountingFactory(), nil)
	assert.Nilf(t, err, "check shard failed with %+v", err)

	_, err = s.List(CriteriaID(9))
	assert.NotNil(t, err, "check shard failed")
}
