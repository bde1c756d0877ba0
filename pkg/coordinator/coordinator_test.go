package coordinator

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"shards.io/shards/pkg/backend/mem"
	"shards.io/shards/pkg/meta"
	"shards.io/shards/pkg/shard"
	"shards.io/shards/pkg/strategy"
)

type Owner struct {
	Name string
}

type Account struct {
	Name    string
	Balance int
	Owner   *Owner
}

type scriptedSelection struct {
	ids  []meta.ShardID
	next int
}

func (s *scriptedSelection) SelectShardIDForNewObject(entity interface{}) (meta.ShardID, error) {
	id := s.ids[s.next%len(s.ids)]
	s.next++
	return id, nil
}

func newTestCluster(t *testing.T, n int, opts ...Option) (*Coordinator, []*mem.Store) {
	var shards []*shard.Shard
	var stores []*mem.Store
	for i := 0; i < n; i++ {
		store := mem.NewStore()
		s, err := shard.NewShard([]meta.ShardID{meta.ShardID(i + 1)},
			mem.NewFactoryWithStore(store), nil)
		assert.Nilf(t, err, "check cluster failed with %+v", err)

		shards = append(shards, s)
		stores = append(stores, store)
	}

	c, err := NewCoordinator(shards, opts...)
	assert.Nilf(t, err, "check cluster failed with %+v", err)
	return c, stores
}

func TestNewCoordinatorValidation(t *testing.T) {
	_, err := NewCoordinator(nil)
	assert.True(t, errors.Is(err, meta.ErrInvalidArgument), "check coordinator failed")

	s1, err := shard.NewShard([]meta.ShardID{1}, mem.NewFactory(), nil)
	assert.Nilf(t, err, "check coordinator failed with %+v", err)
	s2, err := shard.NewShard([]meta.ShardID{1}, mem.NewFactory(), nil)
	assert.Nilf(t, err, "check coordinator failed with %+v", err)

	_, err = NewCoordinator([]*shard.Shard{s1, s2})
	assert.True(t, errors.Is(err, meta.ErrConfiguration), "check coordinator failed")

	_, err = NewCoordinator([]*shard.Shard{s1}, WithVirtualShardMap(nil))
	assert.True(t, errors.Is(err, meta.ErrConfiguration), "check coordinator failed")

	_, err = NewCoordinator([]*shard.Shard{s1},
		WithVirtualShardMap(map[meta.ShardID]meta.ShardID{10: 99}))
	assert.True(t, errors.Is(err, meta.ErrConfiguration), "check coordinator failed")
}

func TestSaveSpreadsNewEntities(t *testing.T) {
	c, stores := newTestCluster(t, 2)
	defer c.Close()

	for i := 0; i < 4; i++ {
		_, err := c.Save(Account{Name: "a", Balance: i})
		assert.Nilf(t, err, "check save failed with %+v", err)
	}

	assert.Equal(t, 2, stores[0].Count("Account"), "check save failed")
	assert.Equal(t, 2, stores[1].Count("Account"), "check save failed")
}

func TestSaveKeepsAffinity(t *testing.T) {
	c, stores := newTestCluster(t, 2)
	defer c.Close()

	acct := &Account{Name: "a"}
	first, err := c.Save(acct)
	assert.Nilf(t, err, "check save failed with %+v", err)

	second, err := c.Save(acct)
	assert.Nilf(t, err, "check save failed with %+v", err)
	assert.Equal(t, first, second, "check save failed")

	total := stores[0].Count("Account") + stores[1].Count("Account")
	assert.Equal(t, 2, total, "check save failed")
	assert.True(t, stores[0].Count("Account") == 0 || stores[1].Count("Account") == 0,
		"check save failed")

	sid, ok := c.AffinityShardID(acct)
	assert.True(t, ok, "check save failed")
	assert.Equal(t, first, sid, "check save failed")
}

func TestSaveNilEntity(t *testing.T) {
	c, _ := newTestCluster(t, 1)
	defer c.Close()

	_, err := c.Save(nil)
	assert.True(t, errors.Is(err, meta.ErrInvalidArgument), "check save failed")
}

func TestVirtualShardRouting(t *testing.T) {
	c, stores := newTestCluster(t, 2,
		WithVirtualShardMap(map[meta.ShardID]meta.ShardID{10: 1, 11: 2}),
		WithSelectionStrategy(&scriptedSelection{ids: []meta.ShardID{11}}))
	defer c.Close()

	sid, err := c.Save(Account{Name: "a"})
	assert.Nilf(t, err, "check routing failed with %+v", err)
	assert.Equal(t, meta.ShardID(11), sid, "check routing failed")
	assert.Equal(t, 0, stores[0].Count("Account"), "check routing failed")
	assert.Equal(t, 1, stores[1].Count("Account"), "check routing failed")

	assert.Equal(t, []meta.ShardID{10}, c.VirtualShardIDs(1), "check routing failed")
	assert.Equal(t, []meta.ShardID{11}, c.VirtualShardIDs(2), "check routing failed")
}

func TestCrossShardCheck(t *testing.T) {
	selection := &scriptedSelection{ids: []meta.ShardID{1, 2}}
	c, _ := newTestCluster(t, 2,
		WithSelectionStrategy(selection),
		WithCrossShardCheck())
	defer c.Close()

	owner := &Owner{Name: "o"}
	_, err := c.Save(owner)
	assert.Nilf(t, err, "check integrity failed with %+v", err)

	// next selection targets shard 2, the owner lives on shard 1
	_, err = c.Save(&Account{Name: "a", Owner: owner})
	assert.True(t, errors.Is(err, meta.ErrCrossShardIntegrity), "check integrity failed")

	// co-located save passes
	selection.ids = []meta.ShardID{1}
	_, err = c.Save(&Account{Name: "b", Owner: owner})
	assert.Nilf(t, err, "check integrity failed with %+v", err)
}

func TestCrossShardCheckDisabled(t *testing.T) {
	selection := &scriptedSelection{ids: []meta.ShardID{1, 2}}
	c, _ := newTestCluster(t, 2, WithSelectionStrategy(selection))
	defer c.Close()

	owner := &Owner{Name: "o"}
	_, err := c.Save(owner)
	assert.Nilf(t, err, "check integrity failed with %+v", err)

	_, err = c.Save(&Account{Name: "a", Owner: owner})
	assert.Nilf(t, err, "check integrity failed with %+v", err)
}

func TestSetReadOnly(t *testing.T) {
	c, _ := newTestCluster(t, 2)
	defer c.Close()

	acct := &Account{Name: "a"}
	_, err := c.Save(acct)
	assert.Nilf(t, err, "check read-only failed with %+v", err)

	err = c.SetReadOnly(acct, true)
	assert.Nilf(t, err, "check read-only failed with %+v", err)

	_, err = c.Save(acct)
	assert.NotNil(t, err, "check read-only failed")

	err = c.SetReadOnly(&Account{Name: "unknown"}, true)
	assert.True(t, errors.Is(err, meta.ErrInvalidArgument), "check read-only failed")
}

func seedAccounts(stores []*mem.Store) {
	stores[0].Put("Account", Account{Name: "c", Balance: 3})
	stores[0].Put("Account", Account{Name: "a", Balance: 1})
	stores[1].Put("Account", Account{Name: "e", Balance: 5})
	stores[1].Put("Account", Account{Name: "b", Balance: 2})
}

func TestCriteriaOrderThenLimit(t *testing.T) {
	c, stores := newTestCluster(t, 2)
	defer c.Close()
	seedAccounts(stores)

	sc, err := c.NewCriteria("Account")
	assert.Nilf(t, err, "check criteria failed with %+v", err)
	assert.Nilf(t, sc.AddOrder(meta.Asc("balance")), "check criteria failed")
	assert.Nilf(t, sc.SetMaxResults(2), "check criteria failed")

	rows, err := sc.List()
	assert.Nilf(t, err, "check criteria failed with %+v", err)
	assert.Equal(t, 2, len(rows), "check criteria failed")
	assert.Equal(t, 1, rows[0].(Account).Balance, "check criteria failed")
	assert.Equal(t, 2, rows[1].(Account).Balance, "check criteria failed")
}

func TestCriteriaRestriction(t *testing.T) {
	c, stores := newTestCluster(t, 2)
	defer c.Close()
	seedAccounts(stores)

	sc, err := c.NewCriteria("Account")
	assert.Nilf(t, err, "check criteria failed with %+v", err)
	assert.Nilf(t, sc.Add(meta.Gt("balance", 2)), "check criteria failed")
	assert.Nilf(t, sc.AddOrder(meta.Desc("balance")), "check criteria failed")

	rows, err := sc.List()
	assert.Nilf(t, err, "check criteria failed with %+v", err)
	assert.Equal(t, 2, len(rows), "check criteria failed")
	assert.Equal(t, 5, rows[0].(Account).Balance, "check criteria failed")
	assert.Equal(t, 3, rows[1].(Account).Balance, "check criteria failed")
}

func TestCriteriaSum(t *testing.T) {
	c, stores := newTestCluster(t, 2)
	defer c.Close()
	seedAccounts(stores)

	sc, err := c.NewCriteria("Account")
	assert.Nilf(t, err, "check sum failed with %+v", err)
	assert.Nilf(t, sc.SetProjection(meta.Projection{
		Kind:     meta.ProjectionSum,
		Property: "balance",
	}), "check sum failed")

	rows, err := sc.List()
	assert.Nilf(t, err, "check sum failed with %+v", err)
	assert.Equal(t, 1, len(rows), "check sum failed")
	assert.Equal(t, 0, rows[0].(*big.Rat).Cmp(big.NewRat(11, 1)), "check sum failed")
}

func TestCriteriaAvg(t *testing.T) {
	c, stores := newTestCluster(t, 2)
	defer c.Close()
	stores[0].Put("Account", Account{Name: "a", Balance: 10})
	stores[0].Put("Account", Account{Name: "b", Balance: 20})
	stores[1].Put("Account", Account{Name: "c", Balance: 30})

	sc, err := c.NewCriteria("Account")
	assert.Nilf(t, err, "check avg failed with %+v", err)
	assert.Nilf(t, sc.SetProjection(meta.Projection{
		Kind:     meta.ProjectionAvg,
		Property: "balance",
	}), "check avg failed")

	rows, err := sc.List()
	assert.Nilf(t, err, "check avg failed with %+v", err)
	assert.Equal(t, []interface{}{int64(20)}, rows, "check avg failed")
}

func TestCriteriaAvgEmptyShardExcluded(t *testing.T) {
	c, stores := newTestCluster(t, 2)
	defer c.Close()
	stores[0].Put("Account", Account{Name: "a", Balance: 10})

	sc, err := c.NewCriteria("Account")
	assert.Nilf(t, err, "check avg failed with %+v", err)
	assert.Nilf(t, sc.SetProjection(meta.Projection{
		Kind:     meta.ProjectionAvg,
		Property: "balance",
	}), "check avg failed")

	rows, err := sc.List()
	assert.Nilf(t, err, "check avg failed with %+v", err)
	assert.Equal(t, []interface{}{int64(10)}, rows, "check avg failed")
}

func TestCriteriaRowCount(t *testing.T) {
	c, stores := newTestCluster(t, 2)
	defer c.Close()
	stores[0].Put("Account", Account{Name: "a", Balance: 1})
	stores[0].Put("Account", Account{Name: "b", Balance: 2})
	stores[1].Put("Account", Account{Name: "c", Balance: 3})

	sc, err := c.NewCriteria("Account")
	assert.Nilf(t, err, "check count failed with %+v", err)
	assert.Nilf(t, sc.SetProjection(meta.Projection{
		Kind: meta.ProjectionRowCount,
	}), "check count failed")

	rows, err := sc.List()
	assert.Nilf(t, err, "check count failed with %+v", err)
	assert.Equal(t, []interface{}{int64(3)}, rows, "check count failed")
}

func TestCriteriaMinMax(t *testing.T) {
	c, stores := newTestCluster(t, 2)
	defer c.Close()
	seedAccounts(stores)

	min, err := c.NewCriteria("Account")
	assert.Nilf(t, err, "check min failed with %+v", err)
	assert.Nilf(t, min.SetProjection(meta.Projection{
		Kind:     meta.ProjectionMin,
		Property: "balance",
	}), "check min failed")

	rows, err := min.List()
	assert.Nilf(t, err, "check min failed with %+v", err)
	assert.Equal(t, []interface{}{1}, rows, "check min failed")

	max, err := c.NewCriteria("Account")
	assert.Nilf(t, err, "check max failed with %+v", err)
	assert.Nilf(t, max.SetProjection(meta.Projection{
		Kind:     meta.ProjectionMax,
		Property: "balance",
	}), "check max failed")

	rows, err = max.List()
	assert.Nilf(t, err, "check max failed with %+v", err)
	assert.Equal(t, []interface{}{5}, rows, "check max failed")
}

func TestCriteriaUniqueResult(t *testing.T) {
	c, stores := newTestCluster(t, 2)
	defer c.Close()
	seedAccounts(stores)

	sc, err := c.NewCriteria("Account")
	assert.Nilf(t, err, "check unique failed with %+v", err)
	assert.Nilf(t, sc.Add(meta.Eq("name", "b")), "check unique failed")

	row, err := sc.UniqueResult()
	assert.Nilf(t, err, "check unique failed with %+v", err)
	assert.Equal(t, 2, row.(Account).Balance, "check unique failed")

	missing, err := c.NewCriteria("Account")
	assert.Nilf(t, err, "check unique failed with %+v", err)
	assert.Nilf(t, missing.Add(meta.Eq("name", "zz")), "check unique failed")

	row, err = missing.UniqueResult()
	assert.Nilf(t, err, "check unique failed with %+v", err)
	assert.Nil(t, row, "check unique failed")

	all, err := c.NewCriteria("Account")
	assert.Nilf(t, err, "check unique failed with %+v", err)
	_, err = all.UniqueResult()
	assert.NotNil(t, err, "check unique failed")
}

func TestCriteriaFirstResultBeyondSize(t *testing.T) {
	c, stores := newTestCluster(t, 2)
	defer c.Close()
	seedAccounts(stores)

	sc, err := c.NewCriteria("Account")
	assert.Nilf(t, err, "check offset failed with %+v", err)
	assert.Nilf(t, sc.AddOrder(meta.Asc("balance")), "check offset failed")
	assert.Nilf(t, sc.SetFirstResult(100), "check offset failed")

	rows, err := sc.List()
	assert.Nilf(t, err, "check offset failed with %+v", err)
	assert.Equal(t, 0, len(rows), "check offset failed")
}

func TestSubCriteriaOrder(t *testing.T) {
	c, stores := newTestCluster(t, 2)
	defer c.Close()
	stores[0].Put("Account", Account{Name: "a", Owner: &Owner{Name: "walter"}})
	stores[0].Put("Account", Account{Name: "b", Owner: &Owner{Name: "amy"}})
	stores[1].Put("Account", Account{Name: "c", Owner: &Owner{Name: "maria"}})

	sc, err := c.NewCriteria("Account")
	assert.Nilf(t, err, "check sub failed with %+v", err)

	sub := sc.CreateSubCriteria("owner")
	assert.Equal(t, "owner", sub.Path(), "check sub failed")
	assert.Nilf(t, sub.AddOrder(meta.Asc("name")), "check sub failed")

	rows, err := sc.List()
	assert.Nilf(t, err, "check sub failed with %+v", err)
	assert.Equal(t, 3, len(rows), "check sub failed")
	assert.Equal(t, "amy", rows[0].(Account).Owner.Name, "check sub failed")
	assert.Equal(t, "maria", rows[1].(Account).Owner.Name, "check sub failed")
	assert.Equal(t, "walter", rows[2].(Account).Owner.Name, "check sub failed")
}

func TestSubCriteriaRestriction(t *testing.T) {
	c, stores := newTestCluster(t, 2)
	defer c.Close()
	stores[0].Put("Account", Account{Name: "a", Owner: &Owner{Name: "walter"}})
	stores[1].Put("Account", Account{Name: "b", Owner: &Owner{Name: "amy"}})

	sc, err := c.NewCriteria("Account")
	assert.Nilf(t, err, "check sub failed with %+v", err)
	assert.Nilf(t, sc.CreateSubCriteria("owner").Add(meta.Eq("name", "amy")),
		"check sub failed")

	rows, err := sc.List()
	assert.Nilf(t, err, "check sub failed with %+v", err)
	assert.Equal(t, 1, len(rows), "check sub failed")
	assert.Equal(t, "b", rows[0].(Account).Name, "check sub failed")
}

func TestQueryParameterReplay(t *testing.T) {
	c, stores := newTestCluster(t, 2)
	defer c.Close()
	seedAccounts(stores)

	q, err := c.NewQuery("from Account where balance > :min")
	assert.Nilf(t, err, "check query failed with %+v", err)

	// bound before any backend query exists, replayed on establishment
	assert.Nilf(t, q.SetParameter("min", 2), "check query failed")

	rows, err := q.List()
	assert.Nilf(t, err, "check query failed with %+v", err)
	assert.Equal(t, 2, len(rows), "check query failed")
}

func TestExecuteUpdateSumsCounts(t *testing.T) {
	c, stores := newTestCluster(t, 2)
	defer c.Close()
	stores[0].Put("Account", Account{Name: "a", Balance: 1})
	stores[0].Put("Account", Account{Name: "b", Balance: 2})
	stores[1].Put("Account", Account{Name: "c", Balance: 1})

	q, err := c.NewQuery("delete from Account where balance = 1")
	assert.Nilf(t, err, "check update failed with %+v", err)

	n, err := q.ExecuteUpdate()
	assert.Nilf(t, err, "check update failed with %+v", err)
	assert.Equal(t, 2, n, "check update failed")
	assert.Equal(t, 1, stores[0].Count("Account"), "check update failed")
	assert.Equal(t, 0, stores[1].Count("Account"), "check update failed")
}

func TestParallelBroadcast(t *testing.T) {
	access := strategy.NewParallelShardAccessStrategy(strategy.WithWorkers(4))
	defer access.Stop()

	c, stores := newTestCluster(t, 4, WithAccessStrategy(access))
	defer c.Close()
	stores[0].Put("Account", Account{Name: "a", Balance: 4})
	stores[1].Put("Account", Account{Name: "b", Balance: 3})
	stores[2].Put("Account", Account{Name: "c", Balance: 2})
	stores[3].Put("Account", Account{Name: "d", Balance: 1})

	sc, err := c.NewCriteria("Account")
	assert.Nilf(t, err, "check parallel failed with %+v", err)
	assert.Nilf(t, sc.AddOrder(meta.Asc("balance")), "check parallel failed")

	rows, err := sc.List()
	assert.Nilf(t, err, "check parallel failed with %+v", err)
	assert.Equal(t, 4, len(rows), "check parallel failed")
	for i := 0; i < 4; i++ {
		assert.Equal(t, i+1, rows[i].(Account).Balance, "check parallel failed")
	}
}

func TestNewCriteriaEmptyKind(t *testing.T) {
	c, _ := newTestCluster(t, 1)
	defer c.Close()

	_, err := c.NewCriteria("")
	assert.True(t, errors.Is(err, meta.ErrInvalidArgument), "check criteria failed")

	_, err = c.NewQuery("")
	assert.True(t, errors.Is(err, meta.ErrInvalidArgument), "check criteria failed")
}
