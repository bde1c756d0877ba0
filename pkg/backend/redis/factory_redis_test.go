package redis

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"shards.io/shards/pkg/meta"
)

type Account struct {
	ID      uint64 `json:"id"`
	Balance int64  `json:"balance"`
}

func testFactory(t *testing.T) *Factory {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("set REDIS_ADDR to run redis backend tests")
	}

	f := NewFactory(WithProxies(addr), WithKeyPrefix("shards_test"))
	s, err := f.OpenSession()
	assert.Nilf(t, err, "check redis backend failed with %+v", err)

	conn := f.pool.Get()
	_, err = conn.Do("DEL", entityKey("shards_test", "Account"))
	conn.Close()
	assert.Nilf(t, err, "check redis backend failed with %+v", err)

	s.Close()
	return f
}

func TestSaveAndCriteriaFromRedis(t *testing.T) {
	f := testFactory(t)
	defer f.Close()

	s, err := f.OpenSession()
	assert.Nilf(t, err, "check redis backend failed with %+v", err)

	err = s.Save(Account{ID: 1, Balance: 10})
	assert.Nilf(t, err, "check redis backend failed with %+v", err)
	err = s.Save(Account{ID: 2, Balance: 20})
	assert.Nilf(t, err, "check redis backend failed with %+v", err)

	c, err := s.CreateCriteria("Account")
	assert.Nilf(t, err, "check redis backend failed with %+v", err)

	c.Add(meta.Gt("balance", 10))
	rows, err := c.List()
	assert.Nilf(t, err, "check redis backend failed with %+v", err)
	assert.Equal(t, 1, len(rows), "check redis backend failed")
	assert.Equal(t, float64(2), meta.PropertyValue(rows[0], "id"), "check redis backend failed")
}

func TestDeleteFromRedis(t *testing.T) {
	f := testFactory(t)
	defer f.Close()

	s, err := f.OpenSession()
	assert.Nilf(t, err, "check redis backend failed with %+v", err)

	for i := uint64(1); i <= 3; i++ {
		err = s.Save(Account{ID: i, Balance: int64(i * 10)})
		assert.Nilf(t, err, "check redis backend failed with %+v", err)
	}

	q, err := s.CreateQuery("delete from Account where balance <= 20")
	assert.Nilf(t, err, "check redis backend failed with %+v", err)

	n, err := q.ExecuteUpdate()
	assert.Nilf(t, err, "check redis backend failed with %+v", err)
	assert.Equal(t, 2, n, "check redis backend failed")

	c, err := s.CreateCriteria("Account")
	assert.Nilf(t, err, "check redis backend failed with %+v", err)

	rows, err := c.List()
	assert.Nilf(t, err, "check redis backend failed with %+v", err)
	assert.Equal(t, 1, len(rows), "check redis backend failed")
}
