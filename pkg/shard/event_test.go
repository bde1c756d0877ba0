package shard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"shards.io/shards/pkg/backend"
	"shards.io/shards/pkg/backend/mem"
	"shards.io/shards/pkg/meta"
)

func testCriteria(t *testing.T) backend.Criteria {
	s, err := mem.NewFactory().OpenSession()
	assert.Nilf(t, err, "open session failed with %+v", err)

	c, err := s.CreateCriteria("Account")
	assert.Nilf(t, err, "create criteria failed with %+v", err)
	return c
}

func TestAddCriterionEvent(t *testing.T) {
	c := testCriteria(t)
	AddCriterionEvent{Criterion: meta.Eq("balance", 1)}.OnEvent(c)

	rows, err := c.List()
	assert.Nilf(t, err, "check event failed with %+v", err)
	assert.Equal(t, 0, len(rows), "check event failed")
}

func TestSetReadOnlyOpenSessionEvent(t *testing.T) {
	s, err := mem.NewFactory().OpenSession()
	assert.Nilf(t, err, "open session failed with %+v", err)

	type Account struct {
		ID uint64
	}
	entity := &Account{ID: 1}

	SetReadOnlyOpenSessionEvent{Entity: entity, ReadOnly: true}.OnOpenSession(s)
	err = s.Save(entity)
	assert.NotNil(t, err, "check event failed")
}

func TestCreateSubCriteriaEvent(t *testing.T) {
	c := testCriteria(t)

	var sub backend.Criteria
	CreateSubCriteriaEvent{
		Path: "owner",
		OnCreate: func(criteria backend.Criteria) {
			sub = criteria
		},
	}.OnEvent(c)
	assert.NotNil(t, sub, "check event failed")
}
