package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntityKey(t *testing.T) {
	key := entityKey("shards", "Account")
	assert.Equal(t, "__shards_Account_entities__", key, "entityKey failed")
}
