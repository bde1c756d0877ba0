package coordinator

import (
	"fmt"

	"shards.io/shards/pkg/backend"
	"shards.io/shards/pkg/meta"
	"shards.io/shards/pkg/metrics"
	"shards.io/shards/pkg/shard"
)

// ShardedQuery a query pending against every shard. Parameter bindings
// are applied immediately on shards whose backend query already exists
// and deferred for the rest.
type ShardedQuery struct {
	id      shard.QueryID
	coord   *Coordinator
	factory backend.QueryFactory
	raw     bool
}

func newShardedQuery(c *Coordinator, id shard.QueryID, stmt string, raw bool) *ShardedQuery {
	return &ShardedQuery{
		id:      id,
		coord:   c,
		factory: backend.NewQueryFactory(stmt),
		raw:     raw,
	}
}

// ID returns the query handle
func (sq *ShardedQuery) ID() shard.QueryID {
	return sq.id
}

// SetParameter binds a named parameter on every shard
func (sq *ShardedQuery) SetParameter(name string, value interface{}) error {
	if name == "" {
		return fmt.Errorf("%w: empty parameter name",
			meta.ErrInvalidArgument)
	}

	for _, sd := range sq.coord.shards {
		err := sd.AddQueryEvent(sq.id, shard.SetParameterEvent{
			Name:  name,
			Value: value,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// List executes the query on every shard and returns the concatenated
// rows in shard iteration order
func (sq *ShardedQuery) List() ([]interface{}, error) {
	return sq.coord.broadcast(metrics.OpQuery, func(sd *shard.Shard) ([]interface{}, error) {
		if _, err := sd.EstablishQuery(sq.id, sq.factory, sq.raw); err != nil {
			return nil, err
		}

		return sd.ListQuery(sq.id)
	})
}

// ExecuteUpdate executes the mutating query on every shard and returns
// the total count of affected rows
func (sq *ShardedQuery) ExecuteUpdate() (int, error) {
	rows, err := sq.coord.broadcast(metrics.OpUpdate, func(sd *shard.Shard) ([]interface{}, error) {
		if _, err := sd.EstablishQuery(sq.id, sq.factory, sq.raw); err != nil {
			return nil, err
		}

		n, err := sd.ExecuteUpdate(sq.id)
		if err != nil {
			return nil, err
		}

		return []interface{}{n}, nil
	})
	if err != nil {
		return 0, err
	}

	total := 0
	for _, row := range rows {
		total += row.(int)
	}

	return total, nil
}
