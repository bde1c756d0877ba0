package coordinator

import (
	"fmt"

	"shards.io/shards/pkg/backend"
	"shards.io/shards/pkg/exit"
	"shards.io/shards/pkg/meta"
	"shards.io/shards/pkg/metrics"
	"shards.io/shards/pkg/shard"
)

// ShardedCriteria a criteria pending against every shard. Restrictions,
// orderings and projections are applied immediately on shards whose
// backend criteria already exists and recorded as deferred events for
// the rest, replayed in FIFO order when the shard first realizes the
// handle during List or UniqueResult.
type ShardedCriteria struct {
	id        shard.CriteriaID
	coord     *Coordinator
	factory   backend.CriteriaFactory
	collector *exit.Collector
}

func newShardedCriteria(c *Coordinator, id shard.CriteriaID, kind string) *ShardedCriteria {
	return &ShardedCriteria{
		id:        id,
		coord:     c,
		factory:   backend.NewCriteriaFactory(kind),
		collector: exit.NewCollector(),
	}
}

// ID returns the criteria handle
func (sc *ShardedCriteria) ID() shard.CriteriaID {
	return sc.id
}

func (sc *ShardedCriteria) each(event shard.CriteriaEvent) error {
	for _, sd := range sc.coord.shards {
		if err := sd.AddCriteriaEvent(sc.id, event); err != nil {
			return err
		}
	}

	return nil
}

// Add restricts the criteria on every shard
func (sc *ShardedCriteria) Add(criterion meta.Criterion) error {
	return sc.each(shard.AddCriterionEvent{Criterion: criterion})
}

// AddOrder orders the per-shard partial results and registers the same
// ordering for the in-memory merge, per-shard order alone never yields
// global order
func (sc *ShardedCriteria) AddOrder(order meta.Order) error {
	sc.collector.AddOrder(exit.NewInMemoryOrderBy("", order))
	return sc.each(shard.AddOrderEvent{Order: order})
}

// SetProjection pushes the projection down to every shard and registers
// the matching cross-shard merge
func (sc *ShardedCriteria) SetProjection(projection meta.Projection) error {
	sc.collector.SetProjection(projection)
	return sc.each(shard.SetProjectionEvent{Projection: projection})
}

// SetFirstResult skips the leading rows of the merged result. The
// offset is never pushed down, it only means anything after the global
// order is known.
func (sc *ShardedCriteria) SetFirstResult(first int) error {
	if first < 0 {
		return fmt.Errorf("%w: negative first result %d",
			meta.ErrInvalidArgument,
			first)
	}

	sc.collector.SetFirstResult(first)
	return nil
}

// SetMaxResults truncates the merged result. The limit is never pushed
// down, truncating per shard would drop candidates before the global
// order is known.
func (sc *ShardedCriteria) SetMaxResults(max int) error {
	if max < 0 {
		return fmt.Errorf("%w: negative max results %d",
			meta.ErrInvalidArgument,
			max)
	}

	sc.collector.SetMaxResults(max)
	return nil
}

// CreateSubCriteria returns a view restricting the association at path,
// restrictions and orderings added through it resolve against the
// nested entity
func (sc *ShardedCriteria) CreateSubCriteria(path string) *ShardedSubCriteria {
	return &ShardedSubCriteria{
		parent: sc,
		path:   path,
	}
}

// List executes the criteria on every shard and merges the partial
// results
func (sc *ShardedCriteria) List() ([]interface{}, error) {
	rows, err := sc.coord.broadcast(metrics.OpCriteria, func(sd *shard.Shard) ([]interface{}, error) {
		if _, err := sd.EstablishCriteria(sc.id, sc.factory); err != nil {
			return nil, err
		}

		return sd.List(sc.id)
	})
	if err != nil {
		return nil, err
	}

	return sc.collector.Apply(rows)
}

// UniqueResult executes the criteria and returns the single merged row,
// nil when the merged result is empty
func (sc *ShardedCriteria) UniqueResult() (interface{}, error) {
	rows, err := sc.List()
	if err != nil {
		return nil, err
	}

	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return rows[0], nil
	}

	return nil, fmt.Errorf("non-unique result, %d rows", len(rows))
}

// ShardedSubCriteria a nested view over a sharded criteria, its
// restrictions apply to the association at path
type ShardedSubCriteria struct {
	parent *ShardedCriteria
	path   string
}

// Path returns the association path
func (sub *ShardedSubCriteria) Path() string {
	return sub.path
}

// Add restricts the nested entity on every shard
func (sub *ShardedSubCriteria) Add(criterion meta.Criterion) error {
	return sub.parent.each(shard.CreateSubCriteriaEvent{
		Path: sub.path,
		OnCreate: func(criteria backend.Criteria) {
			criteria.Add(criterion)
		},
	})
}

// AddOrder orders by a property of the nested entity, the in-memory
// merge resolves the combined path against the rows of the parent
func (sub *ShardedSubCriteria) AddOrder(order meta.Order) error {
	sub.parent.collector.AddOrder(exit.NewInMemoryOrderBy(sub.path, order))
	return sub.parent.each(shard.CreateSubCriteriaEvent{
		Path: sub.path,
		OnCreate: func(criteria backend.Criteria) {
			criteria.AddOrder(order)
		},
	})
}
