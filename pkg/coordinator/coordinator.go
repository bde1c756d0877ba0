package coordinator

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/fagongzi/log"
	"shards.io/shards/pkg/id"
	"shards.io/shards/pkg/meta"
	"shards.io/shards/pkg/metrics"
	"shards.io/shards/pkg/shard"
	"shards.io/shards/pkg/strategy"
)

// Coordinator owns the full shard set for its lifetime, routes
// placement operations to one shard via the selection strategy and fans
// broadcast operations out to every shard, merging the partial results.
//
// The per-shard state machines are not safe for concurrent mutation,
// callers run one logical operation at a time. The broadcast fan-out
// across different shards may run in parallel, shards share no state.
type Coordinator struct {
	opts   options
	shards []*shard.Shard
	byID   map[meta.ShardID]*shard.Shard

	// virtual to physical and its inverse, built once, read-only after
	virtualMap map[meta.ShardID]meta.ShardID
	inverseMap map[meta.ShardID][]meta.ShardID

	mu       sync.Mutex
	affinity map[uintptr]meta.ShardID
}

// NewCoordinator returns a coordinator owning the shards, fails on an
// empty shard list or a malformed virtual shard map
func NewCoordinator(shards []*shard.Shard, opts ...Option) (*Coordinator, error) {
	if len(shards) == 0 {
		return nil, fmt.Errorf("%w: empty shard list",
			meta.ErrInvalidArgument)
	}

	c := &Coordinator{
		shards:   shards,
		byID:     make(map[meta.ShardID]*shard.Shard),
		affinity: make(map[uintptr]meta.ShardID),
	}

	c.opts.virtualMap = make(map[meta.ShardID]meta.ShardID)
	for _, opt := range opts {
		opt(&c.opts)
	}

	var ids []meta.ShardID
	for _, sd := range shards {
		if sd == nil {
			return nil, fmt.Errorf("%w: nil shard",
				meta.ErrInvalidArgument)
		}

		for _, sid := range sd.ShardIDs() {
			if _, ok := c.byID[sid]; ok {
				return nil, fmt.Errorf("%w: shard id %d configured twice",
					meta.ErrConfiguration,
					sid)
			}

			c.byID[sid] = sd
			ids = append(ids, sid)
		}
	}

	inverse, err := meta.BuildShardToVirtualMap(c.opts.virtualMap)
	if err != nil {
		return nil, err
	}
	c.virtualMap = c.opts.virtualMap
	c.inverseMap = inverse

	for virtual, physical := range c.virtualMap {
		if _, ok := c.byID[physical]; !ok {
			return nil, fmt.Errorf("%w: virtual shard %d maps to unknown shard %d",
				meta.ErrConfiguration,
				virtual,
				physical)
		}
	}

	if c.opts.selection == nil {
		lb, err := strategy.NewRoundRobinShardLoadBalancer(ids)
		if err != nil {
			return nil, err
		}

		c.opts.selection, err = strategy.NewLoadBalancedShardSelectionStrategy(lb)
		if err != nil {
			return nil, err
		}
	}

	if c.opts.access == nil {
		c.opts.access = strategy.NewSequentialShardAccessStrategy()
	}

	if c.opts.idGenerator == nil {
		c.opts.idGenerator = id.NewMemGenerator()
	}

	metrics.ShardsGauge.Set(float64(len(shards)))
	log.Infof("coordinator created with %d shards, %d virtual shard ids",
		len(shards),
		len(c.virtualMap))

	return c, nil
}

// Shards returns the owned shards in configuration order
func (c *Coordinator) Shards() []*shard.Shard {
	return c.shards
}

// VirtualShardIDs returns the virtual ids aliasing the physical shard
// id, nil when no virtualization is configured for it
func (c *Coordinator) VirtualShardIDs(physical meta.ShardID) []meta.ShardID {
	return c.inverseMap[physical]
}

// shardFor resolves a possibly virtual shard id to its shard
func (c *Coordinator) shardFor(sid meta.ShardID) (*shard.Shard, error) {
	if len(c.virtualMap) > 0 {
		if physical, ok := c.virtualMap[sid]; ok {
			sid = physical
		}
	}

	sd, ok := c.byID[sid]
	if !ok {
		return nil, fmt.Errorf("%w: no shard for id %d",
			meta.ErrConfiguration,
			sid)
	}

	return sd, nil
}

// Save places the entity, routing an entity with established shard
// affinity back to its shard and a brand new entity via the selection
// strategy
func (c *Coordinator) Save(entity interface{}) (meta.ShardID, error) {
	if entity == nil {
		return 0, fmt.Errorf("%w: nil entity", meta.ErrInvalidArgument)
	}

	target, err := c.targetShardID(entity)
	if err != nil {
		metrics.PlacementCounter.WithLabelValues("", metrics.StatusFailed).Inc()
		return 0, err
	}

	sd, err := c.shardFor(target)
	if err != nil {
		metrics.PlacementCounter.WithLabelValues("", metrics.StatusFailed).Inc()
		return 0, err
	}

	if c.opts.checkCrossShard {
		if err := c.checkCoLocation(entity, sd); err != nil {
			metrics.PlacementCounter.WithLabelValues(sd.Key(), metrics.StatusFailed).Inc()
			return 0, err
		}
	}

	session, err := sd.EstablishSession()
	if err != nil {
		metrics.PlacementCounter.WithLabelValues(sd.Key(), metrics.StatusFailed).Inc()
		return 0, err
	}

	if err := session.Save(entity); err != nil {
		metrics.PlacementCounter.WithLabelValues(sd.Key(), metrics.StatusFailed).Inc()
		return 0, err
	}

	c.recordAffinity(entity, target)
	metrics.PlacementCounter.WithLabelValues(sd.Key(), metrics.StatusSucceed).Inc()
	return target, nil
}

func (c *Coordinator) targetShardID(entity interface{}) (meta.ShardID, error) {
	if sid, ok := c.AffinityShardID(entity); ok {
		return sid, nil
	}

	return c.opts.selection.SelectShardIDForNewObject(entity)
}

// AffinityShardID returns the shard id the entity was placed on, false
// for an entity this coordinator never saved. Affinity is tracked by
// entity identity, value entities are not tracked.
func (c *Coordinator) AffinityShardID(entity interface{}) (meta.ShardID, bool) {
	key, ok := affinityKey(entity)
	if !ok {
		return 0, false
	}

	c.mu.Lock()
	sid, ok := c.affinity[key]
	c.mu.Unlock()

	return sid, ok
}

func (c *Coordinator) recordAffinity(entity interface{}, sid meta.ShardID) {
	key, ok := affinityKey(entity)
	if !ok {
		return
	}

	c.mu.Lock()
	c.affinity[key] = sid
	c.mu.Unlock()
}

func affinityKey(entity interface{}) (uintptr, bool) {
	value := reflect.ValueOf(entity)
	if value.Kind() != reflect.Ptr || value.IsNil() {
		return 0, false
	}

	return value.Pointer(), true
}

// checkCoLocation fails when a related entity reachable from the saved
// entity already lives on a different shard
func (c *Coordinator) checkCoLocation(entity interface{}, target *shard.Shard) error {
	for _, related := range relatedEntities(entity) {
		sid, ok := c.AffinityShardID(related)
		if !ok {
			continue
		}

		sd, err := c.shardFor(sid)
		if err != nil {
			return err
		}

		if !sd.Equal(target) {
			return fmt.Errorf("%w: related %T lives on shard %s, save targets shard %s",
				meta.ErrCrossShardIntegrity,
				related,
				sd.Key(),
				target.Key())
		}
	}

	return nil
}

// relatedEntities collects the pointer-typed entities directly
// reachable from the entity's fields
func relatedEntities(entity interface{}) []interface{} {
	value := reflect.ValueOf(entity)
	if value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return nil
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil
	}

	var related []interface{}
	for i := 0; i < value.NumField(); i++ {
		field := value.Field(i)
		if !field.CanInterface() {
			continue
		}

		switch field.Kind() {
		case reflect.Ptr:
			if !field.IsNil() {
				related = append(related, field.Interface())
			}
		case reflect.Slice:
			for j := 0; j < field.Len(); j++ {
				elem := field.Index(j)
				if elem.Kind() == reflect.Ptr && !elem.IsNil() {
					related = append(related, elem.Interface())
				}
			}
		}
	}

	return related
}

// SetReadOnly marks a previously saved entity read-only on its shard,
// deferring the call when the shard's session is not established yet
func (c *Coordinator) SetReadOnly(entity interface{}, readOnly bool) error {
	sid, ok := c.AffinityShardID(entity)
	if !ok {
		return fmt.Errorf("%w: entity has no shard affinity",
			meta.ErrInvalidArgument)
	}

	sd, err := c.shardFor(sid)
	if err != nil {
		return err
	}

	return sd.AddOpenSessionEvent(shard.SetReadOnlyOpenSessionEvent{
		Entity:   entity,
		ReadOnly: readOnly,
	})
}

// NewCriteria returns a sharded criteria over entities of the kind
func (c *Coordinator) NewCriteria(kind string) (*ShardedCriteria, error) {
	if kind == "" {
		return nil, fmt.Errorf("%w: empty entity kind",
			meta.ErrInvalidArgument)
	}

	handle, err := c.opts.idGenerator.Gen()
	if err != nil {
		return nil, err
	}

	return newShardedCriteria(c, shard.CriteriaID(handle), kind), nil
}

// NewQuery returns a sharded query for the statement
func (c *Coordinator) NewQuery(stmt string) (*ShardedQuery, error) {
	return c.newQuery(stmt, false)
}

// NewSQLQuery returns a sharded query for the raw statement
func (c *Coordinator) NewSQLQuery(stmt string) (*ShardedQuery, error) {
	return c.newQuery(stmt, true)
}

func (c *Coordinator) newQuery(stmt string, raw bool) (*ShardedQuery, error) {
	if stmt == "" {
		return nil, fmt.Errorf("%w: empty statement",
			meta.ErrInvalidArgument)
	}

	handle, err := c.opts.idGenerator.Gen()
	if err != nil {
		return nil, err
	}

	return newShardedQuery(c, shard.QueryID(handle), stmt, raw), nil
}

// broadcast dispatches the operation to every shard via the access
// strategy and returns the concatenated partial results in shard
// iteration order
func (c *Coordinator) broadcast(op string, fn strategy.Operation) ([]interface{}, error) {
	timed := func(sd *shard.Shard) ([]interface{}, error) {
		start := time.Now()
		rows, err := fn(sd)
		metrics.ShardDurationHistogram.WithLabelValues(sd.Key()).
			Observe(time.Since(start).Seconds())
		return rows, err
	}

	rows, err := c.opts.access.Apply(c.shards, timed)
	if err != nil {
		metrics.BroadcastCounter.WithLabelValues(op, metrics.StatusFailed).Inc()
		return nil, err
	}

	metrics.BroadcastCounter.WithLabelValues(op, metrics.StatusSucceed).Inc()
	metrics.MergedRowsHistogram.Observe(float64(len(rows)))
	return rows, nil
}

// Close closes every shard, the first failure is reported after all
// shards were closed
func (c *Coordinator) Close() error {
	var firstErr error
	for _, sd := range c.shards {
		if err := sd.Close(); err != nil {
			log.Errorf("close shard %s failed with %+v",
				sd.Key(),
				err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
