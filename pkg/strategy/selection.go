package strategy

import (
	"fmt"

	"shards.io/shards/pkg/meta"
)

// ShardSelectionStrategy picks the shard a brand new entity is placed
// on. Broadcast reads never go through selection, they target every
// configured shard.
type ShardSelectionStrategy interface {
	SelectShardIDForNewObject(entity interface{}) (meta.ShardID, error)
}

// LoadBalancedShardSelectionStrategy places new entities on whatever
// shard the balancer hands out next, entity contents are ignored
type LoadBalancedShardSelectionStrategy struct {
	balancer ShardLoadBalancer
}

// NewLoadBalancedShardSelectionStrategy returns a selection strategy
// backed by the balancer, fails on a nil balancer
func NewLoadBalancedShardSelectionStrategy(balancer ShardLoadBalancer) (*LoadBalancedShardSelectionStrategy, error) {
	if balancer == nil {
		return nil, fmt.Errorf("%w: nil shard load balancer",
			meta.ErrInvalidArgument)
	}

	return &LoadBalancedShardSelectionStrategy{balancer: balancer}, nil
}

// SelectShardIDForNewObject returns the balancer's next shard id
func (s *LoadBalancedShardSelectionStrategy) SelectShardIDForNewObject(entity interface{}) (meta.ShardID, error) {
	return s.balancer.NextShardID(), nil
}
