package strategy

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"

	"shards.io/shards/pkg/meta"
)

// ShardLoadBalancer returns the next shard to place work on. The only
// contract is that the returned id is one of the configured shard ids.
type ShardLoadBalancer interface {
	NextShardID() meta.ShardID
}

// RoundRobinShardLoadBalancer cycles over the configured shard ids in
// sorted order
type RoundRobinShardLoadBalancer struct {
	ids  []meta.ShardID
	next uint64
}

// NewRoundRobinShardLoadBalancer returns a round robin balancer over the
// shard ids, fails on an empty id set
func NewRoundRobinShardLoadBalancer(ids []meta.ShardID) (*RoundRobinShardLoadBalancer, error) {
	sorted, err := sortedShardIDs(ids)
	if err != nil {
		return nil, err
	}

	return &RoundRobinShardLoadBalancer{
		ids: sorted,
		// start at a random offset so multiple balancers do not all
		// hammer the first shard
		next: uint64(rand.Intn(len(sorted))),
	}, nil
}

// NextShardID returns the next shard id in rotation
func (lb *RoundRobinShardLoadBalancer) NextShardID() meta.ShardID {
	n := atomic.AddUint64(&lb.next, 1)
	return lb.ids[(n-1)%uint64(len(lb.ids))]
}

// RandomShardLoadBalancer picks a uniformly random configured shard id
type RandomShardLoadBalancer struct {
	sync.Mutex

	ids []meta.ShardID
	rnd *rand.Rand
}

// NewRandomShardLoadBalancer returns a random balancer over the shard
// ids, fails on an empty id set
func NewRandomShardLoadBalancer(ids []meta.ShardID, seed int64) (*RandomShardLoadBalancer, error) {
	sorted, err := sortedShardIDs(ids)
	if err != nil {
		return nil, err
	}

	return &RandomShardLoadBalancer{
		ids: sorted,
		rnd: rand.New(rand.NewSource(seed)),
	}, nil
}

// NextShardID returns a random shard id
func (lb *RandomShardLoadBalancer) NextShardID() meta.ShardID {
	lb.Lock()
	idx := lb.rnd.Intn(len(lb.ids))
	lb.Unlock()

	return lb.ids[idx]
}

func sortedShardIDs(ids []meta.ShardID) ([]meta.ShardID, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: empty shard id set",
			meta.ErrInvalidArgument)
	}

	sorted := make([]meta.ShardID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	return sorted, nil
}
