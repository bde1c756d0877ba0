package coordinator

import (
	"shards.io/shards/pkg/id"
	"shards.io/shards/pkg/meta"
	"shards.io/shards/pkg/strategy"
)

// Option coordinator option
type Option func(*options)

type options struct {
	selection       strategy.ShardSelectionStrategy
	access          strategy.ShardAccessStrategy
	virtualMap      map[meta.ShardID]meta.ShardID
	idGenerator     id.Generator
	checkCrossShard bool
}

// WithSelectionStrategy sets the placement policy for brand new
// entities, defaults to round robin load balancing over the configured
// shard ids
func WithSelectionStrategy(selection strategy.ShardSelectionStrategy) Option {
	return func(opts *options) {
		opts.selection = selection
	}
}

// WithAccessStrategy sets the broadcast dispatch, defaults to
// sequential
func WithAccessStrategy(access strategy.ShardAccessStrategy) Option {
	return func(opts *options) {
		opts.access = access
	}
}

// WithVirtualShardMap sets the virtual to physical shard id mapping. An
// empty map means no virtualization, identity applies. Passing nil is a
// configuration error surfaced at construction.
func WithVirtualShardMap(virtualMap map[meta.ShardID]meta.ShardID) Option {
	return func(opts *options) {
		opts.virtualMap = virtualMap
	}
}

// WithIDGenerator sets the generator of criteria and query handle ids,
// defaults to an in-process counter
func WithIDGenerator(generator id.Generator) Option {
	return func(opts *options) {
		opts.idGenerator = generator
	}
}

// WithCrossShardCheck enables the relationship checking policy, a save
// whose related entities live on another shard fails instead of
// silently persisting inconsistent data
func WithCrossShardCheck() Option {
	return func(opts *options) {
		opts.checkCrossShard = true
	}
}
