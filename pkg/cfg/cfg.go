package cfg

import (
	"fmt"
	"net/url"

	"github.com/fagongzi/log"
	"shards.io/shards/pkg/backend"
	"shards.io/shards/pkg/coordinator"
	"shards.io/shards/pkg/meta"
	"shards.io/shards/pkg/shard"
)

// ShardConfig the resolved configuration of one physical shard. The
// shard id is required, the rest falls back to the prototype.
type ShardConfig struct {
	ShardID     *meta.ShardID     `toml:"id" json:"id"`
	BackendAddr string            `toml:"addr" json:"addr"`
	Properties  map[string]string `toml:"properties" json:"properties"`
}

// Cfg sharded configuration, builds the coordinator and its shards from
// resolved per-shard property bags. Configuration files are parsed by
// the caller, never here.
type Cfg struct {
	// ProtoAddr the backend address of shards that configure none
	ProtoAddr string `toml:"protoAddr" json:"protoAddr"`
	// ProtoProperties backend properties every shard inherits, a shard
	// property with the same name wins
	ProtoProperties map[string]string `toml:"protoProperties" json:"protoProperties"`
	// Shards the physical shards
	Shards []ShardConfig `toml:"shards" json:"shards"`
	// VirtualShards the virtual to physical shard id mapping, leave
	// unset for no virtualization
	VirtualShards map[meta.ShardID]meta.ShardID `toml:"virtualShards" json:"virtualShards"`

	// FactoryBuilder builds a shard's session factory from its backend
	// address, defaults to CreateSessionFactory
	FactoryBuilder func(protocolAddr string) (backend.SessionFactory, error)
	// Interceptor passed to every shard's session on open, can be nil
	Interceptor backend.Interceptor
	// CoordinatorOptions extra options of the built coordinator
	CoordinatorOptions []coordinator.Option
}

// Adjust adjust
func (c *Cfg) Adjust() {
	if c.FactoryBuilder == nil {
		c.FactoryBuilder = CreateSessionFactory
	}
}

// Build builds the coordinator owning one shard per shard config
func (c *Cfg) Build() (*coordinator.Coordinator, error) {
	c.Adjust()

	if len(c.Shards) == 0 {
		return nil, fmt.Errorf("%w: empty shard config list",
			meta.ErrInvalidArgument)
	}

	var shards []*shard.Shard
	for idx, sc := range c.Shards {
		if sc.ShardID == nil {
			return nil, fmt.Errorf("%w: shard config %d lacks the shard id",
				meta.ErrConfiguration,
				idx)
		}

		addr := sc.BackendAddr
		if addr == "" {
			addr = c.ProtoAddr
		}
		if addr == "" {
			return nil, fmt.Errorf("%w: shard %d has no backend address",
				meta.ErrConfiguration,
				*sc.ShardID)
		}

		addr, err := expandAddr(addr, c.mergedProperties(sc))
		if err != nil {
			return nil, fmt.Errorf("%w: shard %d backend address: %v",
				meta.ErrConfiguration,
				*sc.ShardID,
				err)
		}

		factory, err := c.FactoryBuilder(addr)
		if err != nil {
			return nil, err
		}

		s, err := shard.NewShard([]meta.ShardID{*sc.ShardID}, factory, c.Interceptor)
		if err != nil {
			return nil, err
		}

		shards = append(shards, s)
		log.Infof("shard %d configured with backend %s",
			*sc.ShardID,
			addr)
	}

	opts := c.CoordinatorOptions
	if c.VirtualShards != nil {
		opts = append(opts, coordinator.WithVirtualShardMap(c.VirtualShards))
	}

	return coordinator.NewCoordinator(shards, opts...)
}

func (c *Cfg) mergedProperties(sc ShardConfig) map[string]string {
	if len(c.ProtoProperties) == 0 {
		return sc.Properties
	}

	merged := make(map[string]string, len(c.ProtoProperties)+len(sc.Properties))
	for name, value := range c.ProtoProperties {
		merged[name] = value
	}
	for name, value := range sc.Properties {
		merged[name] = value
	}

	return merged
}

// expandAddr folds the shard properties into the backend address query,
// an explicit query param in the address wins
func expandAddr(addr string, props map[string]string) (string, error) {
	if len(props) == 0 {
		return addr, nil
	}

	u, err := url.Parse(addr)
	if err != nil {
		return "", err
	}

	q := u.Query()
	for name, value := range props {
		if q.Get(name) == "" {
			q.Set(name, value)
		}
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
