package redis

import (
	"sync/atomic"

	"github.com/garyburd/redigo/redis"
)

// Pool a set of redis connection pools over one physical shard's proxies
type Pool struct {
	ops   uint64
	opts  options
	pools []*redis.Pool
}

// NewPool create a pool set with opts
func NewPool(opts ...Option) *Pool {
	p := &Pool{}
	for _, opt := range opts {
		opt(&p.opts)
	}
	p.opts.adjust()

	for _, proxy := range p.opts.proxies {
		addr := proxy
		p.pools = append(p.pools, &redis.Pool{
			MaxActive:   p.opts.maxActive,
			MaxIdle:     p.opts.maxIdle,
			IdleTimeout: p.opts.idleTimeout,
			Wait:        true,
			Dial: func() (redis.Conn, error) {
				return redis.Dial("tcp",
					addr,
					redis.DialWriteTimeout(p.opts.writeTimeout),
					redis.DialConnectTimeout(p.opts.dialTimeout),
					redis.DialReadTimeout(p.opts.readTimeout))
			},
		})
	}

	return p
}

// Get returns a redis connection
func (p *Pool) Get() redis.Conn {
	return p.pools[int(atomic.AddUint64(&p.ops, 1)%uint64(len(p.pools)))].Get()
}

// Close release all pools
func (p *Pool) Close() error {
	for _, pool := range p.pools {
		if err := pool.Close(); err != nil {
			return err
		}
	}

	return nil
}
