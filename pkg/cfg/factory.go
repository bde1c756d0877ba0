package cfg

import (
	"fmt"
	"net/url"
	"time"

	"github.com/fagongzi/util/format"
	"shards.io/shards/pkg/backend"
	"shards.io/shards/pkg/backend/mem"
	"shards.io/shards/pkg/backend/redis"
	"shards.io/shards/pkg/meta"
)

const (
	protocolMem   = "mem"
	protocolRedis = "redis"
)

const (
	paramProxies       = "proxy"
	paramMaxActive     = "maxActive"
	paramMaxIdle       = "maxIdle"
	paramIdleTimeout   = "idleTimeout"
	paramDialTimeout   = "dialTimeout"
	paramReadTimeout   = "readTimeout"
	paramWriteTimeout  = "writeTimeout"
	paramMaxRetryTimes = "retry"
	paramKeyPrefix     = "prefix"
)

// CreateSessionFactory returns the session factory for a shard's
// backend address, the scheme selects the backend.
// example: redis://ip:port?proxy=ip:port&retry=3&maxActive=100&maxIdle=10&idleTimeout=30&dialTimeout=10&readTimeout=30&writeTimeout=10&prefix=shards
func CreateSessionFactory(protocolAddr string) (backend.SessionFactory, error) {
	u, err := url.Parse(protocolAddr)
	if err != nil {
		return nil, err
	}

	switch u.Scheme {
	case protocolMem:
		return mem.NewFactory(), nil
	case protocolRedis:
		return createRedisFactory(u)
	}

	return nil, fmt.Errorf("%w: the schema %s is not support",
		meta.ErrConfiguration,
		u.Scheme)
}

func createRedisFactory(u *url.URL) (backend.SessionFactory, error) {
	var opts []redis.Option

	var proxies []string
	proxies = append(proxies, u.Host)
	if values, ok := u.Query()[paramProxies]; ok {
		proxies = append(proxies, values...)
	}
	opts = append(opts, redis.WithProxies(proxies...))

	maxActive := u.Query().Get(paramMaxActive)
	if maxActive != "" {
		opts = append(opts, redis.WithMaxActive(format.MustParseStrInt(maxActive)))
	}

	maxIdle := u.Query().Get(paramMaxIdle)
	if maxIdle != "" {
		opts = append(opts, redis.WithMaxIdle(format.MustParseStrInt(maxIdle)))
	}

	idleTimeout := u.Query().Get(paramIdleTimeout)
	if idleTimeout != "" {
		opts = append(opts, redis.WithIdleTimeout(time.Second*time.Duration(format.MustParseStrInt64(idleTimeout))))
	}

	dialTimeout := u.Query().Get(paramDialTimeout)
	if dialTimeout != "" {
		opts = append(opts, redis.WithDialTimeout(time.Second*time.Duration(format.MustParseStrInt64(dialTimeout))))
	}

	readTimeout := u.Query().Get(paramReadTimeout)
	if readTimeout != "" {
		opts = append(opts, redis.WithReadTimeout(time.Second*time.Duration(format.MustParseStrInt64(readTimeout))))
	}

	writeTimeout := u.Query().Get(paramWriteTimeout)
	if writeTimeout != "" {
		opts = append(opts, redis.WithWriteTimeout(time.Second*time.Duration(format.MustParseStrInt64(writeTimeout))))
	}

	retry := u.Query().Get(paramMaxRetryTimes)
	if retry != "" {
		opts = append(opts, redis.WithRetry(format.MustParseStrInt(retry)))
	}

	prefix := u.Query().Get(paramKeyPrefix)
	if prefix != "" {
		opts = append(opts, redis.WithKeyPrefix(prefix))
	}

	return redis.NewFactory(opts...), nil
}
