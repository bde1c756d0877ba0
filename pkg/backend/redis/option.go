package redis

import (
	"time"
)

// Option redis backend option
type Option func(*options)

type options struct {
	proxies       []string
	maxActive     int
	maxIdle       int
	idleTimeout   time.Duration
	readTimeout   time.Duration
	writeTimeout  time.Duration
	dialTimeout   time.Duration
	maxRetryTimes int
	keyPrefix     string
}

func (opts *options) adjust() {
	if len(opts.proxies) == 0 {
		opts.proxies = []string{"localhost:6379"}
	}

	if opts.maxActive == 0 {
		opts.maxActive = 10
	}

	if opts.maxIdle == 0 {
		opts.maxIdle = 1
	}

	if opts.idleTimeout == 0 {
		opts.idleTimeout = time.Second * 30
	}

	if opts.readTimeout == 0 {
		opts.readTimeout = time.Second * 5
	}

	if opts.writeTimeout == 0 {
		opts.writeTimeout = time.Second * 5
	}

	if opts.dialTimeout == 0 {
		opts.dialTimeout = time.Second * 10
	}

	if opts.maxRetryTimes == 0 {
		opts.maxRetryTimes = 3
	}

	if opts.keyPrefix == "" {
		opts.keyPrefix = "shards"
	}
}

// WithProxies set redis proxy addresses
func WithProxies(value ...string) Option {
	return func(opts *options) {
		opts.proxies = value
	}
}

// WithMaxActive set max active conn per proxy
func WithMaxActive(value int) Option {
	return func(opts *options) {
		opts.maxActive = value
	}
}

// WithMaxIdle set max idle conn per proxy
func WithMaxIdle(value int) Option {
	return func(opts *options) {
		opts.maxIdle = value
	}
}

// WithIdleTimeout set idle conn timeout
func WithIdleTimeout(value time.Duration) Option {
	return func(opts *options) {
		opts.idleTimeout = value
	}
}

// WithReadTimeout set read timeout for connection
func WithReadTimeout(value time.Duration) Option {
	return func(opts *options) {
		opts.readTimeout = value
	}
}

// WithWriteTimeout set write timeout for connection
func WithWriteTimeout(value time.Duration) Option {
	return func(opts *options) {
		opts.writeTimeout = value
	}
}

// WithDialTimeout set dial timeout for connection
func WithDialTimeout(value time.Duration) Option {
	return func(opts *options) {
		opts.dialTimeout = value
	}
}

// WithRetry set max retry times
func WithRetry(value int) Option {
	return func(opts *options) {
		opts.maxRetryTimes = value
	}
}

// WithKeyPrefix set the key prefix of the stored hashes
func WithKeyPrefix(value string) Option {
	return func(opts *options) {
		opts.keyPrefix = value
	}
}
