package strategy

import (
	"time"
)

// Option parallel shard access option
type Option func(*options)

type options struct {
	workers int
	timeout time.Duration
}

func (opts *options) adjust() {
	if opts.workers == 0 {
		opts.workers = 4
	}
}

// WithWorkers sets the count of workers draining the per-shard work
// queue
func WithWorkers(workers int) Option {
	return func(opts *options) {
		opts.workers = workers
	}
}

// WithTimeout sets a deadline on every per-shard call, a shard that
// does not answer in time contributes a timeout error instead of rows
func WithTimeout(timeout time.Duration) Option {
	return func(opts *options) {
		opts.timeout = timeout
	}
}
