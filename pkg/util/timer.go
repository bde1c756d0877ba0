package util

import (
	"time"

	"github.com/fagongzi/goetty"
)

var (
	// DefaultTW shared timeout wheel, used for per-shard access deadlines
	DefaultTW = goetty.NewTimeoutWheel(goetty.WithTickInterval(time.Millisecond * 100))
)
