package meta

import (
	"errors"
)

var (
	// ErrInvalidArgument nil or empty required input
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConfiguration malformed or missing shard setup
	ErrConfiguration = errors.New("malformed shard configuration")
	// ErrUnsupportedAggregate unknown aggregate projection
	ErrUnsupportedAggregate = errors.New("unsupported aggregate projection")
	// ErrMalformedPartialResult shard returned an unexpected row shape
	ErrMalformedPartialResult = errors.New("malformed partial result")
	// ErrCrossShardIntegrity related entities span shards in a disallowed way
	ErrCrossShardIntegrity = errors.New("related entities span multiple shards")
	// ErrTimeout a per-shard call exceeded the configured timeout
	ErrTimeout = errors.New("shard access timeout")
)
