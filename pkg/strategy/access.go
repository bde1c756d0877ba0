package strategy

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fagongzi/goetty"
	"github.com/fagongzi/log"
	"github.com/fagongzi/util/task"
	"shards.io/shards/pkg/meta"
	"shards.io/shards/pkg/shard"
	"shards.io/shards/pkg/util"
)

var (
	batch int64 = 64
)

// Operation a unit of work executed against one shard, returning that
// shard's partial result rows
type Operation func(*shard.Shard) ([]interface{}, error)

// ShardAccessStrategy dispatches one operation across a set of shards
// and returns the concatenation of the per-shard partial results in
// shard iteration order
type ShardAccessStrategy interface {
	Apply(shards []*shard.Shard, op Operation) ([]interface{}, error)
}

// SequentialShardAccessStrategy visits the shards one by one on the
// calling goroutine. The first failing shard aborts the dispatch, later
// shards are not visited.
type SequentialShardAccessStrategy struct {
}

// NewSequentialShardAccessStrategy returns the sequential dispatch
func NewSequentialShardAccessStrategy() *SequentialShardAccessStrategy {
	return &SequentialShardAccessStrategy{}
}

// Apply runs the operation against every shard in order
func (s *SequentialShardAccessStrategy) Apply(shards []*shard.Shard, op Operation) ([]interface{}, error) {
	if op == nil {
		return nil, fmt.Errorf("%w: nil shard operation",
			meta.ErrInvalidArgument)
	}

	var rows []interface{}
	for _, sd := range shards {
		partial, err := op(sd)
		if err != nil {
			return nil, err
		}

		rows = append(rows, partial...)
	}

	return rows, nil
}

// ParallelShardAccessStrategy dispatches the operation to every shard
// concurrently over a worker pool and blocks until all shards answered.
// A failing shard does not abort its siblings, the first error in shard
// iteration order is returned after every shard completed. An optional
// per-shard timeout turns a slow shard into a timeout error without
// aborting the backend call itself.
type ParallelShardAccessStrategy struct {
	opts   options
	runner *task.Runner
	tasks  *task.Queue
}

// NewParallelShardAccessStrategy returns the parallel dispatch and
// starts its workers, callers own the returned strategy and must Stop
// it
func NewParallelShardAccessStrategy(opts ...Option) *ParallelShardAccessStrategy {
	s := &ParallelShardAccessStrategy{
		runner: task.NewRunner(),
		tasks:  task.New(1024),
	}

	for _, opt := range opts {
		opt(&s.opts)
	}
	s.opts.adjust()

	for i := 0; i < s.opts.workers; i++ {
		_, err := s.runner.RunCancelableTask(s.runApplyTask)
		if err != nil {
			log.Fatalf("start shard access worker failed with %+v",
				err)
		}
	}

	return s
}

// Stop stops the workers, in-flight operations are drained first
func (s *ParallelShardAccessStrategy) Stop() {
	s.tasks.Dispose()
	s.runner.Stop()
}

// Apply fans the operation out to every shard and merges the answers
func (s *ParallelShardAccessStrategy) Apply(shards []*shard.Shard, op Operation) ([]interface{}, error) {
	if op == nil {
		return nil, fmt.Errorf("%w: nil shard operation",
			meta.ErrInvalidArgument)
	}

	wg := &sync.WaitGroup{}
	wg.Add(len(shards))

	slots := make([]*accessSlot, len(shards))
	for i, sd := range shards {
		st := &accessSlot{wg: wg}
		slots[i] = st

		if s.opts.timeout > 0 {
			// the deadline is armed before the task is visible to any
			// worker
			t, err := util.DefaultTW.Schedule(s.opts.timeout, onAccessTimeout, st)
			if err != nil {
				st.complete(nil, err)
				continue
			}
			st.deadline = t
			st.hasDeadline = true
		}

		err := s.tasks.Put(&applyTask{
			shard: sd,
			op:    op,
			slot:  st,
		})
		if err != nil {
			st.complete(nil, err)
		}
	}

	wg.Wait()

	var rows []interface{}
	var firstErr error
	for _, st := range slots {
		if st.err != nil {
			if firstErr == nil {
				firstErr = st.err
			}
			continue
		}

		rows = append(rows, st.rows...)
	}

	if firstErr != nil {
		return nil, firstErr
	}

	return rows, nil
}

func (s *ParallelShardAccessStrategy) runApplyTask(ctx context.Context) {
	items := make([]interface{}, batch, batch)

	for {
		n, err := s.tasks.Get(batch, items)
		if err != nil {
			log.Infof("shard access worker stopped")
			return
		}

		for i := int64(0); i < n; i++ {
			items[i].(*applyTask).run()
		}
	}
}

type applyTask struct {
	shard *shard.Shard
	op    Operation
	slot  *accessSlot
}

func (t *applyTask) run() {
	rows, err := t.op(t.shard)
	t.slot.complete(rows, err)
	t.slot.stopDeadline()
}

// accessSlot one shard's answer, completed exactly once by whichever of
// the worker and the deadline fires first
type accessSlot struct {
	done        uint32
	rows        []interface{}
	err         error
	wg          *sync.WaitGroup
	deadline    goetty.Timeout
	hasDeadline bool
}

func (st *accessSlot) complete(rows []interface{}, err error) {
	if atomic.CompareAndSwapUint32(&st.done, 0, 1) {
		st.rows = rows
		st.err = err
		st.wg.Done()
	}
}

func (st *accessSlot) stopDeadline() {
	if st.hasDeadline {
		st.deadline.Stop()
	}
}

func onAccessTimeout(arg interface{}) {
	arg.(*accessSlot).complete(nil, meta.ErrTimeout)
}
