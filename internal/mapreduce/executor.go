package mapreduce

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"LocalMR/internal/types"
)

// unitFunc pops one item from a phase's source queue and processes it.
// popped is false when the queue was already empty.
type unitFunc func(task int) (popped bool, err error)

// dispatch runs the work units of one phase. Sequential mode runs units one
// at a time until the source queue is observed empty. Parallel mode schedules
// exactly n units on a bounded pool and waits for all of them.
//
// When a failure aborts the phase, every scheduled task that never ran is
// reported through TaskSkipped, so completed, failed and skipped tasks always
// add up to n.
func (e *Engine[K, V, K2, V2, K3, V3]) dispatch(phase types.Phase, n int, parallel bool, unit unitFunc) error {
	if !parallel {
		for task := 0; ; task++ {
			popped, err := unit(task)
			if !popped {
				return nil
			}
			if err != nil {
				if err := e.fail(phase, task, err); err != nil {
					for rest := task + 1; rest < n; rest++ {
						e.observer().TaskSkipped(phase, rest)
					}
					return err
				}
			}
		}
	}

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(e.workers())

	for task := 0; task < n; task++ {
		task := task // per-iteration copy (go 1.22 loop semantics on go 1.21)
		g.Go(func() error {
			// Fail-fast: once a unit has failed the rest become no-ops.
			if ctx.Err() != nil {
				e.observer().TaskSkipped(phase, task)
				return nil
			}

			popped, err := unit(task)
			if !popped {
				e.observer().TaskSkipped(phase, task)
				return nil
			}
			if err != nil {
				return e.fail(phase, task, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// fail reports a task failure and decides whether it aborts the phase.
func (e *Engine[K, V, K2, V2, K3, V3]) fail(phase types.Phase, task int, err error) error {
	taskErr := &TaskError{Phase: phase, Task: task, Err: err}
	e.observer().TaskFailed(phase, task, err)

	if !e.cfg.IsolateFailures {
		return taskErr
	}

	e.failMu.Lock()
	e.failures = multierror.Append(e.failures, taskErr)
	e.failMu.Unlock()
	return nil
}
