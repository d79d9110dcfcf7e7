package mapreduce

import (
	"errors"
	"fmt"

	"LocalMR/internal/types"
)

var (
	// ErrMisconfigured is returned before any work is scheduled when the map
	// or reduce function is missing.
	ErrMisconfigured = errors.New("mapreduce: task misconfigured")

	// ErrRunInProgress is returned when Run is called while another Run on the
	// same engine has not returned yet.
	ErrRunInProgress = errors.New("mapreduce: run already in progress")

	// ErrTaskPanic wraps a panic raised inside a map or reduce function.
	ErrTaskPanic = errors.New("mapreduce: task panicked")

	// ErrUnhashableKey is returned when shuffle cannot group an intermediate
	// key, which can only happen when K2 is an interface type.
	ErrUnhashableKey = errors.New("mapreduce: intermediate key is not hashable")
)

// TaskError reports a failure of the caller-supplied function in one work unit.
type TaskError struct {
	Phase types.Phase
	Task  int
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s task %d failed: %v", e.Phase, e.Task, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// invoke calls fn, converting a panic into an error.
func invoke(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
		}
	}()
	return fn()
}
