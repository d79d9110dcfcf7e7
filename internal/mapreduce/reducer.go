package mapreduce

import "LocalMR/internal/types"

// runReduces drains the reduce-input queue through the reduce function,
// adding one result per group. n is the number of units scheduled in
// parallel mode.
func (e *Engine[K, V, K2, V2, K3, V3]) runReduces(parallel bool, n int) error {
	return e.dispatch(types.PhaseReduce, n, parallel, e.reduceUnit)
}

func (e *Engine[K, V, K2, V2, K3, V3]) reduceUnit(task int) (bool, error) {
	group, ok := e.reduceInput.Pop()
	if !ok {
		return false, nil
	}

	e.observer().TaskStarted(types.PhaseReduce, task)

	var out types.ResultPair[K3, V3]
	err := invoke(func() (err error) {
		out, err = e.reduceFn(group)
		return err
	})
	if err != nil {
		return true, err
	}

	e.results.Add(out)
	e.observer().TaskCompleted(types.PhaseReduce, task)
	return true, nil
}
