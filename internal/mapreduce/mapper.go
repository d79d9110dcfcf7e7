package mapreduce

import "LocalMR/internal/types"

// runMaps drains the map-input queue through the map function. n is the
// number of units scheduled in parallel mode.
func (e *Engine[K, V, K2, V2, K3, V3]) runMaps(parallel bool, n int) error {
	e.mapOutput.Reset()
	return e.dispatch(types.PhaseMap, n, parallel, e.mapUnit)
}

func (e *Engine[K, V, K2, V2, K3, V3]) mapUnit(task int) (bool, error) {
	in, ok := e.mapInput.Pop()
	if !ok {
		return false, nil
	}

	e.observer().TaskStarted(types.PhaseMap, task)

	var out []types.MapOutputPair[K2, V2]
	err := invoke(func() (err error) {
		out, err = e.mapFn(in)
		return err
	})
	if err != nil {
		return true, err
	}

	for _, kv := range out {
		e.mapOutput.Push(kv)
	}

	e.observer().TaskCompleted(types.PhaseMap, task)
	return true, nil
}
