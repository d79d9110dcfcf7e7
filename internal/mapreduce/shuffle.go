package mapreduce

import (
	"fmt"

	"LocalMR/internal/types"
)

// shuffle groups every intermediate pair by key and queues one group per
// distinct key for reduce. It always runs on the calling goroutine.
//
// Neither the order of groups nor the order of values inside a group is
// deterministic: values are appended in the order they are popped, and with
// parallel mappers the push order into the map-output queue is arbitrary.
//
// An intermediate key whose dynamic type is not hashable, such as a slice
// behind an interface key, fails the run with ErrUnhashableKey.
func (e *Engine[K, V, K2, V2, K3, V3]) shuffle() (groups int, err error) {
	e.reduceInput.Reset()

	defer func() {
		if r := recover(); r != nil {
			e.reduceInput.Reset()
			e.reduceTasks.Store(0)
			err = fmt.Errorf("%w: %v", ErrUnhashableKey, r)
		}
	}()

	grouped := make(map[K2][]V2)
	for {
		kv, ok := e.mapOutput.Pop()
		if !ok {
			break
		}
		grouped[kv.Key] = append(grouped[kv.Key], kv.Value)
	}

	for key, values := range grouped {
		e.reduceInput.Push(types.GroupedPair[K2, V2]{Key: key, Values: values})
		e.reduceTasks.Add(1)
	}

	return len(grouped), nil
}
