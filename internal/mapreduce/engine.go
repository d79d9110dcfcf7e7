package mapreduce

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"LocalMR/internal/queue"
	"LocalMR/internal/types"
)

// MapFunc transforms one input pair into zero or more intermediate pairs.
type MapFunc[K, V any, K2 comparable, V2 any] func(types.InputPair[K, V]) ([]types.MapOutputPair[K2, V2], error)

// ReduceFunc transforms one group into exactly one result pair.
type ReduceFunc[K2 comparable, V2, K3, V3 any] func(types.GroupedPair[K2, V2]) (types.ResultPair[K3, V3], error)

// Config holds the engine's tunables.
type Config struct {
	// Workers bounds the number of concurrently running units in parallel
	// mode. Zero or less means runtime.GOMAXPROCS(0).
	Workers int

	// IsolateFailures keeps a run going when a map or reduce function fails.
	// Failed tasks are dropped and Run returns every failure once all three
	// phases have finished.
	IsolateFailures bool

	// Observer receives progress events. Nil means NopObserver.
	Observer Observer
}

// Engine is the in-memory MapReduce execution engine. Input is pushed while
// the engine is idle; Run then executes map, shuffle and reduce in order.
// Run must not be called concurrently.
type Engine[K, V any, K2 comparable, V2, K3, V3 any] struct {
	mapFn    MapFunc[K, V, K2, V2]
	reduceFn ReduceFunc[K2, V2, K3, V3]
	cfg      Config

	initOnce    sync.Once
	mapInput    *queue.Queue[types.InputPair[K, V]]
	mapOutput   *queue.Queue[types.MapOutputPair[K2, V2]]
	reduceInput *queue.Queue[types.GroupedPair[K2, V2]]

	mapTasks    atomic.Int64
	reduceTasks atomic.Int64
	state       atomic.Value // types.Phase
	running     atomic.Bool

	results  *ResultSet[K3, V3]
	lastRun  string
	failMu   sync.Mutex
	failures *multierror.Error
}

// New creates an engine for the given map and reduce functions.
func New[K, V any, K2 comparable, V2, K3, V3 any](
	mapFn MapFunc[K, V, K2, V2],
	reduceFn ReduceFunc[K2, V2, K3, V3],
	cfg Config,
) (*Engine[K, V, K2, V2, K3, V3], error) {
	e := &Engine[K, V, K2, V2, K3, V3]{
		mapFn:    mapFn,
		reduceFn: reduceFn,
		cfg:      cfg,
	}

	if err := e.validate(); err != nil {
		return nil, err
	}

	e.init()
	return e, nil
}

func (e *Engine[K, V, K2, V2, K3, V3]) init() {
	e.initOnce.Do(func() {
		e.mapInput = queue.New[types.InputPair[K, V]]()
		e.mapOutput = queue.New[types.MapOutputPair[K2, V2]]()
		e.reduceInput = queue.New[types.GroupedPair[K2, V2]]()
	})
}

func (e *Engine[K, V, K2, V2, K3, V3]) validate() error {
	if e.mapFn == nil {
		return fmt.Errorf("%w: map function is nil", ErrMisconfigured)
	}
	if e.reduceFn == nil {
		return fmt.Errorf("%w: reduce function is nil", ErrMisconfigured)
	}
	return nil
}

func (e *Engine[K, V, K2, V2, K3, V3]) observer() Observer {
	if e.cfg.Observer == nil {
		return NopObserver{}
	}
	return e.cfg.Observer
}

func (e *Engine[K, V, K2, V2, K3, V3]) workers() int {
	if e.cfg.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return e.cfg.Workers
}

// PushInput enqueues one input pair and schedules one more map task.
// It must only be called while no Run is in flight.
func (e *Engine[K, V, K2, V2, K3, V3]) PushInput(key K, value V) {
	e.Push(types.InputPair[K, V]{Key: key, Value: value})
}

// Push enqueues p and schedules one more map task.
func (e *Engine[K, V, K2, V2, K3, V3]) Push(p types.InputPair[K, V]) {
	e.init()
	e.mapInput.Push(p)
	e.mapTasks.Add(1)
}

// Run executes the pipeline with sequential map and reduce phases.
func (e *Engine[K, V, K2, V2, K3, V3]) Run() error {
	return e.RunWith(false, false)
}

// RunWith executes map, shuffle and reduce once, blocking until all three
// phases have finished. Map and reduce each run either sequentially or as a
// parallel batch; shuffle is always sequential.
func (e *Engine[K, V, K2, V2, K3, V3]) RunWith(parallelMap, parallelReduce bool) (err error) {
	if err := e.validate(); err != nil {
		return err
	}

	if !e.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	defer e.running.Store(false)

	e.init()

	runID := uuid.New().String()
	results := newResultSet[K3, V3]()
	e.results = results
	e.lastRun = runID
	e.failMu.Lock()
	e.failures = nil
	e.failMu.Unlock()

	obs := e.observer()
	obs.RunStarted(runID, e.MapTasks())

	defer func() {
		if err != nil {
			// A failed run leaves nothing usable behind for the next one.
			e.mapInput.Reset()
			e.mapOutput.Reset()
			e.reduceInput.Reset()
		}
		e.mapTasks.Store(0)
		e.reduceTasks.Store(0)
		e.state.Store(types.PhaseIdle)
		obs.RunCompleted(runID, results.Len(), err)
	}()

	mapTasks := e.MapTasks()
	e.state.Store(types.PhaseMap)
	obs.PhaseStarted(types.PhaseMap, mapTasks)
	if err := e.runMaps(parallelMap, mapTasks); err != nil {
		return err
	}
	obs.PhaseCompleted(types.PhaseMap, mapTasks)

	e.state.Store(types.PhaseShuffle)
	obs.PhaseStarted(types.PhaseShuffle, 0)
	groups, err := e.shuffle()
	if err != nil {
		return err
	}
	obs.PhaseCompleted(types.PhaseShuffle, groups)

	reduceTasks := e.ReduceTasks()
	e.state.Store(types.PhaseReduce)
	obs.PhaseStarted(types.PhaseReduce, reduceTasks)
	if err := e.runReduces(parallelReduce, reduceTasks); err != nil {
		return err
	}
	obs.PhaseCompleted(types.PhaseReduce, reduceTasks)

	e.failMu.Lock()
	defer e.failMu.Unlock()
	return e.failures.ErrorOrNil()
}

// GetResults returns the results of the most recent Run in no particular
// order. It returns nil before the first Run.
func (e *Engine[K, V, K2, V2, K3, V3]) GetResults() []types.ResultPair[K3, V3] {
	return e.results.Pairs()
}

// LastRunID returns the identifier assigned to the most recent Run.
func (e *Engine[K, V, K2, V2, K3, V3]) LastRunID() string {
	return e.lastRun
}

// MapTasks returns the number of map tasks scheduled for the next Run.
func (e *Engine[K, V, K2, V2, K3, V3]) MapTasks() int {
	return int(e.mapTasks.Load())
}

// ReduceTasks returns the number of groups produced by the current shuffle.
func (e *Engine[K, V, K2, V2, K3, V3]) ReduceTasks() int {
	return int(e.reduceTasks.Load())
}

// State returns the phase the engine is currently executing.
func (e *Engine[K, V, K2, V2, K3, V3]) State() types.Phase {
	if p, ok := e.state.Load().(types.Phase); ok {
		return p
	}
	return types.PhaseIdle
}
