package journal

import (
	"sync"
	"sync/atomic"

	"LocalMR/internal/types"
)

// Recorder journals engine progress. It satisfies mapreduce.Observer.
//
// Completed tasks are counted locally and flushed with the phase or run
// entry; skips and failures are journaled one entry each.
//
// A Recorder holds the state of a single run, so it serves one engine at a
// time. Give each engine its own Recorder on a shared Cluster.
type Recorder struct {
	cluster   *Cluster
	mu        sync.RWMutex
	runID     string
	completed atomic.Int64
}

// NewRecorder creates a recorder appending to c.
func NewRecorder(c *Cluster) *Recorder {
	return &Recorder{cluster: c}
}

func (r *Recorder) currentRun() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runID
}

func (r *Recorder) append(entry *types.LogEntry) {
	if err := r.cluster.Append(entry); err != nil {
		r.cluster.logger.Warn("Failed to journal %s %s: run_id=%s error=%v", entry.Type, entry.Operation, entry.RunID, err)
	}
}

func (r *Recorder) RunStarted(runID string, mapTasks int) {
	r.mu.Lock()
	r.runID = runID
	r.mu.Unlock()
	r.completed.Store(0)

	r.append(&types.LogEntry{
		Type:      types.EntryRun,
		Operation: types.OpStart,
		RunID:     runID,
		Count:     mapTasks,
	})
}

func (r *Recorder) RunCompleted(runID string, results int, err error) {
	entry := &types.LogEntry{
		Type:      types.EntryRun,
		Operation: types.OpComplete,
		RunID:     runID,
		Count:     results,
		Completed: int(r.completed.Swap(0)),
	}
	if err != nil {
		entry.Operation = types.OpFail
		entry.Error = err.Error()
	}
	r.append(entry)
}

func (r *Recorder) PhaseStarted(phase types.Phase, tasks int) {
	r.append(&types.LogEntry{
		Type:      types.EntryPhase,
		Operation: types.OpStart,
		RunID:     r.currentRun(),
		Phase:     phase,
		Count:     tasks,
	})
}

func (r *Recorder) PhaseCompleted(phase types.Phase, tasks int) {
	r.append(&types.LogEntry{
		Type:      types.EntryPhase,
		Operation: types.OpComplete,
		RunID:     r.currentRun(),
		Phase:     phase,
		Count:     tasks,
		Completed: int(r.completed.Swap(0)),
	})
}

func (r *Recorder) TaskStarted(types.Phase, int) {}

func (r *Recorder) TaskCompleted(types.Phase, int) {
	r.completed.Add(1)
}

func (r *Recorder) TaskSkipped(phase types.Phase, task int) {
	r.append(&types.LogEntry{
		Type:      types.EntryTask,
		Operation: types.OpSkip,
		RunID:     r.currentRun(),
		Phase:     phase,
		Count:     task,
	})
}

func (r *Recorder) TaskFailed(phase types.Phase, task int, err error) {
	r.append(&types.LogEntry{
		Type:      types.EntryTask,
		Operation: types.OpFail,
		RunID:     r.currentRun(),
		Phase:     phase,
		Count:     task,
		Error:     err.Error(),
	})
}
