package journal

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	raft "github.com/hashicorp/raft"

	"LocalMR/internal/logger"
	"LocalMR/internal/types"
)

// FSM implements the Finite State Machine for Raft
// It folds journal entries into one RunRecord per run
type FSM struct {
	mu     sync.RWMutex
	state  *types.JournalState
	logger *logger.Logger
}

// NewFSM creates a new FSM with initial state
func NewFSM(lg *logger.Logger) *FSM {
	return &FSM{
		state:  newState(),
		logger: lg,
	}
}

func newState() *types.JournalState {
	return &types.JournalState{
		Runs: make(map[string]*types.RunRecord),
	}
}

// Apply implements raft.FSM - processes a log entry committed by Raft
func (f *FSM) Apply(log *raft.Log) interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()

	var entry types.LogEntry
	if err := json.Unmarshal(log.Data, &entry); err != nil {
		f.logger.Error("Failed to unmarshal log entry: %v", err)
		return fmt.Errorf("failed to unmarshal log entry: %w", err)
	}

	f.logger.Debug("Applying log entry: type=%s operation=%s run_id=%s", entry.Type, entry.Operation, entry.RunID)

	switch entry.Type {
	case types.EntryRun:
		return f.applyRunOperation(&entry)
	case types.EntryPhase:
		return f.applyPhaseOperation(&entry)
	case types.EntryTask:
		return f.applyTaskOperation(&entry)
	default:
		f.logger.Warn("Unknown log entry type: %s", entry.Type)
		return fmt.Errorf("unknown log entry type: %s", entry.Type)
	}
}

// applyRunOperation opens and closes run records
func (f *FSM) applyRunOperation(entry *types.LogEntry) interface{} {
	switch entry.Operation {
	case types.OpStart:
		if _, exists := f.state.Runs[entry.RunID]; exists {
			return fmt.Errorf("run already recorded: %s", entry.RunID)
		}

		f.state.Runs[entry.RunID] = &types.RunRecord{
			ID:       entry.RunID,
			Status:   types.RunRunning,
			Phase:    types.PhaseIdle,
			MapTasks: entry.Count,
			Started:  entry.Timestamp,
		}
		f.state.Order = append(f.state.Order, entry.RunID)
		f.state.Version++
		return "run_started"

	case types.OpComplete, types.OpFail:
		run, err := f.run(entry.RunID)
		if err != nil {
			return err
		}

		run.Status = types.RunCompleted
		if entry.Operation == types.OpFail {
			run.Status = types.RunFailed
			run.Error = entry.Error
		}
		run.Phase = types.PhaseIdle
		run.Results = entry.Count
		run.TasksCompleted += entry.Completed
		run.Finished = entry.Timestamp
		f.state.Version++
		f.logger.Info("Run %s: run_id=%s results=%d", run.Status, run.ID, run.Results)
		return "run_finished"

	default:
		f.logger.Warn("Unknown run operation: %s", entry.Operation)
		return fmt.Errorf("unknown run operation: %s", entry.Operation)
	}
}

// applyPhaseOperation tracks phase transitions and task counts
func (f *FSM) applyPhaseOperation(entry *types.LogEntry) interface{} {
	run, err := f.run(entry.RunID)
	if err != nil {
		return err
	}

	switch entry.Operation {
	case types.OpStart:
		run.Phase = entry.Phase
		switch entry.Phase {
		case types.PhaseMap:
			run.MapTasks = entry.Count
		case types.PhaseReduce:
			run.ReduceTasks = entry.Count
		}
		f.state.Version++
		return "phase_started"

	case types.OpComplete:
		run.TasksCompleted += entry.Completed
		f.state.Version++
		return "phase_completed"

	default:
		f.logger.Warn("Unknown phase operation: %s", entry.Operation)
		return fmt.Errorf("unknown phase operation: %s", entry.Operation)
	}
}

// applyTaskOperation records tasks that did not complete
func (f *FSM) applyTaskOperation(entry *types.LogEntry) interface{} {
	run, err := f.run(entry.RunID)
	if err != nil {
		return err
	}

	switch entry.Operation {
	case types.OpSkip:
		run.TasksSkipped++
		f.state.Version++
		return "task_skipped"

	case types.OpFail:
		run.TasksFailed++
		f.state.Version++
		f.logger.Debug("Task failed: run_id=%s phase=%s error=%s", entry.RunID, entry.Phase, entry.Error)
		return "task_failed"

	default:
		f.logger.Warn("Unknown task operation: %s", entry.Operation)
		return fmt.Errorf("unknown task operation: %s", entry.Operation)
	}
}

func (f *FSM) run(runID string) (*types.RunRecord, error) {
	run, exists := f.state.Runs[runID]
	if !exists {
		f.logger.Warn("Run not found: run_id=%s", runID)
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	return run, nil
}

// Snapshot implements raft.FSM - creates a snapshot of the current state
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return &snapshot{state: f.copyState()}, nil
}

// Restore implements raft.FSM - restores state from a snapshot
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	state := newState()
	if err := json.NewDecoder(rc).Decode(state); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if state.Runs == nil {
		state.Runs = make(map[string]*types.RunRecord)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
	return nil
}

// GetState returns a copy of the current journal state
func (f *FSM) GetState() *types.JournalState {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.copyState()
}

// GetRun returns a copy of one run record, or nil
func (f *FSM) GetRun(runID string) *types.RunRecord {
	f.mu.RLock()
	defer f.mu.RUnlock()

	run, ok := f.state.Runs[runID]
	if !ok {
		return nil
	}
	cp := *run
	return &cp
}

// Runs returns copies of every run record in the order the runs started
func (f *FSM) Runs() []*types.RunRecord {
	f.mu.RLock()
	defer f.mu.RUnlock()

	runs := make([]*types.RunRecord, 0, len(f.state.Order))
	for _, id := range f.state.Order {
		cp := *f.state.Runs[id]
		runs = append(runs, &cp)
	}
	return runs
}

// copyState must be called with f.mu held
func (f *FSM) copyState() *types.JournalState {
	stateCopy := &types.JournalState{
		Runs:    make(map[string]*types.RunRecord, len(f.state.Runs)),
		Order:   append([]string(nil), f.state.Order...),
		Version: f.state.Version,
	}

	for k, v := range f.state.Runs {
		cp := *v
		stateCopy.Runs[k] = &cp
	}

	return stateCopy
}

// snapshot implements raft.FSMSnapshot
type snapshot struct {
	state *types.JournalState
}

// Persist writes the snapshot to a sink
func (s *snapshot) Persist(sink raft.SnapshotSink) error {
	data, err := json.Marshal(s.state)
	if err != nil {
		sink.Cancel()
		return err
	}

	if _, err := sink.Write(data); err != nil {
		sink.Cancel()
		return err
	}

	return sink.Close()
}

// Release is called when we are done with the snapshot
func (s *snapshot) Release() {}
