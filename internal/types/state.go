package types

import "time"

// RunStatus represents the status of a pipeline run
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunRecord is the journal's view of a single Run.
// TasksSkipped includes tasks abandoned after a fail-fast abort, so for the
// phase that failed completed, failed and skipped tasks add up to its task count.
type RunRecord struct {
	ID             string    `json:"id"`
	Status         RunStatus `json:"status"`
	Phase          Phase     `json:"phase"`
	MapTasks       int       `json:"map_tasks"`
	ReduceTasks    int       `json:"reduce_tasks"`
	TasksCompleted int       `json:"tasks_completed"`
	TasksSkipped   int       `json:"tasks_skipped"`
	TasksFailed    int       `json:"tasks_failed"`
	Results        int       `json:"results"`
	Error          string    `json:"error,omitempty"`
	Started        time.Time `json:"started"`
	Finished       time.Time `json:"finished,omitempty"`
}

// JournalState represents the state shared through the journal log
type JournalState struct {
	Runs    map[string]*RunRecord `json:"runs"`
	Order   []string              `json:"order"`
	Version int64                 `json:"version"`
}

// Entry types
const (
	EntryRun   = "run"
	EntryPhase = "phase"
	EntryTask  = "task"
)

// Entry operations
const (
	OpStart    = "start"
	OpComplete = "complete"
	OpSkip     = "skip"
	OpFail     = "fail"
)

// LogEntry represents an entry in the journal log
type LogEntry struct {
	Type      string    `json:"type"`      // "run", "phase", "task"
	Operation string    `json:"operation"` // "start", "complete", "skip", "fail"
	RunID     string    `json:"run_id"`
	Phase     Phase     `json:"phase,omitempty"`
	Count     int       `json:"count"`
	Completed int       `json:"completed"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
