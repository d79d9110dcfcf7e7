package mapreduce

import (
	"LocalMR/internal/logger"
	"LocalMR/internal/types"
)

// Observer receives progress events from an Engine. Task methods may be
// called concurrently from parallel work units.
//
// TaskSkipped covers both a unit that found its queue already drained and a
// task abandoned after a fail-fast abort.
type Observer interface {
	RunStarted(runID string, mapTasks int)
	RunCompleted(runID string, results int, err error)
	PhaseStarted(phase types.Phase, tasks int)
	PhaseCompleted(phase types.Phase, tasks int)
	TaskStarted(phase types.Phase, task int)
	TaskCompleted(phase types.Phase, task int)
	TaskSkipped(phase types.Phase, task int)
	TaskFailed(phase types.Phase, task int, err error)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) RunStarted(string, int) {}
func (NopObserver) RunCompleted(string, int, error) {}
func (NopObserver) PhaseStarted(types.Phase, int) {}
func (NopObserver) PhaseCompleted(types.Phase, int) {}
func (NopObserver) TaskStarted(types.Phase, int) {}
func (NopObserver) TaskCompleted(types.Phase, int) {}
func (NopObserver) TaskSkipped(types.Phase, int) {}
func (NopObserver) TaskFailed(types.Phase, int, error) {}

// Observers fans each event out to every member in order.
type Observers []Observer

func (o Observers) RunStarted(runID string, mapTasks int) {
	for _, obs := range o {
		obs.RunStarted(runID, mapTasks)
	}
}

func (o Observers) RunCompleted(runID string, results int, err error) {
	for _, obs := range o {
		obs.RunCompleted(runID, results, err)
	}
}

func (o Observers) PhaseStarted(phase types.Phase, tasks int) {
	for _, obs := range o {
		obs.PhaseStarted(phase, tasks)
	}
}

func (o Observers) PhaseCompleted(phase types.Phase, tasks int) {
	for _, obs := range o {
		obs.PhaseCompleted(phase, tasks)
	}
}

func (o Observers) TaskStarted(phase types.Phase, task int) {
	for _, obs := range o {
		obs.TaskStarted(phase, task)
	}
}

func (o Observers) TaskCompleted(phase types.Phase, task int) {
	for _, obs := range o {
		obs.TaskCompleted(phase, task)
	}
}

func (o Observers) TaskSkipped(phase types.Phase, task int) {
	for _, obs := range o {
		obs.TaskSkipped(phase, task)
	}
}

func (o Observers) TaskFailed(phase types.Phase, task int, err error) {
	for _, obs := range o {
		obs.TaskFailed(phase, task, err)
	}
}

// LogObserver writes engine progress to a logger.
type LogObserver struct {
	log *logger.Logger
}

// NewLogObserver creates an observer that reports through lg.
func NewLogObserver(lg *logger.Logger) *LogObserver {
	return &LogObserver{log: lg.With("mapreduce")}
}

func (l *LogObserver) RunStarted(runID string, mapTasks int) {
	l.log.Info("Run started: run_id=%s map_tasks=%d", runID, mapTasks)
}

func (l *LogObserver) RunCompleted(runID string, results int, err error) {
	if err != nil {
		l.log.Error("Run failed: run_id=%s results=%d error=%v", runID, results, err)
		return
	}
	l.log.Info("Run completed: run_id=%s results=%d", runID, results)
}

func (l *LogObserver) PhaseStarted(phase types.Phase, tasks int) {
	l.log.Info("Scheduling %s phase: tasks=%d", phase, tasks)
}

func (l *LogObserver) PhaseCompleted(phase types.Phase, tasks int) {
	l.log.Info("%s phase completed: tasks=%d", phase, tasks)
}

func (l *LogObserver) TaskStarted(phase types.Phase, task int) {
	l.log.Debug("Running %s task %d", phase, task)
}

func (l *LogObserver) TaskCompleted(phase types.Phase, task int) {
	l.log.Debug("Finished %s task %d", phase, task)
}

func (l *LogObserver) TaskSkipped(phase types.Phase, task int) {
	l.log.Warn("Skipping %s task %d", phase, task)
}

func (l *LogObserver) TaskFailed(phase types.Phase, task int, err error) {
	l.log.Error("%s task %d failed: %v", phase, task, err)
}
