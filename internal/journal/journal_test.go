package journal

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	raft "github.com/hashicorp/raft"

	"LocalMR/internal/logger"
	"LocalMR/internal/mapreduce"
	"LocalMR/internal/types"
)

func quietLogger() *logger.Logger {
	return logger.NewWithWriter("ERROR", io.Discard)
}

func newTestCluster(t *testing.T, dataDir string) *Cluster {
	t.Helper()
	c, err := NewCluster(Config{NodeID: "journal-test", DataDir: dataDir, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("Failed to create journal: %v", err)
	}
	return c
}

func wordCount(t *testing.T, obs mapreduce.Observer, failOn string) *mapreduce.Engine[string, string, string, int, string, int] {
	t.Helper()

	mapFn := func(in types.InputPair[string, string]) ([]types.MapOutputPair[string, int], error) {
		if in.Key == failOn {
			return nil, errors.New("unreadable document")
		}
		var out []types.MapOutputPair[string, int]
		for _, w := range strings.Fields(in.Value) {
			out = append(out, types.MapOutputPair[string, int]{Key: w, Value: 1})
		}
		return out, nil
	}
	reduceFn := func(g types.GroupedPair[string, int]) (types.ResultPair[string, int], error) {
		return types.ResultPair[string, int]{Key: g.Key, Value: len(g.Values)}, nil
	}

	e, err := mapreduce.New(mapFn, reduceFn, mapreduce.Config{Observer: obs, Workers: 2})
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	e.PushInput("doc1", "the cat sat")
	e.PushInput("doc2", "the dog sat")
	return e
}

// TestJournalSingleNodeLeader tests that a fresh journal elects itself
func TestJournalSingleNodeLeader(t *testing.T) {
	c := newTestCluster(t, "")
	defer c.Close()

	if !c.IsLeader() {
		t.Fatalf("Journal should be leader after NewCluster returns")
	}
	if len(c.Runs()) != 0 {
		t.Fatalf("Fresh journal should have no runs")
	}
}

func TestRecorderTracksCompletedRun(t *testing.T) {
	c := newTestCluster(t, "")
	defer c.Close()

	e := wordCount(t, NewRecorder(c), "")
	if err := e.RunWith(true, true); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err := c.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	run := c.Run(e.LastRunID())
	if run == nil {
		t.Fatalf("Run %s not journaled", e.LastRunID())
	}

	if run.Status != types.RunCompleted {
		t.Fatalf("Expected completed status, got %s", run.Status)
	}
	if run.MapTasks != 2 || run.ReduceTasks != 4 {
		t.Fatalf("Task counts mismatch: map=%d reduce=%d", run.MapTasks, run.ReduceTasks)
	}
	if run.TasksCompleted != 6 {
		t.Fatalf("Expected 6 completed tasks, got %d", run.TasksCompleted)
	}
	if run.Results != 4 || run.Phase != types.PhaseIdle {
		t.Fatalf("Unexpected final record: %+v", run)
	}
	if run.Finished.Before(run.Started) {
		t.Fatalf("Finish time precedes start time")
	}
}

func TestRecorderTracksFailedRun(t *testing.T) {
	c := newTestCluster(t, "")
	defer c.Close()

	e := wordCount(t, NewRecorder(c), "doc2")
	if err := e.Run(); err == nil {
		t.Fatalf("Run should fail")
	}
	if err := c.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	runs := c.Runs()
	if len(runs) != 1 {
		t.Fatalf("Expected one run, got %d", len(runs))
	}

	run := runs[0]
	if run.Status != types.RunFailed {
		t.Fatalf("Expected failed status, got %s", run.Status)
	}
	if run.TasksFailed != 1 {
		t.Fatalf("Expected one failed task, got %d", run.TasksFailed)
	}
	if !strings.Contains(run.Error, "unreadable document") {
		t.Fatalf("Run error not journaled: %q", run.Error)
	}
}

func TestJournalRejectsUnknownEntries(t *testing.T) {
	c := newTestCluster(t, "")
	defer c.Close()

	if err := c.Append(&types.LogEntry{Type: "bogus", RunID: "x"}); err == nil {
		t.Fatalf("Unknown entry type should be rejected")
	}
	if err := c.Append(&types.LogEntry{Type: types.EntryPhase, Operation: types.OpStart, RunID: "missing"}); err == nil {
		t.Fatalf("Phase entry for an unknown run should be rejected")
	}
}

func TestJournalPersistsAcrossRestart(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "journal")

	c := newTestCluster(t, dataDir)
	e := wordCount(t, NewRecorder(c), "")
	if err := e.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	runID := e.LastRunID()
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := newTestCluster(t, dataDir)
	defer reopened.Close()

	if err := reopened.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	run := reopened.Run(runID)
	if run == nil {
		t.Fatalf("Run %s lost across restart", runID)
	}
	if run.Status != types.RunCompleted || run.Results != 4 {
		t.Fatalf("Restored record mismatch: %+v", run)
	}
}

func TestJournalRestoresFromSnapshot(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "journal")

	c := newTestCluster(t, dataDir)
	first := wordCount(t, NewRecorder(c), "")
	if err := first.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if err := c.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if err := c.Snapshot(); err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if idx := c.Stats()["last_snapshot_index"]; idx == "" || idx == "0" {
		t.Fatalf("Expected a snapshot index, got %q", idx)
	}
	version := c.GetState().Version

	// Entries appended after the snapshot are replayed from the log.
	second := wordCount(t, NewRecorder(c), "doc1")
	if err := second.Run(); err == nil {
		t.Fatalf("Second run should fail")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := newTestCluster(t, dataDir)
	defer reopened.Close()
	if err := reopened.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if reopened.GetState().Version <= version {
		t.Fatalf("Expected entries after the snapshot to be replayed, version=%d", reopened.GetState().Version)
	}

	runs := reopened.Runs()
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs after restore, got %d", len(runs))
	}
	if runs[0].ID != first.LastRunID() || runs[0].Status != types.RunCompleted {
		t.Fatalf("Snapshotted run mismatch: %+v", runs[0])
	}
	if runs[1].ID != second.LastRunID() || runs[1].Status != types.RunFailed {
		t.Fatalf("Replayed run mismatch: %+v", runs[1])
	}
}

// Tasks abandoned by a fail-fast abort still show up in the record.
func TestRecorderAccountsForAbandonedTasks(t *testing.T) {
	c := newTestCluster(t, "")
	defer c.Close()

	e := wordCount(t, NewRecorder(c), "doc1")
	e.PushInput("doc3", "a b")
	if err := e.Run(); err == nil {
		t.Fatalf("Run should fail")
	}
	if err := c.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	run := c.Run(e.LastRunID())
	if run == nil {
		t.Fatalf("Run %s not journaled", e.LastRunID())
	}
	if run.TasksFailed != 1 || run.TasksSkipped != 2 || run.TasksCompleted != 0 {
		t.Fatalf("Task accounting mismatch: %+v", run)
	}
	if run.TasksCompleted+run.TasksFailed+run.TasksSkipped != run.MapTasks {
		t.Fatalf("Tasks do not add up to map_tasks: %+v", run)
	}
}

type bufferSink struct {
	bytes.Buffer
	cancelled bool
}

func (s *bufferSink) ID() string   { return "test" }
func (s *bufferSink) Close() error { return nil }

func (s *bufferSink) Cancel() error {
	s.cancelled = true
	return nil
}

func TestFSMSnapshotRestore(t *testing.T) {
	fsm := NewFSM(quietLogger())

	entries := []types.LogEntry{
		{Type: types.EntryRun, Operation: types.OpStart, RunID: "r1", Count: 3},
		{Type: types.EntryPhase, Operation: types.OpStart, RunID: "r1", Phase: types.PhaseReduce, Count: 2},
		{Type: types.EntryTask, Operation: types.OpSkip, RunID: "r1", Phase: types.PhaseMap},
		{Type: types.EntryRun, Operation: types.OpComplete, RunID: "r1", Count: 2, Completed: 5},
	}
	for i, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if resp := fsm.Apply(&raft.Log{Index: uint64(i + 1), Data: data}); resp != nil {
			if err, ok := resp.(error); ok {
				t.Fatalf("Apply %d failed: %v", i, err)
			}
		}
	}

	snap, err := fsm.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	sink := &bufferSink{}
	if err := snap.Persist(sink); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	snap.Release()

	restored := NewFSM(quietLogger())
	if err := restored.Restore(io.NopCloser(bytes.NewReader(sink.Bytes()))); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	run := restored.GetRun("r1")
	if run == nil {
		t.Fatalf("Run missing after restore")
	}
	if run.MapTasks != 3 || run.ReduceTasks != 2 || run.TasksSkipped != 1 || run.TasksCompleted != 5 {
		t.Fatalf("Restored record mismatch: %+v", run)
	}
	if restored.GetState().Version != fsm.GetState().Version {
		t.Fatalf("Version mismatch after restore")
	}
}
