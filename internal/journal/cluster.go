package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	raft "github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb/v2"

	"LocalMR/internal/logger"
	"LocalMR/internal/types"
)

const defaultApplyTimeout = 5 * time.Second

// Cluster is a single-node Raft log that journals pipeline runs
type Cluster struct {
	nodeID        string
	raft          *raft.Raft
	fsm           *FSM
	logStore      raft.LogStore
	stableStore   raft.StableStore
	snapshotStore raft.SnapshotStore
	transport     raft.Transport
	applyTimeout  time.Duration
	logger        *logger.Logger
}

// Config for creating a new journal
type Config struct {
	NodeID       string        // Node identifier, defaults to "journal"
	DataDir      string        // Directory for bolt stores and snapshots; empty keeps everything in memory
	ApplyTimeout time.Duration // Timeout for a single append
	RaftOutput   io.Writer     // Destination for raft's own log output; nil discards it
	Logger       *logger.Logger
}

// NewCluster creates the journal and waits for it to become leader
func NewCluster(cfg Config) (*Cluster, error) {
	if cfg.NodeID == "" {
		cfg.NodeID = "journal"
	}
	if cfg.ApplyTimeout <= 0 {
		cfg.ApplyTimeout = defaultApplyTimeout
	}
	if cfg.RaftOutput == nil {
		cfg.RaftOutput = io.Discard
	}

	lg := cfg.Logger
	if lg == nil {
		lg = logger.New("INFO")
	}
	lg = lg.With("journal")
	lg.Info("Initializing journal: node_id=%s data_dir=%q", cfg.NodeID, cfg.DataDir)

	c := &Cluster{
		nodeID:       cfg.NodeID,
		fsm:          NewFSM(lg),
		applyTimeout: cfg.ApplyTimeout,
		logger:       lg,
	}

	if err := c.openStores(cfg); err != nil {
		c.closeStores()
		return nil, err
	}

	addr, transport := raft.NewInmemTransport(raft.ServerAddress(cfg.NodeID))
	c.transport = transport

	raftCfg := raft.DefaultConfig()
	raftCfg.LocalID = raft.ServerID(cfg.NodeID)
	raftCfg.HeartbeatTimeout = 200 * time.Millisecond
	raftCfg.ElectionTimeout = 200 * time.Millisecond
	raftCfg.LeaderLeaseTimeout = 100 * time.Millisecond
	raftCfg.CommitTimeout = 5 * time.Millisecond
	raftCfg.SnapshotThreshold = 1024
	raftCfg.LogOutput = cfg.RaftOutput

	existing, err := raft.HasExistingState(c.logStore, c.stableStore, c.snapshotStore)
	if err != nil {
		c.closeStores()
		return nil, fmt.Errorf("failed to inspect journal state: %w", err)
	}

	r, err := raft.NewRaft(raftCfg, c.fsm, c.logStore, c.stableStore, c.snapshotStore, transport)
	if err != nil {
		lg.Error("Failed to create raft instance: %v", err)
		c.closeStores()
		return nil, fmt.Errorf("failed to create raft: %w", err)
	}
	c.raft = r

	if !existing {
		configuration := raft.Configuration{
			Servers: []raft.Server{
				{
					Suffrage: raft.Voter,
					ID:       raft.ServerID(cfg.NodeID),
					Address:  addr,
				},
			},
		}
		if err := c.raft.BootstrapCluster(configuration).Error(); err != nil {
			lg.Error("Failed to bootstrap journal: %v", err)
			c.Close()
			return nil, fmt.Errorf("failed to bootstrap journal: %w", err)
		}
	}

	if err := c.WaitForLeader(5 * time.Second); err != nil {
		c.Close()
		return nil, err
	}

	lg.Info("Journal ready: node_id=%s restored=%v", cfg.NodeID, existing)
	return c, nil
}

func (c *Cluster) openStores(cfg Config) error {
	if cfg.DataDir == "" {
		store := raft.NewInmemStore()
		c.logStore = store
		c.stableStore = store
		c.snapshotStore = raft.NewInmemSnapshotStore()
		return nil
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		c.logger.Error("Failed to create data directory: %v", err)
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "journal-logs.db"))
	if err != nil {
		c.logger.Error("Failed to create log store: %v", err)
		return fmt.Errorf("failed to create log store: %w", err)
	}
	c.logStore = logStore

	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "journal-stable.db"))
	if err != nil {
		c.logger.Error("Failed to create stable store: %v", err)
		return fmt.Errorf("failed to create stable store: %w", err)
	}
	c.stableStore = stableStore

	snapshotStore, err := raft.NewFileSnapshotStore(cfg.DataDir, 3, cfg.RaftOutput)
	if err != nil {
		c.logger.Error("Failed to create snapshot store: %v", err)
		return fmt.Errorf("failed to create snapshot store: %w", err)
	}
	c.snapshotStore = snapshotStore
	return nil
}

// IsLeader returns true if this node is the current leader
func (c *Cluster) IsLeader() bool {
	return c.raft.State() == raft.Leader
}

// WaitForLeader waits until the node has won its election
func (c *Cluster) WaitForLeader(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if c.IsLeader() {
			return nil
		}
		time.Sleep(20 * time.Millisecond)
	}

	return fmt.Errorf("journal did not become leader within %v", timeout)
}

// Append replicates an entry and applies it to the state machine
func (c *Cluster) Append(entry *types.LogEntry) error {
	if !c.IsLeader() {
		return fmt.Errorf("journal is not the leader")
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	f := c.raft.Apply(data, c.applyTimeout)
	if err := f.Error(); err != nil {
		return fmt.Errorf("failed to apply log: %w", err)
	}

	if err, ok := f.Response().(error); ok {
		return err
	}

	return nil
}

// Sync blocks until every appended entry has been applied to the FSM
func (c *Cluster) Sync() error {
	return c.raft.Barrier(c.applyTimeout).Error()
}

// Snapshot writes the journal state to the snapshot store. A journal that
// has applied nothing yet is left as it is.
func (c *Cluster) Snapshot() error {
	err := c.raft.Snapshot().Error()
	if errors.Is(err, raft.ErrNothingNewToSnapshot) {
		c.logger.Debug("Snapshot skipped: nothing applied yet")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to snapshot journal: %w", err)
	}
	c.logger.Info("Journal snapshot taken: version=%d", c.fsm.GetState().Version)
	return nil
}

// Runs returns every journaled run, oldest first
func (c *Cluster) Runs() []*types.RunRecord {
	return c.fsm.Runs()
}

// Run returns the record for runID, or nil
func (c *Cluster) Run(runID string) *types.RunRecord {
	return c.fsm.GetRun(runID)
}

// GetState returns the current journal state
func (c *Cluster) GetState() *types.JournalState {
	return c.fsm.GetState()
}

// Stats reports the raft indexes that describe how much of the journal is
// held in the log and how much in the latest snapshot.
func (c *Cluster) Stats() map[string]string {
	raw := c.raft.Stats()
	return map[string]string{
		"state":               raw["state"],
		"last_log_index":      raw["last_log_index"],
		"applied_index":       raw["applied_index"],
		"last_snapshot_index": raw["last_snapshot_index"],
	}
}

// Close shuts down the Raft node and its stores
func (c *Cluster) Close() error {
	if c.raft != nil {
		if err := c.raft.Shutdown().Error(); err != nil {
			return err
		}
	}

	if closer, ok := c.transport.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return err
		}
	}

	return c.closeStores()
}

func (c *Cluster) closeStores() error {
	if closer, ok := c.logStore.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return err
		}
	}

	if closer, ok := c.stableStore.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return err
		}
	}

	return nil
}
