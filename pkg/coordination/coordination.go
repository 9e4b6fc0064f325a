package coordination

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"

	"github.com/neerajsharma26/resumerank/pkg/log"
	"github.com/neerajsharma26/resumerank/pkg/metrics"
)

// Config configures a Coordinator. BindAddr is this process's Raft
// transport address (host:port); Peers lists every voter's BindAddr,
// including this one, for the initial single-shot bootstrap.
type Config struct {
	NodeID  string
	BindAddr string
	DataDir  string
	Peers    []string
}

// Coordinator wraps a Raft instance used only for leader election among
// resumerank processes sharing one State Store, stripped of every
// cluster-data concern: no FSM command dispatch, no snapshot of
// application state, just raft.Raft's leadership primitive.
type Coordinator struct {
	raft *raft.Raft
	fsm  *noopFSM
}

// New bootstraps (or rejoins) a Raft cluster purely for leadership.
func New(cfg Config) (*Coordinator, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create coordination data dir: %w", err)
	}

	raftConfig := raft.DefaultConfig()
	raftConfig.LocalID = raft.ServerID(cfg.NodeID)
	raftConfig.HeartbeatTimeout = 1 * time.Second
	raftConfig.ElectionTimeout = 1 * time.Second
	raftConfig.CommitTimeout = 200 * time.Millisecond
	raftConfig.LeaderLeaseTimeout = 500 * time.Millisecond

	addr, err := net.ResolveTCPAddr("tcp", cfg.BindAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve bind addr: %w", err)
	}
	transport, err := raft.NewTCPTransport(cfg.BindAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("create raft transport: %w", err)
	}

	snapshots, err := raft.NewFileSnapshotStore(cfg.DataDir, 1, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("create snapshot store: %w", err)
	}

	boltPath := filepath.Join(cfg.DataDir, "coordination.bolt")
	logStore, err := raftboltdb.NewBoltStore(boltPath)
	if err != nil {
		return nil, fmt.Errorf("create raft log store: %w", err)
	}

	fsm := &noopFSM{}
	r, err := raft.NewRaft(raftConfig, fsm, logStore, logStore, snapshots, transport)
	if err != nil {
		return nil, fmt.Errorf("create raft node: %w", err)
	}

	servers := make([]raft.Server, 0, len(cfg.Peers))
	for _, peer := range cfg.Peers {
		servers = append(servers, raft.Server{
			ID:      raft.ServerID(peer),
			Address: raft.ServerAddress(peer),
		})
	}
	if len(servers) == 0 {
		servers = append(servers, raft.Server{ID: raftConfig.LocalID, Address: transport.LocalAddr()})
	}
	r.BootstrapCluster(raft.Configuration{Servers: servers})

	return &Coordinator{raft: r, fsm: fsm}, nil
}

// IsLeader reports whether this process currently holds Raft leadership. It
// satisfies pkg/supervisor.IsLeader.
func (c *Coordinator) IsLeader() bool {
	leader := c.raft.State() == raft.Leader
	if leader {
		metrics.CoordinationLeader.Set(1)
	} else {
		metrics.CoordinationLeader.Set(0)
	}
	return leader
}

// Heartbeat appends a no-op log entry, keeping the Raft log (and therefore
// leadership lease renewal) active even when no batch work is happening.
// Safe to call from a follower; it is then simply ignored.
func (c *Coordinator) Heartbeat(nodeID string) {
	if !c.IsLeader() {
		return
	}
	payload, err := encodeHeartbeat(nodeID)
	if err != nil {
		return
	}
	future := c.raft.Apply(payload, 2*time.Second)
	if err := future.Error(); err != nil {
		log.WithComponent("coordination").Warn().Err(err).Msg("heartbeat apply failed")
	}
}

// Shutdown releases the Raft node.
func (c *Coordinator) Shutdown() error {
	return c.raft.Shutdown().Error()
}
