package coordination

import (
	"encoding/json"
	"io"

	"github.com/hashicorp/raft"
)

// noopFSM carries no application state through Raft: the engine's durable
// state lives entirely in the Postgres-backed State Store (spec.md §4.3),
// not in the Raft log. Raft is wired in purely for its leadership
// primitive, so Apply/Snapshot/Restore are intentionally inert rather
// than dispatching cluster mutations through Apply.
type noopFSM struct{}

// Apply accepts every log entry without interpreting it. A heartbeat
// command is appended only when Coordinator.Heartbeat is called on the
// leader; no code in this repository calls it.
func (f *noopFSM) Apply(log *raft.Log) interface{} {
	return nil
}

func (f *noopFSM) Snapshot() (raft.FSMSnapshot, error) {
	return &noopSnapshot{}, nil
}

func (f *noopFSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()
	return nil
}

type noopSnapshot struct{}

func (s *noopSnapshot) Persist(sink raft.SnapshotSink) error {
	_, err := sink.Write([]byte("{}"))
	if err != nil {
		sink.Cancel()
		return err
	}
	return sink.Close()
}

func (s *noopSnapshot) Release() {}

// heartbeatCommand is the entry Coordinator.Heartbeat appends; its payload
// is never interpreted by Apply.
type heartbeatCommand struct {
	NodeID string `json:"node_id"`
}

func encodeHeartbeat(nodeID string) ([]byte, error) {
	return json.Marshal(heartbeatCommand{NodeID: nodeID})
}
