// Package raft implements the consensus core of a replicated state machine
// cluster: per-node role state, peer RPC dispatch, the leader's replication
// engine, and the commit/apply pipeline. Transport, persistence, and the
// client-facing router are external collaborators reached only through the
// interfaces in this file.
package raft

import "fmt"

// Role is exactly one of Follower, Candidate, or Leader.
type Role int

const (
	Follower Role = iota
	Candidate
	Leader
)

func (r Role) String() string {
	switch r {
	case Follower:
		return "follower"
	case Candidate:
		return "candidate"
	case Leader:
		return "leader"
	default:
		return "unknown"
	}
}

// CommandType tags the vocabulary the external state machine understands.
type CommandType string

const (
	NewUser      CommandType = "NEW_USER"
	NewAuction   CommandType = "NEW_AUCTION"
	CloseAuction CommandType = "CLOSE_AUCTION"
	NewBid       CommandType = "NEW_BID"
)

// CompletionHandle is the one-shot notifier returned to a submitter. It is
// populated exclusively on the leader that accepted the command; replicated
// copies of the LogRecord on followers carry no handle.
type CompletionHandle struct {
	done   chan struct{}
	result interface{}
	err    error
}

func newCompletionHandle() *CompletionHandle {
	return &CompletionHandle{done: make(chan struct{})}
}

// fulfill resolves the handle exactly once. Subsequent calls are no-ops.
func (h *CompletionHandle) fulfill(result interface{}, err error) {
	select {
	case <-h.done:
		return
	default:
	}
	h.result = result
	h.err = err
	close(h.done)
}

// Wait blocks until the command commits and is applied, returning the
// state machine's result.
func (h *CompletionHandle) Wait() (interface{}, error) {
	<-h.done
	return h.result, h.err
}

// Done exposes the underlying channel for select-based waiting.
func (h *CompletionHandle) Done() <-chan struct{} {
	return h.done
}

// GobEncode and GobDecode let a LogRecord pass through encoding/gob, which
// rejects structs with no exported fields. A handle carries no wire state:
// it encodes to nothing and decodes to an empty, never-resolved handle.
func (h *CompletionHandle) GobEncode() ([]byte, error) {
	return nil, nil
}

func (h *CompletionHandle) GobDecode([]byte) error {
	return nil
}

// LogRecord is one entry in the replicated log: a command plus the term in
// which the leader first appended it. Records are created only by the
// leader on submission, appended on followers by replication, and truncated
// only by the conflict-repair rule; they are never reordered or mutated.
type LogRecord struct {
	Term        uint64
	CommandType CommandType
	Payload     []byte

	// Handle is set only on the record held by the originating leader.
	Handle *CompletionHandle
}

// StateMachine is the external, pluggable back end the applier drives.
// A disabled-backend implementation must still be supported: its Apply
// does nothing and returns a nil result, so lastApplied still advances and
// handles resolve with nil (see statemachine.NewNullStateMachine).
type StateMachine interface {
	Apply(commandType CommandType, payload []byte) (interface{}, error)
}

// Router is the client-facing request front door. The core never imports a
// concrete router; it only ever talks to this interface. Submit delivers
// accepted commands' results is via the CompletionHandle returned from
// Node.Submit, not through Router.
type Router interface {
	// DisconnectSessions is invoked whenever leadership changes away from
	// this node, per the term-bump rule (spec section 4.3 step 5).
	DisconnectSessions()
}

// NotLeaderError is returned by Submit when the node is not the leader. It
// carries a redirect hint when the current leader is known.
type NotLeaderError struct {
	LeaderID string // empty if unknown
}

func (e *NotLeaderError) Error() string {
	if e.LeaderID == "" {
		return "not leader; leader unknown"
	}
	return fmt.Sprintf("not leader; try %s", e.LeaderID)
}

// ConsensusError reports a fatal invariant violation (spec section 7):
// a lastApplied regression, a commitIndex pointing past the end of the log,
// or an unknown command type surfacing out of the applier. These conditions
// are never recovered locally; the node that detects one stops.
type ConsensusError struct {
	Op  string
	Msg string
}

func (e *ConsensusError) Error() string {
	return fmt.Sprintf("consensus invariant violation in %s: %s", e.Op, e.Msg)
}
