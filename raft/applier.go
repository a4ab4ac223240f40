package raft

import "errors"

// ErrUnknownCommandType is returned by a StateMachine when asked to apply a
// CommandType it does not recognize. The applier treats this as fatal
// (spec section 7): an unrecognized command means the state machine and
// the log have drifted out of sync, which no amount of retrying fixes.
var ErrUnknownCommandType = errors.New("raft: unknown command type")

// applyCommitted advances lastApplied toward commitIndex one entry at a
// time, in log order, resolving each entry's CompletionHandle if the entry
// originated on this node (spec section 4.6). It is called whenever
// commitIndex moves forward, from both the follower and leader paths.
func (n *Node) applyCommitted() {
	for n.lastApplied < n.commitIndex {
		idx := n.lastApplied + 1
		entry, ok := n.log.At(idx)
		if !ok {
			n.stopDueToInvariantViolation("applyCommitted", "commitIndex points past the end of the log")
			return
		}

		var result interface{}
		var err error
		if n.stateMachine != nil {
			result, err = n.stateMachine.Apply(entry.CommandType, entry.Payload)
		}

		if errors.Is(err, ErrUnknownCommandType) {
			n.stopDueToInvariantViolation("applyCommitted", "state machine rejected unknown command type "+string(entry.CommandType))
			return
		}

		if entry.Handle != nil {
			entry.Handle.fulfill(result, err)
		}

		n.lastApplied = idx
		n.logger.logApply(idx, entry.CommandType)
	}
}
