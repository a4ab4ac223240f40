package raft

// submitCall carries a client command onto the event loop and the channel
// the caller blocks on for the resulting CompletionHandle (or rejection).
type submitCall struct {
	commandType CommandType
	payload     []byte
	reply       chan submitResult
}

type submitResult struct {
	handle *CompletionHandle
	err    error
}

// Submit is the entry point a router uses to propose a new command (spec
// section 4.7). Only the leader accepts it; any other role rejects with
// NotLeaderError carrying the best known leader id as a hint.
func (n *Node) Submit(commandType CommandType, payload []byte) (*CompletionHandle, error) {
	reply := make(chan submitResult, 1)
	select {
	case n.submitCh <- submitCall{commandType: commandType, payload: payload, reply: reply}:
	case <-n.stopped:
		return nil, &ConsensusError{Op: "Submit", Msg: "node has stopped"}
	}
	res := <-reply
	return res.handle, res.err
}

func (n *Node) onSubmit(call submitCall) {
	if n.role != Leader {
		call.reply <- submitResult{err: &NotLeaderError{LeaderID: n.currentLeaderID}}
		return
	}

	handle := newCompletionHandle()
	n.log.Append(LogRecord{
		Term:        n.currentTerm,
		CommandType: call.commandType,
		Payload:     call.payload,
		Handle:      handle,
	})
	call.reply <- submitResult{handle: handle}

	for _, peer := range n.peers {
		if n.log.LastIndex() >= n.nextIndex[peer] {
			n.sendAppendEntriesTo(peer)
		}
	}

	if n.clusterSize() == 1 {
		n.advanceCommitIndex()
	}
}
