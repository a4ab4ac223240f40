package raft

import "sort"

// sendAppendEntriesTo sends the next batch for one peer: everything from
// nextIndex[peer] to the tail of the log, or nothing at all for a plain
// heartbeat. It is the single send path used by becomeLeader's initial
// burst, the heartbeat timer, and the immediate retry after a response.
func (n *Node) sendAppendEntriesTo(peer string) {
	prevIndex := n.nextIndex[peer] - 1
	prevTerm := n.log.TermAt(prevIndex)
	entries := n.log.Slice(n.nextIndex[peer])
	ackIndex := prevIndex + len(entries)

	// A CompletionHandle only ever makes sense on the node that originated
	// the entry; strip it before it leaves the process rather than relying
	// on the wire codec to drop it silently.
	wireEntries := make([]LogRecord, len(entries))
	for i, e := range entries {
		wireEntries[i] = stripHandle(e)
	}

	n.messageNum[peer]++
	req := &AppendEntriesRequest{
		SenderID:     n.id,
		Term:         n.currentTerm,
		MessageNum:   n.messageNum[peer],
		PrevLogIndex: prevIndex,
		PrevLogTerm:  prevTerm,
		Entries:      wireEntries,
		LeaderCommit: n.commitIndex,
	}

	n.logger.logHeartbeatSent(n.currentTerm, peer)
	go func() {
		resp, err := n.transport.SendAppendEntries(peer, req)
		n.appendResults <- appendEntriesResult{peer: peer, ackIndex: ackIndex, sent: entries, resp: resp, err: err}
	}()
}

// onHeartbeatFired re-sends to one peer on its own independent interval
// (one heartbeat timer per peer, not a single cluster tick) and re-arms
// that peer's timer. The outbound message is role-dependent: a Leader
// retransmits AppendEntries, a Candidate retransmits its RequestVote for
// the ongoing election.
func (n *Node) onHeartbeatFired(peer string) {
	switch n.role {
	case Leader:
		n.sendAppendEntriesTo(peer)
		n.armHeartbeatTimer(peer)
	case Candidate:
		n.sendRequestVoteTo(peer)
		n.armHeartbeatTimer(peer)
	}
}

// onAppendEntriesResponse updates replication bookkeeping for one peer and
// recomputes the commit index (spec section 4.5). A response from a round
// we are no longer leading, or from an earlier term, is ignored.
func (n *Node) onAppendEntriesResponse(res appendEntriesResult) {
	if res.err != nil || res.resp == nil {
		return
	}
	n.maybeBumpTerm(res.resp.Term, false, res.resp.SenderID)

	if n.role != Leader || res.resp.Term != n.currentTerm {
		return
	}

	peer := res.peer
	if res.resp.Success {
		n.matchIndex[peer] = maxInt(n.matchIndex[peer], res.ackIndex)
		n.nextIndex[peer] = n.matchIndex[peer] + 1
		n.advanceCommitIndex()
		if n.log.LastIndex() >= n.nextIndex[peer] {
			n.sendAppendEntriesTo(peer)
		}
		return
	}

	// Conflict backoff: retreat nextIndex by one and retry immediately
	// rather than waiting for the next heartbeat tick (spec section 4.5).
	if n.nextIndex[peer] > 0 {
		n.nextIndex[peer]--
	}
	n.sendAppendEntriesTo(peer)
}

// advanceCommitIndex applies the corrected majority rule (spec section 4.5,
// design note resolving the reference implementation's off-by-scope bug):
// the candidate commit index N is the majority-position value among every
// node's replicated index — the leader's own log.LastIndex() included, not
// just its peers' matchIndex — and N only commits if log[N].Term equals
// the leader's current term. Without that restriction a leader can commit
// an entry from an earlier term before its own term's entry at that
// position is known to be safe.
func (n *Node) advanceCommitIndex() {
	positions := make([]int, 0, n.clusterSize())
	positions = append(positions, n.log.LastIndex())
	for _, peer := range n.peers {
		positions = append(positions, n.matchIndex[peer])
	}
	sort.Sort(sort.Reverse(sort.IntSlice(positions)))

	candidate := positions[n.majority()-1]
	if candidate <= n.commitIndex {
		return
	}
	if n.log.TermAt(candidate) != n.currentTerm {
		return
	}

	n.commitIndex = candidate
	n.logger.logCommit(n.commitIndex, n.currentTerm)
	n.applyCommitted()
}
