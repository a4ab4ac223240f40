package raft

import "fmt"

// maybeBumpTerm implements the term-bump rule (spec section 4.3), run first
// on every inbound RPC regardless of current role. A strictly higher term
// always wins: the node reverts to Follower, adopts the new term, and
// forgets the previous term's vote. fromAppendEntriesRequest distinguishes
// the one case that also learns a leader identity from the trigger.
func (n *Node) maybeBumpTerm(inboundTerm uint64, fromAppendEntriesRequest bool, sender string) {
	if inboundTerm <= n.currentTerm {
		return
	}

	oldRole, oldTerm := n.role, n.currentTerm
	if n.role == Candidate {
		n.cancelElectionTimer()
	}
	if n.role == Leader {
		n.cancelAllHeartbeatTimers()
	}

	n.role = Follower
	n.currentTerm = inboundTerm
	n.votedFor = ""
	n.lastMessageNum = -1
	if fromAppendEntriesRequest {
		n.currentLeaderID = sender
	} else {
		n.currentLeaderID = ""
	}

	n.armLeaderTimer()
	n.publishState()
	n.logger.logStepDown(oldTerm, inboundTerm)
	if oldRole != Follower {
		n.logger.logStateChange(oldRole, Follower, inboundTerm)
	}
	if n.router != nil {
		n.router.DisconnectSessions()
	}
}

// demoteToFollower handles the same-term case where a Candidate learns a
// same-term leader already exists (spec section 4.5): no term change, so
// maybeBumpTerm does not fire, but the role still reverts.
func (n *Node) demoteToFollower(leaderID string) {
	oldRole := n.role
	n.cancelElectionTimer()
	n.cancelAllHeartbeatTimers()
	n.role = Follower
	n.currentLeaderID = leaderID
	n.lastMessageNum = -1
	n.armLeaderTimer()
	n.publishState()
	n.logger.logStateChange(oldRole, Follower, n.currentTerm)
}

// onAppendEntriesRequest is the entry point for every inbound AppendEntries
// RPC regardless of current role (spec sections 4.4 and 4.5).
func (n *Node) onAppendEntriesRequest(req *AppendEntriesRequest) *AppendEntriesResponse {
	n.maybeBumpTerm(req.Term, true, req.SenderID)

	if req.Term < n.currentTerm {
		return n.appendResponse(false)
	}

	switch n.role {
	case Leader:
		// A same-term (or, after the bump above, necessarily same-term)
		// AppendEntries while we are Leader can only come from a stale
		// leader; a correct cluster never has two leaders in one term.
		return n.appendResponse(false)
	case Candidate:
		n.demoteToFollower(req.SenderID)
	}

	return n.followerAppendEntries(req)
}

func (n *Node) appendResponse(success bool) *AppendEntriesResponse {
	return &AppendEntriesResponse{
		SenderID:    n.id,
		Term:        n.currentTerm,
		Success:     success,
		CommitIndex: n.commitIndex,
		LastApplied: n.lastApplied,
	}
}

func (n *Node) followerAppendEntries(req *AppendEntriesRequest) *AppendEntriesResponse {
	n.logger.logAppendEntries(req.SenderID, req.Term, req.PrevLogIndex, len(req.Entries))

	if n.currentLeaderID == "" {
		n.currentLeaderID = req.SenderID
		n.publishState()
	} else if n.currentLeaderID != req.SenderID {
		// Two distinct claimants for the same term violates I3; refuse
		// rather than accept state from an unrecognized leader.
		return n.appendResponse(false)
	}

	if int64(req.MessageNum) <= n.lastMessageNum {
		// Stale retransmission or reorder of a message we already
		// processed; re-acknowledge idempotently rather than dropping it
		// silently, since this transport is request/response and the
		// leader needs some reply.
		n.armLeaderTimer()
		return n.appendResponse(true)
	}

	if req.PrevLogIndex >= 0 {
		entry, ok := n.log.At(req.PrevLogIndex)
		if !ok || entry.Term != req.PrevLogTerm {
			n.armLeaderTimer()
			return n.appendResponse(false)
		}
	}

	for i, e := range req.Entries {
		j := req.PrevLogIndex + 1 + i
		if existing, ok := n.log.At(j); ok {
			if existing.Term == e.Term {
				continue
			}
			n.truncateLog(j)
		}
		n.log.Append(stripHandle(e))
	}

	if req.LeaderCommit > n.commitIndex {
		n.commitIndex = minInt(req.LeaderCommit, n.log.LastIndex())
		n.logger.logCommit(n.commitIndex, n.currentTerm)
		n.applyCommitted()
	}

	n.lastMessageNum = int64(req.MessageNum)
	n.armLeaderTimer()
	return n.appendResponse(true)
}

// stripHandle drops any CompletionHandle carried on an entry received over
// the wire. A handle only ever lives on the leader that originated the
// entry (spec section 3); a follower replicating it must not resolve
// someone else's waiter.
func stripHandle(e LogRecord) LogRecord {
	e.Handle = nil
	return e
}

// truncateLog discards the log from fromIndex onward and clamps
// commitIndex/lastApplied to stay within the shortened log (spec section
// 4.4, invariant I6). A truncation that would decrease lastApplied below
// its already-applied value is a correctness violation: it means an
// applied entry is being un-applied, which the applied state machine can
// never undo.
func (n *Node) truncateLog(fromIndex int) {
	n.log.TruncateFrom(fromIndex)
	newLast := n.log.LastIndex()

	if n.commitIndex > newLast {
		n.commitIndex = newLast
	}
	if n.lastApplied > n.commitIndex {
		violated := n.lastApplied
		n.lastApplied = n.commitIndex
		n.stopDueToInvariantViolation("truncateLog",
			fmt.Sprintf("lastApplied would decrease from %d to %d", violated, n.lastApplied))
	}
}

// onRequestVoteRequest is the entry point for every inbound RequestVote RPC
// regardless of current role (spec section 4.4). The same logic applies
// whether the recipient is Follower, Candidate, or Leader: a Candidate or
// Leader has already voted for itself this term, so votedFor is never
// empty and the request is refused without any role-specific branching.
func (n *Node) onRequestVoteRequest(req *RequestVoteRequest) *RequestVoteResponse {
	n.maybeBumpTerm(req.Term, false, req.SenderID)

	if req.Term < n.currentTerm {
		return &RequestVoteResponse{SenderID: n.id, Term: n.currentTerm, VoteGranted: false}
	}

	if n.votedFor == "" && n.logUpToDate(req.LastLogIndex, req.LastLogTerm) {
		n.votedFor = req.SenderID
		n.armLeaderTimer()
		n.logger.logVoteGranted(req.SenderID, n.currentTerm)
		return &RequestVoteResponse{SenderID: n.id, Term: n.currentTerm, VoteGranted: true}
	}

	reason := "already voted"
	if n.votedFor == "" {
		reason = "candidate log not up to date"
	}
	n.logger.logVoteDenied(req.SenderID, n.currentTerm, reason)
	return &RequestVoteResponse{SenderID: n.id, Term: n.currentTerm, VoteGranted: false}
}

// logUpToDate reports whether a candidate whose log ends at
// (lastLogIndex, lastLogTerm) is at least as up to date as ours (spec
// section 4.4): either our log is shorter than theirs, or our entry at
// their last index agrees with their last term. A candidate with an empty
// log is up to date only when ours is empty too.
func (n *Node) logUpToDate(lastLogIndex int, lastLogTerm uint64) bool {
	if lastLogIndex < 0 {
		return n.log.Len() == 0
	}
	if n.log.Len() < lastLogIndex+1 {
		return true
	}
	entry, ok := n.log.At(lastLogIndex)
	return ok && entry.Term == lastLogTerm
}
