package raft

import "time"

// startElection begins a new term's candidacy (spec section 4.5): the node
// becomes Candidate, increments its term, votes for itself, and broadcasts
// RequestVote to every peer concurrently. A lone node (no peers) wins its
// own election immediately.
func (n *Node) startElection() {
	if d := n.cfg.MinElectionDelay; d > 0 && !n.lastElectionStart.IsZero() {
		if elapsed := n.timeSinceLastElectionStart(); elapsed < d {
			n.armElectionDelay(d - elapsed)
			return
		}
	}

	oldRole := n.role
	n.role = Candidate
	n.currentTerm++
	n.votedFor = n.id
	n.currentLeaderID = ""
	n.votesGathered = 1
	n.lastElectionStart = n.now()

	n.cancelLeaderTimer()
	n.armElectionTimer()
	n.publishState()
	n.logger.logStateChange(oldRole, Candidate, n.currentTerm)
	n.logger.logElectionStart(n.currentTerm)

	if n.clusterSize() == 1 {
		n.becomeLeader()
		return
	}

	for _, peer := range n.peers {
		n.sendRequestVoteTo(peer)
		n.armHeartbeatTimer(peer)
	}
}

// sendRequestVoteTo issues (or retransmits, on a heartbeat-timer fire) a
// RequestVote to one peer for the current candidacy.
func (n *Node) sendRequestVoteTo(peer string) {
	req := &RequestVoteRequest{
		SenderID:     n.id,
		Term:         n.currentTerm,
		LastLogIndex: n.log.LastIndex(),
		LastLogTerm:  n.log.LastTerm(),
	}
	go func() {
		resp, err := n.transport.SendRequestVote(peer, req)
		n.voteResults <- requestVoteResult{peer: peer, resp: resp, err: err}
	}()
}

// onElectionTimerFired restarts the candidacy if we are still a Candidate
// and nobody has won yet (spec section 4.5: the election timer forces a
// fresh term when a round ends without a majority).
func (n *Node) onElectionTimerFired() {
	if n.role != Candidate {
		return
	}
	n.logger.logElectionLost(n.currentTerm, n.votesGathered, n.majority())
	n.startElection()
}

// onRequestVoteResponse processes one peer's vote (spec section 4.5).
// Responses from a stale round (wrong term, or we are no longer Candidate)
// are ignored; a granted vote that crosses the majority threshold wins the
// election.
func (n *Node) onRequestVoteResponse(res requestVoteResult) {
	if res.err != nil || res.resp == nil {
		return
	}
	n.maybeBumpTerm(res.resp.Term, false, res.resp.SenderID)

	if n.role != Candidate || res.resp.Term != n.currentTerm {
		return
	}
	if !res.resp.VoteGranted {
		return
	}

	n.votesGathered++
	needed := n.majority()
	if n.votesGathered >= needed {
		n.logger.logElectionWon(n.currentTerm, n.votesGathered, needed)
		n.becomeLeader()
	}
}

// becomeLeader transitions a Candidate that has won a majority into Leader
// (spec section 4.5): per-peer replication state is reinitialized, the
// election timer stops, heartbeat timers start, and an immediate empty
// AppendEntries goes out to assert leadership before any peer's leader
// timer can fire.
func (n *Node) becomeLeader() {
	oldRole := n.role
	n.role = Leader
	n.currentLeaderID = n.id
	n.cancelElectionTimer()

	lastIndex := n.log.LastIndex()
	for _, peer := range n.peers {
		n.nextIndex[peer] = lastIndex + 1
		n.matchIndex[peer] = -1
		n.messageNum[peer] = 0
	}

	n.publishState()
	n.logger.logStateChange(oldRole, Leader, n.currentTerm)

	for _, peer := range n.peers {
		n.sendAppendEntriesTo(peer)
		n.armHeartbeatTimer(peer)
	}
}

// now and timeSinceLastElectionStart exist so the minElectionDelay check
// has a single seam; Node never calls time.Now()/time.Since() directly so
// every wall-clock read in the package stays in timers.go and here.
func (n *Node) now() time.Time {
	return time.Now()
}

func (n *Node) timeSinceLastElectionStart() time.Duration {
	return time.Since(n.lastElectionStart)
}

// armElectionDelay arms a one-shot election timer for exactly the
// remaining delay, enforcing minElectionDelay (spec section 6, open
// question: repeated restarts must not tight-loop faster than this floor).
func (n *Node) armElectionDelay(remaining time.Duration) {
	n.timers.armElection(remaining, remaining)
}
