package raft

// The two peer RPCs. Request and response are distinct Go types rather
// than a single struct carrying an isResponse flag.

// AppendEntriesRequest replicates log entries, or carries none for a
// heartbeat.
type AppendEntriesRequest struct {
	SenderID     string
	Term         uint64
	MessageNum   uint64
	PrevLogIndex int
	PrevLogTerm  uint64
	Entries      []LogRecord
	LeaderCommit int
}

// AppendEntriesResponse never carries a matchIndex; the leader recovers it
// from the ackIndex recorded alongside the request it sent (see
// appendEntriesResult) when Success is true. Correlating by the request's
// own ackIndex rather than a single shared per-peer "last sent" field keeps
// overlapping in-flight requests to the same peer from clobbering each
// other's acknowledgement.
type AppendEntriesResponse struct {
	SenderID    string
	Term        uint64
	Success     bool
	CommitIndex int
	LastApplied int
}

// RequestVoteRequest solicits a vote for a candidacy.
type RequestVoteRequest struct {
	SenderID     string
	Term         uint64
	MessageNum   uint64
	LastLogIndex int
	LastLogTerm  uint64
}

// RequestVoteResponse carries the grant decision.
type RequestVoteResponse struct {
	SenderID    string
	Term        uint64
	VoteGranted bool
}

// SnapshotRequest/SnapshotResponse are reserved RPC tags: snapshotting is
// out of scope for this core, so no dispatch path ever constructs or sends
// one. The types exist so a future transport can carry the tag without
// changing the wire contract.
type SnapshotRequest struct {
	SenderID string
	Term     uint64
}

type SnapshotResponse struct {
	SenderID string
	Term     uint64
}

// Transport is the only way the core talks to peers: a plain
// send(destID, req)/reply shape. Connection establishment, reconnection,
// and peer authentication are entirely the transport's concern.
type Transport interface {
	SendAppendEntries(destID string, req *AppendEntriesRequest) (*AppendEntriesResponse, error)
	SendRequestVote(destID string, req *RequestVoteRequest) (*RequestVoteResponse, error)
}

// Inbound handlers, called by a transport implementation's server side when
// a peer's request arrives. They return directly with the response; the
// transport is responsible for framing it back to the sender.

// HandleAppendEntries dispatches an inbound AppendEntries request onto the
// node's single-threaded event loop and blocks for the response.
func (n *Node) HandleAppendEntries(req *AppendEntriesRequest) *AppendEntriesResponse {
	reply := make(chan *AppendEntriesResponse, 1)
	select {
	case n.inboundAppend <- appendEntriesCall{req: req, reply: reply}:
	case <-n.stopped:
		return &AppendEntriesResponse{SenderID: n.id, Term: n.currentTermUnsafe(), Success: false}
	}
	return <-reply
}

// HandleRequestVote dispatches an inbound RequestVote request onto the
// node's event loop and blocks for the response.
func (n *Node) HandleRequestVote(req *RequestVoteRequest) *RequestVoteResponse {
	reply := make(chan *RequestVoteResponse, 1)
	select {
	case n.inboundVote <- requestVoteCall{req: req, reply: reply}:
	case <-n.stopped:
		return &RequestVoteResponse{SenderID: n.id, Term: n.currentTermUnsafe(), VoteGranted: false}
	}
	return <-reply
}

type appendEntriesCall struct {
	req   *AppendEntriesRequest
	reply chan *AppendEntriesResponse
}

type requestVoteCall struct {
	req   *RequestVoteRequest
	reply chan *RequestVoteResponse
}

type appendEntriesResult struct {
	peer string
	// ackIndex is the highest log index this particular request asked the
	// peer to have, computed at send time. Responses never carry
	// messageNum or matchIndex, so this is how the leader maps a response
	// back to what was actually sent.
	ackIndex int
	sent     []LogRecord
	resp     *AppendEntriesResponse
	err      error
}

type requestVoteResult struct {
	peer string
	resp *RequestVoteResponse
	err  error
}
