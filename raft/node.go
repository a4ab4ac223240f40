package raft

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds one node's share of the cluster configuration. Peer
// addresses, transport credentials, and the router/state-machine wiring
// live one layer up, in the config package; this struct is what the
// consensus core itself needs to run.
type Config struct {
	ID    string
	Peers []string // other peer ids; clusterSize = len(Peers) + 1

	MinLeaderTimeout   time.Duration
	MaxLeaderTimeout   time.Duration
	MinElectionTimeout time.Duration
	MaxElectionTimeout time.Duration
	HeartbeatTimeout   time.Duration
	MinElectionDelay   time.Duration

	Transport    Transport
	StateMachine StateMachine
	Router       Router
	Logger       *zap.Logger
}

// Node is one peer's consensus state machine: role, term, vote, log, the
// leader-only replication bookkeeping, and the timer discipline that drives
// all of it. All mutable state is owned exclusively by the run() goroutine;
// every other method either hands work to that goroutine over a channel or
// reads a value guarded by mu for external, read-only callers (GetState).
type Node struct {
	id    string
	peers []string

	transport    Transport
	stateMachine StateMachine
	router       Router
	logger       *logger

	timers *timerService

	// --- owned exclusively by run(); no lock needed while the goroutine
	// is the sole writer ---
	role            Role
	currentTerm     uint64
	votedFor        string
	currentLeaderID string
	lastMessageNum  int64 // -1 == none
	log             *logStore
	commitIndex     int
	lastApplied     int

	votesGathered     int
	lastElectionStart time.Time

	nextIndex  map[string]int
	matchIndex map[string]int
	messageNum map[string]uint64

	cfg Config

	// --- channels feeding the single event loop ---
	inboundAppend chan appendEntriesCall
	inboundVote   chan requestVoteCall
	appendResults chan appendEntriesResult
	voteResults   chan requestVoteResult
	submitCh      chan submitCall

	stopOnce sync.Once
	stopCh   chan struct{}
	stopped  chan struct{} // closed once run() has returned
	fatal    chan error

	// mu guards only the handful of fields external callers read outside
	// the event loop (GetState, CurrentLeader).
	mu           sync.RWMutex
	publicTerm   uint64
	publicRole   Role
	publicLeader string
}

// NewNode constructs a Node in the initial Follower role. Start must be
// called to begin the timer discipline and process RPCs.
func NewNode(cfg Config) *Node {
	n := &Node{
		id:              cfg.ID,
		peers:           cfg.Peers,
		transport:       cfg.Transport,
		stateMachine:    cfg.StateMachine,
		router:          cfg.Router,
		logger:          newLogger(cfg.ID, cfg.Logger),
		timers:          newTimerService(),
		role:            Follower,
		votedFor:        "",
		currentLeaderID: "",
		lastMessageNum:  -1,
		log:             newLogStore(),
		commitIndex:     -1,
		lastApplied:     -1,
		nextIndex:       make(map[string]int),
		matchIndex:      make(map[string]int),
		messageNum:      make(map[string]uint64),
		cfg:             cfg,
		inboundAppend:   make(chan appendEntriesCall),
		inboundVote:     make(chan requestVoteCall),
		appendResults:   make(chan appendEntriesResult, 64),
		voteResults:     make(chan requestVoteResult, 64),
		submitCh:        make(chan submitCall),
		stopCh:          make(chan struct{}),
		stopped:         make(chan struct{}),
		fatal:           make(chan error, 1),
	}
	return n
}

// clusterSize is |peers| + 1.
func (n *Node) clusterSize() int {
	return len(n.peers) + 1
}

// majority is the vote/commit threshold: floor(clusterSize/2) + 1.
func (n *Node) majority() int {
	return n.clusterSize()/2 + 1
}

// Start arms the leader timer and launches the event loop.
func (n *Node) Start() {
	n.timers.armLeader(n.cfg.MinLeaderTimeout, n.cfg.MaxLeaderTimeout)
	n.publishState()
	go n.run()
}

// Stop cancels every timer and tears down the event loop. It blocks until
// the loop has exited.
func (n *Node) Stop() {
	n.stopOnce.Do(func() {
		close(n.stopCh)
	})
	<-n.stopped
}

// SetRouter attaches the router after construction, for callers that need
// the Node to exist before they can build the router that wraps it (the
// router's DisconnectSessions is driven by the node, and its Submit calls
// back into the node, so the two are naturally circular at wiring time).
// Must be called before Start.
func (n *Node) SetRouter(r Router) {
	n.router = r
}

// Err returns a channel that receives the fatal invariant violation, if
// any, that caused the node to stop itself.
func (n *Node) Err() <-chan error {
	return n.fatal
}

// GetState returns the current term and whether this node believes itself
// to be the leader. Safe to call from any goroutine.
func (n *Node) GetState() (uint64, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.publicTerm, n.publicRole == Leader
}

// CurrentLeader returns the node id this node believes is the current
// leader, or "" if unknown.
func (n *Node) CurrentLeader() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.publicLeader
}

// currentTermUnsafe is used only by HandleAppendEntries/HandleRequestVote
// once the event loop has already exited, to fill in a term on the
// synthetic failure response. It reads the last published term rather than
// the authoritative field, since the run() goroutine that owns the latter
// is gone by the time this is reachable.
func (n *Node) currentTermUnsafe() uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.publicTerm
}

// publishState copies the externally-visible subset of state under mu. It
// must be called from the run() goroutine after any change to role, term,
// or currentLeaderID.
func (n *Node) publishState() {
	n.mu.Lock()
	n.publicTerm = n.currentTerm
	n.publicRole = n.role
	n.publicLeader = n.currentLeaderID
	n.mu.Unlock()
}

func (n *Node) run() {
	defer close(n.stopped)
	defer n.timers.stopAll(n.peers)

	for {
		select {
		case <-n.stopCh:
			return

		case ev := <-n.timers.events:
			if !n.timers.valid(ev) {
				continue
			}
			n.handleTimerEvent(ev)

		case call := <-n.inboundAppend:
			call.reply <- n.onAppendEntriesRequest(call.req)

		case call := <-n.inboundVote:
			call.reply <- n.onRequestVoteRequest(call.req)

		case res := <-n.appendResults:
			n.onAppendEntriesResponse(res)

		case res := <-n.voteResults:
			n.onRequestVoteResponse(res)

		case call := <-n.submitCh:
			n.onSubmit(call)
		}
	}
}

func (n *Node) handleTimerEvent(ev timerEvent) {
	switch ev.kind {
	case timerLeader:
		n.logger.logLeaderTimeout()
		n.startElection()
	case timerElection:
		n.onElectionTimerFired()
	case timerHeartbeat:
		n.onHeartbeatFired(ev.peer)
	}
}

// stopDueToInvariantViolation is the fatal path: log, surface on the
// Err() channel, and stop processing. The node continues to
// exist (Stop() still works) but never responds to further RPCs as
// anything but a dead peer, since run() has returned.
func (n *Node) stopDueToInvariantViolation(op, msg string) {
	n.logger.logInvariantViolation(op, msg)
	select {
	case n.fatal <- &ConsensusError{Op: op, Msg: msg}:
	default:
	}
	n.stopOnce.Do(func() {
		close(n.stopCh)
	})
}

func (n *Node) armLeaderTimer() {
	n.timers.armLeader(n.cfg.MinLeaderTimeout, n.cfg.MaxLeaderTimeout)
}

func (n *Node) cancelLeaderTimer() {
	n.timers.cancelLeader()
}

func (n *Node) armElectionTimer() {
	n.timers.armElection(n.cfg.MinElectionTimeout, n.cfg.MaxElectionTimeout)
}

func (n *Node) cancelElectionTimer() {
	n.timers.cancelElection()
}

func (n *Node) armHeartbeatTimer(peer string) {
	n.timers.armHeartbeat(peer, n.cfg.HeartbeatTimeout, n.peers)
}

func (n *Node) armAllHeartbeatTimers() {
	n.timers.armHeartbeat("", n.cfg.HeartbeatTimeout, n.peers)
}

func (n *Node) cancelAllHeartbeatTimers() {
	n.timers.cancelHeartbeat("", n.peers)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
