package raft

import (
	"testing"
	"time"
)

func TestInitialState(t *testing.T) {
	n := NewNode(Config{
		ID:                 "node1",
		Peers:              []string{"node2", "node3"},
		MinLeaderTimeout:   testMinLeaderTimeout,
		MaxLeaderTimeout:   testMaxLeaderTimeout,
		MinElectionTimeout: testMinElectionTimeout,
		MaxElectionTimeout: testMaxElectionTimeout,
		HeartbeatTimeout:   testHeartbeatTimeout,
		Transport:          newFakeTransport(),
		StateMachine:       &mockStateMachine{},
	})

	term, isLeader := n.GetState()
	if term != 0 {
		t.Errorf("expected term 0, got %d", term)
	}
	if isLeader {
		t.Error("new node should not be leader")
	}
}

func TestSingleNodeElection(t *testing.T) {
	n := NewNode(Config{
		ID:                 "node1",
		MinLeaderTimeout:   testMinLeaderTimeout,
		MaxLeaderTimeout:   testMaxLeaderTimeout,
		MinElectionTimeout: testMinElectionTimeout,
		MaxElectionTimeout: testMaxElectionTimeout,
		HeartbeatTimeout:   testHeartbeatTimeout,
		Transport:          newFakeTransport(),
		StateMachine:       &mockStateMachine{},
	})
	defer n.Stop()
	n.Start()

	if !waitForCondition(500*time.Millisecond, func() bool {
		_, isLeader := n.GetState()
		return isLeader
	}) {
		t.Error("single node should become its own leader")
	}
}

func TestBasicElection(t *testing.T) {
	nodes, _, _ := createTestCluster(3)
	defer shutdownCluster(nodes)
	for _, n := range nodes {
		n.Start()
	}

	if !waitForCondition(2*time.Second, func() bool { return countLeaders(nodes) == 1 }) {
		t.Fatalf("expected exactly 1 leader, got %d", countLeaders(nodes))
	}

	terms := make(map[uint64]int)
	for _, n := range nodes {
		term, _ := n.GetState()
		terms[term]++
	}
	if len(terms) != 1 {
		t.Errorf("nodes don't agree on term: %v", terms)
	}
}

func TestReElectionAfterLeaderPartition(t *testing.T) {
	nodes, ft, _ := createTestCluster(3)
	defer shutdownCluster(nodes)
	for _, n := range nodes {
		n.Start()
	}

	if !waitForCondition(2*time.Second, func() bool { return countLeaders(nodes) == 1 }) {
		t.Fatal("no initial leader elected")
	}
	leader := findLeader(nodes)
	oldTerm, _ := leader.GetState()

	ft.setPartitioned(leader.id, true)

	remaining := make([]*Node, 0, len(nodes)-1)
	for _, n := range nodes {
		if n != leader {
			remaining = append(remaining, n)
		}
	}

	if !waitForCondition(2*time.Second, func() bool { return countLeaders(remaining) == 1 }) {
		t.Fatal("no new leader elected after partitioning the old leader")
	}
	newLeader := findLeader(remaining)
	newTerm, _ := newLeader.GetState()
	if newTerm <= oldTerm {
		t.Errorf("expected term to increase after re-election: old=%d new=%d", oldTerm, newTerm)
	}
}

func TestLogUpToDate(t *testing.T) {
	n := NewNode(Config{
		ID:           "node1",
		Transport:    newFakeTransport(),
		StateMachine: &mockStateMachine{},
	})
	n.log.Append(LogRecord{Term: 5})

	// Our log has one entry at term 5; a candidate whose log ends at the
	// same index but an older term is not up to date.
	if n.logUpToDate(0, 3) {
		t.Error("logUpToDate should be false: candidate's term at our last index is older")
	}
	// A candidate whose log ends at the same index and the same term is
	// up to date.
	if !n.logUpToDate(0, 5) {
		t.Error("logUpToDate should be true: candidate's log matches ours exactly")
	}
	// A candidate with a longer log is always up to date regardless of
	// term, since our log is shorter.
	if !n.logUpToDate(3, 1) {
		t.Error("logUpToDate should be true: candidate's log is longer than ours")
	}
}

func TestVoteRefusalForOutdatedLog(t *testing.T) {
	n := NewNode(Config{
		ID:                 "node1",
		Peers:              []string{"node2"},
		MinLeaderTimeout:   time.Hour,
		MaxLeaderTimeout:   time.Hour,
		MinElectionTimeout: time.Hour,
		MaxElectionTimeout: time.Hour,
		HeartbeatTimeout:   time.Hour,
		Transport:          newFakeTransport(),
		StateMachine:       &mockStateMachine{},
	})
	n.log.Append(LogRecord{Term: 5})
	n.currentTerm = 5
	defer n.Stop()
	n.Start()

	resp := n.HandleRequestVote(&RequestVoteRequest{
		SenderID:     "node2",
		Term:         6,
		LastLogIndex: 0,
		LastLogTerm:  3, // older term than our last entry
	})
	if resp.VoteGranted {
		t.Error("should not grant vote to a candidate whose log is less up to date")
	}
}

func TestOneVotePerTerm(t *testing.T) {
	n := NewNode(Config{
		ID:                 "node1",
		Peers:              []string{"node2", "node3"},
		MinLeaderTimeout:   time.Hour,
		MaxLeaderTimeout:   time.Hour,
		MinElectionTimeout: time.Hour,
		MaxElectionTimeout: time.Hour,
		HeartbeatTimeout:   time.Hour,
		Transport:          newFakeTransport(),
		StateMachine:       &mockStateMachine{},
	})
	defer n.Stop()
	n.Start()

	resp1 := n.HandleRequestVote(&RequestVoteRequest{SenderID: "node2", Term: 1, LastLogIndex: -1})
	if !resp1.VoteGranted {
		t.Error("should grant the first vote request in a new term")
	}

	resp2 := n.HandleRequestVote(&RequestVoteRequest{SenderID: "node3", Term: 1, LastLogIndex: -1})
	if resp2.VoteGranted {
		t.Error("should not grant a second vote in the same term")
	}
}
