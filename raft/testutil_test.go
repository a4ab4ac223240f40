package raft

import (
	"fmt"
	"sync"
	"time"
)

// fakeTransport wires a set of in-process *Node values together directly,
// the same role a real network transport plays but without sockets: it
// dispatches SendAppendEntries/SendRequestVote straight to the destination
// node's Handle* methods. Partitioning a peer simulates a network split
// without tearing the node down.
type fakeTransport struct {
	mu        sync.RWMutex
	nodes     map[string]*Node
	partition map[string]bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		nodes:     make(map[string]*Node),
		partition: make(map[string]bool),
	}
}

func (f *fakeTransport) register(id string, n *Node) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes[id] = n
}

func (f *fakeTransport) setPartitioned(id string, partitioned bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.partition[id] = partitioned
}

func (f *fakeTransport) peer(srcID, destID string) (*Node, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.partition[srcID] || f.partition[destID] {
		return nil, false
	}
	n, ok := f.nodes[destID]
	return n, ok
}

func (f *fakeTransport) SendAppendEntries(destID string, req *AppendEntriesRequest) (*AppendEntriesResponse, error) {
	n, ok := f.peer(req.SenderID, destID)
	if !ok {
		return nil, fmt.Errorf("fakeTransport: peer %q unreachable", destID)
	}
	return n.HandleAppendEntries(req), nil
}

func (f *fakeTransport) SendRequestVote(destID string, req *RequestVoteRequest) (*RequestVoteResponse, error) {
	n, ok := f.peer(req.SenderID, destID)
	if !ok {
		return nil, fmt.Errorf("fakeTransport: peer %q unreachable", destID)
	}
	return n.HandleRequestVote(req), nil
}

// mockStateMachine records applied commands for assertions and otherwise
// behaves like a no-op backend, mirroring the reference test double.
type mockStateMachine struct {
	mu      sync.Mutex
	applied []CommandType
}

func (m *mockStateMachine) Apply(commandType CommandType, payload []byte) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied = append(m.applied, commandType)
	return string(payload), nil
}

func (m *mockStateMachine) appliedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.applied)
}

const (
	testMinLeaderTimeout   = 100 * time.Millisecond
	testMaxLeaderTimeout   = 200 * time.Millisecond
	testMinElectionTimeout = 100 * time.Millisecond
	testMaxElectionTimeout = 200 * time.Millisecond
	testHeartbeatTimeout   = 30 * time.Millisecond
)

// createTestCluster builds n nodes sharing one fakeTransport, each with its
// own mockStateMachine, wired with every other node as a peer.
func createTestCluster(n int) ([]*Node, *fakeTransport, []*mockStateMachine) {
	ft := newFakeTransport()
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("node%d", i+1)
	}

	nodes := make([]*Node, n)
	sms := make([]*mockStateMachine, n)
	for i, id := range ids {
		peers := make([]string, 0, n-1)
		for j, other := range ids {
			if j != i {
				peers = append(peers, other)
			}
		}
		sm := &mockStateMachine{}
		sms[i] = sm
		nodes[i] = NewNode(Config{
			ID:                 id,
			Peers:              peers,
			MinLeaderTimeout:   testMinLeaderTimeout,
			MaxLeaderTimeout:   testMaxLeaderTimeout,
			MinElectionTimeout: testMinElectionTimeout,
			MaxElectionTimeout: testMaxElectionTimeout,
			HeartbeatTimeout:   testHeartbeatTimeout,
			Transport:          ft,
			StateMachine:       sm,
		})
		ft.register(id, nodes[i])
	}

	return nodes, ft, sms
}

func shutdownCluster(nodes []*Node) {
	for _, n := range nodes {
		n.Stop()
	}
}

func countLeaders(nodes []*Node) int {
	count := 0
	for _, n := range nodes {
		if _, isLeader := n.GetState(); isLeader {
			count++
		}
	}
	return count
}

func findLeader(nodes []*Node) *Node {
	for _, n := range nodes {
		if _, isLeader := n.GetState(); isLeader {
			return n
		}
	}
	return nil
}

func waitForCondition(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}
