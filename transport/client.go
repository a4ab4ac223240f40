package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	raftcore "github.com/ghostfox/raftcore/raft"
)

// GRPCTransport is the concrete raft.Transport: one lazily-dialed
// connection per peer id, reused across calls, the same connection-cache
// shape the reference client used.
type GRPCTransport struct {
	mu          sync.Mutex
	addresses   map[string]string // peer id -> dial address
	connections map[string]*grpc.ClientConn
	timeout     time.Duration
}

// NewGRPCTransport builds a transport over a fixed peer-id-to-address map.
// A zero timeout defaults to 2 seconds per RPC.
func NewGRPCTransport(addresses map[string]string, timeout time.Duration) *GRPCTransport {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &GRPCTransport{
		addresses:   addresses,
		connections: make(map[string]*grpc.ClientConn),
		timeout:     timeout,
	}
}

func (t *GRPCTransport) getConnection(peerID string) (*grpc.ClientConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if conn, ok := t.connections[peerID]; ok {
		return conn, nil
	}
	address, ok := t.addresses[peerID]
	if !ok {
		return nil, fmt.Errorf("transport: unknown peer %q", peerID)
	}
	conn, err := grpc.NewClient(address,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return nil, err
	}
	t.connections[peerID] = conn
	return conn, nil
}

// SendAppendEntries implements raft.Transport.
func (t *GRPCTransport) SendAppendEntries(destID string, req *raftcore.AppendEntriesRequest) (*raftcore.AppendEntriesResponse, error) {
	conn, err := t.getConnection(destID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	resp := new(raftcore.AppendEntriesResponse)
	if err := conn.Invoke(ctx, "/"+serviceName+"/AppendEntries", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// SendRequestVote implements raft.Transport.
func (t *GRPCTransport) SendRequestVote(destID string, req *raftcore.RequestVoteRequest) (*raftcore.RequestVoteResponse, error) {
	conn, err := t.getConnection(destID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	resp := new(raftcore.RequestVoteResponse)
	if err := conn.Invoke(ctx, "/"+serviceName+"/RequestVote", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Close tears down every cached connection.
func (t *GRPCTransport) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, conn := range t.connections {
		conn.Close()
	}
}
