package transport

import (
	"testing"
	"time"

	raftcore "github.com/ghostfox/raftcore/raft"
)

// fakePeerServer is a minimal peerServer double so this package's tests
// don't need a real *raft.Node.
type fakePeerServer struct {
	lastAppend *raftcore.AppendEntriesRequest
	lastVote   *raftcore.RequestVoteRequest
}

func (f *fakePeerServer) HandleAppendEntries(req *raftcore.AppendEntriesRequest) *raftcore.AppendEntriesResponse {
	f.lastAppend = req
	return &raftcore.AppendEntriesResponse{SenderID: "peer", Term: req.Term, Success: true, CommitIndex: 3, LastApplied: 3}
}

func (f *fakePeerServer) HandleRequestVote(req *raftcore.RequestVoteRequest) *raftcore.RequestVoteResponse {
	f.lastVote = req
	return &raftcore.RequestVoteResponse{SenderID: "peer", Term: req.Term, VoteGranted: true}
}

func TestGRPCRoundTrip(t *testing.T) {
	peer := &fakePeerServer{}
	server, err := NewServer("127.0.0.1:0", peer, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	go server.Serve()
	defer server.Stop()

	client := NewGRPCTransport(map[string]string{"peer": server.Address()}, time.Second)
	defer client.Close()

	req := &raftcore.AppendEntriesRequest{
		SenderID:     "leader",
		Term:         7,
		MessageNum:   1,
		PrevLogIndex: 2,
		PrevLogTerm:  6,
		Entries:      []raftcore.LogRecord{{Term: 7, CommandType: raftcore.NewBid, Payload: []byte("x")}},
		LeaderCommit: 2,
	}
	resp, err := client.SendAppendEntries("peer", req)
	if err != nil {
		t.Fatalf("SendAppendEntries: %v", err)
	}
	if !resp.Success || resp.Term != 7 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if peer.lastAppend == nil || peer.lastAppend.SenderID != "leader" || len(peer.lastAppend.Entries) != 1 {
		t.Fatalf("server did not decode the request correctly: %+v", peer.lastAppend)
	}

	voteResp, err := client.SendRequestVote("peer", &raftcore.RequestVoteRequest{SenderID: "candidate", Term: 8, LastLogIndex: 4, LastLogTerm: 7})
	if err != nil {
		t.Fatalf("SendRequestVote: %v", err)
	}
	if !voteResp.VoteGranted || voteResp.Term != 8 {
		t.Fatalf("unexpected vote response: %+v", voteResp)
	}
}

func TestSendToUnknownPeerFails(t *testing.T) {
	client := NewGRPCTransport(map[string]string{}, time.Second)
	defer client.Close()

	_, err := client.SendAppendEntries("ghost", &raftcore.AppendEntriesRequest{})
	if err == nil {
		t.Fatal("expected an error sending to an unregistered peer id")
	}
}
