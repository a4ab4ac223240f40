package transport

import (
	"context"

	"google.golang.org/grpc"

	raftcore "github.com/ghostfox/raftcore/raft"
)

// serviceName mirrors the fully-qualified service name a .proto file would
// otherwise declare.
const serviceName = "raftcore.Raft"

// peerServer is the minimal surface transport needs from a *raft.Node to
// answer inbound peer RPCs. *raft.Node satisfies it directly.
type peerServer interface {
	HandleAppendEntries(req *raftcore.AppendEntriesRequest) *raftcore.AppendEntriesResponse
	HandleRequestVote(req *raftcore.RequestVoteRequest) *raftcore.RequestVoteResponse
}

func appendEntriesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(raftcore.AppendEntriesRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	server := srv.(peerServer)
	if interceptor == nil {
		return server.HandleAppendEntries(req), nil
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/AppendEntries"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return server.HandleAppendEntries(req.(*raftcore.AppendEntriesRequest)), nil
	}
	return interceptor(ctx, req, info, handler)
}

func requestVoteHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(raftcore.RequestVoteRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	server := srv.(peerServer)
	if interceptor == nil {
		return server.HandleRequestVote(req), nil
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/RequestVote"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return server.HandleRequestVote(req.(*raftcore.RequestVoteRequest)), nil
	}
	return interceptor(ctx, req, info, handler)
}

// serviceDesc is the hand-written equivalent of what protoc-gen-go-grpc
// would otherwise emit: two unary methods, no streams.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*peerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AppendEntries", Handler: appendEntriesHandler},
		{MethodName: "RequestVote", Handler: requestVoteHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "raft.proto",
}
