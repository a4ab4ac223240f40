package transport

import (
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// Server hosts one node's peer-facing gRPC endpoint.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
	log        *zap.Logger
}

// NewServer binds address and registers node against the hand-written
// service descriptor. node is typically a *raft.Node.
func NewServer(address string, node peerServer, log *zap.Logger) (*Server, error) {
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	gs := grpc.NewServer()
	gs.RegisterService(&serviceDesc, node)
	return &Server{grpcServer: gs, listener: lis, log: log}, nil
}

// Serve blocks, accepting peer RPCs until Stop is called.
func (s *Server) Serve() error {
	return s.grpcServer.Serve(s.listener)
}

// Stop drains in-flight RPCs and shuts the listener down.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}

// Address returns the bound listen address, useful when address was ":0".
func (s *Server) Address() string {
	return s.listener.Addr().String()
}
