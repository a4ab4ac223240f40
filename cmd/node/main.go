// Command node runs a single peer of the consensus cluster: it loads a
// YAML config file, wires the gRPC transport, the in-memory auction state
// machine, and the router front door into a *raft.Node, and serves peer
// RPCs until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ghostfox/raftcore/config"
	raftcore "github.com/ghostfox/raftcore/raft"
	"github.com/ghostfox/raftcore/router"
	"github.com/ghostfox/raftcore/statemachine"
	"github.com/ghostfox/raftcore/transport"
)

func main() {
	configPath := flag.String("config", "node.yaml", "Path to node configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "node: %v\n", err)
		os.Exit(1)
	}

	if cfg.Debug {
		cfg.Log.Development = true
		cfg.Log.Level = "debug"
	}
	log, err := buildLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "node: building logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	var store raftcore.StateMachine
	if cfg.Backend.Disabled {
		log.Info("state machine backend disabled; entries will commit and apply with a nil result")
		store = statemachine.NewNullStateMachine()
	} else {
		store = statemachine.NewStore()
	}
	peerTransport := transport.NewGRPCTransport(cfg.Peers, 0)
	defer peerTransport.Close()

	nodeCfg := raftcore.Config{
		ID:                 cfg.ID,
		Peers:              cfg.PeerIDs(),
		MinLeaderTimeout:   cfg.Timeouts.MinLeaderTimeout,
		MaxLeaderTimeout:   cfg.Timeouts.MaxLeaderTimeout,
		MinElectionTimeout: cfg.Timeouts.MinElectionTimeout,
		MaxElectionTimeout: cfg.Timeouts.MaxElectionTimeout,
		HeartbeatTimeout:   cfg.Timeouts.HeartbeatTimeout,
		MinElectionDelay:   cfg.Timeouts.MinElectionDelay,
		Transport:          peerTransport,
		StateMachine:       store,
		Logger:             log,
	}
	node := raftcore.NewNode(nodeCfg)
	node.SetRouter(router.New(node, log))

	server, err := transport.NewServer(cfg.Address, node, log)
	if err != nil {
		log.Fatal("binding peer listener", zap.Error(err))
	}

	node.Start()
	go func() {
		if err := server.Serve(); err != nil {
			log.Error("peer server stopped", zap.Error(err))
		}
	}()

	log.Info("node started",
		zap.String("id", cfg.ID),
		zap.String("address", server.Address()),
		zap.String("routerAddress", cfg.RouterAddress))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")
	server.Stop()
	node.Stop()
}

func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	if cfg.Development {
		zcfg := zap.NewDevelopmentConfig()
		zcfg.Level = zap.NewAtomicLevelAt(level)
		return zcfg.Build()
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
