// Package router is the client-facing front door the consensus core talks
// to only through the raft.Router interface (spec section 6): request
// routing, session management, and the wire protocol clients actually
// speak are all explicitly out of scope for the core itself. This package
// is the minimal concrete collaborator that exercises that interface.
package router

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	raftcore "github.com/ghostfox/raftcore/raft"
)

// submitter is the subset of *raft.Node the router drives commands
// through.
type submitter interface {
	Submit(commandType raftcore.CommandType, payload []byte) (*raftcore.CompletionHandle, error)
}

// Router tracks open client sessions and submits commands on their behalf.
// Each session gets a uuid so DisconnectSessions has something concrete to
// invalidate when leadership moves off this node.
type Router struct {
	mu       sync.Mutex
	sessions map[string]struct{}
	node     submitter
	log      *zap.Logger
}

func New(node submitter, log *zap.Logger) *Router {
	return &Router{
		sessions: make(map[string]struct{}),
		node:     node,
		log:      log,
	}
}

// OpenSession registers a new client session and returns its id.
func (r *Router) OpenSession() string {
	id := uuid.NewString()
	r.mu.Lock()
	r.sessions[id] = struct{}{}
	r.mu.Unlock()
	return id
}

// CloseSession drops one session explicitly, e.g. on client disconnect.
func (r *Router) CloseSession(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// DisconnectSessions implements raft.Router. The consensus core calls this
// whenever this node steps down or learns of a newer term (spec section
// 4.3 step 5), so every open session is dropped and clients reconnect to
// rediscover the current leader.
func (r *Router) DisconnectSessions() {
	r.mu.Lock()
	n := len(r.sessions)
	r.sessions = make(map[string]struct{})
	r.mu.Unlock()
	if r.log != nil && n > 0 {
		r.log.Info("dropped sessions on leadership change", zap.Int("count", n))
	}
}

// Submit proposes a command and waits for it to commit and apply,
// returning the state machine's result or surfacing a *raft.NotLeaderError
// hint unchanged.
func (r *Router) Submit(ctx context.Context, commandType raftcore.CommandType, payload []byte) (interface{}, error) {
	handle, err := r.node.Submit(commandType, payload)
	if err != nil {
		return nil, err
	}
	select {
	case <-handle.Done():
		return handle.Wait()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
