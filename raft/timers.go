package raft

import (
	"math/rand"
	"time"
)

// timerService owns the node's three named timers (spec section 4.1):
// a single leader timer, a single election timer, and one heartbeat timer
// per peer. Every arm cancels any existing instance of that same timer
// first, and every fired event carries the epoch it was armed under so a
// timer that raced with a cancellation is discarded rather than acted on.
type timerService struct {
	events chan timerEvent

	leaderEpoch   int
	leaderTimer   *time.Timer
	electionEpoch int
	electionTimer *time.Timer

	heartbeatEpoch map[string]int
	heartbeatTimer map[string]*time.Timer
}

type timerKind int

const (
	timerLeader timerKind = iota
	timerElection
	timerHeartbeat
)

type timerEvent struct {
	kind  timerKind
	peer  string // set only for timerHeartbeat
	epoch int
}

func newTimerService() *timerService {
	return &timerService{
		events:         make(chan timerEvent, 64),
		heartbeatEpoch: make(map[string]int),
		heartbeatTimer: make(map[string]*time.Timer),
	}
}

func randomDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// armLeader (re-)arms the leader timer with a fresh randomized interval,
// cancelling any instance already running.
func (t *timerService) armLeader(min, max time.Duration) {
	if t.leaderTimer != nil {
		t.leaderTimer.Stop()
	}
	t.leaderEpoch++
	epoch := t.leaderEpoch
	d := randomDuration(min, max)
	t.leaderTimer = time.AfterFunc(d, func() {
		t.events <- timerEvent{kind: timerLeader, epoch: epoch}
	})
}

// cancelLeader stops the leader timer. Cancelling an already-fired timer is
// safe; it also invalidates a fired event not yet handled.
func (t *timerService) cancelLeader() {
	if t.leaderTimer != nil {
		t.leaderTimer.Stop()
	}
	t.leaderEpoch++
}

// armElection (re-)arms the election timer.
func (t *timerService) armElection(min, max time.Duration) {
	if t.electionTimer != nil {
		t.electionTimer.Stop()
	}
	t.electionEpoch++
	epoch := t.electionEpoch
	d := randomDuration(min, max)
	t.electionTimer = time.AfterFunc(d, func() {
		t.events <- timerEvent{kind: timerElection, epoch: epoch}
	})
}

func (t *timerService) cancelElection() {
	if t.electionTimer != nil {
		t.electionTimer.Stop()
	}
	t.electionEpoch++
}

// armHeartbeat (re-)arms the heartbeat timer for a single peer. Passing an
// empty peer string re-arms every peer's heartbeat timer ("reset all"
// semantics, spec section 4.1 / design note 9).
func (t *timerService) armHeartbeat(peer string, interval time.Duration, allPeers []string) {
	if peer == "" {
		for _, p := range allPeers {
			t.armHeartbeat(p, interval, nil)
		}
		return
	}
	if existing := t.heartbeatTimer[peer]; existing != nil {
		existing.Stop()
	}
	t.heartbeatEpoch[peer]++
	epoch := t.heartbeatEpoch[peer]
	t.heartbeatTimer[peer] = time.AfterFunc(interval, func() {
		t.events <- timerEvent{kind: timerHeartbeat, peer: peer, epoch: epoch}
	})
}

// cancelHeartbeat stops a single peer's heartbeat timer, or every peer's
// timer when peer is empty.
func (t *timerService) cancelHeartbeat(peer string, allPeers []string) {
	if peer == "" {
		for _, p := range allPeers {
			t.cancelHeartbeat(p, nil)
		}
		return
	}
	if existing := t.heartbeatTimer[peer]; existing != nil {
		existing.Stop()
	}
	t.heartbeatEpoch[peer]++
}

// valid reports whether a fired event is still current (not superseded by
// a later arm/cancel that raced with the timer firing).
func (t *timerService) valid(ev timerEvent) bool {
	switch ev.kind {
	case timerLeader:
		return ev.epoch == t.leaderEpoch
	case timerElection:
		return ev.epoch == t.electionEpoch
	case timerHeartbeat:
		return ev.epoch == t.heartbeatEpoch[ev.peer]
	default:
		return false
	}
}

// stopAll cancels every outstanding timer. Used on node shutdown.
func (t *timerService) stopAll(peers []string) {
	t.cancelLeader()
	t.cancelElection()
	t.cancelHeartbeat("", peers)
}
