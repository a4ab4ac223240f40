package raft

import "go.uber.org/zap"

// logger wraps a zap.Logger with one named method per protocol event, the
// same shape the reference node logger used (one call site per event), but
// backed by structured fields instead of formatted strings.
type logger struct {
	z *zap.Logger
}

func newLogger(nodeID string, base *zap.Logger) *logger {
	if base == nil {
		base, _ = zap.NewDevelopment()
	}
	return &logger{z: base.With(zap.String("node", nodeID))}
}

func (l *logger) logStateChange(old, new Role, term uint64) {
	l.z.Info("role transition",
		zap.String("from", old.String()),
		zap.String("to", new.String()),
		zap.Uint64("term", term))
}

func (l *logger) logElectionStart(term uint64) {
	l.z.Info("election started", zap.Uint64("term", term))
}

func (l *logger) logElectionWon(term uint64, votes, needed int) {
	l.z.Info("election won", zap.Uint64("term", term), zap.Int("votes", votes), zap.Int("needed", needed))
}

func (l *logger) logElectionLost(term uint64, votes, needed int) {
	l.z.Info("election lost", zap.Uint64("term", term), zap.Int("votes", votes), zap.Int("needed", needed))
}

func (l *logger) logVoteGranted(candidateID string, term uint64) {
	l.z.Info("vote granted", zap.String("candidate", candidateID), zap.Uint64("term", term))
}

func (l *logger) logVoteDenied(candidateID string, term uint64, reason string) {
	l.z.Info("vote denied", zap.String("candidate", candidateID), zap.Uint64("term", term), zap.String("reason", reason))
}

func (l *logger) logHeartbeatSent(term uint64, peer string) {
	l.z.Debug("heartbeat sent", zap.Uint64("term", term), zap.String("peer", peer))
}

func (l *logger) logAppendEntries(leaderID string, term uint64, prevLogIndex, entryCount int) {
	l.z.Debug("append entries received",
		zap.String("leader", leaderID),
		zap.Uint64("term", term),
		zap.Int("prevLogIndex", prevLogIndex),
		zap.Int("entries", entryCount))
}

func (l *logger) logCommit(index int, term uint64) {
	l.z.Info("commit index advanced", zap.Int("index", index), zap.Uint64("term", term))
}

func (l *logger) logApply(index int, commandType CommandType) {
	l.z.Info("applied entry", zap.Int("index", index), zap.String("commandType", string(commandType)))
}

func (l *logger) logStepDown(oldTerm, newTerm uint64) {
	l.z.Info("stepping down", zap.Uint64("oldTerm", oldTerm), zap.Uint64("newTerm", newTerm))
}

func (l *logger) logLeaderTimeout() {
	l.z.Debug("leader timer fired, becoming candidate")
}

func (l *logger) logInvariantViolation(op, msg string) {
	l.z.Error("invariant violation", zap.String("op", op), zap.String("msg", msg))
}
