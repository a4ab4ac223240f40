package raft

// logStore is the in-memory, ordered sequence of log records. Index i of
// the store is log index i; an empty store has LastIndex() == -1, matching
// the spec's convention that commitIndex/lastApplied start at -1.
type logStore struct {
	entries []LogRecord
}

func newLogStore() *logStore {
	return &logStore{}
}

// Len returns the number of records currently held.
func (l *logStore) Len() int {
	return len(l.entries)
}

// LastIndex returns the highest populated index, or -1 if empty.
func (l *logStore) LastIndex() int {
	return len(l.entries) - 1
}

// LastTerm returns the term of the last entry, or 0 if the log is empty.
func (l *logStore) LastTerm() uint64 {
	if len(l.entries) == 0 {
		return 0
	}
	return l.entries[len(l.entries)-1].Term
}

// At returns the record at index and whether it exists.
func (l *logStore) At(index int) (LogRecord, bool) {
	if index < 0 || index >= len(l.entries) {
		return LogRecord{}, false
	}
	return l.entries[index], true
}

// TermAt returns the term of the entry at index, or 0 if out of range.
func (l *logStore) TermAt(index int) uint64 {
	entry, ok := l.At(index)
	if !ok {
		return 0
	}
	return entry.Term
}

// Append adds records to the tail of the log, preserving order.
func (l *logStore) Append(records ...LogRecord) {
	l.entries = append(l.entries, records...)
}

// TruncateFrom discards every record at index fromIndex and beyond. It is
// the only operation that ever removes records, used exclusively by the
// conflict-repair rule (spec section 4.4).
func (l *logStore) TruncateFrom(fromIndex int) {
	if fromIndex < 0 {
		l.entries = l.entries[:0]
		return
	}
	if fromIndex >= len(l.entries) {
		return
	}
	l.entries = l.entries[:fromIndex]
}

// Slice returns the records from fromIndex (inclusive) to the end. An empty
// slice is returned if fromIndex is beyond the tail.
func (l *logStore) Slice(fromIndex int) []LogRecord {
	if fromIndex < 0 {
		fromIndex = 0
	}
	if fromIndex >= len(l.entries) {
		return nil
	}
	out := make([]LogRecord, len(l.entries)-fromIndex)
	copy(out, l.entries[fromIndex:])
	return out
}
