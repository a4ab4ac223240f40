package raft

import "testing"

func TestLogStoreEmpty(t *testing.T) {
	l := newLogStore()
	if got := l.LastIndex(); got != -1 {
		t.Fatalf("LastIndex() on empty log = %d, want -1", got)
	}
	if got := l.LastTerm(); got != 0 {
		t.Fatalf("LastTerm() on empty log = %d, want 0", got)
	}
	if _, ok := l.At(0); ok {
		t.Fatalf("At(0) on empty log returned ok=true")
	}
}

func TestLogStoreAppendAndRead(t *testing.T) {
	l := newLogStore()
	l.Append(LogRecord{Term: 1, CommandType: NewUser}, LogRecord{Term: 1, CommandType: NewBid})
	l.Append(LogRecord{Term: 2, CommandType: NewAuction})

	if got := l.LastIndex(); got != 2 {
		t.Fatalf("LastIndex() = %d, want 2", got)
	}
	if got := l.LastTerm(); got != 2 {
		t.Fatalf("LastTerm() = %d, want 2", got)
	}
	entry, ok := l.At(1)
	if !ok || entry.CommandType != NewBid {
		t.Fatalf("At(1) = %+v, %v; want NewBid entry", entry, ok)
	}
	if got := l.TermAt(5); got != 0 {
		t.Fatalf("TermAt(5) (out of range) = %d, want 0", got)
	}
}

func TestLogStoreTruncateFrom(t *testing.T) {
	l := newLogStore()
	for i := 0; i < 5; i++ {
		l.Append(LogRecord{Term: uint64(i)})
	}
	l.TruncateFrom(2)
	if got := l.LastIndex(); got != 1 {
		t.Fatalf("LastIndex() after TruncateFrom(2) = %d, want 1", got)
	}

	// Truncating beyond the tail is a no-op.
	l.TruncateFrom(10)
	if got := l.LastIndex(); got != 1 {
		t.Fatalf("LastIndex() after no-op truncate = %d, want 1", got)
	}

	// A negative fromIndex clears the log entirely.
	l.TruncateFrom(-1)
	if got := l.LastIndex(); got != -1 {
		t.Fatalf("LastIndex() after full clear = %d, want -1", got)
	}
}

func TestLogStoreSliceIsDefensiveCopy(t *testing.T) {
	l := newLogStore()
	l.Append(LogRecord{Term: 1}, LogRecord{Term: 2}, LogRecord{Term: 3})

	s := l.Slice(1)
	if len(s) != 2 {
		t.Fatalf("Slice(1) len = %d, want 2", len(s))
	}
	s[0].Term = 99
	if got := l.TermAt(1); got != 2 {
		t.Fatalf("mutating Slice result leaked into log store: TermAt(1) = %d, want 2", got)
	}

	if out := l.Slice(10); out != nil {
		t.Fatalf("Slice beyond tail = %+v, want nil", out)
	}
}
