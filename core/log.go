package core

import (
	"fmt"
	"sync"
)

// MessageLog is the append-only conversation record of one session. Entries
// receive strictly increasing 1-based sequence numbers in arrival order and
// are never removed or re-indexed; cleaned views for the model are computed
// by the flow package, not applied here.
//
// The log is safe for concurrent access: the session actor appends while the
// sync scheduler's wake-up reads deltas on its own goroutine.
type MessageLog struct {
	mu      sync.RWMutex
	entries []*Message
}

// NewMessageLog returns an empty log.
func NewMessageLog() *MessageLog {
	return &MessageLog{}
}

// Append assigns the next sequence number to msg and stores it. Appending a
// message that already carries a sequence number is a programming error.
func (l *MessageLog) Append(msg *Message) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if msg.Sequence != 0 {
		return 0, fmt.Errorf("message %s already sequenced at %d", msg.ID, msg.Sequence)
	}
	msg.Sequence = uint64(len(l.entries)) + 1
	l.entries = append(l.entries, msg)
	return msg.Sequence, nil
}

// Len returns the number of appended messages, which equals the highest
// assigned sequence number.
func (l *MessageLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Snapshot returns a copy of the entry slice. The messages themselves are
// shared; only tool-call part state may change after the snapshot is taken.
func (l *MessageLog) Snapshot() []*Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Message, len(l.entries))
	copy(out, l.entries)
	return out
}

// Since returns all messages with sequence strictly greater than seq, in
// sequence order and without gaps. This is the delta the sync scheduler
// flushes.
func (l *MessageLog) Since(seq uint64) []*Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if seq >= uint64(len(l.entries)) {
		return nil
	}
	tail := l.entries[seq:]
	out := make([]*Message, len(tail))
	copy(out, tail)
	return out
}

// FindToolCall locates a tool-call part by its call identifier.
func (l *MessageLog) FindToolCall(callID string) (*Message, *ToolCallPart, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, m := range l.entries {
		for _, tc := range m.ToolCalls() {
			if tc.CallID == callID {
				return m, tc, true
			}
		}
	}
	return nil, nil, false
}
