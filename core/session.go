package core

import (
	"sync"
	"time"
)

// AgentSession holds the durable per-conversation state owned by the session
// actor. The sync watermark is guarded by a mutex because the scheduler's
// wake-up advances it from its own goroutine; everything else is mutated only
// by the actor.
type AgentSession struct {
	ConversationID string
	UserID         string
	OrgID          string // optional, empty when the user has no organization

	mu            sync.Mutex
	mode          Mode
	contextID     string // academic entity the chat is about, optional
	contextType   string
	createdAt     time.Time
	lastActiveAt  time.Time
	lastSyncedSeq uint64
}

// NewAgentSession initializes fresh session state at watermark 0.
func NewAgentSession(conversationID, userID, orgID string) *AgentSession {
	now := time.Now().UTC()
	return &AgentSession{
		ConversationID: conversationID,
		UserID:         userID,
		OrgID:          orgID,
		mode:           ModeDefault,
		createdAt:      now,
		lastActiveAt:   now,
	}
}

// Mode returns the session's current behavioral mode.
func (s *AgentSession) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode records a mode switch.
func (s *AgentSession) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

// Context returns the academic entity the conversation is currently about.
func (s *AgentSession) Context() (id, typ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contextID, s.contextType
}

// SetContext records a context switch.
func (s *AgentSession) SetContext(id, typ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contextID = id
	s.contextType = typ
}

// Touch updates the last-activity timestamp.
func (s *AgentSession) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActiveAt = time.Now().UTC()
}

// CreatedAt returns the session creation time.
func (s *AgentSession) CreatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createdAt
}

// LastActiveAt returns the last-activity timestamp.
func (s *AgentSession) LastActiveAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActiveAt
}

// LastSyncedSeq returns the highest sequence number the external store has
// durably accepted.
func (s *AgentSession) LastSyncedSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSyncedSeq
}

// AdvanceSynced moves the watermark forward by the count of messages the
// store reported as accepted. The watermark never decreases; a zero or
// negative advance is a no-op.
func (s *AgentSession) AdvanceSynced(accepted int) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if accepted > 0 {
		s.lastSyncedSeq += uint64(accepted)
	}
	return s.lastSyncedSeq
}
