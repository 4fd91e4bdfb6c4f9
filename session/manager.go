package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/studymesh/studymesh/core"
	"github.com/studymesh/studymesh/logging"
	"github.com/studymesh/studymesh/mode"
	"github.com/studymesh/studymesh/model"
	"github.com/studymesh/studymesh/syncer"
	"github.com/studymesh/studymesh/tool"
)

// DepsProvider builds the caller-scoped tool capabilities for an identity.
type DepsProvider func(userID, orgID string) tool.Deps

// HistoryLoader fetches the previously synced transcript of a conversation
// from the external store. Optional; when set, the first connect restores
// history into the new controller before it serves any turn.
type HistoryLoader func(ctx context.Context, conversationID, userID string) ([]*core.Message, error)

// Manager is the process-local controller registry. Controllers are created
// lazily on first connect and reused across reconnects; a conversation is
// owned by the user who opened it and any other identity is rejected.
type Manager struct {
	registry *tool.Registry
	composer *mode.Composer
	models   model.Resolver
	depsFor  DepsProvider
	pusher   syncer.Pusher
	window   time.Duration
	history  HistoryLoader
	logger   logging.Logger

	mu          sync.RWMutex
	controllers map[string]*Controller
}

// NewManager wires the shared collaborators every controller is built from.
func NewManager(registry *tool.Registry, composer *mode.Composer, models model.Resolver, depsFor DepsProvider, pusher syncer.Pusher, window time.Duration, logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Manager{
		registry:    registry,
		composer:    composer,
		models:      models,
		depsFor:     depsFor,
		pusher:      pusher,
		window:      window,
		logger:      logger,
		controllers: make(map[string]*Controller),
	}
}

// SetHistoryLoader installs the transcript restore hook. Must be called
// before the manager starts serving connects.
func (m *Manager) SetHistoryLoader(fn HistoryLoader) { m.history = fn }

// Connect returns the controller for a conversation, creating it on first
// use. Reconnecting as the owning user reuses the live controller, log and
// watermark; a different user gets core.ErrUnauthorized without any state
// being touched. First use restores the stored transcript when a history
// loader is installed.
func (m *Manager) Connect(ctx context.Context, conversationID, userID, orgID string) (*Controller, error) {
	m.mu.RLock()
	ctrl, ok := m.controllers[conversationID]
	m.mu.RUnlock()
	if ok {
		if err := ctrl.Authorize(userID); err != nil {
			return nil, err
		}
		ctrl.Session().Touch()
		return ctrl, nil
	}

	// Loaded outside the lock; a racing connect may win the registry below,
	// in which case this copy is discarded.
	var restored []*core.Message
	if m.history != nil {
		var err error
		restored, err = m.history(ctx, conversationID, userID)
		if err != nil {
			return nil, fmt.Errorf("restore conversation %s: %w", conversationID, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ctrl, ok := m.controllers[conversationID]; ok {
		if err := ctrl.Authorize(userID); err != nil {
			return nil, err
		}
		ctrl.Session().Touch()
		return ctrl, nil
	}

	sess := core.NewAgentSession(conversationID, userID, orgID)
	ctrl = NewController(sess, m.registry, m.composer, m.models, m.depsFor(userID, orgID), m.pusher, m.window, m.logger)
	if len(restored) > 0 {
		if err := ctrl.Hydrate(restored); err != nil {
			return nil, err
		}
	}
	m.controllers[conversationID] = ctrl
	m.logger.Info("session.created", "conversation_id", conversationID, "user_id", userID)
	return ctrl, nil
}

// Get returns a live controller without creating one.
func (m *Manager) Get(conversationID string) (*Controller, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ctrl, ok := m.controllers[conversationID]
	return ctrl, ok
}

// Len reports the number of live controllers.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.controllers)
}

// Remove closes a conversation's controller and drops it from the registry.
func (m *Manager) Remove(ctx context.Context, conversationID string) error {
	m.mu.Lock()
	ctrl, ok := m.controllers[conversationID]
	delete(m.controllers, conversationID)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return ctrl.Close(ctx)
}

// CloseAll flushes and drops every controller. Used on shutdown; the first
// flush failure is reported after all controllers were attempted.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	controllers := make([]*Controller, 0, len(m.controllers))
	for _, ctrl := range m.controllers {
		controllers = append(controllers, ctrl)
	}
	m.controllers = make(map[string]*Controller)
	m.mu.Unlock()

	var firstErr error
	for _, ctrl := range controllers {
		if err := ctrl.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
