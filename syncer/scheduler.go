package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/studymesh/studymesh/core"
	"github.com/studymesh/studymesh/logging"
)

// DefaultDebounce is the standard debounce window between a trigger and the
// persistence wake-up.
const DefaultDebounce = 3 * time.Second

// ErrResourceGone signals that the owning conversation record no longer
// exists upstream. It is terminal for the scheduler but not fatal for the
// session: syncing stops, the chat continues.
var ErrResourceGone = errors.New("sync target gone")

// BatchMessage is one message of a sync request in the store's wire shape.
type BatchMessage struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	Role           string `json:"role"`
	Sequence       uint64 `json:"sequence"`
	Content        string `json:"content"`
}

// Batch is the idempotent delta pushed to the external store, keyed by the
// sequence watermark.
type Batch struct {
	ConversationID     string         `json:"conversationId"`
	UserID             string         `json:"userId"`
	LastSyncedSequence uint64         `json:"lastSyncedSequence"`
	Messages           []BatchMessage `json:"messages"`
}

// PushResult reports how many messages the store durably accepted. The
// store's count is authoritative; it may be lower than the batch size.
type PushResult struct {
	Synced int `json:"synced"`
}

// Pusher delivers one batch to the external store. Implementations return
// ErrResourceGone (possibly wrapped) for the terminal "record deleted
// upstream" case and any other error for transient failures.
type Pusher interface {
	Push(ctx context.Context, batch Batch) (PushResult, error)
}

// Scheduler is the per-session durable sync scheduler. Arm is called by the
// session actor after events that produce messages; the wake-up runs on its
// own goroutine and only reads the append-only log plus the watermark, then
// performs one atomic watermark advance, so it is safe to interleave with a
// concurrent turn.
type Scheduler struct {
	sess   *core.AgentSession
	log    *core.MessageLog
	pusher Pusher
	window time.Duration
	logger logging.Logger

	task    delayedTask
	stopped chan struct{}
}

// NewScheduler wires a scheduler to one session's state and log. A
// non-positive window falls back to DefaultDebounce.
func NewScheduler(sess *core.AgentSession, log *core.MessageLog, pusher Pusher, window time.Duration, logger logging.Logger) *Scheduler {
	if window <= 0 {
		window = DefaultDebounce
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Scheduler{
		sess:    sess,
		log:     log,
		pusher:  pusher,
		window:  window,
		logger:  logger,
		stopped: make(chan struct{}),
	}
}

// Arm schedules a wake-up after the debounce window. Triggers while a
// wake-up is already armed collapse into it, bounding write amplification
// under bursty chat activity. Arming after the scheduler stopped is a no-op.
func (s *Scheduler) Arm() {
	if s.Stopped() {
		return
	}
	if s.task.Arm(s.window, s.wakeUp) {
		s.logger.Debug("sync.armed", "conversation_id", s.sess.ConversationID, "window_ms", s.window.Milliseconds())
	}
}

// Armed reports whether a wake-up is pending.
func (s *Scheduler) Armed() bool { return s.task.Armed() }

// Stopped reports whether the scheduler hit the terminal resource-gone state.
func (s *Scheduler) Stopped() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}

func (s *Scheduler) wakeUp() {
	// The wake-up outlives any in-flight turn; it carries its own context.
	if err := s.Flush(context.Background()); err != nil {
		if errors.Is(err, ErrResourceGone) {
			return
		}
		// Retry-by-rearm at the same interval. Deliberately unbounded with
		// no backoff growth; see the design notes.
		s.logger.Warn("sync.flush.retry", "conversation_id", s.sess.ConversationID, "error", err.Error())
		s.Arm()
	}
}

// Flush pushes all messages above the watermark now. An empty delta is a
// no-op. On success the watermark advances by the count the store reports
// accepted; on ErrResourceGone the scheduler stops permanently; any other
// error leaves the watermark untouched and is returned for the caller (or
// the wake-up's rearm path) to handle.
func (s *Scheduler) Flush(ctx context.Context) error {
	if s.Stopped() {
		return nil
	}

	watermark := s.sess.LastSyncedSeq()
	delta := s.log.Since(watermark)
	if len(delta) == 0 {
		return nil
	}

	batch := Batch{
		ConversationID:     s.sess.ConversationID,
		UserID:             s.sess.UserID,
		LastSyncedSequence: watermark,
		Messages:           make([]BatchMessage, 0, len(delta)),
	}
	for _, msg := range delta {
		batch.Messages = append(batch.Messages, BatchMessage{
			ConversationID: s.sess.ConversationID,
			UserID:         s.sess.UserID,
			Role:           msg.Role,
			Sequence:       msg.Sequence,
			Content:        msg.ContentForSync(),
		})
	}

	result, err := s.pusher.Push(ctx, batch)
	if err != nil {
		if errors.Is(err, ErrResourceGone) {
			s.stop()
			s.logger.Info("sync.stopped", "conversation_id", s.sess.ConversationID, "reason", "resource gone")
			return err
		}
		return err
	}

	advanced := s.sess.AdvanceSynced(result.Synced)
	s.logger.Debug("sync.flush.ok",
		"conversation_id", s.sess.ConversationID,
		"accepted", result.Synced,
		"watermark", advanced,
	)
	return nil
}

// Close cancels any pending wake-up and performs one final best-effort
// flush. Used when the session ends.
func (s *Scheduler) Close(ctx context.Context) error {
	s.task.Cancel()
	return s.Flush(ctx)
}

func (s *Scheduler) stop() {
	select {
	case <-s.stopped:
	default:
		close(s.stopped)
	}
	s.task.Cancel()
}
