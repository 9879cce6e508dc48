package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/notification-engine/internal/domain"
)

// DelayedAction is a fully-resolved (already rendered) notification held for
// later dispatch. It carries copies, not references, so rule or log mutations
// cannot affect pending work.
type DelayedAction struct {
	LogID      string
	Channel    domain.NotificationChannel
	Recipients []string
	Subject    string
	Body       string
	Priority   domain.NotificationPriority
	TicketID   *string
	RuleID     *string
}

// DispatchFunc delivers a delayed action when its timer fires.
type DispatchFunc func(ctx context.Context, action DelayedAction)

type pendingEntry struct {
	action DelayedAction
	timer  *time.Timer
	fireAt time.Time
}

// DelayedScheduler holds pending actions keyed by opaque handle and fires each
// at its scheduled time unless cancelled first. Fire and cancel race to remove
// the registry entry under one mutex, so exactly one outcome wins.
type DelayedScheduler struct {
	mu       sync.Mutex
	pending  map[string]*pendingEntry
	dispatch DispatchFunc
	logger   *zap.Logger
	stopped  bool
}

// NewDelayedScheduler constructs a scheduler delivering through dispatch.
func NewDelayedScheduler(dispatch DispatchFunc, logger *zap.Logger) *DelayedScheduler {
	return &DelayedScheduler{
		pending:  make(map[string]*pendingEntry),
		dispatch: dispatch,
		logger:   logger,
	}
}

// Schedule registers the action to fire at fireAt and returns its handle
// immediately. A fireAt in the past fires on the next timer tick.
func (s *DelayedScheduler) Schedule(action DelayedAction, fireAt time.Time) string {
	handle := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		s.logger.Warn("scheduler stopped; dropping delayed action", zap.String("log_id", action.LogID))
		return handle
	}

	entry := &pendingEntry{action: action, fireAt: fireAt}
	entry.timer = time.AfterFunc(time.Until(fireAt), func() {
		s.fire(handle)
	})
	s.pending[handle] = entry

	s.logger.Debug("delayed action scheduled",
		zap.String("handle", handle),
		zap.Time("fire_at", fireAt),
		zap.String("channel", string(action.Channel)))
	return handle
}

// Cancel removes a pending action. Returns false when the handle is unknown
// or the action already fired; cancelling after firing is a no-op.
func (s *DelayedScheduler) Cancel(handle string) bool {
	s.mu.Lock()
	entry, ok := s.pending[handle]
	if ok {
		delete(s.pending, handle)
		entry.timer.Stop()
	}
	s.mu.Unlock()

	if ok {
		s.logger.Debug("delayed action cancelled", zap.String("handle", handle))
	}
	return ok
}

// PendingCount reports how many actions are still scheduled.
func (s *DelayedScheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop cancels every pending timer and drops the actions. Delayed
// notifications are best-effort, not durable.
func (s *DelayedScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for handle, entry := range s.pending {
		entry.timer.Stop()
		delete(s.pending, handle)
	}
}

func (s *DelayedScheduler) fire(handle string) {
	s.mu.Lock()
	entry, ok := s.pending[handle]
	if ok {
		delete(s.pending, handle)
	}
	s.mu.Unlock()

	// lost the race against Cancel or Stop
	if !ok {
		return
	}

	s.dispatch(context.Background(), entry.action)
}
