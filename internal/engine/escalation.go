package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/notification-engine/internal/domain"
)

// EscalationStore persists per-ticket escalation state.
type EscalationStore interface {
	GetActiveByTicket(ctx context.Context, ticketID string) (*domain.Escalation, error)
	Create(ctx context.Context, escalation *domain.Escalation) error
	Update(ctx context.Context, escalation *domain.Escalation) error
	ListActive(ctx context.Context) ([]domain.Escalation, error)
}

// Escalator advances per-ticket escalation levels. Levels are monotonic while
// a ticket stays open; the terminal transition is resolution, after which no
// further transitions occur for that escalation.
type Escalator struct {
	store    EscalationStore
	emit     EmitFunc
	maxLevel int
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewEscalator constructs the state machine.
func NewEscalator(store EscalationStore, emit EmitFunc, maxLevel int, interval time.Duration, logger *zap.Logger) *Escalator {
	if maxLevel <= 0 {
		maxLevel = 3
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Escalator{
		store:    store,
		emit:     emit,
		maxLevel: maxLevel,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Raise moves the ticket to the next escalation level: none -> level 1, or
// level N -> N+1 up to the configured cap. Each transition emits an
// escalation event so broader audiences can be notified at higher levels.
func (e *Escalator) Raise(ctx context.Context, ticketID, reason string) (*domain.Escalation, error) {
	active, err := e.store.GetActiveByTicket(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("load escalation: %w", err)
	}

	now := e.now()
	if active == nil {
		escalation := &domain.Escalation{
			TicketID:    ticketID,
			Level:       1,
			Reason:      reason,
			LastLevelAt: now,
		}
		if err := e.store.Create(ctx, escalation); err != nil {
			return nil, fmt.Errorf("create escalation: %w", err)
		}
		e.announce(escalation)
		return escalation, nil
	}

	if active.Level >= e.maxLevel {
		return active, nil
	}

	active.Level++
	active.Reason = reason
	active.LastLevelAt = now
	if err := e.store.Update(ctx, active); err != nil {
		return nil, fmt.Errorf("advance escalation: %w", err)
	}
	e.announce(active)
	return active, nil
}

// ResolveTicket terminates the active escalation for the ticket, if any.
// Idempotent: resolving an already-resolved or absent escalation is a no-op.
func (e *Escalator) ResolveTicket(ctx context.Context, ticketID string) error {
	active, err := e.store.GetActiveByTicket(ctx, ticketID)
	if err != nil {
		return fmt.Errorf("load escalation: %w", err)
	}
	if active == nil {
		return nil
	}

	now := e.now()
	active.Resolved = true
	active.ResolvedAt = &now
	if err := e.store.Update(ctx, active); err != nil {
		return fmt.Errorf("resolve escalation: %w", err)
	}

	e.logger.Info("escalation resolved",
		zap.String("ticket_id", ticketID),
		zap.Int("level", active.Level))
	return nil
}

// Sweep re-escalates every active escalation whose ticket has stayed
// unresolved past the re-escalation interval since its last level change.
// Failures are isolated per escalation.
func (e *Escalator) Sweep(ctx context.Context) {
	active, err := e.store.ListActive(ctx)
	if err != nil {
		e.logger.Error("escalation sweep: listing failed", zap.Error(err))
		return
	}

	now := e.now()
	for _, escalation := range active {
		if escalation.Level >= e.maxLevel {
			continue
		}
		if now.Sub(escalation.LastLevelAt) <= e.interval {
			continue
		}
		reason := fmt.Sprintf("unresolved for %s at level %d", e.interval, escalation.Level)
		if _, err := e.Raise(ctx, escalation.TicketID, reason); err != nil {
			e.logger.Warn("escalation sweep: re-escalation failed",
				zap.String("ticket_id", escalation.TicketID),
				zap.Error(err))
		}
	}
}

func (e *Escalator) announce(escalation *domain.Escalation) {
	e.logger.Info("ticket escalated",
		zap.String("ticket_id", escalation.TicketID),
		zap.Int("level", escalation.Level),
		zap.String("reason", escalation.Reason))
	e.emit(domain.TriggerEscalation, escalation.Context())
}
