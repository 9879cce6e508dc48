package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/notification-engine/internal/domain"
)

// TicketSource lists open tickets from the external ticket store.
type TicketSource interface {
	ListOpen(ctx context.Context) ([]domain.TicketSnapshot, error)
}

// SlaConfigSource resolves the SLA thresholds for an application/priority
// pair, falling back to the global default row.
type SlaConfigSource interface {
	FindFor(ctx context.Context, applicationID *string, priority domain.TicketPriority) (*domain.SlaConfig, error)
}

// ViolationStore persists violations and answers the active-window check.
type ViolationStore interface {
	HasOpen(ctx context.Context, ticketID string, vtype domain.ViolationType) (bool, error)
	Create(ctx context.Context, violation *domain.SlaViolation) error
}

// EmitFunc feeds an event back into the rule matcher.
type EmitFunc func(trigger domain.Trigger, evctx map[string]any)

// Sweeper runs the escalation re-evaluation pass after each ticket scan.
type Sweeper interface {
	Sweep(ctx context.Context)
}

// SLAMonitor periodically scans open tickets for response/resolution deadline
// breaches and raises violations. Scans never overlap: if the previous scan is
// still running the cycle is skipped.
type SLAMonitor struct {
	tickets        TicketSource
	configs        SlaConfigSource
	violations     ViolationStore
	emit           EmitFunc
	sweeper        Sweeper
	criticalMargin float64
	logger         *zap.Logger

	scanMu     sync.Mutex
	lastScanMu sync.Mutex
	lastScanAt time.Time

	cron *cron.Cron
	now  func() time.Time
}

// NewSLAMonitor constructs the monitor. sweeper may be nil.
func NewSLAMonitor(tickets TicketSource, configs SlaConfigSource, violations ViolationStore, emit EmitFunc, sweeper Sweeper, criticalMargin float64, logger *zap.Logger) *SLAMonitor {
	if criticalMargin < 1 {
		criticalMargin = 1.5
	}
	return &SLAMonitor{
		tickets:        tickets,
		configs:        configs,
		violations:     violations,
		emit:           emit,
		sweeper:        sweeper,
		criticalMargin: criticalMargin,
		logger:         logger,
		now:            time.Now,
	}
}

// Start schedules recurring scans using the given cron spec ("@every 1m").
func (m *SLAMonitor) Start(cronSpec string) error {
	m.cron = cron.New()
	if _, err := m.cron.AddFunc(cronSpec, func() {
		m.RunScan(context.Background())
	}); err != nil {
		return fmt.Errorf("invalid scan schedule %q: %w", cronSpec, err)
	}
	m.cron.Start()
	m.logger.Info("sla monitor started", zap.String("schedule", cronSpec))
	return nil
}

// Stop halts the recurring schedule and waits for a running scan to finish.
func (m *SLAMonitor) Stop() {
	if m.cron != nil {
		<-m.cron.Stop().Done()
	}
	m.scanMu.Lock()
	m.scanMu.Unlock() //nolint:staticcheck // barrier: wait for in-flight scan
	m.logger.Info("sla monitor stopped")
}

// RunScan executes one scan cycle unless one is already in progress.
func (m *SLAMonitor) RunScan(ctx context.Context) {
	if !m.scanMu.TryLock() {
		m.logger.Warn("previous sla scan still running, skipping cycle")
		return
	}
	defer m.scanMu.Unlock()

	tickets, err := m.tickets.ListOpen(ctx)
	if err != nil {
		m.logger.Error("sla scan: listing open tickets failed", zap.Error(err))
		return
	}

	raised := 0
	for _, ticket := range tickets {
		n, err := m.scanTicket(ctx, ticket)
		if err != nil {
			// one ticket's failure never aborts the rest of the batch
			m.logger.Warn("sla scan: ticket evaluation failed",
				zap.String("ticket_id", ticket.ID),
				zap.Error(err))
			continue
		}
		raised += n
	}

	if m.sweeper != nil {
		m.sweeper.Sweep(ctx)
	}

	now := m.now()
	m.lastScanMu.Lock()
	m.lastScanAt = now
	m.lastScanMu.Unlock()

	m.logger.Debug("sla scan complete",
		zap.Int("tickets", len(tickets)),
		zap.Int("violations_raised", raised))
}

// LastScanAt reports when the last scan completed.
func (m *SLAMonitor) LastScanAt() time.Time {
	m.lastScanMu.Lock()
	defer m.lastScanMu.Unlock()
	return m.lastScanAt
}

func (m *SLAMonitor) scanTicket(ctx context.Context, ticket domain.TicketSnapshot) (int, error) {
	cfg, err := m.configs.FindFor(ctx, ticket.ApplicationID, ticket.Priority)
	if err != nil {
		return 0, fmt.Errorf("sla config lookup: %w", err)
	}
	if cfg == nil {
		return 0, nil
	}

	now := m.now()
	raised := 0

	if ticket.FirstRespondedAt == nil && cfg.ResponseMinutes > 0 {
		elapsed := now.Sub(ticket.CreatedAt)
		n, err := m.raiseIfBreached(ctx, ticket, domain.ViolationResponseTime, cfg.ResponseMinutes, elapsed)
		if err != nil {
			return raised, err
		}
		raised += n
	}

	if cfg.ResolutionMinutes > 0 {
		elapsed := now.Sub(ticket.LastStatusAt)
		n, err := m.raiseIfBreached(ctx, ticket, domain.ViolationResolutionTime, cfg.ResolutionMinutes, elapsed)
		if err != nil {
			return raised, err
		}
		raised += n
	}

	return raised, nil
}

func (m *SLAMonitor) raiseIfBreached(ctx context.Context, ticket domain.TicketSnapshot, vtype domain.ViolationType, thresholdMinutes int, elapsed time.Duration) (int, error) {
	threshold := time.Duration(thresholdMinutes) * time.Minute
	if elapsed <= threshold {
		return 0, nil
	}

	open, err := m.violations.HasOpen(ctx, ticket.ID, vtype)
	if err != nil {
		return 0, fmt.Errorf("violation lookup: %w", err)
	}
	if open {
		// already raised for this crossing; re-raise only after it clears
		return 0, nil
	}

	severity := domain.SeverityWarning
	if elapsed > time.Duration(float64(threshold)*m.criticalMargin) {
		severity = domain.SeverityCritical
	}

	violation := &domain.SlaViolation{
		TicketID:         ticket.ID,
		Type:             vtype,
		ThresholdMinutes: thresholdMinutes,
		ElapsedMinutes:   int(elapsed.Minutes()),
		Severity:         severity,
	}
	if err := m.violations.Create(ctx, violation); err != nil {
		return 0, fmt.Errorf("record violation: %w", err)
	}

	m.logger.Info("sla violation raised",
		zap.String("ticket_id", ticket.ID),
		zap.String("type", string(vtype)),
		zap.String("severity", string(severity)),
		zap.Int("threshold_minutes", thresholdMinutes),
		zap.Int("elapsed_minutes", violation.ElapsedMinutes))

	evctx := violation.Context()
	evctx["ticket"] = ticket.Context()
	m.emit(domain.TriggerSLAViolation, evctx)
	return 1, nil
}
