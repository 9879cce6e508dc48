package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/notification-engine/internal/channel"
	"github.com/spec-kit/notification-engine/internal/domain"
	"github.com/spec-kit/notification-engine/internal/engine"
	"github.com/spec-kit/notification-engine/internal/events"
	"github.com/spec-kit/notification-engine/internal/observability"
	"github.com/spec-kit/notification-engine/internal/repository"
	apperrors "github.com/spec-kit/notification-engine/pkg/util"
)

// EngineStats summarizes engine health for operators.
type EngineStats struct {
	ActiveRuleCount     int              `json:"active_rule_count"`
	PendingDelayedCount int              `json:"pending_delayed_count"`
	LastScanAt          *time.Time       `json:"last_scan_at,omitempty"`
	DispatchCounts      map[string]int64 `json:"dispatch_counts"`
}

// EngineDependencies bundles collaborators for the engine service.
type EngineDependencies struct {
	Dispatcher events.Dispatcher
	Matcher    *engine.Matcher
	Escalator  *engine.Escalator
	Channels   channel.Registry
	Rules      repository.RuleRepository
	Logs       repository.NotificationLogRepository
	Violations repository.SlaViolationRepository
	Alerts     repository.AlertRepository
	Users      repository.UserDirectory
	Settings   repository.SettingsRepository
	Metrics    *observability.Metrics
}

// EngineService drives the notification pipeline: match rules against events,
// render templates, resolve recipients, and dispatch or schedule delivery.
type EngineService struct {
	dispatcher events.Dispatcher
	matcher    *engine.Matcher
	scheduler  *engine.DelayedScheduler
	escalator  *engine.Escalator
	monitor    *engine.SLAMonitor
	channels   channel.Registry
	rules      repository.RuleRepository
	logs       repository.NotificationLogRepository
	violations repository.SlaViolationRepository
	alerts     repository.AlertRepository
	users      repository.UserDirectory
	settings   repository.SettingsRepository
	metrics    *observability.Metrics

	dispatchTimeout time.Duration
	logger          *zap.Logger
}

// NewEngineService creates the service and its delayed-action scheduler.
func NewEngineService(deps EngineDependencies, dispatchTimeout time.Duration, logger *zap.Logger) *EngineService {
	s := &EngineService{
		dispatcher:      deps.Dispatcher,
		matcher:         deps.Matcher,
		escalator:       deps.Escalator,
		channels:        deps.Channels,
		rules:           deps.Rules,
		logs:            deps.Logs,
		violations:      deps.Violations,
		alerts:          deps.Alerts,
		users:           deps.Users,
		settings:        deps.Settings,
		metrics:         deps.Metrics,
		dispatchTimeout: dispatchTimeout,
		logger:          logger,
	}
	s.scheduler = engine.NewDelayedScheduler(s.dispatchDelayed, logger)
	return s
}

// SetMonitor lets the worker attach the SLA monitor after wiring, for stats.
func (s *EngineService) SetMonitor(monitor *engine.SLAMonitor) {
	s.monitor = monitor
}

// Scheduler exposes the delayed-action registry for shutdown.
func (s *EngineService) Scheduler() *engine.DelayedScheduler {
	return s.scheduler
}

// RegisterHandlers subscribes the engine to every trigger it reacts to.
func (s *EngineService) RegisterHandlers() {
	for _, trigger := range domain.KnownTriggers {
		s.dispatcher.Subscribe(trigger, s.HandleEvent)
	}
	s.dispatcher.Subscribe(domain.TriggerSLAViolation, s.handleViolationEvent)
	s.dispatcher.Subscribe(domain.TriggerEscalation, s.handleEscalationEvent)
	s.dispatcher.Subscribe(domain.TriggerTicketResolved, s.handleTicketResolved)
}

// Emit validates and publishes a domain event. Fire-and-forget: the caller
// returns as soon as the event is enqueued.
func (s *EngineService) Emit(trigger domain.Trigger, evctx map[string]any, actorID *string) error {
	if !domain.ValidTrigger(trigger) {
		return apperrors.NewValidationError(fmt.Sprintf("unknown trigger %q", trigger), nil)
	}
	s.dispatcher.Publish(events.Event{
		ID:         uuid.NewString(),
		Trigger:    trigger,
		Context:    evctx,
		ActorID:    actorID,
		OccurredAt: time.Now(),
	})
	return nil
}

// EmitFunc adapts Emit for the monitor and escalator feedback loops.
func (s *EngineService) EmitFunc() engine.EmitFunc {
	return func(trigger domain.Trigger, evctx map[string]any) {
		_ = s.Emit(trigger, evctx, nil)
	}
}

// HandleEvent runs the full pipeline for one event: match, render, resolve,
// dispatch or schedule. Channel fan-out is parallel; each outcome is recorded
// independently.
func (s *EngineService) HandleEvent(ctx context.Context, event events.Event) error {
	actions, err := s.matcher.Evaluate(ctx, event.Trigger, event.Context)
	if err != nil {
		return fmt.Errorf("evaluate rules for %s: %w", event.Trigger, err)
	}
	if len(actions) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	for _, action := range actions {
		wg.Add(1)
		go func(resolved engine.ResolvedAction) {
			defer wg.Done()
			s.processAction(ctx, event, resolved)
		}(action)
	}
	wg.Wait()
	return nil
}

// ExecuteRulesManually re-runs rule evaluation on demand. Unlike Emit, it is
// synchronous so the operator sees how many actions matched.
func (s *EngineService) ExecuteRulesManually(ctx context.Context, trigger domain.Trigger, evctx map[string]any, actorID string) (int, error) {
	if !domain.ValidTrigger(trigger) {
		return 0, apperrors.NewValidationError(fmt.Sprintf("unknown trigger %q", trigger), nil)
	}
	event := events.Event{
		ID:         uuid.NewString(),
		Trigger:    trigger,
		Context:    evctx,
		ActorID:    &actorID,
		OccurredAt: time.Now(),
	}
	actions, err := s.matcher.Evaluate(ctx, trigger, evctx)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	for _, action := range actions {
		s.processAction(ctx, event, action)
	}
	s.logger.Info("manual rule execution",
		zap.String("trigger", string(trigger)),
		zap.String("actor_id", actorID),
		zap.Int("actions", len(actions)))
	return len(actions), nil
}

// CancelDelayed cancels a pending delayed notification. False means the
// handle is unknown or the action already fired.
func (s *EngineService) CancelDelayed(handle string) bool {
	return s.scheduler.Cancel(handle)
}

// EscalateManually raises the ticket's escalation level on operator request.
func (s *EngineService) EscalateManually(ctx context.Context, ticketID, reason, actorID string) (*domain.Escalation, error) {
	if reason == "" {
		reason = "manual escalation by " + actorID
	}
	escalation, err := s.escalator.Raise(ctx, ticketID, reason)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return escalation, nil
}

// Stats reports engine counters for the operations endpoint.
func (s *EngineService) Stats(ctx context.Context) (*EngineStats, error) {
	activeRules, err := s.rules.CountActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	stats := &EngineStats{
		ActiveRuleCount:     activeRules,
		PendingDelayedCount: s.scheduler.PendingCount(),
		DispatchCounts:      s.metrics.DispatchCounts(),
	}
	if s.monitor != nil {
		if last := s.monitor.LastScanAt(); !last.IsZero() {
			stats.LastScanAt = &last
		}
	}
	return stats, nil
}

func (s *EngineService) processAction(ctx context.Context, event events.Event, resolved engine.ResolvedAction) {
	action := resolved.Action

	subject, missing := engine.Render(action.SubjectTemplate, event.Context)
	body, missingBody := engine.Render(action.BodyTemplate, event.Context)
	if warnings := append(missing, missingBody...); len(warnings) > 0 {
		s.logger.Warn("unresolved template placeholders",
			zap.String("rule_id", resolved.RuleID),
			zap.Strings("placeholders", warnings))
	}

	recipients, err := s.resolveRecipients(ctx, action.Channel, action.RecipientGroup)
	if err != nil {
		s.logger.Warn("recipient resolution failed",
			zap.String("rule_id", resolved.RuleID),
			zap.String("group", action.RecipientGroup),
			zap.Error(err))
		return
	}
	if len(recipients) == 0 {
		s.logger.Debug("no enabled recipients for action",
			zap.String("rule_id", resolved.RuleID),
			zap.String("channel", string(action.Channel)),
			zap.String("group", action.RecipientGroup))
		return
	}

	ticketID := contextTicketID(event.Context)
	ruleID := resolved.RuleID
	logEntry := &domain.NotificationLog{
		Channel:    action.Channel,
		Recipients: recipients,
		Subject:    subject,
		Body:       body,
		Priority:   action.Priority,
		TicketID:   ticketID,
		RuleID:     &ruleID,
	}
	if err := s.logs.Create(ctx, logEntry); err != nil {
		s.logger.Error("notification log create failed",
			zap.String("rule_id", resolved.RuleID),
			zap.Error(err))
		return
	}

	delayed := engine.DelayedAction{
		LogID:      logEntry.ID,
		Channel:    action.Channel,
		Recipients: recipients,
		Subject:    subject,
		Body:       body,
		Priority:   action.Priority,
		TicketID:   ticketID,
		RuleID:     &ruleID,
	}

	if action.DelayMinutes > 0 {
		fireAt := time.Now().Add(time.Duration(action.DelayMinutes) * time.Minute)
		handle := s.scheduler.Schedule(delayed, fireAt)
		s.logger.Debug("notification scheduled",
			zap.String("handle", handle),
			zap.Time("fire_at", fireAt))
		return
	}

	s.dispatchDelayed(ctx, delayed)
}

// dispatchDelayed delivers one fully-resolved action through its channel and
// records the terminal outcome. Also the scheduler's fire callback.
func (s *EngineService) dispatchDelayed(ctx context.Context, action engine.DelayedAction) {
	dispatcher, ok := s.channels[action.Channel]
	if !ok {
		s.finishDispatch(ctx, action, fmt.Errorf("channel %q not configured", action.Channel))
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.dispatchTimeout)
	defer cancel()

	err := dispatcher.Send(sendCtx, channel.Message{
		Recipients: action.Recipients,
		Subject:    action.Subject,
		Body:       action.Body,
		Priority:   action.Priority,
		TicketID:   action.TicketID,
	})
	s.finishDispatch(ctx, action, err)
}

func (s *EngineService) finishDispatch(ctx context.Context, action engine.DelayedAction, sendErr error) {
	if sendErr == nil {
		if err := s.logs.MarkSent(ctx, action.LogID); err != nil {
			s.logger.Error("mark sent failed", zap.String("log_id", action.LogID), zap.Error(err))
		}
		s.metrics.RecordDispatch(string(action.Channel), string(domain.DispatchSent))
		return
	}

	// terminal failure: no automatic retry, surface via log entry and alert
	s.logger.Warn("dispatch failed",
		zap.String("log_id", action.LogID),
		zap.String("channel", string(action.Channel)),
		zap.Error(sendErr))
	if err := s.logs.MarkFailed(ctx, action.LogID, sendErr.Error()); err != nil {
		s.logger.Error("mark failed failed", zap.String("log_id", action.LogID), zap.Error(err))
	}
	s.metrics.RecordDispatch(string(action.Channel), string(domain.DispatchFailed))

	alert := &domain.Alert{
		Source:   domain.AlertSourceDispatchFailure,
		Severity: domain.AlertWarning,
		Title:    fmt.Sprintf("%s dispatch failed", action.Channel),
		Detail:   sendErr.Error(),
		TicketID: action.TicketID,
	}
	if err := s.alerts.Create(ctx, alert); err != nil {
		s.logger.Error("dispatch failure alert create failed", zap.Error(err))
	}
}

// resolveRecipients expands a recipient group into per-channel destinations,
// honoring each user's notification settings.
func (s *EngineService) resolveRecipients(ctx context.Context, ch domain.NotificationChannel, group string) ([]string, error) {
	contacts, err := s.users.ListByGroup(ctx, group)
	if err != nil {
		return nil, err
	}

	var recipients []string
	for _, contact := range contacts {
		settings, err := s.settings.Get(ctx, contact.ID)
		if err != nil {
			return nil, err
		}
		if settings == nil {
			defaults := domain.DefaultNotificationSettings(contact.ID)
			settings = &defaults
		}
		if !settings.ChannelEnabled(ch) {
			continue
		}

		var destination string
		switch ch {
		case domain.ChannelEmail:
			destination = firstNonEmpty(settings.EmailAddress, contact.Email)
		case domain.ChannelSlack:
			destination = firstNonEmpty(settings.SlackHandle, contact.SlackHandle)
		case domain.ChannelTeams:
			destination = settings.TeamsHandle
		case domain.ChannelWebhook:
			destination = settings.WebhookURL
		case domain.ChannelRealtime:
			destination = contact.ID
		}
		if destination == "" {
			continue
		}
		recipients = append(recipients, destination)
	}
	return recipients, nil
}

// handleViolationEvent reacts to raised violations: dashboard alert always,
// escalation when the breach is critical.
func (s *EngineService) handleViolationEvent(ctx context.Context, event events.Event) error {
	ticketID := contextTicketID(event.Context)
	severity, _ := domain.LookupPath(event.Context, "severity")
	vtype, _ := domain.LookupPath(event.Context, "violationType")

	alertSeverity := domain.AlertWarning
	if severity == string(domain.SeverityCritical) {
		alertSeverity = domain.AlertCritical
	}
	alert := &domain.Alert{
		Source:   domain.AlertSourceSLAViolation,
		Severity: alertSeverity,
		Title:    fmt.Sprintf("SLA %v breach", vtype),
		Detail:   fmt.Sprintf("severity=%v", severity),
		TicketID: ticketID,
	}
	if err := s.alerts.Create(ctx, alert); err != nil {
		return fmt.Errorf("violation alert: %w", err)
	}

	if severity == string(domain.SeverityCritical) && ticketID != nil {
		reason := fmt.Sprintf("critical SLA %v breach", vtype)
		if _, err := s.escalator.Raise(ctx, *ticketID, reason); err != nil {
			return fmt.Errorf("escalate ticket %s: %w", *ticketID, err)
		}
	}
	return nil
}

// handleEscalationEvent projects escalation transitions onto the dashboard.
func (s *EngineService) handleEscalationEvent(ctx context.Context, event events.Event) error {
	ticketID := contextTicketID(event.Context)
	level, _ := domain.LookupPath(event.Context, "level")
	reason, _ := domain.LookupPath(event.Context, "reason")

	severity := domain.AlertWarning
	if lvl, ok := contextInt(level); ok && lvl >= 2 {
		severity = domain.AlertCritical
	}
	alert := &domain.Alert{
		Source:   domain.AlertSourceEscalation,
		Severity: severity,
		Title:    fmt.Sprintf("Ticket escalated to level %v", level),
		Detail:   fmt.Sprintf("%v", reason),
		TicketID: ticketID,
	}
	if err := s.alerts.Create(ctx, alert); err != nil {
		return fmt.Errorf("escalation alert: %w", err)
	}
	return nil
}

// handleTicketResolved clears open violations, terminates the escalation and
// resolves dashboard alerts for the ticket.
func (s *EngineService) handleTicketResolved(ctx context.Context, event events.Event) error {
	ticketID := contextTicketID(event.Context)
	if ticketID == nil {
		return fmt.Errorf("ticket_resolved event missing ticket.id")
	}

	if err := s.violations.ResolveForTicket(ctx, *ticketID); err != nil {
		return fmt.Errorf("resolve violations: %w", err)
	}
	if err := s.escalator.ResolveTicket(ctx, *ticketID); err != nil {
		return fmt.Errorf("resolve escalation: %w", err)
	}
	if err := s.alerts.ResolveForTicket(ctx, *ticketID); err != nil {
		return fmt.Errorf("resolve alerts: %w", err)
	}
	return nil
}

func contextTicketID(evctx map[string]any) *string {
	raw, ok := domain.LookupPath(evctx, "ticket.id")
	if !ok {
		if raw, ok = domain.LookupPath(evctx, "ticketId"); !ok {
			return nil
		}
	}
	id, ok := raw.(string)
	if !ok || id == "" {
		return nil
	}
	return &id
}

// contextInt coerces a context value to int. Event contexts decoded from JSON
// carry numbers as float64, in-process events carry native ints.
func contextInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
