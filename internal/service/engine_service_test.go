package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/notification-engine/internal/channel"
	"github.com/spec-kit/notification-engine/internal/domain"
	"github.com/spec-kit/notification-engine/internal/engine"
	"github.com/spec-kit/notification-engine/internal/events"
	"github.com/spec-kit/notification-engine/internal/observability"
	"github.com/spec-kit/notification-engine/internal/repository"
)

// recordingDispatcher satisfies events.Dispatcher; tests call HandleEvent
// directly so event delivery stays synchronous.
type recordingDispatcher struct {
	mu        sync.Mutex
	published []events.Event
}

func (d *recordingDispatcher) Publish(event events.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.published = append(d.published, event)
}
func (d *recordingDispatcher) Subscribe(trigger domain.Trigger, handler events.EventHandler) {}

func (d *recordingDispatcher) Start() {}

func (d *recordingDispatcher) Stop() {}

type memRuleRepo struct {
	rules []domain.NotificationRule
}

func (r *memRuleRepo) Create(ctx context.Context, rule *domain.NotificationRule) error { return nil }
func (r *memRuleRepo) Update(ctx context.Context, rule *domain.NotificationRule) error { return nil }
func (r *memRuleRepo) Delete(ctx context.Context, id string) error                     { return nil }
func (r *memRuleRepo) GetByID(ctx context.Context, id string) (*domain.NotificationRule, error) {
	return nil, nil
}
func (r *memRuleRepo) List(ctx context.Context, limit, offset int) ([]domain.NotificationRule, error) {
	return r.rules, nil
}
func (r *memRuleRepo) ListActiveByTrigger(ctx context.Context, trigger domain.Trigger) ([]domain.NotificationRule, error) {
	var out []domain.NotificationRule
	for _, rule := range r.rules {
		if rule.Trigger == trigger && rule.IsActive {
			out = append(out, rule)
		}
	}
	return out, nil
}
func (r *memRuleRepo) CountActive(ctx context.Context) (int, error) {
	count := 0
	for _, rule := range r.rules {
		if rule.IsActive {
			count++
		}
	}
	return count, nil
}

type memLogRepo struct {
	mu     sync.Mutex
	nextID int
	logs   map[string]*domain.NotificationLog
}

func newMemLogRepo() *memLogRepo {
	return &memLogRepo{logs: map[string]*domain.NotificationLog{}}
}

func (r *memLogRepo) Create(ctx context.Context, log *domain.NotificationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	log.ID = fmt.Sprintf("log-%d", r.nextID)
	log.Status = domain.DispatchPending
	log.CreatedAt = time.Now()
	copied := *log
	r.logs[log.ID] = &copied
	return nil
}

func (r *memLogRepo) MarkSent(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.logs[id]
	if !ok || entry.Status != domain.DispatchPending {
		return errors.New("no pending row")
	}
	now := time.Now()
	entry.Status = domain.DispatchSent
	entry.SentAt = &now
	return nil
}

func (r *memLogRepo) MarkFailed(ctx context.Context, id string, detail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.logs[id]
	if !ok || entry.Status != domain.DispatchPending {
		return errors.New("no pending row")
	}
	entry.Status = domain.DispatchFailed
	entry.ErrorDetail = &detail
	return nil
}

func (r *memLogRepo) List(ctx context.Context, filter repository.LogFilter) ([]domain.NotificationLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.NotificationLog
	for _, entry := range r.logs {
		out = append(out, *entry)
	}
	return out, nil
}

type memViolationRepo struct {
	mu       sync.Mutex
	resolved []string
}

func (r *memViolationRepo) Create(ctx context.Context, violation *domain.SlaViolation) error {
	return nil
}
func (r *memViolationRepo) HasOpen(ctx context.Context, ticketID string, vtype domain.ViolationType) (bool, error) {
	return false, nil
}
func (r *memViolationRepo) Acknowledge(ctx context.Context, id string) error { return nil }
func (r *memViolationRepo) ResolveForTicket(ctx context.Context, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved = append(r.resolved, ticketID)
	return nil
}
func (r *memViolationRepo) List(ctx context.Context, filter repository.ViolationFilter) ([]domain.SlaViolation, error) {
	return nil, nil
}

type memAlertRepo struct {
	mu       sync.Mutex
	alerts   []domain.Alert
	resolved []string
}

func (r *memAlertRepo) Create(ctx context.Context, alert *domain.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, *alert)
	return nil
}

func (r *memAlertRepo) ResolveForTicket(ctx context.Context, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved = append(r.resolved, ticketID)
	return nil
}

func (r *memAlertRepo) List(ctx context.Context, filter repository.AlertFilter) ([]domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Alert{}, r.alerts...), nil
}

type memUserDirectory struct {
	users []domain.UserContact
}

func (r *memUserDirectory) GetByID(ctx context.Context, id string) (*domain.UserContact, error) {
	for _, u := range r.users {
		if u.ID == id {
			copied := u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memUserDirectory) ListByGroup(ctx context.Context, group string) ([]domain.UserContact, error) {
	var out []domain.UserContact
	for _, u := range r.users {
		if u.Group == group {
			out = append(out, u)
		}
	}
	return out, nil
}

type memSettingsRepo struct {
	byUser map[string]*domain.UserNotificationSettings
}

func (r *memSettingsRepo) Get(ctx context.Context, userID string) (*domain.UserNotificationSettings, error) {
	if r.byUser == nil {
		return nil, nil
	}
	settings, ok := r.byUser[userID]
	if !ok {
		return nil, nil
	}
	copied := *settings
	return &copied, nil
}

func (r *memSettingsRepo) Upsert(ctx context.Context, settings *domain.UserNotificationSettings) error {
	if r.byUser == nil {
		r.byUser = map[string]*domain.UserNotificationSettings{}
	}
	copied := *settings
	r.byUser[settings.UserID] = &copied
	return nil
}

type memEscalationStore struct {
	mu       sync.Mutex
	byTicket map[string]*domain.Escalation
	nextID   int
}

func newMemEscalationStore() *memEscalationStore {
	return &memEscalationStore{byTicket: map[string]*domain.Escalation{}}
}

func (r *memEscalationStore) GetActiveByTicket(ctx context.Context, ticketID string) (*domain.Escalation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byTicket[ticketID]
	if !ok || e.Resolved {
		return nil, nil
	}
	copied := *e
	return &copied, nil
}

func (r *memEscalationStore) Create(ctx context.Context, escalation *domain.Escalation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	escalation.ID = fmt.Sprintf("esc-%d", r.nextID)
	copied := *escalation
	r.byTicket[escalation.TicketID] = &copied
	return nil
}

func (r *memEscalationStore) Update(ctx context.Context, escalation *domain.Escalation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *escalation
	r.byTicket[escalation.TicketID] = &copied
	return nil
}

func (r *memEscalationStore) ListActive(ctx context.Context) ([]domain.Escalation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var active []domain.Escalation
	for _, e := range r.byTicket {
		if !e.Resolved {
			active = append(active, *e)
		}
	}
	return active, nil
}

type capturingChannel struct {
	name domain.NotificationChannel
	mu   sync.Mutex
	sent []channel.Message
	err  error
}

func (c *capturingChannel) Name() domain.NotificationChannel { return c.name }

func (c *capturingChannel) Send(ctx context.Context, msg channel.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *capturingChannel) messages() []channel.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]channel.Message{}, c.sent...)
}

type serviceFixture struct {
	svc        *EngineService
	dispatcher *recordingDispatcher
	rules      *memRuleRepo
	logs       *memLogRepo
	violations *memViolationRepo
	alerts     *memAlertRepo
	escStore   *memEscalationStore
	realtime   *capturingChannel
	email      *capturingChannel
}

func newServiceFixture(t *testing.T, rules []domain.NotificationRule) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		dispatcher: &recordingDispatcher{},
		rules:      &memRuleRepo{rules: rules},
		logs:       newMemLogRepo(),
		violations: &memViolationRepo{},
		alerts:     &memAlertRepo{},
		escStore:   newMemEscalationStore(),
		realtime:   &capturingChannel{name: domain.ChannelRealtime},
		email:      &capturingChannel{name: domain.ChannelEmail},
	}

	logger := zap.NewNop()
	matcher := engine.NewMatcher(f.rules, logger)
	escalator := engine.NewEscalator(f.escStore, func(trigger domain.Trigger, evctx map[string]any) {}, 3, time.Hour, logger)

	users := &memUserDirectory{users: []domain.UserContact{
		{ID: "u-oncall", Name: "Ona", Email: "ona@example.com", SlackHandle: "@ona", Group: "oncall"},
		{ID: "u-manager", Name: "Max", Email: "max@example.com", Group: "managers"},
	}}

	f.svc = NewEngineService(EngineDependencies{
		Dispatcher: f.dispatcher,
		Matcher:    matcher,
		Escalator:  escalator,
		Channels:   channel.NewRegistry(f.realtime, f.email),
		Rules:      f.rules,
		Logs:       f.logs,
		Violations: f.violations,
		Alerts:     f.alerts,
		Users:      users,
		Settings:   &memSettingsRepo{},
		Metrics:    observability.NewMetrics(),
	}, 2*time.Second, logger)
	t.Cleanup(f.svc.Scheduler().Stop)
	return f
}

func urgentRealtimeRule() domain.NotificationRule {
	return domain.NotificationRule{
		ID:      "r-1",
		Name:    "page oncall on urgent tickets",
		Trigger: domain.TriggerTicketCreated,
		Conditions: domain.Condition{
			Field: "ticket.priority", Op: domain.OpIn, Values: []string{"high", "urgent"},
		},
		Actions: []domain.NotificationAction{{
			Channel:         domain.ChannelRealtime,
			RecipientGroup:  "oncall",
			SubjectTemplate: "New {{ticket.priority}} ticket",
			BodyTemplate:    "{{ticket.title}}",
			Priority:        domain.PriorityUrgent,
		}},
		IsActive: true,
	}
}

func TestHandleEventDispatchesMatchingRule(t *testing.T) {
	f := newServiceFixture(t, []domain.NotificationRule{urgentRealtimeRule()})

	event := events.Event{
		ID:      "e-1",
		Trigger: domain.TriggerTicketCreated,
		Context: map[string]any{
			"ticket": map[string]any{
				"id":       "t-1",
				"title":    "Cannot log in",
				"priority": "HIGH",
			},
		},
		OccurredAt: time.Now(),
	}
	require.NoError(t, f.svc.HandleEvent(context.Background(), event))

	sent := f.realtime.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"u-oncall"}, sent[0].Recipients)
	assert.Equal(t, "New HIGH ticket", sent[0].Subject)
	assert.Equal(t, "Cannot log in", sent[0].Body)
	require.NotNil(t, sent[0].TicketID)
	assert.Equal(t, "t-1", *sent[0].TicketID)

	logs, err := f.logs.List(context.Background(), repository.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.DispatchSent, logs[0].Status)
}

func TestHandleEventNonMatchingPriorityDispatchesNothing(t *testing.T) {
	f := newServiceFixture(t, []domain.NotificationRule{urgentRealtimeRule()})

	event := events.Event{
		ID:      "e-1",
		Trigger: domain.TriggerTicketCreated,
		Context: map[string]any{
			"ticket": map[string]any{"id": "t-1", "title": "Minor issue", "priority": "LOW"},
		},
	}
	require.NoError(t, f.svc.HandleEvent(context.Background(), event))

	assert.Empty(t, f.realtime.messages())
	logs, err := f.logs.List(context.Background(), repository.LogFilter{})
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestHandleEventHonorsUserChannelOptOut(t *testing.T) {
	f := newServiceFixture(t, []domain.NotificationRule{urgentRealtimeRule()})
	settings := domain.DefaultNotificationSettings("u-oncall")
	settings.RealtimeEnabled = false
	svcSettings := f.svc.settings.(*memSettingsRepo)
	require.NoError(t, svcSettings.Upsert(context.Background(), &settings))

	event := events.Event{
		ID:      "e-1",
		Trigger: domain.TriggerTicketCreated,
		Context: map[string]any{
			"ticket": map[string]any{"id": "t-1", "title": "Cannot log in", "priority": "URGENT"},
		},
	}
	require.NoError(t, f.svc.HandleEvent(context.Background(), event))

	assert.Empty(t, f.realtime.messages())
}

func TestDispatchFailureMarksLogAndRaisesAlert(t *testing.T) {
	rule := urgentRealtimeRule()
	f := newServiceFixture(t, []domain.NotificationRule{rule})
	f.realtime.err = errors.New("gateway unavailable")

	event := events.Event{
		ID:      "e-1",
		Trigger: domain.TriggerTicketCreated,
		Context: map[string]any{
			"ticket": map[string]any{"id": "t-1", "title": "Cannot log in", "priority": "HIGH"},
		},
	}
	require.NoError(t, f.svc.HandleEvent(context.Background(), event))

	logs, err := f.logs.List(context.Background(), repository.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.DispatchFailed, logs[0].Status)
	require.NotNil(t, logs[0].ErrorDetail)
	assert.Contains(t, *logs[0].ErrorDetail, "gateway unavailable")

	alerts, err := f.alerts.List(context.Background(), repository.AlertFilter{})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertSourceDispatchFailure, alerts[0].Source)
}

func TestDelayedActionSchedulesInsteadOfDispatching(t *testing.T) {
	rule := urgentRealtimeRule()
	rule.Actions[0].DelayMinutes = 30
	f := newServiceFixture(t, []domain.NotificationRule{rule})

	event := events.Event{
		ID:      "e-1",
		Trigger: domain.TriggerTicketCreated,
		Context: map[string]any{
			"ticket": map[string]any{"id": "t-1", "title": "Cannot log in", "priority": "HIGH"},
		},
	}
	require.NoError(t, f.svc.HandleEvent(context.Background(), event))

	assert.Empty(t, f.realtime.messages())
	assert.Equal(t, 1, f.svc.Scheduler().PendingCount())

	// the pending log row stays pending until the timer fires
	logs, err := f.logs.List(context.Background(), repository.LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.DispatchPending, logs[0].Status)
}

func TestEmitValidatesTrigger(t *testing.T) {
	f := newServiceFixture(t, nil)

	err := f.svc.Emit("no_such_trigger", map[string]any{}, nil)
	assert.Error(t, err)
	assert.Empty(t, f.dispatcher.published)

	require.NoError(t, f.svc.Emit(domain.TriggerManual, map[string]any{"k": "v"}, nil))
	require.Len(t, f.dispatcher.published, 1)
	assert.Equal(t, domain.TriggerManual, f.dispatcher.published[0].Trigger)
	assert.NotEmpty(t, f.dispatcher.published[0].ID)
}

func TestExecuteRulesManuallyReturnsActionCount(t *testing.T) {
	f := newServiceFixture(t, []domain.NotificationRule{urgentRealtimeRule()})

	count, err := f.svc.ExecuteRulesManually(context.Background(), domain.TriggerTicketCreated, map[string]any{
		"ticket": map[string]any{"id": "t-9", "title": "Cannot log in", "priority": "URGENT"},
	}, "op-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Len(t, f.realtime.messages(), 1)
}

func TestHandleViolationEventCreatesAlertAndEscalatesOnCritical(t *testing.T) {
	f := newServiceFixture(t, nil)

	event := events.Event{
		ID:      "e-1",
		Trigger: domain.TriggerSLAViolation,
		Context: map[string]any{
			"ticketId":      "t-1",
			"violationType": "response_time",
			"severity":      "critical",
		},
	}
	require.NoError(t, f.svc.handleViolationEvent(context.Background(), event))

	alerts, err := f.alerts.List(context.Background(), repository.AlertFilter{})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertCritical, alerts[0].Severity)

	escalation, err := f.escStore.GetActiveByTicket(context.Background(), "t-1")
	require.NoError(t, err)
	require.NotNil(t, escalation)
	assert.Equal(t, 1, escalation.Level)
}

func TestHandleViolationEventWarningDoesNotEscalate(t *testing.T) {
	f := newServiceFixture(t, nil)

	event := events.Event{
		ID:      "e-1",
		Trigger: domain.TriggerSLAViolation,
		Context: map[string]any{
			"ticketId":      "t-1",
			"violationType": "response_time",
			"severity":      "warning",
		},
	}
	require.NoError(t, f.svc.handleViolationEvent(context.Background(), event))

	escalation, err := f.escStore.GetActiveByTicket(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Nil(t, escalation)
}

func TestHandleEscalationEventSeverityByLevel(t *testing.T) {
	f := newServiceFixture(t, nil)

	// JSON-decoded contexts carry numbers as float64.
	for i, level := range []any{2, float64(2), int64(3)} {
		event := events.Event{
			ID:      "e-1",
			Trigger: domain.TriggerEscalation,
			Context: map[string]any{"ticketId": "t-1", "level": level, "reason": "stuck"},
		}
		require.NoError(t, f.svc.handleEscalationEvent(context.Background(), event))

		alerts, err := f.alerts.List(context.Background(), repository.AlertFilter{})
		require.NoError(t, err)
		require.Len(t, alerts, i+1)
		assert.Equal(t, domain.AlertCritical, alerts[i].Severity)
	}

	event := events.Event{
		ID:      "e-2",
		Trigger: domain.TriggerEscalation,
		Context: map[string]any{"ticketId": "t-1", "level": float64(1), "reason": "stuck"},
	}
	require.NoError(t, f.svc.handleEscalationEvent(context.Background(), event))

	alerts, err := f.alerts.List(context.Background(), repository.AlertFilter{})
	require.NoError(t, err)
	require.Len(t, alerts, 4)
	assert.Equal(t, domain.AlertWarning, alerts[3].Severity)
}

func TestHandleTicketResolvedClearsState(t *testing.T) {
	f := newServiceFixture(t, nil)
	_, err := f.svc.EscalateManually(context.Background(), "t-1", "stuck", "op-1")
	require.NoError(t, err)

	event := events.Event{
		ID:      "e-1",
		Trigger: domain.TriggerTicketResolved,
		Context: map[string]any{"ticket": map[string]any{"id": "t-1"}},
	}
	require.NoError(t, f.svc.handleTicketResolved(context.Background(), event))

	assert.Equal(t, []string{"t-1"}, f.violations.resolved)
	assert.Equal(t, []string{"t-1"}, f.alerts.resolved)
	escalation, err := f.escStore.GetActiveByTicket(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Nil(t, escalation)
}

func TestCancelDelayed(t *testing.T) {
	f := newServiceFixture(t, nil)
	handle := f.svc.Scheduler().Schedule(engine.DelayedAction{LogID: "log-x"}, time.Now().Add(time.Hour))

	assert.True(t, f.svc.CancelDelayed(handle))
	assert.False(t, f.svc.CancelDelayed(handle))
}

func TestStatsReportsCounters(t *testing.T) {
	f := newServiceFixture(t, []domain.NotificationRule{urgentRealtimeRule()})
	f.svc.Scheduler().Schedule(engine.DelayedAction{LogID: "log-x"}, time.Now().Add(time.Hour))

	stats, err := f.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ActiveRuleCount)
	assert.Equal(t, 1, stats.PendingDelayedCount)
	assert.Nil(t, stats.LastScanAt)
}
