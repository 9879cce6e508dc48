package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/notification-engine/internal/domain"
)

type fakeTicketSource struct {
	mu      sync.Mutex
	tickets []domain.TicketSnapshot
	calls   int
	block   chan struct{}
}

func (f *fakeTicketSource) ListOpen(ctx context.Context) ([]domain.TicketSnapshot, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.tickets, nil
}

func (f *fakeTicketSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeConfigSource struct {
	cfg *domain.SlaConfig
}

func (f *fakeConfigSource) FindFor(ctx context.Context, applicationID *string, priority domain.TicketPriority) (*domain.SlaConfig, error) {
	return f.cfg, nil
}

type fakeViolationStore struct {
	mu      sync.Mutex
	open    map[string]bool
	created []*domain.SlaViolation
}

func newFakeViolationStore() *fakeViolationStore {
	return &fakeViolationStore{open: map[string]bool{}}
}

func (f *fakeViolationStore) HasOpen(ctx context.Context, ticketID string, vtype domain.ViolationType) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open[ticketID+"/"+string(vtype)], nil
}

func (f *fakeViolationStore) Create(ctx context.Context, violation *domain.SlaViolation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open[violation.TicketID+"/"+string(violation.Type)] = true
	f.created = append(f.created, violation)
	return nil
}

type emitRecorder struct {
	mu     sync.Mutex
	events []struct {
		trigger domain.Trigger
		evctx   map[string]any
	}
}

func (r *emitRecorder) emit(trigger domain.Trigger, evctx map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, struct {
		trigger domain.Trigger
		evctx   map[string]any
	}{trigger, evctx})
}

type countingSweeper struct {
	calls int
}

func (s *countingSweeper) Sweep(ctx context.Context) { s.calls++ }

func openTicket(id string, age time.Duration, now time.Time) domain.TicketSnapshot {
	return domain.TicketSnapshot{
		ID:           id,
		Title:        "Cannot log in",
		Priority:     domain.TicketPriorityHigh,
		Status:       domain.TicketStatusOpen,
		RequesterID:  "u-1",
		CreatedAt:    now.Add(-age),
		LastStatusAt: now.Add(-age),
	}
}

func newTestMonitor(tickets *fakeTicketSource, configs *fakeConfigSource, store *fakeViolationStore, rec *emitRecorder, sweeper Sweeper, now time.Time) *SLAMonitor {
	m := NewSLAMonitor(tickets, configs, store, rec.emit, sweeper, 1.5, zap.NewNop())
	m.now = func() time.Time { return now }
	return m
}

func TestMonitorRaisesResponseViolation(t *testing.T) {
	now := time.Now()
	tickets := &fakeTicketSource{tickets: []domain.TicketSnapshot{openTicket("t-1", 45*time.Minute, now)}}
	configs := &fakeConfigSource{cfg: &domain.SlaConfig{ResponseMinutes: 30, ResolutionMinutes: 240}}
	store := newFakeViolationStore()
	rec := &emitRecorder{}

	m := newTestMonitor(tickets, configs, store, rec, nil, now)
	m.RunScan(context.Background())

	require.Len(t, store.created, 1)
	v := store.created[0]
	assert.Equal(t, "t-1", v.TicketID)
	assert.Equal(t, domain.ViolationResponseTime, v.Type)
	assert.Equal(t, domain.SeverityWarning, v.Severity)
	assert.Equal(t, 30, v.ThresholdMinutes)
	assert.Equal(t, 45, v.ElapsedMinutes)

	require.Len(t, rec.events, 1)
	assert.Equal(t, domain.TriggerSLAViolation, rec.events[0].trigger)
	ticketCtx, ok := rec.events[0].evctx["ticket"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "t-1", ticketCtx["id"])
}

func TestMonitorCriticalSeverityPastMargin(t *testing.T) {
	now := time.Now()
	// 50 minutes elapsed is past 30m * 1.5 margin
	tickets := &fakeTicketSource{tickets: []domain.TicketSnapshot{openTicket("t-1", 50*time.Minute, now)}}
	configs := &fakeConfigSource{cfg: &domain.SlaConfig{ResponseMinutes: 30}}
	store := newFakeViolationStore()
	rec := &emitRecorder{}

	m := newTestMonitor(tickets, configs, store, rec, nil, now)
	m.RunScan(context.Background())

	require.Len(t, store.created, 1)
	assert.Equal(t, domain.SeverityCritical, store.created[0].Severity)
}

func TestMonitorWithinThresholdRaisesNothing(t *testing.T) {
	now := time.Now()
	tickets := &fakeTicketSource{tickets: []domain.TicketSnapshot{openTicket("t-1", 10*time.Minute, now)}}
	configs := &fakeConfigSource{cfg: &domain.SlaConfig{ResponseMinutes: 30, ResolutionMinutes: 240}}
	store := newFakeViolationStore()
	rec := &emitRecorder{}

	m := newTestMonitor(tickets, configs, store, rec, nil, now)
	m.RunScan(context.Background())

	assert.Empty(t, store.created)
	assert.Empty(t, rec.events)
}

func TestMonitorSkipsTicketsWithOpenViolation(t *testing.T) {
	now := time.Now()
	tickets := &fakeTicketSource{tickets: []domain.TicketSnapshot{openTicket("t-1", 45*time.Minute, now)}}
	configs := &fakeConfigSource{cfg: &domain.SlaConfig{ResponseMinutes: 30}}
	store := newFakeViolationStore()
	store.open["t-1/response_time"] = true
	rec := &emitRecorder{}

	m := newTestMonitor(tickets, configs, store, rec, nil, now)
	m.RunScan(context.Background())

	assert.Empty(t, store.created)
	assert.Empty(t, rec.events)
}

func TestMonitorRespondedTicketSkipsResponseTimer(t *testing.T) {
	now := time.Now()
	ticket := openTicket("t-1", 5*time.Hour, now)
	responded := now.Add(-4 * time.Hour)
	ticket.FirstRespondedAt = &responded
	tickets := &fakeTicketSource{tickets: []domain.TicketSnapshot{ticket}}
	configs := &fakeConfigSource{cfg: &domain.SlaConfig{ResponseMinutes: 30, ResolutionMinutes: 240}}
	store := newFakeViolationStore()
	rec := &emitRecorder{}

	m := newTestMonitor(tickets, configs, store, rec, nil, now)
	m.RunScan(context.Background())

	require.Len(t, store.created, 1)
	assert.Equal(t, domain.ViolationResolutionTime, store.created[0].Type)
}

func TestMonitorNoConfigSkipsTicket(t *testing.T) {
	now := time.Now()
	tickets := &fakeTicketSource{tickets: []domain.TicketSnapshot{openTicket("t-1", 10*time.Hour, now)}}
	store := newFakeViolationStore()
	rec := &emitRecorder{}

	m := newTestMonitor(tickets, &fakeConfigSource{}, store, rec, nil, now)
	m.RunScan(context.Background())

	assert.Empty(t, store.created)
}

func TestMonitorRunsSweeperAndRecordsScanTime(t *testing.T) {
	now := time.Now()
	tickets := &fakeTicketSource{}
	store := newFakeViolationStore()
	rec := &emitRecorder{}
	sweeper := &countingSweeper{}

	m := newTestMonitor(tickets, &fakeConfigSource{}, store, rec, sweeper, now)
	assert.True(t, m.LastScanAt().IsZero())

	m.RunScan(context.Background())

	assert.Equal(t, 1, sweeper.calls)
	assert.Equal(t, now, m.LastScanAt())
}

func TestMonitorSkipsOverlappingScan(t *testing.T) {
	now := time.Now()
	tickets := &fakeTicketSource{block: make(chan struct{})}
	store := newFakeViolationStore()
	rec := &emitRecorder{}

	m := newTestMonitor(tickets, &fakeConfigSource{}, store, rec, nil, now)

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		close(started)
		m.RunScan(context.Background())
		close(done)
	}()
	<-started
	// wait for the first scan to take the lock and block in ListOpen
	require.Eventually(t, func() bool { return tickets.callCount() == 1 }, time.Second, time.Millisecond)

	m.RunScan(context.Background())
	assert.Equal(t, 1, tickets.callCount(), "overlapping scan must be skipped")

	close(tickets.block)
	<-done
}
