package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/notification-engine/internal/domain"
)

type fakeEscalationStore struct {
	byTicket map[string]*domain.Escalation
	nextID   int
}

func newFakeEscalationStore() *fakeEscalationStore {
	return &fakeEscalationStore{byTicket: map[string]*domain.Escalation{}}
}

func (f *fakeEscalationStore) GetActiveByTicket(ctx context.Context, ticketID string) (*domain.Escalation, error) {
	e, ok := f.byTicket[ticketID]
	if !ok || e.Resolved {
		return nil, nil
	}
	copied := *e
	return &copied, nil
}

func (f *fakeEscalationStore) Create(ctx context.Context, escalation *domain.Escalation) error {
	f.nextID++
	escalation.ID = fmt.Sprintf("esc-%d", f.nextID)
	copied := *escalation
	f.byTicket[escalation.TicketID] = &copied
	return nil
}

func (f *fakeEscalationStore) Update(ctx context.Context, escalation *domain.Escalation) error {
	copied := *escalation
	f.byTicket[escalation.TicketID] = &copied
	return nil
}

func (f *fakeEscalationStore) ListActive(ctx context.Context) ([]domain.Escalation, error) {
	var active []domain.Escalation
	for _, e := range f.byTicket {
		if !e.Resolved {
			active = append(active, *e)
		}
	}
	return active, nil
}

func newTestEscalator(store EscalationStore, rec *emitRecorder, maxLevel int, interval time.Duration, now time.Time) *Escalator {
	e := NewEscalator(store, rec.emit, maxLevel, interval, zap.NewNop())
	e.now = func() time.Time { return now }
	return e
}

func TestEscalatorRaiseCreatesFirstLevel(t *testing.T) {
	store := newFakeEscalationStore()
	rec := &emitRecorder{}
	e := newTestEscalator(store, rec, 3, time.Hour, time.Now())

	escalation, err := e.Raise(context.Background(), "t-1", "critical SLA breach")
	require.NoError(t, err)
	assert.Equal(t, 1, escalation.Level)
	assert.Equal(t, "critical SLA breach", escalation.Reason)

	require.Len(t, rec.events, 1)
	assert.Equal(t, domain.TriggerEscalation, rec.events[0].trigger)
	assert.Equal(t, "t-1", rec.events[0].evctx["ticketId"])
	assert.Equal(t, 1, rec.events[0].evctx["level"])
}

func TestEscalatorRaiseAdvancesMonotonically(t *testing.T) {
	store := newFakeEscalationStore()
	rec := &emitRecorder{}
	e := newTestEscalator(store, rec, 3, time.Hour, time.Now())

	ctx := context.Background()
	for want := 1; want <= 3; want++ {
		escalation, err := e.Raise(ctx, "t-1", "still unresolved")
		require.NoError(t, err)
		assert.Equal(t, want, escalation.Level)
	}

	// at the cap further raises are no-ops and emit nothing
	escalation, err := e.Raise(ctx, "t-1", "beyond cap")
	require.NoError(t, err)
	assert.Equal(t, 3, escalation.Level)
	assert.Len(t, rec.events, 3)
}

func TestEscalatorResolveIsTerminalAndIdempotent(t *testing.T) {
	store := newFakeEscalationStore()
	rec := &emitRecorder{}
	e := newTestEscalator(store, rec, 3, time.Hour, time.Now())

	ctx := context.Background()
	_, err := e.Raise(ctx, "t-1", "breach")
	require.NoError(t, err)

	require.NoError(t, e.ResolveTicket(ctx, "t-1"))
	assert.True(t, store.byTicket["t-1"].Resolved)
	require.NotNil(t, store.byTicket["t-1"].ResolvedAt)

	// resolving again, or a ticket with no escalation, is a no-op
	require.NoError(t, e.ResolveTicket(ctx, "t-1"))
	require.NoError(t, e.ResolveTicket(ctx, "t-2"))

	// a new raise after resolution starts over at level 1
	escalation, err := e.Raise(ctx, "t-1", "regressed")
	require.NoError(t, err)
	assert.Equal(t, 1, escalation.Level)
}

func TestEscalatorSweepReEscalatesStaleOnly(t *testing.T) {
	now := time.Now()
	store := newFakeEscalationStore()
	rec := &emitRecorder{}
	e := newTestEscalator(store, rec, 3, time.Hour, now)

	stale := &domain.Escalation{ID: "esc-1", TicketID: "t-stale", Level: 1, LastLevelAt: now.Add(-2 * time.Hour)}
	fresh := &domain.Escalation{ID: "esc-2", TicketID: "t-fresh", Level: 1, LastLevelAt: now.Add(-10 * time.Minute)}
	capped := &domain.Escalation{ID: "esc-3", TicketID: "t-capped", Level: 3, LastLevelAt: now.Add(-5 * time.Hour)}
	for _, esc := range []*domain.Escalation{stale, fresh, capped} {
		store.byTicket[esc.TicketID] = esc
	}

	e.Sweep(context.Background())

	assert.Equal(t, 2, store.byTicket["t-stale"].Level)
	assert.Equal(t, 1, store.byTicket["t-fresh"].Level)
	assert.Equal(t, 3, store.byTicket["t-capped"].Level)
	require.Len(t, rec.events, 1)
	assert.Equal(t, "t-stale", rec.events[0].evctx["ticketId"])
}
