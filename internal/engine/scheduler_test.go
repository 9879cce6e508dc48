package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/notification-engine/internal/domain"
)

func TestSchedulerFiresAction(t *testing.T) {
	fired := make(chan DelayedAction, 1)
	s := NewDelayedScheduler(func(ctx context.Context, action DelayedAction) {
		fired <- action
	}, zap.NewNop())
	defer s.Stop()

	handle := s.Schedule(DelayedAction{LogID: "log-1", Channel: domain.ChannelEmail}, time.Now().Add(10*time.Millisecond))
	require.NotEmpty(t, handle)

	select {
	case action := <-fired:
		assert.Equal(t, "log-1", action.LogID)
	case <-time.After(2 * time.Second):
		t.Fatal("delayed action never fired")
	}
	assert.Equal(t, 0, s.PendingCount())
}

func TestSchedulerCancelPreventsDispatch(t *testing.T) {
	var dispatched atomic.Int32
	s := NewDelayedScheduler(func(ctx context.Context, action DelayedAction) {
		dispatched.Add(1)
	}, zap.NewNop())
	defer s.Stop()

	handle := s.Schedule(DelayedAction{LogID: "log-1"}, time.Now().Add(time.Hour))
	assert.Equal(t, 1, s.PendingCount())

	assert.True(t, s.Cancel(handle))
	assert.Equal(t, 0, s.PendingCount())
	assert.Equal(t, int32(0), dispatched.Load())

	// second cancel and unknown handles report false
	assert.False(t, s.Cancel(handle))
	assert.False(t, s.Cancel("no-such-handle"))
}

func TestSchedulerCancelAfterFireReturnsFalse(t *testing.T) {
	fired := make(chan struct{})
	s := NewDelayedScheduler(func(ctx context.Context, action DelayedAction) {
		close(fired)
	}, zap.NewNop())
	defer s.Stop()

	handle := s.Schedule(DelayedAction{LogID: "log-1"}, time.Now())
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("delayed action never fired")
	}
	assert.False(t, s.Cancel(handle))
}

func TestSchedulerFireCancelRaceIsExactlyOnce(t *testing.T) {
	for i := 0; i < 50; i++ {
		var dispatched atomic.Int32
		s := NewDelayedScheduler(func(ctx context.Context, action DelayedAction) {
			dispatched.Add(1)
		}, zap.NewNop())

		handle := s.Schedule(DelayedAction{LogID: "log-1"}, time.Now().Add(time.Millisecond))

		var wg sync.WaitGroup
		wg.Add(1)
		var cancelled bool
		go func() {
			defer wg.Done()
			time.Sleep(time.Millisecond)
			cancelled = s.Cancel(handle)
		}()
		wg.Wait()

		// give a won fire time to run its dispatch
		time.Sleep(10 * time.Millisecond)

		if cancelled {
			assert.Equal(t, int32(0), dispatched.Load(), "cancelled action must not dispatch")
		} else {
			assert.Equal(t, int32(1), dispatched.Load(), "uncancelled action must dispatch exactly once")
		}
		s.Stop()
	}
}

func TestSchedulerStopDropsPending(t *testing.T) {
	var dispatched atomic.Int32
	s := NewDelayedScheduler(func(ctx context.Context, action DelayedAction) {
		dispatched.Add(1)
	}, zap.NewNop())

	s.Schedule(DelayedAction{LogID: "a"}, time.Now().Add(time.Hour))
	s.Schedule(DelayedAction{LogID: "b"}, time.Now().Add(time.Hour))
	assert.Equal(t, 2, s.PendingCount())

	s.Stop()
	assert.Equal(t, 0, s.PendingCount())
	assert.Equal(t, int32(0), dispatched.Load())

	// scheduling after stop is a no-op
	s.Schedule(DelayedAction{LogID: "c"}, time.Now().Add(time.Hour))
	assert.Equal(t, 0, s.PendingCount())
}
