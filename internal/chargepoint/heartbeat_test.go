package chargepoint

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeartbeatSchedulerFires(t *testing.T) {
	var fired int64
	h := newHeartbeatScheduler(func() { atomic.AddInt64(&fired, 1) })
	defer h.Stop()

	h.Arm(20 * time.Millisecond)
	require.Eventually(t, func() bool { return atomic.LoadInt64(&fired) >= 2 },
		time.Second, 5*time.Millisecond)
}

func TestHeartbeatSchedulerRearmReplacesTimer(t *testing.T) {
	var fired int64
	h := newHeartbeatScheduler(func() { atomic.AddInt64(&fired, 1) })
	defer h.Stop()

	h.Arm(time.Hour)
	h.Arm(20 * time.Millisecond)
	assert.Equal(t, 20*time.Millisecond, h.Interval())

	require.Eventually(t, func() bool { return atomic.LoadInt64(&fired) >= 1 },
		time.Second, 5*time.Millisecond)
}

func TestHeartbeatSchedulerStop(t *testing.T) {
	var fired int64
	h := newHeartbeatScheduler(func() { atomic.AddInt64(&fired, 1) })

	h.Arm(10 * time.Millisecond)
	require.Eventually(t, func() bool { return atomic.LoadInt64(&fired) >= 1 },
		time.Second, 5*time.Millisecond)

	h.Stop()
	count := atomic.LoadInt64(&fired)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, count, atomic.LoadInt64(&fired))
}

func TestHeartbeatSchedulerStopWaitsForInFlightFire(t *testing.T) {
	release := make(chan struct{})
	fired := make(chan struct{}, 1)
	h := newHeartbeatScheduler(func() {
		select {
		case fired <- struct{}{}:
		default:
		}
		<-release
	})

	h.Arm(10 * time.Millisecond)
	<-fired

	done := make(chan struct{})
	go func() {
		h.Stop()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Stop returned while a fire was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after the fire completed")
	}
}

func TestHeartbeatSchedulerNonPositiveIntervalCancels(t *testing.T) {
	var fired int64
	h := newHeartbeatScheduler(func() { atomic.AddInt64(&fired, 1) })
	defer h.Stop()

	h.Arm(10 * time.Millisecond)
	h.Arm(0)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(0), atomic.LoadInt64(&fired))
	assert.Equal(t, time.Duration(0), h.Interval())
}
