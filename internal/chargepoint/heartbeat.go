package chargepoint

import (
	"sync"
	"time"
)

// heartbeatScheduler fires the Heartbeat CALL at the interval dictated by
// the central system in its BootNotification reply. Arm replaces any running
// timer; Stop cancels it on disconnect.
type heartbeatScheduler struct {
	mu       sync.Mutex
	interval time.Duration
	stop     chan struct{}
	wg       sync.WaitGroup
	fire     func()
}

func newHeartbeatScheduler(fire func()) *heartbeatScheduler {
	return &heartbeatScheduler{fire: fire}
}

// Arm installs a periodic trigger at the given interval, cancelling any
// prior timer first. A non-positive interval only cancels.
func (h *heartbeatScheduler) Arm(interval time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopLocked()
	h.interval = interval
	if interval <= 0 {
		return
	}

	stop := make(chan struct{})
	h.stop = stop
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				h.fire()
			}
		}
	}()
}

// Stop cancels the running timer, if any, and waits for the loop to exit.
// An in-flight fire completes before Stop returns.
func (h *heartbeatScheduler) Stop() {
	h.mu.Lock()
	h.stopLocked()
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *heartbeatScheduler) stopLocked() {
	if h.stop != nil {
		close(h.stop)
		h.stop = nil
	}
}

// Interval returns the currently armed interval; zero when idle.
func (h *heartbeatScheduler) Interval() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.interval
}
