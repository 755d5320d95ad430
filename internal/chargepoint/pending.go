package chargepoint

import (
	"context"
	"sync"
	"time"

	"github.com/charging-platform/charge-point-client/internal/domain/ocpp16"
	"github.com/charging-platform/charge-point-client/internal/metrics"
)

// defaultCallTimeout bounds how long an outbound CALL may wait for its
// CALLRESULT or CALLERROR. OCPP-J does not specify a value; 30s matches
// common central system behavior.
const defaultCallTimeout = 30 * time.Second

// pendingCall is one outstanding outbound CALL.
type pendingCall struct {
	Action ocpp16.Action
	SentAt time.Time
}

// pendingCallTable correlates outbound CALL uniqueIds with their actions so
// inbound CALLRESULTs can be routed to the right result handler. A single
// last-action slot would be overwritten by concurrent heartbeats; the table
// keys strictly by uniqueId.
type pendingCallTable struct {
	mu       sync.Mutex
	calls    map[string]pendingCall
	timeout  time.Duration
	onExpire func(id string, action ocpp16.Action)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newPendingCallTable(timeout time.Duration, onExpire func(string, ocpp16.Action)) *pendingCallTable {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &pendingCallTable{
		calls:    make(map[string]pendingCall),
		timeout:  timeout,
		onExpire: onExpire,
	}
}

// Register records an outbound CALL before it is written to the socket.
func (t *pendingCallTable) Register(id string, action ocpp16.Action) {
	t.mu.Lock()
	t.calls[id] = pendingCall{Action: action, SentAt: time.Now()}
	size := len(t.calls)
	t.mu.Unlock()
	metrics.PendingCalls.Set(float64(size))
}

// Resolve removes and returns the action for a reply's uniqueId. The second
// return is false when no CALL with that id is outstanding.
func (t *pendingCallTable) Resolve(id string) (ocpp16.Action, bool) {
	t.mu.Lock()
	call, ok := t.calls[id]
	if ok {
		delete(t.calls, id)
	}
	size := len(t.calls)
	t.mu.Unlock()
	metrics.PendingCalls.Set(float64(size))
	return call.Action, ok
}

// DropAll clears every entry; called on disconnect when no reply can arrive.
func (t *pendingCallTable) DropAll() int {
	t.mu.Lock()
	n := len(t.calls)
	t.calls = make(map[string]pendingCall)
	t.mu.Unlock()
	metrics.PendingCalls.Set(0)
	return n
}

// Count returns the number of outstanding CALLs.
func (t *pendingCallTable) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

// Start launches the expiry sweeper.
func (t *pendingCallTable) Start() {
	t.mu.Lock()
	t.ctx, t.cancel = context.WithCancel(context.Background())
	ctx := t.ctx
	t.mu.Unlock()
	t.wg.Add(1)
	go t.sweepLoop(ctx)
}

// Stop halts the sweeper and waits for it to exit. Safe to call twice.
func (t *pendingCallTable) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()
	if cancel != nil {
		cancel()
		t.wg.Wait()
	}
}

func (t *pendingCallTable) sweepLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.timeout / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.expire(now)
		}
	}
}

// expire drops entries older than the timeout and reports each through
// onExpire. The session stays usable; a lost reply is a local failure only.
func (t *pendingCallTable) expire(now time.Time) {
	type expired struct {
		id     string
		action ocpp16.Action
	}
	var dead []expired

	t.mu.Lock()
	for id, call := range t.calls {
		if now.Sub(call.SentAt) > t.timeout {
			dead = append(dead, expired{id: id, action: call.Action})
			delete(t.calls, id)
		}
	}
	size := len(t.calls)
	t.mu.Unlock()

	metrics.PendingCalls.Set(float64(size))
	for _, d := range dead {
		metrics.CallTimeouts.Inc()
		if t.onExpire != nil {
			t.onExpire(d.id, d.action)
		}
	}
}
