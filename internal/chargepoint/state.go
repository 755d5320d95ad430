package chargepoint

import (
	"fmt"
	"sync"

	"github.com/charging-platform/charge-point-client/internal/store"
)

// Status is the charge-point-wide session status.
type Status string

const (
	StatusDisconnected  Status = "DISCONNECTED"
	StatusConnecting    Status = "CONNECTING"
	StatusConnected     Status = "CONNECTED"
	StatusAuthorized    Status = "AUTHORIZED"
	StatusInTransaction Status = "IN_TRANSACTION"
	StatusError         Status = "ERROR"
)

// keyCPStatus is the session-store key mirroring the current status.
const keyCPStatus = "cp_status"

// validTransitions lists the allowed moves between statuses. ERROR and
// DISCONNECTED are additionally reachable from every state (socket failures
// and operator disconnects preempt anything).
var validTransitions = map[Status][]Status{
	StatusDisconnected:  {StatusConnecting},
	StatusConnecting:    {StatusConnected},
	StatusConnected:     {StatusAuthorized, StatusInTransaction},
	StatusAuthorized:    {StatusInTransaction, StatusConnected},
	StatusInTransaction: {StatusAuthorized},
	StatusError:         {StatusConnecting},
}

// stateMachine tracks the session status, mirrors it into the session store
// and emits every write through the observer callback.
type stateMachine struct {
	mu      sync.Mutex
	current Status
	session *store.MemoryStore
	emit    func(status Status, detail string)
}

func newStateMachine(session *store.MemoryStore, emit func(Status, string)) *stateMachine {
	sm := &stateMachine{current: StatusDisconnected, session: session, emit: emit}
	session.Put(keyCPStatus, string(StatusDisconnected))
	return sm
}

// Current returns the present status.
func (sm *stateMachine) Current() Status {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.current
}

// Transition moves to the target status if the move is allowed, emitting the
// change. The emit happens before Transition returns so observers see the new
// status before the engine processes the next message.
func (sm *stateMachine) Transition(to Status, detail string) error {
	sm.mu.Lock()
	from := sm.current
	if !transitionAllowed(from, to) {
		sm.mu.Unlock()
		return fmt.Errorf("invalid status transition %s -> %s", from, to)
	}
	sm.current = to
	sm.session.Put(keyCPStatus, string(to))
	sm.mu.Unlock()

	sm.emit(to, detail)
	return nil
}

// Force moves unconditionally; used for ERROR and operator disconnects.
func (sm *stateMachine) Force(to Status, detail string) {
	sm.mu.Lock()
	sm.current = to
	sm.session.Put(keyCPStatus, string(to))
	sm.mu.Unlock()

	sm.emit(to, detail)
}

func transitionAllowed(from, to Status) bool {
	if to == StatusError || to == StatusDisconnected {
		return true
	}
	if from == to {
		return true
	}
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
