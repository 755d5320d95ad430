// Package chargepoint implements the OCPP 1.6 protocol engine for a single
// simulated charge point: the WebSocket session, the message state machine,
// outbound and inbound operation handlers, the pending-call table, the
// heartbeat scheduler and the per-connector availability model.
package chargepoint

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/charging-platform/charge-point-client/internal/authcache"
	"github.com/charging-platform/charge-point-client/internal/config"
	"github.com/charging-platform/charge-point-client/internal/domain/ocpp16"
	"github.com/charging-platform/charge-point-client/internal/domain/serialization"
	"github.com/charging-platform/charge-point-client/internal/domain/validation"
	"github.com/charging-platform/charge-point-client/internal/logger"
	"github.com/charging-platform/charge-point-client/internal/metrics"
	"github.com/charging-platform/charge-point-client/internal/store"
)

// Session store keys.
const (
	keyMeterValue    = "meter_value"
	keyTransactionID = "TransactionId"
	keyLastAction    = "LastAction"
	keyTxConnector   = "tx_connector"
)

// Durable store keys for operator convenience between runs.
const (
	keyWSURL = "WSURL"
	keyCPID  = "CPID"
	keyTag   = "TAG"
)

// keyCfgHeartbeatInterval backs the HeartbeatInterval configuration key
// exposed via GetConfiguration / ChangeConfiguration.
const keyCfgHeartbeatInterval = "cfg_HeartbeatInterval"

// logPrefix marks every engine log line handed to observers.
const logPrefix = "[OCPP] "

// closeCodeClientShutdown is the agreed clean client-initiated close code.
// Every other close code is treated as a connection error.
const closeCodeClientShutdown = 3001

// Engine owns exactly one WebSocket to the central system at a time and
// implements the charge point side of OCPP 1.6. All exported methods are
// safe for concurrent use; socket writes are serialized internally.
type Engine struct {
	cfg config.ChargePointConfig
	log *logger.Logger
	ser *serialization.Serializer
	val *validation.Validator

	session *store.MemoryStore
	durable store.Store
	auth    *authcache.Cache

	sm      *stateMachine
	pending *pendingCallTable
	conns   *connectorModel
	hb      *heartbeatScheduler

	mu      sync.Mutex // guards conn and closing
	conn    *websocket.Conn
	closing bool

	writeMu sync.Mutex

	obsMu     sync.RWMutex
	observers []Observer
}

// New builds an Engine over the given durable store. The session store is
// created internally and cleared on every connect.
func New(cfg config.ChargePointConfig, log *logger.Logger, durable store.Store) *Engine {
	e := &Engine{
		cfg:     cfg,
		log:     log,
		ser:     serialization.NewSerializer(),
		val:     validation.NewValidator(),
		session: store.NewMemoryStore(),
		durable: durable,
		auth:    authcache.New(),
	}
	e.sm = newStateMachine(e.session, e.emitStatus)
	e.pending = newPendingCallTable(cfg.CallTimeout, e.onCallExpired)
	e.conns = newConnectorModel(e.session, durable, e.notifyConnectorStatus, e.emitAvailability)
	e.hb = newHeartbeatScheduler(e.fireHeartbeat)
	return e
}

// Subscribe registers an observer for status, availability, meter and log
// events. Observers must not block.
func (e *Engine) Subscribe(o Observer) {
	e.obsMu.Lock()
	e.observers = append(e.observers, o)
	e.obsMu.Unlock()
}

// Status returns the current charge-point status.
func (e *Engine) Status() Status {
	return e.sm.Current()
}

// IsConnected reports whether a WebSocket is currently open.
func (e *Engine) IsConnected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn != nil
}

// Connect opens the WebSocket to the central system and sends the initial
// BootNotification. Empty wsURL or cpID fall back to the last used values
// from the durable store, then to the configured defaults. A second Connect
// while a socket is open closes the old socket with code 3001, emits ERROR
// and returns an error; the caller may retry.
func (e *Engine) Connect(wsURL, cpID string) error {
	e.mu.Lock()
	if e.conn != nil {
		old := e.conn
		e.conn = nil
		e.closing = true
		e.mu.Unlock()

		e.sm.Force(StatusError, "connect requested while a connection is open")
		e.closeSocket(old)
		e.teardownSession()
		return errors.New("already connected; previous connection closed")
	}
	e.closing = false
	e.mu.Unlock()

	if wsURL == "" {
		wsURL = e.durable.Get(keyWSURL, e.cfg.WsURL)
	}
	if cpID == "" {
		cpID = e.durable.Get(keyCPID, e.cfg.CPID)
	}
	if err := e.val.ValidateChargePointID(cpID); err != nil {
		return fmt.Errorf("invalid charge point id %q: %w", cpID, err)
	}
	if err := e.durable.Put(keyWSURL, wsURL); err != nil {
		e.logf("failed to persist ws url: %v", err)
	}
	if err := e.durable.Put(keyCPID, cpID); err != nil {
		e.logf("failed to persist charge point id: %v", err)
	}

	e.session.Clear()
	url := wsURL + cpID
	e.sm.Force(StatusConnecting, "dialing "+url)

	dialer := websocket.Dialer{Subprotocols: e.cfg.Subprotocols}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		e.sm.Force(StatusError, "connection cannot be opened")
		return fmt.Errorf("dial %s: %w", url, err)
	}
	if conn.Subprotocol() == "" {
		conn.Close()
		e.sm.Force(StatusError, "subprotocol negotiation failed")
		return fmt.Errorf("central system accepted none of the offered subprotocols %v", e.cfg.Subprotocols)
	}

	e.mu.Lock()
	e.conn = conn
	e.mu.Unlock()

	e.pending.Start()
	go e.readLoop(conn)

	e.logf("connected to %s using subprotocol %s", url, conn.Subprotocol())
	return e.sendBootNotification()
}

// Disconnect closes the WebSocket with code 3001 and moves to DISCONNECTED.
func (e *Engine) Disconnect() {
	e.mu.Lock()
	conn := e.conn
	e.conn = nil
	e.closing = true
	e.mu.Unlock()

	if conn != nil {
		e.closeSocket(conn)
	}
	e.teardownSession()
	e.sm.Force(StatusDisconnected, "disconnected")
}

// closeSocket sends the clean close frame and closes the connection.
func (e *Engine) closeSocket(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(closeCodeClientShutdown, "client shutdown")
	e.writeMu.Lock()
	conn.WriteMessage(websocket.CloseMessage, msg)
	e.writeMu.Unlock()
	conn.Close()
}

// teardownSession cancels the heartbeat and drops all pending calls; none of
// them can resolve once the socket is gone.
func (e *Engine) teardownSession() {
	e.hb.Stop()
	e.pending.Stop()
	if n := e.pending.DropAll(); n > 0 {
		e.logf("dropped %d pending calls", n)
	}
}

// readLoop reads frames until the socket dies.
func (e *Engine) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			e.handleReadError(conn, err)
			return
		}
		e.handleFrame(data)
	}
}

// handleReadError tears down the session and maps the failure to a status.
// Intentional closes (Disconnect, double connect) already set their status.
// A read loop that no longer owns the active conn must not touch the session
// that replaced it.
func (e *Engine) handleReadError(conn *websocket.Conn, err error) {
	e.mu.Lock()
	owned := e.conn == conn
	intentional := e.closing || !owned
	if owned {
		e.conn = nil
	}
	e.mu.Unlock()

	conn.Close()
	if owned {
		e.teardownSession()
	}

	if intentional {
		return
	}

	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		if ce.Code == closeCodeClientShutdown {
			e.logf("connection closed")
			e.sm.Force(StatusDisconnected, "connection closed")
		} else {
			e.logf("connection closed with code %d", ce.Code)
			e.sm.Force(StatusError, fmt.Sprintf("Connection error: %d", ce.Code))
		}
		return
	}

	e.logf("read failed: %v", err)
	e.sm.Force(StatusError, "ws normal error")
}

// handleFrame decodes one inbound frame and dispatches it by type tag.
func (e *Engine) handleFrame(data []byte) {
	frame, err := e.ser.Deserialize(data)
	if err != nil {
		metrics.ProtocolErrors.Inc()
		if errors.Is(err, serialization.ErrUnknownMessageType) {
			e.logf("dropping frame with unknown type tag: %v", err)
			return
		}
		e.logf("malformed frame: %v", err)
		e.sm.Force(StatusError, "malformed frame received")
		return
	}
	if err := e.val.ValidateEnvelope(frame.Type, frame.ID, frame.Action); err != nil {
		metrics.ProtocolErrors.Inc()
		e.logf("invalid frame envelope: %v", err)
		e.sm.Force(StatusError, "malformed frame received")
		return
	}

	switch frame.Type {
	case ocpp16.Call:
		metrics.FramesReceived.WithLabelValues("call", string(frame.Action)).Inc()
		e.handleInboundCall(frame)

	case ocpp16.CallResult:
		action, ok := e.pending.Resolve(frame.ID)
		if !ok {
			metrics.ProtocolErrors.Inc()
			e.logf("dropping CALLRESULT with unknown id %s", frame.ID)
			return
		}
		metrics.FramesReceived.WithLabelValues("call_result", string(action)).Inc()
		e.handleCallResult(action, frame)

	case ocpp16.CallError:
		action, ok := e.pending.Resolve(frame.ID)
		if !ok {
			metrics.ProtocolErrors.Inc()
			e.logf("dropping CALLERROR with unknown id %s", frame.ID)
			return
		}
		metrics.FramesReceived.WithLabelValues("call_error", string(action)).Inc()
		e.logf("%s rejected by central system: %s (%s)", action, frame.Error.Code, frame.Error.Description)
	}
}

// writeMessage serializes one text frame onto the socket. A nil socket is a
// transport error and moves the engine to ERROR.
func (e *Engine) writeMessage(data []byte) error {
	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()

	if conn == nil {
		e.sm.Force(StatusError, "No connection to OCPP server")
		return errors.New("no connection to OCPP server")
	}

	e.writeMu.Lock()
	err := conn.WriteMessage(websocket.TextMessage, data)
	e.writeMu.Unlock()
	if err != nil {
		e.sm.Force(StatusError, "websocket error")
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// fireHeartbeat runs on the scheduler goroutine.
func (e *Engine) fireHeartbeat() {
	if err := e.SendHeartbeat(); err != nil {
		e.logf("heartbeat failed: %v", err)
	}
}

// onCallExpired runs on the pending-table sweeper goroutine.
func (e *Engine) onCallExpired(id string, action ocpp16.Action) {
	e.logf("no reply for %s call %s, dropping", action, id)
}

// MeterValue returns the current simulated meter register in Wh.
func (e *Engine) MeterValue() int {
	wh, _ := strconv.Atoi(e.session.Get(keyMeterValue, "0"))
	return wh
}

// SetMeterValue updates the simulated meter register. The register is an
// energy counter and never goes negative. With updateServer set, a
// MeterValues CALL reporting the new value follows.
func (e *Engine) SetMeterValue(wh int, updateServer bool) error {
	if wh < 0 {
		return fmt.Errorf("meter value must be non-negative, got %d", wh)
	}
	e.session.Put(keyMeterValue, strconv.Itoa(wh))
	e.emitMeter(wh)
	if !updateServer {
		return nil
	}
	return e.SendMeterValue(0)
}

// TransactionID returns the server-assigned transaction id, zero when none
// has been accepted this session.
func (e *Engine) TransactionID() int {
	id, _ := strconv.Atoi(e.session.Get(keyTransactionID, "0"))
	return id
}

// transactionConnector is the connector of the running transaction,
// defaulting to outlet 1.
func (e *Engine) transactionConnector() int {
	c, err := strconv.Atoi(e.session.Get(keyTxConnector, "1"))
	if err != nil {
		return 1
	}
	return c
}

// ConnectorStatus returns the session-scoped status of a connector.
func (e *Engine) ConnectorStatus(c int) ocpp16.ChargePointStatus {
	return e.conns.Status(c)
}

// SetConnectorStatus sets a connector status, optionally notifying the
// central system via StatusNotification.
func (e *Engine) SetConnectorStatus(c int, status ocpp16.ChargePointStatus, updateServer bool) {
	e.conns.SetStatus(c, status, updateServer)
}

// Availability returns the durable availability of a connector.
func (e *Engine) Availability(c int) ocpp16.AvailabilityType {
	return e.conns.Availability(c)
}

// SetConnectorAvailability sets the durable availability of a connector,
// cascading from connector 0 to every outlet.
func (e *Engine) SetConnectorAvailability(c int, availability ocpp16.AvailabilityType) error {
	return e.conns.SetAvailability(c, availability)
}

// notifyConnectorStatus is the connector model's notify hook.
func (e *Engine) notifyConnectorStatus(c int, status ocpp16.ChargePointStatus) {
	if err := e.sendStatusNotification(c, status); err != nil {
		e.logf("status notification for connector %d failed: %v", c, err)
	}
}

func (e *Engine) emitStatus(status Status, detail string) {
	e.obsMu.RLock()
	observers := e.observers
	e.obsMu.RUnlock()
	for _, o := range observers {
		o.OnStatusChange(status, detail)
	}
}

func (e *Engine) emitAvailability(c int, availability ocpp16.AvailabilityType) {
	e.obsMu.RLock()
	observers := e.observers
	e.obsMu.RUnlock()
	for _, o := range observers {
		o.OnAvailabilityChange(c, availability)
	}
}

func (e *Engine) emitMeter(wh int) {
	e.obsMu.RLock()
	observers := e.observers
	e.obsMu.RUnlock()
	for _, o := range observers {
		o.OnMeterValueChange(wh)
	}
}

// logf writes one engine log line to the logger and to every observer.
func (e *Engine) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	e.log.Info(msg)

	e.obsMu.RLock()
	observers := e.observers
	e.obsMu.RUnlock()
	for _, o := range observers {
		o.OnLog(logPrefix + msg)
	}
}
