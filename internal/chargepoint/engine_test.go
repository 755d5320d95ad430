package chargepoint

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charging-platform/charge-point-client/internal/config"
	"github.com/charging-platform/charge-point-client/internal/domain/ocpp16"
	"github.com/charging-platform/charge-point-client/internal/logger"
	"github.com/charging-platform/charge-point-client/internal/store"
)

const frameWait = 2 * time.Second

// fakeCentralSystem is a minimal OCPP-J server for driving the engine in
// tests. Every frame the charge point sends lands on the frames channel as a
// decoded JSON array.
type fakeCentralSystem struct {
	t      *testing.T
	server *httptest.Server
	frames chan []interface{}

	mu   sync.Mutex
	conn *websocket.Conn
}

func newFakeCentralSystem(t *testing.T) *fakeCentralSystem {
	t.Helper()
	cs := &fakeCentralSystem{t: t, frames: make(chan []interface{}, 64)}
	cs.server = httptest.NewServer(http.HandlerFunc(cs.handle))
	t.Cleanup(cs.server.Close)
	return cs
}

func (cs *fakeCentralSystem) handle(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		Subprotocols: []string{"ocpp1.6"},
		CheckOrigin:  func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	cs.mu.Lock()
	cs.conn = conn
	cs.mu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var frame []interface{}
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		cs.frames <- frame
	}
}

func (cs *fakeCentralSystem) url() string {
	return "ws://" + strings.TrimPrefix(cs.server.URL, "http://") + "/"
}

func (cs *fakeCentralSystem) send(v interface{}) {
	data, err := json.Marshal(v)
	require.NoError(cs.t, err)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	require.NotNil(cs.t, cs.conn)
	require.NoError(cs.t, cs.conn.WriteMessage(websocket.TextMessage, data))
}

// nextFrame waits for the next frame from the charge point.
func (cs *fakeCentralSystem) nextFrame() []interface{} {
	cs.t.Helper()
	select {
	case frame := <-cs.frames:
		return frame
	case <-time.After(frameWait):
		cs.t.Fatal("timed out waiting for a frame from the charge point")
		return nil
	}
}

// expectCall waits for a CALL with the given action and returns its uniqueId
// and payload.
func (cs *fakeCentralSystem) expectCall(action string) (string, map[string]interface{}) {
	cs.t.Helper()
	frame := cs.nextFrame()
	require.Len(cs.t, frame, 4)
	require.Equal(cs.t, float64(2), frame[0])
	require.Equal(cs.t, action, frame[2])
	payload, ok := frame[3].(map[string]interface{})
	require.True(cs.t, ok, "payload must be a JSON object")
	return frame[1].(string), payload
}

// expectCallResult waits for the CALLRESULT replying to the given id.
func (cs *fakeCentralSystem) expectCallResult(id string) map[string]interface{} {
	cs.t.Helper()
	frame := cs.nextFrame()
	require.Len(cs.t, frame, 3)
	require.Equal(cs.t, float64(3), frame[0])
	require.Equal(cs.t, id, frame[1])
	payload, ok := frame[2].(map[string]interface{})
	require.True(cs.t, ok, "payload must be a JSON object")
	return payload
}

// expectNoFrame asserts silence on the wire for the given duration.
func (cs *fakeCentralSystem) expectNoFrame(d time.Duration) {
	cs.t.Helper()
	select {
	case frame := <-cs.frames:
		cs.t.Fatalf("unexpected frame: %v", frame)
	case <-time.After(d):
	}
}

func (cs *fakeCentralSystem) reply(id string, payload interface{}) {
	cs.send([]interface{}{3, id, payload})
}

// statusRecorder captures observer callbacks for assertions.
type statusRecorder struct {
	mu       sync.Mutex
	statuses []Status
	details  map[Status]string
}

func newStatusRecorder() *statusRecorder {
	return &statusRecorder{details: make(map[Status]string)}
}

func (r *statusRecorder) observer() Observer {
	return ObserverFuncs{
		StatusChange: func(status Status, detail string) {
			r.mu.Lock()
			r.statuses = append(r.statuses, status)
			r.details[status] = detail
			r.mu.Unlock()
		},
	}
}

func (r *statusRecorder) detailFor(status Status) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.details[status]
}

func (r *statusRecorder) saw(status Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.statuses {
		if s == status {
			return true
		}
	}
	return false
}

func testConfig() config.ChargePointConfig {
	return config.ChargePointConfig{
		WsURL:                   "ws://unused/",
		CPID:                    "CP01",
		DefaultIDTag:            "DEADBEEF",
		Subprotocols:            []string{"ocpp1.6", "ocpp1.5"},
		Vendor:                  "Elmo",
		Model:                   "Elmo-Virtual1",
		SerialNumber:            "elm.001.13.1",
		ChargeBoxSerial:         "elm.001.13.1.01",
		FirmwareVersion:         "0.9.87",
		MeterType:               "ELM NQC-ACDC",
		MeterSerialNumber:       "elm.001.13.1.01",
		RemoteStartDelay:        100 * time.Millisecond,
		RemoteStartStopResponse: "Accepted",
		CallTimeout:             2 * time.Second,
	}
}

func newTestEngine(t *testing.T, mutate func(*config.ChargePointConfig)) (*Engine, *statusRecorder) {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	log, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stdout"})
	require.NoError(t, err)

	e := New(cfg, log, store.NewMemoryStore())
	rec := newStatusRecorder()
	e.Subscribe(rec.observer())
	t.Cleanup(e.Disconnect)
	return e, rec
}

// connectAccepted drives the engine through connect and an accepted
// BootNotification with the given heartbeat interval.
func connectAccepted(t *testing.T, e *Engine, cs *fakeCentralSystem, interval int) {
	t.Helper()
	require.NoError(t, e.Connect(cs.url(), "CP01"))

	id, payload := cs.expectCall("BootNotification")
	assert.Equal(t, "Elmo", payload["chargePointVendor"])
	assert.Equal(t, "Elmo-Virtual1", payload["chargePointModel"])

	cs.reply(id, map[string]interface{}{
		"status":      "Accepted",
		"interval":    interval,
		"currentTime": "2026-08-24T00:00:00Z",
	})
	require.Eventually(t, func() bool { return e.Status() == StatusConnected },
		frameWait, 10*time.Millisecond)
}

func TestColdConnectArmsHeartbeat(t *testing.T) {
	cs := newFakeCentralSystem(t)
	e, rec := newTestEngine(t, nil)

	connectAccepted(t, e, cs, 1)
	assert.True(t, rec.saw(StatusConnecting))

	id, _ := cs.expectCall("Heartbeat")
	cs.reply(id, map[string]interface{}{"currentTime": "2026-08-24T00:00:01Z"})
}

func TestBootNotificationRejectedDisconnects(t *testing.T) {
	cs := newFakeCentralSystem(t)
	e, _ := newTestEngine(t, nil)

	require.NoError(t, e.Connect(cs.url(), "CP01"))
	id, _ := cs.expectCall("BootNotification")
	cs.reply(id, map[string]interface{}{
		"status":      "Rejected",
		"interval":    0,
		"currentTime": "2026-08-24T00:00:00Z",
	})

	require.Eventually(t, func() bool { return e.Status() == StatusDisconnected },
		frameWait, 10*time.Millisecond)
	assert.False(t, e.IsConnected())
}

func TestHappyTransaction(t *testing.T) {
	cs := newFakeCentralSystem(t)
	e, _ := newTestEngine(t, nil)
	connectAccepted(t, e, cs, 3600)

	// Authorize.
	require.NoError(t, e.Authorize("DEADBEEF"))
	id, payload := cs.expectCall("Authorize")
	assert.Equal(t, "DEADBEEF", payload["idTag"])
	cs.reply(id, map[string]interface{}{
		"idTagInfo": map[string]interface{}{"status": "Accepted"},
	})
	require.Eventually(t, func() bool { return e.Status() == StatusAuthorized },
		frameWait, 10*time.Millisecond)

	// Start: the StartTransaction CALL is followed by the Charging
	// StatusNotification for connector 1.
	require.NoError(t, e.StartTransaction("DEADBEEF"))
	startID, payload := cs.expectCall("StartTransaction")
	assert.Equal(t, float64(1), payload["connectorId"])
	assert.Equal(t, "DEADBEEF", payload["idTag"])
	assert.Equal(t, float64(0), payload["meterStart"])
	assert.Contains(t, payload, "timestamp")

	snID, payload := cs.expectCall("StatusNotification")
	assert.Equal(t, float64(1), payload["connectorId"])
	assert.Equal(t, "Charging", payload["status"])
	cs.reply(snID, map[string]interface{}{})

	assert.Equal(t, StatusInTransaction, e.Status())

	cs.reply(startID, map[string]interface{}{
		"idTagInfo":     map[string]interface{}{"status": "Accepted"},
		"transactionId": 42,
	})
	require.Eventually(t, func() bool { return e.TransactionID() == 42 },
		frameWait, 10*time.Millisecond)

	// Meter update with server report.
	require.NoError(t, e.SetMeterValue(5000, true))
	id, payload = cs.expectCall("MeterValues")
	assert.Equal(t, float64(42), payload["transactionId"])
	meterValue := payload["meterValue"].([]interface{})
	sampled := meterValue[0].(map[string]interface{})["sampledValue"].([]interface{})
	sample := sampled[0].(map[string]interface{})
	assert.Equal(t, "5000", sample["value"])
	assert.Equal(t, "Energy.Active.Import.Register", sample["measurand"])
	assert.Equal(t, "Wh", sample["unit"])
	cs.reply(id, map[string]interface{}{})

	// Stop.
	require.NoError(t, e.StopTransaction("DEADBEEF"))
	stopID, payload := cs.expectCall("StopTransaction")
	assert.Equal(t, float64(42), payload["transactionId"])
	assert.Equal(t, float64(5000), payload["meterStop"])
	assert.Equal(t, "Local", payload["reason"])
	txData := payload["transactionData"].([]interface{})
	require.Len(t, txData, 2)
	begin := txData[0].(map[string]interface{})["sampledValue"].([]interface{})[0].(map[string]interface{})
	end := txData[1].(map[string]interface{})["sampledValue"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "0", begin["value"])
	assert.Equal(t, "5000", end["value"])

	assert.Equal(t, StatusAuthorized, e.Status())
	assert.Equal(t, ocpp16.ChargePointStatusFinishing, e.ConnectorStatus(1))

	cs.reply(stopID, map[string]interface{}{})
	require.Eventually(t, func() bool {
		return e.ConnectorStatus(1) == ocpp16.ChargePointStatusAvailable
	}, frameWait, 10*time.Millisecond)
}

func TestStartTransactionResultWithoutIDKeepsStored(t *testing.T) {
	cs := newFakeCentralSystem(t)
	e, _ := newTestEngine(t, nil)
	connectAccepted(t, e, cs, 3600)

	require.NoError(t, e.StartTransaction(""))
	startID, _ := cs.expectCall("StartTransaction")
	snID, _ := cs.expectCall("StatusNotification")
	cs.reply(snID, map[string]interface{}{})

	cs.reply(startID, map[string]interface{}{
		"idTagInfo":     map[string]interface{}{"status": "Accepted"},
		"transactionId": 42,
	})
	require.Eventually(t, func() bool { return e.TransactionID() == 42 },
		frameWait, 10*time.Millisecond)

	// A second result with a zero id must not clobber the stored one.
	require.NoError(t, e.StartTransactionOn("DEADBEEF", 2, 0))
	startID, _ = cs.expectCall("StartTransaction")
	snID, _ = cs.expectCall("StatusNotification")
	cs.reply(snID, map[string]interface{}{})
	cs.reply(startID, map[string]interface{}{
		"idTagInfo": map[string]interface{}{"status": "Accepted"},
	})

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 42, e.TransactionID())
}

func TestRemoteStartTransactionDelayed(t *testing.T) {
	cs := newFakeCentralSystem(t)
	e, _ := newTestEngine(t, nil)
	connectAccepted(t, e, cs, 3600)

	cs.send([]interface{}{2, "X", "RemoteStartTransaction", map[string]interface{}{"idTag": "T1"}})
	payload := cs.expectCallResult("X")
	assert.Equal(t, "Accepted", payload["status"])

	// The StartTransaction arrives only after the configured delay.
	started := time.Now()
	id, payload := cs.expectCall("StartTransaction")
	assert.GreaterOrEqual(t, time.Since(started), 50*time.Millisecond)
	assert.Equal(t, "T1", payload["idTag"])

	snID, _ := cs.expectCall("StatusNotification")
	cs.reply(snID, map[string]interface{}{})
	cs.reply(id, map[string]interface{}{
		"idTagInfo":     map[string]interface{}{"status": "Accepted"},
		"transactionId": 7,
	})
}

func TestRemoteStartTransactionRejectedMode(t *testing.T) {
	cs := newFakeCentralSystem(t)
	e, _ := newTestEngine(t, func(cfg *config.ChargePointConfig) {
		cfg.RemoteStartStopResponse = "Rejected"
	})
	connectAccepted(t, e, cs, 3600)

	cs.send([]interface{}{2, "X", "RemoteStartTransaction", map[string]interface{}{"idTag": "T1"}})
	payload := cs.expectCallResult("X")
	assert.Equal(t, "Rejected", payload["status"])

	cs.expectNoFrame(300 * time.Millisecond)
	assert.NotEqual(t, StatusInTransaction, e.Status())
}

func TestChangeAvailabilityConnectorZeroCascades(t *testing.T) {
	cs := newFakeCentralSystem(t)
	e, _ := newTestEngine(t, nil)
	connectAccepted(t, e, cs, 3600)

	cs.send([]interface{}{2, "CA1", "ChangeAvailability", map[string]interface{}{
		"connectorId": 0,
		"type":        "Inoperative",
	}})
	payload := cs.expectCallResult("CA1")
	assert.Equal(t, "Accepted", payload["status"])

	// Connector 0 reports first, the outlets follow.
	for want := 0; want <= 2; want++ {
		id, payload := cs.expectCall("StatusNotification")
		assert.Equal(t, float64(want), payload["connectorId"])
		assert.Equal(t, "Unavailable", payload["status"])
		cs.reply(id, map[string]interface{}{})
	}

	require.Eventually(t, func() bool {
		for c := 0; c <= 2; c++ {
			if e.Availability(c) != ocpp16.AvailabilityTypeInoperative {
				return false
			}
		}
		return true
	}, frameWait, 10*time.Millisecond)
}

func TestOperativeRestoresAvailableStatus(t *testing.T) {
	cs := newFakeCentralSystem(t)
	e, _ := newTestEngine(t, nil)
	connectAccepted(t, e, cs, 3600)

	cs.send([]interface{}{2, "CA1", "ChangeAvailability", map[string]interface{}{
		"connectorId": 1,
		"type":        "Inoperative",
	}})
	cs.expectCallResult("CA1")
	id, _ := cs.expectCall("StatusNotification")
	cs.reply(id, map[string]interface{}{})
	require.Eventually(t, func() bool {
		return e.ConnectorStatus(1) == ocpp16.ChargePointStatusUnavailable
	}, frameWait, 10*time.Millisecond)

	cs.send([]interface{}{2, "CA2", "ChangeAvailability", map[string]interface{}{
		"connectorId": 1,
		"type":        "Operative",
	}})
	cs.expectCallResult("CA2")
	id, payload := cs.expectCall("StatusNotification")
	assert.Equal(t, "Available", payload["status"])
	cs.reply(id, map[string]interface{}{})

	require.Eventually(t, func() bool {
		return e.ConnectorStatus(1) == ocpp16.ChargePointStatusAvailable
	}, frameWait, 10*time.Millisecond)
	assert.Equal(t, ocpp16.AvailabilityTypeOperative, e.Availability(1))
}

func TestTriggerMessageMeterValues(t *testing.T) {
	cs := newFakeCentralSystem(t)
	e, _ := newTestEngine(t, nil)
	connectAccepted(t, e, cs, 3600)

	require.NoError(t, e.SetMeterValue(1234, false))

	cs.send([]interface{}{2, "T1", "TriggerMessage", map[string]interface{}{
		"requestedMessage": "MeterValues",
		"connectorId":      1,
	}})
	payload := cs.expectCallResult("T1")
	assert.Equal(t, "Accepted", payload["status"])

	id, payload := cs.expectCall("MeterValues")
	assert.Equal(t, float64(1), payload["connectorId"])
	meterValue := payload["meterValue"].([]interface{})
	sampled := meterValue[0].(map[string]interface{})["sampledValue"].([]interface{})
	assert.Equal(t, "1234", sampled[0].(map[string]interface{})["value"])
	cs.reply(id, map[string]interface{}{})
}

func TestUnknownInboundActionGetsCallError(t *testing.T) {
	cs := newFakeCentralSystem(t)
	e, _ := newTestEngine(t, nil)
	connectAccepted(t, e, cs, 3600)

	cs.send([]interface{}{2, "U1", "GetDiagnostics", map[string]interface{}{}})
	frame := cs.nextFrame()
	require.Equal(t, float64(4), frame[0])
	assert.Equal(t, "U1", frame[1])
	assert.Equal(t, "NotImplemented", frame[2])
}

func TestSendWithoutConnectionIsError(t *testing.T) {
	e, rec := newTestEngine(t, nil)

	err := e.SendHeartbeat()
	require.Error(t, err)
	assert.Equal(t, StatusError, e.Status())
	assert.Equal(t, "No connection to OCPP server", rec.detailFor(StatusError))
}

func TestDoubleConnectRefused(t *testing.T) {
	cs := newFakeCentralSystem(t)
	e, rec := newTestEngine(t, nil)
	connectAccepted(t, e, cs, 3600)

	err := e.Connect(cs.url(), "CP01")
	require.Error(t, err)
	assert.True(t, rec.saw(StatusError))
	require.Eventually(t, func() bool { return !e.IsConnected() },
		frameWait, 10*time.Millisecond)
}

func TestStaleReadLoopExitKeepsNewSession(t *testing.T) {
	cs := newFakeCentralSystem(t)
	e, _ := newTestEngine(t, nil)
	connectAccepted(t, e, cs, 3600)

	// A socket the engine no longer owns, standing in for the read loop
	// left over from a closed connection.
	other := newFakeCentralSystem(t)
	dialer := websocket.Dialer{Subprotocols: []string{"ocpp1.6"}}
	stale, _, err := dialer.Dial(other.url()+"CP01", nil)
	require.NoError(t, err)
	defer stale.Close()

	e.handleReadError(stale, errors.New("use of closed network connection"))

	// The live session keeps its socket, its sweeper and its heartbeat.
	assert.True(t, e.IsConnected())
	assert.Equal(t, StatusConnected, e.Status())
	e.pending.mu.Lock()
	sweeping := e.pending.cancel != nil
	e.pending.mu.Unlock()
	assert.True(t, sweeping, "pending-call sweeper must survive a stale read-loop exit")
	assert.Greater(t, e.hb.Interval(), time.Duration(0))

	require.NoError(t, e.SendHeartbeat())
	id, _ := cs.expectCall("Heartbeat")
	cs.reply(id, map[string]interface{}{"currentTime": "2026-08-24T00:00:01Z"})
}

func TestDataTransferRoundTrip(t *testing.T) {
	cs := newFakeCentralSystem(t)
	e, _ := newTestEngine(t, nil)
	connectAccepted(t, e, cs, 3600)

	require.NoError(t, e.SendDataTransfer("Elmo", "diag", map[string]interface{}{"bay": "2"}))
	id, payload := cs.expectCall("DataTransfer")
	assert.Equal(t, "Elmo", payload["vendorId"])
	assert.Equal(t, "diag", payload["messageId"])
	assert.Equal(t, map[string]interface{}{"bay": "2"}, payload["data"])

	cs.reply(id, map[string]interface{}{"status": "Accepted"})
	cs.expectNoFrame(200 * time.Millisecond)
	assert.Equal(t, StatusConnected, e.Status())
}

func TestSetMeterValueRejectsNegative(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	require.NoError(t, e.SetMeterValue(10, false))
	require.Error(t, e.SetMeterValue(-1, false))
	assert.Equal(t, 10, e.MeterValue())
}

func TestOversizedMessageIDIsMalformed(t *testing.T) {
	cs := newFakeCentralSystem(t)
	e, _ := newTestEngine(t, nil)
	connectAccepted(t, e, cs, 3600)

	cs.send([]interface{}{2, strings.Repeat("x", 37), "Heartbeat", map[string]interface{}{}})
	require.Eventually(t, func() bool { return e.Status() == StatusError },
		frameWait, 10*time.Millisecond)
	assert.True(t, e.IsConnected())
}

func TestResetClosesConnection(t *testing.T) {
	cs := newFakeCentralSystem(t)
	e, _ := newTestEngine(t, nil)
	connectAccepted(t, e, cs, 3600)

	cs.send([]interface{}{2, "R1", "Reset", map[string]interface{}{"type": "Soft"}})
	payload := cs.expectCallResult("R1")
	assert.Equal(t, "Accepted", payload["status"])

	require.Eventually(t, func() bool { return e.Status() == StatusDisconnected },
		frameWait, 10*time.Millisecond)
	assert.False(t, e.IsConnected())
}

func TestGetConfigurationListsHeartbeatInterval(t *testing.T) {
	cs := newFakeCentralSystem(t)
	e, _ := newTestEngine(t, nil)
	connectAccepted(t, e, cs, 3600)

	cs.send([]interface{}{2, "G1", "GetConfiguration", map[string]interface{}{}})
	payload := cs.expectCallResult("G1")
	keys := payload["configurationKey"].([]interface{})
	require.Len(t, keys, 1)
	entry := keys[0].(map[string]interface{})
	assert.Equal(t, "HeartbeatInterval", entry["key"])
	assert.Equal(t, "900", entry["value"])
	assert.Equal(t, false, entry["readonly"])

	// unknownKey rides the wire even when empty.
	unknown, ok := payload["unknownKey"].([]interface{})
	require.True(t, ok, "unknownKey must be present in the reply")
	assert.Empty(t, unknown)
}

func TestChangeConfigurationHeartbeatInterval(t *testing.T) {
	cs := newFakeCentralSystem(t)
	e, _ := newTestEngine(t, nil)
	connectAccepted(t, e, cs, 3600)

	cs.send([]interface{}{2, "C1", "ChangeConfiguration", map[string]interface{}{
		"key":   "HeartbeatInterval",
		"value": "600",
	}})
	payload := cs.expectCallResult("C1")
	assert.Equal(t, "Accepted", payload["status"])

	cs.send([]interface{}{2, "C2", "ChangeConfiguration", map[string]interface{}{
		"key":   "SomethingElse",
		"value": "1",
	}})
	payload = cs.expectCallResult("C2")
	assert.Equal(t, "NotSupported", payload["status"])

	cs.send([]interface{}{2, "G1", "GetConfiguration", map[string]interface{}{}})
	payload = cs.expectCallResult("G1")
	entry := payload["configurationKey"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "600", entry["value"])
}

func TestUnknownCallResultIsDropped(t *testing.T) {
	cs := newFakeCentralSystem(t)
	e, _ := newTestEngine(t, nil)
	connectAccepted(t, e, cs, 3600)

	cs.send([]interface{}{3, "never-sent", map[string]interface{}{}})
	cs.expectNoFrame(200 * time.Millisecond)
	assert.Equal(t, StatusConnected, e.Status())
}

func TestMalformedFrameSetsErrorWithoutClosing(t *testing.T) {
	cs := newFakeCentralSystem(t)
	e, _ := newTestEngine(t, nil)
	connectAccepted(t, e, cs, 3600)

	cs.send("not an array")
	require.Eventually(t, func() bool { return e.Status() == StatusError },
		frameWait, 10*time.Millisecond)
	assert.True(t, e.IsConnected())
}
