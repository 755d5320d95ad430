package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseEventStampsEnvelope(t *testing.T) {
	before := time.Now().UTC()
	e := NewBaseEvent(EventTypeStatusChanged, "CP01", SeverityInfo)

	assert.NotEmpty(t, e.GetID())
	assert.Equal(t, EventTypeStatusChanged, e.GetType())
	assert.Equal(t, "CP01", e.GetChargePointID())
	assert.Equal(t, SeverityInfo, e.GetSeverity())
	assert.False(t, e.GetTimestamp().Before(before))

	// Each event gets its own id.
	other := NewBaseEvent(EventTypeStatusChanged, "CP01", SeverityInfo)
	assert.NotEqual(t, e.GetID(), other.GetID())
}

func TestStatusChangedEventJSON(t *testing.T) {
	e := NewStatusChangedEvent("CP01", "CONNECTED", "registration accepted")

	data, err := e.ToJSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "charge_point.status_changed", decoded["type"])
	assert.Equal(t, "CP01", decoded["charge_point_id"])
	assert.Equal(t, "CONNECTED", decoded["status"])
	assert.Equal(t, "registration accepted", decoded["detail"])
	assert.Equal(t, "info", decoded["severity"])
}

func TestStatusChangedEventErrorSeverity(t *testing.T) {
	e := NewStatusChangedEvent("CP01", "ERROR", "ws normal error")
	assert.Equal(t, SeverityCritical, e.GetSeverity())
}

func TestSessionEvents(t *testing.T) {
	connected := NewConnectedEvent("CP01", "registration accepted")
	assert.Equal(t, EventTypeConnected, connected.GetType())
	assert.Equal(t, SeverityInfo, connected.GetSeverity())

	disconnected := NewDisconnectedEvent("CP01", "Connection error: 1006")
	assert.Equal(t, EventTypeDisconnected, disconnected.GetType())
	assert.Equal(t, SeverityWarning, disconnected.GetSeverity())

	data, err := disconnected.ToJSON()
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "charge_point.disconnected", decoded["type"])
	assert.Equal(t, "Connection error: 1006", decoded["detail"])
}

func TestTransactionEvents(t *testing.T) {
	started := NewTransactionStartedEvent("CP01", "transaction started on connector 1")
	assert.Equal(t, EventTypeTransactionStarted, started.GetType())

	stopped := NewTransactionStoppedEvent("CP01", "transaction stopped")
	assert.Equal(t, EventTypeTransactionStopped, stopped.GetType())

	data, err := started.ToJSON()
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "transaction.started", decoded["type"])
}

func TestAvailabilityChangedEventPayload(t *testing.T) {
	e := NewAvailabilityChangedEvent("CP01", 2, "Inoperative")

	payload := e.GetPayload().(map[string]interface{})
	assert.Equal(t, 2, payload["connector_id"])
	assert.Equal(t, "Inoperative", payload["availability"])

	data, err := e.ToJSON()
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(2), decoded["connector_id"])
	assert.Equal(t, "connector.availability_changed", decoded["type"])
}

func TestMeterValueChangedEventJSON(t *testing.T) {
	e := NewMeterValueChangedEvent("CP01", 5000)

	data, err := e.ToJSON()
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, float64(5000), decoded["value_wh"])
	assert.Equal(t, "meter_value.changed", decoded["type"])
}
