package telemetry

import (
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charging-platform/charge-point-client/internal/chargepoint"
	"github.com/charging-platform/charge-point-client/internal/domain/events"
)

func newMockExporter(t *testing.T) (*KafkaExporter, *mocks.AsyncProducer) {
	t.Helper()
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	producer := mocks.NewAsyncProducer(t, config)

	e := &KafkaExporter{
		producer:      producer,
		topic:         "chargepoint-events",
		chargePointID: "CP01",
	}
	go e.handleSuccesses()
	go e.handleErrors()
	return e, producer
}

// expectEventType queues a checker asserting the next published message
// carries the given event type.
func expectEventType(t *testing.T, producer *mocks.AsyncProducer, want events.EventType) {
	t.Helper()
	producer.ExpectInputWithCheckerFunctionAndSucceed(func(value []byte) error {
		var envelope struct {
			Type          events.EventType `json:"type"`
			ChargePointID string           `json:"charge_point_id"`
		}
		if err := json.Unmarshal(value, &envelope); err != nil {
			return err
		}
		assert.Equal(t, want, envelope.Type)
		assert.Equal(t, "CP01", envelope.ChargePointID)
		return nil
	})
}

func TestObserverDerivesSessionAndTransactionEvents(t *testing.T) {
	e, producer := newMockExporter(t)
	obs := e.Observer()

	expectEventType(t, producer, events.EventTypeStatusChanged)
	obs.OnStatusChange(chargepoint.StatusConnecting, "dialing")

	expectEventType(t, producer, events.EventTypeStatusChanged)
	expectEventType(t, producer, events.EventTypeConnected)
	obs.OnStatusChange(chargepoint.StatusConnected, "registration accepted")

	expectEventType(t, producer, events.EventTypeStatusChanged)
	obs.OnStatusChange(chargepoint.StatusAuthorized, "")

	expectEventType(t, producer, events.EventTypeStatusChanged)
	expectEventType(t, producer, events.EventTypeTransactionStarted)
	obs.OnStatusChange(chargepoint.StatusInTransaction, "transaction started on connector 1")

	expectEventType(t, producer, events.EventTypeStatusChanged)
	expectEventType(t, producer, events.EventTypeTransactionStopped)
	obs.OnStatusChange(chargepoint.StatusAuthorized, "transaction stopped")

	expectEventType(t, producer, events.EventTypeStatusChanged)
	expectEventType(t, producer, events.EventTypeDisconnected)
	obs.OnStatusChange(chargepoint.StatusDisconnected, "disconnected")

	require.NoError(t, e.Close())
}

func TestObserverPublishesConnectorAndMeterEvents(t *testing.T) {
	e, producer := newMockExporter(t)
	obs := e.Observer()

	expectEventType(t, producer, events.EventTypeAvailabilityChanged)
	obs.OnAvailabilityChange(1, "Inoperative")

	expectEventType(t, producer, events.EventTypeMeterValueChanged)
	obs.OnMeterValueChange(5000)

	// Log lines stay local.
	obs.OnLog("[OCPP] heartbeat acknowledged")

	require.NoError(t, e.Close())
}

func TestConnectedOnlyAfterDialNotOnReauthorize(t *testing.T) {
	e, producer := newMockExporter(t)
	obs := e.Observer()

	expectEventType(t, producer, events.EventTypeStatusChanged)
	obs.OnStatusChange(chargepoint.StatusConnecting, "dialing")
	expectEventType(t, producer, events.EventTypeStatusChanged)
	expectEventType(t, producer, events.EventTypeConnected)
	obs.OnStatusChange(chargepoint.StatusConnected, "registration accepted")

	// AUTHORIZED back to CONNECTED is not a new session.
	expectEventType(t, producer, events.EventTypeStatusChanged)
	obs.OnStatusChange(chargepoint.StatusAuthorized, "")
	expectEventType(t, producer, events.EventTypeStatusChanged)
	obs.OnStatusChange(chargepoint.StatusConnected, "")

	require.NoError(t, e.Close())
}
