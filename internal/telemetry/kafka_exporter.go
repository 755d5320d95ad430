// Package telemetry exports charge-point events to Kafka for downstream
// analytics. The exporter plugs into the engine as an observer; export is
// fire-and-forget and never blocks the protocol path.
package telemetry

import (
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog/log"

	"github.com/charging-platform/charge-point-client/internal/chargepoint"
	"github.com/charging-platform/charge-point-client/internal/domain/events"
	"github.com/charging-platform/charge-point-client/internal/domain/ocpp16"
)

// KafkaExporter publishes events to one Kafka topic, keyed by charge point
// id so all events of one charge point land in the same partition.
type KafkaExporter struct {
	producer      sarama.AsyncProducer
	topic         string
	chargePointID string
}

// NewKafkaExporter connects the async producer and starts the delivery
// report drains.
func NewKafkaExporter(brokers []string, topic, chargePointID string) (*KafkaExporter, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 500 * time.Millisecond
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka async producer: %w", err)
	}

	e := &KafkaExporter{
		producer:      producer,
		topic:         topic,
		chargePointID: chargePointID,
	}
	go e.handleSuccesses()
	go e.handleErrors()
	return e, nil
}

// PublishEvent enqueues one event for async delivery.
func (e *KafkaExporter) PublishEvent(event events.Event) error {
	data, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal event to JSON: %w", err)
	}

	e.producer.Input() <- &sarama.ProducerMessage{
		Topic: e.topic,
		Key:   sarama.StringEncoder(event.GetChargePointID()),
		Value: sarama.ByteEncoder(data),
	}
	return nil
}

// Close flushes and shuts down the producer.
func (e *KafkaExporter) Close() error {
	if err := e.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}

// Observer adapts the exporter to the engine's observer interface. Session
// and transaction boundary events are derived from the status transitions;
// log lines are not exported, they stay local.
func (e *KafkaExporter) Observer() chargepoint.Observer {
	var mu sync.Mutex
	var last chargepoint.Status

	return chargepoint.ObserverFuncs{
		StatusChange: func(status chargepoint.Status, detail string) {
			mu.Lock()
			prev := last
			last = status
			mu.Unlock()

			e.publish(events.NewStatusChangedEvent(e.chargePointID, string(status), detail))
			if status == prev {
				return
			}

			if prev == chargepoint.StatusInTransaction {
				e.publish(events.NewTransactionStoppedEvent(e.chargePointID, detail))
			}
			switch status {
			case chargepoint.StatusConnected:
				if prev == chargepoint.StatusConnecting {
					e.publish(events.NewConnectedEvent(e.chargePointID, detail))
				}
			case chargepoint.StatusDisconnected:
				e.publish(events.NewDisconnectedEvent(e.chargePointID, detail))
			case chargepoint.StatusInTransaction:
				e.publish(events.NewTransactionStartedEvent(e.chargePointID, detail))
			}
		},
		AvailabilityChange: func(connectorID int, availability ocpp16.AvailabilityType) {
			e.publish(events.NewAvailabilityChangedEvent(e.chargePointID, connectorID, string(availability)))
		},
		MeterValueChange: func(valueWh int) {
			e.publish(events.NewMeterValueChangedEvent(e.chargePointID, valueWh))
		},
	}
}

func (e *KafkaExporter) publish(event events.Event) {
	if err := e.PublishEvent(event); err != nil {
		log.Error().Err(err).Str("type", string(event.GetType())).Msg("Failed to publish telemetry event")
	}
}

func (e *KafkaExporter) handleSuccesses() {
	for msg := range e.producer.Successes() {
		log.Debug().
			Str("topic", msg.Topic).
			Str("key", string(msg.Key.(sarama.StringEncoder))).
			Msg("Telemetry event delivered")
	}
}

func (e *KafkaExporter) handleErrors() {
	for err := range e.producer.Errors() {
		log.Error().
			Err(err).
			Str("topic", err.Msg.Topic).
			Str("key", string(err.Msg.Key.(sarama.StringEncoder))).
			Msg("Failed to deliver telemetry event")
	}
}
