// Package events defines the business events the charge point client emits
// about itself: session status changes, connector availability flips,
// transaction boundaries and meter updates. Events are exported to external
// consumers via the telemetry package.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is the common surface of all charge-point events.
type Event interface {
	GetID() string
	GetType() EventType
	GetChargePointID() string
	GetTimestamp() time.Time
	GetSeverity() EventSeverity
	GetPayload() interface{}
	ToJSON() ([]byte, error)
}

// BaseEvent carries the fields every event shares.
type BaseEvent struct {
	ID            string        `json:"id"`
	Type          EventType     `json:"type"`
	ChargePointID string        `json:"charge_point_id"`
	Timestamp     time.Time     `json:"timestamp"`
	Severity      EventSeverity `json:"severity"`
	Metadata      Metadata      `json:"metadata,omitempty"`
}

func (e *BaseEvent) GetID() string            { return e.ID }
func (e *BaseEvent) GetType() EventType       { return e.Type }
func (e *BaseEvent) GetChargePointID() string { return e.ChargePointID }
func (e *BaseEvent) GetTimestamp() time.Time  { return e.Timestamp }
func (e *BaseEvent) GetSeverity() EventSeverity {
	return e.Severity
}

// NewBaseEvent stamps a fresh event envelope.
func NewBaseEvent(eventType EventType, chargePointID string, severity EventSeverity) *BaseEvent {
	return &BaseEvent{
		ID:            uuid.New().String(),
		Type:          eventType,
		ChargePointID: chargePointID,
		Timestamp:     time.Now().UTC(),
		Severity:      severity,
	}
}

// StatusChangedEvent reports a charge-point status write.
type StatusChangedEvent struct {
	*BaseEvent
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (e *StatusChangedEvent) GetPayload() interface{} {
	return map[string]interface{}{"status": e.Status, "detail": e.Detail}
}

func (e *StatusChangedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// NewStatusChangedEvent builds a status event; the ERROR status is escalated
// to critical severity.
func NewStatusChangedEvent(chargePointID, status, detail string) *StatusChangedEvent {
	severity := SeverityInfo
	if status == "ERROR" {
		severity = SeverityCritical
	}
	return &StatusChangedEvent{
		BaseEvent: NewBaseEvent(EventTypeStatusChanged, chargePointID, severity),
		Status:    status,
		Detail:    detail,
	}
}

// AvailabilityChangedEvent reports a connector availability flip.
type AvailabilityChangedEvent struct {
	*BaseEvent
	ConnectorID  int    `json:"connector_id"`
	Availability string `json:"availability"`
}

func (e *AvailabilityChangedEvent) GetPayload() interface{} {
	return map[string]interface{}{
		"connector_id": e.ConnectorID,
		"availability": e.Availability,
	}
}

func (e *AvailabilityChangedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// NewAvailabilityChangedEvent builds an availability event.
func NewAvailabilityChangedEvent(chargePointID string, connectorID int, availability string) *AvailabilityChangedEvent {
	return &AvailabilityChangedEvent{
		BaseEvent:    NewBaseEvent(EventTypeAvailabilityChanged, chargePointID, SeverityInfo),
		ConnectorID:  connectorID,
		Availability: availability,
	}
}

// MeterValueChangedEvent reports a meter register update.
type MeterValueChangedEvent struct {
	*BaseEvent
	ValueWh int `json:"value_wh"`
}

func (e *MeterValueChangedEvent) GetPayload() interface{} {
	return map[string]interface{}{"value_wh": e.ValueWh}
}

func (e *MeterValueChangedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// NewMeterValueChangedEvent builds a meter event.
func NewMeterValueChangedEvent(chargePointID string, valueWh int) *MeterValueChangedEvent {
	return &MeterValueChangedEvent{
		BaseEvent: NewBaseEvent(EventTypeMeterValueChanged, chargePointID, SeverityInfo),
		ValueWh:   valueWh,
	}
}

// SessionEvent marks a session boundary: the charge point registered with or
// left the central system.
type SessionEvent struct {
	*BaseEvent
	Detail string `json:"detail,omitempty"`
}

func (e *SessionEvent) GetPayload() interface{} {
	return map[string]interface{}{"detail": e.Detail}
}

func (e *SessionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// NewConnectedEvent builds the session-open event.
func NewConnectedEvent(chargePointID, detail string) *SessionEvent {
	return &SessionEvent{
		BaseEvent: NewBaseEvent(EventTypeConnected, chargePointID, SeverityInfo),
		Detail:    detail,
	}
}

// NewDisconnectedEvent builds the session-close event. Disconnects are
// warnings; whether the close was planned is in the detail.
func NewDisconnectedEvent(chargePointID, detail string) *SessionEvent {
	return &SessionEvent{
		BaseEvent: NewBaseEvent(EventTypeDisconnected, chargePointID, SeverityWarning),
		Detail:    detail,
	}
}

// TransactionEvent marks a transaction boundary.
type TransactionEvent struct {
	*BaseEvent
	Detail string `json:"detail,omitempty"`
}

func (e *TransactionEvent) GetPayload() interface{} {
	return map[string]interface{}{"detail": e.Detail}
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// NewTransactionStartedEvent builds the transaction-open event.
func NewTransactionStartedEvent(chargePointID, detail string) *TransactionEvent {
	return &TransactionEvent{
		BaseEvent: NewBaseEvent(EventTypeTransactionStarted, chargePointID, SeverityInfo),
		Detail:    detail,
	}
}

// NewTransactionStoppedEvent builds the transaction-close event.
func NewTransactionStoppedEvent(chargePointID, detail string) *TransactionEvent {
	return &TransactionEvent{
		BaseEvent: NewBaseEvent(EventTypeTransactionStopped, chargePointID, SeverityInfo),
		Detail:    detail,
	}
}
