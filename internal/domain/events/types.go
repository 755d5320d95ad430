package events

// EventType names a charge-point lifecycle event.
type EventType string

const (
	// Session lifecycle.
	EventTypeConnected     EventType = "charge_point.connected"
	EventTypeDisconnected  EventType = "charge_point.disconnected"
	EventTypeStatusChanged EventType = "charge_point.status_changed"

	// Connector state.
	EventTypeAvailabilityChanged EventType = "connector.availability_changed"

	// Transactions and metering.
	EventTypeTransactionStarted EventType = "transaction.started"
	EventTypeTransactionStopped EventType = "transaction.stopped"
	EventTypeMeterValueChanged  EventType = "meter_value.changed"
)

// EventSeverity classifies how urgent an event is for downstream consumers.
type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// Metadata is free-form context attached to an event.
type Metadata map[string]string
