package chargepoint

import (
	"github.com/charging-platform/charge-point-client/internal/domain/ocpp16"
)

// Observer receives engine notifications. Implementations must not block:
// callbacks run on the engine's dispatch path.
type Observer interface {
	// OnStatusChange fires on every charge-point status write, with an
	// optional human-readable detail.
	OnStatusChange(status Status, detail string)

	// OnAvailabilityChange fires when a connector switches between
	// Operative and Inoperative.
	OnAvailabilityChange(connectorID int, availability ocpp16.AvailabilityType)

	// OnMeterValueChange fires when the simulated meter register changes,
	// including the reset to zero at transaction start.
	OnMeterValueChange(valueWh int)

	// OnLog receives each engine log line, prefixed with "[OCPP] ".
	OnLog(message string)
}

// ObserverFuncs adapts plain functions to the Observer interface. Nil fields
// are skipped.
type ObserverFuncs struct {
	StatusChange       func(status Status, detail string)
	AvailabilityChange func(connectorID int, availability ocpp16.AvailabilityType)
	MeterValueChange   func(valueWh int)
	Log                func(message string)
}

// OnStatusChange implements Observer.
func (o ObserverFuncs) OnStatusChange(status Status, detail string) {
	if o.StatusChange != nil {
		o.StatusChange(status, detail)
	}
}

// OnAvailabilityChange implements Observer.
func (o ObserverFuncs) OnAvailabilityChange(connectorID int, availability ocpp16.AvailabilityType) {
	if o.AvailabilityChange != nil {
		o.AvailabilityChange(connectorID, availability)
	}
}

// OnMeterValueChange implements Observer.
func (o ObserverFuncs) OnMeterValueChange(valueWh int) {
	if o.MeterValueChange != nil {
		o.MeterValueChange(valueWh)
	}
}

// OnLog implements Observer.
func (o ObserverFuncs) OnLog(message string) {
	if o.Log != nil {
		o.Log(message)
	}
}
