package chargepoint

import (
	"fmt"

	"github.com/charging-platform/charge-point-client/internal/domain/ocpp16"
	"github.com/charging-platform/charge-point-client/internal/store"
)

// Connector 0 is the charge point itself; 1..outletCount are outlets.
const outletCount = 2

func keyConnStatus(c int) string       { return fmt.Sprintf("conn_status%d", c) }
func keyConnAvailability(c int) string { return fmt.Sprintf("conn_availability%d", c) }

// connectorModel holds per-connector state over the two stores. Status is
// session scoped; availability is durable and survives restarts. The two are
// never mixed: status answers "what is the outlet doing right now",
// availability answers "is the outlet administratively enabled".
type connectorModel struct {
	session *store.MemoryStore
	durable store.Store

	// notify sends a StatusNotification CALL for the connector.
	notify func(connectorID int, status ocpp16.ChargePointStatus)
	// emitAvailability reports availability flips to the observer.
	emitAvailability func(connectorID int, availability ocpp16.AvailabilityType)
}

func newConnectorModel(
	session *store.MemoryStore,
	durable store.Store,
	notify func(int, ocpp16.ChargePointStatus),
	emitAvailability func(int, ocpp16.AvailabilityType),
) *connectorModel {
	return &connectorModel{
		session:          session,
		durable:          durable,
		notify:           notify,
		emitAvailability: emitAvailability,
	}
}

// Status reads the session-scoped connector status, defaulting to Available.
func (m *connectorModel) Status(c int) ocpp16.ChargePointStatus {
	return ocpp16.ChargePointStatus(m.session.Get(keyConnStatus(c), string(ocpp16.ChargePointStatusAvailable)))
}

// SetStatus writes the session-scoped status and, when notify is set, sends
// a StatusNotification CALL to the central system.
func (m *connectorModel) SetStatus(c int, status ocpp16.ChargePointStatus, notify bool) {
	m.session.Put(keyConnStatus(c), string(status))
	if notify && m.notify != nil {
		m.notify(c, status)
	}
}

// Availability reads the durable availability, defaulting to Operative.
func (m *connectorModel) Availability(c int) ocpp16.AvailabilityType {
	return ocpp16.AvailabilityType(m.durable.Get(keyConnAvailability(c), string(ocpp16.AvailabilityTypeOperative)))
}

// SetAvailability writes the durable availability, aligns the session status
// (Inoperative forces Unavailable, Operative restores Available) and emits
// the availability event. Connector 0 cascades to every outlet, each outlet
// applied only after connector 0's own update and event.
func (m *connectorModel) SetAvailability(c int, availability ocpp16.AvailabilityType) error {
	if err := m.durable.Put(keyConnAvailability(c), string(availability)); err != nil {
		return fmt.Errorf("persist availability for connector %d: %w", c, err)
	}

	switch availability {
	case ocpp16.AvailabilityTypeInoperative:
		m.SetStatus(c, ocpp16.ChargePointStatusUnavailable, true)
	case ocpp16.AvailabilityTypeOperative:
		m.SetStatus(c, ocpp16.ChargePointStatusAvailable, true)
	}

	if m.emitAvailability != nil {
		m.emitAvailability(c, availability)
	}

	if c == 0 {
		for outlet := 1; outlet <= outletCount; outlet++ {
			if err := m.SetAvailability(outlet, availability); err != nil {
				return err
			}
		}
	}
	return nil
}
