package chargepoint

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/charging-platform/charge-point-client/internal/domain/ocpp16"
	"github.com/charging-platform/charge-point-client/internal/domain/serialization"
	"github.com/charging-platform/charge-point-client/internal/metrics"
)

// sendCall validates and sends one outbound CALL. The pending entry is
// registered before the write so the reply can never race the registration.
func (e *Engine) sendCall(action ocpp16.Action, payload interface{}) error {
	if err := e.val.ValidateStruct(payload); err != nil {
		return err
	}

	id := uuid.New().String()
	data, err := e.ser.SerializeCall(id, action, payload)
	if err != nil {
		return err
	}

	// LastAction is kept in the session store for inspection only; reply
	// routing goes through the pending table keyed by uniqueId.
	e.session.Put(keyLastAction, string(action))
	e.pending.Register(id, action)

	if err := e.writeMessage(data); err != nil {
		e.pending.Resolve(id)
		return err
	}
	metrics.FramesSent.WithLabelValues("call", string(action)).Inc()
	return nil
}

// sendBootNotification announces the charge point right after connect.
func (e *Engine) sendBootNotification() error {
	req := ocpp16.BootNotificationRequest{
		ChargePointVendor:       e.cfg.Vendor,
		ChargePointModel:        e.cfg.Model,
		ChargePointSerialNumber: ocpp16.StringPtr(e.cfg.SerialNumber),
		ChargeBoxSerialNumber:   ocpp16.StringPtr(e.cfg.ChargeBoxSerial),
		FirmwareVersion:         ocpp16.StringPtr(e.cfg.FirmwareVersion),
		MeterType:               ocpp16.StringPtr(e.cfg.MeterType),
		MeterSerialNumber:       ocpp16.StringPtr(e.cfg.MeterSerialNumber),
	}
	e.logf("sending BootNotification for %s %s", e.cfg.Vendor, e.cfg.Model)
	return e.sendCall(ocpp16.ActionBootNotification, req)
}

// SendHeartbeat sends one Heartbeat CALL.
func (e *Engine) SendHeartbeat() error {
	if err := e.sendCall(ocpp16.ActionHeartbeat, ocpp16.HeartbeatRequest{}); err != nil {
		return err
	}
	metrics.HeartbeatsSent.Inc()
	return nil
}

// Authorize presents an idTag to the central system. An empty tagID falls
// back to the last used tag, then to the configured default.
func (e *Engine) Authorize(tagID string) error {
	if tagID == "" {
		tagID = e.durable.Get(keyTag, e.cfg.DefaultIDTag)
	}
	if err := e.durable.Put(keyTag, tagID); err != nil {
		e.logf("failed to persist id tag: %v", err)
	}
	if info, ok := e.auth.Get(tagID); ok {
		e.logf("tag %s cached as %s, confirming with central system", tagID, info.Status)
	}
	e.logf("authorizing tag %s", tagID)
	return e.sendCall(ocpp16.ActionAuthorize, ocpp16.AuthorizeRequest{IdTag: tagID})
}

// StartTransaction starts a transaction on outlet 1 without a reservation.
func (e *Engine) StartTransaction(tagID string) error {
	return e.StartTransactionOn(tagID, 1, 0)
}

// StartTransactionOn starts a transaction on the given connector. The meter
// register resets to zero, the engine moves to IN_TRANSACTION immediately and
// the connector reports Charging; the server-assigned transaction id arrives
// with the CALLRESULT.
func (e *Engine) StartTransactionOn(tagID string, connectorID, reservationID int) error {
	if tagID == "" {
		tagID = e.durable.Get(keyTag, e.cfg.DefaultIDTag)
	}

	e.session.Put(keyMeterValue, "0")
	e.emitMeter(0)
	e.session.Put(keyTxConnector, strconv.Itoa(connectorID))

	req := ocpp16.StartTransactionRequest{
		ConnectorId:   connectorID,
		IdTag:         tagID,
		MeterStart:    0,
		ReservationId: ocpp16.IntPtr(reservationID),
		Timestamp:     ocpp16.Now(),
	}
	if err := e.sendCall(ocpp16.ActionStartTransaction, req); err != nil {
		return err
	}
	metrics.TransactionsStarted.Inc()

	if err := e.sm.Transition(StatusInTransaction, "transaction started on connector "+strconv.Itoa(connectorID)); err != nil {
		e.logf("%v", err)
	}
	e.conns.SetStatus(connectorID, ocpp16.ChargePointStatusCharging, true)
	return nil
}

// StopTransaction stops the current transaction.
func (e *Engine) StopTransaction(tagID string) error {
	return e.StopTransactionWithID(e.TransactionID(), tagID)
}

// StopTransactionWithID stops the given transaction, reporting the final
// meter register and the begin/end transaction data. A zero transactionId is
// sent anyway; the central system decides what to do with it.
func (e *Engine) StopTransactionWithID(transactionID int, tagID string) error {
	if transactionID == 0 {
		e.logf("stopping transaction without a known transactionId")
	}

	meterStop := e.MeterValue()
	now := ocpp16.Now()
	reason := ocpp16.ReasonLocal

	req := ocpp16.StopTransactionRequest{
		MeterStop:     meterStop,
		Timestamp:     now,
		TransactionId: transactionID,
		Reason:        &reason,
		TransactionData: []ocpp16.MeterValue{
			{
				Timestamp: now,
				SampledValue: []ocpp16.SampledValue{{
					Value:   "0",
					Context: readingContextPtr(ocpp16.ReadingContextTransactionBegin),
					Unit:    unitPtr(ocpp16.UnitOfMeasureWh),
				}},
			},
			{
				Timestamp: now,
				SampledValue: []ocpp16.SampledValue{{
					Value:   strconv.Itoa(meterStop),
					Context: readingContextPtr(ocpp16.ReadingContextTransactionEnd),
					Unit:    unitPtr(ocpp16.UnitOfMeasureWh),
				}},
			},
		},
	}
	if tagID != "" {
		req.IdTag = ocpp16.StringPtr(tagID)
	}

	if err := e.sendCall(ocpp16.ActionStopTransaction, req); err != nil {
		return err
	}
	metrics.TransactionsStopped.Inc()

	if err := e.sm.Transition(StatusAuthorized, "transaction stopped"); err != nil {
		e.logf("%v", err)
	}
	// The server usually queries the connector after a stop; Finishing is
	// set locally without a StatusNotification.
	e.conns.SetStatus(e.transactionConnector(), ocpp16.ChargePointStatusFinishing, false)
	return nil
}

// SendMeterValue reports the current meter register for the connector.
func (e *Engine) SendMeterValue(connectorID int) error {
	req := ocpp16.MeterValuesRequest{
		ConnectorId: connectorID,
		MeterValue: []ocpp16.MeterValue{{
			Timestamp: ocpp16.Now(),
			SampledValue: []ocpp16.SampledValue{{
				Value:     strconv.Itoa(e.MeterValue()),
				Context:   readingContextPtr(ocpp16.ReadingContextSamplePeriodic),
				Format:    valueFormatPtr(ocpp16.ValueFormatRaw),
				Measurand: measurandPtr(ocpp16.MeasurandEnergyActiveImportRegister),
				Location:  locationPtr(ocpp16.LocationOutlet),
				Unit:      unitPtr(ocpp16.UnitOfMeasureWh),
			}},
		}},
	}
	if id := e.TransactionID(); id != 0 {
		req.TransactionId = ocpp16.IntPtr(id)
	}
	return e.sendCall(ocpp16.ActionMeterValues, req)
}

// sendStatusNotification reports one connector status to the central system.
func (e *Engine) sendStatusNotification(connectorID int, status ocpp16.ChargePointStatus) error {
	now := ocpp16.Now()
	req := ocpp16.StatusNotificationRequest{
		ConnectorId:     connectorID,
		ErrorCode:       ocpp16.ChargePointErrorCodeNoError,
		Info:            ocpp16.StringPtr(""),
		Status:          status,
		Timestamp:       &now,
		VendorId:        ocpp16.StringPtr(""),
		VendorErrorCode: ocpp16.StringPtr(""),
	}
	return e.sendCall(ocpp16.ActionStatusNotification, req)
}

// SendDataTransfer sends a vendor-specific DataTransfer CALL.
func (e *Engine) SendDataTransfer(vendorID, messageID string, data interface{}) error {
	req := ocpp16.DataTransferRequest{VendorId: vendorID, Data: data}
	if messageID != "" {
		req.MessageId = ocpp16.StringPtr(messageID)
	}
	return e.sendCall(ocpp16.ActionDataTransfer, req)
}

// handleCallResult binds a CALLRESULT payload through the per-action type
// registry and routes it to the handler for the action the uniqueId was
// registered under.
func (e *Engine) handleCallResult(action ocpp16.Action, frame *serialization.Frame) {
	target := e.ser.CreatePayloadInstance(action, false)
	if target == nil {
		e.logf("unhandled CALLRESULT for %s", action)
		return
	}
	if err := e.ser.DeserializePayload(frame.Payload, target); err != nil {
		e.logf("bad %s response: %v", action, err)
		return
	}

	switch resp := target.(type) {
	case *ocpp16.BootNotificationResponse:
		e.handleBootNotificationResult(resp)
	case *ocpp16.HeartbeatResponse:
		e.logf("heartbeat acknowledged, server time %s", resp.CurrentTime.Format(time.RFC3339))
	case *ocpp16.AuthorizeResponse:
		e.handleAuthorizeResult(resp)
	case *ocpp16.StartTransactionResponse:
		e.handleStartTransactionResult(resp)
	case *ocpp16.StopTransactionResponse:
		e.handleStopTransactionResult(resp)
	case *ocpp16.MeterValuesResponse:
		e.logf("MeterValues acknowledged")
	case *ocpp16.StatusNotificationResponse:
		e.logf("StatusNotification acknowledged")
	case *ocpp16.DataTransferResponse:
		e.logf("DataTransfer %s", resp.Status)
	default:
		e.logf("unhandled CALLRESULT for %s", action)
	}
}

func (e *Engine) handleBootNotificationResult(resp *ocpp16.BootNotificationResponse) {
	if resp.Status != ocpp16.RegistrationStatusAccepted {
		e.logf("registration %s, closing connection", resp.Status)
		e.Disconnect()
		return
	}

	interval := time.Duration(resp.Interval) * time.Second
	e.hb.Arm(interval)
	e.logf("registration accepted, heartbeat every %s", interval)
	if err := e.sm.Transition(StatusConnected, "registration accepted"); err != nil {
		e.logf("%v", err)
	}
}

func (e *Engine) handleAuthorizeResult(resp *ocpp16.AuthorizeResponse) {
	e.auth.Put(e.durable.Get(keyTag, e.cfg.DefaultIDTag), resp.IdTagInfo)

	if resp.IdTagInfo.Status == ocpp16.AuthorizationStatusInvalid {
		e.logf("authorization invalid")
		return
	}
	e.logf("authorization %s", resp.IdTagInfo.Status)
	if err := e.sm.Transition(StatusAuthorized, "tag authorized"); err != nil {
		e.logf("%v", err)
	}
}

func (e *Engine) handleStartTransactionResult(resp *ocpp16.StartTransactionResponse) {
	e.auth.Put(e.durable.Get(keyTag, e.cfg.DefaultIDTag), resp.IdTagInfo)

	// A missing or zero transactionId never overwrites the stored one.
	if resp.TransactionId == 0 {
		e.logf("StartTransaction accepted without a transactionId, keeping %d", e.TransactionID())
		return
	}
	e.session.Put(keyTransactionID, strconv.Itoa(resp.TransactionId))
	e.logf("transaction %d started", resp.TransactionId)
}

func (e *Engine) handleStopTransactionResult(_ *ocpp16.StopTransactionResponse) {
	e.conns.SetStatus(e.transactionConnector(), ocpp16.ChargePointStatusAvailable, false)
	e.logf("transaction stop acknowledged")
}

func readingContextPtr(c ocpp16.ReadingContext) *ocpp16.ReadingContext { return &c }
func valueFormatPtr(f ocpp16.ValueFormat) *ocpp16.ValueFormat          { return &f }
func measurandPtr(m ocpp16.Measurand) *ocpp16.Measurand                { return &m }
func locationPtr(l ocpp16.Location) *ocpp16.Location                   { return &l }
func unitPtr(u ocpp16.UnitOfMeasure) *ocpp16.UnitOfMeasure             { return &u }
