package chargepoint

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charging-platform/charge-point-client/internal/domain/ocpp16"
	"github.com/charging-platform/charge-point-client/internal/domain/serialization"
	"github.com/charging-platform/charge-point-client/internal/metrics"
)

// CALLERROR codes sent back to the central system.
const (
	errorCodeNotImplemented     = "NotImplemented"
	errorCodeFormationViolation = "FormationViolation"
)

// sendCallResult replies to an inbound CALL.
func (e *Engine) sendCallResult(id string, action ocpp16.Action, payload interface{}) {
	data, err := e.ser.SerializeCallResult(id, payload)
	if err != nil {
		e.logf("failed to encode %s reply: %v", action, err)
		return
	}
	if err := e.writeMessage(data); err != nil {
		e.logf("failed to send %s reply: %v", action, err)
		return
	}
	metrics.FramesSent.WithLabelValues("call_result", string(action)).Inc()
}

// sendCallError rejects an inbound CALL.
func (e *Engine) sendCallError(id string, action ocpp16.Action, code, description string) {
	data, err := e.ser.SerializeCallError(id, code, description, nil)
	if err != nil {
		e.logf("failed to encode CALLERROR for %s: %v", action, err)
		return
	}
	if err := e.writeMessage(data); err != nil {
		e.logf("failed to send CALLERROR for %s: %v", action, err)
		return
	}
	metrics.FramesSent.WithLabelValues("call_error", string(action)).Inc()
}

// bindRequest decodes an inbound CALL payload into target, replying with a
// CALLERROR on failure.
func (e *Engine) bindRequest(frame *serialization.Frame, target interface{}) bool {
	if err := e.ser.DeserializePayload(frame.Payload, target); err != nil {
		metrics.ProtocolErrors.Inc()
		e.logf("bad %s payload: %v", frame.Action, err)
		e.sendCallError(frame.ID, frame.Action, errorCodeFormationViolation, fmt.Sprintf("malformed %s payload", frame.Action))
		return false
	}
	return true
}

// handleInboundCall dispatches one server-originated CALL. Every CALL gets
// exactly one CALLRESULT or CALLERROR; handler failures never close the
// socket.
func (e *Engine) handleInboundCall(frame *serialization.Frame) {
	e.logf("received %s", frame.Action)

	switch frame.Action {
	case ocpp16.ActionReset:
		e.handleReset(frame)
	case ocpp16.ActionRemoteStartTransaction:
		e.handleRemoteStart(frame)
	case ocpp16.ActionRemoteStopTransaction:
		e.handleRemoteStop(frame)
	case ocpp16.ActionTriggerMessage:
		e.handleTriggerMessage(frame)
	case ocpp16.ActionChangeAvailability:
		e.handleChangeAvailability(frame)
	case ocpp16.ActionUnlockConnector:
		e.handleUnlockConnector(frame)
	case ocpp16.ActionGetConfiguration:
		e.handleGetConfiguration(frame)
	case ocpp16.ActionChangeConfiguration:
		e.handleChangeConfiguration(frame)
	case ocpp16.ActionClearCache:
		e.handleClearCache(frame)
	case ocpp16.ActionDataTransfer:
		e.handleDataTransfer(frame)
	default:
		metrics.ProtocolErrors.Inc()
		e.sendCallError(frame.ID, frame.Action, errorCodeNotImplemented, fmt.Sprintf("action %s is not implemented", frame.Action))
	}
}

func (e *Engine) handleReset(frame *serialization.Frame) {
	var req ocpp16.ResetRequest
	if !e.bindRequest(frame, &req) {
		return
	}

	e.sendCallResult(frame.ID, frame.Action, ocpp16.ResetResponse{Status: ocpp16.ResetStatusAccepted})
	e.logf("%s reset requested, closing connection", req.Type)
	e.Disconnect()
}

func (e *Engine) handleRemoteStart(frame *serialization.Frame) {
	var req ocpp16.RemoteStartTransactionRequest
	if !e.bindRequest(frame, &req) {
		return
	}

	status := e.remoteResponseStatus()
	e.sendCallResult(frame.ID, frame.Action, ocpp16.RemoteStartTransactionResponse{Status: status})
	if status != ocpp16.RemoteStartStopStatusAccepted {
		e.logf("remote start for tag %s rejected", req.IdTag)
		return
	}

	connectorID := 1
	if req.ConnectorId != nil {
		connectorID = *req.ConnectorId
	}
	tagID := req.IdTag
	delay := e.cfg.RemoteStartDelay
	e.logf("remote start for tag %s on connector %d in %s", tagID, connectorID, delay)

	// The delay simulates plugging in the cable. AfterFunc keeps the read
	// loop free to process frames and heartbeats in the meantime.
	time.AfterFunc(delay, func() {
		if err := e.StartTransactionOn(tagID, connectorID, 0); err != nil {
			e.logf("remote start failed: %v", err)
		}
	})
}

func (e *Engine) handleRemoteStop(frame *serialization.Frame) {
	var req ocpp16.RemoteStopTransactionRequest
	if !e.bindRequest(frame, &req) {
		return
	}

	status := e.remoteResponseStatus()
	e.sendCallResult(frame.ID, frame.Action, ocpp16.RemoteStopTransactionResponse{Status: status})
	if status != ocpp16.RemoteStartStopStatusAccepted {
		e.logf("remote stop for transaction %d rejected", req.TransactionId)
		return
	}

	if err := e.StopTransactionWithID(req.TransactionId, ""); err != nil {
		e.logf("remote stop failed: %v", err)
	}
}

// remoteResponseStatus is the configured answer to remote start/stop
// requests; anything but "Rejected" accepts.
func (e *Engine) remoteResponseStatus() ocpp16.RemoteStartStopStatus {
	if e.cfg.RemoteStartStopResponse == string(ocpp16.RemoteStartStopStatusRejected) {
		return ocpp16.RemoteStartStopStatusRejected
	}
	return ocpp16.RemoteStartStopStatusAccepted
}

func (e *Engine) handleTriggerMessage(frame *serialization.Frame) {
	var req ocpp16.TriggerMessageRequest
	if !e.bindRequest(frame, &req) {
		return
	}

	// Accepted even for unrecognized triggers; the originate step below
	// degrades to a log line.
	e.sendCallResult(frame.ID, frame.Action, ocpp16.TriggerMessageResponse{Status: ocpp16.TriggerMessageStatusAccepted})

	connectorID := 0
	if req.ConnectorId != nil {
		connectorID = *req.ConnectorId
	}

	var err error
	switch req.RequestedMessage {
	case ocpp16.MessageTriggerBootNotification:
		err = e.sendBootNotification()
	case ocpp16.MessageTriggerHeartbeat:
		err = e.SendHeartbeat()
	case ocpp16.MessageTriggerMeterValues:
		err = e.SendMeterValue(connectorID)
	case ocpp16.MessageTriggerStatusNotification:
		err = e.sendStatusNotification(connectorID, e.conns.Status(connectorID))
	case ocpp16.MessageTriggerDiagnosticsStatusNotification,
		ocpp16.MessageTriggerFirmwareStatusNotification:
		e.logf("trigger %s ignored, no diagnostics or firmware upload in progress", req.RequestedMessage)
	default:
		e.logf("unknown trigger %s", req.RequestedMessage)
	}
	if err != nil {
		e.logf("trigger %s failed: %v", req.RequestedMessage, err)
	}
}

func (e *Engine) handleChangeAvailability(frame *serialization.Frame) {
	var req ocpp16.ChangeAvailabilityRequest
	if !e.bindRequest(frame, &req) {
		return
	}

	e.sendCallResult(frame.ID, frame.Action, ocpp16.ChangeAvailabilityResponse{Status: ocpp16.AvailabilityStatusAccepted})
	if err := e.conns.SetAvailability(req.ConnectorId, req.Type); err != nil {
		e.logf("availability change failed: %v", err)
		return
	}
	e.logf("connector %d is now %s", req.ConnectorId, req.Type)
}

func (e *Engine) handleUnlockConnector(frame *serialization.Frame) {
	var req ocpp16.UnlockConnectorRequest
	if !e.bindRequest(frame, &req) {
		return
	}

	// Legacy reply value, not part of the 1.6 UnlockStatus enum.
	e.sendCallResult(frame.ID, frame.Action, ocpp16.UnlockConnectorResponse{Status: ocpp16.UnlockStatus("Accepted")})
	e.logf("unlock requested for connector %d", req.ConnectorId)
}

func (e *Engine) handleGetConfiguration(frame *serialization.Frame) {
	var req ocpp16.GetConfigurationRequest
	if !e.bindRequest(frame, &req) {
		return
	}

	interval := e.durable.Get(keyCfgHeartbeatInterval, "900")
	resp := ocpp16.GetConfigurationResponse{
		ConfigurationKey: []ocpp16.KeyValue{{
			Key:      "HeartbeatInterval",
			Readonly: false,
			Value:    &interval,
		}},
		UnknownKey: []string{},
	}
	e.sendCallResult(frame.ID, frame.Action, resp)
}

func (e *Engine) handleChangeConfiguration(frame *serialization.Frame) {
	var req ocpp16.ChangeConfigurationRequest
	if !e.bindRequest(frame, &req) {
		return
	}

	if req.Key != "HeartbeatInterval" {
		e.sendCallResult(frame.ID, frame.Action, ocpp16.ChangeConfigurationResponse{Status: ocpp16.ConfigurationStatusNotSupported})
		return
	}

	seconds, err := strconv.Atoi(req.Value)
	if err != nil || seconds < 0 {
		e.sendCallResult(frame.ID, frame.Action, ocpp16.ChangeConfigurationResponse{Status: ocpp16.ConfigurationStatusRejected})
		return
	}

	if err := e.durable.Put(keyCfgHeartbeatInterval, req.Value); err != nil {
		e.logf("failed to persist HeartbeatInterval: %v", err)
	}
	if e.hb.Interval() > 0 {
		e.hb.Arm(time.Duration(seconds) * time.Second)
	}
	e.sendCallResult(frame.ID, frame.Action, ocpp16.ChangeConfigurationResponse{Status: ocpp16.ConfigurationStatusAccepted})
	e.logf("HeartbeatInterval changed to %ds", seconds)
}

func (e *Engine) handleClearCache(frame *serialization.Frame) {
	var req ocpp16.ClearCacheRequest
	if !e.bindRequest(frame, &req) {
		return
	}
	n := e.auth.Clear()
	e.logf("authorization cache cleared, %d entries dropped", n)
	e.sendCallResult(frame.ID, frame.Action, ocpp16.ClearCacheResponse{Status: ocpp16.ClearCacheStatusAccepted})
}

func (e *Engine) handleDataTransfer(frame *serialization.Frame) {
	var req ocpp16.DataTransferRequest
	if !e.bindRequest(frame, &req) {
		return
	}
	e.logf("data transfer from vendor %s", req.VendorId)
	e.sendCallResult(frame.ID, frame.Action, ocpp16.DataTransferResponse{Status: ocpp16.DataTransferStatusAccepted})
}
