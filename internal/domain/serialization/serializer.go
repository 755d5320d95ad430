package serialization

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/charging-platform/charge-point-client/internal/domain/ocpp16"
)

// ErrUnknownMessageType marks a well-formed array whose leading type tag is
// not 2, 3 or 4. Callers drop such frames instead of treating them as
// protocol violations.
var ErrUnknownMessageType = errors.New("unknown message type")

// Serializer encodes and decodes the OCPP-J wire framing: top-level compact
// JSON arrays tagged [2,id,action,payload], [3,id,payload] and
// [4,id,errorCode,errorDescription,errorDetails].
type Serializer struct{}

// SerializationError describes a framing failure.
type SerializationError struct {
	Operation string
	Message   string
	Cause     error
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e SerializationError) Unwrap() error {
	return e.Cause
}

// Error implements the error interface.
func (e SerializationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s failed: %s (caused by: %v)", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// WireError is the decoded body of a CALLERROR frame.
type WireError struct {
	Code        string      `json:"errorCode"`
	Description string      `json:"errorDescription"`
	Details     interface{} `json:"errorDetails,omitempty"`
}

// Frame is one decoded OCPP-J envelope. Payload stays raw so the caller can
// bind it to the typed struct for the correlated action.
type Frame struct {
	Type    ocpp16.MessageType
	ID      string
	Action  ocpp16.Action
	Payload json.RawMessage
	Error   *WireError
}

// NewSerializer returns a ready Serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// SerializeCall encodes a CALL envelope.
func (s *Serializer) SerializeCall(messageID string, action ocpp16.Action, payload interface{}) ([]byte, error) {
	return s.marshalEnvelope("SerializeCall", []interface{}{int(ocpp16.Call), messageID, action, payload})
}

// SerializeCallResult encodes a CALLRESULT envelope.
func (s *Serializer) SerializeCallResult(messageID string, payload interface{}) ([]byte, error) {
	return s.marshalEnvelope("SerializeCallResult", []interface{}{int(ocpp16.CallResult), messageID, payload})
}

// SerializeCallError encodes a CALLERROR envelope. Details may be nil; the
// wire element is then an empty object, which some central systems require.
func (s *Serializer) SerializeCallError(messageID, code, description string, details interface{}) ([]byte, error) {
	if details == nil {
		details = map[string]interface{}{}
	}
	return s.marshalEnvelope("SerializeCallError", []interface{}{int(ocpp16.CallError), messageID, code, description, details})
}

func (s *Serializer) marshalEnvelope(op string, envelope []interface{}) ([]byte, error) {
	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, SerializationError{Operation: op, Message: "failed to marshal JSON envelope", Cause: err}
	}
	return data, nil
}

// Deserialize decodes a single inbound frame. The element count is strict:
// 4 for CALL, 3 for CALLRESULT, 4 or 5 for CALLERROR.
func (s *Serializer) Deserialize(data []byte) (*Frame, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, SerializationError{Operation: "Deserialize", Message: "failed to unmarshal JSON array", Cause: err}
	}
	if len(elements) < 3 {
		return nil, SerializationError{Operation: "Deserialize", Message: "message array too short"}
	}

	var msgType int
	if err := json.Unmarshal(elements[0], &msgType); err != nil {
		return nil, SerializationError{Operation: "Deserialize", Message: "failed to parse message type", Cause: err}
	}
	var msgID string
	if err := json.Unmarshal(elements[1], &msgID); err != nil {
		return nil, SerializationError{Operation: "Deserialize", Message: "failed to parse message id", Cause: err}
	}

	switch ocpp16.MessageType(msgType) {
	case ocpp16.Call:
		if len(elements) != 4 {
			return nil, SerializationError{Operation: "Deserialize", Message: "Call message must have exactly 4 elements"}
		}
		var action string
		if err := json.Unmarshal(elements[2], &action); err != nil {
			return nil, SerializationError{Operation: "Deserialize", Message: "failed to parse action", Cause: err}
		}
		return &Frame{Type: ocpp16.Call, ID: msgID, Action: ocpp16.Action(action), Payload: elements[3]}, nil

	case ocpp16.CallResult:
		if len(elements) != 3 {
			return nil, SerializationError{Operation: "Deserialize", Message: "CallResult message must have exactly 3 elements"}
		}
		return &Frame{Type: ocpp16.CallResult, ID: msgID, Payload: elements[2]}, nil

	case ocpp16.CallError:
		if len(elements) < 4 || len(elements) > 5 {
			return nil, SerializationError{Operation: "Deserialize", Message: "CallError message must have 4 or 5 elements"}
		}
		wireErr := &WireError{}
		if err := json.Unmarshal(elements[2], &wireErr.Code); err != nil {
			return nil, SerializationError{Operation: "Deserialize", Message: "failed to parse error code", Cause: err}
		}
		if err := json.Unmarshal(elements[3], &wireErr.Description); err != nil {
			return nil, SerializationError{Operation: "Deserialize", Message: "failed to parse error description", Cause: err}
		}
		if len(elements) == 5 {
			if err := json.Unmarshal(elements[4], &wireErr.Details); err != nil {
				return nil, SerializationError{Operation: "Deserialize", Message: "failed to parse error details", Cause: err}
			}
		}
		return &Frame{Type: ocpp16.CallError, ID: msgID, Error: wireErr}, nil

	default:
		return nil, SerializationError{Operation: "Deserialize", Message: fmt.Sprintf("invalid message type: %d", msgType), Cause: ErrUnknownMessageType}
	}
}

// DeserializePayload binds a raw payload to the given typed struct.
func (s *Serializer) DeserializePayload(data []byte, target interface{}) error {
	if err := json.Unmarshal(data, target); err != nil {
		return SerializationError{Operation: "DeserializePayload", Message: "failed to unmarshal payload", Cause: err}
	}
	return nil
}

// payloadTypes maps each action to its request and response payload types.
// The request type is what the originator sends; the response type is what
// the replying side returns, regardless of which side originates.
var payloadTypes = map[ocpp16.Action]map[bool]reflect.Type{
	ocpp16.ActionBootNotification: {
		true:  reflect.TypeOf(ocpp16.BootNotificationRequest{}),
		false: reflect.TypeOf(ocpp16.BootNotificationResponse{}),
	},
	ocpp16.ActionHeartbeat: {
		true:  reflect.TypeOf(ocpp16.HeartbeatRequest{}),
		false: reflect.TypeOf(ocpp16.HeartbeatResponse{}),
	},
	ocpp16.ActionStatusNotification: {
		true:  reflect.TypeOf(ocpp16.StatusNotificationRequest{}),
		false: reflect.TypeOf(ocpp16.StatusNotificationResponse{}),
	},
	ocpp16.ActionAuthorize: {
		true:  reflect.TypeOf(ocpp16.AuthorizeRequest{}),
		false: reflect.TypeOf(ocpp16.AuthorizeResponse{}),
	},
	ocpp16.ActionStartTransaction: {
		true:  reflect.TypeOf(ocpp16.StartTransactionRequest{}),
		false: reflect.TypeOf(ocpp16.StartTransactionResponse{}),
	},
	ocpp16.ActionStopTransaction: {
		true:  reflect.TypeOf(ocpp16.StopTransactionRequest{}),
		false: reflect.TypeOf(ocpp16.StopTransactionResponse{}),
	},
	ocpp16.ActionMeterValues: {
		true:  reflect.TypeOf(ocpp16.MeterValuesRequest{}),
		false: reflect.TypeOf(ocpp16.MeterValuesResponse{}),
	},
	ocpp16.ActionDataTransfer: {
		true:  reflect.TypeOf(ocpp16.DataTransferRequest{}),
		false: reflect.TypeOf(ocpp16.DataTransferResponse{}),
	},
	ocpp16.ActionReset: {
		true:  reflect.TypeOf(ocpp16.ResetRequest{}),
		false: reflect.TypeOf(ocpp16.ResetResponse{}),
	},
	ocpp16.ActionChangeAvailability: {
		true:  reflect.TypeOf(ocpp16.ChangeAvailabilityRequest{}),
		false: reflect.TypeOf(ocpp16.ChangeAvailabilityResponse{}),
	},
	ocpp16.ActionGetConfiguration: {
		true:  reflect.TypeOf(ocpp16.GetConfigurationRequest{}),
		false: reflect.TypeOf(ocpp16.GetConfigurationResponse{}),
	},
	ocpp16.ActionChangeConfiguration: {
		true:  reflect.TypeOf(ocpp16.ChangeConfigurationRequest{}),
		false: reflect.TypeOf(ocpp16.ChangeConfigurationResponse{}),
	},
	ocpp16.ActionClearCache: {
		true:  reflect.TypeOf(ocpp16.ClearCacheRequest{}),
		false: reflect.TypeOf(ocpp16.ClearCacheResponse{}),
	},
	ocpp16.ActionUnlockConnector: {
		true:  reflect.TypeOf(ocpp16.UnlockConnectorRequest{}),
		false: reflect.TypeOf(ocpp16.UnlockConnectorResponse{}),
	},
	ocpp16.ActionRemoteStartTransaction: {
		true:  reflect.TypeOf(ocpp16.RemoteStartTransactionRequest{}),
		false: reflect.TypeOf(ocpp16.RemoteStartTransactionResponse{}),
	},
	ocpp16.ActionRemoteStopTransaction: {
		true:  reflect.TypeOf(ocpp16.RemoteStopTransactionRequest{}),
		false: reflect.TypeOf(ocpp16.RemoteStopTransactionResponse{}),
	},
	ocpp16.ActionTriggerMessage: {
		true:  reflect.TypeOf(ocpp16.TriggerMessageRequest{}),
		false: reflect.TypeOf(ocpp16.TriggerMessageResponse{}),
	},
}

// CreatePayloadInstance returns a pointer to a zero payload struct for the
// action, or nil when the action is unknown.
func (s *Serializer) CreatePayloadInstance(action ocpp16.Action, isRequest bool) interface{} {
	actionTypes, ok := payloadTypes[action]
	if !ok {
		return nil
	}
	payloadType, ok := actionTypes[isRequest]
	if !ok {
		return nil
	}
	return reflect.New(payloadType).Interface()
}
