package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/charging-platform/charge-point-client/internal/domain/ocpp16"
)

// Validator checks OCPP payload structs and envelope fields before they hit
// the wire or the handlers.
type Validator struct {
	validate *validator.Validate
}

// ValidationError is a single field failure.
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return e.Message
}

// ValidationErrors aggregates field failures for one payload.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	var messages []string
	for _, err := range e {
		messages = append(messages, err.Message)
	}
	return strings.Join(messages, "; ")
}

// NewValidator returns a Validator with the OCPP custom rules registered.
func NewValidator() *Validator {
	validate := validator.New()
	validate.RegisterValidation("ocpp_datetime", validateOCPPDateTime)
	validate.RegisterValidation("ocpp_id_token", validateOCPPIdToken)
	validate.RegisterValidation("ocpp_meter_value", validateOCPPMeterValue)
	return &Validator{validate: validate}
}

// ValidateStruct runs the tag-driven validation over a payload struct.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors ValidationErrors
	if fieldErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range fieldErrors {
			validationErrors = append(validationErrors, ValidationError{
				Field:   fe.Field(),
				Tag:     fe.Tag(),
				Value:   fmt.Sprintf("%v", fe.Value()),
				Message: errorMessage(fe),
			})
		}
	}
	return validationErrors
}

// ValidateEnvelope checks the frame-level fields of an inbound message.
func (v *Validator) ValidateEnvelope(messageType ocpp16.MessageType, messageID string, action ocpp16.Action) error {
	if messageType < ocpp16.Call || messageType > ocpp16.CallError {
		return ValidationError{
			Field:   "messageType",
			Tag:     "range",
			Value:   strconv.Itoa(int(messageType)),
			Message: "message type must be 2 (Call), 3 (CallResult), or 4 (CallError)",
		}
	}
	if messageID == "" {
		return ValidationError{
			Field:   "messageId",
			Tag:     "required",
			Message: "message id is required",
		}
	}
	if len(messageID) > 36 {
		return ValidationError{
			Field:   "messageId",
			Tag:     "max",
			Value:   messageID,
			Message: "message id must not exceed 36 characters",
		}
	}
	if messageType == ocpp16.Call && action == "" {
		return ValidationError{
			Field:   "action",
			Tag:     "required",
			Message: "action is required for Call messages",
		}
	}
	return nil
}

// ValidateChargePointID checks the identifier appended to the WebSocket URL.
func (v *Validator) ValidateChargePointID(chargePointID string) error {
	if chargePointID == "" {
		return ValidationError{
			Field:   "chargePointId",
			Tag:     "required",
			Message: "charge point id is required",
		}
	}
	if len(chargePointID) > 20 {
		return ValidationError{
			Field:   "chargePointId",
			Tag:     "max",
			Value:   chargePointID,
			Message: "charge point id must not exceed 20 characters",
		}
	}
	matched, _ := regexp.MatchString(`^[a-zA-Z0-9\-]+$`, chargePointID)
	if !matched {
		return ValidationError{
			Field:   "chargePointId",
			Tag:     "format",
			Value:   chargePointID,
			Message: "charge point id can only contain alphanumeric characters and hyphens",
		}
	}
	return nil
}

func validateOCPPDateTime(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := time.Parse(time.RFC3339, value)
	return err == nil
}

func validateOCPPIdToken(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	if len(value) > 20 {
		return false
	}
	matched, _ := regexp.MatchString(`^[a-zA-Z0-9]+$`, value)
	return matched
}

func validateOCPPMeterValue(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return false
	}
	_, err := strconv.ParseFloat(value, 64)
	return err == nil
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", fe.Field())
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("field '%s' must not exceed %s", fe.Field(), fe.Param())
	case "ocpp_datetime":
		return fmt.Sprintf("field '%s' must be a valid RFC3339 datetime", fe.Field())
	case "ocpp_id_token":
		return fmt.Sprintf("field '%s' must be a valid id token (max 20 alphanumeric characters)", fe.Field())
	case "ocpp_meter_value":
		return fmt.Sprintf("field '%s' must be a valid numeric meter value", fe.Field())
	default:
		return fmt.Sprintf("field '%s' failed validation for tag '%s'", fe.Field(), fe.Tag())
	}
}
