package citationlab

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

// message is an action message from the editing surface (internal
// protocol).
type message struct {
	Action string                 `json:"action"`
	Data   map[string]interface{} `json:"data"`
}

// ActionData wraps action data with utilities for binding and validation.
type ActionData struct {
	raw   map[string]interface{}
	bytes []byte // cached JSON for efficient binding
}

// newActionData creates ActionData from a map (internal use only).
func newActionData(data map[string]interface{}) *ActionData {
	return &ActionData{raw: data}
}

// Bind unmarshals the data into a struct.
func (a *ActionData) Bind(v interface{}) error {
	if a.bytes == nil {
		var err error
		a.bytes, err = json.Marshal(a.raw)
		if err != nil {
			return fmt.Errorf("failed to marshal data: %w", err)
		}
	}

	return json.Unmarshal(a.bytes, v)
}

// BindAndValidate binds data to a struct and validates it in one step.
func (a *ActionData) BindAndValidate(v interface{}, validate *validator.Validate) error {
	if err := a.Bind(v); err != nil {
		return err
	}

	if err := validate.Struct(v); err != nil {
		return ValidationToMultiError(err)
	}

	return nil
}

// Raw returns the underlying map for direct access.
func (a *ActionData) Raw() map[string]interface{} {
	return a.raw
}

// GetString extracts a string value.
func (a *ActionData) GetString(key string) string {
	if v, ok := a.raw[key].(string); ok {
		return v
	}
	return ""
}

// GetIndex extracts a structural index. JSON numbers arrive as float64;
// a fractional value is rejected rather than truncated, because the
// builder's range validation depends on true integers.
func (a *ActionData) GetIndex(key string) (int, error) {
	v, ok := a.raw[key].(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s is missing or not a number", ErrNotInteger, key)
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: %s = %v", ErrNotInteger, key, v)
	}
	return int(v), nil
}

// GetInt extracts an int value (JSON numbers are float64).
func (a *ActionData) GetInt(key string) int {
	if v, ok := a.raw[key].(float64); ok {
		return int(v)
	}
	return 0
}

// GetBool extracts a bool value.
func (a *ActionData) GetBool(key string) bool {
	if v, ok := a.raw[key].(bool); ok {
		return v
	}
	return false
}

// Has checks if a key exists.
func (a *ActionData) Has(key string) bool {
	_, exists := a.raw[key]
	return exists
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MultiError is a collection of field errors.
type MultiError []FieldError

func (m MultiError) Error() string {
	if len(m) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range m {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ValidationToMultiError converts go-playground/validator errors to a
// MultiError.
func ValidationToMultiError(err error) MultiError {
	var fieldErrors MultiError

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fieldErrors
	}

	for _, e := range validationErrs {
		fieldName := strings.ToLower(e.Field())

		var message string
		switch e.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", e.Field())
		case "gte":
			message = fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
		case "lte":
			message = fmt.Sprintf("%s must be at most %s", e.Field(), e.Param())
		default:
			message = fmt.Sprintf("%s is invalid", e.Field())
		}

		fieldErrors = append(fieldErrors, FieldError{
			Field:   fieldName,
			Message: message,
		})
	}

	return fieldErrors
}

// parseActionFromWebSocket parses an action message from websocket bytes.
func parseActionFromWebSocket(data []byte) (message, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return message{}, fmt.Errorf("failed to parse action: %w", err)
	}

	if msg.Data == nil {
		msg.Data = make(map[string]interface{})
	}

	return msg, nil
}
