package errors

import "fmt"

// Error codes
const (
	CodeStartPageError     = "STARTPAGE_ERROR"
	CodeAPIError           = "API_ERROR"
	CodeValidation         = "VALIDATION_ERROR"
	CodeConfig             = "CONFIG_ERROR"
	CodeBroadcast          = "BROADCAST_ERROR"
	CodeLookupInconclusive = "LOOKUP_INCONCLUSIVE"
)

type StartPageError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *StartPageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *StartPageError) Unwrap() error {
	return e.Cause
}

func NewStartPageError(message, code string, statusCode int, context map[string]any) *StartPageError {
	return &StartPageError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Context:    context,
	}
}

func (e *StartPageError) WithCause(cause error) *StartPageError {
	e.Cause = cause
	return e
}

type APIError struct {
	*StartPageError
}

func NewAPIError(message string, statusCode int, context map[string]any) *APIError {
	return &APIError{
		StartPageError: &StartPageError{
			Message:    message,
			Code:       CodeAPIError,
			StatusCode: statusCode,
			Context:    context,
		},
	}
}

// WithCause keeps the *APIError type so callers can still match it with errors.As.
func (e *APIError) WithCause(cause error) *APIError {
	e.Cause = cause
	return e
}

type ValidationError struct {
	*StartPageError
	Field string
	Value interface{}
}

func NewValidationError(message, field string, value interface{}) *ValidationError {
	return &ValidationError{
		StartPageError: &StartPageError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: 400,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

type ConfigError struct {
	*StartPageError
	Key string
}

func NewConfigError(message, key string, cause error) *ConfigError {
	return &ConfigError{
		StartPageError: &StartPageError{
			Message:    message,
			Code:       CodeConfig,
			StatusCode: 500,
			Context: map[string]any{
				"key": key,
			},
			Cause: cause,
		},
		Key: key,
	}
}

type BroadcastError struct {
	*StartPageError
	Operation string
	Channel   string
}

func NewBroadcastError(message, operation, channel string, cause error) *BroadcastError {
	return &BroadcastError{
		StartPageError: &StartPageError{
			Message:    message,
			Code:       CodeBroadcast,
			StatusCode: 500,
			Context: map[string]any{
				"operation": operation,
				"channel":   channel,
			},
			Cause: cause,
		},
		Operation: operation,
		Channel:   channel,
	}
}

// Reasons a pipeline lookup could not produce a confident match.
const (
	ReasonFailed    = "failed"
	ReasonEmpty     = "empty"
	ReasonAmbiguous = "ambiguous"
	ReasonMissingID = "missing_id"
)

// LookupInconclusiveError is raised inside the resolver and never returned to callers.
type LookupInconclusiveError struct {
	*StartPageError
	Name    string
	Reason  string
	Matches int
}

func NewLookupInconclusiveError(name, reason string, matches int, cause error) *LookupInconclusiveError {
	return &LookupInconclusiveError{
		StartPageError: &StartPageError{
			Message:    fmt.Sprintf("lookup for %q inconclusive (%s)", name, reason),
			Code:       CodeLookupInconclusive,
			StatusCode: 404,
			Context: map[string]any{
				"name":    name,
				"reason":  reason,
				"matches": matches,
			},
			Cause: cause,
		},
		Name:    name,
		Reason:  reason,
		Matches: matches,
	}
}
