package model

// ErrorKind classifies every failure the prediction flow can surface.
// Field-level kinds are recovered locally and reported per field; network
// kinds end up on a failure PredictionResponse. No kind is ever allowed to
// escape as a panic or fatal error.
type ErrorKind string

const (
	ErrRequiredFieldMissing ErrorKind = "required_field_missing"
	ErrNotANumber           ErrorKind = "not_a_number"
	ErrOutOfRange           ErrorKind = "out_of_range"
	ErrNetworkUnreachable   ErrorKind = "network_unreachable"
	ErrTimeout              ErrorKind = "timeout"
	ErrServerError          ErrorKind = "server_error"
	ErrRateLimited          ErrorKind = "rate_limited"
	ErrClientError          ErrorKind = "client_error"
	ErrMalformedResponse    ErrorKind = "malformed_response"
	ErrValidationFailed     ErrorKind = "validation_failed"
	ErrBusy                 ErrorKind = "busy"
	ErrUnknown              ErrorKind = "unknown"
)

// Retryable reports whether a failure of this kind is transient and worth
// retrying (timeouts, unreachable hosts, 5xx, 429).
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrNetworkUnreachable, ErrTimeout, ErrServerError, ErrRateLimited:
		return true
	default:
		return false
	}
}
