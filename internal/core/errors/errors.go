package errors

const (
	HttpInternalError       = "internal_error"
	HttpInvalidPeriodError  = "invalid_period"
	HttpRefreshInFlight     = "refresh_in_flight"
	HttpUpstreamUnavailable = "upstream_unavailable"
)

// ErrorResponse is the error response body for reporting API errors.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
