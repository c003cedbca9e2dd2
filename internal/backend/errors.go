package backend

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates nothing is listening at the base URL
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeHTTP indicates a non-2xx status without a usable body
	ErrTypeHTTP
	// ErrTypeInvalidJSON indicates the response body is not JSON
	ErrTypeInvalidJSON
	// ErrTypeServer indicates the service reported a failure (error field or non-2xx)
	ErrTypeServer
	// ErrTypeEmptyResult indicates a well-formed but empty response
	ErrTypeEmptyResult
	// ErrTypeSensor indicates the sensor gateway answered with status "error"
	ErrTypeSensor
	// ErrTypeValidation indicates an invalid request built on our side
	ErrTypeValidation
)

// Messages shown to the user for response-level failures.
const (
	MsgInvalidJSON = "Server returned invalid JSON. Check backend logs."
	MsgServerError = "Server error occurred"
	MsgEmptyResult = "No recommendation received. Please try again."
)

// NetworkErrorSubtype provides more specific network error classification
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorHostUnreachable
	NetworkErrorNetworkUnreachable
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeInvalidJSON:
		return "Invalid JSON"
	case ErrTypeServer:
		return "Server Error"
	case ErrTypeEmptyResult:
		return "Empty Result"
	case ErrTypeSensor:
		return "Sensor Error"
	case ErrTypeValidation:
		return "Validation Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is returned by every Client method.
type Error struct {
	Type           ErrorType
	Message        string
	StatusCode     int
	Err            error
	NetworkSubtype NetworkErrorSubtype
	Endpoint       string
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes a transport error and returns a typed Error
func ClassifyNetworkError(err error, endpoint string) *Error {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) {
		return &Error{Type: ErrTypeTimeout, Message: "Request timed out", Err: err, Endpoint: endpoint}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{
			Type:     ErrTypeDNS,
			Message:  fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:      err,
			Endpoint: endpoint,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return &Error{Type: ErrTypeConnectionRefused, Message: "Connection refused", Err: err, Endpoint: endpoint}
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return &Error{Type: ErrTypeNetwork, Message: "Host unreachable", Err: err, NetworkSubtype: NetworkErrorHostUnreachable, Endpoint: endpoint}
		case errors.Is(opErr.Err, syscall.ENETUNREACH):
			return &Error{Type: ErrTypeNetwork, Message: "Network unreachable", Err: err, NetworkSubtype: NetworkErrorNetworkUnreachable, Endpoint: endpoint}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != err {
		return ClassifyNetworkError(urlErr.Err, endpoint)
	}

	return &Error{Type: ErrTypeNetwork, Message: "Network error occurred", Err: err, Endpoint: endpoint}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, err error) *Error {
	classified := ClassifyNetworkError(err, "")
	if classified == nil {
		return &Error{Type: ErrTypeNetwork, Message: message}
	}
	classified.Message = message
	return classified
}

// NewHTTPError creates an HTTP-level error
func NewHTTPError(statusCode int, message string) *Error {
	return &Error{Type: ErrTypeHTTP, Message: message, StatusCode: statusCode}
}

// NewInvalidJSONError creates the error for an unparseable response body
func NewInvalidJSONError(statusCode int, err error) *Error {
	return &Error{Type: ErrTypeInvalidJSON, Message: MsgInvalidJSON, StatusCode: statusCode, Err: err}
}

// NewServerError creates the error for a service-reported failure. An empty
// message becomes "Server error occurred".
func NewServerError(statusCode int, message string) *Error {
	if strings.TrimSpace(message) == "" {
		message = MsgServerError
	}
	return &Error{Type: ErrTypeServer, Message: message, StatusCode: statusCode}
}

// NewEmptyResultError creates the error for an empty response object
func NewEmptyResultError() *Error {
	return &Error{Type: ErrTypeEmptyResult, Message: MsgEmptyResult}
}

// NewSensorError creates the error for a gateway status "error" answer
func NewSensorError(message string) *Error {
	return &Error{Type: ErrTypeSensor, Message: message}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *Error {
	return &Error{Type: ErrTypeValidation, Message: message}
}

func typeOf(err error) (ErrorType, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Type, true
	}
	return 0, false
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS)
func IsNetworkError(err error) bool {
	t, ok := typeOf(err)
	return ok && (t == ErrTypeNetwork || t == ErrTypeTimeout || t == ErrTypeConnectionRefused || t == ErrTypeDNS)
}

// IsInvalidJSON checks if an error is an invalid JSON error
func IsInvalidJSON(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeInvalidJSON
}

// IsServerError checks if an error is a service-reported failure
func IsServerError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeServer
}

// IsEmptyResult checks if an error is an empty result
func IsEmptyResult(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeEmptyResult
}

// IsRetryable reports whether repeating the same request may succeed.
// Sensor polling uses it; predictions are never retried.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Type {
	case ErrTypeNetwork, ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeSensor:
		return true
	case ErrTypeHTTP, ErrTypeServer:
		return e.StatusCode >= 500
	default:
		return false
	}
}

// UserMessage is the text shown in the error panel.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}

	switch e.Type {
	case ErrTypeInvalidJSON, ErrTypeServer, ErrTypeEmptyResult, ErrTypeSensor, ErrTypeValidation:
		return e.Message
	case ErrTypeHTTP:
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	case ErrTypeTimeout:
		return "Request timed out"
	case ErrTypeConnectionRefused:
		return "Connection refused - is the gateway running?"
	case ErrTypeDNS:
		return e.Message
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		return e.Message
	}
}

// GetTroubleshootingHint returns advice for an error, shown below the message
// in the one-shot CLI output.
func GetTroubleshootingHint(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "An unexpected error occurred. Please try again."
	}

	switch e.Type {
	case ErrTypeTimeout:
		return strings.Join([]string{
			"The service did not respond in time.",
			"Troubleshooting:",
			"  • Check that the gateway is running and reachable",
			"  • Increase gateway.timeout in the config file",
		}, "\n")

	case ErrTypeConnectionRefused:
		return strings.Join([]string{
			"Nothing is listening at " + e.Endpoint + ".",
			"Troubleshooting:",
			"  • Start it with: terradetect-gateway serve",
			"  • Check gateway.url in the config file or pass --gateway",
			"  • Run 'terradetect scan' to find gateways on the network",
		}, "\n")

	case ErrTypeDNS:
		return strings.Join([]string{
			"Could not resolve the gateway hostname.",
			"Troubleshooting:",
			"  • Use the IP address instead of hostname",
			"  • Run 'terradetect scan' to find gateways on the network",
		}, "\n")

	case ErrTypeNetwork:
		switch e.NetworkSubtype {
		case NetworkErrorHostUnreachable:
			return "The gateway host is not reachable. Check that you are on the same network."
		case NetworkErrorNetworkUnreachable:
			return "Your computer has no route to the gateway's network."
		default:
			return "Network communication failed. Check your connection."
		}

	case ErrTypeInvalidJSON:
		return "The prediction service crashed or is not a TerraDetect backend. Check its logs."

	case ErrTypeServer, ErrTypeHTTP:
		if e.StatusCode >= 500 {
			return fmt.Sprintf("The service failed (HTTP %d). Check the gateway and backend logs.", e.StatusCode)
		}
		return "The service rejected the request. Check the entered values."

	case ErrTypeEmptyResult:
		return "The model produced no answer for these values."

	case ErrTypeSensor:
		return "The sensor has not published a reading yet. Wait a minute and fetch again."

	default:
		return "Check the error message for details."
	}
}
