package backend

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
	"testing"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"timeout", &url.Error{Op: "Get", URL: "http://x", Err: timeoutErr{}}, ErrTypeTimeout},
		{"dns", &url.Error{Op: "Get", URL: "http://x", Err: &net.DNSError{Name: "gateway.local", Err: "no such host"}}, ErrTypeDNS},
		{"refused", &url.Error{Op: "Post", URL: "http://x", Err: &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}}, ErrTypeConnectionRefused},
		{"unreachable", &net.OpError{Op: "dial", Err: syscall.EHOSTUNREACH}, ErrTypeNetwork},
		{"generic", errors.New("boom"), ErrTypeNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyNetworkError(tt.err, "http://localhost:5000")
			if got.Type != tt.want {
				t.Errorf("ClassifyNetworkError() type = %v, want %v", got.Type, tt.want)
			}
			if !IsNetworkError(got) {
				t.Errorf("IsNetworkError() = false for %v", got)
			}
		})
	}

	if ClassifyNetworkError(nil, "") != nil {
		t.Error("ClassifyNetworkError(nil) should be nil")
	}
}

func TestErrorPredicatesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("submit: %w", NewEmptyResultError())
	if !IsEmptyResult(err) {
		t.Error("IsEmptyResult should see through wrapping")
	}
	if IsServerError(err) || IsInvalidJSON(err) {
		t.Error("empty result misclassified")
	}
}

func TestNewServerErrorDefaultsMessage(t *testing.T) {
	if got := NewServerError(500, "  ").Message; got != MsgServerError {
		t.Errorf("Message = %q, want %q", got, MsgServerError)
	}
	if got := NewServerError(400, "Invalid mode specified").Message; got != "Invalid mode specified" {
		t.Errorf("Message = %q", got)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{NewNetworkError("x", errors.New("y")), true},
		{NewSensorError("not yet"), true},
		{NewServerError(502, ""), true},
		{NewServerError(400, "bad"), false},
		{NewInvalidJSONError(200, nil), false},
		{NewEmptyResultError(), false},
		{errors.New("plain"), false},
	}
	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(errors.New("plain")); got != "plain" {
		t.Errorf("UserMessage(plain) = %q", got)
	}
	if got := UserMessage(NewHTTPError(404, "nope")); got != "HTTP 404" {
		t.Errorf("UserMessage(http) = %q", got)
	}
	refused := &Error{Type: ErrTypeConnectionRefused, Endpoint: "http://localhost:5000"}
	if got := UserMessage(refused); !strings.Contains(got, "gateway") {
		t.Errorf("UserMessage(refused) = %q", got)
	}
}

func TestGetTroubleshootingHint(t *testing.T) {
	refused := &Error{Type: ErrTypeConnectionRefused, Endpoint: "http://localhost:5000"}
	hint := GetTroubleshootingHint(refused)
	if !strings.Contains(hint, "http://localhost:5000") || !strings.Contains(hint, "terradetect-gateway serve") {
		t.Errorf("hint missing endpoint or command: %s", hint)
	}

	for _, et := range []ErrorType{ErrTypeTimeout, ErrTypeDNS, ErrTypeNetwork, ErrTypeInvalidJSON, ErrTypeServer, ErrTypeEmptyResult, ErrTypeSensor} {
		if GetTroubleshootingHint(&Error{Type: et}) == "" {
			t.Errorf("empty hint for %v", et)
		}
	}
}

func TestErrorTypeString(t *testing.T) {
	if ErrTypeInvalidJSON.String() != "Invalid JSON" {
		t.Errorf("String() = %q", ErrTypeInvalidJSON.String())
	}
	if !strings.HasPrefix(ErrorType(99).String(), "ErrorType(") {
		t.Errorf("unknown type String() = %q", ErrorType(99).String())
	}
}
