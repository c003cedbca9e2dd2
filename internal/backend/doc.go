// Package backend is the form's HTTP client for the gateway and the
// prediction service behind it.
//
// Every method returns *Error on failure so callers can tell the failure
// kinds apart:
//
//	pred, err := client.Predict(ctx, req)
//	switch {
//	case backend.IsInvalidJSON(err):  // "Server returned invalid JSON. Check backend logs."
//	case backend.IsServerError(err):  // the service's own error text
//	case backend.IsEmptyResult(err):  // "No recommendation received. Please try again."
//	case backend.IsNetworkError(err): // transport failure
//	}
//
// Prediction responses are decoded by the mode that was requested, never
// by inspecting their shape.
package backend
