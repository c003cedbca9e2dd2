package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DecodePrediction interprets a /predict response for the given mode. The
// order of checks matters:
//  1. a body that is not JSON is ErrTypeInvalidJSON, whatever the status;
//  2. a non-2xx status or an "error" field is ErrTypeServer;
//  3. null, {} or [] is ErrTypeEmptyResult;
//  4. the body is decoded into the mode's result type.
func DecodePrediction(mode string, status int, body []byte) (*Prediction, error) {
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		return nil, NewInvalidJSONError(status, fmt.Errorf("%d bytes of non-JSON body", len(body)))
	}

	var obj map[string]json.RawMessage
	isObject := len(trimmed) > 0 && trimmed[0] == '{'
	if isObject {
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, NewInvalidJSONError(status, err)
		}
	}

	ok := status >= 200 && status < 300
	if msg, has := errorField(obj); !ok || has {
		return nil, NewServerError(status, msg)
	}

	switch {
	case bytes.Equal(trimmed, []byte("null")), bytes.Equal(trimmed, []byte("[]")):
		return nil, NewEmptyResultError()
	case isObject && len(obj) == 0:
		return nil, NewEmptyResultError()
	case !isObject:
		return nil, NewInvalidJSONError(status, fmt.Errorf("expected a JSON object"))
	}

	p := &Prediction{Mode: mode, Raw: json.RawMessage(trimmed)}
	var err error
	switch mode {
	case ModeCrop:
		p.Crop = &CropResult{}
		err = json.Unmarshal(trimmed, p.Crop)
	case ModeSuitability:
		p.Suitability = &SuitabilityResult{}
		err = json.Unmarshal(trimmed, p.Suitability)
	case ModeFertilizer:
		p.Fertilizer = &FertilizerResult{}
		err = json.Unmarshal(trimmed, p.Fertilizer)
	default:
		return nil, NewValidationError(fmt.Sprintf("unknown mode %q", mode))
	}
	if err != nil {
		return nil, NewInvalidJSONError(status, err)
	}

	return p, nil
}

// errorField extracts a top-level "error" value. Falsy values (null, "",
// false) do not count as an error.
func errorField(obj map[string]json.RawMessage) (string, bool) {
	raw, ok := obj["error"]
	if !ok {
		return "", false
	}
	var t Text
	if err := t.UnmarshalJSON(raw); err != nil {
		return strings.TrimSpace(string(raw)), true
	}
	msg := strings.TrimSpace(t.String())
	if msg == "" || msg == "false" {
		return "", false
	}
	return msg, true
}
