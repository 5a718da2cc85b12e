package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	errNotObject     = errors.New("response body is not a JSON object")
	errMissingStatus = errors.New("response envelope has no status")
	errStatusNotBool = errors.New("response envelope status is not a boolean")
	errMissingData   = errors.New("response envelope has no data object")
)

var failureStatuses = map[string]bool{
	"error":   true,
	"failed":  true,
	"failure": true,
	"false":   true,
	"fail":    true,
}

// envelope is the upstream { status, message, data } wrapper.
type envelope struct {
	fields     map[string]any
	raw        json.RawMessage
	success    bool
	statusBool bool
}

func parseEnvelope(raw []byte) (*envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil || fields == nil {
		return nil, errNotObject
	}

	env := &envelope{fields: fields, raw: json.RawMessage(raw)}
	switch s := fields["status"].(type) {
	case bool:
		env.success = s
		env.statusBool = true
	case string:
		env.success = !failureStatuses[strings.ToLower(strings.TrimSpace(s))]
	default:
		return env, errMissingStatus
	}
	return env, nil
}

func (e *envelope) ok() bool {
	return e.success
}

// requireBoolStatus enforces the stricter envelope used by the Lightning endpoints.
func (e *envelope) requireBoolStatus() error {
	if !e.statusBool {
		return errStatusNotBool
	}
	return nil
}

// errorMessage extracts the upstream's human-readable failure message.
func (e *envelope) errorMessage() string {
	if e == nil {
		return ""
	}
	for _, key := range []string{"message", "error", "errors"} {
		if msg := messageText(e.fields[key]); msg != "" {
			return msg
		}
	}
	return ""
}

// dataObject returns the data payload as an object.
func (e *envelope) dataObject() (map[string]any, error) {
	data, ok := e.fields["data"].(map[string]any)
	if !ok {
		return nil, errMissingData
	}
	return data, nil
}

// dataOrEmpty returns the data payload as an object, or an empty one.
func (e *envelope) dataOrEmpty() map[string]any {
	if data, ok := e.fields["data"].(map[string]any); ok {
		return data
	}
	return map[string]any{}
}

// dataList returns the data payload as a list. A data object wrapping a
// list under one of listKeys is unwrapped.
func (e *envelope) dataList(listKeys ...string) ([]map[string]any, error) {
	var items []any
	switch data := e.fields["data"].(type) {
	case []any:
		items = data
	case map[string]any:
		for _, key := range listKeys {
			if list, ok := data[key].([]any); ok {
				items = list
				break
			}
		}
		if items == nil {
			return nil, fmt.Errorf("data object has none of %v", listKeys)
		}
	case nil:
		return []map[string]any{}, nil
	default:
		return nil, errMissingData
	}

	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out, nil
}

func messageText(v any) string {
	switch m := v.(type) {
	case string:
		return strings.TrimSpace(m)
	case []any:
		parts := make([]string, 0, len(m))
		for _, p := range m {
			if s, ok := p.(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}
