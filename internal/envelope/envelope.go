// Package envelope implements the uniform result shape returned by every
// tool call. A success envelope carries payload fields and computed counts;
// an error envelope carries a message, an error kind tag, and optional
// diagnostic details. The two never mix: callers branch on key presence.
package envelope

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/AraikT/mcp-seo/internal/apierr"
)

// Status is the envelope status value.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusWarning Status = "warning"
)

// Envelope is the uniform tool result. Construct it with Success, Failure,
// or Warning; the constructors keep success payloads and error fields
// mutually exclusive.
type Envelope struct {
	status  Status
	message string
	details string
	kind    apierr.Kind
	help    string
	fields  map[string]any
}

// Success creates a success envelope with the given payload fields.
func Success(fields map[string]any) Envelope {
	return Envelope{status: StatusSuccess, fields: cloneFields(fields)}
}

// Failure creates an error envelope from a classified error.
func Failure(err error) Envelope {
	return Envelope{
		status:  StatusError,
		message: apierr.MessageOf(err),
		details: apierr.DetailsOf(err),
		kind:    apierr.KindOf(err),
	}
}

// Errorf creates an error envelope with a formatted message and kind tag.
func Errorf(kind apierr.Kind, format string, args ...any) Envelope {
	return Envelope{status: StatusError, message: fmt.Sprintf(format, args...), kind: kind}
}

// Warning creates a warning envelope: the credential is present but the
// call is degraded. Payload fields are allowed alongside the message.
func Warning(message string, fields map[string]any) Envelope {
	return Envelope{status: StatusWarning, message: message, fields: cloneFields(fields)}
}

// Status reports the envelope status.
func (e Envelope) Status() Status { return e.status }

// Message reports the error or warning message.
func (e Envelope) Message() string { return e.message }

// WithHelp returns a copy of e with a human-facing help line.
func (e Envelope) WithHelp(help string) Envelope {
	e.help = help
	return e
}

// WithField returns a copy of e with one extra payload field set. Setting
// payload fields on an error envelope is allowed only for context keys
// (e.g. the echoed project_id); the success/error key exclusivity is
// preserved because message and error_kind are never payload fields.
func (e Envelope) WithField(key string, value any) Envelope {
	fields := cloneFields(e.fields)
	if fields == nil {
		fields = map[string]any{}
	}
	fields[key] = value
	e.fields = fields
	return e
}

// Field returns a payload field and whether it is present.
func (e Envelope) Field(key string) (any, bool) {
	v, ok := e.fields[key]
	return v, ok
}

// MarshalJSON flattens the envelope into a single JSON object.
func (e Envelope) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.fields)+4)
	for k, v := range e.fields {
		out[k] = v
	}
	out["status"] = string(e.status)
	if e.status != StatusSuccess {
		out["message"] = e.message
		if e.kind != "" {
			out["error_kind"] = string(e.kind)
		}
		if e.details != "" {
			out["details"] = e.details
		}
	}
	if e.help != "" {
		out["help"] = e.help
	}
	return json.Marshal(out)
}

// JSON serializes the envelope as indented JSON. This text is the only
// contract tool callers depend on.
func (e Envelope) JSON() string {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		// Payload fields are plain decoded JSON values, so this is
		// unreachable in practice; still, never return an empty body.
		return fmt.Sprintf(`{"status":"error","message":"envelope serialization failed: %s","error_kind":"unexpected"}`, err)
	}
	return string(data)
}

// Parse decodes envelope text back into an Envelope. Parsing an envelope
// produced by JSON is a no-op with respect to status, message, and payload
// fields, which makes normalization idempotent.
func Parse(data []byte) (Envelope, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Envelope{}, fmt.Errorf("parse envelope: %w", err)
	}
	statusText, _ := raw["status"].(string)
	status := Status(statusText)
	switch status {
	case StatusSuccess, StatusError, StatusWarning:
	default:
		return Envelope{}, fmt.Errorf("parse envelope: unknown status %q", statusText)
	}

	e := Envelope{status: status, fields: map[string]any{}}
	for k, v := range raw {
		switch k {
		case "status":
		case "message":
			e.message, _ = v.(string)
		case "details":
			e.details, _ = v.(string)
		case "error_kind":
			kindText, _ := v.(string)
			e.kind = apierr.Kind(kindText)
		case "help":
			e.help, _ = v.(string)
		default:
			e.fields[k] = v
		}
	}
	if len(e.fields) == 0 {
		e.fields = nil
	}
	return e, nil
}

// IsEnvelope reports whether data already looks like a normalized envelope.
func IsEnvelope(data []byte) bool {
	_, err := Parse(data)
	return err == nil
}

// CountDistinct returns the number of distinct values produced by key over
// items. Counts are always computed locally, never trusted from a provider.
func CountDistinct[T any](items []T, key func(T) string) int {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		seen[key(item)] = struct{}{}
	}
	return len(seen)
}

// FieldKeys lists the payload field names, sorted. Used by tests.
func (e Envelope) FieldKeys() []string {
	keys := make([]string, 0, len(e.fields))
	for k := range e.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneFields(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
