// Package invoke defines the envelope exchanged between the API edge
// and the Lambda handlers. The edge authenticates the caller, names an
// operation, and forwards loosely-typed arguments; handlers answer
// with data or a coded error the edge can translate to a transport
// status.
package invoke

import "github.com/checklists-vnext/checklist-service/internal/identity"

// Error codes shared by every handler.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeForbidden        = "FORBIDDEN"
	CodeStorageError     = "STORAGE_ERROR"
	CodeBadCursor        = "BAD_CURSOR"
	CodeInvalidArguments = "INVALID_ARGUMENTS"
	CodeUnknownOperation = "UNKNOWN_OPERATION"
)

// Request is one operation invocation.
type Request struct {
	Op     string          `json:"op"`
	Caller identity.Caller `json:"caller"`
	Args   map[string]any  `json:"args"`
}

// Error describes a failed invocation.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Response carries either data or an error, never both.
type Response struct {
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// OK wraps a successful result.
func OK(data any) Response {
	return Response{Data: data}
}

// Fail wraps a coded error.
func Fail(code, message string) Response {
	return Response{Error: &Error{Code: code, Message: message}}
}

// String extracts a string argument; absent or mistyped values yield
// the empty string.
func String(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// OptionalString extracts a sparse-update string argument. The second
// return distinguishes absent from present: a present null or empty
// string means clear.
func OptionalString(args map[string]any, key string) (*string, bool) {
	v, ok := args[key]
	if !ok {
		return nil, false
	}
	if v == nil {
		empty := ""
		return &empty, true
	}
	if s, ok := v.(string); ok {
		return &s, true
	}
	return nil, false
}

// OptionalBool extracts a sparse-update bool argument.
func OptionalBool(args map[string]any, key string) (*bool, bool) {
	v, ok := args[key]
	if !ok {
		return nil, false
	}
	if b, ok := v.(bool); ok {
		return &b, true
	}
	return nil, false
}

// Bool extracts a bool argument, defaulting to false.
func Bool(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}

// StringSlice extracts a list-of-strings argument, tolerating the
// []any shape JSON decoding produces.
func StringSlice(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	values := make([]string, 0, len(raw))
	for _, entry := range raw {
		if s, ok := entry.(string); ok {
			values = append(values, s)
		}
	}
	return values
}

// Limit extracts a page-size argument. JSON numbers decode as float64;
// absent or non-positive values fall back to def.
func Limit(args map[string]any, key string, def int32) int32 {
	if v, ok := args[key].(float64); ok && v > 0 {
		return int32(v)
	}
	return def
}
