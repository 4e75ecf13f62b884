package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorizes a failure so that callers can branch on the
// category without matching on message text.
type ErrorKind string

const (
	ErrorKindUnknownTool          ErrorKind = "unknown_tool"
	ErrorKindUnknownResource      ErrorKind = "unknown_resource"
	ErrorKindUnknownPrompt        ErrorKind = "unknown_prompt"
	ErrorKindInvalidArguments     ErrorKind = "invalid_arguments"
	ErrorKindRemoteCatalog        ErrorKind = "remote_catalog_error"
	ErrorKindQueryExecution       ErrorKind = "query_execution_error"
	ErrorKindQueryTimeout         ErrorKind = "query_timeout"
	ErrorKindNLConversion         ErrorKind = "nl_conversion_error"
	ErrorKindUnsupportedChartType ErrorKind = "unsupported_chart_type"
	ErrorKindRemoteUnavailable    ErrorKind = "remote_unavailable"

	// ErrorKindInternal is the fallback for failures that do not fit the
	// taxonomy above. The dispatch layer never lets a raw error cross the
	// transport, so anything unexpected ends up here.
	ErrorKindInternal ErrorKind = "internal_error"
)

// ToolError is the uniform error envelope every failed operation is
// reported as. It serializes to the JSON body of an error response.
type ToolError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"error"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewToolError creates a ToolError of the given kind with a formatted message.
func NewToolError(kind ErrorKind, format string, args ...any) *ToolError {
	return &ToolError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewUnknownTool reports a tool invocation whose name matches no declared tool.
func NewUnknownTool(name string) *ToolError {
	return NewToolError(ErrorKindUnknownTool, "unknown tool: %s", name)
}

// NewUnknownResource reports a resource read whose URI matches none of the
// known URI patterns.
func NewUnknownResource(uri string) *ToolError {
	return NewToolError(ErrorKindUnknownResource, "unknown resource URI: %s", uri)
}

// NewInvalidArguments reports an argument shape mismatch, naming the
// offending field.
func NewInvalidArguments(field string, err error) *ToolError {
	if err != nil {
		return NewToolError(ErrorKindInvalidArguments, "invalid argument %q: %v", field, err)
	}
	return NewToolError(ErrorKindInvalidArguments, "missing required argument %q", field)
}

// AsToolError extracts a *ToolError from err, wrapping non-typed errors
// into the internal_error kind so that the envelope is always uniform.
func AsToolError(err error) *ToolError {
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{Kind: ErrorKindInternal, Message: err.Error()}
}

// ParseToolError decodes a serialized error envelope. It returns false if
// the payload is not a valid envelope.
func ParseToolError(payload []byte) (*ToolError, bool) {
	var te ToolError
	if err := json.Unmarshal(payload, &te); err != nil || te.Kind == "" {
		return nil, false
	}
	return &te, true
}

// errorKinds lists every kind, for recovering a ToolError from its string
// form when a failure crosses a boundary that flattens it to text.
var errorKinds = []ErrorKind{
	ErrorKindUnknownTool,
	ErrorKindUnknownResource,
	ErrorKindUnknownPrompt,
	ErrorKindInvalidArguments,
	ErrorKindRemoteCatalog,
	ErrorKindQueryExecution,
	ErrorKindQueryTimeout,
	ErrorKindNLConversion,
	ErrorKindUnsupportedChartType,
	ErrorKindRemoteUnavailable,
	ErrorKindInternal,
}

// ParseToolErrorText recovers a ToolError from the "kind: message" form
// produced by Error(), even when transport layers have prefixed it with
// their own context. It returns false when no known kind appears.
func ParseToolErrorText(text string) (*ToolError, bool) {
	for _, kind := range errorKinds {
		prefix := string(kind) + ": "
		if idx := strings.Index(text, prefix); idx != -1 {
			return &ToolError{Kind: kind, Message: text[idx+len(prefix):]}, true
		}
	}
	return nil, false
}
