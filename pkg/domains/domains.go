// Package domains hosts the built-in mock domain adapters. Each
// subpackage owns its tool definitions and an action table of pure
// handlers; in production the handlers would call the real backend
// API instead of in-memory fixtures.
package domains

import (
	"context"
	"errors"
	"fmt"

	"github.com/mcpgate/mcpgate/pkg/tool"
)

// Handler executes one domain action.
type Handler func(params map[string]interface{}, execCtx tool.ExecutionContext) (interface{}, error)

// InvalidInput marks a handler error caused by bad parameter values
// (as opposed to backend failure). It maps to a VALIDATION_ERROR
// result rather than an execution error.
type InvalidInput struct {
	Message string
}

func (e *InvalidInput) Error() string { return e.Message }

// Invalidf builds an InvalidInput error.
func Invalidf(format string, args ...interface{}) error {
	return &InvalidInput{Message: fmt.Sprintf(format, args...)}
}

// Dispatch resolves the action in the handler table and maps handler
// errors into results. Unknown actions become not_found; InvalidInput
// becomes a validation error result; any other error surfaces as an
// execution error result.
func Dispatch(_ context.Context, domain, action string, handlers map[string]Handler, params map[string]interface{}, execCtx tool.ExecutionContext) (interface{}, error) {
	qualified := domain + "." + action

	handler, ok := handlers[action]
	if !ok {
		return tool.Failure(qualified, tool.StatusNotFound, "ACTION_NOT_FOUND",
			fmt.Sprintf("Action '%s' not found in domain '%s'", action, domain)), nil
	}

	data, err := handler(params, execCtx)
	if err != nil {
		var invalid *InvalidInput
		if errors.As(err, &invalid) {
			return tool.Failure(qualified, tool.StatusError, "VALIDATION_ERROR", invalid.Message), nil
		}
		return nil, err
	}

	return tool.Success(qualified, data), nil
}

// ObjectSchema builds a JSON-Schema object document from a property
// map and the required property names.
func ObjectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	if required == nil {
		required = []string{}
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// StrParam reads an optional string parameter.
func StrParam(params map[string]interface{}, key, fallback string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// IntParam reads an optional integer parameter. JSON numbers decode
// as float64, so both forms are accepted.
func IntParam(params map[string]interface{}, key string, fallback int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}
