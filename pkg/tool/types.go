package tool

import (
	"strings"
	"time"
)

// ExecutionType distinguishes read operations from write operations.
type ExecutionType string

const (
	ExecutionRead  ExecutionType = "read"
	ExecutionWrite ExecutionType = "write"
)

// PermissionLevel is the minimum access bar for a tool.
// Ordering: public < user < admin < system.
type PermissionLevel string

const (
	LevelPublic PermissionLevel = "public"
	LevelUser   PermissionLevel = "user"
	LevelAdmin  PermissionLevel = "admin"
	LevelSystem PermissionLevel = "system"
)

// Permission defines the access policy for a tool. Roles and Scopes are
// any-of sets: the caller needs at least one matching entry, not all.
type Permission struct {
	Level  PermissionLevel `json:"level"`
	Roles  []string        `json:"roles,omitempty"`
	Scopes []string        `json:"scopes,omitempty"`
}

// Definition is the declarative description of a single callable tool.
// Tools are namespaced per domain (e.g. hr.get_employee) and never
// mutated after registration.
type Definition struct {
	Name          string                 `json:"name"`
	Domain        string                 `json:"domain"`
	Description   string                 `json:"description"`
	Version       string                 `json:"version,omitempty"`
	InputSchema   map[string]interface{} `json:"input_schema,omitempty"`
	OutputSchema  map[string]interface{} `json:"output_schema,omitempty"`
	ExecutionType ExecutionType          `json:"execution_type"`
	Permissions   Permission             `json:"permissions"`
	Tags          []string               `json:"tags,omitempty"`
	Deprecated    bool                   `json:"deprecated,omitempty"`
}

// QualifiedName returns the fully qualified tool name (domain.action).
func (d *Definition) QualifiedName() string {
	if strings.Contains(d.Name, ".") {
		return d.Name
	}
	return d.Domain + "." + d.Name
}

// Action returns the action segment of the tool name, without the
// domain prefix.
func (d *Definition) Action() string {
	if idx := strings.LastIndex(d.Name, "."); idx >= 0 {
		return d.Name[idx+1:]
	}
	return d.Name
}

// DomainOf extracts the domain segment from a qualified tool name.
func DomainOf(qualifiedName string) string {
	if idx := strings.Index(qualifiedName, "."); idx >= 0 {
		return qualifiedName[:idx]
	}
	return "default"
}

// Identity is the authenticated principal on whose behalf a tool call
// is made. It is supplied per call by the transport layer and never
// persisted beyond the call and its audit entry.
type Identity struct {
	ID       string                 `json:"user_id"`
	Username string                 `json:"username"`
	Email    string                 `json:"email,omitempty"`
	Roles    []string               `json:"roles,omitempty"`
	Scopes   []string               `json:"scopes,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// HasRole reports whether the identity carries the given role.
func (id Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the identity carries at least one of the
// given roles.
func (id Identity) HasAnyRole(roles []string) bool {
	for _, r := range roles {
		if id.HasRole(r) {
			return true
		}
	}
	return false
}

// HasAnyScope reports whether the identity carries at least one of the
// given scopes.
func (id Identity) HasAnyScope(scopes []string) bool {
	for _, want := range scopes {
		for _, s := range id.Scopes {
			if s == want {
				return true
			}
		}
	}
	return false
}

// ExecutionContext carries the identity and request metadata for one
// tool call through the pipeline.
type ExecutionContext struct {
	RequestID     string    `json:"request_id"`
	Identity      Identity  `json:"identity"`
	Timestamp     time.Time `json:"timestamp"`
	Source        string    `json:"source,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// Call is a request to execute a specific tool.
type Call struct {
	ToolName   string                 `json:"tool_name"`
	Parameters map[string]interface{} `json:"parameters"`
	Context    ExecutionContext       `json:"context"`
}

// Status is the terminal outcome of a tool execution. Statuses are
// mutually exclusive and never thrown past the pipeline boundary.
type Status string

const (
	StatusSuccess         Status = "success"
	StatusError           Status = "error"
	StatusUnauthorized    Status = "unauthorized"
	StatusNotFound        Status = "not_found"
	StatusValidationError Status = "validation_error"
	StatusTimeout         Status = "timeout"
)

// Result is the outcome of a tool execution. Data is populated only on
// success; Error only on failure.
type Result struct {
	ToolName        string                 `json:"tool_name"`
	Status          Status                 `json:"status"`
	Data            interface{}            `json:"data,omitempty"`
	Error           string                 `json:"error,omitempty"`
	ErrorCode       string                 `json:"error_code,omitempty"`
	ExecutionTimeMS float64                `json:"execution_time_ms"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// Success builds a success result carrying the given payload.
func Success(toolName string, data interface{}) Result {
	return Result{
		ToolName: toolName,
		Status:   StatusSuccess,
		Data:     data,
	}
}

// Failure builds a non-success result with the given status, error
// code, and message.
func Failure(toolName string, status Status, code, message string) Result {
	return Result{
		ToolName:  toolName,
		Status:    status,
		Error:     message,
		ErrorCode: code,
	}
}

// Descriptor is a tool definition in the model-facing function-calling
// wire format.
type Descriptor struct {
	Type     string       `json:"type"`
	Function FunctionSpec `json:"function"`
}

// FunctionSpec is the function payload of a Descriptor.
type FunctionSpec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}
