package router

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mcpgate/mcpgate/pkg/audit"
	"github.com/mcpgate/mcpgate/pkg/tool"
)

// DefaultTimeout bounds adapter execution when no per-domain override
// is configured.
const DefaultTimeout = 30 * time.Second

// Error codes carried on non-success results.
const (
	CodeToolNotFound    = "TOOL_NOT_FOUND"
	CodeValidationError = "VALIDATION_ERROR"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeRateLimited     = "RATE_LIMITED"
	CodeNoAdapter       = "NO_ADAPTER"
	CodeExecutionError  = "EXECUTION_ERROR"
	CodeTimeout         = "TIMEOUT"
)

// Adapter executes tool actions for one domain. Implementations may
// return a tool.Result directly to control the status themselves, or
// any other value which becomes success data. An error return maps to
// an execution_error result.
type Adapter interface {
	Domain() string
	Execute(ctx context.Context, action string, params map[string]interface{}, execCtx tool.ExecutionContext) (interface{}, error)
}

// Router runs the tool execution pipeline: lookup, schema validation,
// authorization, dispatch, normalization, audit. Every call produces
// exactly one result and exactly one audit entry; no failure escapes
// as a panic or error.
type Router struct {
	registry *tool.Registry
	auth     *tool.Authorizer
	auditor  *audit.Logger
	log      zerolog.Logger

	mu             sync.RWMutex
	adapters       map[string]Adapter
	timeouts       map[string]time.Duration
	defaultTimeout time.Duration
}

// New creates a Router over the given registry and audit sink.
func New(registry *tool.Registry, auth *tool.Authorizer, auditor *audit.Logger, log zerolog.Logger) *Router {
	return &Router{
		registry:       registry,
		auth:           auth,
		auditor:        auditor,
		log:            log,
		adapters:       make(map[string]Adapter),
		timeouts:       make(map[string]time.Duration),
		defaultTimeout: DefaultTimeout,
	}
}

// RegisterAdapter binds an adapter to its domain, replacing any
// previous binding.
func (r *Router) RegisterAdapter(adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Domain()] = adapter
	r.log.Info().Str("domain", adapter.Domain()).Msg("Adapter registered")
}

// SetTimeout overrides the execution deadline for one domain.
func (r *Router) SetTimeout(domain string, timeout time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeouts[domain] = timeout
}

// SetDefaultTimeout replaces the fallback deadline used for domains
// without an override.
func (r *Router) SetDefaultTimeout(timeout time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultTimeout = timeout
}

func (r *Router) timeoutFor(domain string) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.timeouts[domain]; ok {
		return t
	}
	return r.defaultTimeout
}

func (r *Router) adapterFor(domain string) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters[domain]
}

// Execute runs one tool call through the full pipeline and returns its
// terminal result.
func (r *Router) Execute(ctx context.Context, call tool.Call) tool.Result {
	started := time.Now()

	result := r.run(ctx, call)
	result.ToolName = call.ToolName
	result.ExecutionTimeMS = float64(time.Since(started).Microseconds()) / 1000.0

	r.audit(call, result)

	return result
}

func (r *Router) run(ctx context.Context, call tool.Call) tool.Result {
	def := r.registry.Get(call.ToolName)
	if def == nil {
		return tool.Failure(call.ToolName, tool.StatusNotFound, CodeToolNotFound,
			fmt.Sprintf("Tool '%s' is not registered", call.ToolName))
	}

	if ok, errs := r.registry.ValidateInput(call.ToolName, call.Parameters); !ok {
		return tool.Failure(call.ToolName, tool.StatusValidationError, CodeValidationError,
			fmt.Sprintf("Invalid parameters: %s", strings.Join(errs, "; ")))
	}

	if allowed, reason := r.auth.Authorize(def, call.Context.Identity); !allowed {
		return tool.Failure(call.ToolName, tool.StatusUnauthorized, CodeUnauthorized, reason)
	}

	if !r.auth.CheckRateLimit(call.Context.Identity, call.ToolName) {
		return tool.Failure(call.ToolName, tool.StatusError, CodeRateLimited, "Rate limit exceeded")
	}

	adapter := r.adapterFor(def.Domain)
	if adapter == nil {
		return tool.Failure(call.ToolName, tool.StatusError, CodeNoAdapter,
			fmt.Sprintf("No adapter registered for domain '%s'", def.Domain))
	}

	return r.dispatch(ctx, adapter, def, call)
}

// dispatch runs the adapter on its own goroutine under a per-domain
// deadline. The goroutine is left to finish on its own after a
// timeout; it writes to buffered channels so it never leaks blocked.
func (r *Router) dispatch(ctx context.Context, adapter Adapter, def *tool.Definition, call tool.Call) tool.Result {
	timeout := r.timeoutFor(def.Domain)
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resultChan := make(chan interface{}, 1)
	errChan := make(chan error, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				errChan <- fmt.Errorf("adapter panic: %v", rec)
			}
		}()

		output, err := adapter.Execute(timeoutCtx, def.Action(), call.Parameters, call.Context)
		if err != nil {
			errChan <- err
			return
		}
		resultChan <- output
	}()

	select {
	case output := <-resultChan:
		return r.normalize(call.ToolName, output)
	case err := <-errChan:
		r.log.Error().Err(err).Str("tool", call.ToolName).Msg("Adapter execution failed")
		return tool.Failure(call.ToolName, tool.StatusError, CodeExecutionError, err.Error())
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return tool.Failure(call.ToolName, tool.StatusError, CodeExecutionError, ctx.Err().Error())
		}
		r.log.Warn().
			Str("tool", call.ToolName).
			Dur("timeout", timeout).
			Msg("Adapter execution timed out")
		return tool.Failure(call.ToolName, tool.StatusTimeout, CodeTimeout,
			fmt.Sprintf("Execution exceeded %s timeout", timeout))
	}
}

// normalize maps the adapter's raw output into a Result. Adapters that
// return a tool.Result keep it verbatim; everything else is success
// data.
func (r *Router) normalize(toolName string, output interface{}) tool.Result {
	switch v := output.(type) {
	case tool.Result:
		return v
	case *tool.Result:
		return *v
	default:
		return tool.Success(toolName, v)
	}
}

func (r *Router) audit(call tool.Call, result tool.Result) {
	if r.auditor == nil {
		return
	}
	r.auditor.Record(audit.Entry{
		RequestID:       call.Context.RequestID,
		CorrelationID:   call.Context.CorrelationID,
		UserID:          call.Context.Identity.ID,
		Username:        call.Context.Identity.Username,
		ToolName:        call.ToolName,
		Domain:          tool.DomainOf(call.ToolName),
		Parameters:      call.Parameters,
		Status:          string(result.Status),
		Error:           result.Error,
		ExecutionTimeMS: result.ExecutionTimeMS,
		Source:          call.Context.Source,
	})
}
