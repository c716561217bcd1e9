package tool

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrDuplicateTool is returned when registering a qualified name that
// already exists in the registry.
var ErrDuplicateTool = errors.New("tool already registered")

// Registry is the central lookup table for all tools. It is written
// once at domain-load time and read-only during steady-state traffic;
// registration is serialized and fails fast on duplicates.
type Registry struct {
	tools   map[string]*Definition
	schemas map[string]*compiledSchema
	domains map[string]struct{}
	mu      sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   make(map[string]*Definition),
		schemas: make(map[string]*compiledSchema),
		domains: make(map[string]struct{}),
	}
}

// Register inserts a tool definition. The input schema is compiled
// once here so validation on the hot path is a pure lookup.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Domain == "" {
		return fmt.Errorf("tool domain cannot be empty")
	}
	if def.Description == "" {
		return fmt.Errorf("tool description cannot be empty for %s", def.Name)
	}

	qualified := def.QualifiedName()

	schema, err := compileSchema(def.InputSchema)
	if err != nil {
		return fmt.Errorf("invalid input schema for %s: %w", qualified, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[qualified]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, qualified)
	}

	r.tools[qualified] = &def
	r.schemas[qualified] = schema
	r.domains[def.Domain] = struct{}{}

	log.Info().
		Str("tool", qualified).
		Str("domain", def.Domain).
		Str("execution_type", string(def.ExecutionType)).
		Msg("Tool registered")

	return nil
}

// RegisterAll registers multiple tools, stopping at the first failure.
func (r *Registry) RegisterAll(defs []Definition) error {
	for _, def := range defs {
		if err := r.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// Unregister removes a tool. Returns false if the tool was not
// registered.
func (r *Registry) Unregister(qualifiedName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[qualifiedName]; !exists {
		return false
	}

	delete(r.tools, qualifiedName)
	delete(r.schemas, qualifiedName)

	log.Info().Str("tool", qualifiedName).Msg("Tool unregistered")
	return true
}

// Get returns a copy of the tool definition, or nil if not registered.
func (r *Registry) Get(qualifiedName string) *Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.tools[qualifiedName]
	if !exists {
		return nil
	}

	defCopy := *def
	return &defCopy
}

// List returns all registered tools, optionally filtered by domain.
// Deprecated tools are excluded unless includeDeprecated is set.
func (r *Registry) List(domain string, includeDeprecated bool) []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Definition, 0, len(r.tools))
	for _, def := range r.tools {
		if domain != "" && def.Domain != domain {
			continue
		}
		if def.Deprecated && !includeDeprecated {
			continue
		}
		result = append(result, *def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].QualifiedName() < result[j].QualifiedName()
	})

	return result
}

// Domains returns all registered domain names, sorted.
func (r *Registry) Domains() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	domains := make([]string, 0, len(r.domains))
	for d := range r.domains {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}

// ToolCounts returns the number of registered tools per domain.
func (r *Registry) ToolCounts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int)
	for _, def := range r.tools {
		counts[def.Domain]++
	}
	return counts
}

// ValidateInput validates parameters against the tool's input schema.
// Returns field-level error strings on failure. A tool without an
// input schema accepts any parameters.
func (r *Registry) ValidateInput(qualifiedName string, parameters map[string]interface{}) (bool, []string) {
	r.mu.RLock()
	schema, exists := r.schemas[qualifiedName]
	r.mu.RUnlock()

	if !exists {
		return false, []string{fmt.Sprintf("tool '%s' not found", qualifiedName)}
	}
	if schema == nil {
		return true, nil
	}

	return schema.Validate(parameters)
}

// ForLLM returns tool descriptors in the model's function-calling
// format, optionally filtered by domain and caller roles.
//
// The role filter only shrinks the model's menu: a tool is included if
// its level is public, its role set intersects callerRoles, or its
// level is user and callerRoles is non-empty. This is advisory — the
// authoritative authorization decision is made again per call inside
// the execution pipeline.
func (r *Registry) ForLLM(domains []string, callerRoles []string) []Descriptor {
	tools := r.List("", false)

	if len(domains) > 0 {
		allowed := make(map[string]struct{}, len(domains))
		for _, d := range domains {
			allowed[d] = struct{}{}
		}
		filtered := tools[:0]
		for _, def := range tools {
			if _, ok := allowed[def.Domain]; ok {
				filtered = append(filtered, def)
			}
		}
		tools = filtered
	}

	if callerRoles != nil {
		filtered := make([]Definition, 0, len(tools))
		for _, def := range tools {
			if menuVisible(def.Permissions, callerRoles) {
				filtered = append(filtered, def)
			}
		}
		tools = filtered
	}

	descriptors := make([]Descriptor, 0, len(tools))
	for _, def := range tools {
		params := def.InputSchema
		if params == nil {
			params = map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
				"required":   []string{},
			}
		}
		descriptors = append(descriptors, Descriptor{
			Type: "function",
			Function: FunctionSpec{
				Name:        def.QualifiedName(),
				Description: def.Description,
				Parameters:  params,
			},
		})
	}

	return descriptors
}

func menuVisible(perm Permission, callerRoles []string) bool {
	if perm.Level == LevelPublic {
		return true
	}
	for _, required := range perm.Roles {
		for _, role := range callerRoles {
			if role == required {
				return true
			}
		}
	}
	return perm.Level == LevelUser && len(callerRoles) > 0
}

// Clear removes all registered tools. Intended for tests.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tools = make(map[string]*Definition)
	r.schemas = make(map[string]*compiledSchema)
	r.domains = make(map[string]struct{})

	log.Warn().Msg("Tool registry cleared")
}
