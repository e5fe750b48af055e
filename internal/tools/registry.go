// Package tools implements the tool registry: registration, JSON-Schema
// input validation, and risk-gated invocation. Grounded on the teacher's
// internal/agent/tool_registry.go.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nexuscore/agentcore/pkg/models"
)

// Handler executes a validated tool invocation. Implementations must
// respect ctx cancellation/deadline and must not block past it.
type Handler func(ctx context.Context, invocation models.ToolInvocation) (models.ToolResult, error)

// ToolConfig carries per-tool overrides layered onto the global defaults,
// a supplemented feature (SPEC_FULL.md §4) grounded on the teacher's
// executor.ConfigureTool.
type ToolConfig struct {
	Timeout        int64 // milliseconds; 0 means "use the global default"
	MaxRetries     int
	PriorityBucket int // lower runs first when the executor schedules concurrently
}

type registeredTool struct {
	def     models.ToolDefinition
	handler Handler
	schema  *jsonschema.Schema
	config  ToolConfig
}

// Registry holds every tool the orchestrator may offer to the model.
// Registration is expected at startup; Invoke is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*registeredTool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*registeredTool)}
}

// Register compiles def's input schema and adds it to the registry. It is
// an error to register the same tool name twice or to supply an input
// schema that fails to compile.
func (r *Registry) Register(def models.ToolDefinition, handler Handler, cfg ToolConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.Name]; exists {
		return fmt.Errorf("tools: %q already registered", def.Name)
	}
	if handler == nil {
		return fmt.Errorf("tools: %q registered with a nil handler", def.Name)
	}

	schema, err := compileSchema(def.Name, def.InputSchema)
	if err != nil {
		return fmt.Errorf("tools: %q: %w", def.Name, err)
	}

	r.tools[def.Name] = &registeredTool{def: def, handler: handler, schema: schema, config: cfg}
	return nil
}

func compileSchema(name string, raw json.RawMessage) (*jsonschema.Schema, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	url := "mem://" + name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// Get returns the ToolDefinition for name.
func (r *Registry) Get(name string) (models.ToolDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return models.ToolDefinition{}, false
	}
	return t.def, true
}

// ConfigFor returns the per-tool overrides registered alongside name.
func (r *Registry) ConfigFor(name string) (ToolConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return ToolConfig{}, false
	}
	return t.config, true
}

// List returns every registered ToolDefinition sorted by name, suitable
// for synthesizing the model-facing ToolSchema list.
func (r *Registry) List() []models.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ErrUnknownTool is returned by Invoke when no tool is registered under
// the requested name.
type ErrUnknownTool struct{ Name string }

func (e *ErrUnknownTool) Error() string { return fmt.Sprintf("tools: unknown tool %q", e.Name) }

// ErrInvalidInput is returned by Invoke when the invocation's input fails
// schema validation.
type ErrInvalidInput struct {
	Name   string
	Detail string
}

func (e *ErrInvalidInput) Error() string {
	return fmt.Sprintf("tools: %q: invalid input: %s", e.Name, e.Detail)
}

// Invoke validates invocation.Input against the registered schema, then
// calls the tool's handler. It does not itself enforce risk/approval —
// that's internal/tools/policy's job, threaded in by the orchestrator
// before Invoke is ever called.
func (r *Registry) Invoke(ctx context.Context, invocation models.ToolInvocation) (models.ToolResult, error) {
	r.mu.RLock()
	t, ok := r.tools[invocation.ToolName]
	r.mu.RUnlock()
	if !ok {
		return models.ToolResult{}, &ErrUnknownTool{Name: invocation.ToolName}
	}

	if t.schema != nil {
		var decoded interface{}
		if err := json.Unmarshal(invocation.Input, &decoded); err != nil {
			return models.ToolResult{}, &ErrInvalidInput{Name: invocation.ToolName, Detail: err.Error()}
		}
		if err := t.schema.Validate(decoded); err != nil {
			return models.ToolResult{}, &ErrInvalidInput{Name: invocation.ToolName, Detail: err.Error()}
		}
	}

	return t.handler(ctx, invocation)
}
