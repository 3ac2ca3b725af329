// Package tools provides the tool registry: named handlers with declared
// parameter schemas, validated before dispatch. Errors never escape Invoke
// unconverted; the orchestrator turns them into text the model can explain.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/manualmate/orchestrator/internal/adapter/llm"
	"github.com/manualmate/orchestrator/internal/policy"
)

// Sentinel errors surfaced by Invoke. Both are recoverable: the orchestrator
// feeds them back to the model instead of aborting the turn.
var (
	ErrUnknownTool      = errors.New("unknown tool")
	ErrInvalidArguments = errors.New("invalid arguments")
)

// Param describes one parameter of a tool schema.
type Param struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Schema is the JSON-schema-like parameter contract of a tool.
type Schema struct {
	Properties map[string]Param
	Required   []string
}

// HandlerFunc executes a tool with validated arguments and returns a text
// result for the model.
type HandlerFunc func(ctx context.Context, args map[string]string) (string, error)

// Tool couples a name, its schema and its handler.
type Tool struct {
	Name        string
	Description string
	Schema      Schema
	Handler     HandlerFunc
}

// Registry stores tools keyed by name.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	order  []string
	policy *policy.Engine
}

// NewRegistry creates an empty tool registry. The policy engine is optional;
// without one every invocation is allowed.
func NewRegistry(policyEngine *policy.Engine) *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		policy: policyEngine,
	}
}

// Register adds a tool.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if t.Handler == nil {
		return fmt.Errorf("handler is required for %s", t.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool already registered for %s", t.Name)
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// MustRegister adds a tool or panics.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Definitions returns the provider-facing function catalog in registration
// order.
func (r *Registry) Definitions() []llm.FunctionDef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]llm.FunctionDef, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		props := make(map[string]any, len(t.Schema.Properties))
		for pname, p := range t.Schema.Properties {
			prop := map[string]any{"type": p.Type}
			if p.Description != "" {
				prop["description"] = p.Description
			}
			props[pname] = prop
		}
		params := map[string]any{
			"type":       "object",
			"properties": props,
		}
		if len(t.Schema.Required) > 0 {
			params["required"] = t.Schema.Required
		}
		defs = append(defs, llm.FunctionDef{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		})
	}
	return defs
}

// Invoke validates rawArgs against the tool's schema, consults the policy
// engine, and runs the handler. Unknown tools and schema violations return
// the sentinel errors; handler and policy failures are returned as errors
// for the caller to surface as tool-result text.
func (r *Registry) Invoke(ctx context.Context, name string, rawArgs json.RawMessage) (string, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	args := map[string]string{}
	if len(rawArgs) > 0 {
		var loose map[string]any
		if err := json.Unmarshal(rawArgs, &loose); err != nil {
			return "", fmt.Errorf("%w: arguments are not a JSON object: %v", ErrInvalidArguments, err)
		}
		for k, v := range loose {
			args[k] = fmt.Sprintf("%v", v)
		}
	}

	for _, req := range t.Schema.Required {
		if args[req] == "" {
			return "", fmt.Errorf("%w: missing required parameter %q for %s", ErrInvalidArguments, req, name)
		}
	}

	if r.policy != nil {
		input := map[string]any{"tool_name": name, "args": args}
		decision, reason, err := r.policy.Evaluate(ctx, input)
		if err != nil {
			return "", fmt.Errorf("policy evaluation failed: %w", err)
		}
		if decision == policy.DecisionBlock {
			if reason == "" {
				reason = "blocked by tool policy"
			}
			log.Printf("WARN: tool %s blocked by policy: %s", name, reason)
			return "", fmt.Errorf("tool %s is not permitted: %s", name, reason)
		}
	}

	return t.Handler(ctx, args)
}
