package config

import (
	"context"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// SchemaRegistry manages CUE schemas for validation.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     cuecontext.New(),
		schemas: make(map[string]cue.Value),
	}

	sr.RegisterSchema("config", builtinConfigSchema)
	sr.RegisterSchema("rule", builtinRuleSchema)

	return sr
}

// RegisterSchema registers a CUE schema with the given name.
func (sr *SchemaRegistry) RegisterSchema(name, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema)
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	sr.schemas[name] = val
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// ValidateAgainstSchema validates data against a named schema.
func (sr *SchemaRegistry) ValidateAgainstSchema(ctx context.Context, schemaName string, data interface{}) error {
	schema, ok := sr.GetSchema(schemaName)
	if !ok {
		return fmt.Errorf("schema %s not found", schemaName)
	}

	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	unified := schema.Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// ListSchemas returns all registered schema names.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	return names
}

// Built-in schema definitions

const builtinConfigSchema = `
// Tool configuration schema
#Config: {
	rules?: {
		paths?: [...string]
		disable_builtin?: bool
	}
	evaluation?: {
		dialect?: "terraform-hcl" | "kubernetes-yaml" | "rego"
		max_depth?: int & >0
		starlark_timeout_seconds?: int & >0
	}
	report?: {
		format?: "json" | "text"
		scoring?: "binary" | "rubric"
		color?: "auto" | "always" | "never"
	}
	telemetry?: {
		log_level?: "trace" | "debug" | "info" | "warn" | "error"
		log_format?: "json" | "console"
		metrics_enabled?: bool
		metrics_addr?: string
		tracing_enabled?: bool
		otlp_endpoint?: string
		sample_rate?: float & >=0 & <=1
	}
}
`

const builtinRuleSchema = `
// Conformance rule file schema
#Condition: {
	path: string & !=""
	equals?: _
	one_of?: [..._]
	pattern?: string
	starlark?: string
	rego?: string
}

#Override: {
	path: string & !=""
	equals?: _
}

#Rule: {
	id: string & =~"^[a-zA-Z0-9_.-]+$"
	description?: string
	kind: string & !=""
	optional?: bool
	required?: [...#Condition]
	forbidden?: [...#Override]
	tags?: [...string]
}

#File: {
	version: 1
	rules: [...#Rule]
}
`
