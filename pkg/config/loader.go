package config

import (
	"context"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"github.com/go-playground/validator/v10"
)

// Loader parses and validates CUE configuration files.
type Loader struct {
	ctx            *cue.Context
	schemaRegistry *SchemaRegistry
	validator      *validator.Validate
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		ctx:            cuecontext.New(),
		schemaRegistry: NewSchemaRegistry(),
		validator:      validator.New(),
	}
}

// Load reads and validates a CUE configuration file. Defaults fill
// every field the file does not set.
func (l *Loader) Load(ctx context.Context, path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	return l.LoadInline(ctx, string(content), path)
}

// LoadInline parses CUE configuration from a string. The filename is
// used for error positions only.
func (l *Loader) LoadInline(ctx context.Context, content, filename string) (*Config, error) {
	val := l.ctx.CompileString(content, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, l.configError(filename, err)
	}

	// Unify with the schema so unknown fields and wrong types surface
	// with CUE positions before decoding.
	if schema, ok := l.schemaRegistry.GetSchema("config"); ok {
		val = schema.LookupPath(cue.ParsePath("#Config")).Unify(val)
		if err := val.Validate(); err != nil {
			return nil, l.configError(filename, err)
		}
	}

	cfg := Default()
	if err := val.Decode(cfg); err != nil {
		return nil, l.configError(filename, err)
	}

	if err := l.validator.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", filename, err)
	}

	return cfg, nil
}

// configError converts CUE errors into a single error carrying the
// first position found.
func (l *Loader) configError(filename string, err error) error {
	for _, e := range errors.Errors(err) {
		pos := errors.Positions(e)
		if len(pos) > 0 {
			return fmt.Errorf("invalid configuration at %s:%d:%d: %s",
				pos[0].Filename(), pos[0].Line(), pos[0].Column(), errors.Details(e, nil))
		}
	}
	return fmt.Errorf("invalid configuration in %s: %w", filename, err)
}

// SchemaRegistry returns the loader's schema registry.
func (l *Loader) SchemaRegistry() *SchemaRegistry {
	return l.schemaRegistry
}
