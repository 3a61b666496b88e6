package schema

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonschema"
)

// Schema is a raw JSON-schema document.
type Schema map[string]any

func (s Schema) String() string {
	bytes, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(bytes)
}

func (s Schema) Compile() (*jsonschema.Schema, error) {
	bytes, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	compiled, err := jsonschema.NewCompiler().Compile(bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return compiled, nil
}

func (s Schema) Validate(value any) error {
	if s == nil {
		return nil
	}
	compiled, err := s.Compile()
	if err != nil {
		return err
	}
	result := compiled.Validate(value)
	if result.Valid {
		return nil
	}
	return fmt.Errorf("schema validation failed: %v", result.Errors)
}

// ValidateValue checks a concrete value against a declared value schema.
func ValidateValue(vs *ValueSchema, value any) error {
	if vs == nil {
		return nil
	}
	return Schema(vs.JSONSchema()).Validate(value)
}
