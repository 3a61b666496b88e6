package schema

import "fmt"

// -----------------------------------------------------------------------------
// Value Schema
// -----------------------------------------------------------------------------

// ValueType is the discriminant of a value schema.
type ValueType string

const (
	TypeString  ValueType = "string"
	TypeNumber  ValueType = "number"
	TypeBoolean ValueType = "boolean"
	TypeFile    ValueType = "file"
	TypeObject  ValueType = "object"
)

// ValueSchema describes the shape of one workflow value: a required type
// discriminant plus optional type-specific extensions. File schemas may
// constrain format and accepted content types; object schemas carry named
// fields.
type ValueSchema struct {
	Type         ValueType               `json:"type"                    yaml:"type"`
	IsArray      bool                    `json:"is_array,omitempty"      yaml:"is_array,omitempty"`
	Description  string                  `json:"description,omitempty"   yaml:"description,omitempty"`
	Format       string                  `json:"format,omitempty"        yaml:"format,omitempty"`
	ContentTypes []string                `json:"content_types,omitempty" yaml:"content_types,omitempty"`
	Fields       map[string]*ValueSchema `json:"fields,omitempty"        yaml:"fields,omitempty"`
}

func (s *ValueSchema) Validate() error {
	if s == nil {
		return nil
	}
	switch s.Type {
	case TypeString, TypeNumber, TypeBoolean, TypeFile, TypeObject:
	default:
		return fmt.Errorf("unknown value type: %q", s.Type)
	}
	if s.Type != TypeObject && len(s.Fields) > 0 {
		return fmt.Errorf("fields are only valid on object schemas, got %q", s.Type)
	}
	for name, field := range s.Fields {
		if err := field.Validate(); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
	}
	return nil
}

// IsObject reports whether the schema describes a structured value whose raw
// LLM response must parse as JSON.
func (s *ValueSchema) IsObject() bool {
	return s != nil && s.Type == TypeObject
}

// JSONSchema renders the value schema as a plain JSON-schema document, used
// to validate run inputs. File values travel as file-ID strings on the wire.
func (s *ValueSchema) JSONSchema() map[string]any {
	if s == nil {
		return map[string]any{}
	}
	item := s.itemJSONSchema()
	if s.IsArray {
		return map[string]any{"type": "array", "items": item}
	}
	return item
}

func (s *ValueSchema) itemJSONSchema() map[string]any {
	switch s.Type {
	case TypeNumber:
		return map[string]any{"type": "number"}
	case TypeBoolean:
		return map[string]any{"type": "boolean"}
	case TypeObject:
		props := make(map[string]any, len(s.Fields))
		for name, field := range s.Fields {
			props[name] = field.JSONSchema()
		}
		return map[string]any{"type": "object", "properties": props}
	default:
		// string and file both travel as strings
		return map[string]any{"type": "string"}
	}
}
