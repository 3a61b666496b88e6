package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSchema_Validate(t *testing.T) {
	t.Run("Should accept every known type", func(t *testing.T) {
		for _, typ := range []ValueType{TypeString, TypeNumber, TypeBoolean, TypeFile, TypeObject} {
			vs := &ValueSchema{Type: typ}
			assert.NoError(t, vs.Validate())
		}
	})
	t.Run("Should reject unknown types", func(t *testing.T) {
		vs := &ValueSchema{Type: "tuple"}
		assert.ErrorContains(t, vs.Validate(), "unknown value type")
	})
	t.Run("Should reject fields on non-object schemas", func(t *testing.T) {
		vs := &ValueSchema{Type: TypeString, Fields: map[string]*ValueSchema{"x": {Type: TypeString}}}
		assert.ErrorContains(t, vs.Validate(), "only valid on object")
	})
	t.Run("Should validate nested object fields", func(t *testing.T) {
		vs := &ValueSchema{Type: TypeObject, Fields: map[string]*ValueSchema{
			"score": {Type: "wat"},
		}}
		assert.ErrorContains(t, vs.Validate(), `field "score"`)
	})
}

func TestValueSchema_JSONSchema(t *testing.T) {
	t.Run("Should render scalar types", func(t *testing.T) {
		assert.Equal(t, map[string]any{"type": "number"}, (&ValueSchema{Type: TypeNumber}).JSONSchema())
		assert.Equal(t, map[string]any{"type": "string"}, (&ValueSchema{Type: TypeString}).JSONSchema())
	})
	t.Run("Should render file values as strings", func(t *testing.T) {
		assert.Equal(t, map[string]any{"type": "string"}, (&ValueSchema{Type: TypeFile}).JSONSchema())
	})
	t.Run("Should wrap arrays", func(t *testing.T) {
		got := (&ValueSchema{Type: TypeString, IsArray: true}).JSONSchema()
		assert.Equal(t, "array", got["type"])
		assert.Equal(t, map[string]any{"type": "string"}, got["items"])
	})
	t.Run("Should expand object fields into properties", func(t *testing.T) {
		vs := &ValueSchema{Type: TypeObject, Fields: map[string]*ValueSchema{
			"answer": {Type: TypeString},
			"score":  {Type: TypeNumber},
		}}
		got := vs.JSONSchema()
		props, ok := got["properties"].(map[string]any)
		require.True(t, ok)
		assert.Len(t, props, 2)
	})
}

func TestValidateValue(t *testing.T) {
	t.Run("Should accept matching values", func(t *testing.T) {
		assert.NoError(t, ValidateValue(&ValueSchema{Type: TypeNumber}, 42.0))
		assert.NoError(t, ValidateValue(&ValueSchema{Type: TypeString}, "hello"))
		assert.NoError(t, ValidateValue(&ValueSchema{Type: TypeString, IsArray: true}, []any{"a", "b"}))
	})
	t.Run("Should reject mismatched values", func(t *testing.T) {
		assert.Error(t, ValidateValue(&ValueSchema{Type: TypeNumber}, "not a number"))
		assert.Error(t, ValidateValue(&ValueSchema{Type: TypeBoolean, IsArray: true}, "nope"))
	})
	t.Run("Should accept anything without a schema", func(t *testing.T) {
		assert.NoError(t, ValidateValue(nil, map[string]any{"free": "form"}))
	})
}
