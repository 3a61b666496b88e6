package tool

import (
	"github.com/quillflow/quillflow/engine/prompt"
	"github.com/quillflow/quillflow/engine/schema"
)

// -----------------------------------------------------------------------------
// Signature
// -----------------------------------------------------------------------------

// Parameter is one named input a tool accepts.
type Parameter struct {
	Name        string              `json:"name"                  yaml:"name"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool                `json:"required"              yaml:"required"`
	Schema      *schema.ValueSchema `json:"schema,omitempty"      yaml:"schema,omitempty"`
}

// OutputField is one named output a tool produces.
type OutputField struct {
	Name        string              `json:"name"                  yaml:"name"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	Schema      *schema.ValueSchema `json:"schema,omitempty"      yaml:"schema,omitempty"`
}

// Signature declares what a tool accepts and produces. Workflow validation
// and parameter mapping read it; it never drives execution directly.
type Signature struct {
	Parameters []Parameter   `json:"parameters" yaml:"parameters"`
	Outputs    []OutputField `json:"outputs"    yaml:"outputs"`
}

// Parameter returns the declared parameter with the given name.
func (s *Signature) Parameter(name string) (*Parameter, bool) {
	for i := range s.Parameters {
		if s.Parameters[i].Name == name {
			return &s.Parameters[i], true
		}
	}
	return nil, false
}

// DeriveSignature computes an LLM tool's signature from its prompt template:
// one parameter per declared token and a single "response" output shaped by
// the template's output schema. A nil template yields the empty signature.
func DeriveSignature(tpl *prompt.Config) Signature {
	if tpl == nil {
		return Signature{}
	}
	sig := Signature{
		Parameters: make([]Parameter, 0, len(tpl.Tokens)),
	}
	for _, tok := range tpl.Tokens {
		sig.Parameters = append(sig.Parameters, Parameter{
			Name:        tok.Name,
			Description: tok.Description,
			Required:    !tok.Optional,
			Schema:      tokenSchema(tok),
		})
	}
	output := OutputField{Name: "response", Schema: &schema.ValueSchema{Type: schema.TypeString}}
	if tpl.OutputSchema != nil {
		output.Schema = tpl.OutputSchema
	}
	sig.Outputs = []OutputField{output}
	return sig
}

func tokenSchema(tok prompt.Token) *schema.ValueSchema {
	if tok.Type == prompt.TokenFile {
		return &schema.ValueSchema{
			Type:         schema.TypeFile,
			Format:       tok.Format,
			ContentTypes: tok.ContentTypes,
		}
	}
	return &schema.ValueSchema{Type: schema.TypeString, Format: tok.Format}
}
