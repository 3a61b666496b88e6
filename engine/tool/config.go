package tool

import (
	"context"
	"fmt"

	"github.com/quillflow/quillflow/engine/core"
	"github.com/quillflow/quillflow/engine/llm"
)

// Type discriminates how a tool produces its outputs.
type Type string

const (
	TypeLLM      Type = "llm"
	TypeSearch   Type = "search"
	TypeRetrieve Type = "retrieve"
	TypeUtility  Type = "utility"
)

// Config is the persisted description of a tool. LLM tools reference the
// prompt template their behavior and signature derive from; static tools
// carry a declared signature and name a registered handler.
type Config struct {
	ID               core.ID      `json:"tool_id"                      yaml:"tool_id"`
	Name             string       `json:"name"                         yaml:"name"`
	Description      string       `json:"description,omitempty"        yaml:"description,omitempty"`
	Type             Type         `json:"tool_type"                    yaml:"tool_type"`
	PromptTemplateID core.ID      `json:"prompt_template_id,omitempty" yaml:"prompt_template_id,omitempty"`
	Handler          string       `json:"handler,omitempty"            yaml:"handler,omitempty"`
	Signature        *Signature   `json:"signature,omitempty"          yaml:"signature,omitempty"`
	Options          *llm.Options `json:"options,omitempty"            yaml:"options,omitempty"`
}

func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("tool %s: name is required", c.ID)
	}
	switch c.Type {
	case TypeLLM:
		// Template may be attached later; an LLM tool without one simply
		// reports an empty signature.
	case TypeSearch, TypeRetrieve, TypeUtility:
		if c.Handler == "" {
			return fmt.Errorf("tool %s: %s tools require a handler", c.ID, c.Type)
		}
	default:
		return fmt.Errorf("tool %s: unknown tool type %q", c.ID, c.Type)
	}
	return nil
}

// Definition is a runnable tool. Signature is computed per call so LLM tools
// always reflect the current state of their template.
type Definition interface {
	ID() core.ID
	Name() string
	Type() Type
	Signature(ctx context.Context) (Signature, error)
	Call(ctx context.Context, input core.Input) (core.Output, error)
}
