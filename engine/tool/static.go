package tool

import (
	"context"

	"github.com/quillflow/quillflow/engine/core"
)

// Invoker is the handler body of a static tool.
type Invoker func(ctx context.Context, input core.Input) (core.Output, error)

// staticTool runs a registered handler against a declared signature. Unlike
// LLM tools, the signature is fixed at registration time.
type staticTool struct {
	cfg    *Config
	invoke Invoker
}

func NewStaticTool(cfg *Config, invoke Invoker) Definition {
	return &staticTool{cfg: cfg, invoke: invoke}
}

func (t *staticTool) ID() core.ID  { return t.cfg.ID }
func (t *staticTool) Name() string { return t.cfg.Name }
func (t *staticTool) Type() Type   { return t.cfg.Type }

func (t *staticTool) Signature(_ context.Context) (Signature, error) {
	if t.cfg.Signature == nil {
		return Signature{}, nil
	}
	return *t.cfg.Signature, nil
}

func (t *staticTool) Call(ctx context.Context, input core.Input) (core.Output, error) {
	if t.cfg.Signature != nil {
		for _, param := range t.cfg.Signature.Parameters {
			if !param.Required {
				continue
			}
			if value, ok := input[param.Name]; !ok || value == nil {
				return nil, core.Errorf(core.CodeInvalidStepConfiguration,
					"tool %q: required parameter %q is missing", t.cfg.Name, param.Name)
			}
		}
	}
	return t.invoke(ctx, input)
}
