package tool

import (
	"github.com/quillflow/quillflow/engine/core"
	"github.com/quillflow/quillflow/engine/llm"
	"github.com/quillflow/quillflow/engine/prompt"
)

// InvokerLookup resolves a static tool's handler name to its implementation.
type InvokerLookup func(handler string) (Invoker, bool)

// Factory turns persisted tool configs into runnable definitions, closing
// over the collaborators LLM tools need.
type Factory struct {
	templates TemplateSource
	compiler  *prompt.Compiler
	client    llm.Client
	invokers  InvokerLookup
}

func NewFactory(templates TemplateSource, compiler *prompt.Compiler, client llm.Client, invokers InvokerLookup) *Factory {
	return &Factory{templates: templates, compiler: compiler, client: client, invokers: invokers}
}

func (f *Factory) Build(cfg *Config) (Definition, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Type == TypeLLM {
		return NewLLMTool(cfg, f.templates, f.compiler, f.client), nil
	}
	invoke, ok := f.invokers(cfg.Handler)
	if !ok {
		return nil, core.Errorf(core.CodeInvalidStepConfiguration,
			"tool %q names unregistered handler %q", cfg.Name, cfg.Handler)
	}
	return NewStaticTool(cfg, invoke), nil
}
