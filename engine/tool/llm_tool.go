package tool

import (
	"context"
	"encoding/json"

	"github.com/quillflow/quillflow/engine/core"
	"github.com/quillflow/quillflow/engine/llm"
	"github.com/quillflow/quillflow/engine/prompt"
	"github.com/quillflow/quillflow/pkg/logger"
)

// TemplateSource looks up prompt templates by ID. Implementations return a
// TEMPLATE_NOT_FOUND coded error for unknown IDs.
type TemplateSource interface {
	GetPromptTemplate(ctx context.Context, id core.ID) (*prompt.Config, error)
}

// llmTool executes by compiling its prompt template with the call's inputs
// and sending the result to the model. Its signature is derived from the
// template at read time, never stored.
type llmTool struct {
	cfg       *Config
	templates TemplateSource
	compiler  *prompt.Compiler
	client    llm.Client
}

func NewLLMTool(cfg *Config, templates TemplateSource, compiler *prompt.Compiler, client llm.Client) Definition {
	return &llmTool{cfg: cfg, templates: templates, compiler: compiler, client: client}
}

func (t *llmTool) ID() core.ID  { return t.cfg.ID }
func (t *llmTool) Name() string { return t.cfg.Name }
func (t *llmTool) Type() Type   { return TypeLLM }

// Signature derives from the current template. A tool with no template
// attached reports the empty signature rather than failing.
func (t *llmTool) Signature(ctx context.Context) (Signature, error) {
	tpl, err := t.template(ctx)
	if err != nil {
		if core.IsCode(err, core.CodeTemplateNotFound) {
			return Signature{}, nil
		}
		return Signature{}, err
	}
	return DeriveSignature(tpl), nil
}

func (t *llmTool) Call(ctx context.Context, input core.Input) (core.Output, error) {
	log := logger.FromContext(ctx)
	tpl, err := t.template(ctx)
	if err != nil {
		return nil, err
	}
	messages, err := t.compiler.Compile(ctx, tpl, input)
	if err != nil {
		return nil, err
	}
	text, err := t.client.GenerateText(ctx, messages, t.cfg.Options)
	if err != nil {
		return nil, err
	}
	log.Debug("llm tool responded", "tool", t.cfg.Name, "response_chars", len(text))

	response, err := parseResponse(tpl, text)
	if err != nil {
		return nil, err
	}
	return core.Output{"response": response}, nil
}

func (t *llmTool) template(ctx context.Context) (*prompt.Config, error) {
	if t.cfg.PromptTemplateID.IsZero() {
		return nil, core.Errorf(core.CodeTemplateNotFound,
			"tool %q has no prompt template attached", t.cfg.Name)
	}
	return t.templates.GetPromptTemplate(ctx, t.cfg.PromptTemplateID)
}

// parseResponse decodes the raw completion according to the template's output
// schema. Object schemas require valid JSON; everything else passes through
// as text.
func parseResponse(tpl *prompt.Config, text string) (any, error) {
	if !tpl.OutputSchema.IsObject() {
		return text, nil
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, core.Errorf(core.CodeInvalidLLMResponse,
			"expected a JSON object response: %v", err).
			WithDetail("raw_response", text)
	}
	return decoded, nil
}
