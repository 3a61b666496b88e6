package store

import (
	"fmt"

	"github.com/quillflow/quillflow/engine/tool"
	"github.com/quillflow/quillflow/engine/workflow"
)

// SeedBundle loads a parsed bundle into the store, building runnable tool
// definitions through the factory. Templates load first so LLM tools can
// derive their signatures immediately.
func (m *Memory) SeedBundle(bundle *workflow.Bundle, factory *tool.Factory) error {
	for _, tpl := range bundle.Templates {
		m.PutPromptTemplate(tpl)
	}
	for _, cfg := range bundle.Tools {
		def, err := factory.Build(cfg)
		if err != nil {
			return fmt.Errorf("building tool %q: %w", cfg.Name, err)
		}
		m.PutTool(def)
	}
	for _, cfg := range bundle.Workflows {
		m.PutWorkflow(cfg)
	}
	return nil
}

// SeedBuiltins registers every built-in definition.
func (m *Memory) SeedBuiltins(defs []tool.Definition) {
	for _, def := range defs {
		m.PutTool(def)
	}
}
