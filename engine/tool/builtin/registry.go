package builtin

import (
	"github.com/go-resty/resty/v2"

	"github.com/quillflow/quillflow/engine/tool"
)

// Registry bundles the built-in static tools shipped with the engine.
type Registry struct {
	configs  []*tool.Config
	invokers map[string]tool.Invoker
}

// NewRegistry wires the built-in handlers. The resty client is shared across
// every HTTP-backed tool; pass nil to use a default client.
func NewRegistry(client *resty.Client, pubmedAPIKey string) *Registry {
	pubmed := NewPubMedSearch(client, pubmedAPIKey)
	return &Registry{
		configs: []*tool.Config{
			pubmed.Config(),
			EchoConfig(),
			ConcatConfig(),
		},
		invokers: map[string]tool.Invoker{
			"pubmed_search": pubmed.Invoke,
			"echo":          Echo,
			"concat":        Concat,
		},
	}
}

// Configs returns the tool configurations to seed into a store.
func (r *Registry) Configs() []*tool.Config {
	return r.configs
}

// Invoker returns the handler registered under the given name.
func (r *Registry) Invoker(handler string) (tool.Invoker, bool) {
	invoke, ok := r.invokers[handler]
	return invoke, ok
}

// Definitions builds runnable tools for every built-in config.
func (r *Registry) Definitions() []tool.Definition {
	defs := make([]tool.Definition, 0, len(r.configs))
	for _, cfg := range r.configs {
		defs = append(defs, tool.NewStaticTool(cfg, r.invokers[cfg.Handler]))
	}
	return defs
}
