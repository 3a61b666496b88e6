package workflow

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/quillflow/quillflow/engine/prompt"
	"github.com/quillflow/quillflow/engine/tool"
)

// Bundle is a YAML document holding workflow definitions together with the
// tools and prompt templates they reference. It is the file format the CLI
// loads and the seed format for stores.
type Bundle struct {
	Workflows []*Config        `yaml:"workflows"`
	Tools     []*tool.Config   `yaml:"tools"`
	Templates []*prompt.Config `yaml:"prompt_templates"`
}

// ParseBundle decodes and validates a bundle document.
func ParseBundle(data []byte) (*Bundle, error) {
	var bundle Bundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("parsing bundle: %w", err)
	}
	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	return &bundle, nil
}

// LoadBundle reads and parses a bundle file.
func LoadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bundle %s: %w", path, err)
	}
	bundle, err := ParseBundle(data)
	if err != nil {
		return nil, fmt.Errorf("bundle %s: %w", path, err)
	}
	return bundle, nil
}

func (b *Bundle) Validate() error {
	for _, tpl := range b.Templates {
		if err := tpl.Validate(); err != nil {
			return err
		}
	}
	for _, t := range b.Tools {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	for _, wf := range b.Workflows {
		if err := wf.Validate(); err != nil {
			return err
		}
	}
	return nil
}
