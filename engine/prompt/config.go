package prompt

import (
	"fmt"
	"regexp"

	"github.com/quillflow/quillflow/engine/core"
	"github.com/quillflow/quillflow/engine/schema"
)

// -----------------------------------------------------------------------------
// Tokens
// -----------------------------------------------------------------------------

type TokenType string

const (
	TokenString TokenType = "string"
	TokenFile   TokenType = "file"
)

// Token is a named placeholder in a template body. String tokens substitute
// inline; file tokens materialize into extracted text and image segments.
type Token struct {
	Name         string    `json:"name"                    yaml:"name"`
	Type         TokenType `json:"type"                    yaml:"type"`
	Description  string    `json:"description,omitempty"   yaml:"description,omitempty"`
	Optional     bool      `json:"optional,omitempty"      yaml:"optional,omitempty"`
	Format       string    `json:"format,omitempty"        yaml:"format,omitempty"`
	ContentTypes []string  `json:"content_types,omitempty" yaml:"content_types,omitempty"`
}

// -----------------------------------------------------------------------------
// Template Config
// -----------------------------------------------------------------------------

// Config is a prompt template: a user message body, an optional system
// message body, the ordered token declarations, and the expected output
// schema of the LLM response.
type Config struct {
	ID             core.ID             `json:"template_id"               yaml:"template_id"`
	Name           string              `json:"name"                      yaml:"name"`
	Description    string              `json:"description,omitempty"     yaml:"description,omitempty"`
	UserTemplate   string              `json:"user_template"             yaml:"user_template"`
	SystemTemplate string              `json:"system_template,omitempty" yaml:"system_template,omitempty"`
	Tokens         []Token             `json:"tokens"                    yaml:"tokens"`
	OutputSchema   *schema.ValueSchema `json:"output_schema,omitempty"   yaml:"output_schema,omitempty"`
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Token returns the declared token with the given name.
func (c *Config) Token(name string) (*Token, bool) {
	for i := range c.Tokens {
		if c.Tokens[i].Name == name {
			return &c.Tokens[i], true
		}
	}
	return nil, false
}

// Validate checks that the template body only references declared tokens and
// that token declarations are well formed.
func (c *Config) Validate() error {
	if c.UserTemplate == "" {
		return fmt.Errorf("template %s: user template is empty", c.ID)
	}
	seen := make(map[string]bool, len(c.Tokens))
	for _, tok := range c.Tokens {
		if tok.Name == "" {
			return fmt.Errorf("template %s: token with empty name", c.ID)
		}
		if tok.Type != TokenString && tok.Type != TokenFile {
			return fmt.Errorf("template %s: token %q has unknown type %q", c.ID, tok.Name, tok.Type)
		}
		if seen[tok.Name] {
			return fmt.Errorf("template %s: duplicate token %q", c.ID, tok.Name)
		}
		seen[tok.Name] = true
	}
	for _, name := range referencedTokens(c.UserTemplate) {
		if !seen[name] {
			return fmt.Errorf("template %s: body references undeclared token %q", c.ID, name)
		}
	}
	for _, name := range referencedTokens(c.SystemTemplate) {
		if !seen[name] {
			return fmt.Errorf("template %s: system body references undeclared token %q", c.ID, name)
		}
	}
	if err := c.OutputSchema.Validate(); err != nil {
		return fmt.Errorf("template %s: output schema: %w", c.ID, err)
	}
	return nil
}

func referencedTokens(body string) []string {
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(body, -1) {
		names = append(names, m[1])
	}
	return names
}

func placeholderPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`\{\{\s*` + regexp.QuoteMeta(name) + `\s*\}\}`)
}
