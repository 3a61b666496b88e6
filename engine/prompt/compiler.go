package prompt

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/quillflow/quillflow/engine/core"
	"github.com/quillflow/quillflow/pkg/logger"
)

// arrayDelimiter joins array-valued string tokens before substitution.
const arrayDelimiter = " | "

// Compiler turns a template plus bound token values into ordered chat
// messages: at most one system message followed by exactly one user message.
// File tokens split the user body into text and image parts in textual order.
type Compiler struct {
	files FileSource
}

func NewCompiler(files FileSource) *Compiler {
	return &Compiler{files: files}
}

// Compile resolves every token of cfg against values and assembles the
// message list handed to the LLM client.
func (c *Compiler) Compile(ctx context.Context, cfg *Config, values map[string]any) ([]llms.MessageContent, error) {
	userText := cfg.UserTemplate
	systemText := cfg.SystemTemplate

	var fileTokens []Token
	for _, tok := range cfg.Tokens {
		switch tok.Type {
		case TokenFile:
			fileTokens = append(fileTokens, tok)
		default:
			substituted, err := substituteToken(userText, systemText, tok, values)
			if err != nil {
				return nil, err
			}
			userText, systemText = substituted[0], substituted[1]
		}
	}

	var messages []llms.MessageContent
	if strings.TrimSpace(systemText) != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, systemText))
	}

	if len(fileTokens) == 0 {
		// No file tokens: the user content collapses to a single text part.
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, userText))
		return messages, nil
	}

	parts, err := c.materializeFileTokens(ctx, userText, fileTokens, values)
	if err != nil {
		return nil, err
	}
	messages = append(messages, llms.MessageContent{Role: llms.ChatMessageTypeHuman, Parts: parts})
	return messages, nil
}

// substituteToken replaces every occurrence of a string token's placeholder
// in the user and system bodies.
func substituteToken(userText, systemText string, tok Token, values map[string]any) ([2]string, error) {
	value, ok := values[tok.Name]
	if !ok || value == nil {
		if !tok.Optional {
			return [2]string{}, core.Errorf(core.CodeMissingToken,
				"required token %q has no bound value", tok.Name)
		}
		value = ""
	}
	pattern := placeholderPattern(tok.Name)
	rendered := Stringify(value)
	return [2]string{
		pattern.ReplaceAllLiteralString(userText, rendered),
		pattern.ReplaceAllLiteralString(systemText, rendered),
	}, nil
}

// materializeFileTokens splits the user body on file-token markers in textual
// order, emitting the surrounding text, each file's extracted text, and one
// binary part per associated image.
func (c *Compiler) materializeFileTokens(
	ctx context.Context,
	text string,
	tokens []Token,
	values map[string]any,
) ([]llms.ContentPart, error) {
	log := logger.FromContext(ctx)
	var parts []llms.ContentPart
	for {
		tok, start, end := earliestMarker(text, tokens)
		if tok == nil {
			break
		}
		if head := text[:start]; strings.TrimSpace(head) != "" {
			parts = append(parts, llms.TextPart(head))
		}
		text = text[end:]

		value, ok := values[tok.Name]
		if !ok || value == nil {
			if tok.Optional {
				continue
			}
			return nil, core.Errorf(core.CodeMissingToken,
				"required token %q has no bound value", tok.Name)
		}
		filePart, imageParts, err := c.loadFileParts(ctx, core.ID(Stringify(value)))
		if err != nil {
			return nil, fmt.Errorf("materializing token %q: %w", tok.Name, err)
		}
		parts = append(parts, filePart...)
		parts = append(parts, imageParts...)
		log.Debug("materialized file token",
			"token", tok.Name, "text_parts", len(filePart), "images", len(imageParts))
	}
	if strings.TrimSpace(text) != "" {
		parts = append(parts, llms.TextPart(text))
	}
	return parts, nil
}

func (c *Compiler) loadFileParts(ctx context.Context, fileID core.ID) ([]llms.ContentPart, []llms.ContentPart, error) {
	file, err := c.files.GetFile(ctx, fileID)
	if err != nil {
		if core.IsCode(err, core.CodeFileNotFound) {
			return nil, nil, err
		}
		return nil, nil, core.NewError(err, core.CodeFileNotFound, map[string]any{"file_id": fileID.String()})
	}
	var textParts []llms.ContentPart
	if text := file.Text(); strings.TrimSpace(text) != "" {
		textParts = append(textParts, llms.TextPart(text))
	}
	images, err := c.files.GetFileImages(ctx, fileID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading images for file %s: %w", fileID, err)
	}
	var imageParts []llms.ContentPart
	for _, img := range images {
		imageParts = append(imageParts, llms.BinaryPart(img.MimeType, img.Data))
	}
	return textParts, imageParts, nil
}

// earliestMarker returns the file token whose placeholder occurs first in
// text, with the match bounds.
func earliestMarker(text string, tokens []Token) (*Token, int, int) {
	best := -1
	var bestTok *Token
	var bestEnd int
	for i := range tokens {
		loc := placeholderPattern(tokens[i].Name).FindStringIndex(text)
		if loc == nil {
			continue
		}
		if best == -1 || loc[0] < best {
			best, bestEnd, bestTok = loc[0], loc[1], &tokens[i]
		}
	}
	if bestTok == nil {
		return nil, 0, 0
	}
	return bestTok, best, bestEnd
}

// Stringify renders a bound value for inline substitution. Arrays join with
// the " | " delimiter.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, arrayDelimiter)
	case []any:
		rendered := make([]string, len(v))
		for i, elem := range v {
			rendered[i] = Stringify(elem)
		}
		return strings.Join(rendered, arrayDelimiter)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
