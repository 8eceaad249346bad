package loader

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/BaSui01/adaptiverag/types"
)

// TextParser treats the body as a single plain text Document.
type TextParser struct{}

// NewTextParser creates a TextParser.
func NewTextParser() *TextParser {
	return &TextParser{}
}

// Parse returns the body as one Document, or none when it is blank.
func (p *TextParser) Parse(ctx context.Context, source string, body []byte) ([]types.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := string(body)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	if strings.TrimSpace(text) == "" {
		return []types.Document{}, nil
	}

	return []types.Document{
		types.NewDocument(text, baseMetadata(source, "text/plain", "text")),
	}, nil
}

func (p *TextParser) MediaTypes() []string { return []string{"text/plain"} }

func (p *TextParser) Extensions() []string { return []string{".txt"} }
