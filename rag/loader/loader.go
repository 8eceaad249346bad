package loader

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/BaSui01/adaptiverag/types"
)

// Parser turns a fetched body into documents.
type Parser interface {
	// Parse converts body into documents. source is the URL the body came from.
	Parse(ctx context.Context, source string, body []byte) ([]types.Document, error)

	// MediaTypes returns the MIME types this parser handles (e.g. "text/html").
	MediaTypes() []string

	// Extensions returns file extensions used when the server sends no useful Content-Type.
	Extensions() []string
}

// ParserRegistry routes bodies to a Parser by media type, falling back to the URL extension.
type ParserRegistry struct {
	mu     sync.RWMutex
	byType map[string]Parser
	byExt  map[string]Parser
}

// NewParserRegistry creates a registry pre-populated with the built-in parsers.
func NewParserRegistry() *ParserRegistry {
	r := &ParserRegistry{
		byType: make(map[string]Parser),
		byExt:  make(map[string]Parser),
	}
	builtins := []Parser{
		NewHTMLParser(),
		NewPDFParser(),
		NewTextParser(),
		NewMarkdownParser(),
		NewCSVParser(CSVParserConfig{}),
		NewJSONParser(JSONParserConfig{}),
	}
	for _, p := range builtins {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a parser for all of its media types and extensions.
func (r *ParserRegistry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, mt := range p.MediaTypes() {
		r.byType[strings.ToLower(mt)] = p
	}
	for _, ext := range p.Extensions() {
		r.byExt[strings.ToLower(ext)] = p
	}
}

// Resolve picks a parser for contentType, then for the extension of source.
// Generic types (application/octet-stream, empty) defer to the extension.
func (r *ParserRegistry) Resolve(contentType, source string) (Parser, error) {
	mediaType := ""
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			mediaType = strings.ToLower(mt)
		}
	}
	ext := extensionOf(source)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.byType[mediaType]; ok {
		return p, nil
	}
	if p, ok := r.byExt[ext]; ok {
		return p, nil
	}
	// text/* 未注册时按纯文本处理
	if strings.HasPrefix(mediaType, "text/") {
		if p, ok := r.byType["text/plain"]; ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("loader: no parser for content type %q (source %q)", contentType, source)
}

// Parse resolves a parser and runs it.
func (r *ParserRegistry) Parse(ctx context.Context, contentType, source string, body []byte) ([]types.Document, error) {
	p, err := r.Resolve(contentType, source)
	if err != nil {
		return nil, err
	}
	return p.Parse(ctx, source, body)
}

// MediaTypes returns all registered media types, sorted.
func (r *ParserRegistry) MediaTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byType))
	for mt := range r.byType {
		out = append(out, mt)
	}
	sort.Strings(out)
	return out
}

func extensionOf(source string) string {
	p := source
	if u, err := url.Parse(source); err == nil && u.Path != "" {
		p = u.Path
	}
	return strings.ToLower(path.Ext(p))
}

// baseMetadata is the metadata every parser sets.
func baseMetadata(source, contentType, loader string) map[string]any {
	return map[string]any{
		"source":       source,
		"content_type": contentType,
		"loader":       loader,
	}
}
