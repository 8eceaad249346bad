package loader

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BaSui01/adaptiverag/types"
)

// JSONParserConfig configures the JSON/JSONL parser.
type JSONParserConfig struct {
	// ContentField is the JSON field name to use as the Document content.
	// If empty, the entire JSON object is serialized as content.
	ContentField string
}

// JSONParser parses JSON (single object or array) and JSON Lines bodies.
type JSONParser struct {
	config JSONParserConfig
}

// NewJSONParser creates a JSONParser.
func NewJSONParser(config JSONParserConfig) *JSONParser {
	return &JSONParser{config: config}
}

// Parse decodes body; JSONL is detected from the extension or from a leading object per line.
func (p *JSONParser) Parse(ctx context.Context, source string, body []byte) ([]types.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := bytes.TrimSpace(body)
	if len(data) == 0 {
		return []types.Document{}, nil
	}
	if extensionOf(source) == ".jsonl" {
		return p.parseLines(source, data)
	}

	if data[0] == '[' {
		var items []map[string]any
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("json parser: parsing array in %s: %w", source, err)
		}
		return p.objectsToDocs(source, items), nil
	}

	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		if bytes.ContainsRune(data, '\n') {
			return p.parseLines(source, data)
		}
		return nil, fmt.Errorf("json parser: parsing object in %s: %w", source, err)
	}
	return p.objectsToDocs(source, []map[string]any{obj}), nil
}

// parseLines handles JSON Lines (one object per line).
func (p *JSONParser) parseLines(source string, data []byte) ([]types.Document, error) {
	var items []map[string]any
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			return nil, fmt.Errorf("jsonl parser: line %d in %s: %w", lineNum, source, err)
		}
		items = append(items, obj)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("jsonl parser: reading %s: %w", source, err)
	}
	return p.objectsToDocs(source, items), nil
}

func (p *JSONParser) objectsToDocs(source string, items []map[string]any) []types.Document {
	docs := make([]types.Document, 0, len(items))
	for i, obj := range items {
		meta := baseMetadata(source, "application/json", "json")
		meta["index"] = i
		docs = append(docs, types.Document{PageContent: p.extractContent(obj), Metadata: meta})
	}
	return docs
}

func (p *JSONParser) extractContent(obj map[string]any) string {
	if p.config.ContentField != "" {
		if val, ok := obj[p.config.ContentField]; ok {
			return fmt.Sprintf("%v", val)
		}
	}
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Sprintf("%v", obj)
	}
	return string(data)
}

func (p *JSONParser) MediaTypes() []string {
	return []string{"application/json", "application/x-ndjson", "application/jsonl"}
}

func (p *JSONParser) Extensions() []string { return []string{".json", ".jsonl"} }
