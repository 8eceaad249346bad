package loader

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/BaSui01/adaptiverag/types"
)

// CSVParserConfig configures the CSV parser.
type CSVParserConfig struct {
	// Delimiter is the field separator. Defaults to ','.
	Delimiter rune
	// RowsPerDocument controls how many rows are grouped into a single Document.
	// 0 or 1 means each row becomes its own Document.
	RowsPerDocument int
	// ContentColumns lists column names (from the header) to include in the content.
	// If empty, all columns are used.
	ContentColumns []string
}

// CSVParser parses CSV bodies. The first row is the header; each row (or group) becomes a Document
// rendered as "column: value" lines.
type CSVParser struct {
	config CSVParserConfig
}

// NewCSVParser creates a CSVParser with the given config.
func NewCSVParser(config CSVParserConfig) *CSVParser {
	if config.Delimiter == 0 {
		config.Delimiter = ','
	}
	if config.RowsPerDocument <= 0 {
		config.RowsPerDocument = 1
	}
	return &CSVParser{config: config}
}

// Parse reads CSV records and returns Documents.
func (p *CSVParser) Parse(ctx context.Context, source string, body []byte) ([]types.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(body))
	reader.Comma = p.config.Delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv parser: parsing %s: %w", source, err)
	}
	if len(records) < 2 {
		// 只有表头或为空
		return []types.Document{}, nil
	}

	header := records[0]
	rows := records[1:]
	columns := p.resolveContentColumns(header)

	var docs []types.Document
	for i := 0; i < len(rows); i += p.config.RowsPerDocument {
		end := min(i+p.config.RowsPerDocument, len(rows))

		var blocks []string
		for _, row := range rows[i:end] {
			var lines []string
			for _, idx := range columns {
				if idx < len(row) {
					lines = append(lines, header[idx]+": "+row[idx])
				}
			}
			blocks = append(blocks, strings.Join(lines, "\n"))
		}

		meta := baseMetadata(source, "text/csv", "csv")
		meta["row_start"] = i
		meta["row_end"] = end - 1
		docs = append(docs, types.Document{PageContent: strings.Join(blocks, "\n\n"), Metadata: meta})
	}

	return docs, nil
}

// resolveContentColumns returns column indices to include in content.
func (p *CSVParser) resolveContentColumns(header []string) []int {
	all := func() []int {
		indices := make([]int, len(header))
		for i := range header {
			indices[i] = i
		}
		return indices
	}
	if len(p.config.ContentColumns) == 0 {
		return all()
	}

	wanted := make(map[string]bool, len(p.config.ContentColumns))
	for _, col := range p.config.ContentColumns {
		wanted[strings.ToLower(col)] = true
	}

	var indices []int
	for i, h := range header {
		if wanted[strings.ToLower(h)] {
			indices = append(indices, i)
		}
	}
	if len(indices) == 0 {
		return all()
	}
	return indices
}

func (p *CSVParser) MediaTypes() []string { return []string{"text/csv"} }

func (p *CSVParser) Extensions() []string { return []string{".csv"} }
