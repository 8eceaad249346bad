package loader

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/adaptiverag/types"
	pdf "github.com/ledongthuc/pdf"
)

// PDFParser extracts plain text from PDF bodies, one Document per non-blank page.
type PDFParser struct{}

// NewPDFParser creates a PDFParser.
func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

// Parse reads each page's plain text. Malformed files return an error instead of panicking.
func (p *PDFParser) Parse(ctx context.Context, source string, body []byte) (docs []types.Document, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// pdf 库对损坏文件可能 panic
	defer func() {
		if r := recover(); r != nil {
			docs, err = nil, fmt.Errorf("pdf parser: malformed pdf %s: %v", source, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("pdf parser: opening %s: %w", source, err)
	}

	total := reader.NumPage()
	docs = make([]types.Document, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("pdf parser: page %d of %s: %w", i, source, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		meta := baseMetadata(source, "application/pdf", "pdf")
		meta["page"] = i
		meta["total_pages"] = total
		docs = append(docs, types.Document{PageContent: text, Metadata: meta})
	}
	return docs, nil
}

func (p *PDFParser) MediaTypes() []string { return []string{"application/pdf"} }

func (p *PDFParser) Extensions() []string { return []string{".pdf"} }
