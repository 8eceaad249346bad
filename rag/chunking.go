package rag

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/BaSui01/adaptiverag/types"
	"go.uber.org/zap"
)

// ChunkingConfig 分块配置，长度按字符（rune）计。
type ChunkingConfig struct {
	ChunkSize    int      `json:"chunk_size"`
	ChunkOverlap int      `json:"chunk_overlap"`
	Separators   []string `json:"separators,omitempty"`
}

// DefaultChunkingConfig 默认分块配置：500 字符，重叠 50。
func DefaultChunkingConfig() ChunkingConfig {
	return ChunkingConfig{
		ChunkSize:    500,
		ChunkOverlap: 50,
		Separators:   DefaultSeparators(),
	}
}

// DefaultSeparators 分隔符优先级：段落 > 行 > 单词 > 字符
func DefaultSeparators() []string {
	return []string{"\n\n", "\n", " ", ""}
}

// Validate checks size and overlap.
func (c ChunkingConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d", c.ChunkOverlap)
	}
	return nil
}

// DocumentChunker 递归字符分块器：优先在高级分隔符处切分，
// 超长片段再用下一级分隔符切分，相邻块之间保留重叠。
type DocumentChunker struct {
	config ChunkingConfig
	logger *zap.Logger
}

// NewDocumentChunker 创建文档分块器
func NewDocumentChunker(config ChunkingConfig, logger *zap.Logger) (*DocumentChunker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if len(config.Separators) == 0 {
		config.Separators = DefaultSeparators()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentChunker{config: config, logger: logger}, nil
}

// SplitDocuments 分块并为每块复制源文档的元数据。
func (c *DocumentChunker) SplitDocuments(docs []types.Document) []types.Document {
	out := make([]types.Document, 0, len(docs))
	for _, doc := range docs {
		for _, chunk := range c.SplitText(doc.PageContent) {
			out = append(out, types.NewDocument(chunk, doc.Clone().Metadata))
		}
	}
	c.logger.Debug("documents chunked",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(out)),
		zap.Int("chunk_size", c.config.ChunkSize),
		zap.Int("overlap", c.config.ChunkOverlap))
	return out
}

// SplitText 将文本切分为若干块。
func (c *DocumentChunker) SplitText(text string) []string {
	return c.split(text, c.config.Separators)
}

func (c *DocumentChunker) split(text string, separators []string) []string {
	// 选出文本中出现的第一个分隔符
	separator := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			rest = separators[i+1:]
			break
		}
	}

	var final, good []string
	for _, piece := range splitKeepSeparator(text, separator) {
		if runeLen(piece) < c.config.ChunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, c.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, c.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, c.merge(good)...)
	}
	return final
}

// merge 把小片段拼成不超过 ChunkSize 的块，块间保留至多 ChunkOverlap 的尾部片段。
func (c *DocumentChunker) merge(pieces []string) []string {
	var docs, current []string
	total := 0
	for _, p := range pieces {
		n := runeLen(p)
		if total+n > c.config.ChunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				docs = append(docs, doc)
			}
			for total > c.config.ChunkOverlap || (total+n > c.config.ChunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
	}
	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeepSeparator 按 sep 切分，分隔符保留在后一段的开头；sep 为空时按字符切分。
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
