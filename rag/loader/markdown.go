package loader

import (
	"context"
	"strings"

	"github.com/BaSui01/adaptiverag/types"
)

// MarkdownParser 按 ATX 标题切分，每个标题连同其正文成为一个文档。
// 第一个标题之前的正文单独成文档；代码块里的 # 行不算标题。
type MarkdownParser struct{}

func NewMarkdownParser() *MarkdownParser { return &MarkdownParser{} }

func (*MarkdownParser) MediaTypes() []string { return []string{"text/markdown", "text/x-markdown"} }

func (*MarkdownParser) Extensions() []string { return []string{".md", ".markdown"} }

type mdSection struct {
	title string
	level int
	path  []string
	body  []string
}

func (s mdSection) text() string {
	body := strings.TrimSpace(strings.Join(s.body, "\n"))
	if s.level == 0 {
		return body
	}
	return strings.TrimSpace(strings.Repeat("#", s.level) + " " + s.title + "\n\n" + body)
}

func (p *MarkdownParser) Parse(ctx context.Context, source string, body []byte) ([]types.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		sections = []mdSection{{}}
		trail    []string // 当前各级标题
		fence    string
	)
	for _, line := range strings.Split(strings.ReplaceAll(string(body), "\r\n", "\n"), "\n") {
		if marker := fenceMarker(line); marker != "" {
			switch {
			case fence == "":
				fence = marker
			case strings.HasPrefix(marker, fence):
				fence = ""
			}
		}
		title, level := "", 0
		if fence == "" {
			title, level = parseHeading(line)
		}
		if level == 0 {
			cur := &sections[len(sections)-1]
			cur.body = append(cur.body, line)
			continue
		}
		if len(trail) >= level {
			trail = trail[:level-1]
		}
		trail = append(trail, title)
		sections = append(sections, mdSection{title: title, level: level, path: append([]string(nil), trail...)})
	}

	docs := make([]types.Document, 0, len(sections))
	for _, sec := range sections {
		content := sec.text()
		if content == "" {
			continue
		}
		meta := baseMetadata(source, "text/markdown", "markdown")
		meta["section"] = len(docs)
		if sec.level > 0 {
			meta["heading"] = sec.title
			meta["heading_level"] = sec.level
			meta["heading_path"] = strings.Join(sec.path, " > ")
		}
		docs = append(docs, types.Document{PageContent: content, Metadata: meta})
	}
	return docs, nil
}

// parseHeading 识别 "# 标题" 形式，# 后必须有空白；结尾的 # 序列会被去掉
func parseHeading(line string) (string, int) {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return "", 0
	}
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level == 0 || level > 6 {
		return "", 0
	}
	rest := trimmed[level:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return "", 0
	}
	title := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(rest), "#"))
	if title == "" {
		return "", 0
	}
	return title, level
}

func fenceMarker(line string) string {
	t := strings.TrimSpace(line)
	for _, m := range []string{"```", "~~~"} {
		if strings.HasPrefix(t, m) {
			return t[:len(t)-len(strings.TrimLeft(t, m[:1]))]
		}
	}
	return ""
}
