package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BaSui01/adaptiverag/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const samplePage = `<!DOCTYPE html>
<html lang="en">
<head>
  <title>  Agent   Memory </title>
  <meta name="description" content="How agents remember things.">
  <style>body { color: red }</style>
  <script>console.log("hidden")</script>
</head>
<body>
  <nav>Home</nav>
  <h1>Agent memory</h1>
  <p>Short-term memory is   in-context learning.</p>
  <p>Long-term memory uses a <b>vector store</b>.</p>
  <noscript>enable js</noscript>
</body>
</html>`

// ---- ParserRegistry ----

func TestParserRegistry_Resolve(t *testing.T) {
	r := NewParserRegistry()
	tests := []struct {
		name        string
		contentType string
		source      string
		want        Parser
	}{
		{"html by type", "text/html; charset=utf-8", "https://x.dev/a", &HTMLParser{}},
		{"pdf by type", "application/pdf", "https://x.dev/a", &PDFParser{}},
		{"markdown by extension", "application/octet-stream", "https://x.dev/README.md", &MarkdownParser{}},
		{"json by extension with query", "", "https://x.dev/data.json?v=1", &JSONParser{}},
		{"unknown text falls back to plain", "text/x-log", "https://x.dev/a", &TextParser{}},
		{"csv uppercase type", "TEXT/CSV", "https://x.dev/a", &CSVParser{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := r.Resolve(tt.contentType, tt.source)
			require.NoError(t, err)
			assert.IsType(t, tt.want, p)
		})
	}

	_, err := r.Resolve("image/png", "https://x.dev/logo.png")
	assert.Error(t, err)
}

func TestParserRegistry_RegisterOverrides(t *testing.T) {
	r := NewParserRegistry()
	custom := NewCSVParser(CSVParserConfig{Delimiter: ';'})
	r.Register(custom)

	p, err := r.Resolve("text/csv", "")
	require.NoError(t, err)
	assert.Same(t, custom, p)
	assert.Contains(t, r.MediaTypes(), "text/html")
}

// ---- HTML ----

func TestHTMLParser_ExtractsTextAndMetadata(t *testing.T) {
	docs, err := NewHTMLParser().Parse(context.Background(), "https://x.dev/memory", []byte(samplePage))
	require.NoError(t, err)
	require.Len(t, docs, 1)

	doc := docs[0]
	assert.Equal(t, "Home\nAgent memory\nShort-term memory is in-context learning.\nLong-term memory uses a vector store.", doc.PageContent)
	assert.Equal(t, "https://x.dev/memory", doc.Source())
	assert.Equal(t, "Agent Memory", doc.Metadata["title"])
	assert.Equal(t, "How agents remember things.", doc.Metadata["description"])
	assert.Equal(t, "en", doc.Metadata["language"])
	assert.Equal(t, "text/html", doc.Metadata["content_type"])
	assert.NotContains(t, doc.PageContent, "console.log")
	assert.NotContains(t, doc.PageContent, "enable js")
}

func TestHTMLParser_EmptyBody(t *testing.T) {
	docs, err := NewHTMLParser().Parse(context.Background(), "https://x.dev", []byte("<html><body>  </body></html>"))
	require.NoError(t, err)
	assert.Empty(t, docs)
}

// ---- PDF ----

func TestPDFParser_RejectsMalformed(t *testing.T) {
	_, err := NewPDFParser().Parse(context.Background(), "https://x.dev/a.pdf", []byte("%PDF-1.4 not really"))
	assert.Error(t, err)
}

// ---- Text / Markdown ----

func TestTextParser(t *testing.T) {
	docs, err := NewTextParser().Parse(context.Background(), "https://x.dev/a.txt", []byte("hello\nworld"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "hello\nworld", docs[0].PageContent)
	assert.Equal(t, "text", docs[0].Metadata["loader"])

	docs, err = NewTextParser().Parse(context.Background(), "https://x.dev/a.txt", []byte(" \n "))
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestTextParser_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewTextParser().Parse(ctx, "x", []byte("hi"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMarkdownParser_Sections(t *testing.T) {
	body := "intro line\n# Title\nbody one\n## Sub ##\nbody two\n# Next\n"
	docs, err := NewMarkdownParser().Parse(context.Background(), "https://x.dev/r.md", []byte(body))
	require.NoError(t, err)
	require.Len(t, docs, 4)

	assert.Equal(t, "intro line", docs[0].PageContent)
	assert.NotContains(t, docs[0].Metadata, "heading")

	assert.Equal(t, "# Title\n\nbody one", docs[1].PageContent)
	assert.Equal(t, "Title", docs[1].Metadata["heading"])

	assert.Equal(t, "## Sub\n\nbody two", docs[2].PageContent)
	assert.Equal(t, 2, docs[2].Metadata["heading_level"])
	assert.Equal(t, "Title > Sub", docs[2].Metadata["heading_path"])

	assert.Equal(t, "# Next", docs[3].PageContent)
	assert.Equal(t, "Next", docs[3].Metadata["heading_path"])
	assert.Equal(t, 3, docs[3].Metadata["section"])
}

func TestMarkdownParser_IgnoresHeadingsInCodeFences(t *testing.T) {
	body := "# Setup\n```sh\n# install deps\nmake\n```\n~~~\n## not a heading\n~~~\n"
	docs, err := NewMarkdownParser().Parse(context.Background(), "r.md", []byte(body))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0].PageContent, "# install deps")
	assert.Contains(t, docs[0].PageContent, "## not a heading")
}

func TestParseHeading(t *testing.T) {
	tests := []struct {
		line  string
		title string
		level int
	}{
		{"# Title", "Title", 1},
		{"###   Deep  ", "Deep", 3},
		{"  ## Indented ##", "Indented", 2},
		{"    # code block", "", 0},
		{"####### too deep", "", 0},
		{"#hashtag", "", 0},
		{"#", "", 0},
		{"plain", "", 0},
	}
	for _, tt := range tests {
		title, level := parseHeading(tt.line)
		assert.Equal(t, tt.title, title, tt.line)
		assert.Equal(t, tt.level, level, tt.line)
	}
}

// ---- CSV / JSON ----

func TestCSVParser(t *testing.T) {
	body := "name,role,team\nada,engineer,core\nlin,designer,ui\n"

	docs, err := NewCSVParser(CSVParserConfig{}).Parse(context.Background(), "s", []byte(body))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "name: ada\nrole: engineer\nteam: core", docs[0].PageContent)

	docs, err = NewCSVParser(CSVParserConfig{RowsPerDocument: 2, ContentColumns: []string{"NAME"}}).
		Parse(context.Background(), "s", []byte(body))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "name: ada\n\nname: lin", docs[0].PageContent)
	assert.Equal(t, 1, docs[0].Metadata["row_end"])

	docs, err = NewCSVParser(CSVParserConfig{}).Parse(context.Background(), "s", []byte("only,header\n"))
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestJSONParser(t *testing.T) {
	ctx := context.Background()
	p := NewJSONParser(JSONParserConfig{ContentField: "text"})

	docs, err := p.Parse(ctx, "https://x.dev/a.json", []byte(`[{"text":"one"},{"text":"two"}]`))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "two", docs[1].PageContent)

	docs, err = p.Parse(ctx, "https://x.dev/a.jsonl", []byte("{\"text\":\"a\"}\n\n{\"text\":\"b\"}\n"))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	docs, err = NewJSONParser(JSONParserConfig{}).Parse(ctx, "https://x.dev/a", []byte(`{"k":1}`))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.JSONEq(t, `{"k":1}`, docs[0].PageContent)

	_, err = p.Parse(ctx, "https://x.dev/a.json", []byte(`{broken`))
	assert.Error(t, err)
}

// ---- WebLoader ----

func newTestLoader(t *testing.T) *WebLoader {
	t.Helper()
	return NewWebLoader(WebLoaderConfig{MaxBodyBytes: 4096}, zap.NewNop(), WithHTTPClient(http.DefaultClient))
}

func TestWebLoader_LoadsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	docs, err := newTestLoader(t).Load(context.Background(), srv.URL+"/post")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, srv.URL+"/post", docs[0].Source())
	assert.Equal(t, "Agent Memory", docs[0].Metadata["title"])
}

func TestWebLoader_SniffsContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		_, _ = w.Write([]byte("plain words"))
	}))
	defer srv.Close()

	docs, err := newTestLoader(t).Load(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "plain words", docs[0].PageContent)
}

func TestWebLoader_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/big":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write(make([]byte, 5000))
		case "/image":
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
		}
	}))
	defer srv.Close()

	l := newTestLoader(t)
	tests := []struct {
		name string
		url  string
		code types.ErrorCode
	}{
		{"not found", srv.URL + "/missing", types.ErrSourceFetchFailed},
		{"too large", srv.URL + "/big", types.ErrSourceFetchFailed},
		{"unsupported type", srv.URL + "/image", types.ErrSourceFetchFailed},
		{"bad scheme", "ftp://example.com/file", types.ErrInvalidRequest},
		{"not a url", "::nope", types.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Load(context.Background(), tt.url)
			require.Error(t, err)
			assert.True(t, types.IsErrorCode(err, tt.code), "got %v", err)
		})
	}
}

func TestWebLoader_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("late"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestLoader(t).Load(ctx, srv.URL)
	assert.True(t, types.IsErrorCode(err, types.ErrRunCanceled), "got %v", err)
}
