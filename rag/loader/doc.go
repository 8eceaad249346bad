// Package loader fetches evidence sources over HTTP and turns them into documents.
//
// WebLoader downloads a URL and hands the body to a ParserRegistry, which picks a
// Parser by Content-Type and falls back to the URL extension:
//   - HTML (title, description and language are kept as metadata)
//   - PDF (one document per page)
//   - plain text, Markdown, CSV, JSON / JSONL
//
// Every document carries the fetched URL in its "source" metadata.
//
//	l := loader.NewWebLoader(loader.DefaultWebLoaderConfig(), logger)
//	docs, err := l.Load(ctx, "https://example.com/post")
package loader
