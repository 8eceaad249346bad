package rag

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/BaSui01/adaptiverag/llm"
	"github.com/BaSui01/adaptiverag/llm/tools"
	"github.com/BaSui01/adaptiverag/testutil/fixtures"
	"github.com/BaSui01/adaptiverag/testutil/mocks"
	"github.com/BaSui01/adaptiverag/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// judgeScript 按 Schema 标题分派判定，脚本序列用尽后重复最后一项。
type judgeScript struct {
	mu sync.Mutex

	route         string
	relevant      func(document string) bool
	hallucination []string
	answer        []string

	counts map[string]int
}

func newJudgeScript(route string) *judgeScript {
	return &judgeScript{
		route:         route,
		relevant:      func(string) bool { return true },
		hallucination: []string{"yes"},
		answer:        []string{"yes"},
		counts:        map[string]int{},
	}
}

func (j *judgeScript) respond(req *llm.ChatRequest) string {
	j.mu.Lock()
	defer j.mu.Unlock()

	schema := req.Messages[0].Content
	user := req.Messages[len(req.Messages)-1].Content
	switch {
	case strings.Contains(schema, "RouteQuery"):
		j.counts["route"]++
		return fixtures.RouteJSON(j.route)
	case strings.Contains(schema, "GradeDocuments"):
		j.counts["relevance"]++
		if j.relevant(user) {
			return fixtures.BinaryScoreJSON("yes")
		}
		return fixtures.BinaryScoreJSON("no")
	case strings.Contains(schema, "GradeHallucinations"):
		j.counts["hallucination"]++
		return fixtures.BinaryScoreJSON(nth(j.hallucination, j.counts["hallucination"]))
	case strings.Contains(schema, "GradeAnswer"):
		j.counts["answer"]++
		return fixtures.BinaryScoreJSON(nth(j.answer, j.counts["answer"]))
	}
	return "unexpected judgment"
}

func (j *judgeScript) count(kind string) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.counts[kind]
}

func nth(seq []string, call int) string {
	if call > len(seq) {
		return seq[len(seq)-1]
	}
	return seq[call-1]
}

// generatorScript 区分改写（有 system 消息）与生成（单条 user 消息）。
type generatorScript struct {
	mu          sync.Mutex
	rewrite     string
	answer      string
	rewrites    int
	generations int
	prompts     []string
}

func (g *generatorScript) respond(req *llm.ChatRequest) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(req.Messages) > 1 {
		g.rewrites++
		return g.rewrite
	}
	g.generations++
	g.prompts = append(g.prompts, req.Messages[0].Content)
	return g.answer
}

// fakeRetriever 返回固定文档并记录查询
type fakeRetriever struct {
	mu      sync.Mutex
	docs    []types.Document
	err     error
	queries []string
}

func (r *fakeRetriever) Retrieve(_ context.Context, query string) ([]types.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, query)
	if r.err != nil {
		return nil, r.err
	}
	return types.CloneDocuments(r.docs), nil
}

type harness struct {
	judge     *judgeScript
	generator *generatorScript
	judgeLLM  *mocks.MockProvider
	genLLM    *mocks.MockProvider
	retriever *fakeRetriever
	search    *mocks.MockWebSearch
}

func newHarness(route string, docs ...types.Document) *harness {
	h := &harness{
		judge:     newJudgeScript(route),
		generator: &generatorScript{rewrite: "improved question", answer: "grounded answer"},
		retriever: &fakeRetriever{docs: docs},
		search: mocks.NewMockWebSearch(
			tools.WebSearchResult{Title: "a", URL: "https://a.dev", Content: "first result"},
			tools.WebSearchResult{Title: "b", URL: "https://b.dev", Snippet: "second snippet"},
		),
	}
	h.judgeLLM = mocks.NewMockProvider().WithName("judge").WithResponder(h.judge.respond)
	h.genLLM = mocks.NewMockProvider().WithName("generator").WithResponder(h.generator.respond)
	return h
}

func (h *harness) deps() Dependencies {
	return Dependencies{
		Judge:     h.judgeLLM,
		Generator: h.genLLM,
		Retriever: h.retriever,
		WebSearch: h.search,
	}
}

func (h *harness) nodes(t *testing.T) *Nodes {
	t.Helper()
	n, err := NewNodes(h.deps(), DefaultPromptSet(""), DefaultNodeConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	return n
}

func (h *harness) pipeline(t *testing.T, maxSteps int) *Pipeline {
	t.Helper()
	p, err := NewPipeline(h.deps(), DefaultPromptSet(""), PipelineConfig{MaxSteps: maxSteps, Nodes: DefaultNodeConfig()}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return p
}
