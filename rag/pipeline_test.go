package rag

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/adaptiverag/testutil"
	"github.com/BaSui01/adaptiverag/testutil/fixtures"
	"github.com/BaSui01/adaptiverag/types"
	"github.com/BaSui01/adaptiverag/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nodePath(steps []workflow.Step) []workflow.NodeID {
	out := make([]workflow.NodeID, len(steps))
	for i, s := range steps {
		out[i] = s.Node
	}
	return out
}

func TestBuildGraph_Shape(t *testing.T) {
	g := newHarness("vectorstore").pipeline(t, 0).Graph()

	assert.Equal(t, GraphName, g.Name())
	assert.ElementsMatch(t, []workflow.NodeID{
		NodeWebSearch, NodeRetrieve, NodeGradeDocuments, NodeGenerate, NodeTransformQuery,
	}, g.Nodes())

	edges := g.Edges()
	assert.Len(t, edges, 11)
	for _, e := range []workflow.EdgeSummary{
		{From: NodeWebSearch, To: NodeGenerate},
		{From: NodeRetrieve, To: NodeGradeDocuments},
		{From: NodeTransformQuery, To: NodeRetrieve},
		{From: NodeGradeDocuments, Label: workflow.Label(DecisionGenerate), To: NodeGenerate},
		{From: NodeGradeDocuments, Label: workflow.Label(DecisionTransformQuery), To: NodeTransformQuery},
		{From: NodeGenerate, Label: workflow.Label(GenerationNotSupported), To: NodeGenerate},
		{From: NodeGenerate, Label: workflow.Label(GenerationUseful), To: workflow.End},
		{From: NodeGenerate, Label: workflow.Label(GenerationNotUseful), To: NodeTransformQuery},
	} {
		assert.Contains(t, edges, e)
	}
}

func TestPipeline_DefaultMaxSteps(t *testing.T) {
	assert.Equal(t, workflow.DefaultMaxSteps, newHarness("vectorstore").pipeline(t, 0).MaxSteps())
	assert.Equal(t, 7, newHarness("vectorstore").pipeline(t, 7).MaxSteps())
}

func TestPipeline_RejectsBlankQuestion(t *testing.T) {
	p := newHarness("vectorstore").pipeline(t, 0)
	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := p.Run(context.Background(), q)
		testutil.AssertErrorCode(t, err, types.ErrInvalidRequest)
	}
}

// vectorstore 路径：检索、全部相关、一次生成即可。
func TestPipeline_VectorstorePath(t *testing.T) {
	h := newHarness("vectorstore", fixtures.AgentPosts...)
	exec, err := h.pipeline(t, 0).Execute(testutil.TestContext(t), "What are the types of agent memory?")
	require.NoError(t, err)

	assert.NotEmpty(t, exec.RunID)
	assert.Equal(t, workflow.Label(RouteVectorstore), exec.EntryLabel)
	assert.Equal(t, []workflow.NodeID{NodeRetrieve, NodeGradeDocuments, NodeGenerate}, nodePath(exec.Steps))
	assert.Equal(t, workflow.End, exec.Steps[2].Next)

	assert.Equal(t, "What are the types of agent memory?", exec.State.Question)
	assert.Equal(t, "grounded answer", exec.State.GenerationText())
	assert.Len(t, exec.State.Documents, 3)
	assert.Zero(t, h.search.CallCount())
	assert.Equal(t, 1, h.generator.generations)
}

// web 路径：第一次答案不可用，改写后走向量库再生成。
func TestPipeline_WebThenRewrite(t *testing.T) {
	h := newHarness("web_search", fixtures.AgentPosts[:2]...)
	h.judge.answer = []string{"no", "yes"}

	exec, err := h.pipeline(t, 0).Execute(context.Background(), "agent memory?")
	require.NoError(t, err)

	assert.Equal(t, []workflow.NodeID{
		NodeWebSearch, NodeGenerate, NodeTransformQuery,
		NodeRetrieve, NodeGradeDocuments, NodeGenerate,
	}, nodePath(exec.Steps))
	assert.Equal(t, workflow.Label(GenerationNotUseful), exec.Steps[1].Label)

	assert.Equal(t, 1, h.search.CallCount())
	assert.Equal(t, []string{"agent memory?"}, h.search.Queries())
	assert.Equal(t, []string{"improved question"}, h.retriever.queries)
	assert.Equal(t, "improved question", exec.State.Question)
	assert.Len(t, exec.State.Documents, 2)
	assert.Equal(t, 2, h.generator.generations)
	assert.Contains(t, h.generator.prompts[0], "first result\nsecond snippet")
	assert.Equal(t, 1, h.judge.count("route"))
}

func TestPipeline_UngroundedGenerationHitsStepCap(t *testing.T) {
	h := newHarness("vectorstore", fixtures.AgentPosts...)
	h.judge.hallucination = []string{"no"}

	exec, err := h.pipeline(t, 5).Execute(context.Background(), "q")
	testutil.AssertErrorCode(t, err, types.ErrMaxIterationsExceeded)
	require.NotNil(t, exec)
	assert.Equal(t, []workflow.NodeID{
		NodeRetrieve, NodeGradeDocuments, NodeGenerate, NodeGenerate, NodeGenerate,
	}, nodePath(exec.Steps))
	assert.Zero(t, h.judge.count("answer"))
}

func TestPipeline_NoRelevantDocumentsKeepsRewriting(t *testing.T) {
	h := newHarness("vectorstore", fixtures.AgentPosts...)
	h.judge.relevant = func(string) bool { return false }

	exec, err := h.pipeline(t, 6).Execute(context.Background(), "q")
	testutil.AssertErrorCode(t, err, types.ErrMaxIterationsExceeded)
	assert.Equal(t, []workflow.NodeID{
		NodeRetrieve, NodeGradeDocuments, NodeTransformQuery,
		NodeRetrieve, NodeGradeDocuments, NodeTransformQuery,
	}, nodePath(exec.Steps))
	assert.Zero(t, h.generator.generations)
}

func TestPipeline_EmptyIndexError(t *testing.T) {
	h := newHarness("vectorstore")
	h.retriever.err = types.NewEvidenceStoreUnavailableError("no evidence index at /data/index.db")

	_, err := h.pipeline(t, 0).Run(context.Background(), "q")
	testutil.AssertErrorCode(t, err, types.ErrEvidenceStoreUnavailable)
	assert.Contains(t, err.Error(), "node retrieve failed")
}

func TestPipeline_Cancelled(t *testing.T) {
	h := newHarness("vectorstore", fixtures.AgentPosts...)
	h.judgeLLM.WithDelay(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := h.pipeline(t, 0).Run(ctx, "q")
	require.Error(t, err)
	code := types.AsError(err).Code
	assert.Contains(t, []types.ErrorCode{types.ErrTimeout, types.ErrRunCanceled}, code)
}

func TestPipeline_ConcurrentRunsAreIsolated(t *testing.T) {
	h := newHarness("vectorstore", fixtures.AgentPosts...)
	p := h.pipeline(t, 0)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			exec, err := p.Execute(context.Background(), "agent memory")
			if assert.NoError(t, err) {
				ids[i] = exec.RunID
				assert.Len(t, exec.State.Documents, 3)
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate run id %s", id)
		seen[id] = true
	}
}

type countingRecorder struct {
	mu    sync.Mutex
	nodes map[string]int
	runs  []string
}

func (r *countingRecorder) RecordNodeExecution(_, node, _ string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[node]++
}

func (r *countingRecorder) RecordRun(graph, outcome string, _ int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, graph+":"+outcome)
}

func TestPipeline_RecordsSteps(t *testing.T) {
	h := newHarness("vectorstore", fixtures.AgentPosts...)
	rec := &countingRecorder{nodes: map[string]int{}}
	p, err := NewPipeline(h.deps(), DefaultPromptSet(""), PipelineConfig{Nodes: DefaultNodeConfig()}, nil, WithStepRecorder(rec))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"retrieve": 1, "grade_documents": 1, "generate": 1}, rec.nodes)
	assert.Equal(t, []string{"adaptive-rag:success"}, rec.runs)
}
