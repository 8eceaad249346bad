package rag

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/BaSui01/adaptiverag/llm"
	"github.com/BaSui01/adaptiverag/llm/structured"
	"github.com/BaSui01/adaptiverag/llm/tools"
	"github.com/BaSui01/adaptiverag/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Retriever 返回与 query 最相似的文档（按相似度降序）。
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]types.Document, error)
}

// Dependencies 是节点使用的外部协作方。
type Dependencies struct {
	// Judge 负责结构化判定（路由与三类评分）
	Judge llm.Provider
	// Generator 负责自由文本（改写与生成）
	Generator llm.Provider
	Retriever Retriever
	WebSearch tools.WebSearchProvider
}

// NodeConfig 节点参数
type NodeConfig struct {
	JudgeModel           string
	GeneratorModel       string
	GeneratorTemperature float32
	GradeConcurrency     int
	WebMaxResults        int
	CallTimeout          time.Duration
}

// DefaultNodeConfig returns the defaults used by the service.
func DefaultNodeConfig() NodeConfig {
	return NodeConfig{
		GradeConcurrency: 4,
		WebMaxResults:    tools.DefaultMaxResults,
		CallTimeout:      60 * time.Second,
	}
}

// Nodes 实现图中的动作节点与决策函数。无可变状态，可被并发运行共享。
type Nodes struct {
	deps    Dependencies
	prompts PromptSet
	cfg     NodeConfig
	logger  *zap.Logger

	router        *structured.StructuredOutput[RouteDecision]
	relevance     *structured.StructuredOutput[RelevanceGrade]
	hallucination *structured.StructuredOutput[HallucinationGrade]
	answer        *structured.StructuredOutput[AnswerGrade]
}

// NewNodes validates deps and prompts and prepares the structured judges.
func NewNodes(deps Dependencies, prompts PromptSet, cfg NodeConfig, logger *zap.Logger) (*Nodes, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch {
	case deps.Judge == nil:
		return nil, types.NewError(types.ErrConfiguration, "judge provider is required")
	case deps.Generator == nil:
		return nil, types.NewError(types.ErrConfiguration, "generator provider is required")
	case deps.Retriever == nil:
		return nil, types.NewError(types.ErrConfiguration, "retriever is required")
	case deps.WebSearch == nil:
		return nil, types.NewError(types.ErrConfiguration, "web search provider is required")
	}
	if err := prompts.Validate(); err != nil {
		return nil, err
	}

	defaults := DefaultNodeConfig()
	if cfg.GradeConcurrency <= 0 {
		cfg.GradeConcurrency = defaults.GradeConcurrency
	}
	if cfg.WebMaxResults <= 0 {
		cfg.WebMaxResults = defaults.WebMaxResults
	}

	n := &Nodes{
		deps:    deps,
		prompts: prompts,
		cfg:     cfg,
		logger:  logger.With(zap.String("component", "rag_nodes")),
	}

	var err error
	if n.router, err = structured.NewStructuredOutput[RouteDecision](deps.Judge, routeDecisionSchema(), cfg.JudgeModel); err != nil {
		return nil, err
	}
	if n.relevance, err = structured.NewStructuredOutput[RelevanceGrade](deps.Judge, relevanceGradeSchema(), cfg.JudgeModel); err != nil {
		return nil, err
	}
	if n.hallucination, err = structured.NewStructuredOutput[HallucinationGrade](deps.Judge, hallucinationGradeSchema(), cfg.JudgeModel); err != nil {
		return nil, err
	}
	if n.answer, err = structured.NewStructuredOutput[AnswerGrade](deps.Judge, answerGradeSchema(), cfg.JudgeModel); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Nodes) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if n.cfg.CallTimeout > 0 {
		return context.WithTimeout(ctx, n.cfg.CallTimeout)
	}
	return context.WithCancel(ctx)
}

// =============================================================================
// 决策函数
// =============================================================================

// RouteQuestion 入口路由：vectorstore 或 web_search。
func (n *Nodes) RouteQuestion(ctx context.Context, s State) (RouteLabel, error) {
	callCtx, cancel := n.callContext(ctx)
	defer cancel()

	decision, err := n.router.GenerateWithMessages(callCtx, []llm.Message{
		llm.SystemMessage(n.prompts.RouterSystem),
		llm.UserMessage(s.Question),
	})
	if err != nil {
		return "", judgmentError("route question", err)
	}
	n.logger.Info("question routed", zap.String("datasource", string(decision.Datasource)))
	return decision.Datasource, nil
}

// DecideToGenerate 只看文档：为空则改写问题，否则生成。
func (n *Nodes) DecideToGenerate(_ context.Context, s State) (GradeDecision, error) {
	return decideToGenerate(s), nil
}

func decideToGenerate(s State) GradeDecision {
	if len(s.Documents) == 0 {
		return DecisionTransformQuery
	}
	return DecisionGenerate
}

// GradeGeneration 两段式评分。幻觉评分为 "no" 时不再调用答案评分。
func (n *Nodes) GradeGeneration(ctx context.Context, s State) (GenerationGrade, error) {
	generation := s.GenerationText()

	callCtx, cancel := n.callContext(ctx)
	grounded, err := n.hallucination.GenerateWithMessages(callCtx, []llm.Message{
		llm.SystemMessage(n.prompts.HallucinationSystem),
		llm.UserMessage(render(n.prompts.HallucinationHuman, map[string]string{
			"documents":  types.JoinContents(s.Documents, "\n\n"),
			"generation": generation,
		})),
	})
	cancel()
	if err != nil {
		return "", judgmentError("grade hallucination", err)
	}
	if grounded.BinaryScore != ScoreYes {
		n.logger.Info("generation is not grounded in documents")
		return GenerationNotSupported, nil
	}

	callCtx, cancel = n.callContext(ctx)
	defer cancel()
	useful, err := n.answer.GenerateWithMessages(callCtx, []llm.Message{
		llm.SystemMessage(n.prompts.AnswerSystem),
		llm.UserMessage(render(n.prompts.AnswerHuman, map[string]string{
			"question":   s.Question,
			"generation": generation,
		})),
	})
	if err != nil {
		return "", judgmentError("grade answer", err)
	}
	if useful.BinaryScore == ScoreYes {
		n.logger.Info("generation addresses question")
		return GenerationUseful, nil
	}
	n.logger.Info("generation does not address question")
	return GenerationNotUseful, nil
}

// =============================================================================
// 动作节点
// =============================================================================

// Retrieve 从证据库检索文档。
func (n *Nodes) Retrieve(ctx context.Context, s State) (Update, error) {
	callCtx, cancel := n.callContext(ctx)
	defer cancel()

	docs, err := n.deps.Retriever.Retrieve(callCtx, s.Question)
	if err != nil {
		if types.IsErrorCode(err, types.ErrEvidenceStoreUnavailable) {
			return Update{}, err
		}
		return Update{}, types.NewEvidenceStoreUnavailableError("retrieve failed").WithCause(err)
	}
	n.logger.Debug("documents retrieved", zap.Int("count", len(docs)))
	return Update{}.WithDocuments(docs), nil
}

// WebSearch 搜索并把所有结果合并为一篇文档。
func (n *Nodes) WebSearch(ctx context.Context, s State) (Update, error) {
	callCtx, cancel := n.callContext(ctx)
	defer cancel()

	opts := tools.DefaultWebSearchOptions()
	opts.MaxResults = n.cfg.WebMaxResults

	results, err := n.deps.WebSearch.Search(callCtx, s.Question, opts)
	if err != nil {
		return Update{}, types.NewWebSearchUnavailableError("web search failed").
			WithProvider(n.deps.WebSearch.Name()).
			WithCause(err)
	}
	if len(results) > n.cfg.WebMaxResults {
		results = results[:n.cfg.WebMaxResults]
	}

	return Update{}.WithDocuments([]types.Document{aggregateResults(results)}), nil
}

func aggregateResults(results []tools.WebSearchResult) types.Document {
	texts := make([]string, len(results))
	urls := make([]string, 0, len(results))
	for i, r := range results {
		texts[i] = r.Text()
		if r.URL != "" {
			urls = append(urls, r.URL)
		}
	}
	return types.NewDocument(strings.Join(texts, "\n"), map[string]any{
		"source": "web_search",
		"urls":   urls,
	})
}

// GradeDocuments 并发评分每篇文档，按原顺序保留相关文档。
func (n *Nodes) GradeDocuments(ctx context.Context, s State) (Update, error) {
	relevant := make([]bool, len(s.Documents))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.cfg.GradeConcurrency)
	for i, doc := range s.Documents {
		g.Go(func() error {
			callCtx, cancel := n.callContext(gctx)
			defer cancel()

			grade, err := n.relevance.GenerateWithMessages(callCtx, []llm.Message{
				llm.SystemMessage(n.prompts.RelevanceSystem),
				llm.UserMessage(render(n.prompts.RelevanceHuman, map[string]string{
					"document": doc.PageContent,
					"question": s.Question,
				})),
			})
			if err != nil {
				return judgmentError("grade document", err)
			}
			relevant[i] = grade.BinaryScore == ScoreYes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Update{}, err
	}

	filtered := make([]types.Document, 0, len(s.Documents))
	for i, doc := range s.Documents {
		if relevant[i] {
			filtered = append(filtered, doc)
		}
	}
	n.logger.Info("documents graded",
		zap.Int("candidates", len(s.Documents)),
		zap.Int("relevant", len(filtered)))
	return Update{}.WithDocuments(filtered), nil
}

// TransformQuery 改写问题以便再次检索。
func (n *Nodes) TransformQuery(ctx context.Context, s State) (Update, error) {
	rewritten, err := n.complete(ctx, "transform query", n.cfg.GeneratorModel, []llm.Message{
		llm.SystemMessage(n.prompts.RewriteSystem),
		llm.UserMessage(render(n.prompts.RewriteHuman, map[string]string{"question": s.Question})),
	})
	if err != nil {
		return Update{}, err
	}
	if rewritten == "" {
		n.logger.Warn("empty rewrite, keeping question")
		return Update{}, nil
	}
	n.logger.Info("question rewritten", zap.String("question", rewritten))
	return Update{}.WithQuestion(rewritten), nil
}

// Generate 用 RAG 模板生成答案。
func (n *Nodes) Generate(ctx context.Context, s State) (Update, error) {
	prompt := render(n.prompts.RAGTemplate, map[string]string{
		"context":  types.JoinContents(s.Documents, "\n\n"),
		"question": s.Question,
	})
	generation, err := n.complete(ctx, "generate", n.cfg.GeneratorModel, []llm.Message{llm.UserMessage(prompt)})
	if err != nil {
		return Update{}, err
	}
	return Update{}.WithGeneration(generation), nil
}

func (n *Nodes) complete(ctx context.Context, stage, model string, messages []llm.Message) (string, error) {
	callCtx, cancel := n.callContext(ctx)
	defer cancel()

	resp, err := n.deps.Generator.Completion(callCtx, &llm.ChatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: n.cfg.GeneratorTemperature,
	})
	if err != nil {
		return "", judgmentError(stage, err)
	}
	return llm.StripReasoning(resp.Content()), nil
}

// judgmentError 将判定服务错误映射为管线错误：解析失败为 CLASSIFICATION_PARSE，其余为不可用。
func judgmentError(stage string, err error) error {
	var pe *structured.ParseError
	if errors.As(err, &pe) {
		return types.NewClassificationParseError(stage + ": output does not match schema").WithCause(err)
	}
	var te *types.Error
	if errors.As(err, &te) {
		return err
	}
	out := types.NewJudgmentServiceUnavailableError(stage + " failed").WithCause(err)
	if le, ok := llm.AsError(err); ok {
		out.WithProvider(le.Provider).WithRetryable(le.Retryable)
	}
	return out
}
