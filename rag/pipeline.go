package rag

import (
	"context"
	"strings"

	"github.com/BaSui01/adaptiverag/types"
	"github.com/BaSui01/adaptiverag/workflow"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// PipelineConfig 管线配置
type PipelineConfig struct {
	MaxSteps int
	Nodes    NodeConfig
}

// Pipeline 持有构建好的图与执行器，可被并发请求共享。
type Pipeline struct {
	nodes    *Nodes
	graph    *workflow.Graph[State, Update]
	executor *workflow.Executor[State, Update]
	logger   *zap.Logger
}

// PipelineOption configures optional pipeline collaborators.
type PipelineOption func(*pipelineOptions)

type pipelineOptions struct {
	recorder workflow.StepRecorder
	tracer   trace.Tracer
}

// WithStepRecorder forwards node and run measurements to r.
func WithStepRecorder(r workflow.StepRecorder) PipelineOption {
	return func(o *pipelineOptions) { o.recorder = r }
}

// WithTracer overrides the tracer used for workflow spans.
func WithTracer(t trace.Tracer) PipelineOption {
	return func(o *pipelineOptions) { o.tracer = t }
}

// NewPipeline builds the graph once; a malformed graph fails here.
func NewPipeline(deps Dependencies, prompts PromptSet, cfg PipelineConfig, logger *zap.Logger, opts ...PipelineOption) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o pipelineOptions
	for _, opt := range opts {
		opt(&o)
	}

	nodes, err := NewNodes(deps, prompts, cfg.Nodes, logger)
	if err != nil {
		return nil, err
	}
	graph, err := BuildGraph(nodes, logger)
	if err != nil {
		return nil, err
	}

	execOpts := []workflow.ExecutorOption{
		workflow.WithMaxSteps(cfg.MaxSteps),
		workflow.WithExecutorLogger(logger),
	}
	if o.recorder != nil {
		execOpts = append(execOpts, workflow.WithStepRecorder(o.recorder))
	}
	if o.tracer != nil {
		execOpts = append(execOpts, workflow.WithTracer(o.tracer))
	}

	return &Pipeline{
		nodes:    nodes,
		graph:    graph,
		executor: workflow.NewExecutor(graph, execOpts...),
		logger:   logger.With(zap.String("component", "pipeline")),
	}, nil
}

// Graph returns the compiled graph.
func (p *Pipeline) Graph() *workflow.Graph[State, Update] { return p.graph }

// MaxSteps returns the effective step cap.
func (p *Pipeline) MaxSteps() int { return p.executor.MaxSteps() }

// Run answers question and returns the final state.
func (p *Pipeline) Run(ctx context.Context, question string) (State, error) {
	exec, err := p.Execute(ctx, question)
	if err != nil {
		return State{}, err
	}
	return exec.State, nil
}

// Execute 运行图并返回执行记录（run id 与步骤）。出错时 Execution 仍携带出错前的状态，仅供诊断。
func (p *Pipeline) Execute(ctx context.Context, question string) (*workflow.Execution[State], error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, types.NewInvalidRequestError("question is required")
	}
	return p.executor.Execute(ctx, NewState(question))
}
