package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/adaptiverag/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultMaxSteps 单次运行允许执行的动作节点数上限。
const DefaultMaxSteps = 25

// Run outcomes reported to StepRecorder.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeMaxSteps = "max_steps"
	OutcomeTimeout  = "timeout"
	OutcomeCanceled = "canceled"
)

// StepRecorder receives per-node and per-run measurements.
type StepRecorder interface {
	RecordNodeExecution(graph, node, status string, duration time.Duration)
	RecordRun(graph, outcome string, steps int, duration time.Duration)
}

// Step 记录一次动作节点执行以及随后的路由。
type Step struct {
	Node     NodeID        `json:"node"`
	Label    Label         `json:"label,omitempty"`
	Next     NodeID        `json:"next"`
	Duration time.Duration `json:"duration"`
}

// Execution 是一次运行的结果。出错时 State 为出错前最后一次合并后的状态。
type Execution[S any] struct {
	RunID      string        `json:"run_id"`
	EntryLabel Label         `json:"entry_label,omitempty"`
	State      S             `json:"state"`
	Steps      []Step        `json:"steps"`
	Duration   time.Duration `json:"duration"`
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*executorOptions)

type executorOptions struct {
	maxSteps int
	logger   *zap.Logger
	recorder StepRecorder
	tracer   trace.Tracer
}

// WithMaxSteps caps the number of action nodes a run may execute.
func WithMaxSteps(n int) ExecutorOption {
	return func(o *executorOptions) {
		if n > 0 {
			o.maxSteps = n
		}
	}
}

// WithExecutorLogger sets the executor logger.
func WithExecutorLogger(logger *zap.Logger) ExecutorOption {
	return func(o *executorOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithStepRecorder attaches a metrics sink.
func WithStepRecorder(r StepRecorder) ExecutorOption {
	return func(o *executorOptions) { o.recorder = r }
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) ExecutorOption {
	return func(o *executorOptions) { o.tracer = t }
}

// Executor runs a Graph. It holds no per-run state and is safe for concurrent runs.
type Executor[S, U any] struct {
	graph    *Graph[S, U]
	maxSteps int
	logger   *zap.Logger
	recorder StepRecorder
	tracer   trace.Tracer
}

// NewExecutor creates an executor for graph.
func NewExecutor[S, U any](graph *Graph[S, U], opts ...ExecutorOption) *Executor[S, U] {
	o := executorOptions{
		maxSteps: DefaultMaxSteps,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer("adaptiverag/workflow")
	}
	return &Executor[S, U]{
		graph:    graph,
		maxSteps: o.maxSteps,
		logger:   o.logger.With(zap.String("component", "graph_executor")),
		recorder: o.recorder,
		tracer:   o.tracer,
	}
}

// MaxSteps returns the configured step cap.
func (e *Executor[S, U]) MaxSteps() int { return e.maxSteps }

// Run executes the graph and returns the final state.
func (e *Executor[S, U]) Run(ctx context.Context, initial S) (S, error) {
	exec, err := e.Execute(ctx, initial)
	if exec == nil {
		return initial, err
	}
	return exec.State, err
}

// Execute executes the graph from its start until End, an error or the step cap.
func (e *Executor[S, U]) Execute(ctx context.Context, initial S) (*Execution[S], error) {
	if e.graph == nil || e.graph.entry == nil {
		return nil, types.NewGraphConfigurationError("executor has no graph")
	}

	exec := &Execution[S]{
		RunID: uuid.NewString(),
		State: initial,
	}
	start := time.Now()
	log := e.logger.With(
		zap.String("graph", e.graph.name),
		zap.String("run_id", exec.RunID),
	)

	ctx, span := e.tracer.Start(ctx, "workflow.run", trace.WithAttributes(
		attribute.String("workflow.graph", e.graph.name),
		attribute.String("workflow.run_id", exec.RunID),
	))
	defer span.End()

	log.Info("starting graph run", zap.Int("max_steps", e.maxSteps))

	err := e.run(ctx, exec, log)
	exec.Duration = time.Since(start)

	outcome := outcomeOf(err)
	if e.recorder != nil {
		e.recorder.RecordRun(e.graph.name, outcome, len(exec.Steps), exec.Duration)
	}
	span.SetAttributes(
		attribute.String("workflow.outcome", outcome),
		attribute.Int("workflow.steps", len(exec.Steps)),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("graph run failed",
			zap.String("outcome", outcome),
			zap.Int("steps", len(exec.Steps)),
			zap.Duration("duration", exec.Duration),
			zap.Error(err),
		)
		return exec, err
	}

	log.Info("graph run completed",
		zap.Int("steps", len(exec.Steps)),
		zap.Duration("duration", exec.Duration),
	)
	return exec, nil
}

func (e *Executor[S, U]) run(ctx context.Context, exec *Execution[S], log *zap.Logger) error {
	current, label, err := e.follow(ctx, startNode, e.graph.entry, exec.State)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.FromContextError(ctxErr)
		}
		return err
	}
	exec.EntryLabel = label

	for current != End {
		if err := ctx.Err(); err != nil {
			return types.FromContextError(err)
		}
		if len(exec.Steps) >= e.maxSteps {
			return types.NewMaxIterationsExceededError(e.maxSteps)
		}

		n, ok := e.graph.nodes[current]
		if !ok {
			return types.NewGraphConfigurationError("node %q is not part of graph %q", current, e.graph.name)
		}

		stepStart := time.Now()
		update, err := e.invoke(ctx, n, exec.State, len(exec.Steps)+1)
		duration := time.Since(stepStart)
		if err != nil {
			log.Warn("node execution failed",
				zap.String("node_id", string(n.id)),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return types.FromContextError(ctxErr)
			}
			return fmt.Errorf("node %s failed: %w", n.id, err)
		}
		exec.State = e.graph.merge(exec.State, update)

		next, label, err := e.follow(ctx, n.id, n.out, exec.State)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return types.FromContextError(ctxErr)
			}
			return err
		}
		exec.Steps = append(exec.Steps, Step{Node: n.id, Label: label, Next: next, Duration: duration})

		log.Debug("node executed",
			zap.String("node_id", string(n.id)),
			zap.String("label", string(label)),
			zap.String("next", string(next)),
			zap.Duration("duration", duration),
		)
		current = next
	}
	return nil
}

func (e *Executor[S, U]) invoke(ctx context.Context, n *node[S, U], state S, step int) (U, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.node "+string(n.id), trace.WithAttributes(
		attribute.String("workflow.graph", e.graph.name),
		attribute.String("workflow.node", string(n.id)),
		attribute.Int("workflow.step", step),
	))
	defer span.End()

	start := time.Now()
	update, err := n.action(ctx, state)
	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if e.recorder != nil {
		e.recorder.RecordNodeExecution(e.graph.name, string(n.id), status, time.Since(start))
	}
	return update, err
}

// follow 解析一个出边：普通边直接返回目标，条件路由调用决策函数并查表。
func (e *Executor[S, U]) follow(ctx context.Context, from NodeID, out *outgoing[S], state S) (NodeID, Label, error) {
	if out.route == nil {
		return out.to, "", nil
	}

	r := out.route
	label, err := r.Decide(ctx, state)
	if err != nil {
		return "", "", fmt.Errorf("route %s after %s failed: %w", r.Name, from, err)
	}
	target, ok := r.Targets[label]
	if !ok {
		return "", label, types.NewGraphConfigurationError("route %s after %s returned unmapped label %q", r.Name, from, label)
	}
	return target, label, nil
}

func outcomeOf(err error) string {
	switch types.GetErrorCode(err) {
	case "":
		if err == nil {
			return OutcomeSuccess
		}
		return OutcomeError
	case types.ErrMaxIterationsExceeded:
		return OutcomeMaxSteps
	case types.ErrTimeout:
		return OutcomeTimeout
	case types.ErrRunCanceled:
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
