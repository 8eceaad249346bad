package workflow

import (
	"context"
)

// NodeID identifies a node within a graph.
type NodeID string

// Label is the value a decision returns to select an outgoing route.
type Label string

// End 终止标记。任何边或路由都可以指向 End。
const End NodeID = "__end__"

// startNode 仅用于日志与路径记录。
const startNode NodeID = "__start__"

// Action 执行一个节点，返回对状态的部分更新。
type Action[S, U any] func(ctx context.Context, state S) (U, error)

// Decision 根据当前状态选择一个标签。
type Decision[S any] func(ctx context.Context, state S) (Label, error)

// MergeFunc 将节点返回的更新合并进状态，返回新状态。
type MergeFunc[S, U any] func(state S, update U) S

// Route 描述一个决策点：决策函数、完整的标签域以及标签到目标节点的映射。
// Labels 必须与 Targets 的键集合完全一致，这在 Build 时校验。
type Route[S any] struct {
	Name    string
	Decide  Decision[S]
	Labels  []Label
	Targets map[Label]NodeID
}

// Labels converts a typed label enum into graph labels.
func Labels[L ~string](values ...L) []Label {
	out := make([]Label, len(values))
	for i, v := range values {
		out[i] = Label(v)
	}
	return out
}

// Decide adapts a decision returning a typed label.
func Decide[S any, L ~string](fn func(ctx context.Context, state S) (L, error)) Decision[S] {
	return func(ctx context.Context, state S) (Label, error) {
		l, err := fn(ctx, state)
		return Label(l), err
	}
}

// outgoing 节点的出边：要么是一条普通边，要么是一个条件路由。
type outgoing[S any] struct {
	to    NodeID
	route *Route[S]
}

type node[S, U any] struct {
	id     NodeID
	action Action[S, U]
	out    *outgoing[S]
}

// Graph 是构建完成后的不可变状态图。
type Graph[S, U any] struct {
	name    string
	nodes   map[NodeID]*node[S, U]
	order   []NodeID
	entry   *outgoing[S]
	merge   MergeFunc[S, U]
	summary []EdgeSummary
}

// EdgeSummary 描述图中的一条边，用于日志与调试。
type EdgeSummary struct {
	From  NodeID `json:"from"`
	Label Label  `json:"label,omitempty"`
	To    NodeID `json:"to"`
}

// Name returns the graph name.
func (g *Graph[S, U]) Name() string { return g.name }

// Nodes returns node IDs in insertion order.
func (g *Graph[S, U]) Nodes() []NodeID {
	out := make([]NodeID, len(g.order))
	copy(out, g.order)
	return out
}

// Edges returns every edge, including conditional ones, START edges first.
func (g *Graph[S, U]) Edges() []EdgeSummary {
	out := make([]EdgeSummary, len(g.summary))
	copy(out, g.summary)
	return out
}
