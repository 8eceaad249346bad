package workflow

import (
	"errors"
	"fmt"

	"github.com/BaSui01/adaptiverag/types"
	"go.uber.org/zap"
)

// GraphBuilder provides a fluent API for constructing state graphs.
// Problems found while adding nodes and edges are collected and reported by Build.
type GraphBuilder[S, U any] struct {
	name     string
	merge    MergeFunc[S, U]
	nodes    map[NodeID]*node[S, U]
	order    []NodeID
	entry    *outgoing[S]
	entrySet int
	problems []error
	logger   *zap.Logger
}

// NewGraphBuilder creates a builder. merge folds node updates into state.
func NewGraphBuilder[S, U any](name string, merge MergeFunc[S, U]) *GraphBuilder[S, U] {
	return &GraphBuilder[S, U]{
		name:   name,
		merge:  merge,
		nodes:  make(map[NodeID]*node[S, U]),
		logger: zap.NewNop(),
	}
}

// WithLogger sets a custom logger
func (b *GraphBuilder[S, U]) WithLogger(logger *zap.Logger) *GraphBuilder[S, U] {
	if logger != nil {
		b.logger = logger.With(zap.String("component", "graph_builder"))
	}
	return b
}

// AddNode registers an action node.
func (b *GraphBuilder[S, U]) AddNode(id NodeID, action Action[S, U]) *GraphBuilder[S, U] {
	switch {
	case id == "":
		b.fail("node id must not be empty")
		return b
	case id == End || id == startNode:
		b.fail("node id %q is reserved", id)
		return b
	case action == nil:
		b.fail("node %q has no action", id)
		return b
	}
	if _, exists := b.nodes[id]; exists {
		b.fail("duplicate node %q", id)
		return b
	}
	b.nodes[id] = &node[S, U]{id: id, action: action}
	b.order = append(b.order, id)
	return b
}

// AddEdge adds an unconditional edge. to may be End.
func (b *GraphBuilder[S, U]) AddEdge(from, to NodeID) *GraphBuilder[S, U] {
	b.setOutgoing(from, &outgoing[S]{to: to})
	return b
}

// AddConditionalEdges attaches a decision route after from.
func (b *GraphBuilder[S, U]) AddConditionalEdges(from NodeID, route Route[S]) *GraphBuilder[S, U] {
	b.setOutgoing(from, &outgoing[S]{route: cloneRoute(route)})
	return b
}

// SetEntry makes id the first node of every run.
func (b *GraphBuilder[S, U]) SetEntry(id NodeID) *GraphBuilder[S, U] {
	b.entry = &outgoing[S]{to: id}
	b.entrySet++
	return b
}

// SetConditionalEntry routes the start of every run through a decision.
func (b *GraphBuilder[S, U]) SetConditionalEntry(route Route[S]) *GraphBuilder[S, U] {
	b.entry = &outgoing[S]{route: cloneRoute(route)}
	b.entrySet++
	return b
}

// Build validates the graph and freezes it.
func (b *GraphBuilder[S, U]) Build() (*Graph[S, U], error) {
	if err := b.validate(); err != nil {
		return nil, types.NewGraphConfigurationError("graph %q validation failed", b.name).WithCause(err)
	}

	// 图与 builder 不共享任何可变结构，Build 之后再改 builder 不影响已构建的图
	nodes := make(map[NodeID]*node[S, U], len(b.nodes))
	for id, n := range b.nodes {
		nodes[id] = &node[S, U]{id: n.id, action: n.action, out: n.out.clone()}
	}
	g := &Graph[S, U]{
		name:  b.name,
		nodes: nodes,
		order: append([]NodeID(nil), b.order...),
		entry: b.entry.clone(),
		merge: b.merge,
	}
	g.summary = append(g.summary, edgeSummaries(startNode, b.entry)...)
	for _, id := range b.order {
		g.summary = append(g.summary, edgeSummaries(id, b.nodes[id].out)...)
	}

	b.logger.Info("state graph built successfully",
		zap.String("name", b.name),
		zap.Int("nodes", len(b.nodes)),
		zap.Int("edges", len(g.summary)),
	)
	return g, nil
}

func cloneRoute[S any](route Route[S]) *Route[S] {
	r := route
	r.Labels = append([]Label(nil), route.Labels...)
	if route.Targets != nil {
		r.Targets = make(map[Label]NodeID, len(route.Targets))
		for l, id := range route.Targets {
			r.Targets[l] = id
		}
	}
	return &r
}

func (o *outgoing[S]) clone() *outgoing[S] {
	if o == nil {
		return nil
	}
	c := &outgoing[S]{to: o.to}
	if o.route != nil {
		c.route = cloneRoute(*o.route)
	}
	return c
}

func (b *GraphBuilder[S, U]) fail(format string, args ...any) {
	b.problems = append(b.problems, fmt.Errorf(format, args...))
}

func (b *GraphBuilder[S, U]) setOutgoing(from NodeID, out *outgoing[S]) {
	n, ok := b.nodes[from]
	if !ok {
		b.fail("edge from unknown node %q", from)
		return
	}
	if n.out != nil {
		b.fail("node %q already has an outgoing route", from)
		return
	}
	n.out = out
}

func (b *GraphBuilder[S, U]) validate() error {
	problems := append([]error(nil), b.problems...)

	if b.merge == nil {
		problems = append(problems, errors.New("merge function is required"))
	}
	if len(b.nodes) == 0 {
		problems = append(problems, errors.New("graph has no nodes"))
	}
	if b.entry == nil {
		problems = append(problems, errors.New("graph has no start"))
	} else {
		if b.entrySet > 1 {
			problems = append(problems, errors.New("start set more than once"))
		}
		problems = append(problems, b.validateOutgoing(startNode, b.entry)...)
	}

	for _, id := range b.order {
		n := b.nodes[id]
		if n.out == nil {
			problems = append(problems, fmt.Errorf("node %q has no outgoing edge", id))
			continue
		}
		problems = append(problems, b.validateOutgoing(id, n.out)...)
	}

	if len(problems) == 0 {
		problems = append(problems, b.detectUnreachable()...)
	}
	return errors.Join(problems...)
}

func (b *GraphBuilder[S, U]) validateOutgoing(from NodeID, out *outgoing[S]) []error {
	if out.route == nil {
		if !b.isTarget(out.to) {
			return []error{fmt.Errorf("edge %q -> %q targets unknown node", from, out.to)}
		}
		return nil
	}

	r := out.route
	var problems []error
	if r.Decide == nil {
		problems = append(problems, fmt.Errorf("route after %q has no decision function", from))
	}
	if len(r.Labels) == 0 {
		problems = append(problems, fmt.Errorf("route after %q declares no labels", from))
	}

	declared := make(map[Label]bool, len(r.Labels))
	for _, l := range r.Labels {
		if declared[l] {
			problems = append(problems, fmt.Errorf("route after %q declares label %q twice", from, l))
		}
		declared[l] = true
		target, ok := r.Targets[l]
		if !ok {
			problems = append(problems, fmt.Errorf("route after %q: label %q is not mapped", from, l))
			continue
		}
		if !b.isTarget(target) {
			problems = append(problems, fmt.Errorf("route after %q: label %q targets unknown node %q", from, l, target))
		}
	}
	for l := range r.Targets {
		if !declared[l] {
			problems = append(problems, fmt.Errorf("route after %q: mapped label %q is not declared", from, l))
		}
	}
	return problems
}

func (b *GraphBuilder[S, U]) isTarget(id NodeID) bool {
	if id == End {
		return true
	}
	_, ok := b.nodes[id]
	return ok
}

func (b *GraphBuilder[S, U]) detectUnreachable() []error {
	reachable := make(map[NodeID]bool, len(b.nodes))
	for _, id := range targetsOf(b.entry) {
		b.markReachable(id, reachable)
	}

	var problems []error
	for _, id := range b.order {
		if !reachable[id] {
			problems = append(problems, fmt.Errorf("node %q is unreachable from start", id))
		}
	}
	return problems
}

// markReachable marks all nodes reachable from the given node
func (b *GraphBuilder[S, U]) markReachable(id NodeID, reachable map[NodeID]bool) {
	if id == End || reachable[id] {
		return
	}
	n, ok := b.nodes[id]
	if !ok {
		return
	}
	reachable[id] = true
	for _, next := range targetsOf(n.out) {
		b.markReachable(next, reachable)
	}
}

func targetsOf[S any](out *outgoing[S]) []NodeID {
	if out == nil {
		return nil
	}
	if out.route == nil {
		return []NodeID{out.to}
	}
	targets := make([]NodeID, 0, len(out.route.Labels))
	for _, l := range out.route.Labels {
		if t, ok := out.route.Targets[l]; ok {
			targets = append(targets, t)
		}
	}
	return targets
}

func edgeSummaries[S any](from NodeID, out *outgoing[S]) []EdgeSummary {
	if out == nil {
		return nil
	}
	if out.route == nil {
		return []EdgeSummary{{From: from, To: out.to}}
	}
	edges := make([]EdgeSummary, 0, len(out.route.Labels))
	for _, l := range out.route.Labels {
		edges = append(edges, EdgeSummary{From: from, Label: l, To: out.route.Targets[l]})
	}
	return edges
}
