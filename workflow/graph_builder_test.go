package workflow

import (
	"context"
	"testing"

	"github.com/BaSui01/adaptiverag/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterState is a small state used across workflow tests.
type counterState struct {
	Count int
	Path  []NodeID
}

type counterUpdate struct {
	Add   int
	Visit NodeID
}

func mergeCounter(s counterState, u counterUpdate) counterState {
	path := make([]NodeID, len(s.Path), len(s.Path)+1)
	copy(path, s.Path)
	if u.Visit != "" {
		path = append(path, u.Visit)
	}
	return counterState{Count: s.Count + u.Add, Path: path}
}

func addAction(id NodeID, n int) Action[counterState, counterUpdate] {
	return func(_ context.Context, _ counterState) (counterUpdate, error) {
		return counterUpdate{Add: n, Visit: id}, nil
	}
}

type parity string

const (
	parityEven parity = "even"
	parityOdd  parity = "odd"
)

func parityRoute(targets map[Label]NodeID) Route[counterState] {
	return Route[counterState]{
		Name:   "parity",
		Labels: Labels(parityEven, parityOdd),
		Decide: Decide(func(_ context.Context, s counterState) (parity, error) {
			if s.Count%2 == 0 {
				return parityEven, nil
			}
			return parityOdd, nil
		}),
		Targets: targets,
	}
}

func requireGraphConfigError(t *testing.T, err error, contains string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrGraphConfiguration), "got %v", err)
	assert.Contains(t, err.Error(), contains)
}

func TestGraphBuilder_LinearGraph(t *testing.T) {
	g, err := NewGraphBuilder[counterState, counterUpdate]("linear", mergeCounter).
		AddNode("a", addAction("a", 1)).
		AddNode("b", addAction("b", 2)).
		AddEdge("a", "b").
		AddEdge("b", End).
		SetEntry("a").
		Build()

	require.NoError(t, err)
	assert.Equal(t, "linear", g.Name())
	assert.Equal(t, []NodeID{"a", "b"}, g.Nodes())
	assert.Equal(t, []EdgeSummary{
		{From: startNode, To: "a"},
		{From: "a", To: "b"},
		{From: "b", To: End},
	}, g.Edges())
}

func TestGraphBuilder_ConditionalEntryAndCycle(t *testing.T) {
	g, err := NewGraphBuilder[counterState, counterUpdate]("cyclic", mergeCounter).
		AddNode("inc", addAction("inc", 1)).
		AddNode("done", addAction("done", 0)).
		AddConditionalEdges("inc", parityRoute(map[Label]NodeID{"even": "done", "odd": "inc"})).
		AddEdge("done", End).
		SetConditionalEntry(parityRoute(map[Label]NodeID{"even": "inc", "odd": End})).
		Build()

	require.NoError(t, err)
	assert.Len(t, g.Edges(), 5)
}

func TestGraphBuilder_BuiltGraphIsFrozen(t *testing.T) {
	targets := map[Label]NodeID{"even": End, "odd": "inc"}
	b := NewGraphBuilder[counterState, counterUpdate]("frozen", mergeCounter).
		AddNode("inc", addAction("inc", 1)).
		AddConditionalEdges("inc", parityRoute(targets)).
		SetEntry("inc")
	g, err := b.Build()
	require.NoError(t, err)
	edges := g.Edges()

	// 之后对 builder 与调用方 map 的修改都不能影响已构建的图
	b.AddNode("late", addAction("late", 100)).AddEdge("late", End)
	targets["even"] = "late"
	delete(targets, "odd")

	assert.Equal(t, []NodeID{"inc"}, g.Nodes())
	assert.Equal(t, edges, g.Edges())

	state, err := NewExecutor(g).Run(context.Background(), counterState{})
	require.NoError(t, err)
	assert.Equal(t, 2, state.Count)
	assert.Equal(t, []NodeID{"inc", "inc"}, state.Path)
}

func TestGraphBuilder_ValidationFailures(t *testing.T) {
	tests := []struct {
		name     string
		build    func() (*Graph[counterState, counterUpdate], error)
		contains string
	}{
		{
			name: "no nodes",
			build: func() (*Graph[counterState, counterUpdate], error) {
				return NewGraphBuilder[counterState, counterUpdate]("g", mergeCounter).SetEntry("a").Build()
			},
			contains: "graph has no nodes",
		},
		{
			name: "missing start",
			build: func() (*Graph[counterState, counterUpdate], error) {
				return NewGraphBuilder[counterState, counterUpdate]("g", mergeCounter).
					AddNode("a", addAction("a", 1)).
					AddEdge("a", End).
					Build()
			},
			contains: "graph has no start",
		},
		{
			name: "edge to unknown node",
			build: func() (*Graph[counterState, counterUpdate], error) {
				return NewGraphBuilder[counterState, counterUpdate]("g", mergeCounter).
					AddNode("a", addAction("a", 1)).
					AddEdge("a", "ghost").
					SetEntry("a").
					Build()
			},
			contains: `targets unknown node`,
		},
		{
			name: "edge from unknown node",
			build: func() (*Graph[counterState, counterUpdate], error) {
				return NewGraphBuilder[counterState, counterUpdate]("g", mergeCounter).
					AddNode("a", addAction("a", 1)).
					AddEdge("a", End).
					AddEdge("ghost", "a").
					SetEntry("a").
					Build()
			},
			contains: `edge from unknown node "ghost"`,
		},
		{
			name: "label declared but unmapped",
			build: func() (*Graph[counterState, counterUpdate], error) {
				return NewGraphBuilder[counterState, counterUpdate]("g", mergeCounter).
					AddNode("a", addAction("a", 1)).
					AddConditionalEdges("a", parityRoute(map[Label]NodeID{"even": End})).
					SetEntry("a").
					Build()
			},
			contains: `label "odd" is not mapped`,
		},
		{
			name: "mapped label not declared",
			build: func() (*Graph[counterState, counterUpdate], error) {
				return NewGraphBuilder[counterState, counterUpdate]("g", mergeCounter).
					AddNode("a", addAction("a", 1)).
					AddConditionalEdges("a", parityRoute(map[Label]NodeID{"even": End, "odd": End, "prime": End})).
					SetEntry("a").
					Build()
			},
			contains: `mapped label "prime" is not declared`,
		},
		{
			name: "node without outgoing edge",
			build: func() (*Graph[counterState, counterUpdate], error) {
				return NewGraphBuilder[counterState, counterUpdate]("g", mergeCounter).
					AddNode("a", addAction("a", 1)).
					SetEntry("a").
					Build()
			},
			contains: `node "a" has no outgoing edge`,
		},
		{
			name: "unreachable node",
			build: func() (*Graph[counterState, counterUpdate], error) {
				return NewGraphBuilder[counterState, counterUpdate]("g", mergeCounter).
					AddNode("a", addAction("a", 1)).
					AddNode("island", addAction("island", 1)).
					AddEdge("a", End).
					AddEdge("island", End).
					SetEntry("a").
					Build()
			},
			contains: `node "island" is unreachable from start`,
		},
		{
			name: "duplicate node",
			build: func() (*Graph[counterState, counterUpdate], error) {
				return NewGraphBuilder[counterState, counterUpdate]("g", mergeCounter).
					AddNode("a", addAction("a", 1)).
					AddNode("a", addAction("a", 2)).
					AddEdge("a", End).
					SetEntry("a").
					Build()
			},
			contains: `duplicate node "a"`,
		},
		{
			name: "two outgoing routes",
			build: func() (*Graph[counterState, counterUpdate], error) {
				return NewGraphBuilder[counterState, counterUpdate]("g", mergeCounter).
					AddNode("a", addAction("a", 1)).
					AddEdge("a", End).
					AddConditionalEdges("a", parityRoute(map[Label]NodeID{"even": End, "odd": End})).
					SetEntry("a").
					Build()
			},
			contains: `already has an outgoing route`,
		},
		{
			name: "reserved id",
			build: func() (*Graph[counterState, counterUpdate], error) {
				return NewGraphBuilder[counterState, counterUpdate]("g", mergeCounter).
					AddNode(End, addAction(End, 1)).
					Build()
			},
			contains: `is reserved`,
		},
		{
			name: "nil merge",
			build: func() (*Graph[counterState, counterUpdate], error) {
				return NewGraphBuilder[counterState, counterUpdate]("g", nil).
					AddNode("a", addAction("a", 1)).
					AddEdge("a", End).
					SetEntry("a").
					Build()
			},
			contains: "merge function is required",
		},
		{
			name: "route without decision",
			build: func() (*Graph[counterState, counterUpdate], error) {
				return NewGraphBuilder[counterState, counterUpdate]("g", mergeCounter).
					AddNode("a", addAction("a", 1)).
					AddEdge("a", End).
					SetConditionalEntry(Route[counterState]{
						Name:    "broken",
						Labels:  []Label{"x"},
						Targets: map[Label]NodeID{"x": "a"},
					}).
					Build()
			},
			contains: "has no decision function",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := tt.build()
			assert.Nil(t, g)
			requireGraphConfigError(t, err, tt.contains)
		})
	}
}
