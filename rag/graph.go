package rag

import (
	"github.com/BaSui01/adaptiverag/workflow"
	"go.uber.org/zap"
)

// GraphName 是自适应 RAG 图的名称，出现在日志、指标与 span 中。
const GraphName = "adaptive-rag"

// BuildGraph 构建自适应 RAG 图：
//
//	START           -> web_search | retrieve           (route_question)
//	web_search      -> generate
//	retrieve        -> grade_documents
//	grade_documents -> transform_query | generate      (decide_to_generate)
//	transform_query -> retrieve
//	generate        -> generate | END | transform_query (grade_generation)
func BuildGraph(n *Nodes, logger *zap.Logger) (*workflow.Graph[State, Update], error) {
	return workflow.NewGraphBuilder[State, Update](GraphName, Merge).
		WithLogger(logger).
		AddNode(NodeWebSearch, n.WebSearch).
		AddNode(NodeRetrieve, n.Retrieve).
		AddNode(NodeGradeDocuments, n.GradeDocuments).
		AddNode(NodeGenerate, n.Generate).
		AddNode(NodeTransformQuery, n.TransformQuery).
		SetConditionalEntry(workflow.Route[State]{
			Name:   "route_question",
			Labels: workflow.Labels(RouteWebSearch, RouteVectorstore),
			Decide: workflow.Decide(n.RouteQuestion),
			Targets: map[workflow.Label]workflow.NodeID{
				workflow.Label(RouteWebSearch):   NodeWebSearch,
				workflow.Label(RouteVectorstore): NodeRetrieve,
			},
		}).
		AddEdge(NodeWebSearch, NodeGenerate).
		AddEdge(NodeRetrieve, NodeGradeDocuments).
		AddConditionalEdges(NodeGradeDocuments, workflow.Route[State]{
			Name:   "decide_to_generate",
			Labels: workflow.Labels(DecisionTransformQuery, DecisionGenerate),
			Decide: workflow.Decide(n.DecideToGenerate),
			Targets: map[workflow.Label]workflow.NodeID{
				workflow.Label(DecisionTransformQuery): NodeTransformQuery,
				workflow.Label(DecisionGenerate):       NodeGenerate,
			},
		}).
		AddEdge(NodeTransformQuery, NodeRetrieve).
		AddConditionalEdges(NodeGenerate, workflow.Route[State]{
			Name:   "grade_generation",
			Labels: workflow.Labels(GenerationNotSupported, GenerationUseful, GenerationNotUseful),
			Decide: workflow.Decide(n.GradeGeneration),
			Targets: map[workflow.Label]workflow.NodeID{
				workflow.Label(GenerationNotSupported): NodeGenerate,
				workflow.Label(GenerationUseful):       workflow.End,
				workflow.Label(GenerationNotUseful):    NodeTransformQuery,
			},
		}).
		Build()
}
