package rag

import "github.com/BaSui01/adaptiverag/workflow"

// 图中的节点。
const (
	NodeRetrieve       workflow.NodeID = "retrieve"
	NodeWebSearch      workflow.NodeID = "web_search"
	NodeGradeDocuments workflow.NodeID = "grade_documents"
	NodeTransformQuery workflow.NodeID = "transform_query"
	NodeGenerate       workflow.NodeID = "generate"
)

// RouteLabel is the entry router's decision.
type RouteLabel string

const (
	RouteWebSearch   RouteLabel = "web_search"
	RouteVectorstore RouteLabel = "vectorstore"
)

// GradeDecision is the decision taken after grading documents.
type GradeDecision string

const (
	DecisionTransformQuery GradeDecision = "transform_query"
	DecisionGenerate       GradeDecision = "generate"
)

// GenerationGrade is the two-stage verdict on a generation.
type GenerationGrade string

const (
	GenerationNotSupported GenerationGrade = "not supported"
	GenerationUseful       GenerationGrade = "useful"
	GenerationNotUseful    GenerationGrade = "not useful"
)
