package rag

import (
	"fmt"
	"strings"

	"github.com/BaSui01/adaptiverag/types"
)

// BinaryScore is a "yes" / "no" verdict.
type BinaryScore string

const (
	ScoreYes BinaryScore = "yes"
	ScoreNo  BinaryScore = "no"
)

func normalizeBinary(s BinaryScore) (BinaryScore, error) {
	v := BinaryScore(strings.ToLower(strings.TrimSpace(string(s))))
	if v != ScoreYes && v != ScoreNo {
		return "", fmt.Errorf("binary_score must be 'yes' or 'no', got %q", string(s))
	}
	return v, nil
}

// RouteDecision routes a question to the vectorstore or to web search.
type RouteDecision struct {
	Datasource RouteLabel `json:"datasource"`
}

// Validate normalizes and checks the datasource.
func (d *RouteDecision) Validate() error {
	v := RouteLabel(strings.ToLower(strings.TrimSpace(string(d.Datasource))))
	if v != RouteWebSearch && v != RouteVectorstore {
		return fmt.Errorf("datasource must be 'web_search' or 'vectorstore', got %q", string(d.Datasource))
	}
	d.Datasource = v
	return nil
}

// RelevanceGrade says whether a retrieved document is relevant to the question.
type RelevanceGrade struct {
	BinaryScore BinaryScore `json:"binary_score"`
}

func (g *RelevanceGrade) Validate() (err error) {
	g.BinaryScore, err = normalizeBinary(g.BinaryScore)
	return err
}

// HallucinationGrade says whether a generation is grounded in the documents.
type HallucinationGrade struct {
	BinaryScore BinaryScore `json:"binary_score"`
}

func (g *HallucinationGrade) Validate() (err error) {
	g.BinaryScore, err = normalizeBinary(g.BinaryScore)
	return err
}

// AnswerGrade says whether a generation resolves the question.
type AnswerGrade struct {
	BinaryScore BinaryScore `json:"binary_score"`
}

func (g *AnswerGrade) Validate() (err error) {
	g.BinaryScore, err = normalizeBinary(g.BinaryScore)
	return err
}

// ====== Schemas ======

func routeDecisionSchema() *types.JSONSchema {
	return types.Object("RouteQuery", "Route a user query to the most relevant datasource.",
		types.Field{Name: "datasource", Schema: types.Enum(
			"Given a user question choose to route it to web search or a vectorstore.",
			string(RouteVectorstore), string(RouteWebSearch))})
}

func binaryScoreSchema(title, desc, field string) *types.JSONSchema {
	return types.Object(title, desc,
		types.Field{Name: "binary_score", Schema: types.Enum(field, string(ScoreYes), string(ScoreNo))})
}

func relevanceGradeSchema() *types.JSONSchema {
	return binaryScoreSchema("GradeDocuments",
		"Binary score for relevance check on retrieved documents.",
		"Documents are relevant to the question, 'yes' or 'no'")
}

func hallucinationGradeSchema() *types.JSONSchema {
	return binaryScoreSchema("GradeHallucinations",
		"Binary score for hallucination present in generation answer.",
		"Answer is grounded in the facts, 'yes' or 'no'")
}

func answerGradeSchema() *types.JSONSchema {
	return binaryScoreSchema("GradeAnswer",
		"Binary score to assess answer addresses question.",
		"Answer addresses the question, 'yes' or 'no'")
}
