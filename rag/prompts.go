package rag

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/BaSui01/adaptiverag/types"
)

// PromptSetVersion 标识内置提示词的版本。
const PromptSetVersion = "adaptive-rag/v1"

// DefaultVectorstoreTopics is the topical scope the router assumes for the vectorstore.
const DefaultVectorstoreTopics = "langgraph"

// PromptSet 收拢所有提示词。生成模板视为带校验和的版本化配置。
type PromptSet struct {
	Version string

	RouterSystem        string
	RelevanceSystem     string
	RelevanceHuman      string
	HallucinationSystem string
	HallucinationHuman  string
	AnswerSystem        string
	AnswerHuman         string
	RewriteSystem       string
	RewriteHuman        string

	// RAGTemplate must contain {context} and {question}.
	RAGTemplate string
}

// DefaultPromptSet returns the built-in prompts with the router scoped to topics.
func DefaultPromptSet(topics string) PromptSet {
	if strings.TrimSpace(topics) == "" {
		topics = DefaultVectorstoreTopics
	}
	return PromptSet{
		Version: PromptSetVersion,
		RouterSystem: fmt.Sprintf(`You are an expert at routing a user question to a vectorstore or web search.
The vectorstore contains documents related to %s.
Use the vectorstore for questions on these topics. Otherwise, use web-search.`, topics),
		RelevanceSystem: `You are a grader assessing relevance of a retrieved document to a user question.
If the document contains keyword(s) or semantic meaning related to the user question, grade it as relevant.
It does not need to be a stringent test. The goal is to filter out erroneous retrievals.
Give a binary score 'yes' or 'no' score to indicate whether the document is relevant to the question.`,
		RelevanceHuman: "Retrieved document: \n\n {document} \n\n User question: {question}",
		HallucinationSystem: `You are a grader assessing whether an LLM generation is grounded in / supported by a set of retrieved facts.
Give a binary score 'yes' or 'no'. 'Yes' means that the answer is grounded in / supported by the set of facts.`,
		HallucinationHuman: "Set of facts: \n\n {documents} \n\n LLM generation: {generation}",
		AnswerSystem: `You are a grader assessing whether an answer addresses / resolves a question.
Give a binary score 'yes' or 'no'. 'Yes' means that the answer resolves the question.`,
		AnswerHuman: "User question: \n\n {question} \n\n LLM generation: {generation}",
		RewriteSystem: `You a question re-writer that converts an input question to a better version that is optimized
for vectorstore retrieval. Look at the input and try to reason about the underlying semantic intent / meaning.`,
		RewriteHuman: "Here is the initial question: \n\n {question} \n Formulate an improved question. Respond with the question only.",
		RAGTemplate: `You are an assistant for question-answering tasks. Use the following pieces of retrieved context to answer the question. If you don't know the answer, just say that you don't know. Use three sentences maximum and keep the answer concise.
Question: {question}
Context: {context}
Answer:`,
	}
}

// Checksum 返回整个提示词集合的 SHA-256（十六进制）。
func (p PromptSet) Checksum() string {
	h := sha256.New()
	for _, part := range []string{
		p.Version,
		p.RouterSystem,
		p.RelevanceSystem, p.RelevanceHuman,
		p.HallucinationSystem, p.HallucinationHuman,
		p.AnswerSystem, p.AnswerHuman,
		p.RewriteSystem, p.RewriteHuman,
		p.RAGTemplate,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Validate checks that every template carries its placeholders.
func (p PromptSet) Validate() error {
	required := []struct {
		name, text string
		vars       []string
	}{
		{"router system", p.RouterSystem, nil},
		{"relevance human", p.RelevanceHuman, []string{"{document}", "{question}"}},
		{"hallucination human", p.HallucinationHuman, []string{"{documents}", "{generation}"}},
		{"answer human", p.AnswerHuman, []string{"{question}", "{generation}"}},
		{"rewrite human", p.RewriteHuman, []string{"{question}"}},
		{"rag template", p.RAGTemplate, []string{"{context}", "{question}"}},
	}
	for _, r := range required {
		if strings.TrimSpace(r.text) == "" {
			return types.NewError(types.ErrConfiguration, fmt.Sprintf("prompt %s is empty", r.name))
		}
		for _, v := range r.vars {
			if !strings.Contains(r.text, v) {
				return types.NewError(types.ErrConfiguration, fmt.Sprintf("prompt %s is missing %s", r.name, v))
			}
		}
	}
	return nil
}

// Verify validates the set and, when pinned is non-empty, compares it with the checksum.
func (p PromptSet) Verify(pinned string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	pinned = strings.ToLower(strings.TrimSpace(pinned))
	if pinned == "" {
		return nil
	}
	if got := p.Checksum(); got != pinned {
		return types.NewError(types.ErrConfiguration,
			fmt.Sprintf("prompt set %s checksum mismatch: pinned %s, got %s", p.Version, pinned, got))
	}
	return nil
}

// WithRAGTemplateFile replaces the generation template with the contents of path.
func (p PromptSet) WithRAGTemplateFile(path string) (PromptSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return p, types.NewError(types.ErrConfiguration, "read rag template").WithCause(err)
	}
	p.RAGTemplate = string(data)
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// render substitutes {name} placeholders in one pass, so values containing
// placeholder text are never expanded again.
func render(tmpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
