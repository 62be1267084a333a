// Package answer defines the request/response data model shared by the
// router, orchestrator and transport layers: the incoming Question, the
// routing decision's Route tag, the Evidence attached to an answer, and the
// AnswerEnvelope returned to the caller.
package answer

import (
	"time"

	"github.com/google/uuid"
)

// Route identifies which resolution strategy handled a question.
type Route string

const (
	// RouteTool resolves via a registered domain tool.
	RouteTool Route = "tool"
	// RouteTemplateSQL resolves via a parameterized, pre-validated SQL template.
	RouteTemplateSQL Route = "template_sql"
	// RouteAgent resolves via retrieval-grounded generation with tool access.
	RouteAgent Route = "agent"
	// RouteLLMRouting is the default: the capability client answers directly.
	RouteLLMRouting Route = "llm_routing"
)

// Question is a single natural-language request. Immutable once received.
type Question struct {
	ID             string `json:"id"`
	Text           string `json:"text"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// NewQuestion wraps raw text in a Question with a fresh id.
func NewQuestion(text string) Question {
	return Question{ID: uuid.NewString(), Text: text}
}

// ResultSet is the output of one executed query. Rows are ordered as the
// store returned them and never exceed Cap.
type ResultSet struct {
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
	Cap      int              `json:"cap"`
}

// Passage is one retrieved grounding chunk with provenance.
type Passage struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	ChunkID string  `json:"chunk_id"`
	Score   float32 `json:"score"`
}

// Invocation records one tool call: name, arguments as received, and the
// rows the tool produced.
type Invocation struct {
	Tool    string         `json:"tool"`
	Args    map[string]any `json:"args,omitempty"`
	Result  *ResultSet     `json:"result,omitempty"`
	Summary string         `json:"summary,omitempty"`
}

// EvidenceKind tags the Evidence union.
type EvidenceKind string

const (
	EvidenceExecutedQuery     EvidenceKind = "executed_query"
	EvidenceRetrievedPassages EvidenceKind = "retrieved_passages"
	EvidenceToolOutput        EvidenceKind = "tool_output"
)

// Evidence is an auditable artifact attached to an answer. Exactly one of
// the payload fields is set, matching Kind.
type Evidence struct {
	Kind EvidenceKind `json:"kind"`

	SQL      string      `json:"sql,omitempty"`
	Result   *ResultSet  `json:"result,omitempty"`
	Passages []Passage   `json:"passages,omitempty"`
	Tool     *Invocation `json:"tool,omitempty"`
}

// ExecutedQuery builds evidence for a query that ran against the store.
func ExecutedQuery(sql string, rs *ResultSet) Evidence {
	return Evidence{Kind: EvidenceExecutedQuery, SQL: sql, Result: rs}
}

// RetrievedPassages builds evidence for grounding passages.
func RetrievedPassages(passages []Passage) Evidence {
	return Evidence{Kind: EvidenceRetrievedPassages, Passages: passages}
}

// ToolOutput builds evidence for a completed tool invocation.
func ToolOutput(inv *Invocation) Evidence {
	return Evidence{Kind: EvidenceToolOutput, Tool: inv}
}

// Envelope is the single response shape returned to callers. Created once
// per Question by the orchestrator and immutable afterwards. Err is set only
// when no answer could be produced at all; partial failures downgrade to an
// evidence-only answer instead.
type Envelope struct {
	QuestionID string        `json:"question_id"`
	Answer     string        `json:"answer"`
	Route      Route         `json:"route"`
	Evidence   []Evidence    `json:"evidence,omitempty"`
	Err        string        `json:"error,omitempty"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}
