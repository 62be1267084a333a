// Package orchestrator turns routed questions into answer envelopes.
//
// It owns the fallback ladder: deterministic routes (tool, template SQL)
// downgrade to the generative path when they fail, and a failed generation
// downgrades to an evidence-only answer when evidence was already gathered.
// Total failure — no answer and no evidence — is the only case that sets the
// envelope error.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/atlasd/internal/answer"
	"github.com/fyrsmithlabs/atlasd/internal/capability"
	"github.com/fyrsmithlabs/atlasd/internal/router"
)

var tracer = otel.Tracer("atlasd.orchestrator")

// Decider picks a route for a question.
type Decider interface {
	Decide(q answer.Question) router.Decision
}

// ToolInvoker runs a registered tool.
type ToolInvoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) (*answer.Invocation, error)
}

// QueryExecutor runs a validated read-only statement.
type QueryExecutor interface {
	Query(ctx context.Context, sqlText string) (*answer.ResultSet, error)
}

// Retriever fetches grounding passages.
type Retriever interface {
	Retrieve(ctx context.Context, question string) ([]answer.Passage, error)
}

// Orchestrator dispatches questions and assembles envelopes. All
// collaborators are injected at construction and used read-only.
type Orchestrator struct {
	decider    Decider
	tools      ToolInvoker
	store      QueryExecutor
	retrieval  Retriever
	capability capability.Client
	logger     *zap.Logger
}

// New wires an Orchestrator.
func New(decider Decider, tools ToolInvoker, store QueryExecutor, retrieval Retriever,
	client capability.Client, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		decider:    decider,
		tools:      tools,
		store:      store,
		retrieval:  retrieval,
		capability: client,
		logger:     logger,
	}
}

// Ask answers one question. It always returns an envelope; the envelope's
// Err field is set only when no answer could be produced at all.
func (o *Orchestrator) Ask(ctx context.Context, q answer.Question) answer.Envelope {
	ctx, span := tracer.Start(ctx, "Orchestrator.Ask")
	defer span.End()

	start := time.Now()
	d := o.decider.Decide(q)
	RouteDecisions.WithLabelValues(string(d.Route)).Inc()
	span.SetAttributes(attribute.String("route", string(d.Route)))
	o.logger.Info("question routed",
		zap.String("question_id", q.ID),
		zap.String("route", string(d.Route)),
		zap.String("trace", d.Trace),
	)

	env := o.dispatch(ctx, q, d)
	env.QuestionID = q.ID
	env.Elapsed = time.Since(start)
	AskDuration.WithLabelValues(string(env.Route)).Observe(env.Elapsed.Seconds())

	if env.Err != "" {
		span.SetStatus(codes.Error, env.Err)
	}
	return env
}

func (o *Orchestrator) dispatch(ctx context.Context, q answer.Question, d router.Decision) answer.Envelope {
	switch d.Route {
	case answer.RouteTool:
		inv, err := o.tools.Invoke(ctx, d.Tool, d.Args)
		if err != nil {
			Fallbacks.WithLabelValues(string(answer.RouteTool)).Inc()
			o.logger.Warn("tool route failed, downgrading",
				zap.String("tool", d.Tool), zap.Error(err))
			return o.agent(ctx, q, fmt.Sprintf("The %s tool failed: %v.", d.Tool, err))
		}
		return answer.Envelope{
			Answer:   renderInvocation(inv),
			Route:    answer.RouteTool,
			Evidence: []answer.Evidence{answer.ToolOutput(inv)},
		}

	case answer.RouteTemplateSQL:
		rs, err := o.store.Query(ctx, d.SQL)
		if err != nil {
			Fallbacks.WithLabelValues(string(answer.RouteTemplateSQL)).Inc()
			o.logger.Warn("template route failed, downgrading", zap.Error(err))
			return o.agent(ctx, q, fmt.Sprintf("The prepared query failed: %v.", err))
		}
		return answer.Envelope{
			Answer:   renderRows(rs),
			Route:    answer.RouteTemplateSQL,
			Evidence: []answer.Evidence{answer.ExecutedQuery(d.SQL, rs)},
		}

	case answer.RouteAgent:
		return o.agent(ctx, q, "")

	default:
		out, err := o.capability.Generate(ctx, q.Text, nil)
		if err != nil {
			recordCapabilityError(err)
			return answer.Envelope{
				Route: answer.RouteLLMRouting,
				Err:   err.Error(),
			}
		}
		return answer.Envelope{
			Answer: out,
			Route:  answer.RouteLLMRouting,
		}
	}
}

// agent is the generative path: gather grounding evidence concurrently, then
// make the single blocking generation call. reason carries the failure
// context when a deterministic route downgraded here.
func (o *Orchestrator) agent(ctx context.Context, q answer.Question, reason string) answer.Envelope {
	ctx, span := tracer.Start(ctx, "Orchestrator.agent")
	defer span.End()

	var (
		passages []answer.Passage
		probe    *answer.Invocation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := o.retrieval.Retrieve(gctx, q.Text)
		if err != nil {
			o.logger.Warn("retrieval unavailable for agent route", zap.Error(err))
			return nil
		}
		passages = p
		return nil
	})
	g.Go(func() error {
		inv, err := o.tools.Invoke(gctx, "data_overview", nil)
		if err != nil {
			o.logger.Warn("data overview probe failed", zap.Error(err))
			return nil
		}
		probe = inv
		return nil
	})
	_ = g.Wait()

	evidence := make([]answer.Evidence, 0, 2)
	if len(passages) > 0 {
		evidence = append(evidence, answer.RetrievedPassages(passages))
	}
	if probe != nil {
		evidence = append(evidence, answer.ToolOutput(probe))
	}

	out, err := o.capability.Generate(ctx, agentPrompt(q.Text, reason, probe), passages)
	if err != nil {
		recordCapabilityError(err)
		if len(evidence) > 0 {
			// Evidence-only degradation: the caller still gets the gathered
			// facts, just without the narrative.
			o.logger.Warn("generation failed, returning evidence only", zap.Error(err))
			return answer.Envelope{
				Answer:   renderEvidence(evidence),
				Route:    answer.RouteAgent,
				Evidence: evidence,
			}
		}
		return answer.Envelope{
			Route: answer.RouteAgent,
			Err:   err.Error(),
		}
	}

	return answer.Envelope{
		Answer:   out,
		Route:    answer.RouteAgent,
		Evidence: evidence,
	}
}

func recordCapabilityError(err error) {
	if ce, ok := capability.AsCapabilityError(err); ok {
		CapabilityErrors.WithLabelValues(string(ce.Kind)).Inc()
		return
	}
	CapabilityErrors.WithLabelValues("unknown").Inc()
}

func agentPrompt(question, reason string, probe *answer.Invocation) string {
	var b strings.Builder
	if reason != "" {
		b.WriteString("Context: ")
		b.WriteString(reason)
		b.WriteString("\n")
	}
	if probe != nil && probe.Result != nil && len(probe.Result.Rows) > 0 {
		b.WriteString("Dataset: ")
		b.WriteString(renderRow(probe.Result.Rows[0]))
		b.WriteString("\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

// maxRenderRows bounds how many rows make it into a rendered answer; the
// full result set stays in the evidence.
const maxRenderRows = 10

func renderInvocation(inv *answer.Invocation) string {
	var b strings.Builder
	if inv.Summary != "" {
		b.WriteString(inv.Summary)
	} else {
		b.WriteString(inv.Tool)
	}
	if inv.Result != nil && len(inv.Result.Rows) > 0 {
		b.WriteString(":\n")
		b.WriteString(renderRows(inv.Result))
	}
	return b.String()
}

func renderRows(rs *answer.ResultSet) string {
	if rs == nil || len(rs.Rows) == 0 {
		return "No matching rows."
	}
	n := len(rs.Rows)
	if n > maxRenderRows {
		n = maxRenderRows
	}
	lines := make([]string, 0, n+1)
	for _, row := range rs.Rows[:n] {
		lines = append(lines, "- "+renderRow(row))
	}
	if len(rs.Rows) > n {
		lines = append(lines, fmt.Sprintf("… and %d more rows", len(rs.Rows)-n))
	}
	return strings.Join(lines, "\n")
}

// renderRow prints columns in sorted order so identical results render
// identically.
func renderRow(row map[string]any) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, row[k]))
	}
	return strings.Join(parts, ", ")
}

func renderEvidence(evidence []answer.Evidence) string {
	var b strings.Builder
	b.WriteString("The answer could not be generated, but here is what was found:\n")
	for _, ev := range evidence {
		switch ev.Kind {
		case answer.EvidenceRetrievedPassages:
			for _, p := range ev.Passages {
				fmt.Fprintf(&b, "- [%s] %s\n", p.Source, p.Content)
			}
		case answer.EvidenceToolOutput:
			if ev.Tool != nil && ev.Tool.Result != nil {
				b.WriteString(renderRows(ev.Tool.Result))
				b.WriteString("\n")
			}
		case answer.EvidenceExecutedQuery:
			if ev.Result != nil {
				b.WriteString(renderRows(ev.Result))
				b.WriteString("\n")
			}
		}
	}
	return strings.TrimSpace(b.String())
}
