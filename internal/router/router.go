// Package router maps a natural-language question to a resolution strategy.
//
// Routing is an explicit ordered list of pure predicate rules, cheapest
// first: direct tool matches, then SQL templates, then the planning agent
// for open-ended questions, then generative routing as the default. The
// first rule that matches wins; no rule consults the model, the store, or
// any other external state, so the same text always produces the same
// decision.
package router

import (
	"strings"

	"github.com/fyrsmithlabs/atlasd/internal/answer"
	"github.com/fyrsmithlabs/atlasd/internal/sqlguard"
)

// Decision is the routing outcome. Exactly the fields for the chosen route
// are set: Tool+Args for RouteTool, SQL (validated, LIMIT-capped) for
// RouteTemplateSQL, neither for the generative routes.
type Decision struct {
	Route answer.Route
	Tool  string
	Args  map[string]any
	SQL   string
	// Trace is a short explanation of which rule fired, for logs only.
	Trace string
}

// Router decides routes. It holds only the row cap used when validating
// built templates.
type Router struct {
	maxRows int
}

// New creates a Router. maxRows is the result cap the validator injects into
// template queries that carry no LIMIT.
func New(maxRows int) *Router {
	if maxRows <= 0 {
		maxRows = 500
	}
	return &Router{maxRows: maxRows}
}

// Decide picks the route for a question. Pure and deterministic.
func (r *Router) Decide(q answer.Question) Decision {
	qn := normalize(q.Text)
	if qn == "" {
		return Decision{Route: answer.RouteLLMRouting, Trace: "empty question"}
	}

	if d, ok := r.toolRule(qn); ok {
		return d
	}
	if d, ok := r.templateRule(qn); ok {
		return d
	}
	if needsAgent(qn) {
		return Decision{Route: answer.RouteAgent, Trace: "explanatory or open-ended markers"}
	}
	return Decision{Route: answer.RouteLLMRouting, Trace: "no rule matched"}
}

// toolRule covers questions that name a tool's job directly and carry every
// argument the tool needs.
func (r *Router) toolRule(qn string) (Decision, bool) {
	// Placement planning before everything else: "coffee machine" questions
	// often also mention floors and windows.
	if containsAny(qn, "coffee", "pantry", "kitchen") &&
		containsAny(qn, "machine", "machines", "placement", "spot", "spots", "place", "install") {
		args := map[string]any{}
		if k, ok := parseTopK(qn); ok {
			args["k"] = k
		}
		if floor, ok := parseFloor(qn); ok {
			args["floor"] = floor
		}
		if days, _ := parseWindow(qn); days > 0 {
			args["days"] = days
		}
		return Decision{Route: answer.RouteTool, Tool: "plan_coffee_machines", Args: args,
			Trace: "tool: placement keywords"}, true
	}

	if isListFloors(qn) {
		return Decision{Route: answer.RouteTool, Tool: "list_floors", Args: map[string]any{},
			Trace: "tool: list floors"}, true
	}

	if containsAny(qn, "free", "available") && strings.Contains(qn, "meeting") &&
		mentionsNow(qn) {
		if floor, ok := parseFloor(qn); ok {
			return Decision{Route: answer.RouteTool, Tool: "free_meeting_rooms_now",
				Args: map[string]any{"floor": floor}, Trace: "tool: free meeting rooms"}, true
		}
	}

	if containsAny(qn, "status", "occupied right now", "who is in") {
		if floor, ok := parseFloor(qn); ok {
			return Decision{Route: answer.RouteTool, Tool: "status_floor_now",
				Args: map[string]any{"floor": floor}, Trace: "tool: floor status"}, true
		}
	}

	if containsAny(qn, "busiest", "most used", "most popular", "top rooms") {
		args := map[string]any{}
		if floor, ok := parseFloor(qn); ok {
			args["floor"] = floor
		}
		if days, _ := parseWindow(qn); days > 0 {
			args["days"] = days
		}
		if k, ok := parseTopK(qn); ok {
			args["limit"] = k
		}
		return Decision{Route: answer.RouteTool, Tool: "busiest_rooms", Args: args,
			Trace: "tool: busiest rooms"}, true
	}

	if strings.Contains(qn, "underused") || strings.Contains(qn, "least used") ||
		(strings.Contains(qn, "least") && strings.Contains(qn, "used")) {
		args := map[string]any{}
		if floor, ok := parseFloor(qn); ok {
			args["floor"] = floor
		}
		if days, _ := parseWindow(qn); days > 0 {
			args["days"] = days
		}
		if thr, ok := parseThreshold(qn); ok {
			args["threshold"] = thr
		}
		return Decision{Route: answer.RouteTool, Tool: "underused_rooms", Args: args,
			Trace: "tool: underused rooms"}, true
	}

	if isRoomsOnFloor(qn) {
		if floor, ok := parseFloor(qn); ok {
			return Decision{Route: answer.RouteTool, Tool: "rooms_on_floor",
				Args: map[string]any{"floor": floor}, Trace: "tool: rooms on floor"}, true
		}
		if floor, ok := parseFloorFromRoomCode(qn); ok {
			return Decision{Route: answer.RouteTool, Tool: "rooms_on_floor",
				Args: map[string]any{"floor": floor}, Trace: "tool: rooms on floor (room code)"}, true
		}
	}

	if containsAny(qn, "what data", "which data", "data overview", "data do you have",
		"what do you know about") {
		return Decision{Route: answer.RouteTool, Tool: "data_overview", Args: map[string]any{},
			Trace: "tool: data overview"}, true
	}

	return Decision{}, false
}

// templateRule covers the analytic questions served by a pre-built SQL
// template. Built statements run through the validator here; a template that
// fails validation falls through rather than shipping a rejected query.
func (r *Router) templateRule(qn string) (Decision, bool) {
	if f1, f2, ok := parseCompareFloors(qn); ok {
		days, _ := parseWindow(qn)
		if days == 0 {
			days = 7
		}
		return r.validated(templateCompareFloors(f1, f2, days), "template: compare floors")
	}

	if strings.Contains(qn, "utilization") || strings.Contains(qn, "utilisation") {
		days, _ := parseWindow(qn)
		if days == 0 {
			days = 30
		}
		if containsAny(qn, "by floor", "per floor", "each floor", "all floors") {
			return r.validated(templateUtilizationByFloor(days), "template: utilization by floor")
		}
		if floor, ok := parseFloor(qn); ok {
			return r.validated(templateUtilizationFloor(floor, days), "template: utilization of one floor")
		}
	}

	return Decision{}, false
}

func (r *Router) validated(sql, trace string) (Decision, bool) {
	safe, rej := sqlguard.Validate(sql, r.maxRows)
	if rej != nil {
		// A template that cannot pass its own validator is a bug; fall
		// through to the generative routes instead of shipping it.
		return Decision{}, false
	}
	return Decision{Route: answer.RouteTemplateSQL, SQL: safe, Trace: trace}, true
}

// needsAgent flags open-ended questions that want planning and grounding
// rather than one lookup.
func needsAgent(qn string) bool {
	if containsAny(qn, "why", "how come", "explain", "describe", "recommend",
		"suggest", "tradeoff", "trade-off", "policy", "rules", "definition", "meaning") {
		return true
	}
	if strings.Contains(qn, "which rooms are") || strings.Contains(qn, "what kind of") {
		return true
	}
	// Multi-intent compositions, except the compare-floors template shape.
	if strings.Contains(qn, " and ") {
		if _, _, ok := parseCompareFloors(qn); !ok {
			return true
		}
	}
	// Very long prompts usually need planning.
	return len(qn) > 180
}

func isListFloors(qn string) bool {
	switch qn {
	case "floors", "levels", "list floors", "show floors":
		return true
	}
	// A floor mention next to a metric word is a metric question, not an
	// enumeration.
	if containsAny(qn, "status", "utilization", "utilisation", "busiest",
		"underused", "free", "compare", "room") {
		return false
	}
	hasListVerb := containsAny(qn, "list", "show", "which", "what", "give me", "display", "enumerate", "how many")
	hasFloorWord := containsAny(qn, "floor", "level", "storey", "story")
	return hasListVerb && hasFloorWord
}

func isRoomsOnFloor(qn string) bool {
	return containsAny(qn, "room", "rooms") &&
		containsAny(qn, "floor", "level", "storey")
}
