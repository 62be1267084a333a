package router

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/atlasd/internal/answer"
)

func decide(text string) Decision {
	return New(500).Decide(answer.NewQuestion(text))
}

func TestDecideToolRoutes(t *testing.T) {
	tests := []struct {
		name string
		text string
		tool string
		args map[string]any
	}{
		{"list floors", "Which floors are there?", "list_floors", map[string]any{}},
		{"list floors short", "floors", "list_floors", map[string]any{}},
		{"how many floors", "How many floors does the building have?", "list_floors", map[string]any{}},
		{"rooms on floor", "List the rooms on floor 3", "rooms_on_floor", map[string]any{"floor": 3}},
		{"rooms via room code", "Which rooms are near 3.142 on that floor?", "rooms_on_floor", map[string]any{"floor": 3}},
		{"free meeting rooms", "Any free meeting rooms on floor 3 right now?", "free_meeting_rooms_now", map[string]any{"floor": 3}},
		{"floor status", "What is the status of floor 4 currently?", "status_floor_now", map[string]any{"floor": 4}},
		{"busiest", "busiest rooms last 7 days", "busiest_rooms", map[string]any{"days": 7}},
		{"busiest top k", "top 3 busiest rooms on floor 2", "busiest_rooms", map[string]any{"floor": 2, "limit": 3}},
		{"underused", "underused rooms below 5% last month", "underused_rooms", map[string]any{"days": 30, "threshold": 0.05}},
		{"coffee planner", "Where should we place 2 coffee machines on floor 3?", "plan_coffee_machines", map[string]any{"k": 2, "floor": 3}},
		{"data overview", "What data do you have?", "data_overview", map[string]any{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := decide(tc.text)
			require.Equal(t, answer.RouteTool, d.Route, "trace: %s", d.Trace)
			assert.Equal(t, tc.tool, d.Tool)
			assert.Equal(t, tc.args, d.Args)
			assert.Empty(t, d.SQL)
		})
	}
}

func TestDecideTemplateSQL(t *testing.T) {
	d := decide("Utilization by floor last 30 days")
	require.Equal(t, answer.RouteTemplateSQL, d.Route, "trace: %s", d.Trace)

	sql := strings.ToUpper(d.SQL)
	assert.Contains(t, sql, "WITH")
	assert.Contains(t, sql, "SELECT")
	assert.Contains(t, sql, "LIMIT")
	// 30 days in event-timestamp milliseconds.
	assert.Contains(t, d.SQL, "2592000000")
}

func TestDecideTemplateCompareFloors(t *testing.T) {
	d := decide("Compare floors 3 and 4 last 2 weeks")
	require.Equal(t, answer.RouteTemplateSQL, d.Route, "trace: %s", d.Trace)
	assert.Contains(t, d.SQL, "IN (3, 4)")
	// 14 days in milliseconds.
	assert.Contains(t, d.SQL, "1209600000")
	assert.Contains(t, strings.ToUpper(d.SQL), "LIMIT")
}

func TestDecideTemplateSingleFloor(t *testing.T) {
	d := decide("utilization of floor 5 last week")
	require.Equal(t, answer.RouteTemplateSQL, d.Route, "trace: %s", d.Trace)
	assert.Contains(t, d.SQL, "floor_n = 5")
	assert.Contains(t, d.SQL, "604800000")
}

func TestDecideAgentRoutes(t *testing.T) {
	tests := []string{
		"Why is the 3rd floor underutilized?",
		"Explain the occupancy trend on floor 2",
		"Recommend a better desk layout",
		"Describe how the meeting rooms are used",
		"What kind of spaces get the least traffic?",
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			d := decide(text)
			assert.Equal(t, answer.RouteAgent, d.Route, "trace: %s", d.Trace)
		})
	}
}

func TestDecideDefaultRoute(t *testing.T) {
	d := decide("hello there")
	assert.Equal(t, answer.RouteLLMRouting, d.Route)

	d = decide("")
	assert.Equal(t, answer.RouteLLMRouting, d.Route)
}

func TestDecideDeterministic(t *testing.T) {
	questions := []string{
		"Utilization by floor last 30 days",
		"Why is the 3rd floor underutilized?",
		"List the rooms on floor 3",
		"compare floors 1 and 2",
	}
	r := New(500)
	for _, text := range questions {
		q := answer.NewQuestion(text)
		first := r.Decide(q)
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, r.Decide(q), "question %q", text)
		}
	}
}

func TestTemplatesPassValidator(t *testing.T) {
	r := New(500)
	for name, sql := range map[string]string{
		"by_floor": templateUtilizationByFloor(30),
		"floor":    templateUtilizationFloor(3, 7),
		"compare":  templateCompareFloors(3, 4, 7),
	} {
		t.Run(name, func(t *testing.T) {
			d, ok := r.validated(sql, "test")
			require.True(t, ok)
			assert.Equal(t, answer.RouteTemplateSQL, d.Route)
			assert.Contains(t, strings.ToUpper(d.SQL), "LIMIT")
		})
	}
}
