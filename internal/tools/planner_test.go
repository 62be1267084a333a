package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/atlasd/internal/answer"
)

func zoneRow(floor int, zone string, peopleHours, rooms, quiet, refresh int64) map[string]any {
	return map[string]any{
		"floor":         int64(floor),
		"zone":          zone,
		"people_hours":  peopleHours,
		"rooms_in_zone": rooms,
		"quiet_cnt":     quiet,
		"refresh_cnt":   refresh,
		"sample_rooms":  "Room A, Room B",
	}
}

func TestRankZonesScoring(t *testing.T) {
	features := &answer.ResultSet{Rows: []map[string]any{
		// Busy, no penalty: score 100.
		zoneRow(3, "10", 100, 4, 0, 0),
		// Busier but all quiet rooms: 120 * (1 - 0.6) = 48.
		zoneRow(3, "20", 120, 2, 2, 0),
		// Busiest but already has a pantry: 150 * 0.5 = 75.
		zoneRow(4, "10", 150, 3, 0, 1),
	}}

	rs := rankZones(features, 3)
	require.Equal(t, 3, rs.RowCount)

	assert.Equal(t, "10", rs.Rows[0]["zone"])
	assert.EqualValues(t, 3, numeric(rs.Rows[0], "floor"))
	assert.InDelta(t, 100.0, numeric(rs.Rows[0], "score"), 0.01)

	assert.EqualValues(t, 4, numeric(rs.Rows[1], "floor"))
	assert.InDelta(t, 75.0, numeric(rs.Rows[1], "score"), 0.01)
	assert.Contains(t, rs.Rows[1]["reason"], "refreshment point")

	assert.InDelta(t, 48.0, numeric(rs.Rows[2], "score"), 0.01)
	assert.Contains(t, rs.Rows[2]["reason"], "quiet")
}

func TestRankZonesTruncatesToK(t *testing.T) {
	features := &answer.ResultSet{Rows: []map[string]any{
		zoneRow(1, "10", 10, 1, 0, 0),
		zoneRow(2, "10", 20, 1, 0, 0),
		zoneRow(3, "10", 30, 1, 0, 0),
	}}

	rs := rankZones(features, 2)
	require.Equal(t, 2, rs.RowCount)
	assert.EqualValues(t, 3, numeric(rs.Rows[0], "floor"))
	assert.EqualValues(t, 2, numeric(rs.Rows[1], "floor"))
}

func TestRankZonesDeterministicTieBreak(t *testing.T) {
	features := &answer.ResultSet{Rows: []map[string]any{
		zoneRow(5, "b", 50, 1, 0, 0),
		zoneRow(5, "a", 50, 1, 0, 0),
		zoneRow(4, "z", 50, 1, 0, 0),
	}}

	for i := 0; i < 10; i++ {
		rs := rankZones(features, 3)
		require.Equal(t, 3, rs.RowCount)
		assert.EqualValues(t, 4, numeric(rs.Rows[0], "floor"))
		assert.Equal(t, "a", rs.Rows[1]["zone"])
		assert.Equal(t, "b", rs.Rows[2]["zone"])
	}
}

func TestRankZonesEmptyFeatures(t *testing.T) {
	rs := rankZones(&answer.ResultSet{}, 3)
	assert.Zero(t, rs.RowCount)
	assert.NotNil(t, rs.Rows)
}

func TestPlanCoffeeMachinesEndToEnd(t *testing.T) {
	r := newRegistry(t)

	inv, err := r.Invoke(context.Background(), "plan_coffee_machines", map[string]any{"k": 2})
	require.NoError(t, err)
	require.LessOrEqual(t, inv.Result.RowCount, 2)
	require.NotEmpty(t, inv.Result.Rows)

	// Floor 3 zone 10 holds the busy meeting rooms and no pantry; it must
	// outrank floor 4 zone 10, which has a refreshment point.
	top := inv.Result.Rows[0]
	assert.EqualValues(t, 3, numeric(top, "floor"))
	assert.Equal(t, "10", top["zone"])
}
