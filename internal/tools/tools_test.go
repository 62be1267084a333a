package tools

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"

	"github.com/fyrsmithlabs/atlasd/internal/config"
	"github.com/fyrsmithlabs/atlasd/internal/store"
)

const endTS = int64(1_700_000_000_000)

func hoursAgo(h int) int64 { return endTS - int64(h)*3_600_000 }

// newRegistry builds a registry over a small occupancy fixture: two floors,
// a busy meeting zone, a quiet zone with a focus pod, and a pantry zone.
func newRegistry(t *testing.T) *Registry {
	t.Helper()

	path := filepath.Join(t.TempDir(), "atlas.db")
	db, err := sql.Open("sqlite", "file:"+path)
	require.NoError(t, err)

	_, err = db.Exec(`
		CREATE TABLE spaces (
			uuid TEXT PRIMARY KEY,
			code TEXT,
			room_name TEXT,
			storey_name TEXT,
			space_type TEXT,
			floor_n INTEGER,
			zone TEXT
		);
		CREATE TABLE events (
			space_id TEXT,
			event_ts INTEGER,
			occupancy TEXT
		);
		INSERT INTO spaces VALUES
			('u1', '3.101', 'Meeting Alpha', 'Third floor', 'Meeting room', 3, '10'),
			('u2', '3.102', 'Meeting Beta', 'Third floor', 'Meeting room', 3, '10'),
			('u3', '3.201', 'Focus Pod', 'Third floor', 'Focus room', 3, '20'),
			('u4', '4.101', 'Pantry North', 'Fourth floor', 'Pantry', 4, '10'),
			('u5', '4.102', 'Office Delta', 'Fourth floor', 'Office', 4, '10');
	`)
	require.NoError(t, err)

	insert := func(space string, ts int64, occ string) {
		_, err := db.Exec(`INSERT INTO events VALUES (?, ?, ?)`, space, ts, occ)
		require.NoError(t, err)
	}
	for h := 0; h < 24; h++ {
		insert("u1", hoursAgo(h), "occupied")
	}
	insert("u2", hoursAgo(0), "unoccupied")
	insert("u3", hoursAgo(1), "unoccupied")
	insert("u4", hoursAgo(2), "occupied")
	insert("u5", hoursAgo(3), "unoccupied")
	require.NoError(t, db.Close())

	s, err := store.Open(config.StoreConfig{
		Path:         path,
		MaxRows:      100,
		QueryTimeout: config.Duration(5 * time.Second),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return NewRegistry(s, zap.NewNop())
}

func TestRegistryListsAllTools(t *testing.T) {
	r := newRegistry(t)

	schemas := r.Schemas()
	names := make([]string, len(schemas))
	for i, s := range schemas {
		names[i] = s.Name
	}

	for _, want := range []string{
		"busiest_rooms", "data_overview", "free_meeting_rooms_now",
		"list_floors", "plan_coffee_machines", "rooms_on_floor",
		"status_floor_now", "underused_rooms", "utilization_by_floor",
		"utilization_floor",
	} {
		assert.Contains(t, names, want)
	}
	assert.True(t, r.Has("list_floors"))
	assert.False(t, r.Has("drop_tables"))
}

func TestInvokeUnknownTool(t *testing.T) {
	r := newRegistry(t)

	_, err := r.Invoke(context.Background(), "no_such_tool", nil)
	te, ok := IsToolError(err)
	require.True(t, ok)
	assert.Equal(t, KindNotFound, te.Kind)
}

func TestInvokeArgumentValidation(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		tool   string
		args   map[string]any
		detail string
	}{
		{"missing required", "rooms_on_floor", nil, "missing required"},
		{"unknown argument", "list_floors", map[string]any{"bogus": 1}, "unknown argument"},
		{"wrong type", "rooms_on_floor", map[string]any{"floor": "three"}, "must be int"},
		{"fractional int", "rooms_on_floor", map[string]any{"floor": 3.5}, "must be int"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Invoke(ctx, tc.tool, tc.args)
			te, ok := IsToolError(err)
			require.True(t, ok)
			assert.Equal(t, KindBadArguments, te.Kind)
			assert.Contains(t, te.Detail, tc.detail)
		})
	}
}

func TestInvokeAppliesDefaults(t *testing.T) {
	r := newRegistry(t)

	inv, err := r.Invoke(context.Background(), "busiest_rooms", map[string]any{"floor": 3})
	require.NoError(t, err)

	// days and limit came from schema defaults.
	assert.Equal(t, 30, Args(inv.Args).Int("days"))
	assert.Equal(t, 5, Args(inv.Args).Int("limit"))
	require.NotNil(t, inv.Result)
	assert.Equal(t, "Meeting Alpha", inv.Result.Rows[0]["room_name"])
}

func TestInvokeJSONNumbers(t *testing.T) {
	r := newRegistry(t)

	// Decoded JSON delivers float64 for every number.
	inv, err := r.Invoke(context.Background(), "rooms_on_floor", map[string]any{"floor": float64(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, inv.Result.RowCount)
}

func TestInvokeFreeMeetingRooms(t *testing.T) {
	r := newRegistry(t)

	inv, err := r.Invoke(context.Background(), "free_meeting_rooms_now", map[string]any{"floor": 3})
	require.NoError(t, err)
	require.Equal(t, 1, inv.Result.RowCount)
	assert.Equal(t, "Meeting Beta", inv.Result.Rows[0]["room_name"])
	assert.Contains(t, inv.Summary, "free meeting rooms")
}

func TestInvokeDataOverview(t *testing.T) {
	r := newRegistry(t)

	inv, err := r.Invoke(context.Background(), "data_overview", nil)
	require.NoError(t, err)
	require.Equal(t, 1, inv.Result.RowCount)
	assert.EqualValues(t, 5, inv.Result.Rows[0]["total_rooms"])
}
