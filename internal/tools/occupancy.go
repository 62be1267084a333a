package tools

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/atlasd/internal/answer"
	"github.com/fyrsmithlabs/atlasd/internal/store"
)

// registerOccupancyTools wires the direct store-backed tools. Every handler
// is a thin adapter: arguments in, one domain query, rows out.
func (r *Registry) registerOccupancyTools(db *store.Store) {
	r.register(Schema{
		Name:        "list_floors",
		Description: "List every floor in the building with its storey label.",
	}, func(ctx context.Context, _ Args) (*answer.ResultSet, string, error) {
		rs, err := db.ListFloors(ctx)
		if err != nil {
			return nil, "", err
		}
		return rs, fmt.Sprintf("%d floors", rs.RowCount), nil
	})

	r.register(Schema{
		Name:        "rooms_on_floor",
		Description: "List the rooms on one floor.",
		Args: []ArgSpec{
			{Name: "floor", Type: ArgInt, Required: true},
		},
	}, func(ctx context.Context, args Args) (*answer.ResultSet, string, error) {
		floor := args.Int("floor")
		rs, err := db.RoomsOnFloor(ctx, floor)
		if err != nil {
			return nil, "", err
		}
		return rs, fmt.Sprintf("%d rooms on floor %d", rs.RowCount, floor), nil
	})

	r.register(Schema{
		Name:        "status_floor_now",
		Description: "Latest occupancy reading for every room on a floor.",
		Args: []ArgSpec{
			{Name: "floor", Type: ArgInt, Required: true},
		},
	}, func(ctx context.Context, args Args) (*answer.ResultSet, string, error) {
		floor := args.Int("floor")
		rs, err := db.FloorStatusNow(ctx, floor)
		if err != nil {
			return nil, "", err
		}
		return rs, fmt.Sprintf("current status of %d rooms on floor %d", rs.RowCount, floor), nil
	})

	r.register(Schema{
		Name:        "free_meeting_rooms_now",
		Description: "Meeting rooms on a floor whose latest reading is unoccupied.",
		Args: []ArgSpec{
			{Name: "floor", Type: ArgInt, Required: true},
		},
	}, func(ctx context.Context, args Args) (*answer.ResultSet, string, error) {
		floor := args.Int("floor")
		rs, err := db.FreeMeetingRoomsNow(ctx, floor)
		if err != nil {
			return nil, "", err
		}
		return rs, fmt.Sprintf("%d free meeting rooms on floor %d", rs.RowCount, floor), nil
	})

	r.register(Schema{
		Name:        "utilization_by_floor",
		Description: "Average hourly occupancy rate per floor over a trailing window.",
		Args: []ArgSpec{
			{Name: "days", Type: ArgInt, Default: 30},
		},
	}, func(ctx context.Context, args Args) (*answer.ResultSet, string, error) {
		days := args.Int("days")
		rs, err := db.UtilizationByFloor(ctx, days)
		if err != nil {
			return nil, "", err
		}
		return rs, fmt.Sprintf("utilization for %d floors over %d days", rs.RowCount, days), nil
	})

	r.register(Schema{
		Name:        "utilization_floor",
		Description: "Room count and average occupancy rate for one floor.",
		Args: []ArgSpec{
			{Name: "floor", Type: ArgInt, Required: true},
			{Name: "days", Type: ArgInt, Default: 30},
		},
	}, func(ctx context.Context, args Args) (*answer.ResultSet, string, error) {
		floor, days := args.Int("floor"), args.Int("days")
		rs, err := db.UtilizationFloor(ctx, floor, days)
		if err != nil {
			return nil, "", err
		}
		return rs, fmt.Sprintf("utilization of floor %d over %d days", floor, days), nil
	})

	r.register(Schema{
		Name:        "busiest_rooms",
		Description: "Rooms with the highest occupancy rate, optionally on one floor.",
		Args: []ArgSpec{
			{Name: "floor", Type: ArgInt},
			{Name: "days", Type: ArgInt, Default: 30},
			{Name: "limit", Type: ArgInt, Default: 5},
		},
	}, func(ctx context.Context, args Args) (*answer.ResultSet, string, error) {
		days, limit := args.Int("days"), args.Int("limit")
		rs, err := db.BusiestRooms(ctx, args.OptionalInt("floor"), days, limit)
		if err != nil {
			return nil, "", err
		}
		return rs, fmt.Sprintf("top %d rooms by occupancy over %d days", rs.RowCount, days), nil
	})

	r.register(Schema{
		Name:        "underused_rooms",
		Description: "Rooms below an occupancy-rate threshold over a trailing window.",
		Args: []ArgSpec{
			{Name: "floor", Type: ArgInt},
			{Name: "days", Type: ArgInt, Default: 30},
			{Name: "threshold", Type: ArgFloat, Default: 0.10},
		},
	}, func(ctx context.Context, args Args) (*answer.ResultSet, string, error) {
		days, threshold := args.Int("days"), args.Float("threshold")
		rs, err := db.UnderusedRooms(ctx, args.OptionalInt("floor"), days, threshold)
		if err != nil {
			return nil, "", err
		}
		return rs, fmt.Sprintf("%d rooms under %.0f%% occupancy over %d days",
			rs.RowCount, threshold*100, days), nil
	})

	r.register(Schema{
		Name:        "data_overview",
		Description: "Dataset-level counts and the event time range.",
	}, func(ctx context.Context, _ Args) (*answer.ResultSet, string, error) {
		rs, err := db.DataOverview(ctx)
		if err != nil {
			return nil, "", err
		}
		return rs, "dataset overview", nil
	})
}
