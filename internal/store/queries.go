package store

import (
	"context"

	"github.com/fyrsmithlabs/atlasd/internal/answer"
)

// Domain queries over the occupancy relations. All time windows are
// anchored to the newest event in the dataset rather than wall-clock now,
// matching the ingestion cadence of the sensor exports. Hour buckets are
// event_ts/3600000; a room counts as occupied for an hour when any event in
// that hour says so.

const msPerDay = 86_400_000

// ListFloors returns the distinct floors with their storey labels.
func (s *Store) ListFloors(ctx context.Context) (*answer.ResultSet, error) {
	return s.queryArgs(ctx, `
		SELECT DISTINCT floor_n AS floor, storey_name
		FROM spaces
		WHERE floor_n IS NOT NULL
		ORDER BY floor`)
}

// RoomsOnFloor lists the rooms on one floor.
func (s *Store) RoomsOnFloor(ctx context.Context, floor int) (*answer.ResultSet, error) {
	return s.queryArgs(ctx, `
		SELECT code, room_name
		FROM spaces
		WHERE floor_n = ?
		ORDER BY code`, floor)
}

// FloorStatusNow returns the latest occupancy reading per room on a floor.
func (s *Store) FloorStatusNow(ctx context.Context, floor int) (*answer.ResultSet, error) {
	return s.queryArgs(ctx, `
		SELECT s.room_name, e.occupancy, e.event_ts
		FROM events e
		JOIN spaces s ON e.space_id = s.uuid
		WHERE s.floor_n = ?
		  AND e.event_ts = (
			SELECT MAX(e2.event_ts) FROM events e2 WHERE e2.space_id = e.space_id
		  )
		ORDER BY s.code`, floor)
}

// FreeMeetingRoomsNow returns meeting rooms whose latest reading is
// unoccupied.
func (s *Store) FreeMeetingRoomsNow(ctx context.Context, floor int) (*answer.ResultSet, error) {
	return s.queryArgs(ctx, `
		SELECT s.room_name, e.event_ts
		FROM events e
		JOIN spaces s ON e.space_id = s.uuid
		WHERE s.floor_n = ?
		  AND LOWER(COALESCE(s.space_type, '')) LIKE '%meeting%'
		  AND e.event_ts = (
			SELECT MAX(e2.event_ts) FROM events e2 WHERE e2.space_id = e.space_id
		  )
		  AND LOWER(e.occupancy) = 'unoccupied'
		ORDER BY s.code`, floor)
}

// UtilizationByFloor returns the average hourly occupancy rate per floor
// over the trailing window. Floors with no events in the window appear with
// a NULL rate.
func (s *Store) UtilizationByFloor(ctx context.Context, days int) (*answer.ResultSet, error) {
	return s.queryArgs(ctx, `
		WITH bounds AS (SELECT MAX(event_ts) AS end_ts FROM events),
		win AS (SELECT end_ts, end_ts - ? AS start_ts FROM bounds),
		floors AS (
			SELECT DISTINCT floor_n AS floor FROM spaces WHERE floor_n IS NOT NULL
		),
		hourly AS (
			SELECT s.floor_n AS floor, e.event_ts / 3600000 AS hour,
			       MAX(CASE WHEN LOWER(e.occupancy) = 'occupied' THEN 1 ELSE 0 END) AS occ
			FROM events e
			JOIN spaces s ON e.space_id = s.uuid, win
			WHERE e.event_ts BETWEEN win.start_ts AND win.end_ts
			GROUP BY floor, hour
		),
		stats AS (
			SELECT floor, ROUND(AVG(occ) * 100.0, 1) AS occ_rate_percent
			FROM hourly GROUP BY floor
		)
		SELECT f.floor, st.occ_rate_percent
		FROM floors f
		LEFT JOIN stats st ON st.floor = f.floor
		ORDER BY f.floor`, days*msPerDay)
}

// UtilizationFloor returns room count and average occupancy for one floor.
func (s *Store) UtilizationFloor(ctx context.Context, floor, days int) (*answer.ResultSet, error) {
	return s.queryArgs(ctx, `
		WITH bounds AS (SELECT MAX(event_ts) AS end_ts FROM events),
		win AS (SELECT end_ts, end_ts - ? AS start_ts FROM bounds),
		hourly AS (
			SELECT e.space_id, e.event_ts / 3600000 AS hour,
			       MAX(CASE WHEN LOWER(e.occupancy) = 'occupied' THEN 1 ELSE 0 END) AS occ
			FROM events e
			JOIN spaces s ON e.space_id = s.uuid, win
			WHERE s.floor_n = ?
			  AND e.event_ts BETWEEN win.start_ts AND win.end_ts
			GROUP BY e.space_id, hour
		)
		SELECT COUNT(DISTINCT space_id) AS total_rooms,
		       COALESCE(ROUND(AVG(occ) * 100.0, 1), 0) AS avg_utilization_percent
		FROM hourly`, days*msPerDay, floor)
}

// BusiestRooms returns the rooms with the highest occupancy rate in the
// window. floor may be nil for the whole building.
func (s *Store) BusiestRooms(ctx context.Context, floor *int, days, limit int) (*answer.ResultSet, error) {
	floorFilter, args := floorArgs(floor)
	args = append([]any{days * msPerDay}, args...)
	args = append(args, limit)
	return s.queryArgs(ctx, `
		WITH bounds AS (SELECT MAX(event_ts) AS end_ts FROM events),
		win AS (SELECT end_ts, end_ts - ? AS start_ts FROM bounds),
		hourly AS (
			SELECT e.space_id, s.room_name, e.event_ts / 3600000 AS hour,
			       MAX(CASE WHEN LOWER(e.occupancy) = 'occupied' THEN 1 ELSE 0 END) AS occ
			FROM events e
			JOIN spaces s ON e.space_id = s.uuid, win
			WHERE `+floorFilter+`
			  AND e.event_ts BETWEEN win.start_ts AND win.end_ts
			GROUP BY e.space_id, s.room_name, hour
		)
		SELECT room_name, ROUND(AVG(occ) * 100.0, 1) AS occ_rate_percent
		FROM hourly
		GROUP BY space_id, room_name
		ORDER BY occ_rate_percent DESC
		LIMIT ?`, args...)
}

// UnderusedRooms returns rooms below the occupancy threshold (a fraction,
// e.g. 0.10) over the window. Rooms with no events in the window count as
// zero.
func (s *Store) UnderusedRooms(ctx context.Context, floor *int, days int, threshold float64) (*answer.ResultSet, error) {
	floorFilter, args := floorArgs(floor)
	args = append([]any{days * msPerDay}, args...)
	args = append(args, threshold*100)
	return s.queryArgs(ctx, `
		WITH bounds AS (SELECT MAX(event_ts) AS end_ts FROM events),
		win AS (SELECT end_ts, end_ts - ? AS start_ts FROM bounds),
		hours AS (SELECT (end_ts - start_ts) / 3600000 + 1 AS h FROM win),
		rooms AS (
			SELECT s.uuid, s.code, s.room_name
			FROM spaces s
			WHERE `+floorFilter+`
		),
		hourly AS (
			SELECT e.space_id, e.event_ts / 3600000 AS hour,
			       MAX(CASE WHEN LOWER(e.occupancy) = 'occupied' THEN 1 ELSE 0 END) AS occ
			FROM events e
			JOIN rooms r ON e.space_id = r.uuid, win
			WHERE e.event_ts BETWEEN win.start_ts AND win.end_ts
			GROUP BY e.space_id, hour
		),
		occ AS (
			SELECT space_id, SUM(occ) AS occ_hours FROM hourly GROUP BY space_id
		),
		rated AS (
			SELECT r.code, r.room_name,
			       ROUND(COALESCE(o.occ_hours, 0) * 100.0 / (SELECT h FROM hours), 1) AS occ_rate_percent
			FROM rooms r
			LEFT JOIN occ o ON o.space_id = r.uuid
		)
		SELECT code, room_name, occ_rate_percent
		FROM rated
		WHERE occ_rate_percent < ?
		ORDER BY occ_rate_percent ASC, code`, args...)
}

// ZoneFeatures aggregates placement features per zone: recent demand
// (people-hours), room count, quiet rooms (lab/library/focus) and existing
// refreshment points (pantry/kitchen/coffee). hours, when > 0, narrows the
// window to the trailing hours instead of days.
func (s *Store) ZoneFeatures(ctx context.Context, floor *int, hours, days int) (*answer.ResultSet, error) {
	windowMs := days * msPerDay
	if hours > 0 {
		windowMs = hours * 3_600_000
	}
	floorFilter, args := floorArgs(floor)
	args = append([]any{windowMs}, args...)
	return s.queryArgs(ctx, `
		WITH bounds AS (SELECT MAX(event_ts) AS end_ts FROM events),
		win AS (SELECT end_ts, end_ts - ? AS start_ts FROM bounds),
		rooms AS (
			SELECT s.uuid, s.code, s.room_name, s.space_type, s.floor_n, s.zone
			FROM spaces s
			WHERE `+floorFilter+`
			  AND s.zone IS NOT NULL
		),
		hourly AS (
			SELECT e.space_id, e.event_ts / 3600000 AS hour,
			       MAX(CASE WHEN LOWER(e.occupancy) = 'occupied' THEN 1 ELSE 0 END) AS occ
			FROM events e
			JOIN rooms r ON e.space_id = r.uuid, win
			WHERE e.event_ts BETWEEN win.start_ts AND win.end_ts
			GROUP BY e.space_id, hour
		),
		occ AS (
			SELECT space_id, SUM(occ) AS occ_hours FROM hourly GROUP BY space_id
		)
		SELECT r.floor_n AS floor, r.zone,
		       COALESCE(SUM(o.occ_hours), 0) AS people_hours,
		       COUNT(*) AS rooms_in_zone,
		       SUM(CASE WHEN LOWER(COALESCE(r.space_type, '')) LIKE '%lab%'
		                  OR LOWER(COALESCE(r.space_type, '')) LIKE '%library%'
		                  OR LOWER(COALESCE(r.space_type, '')) LIKE '%focus%'
		                THEN 1 ELSE 0 END) AS quiet_cnt,
		       SUM(CASE WHEN LOWER(COALESCE(r.space_type, '')) LIKE '%pantry%'
		                  OR LOWER(COALESCE(r.space_type, '')) LIKE '%kitchen%'
		                  OR LOWER(COALESCE(r.space_type, '')) LIKE '%coffee%'
		                THEN 1 ELSE 0 END) AS refresh_cnt,
		       GROUP_CONCAT(r.room_name, ', ') AS sample_rooms
		FROM rooms r
		LEFT JOIN occ o ON o.space_id = r.uuid
		GROUP BY r.floor_n, r.zone
		ORDER BY r.floor_n, r.zone`, args...)
}

// DataOverview returns dataset-level counts and the event time range. Handy
// as a first probe when a question doesn't map to anything more specific.
func (s *Store) DataOverview(ctx context.Context) (*answer.ResultSet, error) {
	return s.queryArgs(ctx, `
		SELECT (SELECT COUNT(*) FROM spaces) AS total_rooms,
		       (SELECT COUNT(DISTINCT floor_n) FROM spaces WHERE floor_n IS NOT NULL) AS total_floors,
		       (SELECT COUNT(*) FROM events) AS total_events,
		       (SELECT MIN(event_ts) FROM events) AS first_event_ts,
		       (SELECT MAX(event_ts) FROM events) AS last_event_ts`)
}

func floorArgs(floor *int) (string, []any) {
	if floor == nil {
		return "1 = 1", nil
	}
	return "s.floor_n = ?", []any{*floor}
}
