package router

import "fmt"

// SQL templates for the questions that map cleanly onto one analytic query.
// Parameters are extracted integers formatted into the text, never raw user
// input; every built statement still goes through the validator before it
// becomes a decision.

const msPerDay = 86_400_000

func templateUtilizationByFloor(days int) string {
	return fmt.Sprintf(`
		WITH bounds AS (SELECT MAX(event_ts) AS end_ts FROM events),
		win AS (SELECT end_ts, end_ts - %d AS start_ts FROM bounds),
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

func templateUtilizationFloor(floor, days int) string {
	return fmt.Sprintf(`
		WITH bounds AS (SELECT MAX(event_ts) AS end_ts FROM events),
		win AS (SELECT end_ts, end_ts - %d AS start_ts FROM bounds),
		hourly AS (
			SELECT e.space_id, e.event_ts / 3600000 AS hour,
			       MAX(CASE WHEN LOWER(e.occupancy) = 'occupied' THEN 1 ELSE 0 END) AS occ
			FROM events e
			JOIN spaces s ON e.space_id = s.uuid, win
			WHERE s.floor_n = %d
			  AND e.event_ts BETWEEN win.start_ts AND win.end_ts
			GROUP BY e.space_id, hour
		)
		SELECT COUNT(DISTINCT space_id) AS total_rooms,
		       COALESCE(ROUND(AVG(occ) * 100.0, 1), 0) AS avg_utilization_percent
		FROM hourly`, days*msPerDay, floor)
}

func templateCompareFloors(f1, f2, days int) string {
	return fmt.Sprintf(`
		WITH bounds AS (SELECT MAX(event_ts) AS end_ts FROM events),
		win AS (SELECT end_ts, end_ts - %d AS start_ts FROM bounds),
		hourly AS (
			SELECT s.floor_n AS floor, e.event_ts / 3600000 AS hour,
			       MAX(CASE WHEN LOWER(e.occupancy) = 'occupied' THEN 1 ELSE 0 END) AS occ
			FROM events e
			JOIN spaces s ON e.space_id = s.uuid, win
			WHERE s.floor_n IN (%d, %d)
			  AND e.event_ts BETWEEN win.start_ts AND win.end_ts
			GROUP BY floor, hour
		)
		SELECT floor, ROUND(AVG(occ) * 100.0, 1) AS occ_rate_percent
		FROM hourly
		GROUP BY floor
		ORDER BY floor`, days*msPerDay, f1, f2)
}
