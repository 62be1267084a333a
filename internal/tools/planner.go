package tools

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/fyrsmithlabs/atlasd/internal/answer"
	"github.com/fyrsmithlabs/atlasd/internal/store"
)

// Placement scoring weights. Quiet zones (labs, libraries, focus pods) lose
// up to quietWeight of their demand score; zones that already have a pantry
// or coffee point keep half.
const (
	quietWeight     = 0.6
	refreshDiscount = 0.5
)

// registerPlanner wires the coffee-machine placement planner. It ranks zones
// by recent demand (people-hours), discounts quiet zones proportionally to
// their quiet-room share, and halves zones that already have a refreshment
// point.
func (r *Registry) registerPlanner(db *store.Store) {
	r.register(Schema{
		Name:        "plan_coffee_machines",
		Description: "Suggest zones for new coffee machines, ranked by demand with quiet-zone and existing-refreshment penalties.",
		Args: []ArgSpec{
			{Name: "k", Type: ArgInt, Default: 3},
			{Name: "floor", Type: ArgInt},
			{Name: "days", Type: ArgInt, Default: 30},
		},
	}, func(ctx context.Context, args Args) (*answer.ResultSet, string, error) {
		k, days := args.Int("k"), args.Int("days")
		features, err := db.ZoneFeatures(ctx, args.OptionalInt("floor"), 0, days)
		if err != nil {
			return nil, "", err
		}
		rs := rankZones(features, k)
		return rs, fmt.Sprintf("%d placement suggestions over %d days", rs.RowCount, days), nil
	})
}

func rankZones(features *answer.ResultSet, k int) *answer.ResultSet {
	type candidate struct {
		row   map[string]any
		score float64
	}

	candidates := make([]candidate, 0, len(features.Rows))
	for _, row := range features.Rows {
		peopleHours := numeric(row, "people_hours")
		roomsInZone := numeric(row, "rooms_in_zone")
		quietCnt := numeric(row, "quiet_cnt")
		refreshCnt := numeric(row, "refresh_cnt")

		quietShare := 0.0
		if roomsInZone > 0 {
			quietShare = quietCnt / roomsInZone
		}
		score := peopleHours * (1 - quietWeight*quietShare)
		if refreshCnt > 0 {
			score *= refreshDiscount
		}

		out := map[string]any{
			"floor":        row["floor"],
			"zone":         row["zone"],
			"score":        math.Round(score*10) / 10,
			"people_hours": row["people_hours"],
			"quiet_cnt":    row["quiet_cnt"],
			"refresh_cnt":  row["refresh_cnt"],
			"sample_rooms": row["sample_rooms"],
			"reason":       placementReason(peopleHours, quietShare, refreshCnt),
		}
		candidates = append(candidates, candidate{row: out, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		// Stable rank for equal scores: by floor then zone.
		fi, fj := numeric(candidates[i].row, "floor"), numeric(candidates[j].row, "floor")
		if fi != fj {
			return fi < fj
		}
		zi, _ := candidates[i].row["zone"].(string)
		zj, _ := candidates[j].row["zone"].(string)
		return zi < zj
	})

	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}

	rows := make([]map[string]any, len(candidates))
	for i, c := range candidates {
		rows[i] = c.row
	}
	return &answer.ResultSet{
		Columns: []string{
			"floor", "zone", "score", "people_hours",
			"quiet_cnt", "refresh_cnt", "sample_rooms", "reason",
		},
		Rows:     rows,
		RowCount: len(rows),
		Cap:      features.Cap,
	}
}

func placementReason(peopleHours, quietShare, refreshCnt float64) string {
	switch {
	case refreshCnt > 0:
		return fmt.Sprintf("high traffic (%.0f people-hours) but already has a refreshment point", peopleHours)
	case quietShare > 0.5:
		return fmt.Sprintf("%.0f people-hours, mostly quiet rooms", peopleHours)
	default:
		return fmt.Sprintf("%.0f people-hours, no refreshment point nearby", peopleHours)
	}
}

func numeric(row map[string]any, key string) float64 {
	switch v := row[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}
