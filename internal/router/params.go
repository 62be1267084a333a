package router

import (
	"regexp"
	"strconv"
	"strings"
)

// Parameter extraction shared by the routing rules. All extractors work on
// normalized (lowercased, whitespace-collapsed) text and return ok=false
// rather than guessing when the text is ambiguous.

var (
	floorWordRe    = regexp.MustCompile(`(?:floor|level|storey)\s*([+-]?\d+)`)
	floorOrdRe     = regexp.MustCompile(`(\d+)(?:st|nd|rd|th)\s+(?:floor|level|storey)`)
	roomCodeRe     = regexp.MustCompile(`\b(\d)\.\d{2,3}\b`)
	windowRe       = regexp.MustCompile(`(?:last|past)\s+(\d+)\s*(day|week|month|hour)s?`)
	thresholdRe    = regexp.MustCompile(`(?:<|below|under)\s*(\d+)\s*%?`)
	percentRe      = regexp.MustCompile(`(\d+)\s*(?:%|percent)`)
	topKRe         = regexp.MustCompile(`\b(?:top|best)\s+(\d+)\b`)
	countNounRe    = regexp.MustCompile(`\b(\d+)\s+(?:coffee\s+)?(?:machines?|spots?|locations?|suggestions?|places?)\b`)
	compareRe      = regexp.MustCompile(`compare\s+floors?\s+([+-]?\d+)\s+(?:and|&|vs\.?|versus)\s+([+-]?\d+)`)
	nowRe          = regexp.MustCompile(`\b(?:now|currently)\b|this moment`)
)

func normalize(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// parseFloor finds an explicit floor reference: "floor 3", "level -1",
// "3rd floor". Bare numbers are never treated as floors; too many of them
// are windows ("last 7 days") or room codes.
func parseFloor(qn string) (int, bool) {
	if m := floorWordRe.FindStringSubmatch(qn); m != nil {
		return mustAtoi(m[1]), true
	}
	if m := floorOrdRe.FindStringSubmatch(qn); m != nil {
		return mustAtoi(m[1]), true
	}
	return 0, false
}

// parseFloorFromRoomCode infers a floor from a room code like "3.142".
func parseFloorFromRoomCode(qn string) (int, bool) {
	if m := roomCodeRe.FindStringSubmatch(qn); m != nil {
		return mustAtoi(m[1]), true
	}
	return 0, false
}

// parseWindow extracts a trailing time window as (days, hours). "now" means
// the last hour; "last week" seven days; "last N months" 30·N days. Both
// zero when the text names no window.
func parseWindow(qn string) (days, hours int) {
	if mentionsNow(qn) {
		return 0, 1
	}
	if m := windowRe.FindStringSubmatch(qn); m != nil {
		n := mustAtoi(m[1])
		switch m[2] {
		case "hour":
			return 0, n
		case "week":
			return n * 7, 0
		case "month":
			return n * 30, 0
		default:
			return n, 0
		}
	}
	switch {
	case strings.Contains(qn, "last week"), strings.Contains(qn, "past week"):
		return 7, 0
	case strings.Contains(qn, "last month"), strings.Contains(qn, "past month"):
		return 30, 0
	case strings.Contains(qn, "today"):
		return 1, 0
	}
	return 0, 0
}

// parseThreshold extracts an occupancy threshold as a fraction: "below 5%"
// → 0.05.
func parseThreshold(qn string) (float64, bool) {
	if m := thresholdRe.FindStringSubmatch(qn); m != nil {
		return float64(mustAtoi(m[1])) / 100.0, true
	}
	if m := percentRe.FindStringSubmatch(qn); m != nil {
		return float64(mustAtoi(m[1])) / 100.0, true
	}
	return 0, false
}

// parseTopK extracts a small result count: "top 3 rooms", "best 5 spots",
// "2 coffee machines".
func parseTopK(qn string) (int, bool) {
	for _, re := range []*regexp.Regexp{topKRe, countNounRe} {
		if m := re.FindStringSubmatch(qn); m != nil {
			k := mustAtoi(m[1])
			if k > 0 && k <= 50 {
				return k, true
			}
		}
	}
	return 0, false
}

// parseCompareFloors matches "compare floors 3 and 4" and variants.
func parseCompareFloors(qn string) (f1, f2 int, ok bool) {
	if m := compareRe.FindStringSubmatch(qn); m != nil {
		return mustAtoi(m[1]), mustAtoi(m[2]), true
	}
	return 0, 0, false
}

// mentionsNow matches "now" and "currently" on word boundaries, so "know"
// and "snowed" never read as a request for the current hour.
func mentionsNow(qn string) bool {
	return nowRe.MatchString(qn)
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
