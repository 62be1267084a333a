package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFloor(t *testing.T) {
	tests := []struct {
		text  string
		floor int
		ok    bool
	}{
		{"rooms on floor 3", 3, true},
		{"level -1 parking", -1, true},
		{"on the 3rd floor", 3, true},
		{"the 2nd level", 2, true},
		{"storey 12", 12, true},
		{"busiest rooms last 7 days", 0, false},
		{"room 3.142", 0, false},
		{"no numbers here", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			floor, ok := parseFloor(normalize(tc.text))
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.floor, floor)
			}
		})
	}
}

func TestParseFloorFromRoomCode(t *testing.T) {
	floor, ok := parseFloorFromRoomCode("where is 3.142")
	assert.True(t, ok)
	assert.Equal(t, 3, floor)

	_, ok = parseFloorFromRoomCode("floor 3")
	assert.False(t, ok)
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		text  string
		days  int
		hours int
	}{
		{"free rooms now", 0, 1},
		{"who is here currently", 0, 1},
		{"right now", 0, 1},
		{"at this moment", 0, 1},
		{"most popular rooms we know of", 0, 0},
		{"rooms snowed under with bookings", 0, 0},
		{"last 30 days", 30, 0},
		{"past 2 weeks", 14, 0},
		{"last 3 months", 90, 0},
		{"last 6 hours", 0, 6},
		{"last week", 7, 0},
		{"past month", 30, 0},
		{"today", 1, 0},
		{"no window at all", 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			days, hours := parseWindow(normalize(tc.text))
			assert.Equal(t, tc.days, days)
			assert.Equal(t, tc.hours, hours)
		})
	}
}

func TestParseThreshold(t *testing.T) {
	thr, ok := parseThreshold("rooms below 5%")
	assert.True(t, ok)
	assert.InDelta(t, 0.05, thr, 0.001)

	thr, ok = parseThreshold("under 20 percent")
	assert.True(t, ok)
	assert.InDelta(t, 0.20, thr, 0.001)

	_, ok = parseThreshold("underused rooms")
	assert.False(t, ok)
}

func TestParseTopK(t *testing.T) {
	k, ok := parseTopK("top 3 rooms")
	assert.True(t, ok)
	assert.Equal(t, 3, k)

	k, ok = parseTopK("place 2 coffee machines")
	assert.True(t, ok)
	assert.Equal(t, 2, k)

	_, ok = parseTopK("top 500 rooms")
	assert.False(t, ok)

	_, ok = parseTopK("busiest rooms")
	assert.False(t, ok)
}

func TestParseCompareFloors(t *testing.T) {
	f1, f2, ok := parseCompareFloors("compare floors 3 and 4")
	assert.True(t, ok)
	assert.Equal(t, 3, f1)
	assert.Equal(t, 4, f2)

	f1, f2, ok = parseCompareFloors("compare floor 1 vs 2")
	assert.True(t, ok)
	assert.Equal(t, 1, f1)
	assert.Equal(t, 2, f2)

	_, _, ok = parseCompareFloors("compare the floors")
	assert.False(t, ok)
}
