package planning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddMonthsClampsDay(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		n    int
		want time.Time
	}{
		{"end of march back one", date(2025, 3, 31), -1, date(2025, 2, 28)},
		{"leap year", date(2024, 3, 31), -1, date(2024, 2, 29)},
		{"back twelve", date(2025, 6, 15), -12, date(2024, 6, 15)},
		{"across year", date(2025, 1, 31), -10, date(2024, 3, 31)},
		{"forward", date(2025, 8, 31), 1, date(2025, 9, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddMonths(tt.in, tt.n))
		})
	}
}

func TestWindowsBoundaries(t *testing.T) {
	w := NewWindows(date(2025, 6, 15))

	assert.Equal(t, date(2024, 8, 15), w.RecentStart)
	assert.Equal(t, date(2024, 6, 15), w.FullStart)

	assert.True(t, w.InRecent(w.RecentStart), "recent start is inclusive")
	assert.True(t, w.InRecent(w.Now), "now is inclusive")
	assert.False(t, w.InPrior(w.RecentStart), "prior window excludes recent start")
	assert.True(t, w.InPrior(w.FullStart))
	assert.False(t, w.InFull(w.FullStart.Add(-time.Second)))
	assert.False(t, w.InFull(w.Now.Add(time.Second)))
}

func TestWindowsYears(t *testing.T) {
	assert.Equal(t, []int{2024, 2025}, NewWindows(date(2025, 6, 15)).Years())
	assert.Equal(t, []int{2023, 2024}, NewWindows(date(2024, 12, 31)).Years())
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
