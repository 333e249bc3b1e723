package planning

import "time"

const (
	recentWindowMonths = 10
	fullWindowMonths   = 12
)

// Windows holds the trailing analysis windows anchored at Now.
//
//	recent: [Now-10m, Now]
//	prior:  [Now-12m, Now-10m)
//	full:   [Now-12m, Now]
type Windows struct {
	Now         time.Time
	RecentStart time.Time
	FullStart   time.Time
}

// NewWindows builds the windows for the given anchor.
func NewWindows(now time.Time) Windows {
	return Windows{
		Now:         now,
		RecentStart: AddMonths(now, -recentWindowMonths),
		FullStart:   AddMonths(now, -fullWindowMonths),
	}
}

func (w Windows) InRecent(t time.Time) bool {
	return !t.Before(w.RecentStart) && !t.After(w.Now)
}

func (w Windows) InPrior(t time.Time) bool {
	return !t.Before(w.FullStart) && t.Before(w.RecentStart)
}

func (w Windows) InFull(t time.Time) bool {
	return !t.Before(w.FullStart) && !t.After(w.Now)
}

// Years returns the calendar years the full window touches, oldest first.
// Sales documents are stored one per branch and year.
func (w Windows) Years() []int {
	start, end := w.FullStart.Year(), w.Now.Year()
	years := make([]int, 0, end-start+1)
	for y := start; y <= end; y++ {
		years = append(years, y)
	}
	return years
}

// AddMonths shifts t by n calendar months, clamping the day to the last day
// of the target month (Mar 31 - 1 month = Feb 28/29) instead of overflowing
// the way time.AddDate does.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
