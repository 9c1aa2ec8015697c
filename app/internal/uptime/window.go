package uptime

import "time"

const secondsPerDay = 24 * 60 * 60

// Window holds one ratio per day offset: index 0 is today, index N is N days
// ago. A nil slot means no checks were recorded for that day.
type Window []*float64

// RelativeDays returns the whole number of days between a and b, ignoring
// direction. It works on whole seconds so that spans beyond the range of
// time.Duration do not saturate.
func RelativeDays(a, b time.Time) int {
	if a.Before(b) {
		a, b = b, a
	}
	secs := a.Unix() - b.Unix()
	if a.Nanosecond() < b.Nanosecond() {
		secs--
	}
	return int(secs / secondsPerDay)
}

// BuildWindow places each bucket at its offset from now. Offsets outside the
// window are ignored. When two dates land on the same offset the later date
// wins.
func BuildWindow(buckets []DayBucket, now time.Time, opts Options) Window {
	opts = opts.withDefaults()
	w := make(Window, opts.MaxDays)

	for _, b := range buckets {
		start, err := time.ParseInLocation(DateKeyLayout, b.DateKey, opts.Location)
		if err != nil || b.Total == 0 {
			continue
		}
		offset := RelativeDays(now, start)
		if offset < 0 || offset >= len(w) {
			continue
		}
		ratio := b.Ratio()
		w[offset] = &ratio
	}

	return w
}

// At returns the ratio for the given offset, or nil when there is no data
func (w Window) At(daysAgo int) *float64 {
	if daysAgo < 0 || daysAgo >= len(w) {
		return nil
	}
	return w[daysAgo]
}

// Today returns the ratio for offset 0
func (w Window) Today() *float64 {
	return w.At(0)
}

// Chronological returns the slots oldest first, the order status streams
// are drawn in
func (w Window) Chronological() []*float64 {
	out := make([]*float64, len(w))
	for i := range w {
		out[len(w)-1-i] = w[i]
	}
	return out
}
