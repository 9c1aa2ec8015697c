package uptime

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateKeyLayout is the calendar-day identifier format used for buckets
const DateKeyLayout = "2006-01-02"

// timestampLayouts are tried in order after the log timestamp has been
// rewritten to slash separated form with a GMT suffix
var timestampLayouts = []string{
	"2006/1/2 15:4:5 MST",
	"2006/1/2 15:4 MST",
	"2006/1/2 MST",
}

// DayBucket aggregates all checks of one service on one calendar day
type DayBucket struct {
	DateKey   string `json:"date" yaml:"date"`
	Successes int    `json:"successes" yaml:"successes"`
	Total     int    `json:"total" yaml:"total"`
}

// Ratio returns successes/total. Buckets only exist once a check was seen,
// so Total is never zero for a bucket produced by BucketDays.
func (b DayBucket) Ratio() float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(b.Successes) / float64(b.Total)
}

// Accumulator is the running success sum and check count across all days
type Accumulator struct {
	Sum   int
	Count int
}

// Add records one classified check
func (a *Accumulator) Add(success bool) {
	if success {
		a.Sum++
	}
	a.Count++
}

// Summary formats the overall uptime as a percentage with two decimals,
// or "--%" when nothing was counted
func (a Accumulator) Summary() string {
	if a.Count == 0 {
		return "--%"
	}
	return fmt.Sprintf("%.2f%%", float64(a.Sum)/float64(a.Count)*100)
}

// DayBuckets is the result of bucketing one service's checks
type DayBuckets struct {
	Buckets           map[string]*DayBucket
	Acc               Accumulator
	InvalidTimestamps int
	CappedRows        int
}

// UpTime returns the uptime summary string
func (d DayBuckets) UpTime() string {
	return d.Acc.Summary()
}

// Sorted returns the buckets ordered by date, oldest first
func (d DayBuckets) Sorted() []DayBucket {
	out := make([]DayBucket, 0, len(d.Buckets))
	for _, b := range d.Buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateKey < out[j].DateKey })
	return out
}

// ParseTimestamp parses a log timestamp. Dashes are rewritten to slashes and
// a GMT marker is appended before parsing, so "2024-01-01 00:00:00" is read
// as midnight UTC regardless of the host's zone.
func ParseTimestamp(s string) (time.Time, bool) {
	v := strings.ReplaceAll(strings.TrimSpace(s), "-", "/") + " GMT"
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// DateKey returns the calendar day of t in loc
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateKeyLayout)
}

// IsSuccess reports whether a status code lies in [200, 300). Only the
// leading integer of the field is considered; anything non-numeric fails.
func IsSuccess(statusCode string) bool {
	code, ok := parseStatusCode(statusCode)
	return ok && code >= 200 && code < 300
}

func parseStatusCode(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// BucketDays groups one service's checks into calendar-day buckets.
//
// At most opts.MaxDays distinct days are opened. Checks are visited from the
// end of the log backwards, so when the cap is hit it is the oldest days that
// are left out. Checks for a day that was not opened are counted in
// CappedRows and do not contribute to the uptime summary.
func BucketDays(checks []Check, opts Options) DayBuckets {
	opts = opts.withDefaults()
	out := DayBuckets{Buckets: make(map[string]*DayBucket)}

	for i := len(checks) - 1; i >= 0; i-- {
		c := checks[i]
		ts, ok := ParseTimestamp(c.Timestamp)
		if !ok {
			out.InvalidTimestamps++
			continue
		}

		key := DateKey(ts, opts.Location)
		b, exists := out.Buckets[key]
		if !exists {
			if len(out.Buckets) >= opts.MaxDays {
				out.CappedRows++
				continue
			}
			b = &DayBucket{DateKey: key}
			out.Buckets[key] = b
		}

		success := IsSuccess(c.StatusCode)
		b.Total++
		if success {
			b.Successes++
		}
		out.Acc.Add(success)
	}

	return out
}
