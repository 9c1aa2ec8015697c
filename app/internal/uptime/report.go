package uptime

import (
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxDays is the window size used when none is configured
const DefaultMaxDays = 30

// Options configures an aggregation pass
type Options struct {
	// MaxDays bounds both the number of day buckets per service and the
	// window length
	MaxDays int
	// Location decides which calendar day a check falls on. Defaults to UTC.
	Location *time.Location
}

func (o Options) withDefaults() Options {
	if o.MaxDays <= 0 {
		o.MaxDays = DefaultMaxDays
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	return o
}

// ServiceReport is the aggregated history of one service
type ServiceReport struct {
	Key    string      `json:"key" yaml:"key"`
	UpTime string      `json:"uptime" yaml:"uptime"`
	Status Status      `json:"status" yaml:"status"`
	Window Window      `json:"window" yaml:"window"`
	Days   []DayBucket `json:"days" yaml:"days"`
}

// Bucket returns the day bucket for dateKey, if present
func (r ServiceReport) Bucket(dateKey string) (DayBucket, bool) {
	for _, b := range r.Days {
		if b.DateKey == dateKey {
			return b, true
		}
	}
	return DayBucket{}, false
}

// ReportSet is the output of one aggregation pass over a log
type ReportSet struct {
	GeneratedAt time.Time       `json:"generated_at" yaml:"generated_at"`
	MaxDays     int             `json:"max_days" yaml:"max_days"`
	Reports     []ServiceReport `json:"reports" yaml:"reports"`
	Diagnostics Diagnostics     `json:"diagnostics" yaml:"diagnostics"`
}

// Report looks up a service report by its display key
func (s *ReportSet) Report(key string) (ServiceReport, bool) {
	for _, r := range s.Reports {
		if r.Key == key {
			return r, true
		}
	}
	return ServiceReport{}, false
}

// NewServiceReport builds the report for one service from its bucketed days
func NewServiceReport(key string, days DayBuckets, now time.Time, opts Options) ServiceReport {
	sorted := days.Sorted()
	w := BuildWindow(sorted, now, opts)
	return ServiceReport{
		Key:    key,
		UpTime: days.UpTime(),
		Status: Classify(w.Today()),
		Window: w,
		Days:   sorted,
	}
}

// Generate turns raw log text into one report per service key, sorted by
// key. It performs no I/O and reads no clock: now only decides which offset
// each day lands on.
func Generate(text string, now time.Time, opts Options) ReportSet {
	opts = opts.withDefaults()

	rows, diag := ParseRows(text)
	keyed := GroupRows(rows)
	keys := keyed.Keys()

	reports := make([]ServiceReport, len(keys))
	invalid := make([]int, len(keys))
	capped := make([]int, len(keys))

	// Keys share no state, so each is bucketed independently; writing into
	// pre-sized slices keeps the sorted emission order.
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			days := BucketDays(keyed[key], opts)
			reports[i] = NewServiceReport(key, days, now, opts)
			invalid[i] = days.InvalidTimestamps
			capped[i] = days.CappedRows
			return nil
		})
	}
	_ = g.Wait()

	for i := range keys {
		diag.InvalidTimestamps += invalid[i]
		diag.CappedRows += capped[i]
	}

	return ReportSet{
		GeneratedAt: now,
		MaxDays:     opts.MaxDays,
		Reports:     reports,
		Diagnostics: diag,
	}
}
