// Package view maps service reports to the values the status page renders.
// Everything here is pure: callers pass the clock and location in.
package view

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"statuspage/app/internal/uptime"
)

// DateLayout is the label format of a day square
const DateLayout = "Mon Jan 02 2006"

// DefaultTitle is used when the log's repository has no homepage
const DefaultTitle = "Status page"

// Props are the presentation classes and texts for one status
type Props struct {
	HeaderBgClass string `json:"header_bg_class" yaml:"header_bg_class"`
	BorderClass   string `json:"border_class" yaml:"border_class"`
	BadgeClass    string `json:"badge_class" yaml:"badge_class"`
	TextClass     string `json:"text_class" yaml:"text_class"`
	BtnClass      string `json:"btn_class" yaml:"btn_class"`
	StatusText    string `json:"status_text" yaml:"status_text"`
	StatusDesc    string `json:"status_desc" yaml:"status_desc"`
}

var statusProps = map[uptime.Status]Props{
	uptime.StatusFailure: {
		HeaderBgClass: "bg-danger text-white",
		BorderClass:   "border border-danger",
		BadgeClass:    "text-white",
		TextClass:     "text-danger",
		BtnClass:      "btn-danger",
		StatusDesc:    "Major outages recorded on this day.",
	},
	uptime.StatusPartial: {
		HeaderBgClass: "bg-warning text-dark",
		BorderClass:   "border border-warning",
		BadgeClass:    "text-dark",
		TextClass:     "text-warning-emphasis",
		BtnClass:      "btn-warning",
		StatusDesc:    "Partial outages recorded on this day.",
	},
	uptime.StatusNoData: {
		HeaderBgClass: "bg-secondary-subtle text-dark",
		BorderClass:   "border border-secondary-subtle",
		BadgeClass:    "text-dark",
		TextClass:     "text-secondary",
		BtnClass:      "btn-light",
		StatusDesc:    "No Data Available: Health check was not performed.",
	},
	uptime.StatusSuccess: {
		HeaderBgClass: "bg-transparent",
		BorderClass:   "border border-light-subtle",
		BadgeClass:    "text-success",
		TextClass:     "text-success",
		BtnClass:      "btn-success",
		StatusDesc:    "No downtime recorded on this day.",
	},
}

// PropsFor returns the presentation props for s. Unknown statuses render as
// fully operational.
func PropsFor(s uptime.Status) Props {
	p, ok := statusProps[s]
	if !ok {
		s = uptime.StatusSuccess
		p = statusProps[s]
	}
	p.StatusText = s.Label()
	return p
}

// Square is one day of a service's status stream
type Square struct {
	Status  uptime.Status `json:"status" yaml:"status"`
	Date    string        `json:"date" yaml:"date"`
	DaysAgo int           `json:"days_ago" yaml:"days_ago"`
	Ratio   *float64      `json:"ratio" yaml:"ratio"`
	Percent string        `json:"percent,omitempty" yaml:"percent,omitempty"`
	Props   Props         `json:"props" yaml:"props"`
}

// Service is the rendered form of one service report
type Service struct {
	Key     string        `json:"key" yaml:"key"`
	UpTime  string        `json:"uptime" yaml:"uptime"`
	Status  uptime.Status `json:"status" yaml:"status"`
	Props   Props         `json:"props" yaml:"props"`
	Squares []Square      `json:"squares" yaml:"squares"`
}

// NewService builds the view of r. Squares run oldest first, ending today.
// The header status follows today's slot.
func NewService(r uptime.ServiceReport, now time.Time, loc *time.Location) Service {
	if loc == nil {
		loc = time.UTC
	}
	today := now.In(loc)

	squares := make([]Square, len(r.Window))
	for i, ratio := range r.Window.Chronological() {
		daysAgo := len(r.Window) - 1 - i
		status := uptime.Classify(ratio)
		sq := Square{
			Status:  status,
			Date:    today.AddDate(0, 0, -daysAgo).Format(DateLayout),
			DaysAgo: daysAgo,
			Ratio:   ratio,
			Props:   PropsFor(status),
		}
		if ratio != nil {
			sq.Percent = fmt.Sprintf("%.1f%%", *ratio*100)
		}
		squares[i] = sq
	}

	status := uptime.Classify(r.Window.Today())
	return Service{
		Key:     r.Key,
		UpTime:  r.UpTime,
		Status:  status,
		Props:   PropsFor(status),
		Squares: squares,
	}
}

// Repo is the metadata shown above the reports
type Repo struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Homepage    string `json:"homepage,omitempty" yaml:"homepage,omitempty"`
}

// Page is everything the status page needs
type Page struct {
	Title       string                `json:"title" yaml:"title"`
	Repo        Repo                  `json:"repo" yaml:"repo"`
	GeneratedAt time.Time             `json:"generated_at" yaml:"generated_at"`
	Updated     string                `json:"updated" yaml:"updated"`
	Rows        string                `json:"rows" yaml:"rows"`
	MaxDays     int                   `json:"max_days" yaml:"max_days"`
	Services    []Service             `json:"services" yaml:"services"`
	Counts      map[uptime.Status]int `json:"counts" yaml:"counts"`
	Diagnostics uptime.Diagnostics    `json:"diagnostics" yaml:"diagnostics"`
}

// Title returns the page title for a repository homepage
func Title(homepage string) string {
	if homepage == "" {
		return DefaultTitle
	}
	return "Status page for " + homepage
}

// NewPage builds the page for set. now is only used for the relative
// "updated" text.
func NewPage(set uptime.ReportSet, repo Repo, now time.Time, loc *time.Location) Page {
	p := Page{
		Title:       Title(repo.Homepage),
		Repo:        repo,
		GeneratedAt: set.GeneratedAt,
		Updated:     humanize.RelTime(set.GeneratedAt, now, "ago", "from now"),
		Rows:        humanize.Comma(int64(set.Diagnostics.Rows)),
		MaxDays:     set.MaxDays,
		Services:    make([]Service, 0, len(set.Reports)),
		Counts:      make(map[uptime.Status]int),
		Diagnostics: set.Diagnostics,
	}
	for _, r := range set.Reports {
		svc := NewService(r, set.GeneratedAt, loc)
		p.Counts[svc.Status]++
		p.Services = append(p.Services, svc)
	}
	return p
}

// Overall returns the worst today-status across services, ignoring services
// without data. With no data at all it is nodata.
func (p Page) Overall() uptime.Status {
	switch {
	case p.Counts[uptime.StatusFailure] > 0:
		return uptime.StatusFailure
	case p.Counts[uptime.StatusPartial] > 0:
		return uptime.StatusPartial
	case p.Counts[uptime.StatusSuccess] > 0:
		return uptime.StatusSuccess
	default:
		return uptime.StatusNoData
	}
}
