package view

import (
	"testing"
	"time"

	"statuspage/app/internal/uptime"
)

func ratio(v float64) *float64 { return &v }

var now = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

// --------------- PropsFor ---------------

func TestPropsFor(t *testing.T) {
	tests := []struct {
		status   uptime.Status
		btn      string
		text     string
		headerBg string
	}{
		{uptime.StatusSuccess, "btn-success", "Fully Operational", "bg-transparent"},
		{uptime.StatusPartial, "btn-warning", "Partial Outage", "bg-warning text-dark"},
		{uptime.StatusFailure, "btn-danger", "Major Outage", "bg-danger text-white"},
		{uptime.StatusNoData, "btn-light", "No Data Available", "bg-secondary-subtle text-dark"},
		{uptime.Status("bogus"), "btn-success", "Fully Operational", "bg-transparent"},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			p := PropsFor(tt.status)
			if p.BtnClass != tt.btn || p.StatusText != tt.text || p.HeaderBgClass != tt.headerBg {
				t.Errorf("PropsFor(%q) = %+v", tt.status, p)
			}
			if p.StatusDesc == "" {
				t.Error("expected a status description")
			}
		})
	}
}

// --------------- NewService ---------------

func TestNewService_SquaresOldestFirst(t *testing.T) {
	w := make(uptime.Window, 5)
	w[0] = ratio(1)
	w[1] = ratio(0.5)
	w[4] = ratio(0)
	r := uptime.ServiceReport{Key: "svc", UpTime: "60.00%", Window: w}

	svc := NewService(r, now, time.UTC)
	if len(svc.Squares) != 5 {
		t.Fatalf("expected 5 squares, got %d", len(svc.Squares))
	}

	want := []struct {
		status  uptime.Status
		date    string
		daysAgo int
		percent string
	}{
		{uptime.StatusFailure, "Sat Jan 06 2024", 4, "0.0%"},
		{uptime.StatusNoData, "Sun Jan 07 2024", 3, ""},
		{uptime.StatusNoData, "Mon Jan 08 2024", 2, ""},
		{uptime.StatusPartial, "Tue Jan 09 2024", 1, "50.0%"},
		{uptime.StatusSuccess, "Wed Jan 10 2024", 0, "100.0%"},
	}
	for i, w := range want {
		sq := svc.Squares[i]
		if sq.Status != w.status || sq.Date != w.date || sq.DaysAgo != w.daysAgo || sq.Percent != w.percent {
			t.Errorf("square %d = %+v, want %+v", i, sq, w)
		}
	}
	if svc.Status != uptime.StatusSuccess {
		t.Errorf("header status should follow today, got %q", svc.Status)
	}
	if svc.UpTime != "60.00%" || svc.Key != "svc" {
		t.Errorf("service = %+v", svc)
	}
}

func TestNewService_NoDataToday(t *testing.T) {
	w := make(uptime.Window, 3)
	w[1] = ratio(1)
	svc := NewService(uptime.ServiceReport{Key: "svc", UpTime: "100.00%", Window: w}, now, nil)
	if svc.Status != uptime.StatusNoData {
		t.Errorf("expected nodata header, got %q", svc.Status)
	}
	if svc.Props.StatusText != "No Data Available" {
		t.Errorf("header text = %q", svc.Props.StatusText)
	}
}

func TestNewService_Location(t *testing.T) {
	loc := time.FixedZone("UTC+14", 14*3600)
	w := make(uptime.Window, 1)
	svc := NewService(uptime.ServiceReport{Window: w}, now, loc)
	if svc.Squares[0].Date != "Thu Jan 11 2024" {
		t.Errorf("today in UTC+14 = %q", svc.Squares[0].Date)
	}
}

// --------------- NewPage ---------------

func TestTitle(t *testing.T) {
	if got := Title(""); got != DefaultTitle {
		t.Errorf("Title(\"\") = %q", got)
	}
	if got := Title("https://raw.githack.com"); got != "Status page for https://raw.githack.com" {
		t.Errorf("Title = %q", got)
	}
}

func TestNewPage(t *testing.T) {
	set := uptime.Generate("a,2024-01-10 10:00:00,200\nb,2024-01-10 10:00:00,500\nc,bad,200\n", now, uptime.Options{MaxDays: 7})
	repo := Repo{Name: "o/r", Homepage: "https://example.com"}

	p := NewPage(set, repo, now.Add(2*time.Minute), time.UTC)
	if p.Title != "Status page for https://example.com" {
		t.Errorf("Title = %q", p.Title)
	}
	if p.Updated != "2 minutes ago" {
		t.Errorf("Updated = %q", p.Updated)
	}
	if len(p.Services) != 3 {
		t.Fatalf("expected 3 services, got %d", len(p.Services))
	}
	if len(p.Services[0].Squares) != 7 {
		t.Errorf("expected 7 squares, got %d", len(p.Services[0].Squares))
	}
	if p.Counts[uptime.StatusSuccess] != 1 || p.Counts[uptime.StatusFailure] != 1 || p.Counts[uptime.StatusNoData] != 1 {
		t.Errorf("Counts = %v", p.Counts)
	}
	if p.Overall() != uptime.StatusFailure {
		t.Errorf("Overall = %q", p.Overall())
	}
	if p.Rows != "3" {
		t.Errorf("Rows = %q", p.Rows)
	}
}

func TestPageOverall(t *testing.T) {
	tests := []struct {
		counts map[uptime.Status]int
		want   uptime.Status
	}{
		{map[uptime.Status]int{}, uptime.StatusNoData},
		{map[uptime.Status]int{uptime.StatusNoData: 2}, uptime.StatusNoData},
		{map[uptime.Status]int{uptime.StatusSuccess: 2, uptime.StatusNoData: 1}, uptime.StatusSuccess},
		{map[uptime.Status]int{uptime.StatusSuccess: 2, uptime.StatusPartial: 1}, uptime.StatusPartial},
		{map[uptime.Status]int{uptime.StatusPartial: 1, uptime.StatusFailure: 1}, uptime.StatusFailure},
	}
	for _, tt := range tests {
		if got := (Page{Counts: tt.counts}).Overall(); got != tt.want {
			t.Errorf("Overall(%v) = %q, want %q", tt.counts, got, tt.want)
		}
	}
}
