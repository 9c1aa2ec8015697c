package uptime

import "testing"

func ratio(v float64) *float64 { return &v }

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		ratio *float64
		want  Status
	}{
		{"nil", nil, StatusNoData},
		{"full", ratio(1), StatusSuccess},
		{"zero", ratio(0), StatusFailure},
		{"below threshold", ratio(0.29), StatusFailure},
		{"at threshold", ratio(0.3), StatusPartial},
		{"half", ratio(0.5), StatusPartial},
		{"almost full", ratio(0.999), StatusPartial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.ratio); got != tt.want {
				t.Errorf("Classify = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatus_Label(t *testing.T) {
	tests := map[Status]string{
		StatusSuccess: "Fully Operational",
		StatusPartial: "Partial Outage",
		StatusFailure: "Major Outage",
		StatusNoData:  "No Data Available",
	}
	for s, want := range tests {
		if got := s.Label(); got != want {
			t.Errorf("%q.Label() = %q, want %q", s, got, want)
		}
	}
}
