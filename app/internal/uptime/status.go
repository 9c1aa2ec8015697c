package uptime

// Status is the classification of a day's (or a service's) ratio
type Status string

const (
	StatusNoData  Status = "nodata"
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailure Status = "failure"
)

// MajorOutageThreshold is the ratio below which a day counts as a major outage
const MajorOutageThreshold = 0.3

// Classify maps a ratio to a status. A nil ratio means no data.
func Classify(ratio *float64) Status {
	switch {
	case ratio == nil:
		return StatusNoData
	case *ratio == 1:
		return StatusSuccess
	case *ratio < MajorOutageThreshold:
		return StatusFailure
	default:
		return StatusPartial
	}
}

// Label returns the human readable status name
func (s Status) Label() string {
	switch s {
	case StatusSuccess:
		return "Fully Operational"
	case StatusPartial:
		return "Partial Outage"
	case StatusFailure:
		return "Major Outage"
	default:
		return "No Data Available"
	}
}
