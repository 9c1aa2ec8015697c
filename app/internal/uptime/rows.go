package uptime

import "strings"

// LogRow is one parsed line of the health-check log
type LogRow struct {
	Key        string `json:"key"`
	Timestamp  string `json:"timestamp"`
	StatusCode string `json:"status_code"`
}

// Diagnostics counts input that was dropped or capped during a pass.
// Nothing here is an error: the pipeline is total over its input.
type Diagnostics struct {
	Lines             int `json:"lines" yaml:"lines"`
	Rows              int `json:"rows" yaml:"rows"`
	MalformedLines    int `json:"malformed_lines" yaml:"malformed_lines"`
	EmptyKeys         int `json:"empty_keys" yaml:"empty_keys"`
	InvalidTimestamps int `json:"invalid_timestamps" yaml:"invalid_timestamps"`
	CappedRows        int `json:"capped_rows" yaml:"capped_rows"`
}

// Dropped returns the number of lines and rows that did not reach a day bucket
func (d Diagnostics) Dropped() int {
	return d.MalformedLines + d.EmptyKeys + d.InvalidTimestamps + d.CappedRows
}

// NormalizeKey converts the log's underscore encoding to the display form
func NormalizeKey(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}

// ParseRows splits raw log text into rows. Lines that do not have exactly
// three comma separated fields, or whose key field is empty, are skipped.
func ParseRows(text string) ([]LogRow, Diagnostics) {
	var diag Diagnostics
	lines := strings.Split(text, "\n")
	rows := make([]LogRow, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		diag.Lines++

		fields := strings.Split(line, ",")
		if len(fields) != 3 {
			diag.MalformedLines++
			continue
		}
		if fields[0] == "" {
			diag.EmptyKeys++
			continue
		}

		rows = append(rows, LogRow{
			Key:        NormalizeKey(fields[0]),
			Timestamp:  fields[1],
			StatusCode: fields[2],
		})
	}

	diag.Rows = len(rows)
	return rows, diag
}
