package uptime

import "sort"

// Check is a single (timestamp, status code) pair for one service
type Check struct {
	Timestamp  string
	StatusCode string
}

// KeyedRows maps a service key to its checks in log order
type KeyedRows map[string][]Check

// GroupRows partitions rows by service key, keeping log order within each key
func GroupRows(rows []LogRow) KeyedRows {
	keyed := make(KeyedRows)
	for _, r := range rows {
		keyed[r.Key] = append(keyed[r.Key], Check{Timestamp: r.Timestamp, StatusCode: r.StatusCode})
	}
	return keyed
}

// Keys returns the service keys in ascending byte order
func (k KeyedRows) Keys() []string {
	keys := make([]string, 0, len(k))
	for key := range k {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
