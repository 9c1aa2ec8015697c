package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"gopkg.in/yaml.v3"
)

// writeJSON encodes v as the response body
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeYAML encodes v as a YAML document
func writeYAML(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	w.WriteHeader(status)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	_ = enc.Encode(v)
	_ = enc.Close()
}

// writeData picks JSON or YAML from the format query parameter
func writeData(w http.ResponseWriter, r *http.Request, status int, v any) {
	switch r.URL.Query().Get("format") {
	case "yaml", "yml":
		writeYAML(w, status, v)
	default:
		writeJSON(w, status, v)
	}
}

// writeError sends a JSON error body
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"error": code, "message": message})
}

// queryInt reads a non-negative integer query parameter, clamped to max
func queryInt(r *http.Request, name string, def, max int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}
