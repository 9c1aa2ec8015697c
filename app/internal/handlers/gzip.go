package handlers

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

var gzipPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	},
}

var compressibleTypes = map[string]bool{
	"text/html":              true,
	"text/css":               true,
	"text/plain":             true,
	"application/javascript": true,
	"application/json":       true,
	"application/yaml":       true,
}

func isCompressible(contentType string) bool {
	ct, _, _ := strings.Cut(contentType, ";")
	return compressibleTypes[strings.TrimSpace(ct)]
}

// gzipResponseWriter decides on compression when the header is written, once
// the handler has set the content type
type gzipResponseWriter struct {
	http.ResponseWriter
	gz      *gzip.Writer
	decided bool
	active  bool
}

func (g *gzipResponseWriter) WriteHeader(status int) {
	if !g.decided {
		g.decided = true
		h := g.Header()
		if h.Get("Content-Encoding") == "" && isCompressible(h.Get("Content-Type")) &&
			status != http.StatusNoContent && status != http.StatusNotModified {
			g.active = true
			g.gz.Reset(g.ResponseWriter)
			h.Set("Content-Encoding", "gzip")
			h.Del("Content-Length")
		}
	}
	g.ResponseWriter.WriteHeader(status)
}

func (g *gzipResponseWriter) Write(b []byte) (int, error) {
	if !g.decided {
		if g.Header().Get("Content-Type") == "" {
			g.Header().Set("Content-Type", http.DetectContentType(b))
		}
		g.WriteHeader(http.StatusOK)
	}
	if g.active {
		return g.gz.Write(b)
	}
	return g.ResponseWriter.Write(b)
}

// GzipMiddleware compresses text responses for clients that accept gzip
func GzipMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Add("Vary", "Accept-Encoding")

		gz := gzipPool.Get().(*gzip.Writer)
		defer gzipPool.Put(gz)

		gw := &gzipResponseWriter{ResponseWriter: w, gz: gz}
		next.ServeHTTP(gw, r)
		if gw.active {
			_ = gz.Close()
		}
	})
}
