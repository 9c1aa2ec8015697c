package handlers

import (
	"crypto/sha256"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"path"

	"statuspage/app/internal/view"
)

//go:embed web/index.html web/static
var webFS embed.FS

var indexTmpl = template.Must(template.ParseFS(webFS, "web/index.html"))

// indexData is the template input of the status page
type indexData struct {
	Page    view.Page
	Overall view.Props
	Error   string
}

// HandleIndex renders the status page for the request's log source
func HandleIndex(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		data := indexData{Page: view.Page{Title: view.DefaultTitle}}
		status := http.StatusOK

		src, err := d.resolveSource(r)
		switch {
		case err != nil:
			status = http.StatusBadRequest
			data.Error = "The repo parameter must look like owner/name."
		default:
			_, page, err := d.buildPage(r.Context(), src)
			if err != nil {
				log.Printf("index: source=%s err=%v", src.URL, err)
				status = http.StatusBadGateway
				data.Error = "The health-check log could not be loaded. Try again later."
				break
			}
			data.Page = page
			data.Overall = view.PropsFor(page.Overall())
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(status)
		if err := indexTmpl.Execute(w, data); err != nil {
			log.Printf("index: template error: %v", err)
		}
	}
}

// asset is an embedded static file held in memory with its ETag
type asset struct {
	content     []byte
	contentType string
	etag        string
}

var assetTypes = map[string]string{
	".js":  "application/javascript; charset=utf-8",
	".css": "text/css; charset=utf-8",
}

func loadAssets() map[string]*asset {
	assets := make(map[string]*asset)
	static, err := fs.Sub(webFS, "web/static")
	if err != nil {
		return assets
	}
	entries, _ := fs.ReadDir(static, ".")
	for _, e := range entries {
		ct, ok := assetTypes[path.Ext(e.Name())]
		if e.IsDir() || !ok {
			continue
		}
		b, err := fs.ReadFile(static, e.Name())
		if err != nil {
			continue
		}
		sum := sha256.Sum256(b)
		assets["/static/"+e.Name()] = &asset{content: b, contentType: ct, etag: fmt.Sprintf(`"%x"`, sum[:8])}
	}
	return assets
}

// HandleStatic serves the embedded stylesheet and script with ETag caching
func HandleStatic() http.HandlerFunc {
	assets := loadAssets()

	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := assets[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("ETag", a.etag)
		w.Header().Set("Cache-Control", "public, max-age=3600")
		if r.Header.Get("If-None-Match") == a.etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", a.contentType)
		_, _ = w.Write(a.content)
	}
}
