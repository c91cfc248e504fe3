package handler

import (
	_ "embed"
	"net/http"
)

//go:embed static/index.html
var indexHTML []byte

// Index serves the question page at GET /.
func Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(indexHTML)
}
