package web

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"avatarstudio/internal/blob"

	"github.com/go-chi/chi/v5"
)

// Blobs never change once written.
const assetCacheControl = "public, max-age=31536000, immutable"

// GET /files/{id} serves a stored blob. ?download=<name> asks the browser
// to save it under name.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f, err := s.Blobs.Open(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", blob.ContentType(id))
	w.Header().Set("Cache-Control", assetCacheControl)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if name := downloadName(r.URL.Query().Get("download"), id); name != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	}
	http.ServeContent(w, r, id, info.ModTime(), f)
}

// downloadName keeps only a safe base name with the blob's own extension.
func downloadName(requested, id string) string {
	if requested == "" {
		return ""
	}
	name := filepath.Base(filepath.Clean("/" + requested))
	if name == "/" || name == "." || strings.ContainsAny(name, "\"\r\n") {
		return ""
	}
	ext := filepath.Ext(id)
	if !strings.EqualFold(filepath.Ext(name), ext) {
		name += ext
	}
	return name
}
