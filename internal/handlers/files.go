package handlers

import (
	"net/http"
	"path/filepath"
	"strings"
)

// HandleFiles serves saved downloads from the output directory
func (h *Handler) HandleFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.filesDir == "" {
		http.NotFound(w, r)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/files/")
	// Prevent directory traversal attacks
	if name == "" || strings.Contains(name, "..") {
		h.writeError(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	if strings.HasSuffix(name, ".png") {
		w.Header().Set("Content-Type", "image/png")
	}
	http.ServeFile(w, r, filepath.Join(h.filesDir, filepath.FromSlash(name)))
}
