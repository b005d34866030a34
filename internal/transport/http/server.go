package http

import (
	"log/slog"
	"net/http"
	"path/filepath"
)

// NewServer создает и настраивает HTTP-роутер с API, статикой и middleware.
// staticDir - каталог со страницей просмотра; пустая строка отключает статику.
func NewServer(log *slog.Logger, h *Handler, staticDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/posts", h.getPosts)
	mux.HandleFunc("/api/highlights", h.getHighlights)
	mux.HandleFunc("/api/latest", h.getLatest)
	mux.HandleFunc("/api/stats", h.getStats)
	mux.HandleFunc("/api/filters", h.getFilters)
	mux.HandleFunc("/api/progress", h.getProgress)
	mux.HandleFunc("/api/refresh", h.postRefresh)
	mux.HandleFunc("/api/archive", h.getArchive)
	mux.HandleFunc("/api/health", h.healthCheck)
	if staticDir != "" {
		fs := http.FileServer(http.Dir(staticDir))
		mux.Handle("/static/", http.StripPrefix("/static/", fs))
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/" {
				http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
				return
			}
			http.NotFound(w, r)
		})
	}
	var handler http.Handler = mux
	handler = loggingMiddleware(log)(handler)
	handler = corsMiddleware()(handler)
	return handler
}
