package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"campusnews/internal/domain"
	"campusnews/internal/usecase"
	"campusnews/storage"

	"github.com/google/uuid"
)

type newsFeed interface {
	Page(f usecase.Filter, offset, limit int) usecase.Page
	Highlights(n int) []domain.Post
	Latest(n int) []domain.Post
	Stats() []usecase.OutletStat
	FilterOptions() usecase.FilterOptions
	Progress() usecase.Progress
}

type archiveGetter interface {
	GetPosts(ctx context.Context, limit int) ([]domain.Post, error)
}

type refresher interface {
	Refresh() bool
}

// Limits задает размеры выдачи по умолчанию.
type Limits struct {
	Latest     int
	Highlights int
	Archive    int
}

type Handler struct {
	log       *slog.Logger
	feed      newsFeed
	archive   archiveGetter
	refresher refresher
	limits    Limits
}

func NewHandler(log *slog.Logger, feed newsFeed, archive archiveGetter, refresher refresher, limits Limits) *Handler {
	if limits.Latest <= 0 {
		limits.Latest = 10
	}
	if limits.Highlights <= 0 {
		limits.Highlights = 4
	}
	if limits.Archive <= 0 {
		limits.Archive = 50
	}
	return &Handler{
		log:       log,
		feed:      feed,
		archive:   archive,
		refresher: refresher,
		limits:    limits,
	}
}

// getPosts - хендлер для эндпоинта GET /api/posts
func (h *Handler) getPosts(w http.ResponseWriter, r *http.Request) {
	const op = "transport.http/getPosts"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", getRequestID(r.Context())),
	)
	if !allowMethod(w, r, http.MethodGet, log) {
		return
	}
	q := r.URL.Query()
	offset, ok := intParam(q.Get("offset"), 0, true)
	if !ok {
		log.Warn("invalid offset parameter", slog.String("offset", q.Get("offset")))
		respondWithError(w, http.StatusBadRequest, "Invalid 'offset' parameter")
		return
	}
	limit, ok := intParam(q.Get("limit"), 0, false)
	if !ok {
		log.Warn("invalid limit parameter", slog.String("limit", q.Get("limit")))
		respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
		return
	}
	filter := usecase.Filter{
		Province:   q.Get("province"),
		City:       q.Get("city"),
		University: q.Get("university"),
		Outlet:     q.Get("outlet"),
	}
	respondWithJSON(w, http.StatusOK, h.feed.Page(filter, offset, limit))
}

// getHighlights - хендлер для эндпоинта GET /api/highlights
func (h *Handler) getHighlights(w http.ResponseWriter, r *http.Request) {
	h.listPosts(w, r, "transport.http/getHighlights", h.limits.Highlights, h.feed.Highlights)
}

// getLatest - хендлер для эндпоинта GET /api/latest
func (h *Handler) getLatest(w http.ResponseWriter, r *http.Request) {
	h.listPosts(w, r, "transport.http/getLatest", h.limits.Latest, h.feed.Latest)
}

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request, op string, def int, list func(int) []domain.Post) {
	log := h.log.With(slog.String("op", op))
	if !allowMethod(w, r, http.MethodGet, log) {
		return
	}
	limit, ok := intParam(r.URL.Query().Get("limit"), def, false)
	if !ok {
		log.Warn("invalid limit parameter", slog.String("limit", r.URL.Query().Get("limit")))
		respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
		return
	}
	respondWithJSON(w, http.StatusOK, list(limit))
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet, h.log) {
		return
	}
	respondWithJSON(w, http.StatusOK, h.feed.Stats())
}

func (h *Handler) getFilters(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet, h.log) {
		return
	}
	respondWithJSON(w, http.StatusOK, h.feed.FilterOptions())
}

func (h *Handler) getProgress(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet, h.log) {
		return
	}
	respondWithJSON(w, http.StatusOK, h.feed.Progress())
}

// postRefresh - хендлер для эндпоинта POST /api/refresh.
// Обновление идет в фоне, ход виден через /api/progress.
func (h *Handler) postRefresh(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("op", "transport.http/postRefresh"))
	if !allowMethod(w, r, http.MethodPost, log) {
		return
	}
	if !h.refresher.Refresh() {
		log.Warn("refresh rejected, worker is not running")
		respondWithError(w, http.StatusServiceUnavailable, "Refresh is not available")
		return
	}
	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "refreshing"})
}

// getArchive - хендлер для эндпоинта GET /api/archive
func (h *Handler) getArchive(w http.ResponseWriter, r *http.Request) {
	const op = "transport.http/getArchive"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", getRequestID(r.Context())),
	)
	if !allowMethod(w, r, http.MethodGet, log) {
		return
	}
	limit, ok := intParam(r.URL.Query().Get("limit"), h.limits.Archive, false)
	if !ok {
		log.Warn("invalid limit parameter", slog.String("limit", r.URL.Query().Get("limit")))
		respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
		return
	}
	posts, err := h.archive.GetPosts(r.Context(), limit)
	if errors.Is(err, storage.ErrArchiveDisabled) {
		respondWithError(w, http.StatusNotFound, "Archive is disabled")
		return
	}
	if err != nil {
		log.Error("Failed to get archived posts", slog.Any("error", err))
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	respondWithJSON(w, http.StatusOK, posts)
}

// healthCheck - хендлер для проверки состояния сервиса
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string, log *slog.Logger) bool {
	if r.Method == method {
		return true
	}
	log.Warn("method not allowed", slog.String("method", r.Method))
	w.Header().Set("Allow", method)
	respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	return false
}

// intParam разбирает числовой параметр запроса. Пустая строка дает def.
func intParam(raw string, def int, allowZero bool) (int, bool) {
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 || (v == 0 && !allowZero) {
		return 0, false
	}
	return v, true
}

// Вспомогательные функции для ответов
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

type requestIDKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func getRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return "req-" + uuid.NewString()
}
