// Package api exposes the engine's boundary operations over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"feedbox/reader/internal/fetch"
	"feedbox/reader/internal/ingest"
	"feedbox/reader/internal/models"
	"feedbox/reader/internal/server/pagination"
	"feedbox/reader/internal/store"
)

const defaultArticleLimit = 100
const maxArticleLimit = 1000

// Handler holds the dependencies of the HTTP API.
type Handler struct {
	store  store.Store
	ingest *ingest.Service
}

// NewHandler creates an API handler over the given store and ingestion
// service.
func NewHandler(st store.Store, svc *ingest.Service) *Handler {
	return &Handler{store: st, ingest: svc}
}

// Routes mounts all v1 endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/feeds", h.listFeeds)
		r.Post("/feeds", h.addFeed)
		r.Get("/feeds/{id}", h.getFeed)
		r.Patch("/feeds/{id}", h.updateFeed)
		r.Delete("/feeds/{id}", h.deleteFeed)

		r.Post("/refresh", h.refreshAll)
		r.Post("/preview", h.preview)

		r.Get("/articles", h.listArticles)
		r.Get("/articles/{id}", h.getArticle)
		r.Get("/categories", h.listCategories)

		r.Get("/favorites", h.listFavorites)
		r.Put("/favorites/{articleID}", h.addFavorite)
		r.Delete("/favorites/{articleID}", h.removeFavorite)

		r.Get("/settings/{key}", h.getSetting)
		r.Put("/settings/{key}", h.setSetting)
	})
}

type addFeedRequest struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

func (h *Handler) addFeed(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	var req addFeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "request body must include a feed url")
		return
	}

	// Progress is an out-of-band concern for the caller; over plain HTTP it
	// is mirrored to the structured log.
	feed, err := h.ingest.AddFeed(r.Context(), req.URL, req.Title, req.Category, func(p ingest.AddProgress) {
		log.Debug().
			Str("step", string(p.Step)).
			Int("progress", p.Progress).
			Msg(p.Message)
	})
	if err != nil {
		writeIngestError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, feed)
}

func (h *Handler) listFeeds(w http.ResponseWriter, r *http.Request) {
	feeds, err := h.store.ListFeeds(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feeds)
}

func (h *Handler) getFeed(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	feed, err := h.store.GetFeed(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

func (h *Handler) updateFeed(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var upd models.FeedUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.UpdateFeed(r.Context(), id, upd); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteFeed(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteFeed(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) refreshAll(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	outcomes, err := h.ingest.RefreshAll(r.Context(), func(p ingest.RefreshProgress) {
		log.Debug().
			Str("step", string(p.Step)).
			Int("progress", p.Progress).
			Int("current", p.Current).
			Int("total", p.Total).
			Msg(p.Message)
	})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomes)
}

type previewRequest struct {
	URL string `json:"url"`
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "request body must include a feed url")
		return
	}

	articles, err := h.ingest.Preview(r.Context(), req.URL)
	if err != nil {
		writeIngestError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articles)
}

// articlesResponse pages the newest-first article listing.
type articlesResponse struct {
	Articles   []models.Article `json:"articles"`
	NextCursor *string          `json:"next_cursor,omitempty"`
}

func (h *Handler) listArticles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.ArticleFilter{Limit: defaultArticleLimit}

	if v := query.Get("feed_id"); v != "" {
		feedID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'feed_id' parameter")
			return
		}
		filter.FeedID = &feedID
	}
	if v := query.Get("category"); v != "" {
		filter.Category = &v
	}
	if v := query.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 || limit > maxArticleLimit {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("invalid 'limit' parameter: must be between 1 and %d", maxArticleLimit))
			return
		}
		filter.Limit = limit
	}
	if v := query.Get("cursor"); v != "" {
		ts, id, err := pagination.DecodeCursor(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'cursor' parameter")
			return
		}
		filter.CursorPublishedAt = &ts
		filter.CursorID = &id
	}

	limit := filter.Limit
	filter.Limit = limit + 1 // fetch one extra to detect a next page
	articles, err := h.store.ListArticles(r.Context(), filter)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	resp := articlesResponse{Articles: articles}
	if len(articles) > limit {
		resp.Articles = articles[:limit]
		last := resp.Articles[len(resp.Articles)-1]
		cursor := pagination.EncodeCursor(last.PublishedAt, last.ID)
		resp.NextCursor = &cursor
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	article, err := h.store.GetArticle(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) listFavorites(w http.ResponseWriter, r *http.Request) {
	articles, err := h.store.ListFavorites(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, articles)
}

func (h *Handler) addFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "articleID")
	if !ok {
		return
	}
	if err := h.store.AddFavorite(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "articleID")
	if !ok {
		return
	}
	if err := h.store.RemoveFavorite(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type settingResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (h *Handler) getSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, err := h.store.GetSetting(r.Context(), key)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingResponse{Key: key, Value: value})
}

type setSettingRequest struct {
	Value string `json:"value"`
}

func (h *Handler) setSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req setSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.store.SetSetting(r.Context(), key, req.Value); err != nil {
		writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid '%s' parameter", param))
		return 0, false
	}
	return id, true
}

type errorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category,omitempty"`
}

// writeIngestError maps orchestrator failures: classified fetch errors keep
// their category, duplicate feed URLs map to conflict.
func writeIngestError(w http.ResponseWriter, r *http.Request, err error) {
	var fetchErr *fetch.FetchError
	if errors.As(err, &fetchErr) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:    fetchErr.Error(),
			Category: string(fetchErr.Category),
		})
		return
	}
	if errors.Is(err, store.ErrFeedExists) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeStoreError(w, r, err)
}

func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrFeedExists):
		writeError(w, http.StatusConflict, err.Error())
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Headers already sent; nothing more to do.
		return
	}
}
