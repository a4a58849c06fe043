package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ssnover/lab-blog/internal/index"
)

type postListResponse struct {
	Posts []*index.PostRecord `json:"posts"`
	Total int                 `json:"total"`
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		respondError(w, http.StatusServiceUnavailable, "post index is not enabled")
		return
	}

	opts := index.ListOptions{
		Tag:     r.URL.Query().Get("tag"),
		Project: r.URL.Query().Get("project"),
	}
	if r.URL.Query().Get("drafts") == "true" {
		opts.IncludeDrafts = true
	}
	opts.Limit = queryInt(r, "limit", 0)
	opts.Offset = queryInt(r, "offset", 0)

	records, total, err := s.index.List(r.Context(), opts)
	if err != nil {
		s.logger.Error("list posts failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}
	if records == nil {
		records = []*index.PostRecord{}
	}
	respondJSON(w, http.StatusOK, postListResponse{Posts: records, Total: total})
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		respondError(w, http.StatusServiceUnavailable, "post index is not enabled")
		return
	}

	slug := chi.URLParam(r, "slug")
	record, err := s.index.GetBySlug(r.Context(), slug)
	if err != nil {
		var notFound *index.NotFoundError
		if errors.As(err, &notFound) {
			respondError(w, http.StatusNotFound, "post not found")
			return
		}
		s.logger.Error("get post failed", "slug", slug, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load post")
		return
	}
	respondJSON(w, http.StatusOK, record)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	if s.projects == nil {
		respondError(w, http.StatusServiceUnavailable, "projects are not configured")
		return
	}

	projects, err := s.projects()
	if err != nil {
		s.logger.Error("list projects failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load projects")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
