// Copyright 2024-2026 Aiku AI

package connector

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	Active   bool   `json:"active"`
	Username string `json:"username"`
	Posts    int    `json:"posts"`
	Plugins  int    `json:"plugins"`
}

// PostResponse is returned by GET /api/posts/{id}.
type PostResponse struct {
	ID       int       `json:"id"`
	RemoteID string    `json:"remote_id,omitempty"`
	AuthorID string    `json:"author_id"`
	TopicID  string    `json:"topic_id"`
	Content  string    `json:"content"`
	PostedAt time.Time `json:"posted_at"`
}

// AdminRouter returns the admin API handler.
func (f *Forum) AdminRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/api/status", f.HandleStatus)
	r.Get("/api/posts/{id}", f.HandleGetPost)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (f *Forum) startAdminAPI(addr string) {
	server := &http.Server{
		Addr:         addr,
		Handler:      f.AdminRouter(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	f.adminServer = server
	go func() {
		f.log.Info().Str("addr", addr).Msg("Starting admin API")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			f.log.Error().Err(err).Msg("Admin API error")
		}
	}()
}

// HandleStatus reports whether the forum is active and how much it has seen.
func (f *Forum) HandleStatus(w http.ResponseWriter, r *http.Request) {
	f.pluginMu.Lock()
	plugins := len(f.plugins)
	f.pluginMu.Unlock()
	writeJSON(w, http.StatusOK, StatusResponse{
		Active:   f.Active(),
		Username: f.Username(),
		Posts:    f.history.Len(),
		Plugins:  plugins,
	})
}

// HandleGetPost returns a post from the history by id.
func (f *Forum) HandleGetPost(w http.ResponseWriter, r *http.Request) {
	id, err := ParsePostID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid post id", http.StatusBadRequest)
		return
	}
	post, err := f.GetPost(id)
	if err != nil {
		http.Error(w, "post not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, PostResponse{
		ID:       post.ID,
		RemoteID: post.RemoteID,
		AuthorID: post.AuthorID,
		TopicID:  post.TopicID,
		Content:  post.Content,
		PostedAt: post.PostedAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
