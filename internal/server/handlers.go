package server

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"ghostwriter/internal/core"
	"ghostwriter/internal/logger"
	"ghostwriter/internal/render"
	"ghostwriter/internal/store"

	"github.com/go-chi/chi/v5"
)

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status   string `json:"status"`
	Articles int    `json:"articles"`
}

// ArticleSummary is one entry of the article list API.
type ArticleSummary struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Type        string     `json:"type"`
	CreatedAt   time.Time  `json:"created_at"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Video       string     `json:"video,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	articles, err := s.library.List(r.Context())
	if err != nil {
		logger.Error("Health check failed", err)
		s.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy"})
		return
	}
	s.respondJSON(w, http.StatusOK, HealthResponse{Status: "ok", Articles: len(articles)})
}

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := s.library.List(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to list articles")
		return
	}
	out := make([]ArticleSummary, 0, len(articles))
	for _, a := range articles {
		out = append(out, summarize(a))
	}
	s.respondJSON(w, http.StatusOK, out)
}

func summarize(a *core.Article) ArticleSummary {
	sum := ArticleSummary{ID: a.ID, Title: a.Title, Type: string(a.Type), CreatedAt: a.CreatedAt, ScheduledAt: a.ScheduledAt}
	if a.Video != nil {
		sum.Video = string(a.Video.Status)
	}
	return sum
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="utf-8">
<title>記事一覧</title>
<style>body{font-family:sans-serif;max-width:760px;margin:2rem auto;color:#222}li{margin:.4rem 0}.meta{color:#888;font-size:.85em}</style>
</head>
<body>
<h1>記事一覧</h1>
{{if .}}<ul>
{{range .}}<li><a href="/articles/{{.ID}}/">{{if .Title}}{{.Title}}{{else}}(無題){{end}}</a> <span class="meta">{{.CreatedAt.Format "2006-01-02 15:04"}} {{.Type}}</span></li>
{{end}}</ul>{{else}}<p>保存された記事はありません。</p>{{end}}
</body>
</html>`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	articles, err := s.library.List(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to list articles")
		return
	}
	summaries := make([]ArticleSummary, 0, len(articles))
	for _, a := range articles {
		summaries = append(summaries, summarize(a))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, summaries); err != nil {
		logger.Error("Failed to render index", err)
	}
}

func (s *Server) loadArticle(w http.ResponseWriter, r *http.Request) (*core.Article, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid article id")
		return nil, false
	}
	a, err := s.library.Load(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "article not found")
		return nil, false
	}
	if err != nil {
		logger.Error("Failed to load article", err, "article_id", id)
		s.respondError(w, http.StatusInternalServerError, "failed to load article")
		return nil, false
	}
	return a, true
}

func (s *Server) handleArticle(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadArticle(w, r)
	if !ok {
		return
	}
	page, err := render.Page(a, render.PageOptions{Sanitize: s.policy.Sanitize})
	if err != nil {
		logger.Error("Failed to render article", err, "article_id", a.ID)
		s.respondError(w, http.StatusInternalServerError, "failed to render article")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page))
}

func (s *Server) handleMarkdown(w http.ResponseWriter, r *http.Request) {
	a, ok := s.loadArticle(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(a.Markdown))
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
