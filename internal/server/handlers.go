package server

import (
	"encoding/json"
	"net/http"

	"github.com/a-h/templ"

	"github.com/conneroisu/quill/internal/errors"
	"github.com/conneroisu/quill/internal/query"
	"github.com/conneroisu/quill/internal/version"
	"github.com/conneroisu/quill/internal/view"
)

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /post/{slug...}", s.handlePost)
	mux.HandleFunc("GET /category/{category}", s.handleCategory)
	mux.HandleFunc("GET /tag/{tag}", s.handleTag)

	mux.HandleFunc("GET /api/posts", s.handleAPIPosts)
	mux.HandleFunc("GET /api/posts/{slug...}", s.handleAPIPost)
	mux.HandleFunc("GET /api/categories", s.handleAPICategories)
	mux.HandleFunc("GET /api/tags", s.handleAPITags)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /ws", s.hub)

	mux.HandleFunc("/", s.handleNotFound)
}

// handleHome lists unpinned posts, with pinned posts above the first page.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	page, err := query.IntValue(r.URL.Query(), "page", 0)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	list := view.ListPage{
		BasePath: "/",
		Result:   s.engine.GetPagedPosts(query.ByPinned{State: query.Unpinned}, page, 0, 0),
	}
	if page <= 0 {
		list.Pinned = s.engine.GetPosts(query.ByPinned{State: query.PinnedOnly}, 0)
	}
	s.renderPage(w, r, http.StatusOK, "", view.PostList(list))
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	post, ok, err := s.engine.GetBySlug(r.Context(), slug)
	switch {
	case !ok:
		s.handleNotFound(w, r)
	case errors.IsNotFound(err):
		// Deleted between lookup and read.
		s.handleNotFound(w, r)
	case err != nil:
		s.logger.Error(r.Context(), err, "Failed to load post", "slug", slug)
		s.renderError(w, r, http.StatusInternalServerError, "The post could not be loaded.")
	default:
		s.renderPage(w, r, http.StatusOK, post.Title, view.PostPage(post))
	}
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	s.handleFilteredList(w, r, query.ByCategory{Category: category}, "Category: "+category, view.CategoryURL(category))
}

func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	tag := r.PathValue("tag")
	s.handleFilteredList(w, r, query.ByTag{Tag: tag}, "Tagged "+tag, view.TagURL(tag))
}

func (s *Server) handleFilteredList(w http.ResponseWriter, r *http.Request, filter query.Filter, heading, base string) {
	page, err := query.IntValue(r.URL.Query(), "page", 0)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result := s.engine.GetPagedPosts(filter, page, 0, 0)
	if result.TotalPosts == 0 {
		s.handleNotFound(w, r)
		return
	}
	s.renderPage(w, r, http.StatusOK, heading, view.PostList(view.ListPage{
		Heading:  heading,
		BasePath: base,
		Result:   result,
	}))
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusNotFound, "Not found", view.NotFound(r.URL.Path))
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.renderPage(w, r, status, http.StatusText(status), view.ErrorPage(status, message))
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, title string, body templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := view.Layout(s.site, title, body).Render(r.Context(), w); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to render page", "path", r.URL.Path)
	}
}

// apiError is the JSON body of a failed API request.
type apiError struct {
	Error string `json:"error"`
}

func (s *Server) handleAPIPosts(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	filter, err := query.FromValues(values)
	if err != nil {
		s.writeJSON(w, r, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}

	var params [3]int
	for i, name := range []string{"page", "pageSize", "limit"} {
		if params[i], err = query.IntValue(values, name, 0); err != nil {
			s.writeJSON(w, r, http.StatusBadRequest, apiError{Error: err.Error()})
			return
		}
	}

	s.writeJSON(w, r, http.StatusOK, s.engine.GetPagedPosts(filter, params[0], params[1], params[2]))
}

func (s *Server) handleAPIPost(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	post, ok, err := s.engine.GetBySlug(r.Context(), slug)
	switch {
	case !ok, errors.IsNotFound(err):
		s.writeJSON(w, r, http.StatusNotFound, apiError{Error: "post not found: " + slug})
	case err != nil:
		s.logger.Error(r.Context(), err, "Failed to load post", "slug", slug)
		s.writeJSON(w, r, http.StatusInternalServerError, apiError{Error: "post could not be loaded"})
	default:
		s.writeJSON(w, r, http.StatusOK, post)
	}
}

func (s *Server) handleAPICategories(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.index.Categories())
}

func (s *Server) handleAPITags(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.index.Tags())
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string       `json:"status"`
	Posts   int          `json:"posts"`
	Clients int          `json:"clients"`
	Version string       `json:"version"`
	Build   version.Info `json:"build"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := version.Get()
	s.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Posts:   s.index.Count(),
		Clients: s.hub.ClientCount(),
		Version: info.Short(),
		Build:   info,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn(r.Context(), err, "Failed to encode response", "path", r.URL.Path)
	}
}
