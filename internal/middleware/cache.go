package middleware

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/conneroisu/quill/internal/content"
	"github.com/conneroisu/quill/internal/logging"
)

// PostRoutePrefix is the route post requests are rewritten to.
const PostRoutePrefix = "/post/"

// DefaultCacheMaxAge is one day, in seconds.
const DefaultCacheMaxAge = 86400

// PostLookup finds posts by slug. *index.Index implements it.
type PostLookup interface {
	Get(slug string) (*content.PostInfo, bool)
}

// CacheConfig configures the post cache middleware.
type CacheConfig struct {
	Posts PostLookup
	// DefaultMaxAge applies to posts without their own cacheMaxAge.
	DefaultMaxAge int
	Logger        logging.Logger
}

// Cache serves posts by bare slug and handles conditional requests for them.
//
// A request whose path, minus the leading slash, is exactly the slug of an
// indexed post is rewritten to /post/{slug}. For cacheable posts a matching
// If-None-Match answers 304 with an empty body; otherwise Cache-Control, ETag
// and Last-Modified are added to the response if it succeeds. A negative
// per-post cacheMaxAge is ignored. Requests that do not name a post pass
// through untouched.
func Cache(cfg CacheConfig) Middleware {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.DefaultMaxAge < 0 {
		cfg.DefaultMaxAge = DefaultCacheMaxAge
	}
	logger := cfg.Logger.WithComponent("cache")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if strings.TrimSpace(path) == "" || path == "/" {
				next.ServeHTTP(w, r)
				return
			}

			slug := strings.TrimPrefix(path, "/")
			post, ok := cfg.Posts.Get(slug)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			r = rewrite(r, PostRoutePrefix+slug)
			logger.Debug(r.Context(), "Rewrote post request", "from", path, "to", r.URL.Path)

			settings := post.Settings
			if !settings.IsCached {
				next.ServeHTTP(w, r)
				return
			}

			maxAge := cfg.DefaultMaxAge
			if settings.CacheMaxAge != nil && *settings.CacheMaxAge >= 0 {
				maxAge = *settings.CacheMaxAge
			}

			if matchesETag(r.Header.Get("If-None-Match"), settings.ETag) {
				w.WriteHeader(http.StatusNotModified)
				return
			}

			cw := &cacheHeaderWriter{ResponseWriter: w, headers: http.Header{}}
			cw.headers.Set("Cache-Control", "public, max-age="+strconv.Itoa(maxAge))
			cw.headers.Set("ETag", settings.ETag)
			cw.headers.Set("Last-Modified", post.LastModified.UTC().Format(http.TimeFormat))

			next.ServeHTTP(cw, r)
			if !cw.wrote {
				cw.WriteHeader(http.StatusOK)
			}
		})
	}
}

// cacheHeaderWriter copies headers into the response when a 2xx status is
// written. A post that vanished or failed to render gets an error page
// without its validators.
type cacheHeaderWriter struct {
	http.ResponseWriter
	headers http.Header
	wrote   bool
}

func (w *cacheHeaderWriter) WriteHeader(code int) {
	if !w.wrote && code >= http.StatusOK {
		w.wrote = true
		if code < http.StatusMultipleChoices {
			h := w.ResponseWriter.Header()
			for key, values := range w.headers {
				h[key] = values
			}
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *cacheHeaderWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Flush implements http.Flusher when the underlying writer does.
func (w *cacheHeaderWriter) Flush() {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *cacheHeaderWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// rewrite returns a shallow copy of r routed to path.
func rewrite(r *http.Request, path string) *http.Request {
	r2 := new(http.Request)
	*r2 = *r
	u := new(url.URL)
	*u = *r.URL
	u.Path = path
	u.RawPath = ""
	r2.URL = u
	r2.RequestURI = u.RequestURI()
	return r2
}

// matchesETag reports whether an If-None-Match header names etag. Weak
// validators compare equal to their strong form.
func matchesETag(header, etag string) bool {
	if header == "" || etag == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == want {
			return true
		}
	}
	return false
}
