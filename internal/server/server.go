// Package server wires the content index, watcher and query engine behind
// quill's HTTP routes.
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/conneroisu/quill/internal/config"
	"github.com/conneroisu/quill/internal/content"
	"github.com/conneroisu/quill/internal/errors"
	"github.com/conneroisu/quill/internal/index"
	"github.com/conneroisu/quill/internal/logging"
	"github.com/conneroisu/quill/internal/middleware"
	"github.com/conneroisu/quill/internal/query"
	"github.com/conneroisu/quill/internal/renderer"
	"github.com/conneroisu/quill/internal/view"
	"github.com/conneroisu/quill/internal/watcher"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Server serves the blog.
type Server struct {
	config  *config.Config
	logger  logging.Logger
	fs      afero.Fs
	index   *index.Index
	engine  *query.Engine
	hub     *Hub
	site    view.Site
	handler http.Handler

	serverMutex sync.RWMutex
	httpServer  *http.Server
	listenAddr  string
}

// New creates a server for cfg. A nil fs reads content from the OS
// filesystem; the watcher only runs on the OS filesystem.
func New(cfg *config.Config, fsys afero.Fs, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	ingestor := content.NewIngestor(fsys, logger)
	idx := index.New(cfg.Blog.DataPath, ingestor, logger)
	engine := query.New(idx, ingestor, renderer.New(renderer.Options{}), query.Options{
		PageSize: cfg.Blog.PageSize,
		Logger:   logger,
	})

	s := &Server{
		config: cfg,
		logger: logger.WithComponent("server"),
		fs:     fsys,
		index:  idx,
		engine: engine,
		hub:    NewHub(cfg.Server.Port, logger),
		site: view.Site{
			Title:      cfg.Blog.Title,
			Headline:   cfg.Blog.Headline,
			LiveReload: cfg.Blog.Watch,
		},
	}
	s.handler = s.buildHandler(logger)
	return s
}

// Index returns the post index the server reads from.
func (s *Server) Index() *index.Index {
	return s.index
}

// Handler returns the complete HTTP handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the address the server is listening on, or "" before Start
// has bound its listener.
func (s *Server) Addr() string {
	s.serverMutex.RLock()
	defer s.serverMutex.RUnlock()
	return s.listenAddr
}

func (s *Server) buildHandler(logger logging.Logger) http.Handler {
	mux := http.NewServeMux()
	s.routes(mux)

	chain := middleware.NewMiddlewareChain(middleware.MiddlewareDependencies{Logger: logger})
	chain.AddMiddleware(middleware.Cache(middleware.CacheConfig{
		Posts:         s.index,
		DefaultMaxAge: s.config.Blog.CacheMaxAge,
		Logger:        logger,
	}))
	return chain.Apply(mux)
}

// Start indexes the content directory, starts the watcher and serves HTTP
// until ctx is cancelled. Posts that fail to ingest are logged and skipped;
// a missing content directory is an error.
func (s *Server) Start(ctx context.Context) error {
	dir := s.config.Blog.DataPath
	if ok, err := afero.DirExists(s.fs, dir); err != nil || !ok {
		return errors.NewNotFoundError(errors.ErrCodeFileNotFound, "content directory not found").
			WithPath(dir).
			WithComponent("server")
	}

	// Per-file failures are already logged by the index.
	_ = s.index.Init(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := s.index.Subscribe()
	defer s.index.Unsubscribe(events)
	go s.hub.Run(ctx, events)

	fw, err := s.startWatcher(ctx)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", s.config.Server.Addr())
	if err != nil {
		return multierr.Append(
			errors.Wrap(err, errors.ErrorTypeIO, errors.ErrCodeInternalError, "listen").
				WithContext("addr", s.config.Server.Addr()),
			stopWatcher(fw),
		)
	}

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.listenAddr = listener.Addr().String()
	server := s.httpServer
	s.serverMutex.Unlock()

	s.logger.Info(ctx, "Serving blog",
		"addr", listener.Addr().String(),
		"posts", s.index.Count(),
		"watch", fw != nil)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	var errs error
	select {
	case err := <-serveErr:
		if err != http.ErrServerClosed {
			errs = multierr.Append(errs, err)
		}
	case <-ctx.Done():
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		errs = multierr.Append(errs, server.Shutdown(shutdownCtx))
		cancelShutdown()
	}

	errs = multierr.Append(errs, stopWatcher(fw))
	s.logger.Info(context.Background(), "Server stopped")
	return errs
}

// startWatcher returns nil when watching is disabled or the content lives
// outside the OS filesystem.
func (s *Server) startWatcher(ctx context.Context) (*watcher.FileWatcher, error) {
	if !s.config.Blog.Watch {
		return nil, nil
	}
	if _, ok := s.fs.(*afero.OsFs); !ok {
		s.logger.Debug(ctx, "Skipping file watcher for non-OS filesystem")
		return nil, nil
	}

	fw, err := watcher.NewFileWatcher(s.config.Watcher.Debounce, s.logger)
	if err != nil {
		return nil, err
	}
	fw.AddFilter(watcher.MarkdownFilter)
	fw.AddFilter(watcher.NoHiddenFilter)
	fw.AddHandler(watcher.IndexHandler(s.index))

	if err := fw.AddPath(s.config.Blog.DataPath); err != nil {
		return nil, multierr.Append(
			errors.WrapFileError(err, s.config.Blog.DataPath, "watch content directory"),
			fw.Stop(),
		)
	}
	if err := fw.Start(ctx); err != nil {
		return nil, multierr.Append(err, fw.Stop())
	}
	return fw, nil
}

func stopWatcher(fw *watcher.FileWatcher) error {
	if fw == nil {
		return nil
	}
	return fw.Stop()
}
