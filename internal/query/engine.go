// Package query answers read requests against the post index: filtered and
// paginated listings, and single posts with their rendered body.
package query

import (
	"bytes"
	"context"
	"strings"

	"golang.org/x/net/html"

	"github.com/conneroisu/quill/internal/content"
	"github.com/conneroisu/quill/internal/errors"
	"github.com/conneroisu/quill/internal/logging"
	"github.com/conneroisu/quill/internal/renderer"
)

// DefaultPageSize is used when no page size is configured.
const DefaultPageSize = 5

// WordsPerMinute is the reading speed used for reading time estimates.
const WordsPerMinute = 200

// Source provides post snapshots. *index.Index implements it.
type Source interface {
	All() []*content.PostInfo
	Get(slug string) (*content.PostInfo, bool)
}

// BodyReader loads the Markdown body of a post. *content.Ingestor implements
// it.
type BodyReader interface {
	ReadBody(post *content.PostInfo) ([]byte, error)
}

// Options configures an Engine.
type Options struct {
	PageSize int
	Logger   logging.Logger
}

// Engine runs queries over a Source.
type Engine struct {
	source   Source
	bodies   BodyReader
	renderer renderer.Renderer
	pageSize int
	logger   logging.Logger
}

// New creates a query engine.
func New(source Source, bodies BodyReader, r renderer.Renderer, opts Options) *Engine {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}
	return &Engine{
		source:   source,
		bodies:   bodies,
		renderer: r,
		pageSize: opts.PageSize,
		logger:   opts.Logger.WithComponent("query"),
	}
}

// PageSize returns the default page size.
func (e *Engine) PageSize() int {
	return e.pageSize
}

// GetPosts returns posts matching filter, newest first, truncated to limit
// when limit is positive.
func (e *Engine) GetPosts(filter Filter, limit int) []*content.PostInfo {
	posts := e.filtered(filter)
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts
}

// GetPagedPosts returns one page of posts matching filter. A pageSize of zero
// or less uses the default. Pages past the end are empty but still report
// the totals. When limit is positive the page is truncated to it.
func (e *Engine) GetPagedPosts(filter Filter, page, pageSize, limit int) content.PagedResult {
	if pageSize <= 0 {
		pageSize = e.pageSize
	}

	posts := e.filtered(filter)
	total := len(posts)

	start := page
	if start < 0 {
		start = 0
	}
	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}

	// start is checked against the page count before multiplying so that
	// skip never leaves [0, total).
	items := []*content.PostInfo{}
	if start < totalPages {
		skip := start * pageSize
		end := total
		if total-skip > pageSize {
			end = skip + pageSize
		}
		items = posts[skip:end]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	return content.PagedResult{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalPosts:  total,
		Items:       items,
	}
}

func (e *Engine) filtered(filter Filter) []*content.PostInfo {
	e.logger.Debug(context.Background(), "Filtering posts", "filter", Describe(filter))
	all := e.source.All()
	if filter == nil {
		return all
	}
	out := make([]*content.PostInfo, 0, len(all))
	for _, post := range all {
		if filter.Match(post) {
			out = append(out, post)
		}
	}
	return out
}

// GetBySlug returns the post with slug and its rendered body. The boolean is
// false when no such post is indexed. An error means the post is indexed but
// its body could not be read or rendered.
func (e *Engine) GetBySlug(ctx context.Context, slug string) (*content.Post, bool, error) {
	info, ok := e.source.Get(slug)
	if !ok {
		return nil, false, nil
	}

	markdown, err := e.bodies.ReadBody(info)
	if err != nil {
		e.logger.Warn(ctx, err, "Failed to read post body", "slug", slug)
		return nil, true, err
	}

	rendered, err := e.renderer.Render(ctx, markdown)
	if err != nil {
		return nil, true, errors.WrapInternal(err, errors.ErrCodeRenderFailed, "render post").
			WithPath(info.Settings.SourcePath()).
			WithComponent("query")
	}

	return &content.Post{
		PostInfo:    info,
		Body:        string(rendered),
		ReadingTime: ReadingTime(rendered),
	}, true, nil
}

// ReadingTime estimates the minutes needed to read an HTML fragment. The
// result is at least one.
func ReadingTime(fragment []byte) int {
	words := countWords(fragment)
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

func countWords(fragment []byte) int {
	z := html.NewTokenizer(bytes.NewReader(fragment))
	words := 0
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input; either way counting stops.
			return words
		case html.StartTagToken:
			name, _ := z.TagName()
			if isHiddenText(name) {
				skip++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if isHiddenText(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				words += len(strings.Fields(string(z.Text())))
			}
		}
	}
}

func isHiddenText(tag []byte) bool {
	switch string(tag) {
	case "script", "style":
		return true
	}
	return false
}
