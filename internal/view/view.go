// Package view renders quill's HTML pages as templ components.
package view

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/conneroisu/quill/internal/content"
)

// DateFormat is how publication dates appear on pages.
const DateFormat = "January 2, 2006"

// Site carries the values every page shares.
type Site struct {
	Title    string
	Headline string
	// LiveReload adds a script that reloads the page when the index changes.
	LiveReload bool
}

// ListPage describes a list of posts with pagination links.
type ListPage struct {
	Heading string
	// BasePath is the route the page links are built from, e.g. "/tag/go".
	BasePath string
	Pinned   []*content.PostInfo
	Result   content.PagedResult
}

// htmlWriter stops writing after the first error and reports it at the end.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(parts ...string) {
	for _, part := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, part)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) render(ctx context.Context, c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

// Layout wraps body in the site's HTML document.
func Layout(site Site, pageTitle string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		title := site.Title
		if pageTitle != "" && pageTitle != site.Title {
			title = pageTitle + " | " + site.Title
		}

		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		h.text(title)
		h.raw(`</title></head><body><header><a class="site-title" href="/">`)
		h.text(site.Title)
		h.raw(`</a>`)
		if site.Headline != "" {
			h.raw(`<p class="headline">`)
			h.text(site.Headline)
			h.raw(`</p>`)
		}
		h.raw(`</header><main>`)
		h.render(ctx, body)
		h.raw(`</main>`)
		if site.LiveReload {
			h.raw(liveReloadScript)
		}
		h.raw(`</body></html>`)
		return h.err
	})
}

const liveReloadScript = `<script>(function(){` +
	`var proto=location.protocol==="https:"?"wss:":"ws:";` +
	`var ws=new WebSocket(proto+"//"+location.host+"/ws");` +
	`ws.onmessage=function(){location.reload();};` +
	`})();</script>`

// PostPage renders a single post. The body is trusted HTML produced by the
// Markdown renderer.
func PostPage(post *content.Post) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<article class="post"><h1>`)
		h.text(post.Title)
		h.raw(`</h1>`)
		writeMeta(h, post.PostInfo)
		h.raw(`<p class="reading-time">`, strconv.Itoa(post.ReadingTime), ` min read</p>`)
		if post.HasPrimaryImage() {
			h.raw(`<img class="primary-image" src="`)
			h.text(string(templ.URL(post.PrimaryImage)))
			h.raw(`" alt="`)
			h.text(post.Title)
			h.raw(`">`)
		}
		h.raw(`<div class="post-body">`)
		h.render(ctx, templ.Raw(post.Body))
		h.raw(`</div>`)
		writeTags(h, post.PostInfo)
		if author := post.Settings.Author; author != nil && author.Name != "" {
			h.raw(`<footer class="author">Written by `)
			if author.Website != "" {
				h.raw(`<a href="`)
				h.text(string(templ.URL(author.Website)))
				h.raw(`">`)
				h.text(author.Name)
				h.raw(`</a>`)
			} else {
				h.text(author.Name)
			}
			h.raw(`</footer>`)
		}
		h.raw(`</article>`)
		return h.err
	})
}

// PostList renders pinned posts followed by one page of the remaining posts.
func PostList(page ListPage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		if page.Heading != "" {
			h.raw(`<h1>`)
			h.text(page.Heading)
			h.raw(`</h1>`)
		}

		if len(page.Pinned) > 0 {
			h.raw(`<section class="pinned"><h2>Pinned</h2><ul class="posts">`)
			for _, post := range page.Pinned {
				writeSummary(h, post)
			}
			h.raw(`</ul></section>`)
		}

		if len(page.Result.Items) == 0 && len(page.Pinned) == 0 {
			h.raw(`<p class="empty">No posts yet.</p>`)
			return h.err
		}

		h.raw(`<ul class="posts">`)
		for _, post := range page.Result.Items {
			writeSummary(h, post)
		}
		h.raw(`</ul>`)
		writePagination(h, page)
		return h.err
	})
}

// NotFound renders the 404 page body.
func NotFound(path string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<section class="not-found"><h1>Not found</h1><p>Nothing lives at <code>`)
		h.text(path)
		h.raw(`</code>.</p><p><a href="/">Back to all posts</a></p></section>`)
		return h.err
	})
}

// ErrorPage renders a generic failure message.
func ErrorPage(status int, message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<section class="error"><h1>`, strconv.Itoa(status), `</h1><p>`)
		h.text(message)
		h.raw(`</p></section>`)
		return h.err
	})
}

func writeSummary(h *htmlWriter, post *content.PostInfo) {
	h.raw(`<li class="post-summary"><a href="`, PostURL(post.Slug), `">`)
	h.text(post.Title)
	h.raw(`</a>`)
	writeMeta(h, post)
	if post.HasExcerpt() {
		h.raw(`<p class="excerpt">`)
		h.text(post.Excerpt)
		h.raw(`</p>`)
	}
	h.raw(`</li>`)
}

func writeMeta(h *htmlWriter, post *content.PostInfo) {
	h.raw(`<p class="meta"><time datetime="`, post.Published.UTC().Format(time.RFC3339), `">`)
	h.text(post.Published.Format(DateFormat))
	h.raw(`</time>`)
	if post.HasCategory() {
		h.raw(` in <a class="category" href="`, CategoryURL(post.Category), `">`)
		h.text(post.Category)
		h.raw(`</a>`)
	}
	h.raw(`</p>`)
}

func writeTags(h *htmlWriter, post *content.PostInfo) {
	if !post.HasTags() {
		return
	}
	h.raw(`<ul class="tags">`)
	for _, tag := range post.Tags {
		h.raw(`<li><a href="`, TagURL(tag), `">`)
		h.text(tag)
		h.raw(`</a></li>`)
	}
	h.raw(`</ul>`)
}

func writePagination(h *htmlWriter, page ListPage) {
	r := page.Result
	if r.TotalPages <= 1 {
		return
	}
	h.raw(`<nav class="pagination">`)
	if r.HasPrev() {
		h.raw(`<a rel="prev" href="`, PageURL(page.BasePath, r.CurrentPage-1), `">Newer</a>`)
	}
	h.raw(fmt.Sprintf(`<span>Page %d of %d</span>`, r.CurrentPage+1, r.TotalPages))
	if r.HasNext() {
		h.raw(`<a rel="next" href="`, PageURL(page.BasePath, r.CurrentPage+1), `">Older</a>`)
	}
	h.raw(`</nav>`)
}

// PostURL returns the link for a post. Bare slugs are served by the cache
// middleware.
func PostURL(slug string) string {
	return "/" + escapeSegments(slug)
}

// CategoryURL returns the list page for a category.
func CategoryURL(category string) string {
	return "/category/" + url.PathEscape(category)
}

// TagURL returns the list page for a tag.
func TagURL(tag string) string {
	return "/tag/" + url.PathEscape(tag)
}

// PageURL adds a zero-based page query to base. The first page links to
// base itself.
func PageURL(base string, page int) string {
	if base == "" {
		base = "/"
	}
	if page <= 0 {
		return base
	}
	return base + "?page=" + strconv.Itoa(page)
}

// escapeSegments escapes each path segment of a slug, keeping the slashes a
// slug may contain.
func escapeSegments(slug string) string {
	parts := strings.Split(slug, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
