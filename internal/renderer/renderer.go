// Package renderer converts Markdown post bodies to HTML.
//
// The goldmark engine is configured once with GitHub flavoured extensions and
// shared by every request; goldmark.Markdown is safe for concurrent use once
// built. Raw HTML in posts is passed through, since post authors are trusted.
package renderer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer turns Markdown into HTML.
type Renderer interface {
	Render(ctx context.Context, markdown []byte) ([]byte, error)
}

// Options tune the Markdown engine.
type Options struct {
	// HardWraps renders single newlines as <br>.
	HardWraps bool
	// SafeMode drops raw HTML from the output.
	SafeMode bool
}

// MarkdownRenderer implements Renderer with goldmark.
type MarkdownRenderer struct {
	engine goldmark.Markdown
}

// New creates a MarkdownRenderer.
func New(opts Options) *MarkdownRenderer {
	var rendererOptions []goldmark.Option

	htmlOptions := []renderer.Option{}
	if opts.HardWraps {
		htmlOptions = append(htmlOptions, html.WithHardWraps())
	}
	if !opts.SafeMode {
		htmlOptions = append(htmlOptions, html.WithUnsafe())
	}
	rendererOptions = append(rendererOptions,
		goldmark.WithExtensions(
			extension.GFM,
			extension.Linkify,
			extension.TaskList,
			extension.Footnote,
		),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(htmlOptions...),
	)

	return &MarkdownRenderer{engine: goldmark.New(rendererOptions...)}
}

// Render converts markdown to HTML. The context is checked before work starts.
func (r *MarkdownRenderer) Render(ctx context.Context, markdown []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := r.engine.Convert(markdown, &buf); err != nil {
		return nil, fmt.Errorf("markdown render: %w", err)
	}
	return buf.Bytes(), nil
}
