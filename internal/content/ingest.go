package content

import (
	"bufio"
	"context"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/conneroisu/quill/internal/errors"
	"github.com/conneroisu/quill/internal/frontmatter"
	"github.com/conneroisu/quill/internal/logging"
)

// Extension is the file extension of post sources.
const Extension = ".md"

// Ingestor reads post files into PostInfo records.
type Ingestor struct {
	fs     afero.Fs
	logger logging.Logger
}

// NewIngestor creates an ingestor reading through fsys. A nil fsys reads the
// operating system's filesystem.
func NewIngestor(fsys afero.Fs, logger logging.Logger) *Ingestor {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Ingestor{
		fs:     fsys,
		logger: logger.WithComponent("ingest"),
	}
}

// Fs returns the filesystem the ingestor reads from.
func (in *Ingestor) Fs() afero.Fs {
	return in.fs
}

// fileFacts is what the default steps know about the source file.
type fileFacts struct {
	path     string
	created  time.Time
	modified time.Time
}

// defaultStep fills one field of a freshly decoded post.
type defaultStep func(p *PostInfo, f fileFacts)

// defaults run in order; later steps depend on fields set by earlier ones.
var defaults = []defaultStep{
	defaultTitle,
	defaultSlug,
	defaultPublished,
	defaultLastModified,
	defaultETag,
	defaultCacheMaxAge,
}

func defaultTitle(p *PostInfo, f fileFacts) {
	if strings.TrimSpace(p.Title) != "" {
		return
	}
	base := filepath.Base(f.path)
	p.Title = strings.TrimSuffix(base, filepath.Ext(base))
}

func defaultSlug(p *PostInfo, _ fileFacts) {
	if strings.TrimSpace(p.Slug) != "" {
		return
	}
	p.Slug = Slug(p.Title)
}

func defaultPublished(p *PostInfo, f fileFacts) {
	if !p.Published.IsZero() {
		return
	}
	p.Published = f.created.UTC()
}

func defaultLastModified(p *PostInfo, f fileFacts) {
	p.LastModified = f.modified.UTC()
}

func defaultETag(p *PostInfo, _ fileFacts) {
	if tag := strings.TrimSpace(p.Settings.ETag); tag != "" {
		p.Settings.ETag = quoteETag(tag)
		return
	}
	p.Settings.ETag = ETag(p.Title, p.LastModified)
}

// defaultCacheMaxAge drops a negative override so the configured max-age
// applies.
func defaultCacheMaxAge(p *PostInfo, _ fileFacts) {
	if p.Settings.CacheMaxAge != nil && *p.Settings.CacheMaxAge < 0 {
		p.Settings.CacheMaxAge = nil
	}
}

// Ingest reads the file at path into a fully resolved PostInfo.
//
// Malformed front matter never fails ingestion; the problem is logged and the
// affected fields fall back to their defaults. Only I/O failures are
// returned, as structured I/O errors carrying the path.
func (in *Ingestor) Ingest(ctx context.Context, path string) (*PostInfo, error) {
	path = filepath.Clean(path)

	f, err := in.fs.Open(path)
	if err != nil {
		return nil, errors.WrapFileError(err, path, "open post")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.WrapFileError(err, path, "stat post")
	}
	if info.IsDir() {
		return nil, errors.NewIOError(errors.ErrCodeFileRead, "post path is a directory", nil).
			WithPath(path).
			WithComponent("ingest")
	}

	block, err := frontmatter.Split(f)
	if err != nil {
		return nil, errors.WrapFileError(err, path, "read front matter")
	}

	post := &PostInfo{}
	settings := DefaultSettings()
	if block.Found {
		if err := frontmatter.Decode(block.Raw, post); err != nil {
			in.logger.Warn(ctx, err, "Invalid post metadata, using defaults", "path", path)
			*post = PostInfo{}
		}
		if err := frontmatter.Decode(block.Raw, &settings); err != nil {
			in.logger.Warn(ctx, err, "Invalid post settings, using defaults", "path", path)
			settings = DefaultSettings()
		}
	}

	post.Tags = dedupe(post.Tags)
	post.Settings = settings
	post.Settings.path = path
	post.Settings.bodyStart = block.BodyStart

	facts := fileFacts{
		path:     path,
		created:  in.creationTime(path, info),
		modified: info.ModTime(),
	}
	for _, step := range defaults {
		step(post, facts)
	}

	in.logger.Debug(ctx, "Ingested post",
		"path", path,
		"slug", post.Slug,
		"body_start", block.BodyStart)

	return post, nil
}

// ReadBody returns the Markdown body of post, skipping its front matter.
func (in *Ingestor) ReadBody(post *PostInfo) ([]byte, error) {
	path := post.Settings.SourcePath()

	f, err := in.fs.Open(path)
	if err != nil {
		return nil, errors.WrapFileError(err, path, "open post body")
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if err := frontmatter.SkipLines(br, post.Settings.BodyStart()); err != nil {
		return nil, errors.WrapFileError(err, path, "skip front matter")
	}
	body, err := io.ReadAll(br)
	if err != nil {
		return nil, errors.WrapFileError(err, path, "read post body")
	}
	return body, nil
}

// creationTime prefers the birth time reported by the operating system and
// falls back to the modification time.
func (in *Ingestor) creationTime(path string, info fs.FileInfo) time.Time {
	if _, ok := in.fs.(*afero.OsFs); ok {
		if t, ok := birthTime(path, info); ok && !t.IsZero() {
			return t
		}
	}
	return info.ModTime()
}
