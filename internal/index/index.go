// Package index holds the in-memory post collection.
//
// The index is a copy-on-write map from slug to post. Readers load the
// current snapshot through an atomic pointer and never block; writers are
// serialized by a mutex, copy the map, apply their change and publish the new
// snapshot. A reader therefore always sees the state before or after a
// mutation, never a half-applied one.
package index

import (
	"context"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/iter"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/conneroisu/quill/internal/content"
	"github.com/conneroisu/quill/internal/errors"
	"github.com/conneroisu/quill/internal/logging"
)

// EventType represents the type of index change
type EventType int

const (
	EventTypeAdded EventType = iota
	EventTypeUpdated
	EventTypeRemoved
)

// String returns the string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventTypeAdded:
		return "added"
	case EventTypeUpdated:
		return "updated"
	case EventTypeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event describes a change to the index.
type Event struct {
	Type      EventType
	Slug      string
	Path      string
	Timestamp time.Time
}

// subscriberBuffer is the per-subscriber channel capacity. Events beyond it
// are dropped for that subscriber.
const subscriberBuffer = 100

type snapshot struct {
	posts map[string]*content.PostInfo
}

func (s *snapshot) clone() map[string]*content.PostInfo {
	posts := make(map[string]*content.PostInfo, len(s.posts)+1)
	for slug, post := range s.posts {
		posts[slug] = post
	}
	return posts
}

// Index is the authoritative slug to post collection.
type Index struct {
	dir      string
	ingestor *content.Ingestor
	logger   logging.Logger
	workers  int

	current atomic.Pointer[snapshot]
	writeMu sync.Mutex

	subMu       sync.Mutex
	subscribers []chan Event
}

// New creates an empty index over the posts in dir.
func New(dir string, ingestor *content.Ingestor, logger logging.Logger) *Index {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if ingestor == nil {
		ingestor = content.NewIngestor(nil, logger)
	}

	x := &Index{
		dir:      filepath.Clean(dir),
		ingestor: ingestor,
		logger:   logger.WithComponent("index"),
		workers:  runtime.NumCPU(),
	}
	x.current.Store(&snapshot{posts: map[string]*content.PostInfo{}})
	return x
}

// Dir returns the content directory.
func (x *Index) Dir() string {
	return x.dir
}

// Ingestor returns the ingestor used to read posts.
func (x *Index) Ingestor() *content.Ingestor {
	return x.ingestor
}

// Init replaces the index contents with every post file in the content
// directory. Files that fail to ingest are skipped and reported together in
// the returned error; the rest are still indexed.
func (x *Index) Init(ctx context.Context) error {
	op := logging.StartOperation(x.logger, "index_init")

	paths, err := x.listPosts()
	if err != nil {
		op.EndWithError(ctx, err)
		return err
	}

	type outcome struct {
		post *content.PostInfo
		err  error
	}
	mapper := iter.Mapper[string, outcome]{MaxGoroutines: x.workers}
	outcomes := mapper.Map(paths, func(path *string) outcome {
		post, err := x.ingestor.Ingest(ctx, *path)
		return outcome{post: post, err: err}
	})

	posts := make(map[string]*content.PostInfo, len(outcomes))
	var errs error
	for _, o := range outcomes {
		if o.err != nil {
			errs = multierr.Append(errs, o.err)
			continue
		}
		// Directory order decides slug collisions; the later file wins.
		posts[o.post.Slug] = o.post
	}

	x.writeMu.Lock()
	x.current.Store(&snapshot{posts: posts})
	x.writeMu.Unlock()

	if errs != nil {
		x.logger.Warn(ctx, errs, "Some posts could not be indexed",
			"failed", len(multierr.Errors(errs)))
	}
	op.End(ctx, "files", len(paths), "posts", len(posts))
	return errs
}

func (x *Index) listPosts() ([]string, error) {
	entries, err := afero.ReadDir(x.ingestor.Fs(), x.dir)
	if err != nil {
		return nil, errors.WrapFileError(err, x.dir, "list content directory").
			WithComponent("index")
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsPostFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(x.dir, entry.Name()))
	}
	return paths, nil
}

// IsPostFile reports whether name has the post file extension.
func IsPostFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), content.Extension)
}

// Reload ingests the file at path and inserts or replaces its record by slug.
// A file that no longer exists is ignored. When an edit changes a post's slug
// the record under the old slug stays until its path is deleted.
func (x *Index) Reload(ctx context.Context, path string) error {
	post, err := x.ingestor.Ingest(ctx, path)
	if err != nil {
		if errors.IsNotFound(err) {
			x.logger.Debug(ctx, "Reload skipped, file is gone", "path", path)
			return nil
		}
		return err
	}

	x.writeMu.Lock()
	posts := x.current.Load().clone()
	eventType := EventTypeAdded
	if _, exists := posts[post.Slug]; exists {
		eventType = EventTypeUpdated
	}
	posts[post.Slug] = post
	x.current.Store(&snapshot{posts: posts})
	x.writeMu.Unlock()

	x.logger.Info(ctx, "Post indexed", "slug", post.Slug, "path", post.Settings.SourcePath(), "event", eventType.String())
	x.notify(Event{
		Type:      eventType,
		Slug:      post.Slug,
		Path:      post.Settings.SourcePath(),
		Timestamp: time.Now(),
	})
	return nil
}

// Delete removes every record read from path and returns how many were
// removed.
func (x *Index) Delete(path string) int {
	path = filepath.Clean(path)

	x.writeMu.Lock()
	current := x.current.Load()
	var removed []string
	for slug, post := range current.posts {
		if post.Settings.SourcePath() == path {
			removed = append(removed, slug)
		}
	}
	if len(removed) == 0 {
		x.writeMu.Unlock()
		return 0
	}
	posts := current.clone()
	for _, slug := range removed {
		delete(posts, slug)
	}
	x.current.Store(&snapshot{posts: posts})
	x.writeMu.Unlock()

	sort.Strings(removed)
	now := time.Now()
	for _, slug := range removed {
		x.logger.Info(context.Background(), "Post removed", "slug", slug, "path", path)
		x.notify(Event{Type: EventTypeRemoved, Slug: slug, Path: path, Timestamp: now})
	}
	return len(removed)
}

// Exists reports whether a post with slug is indexed.
func (x *Index) Exists(slug string) bool {
	_, ok := x.current.Load().posts[slug]
	return ok
}

// Get returns the post with slug.
func (x *Index) Get(slug string) (*content.PostInfo, bool) {
	post, ok := x.current.Load().posts[slug]
	return post, ok
}

// Count returns the number of indexed posts.
func (x *Index) Count() int {
	return len(x.current.Load().posts)
}

// All returns every post, newest first. Posts published at the same instant
// are ordered by slug.
func (x *Index) All() []*content.PostInfo {
	snap := x.current.Load()
	posts := make([]*content.PostInfo, 0, len(snap.posts))
	for _, post := range snap.posts {
		posts = append(posts, post)
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].Published.Equal(posts[j].Published) {
			return posts[i].Published.After(posts[j].Published)
		}
		return posts[i].Slug < posts[j].Slug
	})
	return posts
}

// Categories counts posts per category, sorted by label. Posts without a
// category are not counted.
func (x *Index) Categories() []content.Taxonomy {
	counts := make(map[string]int)
	for _, post := range x.current.Load().posts {
		if strings.TrimSpace(post.Category) == "" {
			continue
		}
		counts[post.Category]++
	}
	return taxonomies(counts)
}

// Tags counts posts per tag, sorted by label.
func (x *Index) Tags() []content.Taxonomy {
	counts := make(map[string]int)
	for _, post := range x.current.Load().posts {
		for _, tag := range post.Tags {
			counts[tag]++
		}
	}
	return taxonomies(counts)
}

func taxonomies(counts map[string]int) []content.Taxonomy {
	result := make([]content.Taxonomy, 0, len(counts))
	for label, count := range counts {
		result = append(result, content.Taxonomy{Label: label, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Label < result[j].Label
	})
	return result
}

// Subscribe returns a channel that receives index events. Events are
// dropped for subscribers that fall behind.
func (x *Index) Subscribe() <-chan Event {
	x.subMu.Lock()
	defer x.subMu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	x.subscribers = append(x.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber channel and closes it
func (x *Index) Unsubscribe(ch <-chan Event) {
	x.subMu.Lock()
	defer x.subMu.Unlock()

	for i, sub := range x.subscribers {
		if sub == ch {
			close(sub)
			x.subscribers = append(x.subscribers[:i], x.subscribers[i+1:]...)
			return
		}
	}
}

func (x *Index) notify(event Event) {
	x.subMu.Lock()
	defer x.subMu.Unlock()

	for _, sub := range x.subscribers {
		select {
		case sub <- event:
		default:
			// Skip if channel is full
		}
	}
}
