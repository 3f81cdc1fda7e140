package index

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/quill/internal/content"
	"github.com/conneroisu/quill/internal/logging"
)

var t0 = time.Date(2023, 5, 6, 7, 8, 9, 0, time.UTC)

const dataDir = "/blog/Data"

func newTestIndex(t *testing.T) (*Index, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll(dataDir, 0o755))
	logger := logging.NewNopLogger()
	return New(dataDir, content.NewIngestor(fsys, logger), logger), fsys
}

func writeFile(t *testing.T, fsys afero.Fs, name, body string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dataDir, name)
	require.NoError(t, afero.WriteFile(fsys, path, []byte(body), 0o644))
	require.NoError(t, fsys.Chtimes(path, mtime, mtime))
	return path
}

func TestInitHelloWorld(t *testing.T) {
	x, fsys := newTestIndex(t)
	writeFile(t, fsys, "hello-world.md", "# Hi\n", t0)

	require.NoError(t, x.Init(context.Background()))

	assert.Equal(t, 1, x.Count())
	post, ok := x.Get("hello-world")
	require.True(t, ok)
	assert.Equal(t, "hello-world", post.Title)
	assert.True(t, post.Published.Equal(t0))
	assert.True(t, post.LastModified.Equal(t0))
	assert.Equal(t, content.ETag("hello-world", t0), post.Settings.ETag)
	assert.True(t, post.Settings.IsCached)
	assert.Equal(t, 0, post.Settings.BodyStart())
}

func TestInitSkipsNonPostFiles(t *testing.T) {
	x, fsys := newTestIndex(t)
	writeFile(t, fsys, "a.md", "a", t0)
	writeFile(t, fsys, "B.MD", "b", t0)
	writeFile(t, fsys, "notes.txt", "c", t0)
	require.NoError(t, fsys.MkdirAll(filepath.Join(dataDir, "nested.md"), 0o755))
	writeFile(t, fsys, "nested.md/inner.md", "d", t0)

	require.NoError(t, x.Init(context.Background()))

	assert.Equal(t, 2, x.Count())
	assert.True(t, x.Exists("a"))
	assert.True(t, x.Exists("b"))
	assert.False(t, x.Exists("inner"))
}

func TestInitSlugCollisionLaterFileWins(t *testing.T) {
	x, fsys := newTestIndex(t)
	writeFile(t, fsys, "a.md", "---\nslug: same\ntitle: First\n---\n", t0)
	writeFile(t, fsys, "b.md", "---\nslug: same\ntitle: Second\n---\n", t0)

	require.NoError(t, x.Init(context.Background()))

	assert.Equal(t, 1, x.Count())
	post, ok := x.Get("same")
	require.True(t, ok)
	assert.Equal(t, "Second", post.Title)
}

func TestInitMissingDirectory(t *testing.T) {
	fsys := afero.NewMemMapFs()
	x := New("/nowhere", content.NewIngestor(fsys, nil), nil)

	err := x.Init(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 0, x.Count())
}

func TestInitReplacesPreviousContents(t *testing.T) {
	x, fsys := newTestIndex(t)
	path := writeFile(t, fsys, "a.md", "a", t0)
	require.NoError(t, x.Init(context.Background()))
	require.True(t, x.Exists("a"))

	require.NoError(t, fsys.Remove(path))
	writeFile(t, fsys, "b.md", "b", t0)
	require.NoError(t, x.Init(context.Background()))

	assert.False(t, x.Exists("a"))
	assert.True(t, x.Exists("b"))
}

func TestReload(t *testing.T) {
	x, fsys := newTestIndex(t)
	ctx := context.Background()

	path := writeFile(t, fsys, "post.md", "---\ntitle: Post\ncategory: Go\n---\n", t0)
	require.NoError(t, x.Reload(ctx, path))
	post, ok := x.Get("post")
	require.True(t, ok)
	assert.Equal(t, "Go", post.Category)

	writeFile(t, fsys, "post.md", "---\ntitle: Post\ncategory: Rust\n---\n", t0.Add(time.Minute))
	require.NoError(t, x.Reload(ctx, path))

	updated, ok := x.Get("post")
	require.True(t, ok)
	assert.Equal(t, "Rust", updated.Category)
	assert.True(t, updated.LastModified.Equal(t0.Add(time.Minute)))
	assert.NotEqual(t, post.Settings.ETag, updated.Settings.ETag)

	// Snapshots handed out earlier are not modified.
	assert.Equal(t, "Go", post.Category)
}

func TestReloadMissingFileIsNoop(t *testing.T) {
	x, _ := newTestIndex(t)
	require.NoError(t, x.Reload(context.Background(), filepath.Join(dataDir, "gone.md")))
	assert.Equal(t, 0, x.Count())
}

func TestReloadSlugChangeKeepsOldEntry(t *testing.T) {
	x, fsys := newTestIndex(t)
	ctx := context.Background()

	path := writeFile(t, fsys, "p.md", "---\ntitle: Old Name\n---\n", t0)
	require.NoError(t, x.Reload(ctx, path))
	writeFile(t, fsys, "p.md", "---\ntitle: New Name\n---\n", t0)
	require.NoError(t, x.Reload(ctx, path))

	assert.True(t, x.Exists("old-name"))
	assert.True(t, x.Exists("new-name"))

	// Deleting the path clears both.
	assert.Equal(t, 2, x.Delete(path))
	assert.Equal(t, 0, x.Count())
}

func TestDelete(t *testing.T) {
	x, fsys := newTestIndex(t)
	ctx := context.Background()

	a := writeFile(t, fsys, "a.md", "a", t0)
	b := writeFile(t, fsys, "b.md", "b", t0)
	require.NoError(t, x.Init(ctx))

	assert.Equal(t, 1, x.Delete(a))
	assert.False(t, x.Exists("a"))
	assert.True(t, x.Exists("b"))

	assert.Equal(t, 0, x.Delete(a))
	assert.Equal(t, 0, x.Delete(filepath.Join(dataDir, "never.md")))
	assert.Equal(t, 1, x.Delete(b+"/"))
	assert.Equal(t, 0, x.Count())
}

func TestRenameSequence(t *testing.T) {
	x, fsys := newTestIndex(t)
	ctx := context.Background()

	oldPath := writeFile(t, fsys, "a.md", "a", t0)
	require.NoError(t, x.Init(ctx))

	newPath := filepath.Join(dataDir, "b.md")
	require.NoError(t, fsys.Rename(oldPath, newPath))

	x.Delete(oldPath)
	require.NoError(t, x.Reload(ctx, newPath))

	assert.False(t, x.Exists("a"))
	assert.True(t, x.Exists("b"))
	assert.Equal(t, 1, x.Count())
}

func TestAllOrdering(t *testing.T) {
	x, fsys := newTestIndex(t)
	writeFile(t, fsys, "old.md", "---\npublished: 2020-01-01\n---\n", t0)
	writeFile(t, fsys, "new.md", "---\npublished: 2022-01-01\n---\n", t0)
	writeFile(t, fsys, "tie-b.md", "---\npublished: 2021-01-01\n---\n", t0)
	writeFile(t, fsys, "tie-a.md", "---\npublished: 2021-01-01\n---\n", t0)

	require.NoError(t, x.Init(context.Background()))

	var slugs []string
	for _, post := range x.All() {
		slugs = append(slugs, post.Slug)
	}
	assert.Equal(t, []string{"new", "tie-a", "tie-b", "old"}, slugs)
}

func TestTaxonomies(t *testing.T) {
	x, fsys := newTestIndex(t)
	writeFile(t, fsys, "a.md", "---\ncategory: Go\ntags: [web, go]\n---\n", t0)
	writeFile(t, fsys, "b.md", "---\ncategory: go\ntags: [go]\n---\n", t0)
	writeFile(t, fsys, "c.md", "---\ncategory: Go\n---\n", t0)
	writeFile(t, fsys, "d.md", "plain", t0)

	require.NoError(t, x.Init(context.Background()))

	assert.Equal(t, []content.Taxonomy{
		{Label: "Go", Count: 2},
		{Label: "go", Count: 1},
	}, x.Categories())
	assert.Equal(t, []content.Taxonomy{
		{Label: "go", Count: 2},
		{Label: "web", Count: 1},
	}, x.Tags())
}

func TestSubscribe(t *testing.T) {
	x, fsys := newTestIndex(t)
	ctx := context.Background()
	events := x.Subscribe()

	path := writeFile(t, fsys, "p.md", "p", t0)
	require.NoError(t, x.Reload(ctx, path))
	require.NoError(t, x.Reload(ctx, path))
	x.Delete(path)

	expect := []EventType{EventTypeAdded, EventTypeUpdated, EventTypeRemoved}
	for _, want := range expect {
		select {
		case ev := <-events:
			assert.Equal(t, want, ev.Type)
			assert.Equal(t, "p", ev.Slug)
			assert.Equal(t, path, ev.Path)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}

	x.Unsubscribe(events)
	_, open := <-events
	assert.False(t, open)
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	x, fsys := newTestIndex(t)
	ctx := context.Background()
	events := x.Subscribe()

	path := writeFile(t, fsys, "p.md", "p", t0)
	for i := 0; i < subscriberBuffer+10; i++ {
		require.NoError(t, x.Reload(ctx, path))
	}
	assert.Len(t, events, subscriberBuffer)
}

func TestConcurrentReloadAndDelete(t *testing.T) {
	x, fsys := newTestIndex(t)
	ctx := context.Background()

	const n = 50
	paths := make([]string, n)
	for i := 0; i < n; i++ {
		paths[i] = writeFile(t, fsys, fmt.Sprintf("post-%02d.md", i), "---\ntitle: T\ncategory: C\n---\n", t0)
	}

	// Readers must only ever observe whole records.
	stop := make(chan struct{})
	var readers sync.WaitGroup
	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				for _, post := range x.All() {
					if post.Settings.SourcePath() == "" || post.Settings.ETag == "" {
						t.Errorf("observed partial record %q", post.Slug)
						return
					}
				}
				_ = x.Categories()
			}
		}()
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			assert.NoError(t, x.Reload(ctx, path))
		}(paths[i])
	}
	wg.Wait()

	// Every file has title T, so they all share one slug.
	assert.Equal(t, 1, x.Count())

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			x.Delete(path)
		}(paths[i])
	}
	wg.Wait()

	close(stop)
	readers.Wait()
	assert.Equal(t, 0, x.Count())
}

func TestConcurrentDistinctReloads(t *testing.T) {
	x, fsys := newTestIndex(t)
	ctx := context.Background()

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		path := writeFile(t, fsys, fmt.Sprintf("p%02d.md", i), "x", t0)
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, x.Reload(ctx, path))
		}()
	}
	wg.Wait()

	assert.Equal(t, n, x.Count())
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "added", EventTypeAdded.String())
	assert.Equal(t, "updated", EventTypeUpdated.String())
	assert.Equal(t, "removed", EventTypeRemoved.String())
	assert.Equal(t, "unknown", EventType(42).String())
}
