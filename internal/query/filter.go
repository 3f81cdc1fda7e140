package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/conneroisu/quill/internal/content"
)

// Filter selects posts. The set of filters is closed: BySlug, ByCategory,
// ByTag, ByPinned and And. A nil Filter matches every post.
type Filter interface {
	Match(post *content.PostInfo) bool
	String() string

	filter()
}

// BySlug matches the post with exactly this slug.
type BySlug struct{ Slug string }

// ByCategory matches posts filed under Category. Comparison is exact.
type ByCategory struct{ Category string }

// ByTag matches posts carrying Tag. Comparison is exact.
type ByTag struct{ Tag string }

// PinnedState selects pinned, unpinned or all posts.
type PinnedState int

const (
	PinnedAll PinnedState = iota
	PinnedOnly
	Unpinned
)

// String returns the string representation of the pinned state
func (s PinnedState) String() string {
	switch s {
	case PinnedOnly:
		return "pinned"
	case Unpinned:
		return "unpinned"
	default:
		return "all"
	}
}

// ParsePinnedState parses "all", "pinned"/"true" or "unpinned"/"false".
func ParsePinnedState(s string) (PinnedState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return PinnedAll, nil
	case "pinned", "true", "1":
		return PinnedOnly, nil
	case "unpinned", "false", "0":
		return Unpinned, nil
	default:
		return PinnedAll, fmt.Errorf("invalid pinned state %q", s)
	}
}

// ByPinned matches on the post's pinned flag.
type ByPinned struct{ State PinnedState }

// And matches posts accepted by every filter it holds. An empty And matches
// everything.
type And []Filter

func (BySlug) filter()     {}
func (ByCategory) filter() {}
func (ByTag) filter()      {}
func (ByPinned) filter()   {}
func (And) filter()        {}

// Match implements Filter.
func (f BySlug) Match(post *content.PostInfo) bool { return post.Slug == f.Slug }

// Match implements Filter.
func (f ByCategory) Match(post *content.PostInfo) bool { return post.Category == f.Category }

// Match implements Filter.
func (f ByTag) Match(post *content.PostInfo) bool { return post.HasTag(f.Tag) }

// Match implements Filter.
func (f ByPinned) Match(post *content.PostInfo) bool {
	switch f.State {
	case PinnedOnly:
		return post.Settings.IsPinned
	case Unpinned:
		return !post.Settings.IsPinned
	default:
		return true
	}
}

// Match implements Filter.
func (f And) Match(post *content.PostInfo) bool {
	for _, inner := range f {
		if inner != nil && !inner.Match(post) {
			return false
		}
	}
	return true
}

func (f BySlug) String() string     { return "slug=" + f.Slug }
func (f ByCategory) String() string { return "category=" + f.Category }
func (f ByTag) String() string      { return "tag=" + f.Tag }
func (f ByPinned) String() string   { return "pinned=" + f.State.String() }

func (f And) String() string {
	parts := make([]string, 0, len(f))
	for _, inner := range f {
		if inner != nil {
			parts = append(parts, inner.String())
		}
	}
	return strings.Join(parts, "&")
}

// Describe returns a log-friendly form of f, including nil.
func Describe(f Filter) string {
	if f == nil {
		return "all"
	}
	if s := f.String(); s != "" {
		return s
	}
	return "all"
}

// FromValues builds a filter from URL query parameters: slug, category, tag
// and pinned. It returns nil when none are present.
func FromValues(values url.Values) (Filter, error) {
	var filters And

	if slug := values.Get("slug"); slug != "" {
		filters = append(filters, BySlug{Slug: slug})
	}
	if category := values.Get("category"); category != "" {
		filters = append(filters, ByCategory{Category: category})
	}
	if tag := values.Get("tag"); tag != "" {
		filters = append(filters, ByTag{Tag: tag})
	}
	if pinned := values.Get("pinned"); pinned != "" {
		state, err := ParsePinnedState(pinned)
		if err != nil {
			return nil, err
		}
		if state != PinnedAll {
			filters = append(filters, ByPinned{State: state})
		}
	}

	switch len(filters) {
	case 0:
		return nil, nil
	case 1:
		return filters[0], nil
	default:
		return filters, nil
	}
}

// IntValue parses the named query parameter, returning def when it is absent.
func IntValue(values url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(values.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return n, nil
}
