// Package content turns Markdown files with YAML front matter into post
// records.
//
// A record is resolved in two stages: the front-matter block is decoded into
// a PostInfo and its PostSettings, then an ordered list of default steps fills
// whatever the author left out (title from the file name, slug from the
// title, dates and ETag from the filesystem). The ingestion layer also
// remembers where the file lives and where its body begins so the body can be
// read later without touching the metadata again.
package content

import (
	"time"
)

// Author identifies who wrote a post.
type Author struct {
	Name    string `yaml:"name" json:"name,omitempty"`
	Email   string `yaml:"email" json:"email,omitempty"`
	Website string `yaml:"website" json:"website,omitempty"`
	Image   string `yaml:"image" json:"image,omitempty"`
}

// PostSettings holds per-post behaviour and SEO fields.
type PostSettings struct {
	Keywords    string  `yaml:"keywords" json:"keywords,omitempty"`
	Description string  `yaml:"description" json:"description,omitempty"`
	Author      *Author `yaml:"author" json:"author,omitempty"`
	IsPinned    bool    `yaml:"isPinned" json:"isPinned"`
	IsCached    bool    `yaml:"isCached" json:"isCached"`
	// CacheMaxAge overrides the configured max-age, in seconds.
	CacheMaxAge *int   `yaml:"cacheMaxAge" json:"cacheMaxAge,omitempty"`
	ETag        string `yaml:"etag" json:"etag"`

	// Owned by the ingestion layer.
	path      string
	bodyStart int
}

// DefaultSettings returns the settings a post has before its front matter is
// applied.
func DefaultSettings() PostSettings {
	return PostSettings{IsCached: true}
}

// SourcePath is the cleaned path of the file the post was read from.
func (s PostSettings) SourcePath() string {
	return s.path
}

// BodyStart is the number of lines preceding the Markdown body.
func (s PostSettings) BodyStart() int {
	return s.bodyStart
}

// PostInfo is the metadata record for one post. Values handed out by the
// index are snapshots and must not be modified.
type PostInfo struct {
	Title        string    `yaml:"title" json:"title"`
	Slug         string    `yaml:"slug" json:"slug"`
	PrimaryImage string    `yaml:"primaryImage" json:"primaryImage,omitempty"`
	Excerpt      string    `yaml:"excerpt" json:"excerpt,omitempty"`
	Category     string    `yaml:"category" json:"category,omitempty"`
	Tags         []string  `yaml:"tags" json:"tags"`
	Published    time.Time `yaml:"published" json:"published"`
	LastModified time.Time `yaml:"-" json:"lastModified"`

	Settings PostSettings `yaml:"-" json:"settings"`
}

// HasCategory reports whether the post is filed under a category.
func (p *PostInfo) HasCategory() bool { return p.Category != "" }

// HasExcerpt reports whether the post has an excerpt.
func (p *PostInfo) HasExcerpt() bool { return p.Excerpt != "" }

// HasPrimaryImage reports whether the post has a primary image.
func (p *PostInfo) HasPrimaryImage() bool { return p.PrimaryImage != "" }

// HasTags reports whether the post has at least one tag.
func (p *PostInfo) HasTags() bool { return len(p.Tags) > 0 }

// HasTag reports whether tag is one of the post's tags. Comparison is exact.
func (p *PostInfo) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Post is a PostInfo together with its rendered body.
type Post struct {
	*PostInfo
	Body        string `json:"body"`
	ReadingTime int    `json:"readingTime"`
}

// Taxonomy is a category or tag label with the number of posts using it.
type Taxonomy struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// PagedResult is one page of a filtered post listing. CurrentPage is zero
// based.
type PagedResult struct {
	CurrentPage int         `json:"currentPage"`
	TotalPages  int         `json:"totalPages"`
	TotalPosts  int         `json:"totalPosts"`
	Items       []*PostInfo `json:"items"`
}

// HasPrev reports whether a page precedes this one.
func (r PagedResult) HasPrev() bool {
	return r.CurrentPage > 0
}

// HasNext reports whether a page follows this one.
func (r PagedResult) HasNext() bool {
	return r.CurrentPage < r.TotalPages-1
}

// dedupe removes duplicate and blank tags, keeping first occurrences in order.
func dedupe(tags []string) []string {
	if len(tags) == 0 {
		return tags
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
