package frontmatter

import (
	"bufio"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		found     bool
		raw       string
		bodyStart int
	}{
		{
			name:      "no front matter",
			input:     "# Hello\n\nBody text\n",
			found:     false,
			bodyStart: 0,
		},
		{
			name:      "empty file",
			input:     "",
			found:     false,
			bodyStart: 0,
		},
		{
			name:      "simple block",
			input:     "---\ntitle: Hello World\n---\n# Hello\n",
			found:     true,
			raw:       "title: Hello World\n",
			bodyStart: 3,
		},
		{
			name:      "leading blank lines are counted",
			input:     "\n\n---\ntitle: A\ncategory: Go\n---\nbody\n",
			found:     true,
			raw:       "title: A\ncategory: Go\n",
			bodyStart: 6,
		},
		{
			name:      "blank lines before plain body",
			input:     "\n\nbody only\n",
			found:     false,
			bodyStart: 0,
		},
		{
			name:      "closing delimiter with trailing text",
			input:     "---\ntitle: A\n--- end\nbody\n",
			found:     true,
			raw:       "title: A\n",
			bodyStart: 3,
		},
		{
			name:      "unterminated block",
			input:     "---\ntitle: A\ntags: [x]\n",
			found:     true,
			raw:       "title: A\ntags: [x]\n",
			bodyStart: 3,
		},
		{
			name:      "byte order mark",
			input:     "\ufeff---\ntitle: A\n---\n",
			found:     true,
			raw:       "title: A\n",
			bodyStart: 3,
		},
		{
			name:      "crlf line endings",
			input:     "---\r\ntitle: A\r\n---\r\nbody\r\n",
			found:     true,
			raw:       "title: A\r\n",
			bodyStart: 3,
		},
		{
			name:      "lone delimiter",
			input:     "---",
			found:     true,
			bodyStart: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			block, err := Split(strings.NewReader(tc.input))
			require.NoError(t, err)

			assert.Equal(t, tc.found, block.Found)
			assert.Equal(t, tc.raw, string(block.Raw))
			assert.Equal(t, tc.bodyStart, block.BodyStart)
		})
	}
}

func TestSplitThenSkipLinesYieldsBody(t *testing.T) {
	doc := "\n---\ntitle: A\n---\n# Heading\n\nParagraph\n"

	block, err := Split(strings.NewReader(doc))
	require.NoError(t, err)

	br := bufio.NewReader(strings.NewReader(doc))
	require.NoError(t, SkipLines(br, block.BodyStart))
	body, err := io.ReadAll(br)
	require.NoError(t, err)

	assert.Equal(t, "# Heading\n\nParagraph\n", string(body))
}

func TestSkipLinesPastEOF(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("one\ntwo"))
	require.NoError(t, SkipLines(br, 10))

	rest, err := io.ReadAll(br)
	require.NoError(t, err)
	assert.Empty(t, rest)
}

type testMeta struct {
	Title        string    `yaml:"title"`
	PrimaryImage string    `yaml:"primaryImage"`
	Tags         []string  `yaml:"tags"`
	Published    time.Time `yaml:"published"`
	MaxAge       *int      `yaml:"cacheMaxAge"`
	Author       *struct {
		Name  string `yaml:"name"`
		Email string `yaml:"email"`
	} `yaml:"author"`
}

func TestDecode(t *testing.T) {
	raw := []byte(`
Title: Hello
primaryimage: /img/a.png
tags: [go, web]
published: 2021-03-04 10:20:30
cacheMaxAge: 60
author:
  name: Ada
  email: ada@example.com
unknown: ignored
`)

	var meta testMeta
	require.NoError(t, Decode(raw, &meta))

	assert.Equal(t, "Hello", meta.Title)
	assert.Equal(t, "/img/a.png", meta.PrimaryImage)
	assert.Equal(t, []string{"go", "web"}, meta.Tags)
	assert.Equal(t, time.Date(2021, 3, 4, 10, 20, 30, 0, time.UTC), meta.Published)
	require.NotNil(t, meta.MaxAge)
	assert.Equal(t, 60, *meta.MaxAge)
	require.NotNil(t, meta.Author)
	assert.Equal(t, "Ada", meta.Author.Name)
}

func TestDecodeDateFormats(t *testing.T) {
	testCases := []struct {
		input    string
		expected time.Time
	}{
		{"2021-03-04", time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"2021-03-04T10:20:30Z", time.Date(2021, 3, 4, 10, 20, 30, 0, time.UTC)},
		{"2021-03-04T10:20:30", time.Date(2021, 3, 4, 10, 20, 30, 0, time.UTC)},
		{"\"2021-03-04 10:20\"", time.Date(2021, 3, 4, 10, 20, 0, 0, time.UTC)},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			var meta testMeta
			require.NoError(t, Decode([]byte("published: "+tc.input), &meta))
			assert.True(t, tc.expected.Equal(meta.Published), "got %v", meta.Published)
		})
	}
}

func TestDecodeSingleTagBecomesSlice(t *testing.T) {
	var meta testMeta
	require.NoError(t, Decode([]byte("tags: golang"), &meta))
	assert.Equal(t, []string{"golang"}, meta.Tags)
}

func TestDecodeErrors(t *testing.T) {
	var meta testMeta

	err := Decode([]byte("title: [unclosed"), &meta)
	assert.Error(t, err)

	err = Decode([]byte("published: not a date"), &meta)
	assert.Error(t, err)
}

func TestDecodeEmptyLeavesTarget(t *testing.T) {
	meta := testMeta{Title: "preset"}
	require.NoError(t, Decode(nil, &meta))
	require.NoError(t, Decode([]byte("# just a comment\n"), &meta))
	assert.Equal(t, "preset", meta.Title)
}
