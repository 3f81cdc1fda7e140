package content

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple title", "Hello World", "hello-world"},
		{"swedish", "Älskade Katt", "alskade-katt"},
		{"surrounding whitespace", "  Spaced Out  ", "spaced-out"},
		{"punctuation stripped", "What's new, Go 1.22?", "whats-new-go-122"},
		{"double dash", "a--b", "a-b"},
		{"dash with spaces", "a - b", "a-b"},
		{"slashes", "client/server notes", "client-server-notes"},
		{"leading and trailing dashes", "-edge-", "edge"},
		{"whitespace runs", "tabs\tand  spaces", "tabsand-spaces"},
		{"slavic", "Řeka Čistá Šumava Žďár đak", "reka-cista-sumava-zar-dak"},
		{"french", "Crème brûlée façon maison", "creme-brulee-facon-maison"},
		{"spanish", "Año nuevo", "ano-nuevo"},
		{"arabic kept", "مرحبا World", "مرحبا-world"},
		{"empty", "", ""},
		{"only symbols", "!!!", ""},
		{"digits", "2024 recap", "2024-recap"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Slug(tc.input))
		})
	}
}

func TestSlugIdempotent(t *testing.T) {
	inputs := []string{
		"Hello World",
		"Älskade Katt",
		"--a//b--",
		"x - - y",
		"مرحبا / World",
		" - ",
	}

	for _, in := range inputs {
		once := Slug(in)
		assert.Equal(t, once, Slug(once), "input %q", in)
	}
}

func TestETag(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tag := ETag("hello", ts)
	assert.Equal(t, `"`, tag[:1])
	assert.Equal(t, `"`, tag[len(tag)-1:])
	// base64 of a 32 byte digest is 44 characters.
	assert.Len(t, tag, 46)

	assert.Equal(t, tag, ETag("hello", ts))
	assert.Equal(t, tag, ETag("hello", ts.In(time.FixedZone("CET", 3600))))
	assert.NotEqual(t, tag, ETag("hello", ts.Add(time.Second)))
	assert.NotEqual(t, tag, ETag("world", ts))
	// Sub-second precision is not part of the tag.
	assert.Equal(t, tag, ETag("hello", ts.Add(500*time.Millisecond)))
}
