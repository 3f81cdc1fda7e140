package content

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	accentFolder = strings.NewReplacer(
		"å", "a", "ä", "a", "á", "a", "à", "a", "â", "a", "ã", "a",
		"ö", "o", "ó", "o", "ò", "o", "ô", "o", "õ", "o", "ø", "o",
		"é", "e", "è", "e", "ê", "e", "ë", "e",
		"í", "i", "ì", "i", "î", "i", "ï", "i",
		"ú", "u", "ù", "u", "û", "u", "ü", "u",
		"ý", "y",
		"ñ", "n",
		"ç", "c", "č", "c", "ć", "c",
		"ž", "z",
		"š", "s",
		"ř", "r",
		"đ", "d",
	)

	// Arabic letters survive slugging.
	slugDisallowed = regexp.MustCompile(`[^a-z\x{0600}-\x{06FF}0-9/ -]`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
	dashRun        = regexp.MustCompile(`-+`)
)

// Slug turns a title into a URL-safe identifier: "Älskade Katt" becomes
// "alskade-katt". Slug(Slug(s)) == Slug(s) for every s.
func Slug(s string) string {
	// Casers carry state, so each call gets its own.
	s = cases.Lower(language.Und).String(strings.TrimSpace(s))
	s = accentFolder.Replace(s)
	s = slugDisallowed.ReplaceAllString(s, "")

	s = strings.ReplaceAll(s, "--", "-")
	s = strings.ReplaceAll(s, "-", " ")
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, " ", "-")

	s = strings.ReplaceAll(s, "/", "-")
	s = dashRun.ReplaceAllString(s, "-")

	s = strings.TrimSuffix(s, "-")
	s = strings.TrimPrefix(s, "-")
	return s
}
