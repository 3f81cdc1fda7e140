package content

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"time"
)

const etagTimeLayout = "2006-01-02 15:04:05"

// ETag derives a strong entity tag from a post name and its modification
// time. The result includes the surrounding double quotes.
func ETag(name string, lastModified time.Time) string {
	sum := sha256.Sum256([]byte(name + lastModified.UTC().Format(etagTimeLayout)))
	return `"` + base64.StdEncoding.EncodeToString(sum[:]) + `"`
}

// quoteETag turns an author-supplied tag into a valid entity tag. Characters
// not allowed in an opaque tag are dropped and the result is wrapped in
// double quotes. A leading W/ is kept.
func quoteETag(tag string) string {
	weak := strings.HasPrefix(tag, "W/")
	opaque := strings.Map(func(r rune) rune {
		if r == '"' || r <= ' ' || r == 0x7f {
			return -1
		}
		return r
	}, strings.TrimPrefix(tag, "W/"))

	quoted := `"` + opaque + `"`
	if weak {
		return "W/" + quoted
	}
	return quoted
}
