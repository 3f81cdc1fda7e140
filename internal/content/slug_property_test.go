//go:build property

package content

import (
	"regexp"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var slugPieces = []string{"Ä", "ö", "é", " ", "-", "/", "--", "x", "Ř", "ß", "مر", "\t", "1"}

var slugShape = regexp.MustCompile(`^([a-z\x{0600}-\x{06FF}0-9]+(-[a-z\x{0600}-\x{06FF}0-9]+)*)?$`)

// TestSlugProperties validates the invariants of slug generation
func TestSlugProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 500

	properties := gopter.NewProperties(parameters)

	titles := gen.OneGenOf(
		gen.AnyString(),
		gen.AlphaString(),
		gen.SliceOf(gen.IntRange(0, len(slugPieces)-1)).
			Map(func(idx []int) string {
				var b strings.Builder
				for _, i := range idx {
					b.WriteString(slugPieces[i])
				}
				return b.String()
			}),
	)

	properties.Property("slug is idempotent", prop.ForAll(
		func(s string) bool {
			once := Slug(s)
			return Slug(once) == once
		},
		titles,
	))

	properties.Property("slug has no dangling or repeated dashes", prop.ForAll(
		func(s string) bool {
			return slugShape.MatchString(Slug(s))
		},
		titles,
	))

	properties.TestingRun(t)
}
