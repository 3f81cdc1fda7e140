package renderer

import (
	"context"
	"strings"
	"testing"
)

func BenchmarkMarkdownRenderer_Render(b *testing.B) {
	r := New(Options{})
	doc := []byte(strings.Repeat("## Section\n\nSome *text* with a [link](https://example.com).\n\n- one\n- two\n\n", 50))
	ctx := context.Background()

	b.ResetTimer()
	for range b.N {
		if _, err := r.Render(ctx, doc); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMarkdownRenderer_RenderParallel(b *testing.B) {
	r := New(Options{})
	doc := []byte("# Title\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	ctx := context.Background()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := r.Render(ctx, doc); err != nil {
				b.Error(err)
			}
		}
	})
}
