package watcher

import (
	"context"
	"fmt"
	"testing"
)

// BenchmarkCoalesce benchmarks batch deduplication for bursts of events
func BenchmarkCoalesce(b *testing.B) {
	sizes := []int{10, 100, 1000}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("events-%d", size), func(b *testing.B) {
			pending := make([]ChangeEvent, size)
			for i := range pending {
				pending[i] = ChangeEvent{
					Type: EventType(i % 4),
					Path: fmt.Sprintf("/data/post-%d.md", i%(size/4+1)),
				}
			}

			b.ResetTimer()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = coalesce(pending)
			}
		})
	}
}

type noopIndex struct{}

func (noopIndex) Reload(context.Context, string) error { return nil }
func (noopIndex) Delete(string) int                    { return 0 }

// BenchmarkIndexHandler benchmarks event dispatch overhead
func BenchmarkIndexHandler(b *testing.B) {
	handler := IndexHandler(noopIndex{})
	events := make([]ChangeEvent, 50)
	for i := range events {
		events[i] = ChangeEvent{Type: EventType(i % 4), Path: fmt.Sprintf("/data/%d.md", i)}
	}
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = handler(ctx, events)
	}
}
