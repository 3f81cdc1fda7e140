package watcher

import (
	"context"
)

// IndexUpdater is the part of the post index the watcher drives.
type IndexUpdater interface {
	Reload(ctx context.Context, path string) error
	Delete(path string) int
}

// IndexHandler applies change events to idx. Created and modified files are
// reloaded; deleted and renamed-away files are removed by path. The new name
// of a renamed file arrives as its own created event.
func IndexHandler(idx IndexUpdater) ChangeHandler {
	return func(ctx context.Context, events []ChangeEvent) []Result {
		results := make([]Result, 0, len(events))
		for _, event := range events {
			var err error
			switch event.Type {
			case EventTypeCreated, EventTypeModified:
				err = idx.Reload(ctx, event.Path)
			case EventTypeDeleted, EventTypeRenamed:
				idx.Delete(event.Path)
			}
			results = append(results, Result{Event: event, Err: err})
		}
		return results
	}
}
