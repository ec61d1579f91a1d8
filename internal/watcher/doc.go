// Package watcher provides real-time file system watching with automatic
// debouncing, gitignore-aware filtering, and an allowlist over
// Atomizer-recognized extensions.
//
// The package implements a hybrid watching strategy:
//   - Primary: fsnotify for efficient event-based watching
//   - Fallback: polling for environments where fsnotify fails (network mounts, Docker volumes)
//
// Events are debounced to coalesce rapid changes from an editor saving a
// file mid-edit, filtered against .gitignore patterns, and further
// narrowed by RelevantExtensions so churn over build output or binary
// assets never reaches a re-atomization consumer.
//
// Usage:
//
//	opts := watcher.DefaultOptions()
//	opts.RelevantExtensions = atomizer.RecognizedExtensions()
//	w, err := watcher.NewHybridWatcher(opts)
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	if err := w.Start(ctx, "/path/to/project"); err != nil {
//	    return err
//	}
//
//	for batch := range w.Events() {
//	    for _, event := range batch {
//	        switch event.Operation {
//	        case watcher.OpCreate, watcher.OpModify:
//	            // re-atomize event.Path
//	        case watcher.OpDelete:
//	            // drop chunks sourced from event.Path
//	        }
//	    }
//	}
package watcher
