// Package watcher provides debounced filesystem watching for watch mode.
//
// A Watcher recursively watches a project root via fsnotify, skipping
// node_modules, build output and hidden directories. File writes are
// debounced per path (default 400ms) before the index callback fires, so an
// editor's save burst results in a single reindex. Removes and renames fire
// the remove callback immediately and cancel any pending index for the
// path.
//
//	w := watcher.New(root, parser.Extensions(), onIndex, onRemove)
//	if err := w.Start(ctx); err != nil {
//	    return err
//	}
//	defer w.Stop()
package watcher
