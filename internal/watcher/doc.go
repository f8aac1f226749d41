// Package watcher maintains a filesystem watch over the current target set
// and turns debounced file events into reindex tasks. A File target watches
// the file itself (or its parent while the file is absent); a Folder target
// watches recursively or not per its include-subfolders flag. Events for the
// same path inside the debounce window are rejected.
package watcher
