// Package watcher turns fsnotify notifications into the four change events
// the sync engine consumes: Created, Modified, Deleted and Moved.
//
// fsnotify is not recursive, so every directory under the root gets its own
// watch, added on startup and whenever a directory appears. A rename shows up
// as a Rename of the old path followed by a Create of the new one; the two are
// paired into a Moved event when they arrive within the rename window, and an
// unpaired Rename becomes a Deleted event once the window passes.
//
// Directories are remembered so Deleted and Moved events can carry IsDir even
// though the path no longer exists when they are reported.
package watcher
