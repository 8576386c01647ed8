// Package view prints the first or last lines of a synced object.
//
// Links are read straight from the remote store, so a large job output can be
// inspected without materializing it. Every other object is read from its
// local copy. Paths may be given relative to the local root, as absolute local
// paths, or as remote paths under the remote root; a local path may omit the
// link suffix.
package view
