// Package remote is the remote half of the sync: a small filesystem-like
// surface (exists, mkdir, put, get, rm, mv, ls, walk, size, checksum).
//
// MinioStore implements it on an S3-compatible bucket through core/storage.
// Directories are zero-byte marker objects whose key ends in "/", and
// recursive operations (Rm, Mv) expand to every key under the prefix.
//
// Failures are reported as ErrNotFound for missing paths and ErrUnavailable
// for everything else; callers match them with errors.Is.
//
// The remotetest package provides an in-memory Store that records calls.
package remote
