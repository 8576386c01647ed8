// Package verify sweeps the catalogue and recomputes checksums on both sides.
//
// A sweep reads every catalogued object, recomputes the local checksum of
// File rows and the remote checksum of File and Link rows, stores the fresh
// values and reports the rows that no longer agree. Directories are only
// checked for presence.
//
// # Findings
//
//   - divergent: both copies exist but their checksums differ.
//   - missing_local: a File row whose local copy is gone.
//   - missing_remote: the remote object is gone.
//   - untracked_remote: a remote object under the remote root that no row
//     tracks, typically left behind by a failed remote removal.
//
// Fix re-uploads divergent Files from their local copy. Reports are cached
// for a short TTL so the status API can serve them without re-reading every
// object on each request.
package verify
