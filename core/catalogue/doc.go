// Package catalogue is the persistent mapping between local and remote paths.
//
// Each tracked object has exactly one row in the mrbox_files table, unique by
// local path and unique by remote path. Rows also carry the object's
// classification, the last observed local and remote checksums, and the time
// mrbox last wrote each side.
//
// # Mutations
//
//   - InsertLocal / InsertRemote insert or ignore: an object may be observed
//     from both directions, and the first observation wins.
//   - UpdateLocalChecksum / UpdateRemoteChecksum refresh one row by local path.
//   - DeleteByLocalPaths / DeleteByRemotePaths and RenameBatch run inside a
//     single transaction. Any failure rolls back every statement and is
//     reported as ErrTransaction.
//
// # Lookups
//
// Lookups return (value, ok, err). A miss is not an error.
package catalogue
