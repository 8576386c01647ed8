// Package sync implements the reconciliation engine that keeps the remote
// tree in step with the local one.
//
// The engine consumes watcher events one at a time. Each event runs to
// completion, catalogue transactions and remote calls included, before the
// next one is taken off the channel.
//
// # Transitions
//
//   - Created: classify, record in the catalogue, create the remote
//     counterpart when missing, store the remote checksum and hand job
//     descriptors to the dispatcher.
//   - Modified: re-upload files (delete then put) and refresh both checksums.
//     A file already equal to its stored remote checksum is not re-uploaded.
//     Directories and links are ignored.
//   - Deleted: drop the catalogue rows (the whole subtree for directories)
//     in one transaction, then remove the remote object.
//   - Moved: rename every catalogue row of the subtree in one transaction,
//     rewrite link placeholders, and issue one remote move at the root.
//
// Repair queues a forced re-upload that the loop runs between events.
//
// Remote failures are logged and counted; they never stop the loop.
package sync
