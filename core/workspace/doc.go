// Package workspace bundles what every sync component shares: the local
// filesystem, the remote store, the catalogue and the two roots.
//
// A Workspace is built once at startup and passed to the engine, the job
// dispatcher and the CLI commands instead of living in package globals.
//
// # Paths
//
// Local paths are OS paths under LocalRoot. Remote paths are slash paths
// under RemoteRoot. ToRemote maps one to the other, dropping the link
// suffix so a placeholder and the object it references share a remote path.
package workspace
