// Package classify decides what kind of object a synced path is.
//
// Every tracked object is one of three kinds:
//   - File: a regular file fully copied on both sides.
//   - Directory: a directory; directories carry no checksum.
//   - Link: a local placeholder whose body is the remote path of an object
//     too large to be copied locally.
//
// Classify is pure: it never touches the filesystem or the remote store.
// Callers gather the inputs (local presence, remote size) and act on the result.
//
// # Usage
//
//	kind := classify.Classify(classify.Input{
//	    LocalPath:     path,
//	    ExistsLocally: false,
//	    RemoteSize:    size,
//	    Threshold:     64 << 20,
//	    RemoteType:    classify.File,
//	})
//	if kind == classify.Link {
//	    path = classify.LinkPath(path)
//	}
package classify
