package watcher

// Op is the kind of a filesystem change.
type Op int

const (
	// Created reports a new file or directory.
	Created Op = iota + 1
	// Modified reports new content in an existing file.
	Modified
	// Deleted reports a removed file or directory.
	Deleted
	// Moved reports a rename from Path to Dest.
	Moved
)

func (o Op) String() string {
	switch o {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	case Moved:
		return "moved"
	default:
		return "unknown"
	}
}

// Event is one change under the watched root.
type Event struct {
	Type Op
	// Path is the affected path, or the source of a move.
	Path string
	// Dest is the destination of a move.
	Dest string
	// IsDir reports whether the object is a directory.
	IsDir bool
}
