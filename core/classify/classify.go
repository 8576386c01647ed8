package classify

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// LinkSuffix is appended to the local path of every Link placeholder.
const LinkSuffix = ".link"

// Classification is the kind of a tracked object.
type Classification int

const (
	// Unknown is the zero value; it is never stored.
	Unknown Classification = iota
	// File is a regular file copied on both sides.
	File
	// Directory is a directory on both sides.
	Directory
	// Link is a local placeholder referencing a remote-only object.
	Link
)

// String returns the tag stored in the catalogue.
func (c Classification) String() string {
	switch c {
	case File:
		return "file"
	case Directory:
		return "dir"
	case Link:
		return "link"
	default:
		return "unknown"
	}
}

// ParseClassification converts a stored tag back into a Classification.
func ParseClassification(s string) (Classification, error) {
	switch s {
	case "file":
		return File, nil
	case "dir":
		return Directory, nil
	case "link":
		return Link, nil
	default:
		return Unknown, fmt.Errorf("unknown classification %q", s)
	}
}

// Value implements driver.Valuer so the tag is persisted as text.
func (c Classification) Value() (driver.Value, error) {
	if c == Unknown {
		return nil, fmt.Errorf("refusing to store unknown classification")
	}
	return c.String(), nil
}

// Scan implements sql.Scanner.
func (c *Classification) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		*c = Unknown
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Classification", src)
	}
	parsed, err := ParseClassification(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Input holds everything Classify needs to know about an object.
type Input struct {
	// LocalPath is the path the object has (or would have) in the local tree.
	LocalPath string
	// ExistsLocally reports whether anything exists at LocalPath.
	ExistsLocally bool
	// IsDir reports whether the local object is a directory. Ignored when
	// ExistsLocally is false.
	IsDir bool
	// RemoteSize is the size in bytes of the remote counterpart, if known.
	RemoteSize int64
	// Threshold is the largest remote size that is still copied locally.
	Threshold int64
	// RemoteType is the fallback kind, used for remote objects not yet materialized.
	RemoteType Classification
}

// Classify applies the classification rules in order; the first match wins.
func Classify(in Input) Classification {
	switch {
	case in.ExistsLocally && HasLinkSuffix(in.LocalPath):
		return Link
	case !in.ExistsLocally && in.RemoteSize > in.Threshold:
		return Link
	case in.ExistsLocally && in.IsDir:
		return Directory
	case in.ExistsLocally:
		return File
	default:
		return in.RemoteType
	}
}

// EffectivePath returns the local path the object occupies once classified.
// Links gain the reserved suffix.
func EffectivePath(in Input) string {
	if Classify(in) == Link {
		return LinkPath(in.LocalPath)
	}
	return in.LocalPath
}

// HasLinkSuffix reports whether path names a Link placeholder.
func HasLinkSuffix(path string) bool {
	return strings.HasSuffix(path, LinkSuffix)
}

// LinkPath appends LinkSuffix unless path already carries it.
func LinkPath(path string) string {
	if HasLinkSuffix(path) {
		return path
	}
	return path + LinkSuffix
}

// MarshalText renders the stored tag, so JSON output reads "file", "dir" or "link".
func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText parses a stored tag.
func (c *Classification) UnmarshalText(b []byte) error {
	parsed, err := ParseClassification(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
