package catalogue

import (
	"time"

	"mrbox/core/classify"
)

// TableName is the catalogue table.
const TableName = "mrbox_files"

// Column names. Kept identical to the on-disk layout of existing catalogues.
const (
	colID         = "id"
	colLocal      = "local"
	colRemote     = "hdfs"
	colTimeLocal  = "time_local"
	colTimeRemote = "time_hdfs"
	colChkLocal   = "chk_local"
	colChkRemote  = "chk_hdfs"
	colType       = "type_loc"
)

// requiredColumns must exist on a pre-existing table.
var requiredColumns = []string{colID, colLocal, colRemote, colTimeLocal, colTimeRemote, colChkLocal, colChkRemote, colType}

// Entry is one tracked object.
type Entry struct {
	ID uint `gorm:"column:id;primaryKey" json:"id"`

	// LocalPath is the absolute local path. Links carry the .link suffix.
	LocalPath string `gorm:"column:local;size:768;not null;uniqueIndex:idx_mrbox_local" json:"local_path"`

	// RemotePath is the absolute path in the remote store.
	RemotePath string `gorm:"column:hdfs;size:768;not null;uniqueIndex:idx_mrbox_hdfs" json:"remote_path"`

	// LocalModifiedAt is the last local-side write observed by mrbox.
	LocalModifiedAt *time.Time `gorm:"column:time_local" json:"local_modified_at,omitempty"`

	// RemoteModifiedAt is the last remote-side write observed by mrbox.
	RemoteModifiedAt *time.Time `gorm:"column:time_hdfs" json:"remote_modified_at,omitempty"`

	// LocalChecksum is nil for directories and links.
	LocalChecksum *string `gorm:"column:chk_local;size:64" json:"local_checksum,omitempty"`

	// RemoteChecksum is nil for directories.
	RemoteChecksum *string `gorm:"column:chk_hdfs;size:64" json:"remote_checksum,omitempty"`

	Classification classify.Classification `gorm:"column:type_loc;type:varchar(8);not null" json:"classification"`
}

// TableName implements gorm's tabler.
func (Entry) TableName() string {
	return TableName
}

// InSync reports whether both checksums are known and equal.
// Directories are always in sync.
func (e *Entry) InSync() bool {
	if e.Classification == classify.Directory {
		return true
	}
	if e.LocalChecksum == nil || e.RemoteChecksum == nil {
		return false
	}
	return *e.LocalChecksum == *e.RemoteChecksum
}

// Rename moves the row currently keyed by OldRemote to new local and remote paths.
type Rename struct {
	OldRemote string
	NewLocal  string
	NewRemote string
	// Replace drops any other row already keyed by NewLocal or NewRemote,
	// the way a rename overwrites its target.
	Replace bool
}
