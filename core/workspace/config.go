package workspace

// Config holds the sync settings.
type Config struct {
	// LocalPath is the watched local root.
	LocalPath string `mapstructure:"local_path" default:"./mrbox"`
	// RemotePath is the remote root mirroring LocalPath.
	RemotePath string `mapstructure:"remote_path" default:"/mrbox"`
	// LocalFileSizeMB is the largest remote object copied locally in full.
	// Bigger objects are materialized as link placeholders.
	LocalFileSizeMB int64 `mapstructure:"local_file_size_mb" default:"64"`
	// DescriptorExtensions lists the file extensions treated as job descriptors, comma separated.
	DescriptorExtensions string `mapstructure:"descriptor_extensions" default:".yaml,.yml"`
	// RenameWindowMs is how long the watcher waits to pair a rename with its create.
	RenameWindowMs int `mapstructure:"rename_window_ms" default:"100"`
}

// ThresholdBytes returns LocalFileSizeMB in bytes.
func (c Config) ThresholdBytes() int64 {
	return c.LocalFileSizeMB * 1024 * 1024
}
