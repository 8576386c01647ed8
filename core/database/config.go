package database

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultPath is the sqlite file name used when Config.Path is empty.
const DefaultPath = "mrbox.db"

// Config holds configuration for the catalogue database connection.
type Config struct {
	// Driver is the database driver (sqlite, mysql).
	Driver string `mapstructure:"driver" default:"sqlite"`
	// Path is the sqlite database file. Ignored for mysql.
	Path string `mapstructure:"path" default:"mrbox.db"`
	// Host is the database host.
	Host string `mapstructure:"host" default:"localhost"`
	// Port is the database port.
	Port int `mapstructure:"port" default:"3306"`
	// User is the database user.
	User string `mapstructure:"user" default:"root"`
	// Password is the database password.
	Password string `mapstructure:"password" default:""`
	// Name is the database name.
	Name string `mapstructure:"name" default:"mrbox"`
	// TimeoutSeconds bounds connection setup and the initial ping.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}

// ResolvePath anchors a relative sqlite Path in the parent of localRoot and
// refuses a path inside localRoot, where the watcher would pick the file up.
// Other drivers are returned unchanged.
func (c Config) ResolvePath(localRoot string) (Config, error) {
	if c.Driver != DriverSQLite && c.Driver != "" {
		return c, nil
	}
	p := c.Path
	if p == "" {
		p = DefaultPath
	}
	if p == ":memory:" || strings.HasPrefix(p, "file:") {
		return c, nil
	}

	root, err := filepath.Abs(localRoot)
	if err != nil {
		return c, fmt.Errorf("failed to resolve %s: %w", localRoot, err)
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(filepath.Dir(root), p)
	}
	p = filepath.Clean(p)

	rel, err := filepath.Rel(root, p)
	if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return c, fmt.Errorf("catalogue database %s is inside the synced tree %s", p, root)
	}
	c.Path = p
	return c, nil
}
