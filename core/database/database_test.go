package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	t.Run("Invalid Connection", func(t *testing.T) {
		cfg := Config{
			Driver:         DriverMySQL,
			Host:           "localhost",
			Port:           9999, // Unused port
			User:           "root",
			Password:       "wrongpassword",
			Name:           "mrbox",
			TimeoutSeconds: 1,
		}

		db, err := Connect(cfg)
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("Unsupported Driver", func(t *testing.T) {
		db, err := Connect(Config{Driver: "oracle"})
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("SQLite File", func(t *testing.T) {
		cfg := Config{
			Driver: DriverSQLite,
			Path:   filepath.Join(t.TempDir(), "catalogue.db"),
		}

		db, err := Connect(cfg)
		require.NoError(t, err)
		assert.NotNil(t, db)
	})
}

func TestColumnNames(t *testing.T) {
	db, err := Connect(Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "cols.db")})
	require.NoError(t, err)

	err = db.Exec("CREATE TABLE test_items (id INTEGER PRIMARY KEY, name TEXT, description TEXT)").Error
	require.NoError(t, err)

	cols, err := ColumnNames(db, "test_items")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"id", "name", "description"}, cols)

	missing, err := MissingColumns(db, "test_items", []string{"id", "NAME", "owner"})
	require.NoError(t, err)
	assert.Equal(t, []string{"owner"}, missing)

	cols, err = ColumnNames(db, "non_existent")
	assert.NoError(t, err)
	assert.Empty(t, cols)
}

func TestConfig_ResolvePath(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "box")

	t.Run("Default lands beside the root", func(t *testing.T) {
		cfg, err := Config{Driver: DriverSQLite}.ResolvePath(root)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(base, DefaultPath), cfg.Path)
	})

	t.Run("Relative path", func(t *testing.T) {
		cfg, err := Config{Driver: DriverSQLite, Path: "state/catalogue.db"}.ResolvePath(root)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(base, "state", "catalogue.db"), cfg.Path)
	})

	t.Run("Inside the synced tree", func(t *testing.T) {
		_, err := Config{Driver: DriverSQLite, Path: filepath.Join(root, "sub", "mrbox.db")}.ResolvePath(root)
		assert.Error(t, err)

		_, err = Config{Driver: DriverSQLite, Path: "box/mrbox.db"}.ResolvePath(root)
		assert.Error(t, err)
	})

	t.Run("Sibling with a shared prefix", func(t *testing.T) {
		p := filepath.Join(base, "box-state.db")
		cfg, err := Config{Driver: DriverSQLite, Path: p}.ResolvePath(root)
		require.NoError(t, err)
		assert.Equal(t, p, cfg.Path)
	})

	t.Run("Other drivers untouched", func(t *testing.T) {
		cfg, err := Config{Driver: DriverMySQL, Path: "x"}.ResolvePath(root)
		require.NoError(t, err)
		assert.Equal(t, "x", cfg.Path)
	})
}
