package catalogue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"mrbox/core/classify"
	"mrbox/core/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrTransaction is returned when a multi-row mutation was rolled back.
var ErrTransaction = errors.New("catalogue transaction failed")

// Catalogue is the persistent local <-> remote path mapping.
// It is the only writer of the mrbox_files table.
type Catalogue struct {
	db  *gorm.DB
	now func() time.Time
}

// Option configures a Catalogue.
type Option func(*Catalogue)

// WithClock replaces time.Now for timestamp columns.
func WithClock(now func() time.Time) Option {
	return func(c *Catalogue) {
		c.now = now
	}
}

// New wraps db without touching the schema. Use Open to also migrate.
func New(db *gorm.DB, opts ...Option) *Catalogue {
	c := &Catalogue{db: db, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open wraps db and makes sure the catalogue table exists with the expected columns.
func Open(ctx context.Context, db *gorm.DB, opts ...Option) (*Catalogue, error) {
	c := New(db, opts...)
	if err := c.Migrate(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Migrate creates the table if needed and rejects a table missing required columns.
func (c *Catalogue) Migrate(ctx context.Context) error {
	db := c.db.WithContext(ctx)
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return fmt.Errorf("failed to migrate catalogue: %w", err)
	}

	missing, err := database.MissingColumns(db, TableName, requiredColumns)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("catalogue table %s is missing columns %v", TableName, missing)
	}
	return nil
}

func eq(column string, value any) clause.Expression {
	return clause.Eq{Column: clause.Column{Name: column}, Value: value}
}

// InsertLocal records an object first observed on the local side.
// Inserting a row whose local or remote path is already tracked is a no-op.
func (c *Catalogue) InsertLocal(ctx context.Context, local, remote string, class classify.Classification, localChecksum *string) error {
	now := c.now()
	return c.insert(ctx, &Entry{
		LocalPath:       local,
		RemotePath:      remote,
		LocalModifiedAt: &now,
		LocalChecksum:   localChecksum,
		Classification:  class,
	})
}

// InsertRemote records an object first observed on the remote side.
// Inserting a row whose local or remote path is already tracked is a no-op.
func (c *Catalogue) InsertRemote(ctx context.Context, local, remote string, class classify.Classification, remoteChecksum *string) error {
	now := c.now()
	return c.insert(ctx, &Entry{
		LocalPath:        local,
		RemotePath:       remote,
		RemoteModifiedAt: &now,
		RemoteChecksum:   remoteChecksum,
		Classification:   class,
	})
}

func (c *Catalogue) insert(ctx context.Context, e *Entry) error {
	if e.Classification == classify.Directory {
		e.LocalChecksum = nil
		e.RemoteChecksum = nil
	}

	err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(e).Error
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", e.LocalPath, err)
	}
	return nil
}

// UpdateLocalChecksum stores the local checksum of the row keyed by local.
func (c *Catalogue) UpdateLocalChecksum(ctx context.Context, local string, sum *string) error {
	return c.update(ctx, local, map[string]any{
		colChkLocal:  sum,
		colTimeLocal: c.now(),
	})
}

// UpdateRemoteChecksum stores the remote checksum of the row keyed by local.
func (c *Catalogue) UpdateRemoteChecksum(ctx context.Context, local string, sum *string) error {
	return c.update(ctx, local, map[string]any{
		colChkRemote:  sum,
		colTimeRemote: c.now(),
	})
}

func (c *Catalogue) update(ctx context.Context, local string, values map[string]any) error {
	err := c.db.WithContext(ctx).
		Model(&Entry{}).
		Where(eq(colLocal, local)).
		Updates(values).Error
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", local, err)
	}
	return nil
}

// Get returns the row keyed by local.
func (c *Catalogue) Get(ctx context.Context, local string) (*Entry, bool, error) {
	return c.first(ctx, eq(colLocal, local))
}

// GetByRemote returns the row keyed by remote.
func (c *Catalogue) GetByRemote(ctx context.Context, remote string) (*Entry, bool, error) {
	return c.first(ctx, eq(colRemote, remote))
}

func (c *Catalogue) first(ctx context.Context, cond clause.Expression) (*Entry, bool, error) {
	var rows []Entry
	err := c.db.WithContext(ctx).
		Where(cond).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, false, fmt.Errorf("failed to query catalogue: %w", err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return &rows[0], true, nil
}

// LookupRemote returns the remote path tracked for local.
func (c *Catalogue) LookupRemote(ctx context.Context, local string) (string, bool, error) {
	e, ok, err := c.Get(ctx, local)
	if err != nil || !ok {
		return "", ok, err
	}
	return e.RemotePath, true, nil
}

// LookupClassification returns the classification tracked for remote.
func (c *Catalogue) LookupClassification(ctx context.Context, remote string) (classify.Classification, bool, error) {
	e, ok, err := c.GetByRemote(ctx, remote)
	if err != nil || !ok {
		return classify.Unknown, ok, err
	}
	return e.Classification, true, nil
}

// Exists reports whether local is tracked.
func (c *Catalogue) Exists(ctx context.Context, local string) (bool, error) {
	var count int64
	err := c.db.WithContext(ctx).
		Model(&Entry{}).
		Where(eq(colLocal, local)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to query catalogue: %w", err)
	}
	return count > 0, nil
}

// DeleteByLocalPaths removes the rows keyed by paths in one transaction.
func (c *Catalogue) DeleteByLocalPaths(ctx context.Context, paths []string) error {
	return c.deleteBy(ctx, colLocal, paths)
}

// DeleteByRemotePaths removes the rows keyed by paths in one transaction.
func (c *Catalogue) DeleteByRemotePaths(ctx context.Context, paths []string) error {
	return c.deleteBy(ctx, colRemote, paths)
}

func (c *Catalogue) deleteBy(ctx context.Context, column string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range paths {
			if err := tx.Where(eq(column, p)).Delete(&Entry{}).Error; err != nil {
				return fmt.Errorf("delete %s: %w", p, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransaction, err)
	}
	return nil
}

// RenameBatch applies every rename in one transaction. Without Replace, a
// rename onto a tracked path fails the whole batch.
func (c *Catalogue) RenameBatch(ctx context.Context, renames []Rename) error {
	if len(renames) == 0 {
		return nil
	}

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range renames {
			if r.Replace {
				err := tx.Where(clause.Or(eq(colLocal, r.NewLocal), eq(colRemote, r.NewRemote))).
					Where(clause.Neq{Column: clause.Column{Name: colRemote}, Value: r.OldRemote}).
					Delete(&Entry{}).Error
				if err != nil {
					return fmt.Errorf("replace %s: %w", r.NewLocal, err)
				}
			}
			err := tx.Model(&Entry{}).
				Where(eq(colRemote, r.OldRemote)).
				Updates(map[string]any{
					colLocal:  r.NewLocal,
					colRemote: r.NewRemote,
				}).Error
			if err != nil {
				return fmt.Errorf("rename %s: %w", r.OldRemote, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransaction, err)
	}
	return nil
}

// List returns every row whose local path starts with prefix, ordered by local path.
// An empty prefix lists the whole catalogue.
func (c *Catalogue) List(ctx context.Context, prefix string) ([]Entry, error) {
	var rows []Entry
	q := c.db.WithContext(ctx).Order(clause.OrderByColumn{Column: clause.Column{Name: colLocal}})
	if prefix != "" {
		q = q.Where(clause.Like{Column: clause.Column{Name: colLocal}, Value: prefix + "%"})
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list catalogue: %w", err)
	}

	// LIKE treats _ and % as wildcards; filter exactly.
	out := rows[:0]
	for _, r := range rows {
		if strings.HasPrefix(r.LocalPath, prefix) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Divergent returns File rows whose checksums are missing or differ.
func (c *Catalogue) Divergent(ctx context.Context) ([]Entry, error) {
	var rows []Entry
	err := c.db.WithContext(ctx).
		Where(eq(colType, classify.File)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list catalogue: %w", err)
	}

	var out []Entry
	for _, r := range rows {
		if !r.InSync() {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LocalPath < out[j].LocalPath })
	return out, nil
}

// Count returns the number of tracked objects.
func (c *Catalogue) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := c.db.WithContext(ctx).Model(&Entry{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count catalogue: %w", err)
	}
	return n, nil
}
