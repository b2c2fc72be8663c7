// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

// Package sqlitecache implements the change cache on a sqlite3 database.
package sqlitecache

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // used indirectly.
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/minus80/archive/changecache"
	"storj.io/minus80/archive/digest"
)

var (
	mon = monkit.Package()

	// ErrDatabase represents errors from the cache database.
	ErrDatabase = errs.Class("sqlitecache")
)

var _ changecache.DB = (*DB)(nil)

const schema = `
	CREATE TABLE IF NOT EXISTS files (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		abspath  TEXT NOT NULL,
		mtime_ns INTEGER NOT NULL,
		size     INTEGER NOT NULL,
		infohash TEXT NOT NULL,
		datahash TEXT NOT NULL,
		updated  TIMESTAMP NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS files_version ON files(abspath, mtime_ns, size);
`

// DB is a change cache stored in a sqlite3 database.
type DB struct {
	log  *zap.Logger
	db   *sql.DB
	path string
}

// Open opens or creates the cache database at path.
func Open(ctx context.Context, log *zap.Logger, path string) (_ *DB, err error) {
	defer mon.Task()(&ctx)(&err)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, ErrDatabase.Wrap(err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", "file:"+path+"?_journal=WAL&_sync=FULL&_busy_timeout=10000")
	if err != nil {
		return nil, ErrDatabase.Wrap(err)
	}
	// sqlite allows a single writer.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.ExecContext(ctx, schema); err != nil {
		return nil, ErrDatabase.Wrap(errs.Combine(err, sqlDB.Close()))
	}

	log.Debug("cache-open", zap.String("path", path))

	return &DB{
		log:  log,
		db:   sqlDB,
		path: path,
	}, nil
}

// Path returns the database file location.
func (db *DB) Path() string { return db.path }

// Lookup finds the record matching key exactly.
func (db *DB) Lookup(ctx context.Context, key changecache.Key) (_ changecache.FileRecord, found bool, err error) {
	defer mon.Task()(&ctx)(&err)

	row := db.db.QueryRowContext(ctx, `
		SELECT infohash, datahash, updated
		FROM files
		WHERE abspath = ? AND mtime_ns = ? AND size = ?
	`, key.AbsPath, key.MTime.UnixNano(), key.Size)

	var info, data string
	var updated time.Time
	err = row.Scan(&info, &data, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return changecache.FileRecord{}, false, nil
	}
	if err != nil {
		return changecache.FileRecord{}, false, ErrDatabase.Wrap(err)
	}

	return changecache.FileRecord{
		AbsPath:    key.AbsPath,
		MTime:      key.MTime,
		Size:       key.Size,
		InfoDigest: digest.Digest(info),
		DataDigest: digest.Digest(data),
		UpdatedAt:  updated.UTC(),
	}, true, nil
}

// Record inserts or replaces record in its own transaction.
func (db *DB) Record(ctx context.Context, record changecache.FileRecord) (err error) {
	defer mon.Task()(&ctx)(&err)

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return ErrDatabase.Wrap(err)
	}
	defer func() {
		if err != nil {
			err = errs.Combine(err, tx.Rollback())
		}
	}()

	updated := record.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO files(abspath, mtime_ns, size, infohash, datahash, updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(abspath, mtime_ns, size) DO UPDATE SET
			infohash = excluded.infohash,
			datahash = excluded.datahash,
			updated  = excluded.updated
	`, record.AbsPath, record.MTime.UnixNano(), record.Size,
		string(record.InfoDigest), string(record.DataDigest), updated.UTC())
	if err != nil {
		return ErrDatabase.Wrap(err)
	}

	return ErrDatabase.Wrap(tx.Commit())
}

// Count returns the number of cached records.
func (db *DB) Count(ctx context.Context) (count int64, err error) {
	defer mon.Task()(&ctx)(&err)
	err = db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&count)
	return count, ErrDatabase.Wrap(err)
}

// Close closes the database.
func (db *DB) Close() error {
	return ErrDatabase.Wrap(db.db.Close())
}
