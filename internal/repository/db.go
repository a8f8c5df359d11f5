package repository

import (
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

// DB wraps the badgerhold store backing template persistence.
type DB struct {
	store *badgerhold.Store
}

// Open opens (or creates) the template database at dir.
func Open(dir string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("opening template database", "dir", dir)

	options := badgerhold.DefaultOptions
	options.Dir = dir
	options.ValueDir = dir
	options.Options = options.Options.WithLogger(nil)

	store, err := badgerhold.Open(options)
	if err != nil {
		logger.Error("failed to open template database", "dir", dir, "error", err)
		return nil, err
	}

	logger.Info("template database ready", "dir", dir)
	return &DB{store: store}, nil
}

// Store exposes the underlying badgerhold store.
func (d *DB) Store() *badgerhold.Store {
	return d.store
}

// Badger exposes the raw badger DB for maintenance operations.
func (d *DB) Badger() *badger.DB {
	return d.store.Badger()
}

// Close closes the database. Writes are synchronous, so there is
// nothing to flush.
func (d *DB) Close() error {
	return d.store.Close()
}
