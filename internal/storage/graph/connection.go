package graph

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/parrisma/gofr-iq/internal/common"
)

// DB manages the Badger database connection backing the graph index
type DB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// NewDB opens the embedded graph database under <badger.path>/graph
func NewDB(logger arbor.ILogger, config *common.BadgerConfig) (*DB, error) {
	path := filepath.Join(config.Path, "graph")

	if config.ResetOnStartup {
		if _, err := os.Stat(path); err == nil {
			logger.Debug().Str("path", path).Msg("Deleting existing database (reset_on_startup=true)")
			if err := os.RemoveAll(path); err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("Failed to delete database directory")
			}
		}
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // Disable default badger logger to use arbor

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Debug().Str("path", path).Msg("Graph database initialized")

	return &DB{store: store, logger: logger}, nil
}

// Store returns the underlying badgerhold store
func (d *DB) Store() *badgerhold.Store {
	return d.store
}

// Close closes the database connection
func (d *DB) Close() error {
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}
