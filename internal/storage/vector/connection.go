package vector

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/parrisma/gofr-iq/internal/common"
)

// DB manages the Badger database connection backing the vector index. The
// vector store lives in its own directory next to the graph store so either
// can be reset independently.
type DB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// NewDB opens the embedded vector database under <badger.path>/vector
func NewDB(logger arbor.ILogger, config *common.BadgerConfig) (*DB, error) {
	path := filepath.Join(config.Path, "vector")

	if config.ResetOnStartup {
		if _, err := os.Stat(path); err == nil {
			logger.Debug().Str("path", path).Msg("Deleting existing vector database (reset_on_startup=true)")
			if err := os.RemoveAll(path); err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("Failed to delete vector database directory")
			}
		}
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create vector database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // Disable default badger logger to use arbor

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector database: %w", err)
	}

	logger.Debug().Str("path", path).Msg("Vector database initialized")

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
