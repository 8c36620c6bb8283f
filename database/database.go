// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package database is the single source of truth for certificates and
// claimant records. Metadata (certificates, claimants) lives in a sqlite
// store via gorm; the raw bytes of certified content are archived in a
// badger blob store keyed by digest. With no data directory configured,
// both stores run in memory, which is useful for testing
package database

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/blinklabs-io/sigil/database/models"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

var ErrNotFound = errors.New("not found")

type Config struct {
	Logger  *slog.Logger
	DataDir string
	Tracing bool
}

type Database struct {
	logger   *slog.Logger
	metadata *gorm.DB
	blob     *badger.DB
	dataDir  string
}

// New creates a new database instance with optional persistence using the
// provided data directory
func New(config *Config) (*Database, error) {
	logger := config.Logger
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	metadataDb, err := openMetadata(config.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening metadata store: %w", err)
	}
	if config.Tracing {
		if err := metadataDb.Use(
			tracing.NewPlugin(tracing.WithoutMetrics()),
		); err != nil {
			return nil, fmt.Errorf("enabling metadata tracing: %w", err)
		}
	}
	if err := metadataDb.AutoMigrate(
		&models.Certificate{},
		&models.Claimant{},
	); err != nil {
		return nil, fmt.Errorf("running metadata migrations: %w", err)
	}
	blobDb, err := openBlob(config.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening blob store: %w", err)
	}
	db := &Database{
		logger:   logger,
		metadata: metadataDb,
		blob:     blobDb,
		dataDir:  config.DataDir,
	}
	return db, nil
}

func openMetadata(dataDir string) (*gorm.DB, error) {
	if dataDir == "" {
		// Use in-memory database when no data directory is specified, useful for testing
		// cache=shared allows multiple connections to share the same in-memory database
		return gorm.Open(
			sqlite.Open("file::memory:?cache=shared"),
			&gorm.Config{
				Logger:                 gormlogger.Discard,
				SkipDefaultTransaction: true,
			},
		)
	}
	// Make sure that we can read data dir, and create if it doesn't exist
	if _, err := os.Stat(dataDir); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read data dir: %w", err)
		}
		if err := os.MkdirAll(dataDir, fs.ModePerm); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}
	metadataDbPath := filepath.Join(dataDir, "metadata.sqlite")
	// WAL journal mode and no sync on write for write throughput
	metadataConnOpts := "_pragma=journal_mode(WAL)&_pragma=sync(OFF)"
	return gorm.Open(
		sqlite.Open(
			fmt.Sprintf("file:%s?%s", metadataDbPath, metadataConnOpts),
		),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
		},
	)
}

func openBlob(dataDir string) (*badger.DB, error) {
	if dataDir == "" {
		opts := badger.DefaultOptions("").
			WithInMemory(true).
			WithLogger(nil)
		return badger.Open(opts)
	}
	blobDir := filepath.Join(dataDir, "blob")
	opts := badger.DefaultOptions(blobDir).
		WithLogger(nil)
	return badger.Open(opts)
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() *gorm.DB {
	return d.metadata
}

// Blob returns the underlying blob store instance
func (d *Database) Blob() *badger.DB {
	return d.blob
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	if sqlDb, sqlErr := d.metadata.DB(); sqlErr == nil {
		err = errors.Join(err, sqlDb.Close())
	}
	err = errors.Join(err, d.blob.Close())
	return err
}
