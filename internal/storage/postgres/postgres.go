// Package postgres implements the storage.Backend interface on PostgreSQL
// through the shared GORM backend.
package postgres

import (
	"fmt"

	"github.com/flanker-wargame/client/internal/config"
	"github.com/flanker-wargame/client/internal/database"
	"github.com/flanker-wargame/client/internal/model"
	gormstorage "github.com/flanker-wargame/client/internal/storage/gorm"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the postgres storage backend.
// When DB is nil, Init connects using Config.
type Dependencies struct {
	DB     *gorm.DB
	Config config.PostgresConfig
	Info   model.JournalInfo
	Logger zerolog.Logger
}

// Backend implements storage.Backend on a postgres connection.
type Backend struct {
	*gormstorage.Backend
	deps Dependencies
	db   *database.Manager
}

// New creates a new postgres storage backend. No connection is made until Init.
func New(deps Dependencies) *Backend {
	return &Backend{deps: deps}
}

// Init connects, migrates the schema and starts the writer goroutine.
func (b *Backend) Init() error {
	b.db = database.NewManager(b.deps.Logger)
	if b.deps.DB == nil {
		if err := b.db.ConnectPostgres(b.deps.Config); err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
	} else {
		sqlDB, err := b.deps.DB.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		b.db.DB, b.db.SqlDB, b.db.IsValid = b.deps.DB, sqlDB, true
	}

	if err := b.db.Setup(b.deps.Info); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{DB: b.db.DB, Logger: b.deps.Logger})
	return b.Backend.Init()
}

// Close flushes queued rows and closes a connection opened by Init.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	err := b.Backend.Close()
	if b.deps.DB == nil {
		if closeErr := b.db.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
