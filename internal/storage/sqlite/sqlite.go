// Package sqlitestorage implements the storage.Backend interface using SQLite.
// It wraps the GORM backend; the only SQLite-specific concern is the
// in-memory mode, which dumps the database to disk via VACUUM INTO on a timer
// and once more on Close.
package sqlitestorage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/flanker-wargame/client/internal/config"
	"github.com/flanker-wargame/client/internal/database"
	gormstorage "github.com/flanker-wargame/client/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *database.Manager
	cfg      config.SQLiteConfig
	log      zerolog.Logger
	stopChan chan struct{}
	done     chan struct{}
}

// New opens the database at cfg.Path, or an in-memory one when it is empty.
func New(cfg config.SQLiteConfig, log zerolog.Logger) (*Backend, error) {
	m := database.NewManager(log)
	if err := m.ConnectSqlite(cfg.Path); err != nil {
		return nil, err
	}
	// a single connection keeps the shared in-memory database alive and
	// serializes writers
	m.SqlDB.SetMaxOpenConns(1)

	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{DB: m.DB, Logger: log}),
		db:      m,
		cfg:     cfg,
		log:     log,
	}, nil
}

func (b *Backend) dumps() bool {
	return b.db.InMemory && b.cfg.DumpPath != ""
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.dumps() {
		if err := os.MkdirAll(filepath.Dir(b.cfg.DumpPath), 0755); err != nil {
			return fmt.Errorf("failed to create dump directory: %w", err)
		}
		if b.cfg.DumpInterval > 0 {
			b.stopChan = make(chan struct{})
			b.done = make(chan struct{})
			go b.dumpLoop()
		}
	}

	return nil
}

// Close flushes the GORM backend, writes a last dump and closes the database.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}

	err := b.Backend.Close()
	if b.dumps() {
		if dumpErr := b.db.DumpMemoryToDisk(b.cfg.DumpPath); dumpErr != nil && err == nil {
			err = dumpErr
		}
	}
	if closeErr := b.db.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// ExportedFiles returns the dump file, if the database lives in memory.
func (b *Backend) ExportedFiles() []string {
	if !b.dumps() {
		return nil
	}
	return []string{b.cfg.DumpPath}
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.log.Error().Err(err).Msg("Error flushing before dump")
			}
			if err := b.db.DumpMemoryToDisk(b.cfg.DumpPath); err != nil {
				b.log.Error().Err(err).Msg("Error dumping to disk")
			}
		}
	}
}
