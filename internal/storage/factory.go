// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/flanker-wargame/client/internal/config"
	"github.com/flanker-wargame/client/internal/influx"
	"github.com/flanker-wargame/client/internal/model"
	influxstorage "github.com/flanker-wargame/client/internal/storage/influx"
	"github.com/flanker-wargame/client/internal/storage/memory"
	"github.com/flanker-wargame/client/internal/storage/postgres"
	sqlitestorage "github.com/flanker-wargame/client/internal/storage/sqlite"
	"github.com/rs/zerolog"
)

// Dependencies holds what the backends need besides their own config.
type Dependencies struct {
	Logger zerolog.Logger
	Info   model.JournalInfo
	Influx config.InfluxConfig
}

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(postgres.Dependencies{
			Config: cfg.Postgres,
			Info:   deps.Info,
			Logger: deps.Logger,
		}), nil
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite, deps.Logger)
	case "influx":
		ic := deps.Influx
		if !ic.Enabled {
			return nil, fmt.Errorf("storage type influx requires influx.enabled")
		}
		return influxstorage.New(influx.NewManager(ic, deps.Logger)), nil
	case "memory":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
