package storage

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/glebarez/sqlite"
	"github.com/go-logr/logr"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// BackendType selects the underlying SQL engine.
type BackendType string

const (
	BackendPostgres BackendType = "postgres"
	BackendSQLite   BackendType = "sqlite"
)

// Config configures a Manager. VectorEnabled controls whether the pgvector
// extension and HNSW index are provisioned on Initialize (Postgres only);
// SQLite never gets a pushdown vector index (see SPEC_FULL.md §3).
type Config struct {
	Backend      BackendType
	DatabaseURL  string // postgres DSN, or sqlite file path
	VectorEnabled bool
	Pool         PoolPreset
	Log          logr.Logger
}

// Manager owns the *gorm.DB connection and the schema lifecycle (C1).
type Manager struct {
	db       *gorm.DB
	cfg      Config
	initLock sync.Mutex
	queries  *QueryStats
}

// NewManager opens a connection per cfg.Backend and wires the pool preset.
func NewManager(cfg Config) (*Manager, error) {
	var dialector gorm.Dialector

	switch cfg.Backend {
	case BackendPostgres:
		dialector = postgres.Open(cfg.DatabaseURL)
	case BackendSQLite:
		path := cfg.DatabaseURL
		if path == "" {
			path = "file::memory:?cache=shared"
		}
		dialector = sqlite.Open(path)
	default:
		return nil, fmt.Errorf("storage: invalid backend type %q", cfg.Backend)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: failed to connect to %s: %w", cfg.Backend, err)
	}

	m := &Manager{db: db, cfg: cfg, queries: NewQueryStats(cfg.Pool.SlowQueryThreshold)}

	if cfg.Backend == BackendPostgres {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("storage: failed to get sql.DB: %w", err)
		}
		cfg.Pool.Apply(sqlDB)
	}

	return m, nil
}

// DB returns the underlying *gorm.DB. Repositories live in this package and
// use it directly; callers outside storage should go through repositories.
func (m *Manager) DB() *gorm.DB { return m.db }

// SQLDB returns the underlying *sql.DB for pool-stat sampling and raw queries.
func (m *Manager) SQLDB() (*sql.DB, error) { return m.db.DB() }

// Initialize runs AutoMigrate for every model and, for Postgres with vectors
// enabled, provisions the pgvector extension and an HNSW cosine index over
// memories.content_vector -- mirroring the teacher's Manager.Initialize.
func (m *Manager) Initialize() error {
	if m.cfg.Backend == BackendPostgres && m.cfg.VectorEnabled {
		if err := m.db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return fmt.Errorf("storage: failed to create vector extension: %w", err)
		}
	}

	if err := m.db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("storage: failed to migrate schema: %w", err)
	}

	if m.cfg.Backend == BackendPostgres && m.cfg.VectorEnabled {
		indexQuery := `CREATE INDEX IF NOT EXISTS idx_memories_content_vector_hnsw ON memories USING hnsw ((content_vector::vector) vector_cosine_ops)`
		if err := m.db.Exec(indexQuery).Error; err != nil {
			// Non-fatal: the HNSW index is an optimization, not correctness.
			// Nothing else in Initialize depends on it.
			m.cfg.Log.Info("failed to create hnsw index, falling back to sequential scan", "error", err.Error())
		}
	}

	return nil
}

// Reset drops all tables and optionally recreates them. Used by tests and
// local development resets; never called from production request paths.
func (m *Manager) Reset(recreate bool) error {
	if !m.initLock.TryLock() {
		return fmt.Errorf("storage: reset already in progress")
	}
	defer m.initLock.Unlock()

	if err := m.db.Migrator().DropTable(AllModels()...); err != nil {
		return fmt.Errorf("storage: failed to drop tables: %w", err)
	}
	if recreate {
		return m.Initialize()
	}
	return nil
}

// Close releases the underlying connection pool.
func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// QueryStats exposes the attached diagnostic recorder.
func (m *Manager) QueryStats() *QueryStats { return m.queries }
