package storage

import (
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/kagent-dev/agentmem/pkg/errs"
)

//go:embed migrations
var migrationsFS embed.FS

// MigrationMeta is a recorded application of one migration step, kept in a
// side table independent of golang-migrate's own version marker so a
// checksum mismatch on re-apply can be detected and raised as a fatal
// startup error (§4.1).
type MigrationMeta struct {
	Version   uint      `gorm:"primaryKey"`
	Name      string    `gorm:"size:255;not null"`
	Checksum  string    `gorm:"size:64;not null"`
	AppliedAt time.Time `gorm:"not null"`
}

func (MigrationMeta) TableName() string { return "schema_migrations_meta" }

// MigrationRunner applies ordered, versioned DDL steps via golang-migrate and
// records (version, name, checksum, applied_at) in schema_migrations_meta.
// It only drives Postgres: golang-migrate's sqlite3 driver is cgo/mattn-based
// and incompatible with the pure-Go glebarez driver this package otherwise
// uses, so SQLite deployments rely on Manager.Initialize's AutoMigrate path
// instead (development and test only -- see SPEC_FULL.md §4.1).
type MigrationRunner struct {
	sqlDB   *sql.DB
	backend BackendType
}

func NewMigrationRunner(m *Manager) (*MigrationRunner, error) {
	if m.cfg.Backend != BackendPostgres {
		return nil, errs.ValidationError("migration runner only supports the postgres backend; sqlite uses AutoMigrate", nil)
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return nil, errs.InternalError("failed to obtain sql.DB for migrations", err)
	}
	return &MigrationRunner{sqlDB: sqlDB, backend: m.cfg.Backend}, nil
}

// Up applies every pending migration in order. Before applying, it verifies
// that every already-applied migration's checksum still matches the embedded
// source; a mismatch is a fatal error rather than a silent re-application.
func (r *MigrationRunner) Up() error {
	if err := r.ensureMetaTable(); err != nil {
		return err
	}
	steps, err := loadMigrationSteps()
	if err != nil {
		return err
	}
	if err := r.checkChecksums(steps); err != nil {
		return err
	}

	m, sourceDriver, err := r.newMigrate()
	if err != nil {
		return err
	}
	defer func() { _ = sourceDriver.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errs.InternalError("failed to apply migrations", err)
	}

	return r.recordAppliedSteps(steps)
}

// Down rolls back exactly one migration step.
func (r *MigrationRunner) Down() error {
	m, sourceDriver, err := r.newMigrate()
	if err != nil {
		return err
	}
	defer func() { _ = sourceDriver.Close() }()

	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errs.InternalError("failed to roll back migration", err)
	}
	return nil
}

func (r *MigrationRunner) newMigrate() (*migrate.Migrate, source.Driver, error) {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, nil, errs.InternalError("failed to open embedded migration source", err)
	}

	pgDriver, perr := postgres.WithInstance(r.sqlDB, &postgres.Config{})
	if perr != nil {
		_ = sourceDriver.Close()
		return nil, nil, errs.InternalError("failed to create postgres migration driver", perr)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", pgDriver)
	if err != nil {
		_ = sourceDriver.Close()
		return nil, nil, errs.InternalError("failed to create migrate instance", err)
	}
	return m, sourceDriver, nil
}

type migrationStep struct {
	version  uint
	name     string
	checksum string
}

// loadMigrationSteps walks the embedded up-migrations and computes a sha256
// checksum over each file's contents.
func loadMigrationSteps() ([]migrationStep, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, errs.InternalError("failed to read embedded migrations", err)
	}
	var steps []migrationStep
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".up.sql") {
			continue
		}
		var version uint
		var name string
		if _, serr := fmt.Sscanf(e.Name(), "%d_", &version); serr != nil {
			continue
		}
		name = strings.TrimSuffix(strings.TrimPrefix(e.Name(), fmt.Sprintf("%04d_", version)), ".up.sql")

		data, rerr := migrationsFS.ReadFile("migrations/" + e.Name())
		if rerr != nil {
			return nil, errs.InternalError("failed to read migration file "+e.Name(), rerr)
		}
		sum := sha256.Sum256(data)
		steps = append(steps, migrationStep{version: version, name: name, checksum: hex.EncodeToString(sum[:])})
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].version < steps[j].version })
	return steps, nil
}

func (r *MigrationRunner) ensureMetaTable() error {
	const ddl = `CREATE TABLE IF NOT EXISTS schema_migrations_meta (
		version BIGINT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		checksum VARCHAR(64) NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := r.sqlDB.Exec(ddl); err != nil {
		return errs.InternalError("failed to create schema_migrations_meta", err)
	}
	return nil
}

// checkChecksums compares the embedded steps' checksums against whatever was
// recorded the last time each version was applied. A mismatch means the
// migration file changed after being applied to this database -- a fatal
// startup condition rather than something to silently re-run.
func (r *MigrationRunner) checkChecksums(steps []migrationStep) error {
	rows, err := r.sqlDB.Query(`SELECT version, checksum FROM schema_migrations_meta`)
	if err != nil {
		return errs.InternalError("failed to read schema_migrations_meta", err)
	}
	defer rows.Close()

	recorded := make(map[uint]string)
	for rows.Next() {
		var v uint
		var c string
		if err := rows.Scan(&v, &c); err != nil {
			return errs.InternalError("failed to scan schema_migrations_meta row", err)
		}
		recorded[v] = c
	}

	for _, s := range steps {
		if prev, ok := recorded[s.version]; ok && prev != s.checksum {
			return errs.InternalError(
				fmt.Sprintf("migration %d_%s changed after being applied: checksum mismatch (recorded %s, embedded %s)",
					s.version, s.name, prev, s.checksum), nil)
		}
	}
	return nil
}

func (r *MigrationRunner) recordAppliedSteps(steps []migrationStep) error {
	const stmt = `INSERT INTO schema_migrations_meta (version, name, checksum, applied_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (version) DO NOTHING`
	now := time.Now().UTC()
	for _, s := range steps {
		if _, err := r.sqlDB.Exec(stmt, s.version, s.name, s.checksum, now); err != nil {
			return errs.InternalError("failed to record applied migration", err)
		}
	}
	return nil
}
