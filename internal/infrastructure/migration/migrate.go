// Package migration brings the local store to the current schema. Migrations
// are Go functions applied in version order, each in its own transaction, and
// each one inspects the live schema so that stores written by older app
// versions are upgraded in place.
package migration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migration is one versioned schema step
type Migration struct {
	Version int
	Name    string
	Up      func(tx *gorm.DB) error
}

// AppliedMigration is a row of schema_migrations
type AppliedMigration struct {
	Version   int    `gorm:"column:version;primaryKey"`
	Name      string `gorm:"column:name;not null"`
	AppliedAt string `gorm:"column:applied_at;not null"`
}

// TableName returns the table name for GORM
func (AppliedMigration) TableName() string {
	return "schema_migrations"
}

// Manager applies pending migrations to a store
type Manager struct {
	db         *gorm.DB
	logger     *zap.Logger
	migrations []Migration

	mu   sync.Mutex
	done bool
}

// NewManager creates a Manager for the built-in migrations
func NewManager(db *gorm.DB, logger *zap.Logger) *Manager {
	return NewManagerWith(db, logger, Migrations())
}

// NewManagerWith creates a Manager for a custom migration list
func NewManagerWith(db *gorm.DB, logger *zap.Logger, migrations []Migration) *Manager {
	sorted := append([]Migration(nil), migrations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	return &Manager{
		db:         db,
		logger:     logger.Named("migration"),
		migrations: sorted,
	}
}

// EnsureSchema applies every pending migration. It is safe to call
// repeatedly and from several goroutines; after the first success it returns
// immediately.
func (m *Manager) EnsureSchema(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done {
		return nil
	}

	pending, err := m.pending(ctx)
	if err != nil {
		return err
	}

	if len(pending) == 0 {
		m.logger.Debug("Schema is up to date")
		m.done = true
		return nil
	}

	for _, mig := range pending {
		if err := m.apply(ctx, mig); err != nil {
			m.logger.Error("Migration failed",
				zap.Int("version", mig.Version),
				zap.String("name", mig.Name),
				zap.Error(err),
			)
			return err
		}
		m.logger.Info("Migration applied",
			zap.Int("version", mig.Version),
			zap.String("name", mig.Name),
		)
	}

	m.done = true
	return nil
}

// Version returns the highest applied version, 0 for a fresh store
func (m *Manager) Version(ctx context.Context) (int, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return 0, err
	}
	version := 0
	for _, a := range applied {
		if a.Version > version {
			version = a.Version
		}
	}
	return version, nil
}

// Pending returns the migrations not yet applied, in version order
func (m *Manager) Pending(ctx context.Context) ([]Migration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending(ctx)
}

// Applied returns the recorded migrations in version order
func (m *Manager) Applied(ctx context.Context) ([]AppliedMigration, error) {
	if err := m.ensureVersionTable(ctx); err != nil {
		return nil, err
	}
	var applied []AppliedMigration
	if err := m.db.WithContext(ctx).Order("version ASC").Find(&applied).Error; err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	return applied, nil
}

func (m *Manager) pending(ctx context.Context) ([]Migration, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[int]bool, len(applied))
	for _, a := range applied {
		seen[a.Version] = true
	}

	var out []Migration
	for _, mig := range m.migrations {
		if !seen[mig.Version] {
			out = append(out, mig)
		}
	}
	return out, nil
}

func (m *Manager) apply(ctx context.Context, mig Migration) error {
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mig.Up(tx); err != nil {
			return err
		}
		return tx.Create(&AppliedMigration{
			Version:   mig.Version,
			Name:      mig.Name,
			AppliedAt: time.Now().UTC().Format(time.RFC3339),
		}).Error
	})
	if err != nil {
		return &SchemaMigrationError{Version: mig.Version, Name: mig.Name, Err: err}
	}
	return nil
}

func (m *Manager) ensureVersionTable(ctx context.Context) error {
	err := m.db.WithContext(ctx).Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`).Error
	if err != nil {
		return &SchemaMigrationError{Name: "schema_migrations", Err: err}
	}
	return nil
}
