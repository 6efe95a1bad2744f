// Package testutil provides common test utilities: a migrated in-memory store
// and a sqlmock-backed GORM handle.
package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/config"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/migration"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewStore opens a private in-memory store with the current schema.
// The store is closed when the test ends.
func NewStore(t *testing.T) *persistence.Database {
	t.Helper()
	return NewStoreWithLogger(t, logger.Default.LogMode(logger.Silent))
}

// NewStoreWithLogger is NewStore with statements sent to gormLogger
func NewStoreWithLogger(t *testing.T, gormLogger logger.Interface) *persistence.Database {
	t.Helper()

	db, err := persistence.NewDatabaseWithLogger(&config.StoreConfig{Path: persistence.MemoryPath}, gormLogger)
	require.NoError(t, err, "Failed to open store")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migration.NewManager(db.DB, zap.NewNop()).EnsureSchema(context.Background()),
		"Failed to migrate store")
	return db
}

// MockDB wraps a GORM database with sqlmock for testing.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB creates a new mock database for testing.
// The connection is closed when the test ends.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")
	t.Cleanup(func() { _ = mockDB.Close() })

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to open GORM connection")

	return &MockDB{
		DB:    gormDB,
		Mock:  mock,
		SqlDB: mockDB,
	}
}

// ExpectationsWereMet verifies that all expectations were met.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	err := m.Mock.ExpectationsWereMet()
	require.NoError(t, err, "Unmet database expectations")
}

// NewTestUUID generates a deterministic UUID for testing.
// Uses the provided seed string to create a reproducible UUID.
func NewTestUUID(seed string) uuid.UUID {
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	return uuid.NewSHA1(namespace, []byte(seed))
}
