package migration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/ledger"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/config"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newStore(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := persistence.NewDatabase(&config.StoreConfig{Path: persistence.MemoryPath})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db.DB
}

func TestManager_EnsureSchema_FreshStore(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	m := NewManager(db, zap.NewNop())

	require.NoError(t, m.EnsureSchema(ctx))

	for _, table := range []string{
		"productos", "albaranes", "albaran_items", "saldo_global", "saldo_movimientos",
		"manual_saldo_global", "manual_saldo_movimientos", "app_settings", "import_history",
	} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	version, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(Migrations()), version)

	pending, err := m.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestManager_EnsureSchema_Idempotent(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()

	require.NoError(t, NewManager(db, zap.NewNop()).EnsureSchema(ctx))
	require.NoError(t, db.Exec("INSERT INTO albaranes (etiqueta, created_at) VALUES ('100', '2024-01-01T00:00:00Z')").Error)

	// a second process opening the same store
	m := NewManager(db, zap.NewNop())
	require.NoError(t, m.EnsureSchema(ctx))
	require.NoError(t, m.EnsureSchema(ctx))

	var count int64
	require.NoError(t, db.Table("albaranes").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	applied, err := m.Applied(ctx)
	require.NoError(t, err)
	assert.Len(t, applied, len(Migrations()))
}

func TestManager_EnsureSchema_Concurrent(t *testing.T) {
	db := newStore(t)
	m := NewManager(db, zap.NewNop())

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.EnsureSchema(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	applied, err := m.Applied(context.Background())
	require.NoError(t, err)
	assert.Len(t, applied, len(Migrations()))
}

func TestManager_RebuildsLegacyAlbaranItems(t *testing.T) {
	db := newStore(t)
	require.NoError(t, execAll(db,
		`CREATE TABLE albaranes (id INTEGER PRIMARY KEY AUTOINCREMENT, etiqueta TEXT NOT NULL UNIQUE)`,
		`CREATE TABLE albaran_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			albaran_id INTEGER NOT NULL,
			codigo TEXT,
			descripcion TEXT,
			cantidad INTEGER,
			revisados INTEGER
		)`,
		`INSERT INTO albaranes (id, etiqueta) VALUES (1, '555')`,
		`INSERT INTO albaran_items (albaran_id, codigo, descripcion, cantidad, revisados) VALUES (1, '42', 'LECHE', 6, 4)`,
		`INSERT INTO albaran_items (albaran_id, codigo, descripcion, cantidad, revisados) VALUES (1, '43', NULL, 2, NULL)`,
	))

	require.NoError(t, NewManager(db, zap.NewNop()).EnsureSchema(context.Background()))

	type line struct {
		ItemID          *int64
		Codigo          string
		Descripcion     string
		BultosEsperados int
		BultosRevisados int
		Falta           int
	}
	var lines []line
	require.NoError(t, db.Table("albaran_items").Order("id").Find(&lines).Error)
	require.Len(t, lines, 2)

	assert.Nil(t, lines[0].ItemID)
	assert.Equal(t, "42", lines[0].Codigo)
	assert.Equal(t, 6, lines[0].BultosEsperados)
	assert.Equal(t, 4, lines[0].BultosRevisados)
	assert.Equal(t, "", lines[1].Descripcion)
	assert.Equal(t, 0, lines[1].BultosRevisados)

	var createdAt string
	require.NoError(t, db.Raw("SELECT COALESCE(created_at, '') FROM albaranes WHERE id = 1").Scan(&createdAt).Error)
	assert.NotEmpty(t, createdAt)
	assert.False(t, db.Migrator().HasTable("albaran_items_old"))
}

func TestManager_RebuildsLegacySaldo(t *testing.T) {
	db := newStore(t)
	require.NoError(t, execAll(db,
		`CREATE TABLE saldo_global (codigo TEXT PRIMARY KEY, descripcion TEXT, saldo INTEGER NOT NULL, updated_at TEXT)`,
		`CREATE TABLE saldo_movimientos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			albaran_id INTEGER,
			etiqueta TEXT,
			codigo TEXT NOT NULL,
			delta INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`INSERT INTO saldo_global VALUES ('42', 'LECHE', -3, '2024-01-01T00:00:00Z')`,
		`INSERT INTO saldo_global VALUES ('43', 'PAN', 0, '2024-01-01T00:00:00Z')`,
		`INSERT INTO saldo_movimientos (albaran_id, etiqueta, codigo, delta, created_at) VALUES (1, '555', '42', -3, '2024-01-01T00:00:00Z')`,
	))

	require.NoError(t, NewManager(db, zap.NewNop()).EnsureSchema(context.Background()))

	type balance struct {
		Grupo  string
		Codigo string
		Saldo  int
	}
	var balances []balance
	require.NoError(t, db.Table("saldo_global").Find(&balances).Error)
	require.Len(t, balances, 1)
	assert.Equal(t, balance{Grupo: ledger.UnassignedGroup, Codigo: "42", Saldo: -3}, balances[0])

	var group string
	require.NoError(t, db.Raw("SELECT grupo FROM saldo_movimientos WHERE codigo = '42'").Scan(&group).Error)
	assert.Equal(t, ledger.UnassignedGroup, group)

	pk, err := primaryKey(db, "saldo_global")
	require.NoError(t, err)
	assert.Equal(t, []string{"grupo", "codigo"}, pk)
}

func TestManager_FailedMigrationRollsBack(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	boom := errors.New("disk full")

	m := NewManagerWith(db, zap.NewNop(), []Migration{
		{Version: 1, Name: "create_productos", Up: createProductos},
		{Version: 2, Name: "broken", Up: func(tx *gorm.DB) error {
			if err := tx.Exec("CREATE TABLE half_done (id INTEGER)").Error; err != nil {
				return err
			}
			return boom
		}},
	})

	err := m.EnsureSchema(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrSchemaMigration))
	assert.ErrorIs(t, err, boom)

	var migErr *SchemaMigrationError
	require.ErrorAs(t, err, &migErr)
	assert.Equal(t, 2, migErr.Version)
	assert.Equal(t, "broken", migErr.Name)

	assert.False(t, db.Migrator().HasTable("half_done"))
	assert.True(t, db.Migrator().HasTable("productos"))

	version, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}
