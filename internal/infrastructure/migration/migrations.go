package migration

import (
	"fmt"
	"strings"
	"time"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/ledger"
	"gorm.io/gorm"
)

// Migrations returns the built-in schema steps in version order
func Migrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_productos", Up: createProductos},
		{Version: 2, Name: "create_albaranes", Up: createAlbaranes},
		{Version: 3, Name: "rebuild_albaran_items", Up: rebuildAlbaranItems},
		{Version: 4, Name: "albaranes_grupo_archived", Up: albaranesGrupoArchived},
		{Version: 5, Name: "grouped_saldo", Up: groupedSaldo},
		{Version: 6, Name: "manual_saldo", Up: manualSaldo},
		{Version: 7, Name: "app_settings_import_history", Up: settingsAndImportHistory},
	}
}

func nowText() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func createProductos(tx *gorm.DB) error {
	return execAll(tx,
		`CREATE TABLE IF NOT EXISTS productos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id INTEGER,
			nombre TEXT,
			ean TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_productos_ean ON productos(ean)`,
		`CREATE INDEX IF NOT EXISTS idx_productos_item_id ON productos(item_id)`,
		`CREATE INDEX IF NOT EXISTS idx_productos_nombre ON productos(nombre)`,
	)
}

func createAlbaranes(tx *gorm.DB) error {
	if !tx.Migrator().HasTable("albaranes") {
		return execAll(tx,
			`CREATE TABLE albaranes (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				etiqueta TEXT NOT NULL UNIQUE,
				created_at TEXT,
				finished_at TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_albaranes_etiqueta ON albaranes(etiqueta)`,
		)
	}

	if err := ensureColumn(tx, "albaranes", "created_at", "TEXT"); err != nil {
		return err
	}
	if err := ensureColumn(tx, "albaranes", "finished_at", "TEXT"); err != nil {
		return err
	}
	if err := tx.Exec("UPDATE albaranes SET created_at = ? WHERE created_at IS NULL", nowText()).Error; err != nil {
		return fmt.Errorf("failed to backfill albaranes.created_at: %w", err)
	}
	return execAll(tx, `CREATE INDEX IF NOT EXISTS idx_albaranes_etiqueta ON albaranes(etiqueta)`)
}

const albaranItemsDDL = `CREATE TABLE albaran_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	albaran_id INTEGER NOT NULL,
	item_id INTEGER,
	codigo TEXT NOT NULL,
	descripcion TEXT NOT NULL,
	bultos_esperados INTEGER NOT NULL,
	bultos_revisados INTEGER NOT NULL DEFAULT 0,
	falta INTEGER NOT NULL DEFAULT 0,
	FOREIGN KEY (albaran_id) REFERENCES albaranes(id) ON DELETE CASCADE
)`

var albaranItemsIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_items_albaran_id ON albaran_items(albaran_id)`,
	`CREATE INDEX IF NOT EXISTS idx_items_codigo ON albaran_items(codigo)`,
}

// rebuildAlbaranItems creates the line table, or rebuilds a legacy one that
// lacks the counting columns. Legacy cantidad/revisados map to the new columns.
func rebuildAlbaranItems(tx *gorm.DB) error {
	if !tx.Migrator().HasTable("albaran_items") {
		return execAll(tx, append([]string{albaranItemsDDL}, albaranItemsIndexes...)...)
	}

	cols, err := tableColumns(tx, "albaran_items")
	if err != nil {
		return err
	}
	_, hasExpected := cols["bultos_esperados"]
	_, hasCounted := cols["bultos_revisados"]
	_, hasItemID := cols["item_id"]
	if hasExpected && hasCounted && hasItemID {
		return execAll(tx, albaranItemsIndexes...)
	}

	if err := tx.Migrator().RenameTable("albaran_items", "albaran_items_old"); err != nil {
		return fmt.Errorf("failed to rename legacy albaran_items: %w", err)
	}
	if err := execAll(tx, albaranItemsDDL); err != nil {
		return err
	}

	expected := columnOr(cols, "bultos_esperados", columnOr(cols, "cantidad", "0"))
	counted := columnOr(cols, "bultos_revisados", columnOr(cols, "revisados", "0"))
	copyRows := fmt.Sprintf(`INSERT INTO albaran_items
		(albaran_id, item_id, codigo, descripcion, bultos_esperados, bultos_revisados, falta)
		SELECT albaran_id, %s, COALESCE(%s, ''), COALESCE(%s, ''), COALESCE(%s, 0), COALESCE(%s, 0), COALESCE(%s, 0)
		FROM albaran_items_old
		WHERE albaran_id IN (SELECT id FROM albaranes)`,
		columnOr(cols, "item_id", "NULL"),
		columnOr(cols, "codigo", "''"),
		columnOr(cols, "descripcion", "''"),
		expected,
		counted,
		columnOr(cols, "falta", "0"),
	)
	if err := execAll(tx, copyRows); err != nil {
		return err
	}
	return execAll(tx, append([]string{`DROP TABLE albaran_items_old`}, albaranItemsIndexes...)...)
}

func albaranesGrupoArchived(tx *gorm.DB) error {
	if err := ensureColumn(tx, "albaranes", "grupo", "TEXT"); err != nil {
		return err
	}
	return ensureColumn(tx, "albaranes", "archived_at", "TEXT")
}

const saldoGlobalDDL = `CREATE TABLE saldo_global (
	grupo TEXT NOT NULL,
	codigo TEXT NOT NULL,
	descripcion TEXT,
	saldo INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (grupo, codigo)
)`

// groupedSaldo moves the ledger to (grupo, codigo) keys. A legacy balance
// table keyed by codigo alone is rebuilt; its rows land in the unassigned group.
func groupedSaldo(tx *gorm.DB) error {
	if !tx.Migrator().HasTable("saldo_global") {
		if err := execAll(tx, saldoGlobalDDL); err != nil {
			return err
		}
	} else if err := rebuildLegacySaldo(tx); err != nil {
		return err
	}

	if !tx.Migrator().HasTable("saldo_movimientos") {
		err := execAll(tx, `CREATE TABLE saldo_movimientos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			albaran_id INTEGER,
			etiqueta TEXT,
			grupo TEXT NOT NULL,
			codigo TEXT NOT NULL,
			descripcion TEXT,
			delta INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)`)
		if err != nil {
			return err
		}
	} else {
		if err := ensureColumn(tx, "saldo_movimientos", "grupo", "TEXT"); err != nil {
			return err
		}
		if err := ensureColumn(tx, "saldo_movimientos", "descripcion", "TEXT"); err != nil {
			return err
		}
		err := tx.Exec("UPDATE saldo_movimientos SET grupo = ? WHERE grupo IS NULL OR grupo = ''",
			ledger.UnassignedGroup).Error
		if err != nil {
			return fmt.Errorf("failed to assign legacy movements: %w", err)
		}
	}

	return execAll(tx,
		`CREATE INDEX IF NOT EXISTS idx_saldo_grupo ON saldo_global(grupo)`,
		`CREATE INDEX IF NOT EXISTS idx_mov_grupo_codigo ON saldo_movimientos(grupo, codigo)`,
		`CREATE INDEX IF NOT EXISTS idx_mov_albaran ON saldo_movimientos(albaran_id)`,
	)
}

func rebuildLegacySaldo(tx *gorm.DB) error {
	pk, err := primaryKey(tx, "saldo_global")
	if err != nil {
		return err
	}
	if strings.Join(pk, ",") == "grupo,codigo" {
		return nil
	}

	cols, err := tableColumns(tx, "saldo_global")
	if err != nil {
		return err
	}
	if err := tx.Migrator().RenameTable("saldo_global", "saldo_global_old"); err != nil {
		return fmt.Errorf("failed to rename legacy saldo_global: %w", err)
	}
	if err := execAll(tx, saldoGlobalDDL); err != nil {
		return err
	}

	group := fmt.Sprintf("'%s'", ledger.UnassignedGroup)
	if _, ok := cols["grupo"]; ok {
		group = fmt.Sprintf("COALESCE(NULLIF(grupo, ''), '%s')", ledger.UnassignedGroup)
	}
	copyRows := fmt.Sprintf(`INSERT INTO saldo_global (grupo, codigo, descripcion, saldo, updated_at)
		SELECT %s, codigo, MAX(%s), SUM(saldo), COALESCE(MAX(%s), '%s')
		FROM saldo_global_old
		WHERE saldo != 0
		GROUP BY 1, codigo`,
		group,
		columnOr(cols, "descripcion", "NULL"),
		columnOr(cols, "updated_at", "NULL"),
		nowText(),
	)
	return execAll(tx, copyRows, `DROP TABLE saldo_global_old`)
}

func manualSaldo(tx *gorm.DB) error {
	err := execAll(tx,
		`CREATE TABLE IF NOT EXISTS manual_saldo_global (
			grupo TEXT NOT NULL,
			codigo TEXT NOT NULL,
			descripcion TEXT,
			saldo INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (grupo, codigo)
		)`,
		`CREATE TABLE IF NOT EXISTS manual_saldo_movimientos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			grupo TEXT NOT NULL,
			etiqueta TEXT,
			codigo TEXT NOT NULL,
			delta INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)`,
	)
	if err != nil {
		return err
	}
	if err := ensureColumn(tx, "manual_saldo_movimientos", "descripcion", "TEXT"); err != nil {
		return err
	}
	return execAll(tx,
		`CREATE INDEX IF NOT EXISTS idx_manual_mov_grupo_codigo ON manual_saldo_movimientos(grupo, codigo)`,
	)
}

func settingsAndImportHistory(tx *gorm.DB) error {
	return execAll(tx,
		`CREATE TABLE IF NOT EXISTS app_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS import_history (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			source_names TEXT NOT NULL DEFAULT '[]',
			total_rows INTEGER NOT NULL DEFAULT 0,
			success_rows INTEGER NOT NULL DEFAULT 0,
			error_rows INTEGER NOT NULL DEFAULT 0,
			skipped_rows INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			error TEXT NOT NULL DEFAULT '',
			error_details TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			started_at TEXT,
			completed_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_import_history_kind ON import_history(kind, created_at)`,
	)
}
