package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/staging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var lineaRequest = TableRequest{
	Name:     "Linea",
	Columns:  []string{"Etiqueta", "Codigo", "Descripcion", "Cantidad"},
	Optional: []string{"Falta"},
	OrderBy:  "id",
}

// writeListingDB creates an external listing database with rows stored out of id order
func writeListingDB(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "listado.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	for _, stmt := range []string{
		`CREATE TABLE Linea (id INTEGER PRIMARY KEY, Etiqueta TEXT, Codigo TEXT, Descripcion TEXT, Cantidad REAL, Falta INTEGER)`,
		`CREATE TABLE Cabecera (id INTEGER PRIMARY KEY)`,
		`INSERT INTO Linea VALUES (2, '900001', '43', 'PAN', 2.0, NULL)`,
		`INSERT INTO Linea VALUES (1, ' 900001 ', '42', 'LECHE', 10, 1)`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	return path
}

func TestFileOpener_SQLite(t *testing.T) {
	dir := t.TempDir()
	path := writeListingDB(t, dir)
	store := staging.NewStore(filepath.Join(dir, "staging"), zap.NewNop())
	ctx := context.Background()

	opener := NewFileOpener(path, store)
	assert.Equal(t, "listado.db", opener.Name())

	src, err := opener.Open(ctx)
	require.NoError(t, err)
	defer src.Close()

	tables, err := src.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cabecera", "Linea"}, tables)

	table, err := src.ReadTable(ctx, lineaRequest)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "900001", table.Rows[0]["Etiqueta"])
	assert.Equal(t, "10", table.Rows[0]["Cantidad"])
	assert.Equal(t, "1", table.Rows[0]["Falta"])
	assert.Equal(t, "2", table.Rows[1]["Cantidad"])
	assert.Equal(t, "", table.Rows[1]["Falta"])

	staged, err := store.Staged()
	require.NoError(t, err)
	assert.Len(t, staged, 1)
}

func TestSQLSource_MissingColumns(t *testing.T) {
	path := writeListingDB(t, t.TempDir())
	src, err := OpenSQLite("listado.db", path)
	require.NoError(t, err)
	defer src.Close()

	_, err = src.ReadTable(context.Background(), TableRequest{Name: "Linea", Columns: []string{"Etiqueta", "Lote"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrSourceShape)

	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "Linea", shapeErr.Table)
	assert.Equal(t, []string{"Lote"}, shapeErr.Required)
	assert.Contains(t, shapeErr.Found, "Descripcion")

	_, err = src.ReadTable(context.Background(), TableRequest{Name: "Item", Columns: []string{"ItemID"}})
	assert.ErrorIs(t, err, shared.ErrSourceShape)
}

func TestOpenSQLite_NotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.db")
	require.NoError(t, os.WriteFile(path, []byte("this is not sqlite, just some text padding it out"), 0o644))

	src, err := OpenSQLite("notes.db", path)
	if err == nil {
		// the driver opens lazily; the first query must fail instead
		defer src.Close()
		_, err = src.Tables(context.Background())
	}
	assert.ErrorIs(t, err, shared.ErrIO)
}

func newMockSource(t *testing.T) (*SQLSource, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return NewSQLSource("mock.db", db), mock
}

func TestSQLSource_QueryFailures(t *testing.T) {
	t.Run("listing tables fails", func(t *testing.T) {
		src, mock := newMockSource(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM sqlite_master")).
			WillReturnError(errors.New("disk I/O error"))

		_, err := src.Tables(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrIO)
		assert.Contains(t, err.Error(), "disk I/O error")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reading rows fails", func(t *testing.T) {
		src, mock := newMockSource(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM pragma_table_info")).
			WithArgs("Linea").
			WillReturnRows(sqlmock.NewRows([]string{"name"}).
				AddRow("id").AddRow("Etiqueta").AddRow("Codigo").AddRow("Descripcion").AddRow("Cantidad"))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT "Etiqueta", "Codigo", "Descripcion", "Cantidad", "id" FROM "Linea" ORDER BY "id"`)).
			WillReturnError(errors.New("database disk image is malformed"))

		_, err := src.ReadTable(context.Background(), lineaRequest)
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrIO)
		assert.NotErrorIs(t, err, shared.ErrSourceShape)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("scanned cells are rendered as text", func(t *testing.T) {
		src, mock := newMockSource(t)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM pragma_table_info")).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("ItemID").AddRow("EAN"))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT "ItemID", "EAN" FROM "ItemEAN"`)).
			WillReturnRows(sqlmock.NewRows([]string{"ItemID", "EAN"}).
				AddRow(int64(42), []byte("012345678905")).
				AddRow(float64(43), nil))

		table, err := src.ReadTable(context.Background(), TableRequest{Name: "ItemEAN", Columns: []string{"ItemID", "EAN"}})
		require.NoError(t, err)
		assert.Equal(t, []Record{
			{"ItemID": "42", "EAN": "012345678905"},
			{"ItemID": "43", "EAN": ""},
		}, table.Rows)
	})
}

func TestFileOpener_Workbook(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalogo.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Item"))
	require.NoError(t, f.SetSheetRow("Item", "A1", &[]any{"ItemID", "LoyaltyDescription"}))
	require.NoError(t, f.SetSheetRow("Item", "A2", &[]any{42, "Milk"}))
	_, err := f.NewSheet("ItemEAN")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("ItemEAN", "A1", &[]any{"itemid", "ean"}))
	require.NoError(t, f.SetSheetRow("ItemEAN", "A2", &[]any{42, "012345678905"}))
	_, err = f.NewSheet("Empty")
	require.NoError(t, err)
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	src, err := NewFileOpener(path, nil).Open(context.Background())
	require.NoError(t, err)
	defer src.Close()

	found, err := RequireTables(context.Background(), src, "Item", "ItemEAN")
	require.NoError(t, err)
	assert.Equal(t, "ItemEAN", found["ItemEAN"])

	table, err := src.ReadTable(context.Background(), TableRequest{Name: "itemean", Columns: []string{"ItemID", "EAN"}})
	require.NoError(t, err)
	assert.Equal(t, []Record{{"ItemID": "42", "EAN": "012345678905"}}, table.Rows)
}

func TestFileOpener_CSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Linea.csv")
	content := "id;Etiqueta;Codigo;Descripcion;Cantidad\n" +
		"10;900002;7;AGUA;1,0\n" +
		"2;900001;42;LECHE;10\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	src, err := NewFileOpener(path, nil).Open(context.Background())
	require.NoError(t, err)
	defer src.Close()

	tables, err := src.Tables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Linea"}, tables)

	table, err := src.ReadTable(context.Background(), lineaRequest)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "900001", table.Rows[0]["Etiqueta"])
	assert.Equal(t, "1,0", table.Rows[1]["Cantidad"])
	_, hasFalta := table.Rows[0]["Falta"]
	assert.False(t, hasFalta)
}

func TestFileOpener_Errors(t *testing.T) {
	t.Run("unsupported extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "listado.pdf")
		require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))
		_, err := NewFileOpener(path, nil).Open(context.Background())
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewFileOpener(filepath.Join(t.TempDir(), "Linea.csv"), nil).Open(context.Background())
		assert.ErrorIs(t, err, shared.ErrIO)
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewFileOpener("whatever.db", nil).Open(ctx)
		assert.ErrorIs(t, err, shared.ErrCanceled)
	})
}

func TestCanceled(t *testing.T) {
	opener := Canceled()
	assert.Empty(t, opener.Name())
	src, err := opener.Open(context.Background())
	assert.Nil(t, src)
	assert.ErrorIs(t, err, shared.ErrCanceled)
}

func TestRequireTables(t *testing.T) {
	src := NewMemorySource("catalog.db",
		Sheet{Name: "Item", Header: []string{"ItemID"}},
		Sheet{Name: "Store", Header: []string{"id"}},
	)

	_, err := RequireTables(context.Background(), src, "Item", "ItemEAN")
	require.Error(t, err)

	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, []string{"ItemEAN"}, shapeErr.Required)
	assert.Equal(t, []string{"Item", "Store"}, shapeErr.Found)
	assert.Equal(t, "missing required tables: ItemEAN (found: Item, Store)", err.Error())
}

func TestMemorySource_ReadTable(t *testing.T) {
	src := NewMemorySource("listado.xlsx", Sheet{
		Name:   "Linea",
		Header: []string{"ID", "etiqueta", "CODIGO", "Descripcion", "Cantidad", "Falta"},
		Rows: [][]string{
			{"3", "B", "2", "PAN", "1", ""},
			{"", "", "", "", "", ""},
			{"x", "C", "9", "SAL", "1"},
			{"1", " A ", "1", "LECHE", "2", "1"},
		},
	})

	table, err := src.ReadTable(context.Background(), lineaRequest)
	require.NoError(t, err)
	assert.Equal(t, []string{"Etiqueta", "Codigo", "Descripcion", "Cantidad", "Falta", "id"}, table.Columns)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "A", table.Rows[0]["Etiqueta"])
	assert.Equal(t, "B", table.Rows[1]["Etiqueta"])
	// unparsable ids sort last, short rows read as empty
	assert.Equal(t, "C", table.Rows[2]["Etiqueta"])
	assert.Equal(t, "", table.Rows[2]["Falta"])
}
