package persistence_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/catalog"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/shared"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/persistence"
	"github.com/Proyectitos24/RepasoAlbaranes/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProducts(t *testing.T, repo *persistence.GormProductRepository) {
	t.Helper()
	var products []catalog.Product
	for _, p := range []struct {
		itemID int64
		name   string
		ean    string
	}{
		{42, "LECHE ENTERA", "8410000000001; 8410000000002"},
		{43, "Limón", "8410000000019"},
		{500, "JAMON", "2123456000000"},
		{4200, "LECHE DESNATADA", "8410000004200"},
	} {
		product, err := catalog.NewProduct(p.itemID, p.name, p.ean)
		require.NoError(t, err)
		products = append(products, *product)
	}
	require.NoError(t, repo.CreateBatch(context.Background(), products, 3))
}

func TestGormProductRepository_FindByItemID(t *testing.T) {
	repo := persistence.NewGormProductRepository(testutil.NewStore(t).DB)
	seedProducts(t, repo)

	p, err := repo.FindByItemID(context.Background(), 43)
	require.NoError(t, err)
	assert.Equal(t, "Limón", p.Name)
	assert.NotZero(t, p.ID)

	_, err = repo.FindByItemID(context.Background(), 44)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestGormProductRepository_FindByBarcode(t *testing.T) {
	repo := persistence.NewGormProductRepository(testutil.NewStore(t).DB)
	seedProducts(t, repo)
	ctx := context.Background()

	t.Run("matches a token of a barcode list", func(t *testing.T) {
		p, err := repo.FindByBarcode(ctx, []string{"8410000000002"})
		require.NoError(t, err)
		assert.Equal(t, int64(42), p.ItemID)
	})

	t.Run("tries candidates in order", func(t *testing.T) {
		p, err := repo.FindByBarcode(ctx, []string{"", "0000000000000", "8410000000019"})
		require.NoError(t, err)
		assert.Equal(t, int64(43), p.ItemID)
	})

	t.Run("a partial barcode is not a match", func(t *testing.T) {
		_, err := repo.FindByBarcode(ctx, []string{"841000000000"})
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})
}

func TestGormProductRepository_FindByBarcodePrefix(t *testing.T) {
	repo := persistence.NewGormProductRepository(testutil.NewStore(t).DB)
	seedProducts(t, repo)

	ctx := context.Background()

	t.Run("first barcode", func(t *testing.T) {
		products, err := repo.FindByBarcodePrefix(ctx, "841000000", 10)
		require.NoError(t, err)
		require.Len(t, products, 3)
		assert.Equal(t, int64(42), products[0].ItemID)
		assert.Equal(t, int64(4200), products[2].ItemID)
	})

	t.Run("later barcode in the field", func(t *testing.T) {
		products, err := repo.FindByBarcodePrefix(ctx, "8410000000002", 10)
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, int64(42), products[0].ItemID)
	})

	t.Run("inner digits do not match", func(t *testing.T) {
		products, err := repo.FindByBarcodePrefix(ctx, "1000000", 10)
		require.NoError(t, err)
		assert.Empty(t, products)
	})
}

func TestGormProductRepository_FindByBarcodePrefix_NotCrowdedOut(t *testing.T) {
	repo := persistence.NewGormProductRepository(testutil.NewStore(t).DB)
	ctx := context.Background()

	// low item ids carry the prefix in the middle of their barcode
	var products []catalog.Product
	for i := int64(1); i <= 5; i++ {
		p, err := catalog.NewProduct(i, "RUIDO", fmt.Sprintf("99%d2123456000", i))
		require.NoError(t, err)
		products = append(products, *p)
	}
	weighed, err := catalog.NewProduct(900, "JAMON", "2123456000000")
	require.NoError(t, err)
	products = append(products, *weighed)
	require.NoError(t, repo.CreateBatch(ctx, products, 10))

	found, err := repo.FindByBarcodePrefix(ctx, "2123456", 3)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, int64(900), found[0].ItemID)
}

func TestGormProductRepository_Search(t *testing.T) {
	repo := persistence.NewGormProductRepository(testutil.NewStore(t).DB)
	seedProducts(t, repo)
	ctx := context.Background()

	t.Run("newest first without filter", func(t *testing.T) {
		products, err := repo.Search(ctx, catalog.ProductFilter{Limit: 2})
		require.NoError(t, err)
		require.Len(t, products, 2)
		assert.Equal(t, int64(4200), products[0].ItemID)
	})

	t.Run("exact item id", func(t *testing.T) {
		products, err := repo.Search(ctx, catalog.ProductFilter{ItemID: 42})
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, "LECHE ENTERA", products[0].Name)
	})

	t.Run("digits match item id or barcode", func(t *testing.T) {
		products, err := repo.Search(ctx, catalog.ProductFilter{Digits: "42"})
		require.NoError(t, err)
		assert.Len(t, products, 2)
	})

	t.Run("name pattern", func(t *testing.T) {
		products, err := repo.Search(ctx, catalog.ProductFilter{Pattern: catalog.NamePattern("leche")})
		require.NoError(t, err)
		assert.Len(t, products, 2)
	})
}

func TestGormProductRepository_DeleteAllResetsIDs(t *testing.T) {
	repo := persistence.NewGormProductRepository(testutil.NewStore(t).DB)
	ctx := context.Background()

	require.NoError(t, repo.DeleteAll(ctx), "works on a store that never held products")
	seedProducts(t, repo)
	require.NoError(t, repo.DeleteAll(ctx))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	seedProducts(t, repo)
	require.NoError(t, repo.Reindex(ctx))
	p, err := repo.FindByItemID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
}

func TestGormProductRepository_QueryError(t *testing.T) {
	mdb := testutil.NewMockDB(t)
	repo := persistence.NewGormProductRepository(mdb.DB)
	boom := errors.New("connection reset")

	mdb.Mock.ExpectQuery(`SELECT \* FROM "productos"`).WillReturnError(boom)

	_, err := repo.FindByBarcode(context.Background(), []string{"8410000000001"})
	assert.ErrorIs(t, err, boom)
	mdb.ExpectationsWereMet(t)
}

func TestGormProductRepository_CountMock(t *testing.T) {
	mdb := testutil.NewMockDB(t)
	repo := persistence.NewGormProductRepository(mdb.DB)

	mdb.Mock.ExpectQuery(`SELECT count\(\*\) FROM "productos"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	mdb.ExpectationsWereMet(t)
}
