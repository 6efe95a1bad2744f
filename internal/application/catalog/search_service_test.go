package catalog

import (
	"context"
	"testing"

	"github.com/Proyectitos24/RepasoAlbaranes/internal/domain/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchService_Search(t *testing.T) {
	ctx := context.Background()
	leche := catalog.Product{ID: 1, ItemID: 42, Name: "LECHE", EAN: "8410000000421"}
	limon := catalog.Product{ID: 2, ItemID: 420, Name: "Limón", EAN: "8410000000001"}
	lomo := catalog.Product{ID: 3, ItemID: 7, Name: "LOMO", EAN: "8410000004200"}

	t.Run("empty query lists newest", func(t *testing.T) {
		repo := new(MockProductRepository)
		repo.On("Search", ctx, catalog.ProductFilter{Limit: DefaultSearchLimit}).Return([]catalog.Product{lomo, limon, leche}, nil)

		got, err := NewSearchService(repo).Search(ctx, "  ", 0)
		require.NoError(t, err)
		assert.Len(t, got, 3)
		repo.AssertExpectations(t)
	})

	t.Run("digits put the exact item first", func(t *testing.T) {
		repo := new(MockProductRepository)
		repo.On("Search", ctx, catalog.ProductFilter{Digits: "42", Limit: 10}).Return([]catalog.Product{lomo, limon, leche}, nil)
		repo.On("Search", ctx, catalog.ProductFilter{ItemID: 42, Limit: 10}).Return([]catalog.Product{leche}, nil)

		got, err := NewSearchService(repo).Search(ctx, "42", 10)
		require.NoError(t, err)
		assert.Equal(t, []catalog.Product{leche, lomo, limon}, got)
	})

	t.Run("text ignores accents and case", func(t *testing.T) {
		repo := new(MockProductRepository)
		repo.On("Search", ctx, catalog.ProductFilter{Pattern: catalog.NamePattern("limon"), Limit: 4 * nameOverfetch}).
			Return([]catalog.Product{limon, lomo}, nil)

		got, err := NewSearchService(repo).Search(ctx, "limon", 4)
		require.NoError(t, err)
		assert.Equal(t, []catalog.Product{limon}, got)
	})
}

func TestSearchService_Count(t *testing.T) {
	ctx := context.Background()
	repo := new(MockProductRepository)
	repo.On("Count", ctx).Return(int64(12), nil)

	n, err := NewSearchService(repo).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
}
